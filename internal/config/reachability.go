package config

import (
	"log"
	"net"
	"net/http"
	"net/url"
	"time"
)

// probePaths are requested in order; any HTTP answer counts as reachable
var probePaths = []string{"/user/login", "/"}

// detectReachableBaseURL attempts to find a responsive site if the provided
// baseURL is not reachable. The original value is kept when nothing answers.
func detectReachableBaseURL(initial string) string {
	start := time.Now()
	if reachable(initial) {
		return initial
	}

	tried := []string{initial}
	for _, c := range candidateBaseURLs(initial) {
		tried = append(tried, c)
		if reachable(c) {
			log.Printf("[e2e-config] Auto-detect switched BaseURL %s -> %s (%.0fms)", initial, c, time.Since(start).Seconds()*1000)
			return c
		}
	}
	log.Printf("[e2e-config] Auto-detect kept unreachable BaseURL=%s (tried=%v in %.0fms)", initial, tried, time.Since(start).Seconds()*1000)
	return initial
}

// candidateBaseURLs lists localhost variants for a compose-style host name,
// de-duplicated and without the initial URL.
func candidateBaseURLs(initial string) []string {
	u, err := url.Parse(initial)
	if err != nil {
		return nil
	}
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "80"
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "http"
	}

	var candidates []string
	ports := []string{port, "8080", "80"}
	if host != "localhost" && host != "127.0.0.1" {
		for _, p := range ports {
			candidates = append(candidates, scheme+"://localhost:"+p)
		}
		for _, p := range ports {
			candidates = append(candidates, scheme+"://127.0.0.1:"+p)
		}
	}

	seen := map[string]struct{}{initial: {}}
	var uniq []string
	for _, c := range candidates {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		uniq = append(uniq, c)
	}
	return uniq
}

func reachable(base string) bool {
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return false
	}
	host := u.Host
	if u.Port() == "" {
		if u.Scheme == "https" {
			host += ":443"
		} else {
			host += ":80"
		}
	}
	d := net.Dialer{Timeout: 250 * time.Millisecond}
	conn, err := d.Dial("tcp", host)
	if err != nil {
		return false
	}
	_ = conn.Close()

	client := &http.Client{Timeout: 2 * time.Second}
	for _, path := range probePaths {
		resp, err := client.Get(base + path)
		if err == nil {
			_ = resp.Body.Close()
			return true
		}
	}
	return false
}
