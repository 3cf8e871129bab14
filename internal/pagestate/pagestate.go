// Package pagestate extracts what scenarios assert on from rendered HTML:
// visible text, status messages and select options.
package pagestate

import (
	"bytes"
	"fmt"
	stdhtml "html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/cases"
)

// MessageKind selects a class of CMS status message
type MessageKind string

const (
	MessageError   MessageKind = "error"
	MessageWarning MessageKind = "warning"
	MessageStatus  MessageKind = "status"
)

// Option is one entry of a select element
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// Document is a parsed page
type Document struct {
	root *html.Node
}

var stripPolicy = bluemonday.StrictPolicy()

// Parse parses a full HTML page or fragment
func Parse(content string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{root: root}, nil
}

// Text returns the visible text of the page, whitespace-normalised
func (d *Document) Text() string {
	var b strings.Builder
	collectText(d.root, &b)
	return Normalize(b.String())
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Head:
			return
		}
		if hasAttr(n, "hidden") {
			return
		}
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

// Messages returns the text of every status message of the given kind.
// Claro/Olivero (messages--error), Seven/Bartik (messages error) and
// Bootstrap (alert-danger) markup are recognised.
func (d *Document) Messages(kind MessageKind) []string {
	var out []string
	walk(d.root, func(n *html.Node) bool {
		if n.Type != html.ElementNode || !isMessage(n, kind) {
			return true
		}
		var buf bytes.Buffer
		_ = html.Render(&buf, n)
		if text := StripTags(buf.String()); text != "" {
			out = append(out, text)
		}
		return false
	})
	return out
}

func isMessage(n *html.Node, kind MessageKind) bool {
	classes := strings.Fields(attr(n, "class"))
	has := func(c string) bool {
		for _, cl := range classes {
			if cl == c {
				return true
			}
		}
		return false
	}
	if has("messages--" + string(kind)) {
		return true
	}
	if has("messages") && has(string(kind)) {
		return true
	}
	switch kind {
	case MessageError:
		return has("alert-danger")
	case MessageWarning:
		return has("alert-warning")
	case MessageStatus:
		return has("alert-success")
	}
	return false
}

// SelectOptions returns the options of the select element with the given id
// or name, in document order. An empty idOrName picks the first select.
func (d *Document) SelectOptions(idOrName string) ([]Option, error) {
	sel := d.find(func(n *html.Node) bool {
		if n.DataAtom != atom.Select {
			return false
		}
		return idOrName == "" || attr(n, "id") == idOrName || attr(n, "name") == idOrName
	})
	if sel == nil {
		return nil, fmt.Errorf("select %q not found", idOrName)
	}
	var opts []Option
	walk(sel, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Option {
			var b strings.Builder
			collectText(n, &b)
			label := Normalize(b.String())
			value, ok := attrOK(n, "value")
			if !ok {
				value = label
			}
			opts = append(opts, Option{Value: value, Label: label, Selected: hasAttr(n, "selected")})
			return false
		}
		return true
	})
	return opts, nil
}

// OptionMap returns value -> label for a select
func (d *Document) OptionMap(idOrName string) (map[string]string, error) {
	opts, err := d.SelectOptions(idOrName)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(opts))
	for _, o := range opts {
		out[o.Value] = o.Label
	}
	return out, nil
}

// HasElementID reports whether an element with id exists
func (d *Document) HasElementID(id string) bool {
	return d.find(func(n *html.Node) bool { return attr(n, "id") == id }) != nil
}

// ElementIDs returns the ids matching pattern in document order
func (d *Document) ElementIDs(pattern *regexp.Regexp) []string {
	var ids []string
	walk(d.root, func(n *html.Node) bool {
		if id, ok := attrOK(n, "id"); ok && n.Type == html.ElementNode && pattern.MatchString(id) {
			ids = append(ids, id)
		}
		return true
	})
	return ids
}

// CountClass counts elements carrying className
func (d *Document) CountClass(className string) int {
	count := 0
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			for _, c := range strings.Fields(attr(n, "class")) {
				if c == className {
					count++
					break
				}
			}
		}
		return true
	})
	return count
}

func (d *Document) find(match func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(d.root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if n.Type == html.ElementNode && match(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// walk visits n depth-first; returning false skips the children of a node
func walk(n *html.Node, visit func(*html.Node) bool) {
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func attrOK(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func attr(n *html.Node, key string) string {
	v, _ := attrOK(n, key)
	return v
}

func hasAttr(n *html.Node, key string) bool {
	_, ok := attrOK(n, key)
	return ok
}

// StripTags reduces an HTML fragment to normalised plain text
func StripTags(fragment string) string {
	return Normalize(stdhtml.UnescapeString(stripPolicy.Sanitize(fragment)))
}

// Normalize collapses runs of whitespace to single spaces
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ContainsText reports whether needle occurs in haystack ignoring case and
// whitespace differences, the way CMS page-text assertions match.
func ContainsText(haystack, needle string) bool {
	return strings.Contains(Fold(haystack), Fold(needle))
}

// Fold normalises whitespace and case-folds s. A Caser keeps state, so
// each call builds its own.
func Fold(s string) string {
	return cases.Fold().String(Normalize(s))
}
