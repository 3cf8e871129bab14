// Package crm is a typed client for the CiviCRM record-store API.
//
// APIv3 calls go through the REST endpoint (entity, action, json) and return
// the {is_error, count, id, values} envelope. APIv4 calls are used where the
// v3 API cannot express the query, such as joins.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/webform-civicrm/acceptance/internal/config"
)

// Client talks to the CRM REST endpoints of a site
type Client struct {
	httpClient *resty.Client
	baseURL    string
	restPath   string
	api4Path   string
	apiKey     string
	siteKey    string
	debug      bool
}

// Config represents client configuration
type Config struct {
	BaseURL   string
	RestPath  string
	API4Path  string
	APIKey    string
	SiteKey   string
	UserAgent string
	Timeout   time.Duration
	Debug     bool
}

// NewClient creates a new CRM API client. Requests are never retried:
// a failed call fails the scenario that issued it.
func NewClient(cfg *Config) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = "wfcrm-acceptance/1.0"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RestPath == "" {
		cfg.RestPath = "/civicrm/ajax/rest"
	}
	if cfg.API4Path == "" {
		cfg.API4Path = "/civicrm/ajax/api4"
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json").
		SetHeader("X-Requested-With", "XMLHttpRequest")

	if cfg.APIKey != "" {
		httpClient.SetHeader("X-Civi-Auth", "Bearer "+cfg.APIKey)
	}
	if cfg.SiteKey != "" {
		httpClient.SetHeader("X-Civi-Key", cfg.SiteKey)
	}
	if cfg.Debug {
		httpClient.SetDebug(true)
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    cfg.BaseURL,
		restPath:   cfg.RestPath,
		api4Path:   cfg.API4Path,
		apiKey:     cfg.APIKey,
		siteKey:    cfg.SiteKey,
		debug:      cfg.Debug,
	}
}

// NewClientFromConfig builds a client for the configured site
func NewClientFromConfig(c *config.Config) *Client {
	return NewClient(&Config{
		BaseURL:  c.BaseURL,
		RestPath: c.CRM.RestPath,
		API4Path: c.CRM.API4Path,
		APIKey:   c.CRM.APIKey,
		SiteKey:  c.CRM.SiteKey,
		Timeout:  c.CRM.Timeout,
		Debug:    c.CRM.Debug,
	})
}

type v3Envelope struct {
	IsError      Scalar          `json:"is_error"`
	ErrorMessage string          `json:"error_message"`
	ErrorCode    Scalar          `json:"error_code"`
	Count        int             `json:"count"`
	ID           ID              `json:"id"`
	Values       json.RawMessage `json:"values"`
	Result       json.RawMessage `json:"result"`
}

func (e *v3Envelope) failed() bool {
	return e.IsError != "" && e.IsError != "0"
}

type v4Envelope struct {
	Values       json.RawMessage `json:"values"`
	Count        int             `json:"count"`
	ErrorMessage string          `json:"error_message"`
	ErrorCode    Scalar          `json:"error_code"`
}

// encodeParams serialises a typed request and forces sequential output
func encodeParams(params any) (string, error) {
	fields := map[string]any{}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return "", fmt.Errorf("failed to encode params: %w", err)
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return "", fmt.Errorf("params must encode to an object: %w", err)
		}
	}
	fields["sequential"] = 1
	out, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to encode params: %w", err)
	}
	return string(out), nil
}

// post3 issues one APIv3 REST call and returns the raw body
func (c *Client) post3(ctx context.Context, entity, action string, params any) ([]byte, error) {
	encoded, err := encodeParams(params)
	if err != nil {
		return nil, err
	}
	if c.debug {
		log.Printf("[crm] v3 %s.%s %s", entity, action, encoded)
	}
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"entity":  entity,
			"action":  action,
			"json":    encoded,
			"api_key": c.apiKey,
			"key":     c.siteKey,
		}).
		Post(c.restPath)
	if err != nil {
		return nil, &NetworkError{Operation: entity + "." + action, URL: c.baseURL + c.restPath, Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &APIError{
			StatusCode: resp.StatusCode(),
			Entity:     entity,
			Action:     action,
			Message:    resp.Status(),
			Payload:    resp.Body(),
		}
	}
	return resp.Body(), nil
}

// call3 runs an APIv3 action whose response carries a values list
func call3[T any](ctx context.Context, c *Client, entity, action string, params any) (*Result[T], error) {
	body, err := c.post3(ctx, entity, action, params)
	if err != nil {
		return nil, err
	}
	var env v3Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &APIError{StatusCode: 200, Entity: entity, Action: action, Message: "invalid JSON response", Payload: body}
	}
	res := &Result[T]{
		IsError:      env.failed(),
		ErrorMessage: env.ErrorMessage,
		Count:        env.Count,
		ID:           env.ID,
		Raw:          body,
	}
	if res.IsError {
		return res, &APIError{
			StatusCode: 200,
			Entity:     entity,
			Action:     action,
			Message:    env.ErrorMessage,
			Code:       string(env.ErrorCode),
			Payload:    body,
		}
	}
	values, records, err := decodeValues[T](env.Values)
	if err != nil {
		return res, &APIError{StatusCode: 200, Entity: entity, Action: action, Message: "cannot decode values: " + err.Error(), Payload: body}
	}
	res.Values = values
	res.Records = records
	return res, nil
}

// callScalar runs getvalue/getcount style actions. Depending on the CRM
// version the scalar is either wrapped in {"result": ...} or returned bare.
func (c *Client) callScalar(ctx context.Context, entity, action string, params any) (string, error) {
	body, err := c.post3(ctx, entity, action, params)
	if err != nil {
		return "", err
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env v3Envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return "", &APIError{StatusCode: 200, Entity: entity, Action: action, Message: "invalid JSON response", Payload: body}
		}
		if env.failed() {
			return "", &APIError{StatusCode: 200, Entity: entity, Action: action, Message: env.ErrorMessage, Code: string(env.ErrorCode), Payload: body}
		}
		if env.Result == nil {
			return "", &APIError{StatusCode: 200, Entity: entity, Action: action, Message: "response has no result", Payload: body}
		}
		return decodeScalar(env.Result)
	}
	v, err := decodeScalar(trimmed)
	if err != nil {
		return "", &APIError{StatusCode: 200, Entity: entity, Action: action, Message: "invalid scalar response", Payload: body}
	}
	return v, nil
}

// call4 runs an APIv4 action
func call4[T any](ctx context.Context, c *Client, entity, action string, params any) (*Result[T], error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode params: %w", err)
	}
	path := fmt.Sprintf("%s/%s/%s", c.api4Path, entity, action)
	if c.debug {
		log.Printf("[crm] v4 %s.%s %s", entity, action, raw)
	}
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFormData(map[string]string{"params": string(raw)}).
		Post(path)
	if err != nil {
		return nil, &NetworkError{Operation: entity + "." + action, URL: c.baseURL + path, Err: err}
	}
	body := resp.Body()
	var env v4Envelope
	decodeErr := json.Unmarshal(body, &env)
	if !resp.IsSuccess() || env.ErrorMessage != "" {
		msg := env.ErrorMessage
		if msg == "" {
			msg = resp.Status()
		}
		return nil, &APIError{StatusCode: resp.StatusCode(), Entity: entity, Action: action, Message: msg, Code: string(env.ErrorCode), Payload: body}
	}
	if decodeErr != nil {
		return nil, &APIError{StatusCode: resp.StatusCode(), Entity: entity, Action: action, Message: "invalid JSON response", Payload: body}
	}
	values, records, err := decodeValues[T](env.Values)
	if err != nil {
		return nil, &APIError{StatusCode: resp.StatusCode(), Entity: entity, Action: action, Message: "cannot decode values: " + err.Error(), Payload: body}
	}
	count := env.Count
	if count == 0 {
		count = len(values)
	}
	return &Result[T]{Count: count, Values: values, Records: records, Raw: body}, nil
}

// Ping checks that the REST endpoint answers and the credentials are accepted
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.callScalar(ctx, "Domain", "getcount", nil)
	return err
}
