package crm

import (
	"errors"
	"fmt"
)

// APIError is a record-store response reporting is_error, or a non-2xx status
type APIError struct {
	StatusCode int    `json:"status_code"`
	Entity     string `json:"entity"`
	Action     string `json:"action"`
	Message    string `json:"message"`
	Code       string `json:"code,omitempty"`
	Payload    []byte `json:"-"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("CRM API error (%d) %s.%s: %s [%s]", e.StatusCode, e.Entity, e.Action, e.Message, e.Code)
	}
	return fmt.Sprintf("CRM API error (%d) %s.%s: %s", e.StatusCode, e.Entity, e.Action, e.Message)
}

// NetworkError represents a transport-level failure
type NetworkError struct {
	Operation string `json:"operation"`
	URL       string `json:"url"`
	Err       error  `json:"error"`
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s to %s: %v", e.Operation, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ErrNotFound is returned by single-record reads that match nothing
var ErrNotFound = errors.New("crm: record not found")

// IsAPIError checks if an error is an API error
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// PayloadOf returns the raw response body carried by err, if any
func PayloadOf(err error) []byte {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Payload
	}
	return nil
}
