// Package errors defines the failure taxonomy of the acceptance harness.
//
// Every scenario failure is one of:
//   - FixtureError: a precondition could not be created in the record store
//   - TimeoutError: an element or condition did not appear within its bound
//   - MismatchError: an expected value differs from the actual one
//   - ConfigError: the harness itself is not configured to run
//
// Validation messages rendered by the form under test are not harness errors;
// scenarios that expect them assert on page text instead.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Kind classifies a harness failure
type Kind string

const (
	KindFixture  Kind = "fixture"
	KindTimeout  Kind = "timeout"
	KindMismatch Kind = "mismatch"
	KindConfig   Kind = "config"
	KindUnknown  Kind = "unknown"
)

// FixtureError reports a record-store create call that failed during setup
type FixtureError struct {
	Op      string `json:"op" yaml:"op"`
	Payload string `json:"payload,omitempty" yaml:"payload,omitempty"`
	Err     error  `json:"-" yaml:"-"`
}

func (e *FixtureError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "fixture setup failed: %s", e.Op)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Payload != "" {
		fmt.Fprintf(&b, "\npayload: %s", e.Payload)
	}
	return b.String()
}

func (e *FixtureError) Unwrap() error {
	return e.Err
}

// NewFixtureError wraps err with the operation that failed and the raw response
func NewFixtureError(op string, payload []byte, err error) *FixtureError {
	return &FixtureError{Op: op, Payload: string(payload), Err: err}
}

// TimeoutError represents a bounded wait that expired
type TimeoutError struct {
	Op      string        `json:"op" yaml:"op"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
	Err     error         `json:"-" yaml:"-"`
}

func (e *TimeoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("timeout during %s after %s: %v", e.Op, e.Timeout, e.Err)
	}
	return fmt.Sprintf("timeout during %s after %s", e.Op, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// MismatchError carries the expected and actual values together with a dump
// of the whole record or page the value was read from.
type MismatchError struct {
	Subject  string `json:"subject" yaml:"subject"`
	Field    string `json:"field,omitempty" yaml:"field,omitempty"`
	Expected string `json:"expected" yaml:"expected"`
	Actual   string `json:"actual" yaml:"actual"`
	Dump     string `json:"dump,omitempty" yaml:"dump,omitempty"`
}

func (e *MismatchError) Error() string {
	var b strings.Builder
	if e.Field != "" {
		fmt.Fprintf(&b, "%s: field %q expected %q, got %q", e.Subject, e.Field, e.Expected, e.Actual)
	} else {
		fmt.Fprintf(&b, "%s: expected %q, got %q", e.Subject, e.Expected, e.Actual)
	}
	if e.Dump != "" {
		b.WriteString("\n--- actual state ---\n")
		b.WriteString(e.Dump)
	}
	return b.String()
}

// NewMismatch builds a MismatchError whose dump is the YAML rendering of state
func NewMismatch(subject, field, expected, actual string, state any) *MismatchError {
	return &MismatchError{
		Subject:  subject,
		Field:    field,
		Expected: expected,
		Actual:   actual,
		Dump:     DumpYAML(state),
	}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string `json:"field" yaml:"field"`
	Message string `json:"message" yaml:"message"`
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error for %s: %s", e.Field, e.Message)
}

// DumpYAML renders state for diagnostics. Strings are passed through as-is.
func DumpYAML(state any) string {
	switch v := state.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	}
	out, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Sprintf("%+v", state)
	}
	return string(out)
}

// IsTimeout checks if an error is a harness timeout
func IsTimeout(err error) bool {
	var te *TimeoutError
	return stderrors.As(err, &te)
}

// IsFixture checks if an error is a fixture setup failure
func IsFixture(err error) bool {
	var fe *FixtureError
	return stderrors.As(err, &fe)
}

// IsMismatch checks if an error is an assertion mismatch
func IsMismatch(err error) bool {
	var me *MismatchError
	return stderrors.As(err, &me)
}

// KindOf classifies err for reporting
func KindOf(err error) Kind {
	var ce *ConfigError
	switch {
	case err == nil:
		return ""
	case IsFixture(err):
		return KindFixture
	case IsTimeout(err):
		return KindTimeout
	case IsMismatch(err):
		return KindMismatch
	case stderrors.As(err, &ce):
		return KindConfig
	default:
		return KindUnknown
	}
}
