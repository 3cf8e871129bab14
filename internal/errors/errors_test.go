package errors

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"fixture", NewFixtureError("Contact.create", []byte(`{"is_error":1}`), nil), KindFixture},
		{"wrapped timeout", fmt.Errorf("step 3: %w", &TimeoutError{Op: "wait", Timeout: time.Second}), KindTimeout},
		{"mismatch", NewMismatch("contact", "first_name", "Jann", "Fred1", nil), KindMismatch},
		{"config", &ConfigError{Field: "base_url", Message: "empty"}, KindConfig},
		{"other", fmt.Errorf("boom"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestFixtureErrorCarriesPayload(t *testing.T) {
	cause := fmt.Errorf("DB Error: already exists")
	err := NewFixtureError("Group.create", []byte(`{"is_error":1,"error_message":"DB Error: already exists"}`), cause)

	assert.Contains(t, err.Error(), "Group.create")
	assert.Contains(t, err.Error(), `"error_message":"DB Error: already exists"`)
	assert.ErrorIs(t, err, cause)
}

func TestMismatchDumpsWholeRecord(t *testing.T) {
	record := map[string]any{
		"id":         "7",
		"first_name": "Fred1",
		"last_name":  "Pabst1",
	}
	err := NewMismatch("contact 7", "first_name", "Jann", "Fred1", record)

	msg := err.Error()
	assert.Contains(t, msg, `field "first_name" expected "Jann", got "Fred1"`)
	// the unrelated fields must be part of the diagnostic as well
	assert.Contains(t, msg, "last_name: Pabst1")
	assert.Contains(t, msg, "id: \"7\"")
}

func TestDumpYAML(t *testing.T) {
	assert.Equal(t, "", DumpYAML(nil))
	assert.Equal(t, "<html>", DumpYAML("<html>"))
	assert.Equal(t, "raw", DumpYAML([]byte("raw")))

	out := DumpYAML(map[string]int{"count": 1})
	require.Equal(t, "count: 1\n", out)
}
