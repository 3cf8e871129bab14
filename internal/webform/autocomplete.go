package webform

import (
	"fmt"
	"strings"

	"github.com/webform-civicrm/acceptance/internal/form"
)

// ExistingContactInput is the token input id of contact n's Existing Contact autocomplete
func ExistingContactInput(n int) string {
	return "token-input-" + form.Contact(n, "contact", "existing").ID()
}

// ContactFieldset is the fieldset wrapping contact n's fields
func ContactFieldset(n int) string {
	return fmt.Sprintf(`[id="edit-civicrm-%d-contact-1-fieldset-fieldset"]`, n)
}

const (
	tokenDropdownItem = `[class*="token-input-dropdown"] li`
	tokenDelete       = ".token-input-delete-token"
	tokenSelected     = ".token-input-token p"
	TokenList         = ".token-input-list"
)

// Autocomplete drives the token-input contact search
type Autocomplete struct {
	form *form.Driver
}

// Fill types text into the token input and picks the first suggestion. With
// no match the only suggestion is the create-new entry, which copies the
// typed text into the name fields.
func (a *Autocomplete) Fill(inputID, text string) error {
	if err := a.form.TypeText("#"+inputID, text); err != nil {
		return err
	}
	if err := a.form.WaitForVisible(tokenDropdownItem); err != nil {
		return err
	}
	if err := a.form.WaitForAsyncUpdate(); err != nil {
		return err
	}
	if err := a.form.Click(tokenDropdownItem); err != nil {
		return err
	}
	return a.form.WaitForAsyncUpdate()
}

// ClearToken removes the selected contact
func (a *Autocomplete) ClearToken() error {
	if err := a.form.Click(tokenDelete); err != nil {
		return err
	}
	return a.form.WaitForAsyncUpdate()
}

// TokenText is the display name on the selected token
func (a *Autocomplete) TokenText() (string, error) {
	text, err := a.form.Text(tokenSelected)
	return strings.TrimSpace(text), err
}
