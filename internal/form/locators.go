package form

import (
	"fmt"
	"strings"

	"github.com/webform-civicrm/acceptance/internal/pagestate"
)

// FieldKey identifies one CiviCRM-mapped webform field. It renders to the
// element name (civicrm_1_contact_1_contact_first_name) and DOM id
// (edit-civicrm-1-contact-1-contact-first-name) the integration generates.
type FieldKey struct {
	Type     string // "contact" unless the field belongs to another set, e.g. "contribution"
	Instance int
	Slot     int
	Entity   string
	Field    string
}

// Contact returns the key of a field on contact n, first slot
func Contact(n int, entity, field string) FieldKey {
	return FieldKey{Type: "contact", Instance: n, Slot: 1, Entity: entity, Field: field}
}

// Contribution returns the key of a field of the first contribution
func Contribution(field string) FieldKey {
	return FieldKey{Type: "contribution", Instance: 1, Slot: 1, Entity: "contribution", Field: field}
}

func (k FieldKey) Name() string {
	typ := k.Type
	if typ == "" {
		typ = "contact"
	}
	return fmt.Sprintf("civicrm_%d_%s_%d_%s_%s", k.Instance, typ, k.Slot, k.Entity, k.Field)
}

func (k FieldKey) ID() string {
	return IDFromName(k.Name())
}

func (k FieldKey) String() string {
	return k.Name()
}

// IDFromName converts a form element name to the id Drupal renders for it
func IDFromName(name string) string {
	name = strings.TrimSuffix(name, "[]")
	r := strings.NewReplacer("_", "-", "[", "-", "]", "")
	return "edit-" + r.Replace(name)
}

// isSelector reports whether locator is already a CSS/engine selector rather
// than a field id, name or label
func isSelector(locator string) bool {
	if locator == "" {
		return false
	}
	switch locator[0] {
	case '#', '.', '[':
		return true
	}
	return strings.HasPrefix(locator, "css=") || strings.HasPrefix(locator, "xpath=")
}

func quoteAttr(v string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v) + `"`
}

// controlCSS matches form controls by id or name
func controlCSS(locator string) string {
	q := quoteAttr(locator)
	return fmt.Sprintf(`:is(input,select,textarea)[id=%s], :is(input,select,textarea)[name=%s]`, q, q)
}

// buttonCSS matches buttons by id, name or submit value
func buttonCSS(label string) string {
	q := quoteAttr(label)
	return fmt.Sprintf(`:is(button,input[type="submit"],input[type="button"])[id=%s], `+
		`:is(button,input[type="submit"],input[type="button"])[name=%s], `+
		`input[type="submit"][value=%s], input[type="button"][value=%s]`, q, q, q, q)
}

// resolveOption maps a requested option (value or visible label) to the
// option value to post. Values win over labels; labels compare case-insensitively.
func resolveOption(opts []pagestate.Option, want string) (string, bool) {
	for _, o := range opts {
		if o.Value == want {
			return o.Value, true
		}
	}
	for _, o := range opts {
		if o.Label == want {
			return o.Value, true
		}
	}
	target := pagestate.Fold(want)
	for _, o := range opts {
		if pagestate.Fold(o.Label) == target {
			return o.Value, true
		}
	}
	return "", false
}
