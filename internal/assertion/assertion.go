// Package assertion checks the rendered page and the persisted CRM records.
// Every failure is an errors.MismatchError carrying expected, actual and a
// dump of the full state the value was read from.
package assertion

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/webform-civicrm/acceptance/internal/crm"
	herrors "github.com/webform-civicrm/acceptance/internal/errors"
	"github.com/webform-civicrm/acceptance/internal/pagestate"
)

// Page is the read side of the form driver
type Page interface {
	Content() (string, error)
	FieldValue(locator string) (string, error)
	IsChecked(locator string) (bool, error)
	Count(selector string) (int, error)
	Text(selector string) (string, error)
}

// Asserter checks page and record state
type Asserter struct {
	page   Page
	reader crm.Reader
}

func New(page Page, reader crm.Reader) *Asserter {
	return &Asserter{page: page, reader: reader}
}

func (a *Asserter) document() (*pagestate.Document, error) {
	content, err := a.page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	return pagestate.Parse(content)
}

type pageDump struct {
	Text     string   `yaml:"text"`
	Errors   []string `yaml:"errors,omitempty"`
	Warnings []string `yaml:"warnings,omitempty"`
	Status   []string `yaml:"status,omitempty"`
}

func dumpOf(doc *pagestate.Document) pageDump {
	return pageDump{
		Text:     doc.Text(),
		Errors:   doc.Messages(pagestate.MessageError),
		Warnings: doc.Messages(pagestate.MessageWarning),
		Status:   doc.Messages(pagestate.MessageStatus),
	}
}

// FieldValue asserts the current value of a form field
func (a *Asserter) FieldValue(locator, expected string) error {
	actual, err := a.page.FieldValue(locator)
	if err != nil {
		return err
	}
	if actual != expected {
		return herrors.NewMismatch("field "+locator, "value", expected, actual, a.safeDump())
	}
	return nil
}

// FieldValues asserts several fields at once, reporting every difference
func (a *Asserter) FieldValues(expected map[string]string) error {
	var diffs []string
	for _, locator := range sortedKeys(expected) {
		v, err := a.page.FieldValue(locator)
		if err != nil {
			return err
		}
		if v != expected[locator] {
			diffs = append(diffs, fmt.Sprintf("%s=%q", locator, v))
		}
	}
	if len(diffs) > 0 {
		return herrors.NewMismatch("form fields", "values", fmt.Sprint(expected), strings.Join(diffs, ", "), a.safeDump())
	}
	return nil
}

// PageContains asserts text appears on the page, ignoring case and whitespace
func (a *Asserter) PageContains(text string) error {
	doc, err := a.document()
	if err != nil {
		return err
	}
	if !pagestate.ContainsText(doc.Text(), text) {
		return herrors.NewMismatch("page", "text", text, "", dumpOf(doc))
	}
	return nil
}

// PageNotContains asserts text is absent from the page
func (a *Asserter) PageNotContains(text string) error {
	doc, err := a.document()
	if err != nil {
		return err
	}
	if pagestate.ContainsText(doc.Text(), text) {
		return herrors.NewMismatch("page", "absent text", "", text, dumpOf(doc))
	}
	return nil
}

// NoErrorMessages asserts the page shows no error status messages
func (a *Asserter) NoErrorMessages() error {
	doc, err := a.document()
	if err != nil {
		return err
	}
	if msgs := doc.Messages(pagestate.MessageError); len(msgs) > 0 {
		return herrors.NewMismatch("page", "error messages", "", strings.Join(msgs, " | "), dumpOf(doc))
	}
	return nil
}

// ElementExists asserts at least one element matches selector
func (a *Asserter) ElementExists(selector string) error {
	n, err := a.page.Count(selector)
	if err != nil {
		return err
	}
	if n == 0 {
		return herrors.NewMismatch("element "+selector, "count", ">=1", "0", a.safeDump())
	}
	return nil
}

// ElementNotExists asserts nothing matches selector
func (a *Asserter) ElementNotExists(selector string) error {
	n, err := a.page.Count(selector)
	if err != nil {
		return err
	}
	if n != 0 {
		return herrors.NewMismatch("element "+selector, "count", "0", strconv.Itoa(n), a.safeDump())
	}
	return nil
}

// ElementTextContains asserts the first element matching selector contains text
func (a *Asserter) ElementTextContains(selector, text string) error {
	actual, err := a.page.Text(selector)
	if err != nil {
		return herrors.NewMismatch("element "+selector, "text", text, "<missing>", a.safeDump())
	}
	if !pagestate.ContainsText(actual, text) {
		return herrors.NewMismatch("element "+selector, "text", text, actual, a.safeDump())
	}
	return nil
}

// CheckboxChecked asserts the checked state of a checkbox
func (a *Asserter) CheckboxChecked(locator string, want bool) error {
	got, err := a.page.IsChecked(locator)
	if err != nil {
		return err
	}
	if got != want {
		return herrors.NewMismatch("checkbox "+locator, "checked", strconv.FormatBool(want), strconv.FormatBool(got), a.safeDump())
	}
	return nil
}

func (a *Asserter) safeDump() any {
	doc, err := a.document()
	if err != nil {
		return nil
	}
	return dumpOf(doc)
}

// ContactState asserts exactly one contact matches query and that each
// expected field has the given value. The matching contact is returned.
func (a *Asserter) ContactState(ctx context.Context, query *crm.ContactGetRequest, expected map[string]string) (*crm.Contact, error) {
	res, err := a.reader.GetContacts(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	if res.Count != 1 || len(res.Values) != 1 {
		return nil, herrors.NewMismatch("contact query", "count", "1", strconv.Itoa(res.Count), res.Records)
	}
	var record map[string]any
	if len(res.Records) > 0 {
		record = res.Records[0]
	}
	if err := RecordFields("contact "+res.Values[0].Key().String(), record, expected); err != nil {
		return nil, err
	}
	return &res.Values[0], nil
}

// CountContacts returns the number of contacts matching query
func (a *Asserter) CountContacts(ctx context.Context, query *crm.ContactGetRequest) (int, error) {
	return a.reader.CountContacts(ctx, query)
}

// ContactCountUnchanged asserts no contact matching query was created since
// before was taken
func (a *Asserter) ContactCountUnchanged(ctx context.Context, query *crm.ContactGetRequest, before int) error {
	after, err := a.reader.CountContacts(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to count contacts: %w", err)
	}
	if after != before {
		return herrors.NewMismatch("contact count", "count", strconv.Itoa(before), strconv.Itoa(after), query)
	}
	return nil
}

// RecordFields compares selected fields of a record. Values are compared in
// their string form; the whole record is dumped on mismatch.
func RecordFields[V any](subject string, record map[string]V, expected map[string]string) error {
	for _, field := range sortedKeys(expected) {
		var actual string
		if v, ok := record[field]; ok {
			actual = Format(v)
		}
		if actual != expected[field] {
			return herrors.NewMismatch(subject, field, expected[field], actual, record)
		}
	}
	return nil
}

// Format renders a decoded record value for comparison. Lists join with ","
// and whole floats drop their fraction.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = Format(e)
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(x, ",")
	case crm.StringList:
		return strings.Join(x, ",")
	default:
		return fmt.Sprint(x)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
