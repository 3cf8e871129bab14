// Package form drives the webform under test: fill, select, check, click and
// wait primitives over the current browser page. Field locators resolve the
// way named fields do in Drupal functional tests: DOM id, element name, or
// label text. Locators starting with '#', '.' or '[' are used as CSS selectors.
package form

import (
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/webform-civicrm/acceptance/internal/browser"
	herrors "github.com/webform-civicrm/acceptance/internal/errors"
	"github.com/webform-civicrm/acceptance/internal/pagestate"
)

// Driver performs input on the session's current page
type Driver struct {
	session *browser.Session
}

func NewDriver(session *browser.Session) *Driver {
	return &Driver{session: session}
}

func (d *Driver) Session() *browser.Session {
	return d.session
}

func (d *Driver) page() playwright.Page {
	return d.session.Page
}

func (d *Driver) timeout() time.Duration {
	return d.session.Config.Browser.Timeout
}

func (d *Driver) field(locator string) playwright.Locator {
	if isSelector(locator) {
		return d.page().Locator(locator).First()
	}
	byLabel := d.page().GetByLabel(locator, playwright.PageGetByLabelOptions{Exact: playwright.Bool(true)})
	return d.page().Locator(controlCSS(locator)).Or(byLabel).First()
}

func (d *Driver) attached(loc playwright.Locator, op string) error {
	err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(d.timeout().Milliseconds())),
	})
	return browser.AsTimeout(op, d.timeout(), err)
}

// revealControl opens collapsed <details> and inactive vertical tabs around a
// control so playwright's visibility checks pass
const revealControl = `el => {
	for (let d = el.closest('details'); d; d = d.parentElement ? d.parentElement.closest('details') : null) d.open = true;
	const pane = el.closest('.vertical-tabs__pane, .vertical-tabs-pane');
	if (pane && pane.id && getComputedStyle(pane).display === 'none') {
		const tab = document.querySelector('a[href="#' + pane.id + '"]');
		if (tab) tab.click();
	}
	return true;
}`

// ready waits for the control and makes it interactable
func (d *Driver) ready(loc playwright.Locator, op string) error {
	if err := d.attached(loc, op); err != nil {
		return err
	}
	_, _ = loc.Evaluate(revealControl, nil)
	return nil
}

// FillField types value into a text-like field, replacing its content
func (d *Driver) FillField(locator, value string) error {
	loc := d.field(locator)
	if err := d.ready(loc, "fill "+locator); err != nil {
		return err
	}
	if err := loc.Fill(value); err != nil {
		return fmt.Errorf("failed to fill %s: %w", locator, browser.AsTimeout("fill "+locator, d.timeout(), err))
	}
	return nil
}

// controlType returns "select", "input:radio", "input:text" and so on
func (d *Driver) controlType(loc playwright.Locator) (string, error) {
	v, err := loc.Evaluate(`el => el.tagName.toLowerCase() + (el.tagName === 'INPUT' ? ':' + el.type : '')`, nil)
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

// SelectOption picks an option by value or visible label. Radio groups are
// handled like selects.
func (d *Driver) SelectOption(locator, value string) error {
	loc := d.field(locator)
	if err := d.ready(loc, "select "+locator); err != nil {
		return err
	}
	typ, err := d.controlType(loc)
	if err != nil {
		return fmt.Errorf("failed to inspect %s: %w", locator, err)
	}
	if typ == "input:radio" {
		return d.selectRadio(loc, locator, value)
	}

	opts, err := d.options(loc)
	if err != nil {
		return fmt.Errorf("failed to read options of %s: %w", locator, err)
	}
	resolved, ok := resolveOption(opts, value)
	if !ok {
		return herrors.NewMismatch("select "+locator, "option", value, "", opts)
	}
	if _, err := loc.SelectOption(playwright.SelectOptionValues{Values: &[]string{resolved}}); err != nil {
		return fmt.Errorf("failed to select %q in %s: %w", value, locator, browser.AsTimeout("select "+locator, d.timeout(), err))
	}
	return nil
}

const radioByValueOrLabel = `(el, want) => {
	const radios = el.form ? el.form.querySelectorAll('input[type=radio]') : document.querySelectorAll('input[type=radio]');
	for (const r of radios) {
		if (r.name !== el.name) continue;
		const label = r.labels && r.labels.length ? r.labels[0].textContent.trim() : '';
		if (r.value === want || label === want) { r.click(); return true; }
	}
	return false;
}`

func (d *Driver) selectRadio(loc playwright.Locator, locator, value string) error {
	v, err := loc.Evaluate(radioByValueOrLabel, value)
	if err != nil {
		return fmt.Errorf("failed to select %q in %s: %w", value, locator, err)
	}
	if ok, _ := v.(bool); !ok {
		return herrors.NewMismatch("radios "+locator, "option", value, "", nil)
	}
	return nil
}

// ClearSelection deselects every option of a multi-select
func (d *Driver) ClearSelection(locator string) error {
	loc := d.field(locator)
	if err := d.ready(loc, "clear "+locator); err != nil {
		return err
	}
	if _, err := loc.SelectOption(playwright.SelectOptionValues{Values: &[]string{}}); err != nil {
		return fmt.Errorf("failed to clear %s: %w", locator, browser.AsTimeout("clear "+locator, d.timeout(), err))
	}
	return nil
}

// Check ticks a checkbox; already-checked boxes are left alone
func (d *Driver) Check(locator string) error {
	loc := d.field(locator)
	if err := d.ready(loc, "check "+locator); err != nil {
		return err
	}
	if err := loc.Check(); err != nil {
		return fmt.Errorf("failed to check %s: %w", locator, browser.AsTimeout("check "+locator, d.timeout(), err))
	}
	return nil
}

// Uncheck clears a checkbox
func (d *Driver) Uncheck(locator string) error {
	loc := d.field(locator)
	if err := d.ready(loc, "uncheck "+locator); err != nil {
		return err
	}
	if err := loc.Uncheck(); err != nil {
		return fmt.Errorf("failed to uncheck %s: %w", locator, browser.AsTimeout("uncheck "+locator, d.timeout(), err))
	}
	return nil
}

// TypeText focuses the element matching selector and types text key by key,
// for widgets that react to keystrokes rather than value changes
func (d *Driver) TypeText(selector, text string) error {
	loc := d.page().Locator(selector).First()
	if err := d.attached(loc, "type into "+selector); err != nil {
		return err
	}
	if err := loc.Click(); err != nil {
		return fmt.Errorf("failed to focus %s: %w", selector, browser.AsTimeout("focus "+selector, d.timeout(), err))
	}
	if err := loc.PressSequentially(text, playwright.LocatorPressSequentiallyOptions{
		Delay: playwright.Float(50),
	}); err != nil {
		return fmt.Errorf("failed to type into %s: %w", selector, err)
	}
	return nil
}

// Click clicks the first element matching a CSS selector
func (d *Driver) Click(selector string) error {
	if err := d.page().Locator(selector).First().Click(); err != nil {
		return fmt.Errorf("failed to click %s: %w", selector, browser.AsTimeout("click "+selector, d.timeout(), err))
	}
	return nil
}

// PressButton clicks a button found by id, name, value or accessible name and
// waits for the resulting page load
func (d *Driver) PressButton(label string) error {
	byRole := d.page().GetByRole(*playwright.AriaRoleButton, playwright.PageGetByRoleOptions{
		Name:  label,
		Exact: playwright.Bool(true),
	})
	btn := d.page().Locator(buttonCSS(label)).Or(byRole).First()
	if err := btn.Click(); err != nil {
		return fmt.Errorf("failed to press %q: %w", label, browser.AsTimeout("press "+label, d.timeout(), err))
	}
	if err := d.page().WaitForLoadState(playwright.PageWaitForLoadStateOptions{State: playwright.LoadStateLoad}); err != nil {
		return browser.AsTimeout("load after "+label, d.timeout(), err)
	}
	return d.WaitForAsyncUpdate()
}

// ClickLink follows a link found by id or link text
func (d *Driver) ClickLink(label string) error {
	byRole := d.page().GetByRole(*playwright.AriaRoleLink, playwright.PageGetByRoleOptions{
		Name:  label,
		Exact: playwright.Bool(true),
	})
	link := d.page().Locator("a[id=" + quoteAttr(label) + "]").Or(byRole).First()
	if err := link.Click(); err != nil {
		return fmt.Errorf("failed to click link %q: %w", label, browser.AsTimeout("click link "+label, d.timeout(), err))
	}
	return d.WaitForAsyncUpdate()
}

// WaitForAsyncUpdate waits for in-page AJAX to settle
func (d *Driver) WaitForAsyncUpdate() error {
	return d.session.WaitForAjax()
}

// WaitForField waits until a field is present in the DOM
func (d *Driver) WaitForField(locator string) error {
	return d.attached(d.field(locator), "wait for field "+locator)
}

// WaitForVisible waits until an element matching selector is visible
func (d *Driver) WaitForVisible(selector string) error {
	err := d.page().Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(d.timeout().Milliseconds())),
	})
	return browser.AsTimeout("wait for "+selector, d.timeout(), err)
}

func (d *Driver) options(loc playwright.Locator) ([]pagestate.Option, error) {
	v, err := loc.Evaluate(`el => el.outerHTML`, nil)
	if err != nil {
		return nil, err
	}
	markup, _ := v.(string)
	doc, err := pagestate.Parse(markup)
	if err != nil {
		return nil, err
	}
	return doc.SelectOptions("")
}

// Options returns value -> label for a select field
func (d *Driver) Options(locator string) (map[string]string, error) {
	loc := d.field(locator)
	if err := d.attached(loc, "options of "+locator); err != nil {
		return nil, err
	}
	opts, err := d.options(loc)
	if err != nil {
		return nil, fmt.Errorf("failed to read options of %s: %w", locator, err)
	}
	out := make(map[string]string, len(opts))
	for _, o := range opts {
		out[o.Value] = o.Label
	}
	return out, nil
}

const checkedRadioValue = `el => {
	if (el.type !== 'radio') return el.value;
	const checked = Array.from(document.querySelectorAll('input[type=radio]')).find(r => r.name === el.name && r.checked);
	return checked ? checked.value : '';
}`

// FieldValue returns the current value of a field. For radio groups this is
// the value of the checked radio.
func (d *Driver) FieldValue(locator string) (string, error) {
	loc := d.field(locator)
	if err := d.attached(loc, "read "+locator); err != nil {
		return "", err
	}
	v, err := loc.Evaluate(checkedRadioValue, nil)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", locator, err)
	}
	s, _ := v.(string)
	return s, nil
}

// IsChecked reports the checked state of a checkbox or radio
func (d *Driver) IsChecked(locator string) (bool, error) {
	loc := d.field(locator)
	if err := d.attached(loc, "read "+locator); err != nil {
		return false, err
	}
	return loc.IsChecked()
}

// Count returns how many elements match selector right now
func (d *Driver) Count(selector string) (int, error) {
	return d.page().Locator(selector).Count()
}

// Text returns the text content of the first element matching selector
func (d *Driver) Text(selector string) (string, error) {
	loc := d.page().Locator(selector)
	n, err := loc.Count()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", fmt.Errorf("element %s not found", selector)
	}
	text, err := loc.First().TextContent()
	if err != nil {
		return "", err
	}
	return pagestate.Normalize(text), nil
}

// Content returns the current page HTML
func (d *Driver) Content() (string, error) {
	return d.page().Content()
}

// Apply posts values in order, waiting for AJAX after each select since
// selects commonly rebuild dependent fields
func (d *Driver) Apply(values Values) error {
	for _, v := range values {
		var err error
		switch v.Kind {
		case InputText:
			err = d.FillField(v.Locator, v.Value)
		case InputSelect:
			err = d.SelectOption(v.Locator, v.Value)
			if err == nil {
				err = d.WaitForAsyncUpdate()
			}
		case InputCheck:
			err = d.Check(v.Locator)
		case InputUncheck:
			err = d.Uncheck(v.Locator)
		default:
			err = fmt.Errorf("unknown input kind %s", v.Kind)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
