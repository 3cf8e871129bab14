package webform

import (
	"fmt"
	"strings"

	"github.com/webform-civicrm/acceptance/internal/form"
)

// OperationsSelector is the data-drupal-selector of an element's operations
// cell in the builder table
func OperationsSelector(key form.FieldKey) string {
	return "edit-webform-ui-elements-" + strings.ReplaceAll(key.Name(), "_", "-") + "-operations"
}

// ExistingContactSelector is the operations cell of contact n's Existing Contact element
func ExistingContactSelector(n int) string {
	return OperationsSelector(form.Contact(n, "contact", "existing"))
}

// Elements drives the element builder and its edit dialog
type Elements struct {
	form   *form.Driver
	states map[string]WidgetState
}

// State returns the tracked widget state of the element behind selector
func (e *Elements) State(selector string) WidgetState {
	if s, ok := e.states[selector]; ok {
		return s
	}
	return InitialWidgetState()
}

func (e *Elements) openEditor(selector string) error {
	link := fmt.Sprintf(`[data-drupal-selector="%s"] a.webform-ajax-link`, selector)
	if err := e.form.WaitForVisible(link); err != nil {
		return err
	}
	if err := e.form.Click(link); err != nil {
		return err
	}
	if err := e.form.WaitForAsyncUpdate(); err != nil {
		return err
	}
	if err := e.form.WaitForVisible(`[data-drupal-selector="edit-form"]`); err != nil {
		return err
	}
	return e.form.Click(`[data-drupal-selector="edit-form"]`)
}

func (e *Elements) saveDialog() error {
	if err := e.form.Click(`.ui-dialog-buttonpane button:has-text("Save"), .ui-dialog [data-drupal-selector="edit-actions-submit"], .ui-dialog [data-drupal-selector="edit-submit"]`); err != nil {
		return err
	}
	return e.form.WaitForAsyncUpdate()
}

// EditContactElement opens the element editor and applies cfg. The tracked
// widget state only moves once the dialog saved.
func (e *Elements) EditContactElement(cfg ElementConfig) error {
	next, err := e.State(cfg.Selector).Apply(cfg)
	if err != nil {
		return fmt.Errorf("invalid element config for %s: %w", cfg.Selector, err)
	}
	if err := e.openEditor(cfg.Selector); err != nil {
		return err
	}
	if err := e.form.WaitForField("properties[widget]"); err != nil {
		return err
	}
	if err := e.form.SelectOption("properties[widget]", cfg.Widget.Label()); err != nil {
		return err
	}
	if err := e.form.WaitForAsyncUpdate(); err != nil {
		return err
	}
	if cfg.SearchPrompt != "" {
		if err := e.form.WaitForVisible(`[data-drupal-selector="edit-properties-search-prompt"]`); err != nil {
			return err
		}
		if err := e.form.FillField("properties[search_prompt]", cfg.SearchPrompt); err != nil {
			return err
		}
	}
	if cfg.Default != "" {
		if err := e.form.SelectOption("properties[default]", cfg.Default); err != nil {
			return err
		}
		if err := e.form.WaitForAsyncUpdate(); err != nil {
			return err
		}
	}
	// the group list only renders for searchable widgets and keeps earlier
	// selections, so it is cleared before the new filter goes in
	if cfg.Widget != WidgetStatic {
		if err := e.form.ClearSelection("properties[group][]"); err != nil {
			return err
		}
		if !cfg.GroupFilter.IsZero() {
			if err := e.form.SelectOption("properties[group][]", cfg.GroupFilter.String()); err != nil {
				return err
			}
		}
	}
	required := e.form.Uncheck
	if cfg.Required {
		required = e.form.Check
	}
	if err := required("properties[required]"); err != nil {
		return err
	}
	if err := e.saveDialog(); err != nil {
		return err
	}
	if e.states == nil {
		e.states = map[string]WidgetState{}
	}
	e.states[cfg.Selector] = next
	return nil
}

// EditOptionElement switches an options element between static options and
// options loaded live from the CRM
func (e *Elements) EditOptionElement(selector string, static bool) error {
	if err := e.openEditor(selector); err != nil {
		return err
	}
	value := "1"
	if static {
		value = "0"
	}
	if err := e.form.SelectOption("properties[civicrm_live_options]", value); err != nil {
		return err
	}
	return e.saveDialog()
}

// OpenAddElement opens the "Add element" dialog
func (e *Elements) OpenAddElement() error {
	if err := e.form.Click("#webform-ui-add-element"); err != nil {
		return err
	}
	return e.form.WaitForAsyncUpdate()
}

// CloseDialog closes the open builder dialog
func (e *Elements) CloseDialog() error {
	if err := e.form.Click(`.ui-dialog-titlebar-close, .ui-dialog button:has-text("Close")`); err != nil {
		return err
	}
	return e.form.WaitForAsyncUpdate()
}

// CiviCRMElementSelectors are the add-element entries CiviCRM elements must not appear as
var CiviCRMElementSelectors = []string{
	`[data-drupal-selector="edit-elements-civicrm-contact"]`,
	`[data-drupal-selector="edit-elements-civicrm-options"]`,
	`[data-drupal-selector="edit-elements-civicrm-select"]`,
}
