package webform

import (
	"fmt"

	"github.com/webform-civicrm/acceptance/internal/crm"
)

// Widget is how the Existing Contact element renders on the public form
type Widget int

const (
	WidgetStatic Widget = iota
	WidgetAutocomplete
	WidgetSelectList
)

// Label is the option text in the element editor
func (w Widget) Label() string {
	switch w {
	case WidgetStatic:
		return "Static"
	case WidgetAutocomplete:
		return "Autocomplete"
	case WidgetSelectList:
		return "Select List"
	}
	return fmt.Sprintf("Widget(%d)", int(w))
}

func (w Widget) String() string {
	return w.Label()
}

// ElementConfig is one edit of a contact element
type ElementConfig struct {
	// Selector is the data-drupal-selector of the element's operations cell
	Selector     string
	Widget       Widget
	GroupFilter  crm.ID
	Default      string
	Required     bool
	SearchPrompt string
}

// WidgetState tracks the configured widget of a contact element. It only
// changes through Apply, which mirrors a successful element edit.
type WidgetState struct {
	Widget      Widget
	GroupFilter crm.ID
	Default     string
	Required    bool
}

// InitialWidgetState is the element as the integration first creates it
func InitialWidgetState() WidgetState {
	return WidgetState{Widget: WidgetStatic, Default: DefaultCurrentUser}
}

func (s WidgetState) Filtered() bool {
	return !s.GroupFilter.IsZero()
}

// Apply validates cfg against the current state and returns the next state
func (s WidgetState) Apply(cfg ElementConfig) (WidgetState, error) {
	switch cfg.Widget {
	case WidgetStatic, WidgetAutocomplete, WidgetSelectList:
	default:
		return s, fmt.Errorf("unknown widget %d", int(cfg.Widget))
	}
	if cfg.Widget == WidgetStatic && !cfg.GroupFilter.IsZero() {
		return s, fmt.Errorf("a static widget has no contact list to filter")
	}
	if cfg.SearchPrompt != "" && cfg.Widget == WidgetStatic {
		return s, fmt.Errorf("a static widget has no search prompt")
	}
	next := WidgetState{
		Widget:      cfg.Widget,
		GroupFilter: cfg.GroupFilter,
		Default:     s.Default,
		Required:    cfg.Required,
	}
	if cfg.Default != "" {
		next.Default = cfg.Default
	}
	return next, nil
}

// RendersTokenInput reports whether the public form shows the autocomplete token list
func (s WidgetState) RendersTokenInput() bool {
	return s.Widget == WidgetAutocomplete
}

// RendersSelect reports whether the public form shows a select of contacts
func (s WidgetState) RendersSelect() bool {
	return s.Widget == WidgetSelectList
}

// Searchable reports whether a contact is offered by the widget given its group memberships
func (s WidgetState) Searchable(groups []crm.ID) bool {
	if s.Widget == WidgetStatic {
		return false
	}
	if !s.Filtered() {
		return true
	}
	for _, g := range groups {
		if g == s.GroupFilter {
			return true
		}
	}
	return false
}
