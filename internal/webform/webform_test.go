package webform

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webform-civicrm/acceptance/internal/crm"
	"github.com/webform-civicrm/acceptance/internal/form"
	"github.com/webform-civicrm/acceptance/internal/pagestate"
)

func TestRoutes(t *testing.T) {
	r := Routes{WebformID: "civicrm_webform_test"}

	assert.Equal(t, "/admin/structure/webform/manage/civicrm_webform_test/civicrm", r.CiviCRMSettings())
	assert.Equal(t, "/admin/structure/webform/manage/civicrm_webform_test", r.EditForm())
	assert.Equal(t, "/webform/civicrm_webform_test", r.Canonical(nil))
	assert.Equal(t, "/webform/civicrm_webform_test?cid1=42", r.Canonical(url.Values{"cid1": {"42"}}))
	assert.Equal(t, "/admin/structure/webform/manage/civicrm_webform_test/settings/submissions", r.SubmissionSettings())
	assert.Equal(t, "/admin/structure/webform/manage/civicrm_webform_test/results/submissions", r.Results())
}

func TestSelectors(t *testing.T) {
	assert.Equal(t, "edit-webform-ui-elements-civicrm-1-contact-1-contact-existing-operations", ExistingContactSelector(1))
	assert.Equal(t,
		"edit-webform-ui-elements-civicrm-1-contact-1-contact-preferred-communication-method-operations",
		OperationsSelector(form.Contact(1, "contact", "preferred_communication_method")))
	assert.Equal(t, "token-input-edit-civicrm-1-contact-1-contact-existing", ExistingContactInput(1))
	assert.Equal(t, "#webform-submission-1-sticky", StickySelector(1))
	assert.Equal(t, `[id="edit-civicrm-2-contact-1-fieldset-fieldset"]`, ContactFieldset(2))
}

func TestLatestSubmission(t *testing.T) {
	doc, err := pagestate.Parse(`<table>
<tr><td><a id="webform-submission-7-sticky"></a></td></tr>
<tr><td><a id="webform-submission-31-sticky"></a></td></tr>
<tr><td><a id="webform-submission-4-sticky"></a></td></tr></table>`)
	require.NoError(t, err)
	sid, err := latestSubmission(doc)
	require.NoError(t, err)
	assert.Equal(t, 31, sid)

	empty, err := pagestate.Parse(`<p>No submissions yet.</p>`)
	require.NoError(t, err)
	_, err = latestSubmission(empty)
	assert.Error(t, err)
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "New submission added to CiviCRM Webform Test.", SubmittedMessage("CiviCRM Webform Test"))
	assert.Equal(t, "Existing Contact has been updated", ElementUpdatedMessage("Existing Contact"))
	assert.Equal(t, "Existing Contact field is required", RequiredMessage("Existing Contact"))
}

func TestWidgetLabels(t *testing.T) {
	assert.Equal(t, "Static", WidgetStatic.Label())
	assert.Equal(t, "Autocomplete", WidgetAutocomplete.Label())
	assert.Equal(t, "Select List", WidgetSelectList.String())
	assert.Equal(t, "Widget(7)", Widget(7).Label())
}

func TestWidgetStateTransitions(t *testing.T) {
	s := InitialWidgetState()
	assert.Equal(t, WidgetStatic, s.Widget)
	assert.Equal(t, DefaultCurrentUser, s.Default)
	assert.False(t, s.RendersTokenInput())
	assert.False(t, s.Searchable(nil))

	group := crm.ID("3")
	s, err := s.Apply(ElementConfig{Widget: WidgetAutocomplete, GroupFilter: group})
	require.NoError(t, err)
	assert.True(t, s.Filtered())
	assert.True(t, s.RendersTokenInput())
	assert.True(t, s.Searchable([]crm.ID{"1", "3"}))
	assert.False(t, s.Searchable(nil), "contact outside the group")
	assert.Equal(t, DefaultCurrentUser, s.Default, "default survives edits that do not set it")

	s, err = s.Apply(ElementConfig{Widget: WidgetSelectList})
	require.NoError(t, err)
	assert.False(t, s.Filtered())
	assert.True(t, s.RendersSelect())
	assert.True(t, s.Searchable(nil))

	s, err = s.Apply(ElementConfig{Widget: WidgetStatic, Default: DefaultCurrentUser, Required: true})
	require.NoError(t, err)
	assert.True(t, s.Required)

	_, err = s.Apply(ElementConfig{Widget: WidgetStatic, GroupFilter: group})
	assert.Error(t, err)
	_, err = s.Apply(ElementConfig{Widget: WidgetStatic, SearchPrompt: "- Select Contact -"})
	assert.Error(t, err)
	_, err = s.Apply(ElementConfig{Widget: Widget(9)})
	assert.Error(t, err)
}

func TestElementsStateOnlyMovesOnSave(t *testing.T) {
	e := &Elements{}
	sel := ExistingContactSelector(1)
	assert.Equal(t, InitialWidgetState(), e.State(sel))

	err := e.EditContactElement(ElementConfig{Selector: sel, Widget: WidgetStatic, GroupFilter: "3"})
	require.Error(t, err)
	assert.Equal(t, InitialWidgetState(), e.State(sel))
}
