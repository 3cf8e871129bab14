package form

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/webform-civicrm/acceptance/internal/pagestate"
)

func TestFieldKey(t *testing.T) {
	tests := []struct {
		key  FieldKey
		name string
		id   string
	}{
		{Contact(1, "contact", "first_name"), "civicrm_1_contact_1_contact_first_name", "edit-civicrm-1-contact-1-contact-first-name"},
		{Contact(2, "email", "email"), "civicrm_2_contact_1_email_email", "edit-civicrm-2-contact-1-email-email"},
		{Contact(1, "contact", "existing"), "civicrm_1_contact_1_contact_existing", "edit-civicrm-1-contact-1-contact-existing"},
		{Contribution("total_amount"), "civicrm_1_contribution_1_contribution_total_amount", "edit-civicrm-1-contribution-1-contribution-total-amount"},
		{FieldKey{Instance: 1, Slot: 2, Entity: "phone", Field: "phone"}, "civicrm_1_contact_2_phone_phone", "edit-civicrm-1-contact-2-phone-phone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.key.Name())
			assert.Equal(t, tt.id, tt.key.ID())
			assert.Equal(t, tt.name, tt.key.String())
		})
	}
}

func TestIDFromName(t *testing.T) {
	assert.Equal(t, "edit-civicrm-1-contact-1-contact-contact-sub-type", IDFromName("civicrm_1_contact_1_contact_contact_sub_type[]"))
	assert.Equal(t, "edit-properties-widget", IDFromName("properties[widget]"))
}

func TestIsSelector(t *testing.T) {
	assert.True(t, isSelector("#wf-crm-billing-total"))
	assert.True(t, isSelector(".token-input-delete-token"))
	assert.True(t, isSelector(`[data-drupal-selector="edit-submit"]`))
	assert.True(t, isSelector("css=div"))
	assert.False(t, isSelector("civicrm_1_contact_1_contact_first_name"))
	assert.False(t, isSelector("First Name"))
	assert.False(t, isSelector(""))
}

func TestCSSBuilders(t *testing.T) {
	assert.Equal(t,
		`:is(input,select,textarea)[id="properties[widget]"], :is(input,select,textarea)[name="properties[widget]"]`,
		controlCSS("properties[widget]"))
	assert.Contains(t, buttonCSS("Save Draft"), `input[type="submit"][value="Save Draft"]`)
	assert.Equal(t, `"say \"hi\""`, quoteAttr(`say "hi"`))
}

func TestResolveOption(t *testing.T) {
	opts := []pagestate.Option{
		{Value: "", Label: "- None -"},
		{Value: "autocomplete", Label: "Autocomplete"},
		{Value: "hidden", Label: "Static"},
		{Value: "1", Label: "Formal"},
	}

	v, ok := resolveOption(opts, "autocomplete")
	assert.True(t, ok)
	assert.Equal(t, "autocomplete", v)

	v, ok = resolveOption(opts, "Static")
	assert.True(t, ok)
	assert.Equal(t, "hidden", v)

	v, ok = resolveOption(opts, "  formal ")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	_, ok = resolveOption(opts, "Select List")
	assert.False(t, ok)
}

func TestValues(t *testing.T) {
	vs := Values{
		Text("civicrm_1_contact_1_contact_first_name", "Frederick"),
		Select("civicrm_1_contact_1_contact_communication_style_id", "2"),
		Checked("Contribution Amount"),
	}
	assert.Equal(t, map[string]string{
		"civicrm_1_contact_1_contact_first_name":             "Frederick",
		"civicrm_1_contact_1_contact_communication_style_id": "2",
	}, vs.Expected())
	assert.Equal(t, "check", InputCheck.String())
}
