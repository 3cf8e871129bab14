package webform

import "fmt"

// Texts the integration and the form builder render
const (
	DefaultCurrentUser = "Current User"
	CreateNewLabel     = "+ Create new +"

	DraftSavedMessage   = "Submission saved. You may return to this form later and it will restore the current values."
	DraftResumedMessage = "A partially-completed form was found. Please complete the remaining portions."

	SettingsSavedMessage = "Saved CiviCRM settings"

	ChecksumHelp = `To have this form auto-filled for anonymous users, enable the "Existing Contact" field for Contact 1 and send the following link from CiviMail`

	// CreateElementOption is the sub-type select value that adds a user-facing element
	CreateElementOption = "create_civicrm_webform_element"
)

// SubmittedMessage is the confirmation shown after a successful submission
func SubmittedMessage(title string) string {
	return fmt.Sprintf("New submission added to %s.", title)
}

// ElementUpdatedMessage is shown after saving an element in the builder
func ElementUpdatedMessage(label string) string {
	return label + " has been updated"
}

// RequiredMessage is the validation error for an empty required element
func RequiredMessage(label string) string {
	return label + " field is required"
}
