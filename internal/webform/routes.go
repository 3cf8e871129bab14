package webform

import (
	"fmt"
	"net/url"
)

// Routes builds the site paths of one webform
type Routes struct {
	WebformID string
}

// CiviCRMSettings is the CiviCRM tab of the webform
func (r Routes) CiviCRMSettings() string {
	return fmt.Sprintf("/admin/structure/webform/manage/%s/civicrm", r.WebformID)
}

// EditForm is the element builder
func (r Routes) EditForm() string {
	return fmt.Sprintf("/admin/structure/webform/manage/%s", r.WebformID)
}

// Canonical is the public form, optionally with query parameters such as cid1
func (r Routes) Canonical(query url.Values) string {
	p := "/webform/" + r.WebformID
	if len(query) > 0 {
		p += "?" + query.Encode()
	}
	return p
}

func (r Routes) SubmissionSettings() string {
	return fmt.Sprintf("/admin/structure/webform/manage/%s/settings/submissions", r.WebformID)
}

func (r Routes) Results() string {
	return fmt.Sprintf("/admin/structure/webform/manage/%s/results/submissions", r.WebformID)
}
