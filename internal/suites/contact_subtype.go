package suites

import (
	"context"

	"github.com/webform-civicrm/acceptance/internal/crm"
	"github.com/webform-civicrm/acceptance/internal/fixture"
	"github.com/webform-civicrm/acceptance/internal/form"
	"github.com/webform-civicrm/acceptance/internal/harness"
	"github.com/webform-civicrm/acceptance/internal/scenario"
	"github.com/webform-civicrm/acceptance/internal/webform"
)

// subTypeSetup creates a unique contact sub-type and exposes it on the form
// with live options, so sub-types created by earlier runs do not matter
func subTypeSetup(subType *crmSubType) []scenario.Step {
	return steps(
		[]scenario.Step{
			scenario.Do("create contact sub-type", func(ctx context.Context, env *harness.Env) error {
				label := env.UniqueTitle("First Contact")
				ct, err := env.Fixtures.CreateContactSubType(ctx, label, "Individual")
				if err != nil {
					return err
				}
				subType.label, subType.name = ct.Label, ct.Name
				if subType.label == "" {
					subType.label = label
				}
				if subType.name == "" {
					subType.name = fixture.SubTypeName(label)
				}
				return nil
			}),
		},
		configureForm(harness.RoleAdmin, staticElement(false),
			scenario.Do("sub-type element", func(ctx context.Context, env *harness.Env) error {
				return env.Webform.Settings.SetSubTypeElement()
			}),
		),
		[]scenario.Step{
			scenario.Do("live sub-type options", func(ctx context.Context, env *harness.Env) error {
				return env.Webform.Elements.EditOptionElement(
					webform.OperationsSelector(form.Contact(1, "contact", "contact_sub_type")), false)
			}),
			scenario.Logout(),
		},
		openForm(),
	)
}

type crmSubType struct {
	label string
	name  string
}

func submitWithSubType(subType *crmSubType, last *string) scenario.Step {
	return scenario.SubmitFormWith(func(ctx context.Context, env *harness.Env) (form.Values, error) {
		*last = env.UniqueTitle("Pabst")
		return form.Values{
			form.Checked(subType.label),
			form.Text("First Name", "Frederick"),
			form.Text("Last Name", *last),
		}, nil
	}, submitButton)
}

// ContactSubtype submits the form with a contact sub-type checked
func ContactSubtype() scenario.Scenario {
	var (
		subType crmSubType
		last    string
	)
	return scenario.Scenario{
		Name:        "contact-subtype",
		Description: "A checked contact sub-type is stored on the created contact",
		Tags:        []string{"contact", "subtype"},
		Requires:    []harness.Role{harness.RoleAdmin},
		Steps: steps(
			subTypeSetup(&subType),
			[]scenario.Step{
				submitWithSubType(&subType, &last),
				noErrors(),
				submitted(),
				scenario.Do("sub-type stored", func(ctx context.Context, env *harness.Env) error {
					_, err := env.Assert.ContactState(ctx, &crm.ContactGetRequest{FirstName: "Frederick", LastName: last},
						map[string]string{"contact_sub_type": subType.name})
					return err
				}),
			},
		),
	}
}

// SubmissionSticky stars a submission from the results page
func SubmissionSticky() scenario.Scenario {
	var (
		subType crmSubType
		last    string
		sid     int
	)
	return scenario.Scenario{
		Name:        "submission-sticky",
		Description: "The sticky star on the results page toggles over AJAX",
		Tags:        []string{"results"},
		Requires:    []harness.Role{harness.RoleAdmin},
		Steps: steps(
			subTypeSetup(&subType),
			[]scenario.Step{
				submitWithSubType(&subType, &last),
				noErrors(),
				scenario.LoginAs(harness.RoleAdmin),
				scenario.Navigate(scenario.Results),
				scenario.Do("star latest submission", func(ctx context.Context, env *harness.Env) error {
					var err error
					if sid, err = env.Webform.LatestSubmissionID(); err != nil {
						return err
					}
					if err := env.Assert.ElementExists(webform.StickySelector(sid) + " .webform-icon-sticky--off"); err != nil {
						return err
					}
					if err := env.Webform.ToggleSticky(sid); err != nil {
						return err
					}
					return env.Assert.ElementExists(webform.StickySelector(sid) + " .webform-icon-sticky--on")
				}),
			},
		),
	}
}
