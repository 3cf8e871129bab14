package suites

import (
	"context"
	"fmt"

	"github.com/webform-civicrm/acceptance/internal/assertion"
	"github.com/webform-civicrm/acceptance/internal/crm"
	herrors "github.com/webform-civicrm/acceptance/internal/errors"
	"github.com/webform-civicrm/acceptance/internal/form"
	"github.com/webform-civicrm/acceptance/internal/harness"
	"github.com/webform-civicrm/acceptance/internal/scenario"
	"github.com/webform-civicrm/acceptance/internal/webform"
)

// softCreditContribution is the contribution set the soft credit scenario enables
var softCreditContribution = webform.ContributionConfig{
	PaymentProcessor: "Pay Later",
	Soft:             "Contact 2",
	SoftCreditType:   "In Memory of",
}

// SoftCredit pays a contribution as contact 1 and soft-credits contact 2
func SoftCredit() scenario.Scenario {
	return scenario.Scenario{
		Name:        "soft-credit",
		Description: "A contribution soft-credits the second contact on the form",
		Tags:        []string{"contribution"},
		Requires:    []harness.Role{harness.RoleRoot},
		Steps: steps(
			configureForm(harness.RoleRoot, staticElement(false),
				scenario.Do("configure contribution", func(ctx context.Context, env *harness.Env) error {
					s := env.Webform.Settings
					if err := s.SetNumberOfContacts(2); err != nil {
						return err
					}
					if err := s.ConfigureContribution(softCreditContribution); err != nil {
						return err
					}
					if err := s.SetBillingAddress(false); err != nil {
						return err
					}
					return s.EnableField("Contribution Amount")
				}),
			),
			openForm(),
			[]scenario.Step{
				scenario.SubmitForm(form.Values{
					form.Text(form.Contact(1, "contact", "first_name").Name(), "Frederick"),
					form.Text(form.Contact(1, "contact", "last_name").Name(), "Pabst"),
					form.Text(form.Contact(1, "email", "email").Name(), "fred@example.com"),
					form.Text(form.Contact(2, "contact", "first_name").Name(), "Max"),
					form.Text(form.Contact(2, "contact", "last_name").Name(), "Plank"),
				}, "Next >"),
				noErrors(),
				scenario.Do("enter amount", func(ctx context.Context, env *harness.Env) error {
					if err := env.Form.FillField("Contribution Amount", "20"); err != nil {
						return err
					}
					if err := env.Form.WaitForAsyncUpdate(); err != nil {
						return err
					}
					if err := env.Assert.ElementExists("#wf-crm-billing-items"); err != nil {
						return err
					}
					return env.Assert.ElementTextContains("#wf-crm-billing-total", "20.00")
				}),
				press(submitButton),
				noErrors(),
				submitted(),
				scenario.Do("soft credit stored", func(ctx context.Context, env *harness.Env) error {
					return checkSoftCredit(ctx, env.CRM)
				}),
			},
		),
	}
}

func checkSoftCredit(ctx context.Context, client *crm.Client) error {
	res, err := client.GetContributionSoftCredits(ctx)
	if err != nil {
		return fmt.Errorf("failed to read contribution: %w", err)
	}
	if len(res.Records) == 0 || len(res.Values) == 0 {
		return herrors.NewMismatch("contribution", "count", "1", "0", res.Records)
	}
	// money may come back as 20, 20.0 or "20.00"
	v := res.Values[0]
	record := make(map[string]any, len(res.Records[0]))
	for k, val := range res.Records[0] {
		record[k] = val
	}
	record["contribution_soft.amount"] = v.SoftAmount.Decimal()
	return assertion.RecordFields("contribution "+v.ID.String(), record, map[string]string{
		"contact_id.display_name":                     "Frederick Pabst",
		"contribution_soft.amount":                    "20",
		"contribution_soft.soft_credit_type_id:label": softCreditContribution.SoftCreditType,
		"contribution_soft.contact_id.display_name":   "Max Plank",
	})
}
