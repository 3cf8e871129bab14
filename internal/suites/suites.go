// Package suites defines the acceptance scenarios of the CiviCRM webform
// integration. Scenarios share one site, so each one configures the CiviCRM
// tab and the Existing Contact element it needs instead of relying on what
// an earlier scenario left behind.
package suites

import (
	"context"

	"github.com/webform-civicrm/acceptance/internal/form"
	"github.com/webform-civicrm/acceptance/internal/harness"
	"github.com/webform-civicrm/acceptance/internal/scenario"
	"github.com/webform-civicrm/acceptance/internal/webform"
)

const (
	existingContactLabel = "Existing Contact"
	submitButton         = "Submit"
)

var (
	firstNameID = form.Contact(1, "contact", "first_name").ID()
	lastNameID  = form.Contact(1, "contact", "last_name").ID()

	existingContactSelect = "select#" + form.Contact(1, "contact", "existing").ID()
)

// All returns every scenario in run order
func All() []scenario.Scenario {
	all := []scenario.Scenario{
		AutocompleteGroupFilter(),
		SelectListGroupFilter(),
		StaticAndAutocomplete(),
		DraftSubmission(),
		ContactSubtype(),
		SubmissionSticky(),
	}
	all = append(all, SubmitContact()...)
	return append(all, SoftCredit(), StaticCurrentUser())
}

type elementBuilder func(ctx context.Context, env *harness.Env) (webform.ElementConfig, error)

func fixedElement(cfg webform.ElementConfig) elementBuilder {
	return func(context.Context, *harness.Env) (webform.ElementConfig, error) {
		return cfg, nil
	}
}

// staticElement is the Existing Contact element as the integration creates it
func staticElement(required bool) elementBuilder {
	return fixedElement(webform.ElementConfig{
		Selector: webform.ExistingContactSelector(1),
		Widget:   webform.WidgetStatic,
		Default:  webform.DefaultCurrentUser,
		Required: required,
	})
}

// configureForm logs in as role, enables CiviCRM processing for one contact,
// runs the tab steps, saves, then applies the Existing Contact element config
func configureForm(role harness.Role, element elementBuilder, tab ...scenario.Step) []scenario.Step {
	steps := []scenario.Step{
		scenario.LoginAs(role),
		scenario.Navigate(scenario.CiviCRMSettings),
		scenario.Do("enable civicrm processing", func(ctx context.Context, env *harness.Env) error {
			if err := env.Webform.Settings.EnableCiviCRM(); err != nil {
				return err
			}
			return env.Webform.Settings.SetNumberOfContacts(1)
		}),
	}
	steps = append(steps, tab...)
	return append(steps,
		scenario.Do("save civicrm settings", func(ctx context.Context, env *harness.Env) error {
			return env.Webform.Settings.Save()
		}),
		scenario.Navigate(scenario.EditForm),
		scenario.ConfigureElementWith(element),
	)
}

func noErrors() scenario.Step {
	return scenario.Do("no error messages", func(ctx context.Context, env *harness.Env) error {
		return env.Assert.NoErrorMessages()
	})
}

// widgetRendered checks the public form shows the Existing Contact widget the
// element was last configured with: a token list, a select, or neither
func widgetRendered() scenario.Step {
	return scenario.Do("existing contact widget rendered", func(ctx context.Context, env *harness.Env) error {
		state := env.Webform.Elements.State(webform.ExistingContactSelector(1))
		tokens, selects := env.Assert.ElementNotExists, env.Assert.ElementNotExists
		if state.RendersTokenInput() {
			tokens = env.Assert.ElementExists
		}
		if state.RendersSelect() {
			selects = env.Assert.ElementExists
		}
		if err := tokens(webform.TokenList); err != nil {
			return err
		}
		return selects(existingContactSelect)
	})
}

func pageContains(text string) scenario.Step {
	return scenario.Do("page contains "+text, func(ctx context.Context, env *harness.Env) error {
		return env.Assert.PageContains(text)
	})
}

func submitted() scenario.Step {
	return scenario.Do("submission confirmed", func(ctx context.Context, env *harness.Env) error {
		return env.Assert.PageContains(env.Webform.SubmittedMessage())
	})
}

func openForm() []scenario.Step {
	return []scenario.Step{scenario.Navigate(scenario.Canonical(nil)), noErrors()}
}

func press(button string) scenario.Step {
	return scenario.Do("press "+button, func(ctx context.Context, env *harness.Env) error {
		return env.Form.PressButton(button)
	})
}

func checkboxesChecked(locators ...string) scenario.Step {
	return scenario.Do("checkboxes checked", func(ctx context.Context, env *harness.Env) error {
		for _, l := range locators {
			if err := env.Assert.CheckboxChecked(l, true); err != nil {
				return err
			}
		}
		return nil
	})
}

func enableFields(locators ...string) scenario.Step {
	return scenario.Do("enable fields", func(ctx context.Context, env *harness.Env) error {
		for _, l := range locators {
			if err := env.Webform.Settings.EnableField(l); err != nil {
				return err
			}
		}
		return nil
	})
}

func steps(groups ...[]scenario.Step) []scenario.Step {
	var out []scenario.Step
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
