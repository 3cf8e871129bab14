// Package scenario runs acceptance scenarios: ordered steps against one
// harness environment, stopping at the first failure.
package scenario

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/webform-civicrm/acceptance/internal/form"
	"github.com/webform-civicrm/acceptance/internal/harness"
	"github.com/webform-civicrm/acceptance/internal/webform"
)

// Scenario is a named, ordered list of steps
type Scenario struct {
	Name        string
	Description string
	Tags        []string
	// Requires lists the accounts the scenario logs in as; missing
	// credentials skip the scenario instead of failing it
	Requires []harness.Role
	Steps    []Step
	// Timeout bounds the whole scenario; zero uses the runner's ScenarioTimeout
	Timeout time.Duration
}

// Step is one action or check of a scenario
type Step interface {
	Name() string
	Run(ctx context.Context, env *harness.Env) error
}

// StepFunc is the body of a step
type StepFunc func(ctx context.Context, env *harness.Env) error

type funcStep struct {
	name string
	fn   StepFunc
}

func (s funcStep) Name() string { return s.name }

func (s funcStep) Run(ctx context.Context, env *harness.Env) error {
	return s.fn(ctx, env)
}

// Do wraps an arbitrary function as a step
func Do(name string, fn StepFunc) Step {
	return funcStep{name: name, fn: fn}
}

// Route resolves a site path once the environment is known
type Route func(env *harness.Env) string

func Path(p string) Route {
	return func(*harness.Env) string { return p }
}

func CiviCRMSettings(env *harness.Env) string    { return env.Webform.CiviCRMSettings() }
func EditForm(env *harness.Env) string           { return env.Webform.EditForm() }
func SubmissionSettings(env *harness.Env) string { return env.Webform.SubmissionSettings() }
func Results(env *harness.Env) string            { return env.Webform.Results() }

// Canonical is the public form; query may be nil or resolve values created
// by earlier steps
func Canonical(query func() url.Values) Route {
	return func(env *harness.Env) string {
		if query == nil {
			return env.Webform.Canonical(nil)
		}
		return env.Webform.Canonical(query())
	}
}

// Navigate opens route and waits for the page to settle
func Navigate(route Route) Step {
	return navigateStep{route: route}
}

type navigateStep struct {
	route Route
}

func (s navigateStep) Name() string { return "navigate" }

func (s navigateStep) Run(ctx context.Context, env *harness.Env) error {
	return env.Webform.Open(s.route(env))
}

// ConfigureElement edits a contact element in the form builder
func ConfigureElement(cfg webform.ElementConfig) Step {
	return ConfigureElementWith(func(context.Context, *harness.Env) (webform.ElementConfig, error) {
		return cfg, nil
	})
}

// ConfigureElementWith builds the element config when the step runs, for
// configs that reference fixtures
func ConfigureElementWith(build func(ctx context.Context, env *harness.Env) (webform.ElementConfig, error)) Step {
	return Do("configure element", func(ctx context.Context, env *harness.Env) error {
		cfg, err := build(ctx, env)
		if err != nil {
			return err
		}
		return env.Webform.Elements.EditContactElement(cfg)
	})
}

// SubmitForm posts values in order and presses button
func SubmitForm(values form.Values, button string) Step {
	return SubmitFormWith(func(context.Context, *harness.Env) (form.Values, error) {
		return values, nil
	}, button)
}

// SubmitFormWith builds the submission when the step runs
func SubmitFormWith(build func(ctx context.Context, env *harness.Env) (form.Values, error), button string) Step {
	return Do("submit form with "+strings.ToLower(button), func(ctx context.Context, env *harness.Env) error {
		values, err := build(ctx, env)
		if err != nil {
			return err
		}
		if err := env.Form.Apply(values); err != nil {
			return err
		}
		return env.Form.PressButton(button)
	})
}

// LoginAs logs the session in as role
func LoginAs(role harness.Role) Step {
	return Do(fmt.Sprintf("login as %s", role), func(ctx context.Context, env *harness.Env) error {
		return env.LoginAs(role)
	})
}

// Logout ends the CMS session
func Logout() Step {
	return Do("logout", func(ctx context.Context, env *harness.Env) error {
		return env.Logout()
	})
}

// Select keeps the scenarios whose name matches one of patterns. A pattern
// matches its exact name, a path.Match glob, or a name prefix up to '/'
// (submit-contact selects submit-contact/1 .. submit-contact/5).
// No patterns keeps everything.
func Select(scenarios []Scenario, patterns []string) []Scenario {
	if len(patterns) == 0 {
		return scenarios
	}
	var out []Scenario
	for _, sc := range scenarios {
		for _, p := range patterns {
			if matches(sc.Name, p) {
				out = append(out, sc)
				break
			}
		}
	}
	return out
}

func matches(name, pattern string) bool {
	if name == pattern || strings.HasPrefix(name, pattern+"/") {
		return true
	}
	ok, err := path.Match(pattern, name)
	return err == nil && ok
}
