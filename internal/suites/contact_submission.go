package suites

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/webform-civicrm/acceptance/internal/assertion"
	"github.com/webform-civicrm/acceptance/internal/crm"
	herrors "github.com/webform-civicrm/acceptance/internal/errors"
	"github.com/webform-civicrm/acceptance/internal/fixture"
	"github.com/webform-civicrm/acceptance/internal/form"
	"github.com/webform-civicrm/acceptance/internal/harness"
	"github.com/webform-civicrm/acceptance/internal/scenario"
	"github.com/webform-civicrm/acceptance/internal/webform"
)

// groupContacts is the size of the group fixture; the last contact stays out of the group
const groupContacts = 5

func createGroupFixture(fx **fixture.GroupFixture) scenario.Step {
	return scenario.Do("create group with contacts", func(ctx context.Context, env *harness.Env) error {
		prefix := env.Config.Fixtures.GroupTitle
		if prefix == "" {
			prefix = "TestGroup"
		}
		created, err := env.Fixtures.CreateGroupWithContacts(ctx, env.UniqueTitle(prefix), groupContacts)
		if err != nil {
			return err
		}
		*fx = created
		return nil
	})
}

func groupFiltered(widget webform.Widget, fx **fixture.GroupFixture) elementBuilder {
	return func(context.Context, *harness.Env) (webform.ElementConfig, error) {
		if *fx == nil {
			return webform.ElementConfig{}, fmt.Errorf("group fixture not created")
		}
		return webform.ElementConfig{
			Selector:    webform.ExistingContactSelector(1),
			Widget:      widget,
			GroupFilter: (*fx).Group.ID,
		}, nil
	}
}

// AutocompleteGroupFilter searches group members and a non-member through
// an Autocomplete widget filtered by the group
func AutocompleteGroupFilter() scenario.Scenario {
	var fx *fixture.GroupFixture
	input := webform.ExistingContactInput(1)

	return scenario.Scenario{
		Name:        "autocomplete-group-filter",
		Description: "Autocomplete filtered by group finds members and offers create-new for others",
		Tags:        []string{"contact", "autocomplete"},
		Requires:    []harness.Role{harness.RoleRoot},
		Steps: steps(
			[]scenario.Step{createGroupFixture(&fx)},
			configureForm(harness.RoleRoot, groupFiltered(webform.WidgetAutocomplete, &fx)),
			openForm(),
			[]scenario.Step{
				widgetRendered(),
				scenario.Do("find group members", func(ctx context.Context, env *harness.Env) error {
					for _, c := range fx.Members {
						if err := env.Webform.Autocomplete.Fill(input, c.FirstName); err != nil {
							return err
						}
						if err := env.Assert.FieldValues(map[string]string{firstNameID: c.FirstName, lastNameID: c.LastName}); err != nil {
							return err
						}
						if err := env.Webform.Autocomplete.ClearToken(); err != nil {
							return err
						}
					}
					return nil
				}),
				scenario.Do("non-member falls back to create new", func(ctx context.Context, env *harness.Env) error {
					c := fx.NonMembers[0]
					if err := env.Webform.Autocomplete.Fill(input, c.FirstName); err != nil {
						return err
					}
					if err := env.Assert.ElementTextContains(webform.ContactFieldset(1), webform.CreateNewLabel); err != nil {
						return err
					}
					return env.Assert.FieldValues(map[string]string{firstNameID: c.FirstName, lastNameID: ""})
				}),
			},
		),
	}
}

// SelectListGroupFilter renders the Existing Contact element as a select
// of group members and edits the chosen contact through the form
func SelectListGroupFilter() scenario.Scenario {
	var fx *fixture.GroupFixture

	return scenario.Scenario{
		Name:        "select-list-group-filter",
		Description: "Select List filtered by group offers exactly the members and updates the chosen one",
		Tags:        []string{"contact", "select"},
		Requires:    []harness.Role{harness.RoleRoot},
		Steps: steps(
			[]scenario.Step{createGroupFixture(&fx)},
			configureForm(harness.RoleRoot, groupFiltered(webform.WidgetSelectList, &fx)),
			openForm(),
			[]scenario.Step{
				widgetRendered(),
				scenario.Do("only members offered", func(ctx context.Context, env *harness.Env) error {
					opts, err := env.Form.Options(existingContactLabel)
					if err != nil {
						return err
					}
					return checkMemberOptions(opts, fx, env.Webform.Elements.State(webform.ExistingContactSelector(1)))
				}),
				scenario.SubmitFormWith(func(ctx context.Context, env *harness.Env) (form.Values, error) {
					return form.Values{
						form.Select(existingContactLabel, fx.Members[0].Key().String()),
						form.Text("First Name", "Jann"),
						form.Text("Last Name", "Arden"),
					}, nil
				}, submitButton),
				submitted(),
				scenario.Do("chosen contact updated", func(ctx context.Context, env *harness.Env) error {
					_, err := env.Assert.ContactState(ctx, &crm.ContactGetRequest{ID: fx.Members[0].Key()},
						map[string]string{"first_name": "Jann", "last_name": "Arden"})
					return err
				}),
			},
		),
	}
}

// checkMemberOptions requires the selectable options to be exactly the
// fixture contacts the widget state says are searchable. Options with an
// empty value are placeholders.
func checkMemberOptions(opts map[string]string, fx *fixture.GroupFixture, state webform.WidgetState) error {
	memberOf := []crm.ID{fx.Group.ID}
	want := 0
	check := func(c crm.Contact, groups []crm.ID) error {
		searchable := state.Searchable(groups)
		if searchable {
			want++
		}
		_, offered := opts[c.Key().String()]
		if offered != searchable {
			return herrors.NewMismatch("select "+existingContactLabel, "option "+c.Key().String(),
				presence(searchable), presence(offered), opts)
		}
		return nil
	}
	for _, c := range fx.Members {
		if err := check(c, memberOf); err != nil {
			return err
		}
	}
	for _, c := range fx.NonMembers {
		if err := check(c, nil); err != nil {
			return err
		}
	}
	selectable := 0
	for v := range opts {
		if v != "" {
			selectable++
		}
	}
	if selectable != want {
		return herrors.NewMismatch("select "+existingContactLabel, "options", strconv.Itoa(want), strconv.Itoa(selectable), opts)
	}
	return nil
}

func presence(ok bool) string {
	if ok {
		return "present"
	}
	return "missing"
}

// StaticAndAutocomplete edits a contact loaded through cid1, then switches
// the element to Autocomplete and edits the same contact found by search
func StaticAndAutocomplete() scenario.Scenario {
	var (
		contact     crm.Contact
		renamed     string
		rootDisplay string
	)

	return scenario.Scenario{
		Name:        "static-and-autocomplete",
		Description: "Static widget pre-fills from cid1; Autocomplete defaults to the current user and finds contacts",
		Tags:        []string{"contact", "autocomplete"},
		Requires:    []harness.Role{harness.RoleRoot},
		Steps: steps(
			[]scenario.Step{
				scenario.Do("create individual", func(ctx context.Context, env *harness.Env) error {
					var err error
					contact, err = env.Fixtures.CreateIndividual(ctx)
					renamed = env.UniqueTitle("Alanis")
					return err
				}),
			},
			configureForm(harness.RoleRoot, staticElement(false),
				scenario.Do("checksum help shown", func(ctx context.Context, env *harness.Env) error {
					if _, err := env.Webform.Settings.AdditionalSettings(); err != nil {
						return err
					}
					return env.Assert.ElementTextContains("#edit-checksum-text", webform.ChecksumHelp)
				}),
			),
			[]scenario.Step{
				scenario.Navigate(scenario.Canonical(func() url.Values {
					return url.Values{"cid1": {contact.Key().String()}}
				})),
				noErrors(),
				widgetRendered(),
				scenario.Do("name fields pre-filled", func(ctx context.Context, env *harness.Env) error {
					return env.Assert.FieldValues(map[string]string{"First Name": contact.FirstName, "Last Name": contact.LastName})
				}),
				scenario.SubmitFormWith(func(ctx context.Context, env *harness.Env) (form.Values, error) {
					return form.Values{form.Text("First Name", renamed), form.Text("Last Name", "Morissette")}, nil
				}, submitButton),
				submitted(),
				scenario.Do("contact renamed", func(ctx context.Context, env *harness.Env) error {
					_, err := env.Assert.ContactState(ctx, &crm.ContactGetRequest{ID: contact.Key()},
						map[string]string{"first_name": renamed, "last_name": "Morissette"})
					return err
				}),
				scenario.Navigate(scenario.EditForm),
				scenario.Do("civicrm elements not offered", func(ctx context.Context, env *harness.Env) error {
					if err := env.Webform.Elements.OpenAddElement(); err != nil {
						return err
					}
					for _, sel := range webform.CiviCRMElementSelectors {
						if err := env.Assert.ElementNotExists(sel); err != nil {
							return err
						}
					}
					return env.Webform.Elements.CloseDialog()
				}),
				scenario.ConfigureElement(webform.ElementConfig{
					Selector:     webform.ExistingContactSelector(1),
					Widget:       webform.WidgetAutocomplete,
					SearchPrompt: "- Select Contact -",
				}),
				pageContains(webform.ElementUpdatedMessage(existingContactLabel)),
				scenario.Do("resolve current user", func(ctx context.Context, env *harness.Env) error {
					id, err := env.CurrentContactID(ctx)
					if err != nil {
						return err
					}
					rootDisplay, err = env.DisplayName(ctx, id)
					return err
				}),
				scenario.Navigate(scenario.Canonical(nil)),
				noErrors(),
				widgetRendered(),
				scenario.Do("current user pre-selected", func(ctx context.Context, env *harness.Env) error {
					token, err := env.Webform.Autocomplete.TokenText()
					if err != nil {
						return err
					}
					if err := assertion.RecordFields("existing contact token", map[string]string{"display_name": token},
						map[string]string{"display_name": rootDisplay}); err != nil {
						return err
					}
					return env.Webform.Autocomplete.ClearToken()
				}),
				scenario.Do("find renamed contact", func(ctx context.Context, env *harness.Env) error {
					if err := env.Webform.Autocomplete.Fill(webform.ExistingContactInput(1), renamed); err != nil {
						return err
					}
					return env.Assert.FieldValues(map[string]string{firstNameID: renamed, lastNameID: "Morissette"})
				}),
				scenario.SubmitForm(form.Values{
					form.Text("First Name", "Frederick-Edited"),
					form.Text("Last Name", "Pabst-Edited"),
				}, submitButton),
				submitted(),
				scenario.Do("contact edited", func(ctx context.Context, env *harness.Env) error {
					_, err := env.Assert.ContactState(ctx, &crm.ContactGetRequest{ID: contact.Key()},
						map[string]string{"first_name": "Frederick-Edited", "last_name": "Pabst-Edited"})
					return err
				}),
			},
		),
	}
}

// DraftSubmission saves a partially filled form and resumes it
func DraftSubmission() scenario.Scenario {
	draft := form.Values{form.Text("Nickname", "Nick")}

	return scenario.Scenario{
		Name:        "draft-submission",
		Description: "A saved draft restores its values when the form is reopened",
		Tags:        []string{"draft"},
		Requires:    []harness.Role{harness.RoleRoot},
		Steps: steps(
			configureForm(harness.RoleRoot, staticElement(false), enableFields("Nickname")),
			[]scenario.Step{
				scenario.Do("allow drafts", func(ctx context.Context, env *harness.Env) error {
					return env.Webform.EnableDrafts("authenticated")
				}),
			},
			openForm(),
			[]scenario.Step{
				scenario.SubmitForm(draft, "Save Draft"),
				pageContains(webform.DraftSavedMessage),
				noErrors(),
				scenario.Navigate(scenario.Canonical(nil)),
				pageContains(webform.DraftResumedMessage),
				scenario.Do("draft values restored", func(ctx context.Context, env *harness.Env) error {
					return env.Assert.FieldValues(draft.Expected())
				}),
			},
		),
	}
}

// StaticCurrentUser pre-fills the form with the logged-in user's contact and
// blocks anonymous submissions while the element is required
func StaticCurrentUser() scenario.Scenario {
	var before int
	individuals := &crm.ContactGetRequest{ContactType: "Individual"}

	return scenario.Scenario{
		Name:        "static-current-user",
		Description: "Static Current User pre-fills for a logged-in user and is required for anonymous users",
		Tags:        []string{"contact", "static"},
		Requires:    []harness.Role{harness.RoleRoot, harness.RoleAdmin},
		Steps: steps(
			configureForm(harness.RoleRoot, staticElement(true),
				checkboxesChecked(existingContactLabel, "First Name", "Last Name"),
				enableFields("Preferred Communication Method(s)"),
			),
			[]scenario.Step{
				pageContains(webform.ElementUpdatedMessage(existingContactLabel)),
				scenario.Do("live communication method options", func(ctx context.Context, env *harness.Env) error {
					return env.Webform.Elements.EditOptionElement(
						webform.OperationsSelector(form.Contact(1, "contact", "preferred_communication_method")), false)
				}),
				scenario.Logout(),
				scenario.LoginAs(harness.RoleAdmin),
				scenario.Do("rename admin contact", func(ctx context.Context, env *harness.Env) error {
					id, err := env.CurrentContactID(ctx)
					if err != nil {
						return err
					}
					_, err = env.Fixtures.UpdateContactName(ctx, id, "Admin", "User")
					return err
				}),
			},
			openForm(),
			[]scenario.Step{
				scenario.Do("current user pre-filled", func(ctx context.Context, env *harness.Env) error {
					if err := env.Form.WaitForField("First Name"); err != nil {
						return err
					}
					return env.Assert.FieldValues(map[string]string{"First Name": "Admin", "Last Name": "User"})
				}),
				press(submitButton),
				submitted(),
				noErrors(),
				scenario.Logout(),
				scenario.Do("count contacts", func(ctx context.Context, env *harness.Env) error {
					var err error
					before, err = env.Assert.CountContacts(ctx, individuals)
					return err
				}),
			},
			openForm(),
			[]scenario.Step{
				press(submitButton),
				pageContains(webform.RequiredMessage(existingContactLabel)),
				scenario.Do("no contact created", func(ctx context.Context, env *harness.Env) error {
					return env.Assert.ContactCountUnchanged(ctx, individuals, before)
				}),
			},
		),
	}
}
