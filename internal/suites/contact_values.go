package suites

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/webform-civicrm/acceptance/internal/assertion"
	"github.com/webform-civicrm/acceptance/internal/crm"
	herrors "github.com/webform-civicrm/acceptance/internal/errors"
	"github.com/webform-civicrm/acceptance/internal/form"
	"github.com/webform-civicrm/acceptance/internal/harness"
	"github.com/webform-civicrm/acceptance/internal/scenario"
)

// Field is one posted value
type Field struct {
	Name  string
	Value string
}

// ContactValues is one row of the contact submission table. Contact holds
// contact-entity fields; Locations holds zero or more rows per location
// entity (email, address, website, phone, im), in fill order.
type ContactValues struct {
	ContactType string
	Contact     []Field
	Locations   map[string][][]Field
}

// Get returns a contact field value
func (v ContactValues) Get(name string) (string, bool) {
	for _, f := range v.Contact {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// locationGroup is a configurable field group of the CiviCRM tab. Groups with
// enable set have their fields switched on by the scenario; the others are on
// as soon as their count is set.
type locationGroup struct {
	entity string
	api    string
	keys   []string
	enable bool
}

var locationGroups = []locationGroup{
	{entity: "contact", keys: []string{"communication_style_id"}, enable: true},
	{entity: "address", api: "Address", keys: []string{"street_address", "city", "postal_code", "county_id", "country_id", "state_province_id"}, enable: true},
	{entity: "email", api: "Email", keys: []string{"email"}},
	{entity: "website", api: "Website", keys: []string{"url"}},
	{entity: "phone", api: "Phone", keys: []string{"phone"}},
	{entity: "im", api: "Im", keys: []string{"name"}},
}

// selectFields are rendered as selects or radios rather than text inputs
var selectFields = map[string]bool{
	"communication_style_id": true,
	"country_id":             true,
	"state_province_id":      true,
	"county_id":              true,
}

// ContactValueTable is the contact submission data set
var ContactValueTable = []ContactValues{
	{
		ContactType: "Individual",
		Contact:     []Field{{"first_name", "Frederick"}, {"last_name", "Pabst"}, {"communication_style_id", "familiar"}},
	},
	{
		ContactType: "Individual",
		Contact:     []Field{{"first_name", "Frederick"}, {"last_name", "Pabst"}},
		Locations: map[string][][]Field{
			"email": {{{"email", "fred@example.com"}}},
			"address": {{
				{"street_address", "Test"},
				{"city", "Adamsville"},
				{"postal_code", "35005"},
				{"country_id", "1228"},
				{"state_province_id", "1000"},
				{"county_id", "7"},
			}},
		},
	},
	{
		ContactType: "Individual",
		Contact:     []Field{{"first_name", "Frederick"}, {"last_name", "Pabst"}, {"communication_style_id", "formal"}},
		Locations: map[string][][]Field{
			"website": {{{"url", "https://example.com"}}},
		},
	},
	{
		ContactType: "Individual",
		Contact:     []Field{{"first_name", "Frederick"}, {"last_name", "Pabst"}, {"communication_style_id", "formal"}},
		Locations: map[string][][]Field{
			"phone": {{{"phone", "555-555-5555"}}},
		},
	},
	{
		ContactType: "Individual",
		Contact:     []Field{{"first_name", "Frederick"}, {"last_name", "Pabst"}, {"communication_style_id", "familiar"}},
		Locations: map[string][][]Field{
			"email":   {{{"email", "fred@example.com"}}},
			"website": {{{"url", "https://example.com"}}},
			"phone":   {{{"phone", "555-555-5555"}}},
		},
	},
}

// withLastName returns a copy of v with last_name replaced
func (v ContactValues) withLastName(last string) ContactValues {
	out := v
	out.Contact = make([]Field, len(v.Contact))
	for i, f := range v.Contact {
		if f.Name == "last_name" {
			f.Value = last
		}
		out.Contact[i] = f
	}
	return out
}

type tabAction struct {
	count   int
	group   string
	enable  string
	checked string
}

// tabPlan lists the CiviCRM tab work a row needs: location counts, fields to
// switch on, and fields that must already be on
func tabPlan(v ContactValues) []tabAction {
	var plan []tabAction
	for _, g := range locationGroups {
		if g.entity != "contact" {
			rows, ok := v.Locations[g.entity]
			if !ok {
				continue
			}
			plan = append(plan, tabAction{group: g.entity, count: len(rows)})
		}
		for _, k := range g.keys {
			name := form.Contact(1, g.entity, k).Name()
			if g.enable {
				plan = append(plan, tabAction{enable: name})
			} else {
				plan = append(plan, tabAction{checked: name})
			}
		}
	}
	return plan
}

// submissionValues is the ordered form input for a row. Communication style
// names are posted as their option values.
func submissionValues(v ContactValues, styles map[string]string) form.Values {
	var values form.Values
	add := func(entity string, f Field) {
		locator := form.Contact(1, entity, f.Name).Name()
		value := f.Value
		if f.Name == "communication_style_id" {
			if mapped, ok := styles[value]; ok {
				value = mapped
			}
		}
		if selectFields[f.Name] {
			values = append(values, form.Select(locator, value))
		} else {
			values = append(values, form.Text(locator, value))
		}
	}
	for _, f := range v.Contact {
		add("contact", f)
	}
	for _, g := range locationGroups {
		for _, row := range v.Locations[g.entity] {
			for _, f := range row {
				add(g.entity, f)
			}
		}
	}
	return values
}

// expectedContact is the contact record a row must produce
func expectedContact(v ContactValues, styles map[string]string) map[string]string {
	want := map[string]string{"contact_type": v.ContactType}
	for _, f := range v.Contact {
		value := f.Value
		if f.Name == "communication_style_id" {
			if mapped, ok := styles[value]; ok {
				value = mapped
			}
		}
		want[f.Name] = value
	}
	if emails := v.Locations["email"]; len(emails) > 0 {
		for _, f := range emails[0] {
			if f.Name == "email" {
				want["email"] = f.Value
			}
		}
	}
	return want
}

func locationRecords(res *crm.Result[crm.LocationRecord]) []map[string]string {
	out := make([]map[string]string, len(res.Values))
	for i, r := range res.Values {
		m := make(map[string]string, len(r))
		for k, v := range r {
			m[k] = v.String()
		}
		out[i] = m
	}
	return out
}

// checkLocations compares the stored location rows of a contact with the posted rows
func checkLocations(ctx context.Context, client *crm.Client, contactID crm.ID, v ContactValues) error {
	for _, g := range locationGroups {
		rows, ok := v.Locations[g.entity]
		if !ok || g.entity == "contact" {
			continue
		}
		res, err := client.GetLocations(ctx, g.api, contactID)
		if err != nil {
			return fmt.Errorf("failed to read %s of contact %s: %w", g.api, contactID, err)
		}
		records := locationRecords(res)
		if len(records) != len(rows) {
			return herrors.NewMismatch(g.api+" of contact "+contactID.String(), "count",
				strconv.Itoa(len(rows)), strconv.Itoa(len(records)), records)
		}
		for i, row := range rows {
			want := map[string]string{}
			for _, f := range row {
				want[f.Name] = f.Value
			}
			if err := assertion.RecordFields(fmt.Sprintf("%s %d of contact %s", g.api, i+1, contactID), records[i], want); err != nil {
				return err
			}
		}
	}
	return nil
}

// SubmitContact returns one scenario per row of ContactValueTable. Each
// submits anonymously and checks the created contact and its location rows.
func SubmitContact() []scenario.Scenario {
	out := make([]scenario.Scenario, 0, len(ContactValueTable))
	for i, row := range ContactValueTable {
		out = append(out, submitContact(i+1, row))
	}
	return out
}

func describe(v ContactValues) string {
	parts := []string{v.ContactType}
	for _, g := range locationGroups {
		if _, ok := v.Locations[g.entity]; ok {
			parts = append(parts, g.entity)
		}
	}
	if style, ok := v.Get("communication_style_id"); ok {
		parts = append(parts, style+" style")
	}
	return strings.Join(parts, ", ")
}

func submitContact(n int, base ContactValues) scenario.Scenario {
	var (
		row     ContactValues
		contact *crm.Contact
	)

	tab := scenario.Do("configure contact fields", func(ctx context.Context, env *harness.Env) error {
		for _, a := range tabPlan(base) {
			var err error
			switch {
			case a.group != "":
				err = env.Webform.Settings.SetLocationCount(a.group, a.count)
			case a.enable != "":
				err = env.Webform.Settings.EnableField(a.enable)
			default:
				err = env.Assert.CheckboxChecked(a.checked, true)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})

	return scenario.Scenario{
		Name:        fmt.Sprintf("submit-contact/%d", n),
		Description: "Anonymous contact submission: " + describe(base),
		Tags:        []string{"contact", "submission"},
		Requires:    []harness.Role{harness.RoleAdmin},
		Steps: steps(
			configureForm(harness.RoleAdmin, staticElement(false), tab),
			[]scenario.Step{scenario.Logout()},
			openForm(),
			[]scenario.Step{
				scenario.SubmitFormWith(func(ctx context.Context, env *harness.Env) (form.Values, error) {
					last, _ := base.Get("last_name")
					row = base.withLastName(env.UniqueTitle(last))
					styles, err := env.CommunicationStyles(ctx)
					if err != nil {
						return nil, err
					}
					return submissionValues(row, styles), nil
				}, submitButton),
				submitted(),
				scenario.Do("contact created", func(ctx context.Context, env *harness.Env) error {
					styles, err := env.CommunicationStyles(ctx)
					if err != nil {
						return err
					}
					first, _ := row.Get("first_name")
					last, _ := row.Get("last_name")
					contact, err = env.Assert.ContactState(ctx, &crm.ContactGetRequest{FirstName: first, LastName: last},
						expectedContact(row, styles))
					return err
				}),
				scenario.Do("location rows stored", func(ctx context.Context, env *harness.Env) error {
					return checkLocations(ctx, env.CRM, contact.Key(), row)
				}),
			},
		),
	}
}
