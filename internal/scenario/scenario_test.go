package scenario

import (
	"bytes"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	herrors "github.com/webform-civicrm/acceptance/internal/errors"
	"github.com/webform-civicrm/acceptance/internal/harness"
	"github.com/webform-civicrm/acceptance/internal/webform"
)

func names(scs []Scenario) []string {
	var out []string
	for _, sc := range scs {
		out = append(out, sc.Name)
	}
	return out
}

func TestSelect(t *testing.T) {
	all := []Scenario{
		{Name: "autocomplete-group-filter"},
		{Name: "select-list-group-filter"},
		{Name: "submit-contact/1"},
		{Name: "submit-contact/2"},
		{Name: "soft-credit"},
	}

	tests := []struct {
		name     string
		patterns []string
		want     []string
	}{
		{"no patterns", nil, names(all)},
		{"exact", []string{"soft-credit"}, []string{"soft-credit"}},
		{"prefix group", []string{"submit-contact"}, []string{"submit-contact/1", "submit-contact/2"}},
		{"glob", []string{"*-group-filter"}, []string{"autocomplete-group-filter", "select-list-group-filter"}},
		{"several", []string{"submit-contact/2", "soft-credit"}, []string{"submit-contact/2", "soft-credit"}},
		{"no match", []string{"missing"}, nil},
		{"partial name is not a prefix", []string{"submit"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(Select(all, tt.patterns)))
		})
	}
}

func TestStepNames(t *testing.T) {
	assert.Equal(t, "navigate", Navigate(Path("/user")).Name())
	assert.Equal(t, "configure element", ConfigureElement(webform.ElementConfig{}).Name())
	assert.Equal(t, "submit form with next >", SubmitForm(nil, "Next >").Name())
	assert.Equal(t, "login as admin", LoginAs(harness.RoleAdmin).Name())
	assert.Equal(t, "logout", Logout().Name())
}

func TestRenderSummaryGolden(t *testing.T) {
	suite := &SuiteResult{RunID: "3f2a9c1e", Duration: 12500 * time.Millisecond}
	suite.add(ScenarioResult{
		Name:     "autocomplete-group-filter",
		Result:   ResultPassed,
		Duration: 4200 * time.Millisecond,
	})
	suite.add(ScenarioResult{
		Name:       "draft-submission",
		Result:     ResultFailed,
		Duration:   8300 * time.Millisecond,
		Kind:       herrors.KindMismatch,
		Error:      "step 4 \"check draft values\": contact 1 first_name\nexpected: Jann\nactual: Fred1\n",
		Screenshot: "artifacts/screenshots/draft-submission_1a2b3c4d.png",
	})
	suite.add(ScenarioResult{
		Name:   "static-current-user",
		Result: ResultSkipped,
		Error:  "admin credentials not configured",
	})

	var buf bytes.Buffer
	assert.NoError(t, suite.RenderSummary(&buf))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "summary", buf.Bytes())
}
