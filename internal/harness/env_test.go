package harness

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webform-civicrm/acceptance/internal/config"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		BaseURL: baseURL,
		Users: config.UsersConfig{
			Root:  config.UserCredentials{Name: "admin", Password: "root-pass"},
			Admin: config.UserCredentials{Name: "webadmin", Password: "admin-pass"},
		},
		Webform: config.WebformConfig{ID: "civicrm_webform_test", Title: "CiviCRM Webform Test"},
		CRM:     config.CRMConfig{APIKey: "k", SiteKey: "s"},
	}
}

func TestNewWiresEnvironment(t *testing.T) {
	env, err := New(testConfig("http://site.test"))
	require.NoError(t, err)

	assert.NotEmpty(t, env.RunID)
	assert.Same(t, env.CRM, env.Reader)
	assert.Equal(t, RoleAnonymous, env.Role())
	assert.Equal(t, "civicrm_webform_test", env.Webform.WebformID)
	assert.Equal(t, "New submission added to CiviCRM Webform Test.", env.Webform.SubmittedMessage())

	other, err := New(testConfig("http://site.test"))
	require.NoError(t, err)
	assert.NotEqual(t, env.RunID, other.RunID)
}

func TestNewRejectsBadDSN(t *testing.T) {
	cfg := testConfig("http://site.test")
	cfg.Database.DSN = "not a dsn"
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestUsersCredentials(t *testing.T) {
	u := Users{Root: config.UserCredentials{Name: "admin"}, Admin: config.UserCredentials{Name: "webadmin"}}

	c, err := u.Credentials(RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "webadmin", c.Name)

	_, err = u.Credentials(RoleAnonymous)
	assert.Error(t, err)
}

func TestLoginAsAnonymousIsNoop(t *testing.T) {
	env, err := New(testConfig("http://site.test"))
	require.NoError(t, err)
	assert.NoError(t, env.LoginAs(RoleAnonymous))
	assert.NoError(t, env.Logout())
	assert.Error(t, env.LoginAs(Role("editor")))
}

func TestCommunicationStylesLiveAndCached(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "OptionValue", r.PostForm.Get("entity"))
		assert.True(t, strings.Contains(r.PostForm.Get("json"), `"option_group_id":"communication_style"`))
		_, _ = w.Write([]byte(`{"is_error":0,"count":2,"values":[
			{"id":"101","name":"formal","label":"Formal","value":"1"},
			{"id":"102","name":"familiar","label":"Familiar","value":2}]}`))
	}))
	defer srv.Close()

	env, err := New(testConfig(srv.URL))
	require.NoError(t, err)

	styles, err := env.CommunicationStyles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"formal": "1", "familiar": "2"}, styles)

	_, err = env.CommunicationStyles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCommunicationStylesSnapshot(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Fixtures.CommunicationStyles = map[string]string{"formal": "1", "familiar": "2"}
	env, err := New(cfg)
	require.NoError(t, err)

	styles, err := env.CommunicationStyles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2", styles["familiar"])
}

func TestUniqueTitle(t *testing.T) {
	env, err := New(testConfig("http://site.test"))
	require.NoError(t, err)
	a, b := env.UniqueTitle("TestGroup"), env.UniqueTitle("TestGroup")
	assert.True(t, strings.HasPrefix(a, "TestGroup-"))
	assert.Len(t, a, len("TestGroup-")+8)
	assert.NotEqual(t, a, b)
}
