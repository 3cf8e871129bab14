package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	Entity string
	Action string
	Params map[string]any
}

// newTestServer serves canned APIv3/APIv4 responses keyed by "Entity.action"
func newTestServer(t *testing.T, responses map[string]string) (*Client, *[]recordedCall) {
	t.Helper()
	var calls []recordedCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "XMLHttpRequest", r.Header.Get("X-Requested-With"))
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("X-Civi-Auth"))

		var key string
		var params map[string]any
		switch {
		case r.URL.Path == "/civicrm/ajax/rest":
			assert.Equal(t, "test-api-key", r.PostForm.Get("api_key"))
			assert.Equal(t, "test-site-key", r.PostForm.Get("key"))
			key = r.PostForm.Get("entity") + "." + r.PostForm.Get("action")
			require.NoError(t, json.Unmarshal([]byte(r.PostForm.Get("json")), &params))
		case len(r.URL.Path) > len("/civicrm/ajax/api4/"):
			key = "v4:" + r.URL.Path[len("/civicrm/ajax/api4/"):]
			require.NoError(t, json.Unmarshal([]byte(r.PostForm.Get("params")), &params))
		}
		calls = append(calls, recordedCall{Entity: r.PostForm.Get("entity"), Action: r.PostForm.Get("action"), Params: params})

		body, ok := responses[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error_message":"unknown call ` + key + `"}`))
			return
		}
		if key == "v4:Broken/get" {
			w.WriteHeader(http.StatusInternalServerError)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(&Config{
		BaseURL: srv.URL,
		APIKey:  "test-api-key",
		SiteKey: "test-site-key",
	})
	return client, &calls
}

func TestCreateContact(t *testing.T) {
	client, calls := newTestServer(t, map[string]string{
		"Contact.create": `{"is_error":0,"version":3,"count":1,"id":42,"values":[{"id":"42","contact_type":"Individual","first_name":"Fred1","last_name":"Pabst1"}]}`,
	})

	res, err := client.CreateContact(context.Background(), &ContactCreateRequest{
		ContactType: "Individual",
		FirstName:   "Fred1",
		LastName:    "Pabst1",
	})
	require.NoError(t, err)
	assert.Equal(t, ID("42"), res.ID)
	require.Len(t, res.Values, 1)
	assert.Equal(t, "Fred1", res.Values[0].FirstName)
	assert.Equal(t, "Fred1", res.Records[0]["first_name"])

	require.Len(t, *calls, 1)
	sent := (*calls)[0].Params
	assert.Equal(t, "Individual", sent["contact_type"])
	assert.Equal(t, float64(1), sent["sequential"])
	assert.NotContains(t, sent, "id", "zero id must not be sent")
	assert.NotContains(t, sent, "nick_name")
}

func TestCallReportsIsError(t *testing.T) {
	client, _ := newTestServer(t, map[string]string{
		"Group.create": `{"is_error":1,"error_message":"DB Error: already exists","error_code":"already exists"}`,
	})

	res, err := client.CreateGroup(context.Background(), &GroupCreateRequest{Title: "TestGroup"})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.True(t, res.IsError)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Group", apiErr.Entity)
	assert.Equal(t, "create", apiErr.Action)
	assert.Equal(t, "DB Error: already exists", apiErr.Message)
	assert.Contains(t, string(PayloadOf(err)), `"is_error":1`)
}

func TestGetContactsKeyedValues(t *testing.T) {
	// older sites ignore sequential and key values by id
	client, _ := newTestServer(t, map[string]string{
		"Contact.get": `{"is_error":0,"count":2,"values":{"10":{"id":"10","contact_id":"10","first_name":"B","contact_sub_type":["First_Contact"]},"9":{"id":"9","first_name":"A","contact_sub_type":""}}}`,
	})

	res, err := client.GetContacts(context.Background(), &ContactGetRequest{LastName: "Pabst"})
	require.NoError(t, err)
	require.Len(t, res.Values, 2)
	assert.Equal(t, "A", res.Values[0].FirstName, "values are ordered by numeric key")
	assert.Equal(t, "B", res.Values[1].FirstName)
	assert.Empty(t, res.Values[0].ContactSubType)
	assert.Equal(t, "First_Contact", res.Values[1].ContactSubType.Join())
	assert.Equal(t, ID("10"), res.Values[1].Key())
}

func TestGetContactNotFound(t *testing.T) {
	client, _ := newTestServer(t, map[string]string{
		"Contact.get": `{"is_error":0,"count":0,"values":[]}`,
	})
	_, err := client.GetContact(context.Background(), "99")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScalarActions(t *testing.T) {
	t.Run("wrapped result", func(t *testing.T) {
		client, _ := newTestServer(t, map[string]string{
			"Contact.getvalue": `{"is_error":0,"result":"Admin User"}`,
			"Contact.getcount": `{"is_error":0,"result":5}`,
		})
		name, err := client.GetContactValue(context.Background(), &ContactGetValueRequest{ID: "3", Return: "display_name"})
		require.NoError(t, err)
		assert.Equal(t, "Admin User", name)

		n, err := client.CountContacts(context.Background(), &ContactGetRequest{})
		require.NoError(t, err)
		assert.Equal(t, 5, n)
	})

	t.Run("bare result", func(t *testing.T) {
		client, _ := newTestServer(t, map[string]string{
			"Contact.getvalue": `"Root User"`,
			"Contact.getcount": `7`,
		})
		name, err := client.GetContactValue(context.Background(), &ContactGetValueRequest{ID: "1", Return: "display_name"})
		require.NoError(t, err)
		assert.Equal(t, "Root User", name)

		n, err := client.CountContacts(context.Background(), &ContactGetRequest{})
		require.NoError(t, err)
		assert.Equal(t, 7, n)
	})

	t.Run("error", func(t *testing.T) {
		client, _ := newTestServer(t, map[string]string{
			"Contact.getvalue": `{"is_error":1,"error_message":"Expected one Contact but found 0"}`,
		})
		_, err := client.GetContactValue(context.Background(), &ContactGetValueRequest{ID: "1", Return: "display_name"})
		assert.True(t, IsAPIError(err))
	})
}

func TestGetUFMatch(t *testing.T) {
	client, calls := newTestServer(t, map[string]string{
		"UFMatch.get": `{"is_error":0,"count":1,"values":[{"id":"1","uf_id":"2","contact_id":"203"}]}`,
	})
	m, err := client.GetUFMatch(context.Background(), IDFromInt(2))
	require.NoError(t, err)
	assert.Equal(t, ID("203"), m.ContactID)
	assert.Equal(t, "2", (*calls)[0].Params["uf_id"])
}

func TestGetLocations(t *testing.T) {
	client, _ := newTestServer(t, map[string]string{
		"Address.get": `{"is_error":0,"count":1,"values":[{"id":"5","contact_id":"9","street_address":"Test","county_id":"7","postal_code":35005,"is_primary":true}]}`,
	})
	res, err := client.GetLocations(context.Background(), "Address", "9")
	require.NoError(t, err)
	require.Len(t, res.Values, 1)
	addr := res.Values[0]
	assert.Equal(t, "Test", addr.Get("street_address"))
	assert.Equal(t, "35005", addr.Get("postal_code"))
	assert.Equal(t, "1", addr.Get("is_primary"))
}

func TestGetContributionSoftCredits(t *testing.T) {
	client, _ := newTestServer(t, map[string]string{
		"v4:Contribution/get": `{"entity":"Contribution","action":"get","version":4,"count":1,"values":[{"id":1,"contribution_soft.amount":20.0,"contribution_soft.soft_credit_type_id:label":"In Memory of","contribution_soft.contact_id.display_name":"Max Plank","contact_id.display_name":"Frederick Pabst"}]}`,
	})
	res, err := client.GetContributionSoftCredits(context.Background())
	require.NoError(t, err)
	v := res.First()
	require.NotNil(t, v)
	assert.Equal(t, "Frederick Pabst", v.ContactDisplayName.String())
	assert.Equal(t, "20", v.SoftAmount.Decimal())
	assert.Equal(t, "In Memory of", v.SoftCreditTypeLabel.String())
	assert.Equal(t, "Max Plank", v.SoftContactDisplayName.String())
}

func TestAPI4ErrorStatus(t *testing.T) {
	client, _ := newTestServer(t, map[string]string{
		"v4:Broken/get": `{"error_code":0,"error_message":"API (Broken, get) does not exist"}`,
	})
	_, err := call4[map[string]any](context.Background(), client, "Broken", "get", &API4GetRequest{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "does not exist")
}

func TestNetworkError(t *testing.T) {
	client := NewClient(&Config{BaseURL: "http://127.0.0.1:1"})
	_, err := client.GetContacts(context.Background(), &ContactGetRequest{})
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, "Contact.get", netErr.Operation)
}
