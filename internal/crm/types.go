package crm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ID is a record identifier. APIv3 returns ids as strings, APIv4 as numbers;
// both decode to the same value.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	s, err := decodeScalar(data)
	if err != nil {
		return fmt.Errorf("crm: invalid id %s: %w", data, err)
	}
	*id = ID(s)
	return nil
}

// IDFromInt formats a numeric identifier
func IDFromInt(n int64) ID {
	return ID(strconv.FormatInt(n, 10))
}

// Int64 returns the numeric value of id, or 0 when it is not numeric
func (id ID) Int64() int64 {
	n, _ := strconv.ParseInt(string(id), 10, 64)
	return n
}

func (id ID) IsZero() bool {
	return id == "" || id == "0"
}

func (id ID) String() string {
	return string(id)
}

// Scalar is a field value that may arrive as a JSON string, number, bool or null
type Scalar string

func (s *Scalar) UnmarshalJSON(data []byte) error {
	v, err := decodeScalar(data)
	if err != nil {
		return err
	}
	*s = Scalar(v)
	return nil
}

func (s Scalar) String() string {
	return string(s)
}

// Float parses s as a decimal number
func (s Scalar) Float() (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(string(s)), 64)
}

// Decimal renders a numeric scalar without trailing zeros ("20.00" -> "20").
// Non-numeric values are returned unchanged.
func (s Scalar) Decimal() string {
	f, err := s.Float()
	if err != nil {
		return string(s)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func decodeScalar(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", nil
	}
	switch data[0] {
	case '{', '[':
		// nested values are kept verbatim
		return string(data), nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return "", err
		}
		if b {
			return "1", nil
		}
		return "0", nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return "", err
		}
		return n.String(), nil
	}
}

// StringList decodes multi-value fields such as contact_sub_type, which the
// CRM returns as an array, an empty string, null, or a \x01 separated string.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var items []Scalar
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		out := make(StringList, 0, len(items))
		for _, it := range items {
			out = append(out, string(it))
		}
		*l = out
		return nil
	}
	s, err := decodeScalar(data)
	if err != nil {
		return err
	}
	*l = SplitSeparated(s)
	return nil
}

// SplitSeparated splits a CRM value-separated string ("\x01A\x01B\x01")
func SplitSeparated(s string) StringList {
	var out StringList
	for _, part := range strings.Split(s, "\x01") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Join concatenates the list the way the original data is compared ("First_Contact")
func (l StringList) Join() string {
	return strings.Join(l, "")
}

// Result is the decoded response of one record-store call
type Result[T any] struct {
	IsError      bool
	ErrorMessage string
	Count        int
	ID           ID
	Values       []T
	// Records holds the same values as loosely typed maps for diagnostics
	Records []map[string]any
	Raw     json.RawMessage
}

// First returns the first value or nil
func (r *Result[T]) First() *T {
	if r == nil || len(r.Values) == 0 {
		return nil
	}
	return &r.Values[0]
}

// decodeValues accepts both the sequential (array) and the id-keyed (object) form
func decodeValues[T any](raw json.RawMessage) ([]T, []map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil, nil
	}
	if raw[0] == '[' {
		var values []T
		if err := json.Unmarshal(raw, &values); err != nil {
			return nil, nil, err
		}
		var records []map[string]any
		_ = json.Unmarshal(raw, &records)
		return values, records, nil
	}

	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keyed); err != nil {
		return nil, nil, err
	}
	keys := make([]string, 0, len(keyed))
	for k := range keyed {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})
	values := make([]T, 0, len(keys))
	records := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		var v T
		if err := json.Unmarshal(keyed[k], &v); err != nil {
			return nil, nil, err
		}
		values = append(values, v)
		var rec map[string]any
		_ = json.Unmarshal(keyed[k], &rec)
		records = append(records, rec)
	}
	return values, records, nil
}

// Contact is an Individual, Household or Organization record
type Contact struct {
	ID                   ID         `json:"id" yaml:"id"`
	ContactID            ID         `json:"contact_id" yaml:"contact_id"`
	ContactType          string     `json:"contact_type" yaml:"contact_type"`
	ContactSubType       StringList `json:"contact_sub_type" yaml:"contact_sub_type"`
	FirstName            string     `json:"first_name" yaml:"first_name"`
	LastName             string     `json:"last_name" yaml:"last_name"`
	NickName             string     `json:"nick_name" yaml:"nick_name"`
	DisplayName          string     `json:"display_name" yaml:"display_name"`
	Email                string     `json:"email" yaml:"email"`
	CommunicationStyleID Scalar     `json:"communication_style_id" yaml:"communication_style_id"`
}

// Key returns contact_id when present, id otherwise
func (c Contact) Key() ID {
	if !c.ContactID.IsZero() {
		return c.ContactID
	}
	return c.ID
}

type Group struct {
	ID    ID     `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
	Name  string `json:"name" yaml:"name"`
}

type GroupContact struct {
	ID        ID     `json:"id"`
	GroupID   ID     `json:"group_id"`
	ContactID ID     `json:"contact_id"`
	Status    string `json:"status"`
}

type ContactType struct {
	ID       ID     `json:"id"`
	Name     string `json:"name"`
	Label    string `json:"label"`
	ParentID ID     `json:"parent_id"`
	IsActive Scalar `json:"is_active"`
}

type OptionValue struct {
	ID            ID     `json:"id"`
	OptionGroupID ID     `json:"option_group_id"`
	Name          string `json:"name"`
	Label         string `json:"label"`
	Value         Scalar `json:"value"`
}

// UFMatch links a CMS user account to its CRM contact
type UFMatch struct {
	ID        ID `json:"id" db:"id"`
	UFID      ID `json:"uf_id" db:"uf_id"`
	ContactID ID `json:"contact_id" db:"contact_id"`
}

// LocationRecord is an email, phone, website, im or address row. Field sets
// differ per entity, so values stay keyed by field name.
type LocationRecord map[string]Scalar

// Get returns the string form of field
func (r LocationRecord) Get(field string) string {
	return string(r[field])
}

// ContributionSoftView is a contribution joined with its soft credit
type ContributionSoftView struct {
	ID                     ID     `json:"id"`
	ContactDisplayName     Scalar `json:"contact_id.display_name"`
	SoftAmount             Scalar `json:"contribution_soft.amount"`
	SoftCreditTypeLabel    Scalar `json:"contribution_soft.soft_credit_type_id:label"`
	SoftContactDisplayName Scalar `json:"contribution_soft.contact_id.display_name"`
}

// ContactCreateRequest creates a contact, or updates it when ID is set
type ContactCreateRequest struct {
	ID             ID       `json:"id,omitempty"`
	ContactType    string   `json:"contact_type,omitempty"`
	ContactSubType []string `json:"contact_sub_type,omitempty"`
	FirstName      string   `json:"first_name,omitempty"`
	LastName       string   `json:"last_name,omitempty"`
	NickName       string   `json:"nick_name,omitempty"`
	Email          string   `json:"email,omitempty"`
}

// ContactGetRequest filters contacts; zero fields are not sent
type ContactGetRequest struct {
	ID          ID       `json:"id,omitempty"`
	ContactType string   `json:"contact_type,omitempty"`
	FirstName   string   `json:"first_name,omitempty"`
	LastName    string   `json:"last_name,omitempty"`
	Return      []string `json:"return,omitempty"`
}

type ContactGetValueRequest struct {
	ID     ID     `json:"id"`
	Return string `json:"return"`
}

type GroupCreateRequest struct {
	Title    string `json:"title"`
	Name     string `json:"name,omitempty"`
	IsActive int    `json:"is_active,omitempty"`
}

type GroupContactCreateRequest struct {
	GroupID   ID `json:"group_id"`
	ContactID ID `json:"contact_id"`
}

type ContactTypeCreateRequest struct {
	Name     string `json:"name"`
	Label    string `json:"label,omitempty"`
	ParentID string `json:"parent_id"`
	IsActive int    `json:"is_active"`
}

type OptionValueGetRequest struct {
	OptionGroupID string `json:"option_group_id"`
}

type UFMatchGetRequest struct {
	UFID ID `json:"uf_id"`
}

// LocationGetRequest reads the location rows (email, phone, ...) of a contact
type LocationGetRequest struct {
	ContactID ID `json:"contact_id"`
}

// API4GetRequest is the parameter set of an APIv4 get action
type API4GetRequest struct {
	Select           []string          `json:"select,omitempty"`
	Join             [][]any           `json:"join,omitempty"`
	Where            [][]any           `json:"where,omitempty"`
	OrderBy          map[string]string `json:"orderBy,omitempty"`
	Limit            int               `json:"limit,omitempty"`
	CheckPermissions bool              `json:"checkPermissions"`
}
