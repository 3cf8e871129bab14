// Package fixture creates the CRM records scenarios depend on. Any create
// call the record store rejects aborts the build with an errors.FixtureError
// carrying the raw response.
package fixture

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/webform-civicrm/acceptance/internal/crm"
	herrors "github.com/webform-civicrm/acceptance/internal/errors"
)

// ContactSpec describes one contact to create
type ContactSpec struct {
	ContactType string
	SubTypes    []string
	FirstName   string
	LastName    string
	NickName    string
	Email       string
}

// GroupFixture is a group and the contacts created alongside it. Members
// are in the group; NonMembers are not.
type GroupFixture struct {
	Group      crm.Group
	Contacts   []crm.Contact
	Members    []crm.Contact
	NonMembers []crm.Contact
}

// Builder creates fixtures through a record-store writer
type Builder struct {
	writer crm.Writer
}

func NewBuilder(writer crm.Writer) *Builder {
	return &Builder{writer: writer}
}

func fail(op string, err error) error {
	return herrors.NewFixtureError(op, crm.PayloadOf(err), err)
}

func first[T any](op string, res *crm.Result[T]) (T, error) {
	var zero T
	if res == nil || res.IsError || len(res.Values) == 0 {
		var raw []byte
		if res != nil {
			raw = res.Raw
		}
		return zero, herrors.NewFixtureError(op, raw, fmt.Errorf("no record returned"))
	}
	return res.Values[0], nil
}

// SequentialSpecs returns n Individuals named firstPrefix1 lastPrefix1 .. firstPrefixN lastPrefixN
func SequentialSpecs(n int, firstPrefix, lastPrefix string) []ContactSpec {
	specs := make([]ContactSpec, n)
	for i := range specs {
		specs[i] = ContactSpec{
			ContactType: "Individual",
			FirstName:   fmt.Sprintf("%s%d", firstPrefix, i+1),
			LastName:    fmt.Sprintf("%s%d", lastPrefix, i+1),
		}
	}
	return specs
}

// CreateContact creates one contact
func (b *Builder) CreateContact(ctx context.Context, spec ContactSpec) (crm.Contact, error) {
	contactType := spec.ContactType
	if contactType == "" {
		contactType = "Individual"
	}
	op := fmt.Sprintf("Contact.create %s %s", spec.FirstName, spec.LastName)
	res, err := b.writer.CreateContact(ctx, &crm.ContactCreateRequest{
		ContactType:    contactType,
		ContactSubType: spec.SubTypes,
		FirstName:      spec.FirstName,
		LastName:       spec.LastName,
		NickName:       spec.NickName,
		Email:          spec.Email,
	})
	if err != nil {
		return crm.Contact{}, fail(op, err)
	}
	return first(op, res)
}

// CreateContacts creates contacts in spec order
func (b *Builder) CreateContacts(ctx context.Context, specs []ContactSpec) ([]crm.Contact, error) {
	contacts := make([]crm.Contact, 0, len(specs))
	for _, spec := range specs {
		c, err := b.CreateContact(ctx, spec)
		if err != nil {
			return contacts, err
		}
		contacts = append(contacts, c)
	}
	return contacts, nil
}

// CreateGroup creates an active group
func (b *Builder) CreateGroup(ctx context.Context, title string) (crm.Group, error) {
	op := "Group.create " + title
	res, err := b.writer.CreateGroup(ctx, &crm.GroupCreateRequest{Title: title, IsActive: 1})
	if err != nil {
		return crm.Group{}, fail(op, err)
	}
	g, err := first(op, res)
	if err != nil {
		return crm.Group{}, err
	}
	if g.Title == "" {
		g.Title = title
	}
	log.Printf("[fixture] Created group %q id=%s", g.Title, g.ID)
	return g, nil
}

// AddToGroup adds contact to group
func (b *Builder) AddToGroup(ctx context.Context, group crm.Group, contact crm.Contact) error {
	op := fmt.Sprintf("GroupContact.create group=%s contact=%s", group.ID, contact.Key())
	res, err := b.writer.CreateGroupContact(ctx, &crm.GroupContactCreateRequest{
		GroupID:   group.ID,
		ContactID: contact.Key(),
	})
	if err != nil {
		return fail(op, err)
	}
	if res == nil || res.IsError {
		return herrors.NewFixtureError(op, nil, fmt.Errorf("membership not created"))
	}
	return nil
}

// CreateGroupWithContacts creates n contacts named Fred1 Pabst1 .. FredN PabstN
// and a group titled title holding every contact except the last one.
func (b *Builder) CreateGroupWithContacts(ctx context.Context, title string, n int) (*GroupFixture, error) {
	if n < 1 {
		return nil, fmt.Errorf("group fixture needs at least one contact, got %d", n)
	}
	contacts, err := b.CreateContacts(ctx, SequentialSpecs(n, "Fred", "Pabst"))
	if err != nil {
		return nil, err
	}
	group, err := b.CreateGroup(ctx, title)
	if err != nil {
		return nil, err
	}
	fx := &GroupFixture{Group: group, Contacts: contacts}
	for i, c := range contacts {
		if i == len(contacts)-1 {
			fx.NonMembers = append(fx.NonMembers, c)
			continue
		}
		if err := b.AddToGroup(ctx, group, c); err != nil {
			return nil, err
		}
		fx.Members = append(fx.Members, c)
	}
	return fx, nil
}

// CreateIndividual creates the single contact most submission scenarios start from
func (b *Builder) CreateIndividual(ctx context.Context) (crm.Contact, error) {
	return b.CreateContact(ctx, ContactSpec{
		ContactType: "Individual",
		FirstName:   "Frederick",
		LastName:    "Pabst",
	})
}

// SubTypeName is the machine name the record store derives from a sub-type label
func SubTypeName(label string) string {
	return strings.ReplaceAll(strings.TrimSpace(label), " ", "_")
}

// CreateContactSubType creates an active contact sub-type of parent
func (b *Builder) CreateContactSubType(ctx context.Context, label, parent string) (crm.ContactType, error) {
	op := "ContactType.create " + label
	res, err := b.writer.CreateContactType(ctx, &crm.ContactTypeCreateRequest{
		Name:     SubTypeName(label),
		Label:    label,
		ParentID: parent,
		IsActive: 1,
	})
	if err != nil {
		return crm.ContactType{}, fail(op, err)
	}
	return first(op, res)
}

// UpdateContactName renames an existing contact
func (b *Builder) UpdateContactName(ctx context.Context, id crm.ID, firstName, lastName string) (crm.Contact, error) {
	op := "Contact.create id=" + id.String()
	res, err := b.writer.CreateContact(ctx, &crm.ContactCreateRequest{
		ID:        id,
		FirstName: firstName,
		LastName:  lastName,
	})
	if err != nil {
		return crm.Contact{}, fail(op, err)
	}
	return first(op, res)
}
