package crm

import (
	"context"
	"fmt"
)

// CreateGroup creates a contact group
func (c *Client) CreateGroup(ctx context.Context, req *GroupCreateRequest) (*Result[Group], error) {
	return call3[Group](ctx, c, "Group", "create", req)
}

// CreateGroupContact adds a contact to a group
func (c *Client) CreateGroupContact(ctx context.Context, req *GroupContactCreateRequest) (*Result[GroupContact], error) {
	return call3[GroupContact](ctx, c, "GroupContact", "create", req)
}

// CreateContactType creates a contact type, typically a sub-type of Individual
func (c *Client) CreateContactType(ctx context.Context, req *ContactTypeCreateRequest) (*Result[ContactType], error) {
	return call3[ContactType](ctx, c, "ContactType", "create", req)
}

// GetOptionValues lists the options of an option group such as communication_style
func (c *Client) GetOptionValues(ctx context.Context, req *OptionValueGetRequest) (*Result[OptionValue], error) {
	return call3[OptionValue](ctx, c, "OptionValue", "get", req)
}

// GetUFMatch returns the contact linked to CMS user ufID
func (c *Client) GetUFMatch(ctx context.Context, ufID ID) (*UFMatch, error) {
	res, err := call3[UFMatch](ctx, c, "UFMatch", "get", &UFMatchGetRequest{UFID: ufID})
	if err != nil {
		return nil, err
	}
	if len(res.Values) == 0 {
		return nil, fmt.Errorf("uf_match for user %s: %w", ufID, ErrNotFound)
	}
	return res.First(), nil
}

// GetLocations reads the rows of a location entity (Email, Phone, Website,
// IM, Address) belonging to a contact.
func (c *Client) GetLocations(ctx context.Context, entity string, contactID ID) (*Result[LocationRecord], error) {
	return call3[LocationRecord](ctx, c, entity, "get", &LocationGetRequest{ContactID: contactID})
}

// GetContributionSoftCredits returns the most recent contribution together
// with its soft credit, contributor and soft-credited contact.
func (c *Client) GetContributionSoftCredits(ctx context.Context) (*Result[ContributionSoftView], error) {
	return call4[ContributionSoftView](ctx, c, "Contribution", "get", &API4GetRequest{
		Select: []string{
			"id",
			"contribution_soft.amount",
			"contribution_soft.soft_credit_type_id:label",
			"contribution_soft.contact_id.display_name",
			"contact_id.display_name",
		},
		Join:             [][]any{{"ContributionSoft AS contribution_soft", "LEFT"}},
		OrderBy:          map[string]string{"id": "DESC"},
		Limit:            1,
		CheckPermissions: true,
	})
}
