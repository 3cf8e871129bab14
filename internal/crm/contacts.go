package crm

import (
	"context"
	"fmt"
	"strconv"
)

// CreateContact creates a contact, or updates one when req.ID is set
func (c *Client) CreateContact(ctx context.Context, req *ContactCreateRequest) (*Result[Contact], error) {
	return call3[Contact](ctx, c, "Contact", "create", req)
}

// GetContacts retrieves contacts matching req
func (c *Client) GetContacts(ctx context.Context, req *ContactGetRequest) (*Result[Contact], error) {
	return call3[Contact](ctx, c, "Contact", "get", req)
}

// GetContact retrieves a single contact by id
func (c *Client) GetContact(ctx context.Context, id ID) (*Contact, error) {
	res, err := c.GetContacts(ctx, &ContactGetRequest{ID: id})
	if err != nil {
		return nil, err
	}
	if res.Count == 0 || len(res.Values) == 0 {
		return nil, fmt.Errorf("contact %s: %w", id, ErrNotFound)
	}
	return res.First(), nil
}

// GetContactValue reads one field of one contact, e.g. display_name
func (c *Client) GetContactValue(ctx context.Context, req *ContactGetValueRequest) (string, error) {
	return c.callScalar(ctx, "Contact", "getvalue", req)
}

// CountContacts returns the number of contacts matching req
func (c *Client) CountContacts(ctx context.Context, req *ContactGetRequest) (int, error) {
	v, err := c.callScalar(ctx, "Contact", "getcount", req)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("Contact.getcount returned %q: %w", v, err)
	}
	return n, nil
}
