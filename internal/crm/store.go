package crm

import "context"

// Reader is the read side of the record store used by assertions
type Reader interface {
	GetContacts(ctx context.Context, req *ContactGetRequest) (*Result[Contact], error)
	CountContacts(ctx context.Context, req *ContactGetRequest) (int, error)
	GetUFMatch(ctx context.Context, ufID ID) (*UFMatch, error)
}

// Writer is the create side of the record store used by fixtures
type Writer interface {
	CreateContact(ctx context.Context, req *ContactCreateRequest) (*Result[Contact], error)
	CreateGroup(ctx context.Context, req *GroupCreateRequest) (*Result[Group], error)
	CreateGroupContact(ctx context.Context, req *GroupContactCreateRequest) (*Result[GroupContact], error)
	CreateContactType(ctx context.Context, req *ContactTypeCreateRequest) (*Result[ContactType], error)
}

var (
	_ Reader = (*Client)(nil)
	_ Writer = (*Client)(nil)
)
