// Package sqlstore reads CRM records straight from the CiviCRM MySQL schema.
// It is an optional alternative to the REST client for read-after-write
// checks when the test database is reachable from the runner.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/webform-civicrm/acceptance/internal/crm"
)

// Store implements crm.Reader on top of a database handle
type Store struct {
	db *sqlx.DB
}

var _ crm.Reader = (*Store)(nil)

// Open connects to the CRM database described by a go-sql-driver DSN
func Open(dsn string, maxOpenConns int) (*Store, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid database dsn: %w", err)
	}
	cfg.ParseTime = true
	db, err := sqlx.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	return New(db), nil
}

// New wraps an existing handle
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type contactRow struct {
	ID             int64          `db:"id"`
	ContactType    sql.NullString `db:"contact_type"`
	ContactSubType sql.NullString `db:"contact_sub_type"`
	FirstName      sql.NullString `db:"first_name"`
	LastName       sql.NullString `db:"last_name"`
	NickName       sql.NullString `db:"nick_name"`
	DisplayName    sql.NullString `db:"display_name"`
	CommStyleID    sql.NullInt64  `db:"communication_style_id"`
	Email          sql.NullString `db:"email"`
}

func (r contactRow) toContact() crm.Contact {
	id := crm.IDFromInt(r.ID)
	return crm.Contact{
		ID:             id,
		ContactID:      id,
		ContactType:    r.ContactType.String,
		ContactSubType: crm.SplitSeparated(r.ContactSubType.String),
		FirstName:      r.FirstName.String,
		LastName:       r.LastName.String,
		NickName:       r.NickName.String,
		DisplayName:    r.DisplayName.String,
		Email:          r.Email.String,

		CommunicationStyleID: r.commStyle(),
	}
}

func (r contactRow) commStyle() crm.Scalar {
	if !r.CommStyleID.Valid {
		return ""
	}
	return crm.Scalar(strconv.FormatInt(r.CommStyleID.Int64, 10))
}

func (r contactRow) toRecord() map[string]any {
	return map[string]any{
		"id":               r.ID,
		"contact_type":     r.ContactType.String,
		"contact_sub_type": crm.SplitSeparated(r.ContactSubType.String),
		"first_name":       r.FirstName.String,
		"last_name":        r.LastName.String,
		"nick_name":        r.NickName.String,
		"display_name":     r.DisplayName.String,
		"email":            r.Email.String,

		"communication_style_id": r.commStyle().String(),
	}
}

// contactColumns mirrors the APIv3 Contact.get default return, primary email included
const contactColumns = "id, contact_type, contact_sub_type, first_name, last_name, nick_name, display_name, communication_style_id, " +
	"(SELECT e.email FROM civicrm_email e WHERE e.contact_id = civicrm_contact.id AND e.is_primary = 1 LIMIT 1) AS email"

// contactFilter renders the WHERE clause for req. Deleted contacts are never matched.
func contactFilter(req *crm.ContactGetRequest) (string, []any) {
	conds := []string{"is_deleted = 0"}
	var args []any
	if req != nil {
		if !req.ID.IsZero() {
			conds = append(conds, "id = ?")
			args = append(args, req.ID.Int64())
		}
		if req.ContactType != "" {
			conds = append(conds, "contact_type = ?")
			args = append(args, req.ContactType)
		}
		if req.FirstName != "" {
			conds = append(conds, "first_name = ?")
			args = append(args, req.FirstName)
		}
		if req.LastName != "" {
			conds = append(conds, "last_name = ?")
			args = append(args, req.LastName)
		}
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// GetContacts selects contacts matching req ordered by id
func (s *Store) GetContacts(ctx context.Context, req *crm.ContactGetRequest) (*crm.Result[crm.Contact], error) {
	where, args := contactFilter(req)
	query := "SELECT " + contactColumns + " FROM civicrm_contact" + where + " ORDER BY id"

	var rows []contactRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select contacts: %w", err)
	}
	res := &crm.Result[crm.Contact]{Count: len(rows)}
	for _, r := range rows {
		res.Values = append(res.Values, r.toContact())
		res.Records = append(res.Records, r.toRecord())
	}
	return res, nil
}

// CountContacts counts contacts matching req
func (s *Store) CountContacts(ctx context.Context, req *crm.ContactGetRequest) (int, error) {
	where, args := contactFilter(req)
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM civicrm_contact"+where, args...); err != nil {
		return 0, fmt.Errorf("count contacts: %w", err)
	}
	return n, nil
}

// GetUFMatch returns the contact linked to CMS user ufID
func (s *Store) GetUFMatch(ctx context.Context, ufID crm.ID) (*crm.UFMatch, error) {
	var row struct {
		ID        int64 `db:"id"`
		UFID      int64 `db:"uf_id"`
		ContactID int64 `db:"contact_id"`
	}
	err := s.db.GetContext(ctx, &row, "SELECT id, uf_id, contact_id FROM civicrm_uf_match WHERE uf_id = ? LIMIT 1", ufID.Int64())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("uf_match for user %s: %w", ufID, crm.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select uf_match: %w", err)
	}
	return &crm.UFMatch{
		ID:        crm.IDFromInt(row.ID),
		UFID:      crm.IDFromInt(row.UFID),
		ContactID: crm.IDFromInt(row.ContactID),
	}, nil
}
