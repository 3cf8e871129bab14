// Package harness assembles everything a scenario touches into one explicit
// environment value. Nothing is shared through package state: two Envs
// built from two configs are independent.
package harness

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/webform-civicrm/acceptance/internal/assertion"
	"github.com/webform-civicrm/acceptance/internal/browser"
	"github.com/webform-civicrm/acceptance/internal/config"
	"github.com/webform-civicrm/acceptance/internal/crm"
	"github.com/webform-civicrm/acceptance/internal/crm/sqlstore"
	"github.com/webform-civicrm/acceptance/internal/fixture"
	"github.com/webform-civicrm/acceptance/internal/form"
	"github.com/webform-civicrm/acceptance/internal/webform"
)

// Role names a CMS account a scenario acts as
type Role string

const (
	RoleAnonymous Role = "anonymous"
	RoleRoot      Role = "root"
	RoleAdmin     Role = "admin"
)

// Users are the configured CMS accounts
type Users struct {
	Root  config.UserCredentials
	Admin config.UserCredentials
}

// Credentials returns the account behind role
func (u Users) Credentials(role Role) (config.UserCredentials, error) {
	switch role {
	case RoleRoot:
		return u.Root, nil
	case RoleAdmin:
		return u.Admin, nil
	}
	return config.UserCredentials{}, fmt.Errorf("no credentials for role %q", role)
}

// Env is the per-run context handed to every scenario step
type Env struct {
	Config   *config.Config
	Users    Users
	Session  *browser.Session
	Auth     *browser.AuthHelper
	Form     *form.Driver
	Assert   *assertion.Asserter
	Fixtures *fixture.Builder
	CRM      *crm.Client
	Reader   crm.Reader
	Webform  *webform.Webform
	RunID    string

	store  *sqlstore.Store
	role   Role
	mu     sync.Mutex
	styles map[string]string
}

// New wires an environment for cfg. The browser is not started until Setup.
// When a database DSN is configured, record reads go straight to MySQL.
func New(cfg *config.Config) (*Env, error) {
	client := crm.NewClientFromConfig(cfg)
	var reader crm.Reader = client
	var store *sqlstore.Store
	if cfg.Database.DSN != "" {
		s, err := sqlstore.Open(cfg.Database.DSN, cfg.Database.MaxOpenConns)
		if err != nil {
			return nil, err
		}
		store, reader = s, s
		log.Printf("[harness] Reading records from database")
	}

	session := browser.NewSession(cfg)
	driver := form.NewDriver(session)
	return &Env{
		Config:   cfg,
		Users:    Users{Root: cfg.Users.Root, Admin: cfg.Users.Admin},
		Session:  session,
		Auth:     browser.NewAuthHelper(session),
		Form:     driver,
		Assert:   assertion.New(driver, reader),
		Fixtures: fixture.NewBuilder(client),
		CRM:      client,
		Reader:   reader,
		Webform:  webform.New(cfg.Webform, session, driver),
		RunID:    uuid.NewString(),
		store:    store,
		role:     RoleAnonymous,
	}, nil
}

// Setup launches the browser
func (e *Env) Setup() error {
	return e.Session.Setup()
}

// Close releases the browser and database handles
func (e *Env) Close() {
	e.Session.TearDown()
	if e.store != nil {
		_ = e.store.Close()
	}
}

// Reset starts a fresh, logged-out browser context. Records created by
// earlier scenarios stay in the CRM.
func (e *Env) Reset() error {
	if err := e.Session.Reset(); err != nil {
		return err
	}
	e.role = RoleAnonymous
	return nil
}

// Role is the account the session is logged in as
func (e *Env) Role() Role {
	return e.role
}

// LoginAs logs the session in as role, logging out any other user first
func (e *Env) LoginAs(role Role) error {
	if role == e.role {
		return nil
	}
	if role == RoleAnonymous {
		return e.Logout()
	}
	creds, err := e.Users.Credentials(role)
	if err != nil {
		return err
	}
	if e.role != RoleAnonymous {
		if err := e.Logout(); err != nil {
			return err
		}
	}
	if err := e.Auth.Login(creds); err != nil {
		return err
	}
	e.role = role
	return nil
}

// Logout ends the CMS session
func (e *Env) Logout() error {
	if e.role == RoleAnonymous {
		return nil
	}
	if err := e.Auth.Logout(); err != nil {
		return err
	}
	e.role = RoleAnonymous
	return nil
}

// CurrentContactID returns the CRM contact linked to the logged-in CMS user
func (e *Env) CurrentContactID(ctx context.Context) (crm.ID, error) {
	uid, err := e.Auth.CurrentUserID()
	if err != nil {
		return "", err
	}
	match, err := e.Reader.GetUFMatch(ctx, crm.ID(uid))
	if err != nil {
		return "", fmt.Errorf("contact of user %s: %w", uid, err)
	}
	return match.ContactID, nil
}

// DisplayName reads a contact's display name
func (e *Env) DisplayName(ctx context.Context, id crm.ID) (string, error) {
	return e.CRM.GetContactValue(ctx, &crm.ContactGetValueRequest{ID: id, Return: "display_name"})
}

// CommunicationStyles maps communication style names (formal, familiar) to
// option values. A configured snapshot wins over the live lookup; either
// way the result is cached for the life of the Env.
func (e *Env) CommunicationStyles(ctx context.Context) (map[string]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.styles != nil {
		return e.styles, nil
	}
	if snapshot := e.Config.Fixtures.CommunicationStyles; len(snapshot) > 0 {
		e.styles = snapshot
		return e.styles, nil
	}
	res, err := e.CRM.GetOptionValues(ctx, &crm.OptionValueGetRequest{OptionGroupID: "communication_style"})
	if err != nil {
		return nil, fmt.Errorf("failed to load communication styles: %w", err)
	}
	styles := make(map[string]string, len(res.Values))
	for _, ov := range res.Values {
		styles[ov.Name] = ov.Value.String()
	}
	e.styles = styles
	return styles, nil
}

// UniqueTitle suffixes prefix with a short random id so repeated runs
// against one site do not collide
func (e *Env) UniqueTitle(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

// CaptureFailure saves a screenshot for a failed scenario
func (e *Env) CaptureFailure(name string) (string, error) {
	return e.Session.CaptureFailure(name)
}
