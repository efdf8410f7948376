// Package tenant models the tenancy hierarchy syncd enumerates: tenants own
// projects, projects own linked accounts, and a linked account owns at most
// one connection per provider.
package tenant

import (
	"context"
	"errors"
	"time"

	"github.com/unifiedsync/syncd/domain/entity"
)

// ErrNoConnection indicates a linked account has no connection to a provider.
// It is a normal skip, not a failure.
var ErrNoConnection = errors.New("no connection for linked account")

// Tenant is the top-level owner of projects.
type Tenant struct {
	id        string
	email     string
	createdAt time.Time
}

// NewTenant creates a Tenant.
func NewTenant(id, email string, createdAt time.Time) Tenant {
	return Tenant{id: id, email: email, createdAt: createdAt}
}

// ID returns the tenant id.
func (t Tenant) ID() string { return t.id }

// Email returns the tenant contact email.
func (t Tenant) Email() string { return t.email }

// CreatedAt returns the creation time.
func (t Tenant) CreatedAt() time.Time { return t.createdAt }

// Project groups linked accounts and receives webhooks.
type Project struct {
	id       string
	name     string
	tenantID string
}

// NewProject creates a Project.
func NewProject(id, name, tenantID string) Project {
	return Project{id: id, name: name, tenantID: tenantID}
}

// ID returns the project id.
func (p Project) ID() string { return p.id }

// Name returns the project name.
func (p Project) Name() string { return p.name }

// TenantID returns the owning tenant id.
func (p Project) TenantID() string { return p.tenantID }

// LinkedAccount is an end-customer identity inside a project.
type LinkedAccount struct {
	id        string
	originID  string
	alias     string
	projectID string
}

// NewLinkedAccount creates a LinkedAccount.
func NewLinkedAccount(id, originID, alias, projectID string) LinkedAccount {
	return LinkedAccount{id: id, originID: originID, alias: alias, projectID: projectID}
}

// ID returns the linked account id.
func (l LinkedAccount) ID() string { return l.id }

// OriginID returns the id the tenant uses for this account.
func (l LinkedAccount) OriginID() string { return l.originID }

// Alias returns a display alias.
func (l LinkedAccount) Alias() string { return l.alias }

// ProjectID returns the owning project id.
func (l LinkedAccount) ProjectID() string { return l.projectID }

// Connection binds a linked account to a provider within a vertical.
// Connections are read-only to the pipeline.
type Connection struct {
	id              string
	provider        string
	vertical        entity.Vertical
	status          string
	linkedAccountID string
	projectID       string
	createdAt       time.Time
}

// NewConnection creates a Connection.
func NewConnection(
	id, provider string,
	vertical entity.Vertical,
	status, linkedAccountID, projectID string,
	createdAt time.Time,
) Connection {
	return Connection{
		id:              id,
		provider:        provider,
		vertical:        vertical,
		status:          status,
		linkedAccountID: linkedAccountID,
		projectID:       projectID,
		createdAt:       createdAt,
	}
}

// ID returns the connection id.
func (c Connection) ID() string { return c.id }

// Provider returns the provider slug.
func (c Connection) Provider() string { return c.provider }

// Vertical returns the vertical the connection was made for.
func (c Connection) Vertical() entity.Vertical { return c.vertical }

// Status returns the connection status ("valid", "revoked"...).
func (c Connection) Status() string { return c.status }

// LinkedAccountID returns the linked account id.
func (c Connection) LinkedAccountID() string { return c.linkedAccountID }

// ProjectID returns the project id.
func (c Connection) ProjectID() string { return c.projectID }

// CreatedAt returns the creation time.
func (c Connection) CreatedAt() time.Time { return c.createdAt }

// Directory enumerates the tenancy hierarchy.
type Directory interface {
	Tenants(ctx context.Context) ([]Tenant, error)
	Projects(ctx context.Context, tenantID string) ([]Project, error)
	LinkedAccounts(ctx context.Context, projectID string) ([]LinkedAccount, error)
	LinkedAccount(ctx context.Context, id string) (LinkedAccount, error)
}

// ConnectionStore resolves connections.
type ConnectionStore interface {
	// Find returns the connection for (linked account, provider, vertical),
	// or an error wrapping ErrNoConnection.
	Find(ctx context.Context, linkedAccountID, provider string, vertical entity.Vertical) (Connection, error)
	Get(ctx context.Context, id string) (Connection, error)
}
