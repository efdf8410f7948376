package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/unifiedsync/syncd/domain/entity"
	"github.com/unifiedsync/syncd/domain/store"
	"github.com/unifiedsync/syncd/domain/tenant"
	"github.com/unifiedsync/syncd/internal/database"
)

// TenantStore implements tenant.Directory using GORM.
type TenantStore struct {
	tenants  database.Repository[tenant.Tenant, TenantModel]
	projects database.Repository[tenant.Project, ProjectModel]
	accounts database.Repository[tenant.LinkedAccount, LinkedAccountModel]
}

// NewTenantStore creates a new TenantStore.
func NewTenantStore(db database.Database) TenantStore {
	return TenantStore{
		tenants:  database.NewRepository[tenant.Tenant, TenantModel](db, TenantMapper{}, "tenant"),
		projects: database.NewRepository[tenant.Project, ProjectModel](db, ProjectMapper{}, "project"),
		accounts: database.NewRepository[tenant.LinkedAccount, LinkedAccountModel](db, LinkedAccountMapper{}, "linked account"),
	}
}

// Tenants returns every tenant ordered by creation time.
func (s TenantStore) Tenants(ctx context.Context) ([]tenant.Tenant, error) {
	return s.tenants.Find(ctx, store.WithOrderAsc("created_at"), store.WithOrderAsc("id_user"))
}

// Projects returns the projects of a tenant.
func (s TenantStore) Projects(ctx context.Context, tenantID string) ([]tenant.Project, error) {
	return s.projects.Find(ctx, store.WithTenantID(tenantID), store.WithOrderAsc("id_project"))
}

// LinkedAccounts returns the linked accounts of a project.
func (s TenantStore) LinkedAccounts(ctx context.Context, projectID string) ([]tenant.LinkedAccount, error) {
	return s.accounts.Find(ctx, store.WithProjectID(projectID), store.WithOrderAsc("id_linked_user"))
}

// LinkedAccount returns one linked account by id.
func (s TenantStore) LinkedAccount(ctx context.Context, id string) (tenant.LinkedAccount, error) {
	la, err := s.accounts.FindOne(ctx, store.WithLinkedAccountID(id))
	if errors.Is(err, database.ErrNotFound) {
		return tenant.LinkedAccount{}, fmt.Errorf("%w: linked account %s", entity.ErrNotFound, id)
	}
	return la, err
}

// SaveTenant creates or updates a tenant. An empty id is assigned a UUID.
func (s TenantStore) SaveTenant(ctx context.Context, t tenant.Tenant) (tenant.Tenant, error) {
	return s.tenants.Save(ctx, t)
}

// SaveProject creates or updates a project. An empty id is assigned a UUID.
func (s TenantStore) SaveProject(ctx context.Context, p tenant.Project) (tenant.Project, error) {
	return s.projects.Save(ctx, p)
}

// SaveLinkedAccount creates or updates a linked account. An empty id is
// assigned a UUID.
func (s TenantStore) SaveLinkedAccount(ctx context.Context, l tenant.LinkedAccount) (tenant.LinkedAccount, error) {
	return s.accounts.Save(ctx, l)
}
