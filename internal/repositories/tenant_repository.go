package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"discussion-service/internal/models"
)

var (
	ErrLinkNotFound   = errors.New("tenant user link not found")
	ErrTenantNotFound = errors.New("tenant not found")
)

// TenantRepository loads tenants and tenant-user links for config resolution.
type TenantRepository interface {
	ActiveLinkForUser(ctx context.Context, userID uuid.UUID) (models.TenantUserLink, error)
	GetTenant(ctx context.Context, tenantID uuid.UUID) (models.Tenant, error)
	ListConfigured(ctx context.Context) ([]models.Tenant, error)
}

// TenantRepo is a sqlx implementation of TenantRepository.
type TenantRepo struct {
	db *sqlx.DB
}

// NewTenantRepo constructs a TenantRepo.
func NewTenantRepo(db *sqlx.DB) *TenantRepo {
	return &TenantRepo{db: db}
}

// ActiveLinkForUser returns the most recently joined active link for the user.
func (r *TenantRepo) ActiveLinkForUser(ctx context.Context, userID uuid.UUID) (models.TenantUserLink, error) {
	var link models.TenantUserLink
	err := r.db.GetContext(ctx, &link, `SELECT id, tenant_id, user_id, role, status, joined_at
        FROM tenant_user_links
        WHERE user_id=$1 AND status=$2
        ORDER BY joined_at DESC
        LIMIT 1`, userID, models.LinkStatusActive)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TenantUserLink{}, ErrLinkNotFound
	}
	return link, err
}

// GetTenant fetches a tenant by id.
func (r *TenantRepo) GetTenant(ctx context.Context, tenantID uuid.UUID) (models.Tenant, error) {
	var tenant models.Tenant
	err := r.db.GetContext(ctx, &tenant, `SELECT id, slug, name, app_instance_ref, bearer_ref, admin_role_ref, created_at
        FROM tenants WHERE id=$1`, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Tenant{}, ErrTenantNotFound
	}
	return tenant, err
}

// ListConfigured returns tenants carrying a remote application instance,
// the population the reconciliation pass walks.
func (r *TenantRepo) ListConfigured(ctx context.Context) ([]models.Tenant, error) {
	var tenants []models.Tenant
	err := r.db.SelectContext(ctx, &tenants, `SELECT id, slug, name, app_instance_ref, bearer_ref, admin_role_ref, created_at
        FROM tenants WHERE app_instance_ref <> '' ORDER BY created_at`)
	return tenants, err
}
