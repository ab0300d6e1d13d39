package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"discussion-service/internal/repositories"
)

// TenantConfig is the remote-provider configuration resolved for one
// operation. Callers must not hold it across requests: resolution is
// repeated from durable storage on every call so per-tenant isolation can
// never leak into a shared default.
type TenantConfig struct {
	TenantID       uuid.UUID
	LinkID         uuid.UUID
	AppInstanceRef string
	BearerRef      string
	AdminRoleRef   string
}

// TenantConfigResolver maps a local user to the tenant configuration that
// governs their messaging operations. Pure read; no fallback exists when
// the tenant is absent or misconfigured.
type TenantConfigResolver struct {
	tenants repositories.TenantRepository
}

// NewTenantConfigResolver constructs a resolver.
func NewTenantConfigResolver(tenants repositories.TenantRepository) *TenantConfigResolver {
	return &TenantConfigResolver{tenants: tenants}
}

// Resolve loads the user's most recent active tenant link and the tenant's
// remote configuration.
func (r *TenantConfigResolver) Resolve(ctx context.Context, userID uuid.UUID) (TenantConfig, error) {
	link, err := r.tenants.ActiveLinkForUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrLinkNotFound) {
			return TenantConfig{}, fmt.Errorf("user %s: %w", userID, ErrNoActiveTenant)
		}
		return TenantConfig{}, fmt.Errorf("load tenant link: %w", err)
	}

	tenant, err := r.tenants.GetTenant(ctx, link.TenantID)
	if err != nil {
		if errors.Is(err, repositories.ErrTenantNotFound) {
			return TenantConfig{}, fmt.Errorf("tenant %s: %w", link.TenantID, ErrTenantNotFound)
		}
		return TenantConfig{}, fmt.Errorf("load tenant: %w", err)
	}

	if tenant.AppInstanceRef == "" {
		return TenantConfig{}, fmt.Errorf("tenant %s: %w", tenant.ID, ErrTenantMisconfigured)
	}

	return TenantConfig{
		TenantID:       tenant.ID,
		LinkID:         link.ID,
		AppInstanceRef: tenant.AppInstanceRef,
		BearerRef:      tenant.BearerRef,
		AdminRoleRef:   tenant.AdminRoleRef,
	}, nil
}
