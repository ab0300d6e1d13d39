package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is an isolated customer organization. Channels, messages and
// identities never cross tenant boundaries.
type Tenant struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Slug           string    `db:"slug" json:"slug"`
	Name           string    `db:"name" json:"name"`
	AppInstanceRef string    `db:"app_instance_ref" json:"app_instance_ref"`
	BearerRef      string    `db:"bearer_ref" json:"bearer_ref"`
	AdminRoleRef   string    `db:"admin_role_ref" json:"admin_role_ref"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Tenant user link statuses.
const (
	LinkStatusActive    = "active"
	LinkStatusInvited   = "invited"
	LinkStatusSuspended = "suspended"
	LinkStatusRemoved   = "removed"
)

// TenantUserLink ties a local user to a tenant. Only active links are
// eligible for config resolution.
type TenantUserLink struct {
	ID       uuid.UUID `db:"id" json:"id"`
	TenantID uuid.UUID `db:"tenant_id" json:"tenant_id"`
	UserID   uuid.UUID `db:"user_id" json:"user_id"`
	Role     string    `db:"role" json:"role"`
	Status   string    `db:"status" json:"status"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}
