package models

import (
	"time"

	"github.com/google/uuid"
)

// Channel mirrors a channel that lives in the remote messaging provider.
// RemoteRef is set exactly once, at creation or first sync, and is
// immutable afterwards.
type Channel struct {
	ID               uuid.UUID `db:"id" json:"id"`
	TenantID         uuid.UUID `db:"tenant_id" json:"tenant_id"`
	Name             string    `db:"name" json:"name"`
	Description      string    `db:"description" json:"description"`
	IsPrivate        bool      `db:"is_private" json:"is_private"`
	IsDefaultGeneral bool      `db:"is_default_general" json:"is_default_general"`
	RemoteRef        string    `db:"remote_ref" json:"remote_ref"`
	RemoteMode       string    `db:"remote_mode" json:"remote_mode"`
	RemotePrivacy    string    `db:"remote_privacy" json:"remote_privacy"`
	CreatedBy        uuid.UUID `db:"created_by" json:"created_by"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// ChannelMember is the local mirror of channel membership.
type ChannelMember struct {
	ChannelID uuid.UUID `db:"channel_id" json:"channel_id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	IsAdmin   bool      `db:"is_admin" json:"is_admin"`
	AddedAt   time.Time `db:"added_at" json:"added_at"`
}

// ChannelMemberView is a member entry as returned by the roster listing,
// the membership row joined with the local moderator grant.
type ChannelMemberView struct {
	ChannelMember
	IsModerator bool `json:"is_moderator"`
}

// RoleModerator is the only channel-scoped role granted locally; it mirrors
// but does not replace the remote provider's own moderator list.
const RoleModerator = "moderator"

// ChannelRoleAssignment is a local moderator grant.
type ChannelRoleAssignment struct {
	ChannelID uuid.UUID `db:"channel_id" json:"channel_id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Role      string    `db:"role" json:"role"`
	GrantedAt time.Time `db:"granted_at" json:"granted_at"`
}
