package models

import (
	"time"

	"github.com/google/uuid"
)

// ChannelMembership is per-user per-channel read state. Exactly one row per
// (channel, user): created on join, deleted on leave. UnreadCount is reset
// to zero only by an explicit read action.
type ChannelMembership struct {
	ChannelID     uuid.UUID `db:"channel_id" json:"channel_id"`
	UserID        uuid.UUID `db:"user_id" json:"user_id"`
	TenantID      uuid.UUID `db:"tenant_id" json:"tenant_id"`
	UnreadCount   int       `db:"unread_count" json:"unread_count"`
	LastReadAt    time.Time `db:"last_read_at" json:"last_read_at"`
	LastMessageAt time.Time `db:"last_message_at" json:"last_message_at"`
	NotifyEnabled bool      `db:"notify_enabled" json:"notify_enabled"`
}

// UnreadSummary is one entry of the per-user unread badge listing.
type UnreadSummary struct {
	ChannelID     uuid.UUID `db:"channel_id" json:"channel_id"`
	UnreadCount   int       `db:"unread_count" json:"unread_count"`
	LastReadAt    time.Time `db:"last_read_at" json:"last_read_at"`
	LastMessageAt time.Time `db:"last_message_at" json:"last_message_at"`
}
