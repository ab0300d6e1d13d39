package models

import (
	"time"

	"github.com/google/uuid"
)

// ProviderRemote marks messages whose authoritative copy lives in the
// remote messaging provider. RemoteMessageID is unique among those rows.
const ProviderRemote = "remote"

// Reaction kinds. The set is fixed; reactions are stored locally only.
const (
	ReactionLike  = "like"
	ReactionLove  = "love"
	ReactionLaugh = "laugh"
	ReactionSad   = "sad"
)

// ReactionKinds lists every valid reaction kind.
var ReactionKinds = []string{ReactionLike, ReactionLove, ReactionLaugh, ReactionSad}

// IsReactionKind reports whether kind is one of the fixed reaction kinds.
func IsReactionKind(kind string) bool {
	for _, k := range ReactionKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Message is the local mirror of a chat message. Redaction clears the
// content but never deletes the row.
type Message struct {
	ID               int64      `db:"id" json:"id"`
	ChannelID        uuid.UUID  `db:"channel_id" json:"channel_id"`
	AuthorID         uuid.UUID  `db:"author_id" json:"author_id"`
	Content          string     `db:"content" json:"content"`
	Provider         string     `db:"provider" json:"provider"`
	RemoteMessageID  string     `db:"remote_message_id" json:"remote_message_id"`
	RemoteChannelRef string     `db:"remote_channel_ref" json:"remote_channel_ref"`
	IsRedacted       bool       `db:"is_redacted" json:"is_redacted"`
	IsEdited         bool       `db:"is_edited" json:"is_edited"`
	RedactedAt       *time.Time `db:"redacted_at" json:"redacted_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}

// MessageReaction is one user's reaction of a given kind on a message.
// The primary key (message_id, user_id, kind) gives set semantics.
type MessageReaction struct {
	MessageID int64     `db:"message_id" json:"message_id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Kind      string    `db:"kind" json:"kind"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ReactionState is the per-kind view merged into message listings.
type ReactionState struct {
	Count   int  `json:"count"`
	Reacted bool `json:"reacted"`
}
