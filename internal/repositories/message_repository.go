package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"discussion-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository persists the local message mirror. Rows referencing a
// remote message id are deduplicated by the sparse unique index: the first
// writer wins, later writers are no-ops.
type MessageRepository interface {
	InsertRemote(ctx context.Context, msg models.Message) (models.Message, error)
	MirrorInsert(ctx context.Context, msgs []models.Message) (int, error)
	GetByRemoteID(ctx context.Context, remoteMessageID string) (models.Message, error)
	GetByRemoteIDs(ctx context.Context, remoteMessageIDs []string) ([]models.Message, error)
	Redact(ctx context.Context, remoteMessageID string) error
	DeleteByRemoteID(ctx context.Context, remoteMessageID string) error
	LatestMessageAt(ctx context.Context, channelID uuid.UUID) (time.Time, bool, error)
}

// MessageRepo is a sqlx implementation of MessageRepository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, channel_id, author_id, content, provider, remote_message_id,
    remote_channel_ref, is_redacted, is_edited, redacted_at, created_at`

// InsertRemote stores the local copy of a message just delivered remotely.
// A concurrent mirror of the same remote id wins silently; the existing
// row is returned in that case.
func (r *MessageRepo) InsertRemote(ctx context.Context, msg models.Message) (models.Message, error) {
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages
        (channel_id, author_id, content, provider, remote_message_id, remote_channel_ref)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (remote_message_id) WHERE provider = 'remote' AND remote_message_id <> '' DO NOTHING
        RETURNING id, created_at`,
		msg.ChannelID, msg.AuthorID, msg.Content, msg.Provider, msg.RemoteMessageID, msg.RemoteChannelRef).
		Scan(&msg.ID, &msg.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return r.GetByRemoteID(ctx, msg.RemoteMessageID)
	}
	return msg, err
}

// MirrorInsert backfills local rows for remote messages in one pass and
// returns how many rows were actually inserted. Already-mirrored ids are
// skipped by the conflict clause.
func (r *MessageRepo) MirrorInsert(ctx context.Context, msgs []models.Message) (int, error) {
	if len(msgs) == 0 {
		return 0, nil
	}
	inserted := 0
	for _, msg := range msgs {
		res, err := r.db.ExecContext(ctx, `INSERT INTO messages
            (channel_id, author_id, content, provider, remote_message_id, remote_channel_ref, created_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7)
            ON CONFLICT (remote_message_id) WHERE provider = 'remote' AND remote_message_id <> '' DO NOTHING`,
			msg.ChannelID, msg.AuthorID, msg.Content, msg.Provider, msg.RemoteMessageID, msg.RemoteChannelRef, msg.CreatedAt)
		if err != nil {
			return inserted, err
		}
		count, err := res.RowsAffected()
		if err != nil {
			return inserted, err
		}
		inserted += int(count)
	}
	return inserted, nil
}

// GetByRemoteID fetches the local mirror row for a remote message id.
func (r *MessageRepo) GetByRemoteID(ctx context.Context, remoteMessageID string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages
        WHERE provider=$1 AND remote_message_id=$2`, models.ProviderRemote, remoteMessageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// GetByRemoteIDs fetches every local mirror row matching the given remote ids.
func (r *MessageRepo) GetByRemoteIDs(ctx context.Context, remoteMessageIDs []string) ([]models.Message, error) {
	if len(remoteMessageIDs) == 0 {
		return []models.Message{}, nil
	}
	msgs := make([]models.Message, 0, len(remoteMessageIDs))
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages
        WHERE provider=$1 AND remote_message_id = ANY($2)`, models.ProviderRemote, pq.Array(remoteMessageIDs))
	return msgs, err
}

// Redact clears the content and marks the row redacted. The row survives.
func (r *MessageRepo) Redact(ctx context.Context, remoteMessageID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages
        SET content='', is_redacted=TRUE, is_edited=TRUE, redacted_at=NOW()
        WHERE provider=$1 AND remote_message_id=$2`, models.ProviderRemote, remoteMessageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// DeleteByRemoteID removes the local mirror row.
func (r *MessageRepo) DeleteByRemoteID(ctx context.Context, remoteMessageID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE provider=$1 AND remote_message_id=$2`,
		models.ProviderRemote, remoteMessageID)
	return err
}

// LatestMessageAt returns the newest message timestamp in the channel and
// whether any message exists at all.
func (r *MessageRepo) LatestMessageAt(ctx context.Context, channelID uuid.UUID) (time.Time, bool, error) {
	var at time.Time
	err := r.db.GetContext(ctx, &at, `SELECT created_at FROM messages
        WHERE channel_id=$1 ORDER BY created_at DESC LIMIT 1`, channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return at, true, nil
}
