package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"discussion-service/internal/models"
)

var ErrMembershipNotFound = errors.New("channel membership not found")

// UnreadRepository maintains per-(channel,user) read state rows.
type UnreadRepository interface {
	EnsureTracking(ctx context.Context, membership models.ChannelMembership) error
	IncrementExceptSender(ctx context.Context, channelID, senderID uuid.UUID, at time.Time) (int64, error)
	MarkRead(ctx context.Context, channelID, userID, tenantID uuid.UUID) (models.ChannelMembership, error)
	Get(ctx context.Context, channelID, userID uuid.UUID) (models.ChannelMembership, error)
	Summary(ctx context.Context, userID uuid.UUID) ([]models.UnreadSummary, error)
	Delete(ctx context.Context, channelID, userID uuid.UUID) error
}

// UnreadRepo is a sqlx implementation of UnreadRepository.
type UnreadRepo struct {
	db *sqlx.DB
}

// NewUnreadRepo constructs an UnreadRepo.
func NewUnreadRepo(db *sqlx.DB) *UnreadRepo {
	return &UnreadRepo{db: db}
}

// EnsureTracking creates the read-state row for a fresh join. An existing
// row is left untouched so a racing duplicate join cannot reset progress.
func (r *UnreadRepo) EnsureTracking(ctx context.Context, membership models.ChannelMembership) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO channel_memberships
        (channel_id, user_id, tenant_id, unread_count, last_read_at, last_message_at, notify_enabled)
        VALUES ($1, $2, $3, 0, $4, $5, $6)
        ON CONFLICT (channel_id, user_id) DO NOTHING`,
		membership.ChannelID, membership.UserID, membership.TenantID,
		membership.LastReadAt, membership.LastMessageAt, membership.NotifyEnabled)
	return err
}

// IncrementExceptSender bumps unread_count and last_message_at for every
// channel member except the sender in one atomic statement. Members
// without a read-state row are skipped. Returns the number of rows bumped.
func (r *UnreadRepo) IncrementExceptSender(ctx context.Context, channelID, senderID uuid.UUID, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE channel_memberships
        SET unread_count = unread_count + 1, last_message_at = $3
        WHERE channel_id = $1 AND user_id <> $2
          AND user_id IN (SELECT user_id FROM channel_members WHERE channel_id = $1)`,
		channelID, senderID, at)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MarkRead zeroes the unread counter and stamps last_read_at. A missing
// row is created on the spot (self-healing) rather than erroring.
func (r *UnreadRepo) MarkRead(ctx context.Context, channelID, userID, tenantID uuid.UUID) (models.ChannelMembership, error) {
	var membership models.ChannelMembership
	err := r.db.QueryRowxContext(ctx, `INSERT INTO channel_memberships
        (channel_id, user_id, tenant_id, unread_count, last_read_at, last_message_at)
        VALUES ($1, $2, $3, 0, NOW(), NOW())
        ON CONFLICT (channel_id, user_id) DO UPDATE SET unread_count = 0, last_read_at = NOW()
        RETURNING channel_id, user_id, tenant_id, unread_count, last_read_at, last_message_at, notify_enabled`,
		channelID, userID, tenantID).
		StructScan(&membership)
	return membership, err
}

// Get fetches one read-state row.
func (r *UnreadRepo) Get(ctx context.Context, channelID, userID uuid.UUID) (models.ChannelMembership, error) {
	var membership models.ChannelMembership
	err := r.db.GetContext(ctx, &membership, `SELECT channel_id, user_id, tenant_id, unread_count,
        last_read_at, last_message_at, notify_enabled
        FROM channel_memberships WHERE channel_id=$1 AND user_id=$2`, channelID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChannelMembership{}, ErrMembershipNotFound
	}
	return membership, err
}

// Summary lists the user's channels that currently have unread messages.
func (r *UnreadRepo) Summary(ctx context.Context, userID uuid.UUID) ([]models.UnreadSummary, error) {
	summaries := make([]models.UnreadSummary, 0)
	err := r.db.SelectContext(ctx, &summaries, `SELECT channel_id, unread_count, last_read_at, last_message_at
        FROM channel_memberships
        WHERE user_id=$1 AND unread_count > 0
        ORDER BY last_message_at DESC`, userID)
	return summaries, err
}

// Delete removes the read-state row on membership removal.
func (r *UnreadRepo) Delete(ctx context.Context, channelID, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM channel_memberships WHERE channel_id=$1 AND user_id=$2`, channelID, userID)
	return err
}
