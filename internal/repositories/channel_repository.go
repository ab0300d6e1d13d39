package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"discussion-service/internal/models"
)

var ErrChannelNotFound = errors.New("channel not found")

// ChannelRepository abstracts local channel mirror persistence.
type ChannelRepository interface {
	Create(ctx context.Context, channel models.Channel, memberIDs []uuid.UUID, adminIDs []uuid.UUID) (models.Channel, error)
	GetByID(ctx context.Context, channelID uuid.UUID) (models.Channel, error)
	GetByRemoteRef(ctx context.Context, remoteRef string) (models.Channel, error)
	GetDefaultGeneral(ctx context.Context) (models.Channel, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Channel, error)
	AddMemberIfAbsent(ctx context.Context, channelID, userID uuid.UUID, isAdmin bool) (bool, error)
	RemoveMember(ctx context.Context, channelID, userID uuid.UUID) error
	ListMembers(ctx context.Context, channelID uuid.UUID) ([]models.ChannelMember, error)
	IsMember(ctx context.Context, channelID, userID uuid.UUID) (bool, error)
	Delete(ctx context.Context, channelID uuid.UUID) error
}

// ChannelRepo is a sqlx implementation of ChannelRepository.
type ChannelRepo struct {
	db *sqlx.DB
}

// NewChannelRepo constructs a ChannelRepo.
func NewChannelRepo(db *sqlx.DB) *ChannelRepo {
	return &ChannelRepo{db: db}
}

// Create persists the channel row and its initial member set in one
// transaction. The remote reference is written here and never updated.
func (r *ChannelRepo) Create(ctx context.Context, channel models.Channel, memberIDs []uuid.UUID, adminIDs []uuid.UUID) (models.Channel, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Channel{}, err
	}
	defer tx.Rollback()

	err = tx.QueryRowxContext(ctx, `INSERT INTO channels
        (id, tenant_id, name, description, is_private, is_default_general, remote_ref, remote_mode, remote_privacy, created_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING created_at`,
		channel.ID, channel.TenantID, channel.Name, channel.Description, channel.IsPrivate,
		channel.IsDefaultGeneral, channel.RemoteRef, channel.RemoteMode, channel.RemotePrivacy, channel.CreatedBy).
		Scan(&channel.CreatedAt)
	if err != nil {
		return models.Channel{}, err
	}

	admins := make(map[uuid.UUID]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}
	for _, userID := range memberIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO channel_members (channel_id, user_id, is_admin)
            VALUES ($1, $2, $3) ON CONFLICT (channel_id, user_id) DO NOTHING`,
			channel.ID, userID, admins[userID]); err != nil {
			return models.Channel{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Channel{}, err
	}
	return channel, nil
}

const channelColumns = `id, tenant_id, name, description, is_private, is_default_general,
    remote_ref, remote_mode, remote_privacy, created_by, created_at`

// GetByID fetches a channel by local id.
func (r *ChannelRepo) GetByID(ctx context.Context, channelID uuid.UUID) (models.Channel, error) {
	var channel models.Channel
	err := r.db.GetContext(ctx, &channel, `SELECT `+channelColumns+` FROM channels WHERE id=$1`, channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Channel{}, ErrChannelNotFound
	}
	return channel, err
}

// GetByRemoteRef fetches the channel mirroring the given remote channel.
func (r *ChannelRepo) GetByRemoteRef(ctx context.Context, remoteRef string) (models.Channel, error) {
	var channel models.Channel
	err := r.db.GetContext(ctx, &channel, `SELECT `+channelColumns+` FROM channels WHERE remote_ref=$1`, remoteRef)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Channel{}, ErrChannelNotFound
	}
	return channel, err
}

// GetDefaultGeneral returns the single default general channel, if any.
func (r *ChannelRepo) GetDefaultGeneral(ctx context.Context) (models.Channel, error) {
	var channel models.Channel
	err := r.db.GetContext(ctx, &channel, `SELECT `+channelColumns+` FROM channels WHERE is_default_general = TRUE`)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Channel{}, ErrChannelNotFound
	}
	return channel, err
}

// ListByTenant returns the tenant's channels, newest first.
func (r *ChannelRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Channel, error) {
	channels := make([]models.Channel, 0)
	err := r.db.SelectContext(ctx, &channels, `SELECT `+channelColumns+` FROM channels
        WHERE tenant_id=$1 ORDER BY created_at DESC`, tenantID)
	return channels, err
}

// AddMemberIfAbsent inserts the membership row only when the user is not
// already a member and reports whether the insert happened. Under N
// concurrent calls exactly one sees true, so join side effects run once.
func (r *ChannelRepo) AddMemberIfAbsent(ctx context.Context, channelID, userID uuid.UUID, isAdmin bool) (bool, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO channel_members (channel_id, user_id, is_admin)
        VALUES ($1, $2, $3) ON CONFLICT (channel_id, user_id) DO NOTHING`, channelID, userID, isAdmin)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// RemoveMember pulls the user out of the member list. No-op if absent.
func (r *ChannelRepo) RemoveMember(ctx context.Context, channelID, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM channel_members WHERE channel_id=$1 AND user_id=$2`, channelID, userID)
	return err
}

// ListMembers returns the channel's local member list.
func (r *ChannelRepo) ListMembers(ctx context.Context, channelID uuid.UUID) ([]models.ChannelMember, error) {
	members := make([]models.ChannelMember, 0)
	err := r.db.SelectContext(ctx, &members, `SELECT channel_id, user_id, is_admin, added_at
        FROM channel_members WHERE channel_id=$1 ORDER BY added_at`, channelID)
	return members, err
}

// IsMember checks local channel membership.
func (r *ChannelRepo) IsMember(ctx context.Context, channelID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM channel_members WHERE channel_id=$1 AND user_id=$2)`, channelID, userID)
	return exists, err
}

// Delete removes the channel row; members, messages, reactions, read state
// and role grants go with it via ON DELETE CASCADE.
func (r *ChannelRepo) Delete(ctx context.Context, channelID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM channels WHERE id=$1`, channelID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrChannelNotFound
	}
	return nil
}
