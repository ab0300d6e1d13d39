package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"discussion-service/internal/models"
)

// RoleRepository stores local moderator grants, the authorization source
// the calling layer consults before moderation actions.
type RoleRepository interface {
	Grant(ctx context.Context, channelID, userID uuid.UUID, role string) error
	Revoke(ctx context.Context, channelID, userID uuid.UUID, role string) error
	Has(ctx context.Context, channelID, userID uuid.UUID, role string) (bool, error)
	List(ctx context.Context, channelID uuid.UUID) ([]models.ChannelRoleAssignment, error)
}

// RoleRepo is a sqlx implementation of RoleRepository.
type RoleRepo struct {
	db *sqlx.DB
}

// NewRoleRepo constructs a RoleRepo.
func NewRoleRepo(db *sqlx.DB) *RoleRepo {
	return &RoleRepo{db: db}
}

// Grant upserts the role assignment. Granting twice is a no-op.
func (r *RoleRepo) Grant(ctx context.Context, channelID, userID uuid.UUID, role string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO channel_roles (channel_id, user_id, role)
        VALUES ($1, $2, $3) ON CONFLICT (channel_id, user_id, role) DO NOTHING`, channelID, userID, role)
	return err
}

// Revoke deletes the role assignment. No-op if absent.
func (r *RoleRepo) Revoke(ctx context.Context, channelID, userID uuid.UUID, role string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM channel_roles WHERE channel_id=$1 AND user_id=$2 AND role=$3`,
		channelID, userID, role)
	return err
}

// Has checks whether the user holds the role on the channel.
func (r *RoleRepo) Has(ctx context.Context, channelID, userID uuid.UUID, role string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM channel_roles
        WHERE channel_id=$1 AND user_id=$2 AND role=$3)`, channelID, userID, role)
	return exists, err
}

// List returns every role assignment on the channel.
func (r *RoleRepo) List(ctx context.Context, channelID uuid.UUID) ([]models.ChannelRoleAssignment, error) {
	assignments := make([]models.ChannelRoleAssignment, 0)
	err := r.db.SelectContext(ctx, &assignments, `SELECT channel_id, user_id, role, granted_at
        FROM channel_roles WHERE channel_id=$1 ORDER BY granted_at`, channelID)
	return assignments, err
}
