package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"discussion-service/internal/models"
)

// ReactionRepository stores locally authoritative reaction state with set
// semantics: reacting twice with the same kind is a no-op.
type ReactionRepository interface {
	Add(ctx context.Context, messageID int64, userID uuid.UUID, kind string) (bool, error)
	Remove(ctx context.Context, messageID int64, userID uuid.UUID, kind string) (bool, error)
	CountsForMessage(ctx context.Context, messageID int64) (map[string]int, error)
	CountsForMessages(ctx context.Context, messageIDs []int64) (map[int64]map[string]int, error)
	UserKindsForMessages(ctx context.Context, messageIDs []int64, userID uuid.UUID) (map[int64]map[string]bool, error)
}

// ReactionRepo is a sqlx implementation of ReactionRepository.
type ReactionRepo struct {
	db *sqlx.DB
}

// NewReactionRepo constructs a ReactionRepo.
func NewReactionRepo(db *sqlx.DB) *ReactionRepo {
	return &ReactionRepo{db: db}
}

// Add records the user's reaction and reports whether it was new.
func (r *ReactionRepo) Add(ctx context.Context, messageID int64, userID uuid.UUID, kind string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO message_reactions (message_id, user_id, kind)
        VALUES ($1, $2, $3) ON CONFLICT (message_id, user_id, kind) DO NOTHING`, messageID, userID, kind)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Remove drops the user's reaction and reports whether it existed.
func (r *ReactionRepo) Remove(ctx context.Context, messageID int64, userID uuid.UUID, kind string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM message_reactions
        WHERE message_id=$1 AND user_id=$2 AND kind=$3`, messageID, userID, kind)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountsForMessage returns per-kind counts for one message.
func (r *ReactionRepo) CountsForMessage(ctx context.Context, messageID int64) (map[string]int, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT kind, COUNT(*) FROM message_reactions
        WHERE message_id=$1 GROUP BY kind`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		counts[kind] = count
	}
	return counts, rows.Err()
}

// CountsForMessages returns per-kind counts for a batch of messages.
func (r *ReactionRepo) CountsForMessages(ctx context.Context, messageIDs []int64) (map[int64]map[string]int, error) {
	result := map[int64]map[string]int{}
	if len(messageIDs) == 0 {
		return result, nil
	}
	rows, err := r.db.QueryxContext(ctx, `SELECT message_id, kind, COUNT(*) FROM message_reactions
        WHERE message_id = ANY($1) GROUP BY message_id, kind`, pq.Array(messageIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var messageID int64
		var kind string
		var count int
		if err := rows.Scan(&messageID, &kind, &count); err != nil {
			return nil, err
		}
		if result[messageID] == nil {
			result[messageID] = map[string]int{}
		}
		result[messageID][kind] = count
	}
	return result, rows.Err()
}

// UserKindsForMessages reports which kinds the user reacted with per message.
func (r *ReactionRepo) UserKindsForMessages(ctx context.Context, messageIDs []int64, userID uuid.UUID) (map[int64]map[string]bool, error) {
	result := map[int64]map[string]bool{}
	if len(messageIDs) == 0 {
		return result, nil
	}
	var reactions []models.MessageReaction
	err := r.db.SelectContext(ctx, &reactions, `SELECT message_id, user_id, kind, created_at
        FROM message_reactions WHERE message_id = ANY($1) AND user_id=$2`, pq.Array(messageIDs), userID)
	if err != nil {
		return nil, err
	}
	for _, reaction := range reactions {
		if result[reaction.MessageID] == nil {
			result[reaction.MessageID] = map[string]bool{}
		}
		result[reaction.MessageID][reaction.Kind] = true
	}
	return result, nil
}
