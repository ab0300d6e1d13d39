package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"discussion-service/internal/models"
	"discussion-service/internal/repositories"
)

// UnreadCountTracker maintains the per-(channel,user) unread counters the
// remote provider does not track. Counters move atomically in the store;
// no in-process locks are involved.
type UnreadCountTracker struct {
	channels repositories.ChannelRepository
	unread   repositories.UnreadRepository
	logger   *zap.SugaredLogger
}

// NewUnreadCountTracker constructs an UnreadCountTracker.
func NewUnreadCountTracker(channels repositories.ChannelRepository, unread repositories.UnreadRepository, logger *zap.SugaredLogger) *UnreadCountTracker {
	return &UnreadCountTracker{channels: channels, unread: unread, logger: logger}
}

// Increment bumps the unread counter for every channel member except the
// sender in one bulk update. Members without a read-state row are skipped
// silently; markRead heals them on their next read.
func (t *UnreadCountTracker) Increment(ctx context.Context, channelID, senderID uuid.UUID) error {
	bumped, err := t.unread.IncrementExceptSender(ctx, channelID, senderID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("increment unread: %w", err)
	}
	t.logger.Debugw("unread counters bumped", "channel_id", channelID, "sender_id", senderID, "rows", bumped)
	return nil
}

// MarkRead zeroes the user's unread counter for the channel, creating the
// read-state row if it went missing.
func (t *UnreadCountTracker) MarkRead(ctx context.Context, channelID, userID uuid.UUID) (models.ChannelMembership, error) {
	channel, err := t.channels.GetByID(ctx, channelID)
	if err != nil {
		if errors.Is(err, repositories.ErrChannelNotFound) {
			return models.ChannelMembership{}, fmt.Errorf("channel %s: %w", channelID, ErrLocalNotFound)
		}
		return models.ChannelMembership{}, fmt.Errorf("load channel: %w", err)
	}
	return t.unread.MarkRead(ctx, channelID, userID, channel.TenantID)
}

// ChannelState returns the user's read-state row for one channel.
func (t *UnreadCountTracker) ChannelState(ctx context.Context, channelID, userID uuid.UUID) (models.ChannelMembership, error) {
	membership, err := t.unread.Get(ctx, channelID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrMembershipNotFound) {
			return models.ChannelMembership{}, fmt.Errorf("channel %s: %w", channelID, ErrLocalNotFound)
		}
		return models.ChannelMembership{}, fmt.Errorf("load read state: %w", err)
	}
	return membership, nil
}

// Summary lists the user's channels with pending unread messages.
func (t *UnreadCountTracker) Summary(ctx context.Context, userID uuid.UUID) ([]models.UnreadSummary, error) {
	return t.unread.Summary(ctx, userID)
}
