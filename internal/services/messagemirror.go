package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"discussion-service/internal/models"
	"discussion-service/internal/observability"
	"discussion-service/internal/remote"
	"discussion-service/internal/repositories"
)

// Send retry schedule. The provider's membership propagation is not
// synchronous with its API acknowledgement, so a send right after a join
// can bounce with a not-a-member style response; retrying with backoff is
// bounded rather than sleeping a fixed interval up front.
const (
	sendAttempts     = 4
	sendInitialDelay = 150 * time.Millisecond
)

// MessageItem is one entry of a message listing: the remote message merged
// with locally authoritative redaction and reaction state.
type MessageItem struct {
	RemoteMessageID string                          `json:"remote_message_id"`
	ChannelID       uuid.UUID                       `json:"channel_id"`
	AuthorID        uuid.UUID                       `json:"author_id"`
	Content         string                          `json:"content"`
	IsRedacted      bool                            `json:"is_redacted"`
	IsEdited        bool                            `json:"is_edited"`
	CreatedAt       time.Time                       `json:"created_at"`
	Reactions       map[string]models.ReactionState `json:"reactions"`
}

// MessageMirror sends messages through the remote provider and keeps the
// local durable copy in step. The remote side owns ordering and delivery;
// the local mirror is deduplicated by remote message id.
type MessageMirror struct {
	resolver   *TenantConfigResolver
	identity   *IdentityBridge
	membership *MembershipManager
	channels   repositories.ChannelRepository
	messages   repositories.MessageRepository
	reactions  repositories.ReactionRepository
	unread     *UnreadCountTracker
	provider   remote.Messaging
	logger     *zap.SugaredLogger
}

// NewMessageMirror constructs a MessageMirror.
func NewMessageMirror(
	resolver *TenantConfigResolver,
	identity *IdentityBridge,
	membership *MembershipManager,
	channels repositories.ChannelRepository,
	messages repositories.MessageRepository,
	reactions repositories.ReactionRepository,
	unread *UnreadCountTracker,
	provider remote.Messaging,
	logger *zap.SugaredLogger,
) *MessageMirror {
	return &MessageMirror{
		resolver:   resolver,
		identity:   identity,
		membership: membership,
		channels:   channels,
		messages:   messages,
		reactions:  reactions,
		unread:     unread,
		provider:   provider,
		logger:     logger,
	}
}

func (m *MessageMirror) mappedChannel(ctx context.Context, channelID uuid.UUID) (models.Channel, error) {
	channel, err := m.channels.GetByID(ctx, channelID)
	if err != nil {
		if errors.Is(err, repositories.ErrChannelNotFound) {
			return models.Channel{}, fmt.Errorf("channel %s: %w", channelID, ErrLocalNotFound)
		}
		return models.Channel{}, fmt.Errorf("load channel: %w", err)
	}
	if channel.RemoteRef == "" {
		return models.Channel{}, fmt.Errorf("channel %s: %w", channelID, ErrChannelNotMapped)
	}
	return channel, nil
}

// Send ensures the author is a channel member, delivers the message
// through the provider and writes the local mirror row. The remote send is
// retried with backoff while the provider still reports the author as not
// a member.
func (m *MessageMirror) Send(ctx context.Context, channelID, authorID uuid.UUID, content string) (models.Message, error) {
	channel, err := m.membership.AddMember(ctx, channelID, authorID, authorID)
	if err != nil {
		return models.Message{}, err
	}

	cfg, err := m.resolver.Resolve(ctx, authorID)
	if err != nil {
		return models.Message{}, err
	}
	authorRef := remote.IdentityRef(cfg.AppInstanceRef, authorID.String())

	remoteID, err := m.sendWithRetry(ctx, channel.RemoteRef, authorRef, content)
	if err != nil {
		return models.Message{}, fmt.Errorf("remote send: %w", err)
	}

	msg, err := m.messages.InsertRemote(ctx, models.Message{
		ChannelID:        channelID,
		AuthorID:         authorID,
		Content:          content,
		Provider:         models.ProviderRemote,
		RemoteMessageID:  remoteID,
		RemoteChannelRef: channel.RemoteRef,
	})
	if err != nil {
		// The remote copy exists; surfacing the failure beats hiding the
		// divergence. The reconciliation pass repairs the mirror later.
		return models.Message{}, fmt.Errorf("mirror sent message %s: %w", remoteID, err)
	}

	if err := m.unread.Increment(ctx, channelID, authorID); err != nil {
		m.logger.Warnw("unread fan-out failed", "channel_id", channelID, "remote_message_id", remoteID, "error", err)
	}
	return msg, nil
}

func (m *MessageMirror) sendWithRetry(ctx context.Context, channelRef, authorRef, content string) (string, error) {
	delay := sendInitialDelay
	var lastErr error
	for attempt := 0; attempt < sendAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
		remoteID, err := m.provider.SendMessage(ctx, channelRef, authorRef, content)
		if err == nil {
			return remoteID, nil
		}
		if !remote.IsNotFoundOrForbidden(err) {
			return "", err
		}
		lastErr = err
		m.logger.Debugw("send rejected pending membership propagation",
			"channel_ref", channelRef, "attempt", attempt+1, "error", err)
	}
	return "", lastErr
}

// Mirror idempotently inserts the local copy of a message the client
// already delivered straight to the provider. Unread counters move only
// when the insert actually happened.
func (m *MessageMirror) Mirror(ctx context.Context, channelID, authorID uuid.UUID, content, remoteMessageID string) (models.Message, error) {
	channel, err := m.mappedChannel(ctx, channelID)
	if err != nil {
		return models.Message{}, err
	}

	inserted, err := m.messages.MirrorInsert(ctx, []models.Message{{
		ChannelID:        channelID,
		AuthorID:         authorID,
		Content:          content,
		Provider:         models.ProviderRemote,
		RemoteMessageID:  remoteMessageID,
		RemoteChannelRef: channel.RemoteRef,
		CreatedAt:        time.Now().UTC(),
	}})
	if err != nil {
		return models.Message{}, fmt.Errorf("mirror message: %w", err)
	}
	if inserted > 0 {
		if err := m.unread.Increment(ctx, channelID, authorID); err != nil {
			m.logger.Warnw("unread fan-out failed", "channel_id", channelID, "remote_message_id", remoteMessageID, "error", err)
		}
	}
	return m.messages.GetByRemoteID(ctx, remoteMessageID)
}

// List pages remote messages using the caller's identity as the paging
// credential, lazily backfills missing local mirror rows, and merges the
// locally authoritative redaction and reaction state into each item.
func (m *MessageMirror) List(ctx context.Context, channelID, userID uuid.UUID, nextToken string, pageSize int) ([]MessageItem, string, error) {
	channel, err := m.mappedChannel(ctx, channelID)
	if err != nil {
		return nil, "", err
	}

	userRef, _, err := m.identity.EnsureIdentity(ctx, userID)
	if err != nil {
		return nil, "", err
	}

	if _, err := m.provider.DescribeChannel(ctx, channel.RemoteRef, userRef); err != nil {
		return nil, "", fmt.Errorf("describe remote channel: %w", err)
	}

	page, err := m.provider.ListMessages(ctx, channel.RemoteRef, userRef, nextToken, pageSize)
	if err != nil {
		return nil, "", fmt.Errorf("list remote messages: %w", err)
	}

	m.backfill(ctx, channel, page.Messages)

	remoteIDs := make([]string, 0, len(page.Messages))
	for _, rm := range page.Messages {
		remoteIDs = append(remoteIDs, rm.ID)
	}
	local, err := m.messages.GetByRemoteIDs(ctx, remoteIDs)
	if err != nil {
		return nil, "", fmt.Errorf("load local mirrors: %w", err)
	}
	localByRemoteID := make(map[string]models.Message, len(local))
	localIDs := make([]int64, 0, len(local))
	for _, msg := range local {
		localByRemoteID[msg.RemoteMessageID] = msg
		localIDs = append(localIDs, msg.ID)
	}

	counts, err := m.reactions.CountsForMessages(ctx, localIDs)
	if err != nil {
		return nil, "", fmt.Errorf("load reaction counts: %w", err)
	}
	mine, err := m.reactions.UserKindsForMessages(ctx, localIDs, userID)
	if err != nil {
		return nil, "", fmt.Errorf("load user reactions: %w", err)
	}

	items := make([]MessageItem, 0, len(page.Messages))
	for _, rm := range page.Messages {
		item := MessageItem{
			RemoteMessageID: rm.ID,
			ChannelID:       channelID,
			Content:         rm.Content,
			CreatedAt:       rm.CreatedAt,
			Reactions:       map[string]models.ReactionState{},
		}
		if rawID, ok := remote.LocalUserID(rm.SenderRef); ok {
			if authorID, err := uuid.Parse(rawID); err == nil {
				item.AuthorID = authorID
			}
		}
		if msg, ok := localByRemoteID[rm.ID]; ok {
			item.IsRedacted = msg.IsRedacted
			item.IsEdited = msg.IsEdited
			if msg.IsRedacted {
				item.Content = ""
			}
			for _, kind := range models.ReactionKinds {
				item.Reactions[kind] = models.ReactionState{
					Count:   counts[msg.ID][kind],
					Reacted: mine[msg.ID][kind],
				}
			}
		} else {
			for _, kind := range models.ReactionKinds {
				item.Reactions[kind] = models.ReactionState{}
			}
		}
		items = append(items, item)
	}
	return items, page.NextToken, nil
}

// backfill writes mirror rows for remote messages missing locally. Partial
// failure never blocks the listing; the rows will be retried on the next
// list or by the reconciliation pass.
func (m *MessageMirror) backfill(ctx context.Context, channel models.Channel, remoteMessages []remote.Message) {
	rows := make([]models.Message, 0, len(remoteMessages))
	for _, rm := range remoteMessages {
		rawID, ok := remote.LocalUserID(rm.SenderRef)
		if !ok {
			m.logger.Warnw("skipping backfill of message with foreign sender",
				"channel_id", channel.ID, "remote_message_id", rm.ID, "sender_ref", rm.SenderRef)
			continue
		}
		authorID, err := uuid.Parse(rawID)
		if err != nil {
			m.logger.Warnw("skipping backfill of message with malformed sender",
				"channel_id", channel.ID, "remote_message_id", rm.ID, "sender_ref", rm.SenderRef)
			continue
		}
		rows = append(rows, models.Message{
			ChannelID:        channel.ID,
			AuthorID:         authorID,
			Content:          rm.Content,
			Provider:         models.ProviderRemote,
			RemoteMessageID:  rm.ID,
			RemoteChannelRef: channel.RemoteRef,
			CreatedAt:        rm.CreatedAt,
		})
	}

	inserted, err := m.messages.MirrorInsert(ctx, rows)
	if err != nil {
		m.logger.Warnw("mirror backfill incomplete", "channel_id", channel.ID, "inserted", inserted, "error", err)
	}
	if inserted > 0 {
		observability.AddMirrorBackfill(inserted)
	}
}

// Redact clears the message remotely and locally. The row survives with
// empty content so the conversation keeps its shape.
func (m *MessageMirror) Redact(ctx context.Context, channelID uuid.UUID, remoteMessageID string, operatorID uuid.UUID) error {
	channel, err := m.mappedChannel(ctx, channelID)
	if err != nil {
		return err
	}

	operatorRef, _, err := m.identity.EnsureIdentity(ctx, operatorID)
	if err != nil {
		return err
	}

	if err := m.provider.RedactMessage(ctx, channel.RemoteRef, remoteMessageID, operatorRef); err != nil {
		return fmt.Errorf("remote redact: %w", err)
	}

	if err := m.messages.Redact(ctx, remoteMessageID); err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			return fmt.Errorf("message %s: %w", remoteMessageID, ErrLocalNotFound)
		}
		return fmt.Errorf("local redact: %w", err)
	}
	return nil
}

// Delete removes the message remotely and then drops the local row.
func (m *MessageMirror) Delete(ctx context.Context, channelID uuid.UUID, remoteMessageID string, operatorID uuid.UUID) error {
	channel, err := m.mappedChannel(ctx, channelID)
	if err != nil {
		return err
	}

	operatorRef, _, err := m.identity.EnsureIdentity(ctx, operatorID)
	if err != nil {
		return err
	}

	if err := m.provider.DeleteMessage(ctx, channel.RemoteRef, remoteMessageID, operatorRef); err != nil {
		return fmt.Errorf("remote delete: %w", err)
	}
	if err := m.messages.DeleteByRemoteID(ctx, remoteMessageID); err != nil {
		return fmt.Errorf("local delete: %w", err)
	}
	return nil
}

// React adds the user's reaction of the given kind and returns the fresh
// per-kind counts. Reacting twice with the same kind never double-counts.
func (m *MessageMirror) React(ctx context.Context, channelID uuid.UUID, remoteMessageID string, userID uuid.UUID, kind string) (map[string]int, error) {
	return m.setReaction(ctx, channelID, remoteMessageID, userID, kind, true)
}

// Unreact removes the user's reaction of the given kind.
func (m *MessageMirror) Unreact(ctx context.Context, channelID uuid.UUID, remoteMessageID string, userID uuid.UUID, kind string) (map[string]int, error) {
	return m.setReaction(ctx, channelID, remoteMessageID, userID, kind, false)
}

func (m *MessageMirror) setReaction(ctx context.Context, channelID uuid.UUID, remoteMessageID string, userID uuid.UUID, kind string, add bool) (map[string]int, error) {
	if !models.IsReactionKind(kind) {
		return nil, fmt.Errorf("%q: %w", kind, ErrInvalidReaction)
	}

	channel, err := m.mappedChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}

	msg, err := m.messages.GetByRemoteID(ctx, remoteMessageID)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			return nil, fmt.Errorf("message %s: %w", remoteMessageID, ErrLocalNotFound)
		}
		return nil, fmt.Errorf("load message: %w", err)
	}

	if add {
		_, err = m.reactions.Add(ctx, msg.ID, userID, kind)
	} else {
		_, err = m.reactions.Remove(ctx, msg.ID, userID, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("update reaction: %w", err)
	}

	counts, err := m.reactions.CountsForMessage(ctx, msg.ID)
	if err != nil {
		return nil, fmt.Errorf("count reactions: %w", err)
	}

	m.notifyReaction(ctx, channel, remoteMessageID, userID, counts)
	return counts, nil
}

// notifyReaction fans the new counts out to connected clients through the
// provider's non-persistent notification channel. Best effort only:
// reaction state is locally authoritative and a lost notification just
// means a later poll.
func (m *MessageMirror) notifyReaction(ctx context.Context, channel models.Channel, remoteMessageID string, userID uuid.UUID, counts map[string]int) {
	cfg, err := m.resolver.Resolve(ctx, userID)
	if err != nil {
		m.logger.Warnw("reaction notify skipped", "channel_id", channel.ID, "error", err)
		return
	}
	senderRef := remote.IdentityRef(cfg.AppInstanceRef, userID.String())
	payload := map[string]any{
		"type":              "reaction_update",
		"remote_message_id": remoteMessageID,
		"counts":            counts,
	}
	if err := m.provider.SendNotification(ctx, channel.RemoteRef, senderRef, payload); err != nil {
		m.logger.Warnw("reaction notify failed",
			"channel_id", channel.ID, "remote_message_id", remoteMessageID, "error", err)
	}
}
