package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"discussion-service/internal/models"
	"discussion-service/internal/remote"
	"discussion-service/internal/repositories"
)

// MembershipManager keeps channel membership and moderator grants in step
// between the remote provider and the local mirror. Remote adds are
// idempotent (conflict means already a member); local adds are conditional
// so concurrent joins initialize read tracking exactly once.
type MembershipManager struct {
	resolver *TenantConfigResolver
	identity *IdentityBridge
	channels repositories.ChannelRepository
	messages repositories.MessageRepository
	unread   repositories.UnreadRepository
	roles    repositories.RoleRepository
	provider remote.Messaging
	logger   *zap.SugaredLogger
}

// NewMembershipManager constructs a MembershipManager.
func NewMembershipManager(
	resolver *TenantConfigResolver,
	identity *IdentityBridge,
	channels repositories.ChannelRepository,
	messages repositories.MessageRepository,
	unread repositories.UnreadRepository,
	roles repositories.RoleRepository,
	provider remote.Messaging,
	logger *zap.SugaredLogger,
) *MembershipManager {
	return &MembershipManager{
		resolver: resolver,
		identity: identity,
		channels: channels,
		messages: messages,
		unread:   unread,
		roles:    roles,
		provider: provider,
		logger:   logger,
	}
}

func (m *MembershipManager) mappedChannel(ctx context.Context, channelID uuid.UUID) (models.Channel, error) {
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

// AddMember adds the target user to the channel remotely and locally. The
// remote call is authorized by the operator's identity; an already-a-member
// response counts as success. Read tracking is initialized only when the
// local insert actually happened.
func (m *MembershipManager) AddMember(ctx context.Context, channelID, targetID, operatorID uuid.UUID) (models.Channel, error) {
	channel, err := m.mappedChannel(ctx, channelID)
	if err != nil {
		return models.Channel{}, err
	}

	targetRef, _, err := m.identity.EnsureIdentity(ctx, targetID)
	if err != nil {
		return models.Channel{}, err
	}
	operatorRef := targetRef
	if operatorID != targetID {
		operatorRef, _, err = m.identity.EnsureIdentity(ctx, operatorID)
		if err != nil {
			return models.Channel{}, err
		}
	}

	if err := m.provider.CreateMembership(ctx, channel.RemoteRef, targetRef, operatorRef); err != nil {
		if !errors.Is(err, remote.ErrConflict) {
			return models.Channel{}, fmt.Errorf("remote add member: %w", err)
		}
	}

	inserted, err := m.channels.AddMemberIfAbsent(ctx, channelID, targetID, false)
	if err != nil {
		return models.Channel{}, fmt.Errorf("local add member: %w", err)
	}
	if inserted {
		now := time.Now().UTC()
		lastMessageAt, ok, err := m.messages.LatestMessageAt(ctx, channelID)
		if err != nil || !ok {
			if err != nil {
				m.logger.Warnw("latest message lookup failed, defaulting to now",
					"channel_id", channelID, "error", err)
			}
			lastMessageAt = now
		}
		err = m.unread.EnsureTracking(ctx, models.ChannelMembership{
			ChannelID:     channelID,
			UserID:        targetID,
			TenantID:      channel.TenantID,
			LastReadAt:    now,
			LastMessageAt: lastMessageAt,
			NotifyEnabled: true,
		})
		if err != nil {
			return models.Channel{}, fmt.Errorf("init read tracking: %w", err)
		}
	}

	return channel, nil
}

// RemoveMember removes the target from the channel. The remote delete is
// best effort; local removal and read-state cleanup always run. Cleanup
// failure is logged but does not fail the removal.
func (m *MembershipManager) RemoveMember(ctx context.Context, channelID, targetID, operatorID uuid.UUID) error {
	channel, err := m.mappedChannel(ctx, channelID)
	if err != nil {
		return err
	}

	cfg, err := m.resolver.Resolve(ctx, operatorID)
	if err != nil {
		return err
	}
	targetRef := remote.IdentityRef(cfg.AppInstanceRef, targetID.String())
	operatorRef := remote.IdentityRef(cfg.AppInstanceRef, operatorID.String())

	if err := m.provider.DeleteMembership(ctx, channel.RemoteRef, targetRef, operatorRef); err != nil {
		m.logger.Warnw("remote membership delete failed",
			"channel_id", channelID, "user_id", targetID, "error", err)
	}

	if err := m.channels.RemoveMember(ctx, channelID, targetID); err != nil {
		return fmt.Errorf("local remove member: %w", err)
	}

	if err := m.unread.Delete(ctx, channelID, targetID); err != nil {
		m.logger.Warnw("read tracking cleanup failed",
			"channel_id", channelID, "user_id", targetID, "error", err)
	}
	return nil
}

// GrantModerator mirrors a moderator grant remotely and locally. A remote
// already-a-moderator response counts as success.
func (m *MembershipManager) GrantModerator(ctx context.Context, channelID, targetID, operatorID uuid.UUID) error {
	channel, err := m.mappedChannel(ctx, channelID)
	if err != nil {
		return err
	}

	targetRef, _, err := m.identity.EnsureIdentity(ctx, targetID)
	if err != nil {
		return err
	}
	operatorRef := targetRef
	if operatorID != targetID {
		operatorRef, _, err = m.identity.EnsureIdentity(ctx, operatorID)
		if err != nil {
			return err
		}
	}

	if err := m.provider.CreateModerator(ctx, channel.RemoteRef, targetRef, operatorRef); err != nil {
		if !errors.Is(err, remote.ErrConflict) {
			return fmt.Errorf("remote grant moderator: %w", err)
		}
	}

	if err := m.roles.Grant(ctx, channelID, targetID, models.RoleModerator); err != nil {
		return fmt.Errorf("local grant moderator: %w", err)
	}
	return nil
}

// RevokeModerator removes the grant. The remote revoke is best effort.
func (m *MembershipManager) RevokeModerator(ctx context.Context, channelID, targetID, operatorID uuid.UUID) error {
	channel, err := m.mappedChannel(ctx, channelID)
	if err != nil {
		return err
	}

	cfg, err := m.resolver.Resolve(ctx, operatorID)
	if err != nil {
		return err
	}
	targetRef := remote.IdentityRef(cfg.AppInstanceRef, targetID.String())
	operatorRef := remote.IdentityRef(cfg.AppInstanceRef, operatorID.String())

	if err := m.provider.DeleteModerator(ctx, channel.RemoteRef, targetRef, operatorRef); err != nil {
		m.logger.Warnw("remote moderator revoke failed",
			"channel_id", channelID, "user_id", targetID, "error", err)
	}

	if err := m.roles.Revoke(ctx, channelID, targetID, models.RoleModerator); err != nil {
		return fmt.Errorf("local revoke moderator: %w", err)
	}
	return nil
}

// ListMembers returns the channel roster with local moderator flags.
// Private channel rosters are visible to members only.
func (m *MembershipManager) ListMembers(ctx context.Context, channelID, viewerID uuid.UUID) ([]models.ChannelMemberView, error) {
	channel, err := m.channels.GetByID(ctx, channelID)
	if err != nil {
		if errors.Is(err, repositories.ErrChannelNotFound) {
			return nil, fmt.Errorf("channel %s: %w", channelID, ErrLocalNotFound)
		}
		return nil, fmt.Errorf("load channel: %w", err)
	}

	if channel.IsPrivate {
		member, err := m.channels.IsMember(ctx, channelID, viewerID)
		if err != nil {
			return nil, fmt.Errorf("check membership: %w", err)
		}
		if !member {
			return nil, fmt.Errorf("channel %s: %w", channelID, ErrNotChannelMember)
		}
	}

	members, err := m.channels.ListMembers(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	grants, err := m.roles.List(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("list moderator grants: %w", err)
	}

	moderators := make(map[uuid.UUID]bool, len(grants))
	for _, g := range grants {
		if g.Role == models.RoleModerator {
			moderators[g.UserID] = true
		}
	}

	roster := make([]models.ChannelMemberView, 0, len(members))
	for _, member := range members {
		roster = append(roster, models.ChannelMemberView{
			ChannelMember: member,
			IsModerator:   moderators[member.UserID],
		})
	}
	return roster, nil
}

// IsModerator reports whether the user holds a local moderator grant.
func (m *MembershipManager) IsModerator(ctx context.Context, channelID, userID uuid.UUID) (bool, error) {
	return m.roles.Has(ctx, channelID, userID, models.RoleModerator)
}
