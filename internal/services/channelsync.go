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

// GeneralChannelName is the name of the tenant-wide default channel every
// user is joined to on login.
const GeneralChannelName = "general"

// ChannelParams describes a channel to create or sync.
type ChannelParams struct {
	Name             string
	Description      string
	IsPrivate        bool
	IsDefaultGeneral bool
}

// ChannelSyncEngine creates channels in the remote provider and mirrors
// them locally. When a same-named channel already exists remotely it
// imports the remote membership instead of creating a duplicate.
type ChannelSyncEngine struct {
	resolver   *TenantConfigResolver
	identity   *IdentityBridge
	membership *MembershipManager
	channels   repositories.ChannelRepository
	users      repositories.UserRepository
	unread     repositories.UnreadRepository
	roles      repositories.RoleRepository
	provider   remote.Messaging
	logger     *zap.SugaredLogger
}

// NewChannelSyncEngine constructs a ChannelSyncEngine.
func NewChannelSyncEngine(
	resolver *TenantConfigResolver,
	identity *IdentityBridge,
	membership *MembershipManager,
	channels repositories.ChannelRepository,
	users repositories.UserRepository,
	unread repositories.UnreadRepository,
	roles repositories.RoleRepository,
	provider remote.Messaging,
	logger *zap.SugaredLogger,
) *ChannelSyncEngine {
	return &ChannelSyncEngine{
		resolver:   resolver,
		identity:   identity,
		membership: membership,
		channels:   channels,
		users:      users,
		unread:     unread,
		roles:      roles,
		provider:   provider,
		logger:     logger,
	}
}

// CreateOrSync creates the channel remotely and mirrors it locally, or
// imports an existing remote channel of the same name. Calling it twice
// with the same name yields exactly one local row.
//
// Default-general uniqueness is guarded by the caller; this method only
// matches the general metadata marker when asked for one.
func (e *ChannelSyncEngine) CreateOrSync(ctx context.Context, params ChannelParams, creatorID uuid.UUID) (models.Channel, error) {
	creatorRef, cfg, err := e.identity.EnsureIdentity(ctx, creatorID)
	if err != nil {
		return models.Channel{}, err
	}

	remoteChannels, err := e.provider.ListChannels(ctx, cfg.AppInstanceRef, creatorRef)
	if err != nil {
		return models.Channel{}, fmt.Errorf("list remote channels: %w", err)
	}

	for _, rc := range remoteChannels {
		if rc.Name != params.Name {
			continue
		}
		if params.IsDefaultGeneral && rc.Metadata != remote.MetadataGeneralMarker {
			continue
		}
		return e.importChannel(ctx, rc, params, cfg, creatorID)
	}

	return e.createChannel(ctx, params, cfg, creatorID, creatorRef)
}

// importChannel mirrors an already-existing remote channel: remote
// membership is mapped back to local users, the creator is force-included
// as member and admin, and one local row referencing the remote channel is
// persisted. A second import of the same remote channel returns the
// existing row unchanged.
func (e *ChannelSyncEngine) importChannel(ctx context.Context, rc remote.Channel, params ChannelParams, cfg TenantConfig, creatorID uuid.UUID) (models.Channel, error) {
	existing, err := e.channels.GetByRemoteRef(ctx, rc.Ref)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repositories.ErrChannelNotFound) {
		return models.Channel{}, fmt.Errorf("lookup remote ref: %w", err)
	}

	creatorRef := remote.IdentityRef(cfg.AppInstanceRef, creatorID.String())
	remoteMembers, err := e.provider.ListMemberships(ctx, rc.Ref, creatorRef)
	if err != nil {
		return models.Channel{}, fmt.Errorf("list remote memberships: %w", err)
	}

	memberIDs := []uuid.UUID{creatorID}
	seen := map[uuid.UUID]struct{}{creatorID: {}}
	for _, member := range remoteMembers {
		rawID, ok := remote.LocalUserID(member.IdentityRef)
		if !ok {
			e.logger.Warnw("skipping unmappable remote member",
				"channel_ref", rc.Ref, "identity_ref", member.IdentityRef)
			continue
		}
		userID, err := uuid.Parse(rawID)
		if err != nil {
			e.logger.Warnw("skipping remote member with malformed user id",
				"channel_ref", rc.Ref, "identity_ref", member.IdentityRef)
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		exists, err := e.users.Exists(ctx, userID)
		if err != nil {
			return models.Channel{}, fmt.Errorf("lookup local user: %w", err)
		}
		if !exists {
			e.logger.Warnw("skipping remote member unknown locally",
				"channel_ref", rc.Ref, "user_id", userID)
			continue
		}
		seen[userID] = struct{}{}
		memberIDs = append(memberIDs, userID)
	}

	channel := models.Channel{
		ID:               uuid.New(),
		TenantID:         cfg.TenantID,
		Name:             params.Name,
		Description:      params.Description,
		IsPrivate:        params.IsPrivate,
		IsDefaultGeneral: params.IsDefaultGeneral,
		RemoteRef:        rc.Ref,
		RemoteMode:       rc.Mode,
		RemotePrivacy:    rc.Privacy,
		CreatedBy:        creatorID,
	}
	created, err := e.channels.Create(ctx, channel, memberIDs, []uuid.UUID{creatorID})
	if err != nil {
		return models.Channel{}, fmt.Errorf("persist imported channel: %w", err)
	}

	if err := e.roles.Grant(ctx, created.ID, creatorID, models.RoleModerator); err != nil {
		return models.Channel{}, fmt.Errorf("grant importer moderator: %w", err)
	}

	now := time.Now().UTC()
	for _, memberID := range memberIDs {
		err := e.unread.EnsureTracking(ctx, models.ChannelMembership{
			ChannelID:     created.ID,
			UserID:        memberID,
			TenantID:      cfg.TenantID,
			LastReadAt:    now,
			LastMessageAt: now,
			NotifyEnabled: true,
		})
		if err != nil {
			return models.Channel{}, fmt.Errorf("init read tracking for %s: %w", memberID, err)
		}
	}

	e.logger.Infow("remote channel imported",
		"channel_id", created.ID, "channel_ref", rc.Ref, "members", len(memberIDs))
	return created, nil
}

// createChannel is the fresh-create path: remote channel first, then the
// local mirror with the creator as sole member and admin. The remote
// moderator grant for the creator is best effort.
func (e *ChannelSyncEngine) createChannel(ctx context.Context, params ChannelParams, cfg TenantConfig, creatorID uuid.UUID, creatorRef string) (models.Channel, error) {
	privacy := remote.PrivacyPublic
	if params.IsPrivate {
		privacy = remote.PrivacyPrivate
	}
	metadata := ""
	if params.IsDefaultGeneral {
		metadata = remote.MetadataGeneralMarker
	}

	rc, err := e.provider.CreateChannel(ctx, cfg.AppInstanceRef, params.Name, params.Description, privacy, metadata, creatorRef)
	if err != nil {
		return models.Channel{}, fmt.Errorf("create remote channel: %w", err)
	}

	channel := models.Channel{
		ID:               uuid.New(),
		TenantID:         cfg.TenantID,
		Name:             params.Name,
		Description:      params.Description,
		IsPrivate:        params.IsPrivate,
		IsDefaultGeneral: params.IsDefaultGeneral,
		RemoteRef:        rc.Ref,
		RemoteMode:       rc.Mode,
		RemotePrivacy:    rc.Privacy,
		CreatedBy:        creatorID,
	}
	created, err := e.channels.Create(ctx, channel, []uuid.UUID{creatorID}, []uuid.UUID{creatorID})
	if err != nil {
		return models.Channel{}, fmt.Errorf("persist channel: %w", err)
	}

	if err := e.provider.CreateMembership(ctx, rc.Ref, creatorRef, creatorRef); err != nil {
		if !errors.Is(err, remote.ErrConflict) {
			return models.Channel{}, fmt.Errorf("add creator membership: %w", err)
		}
	}
	if err := e.provider.CreateModerator(ctx, rc.Ref, creatorRef, creatorRef); err != nil {
		if !errors.Is(err, remote.ErrConflict) {
			e.logger.Warnw("creator moderator grant failed",
				"channel_id", created.ID, "channel_ref", rc.Ref, "error", err)
		}
	}

	// The local grant is the authorization source for delete/redact checks,
	// so the creator can manage the channel even when the remote grant above
	// was only best effort.
	if err := e.roles.Grant(ctx, created.ID, creatorID, models.RoleModerator); err != nil {
		return models.Channel{}, fmt.Errorf("grant creator moderator: %w", err)
	}

	now := time.Now().UTC()
	err = e.unread.EnsureTracking(ctx, models.ChannelMembership{
		ChannelID:     created.ID,
		UserID:        creatorID,
		TenantID:      cfg.TenantID,
		LastReadAt:    now,
		LastMessageAt: now,
		NotifyEnabled: true,
	})
	if err != nil {
		return models.Channel{}, fmt.Errorf("init creator read tracking: %w", err)
	}

	e.logger.Infow("channel created", "channel_id", created.ID, "channel_ref", rc.Ref, "name", params.Name)
	return created, nil
}

// EnsureGeneralAndJoin returns the default general channel, creating it if
// this deployment has none yet, and joins the user to it.
func (e *ChannelSyncEngine) EnsureGeneralAndJoin(ctx context.Context, userID uuid.UUID) (models.Channel, error) {
	channel, err := e.channels.GetDefaultGeneral(ctx)
	if errors.Is(err, repositories.ErrChannelNotFound) {
		return e.CreateOrSync(ctx, ChannelParams{
			Name:             GeneralChannelName,
			Description:      "Tenant-wide general discussion",
			IsDefaultGeneral: true,
		}, userID)
	}
	if err != nil {
		return models.Channel{}, fmt.Errorf("lookup general channel: %w", err)
	}

	if _, err := e.membership.AddMember(ctx, channel.ID, userID, userID); err != nil {
		return models.Channel{}, err
	}
	return channel, nil
}

// HasDefaultGeneral reports whether a default general channel exists;
// callers use it to reject a second default-general create before the
// sync engine runs.
func (e *ChannelSyncEngine) HasDefaultGeneral(ctx context.Context) (bool, error) {
	_, err := e.channels.GetDefaultGeneral(ctx)
	if errors.Is(err, repositories.ErrChannelNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes the channel remotely first and only then locally: when
// the remote delete fails the local rows stay untouched. Local messages
// go away with the channel row.
func (e *ChannelSyncEngine) Delete(ctx context.Context, channelID, operatorID uuid.UUID) error {
	channel, err := e.channels.GetByID(ctx, channelID)
	if err != nil {
		if errors.Is(err, repositories.ErrChannelNotFound) {
			return fmt.Errorf("channel %s: %w", channelID, ErrLocalNotFound)
		}
		return fmt.Errorf("load channel: %w", err)
	}

	if channel.RemoteRef != "" {
		cfg, err := e.resolver.Resolve(ctx, operatorID)
		if err != nil {
			return err
		}
		operatorRef := remote.IdentityRef(cfg.AppInstanceRef, operatorID.String())
		if err := e.provider.DeleteChannel(ctx, channel.RemoteRef, operatorRef); err != nil {
			// Already gone remotely is fine; anything else aborts before
			// local rows are touched.
			if !errors.Is(err, remote.ErrNotFound) {
				return fmt.Errorf("delete remote channel: %w", err)
			}
		}
	}

	if err := e.channels.Delete(ctx, channelID); err != nil {
		return fmt.Errorf("delete local channel: %w", err)
	}
	e.logger.Infow("channel deleted", "channel_id", channelID, "channel_ref", channel.RemoteRef)
	return nil
}

// ListForTenant returns the caller's tenant channels.
func (e *ChannelSyncEngine) ListForTenant(ctx context.Context, userID uuid.UUID) ([]models.Channel, error) {
	cfg, err := e.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	return e.channels.ListByTenant(ctx, cfg.TenantID)
}
