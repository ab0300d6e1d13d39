package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"discussion-service/internal/models"
	"discussion-service/internal/observability"
	"discussion-service/internal/remote"
	"discussion-service/internal/repositories"
)

// reconcilerPageSize bounds how much remote history one pass pulls per
// channel; older gaps are picked up by subsequent passes.
const (
	reconcilerPageSize = 50
	reconcilerMaxPages = 5
)

// Reconciler periodically walks every configured tenant's remote channels
// and repairs missing local mirror rows. It is the compensation for the
// remote-success/local-failure window: a send whose local insert failed
// becomes visible again on the next pass.
type Reconciler struct {
	tenants  repositories.TenantRepository
	channels repositories.ChannelRepository
	messages repositories.MessageRepository
	provider remote.Messaging
	logger   *zap.SugaredLogger
	interval time.Duration
}

// NewReconciler constructs a Reconciler. A non-positive interval disables Run.
func NewReconciler(
	tenants repositories.TenantRepository,
	channels repositories.ChannelRepository,
	messages repositories.MessageRepository,
	provider remote.Messaging,
	logger *zap.SugaredLogger,
	interval time.Duration,
) *Reconciler {
	return &Reconciler{
		tenants:  tenants,
		channels: channels,
		messages: messages,
		provider: provider,
		logger:   logger,
		interval: interval,
	}
}

// Run loops until the context is cancelled. Every pass is independent;
// a failing pass is logged and the next tick tries again.
func (r *Reconciler) Run(ctx context.Context) {
	if r.interval <= 0 {
		r.logger.Info("reconciler disabled")
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Infow("reconciler started", "interval", r.interval)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			if err := r.RunOnce(ctx); err != nil {
				r.logger.Warnw("reconciliation pass failed", "error", err)
			}
		}
	}
}

// RunOnce performs a single reconciliation pass across all configured tenants.
func (r *Reconciler) RunOnce(ctx context.Context) error {
	tenants, err := r.tenants.ListConfigured(ctx)
	if err != nil {
		return err
	}

	for _, tenant := range tenants {
		if tenant.BearerRef == "" {
			r.logger.Warnw("tenant has no bearer for reconciliation", "tenant_id", tenant.ID)
			continue
		}
		if err := r.reconcileTenant(ctx, tenant); err != nil {
			r.logger.Warnw("tenant reconciliation failed", "tenant_id", tenant.ID, "error", err)
		}
	}
	return nil
}

func (r *Reconciler) reconcileTenant(ctx context.Context, tenant models.Tenant) error {
	remoteChannels, err := r.provider.ListChannels(ctx, tenant.AppInstanceRef, tenant.BearerRef)
	if err != nil {
		return err
	}

	for _, rc := range remoteChannels {
		channel, err := r.channels.GetByRemoteRef(ctx, rc.Ref)
		if err != nil {
			if errors.Is(err, repositories.ErrChannelNotFound) {
				// Channels nobody imported yet stay remote-only; import is
				// a user-driven decision.
				continue
			}
			return err
		}
		if err := r.reconcileChannel(ctx, tenant, channel); err != nil {
			r.logger.Warnw("channel reconciliation failed",
				"tenant_id", tenant.ID, "channel_id", channel.ID, "error", err)
		}
	}
	return nil
}

func (r *Reconciler) reconcileChannel(ctx context.Context, tenant models.Tenant, channel models.Channel) error {
	nextToken := ""
	for page := 0; page < reconcilerMaxPages; page++ {
		msgPage, err := r.provider.ListMessages(ctx, channel.RemoteRef, tenant.BearerRef, nextToken, reconcilerPageSize)
		if err != nil {
			return err
		}

		rows := make([]models.Message, 0, len(msgPage.Messages))
		for _, rm := range msgPage.Messages {
			rawID, ok := remote.LocalUserID(rm.SenderRef)
			if !ok {
				continue
			}
			authorID, err := uuid.Parse(rawID)
			if err != nil {
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

		inserted, err := r.messages.MirrorInsert(ctx, rows)
		if err != nil {
			return err
		}
		if inserted > 0 {
			observability.AddMirrorBackfill(inserted)
			r.logger.Infow("mirror rows repaired",
				"channel_id", channel.ID, "inserted", inserted)
		}

		nextToken = msgPage.NextToken
		if nextToken == "" {
			break
		}
	}
	return nil
}
