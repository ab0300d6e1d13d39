package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"discussion-service/internal/remote"
	"discussion-service/internal/repositories"
)

// IdentityBridge maps local users onto remote identities, creating them
// lazily. An identity is never recreated once it exists.
type IdentityBridge struct {
	resolver *TenantConfigResolver
	users    repositories.UserRepository
	identity remote.IdentityAPI
	logger   *zap.SugaredLogger
}

// NewIdentityBridge constructs an IdentityBridge.
func NewIdentityBridge(resolver *TenantConfigResolver, users repositories.UserRepository, identity remote.IdentityAPI, logger *zap.SugaredLogger) *IdentityBridge {
	return &IdentityBridge{resolver: resolver, users: users, identity: identity, logger: logger}
}

// EnsureIdentity resolves the user's tenant config and guarantees the
// matching remote identity exists. The provider may answer a describe with
// forbidden instead of not-found when permissions are narrow; both mean
// "create it". The resolved config is returned so the caller performs one
// resolution per operation.
func (b *IdentityBridge) EnsureIdentity(ctx context.Context, userID uuid.UUID) (string, TenantConfig, error) {
	cfg, err := b.resolver.Resolve(ctx, userID)
	if err != nil {
		return "", TenantConfig{}, err
	}

	ref := remote.IdentityRef(cfg.AppInstanceRef, userID.String())
	_, err = b.identity.DescribeIdentity(ctx, ref)
	if err == nil {
		return ref, cfg, nil
	}
	if !remote.IsNotFoundOrForbidden(err) {
		return "", TenantConfig{}, fmt.Errorf("describe identity: %w", err)
	}

	user, err := b.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return "", TenantConfig{}, fmt.Errorf("user %s: %w", userID, ErrLocalNotFound)
		}
		return "", TenantConfig{}, fmt.Errorf("load user: %w", err)
	}

	created, err := b.identity.CreateIdentity(ctx, cfg.AppInstanceRef, userID.String(), remote.IdentityAttrs{
		DisplayName:     user.DisplayName,
		Email:           user.Email,
		ExternalSubject: user.ExternalSubject,
	})
	if err != nil {
		// A concurrent ensure may have won the create; that outcome is fine.
		if errors.Is(err, remote.ErrConflict) {
			return ref, cfg, nil
		}
		return "", TenantConfig{}, fmt.Errorf("create identity: %w", err)
	}

	b.logger.Infow("remote identity created", "user_id", userID, "identity_ref", created.Ref)
	return created.Ref, cfg, nil
}

// PromoteToAdmin ensures the identity and then grants it application
// instance admin rights. Already-an-admin responses count as success.
func (b *IdentityBridge) PromoteToAdmin(ctx context.Context, userID uuid.UUID) error {
	ref, cfg, err := b.EnsureIdentity(ctx, userID)
	if err != nil {
		return err
	}

	err = b.identity.CreateAdminGrant(ctx, cfg.AppInstanceRef, ref, cfg.AdminRoleRef)
	if err != nil && !errors.Is(err, remote.ErrConflict) {
		return fmt.Errorf("create admin grant: %w", err)
	}
	return nil
}
