package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"discussion-service/internal/mocks"
	"discussion-service/internal/models"
	"discussion-service/internal/remote"
	"discussion-service/internal/repositories"
)

func TestReconcilerRepairsMissingMirrors(t *testing.T) {
	tenantRepo := new(mocks.TenantRepositoryMock)
	channelRepo := new(mocks.ChannelRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	provider := new(mocks.MessagingMock)
	rec := NewReconciler(tenantRepo, channelRepo, messageRepo, provider, zap.NewNop().Sugar(), time.Minute)

	tenant := models.Tenant{ID: uuid.New(), AppInstanceRef: "apps/acme", BearerRef: "bearer/acme"}
	authorID := uuid.New()
	channel := models.Channel{ID: uuid.New(), TenantID: tenant.ID, RemoteRef: "channels/abc"}

	tenantRepo.On("ListConfigured", mock.Anything).Return([]models.Tenant{tenant}, nil).Once()
	provider.On("ListChannels", mock.Anything, "apps/acme", "bearer/acme").
		Return([]remote.Channel{{Ref: "channels/abc", Name: "design"}}, nil).Once()
	channelRepo.On("GetByRemoteRef", mock.Anything, "channels/abc").Return(channel, nil).Once()
	provider.On("ListMessages", mock.Anything, "channels/abc", "bearer/acme", "", 50).
		Return(remote.MessagePage{Messages: []remote.Message{
			{ID: "rm-1", SenderRef: remote.IdentityRef("apps/acme", authorID.String()), Content: "hi"},
		}}, nil).Once()
	messageRepo.On("MirrorInsert", mock.Anything, mock.MatchedBy(func(rows []models.Message) bool {
		return len(rows) == 1 && rows[0].RemoteMessageID == "rm-1" && rows[0].AuthorID == authorID
	})).Return(1, nil).Once()

	require.NoError(t, rec.RunOnce(context.Background()))
	messageRepo.AssertExpectations(t)
	provider.AssertExpectations(t)
}

// Remote channels nobody imported stay remote-only; the pass must not
// create local rows for them.
func TestReconcilerSkipsUnimportedChannels(t *testing.T) {
	tenantRepo := new(mocks.TenantRepositoryMock)
	channelRepo := new(mocks.ChannelRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	provider := new(mocks.MessagingMock)
	rec := NewReconciler(tenantRepo, channelRepo, messageRepo, provider, zap.NewNop().Sugar(), time.Minute)

	tenant := models.Tenant{ID: uuid.New(), AppInstanceRef: "apps/acme", BearerRef: "bearer/acme"}
	tenantRepo.On("ListConfigured", mock.Anything).Return([]models.Tenant{tenant}, nil).Once()
	provider.On("ListChannels", mock.Anything, "apps/acme", "bearer/acme").
		Return([]remote.Channel{{Ref: "channels/stray"}}, nil).Once()
	channelRepo.On("GetByRemoteRef", mock.Anything, "channels/stray").
		Return(models.Channel{}, repositories.ErrChannelNotFound).Once()

	require.NoError(t, rec.RunOnce(context.Background()))
	provider.AssertNotCalled(t, "ListMessages", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	messageRepo.AssertNotCalled(t, "MirrorInsert", mock.Anything, mock.Anything)
}

func TestReconcilerSkipsTenantsWithoutBearer(t *testing.T) {
	tenantRepo := new(mocks.TenantRepositoryMock)
	provider := new(mocks.MessagingMock)
	rec := NewReconciler(tenantRepo, new(mocks.ChannelRepositoryMock), new(mocks.MessageRepositoryMock), provider, zap.NewNop().Sugar(), time.Minute)

	tenantRepo.On("ListConfigured", mock.Anything).
		Return([]models.Tenant{{ID: uuid.New(), AppInstanceRef: "apps/acme"}}, nil).Once()

	require.NoError(t, rec.RunOnce(context.Background()))
	provider.AssertNotCalled(t, "ListChannels", mock.Anything, mock.Anything, mock.Anything)
}
