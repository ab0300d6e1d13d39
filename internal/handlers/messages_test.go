package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"discussion-service/internal/mocks"
	"discussion-service/internal/models"
	"discussion-service/internal/remote"
	"discussion-service/internal/services"
)

type messageTestEnv struct {
	tenantRepo  *mocks.TenantRepositoryMock
	channelRepo *mocks.ChannelRepositoryMock
	messageRepo *mocks.MessageRepositoryMock
	roleRepo    *mocks.RoleRepositoryMock
	provider    *mocks.MessagingMock
	identityAPI *mocks.IdentityAPIMock
	handler     *MessageHandler
	userID      uuid.UUID
	tenantID    uuid.UUID
	channel     models.Channel
}

func newMessageTestEnv(t *testing.T) *messageTestEnv {
	t.Helper()

	env := &messageTestEnv{
		tenantRepo:  new(mocks.TenantRepositoryMock),
		channelRepo: new(mocks.ChannelRepositoryMock),
		messageRepo: new(mocks.MessageRepositoryMock),
		roleRepo:    new(mocks.RoleRepositoryMock),
		provider:    new(mocks.MessagingMock),
		identityAPI: new(mocks.IdentityAPIMock),
		userID:      uuid.New(),
		tenantID:    uuid.New(),
	}
	env.channel = models.Channel{ID: uuid.New(), TenantID: env.tenantID, Name: "design", RemoteRef: "channels/abc"}

	logger := zap.NewNop().Sugar()
	resolver := services.NewTenantConfigResolver(env.tenantRepo)
	userRepo := new(mocks.UserRepositoryMock)
	unreadRepo := new(mocks.UnreadRepositoryMock)
	reactionRepo := new(mocks.ReactionRepositoryMock)
	identity := services.NewIdentityBridge(resolver, userRepo, env.identityAPI, logger)
	membership := services.NewMembershipManager(resolver, identity, env.channelRepo, env.messageRepo, unreadRepo, env.roleRepo, env.provider, logger)
	tracker := services.NewUnreadCountTracker(env.channelRepo, unreadRepo, logger)
	mirror := services.NewMessageMirror(resolver, identity, membership, env.channelRepo, env.messageRepo, reactionRepo, tracker, env.provider, logger)
	env.handler = NewMessageHandler(mirror, membership, env.messageRepo, nil)
	return env
}

func (env *messageTestEnv) router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", env.userID)
		c.Next()
	})
	r.GET("/channels/:channel_id/messages", env.handler.ListMessages)
	r.POST("/channels/:channel_id/messages", env.handler.SendMessage)
	r.POST("/channels/:channel_id/messages/:message_id/redact", env.handler.RedactMessage)
	r.DELETE("/channels/:channel_id/messages/:message_id", env.handler.DeleteMessage)
	r.POST("/channels/:channel_id/messages/:message_id/reactions", env.handler.React)
	return r
}

func (env *messageTestEnv) tenantResolves() {
	env.tenantRepo.On("ActiveLinkForUser", mock.Anything, env.userID).
		Return(models.TenantUserLink{ID: uuid.New(), TenantID: env.tenantID}, nil)
	env.tenantRepo.On("GetTenant", mock.Anything, env.tenantID).
		Return(models.Tenant{ID: env.tenantID, AppInstanceRef: "apps/acme"}, nil)
}

func TestListMessagesInvalidPageSize(t *testing.T) {
	env := newMessageTestEnv(t)
	router := env.router()

	req := httptest.NewRequest(http.MethodGet, "/channels/"+env.channel.ID.String()+"/messages?page_size=zero", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteMessageRequiresAuthorOrModerator(t *testing.T) {
	env := newMessageTestEnv(t)
	router := env.router()

	otherAuthor := uuid.New()
	env.messageRepo.On("GetByRemoteID", mock.Anything, "rm-1").
		Return(models.Message{ID: 1, ChannelID: env.channel.ID, AuthorID: otherAuthor, RemoteMessageID: "rm-1"}, nil).Once()
	env.roleRepo.On("Has", mock.Anything, env.channel.ID, env.userID, models.RoleModerator).
		Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/channels/"+env.channel.ID.String()+"/messages/rm-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	env.provider.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRedactMessageByAuthor(t *testing.T) {
	env := newMessageTestEnv(t)
	env.tenantResolves()
	router := env.router()

	userRef := remote.IdentityRef("apps/acme", env.userID.String())
	env.messageRepo.On("GetByRemoteID", mock.Anything, "rm-1").
		Return(models.Message{ID: 1, ChannelID: env.channel.ID, AuthorID: env.userID, RemoteMessageID: "rm-1"}, nil).Once()
	env.channelRepo.On("GetByID", mock.Anything, env.channel.ID).Return(env.channel, nil).Once()
	env.identityAPI.On("DescribeIdentity", mock.Anything, userRef).
		Return(remote.Identity{Ref: userRef}, nil).Once()
	env.provider.On("RedactMessage", mock.Anything, "channels/abc", "rm-1", userRef).Return(nil).Once()
	env.messageRepo.On("Redact", mock.Anything, "rm-1").Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/channels/"+env.channel.ID.String()+"/messages/rm-1/redact", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	env.messageRepo.AssertExpectations(t)
	env.provider.AssertExpectations(t)
}

func TestDeleteMessageWrongChannel(t *testing.T) {
	env := newMessageTestEnv(t)
	router := env.router()

	env.messageRepo.On("GetByRemoteID", mock.Anything, "rm-1").
		Return(models.Message{ID: 1, ChannelID: uuid.New(), AuthorID: env.userID}, nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/channels/"+env.channel.ID.String()+"/messages/rm-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReactBadKind(t *testing.T) {
	env := newMessageTestEnv(t)
	router := env.router()

	body := bytes.NewBufferString(`{"kind":"sparkle"}`)
	req := httptest.NewRequest(http.MethodPost, "/channels/"+env.channel.ID.String()+"/messages/rm-1/reactions", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
