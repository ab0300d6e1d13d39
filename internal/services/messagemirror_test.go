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
)

type mirrorFixture struct {
	tenantRepo   *mocks.TenantRepositoryMock
	userRepo     *mocks.UserRepositoryMock
	channelRepo  *mocks.ChannelRepositoryMock
	messageRepo  *mocks.MessageRepositoryMock
	reactionRepo *mocks.ReactionRepositoryMock
	unreadRepo   *mocks.UnreadRepositoryMock
	roleRepo     *mocks.RoleRepositoryMock
	provider     *mocks.MessagingMock
	identityAPI  *mocks.IdentityAPIMock
	mirror       *MessageMirror
	userID       uuid.UUID
	tenantID     uuid.UUID
	userRef      string
	channel      models.Channel
}

func newMirrorFixture(t *testing.T) *mirrorFixture {
	t.Helper()

	f := &mirrorFixture{
		userRepo:     new(mocks.UserRepositoryMock),
		channelRepo:  new(mocks.ChannelRepositoryMock),
		messageRepo:  new(mocks.MessageRepositoryMock),
		reactionRepo: new(mocks.ReactionRepositoryMock),
		unreadRepo:   new(mocks.UnreadRepositoryMock),
		roleRepo:     new(mocks.RoleRepositoryMock),
		provider:     new(mocks.MessagingMock),
		identityAPI:  new(mocks.IdentityAPIMock),
		userID:       uuid.New(),
		tenantID:     uuid.New(),
	}
	f.tenantRepo = stubTenantRepo(f.userID, f.tenantID, "apps/acme")
	f.userRef = remote.IdentityRef("apps/acme", f.userID.String())
	f.channel = models.Channel{ID: uuid.New(), TenantID: f.tenantID, Name: "design", RemoteRef: "channels/abc"}

	logger := zap.NewNop().Sugar()
	resolver := NewTenantConfigResolver(f.tenantRepo)
	identity := NewIdentityBridge(resolver, f.userRepo, f.identityAPI, logger)
	membership := NewMembershipManager(resolver, identity, f.channelRepo, f.messageRepo, f.unreadRepo, f.roleRepo, f.provider, logger)
	tracker := NewUnreadCountTracker(f.channelRepo, f.unreadRepo, logger)
	f.mirror = NewMessageMirror(resolver, identity, membership, f.channelRepo, f.messageRepo, f.reactionRepo, tracker, f.provider, logger)
	return f
}

func (f *mirrorFixture) memberAlready() {
	f.identityAPI.On("DescribeIdentity", mock.Anything, f.userRef).
		Return(remote.Identity{Ref: f.userRef}, nil)
	f.channelRepo.On("GetByID", mock.Anything, f.channel.ID).Return(f.channel, nil)
	f.provider.On("CreateMembership", mock.Anything, "channels/abc", f.userRef, f.userRef).
		Return(remote.ErrConflict)
	f.channelRepo.On("AddMemberIfAbsent", mock.Anything, f.channel.ID, f.userID, false).
		Return(false, nil)
}

func TestSendStoresMirrorAndFansOut(t *testing.T) {
	f := newMirrorFixture(t)
	f.memberAlready()

	f.provider.On("SendMessage", mock.Anything, "channels/abc", f.userRef, "hello").
		Return("rm-1", nil).Once()
	f.messageRepo.On("InsertRemote", mock.Anything, mock.MatchedBy(func(m models.Message) bool {
		return m.RemoteMessageID == "rm-1" && m.ChannelID == f.channel.ID && m.AuthorID == f.userID && m.Provider == models.ProviderRemote
	})).Return(models.Message{ID: 41, RemoteMessageID: "rm-1", Content: "hello"}, nil).Once()
	f.unreadRepo.On("IncrementExceptSender", mock.Anything, f.channel.ID, f.userID, mock.Anything).
		Return(int64(3), nil).Once()

	msg, err := f.mirror.Send(context.Background(), f.channel.ID, f.userID, "hello")
	require.NoError(t, err)
	require.Equal(t, "rm-1", msg.RemoteMessageID)
	f.messageRepo.AssertExpectations(t)
	f.unreadRepo.AssertExpectations(t)
}

// A send right after a join can bounce while the provider propagates the
// membership; the mirror retries with backoff until it lands.
func TestSendRetriesWhileMembershipPropagates(t *testing.T) {
	f := newMirrorFixture(t)
	f.memberAlready()

	f.provider.On("SendMessage", mock.Anything, "channels/abc", f.userRef, "hello").
		Return("", remote.ErrForbidden).Once()
	f.provider.On("SendMessage", mock.Anything, "channels/abc", f.userRef, "hello").
		Return("rm-2", nil).Once()
	f.messageRepo.On("InsertRemote", mock.Anything, mock.Anything).
		Return(models.Message{ID: 42, RemoteMessageID: "rm-2"}, nil).Once()
	f.unreadRepo.On("IncrementExceptSender", mock.Anything, f.channel.ID, f.userID, mock.Anything).
		Return(int64(0), nil).Once()

	msg, err := f.mirror.Send(context.Background(), f.channel.ID, f.userID, "hello")
	require.NoError(t, err)
	require.Equal(t, "rm-2", msg.RemoteMessageID)
	f.provider.AssertExpectations(t)
}

func TestSendGivesUpOnHardError(t *testing.T) {
	f := newMirrorFixture(t)
	f.memberAlready()

	f.provider.On("SendMessage", mock.Anything, "channels/abc", f.userRef, "hello").
		Return("", remote.ErrUnavailable).Once()

	_, err := f.mirror.Send(context.Background(), f.channel.ID, f.userID, "hello")
	require.ErrorIs(t, err, remote.ErrUnavailable)
	f.messageRepo.AssertNotCalled(t, "InsertRemote", mock.Anything, mock.Anything)
}

// Mirroring the same remote message twice moves unread counters once.
func TestMirrorIdempotent(t *testing.T) {
	f := newMirrorFixture(t)

	f.channelRepo.On("GetByID", mock.Anything, f.channel.ID).Return(f.channel, nil)
	stored := models.Message{ID: 7, ChannelID: f.channel.ID, RemoteMessageID: "rm-9", Content: "hi"}

	f.messageRepo.On("MirrorInsert", mock.Anything, mock.Anything).Return(1, nil).Once()
	f.unreadRepo.On("IncrementExceptSender", mock.Anything, f.channel.ID, f.userID, mock.Anything).
		Return(int64(2), nil).Once()
	f.messageRepo.On("GetByRemoteID", mock.Anything, "rm-9").Return(stored, nil)

	first, err := f.mirror.Mirror(context.Background(), f.channel.ID, f.userID, "hi", "rm-9")
	require.NoError(t, err)
	require.Equal(t, stored.ID, first.ID)

	f.messageRepo.On("MirrorInsert", mock.Anything, mock.Anything).Return(0, nil).Once()

	second, err := f.mirror.Mirror(context.Background(), f.channel.ID, f.userID, "hi", "rm-9")
	require.NoError(t, err)
	require.Equal(t, stored.ID, second.ID)

	f.unreadRepo.AssertNumberOfCalls(t, "IncrementExceptSender", 1)
}

func TestListMergesLocalState(t *testing.T) {
	f := newMirrorFixture(t)

	f.channelRepo.On("GetByID", mock.Anything, f.channel.ID).Return(f.channel, nil)
	f.identityAPI.On("DescribeIdentity", mock.Anything, f.userRef).
		Return(remote.Identity{Ref: f.userRef}, nil)
	f.provider.On("DescribeChannel", mock.Anything, "channels/abc", f.userRef).
		Return(remote.Channel{Ref: "channels/abc"}, nil).Once()

	authorID := uuid.New()
	authorRef := remote.IdentityRef("apps/acme", authorID.String())
	now := time.Now().UTC()
	f.provider.On("ListMessages", mock.Anything, "channels/abc", f.userRef, "", 50).
		Return(remote.MessagePage{Messages: []remote.Message{
			{ID: "rm-1", SenderRef: authorRef, Content: "visible", CreatedAt: now},
			{ID: "rm-2", SenderRef: authorRef, Content: "redacted text", CreatedAt: now},
		}}, nil).Once()
	f.messageRepo.On("MirrorInsert", mock.Anything, mock.Anything).Return(0, nil).Once()
	f.messageRepo.On("GetByRemoteIDs", mock.Anything, []string{"rm-1", "rm-2"}).
		Return([]models.Message{
			{ID: 1, RemoteMessageID: "rm-1", AuthorID: authorID},
			{ID: 2, RemoteMessageID: "rm-2", AuthorID: authorID, IsRedacted: true},
		}, nil).Once()
	f.reactionRepo.On("CountsForMessages", mock.Anything, []int64{1, 2}).
		Return(map[int64]map[string]int{1: {models.ReactionLike: 2}}, nil).Once()
	f.reactionRepo.On("UserKindsForMessages", mock.Anything, []int64{1, 2}, f.userID).
		Return(map[int64]map[string]bool{1: {models.ReactionLike: true}}, nil).Once()

	items, nextToken, err := f.mirror.List(context.Background(), f.channel.ID, f.userID, "", 50)
	require.NoError(t, err)
	require.Empty(t, nextToken)
	require.Len(t, items, 2)

	require.Equal(t, "visible", items[0].Content)
	require.Equal(t, 2, items[0].Reactions[models.ReactionLike].Count)
	require.True(t, items[0].Reactions[models.ReactionLike].Reacted)

	require.True(t, items[1].IsRedacted)
	require.Empty(t, items[1].Content)
}

func TestListBackfillsMissingMirrors(t *testing.T) {
	f := newMirrorFixture(t)

	f.channelRepo.On("GetByID", mock.Anything, f.channel.ID).Return(f.channel, nil)
	f.identityAPI.On("DescribeIdentity", mock.Anything, f.userRef).
		Return(remote.Identity{Ref: f.userRef}, nil)
	f.provider.On("DescribeChannel", mock.Anything, "channels/abc", f.userRef).
		Return(remote.Channel{Ref: "channels/abc"}, nil).Once()

	authorID := uuid.New()
	authorRef := remote.IdentityRef("apps/acme", authorID.String())
	f.provider.On("ListMessages", mock.Anything, "channels/abc", f.userRef, "", 50).
		Return(remote.MessagePage{Messages: []remote.Message{
			{ID: "rm-5", SenderRef: authorRef, Content: "from another client"},
			{ID: "rm-6", SenderRef: "foreign/identity", Content: "not ours"},
		}}, nil).Once()
	// Only the mappable sender is backfilled.
	f.messageRepo.On("MirrorInsert", mock.Anything, mock.MatchedBy(func(rows []models.Message) bool {
		return len(rows) == 1 && rows[0].RemoteMessageID == "rm-5" && rows[0].AuthorID == authorID
	})).Return(1, nil).Once()
	f.messageRepo.On("GetByRemoteIDs", mock.Anything, []string{"rm-5", "rm-6"}).
		Return([]models.Message{{ID: 5, RemoteMessageID: "rm-5", AuthorID: authorID}}, nil).Once()
	f.reactionRepo.On("CountsForMessages", mock.Anything, []int64{5}).
		Return(map[int64]map[string]int{}, nil).Once()
	f.reactionRepo.On("UserKindsForMessages", mock.Anything, []int64{5}, f.userID).
		Return(map[int64]map[string]bool{}, nil).Once()

	items, _, err := f.mirror.List(context.Background(), f.channel.ID, f.userID, "", 50)
	require.NoError(t, err)
	require.Len(t, items, 2)
	f.messageRepo.AssertExpectations(t)
}

func TestReactInvalidKind(t *testing.T) {
	f := newMirrorFixture(t)

	_, err := f.mirror.React(context.Background(), f.channel.ID, "rm-1", f.userID, "sparkle")
	require.ErrorIs(t, err, ErrInvalidReaction)
}

func TestReactNotifiesCounts(t *testing.T) {
	f := newMirrorFixture(t)

	f.channelRepo.On("GetByID", mock.Anything, f.channel.ID).Return(f.channel, nil)
	f.messageRepo.On("GetByRemoteID", mock.Anything, "rm-1").
		Return(models.Message{ID: 9, ChannelID: f.channel.ID, RemoteMessageID: "rm-1"}, nil).Once()
	f.reactionRepo.On("Add", mock.Anything, int64(9), f.userID, models.ReactionLove).
		Return(true, nil).Once()
	f.reactionRepo.On("CountsForMessage", mock.Anything, int64(9)).
		Return(map[string]int{models.ReactionLove: 1}, nil).Once()
	f.provider.On("SendNotification", mock.Anything, "channels/abc", f.userRef, mock.Anything).
		Return(nil).Once()

	counts, err := f.mirror.React(context.Background(), f.channel.ID, "rm-1", f.userID, models.ReactionLove)
	require.NoError(t, err)
	require.Equal(t, 1, counts[models.ReactionLove])
	f.provider.AssertExpectations(t)
}

// A lost notification must not fail the reaction; counts stay authoritative
// locally.
func TestReactNotificationFailureIgnored(t *testing.T) {
	f := newMirrorFixture(t)

	f.channelRepo.On("GetByID", mock.Anything, f.channel.ID).Return(f.channel, nil)
	f.messageRepo.On("GetByRemoteID", mock.Anything, "rm-1").
		Return(models.Message{ID: 9, ChannelID: f.channel.ID}, nil).Once()
	f.reactionRepo.On("Remove", mock.Anything, int64(9), f.userID, models.ReactionLike).
		Return(true, nil).Once()
	f.reactionRepo.On("CountsForMessage", mock.Anything, int64(9)).
		Return(map[string]int{}, nil).Once()
	f.provider.On("SendNotification", mock.Anything, "channels/abc", f.userRef, mock.Anything).
		Return(remote.ErrUnavailable).Once()

	counts, err := f.mirror.Unreact(context.Background(), f.channel.ID, "rm-1", f.userID, models.ReactionLike)
	require.NoError(t, err)
	require.Zero(t, counts[models.ReactionLike])
}
