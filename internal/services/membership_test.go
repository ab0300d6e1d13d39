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

type membershipFixture struct {
	tenantRepo  *mocks.TenantRepositoryMock
	userRepo    *mocks.UserRepositoryMock
	channelRepo *mocks.ChannelRepositoryMock
	messageRepo *mocks.MessageRepositoryMock
	unreadRepo  *mocks.UnreadRepositoryMock
	roleRepo    *mocks.RoleRepositoryMock
	provider    *mocks.MessagingMock
	identityAPI *mocks.IdentityAPIMock
	manager     *MembershipManager
	userID      uuid.UUID
	tenantID    uuid.UUID
	userRef     string
	channel     models.Channel
}

func newMembershipFixture(t *testing.T) *membershipFixture {
	t.Helper()

	f := &membershipFixture{
		userRepo:    new(mocks.UserRepositoryMock),
		channelRepo: new(mocks.ChannelRepositoryMock),
		messageRepo: new(mocks.MessageRepositoryMock),
		unreadRepo:  new(mocks.UnreadRepositoryMock),
		roleRepo:    new(mocks.RoleRepositoryMock),
		provider:    new(mocks.MessagingMock),
		identityAPI: new(mocks.IdentityAPIMock),
		userID:      uuid.New(),
		tenantID:    uuid.New(),
	}
	f.tenantRepo = stubTenantRepo(f.userID, f.tenantID, "apps/acme")
	f.userRef = remote.IdentityRef("apps/acme", f.userID.String())
	f.channel = models.Channel{ID: uuid.New(), TenantID: f.tenantID, Name: "design", RemoteRef: "channels/abc"}

	logger := zap.NewNop().Sugar()
	resolver := NewTenantConfigResolver(f.tenantRepo)
	identity := NewIdentityBridge(resolver, f.userRepo, f.identityAPI, logger)
	f.manager = NewMembershipManager(resolver, identity, f.channelRepo, f.messageRepo, f.unreadRepo, f.roleRepo, f.provider, logger)
	return f
}

func (f *membershipFixture) identityExists() {
	f.identityAPI.On("DescribeIdentity", mock.Anything, f.userRef).
		Return(remote.Identity{Ref: f.userRef}, nil)
}

func TestAddMemberFirstJoinInitializesTracking(t *testing.T) {
	f := newMembershipFixture(t)
	f.identityExists()

	lastMsg := time.Now().UTC().Add(-time.Hour)
	f.channelRepo.On("GetByID", mock.Anything, f.channel.ID).Return(f.channel, nil).Once()
	f.provider.On("CreateMembership", mock.Anything, "channels/abc", f.userRef, f.userRef).Return(nil).Once()
	f.channelRepo.On("AddMemberIfAbsent", mock.Anything, f.channel.ID, f.userID, false).Return(true, nil).Once()
	f.messageRepo.On("LatestMessageAt", mock.Anything, f.channel.ID).Return(lastMsg, true, nil).Once()
	f.unreadRepo.On("EnsureTracking", mock.Anything, mock.MatchedBy(func(m models.ChannelMembership) bool {
		return m.ChannelID == f.channel.ID && m.UserID == f.userID && m.LastMessageAt.Equal(lastMsg)
	})).Return(nil).Once()

	channel, err := f.manager.AddMember(context.Background(), f.channel.ID, f.userID, f.userID)
	require.NoError(t, err)
	require.Equal(t, f.channel.ID, channel.ID)
	f.unreadRepo.AssertExpectations(t)
	f.messageRepo.AssertExpectations(t)
}

// The provider reporting "already a member" counts as success, and an
// unchanged local row must not reset the member's read state.
func TestAddMemberRepeatJoinIsNoop(t *testing.T) {
	f := newMembershipFixture(t)
	f.identityExists()

	f.channelRepo.On("GetByID", mock.Anything, f.channel.ID).Return(f.channel, nil).Once()
	f.provider.On("CreateMembership", mock.Anything, "channels/abc", f.userRef, f.userRef).
		Return(remote.ErrConflict).Once()
	f.channelRepo.On("AddMemberIfAbsent", mock.Anything, f.channel.ID, f.userID, false).
		Return(false, nil).Once()

	_, err := f.manager.AddMember(context.Background(), f.channel.ID, f.userID, f.userID)
	require.NoError(t, err)
	f.unreadRepo.AssertNotCalled(t, "EnsureTracking", mock.Anything, mock.Anything)
}

func TestAddMemberUnmappedChannel(t *testing.T) {
	f := newMembershipFixture(t)

	local := models.Channel{ID: uuid.New(), TenantID: f.tenantID, Name: "local-only"}
	f.channelRepo.On("GetByID", mock.Anything, local.ID).Return(local, nil).Once()

	_, err := f.manager.AddMember(context.Background(), local.ID, f.userID, f.userID)
	require.ErrorIs(t, err, ErrChannelNotMapped)
}

func TestRemoveMemberRemoteFailureBestEffort(t *testing.T) {
	f := newMembershipFixture(t)

	f.channelRepo.On("GetByID", mock.Anything, f.channel.ID).Return(f.channel, nil).Once()
	f.provider.On("DeleteMembership", mock.Anything, "channels/abc", f.userRef, f.userRef).
		Return(remote.ErrUnavailable).Once()
	f.channelRepo.On("RemoveMember", mock.Anything, f.channel.ID, f.userID).Return(nil).Once()
	f.unreadRepo.On("Delete", mock.Anything, f.channel.ID, f.userID).Return(nil).Once()

	require.NoError(t, f.manager.RemoveMember(context.Background(), f.channel.ID, f.userID, f.userID))
	f.channelRepo.AssertExpectations(t)
	f.unreadRepo.AssertExpectations(t)
}

func TestGrantModeratorConflictTolerated(t *testing.T) {
	f := newMembershipFixture(t)
	f.identityExists()

	f.channelRepo.On("GetByID", mock.Anything, f.channel.ID).Return(f.channel, nil).Once()
	f.provider.On("CreateModerator", mock.Anything, "channels/abc", f.userRef, f.userRef).
		Return(remote.ErrConflict).Once()
	f.roleRepo.On("Grant", mock.Anything, f.channel.ID, f.userID, models.RoleModerator).Return(nil).Once()

	require.NoError(t, f.manager.GrantModerator(context.Background(), f.channel.ID, f.userID, f.userID))
	f.roleRepo.AssertExpectations(t)
}

func TestListMembersMarksModerators(t *testing.T) {
	f := newMembershipFixture(t)

	other := uuid.New()
	f.channelRepo.On("GetByID", mock.Anything, f.channel.ID).Return(f.channel, nil).Once()
	f.channelRepo.On("ListMembers", mock.Anything, f.channel.ID).Return([]models.ChannelMember{
		{ChannelID: f.channel.ID, UserID: f.userID},
		{ChannelID: f.channel.ID, UserID: other},
	}, nil).Once()
	f.roleRepo.On("List", mock.Anything, f.channel.ID).Return([]models.ChannelRoleAssignment{
		{ChannelID: f.channel.ID, UserID: other, Role: models.RoleModerator},
	}, nil).Once()

	roster, err := f.manager.ListMembers(context.Background(), f.channel.ID, f.userID)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	require.False(t, roster[0].IsModerator)
	require.True(t, roster[1].IsModerator)
}

func TestListMembersPrivateChannelMembersOnly(t *testing.T) {
	f := newMembershipFixture(t)

	private := f.channel
	private.IsPrivate = true
	f.channelRepo.On("GetByID", mock.Anything, private.ID).Return(private, nil).Once()
	f.channelRepo.On("IsMember", mock.Anything, private.ID, f.userID).Return(false, nil).Once()

	_, err := f.manager.ListMembers(context.Background(), private.ID, f.userID)
	require.ErrorIs(t, err, ErrNotChannelMember)
	f.channelRepo.AssertNotCalled(t, "ListMembers", mock.Anything, mock.Anything)
}

func TestAddMemberMissingChannel(t *testing.T) {
	f := newMembershipFixture(t)

	channelID := uuid.New()
	f.channelRepo.On("GetByID", mock.Anything, channelID).
		Return(models.Channel{}, repositories.ErrChannelNotFound).Once()

	_, err := f.manager.AddMember(context.Background(), channelID, f.userID, f.userID)
	require.ErrorIs(t, err, ErrLocalNotFound)
}
