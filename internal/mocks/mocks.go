package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"discussion-service/internal/models"
	"discussion-service/internal/remote"
)

type TenantRepositoryMock struct {
	mock.Mock
}

func (m *TenantRepositoryMock) ActiveLinkForUser(ctx context.Context, userID uuid.UUID) (models.TenantUserLink, error) {
	args := m.Called(ctx, userID)
	var link models.TenantUserLink
	if val := args.Get(0); val != nil {
		link = val.(models.TenantUserLink)
	}
	return link, args.Error(1)
}

func (m *TenantRepositoryMock) GetTenant(ctx context.Context, tenantID uuid.UUID) (models.Tenant, error) {
	args := m.Called(ctx, tenantID)
	var tenant models.Tenant
	if val := args.Get(0); val != nil {
		tenant = val.(models.Tenant)
	}
	return tenant, args.Error(1)
}

func (m *TenantRepositoryMock) ListConfigured(ctx context.Context) ([]models.Tenant, error) {
	args := m.Called(ctx)
	var tenants []models.Tenant
	if val := args.Get(0); val != nil {
		tenants = val.([]models.Tenant)
	}
	return tenants, args.Error(1)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID uuid.UUID) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) Exists(ctx context.Context, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

type ChannelRepositoryMock struct {
	mock.Mock
}

func (m *ChannelRepositoryMock) Create(ctx context.Context, channel models.Channel, memberIDs []uuid.UUID, adminIDs []uuid.UUID) (models.Channel, error) {
	args := m.Called(ctx, channel, memberIDs, adminIDs)
	var created models.Channel
	if val := args.Get(0); val != nil {
		created = val.(models.Channel)
	}
	return created, args.Error(1)
}

func (m *ChannelRepositoryMock) GetByID(ctx context.Context, channelID uuid.UUID) (models.Channel, error) {
	args := m.Called(ctx, channelID)
	var channel models.Channel
	if val := args.Get(0); val != nil {
		channel = val.(models.Channel)
	}
	return channel, args.Error(1)
}

func (m *ChannelRepositoryMock) GetByRemoteRef(ctx context.Context, remoteRef string) (models.Channel, error) {
	args := m.Called(ctx, remoteRef)
	var channel models.Channel
	if val := args.Get(0); val != nil {
		channel = val.(models.Channel)
	}
	return channel, args.Error(1)
}

func (m *ChannelRepositoryMock) GetDefaultGeneral(ctx context.Context) (models.Channel, error) {
	args := m.Called(ctx)
	var channel models.Channel
	if val := args.Get(0); val != nil {
		channel = val.(models.Channel)
	}
	return channel, args.Error(1)
}

func (m *ChannelRepositoryMock) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Channel, error) {
	args := m.Called(ctx, tenantID)
	var channels []models.Channel
	if val := args.Get(0); val != nil {
		channels = val.([]models.Channel)
	}
	return channels, args.Error(1)
}

func (m *ChannelRepositoryMock) AddMemberIfAbsent(ctx context.Context, channelID, userID uuid.UUID, isAdmin bool) (bool, error) {
	args := m.Called(ctx, channelID, userID, isAdmin)
	return args.Bool(0), args.Error(1)
}

func (m *ChannelRepositoryMock) RemoveMember(ctx context.Context, channelID, userID uuid.UUID) error {
	args := m.Called(ctx, channelID, userID)
	return args.Error(0)
}

func (m *ChannelRepositoryMock) ListMembers(ctx context.Context, channelID uuid.UUID) ([]models.ChannelMember, error) {
	args := m.Called(ctx, channelID)
	var members []models.ChannelMember
	if val := args.Get(0); val != nil {
		members = val.([]models.ChannelMember)
	}
	return members, args.Error(1)
}

func (m *ChannelRepositoryMock) IsMember(ctx context.Context, channelID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, channelID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ChannelRepositoryMock) Delete(ctx context.Context, channelID uuid.UUID) error {
	args := m.Called(ctx, channelID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) InsertRemote(ctx context.Context, msg models.Message) (models.Message, error) {
	args := m.Called(ctx, msg)
	var inserted models.Message
	if val := args.Get(0); val != nil {
		inserted = val.(models.Message)
	}
	return inserted, args.Error(1)
}

func (m *MessageRepositoryMock) MirrorInsert(ctx context.Context, msgs []models.Message) (int, error) {
	args := m.Called(ctx, msgs)
	return args.Int(0), args.Error(1)
}

func (m *MessageRepositoryMock) GetByRemoteID(ctx context.Context, remoteMessageID string) (models.Message, error) {
	args := m.Called(ctx, remoteMessageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) GetByRemoteIDs(ctx context.Context, remoteMessageIDs []string) ([]models.Message, error) {
	args := m.Called(ctx, remoteMessageIDs)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) Redact(ctx context.Context, remoteMessageID string) error {
	args := m.Called(ctx, remoteMessageID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) DeleteByRemoteID(ctx context.Context, remoteMessageID string) error {
	args := m.Called(ctx, remoteMessageID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) LatestMessageAt(ctx context.Context, channelID uuid.UUID) (time.Time, bool, error) {
	args := m.Called(ctx, channelID)
	var at time.Time
	if val := args.Get(0); val != nil {
		at = val.(time.Time)
	}
	return at, args.Bool(1), args.Error(2)
}

type ReactionRepositoryMock struct {
	mock.Mock
}

func (m *ReactionRepositoryMock) Add(ctx context.Context, messageID int64, userID uuid.UUID, kind string) (bool, error) {
	args := m.Called(ctx, messageID, userID, kind)
	return args.Bool(0), args.Error(1)
}

func (m *ReactionRepositoryMock) Remove(ctx context.Context, messageID int64, userID uuid.UUID, kind string) (bool, error) {
	args := m.Called(ctx, messageID, userID, kind)
	return args.Bool(0), args.Error(1)
}

func (m *ReactionRepositoryMock) CountsForMessage(ctx context.Context, messageID int64) (map[string]int, error) {
	args := m.Called(ctx, messageID)
	var counts map[string]int
	if val := args.Get(0); val != nil {
		counts = val.(map[string]int)
	}
	return counts, args.Error(1)
}

func (m *ReactionRepositoryMock) CountsForMessages(ctx context.Context, messageIDs []int64) (map[int64]map[string]int, error) {
	args := m.Called(ctx, messageIDs)
	var counts map[int64]map[string]int
	if val := args.Get(0); val != nil {
		counts = val.(map[int64]map[string]int)
	}
	return counts, args.Error(1)
}

func (m *ReactionRepositoryMock) UserKindsForMessages(ctx context.Context, messageIDs []int64, userID uuid.UUID) (map[int64]map[string]bool, error) {
	args := m.Called(ctx, messageIDs, userID)
	var kinds map[int64]map[string]bool
	if val := args.Get(0); val != nil {
		kinds = val.(map[int64]map[string]bool)
	}
	return kinds, args.Error(1)
}

type UnreadRepositoryMock struct {
	mock.Mock
}

func (m *UnreadRepositoryMock) EnsureTracking(ctx context.Context, membership models.ChannelMembership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *UnreadRepositoryMock) IncrementExceptSender(ctx context.Context, channelID, senderID uuid.UUID, at time.Time) (int64, error) {
	args := m.Called(ctx, channelID, senderID, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *UnreadRepositoryMock) MarkRead(ctx context.Context, channelID, userID, tenantID uuid.UUID) (models.ChannelMembership, error) {
	args := m.Called(ctx, channelID, userID, tenantID)
	var membership models.ChannelMembership
	if val := args.Get(0); val != nil {
		membership = val.(models.ChannelMembership)
	}
	return membership, args.Error(1)
}

func (m *UnreadRepositoryMock) Get(ctx context.Context, channelID, userID uuid.UUID) (models.ChannelMembership, error) {
	args := m.Called(ctx, channelID, userID)
	var membership models.ChannelMembership
	if val := args.Get(0); val != nil {
		membership = val.(models.ChannelMembership)
	}
	return membership, args.Error(1)
}

func (m *UnreadRepositoryMock) Summary(ctx context.Context, userID uuid.UUID) ([]models.UnreadSummary, error) {
	args := m.Called(ctx, userID)
	var summary []models.UnreadSummary
	if val := args.Get(0); val != nil {
		summary = val.([]models.UnreadSummary)
	}
	return summary, args.Error(1)
}

func (m *UnreadRepositoryMock) Delete(ctx context.Context, channelID, userID uuid.UUID) error {
	args := m.Called(ctx, channelID, userID)
	return args.Error(0)
}

type RoleRepositoryMock struct {
	mock.Mock
}

func (m *RoleRepositoryMock) Grant(ctx context.Context, channelID, userID uuid.UUID, role string) error {
	args := m.Called(ctx, channelID, userID, role)
	return args.Error(0)
}

func (m *RoleRepositoryMock) Revoke(ctx context.Context, channelID, userID uuid.UUID, role string) error {
	args := m.Called(ctx, channelID, userID, role)
	return args.Error(0)
}

func (m *RoleRepositoryMock) Has(ctx context.Context, channelID, userID uuid.UUID, role string) (bool, error) {
	args := m.Called(ctx, channelID, userID, role)
	return args.Bool(0), args.Error(1)
}

func (m *RoleRepositoryMock) List(ctx context.Context, channelID uuid.UUID) ([]models.ChannelRoleAssignment, error) {
	args := m.Called(ctx, channelID)
	var roles []models.ChannelRoleAssignment
	if val := args.Get(0); val != nil {
		roles = val.([]models.ChannelRoleAssignment)
	}
	return roles, args.Error(1)
}

type MessagingMock struct {
	mock.Mock
}

func (m *MessagingMock) CreateChannel(ctx context.Context, appInstanceRef, name, description, privacy, metadata, bearerRef string) (remote.Channel, error) {
	args := m.Called(ctx, appInstanceRef, name, description, privacy, metadata, bearerRef)
	var channel remote.Channel
	if val := args.Get(0); val != nil {
		channel = val.(remote.Channel)
	}
	return channel, args.Error(1)
}

func (m *MessagingMock) DescribeChannel(ctx context.Context, channelRef, bearerRef string) (remote.Channel, error) {
	args := m.Called(ctx, channelRef, bearerRef)
	var channel remote.Channel
	if val := args.Get(0); val != nil {
		channel = val.(remote.Channel)
	}
	return channel, args.Error(1)
}

func (m *MessagingMock) ListChannels(ctx context.Context, appInstanceRef, bearerRef string) ([]remote.Channel, error) {
	args := m.Called(ctx, appInstanceRef, bearerRef)
	var channels []remote.Channel
	if val := args.Get(0); val != nil {
		channels = val.([]remote.Channel)
	}
	return channels, args.Error(1)
}

func (m *MessagingMock) DeleteChannel(ctx context.Context, channelRef, bearerRef string) error {
	args := m.Called(ctx, channelRef, bearerRef)
	return args.Error(0)
}

func (m *MessagingMock) CreateMembership(ctx context.Context, channelRef, memberRef, bearerRef string) error {
	args := m.Called(ctx, channelRef, memberRef, bearerRef)
	return args.Error(0)
}

func (m *MessagingMock) DeleteMembership(ctx context.Context, channelRef, memberRef, bearerRef string) error {
	args := m.Called(ctx, channelRef, memberRef, bearerRef)
	return args.Error(0)
}

func (m *MessagingMock) ListMemberships(ctx context.Context, channelRef, bearerRef string) ([]remote.Member, error) {
	args := m.Called(ctx, channelRef, bearerRef)
	var members []remote.Member
	if val := args.Get(0); val != nil {
		members = val.([]remote.Member)
	}
	return members, args.Error(1)
}

func (m *MessagingMock) CreateModerator(ctx context.Context, channelRef, moderatorRef, bearerRef string) error {
	args := m.Called(ctx, channelRef, moderatorRef, bearerRef)
	return args.Error(0)
}

func (m *MessagingMock) DeleteModerator(ctx context.Context, channelRef, moderatorRef, bearerRef string) error {
	args := m.Called(ctx, channelRef, moderatorRef, bearerRef)
	return args.Error(0)
}

func (m *MessagingMock) SendMessage(ctx context.Context, channelRef, senderRef, content string) (string, error) {
	args := m.Called(ctx, channelRef, senderRef, content)
	return args.String(0), args.Error(1)
}

func (m *MessagingMock) ListMessages(ctx context.Context, channelRef, bearerRef, nextToken string, maxResults int) (remote.MessagePage, error) {
	args := m.Called(ctx, channelRef, bearerRef, nextToken, maxResults)
	var page remote.MessagePage
	if val := args.Get(0); val != nil {
		page = val.(remote.MessagePage)
	}
	return page, args.Error(1)
}

func (m *MessagingMock) RedactMessage(ctx context.Context, channelRef, messageID, bearerRef string) error {
	args := m.Called(ctx, channelRef, messageID, bearerRef)
	return args.Error(0)
}

func (m *MessagingMock) DeleteMessage(ctx context.Context, channelRef, messageID, bearerRef string) error {
	args := m.Called(ctx, channelRef, messageID, bearerRef)
	return args.Error(0)
}

func (m *MessagingMock) SendNotification(ctx context.Context, channelRef, senderRef string, payload any) error {
	args := m.Called(ctx, channelRef, senderRef, payload)
	return args.Error(0)
}

type IdentityAPIMock struct {
	mock.Mock
}

func (m *IdentityAPIMock) DescribeIdentity(ctx context.Context, identityRef string) (remote.Identity, error) {
	args := m.Called(ctx, identityRef)
	var identity remote.Identity
	if val := args.Get(0); val != nil {
		identity = val.(remote.Identity)
	}
	return identity, args.Error(1)
}

func (m *IdentityAPIMock) CreateIdentity(ctx context.Context, appInstanceRef, localUserID string, attrs remote.IdentityAttrs) (remote.Identity, error) {
	args := m.Called(ctx, appInstanceRef, localUserID, attrs)
	var identity remote.Identity
	if val := args.Get(0); val != nil {
		identity = val.(remote.Identity)
	}
	return identity, args.Error(1)
}

func (m *IdentityAPIMock) CreateAdminGrant(ctx context.Context, appInstanceRef, identityRef, adminRoleRef string) error {
	args := m.Called(ctx, appInstanceRef, identityRef, adminRoleRef)
	return args.Error(0)
}
