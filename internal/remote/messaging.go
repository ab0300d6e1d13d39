package remote

import "context"

// Messaging is the remote messaging provider API surface this service
// consumes. Every call is authorized by a caller-supplied identity
// reference (the "bearer"), not by a session token. Implementations must
// map provider responses onto the sentinel errors in this package.
type Messaging interface {
	CreateChannel(ctx context.Context, appInstanceRef, name, description, privacy, metadata, bearerRef string) (Channel, error)
	DescribeChannel(ctx context.Context, channelRef, bearerRef string) (Channel, error)
	ListChannels(ctx context.Context, appInstanceRef, bearerRef string) ([]Channel, error)
	DeleteChannel(ctx context.Context, channelRef, bearerRef string) error

	CreateMembership(ctx context.Context, channelRef, memberRef, bearerRef string) error
	DeleteMembership(ctx context.Context, channelRef, memberRef, bearerRef string) error
	ListMemberships(ctx context.Context, channelRef, bearerRef string) ([]Member, error)

	CreateModerator(ctx context.Context, channelRef, moderatorRef, bearerRef string) error
	DeleteModerator(ctx context.Context, channelRef, moderatorRef, bearerRef string) error

	SendMessage(ctx context.Context, channelRef, senderRef, content string) (string, error)
	ListMessages(ctx context.Context, channelRef, bearerRef, nextToken string, maxResults int) (MessagePage, error)
	RedactMessage(ctx context.Context, channelRef, messageID, bearerRef string) error
	DeleteMessage(ctx context.Context, channelRef, messageID, bearerRef string) error

	// SendNotification emits a non-persistent control event to connected
	// channel members. Used for reaction fan-out; never stored remotely.
	SendNotification(ctx context.Context, channelRef, senderRef string, payload any) error
}
