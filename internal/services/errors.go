package services

import "errors"

// Configuration and mapping errors. These are fatal to the current
// operation and propagate to the caller before any local mutation.
var (
	ErrNoActiveTenant      = errors.New("no active tenant for user")
	ErrTenantNotFound      = errors.New("tenant not found")
	ErrTenantMisconfigured = errors.New("tenant has no remote application instance")
	ErrChannelNotMapped    = errors.New("channel has no remote reference")
	ErrLocalNotFound       = errors.New("local record not found")
	ErrGeneralExists       = errors.New("default general channel already exists")
	ErrInvalidReaction     = errors.New("unknown reaction kind")
	ErrNotChannelMember    = errors.New("user is not a channel member")
)
