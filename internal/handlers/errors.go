package handlers

import (
	"errors"
	"net/http"

	"discussion-service/internal/remote"
	"discussion-service/internal/services"
)

// statusForError maps service and provider errors onto HTTP statuses. The
// fallthrough is 500; provider outages surface as 502 so callers can tell
// them apart from local faults.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrNoActiveTenant),
		errors.Is(err, services.ErrTenantMisconfigured),
		errors.Is(err, services.ErrTenantNotFound):
		return http.StatusConflict
	case errors.Is(err, services.ErrGeneralExists):
		return http.StatusConflict
	case errors.Is(err, services.ErrLocalNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrChannelNotMapped):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidReaction):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotChannelMember):
		return http.StatusForbidden
	case errors.Is(err, remote.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, remote.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, remote.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, remote.ErrUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
