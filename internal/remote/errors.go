package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for remote provider responses. Callers branch on these
// to implement idempotency (conflict == already done) and the
// not-found/forbidden ambiguity the identity API exhibits under limited
// permissions.
var (
	ErrNotFound    = errors.New("remote: not found")
	ErrConflict    = errors.New("remote: already exists")
	ErrForbidden   = errors.New("remote: forbidden")
	ErrUnavailable = errors.New("remote: unavailable")
)

// IsNotFoundOrForbidden reports whether the provider signalled that a
// resource does not exist or cannot be seen. The identity API returns
// forbidden instead of not-found when the caller lacks describe rights,
// so both map to "create it".
func IsNotFoundOrForbidden(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden)
}

func statusError(op string, status int, body string) error {
	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case status == http.StatusConflict:
		return fmt.Errorf("%s: %w", op, ErrConflict)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%s: %w", op, ErrForbidden)
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%s: status %d: %w", op, status, ErrUnavailable)
	default:
		return fmt.Errorf("%s: unexpected status %d: %s", op, status, body)
	}
}
