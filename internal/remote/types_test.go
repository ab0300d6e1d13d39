package remote

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIdentityRefRoundTrip(t *testing.T) {
	ref := IdentityRef("apps/acme", "6f1c9e3a")
	require.Equal(t, "apps/acme/user/6f1c9e3a", ref)

	id, ok := LocalUserID(ref)
	require.True(t, ok)
	require.Equal(t, "6f1c9e3a", id)
}

func TestLocalUserIDRejectsForeignRefs(t *testing.T) {
	cases := []string{
		"",
		"apps/acme",
		"apps/acme/user/",
		"apps/acme/user/one/two",
		"no-user-segment-here",
	}
	for _, ref := range cases {
		_, ok := LocalUserID(ref)
		require.False(t, ok, "ref %q", ref)
	}
}

func TestIsNotFoundOrForbidden(t *testing.T) {
	require.True(t, IsNotFoundOrForbidden(ErrNotFound))
	require.True(t, IsNotFoundOrForbidden(ErrForbidden))
	require.False(t, IsNotFoundOrForbidden(ErrConflict))
	require.False(t, IsNotFoundOrForbidden(ErrUnavailable))
	require.False(t, IsNotFoundOrForbidden(nil))
}
