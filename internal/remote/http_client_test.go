package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "service-key", zap.NewNop().Sugar())
}

func TestSendMessageHeadersAndBody(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/channels/channels%2Fabc/messages", r.URL.EscapedPath())
		require.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		require.Equal(t, "apps/acme/user/u1", r.Header.Get("X-Acting-Identity"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "hello", body["content"])
		require.Equal(t, "PERSISTENT", body["persistence"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"id": "rm-1"})
	})

	id, err := client.SendMessage(context.Background(), "channels/abc", "apps/acme/user/u1", "hello")
	require.NoError(t, err)
	require.Equal(t, "rm-1", id)
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, ErrNotFound},
		{"conflict", http.StatusConflict, ErrConflict},
		{"forbidden", http.StatusForbidden, ErrForbidden},
		{"unauthorized", http.StatusUnauthorized, ErrForbidden},
		{"throttled", http.StatusTooManyRequests, ErrUnavailable},
		{"server error", http.StatusInternalServerError, ErrUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			})
			err := client.DeleteChannel(context.Background(), "channels/abc", "apps/acme/user/u1")
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestListChannelsDecodes(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/app-instances/apps%2Facme/channels", r.URL.EscapedPath())
		json.NewEncoder(w).Encode(map[string]any{
			"channels": []Channel{{Ref: "channels/abc", Name: "design"}},
		})
	})

	channels, err := client.ListChannels(context.Background(), "apps/acme", "apps/acme/user/u1")
	require.NoError(t, err)
	require.Len(t, channels, 1)
	require.Equal(t, "channels/abc", channels[0].Ref)
}

func TestConnectionErrorMapsToUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	client := NewClient(srv.URL, "service-key", zap.NewNop().Sugar())

	_, err := client.DescribeChannel(context.Background(), "channels/abc", "")
	require.ErrorIs(t, err, ErrUnavailable)
}
