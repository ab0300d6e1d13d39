package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"discussion-service/internal/observability"
)

// Client talks to the remote messaging and identity provider over its
// HTTP API. One Client serves every tenant; the application instance and
// the acting identity are supplied per call, never held globally.
type Client struct {
	httpClient *http.Client
	baseURL    string
	serviceKey string
	logger     *zap.SugaredLogger
}

// NewClient constructs a provider client. serviceKey authenticates this
// backend to the provider; the acting identity of each call is carried
// separately in the X-Acting-Identity header.
func NewClient(baseURL, serviceKey string, logger *zap.SugaredLogger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
		serviceKey: serviceKey,
		logger:     logger,
	}
}

var _ Messaging = (*Client)(nil)
var _ IdentityAPI = (*Client)(nil)

func (c *Client) do(ctx context.Context, op, method, path, bearerRef string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", "application/json")
	if bearerRef != "" {
		req.Header.Set("X-Acting-Identity", bearerRef)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.IncRemoteCall(op, "unavailable")
		return fmt.Errorf("%s: %v: %w", op, err, ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := statusError(op, resp.StatusCode, string(raw))
		observability.IncRemoteCall(op, outcomeOf(err))
		return err
	}
	observability.IncRemoteCall(op, "ok")

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func outcomeOf(err error) string {
	switch {
	case IsNotFoundOrForbidden(err):
		return "denied"
	default:
		return "error"
	}
}

func seg(s string) string {
	return url.PathEscape(s)
}

// --- Messaging ---

func (c *Client) CreateChannel(ctx context.Context, appInstanceRef, name, description, privacy, metadata, bearerRef string) (Channel, error) {
	in := map[string]string{
		"name":        name,
		"description": description,
		"privacy":     privacy,
		"metadata":    metadata,
	}
	var out Channel
	path := fmt.Sprintf("/app-instances/%s/channels", seg(appInstanceRef))
	err := c.do(ctx, "create_channel", http.MethodPost, path, bearerRef, in, &out)
	return out, err
}

func (c *Client) DescribeChannel(ctx context.Context, channelRef, bearerRef string) (Channel, error) {
	var out Channel
	err := c.do(ctx, "describe_channel", http.MethodGet, "/channels/"+seg(channelRef), bearerRef, nil, &out)
	return out, err
}

func (c *Client) ListChannels(ctx context.Context, appInstanceRef, bearerRef string) ([]Channel, error) {
	var out struct {
		Channels []Channel `json:"channels"`
	}
	path := fmt.Sprintf("/app-instances/%s/channels", seg(appInstanceRef))
	if err := c.do(ctx, "list_channels", http.MethodGet, path, bearerRef, nil, &out); err != nil {
		return nil, err
	}
	return out.Channels, nil
}

func (c *Client) DeleteChannel(ctx context.Context, channelRef, bearerRef string) error {
	return c.do(ctx, "delete_channel", http.MethodDelete, "/channels/"+seg(channelRef), bearerRef, nil, nil)
}

func (c *Client) CreateMembership(ctx context.Context, channelRef, memberRef, bearerRef string) error {
	in := map[string]string{"member_ref": memberRef}
	path := "/channels/" + seg(channelRef) + "/members"
	return c.do(ctx, "create_membership", http.MethodPost, path, bearerRef, in, nil)
}

func (c *Client) DeleteMembership(ctx context.Context, channelRef, memberRef, bearerRef string) error {
	path := "/channels/" + seg(channelRef) + "/members/" + seg(memberRef)
	return c.do(ctx, "delete_membership", http.MethodDelete, path, bearerRef, nil, nil)
}

func (c *Client) ListMemberships(ctx context.Context, channelRef, bearerRef string) ([]Member, error) {
	var out struct {
		Members []Member `json:"members"`
	}
	path := "/channels/" + seg(channelRef) + "/members"
	if err := c.do(ctx, "list_memberships", http.MethodGet, path, bearerRef, nil, &out); err != nil {
		return nil, err
	}
	return out.Members, nil
}

func (c *Client) CreateModerator(ctx context.Context, channelRef, moderatorRef, bearerRef string) error {
	in := map[string]string{"moderator_ref": moderatorRef}
	path := "/channels/" + seg(channelRef) + "/moderators"
	return c.do(ctx, "create_moderator", http.MethodPost, path, bearerRef, in, nil)
}

func (c *Client) DeleteModerator(ctx context.Context, channelRef, moderatorRef, bearerRef string) error {
	path := "/channels/" + seg(channelRef) + "/moderators/" + seg(moderatorRef)
	return c.do(ctx, "delete_moderator", http.MethodDelete, path, bearerRef, nil, nil)
}

func (c *Client) SendMessage(ctx context.Context, channelRef, senderRef, content string) (string, error) {
	in := map[string]string{"content": content, "persistence": "PERSISTENT"}
	var out struct {
		ID string `json:"id"`
	}
	path := "/channels/" + seg(channelRef) + "/messages"
	if err := c.do(ctx, "send_message", http.MethodPost, path, senderRef, in, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) ListMessages(ctx context.Context, channelRef, bearerRef, nextToken string, maxResults int) (MessagePage, error) {
	q := url.Values{}
	if nextToken != "" {
		q.Set("next_token", nextToken)
	}
	if maxResults > 0 {
		q.Set("max_results", fmt.Sprint(maxResults))
	}
	path := "/channels/" + seg(channelRef) + "/messages"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var out MessagePage
	err := c.do(ctx, "list_messages", http.MethodGet, path, bearerRef, nil, &out)
	return out, err
}

func (c *Client) RedactMessage(ctx context.Context, channelRef, messageID, bearerRef string) error {
	path := "/channels/" + seg(channelRef) + "/messages/" + seg(messageID) + "/redact"
	return c.do(ctx, "redact_message", http.MethodPost, path, bearerRef, nil, nil)
}

func (c *Client) DeleteMessage(ctx context.Context, channelRef, messageID, bearerRef string) error {
	path := "/channels/" + seg(channelRef) + "/messages/" + seg(messageID)
	return c.do(ctx, "delete_message", http.MethodDelete, path, bearerRef, nil, nil)
}

func (c *Client) SendNotification(ctx context.Context, channelRef, senderRef string, payload any) error {
	path := "/channels/" + seg(channelRef) + "/notifications"
	return c.do(ctx, "send_notification", http.MethodPost, path, senderRef, payload, nil)
}

// --- IdentityAPI ---

func (c *Client) DescribeIdentity(ctx context.Context, identityRef string) (Identity, error) {
	var out Identity
	err := c.do(ctx, "describe_identity", http.MethodGet, "/identities/"+seg(identityRef), "", nil, &out)
	return out, err
}

func (c *Client) CreateIdentity(ctx context.Context, appInstanceRef, localUserID string, attrs IdentityAttrs) (Identity, error) {
	in := map[string]any{
		"user_id":      localUserID,
		"display_name": attrs.DisplayName,
		"metadata": map[string]string{
			"email":   attrs.Email,
			"subject": attrs.ExternalSubject,
		},
	}
	var out Identity
	path := fmt.Sprintf("/app-instances/%s/users", seg(appInstanceRef))
	err := c.do(ctx, "create_identity", http.MethodPost, path, "", in, &out)
	return out, err
}

func (c *Client) CreateAdminGrant(ctx context.Context, appInstanceRef, identityRef, adminRoleRef string) error {
	in := map[string]string{"identity_ref": identityRef, "role_ref": adminRoleRef}
	path := fmt.Sprintf("/app-instances/%s/admins", seg(appInstanceRef))
	return c.do(ctx, "create_admin_grant", http.MethodPost, path, "", in, nil)
}
