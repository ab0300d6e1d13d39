package remote

import (
	"fmt"
	"strings"
	"time"
)

// Channel privacy modes understood by the provider.
const (
	PrivacyPublic  = "PUBLIC"
	PrivacyPrivate = "PRIVATE"
)

// MetadataGeneralMarker tags the tenant-wide default general channel in
// remote channel metadata so a re-created deployment can find it again.
const MetadataGeneralMarker = `{"kind":"default-general"}`

// Channel is a channel record as the provider reports it.
type Channel struct {
	Ref      string `json:"ref"`
	Name     string `json:"name"`
	Mode     string `json:"mode"`
	Privacy  string `json:"privacy"`
	Metadata string `json:"metadata,omitempty"`
}

// Member is one entry of a channel's remote membership list.
type Member struct {
	IdentityRef string `json:"identity_ref"`
	DisplayName string `json:"display_name,omitempty"`
}

// Message is a message as returned by the provider's list call.
type Message struct {
	ID        string    `json:"id"`
	SenderRef string    `json:"sender_ref"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// MessagePage is one page of a remote message listing.
type MessagePage struct {
	Messages  []Message `json:"messages"`
	NextToken string    `json:"next_token,omitempty"`
}

// Identity is an identity record in the provider's identity space.
type Identity struct {
	Ref         string            `json:"ref"`
	DisplayName string            `json:"display_name"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// IdentityRef derives the deterministic remote identity reference for a
// local user within an application instance. The mapping is pure, so two
// tenants with different application instances can never collide.
func IdentityRef(appInstanceRef, localUserID string) string {
	return fmt.Sprintf("%s/user/%s", appInstanceRef, localUserID)
}

// LocalUserID extracts the local user id from an identity reference.
// Returns false for refs minted outside this system.
func LocalUserID(identityRef string) (string, bool) {
	idx := strings.LastIndex(identityRef, "/user/")
	if idx < 0 {
		return "", false
	}
	id := identityRef[idx+len("/user/"):]
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
