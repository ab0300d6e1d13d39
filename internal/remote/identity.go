package remote

import "context"

// IdentityAttrs is the metadata attached to a newly created identity.
type IdentityAttrs struct {
	DisplayName     string
	Email           string
	ExternalSubject string
}

// IdentityAPI is the remote identity provider surface. Creation is
// idempotent at the caller level: describe first, create only on a
// not-found-or-forbidden response.
type IdentityAPI interface {
	DescribeIdentity(ctx context.Context, identityRef string) (Identity, error)
	CreateIdentity(ctx context.Context, appInstanceRef, localUserID string, attrs IdentityAttrs) (Identity, error)

	// CreateAdminGrant elevates an identity to application-instance admin.
	// A conflict response means the grant already exists.
	CreateAdminGrant(ctx context.Context, appInstanceRef, identityRef, adminRoleRef string) error
}
