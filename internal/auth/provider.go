// Package auth manages user identities. The consistency layer only ever
// depends on the Provider interface; the store-backed implementation in this
// package exists so account flows run end to end without an external identity
// service.
package auth

import (
	"context"
	"time"
)

// Tokens collects issued access tokens.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time // access token expiry (for diagnostics)
}

// Provider is the authentication collaborator consumed by the account
// lifecycle manager. A provider tracks at most one signed-in identity per
// process, mirroring a mobile client.
type Provider interface {
	// CurrentUserID returns the signed-in identity id, "" when signed out.
	CurrentUserID() string

	// CreateIdentity registers a new identity and signs it in.
	CreateIdentity(ctx context.Context, email, password string) (string, error)

	// SignIn authenticates an existing identity.
	SignIn(ctx context.Context, email, password string) (Tokens, error)

	// DeleteIdentity removes the signed-in identity and signs out.
	DeleteIdentity(ctx context.Context) error
}
