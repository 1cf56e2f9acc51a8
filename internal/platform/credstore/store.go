// Package credstore talks to the hosted identity provider that owns user
// accounts, password verification, and token issuance. It is the only place
// in the codebase that knows the provider's wire format; everything above it
// works with TokenPair and Identity values.
package credstore

import "context"

// TokenPair is the credential material issued by the provider for one
// authenticated period.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// Identity is the provider-owned user record. Read-only to this system.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Store is the abstract contract with the identity provider. Any provider
// exposing password sign-in, email recovery, and token-pair or code-exchange
// session issuance can sit behind it.
type Store interface {
	SignInWithPassword(ctx context.Context, email, password string) (*TokenPair, error)
	SignUp(ctx context.Context, email, password string) error
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	// SetSession adopts an access/refresh token pair delivered out of band
	// (URL fragment) as the active session, validating it with the provider.
	SetSession(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error)
	// ExchangeCodeForSession trades a short-lived authorization code for a
	// token pair.
	ExchangeCodeForSession(ctx context.Context, code string) (*TokenPair, error)
	UpdatePassword(ctx context.Context, accessToken, newPassword string) error
	GetUser(ctx context.Context, accessToken string) (*Identity, error)
	SignOut(ctx context.Context, accessToken string) error
}

// Error is a rejection from the provider (bad password, duplicate email,
// expired link). The message is the provider's own text, passed through
// verbatim and never retried.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string { return e.Message }
