package auth

import (
	"context"
	"errors"
	"time"
)

const (
	// DefaultTTL is the fixed session lifetime, counted from creation.
	// Sessions are not renewed on activity.
	DefaultTTL = time.Hour

	sessionTokenLength = 35
)

var (
	// ErrInvalidCredentials covers both an unknown username and a wrong
	// password. Callers must surface the two identically.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNoSession covers missing, forged and expired session tokens alike.
	ErrNoSession = errors.New("no valid session")
)

// Principal is the minimal identity carried by an authenticated session.
type Principal struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

type Session struct {
	Token     string
	Principal Principal
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionStore issues, reads and destroys server-side sessions keyed by
// an opaque token. The client only ever holds the token.
type SessionStore interface {
	Create(ctx context.Context, principal Principal) (string, error)
	Get(ctx context.Context, token string) (*Principal, error)
	Destroy(ctx context.Context, token string) error
}

type principalContextKey struct{}

func ContextWithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal)
}

func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	principal, ok := ctx.Value(principalContextKey{}).(*Principal)
	return principal, ok && principal != nil
}
