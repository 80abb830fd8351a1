// Package auth is the identity provider: it registers users, signs them in
// and out, and hands out the Session value every ledger operation needs.
package auth

import (
	"context"
	"fmt"
	"time"

	"finanzas/internal/core"
)

// Session identifies the acting user. It is acquired on sign-in, cleared on
// sign-out, and passed explicitly to every operation that needs it.
type Session struct {
	Token     string
	UserID    string
	Email     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Valid reports whether the session can act on behalf of a user.
func (s Session) Valid() error {
	if s.UserID == "" {
		return fmt.Errorf("%w: no active session", core.ErrAuth)
	}
	return nil
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

const (
	SignedIn  EventKind = "signed_in"
	SignedOut EventKind = "signed_out"
)

type (
	EventKind string

	// SessionEvent reports a session appearing or going away.
	SessionEvent struct {
		Kind    EventKind
		Session Session
	}
)

// Provider is the identity provider contract consumed by the HTTP layer.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (Session, error)
	SignIn(ctx context.Context, email, password string) (Session, error)
	SignOut(ctx context.Context, token string) error
	Resolve(ctx context.Context, token string) (Session, error)
	OnSessionChange(fn func(SessionEvent)) (unsubscribe func())
}
