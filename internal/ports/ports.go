package ports

import (
	"context"
	"time"

	"finanzas/internal/core"
)

// Filter narrows a Select. UserID is mandatory; Year restricts to one
// calendar year in the store's bucketing zone when non-zero.
type Filter struct {
	UserID string
	Year   int
}

// Ports for outbound adapters.
type (
	// TransactionStore is the remote data store holding ledger rows.
	TransactionStore interface {
		// Select returns the matching rows ordered by date, most recent first.
		Select(ctx context.Context, f Filter) ([]core.Transaction, error)
		// Insert stores tx and returns it with its assigned ID.
		Insert(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		// Delete removes the user's row with the given id. Deleting a row
		// that does not exist is not an error.
		Delete(ctx context.Context, userID, id string) error
	}

	User struct {
		ID           string
		Email        string
		PasswordHash []byte
		CreatedAt    time.Time
	}

	SessionRecord struct {
		Token     string
		UserID    string
		Email     string
		CreatedAt time.Time
		ExpiresAt time.Time
	}

	UserStore interface {
		// CreateUser fails with core.ErrAuth when the email is taken.
		CreateUser(ctx context.Context, u User) (User, error)
		// UserByEmail fails with core.ErrNotFound when no user matches.
		UserByEmail(ctx context.Context, email string) (User, error)
	}

	SessionStore interface {
		SaveSession(ctx context.Context, s SessionRecord) error
		// SessionByToken fails with core.ErrNotFound when the token is unknown.
		SessionByToken(ctx context.Context, token string) (SessionRecord, error)
		DeleteSession(ctx context.Context, token string) error
	}
)
