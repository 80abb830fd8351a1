// Package storage persists users, sessions and transactions in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"finanzas/internal/core"
	"finanzas/internal/ports"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	loc     *time.Location
	now     func() time.Time
}

var (
	_ ports.TransactionStore = (*SQLiteRepository)(nil)
	_ ports.UserStore        = (*SQLiteRepository)(nil)
	_ ports.SessionStore     = (*SQLiteRepository)(nil)
)

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// migrates it. loc is the zone year filters are evaluated in.
func NewSQLiteRepository(dbPath string, loc *time.Location) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	if err := RunMigrations(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &SQLiteRepository{db: db, queries: New(db), loc: loc, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection for readiness probes.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Select(ctx context.Context, f ports.Filter) ([]core.Transaction, error) {
	if f.UserID == "" {
		return nil, fmt.Errorf("%w: user id required", core.ErrInvalidArgument)
	}
	arg := ListTransactionsParams{UserID: f.UserID, From: math.MinInt64, To: math.MaxInt64}
	if f.Year != 0 {
		from, to := core.YearPeriod(f.Year).Bounds(r.loc)
		arg.From, arg.To = from.UnixMilli(), to.UnixMilli()
	}
	rows, err := r.queries.ListTransactions(ctx, arg)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := rowToTransaction(row)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", row.ID, err)
		}
		out = append(out, tx)
	}
	return out, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	tx.ID = uuid.NewString()
	err := r.queries.CreateTransaction(ctx, TransactionRow{
		ID:          tx.ID,
		UserID:      tx.UserID,
		Type:        tx.Kind.String(),
		AmountCents: tx.Amount.Cents,
		Description: tx.Description,
		OccurredAt:  tx.Date.UnixMilli(),
		CreatedAt:   r.now().UnixMilli(),
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", tx.ID,
		"user_id", tx.UserID,
		"type", tx.Kind,
		"amount_cents", tx.Amount.Cents)
	// Round-trip through the stored precision.
	tx.Date = time.UnixMilli(tx.Date.UnixMilli()).UTC()
	return tx, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, userID, id string) error {
	n, err := r.queries.DeleteTransaction(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		slog.DebugContext(ctx, "Delete matched no transaction", "id", id, "user_id", userID)
	}
	return nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u ports.User) (ports.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.now()
	}
	err := r.queries.CreateUser(ctx, UserRow{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt.UnixMilli(),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return ports.User{}, fmt.Errorf("%w: email %q already registered", core.ErrAuth, u.Email)
		}
		return ports.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) UserByEmail(ctx context.Context, email string) (ports.User, error) {
	row, err := r.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ports.User{}, fmt.Errorf("user %q: %w", email, core.ErrNotFound)
		}
		return ports.User{}, fmt.Errorf("get user: %w", err)
	}
	return ports.User{
		ID:           row.ID,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		CreatedAt:    time.UnixMilli(row.CreatedAt).UTC(),
	}, nil
}

func (r *SQLiteRepository) SaveSession(ctx context.Context, s ports.SessionRecord) error {
	err := r.queries.UpsertSession(ctx, SessionRow{
		Token:     s.Token,
		UserID:    s.UserID,
		Email:     s.Email,
		CreatedAt: s.CreatedAt.UnixMilli(),
		ExpiresAt: s.ExpiresAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SessionByToken(ctx context.Context, token string) (ports.SessionRecord, error) {
	row, err := r.queries.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ports.SessionRecord{}, fmt.Errorf("session: %w", core.ErrNotFound)
		}
		return ports.SessionRecord{}, fmt.Errorf("get session: %w", err)
	}
	return ports.SessionRecord{
		Token:     row.Token,
		UserID:    row.UserID,
		Email:     row.Email,
		CreatedAt: time.UnixMilli(row.CreatedAt).UTC(),
		ExpiresAt: time.UnixMilli(row.ExpiresAt).UTC(),
	}, nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	if err := r.queries.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpiredSessions removes sessions past their expiry.
func (r *SQLiteRepository) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	n, err := r.queries.DeleteExpiredSessions(ctx, r.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Expired sessions purged", "count", n)
	}
	return n, nil
}

func rowToTransaction(row TransactionRow) (core.Transaction, error) {
	kind, err := core.ParseKind(row.Type)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:          row.ID,
		UserID:      row.UserID,
		Kind:        kind,
		Amount:      core.Money{Cents: row.AmountCents},
		Description: row.Description,
		Date:        time.UnixMilli(row.OccurredAt).UTC(),
	}, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
