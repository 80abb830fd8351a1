// Package postgres persists users, sessions and transactions in PostgreSQL
// through a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"finanzas/internal/core"
	"finanzas/internal/ports"
)

const uniqueViolation = "23505"

type Repository struct {
	pool *pgxpool.Pool
	loc  *time.Location
	now  func() time.Time
}

var (
	_ ports.TransactionStore = (*Repository)(nil)
	_ ports.UserStore        = (*Repository)(nil)
	_ ports.SessionStore     = (*Repository)(nil)
)

// New migrates the database at dsn and opens a pool on it. loc is the zone
// year filters are evaluated in.
func New(ctx context.Context, dsn string, loc *time.Location) (*Repository, error) {
	if err := RunMigrations(dsn); err != nil {
		return nil, err
	}
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(connectCtx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Repository{pool: pool, loc: loc, now: time.Now}, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repository) Select(ctx context.Context, f ports.Filter) ([]core.Transaction, error) {
	if f.UserID == "" {
		return nil, fmt.Errorf("%w: user id required", core.ErrInvalidArgument)
	}
	query := `SELECT id, user_id, type, amount_cents, description, occurred_at
		FROM transactions WHERE user_id = $1`
	args := []any{f.UserID}
	if f.Year != 0 {
		from, to := core.YearPeriod(f.Year).Bounds(r.loc)
		query += ` AND occurred_at >= $2 AND occurred_at < $3`
		args = append(args, from, to)
	}
	query += ` ORDER BY occurred_at DESC, id ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			tx   core.Transaction
			kind string
		)
		if err := rows.Scan(&tx.ID, &tx.UserID, &kind, &tx.Amount.Cents, &tx.Description, &tx.Date); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if tx.Kind, err = core.ParseKind(kind); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", tx.ID, err)
		}
		tx.Date = tx.Date.UTC()
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

func (r *Repository) Insert(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	tx.ID = uuid.NewString()
	// TIMESTAMPTZ keeps microseconds.
	tx.Date = tx.Date.Truncate(time.Microsecond).UTC()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO transactions (id, user_id, type, amount_cents, description, occurred_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		tx.ID, tx.UserID, tx.Kind.String(), tx.Amount.Cents, tx.Description, tx.Date, r.now().UTC())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction saved to PostgreSQL",
		"id", tx.ID,
		"user_id", tx.UserID,
		"type", tx.Kind,
		"amount_cents", tx.Amount.Cents)
	return tx, nil
}

func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		slog.DebugContext(ctx, "Delete matched no transaction", "id", id, "user_id", userID)
	}
	return nil
}

func (r *Repository) CreateUser(ctx context.Context, u ports.User) (ports.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.now()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		u.ID, u.Email, u.PasswordHash, u.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return ports.User{}, fmt.Errorf("%w: email %q already registered", core.ErrAuth, u.Email)
		}
		return ports.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (r *Repository) UserByEmail(ctx context.Context, email string) (ports.User, error) {
	var u ports.User
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = $1`, email).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ports.User{}, fmt.Errorf("user %q: %w", email, core.ErrNotFound)
		}
		return ports.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *Repository) SaveSession(ctx context.Context, s ports.SessionRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (token, user_id, email, created_at, expires_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (token) DO UPDATE SET expires_at = EXCLUDED.expires_at`,
		s.Token, s.UserID, s.Email, s.CreatedAt.UTC(), s.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *Repository) SessionByToken(ctx context.Context, token string) (ports.SessionRecord, error) {
	var s ports.SessionRecord
	err := r.pool.QueryRow(ctx,
		`SELECT token, user_id, email, created_at, expires_at FROM sessions WHERE token = $1`, token).
		Scan(&s.Token, &s.UserID, &s.Email, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ports.SessionRecord{}, fmt.Errorf("session: %w", core.ErrNotFound)
		}
		return ports.SessionRecord{}, fmt.Errorf("get session: %w", err)
	}
	s.CreatedAt, s.ExpiresAt = s.CreatedAt.UTC(), s.ExpiresAt.UTC()
	return s, nil
}

func (r *Repository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpiredSessions removes sessions past their expiry.
func (r *Repository) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, r.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	if n := tag.RowsAffected(); n > 0 {
		slog.InfoContext(ctx, "Expired sessions purged", "count", n)
	}
	return tag.RowsAffected(), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
