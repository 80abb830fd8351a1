package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Row types mirror the tables one to one. Timestamps are unix milliseconds.
type (
	TransactionRow struct {
		ID          string
		UserID      string
		Type        string
		AmountCents int64
		Description string
		OccurredAt  int64
		CreatedAt   int64
	}

	UserRow struct {
		ID           string
		Email        string
		PasswordHash []byte
		CreatedAt    int64
	}

	SessionRow struct {
		Token     string
		UserID    string
		Email     string
		CreatedAt int64
		ExpiresAt int64
	}

	ListTransactionsParams struct {
		UserID string
		From   int64
		To     int64
	}
)

const createTransaction = `INSERT INTO transactions (id, user_id, type, amount_cents, description, occurred_at, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, r TransactionRow) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		r.ID, r.UserID, r.Type, r.AmountCents, r.Description, r.OccurredAt, r.CreatedAt)
	return err
}

const listTransactions = `SELECT id, user_id, type, amount_cents, description, occurred_at, created_at
FROM transactions
WHERE user_id = ? AND occurred_at >= ? AND occurred_at < ?
ORDER BY occurred_at DESC, id ASC`

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions, arg.UserID, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		var i TransactionRow
		if err := rows.Scan(&i.ID, &i.UserID, &i.Type, &i.AmountCents, &i.Description, &i.OccurredAt, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ? AND user_id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id, userID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const createUser = `INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`

func (q *Queries) CreateUser(ctx context.Context, u UserRow) error {
	_, err := q.db.ExecContext(ctx, createUser, u.ID, u.Email, u.PasswordHash, u.CreatedAt)
	return err
}

const getUserByEmail = `SELECT id, email, password_hash, created_at FROM users WHERE email = ?`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (UserRow, error) {
	var u UserRow
	err := q.db.QueryRowContext(ctx, getUserByEmail, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

const upsertSession = `INSERT INTO sessions (token, user_id, email, created_at, expires_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(token) DO UPDATE SET expires_at = excluded.expires_at`

func (q *Queries) UpsertSession(ctx context.Context, s SessionRow) error {
	_, err := q.db.ExecContext(ctx, upsertSession, s.Token, s.UserID, s.Email, s.CreatedAt, s.ExpiresAt)
	return err
}

const getSession = `SELECT token, user_id, email, created_at, expires_at FROM sessions WHERE token = ?`

func (q *Queries) GetSession(ctx context.Context, token string) (SessionRow, error) {
	var s SessionRow
	err := q.db.QueryRowContext(ctx, getSession, token).Scan(&s.Token, &s.UserID, &s.Email, &s.CreatedAt, &s.ExpiresAt)
	return s, err
}

const deleteSession = `DELETE FROM sessions WHERE token = ?`

func (q *Queries) DeleteSession(ctx context.Context, token string) error {
	_, err := q.db.ExecContext(ctx, deleteSession, token)
	return err
}

const deleteExpiredSessions = `DELETE FROM sessions WHERE expires_at <= ?`

func (q *Queries) DeleteExpiredSessions(ctx context.Context, now int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpiredSessions, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
