package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"finanzas/internal/auth"
	"finanzas/internal/core"
	"finanzas/internal/ports"
)

// Service reconciles a State with the remote store. Writes never patch the
// local snapshot: each one is followed by a full reload, and any failure
// hands the previous State back untouched.
type Service struct {
	store ports.TransactionStore
	loc   *time.Location
}

func NewService(store ports.TransactionStore, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, loc: loc}
}

func (s *Service) Location() *time.Location {
	return s.loc
}

// Reload fetches the session user's full ledger.
func (s *Service) Reload(ctx context.Context, sess auth.Session) (State, error) {
	if err := sess.Valid(); err != nil {
		return State{loc: s.loc}, err
	}
	txs, err := s.store.Select(ctx, ports.Filter{UserID: sess.UserID})
	if err != nil {
		return State{loc: s.loc}, fmt.Errorf("%w: select transactions: %w", core.ErrRemote, err)
	}
	return Load(txs, s.loc), nil
}

// Insert stores the draft on behalf of the session user and reloads.
func (s *Service) Insert(ctx context.Context, prev State, sess auth.Session, d core.Draft) (State, error) {
	next, _, err := s.Create(ctx, prev, sess, d)
	return next, err
}

// Create is Insert that also hands back the record as the store saved it,
// server-assigned id included.
func (s *Service) Create(ctx context.Context, prev State, sess auth.Session, d core.Draft) (State, core.Transaction, error) {
	if err := sess.Valid(); err != nil {
		return prev, core.Transaction{}, err
	}
	d.Description = strings.TrimSpace(d.Description)
	if err := d.Validate(); err != nil {
		return prev, core.Transaction{}, err
	}
	stored, err := s.store.Insert(ctx, d.Bind(sess.UserID))
	if err != nil {
		return prev, core.Transaction{}, fmt.Errorf("%w: insert transaction: %w", core.ErrRemote, err)
	}
	slog.DebugContext(ctx, "Transaction inserted", "id", stored.ID, "user_id", sess.UserID, "type", stored.Kind, "amount_cents", stored.Amount.Cents)

	next, err := s.Reload(ctx, sess)
	if err != nil {
		return prev, core.Transaction{}, err
	}
	return next, stored, nil
}

// Remove deletes the transaction with the given id and reloads. An id the
// store does not know leaves the ledger as it was.
func (s *Service) Remove(ctx context.Context, prev State, sess auth.Session, id string) (State, error) {
	if err := sess.Valid(); err != nil {
		return prev, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return prev, fmt.Errorf("%w: missing transaction id", core.ErrValidation)
	}
	if err := s.store.Delete(ctx, sess.UserID, id); err != nil {
		return prev, fmt.Errorf("%w: delete transaction: %w", core.ErrRemote, err)
	}
	next, err := s.Reload(ctx, sess)
	if err != nil {
		return prev, err
	}
	return next, nil
}
