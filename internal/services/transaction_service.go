package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/ports"
)

// EventPublisher is the part of amqp.Client the service needs.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// TransactionService decorates a TransactionStore: writes go to the store
// first, then a change event is published for the mirror worker.
type TransactionService struct {
	store     ports.TransactionStore
	publisher EventPublisher
	loc       *time.Location
}

var _ ports.TransactionStore = (*TransactionService)(nil)

// NewTransactionService wraps store. publisher may be nil, in which case no
// events are sent.
func NewTransactionService(store ports.TransactionStore, publisher EventPublisher, loc *time.Location) *TransactionService {
	if loc == nil {
		loc = time.Local
	}
	return &TransactionService{store: store, publisher: publisher, loc: loc}
}

func (s *TransactionService) Select(ctx context.Context, f ports.Filter) ([]core.Transaction, error) {
	return s.store.Select(ctx, f)
}

// Insert saves the transaction and announces it.
func (s *TransactionService) Insert(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	stored, err := s.store.Insert(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.publish(ctx, amqp.NewLedgerEvent(amqp.TransactionCreated, stored.ID, stored.UserID, stored.Date.In(s.loc).Year()))
	return stored, nil
}

// Delete removes the transaction and announces it. The row is looked up
// first so the event can name the affected year; an unknown id deletes
// nothing and publishes nothing.
func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	existing, err := s.store.Select(ctx, ports.Filter{UserID: userID})
	if err != nil {
		return fmt.Errorf("lookup transaction: %w", err)
	}
	var year int
	for _, tx := range existing {
		if tx.ID == id {
			year = tx.Date.In(s.loc).Year()
			break
		}
	}
	if err := s.store.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if year == 0 {
		slog.DebugContext(ctx, "Delete of unknown transaction, no event", "id", id, "user_id", userID)
		return nil
	}
	s.publish(ctx, amqp.NewLedgerEvent(amqp.TransactionDeleted, id, userID, year))
	return nil
}

// RequestResync publishes a resync event for one user's year.
func (s *TransactionService) RequestResync(ctx context.Context, userID string, year int) error {
	if s.publisher == nil {
		return fmt.Errorf("%w: event publishing disabled", core.ErrInvalidArgument)
	}
	return s.publisher.PublishEvent(ctx, amqp.NewLedgerEvent(amqp.LedgerResync, "", userID, year))
}

// publish never fails the caller: the write already succeeded.
func (s *TransactionService) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping ledger event", "type", ev.Type)
		return
	}
	if err := s.publisher.PublishEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"type", ev.Type,
			"transaction_id", ev.TransactionID,
			"user_id", ev.UserID,
			"error", err)
	}
}
