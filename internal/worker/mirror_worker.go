// Package worker consumes ledger events and keeps the Google Sheets mirror
// in step with the store.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/export"
	"finanzas/internal/ledger"
	"finanzas/internal/ports"
)

// MirrorWriter replaces a year's month tabs in the mirror.
type MirrorWriter interface {
	ReplaceMonthSheets(ctx context.Context, year int, sheets []export.Sheet) error
}

// MirrorWorker rebuilds the affected year on every event. Rebuilding from
// the store makes handling idempotent, so redelivered events are harmless.
type MirrorWorker struct {
	store  ports.TransactionStore
	mirror MirrorWriter
	loc    *time.Location
	// userID, when set, is the only user mirrored; one spreadsheet holds
	// one user's ledger.
	userID string
}

func NewMirrorWorker(store ports.TransactionStore, mirror MirrorWriter, loc *time.Location, userID string) *MirrorWorker {
	if loc == nil {
		loc = time.Local
	}
	return &MirrorWorker{store: store, mirror: mirror, loc: loc, userID: userID}
}

// HandleEvent is an amqp.Handler.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	if w.userID != "" && ev.UserID != w.userID {
		slog.DebugContext(ctx, "Skipping event for unmirrored user", "user_id", ev.UserID, "type", ev.Type)
		return nil
	}
	slog.InfoContext(ctx, "Processing ledger event",
		"type", ev.Type,
		"transaction_id", ev.TransactionID,
		"user_id", ev.UserID,
		"year", ev.Year)
	return w.Resync(ctx, ev.UserID, ev.Year)
}

// Resync rewrites the mirror for one user's year from the store.
func (w *MirrorWorker) Resync(ctx context.Context, userID string, year int) error {
	txs, err := w.store.Select(ctx, ports.Filter{UserID: userID, Year: year})
	if err != nil {
		return fmt.Errorf("load %d ledger: %w", year, err)
	}
	sheets := export.GroupByMonth(ledger.Load(txs, w.loc), year)
	if err := w.mirror.ReplaceMonthSheets(ctx, year, sheets); err != nil {
		return fmt.Errorf("mirror %d: %w", year, err)
	}
	slog.InfoContext(ctx, "Ledger year mirrored", "user_id", userID, "year", year, "months", len(sheets), "transactions", len(txs))
	return nil
}

// ResyncCurrentYear mirrors the configured user's current year. It is a
// no-op when no user is configured.
func (w *MirrorWorker) ResyncCurrentYear(ctx context.Context, now time.Time) error {
	if w.userID == "" {
		slog.InfoContext(ctx, "No mirror user configured, skipping startup resync")
		return nil
	}
	return w.Resync(ctx, w.userID, now.In(w.loc).Year())
}
