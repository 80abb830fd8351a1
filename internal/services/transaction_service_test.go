package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/ports"
	"finanzas/internal/storage/memory"
)

type recordingPublisher struct {
	events []*amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, ev *amqp.LedgerEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

func sample(user string, date time.Time) core.Transaction {
	return core.Transaction{UserID: user, Kind: core.Expense, Amount: core.Money{Cents: 250}, Date: date}
}

func TestTransactionService_InsertPublishes(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := NewTransactionService(memory.New(time.UTC), pub, time.UTC)

	stored, err := svc.Insert(ctx, sample("u1", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if len(pub.events) != 1 {
		t.Fatalf("events = %d, want 1", len(pub.events))
	}
	ev := pub.events[0]
	if ev.Type != amqp.TransactionCreated || ev.TransactionID != stored.ID || ev.UserID != "u1" || ev.Year != 2024 {
		t.Errorf("event = %+v", ev)
	}
}

func TestTransactionService_EventYearUsesZone(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	loc := time.FixedZone("UTC-5", -5*3600)
	svc := NewTransactionService(memory.New(loc), pub, loc)

	if _, err := svc.Insert(ctx, sample("u1", time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC))); err != nil {
		t.Fatal(err)
	}
	if pub.events[0].Year != 2023 {
		t.Errorf("year = %d, want 2023", pub.events[0].Year)
	}
}

func TestTransactionService_DeletePublishesOnlyForKnownRows(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := NewTransactionService(memory.New(time.UTC), pub, time.UTC)

	stored, err := svc.Insert(ctx, sample("u1", time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatal(err)
	}
	pub.events = nil

	if err := svc.Delete(ctx, "u1", "unknown"); err != nil {
		t.Fatalf("Delete unknown: %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatalf("unknown id published %d events", len(pub.events))
	}

	if err := svc.Delete(ctx, "u1", stored.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(pub.events) != 1 || pub.events[0].Type != amqp.TransactionDeleted || pub.events[0].Year != 2023 {
		t.Fatalf("events = %+v", pub.events)
	}
	rows, _ := svc.Select(ctx, ports.Filter{UserID: "u1"})
	if len(rows) != 0 {
		t.Errorf("rows left = %d", len(rows))
	}
}

func TestTransactionService_PublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewTransactionService(memory.New(time.UTC), pub, time.UTC)

	if _, err := svc.Insert(ctx, sample("u1", time.Now())); err != nil {
		t.Fatalf("Insert should succeed despite publish failure: %v", err)
	}
}

func TestTransactionService_NilPublisher(t *testing.T) {
	ctx := context.Background()
	svc := NewTransactionService(memory.New(time.UTC), nil, nil)
	if _, err := svc.Insert(ctx, sample("u1", time.Now())); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := svc.RequestResync(ctx, "u1", 2024); !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("RequestResync err = %v", err)
	}
}

func TestTransactionService_InsertErrorSkipsEvent(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := NewTransactionService(memory.New(time.UTC), pub, time.UTC)

	_, err := svc.Insert(ctx, core.Transaction{Kind: core.Income, Date: time.Now()})
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("err = %v", err)
	}
	if len(pub.events) != 0 {
		t.Errorf("failed insert published %d events", len(pub.events))
	}
}
