package backend

import (
	"context"
	"time"

	"finanzas/internal/ports"
	"finanzas/internal/services"
)

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// SeedFunc loads demo data for a user and reports how many rows it added.
type SeedFunc func(ctx context.Context, userID string) (int, error)

// BackendResult holds the stores of one backend plus its lifecycle hooks.
type BackendResult struct {
	Transactions ports.TransactionStore
	Users        ports.UserStore
	Sessions     ports.SessionStore

	// Purger is set when expired sessions persist and need sweeping.
	Purger services.SessionPurger
	// Seed is set when demo data is configured.
	Seed SeedFunc
	// Ready checks the backing store; never nil.
	Ready   func(ctx context.Context) error
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type     BackendType
	Location *time.Location

	SQLiteDBPath string
	DatabaseURL  string
	// AMQP is optional; an empty URL disables change events.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Memory backend demo data.
	SeedFile string
}

type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	MemoryBackend   BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PostgresBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
