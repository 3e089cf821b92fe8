package service

import (
	"context"

	"github.com/ayo6706/wallet-ledger/internal/ledger"
	"github.com/ayo6706/wallet-ledger/internal/repository"
)

// QueryStore defines the minimal data access contract required by services.
type QueryStore interface {
	Queries() *repository.Queries
	RunInTx(ctx context.Context, fn func(q *repository.Queries) error) error
}

// AuditWriter records the events of one applied command.
type AuditWriter interface {
	WriteEvents(ctx context.Context, actorID string, events []ledger.Event) error
}
