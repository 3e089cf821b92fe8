package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ayo6706/wallet-ledger/internal/ledger"
	"github.com/ayo6706/wallet-ledger/internal/repository"
	"go.uber.org/zap"
)

// AuditService writes immutable audit trail entries. Without a store it
// writes them to the structured log instead.
type AuditService struct {
	store  QueryStore
	logger *zap.Logger
}

func NewAuditService(store QueryStore, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{store: store, logger: logger}
}

type auditMetadata struct {
	UserID  string `json:"userId,omitempty"`
	TxnType string `json:"txnType,omitempty"`
	Amount  string `json:"amount"`
	Balance string `json:"balance,omitempty"`
}

// WriteEvents stores every event of one command in a single transaction.
func (s *AuditService) WriteEvents(ctx context.Context, actorID string, events []ledger.Event) error {
	if len(events) == 0 {
		return nil
	}
	if s.store == nil {
		for _, ev := range events {
			s.logger.Info("audit",
				zap.String("event", string(ev.Type)),
				zap.String("kind", string(ev.Kind)),
				zap.String("ref_id", ev.RefID),
				zap.String("actor_id", actorID),
				zap.String("amount", ev.Amount.String()),
				zap.String("next_status", string(ev.NextStatus)),
			)
		}
		return nil
	}

	return s.store.RunInTx(ctx, func(q *repository.Queries) error {
		for _, ev := range events {
			if err := s.Write(ctx, q, actorID, ev); err != nil {
				return err
			}
		}
		return nil
	})
}

// Write stores a single immutable audit record.
func (s *AuditService) Write(ctx context.Context, qtx *repository.Queries, actorID string, ev ledger.Event) error {
	meta := auditMetadata{
		UserID:  ev.UserID,
		TxnType: string(ev.TxnType),
		Amount:  ev.Amount.String(),
	}
	if ev.Type == ledger.EventBalanceAdjusted {
		meta.Balance = ev.Balance.String()
	}
	metadata, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}

	if _, err := qtx.InsertAuditLog(ctx, repository.InsertAuditLogParams{
		EntityType: string(ev.Kind),
		EntityID:   ev.RefID,
		ActorID:    textParam(actorID),
		Action:     string(ev.Type),
		PrevState:  textParam(string(ev.PrevStatus)),
		NextState:  textParam(string(ev.NextStatus)),
		Metadata:   metadata,
	}); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func textParam(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
