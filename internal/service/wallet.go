package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/ledger"
	"github.com/ayo6706/wallet-ledger/internal/observability"
	"github.com/ayo6706/wallet-ledger/internal/snapshot"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// WalletService owns the single ledger state of this process. Mutations
// are serialized: each one is applied to a copy, persisted, and only then
// published to readers.
type WalletService struct {
	mu     sync.RWMutex
	engine *ledger.Engine
	store  snapshot.Store
	audit  AuditWriter
	logger *zap.Logger
	state  ledger.State
}

// NewWalletService builds a service over an empty state. Call Restore to
// load the persisted snapshot before serving traffic.
func NewWalletService(engine *ledger.Engine, store snapshot.Store, audit AuditWriter, logger *zap.Logger) *WalletService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = snapshot.NewMemoryStore()
	}
	return &WalletService{
		engine: engine,
		store:  store,
		audit:  audit,
		logger: logger,
		state:  ledger.NewState(),
	}
}

// Restore replaces the in-memory state with the stored snapshot, if any.
func (s *WalletService) Restore(ctx context.Context) error {
	state, ok, err := s.store.Load(ctx)
	if err != nil {
		observability.IncrementSnapshotFailure("load")
		return fmt.Errorf("restore ledger state: %w", err)
	}
	if !ok {
		s.logger.Info("no ledger snapshot found, starting empty")
		return nil
	}

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	s.logger.Info("ledger snapshot restored",
		zap.Int("transactions", len(state.Log.Txns)),
		zap.Int("commissions", len(state.Commissions.Entries)),
	)
	s.publishQueueSizes(state)
	return nil
}

// Policy returns the policy the engine runs under.
func (s *WalletService) Policy() ledger.Policy {
	return s.engine.Policy()
}

// Snapshot returns a private copy of the current state.
func (s *WalletService) Snapshot() ledger.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Balance returns the balance of userID.
func (s *WalletService) Balance(userID string) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Balance(userID)
}

// Execute applies cmd on behalf of actorID and persists the result. On any
// error the published state is left as it was.
func (s *WalletService) Execute(ctx context.Context, actorID string, cmd ledger.Command) (ledger.Outcome, error) {
	name := "unknown"
	if cmd != nil {
		name = cmd.CommandName()
	}

	s.mu.Lock()
	out, err := s.engine.Apply(s.state, cmd)
	if err != nil {
		s.mu.Unlock()
		observability.IncrementLedgerCommand(name, outcomeLabel(err))
		return ledger.Outcome{}, err
	}
	if err := s.store.Save(ctx, out.State); err != nil {
		s.mu.Unlock()
		observability.IncrementSnapshotFailure("save")
		observability.IncrementLedgerCommand(name, "persist_failed")
		s.logger.Error("ledger snapshot save failed", zap.String("command", name), zap.Error(err))
		return ledger.Outcome{}, fmt.Errorf("persist ledger state: %w", err)
	}
	s.state = out.State
	published := out.State.Clone()
	s.mu.Unlock()

	observability.IncrementLedgerCommand(name, "ok")
	s.observe(out.Events)
	s.publishQueueSizes(published)

	s.logger.Info("ledger command applied",
		zap.String("command", name),
		zap.String("ref_id", out.Ref),
		zap.String("kind", string(out.Kind)),
		zap.String("actor_id", actorID),
	)

	if s.audit != nil {
		if err := s.audit.WriteEvents(context.WithoutCancel(ctx), actorID, out.Events); err != nil {
			s.logger.Warn("audit write failed", zap.String("ref_id", out.Ref), zap.Error(err))
		}
	}

	out.State = published
	return out, nil
}

// RequestDeposit queues a deposit for userID.
func (s *WalletService) RequestDeposit(ctx context.Context, userID string, amount decimal.Decimal) (ledger.FundRequest, error) {
	out, err := s.Execute(ctx, userID, ledger.RequestDeposit{UserID: userID, Amount: amount})
	if err != nil {
		return ledger.FundRequest{}, err
	}
	req, _ := out.State.Wallet.FindRequest(domain.KindDeposit, out.Ref)
	return req, nil
}

// RequestWithdrawal queues a withdrawal for userID.
func (s *WalletService) RequestWithdrawal(ctx context.Context, userID string, amount decimal.Decimal) (ledger.FundRequest, error) {
	out, err := s.Execute(ctx, userID, ledger.RequestWithdrawal{UserID: userID, Amount: amount})
	if err != nil {
		return ledger.FundRequest{}, err
	}
	req, _ := out.State.Wallet.FindRequest(domain.KindWithdrawal, out.Ref)
	return req, nil
}

// Transfer logs a pending transfer from one user to another.
func (s *WalletService) Transfer(ctx context.Context, from, to string, amount decimal.Decimal, typ domain.TxnType) (ledger.Transaction, error) {
	return s.executeForTxn(ctx, from, ledger.InitiateTransfer{From: from, To: to, Amount: amount, Type: typ})
}

// Approve approves the pending item id. kind may be empty.
func (s *WalletService) Approve(ctx context.Context, actorID, id string, kind domain.Kind) (ledger.Transaction, error) {
	return s.executeForTxn(ctx, actorID, ledger.Approve{ID: id, Kind: kind})
}

// Reject rejects the pending item id. kind may be empty.
func (s *WalletService) Reject(ctx context.Context, actorID, id string, kind domain.Kind) (ledger.Transaction, error) {
	return s.executeForTxn(ctx, actorID, ledger.Reject{ID: id, Kind: kind})
}

// Record books an already settled deposit or withdrawal for userID.
func (s *WalletService) Record(ctx context.Context, actorID string, kind domain.Kind, userID string, amount decimal.Decimal) (ledger.Transaction, error) {
	var cmd ledger.Command
	switch kind {
	case domain.KindDeposit:
		cmd = ledger.RecordDeposit{UserID: userID, Amount: amount}
	case domain.KindWithdrawal:
		cmd = ledger.RecordWithdrawal{UserID: userID, Amount: amount}
	default:
		return ledger.Transaction{}, &ledger.ValidationError{Field: "action", Reason: fmt.Sprintf("unsupported action %q", kind)}
	}
	return s.executeForTxn(ctx, actorID, cmd)
}

func (s *WalletService) executeForTxn(ctx context.Context, actorID string, cmd ledger.Command) (ledger.Transaction, error) {
	out, err := s.Execute(ctx, actorID, cmd)
	if err != nil {
		return ledger.Transaction{}, err
	}
	txn, _ := out.State.Transaction(out.Ref)
	return txn, nil
}

func (s *WalletService) observe(events []ledger.Event) {
	for _, ev := range events {
		if ev.Type == ledger.EventCommissionBooked {
			observability.AddCommission(string(ev.TxnType), ev.Amount.InexactFloat64())
		}
	}
}

func (s *WalletService) publishQueueSizes(state ledger.State) {
	stats := state.PendingStats()
	observability.SetPendingQueueSize(string(domain.KindDeposit), stats.Deposits.Count)
	observability.SetPendingQueueSize(string(domain.KindWithdrawal), stats.Withdrawals.Count)
	observability.SetPendingQueueSize(string(domain.KindTransfer), stats.Transfers.Count)
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return "not_found"
	case errors.Is(err, ledger.ErrAlreadyProcessed):
		return "already_processed"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ledger.ErrInvalidCommand):
		return "invalid"
	default:
		return "error"
	}
}
