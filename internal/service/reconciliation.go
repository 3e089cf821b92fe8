package service

import (
	"context"

	"github.com/ayo6706/wallet-ledger/internal/ledger"
	"github.com/ayo6706/wallet-ledger/internal/observability"
	"go.uber.org/zap"
)

// ReconciliationService verifies ledger integrity invariants.
type ReconciliationService struct {
	wallet *WalletService
}

// NewReconciliationService creates a reconciliation service.
func NewReconciliationService(wallet *WalletService) *ReconciliationService {
	return &ReconciliationService{wallet: wallet}
}

// Check returns every discrepancy in the current state.
func (s *ReconciliationService) Check() []ledger.Discrepancy {
	return ledger.Verify(s.wallet.Snapshot(), s.wallet.Policy())
}

// Run checks commissions, projections and balances, logging and counting
// each discrepancy. It returns how many it found; discrepancies are not
// errors.
func (s *ReconciliationService) Run(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	found := s.Check()
	if len(found) == 0 {
		zap.L().Info("Ledger consistent")
		return 0, nil
	}

	zap.L().Error("CRITICAL: ledger discrepancies detected", zap.Int("count", len(found)))
	for _, d := range found {
		observability.IncrementLedgerDiscrepancy(d.Check)
		zap.L().Error("ledger discrepancy",
			zap.String("check", d.Check),
			zap.String("ref_id", d.RefID),
			zap.String("detail", d.Detail),
		)
	}
	return len(found), nil
}
