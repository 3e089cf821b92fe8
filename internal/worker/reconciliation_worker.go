// Package worker runs background jobs next to the HTTP server.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ayo6706/wallet-ledger/internal/observability"
	"go.uber.org/zap"
)

// Reconciler verifies the ledger once and reports how many discrepancies
// it found.
type Reconciler interface {
	Run(ctx context.Context) (int, error)
}

// ReconciliationWorker runs the ledger verifier on a fixed interval.
type ReconciliationWorker struct {
	svc      Reconciler
	logger   *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewReconciliationWorker constructs a worker with a default hourly
// interval. A nil logger falls back to the global one.
func NewReconciliationWorker(svc Reconciler, logger *zap.Logger) *ReconciliationWorker {
	if logger == nil {
		logger = zap.L()
	}
	return &ReconciliationWorker{
		svc:      svc,
		logger:   logger.Named("reconciliation"),
		interval: time.Hour,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// WithInterval updates the run interval. Non-positive values are ignored.
func (w *ReconciliationWorker) WithInterval(interval time.Duration) *ReconciliationWorker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// Start blocks, verifying once immediately and then on every tick.
func (w *ReconciliationWorker) Start(ctx context.Context) {
	defer close(w.done)
	w.logger.Info("worker starting", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// A restored snapshot is verified before the first tick.
	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker context canceled")
			return
		case <-w.stopCh:
			w.logger.Info("worker stop signal received")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// Stop signals the loop and waits for an in-flight run to finish. It must
// only be called after Start.
func (w *ReconciliationWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
	<-w.done
}

// Run starts the worker in a goroutine and returns its stop function.
func (w *ReconciliationWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

func (w *ReconciliationWorker) runOnce(ctx context.Context) {
	start := time.Now()
	found, err := w.svc.Run(ctx)
	switch {
	case err != nil:
		observability.IncrementWorkerRun("reconciliation", "failed")
		w.logger.Error("run failed", zap.Error(err))
	case found > 0:
		observability.IncrementWorkerRun("reconciliation", "discrepant")
		w.logger.Warn("run found discrepancies", zap.Int("count", found), zap.Duration("took", time.Since(start)))
	default:
		observability.IncrementWorkerRun("reconciliation", "success")
		w.logger.Debug("run clean", zap.Duration("took", time.Since(start)))
	}
}
