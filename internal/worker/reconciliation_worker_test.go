package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ayo6706/wallet-ledger/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type countingReconciler struct {
	runs  atomic.Int32
	found int
	err   error
}

func (c *countingReconciler) Run(context.Context) (int, error) {
	c.runs.Add(1)
	return c.found, c.err
}

func TestWorkerRunsImmediatelyAndOnTick(t *testing.T) {
	rec := &countingReconciler{}
	w := NewReconciliationWorker(rec, zap.NewNop()).WithInterval(10 * time.Millisecond)

	stop := w.Run(context.Background())
	assert.Eventually(t, func() bool { return rec.runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	stop()

	after := rec.runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, rec.runs.Load())
}

func TestWorkerStopsOnContextCancel(t *testing.T) {
	rec := &countingReconciler{err: errors.New("boom")}
	w := NewReconciliationWorker(rec, zap.NewNop()).WithInterval(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	stop := w.Run(ctx)
	assert.Eventually(t, func() bool { return rec.runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	stop()
	assert.Equal(t, int32(1), rec.runs.Load())
}

func TestWithIntervalIgnoresNonPositive(t *testing.T) {
	w := NewReconciliationWorker(&countingReconciler{}, nil).WithInterval(0)
	assert.Equal(t, time.Hour, w.interval)
}

func TestWorkerCountsOutcomes(t *testing.T) {
	observability.Init()
	before := testutil.ToFloat64(observability.WorkerRuns().WithLabelValues("reconciliation", "discrepant"))

	rec := &countingReconciler{found: 2}
	w := NewReconciliationWorker(rec, zap.NewNop()).WithInterval(time.Hour)
	stop := w.Run(context.Background())
	assert.Eventually(t, func() bool { return rec.runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	stop()

	after := testutil.ToFloat64(observability.WorkerRuns().WithLabelValues("reconciliation", "discrepant"))
	assert.Equal(t, before+1, after)
}
