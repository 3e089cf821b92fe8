package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce             sync.Once
	httpDurationHistogram    *prometheus.HistogramVec
	ledgerCommandCounter     *prometheus.CounterVec
	commissionCounter        *prometheus.CounterVec
	pendingQueueGauge        *prometheus.GaugeVec
	ledgerDiscrepancyCounter *prometheus.CounterVec
	idempotencyCounter       *prometheus.CounterVec
	snapshotFailureCounter   *prometheus.CounterVec
	workerRunCounter         *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		ledgerCommandCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_commands_total",
			Help: "Ledger commands applied, by command and outcome",
		}, []string{"command", "outcome"})

		commissionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_commission_booked_total",
			Help: "Commission amount booked, by transaction type",
		}, []string{"type"})

		pendingQueueGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ledger_pending_queue_size",
			Help: "Items waiting for admin review",
		}, []string{"kind"})

		ledgerDiscrepancyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_discrepancy_total",
			Help: "Invariant violations found by reconciliation",
		}, []string{"check"})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		snapshotFailureCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snapshot_failures_total",
			Help: "Snapshot store failures",
		}, []string{"op"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			ledgerCommandCounter,
			commissionCounter,
			pendingQueueGauge,
			ledgerDiscrepancyCounter,
			idempotencyCounter,
			snapshotFailureCounter,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementLedgerCommand(command, outcome string) {
	if ledgerCommandCounter == nil {
		return
	}
	ledgerCommandCounter.WithLabelValues(command, outcome).Inc()
}

// AddCommission records a booked commission amount.
func AddCommission(txnType string, amount float64) {
	if commissionCounter == nil {
		return
	}
	commissionCounter.WithLabelValues(txnType).Add(amount)
}

func SetPendingQueueSize(kind string, size int) {
	if pendingQueueGauge == nil {
		return
	}
	pendingQueueGauge.WithLabelValues(kind).Set(float64(size))
}

func IncrementLedgerDiscrepancy(check string) {
	if ledgerDiscrepancyCounter == nil {
		return
	}
	ledgerDiscrepancyCounter.WithLabelValues(check).Inc()
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func IncrementSnapshotFailure(op string) {
	if snapshotFailureCounter == nil {
		return
	}
	snapshotFailureCounter.WithLabelValues(op).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}

// WorkerRuns exposes the worker run counter, or nil before Init.
func WorkerRuns() *prometheus.CounterVec {
	return workerRunCounter
}
