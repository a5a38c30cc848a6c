package metrics

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the set of Prometheus collectors for one price service
// instance.
type Metrics struct {
	BatchesStarted   prometheus.Counter
	BatchesCompleted prometheus.Counter
	BatchesCancelled prometheus.Counter

	StagedPrices      prometheus.Gauge
	LatestTableSize   prometheus.Gauge
	CommitDuration    prometheus.Histogram
	CommittedPerBatch prometheus.Histogram
}

// New creates the metric set under the "priceservice" namespace.
func New() *Metrics {
	return &Metrics{
		BatchesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "priceservice",
			Name:      "batches_started_total",
			Help:      "Total batches started via StartBatch.",
		}),
		BatchesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "priceservice",
			Name:      "batches_completed_total",
			Help:      "Total batches successfully completed.",
		}),
		BatchesCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "priceservice",
			Name:      "batches_cancelled_total",
			Help:      "Total batches cancelled.",
		}),
		StagedPrices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "priceservice",
			Name:      "staged_prices",
			Help:      "Number of prices staged in the batch most recently completed.",
		}),
		LatestTableSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "priceservice",
			Name:      "latest_table_size",
			Help:      "Number of instruments currently in the latest-price table.",
		}),
		CommitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "priceservice",
			Name:      "complete_batch_duration_seconds",
			Help:      "CompleteBatch call duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
		CommittedPerBatch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "priceservice",
			Name:      "committed_prices_per_batch",
			Help:      "Number of prices that actually won the commit rule per CompleteBatch call.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 500},
		}),
	}
}

// Register registers every collector against reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.BatchesStarted,
		m.BatchesCompleted,
		m.BatchesCancelled,
		m.StagedPrices,
		m.LatestTableSize,
		m.CommitDuration,
		m.CommittedPerBatch,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("register metric: %w", err)
		}
	}
	return nil
}

// BatchStarted implements priceservice.Observer.
func (m *Metrics) BatchStarted() {
	m.BatchesStarted.Inc()
}

// BatchCompleted implements priceservice.Observer.
func (m *Metrics) BatchCompleted(staged, committed, latestTableSize int, d time.Duration) {
	m.BatchesCompleted.Inc()
	m.StagedPrices.Set(float64(staged))
	m.CommittedPerBatch.Observe(float64(committed))
	m.LatestTableSize.Set(float64(latestTableSize))
	m.CommitDuration.Observe(d.Seconds())
}

// BatchCancelled implements priceservice.Observer.
func (m *Metrics) BatchCancelled() {
	m.BatchesCancelled.Inc()
}

// ServeHTTP starts a background HTTP server exposing /metrics (or
// path, if set) on port.
func ServeHTTP(port int, path string, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info("starting metrics http server", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("metrics http server stopped", "error", err)
		}
	}()
}
