package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMetrics_Register(t *testing.T) {
	m := New()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
}

func TestMetrics_BatchLifecycle(t *testing.T) {
	m := New()

	m.BatchStarted()
	m.BatchStarted()
	m.BatchCompleted(3, 2, 10, 5*time.Millisecond)
	m.BatchCancelled()

	if got := counterValue(t, m.BatchesStarted); got != 2 {
		t.Errorf("BatchesStarted = %v, want 2", got)
	}
	if got := counterValue(t, m.BatchesCompleted); got != 1 {
		t.Errorf("BatchesCompleted = %v, want 1", got)
	}
	if got := counterValue(t, m.BatchesCancelled); got != 1 {
		t.Errorf("BatchesCancelled = %v, want 1", got)
	}
	if got := gaugeValue(t, m.LatestTableSize); got != 10 {
		t.Errorf("LatestTableSize = %v, want 10", got)
	}
	if got := gaugeValue(t, m.StagedPrices); got != 3 {
		t.Errorf("StagedPrices = %v, want 3", got)
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("write gauge: %v", err)
	}
	return m.GetGauge().GetValue()
}
