package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestNilRegistrySafe(t *testing.T) {
	var m *Registry
	m.ObserveChunk(10)
	m.ObserveSourceError(0)
	m.ObserveCacheHit()
	m.ObserveCacheMiss()
	m.ObserveSingleFlightWait()
	m.ObserveEviction()
	m.ObserveLoaderResult(time.Millisecond, nil)
	// no panic is the assertion
}

func TestObserveChunkUpdatesCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRegistry(reg)
	m.ObserveChunk(7)
	m.ObserveChunk(3)
	if got := counterValue(t, m.ChunksProduced); got != 2 {
		t.Fatalf("ChunksProduced = %v, want 2", got)
	}
	if got := counterValue(t, m.RowsMerged); got != 10 {
		t.Fatalf("RowsMerged = %v, want 10", got)
	}
}

func TestObserveSourceErrorLabelsByIndex(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRegistry(reg)
	m.ObserveSourceError(2)
	m.ObserveSourceError(2)
	m.ObserveSourceError(5)

	var mf dto.Metric
	if err := m.SourceErrors.WithLabelValues("2").Write(&mf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if mf.GetCounter().GetValue() != 2 {
		t.Fatalf("source 2 errors = %v, want 2", mf.GetCounter().GetValue())
	}
}

func TestObserveLoaderResultIncrementsErrorsOnlyOnFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRegistry(reg)
	m.ObserveLoaderResult(time.Millisecond, nil)
	if got := counterValue(t, m.LoaderErrors); got != 0 {
		t.Fatalf("LoaderErrors = %v, want 0 after success", got)
	}
	m.ObserveLoaderResult(time.Millisecond, errBoom{})
	if got := counterValue(t, m.LoaderErrors); got != 1 {
		t.Fatalf("LoaderErrors = %v, want 1 after failure", got)
	}
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }
