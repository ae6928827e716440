package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func findFamily(t *testing.T, reg *Registry, name string) *dto.MetricFamily {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	if reg == nil {
		t.Fatal("expected non-nil registry")
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	// Should have go runtime metrics at minimum
	if len(mfs) == 0 {
		t.Error("expected some metrics to be registered")
	}
}

func TestRegistry_RecordQuery(t *testing.T) {
	reg := NewRegistry()

	reg.RecordQuery("gpt-4o", "ok")
	reg.RecordQuery("gpt-4o", "ok")
	reg.RecordQuery("gpt-4o", "error")

	mf := findFamily(t, reg, "parley_queries_total")
	if mf == nil {
		t.Fatal("expected parley_queries_total metric")
	}

	var ok float64
	for _, m := range mf.GetMetric() {
		for _, label := range m.GetLabel() {
			if label.GetName() == "status" && label.GetValue() == "ok" {
				ok = m.GetCounter().GetValue()
			}
		}
	}
	if ok != 2 {
		t.Errorf("expected 2 ok queries, got %v", ok)
	}
}

func TestRegistry_RecordAttempt(t *testing.T) {
	reg := NewRegistry()

	reg.RecordAttempt("m", "timeout")
	reg.RecordAttempt("m", "timeout")
	reg.RecordAttempt("m", "ok")

	mf := findFamily(t, reg, "parley_query_attempts_total")
	if mf == nil {
		t.Fatal("expected parley_query_attempts_total metric")
	}
	if len(mf.GetMetric()) != 2 {
		t.Errorf("expected 2 outcome series, got %d", len(mf.GetMetric()))
	}
}

func TestRegistry_RecordCompletion(t *testing.T) {
	reg := NewRegistry()

	reg.RecordCompletion("m", 0.123, 42)

	hist := findFamily(t, reg, "parley_query_latency_seconds")
	if hist == nil {
		t.Fatal("expected parley_query_latency_seconds metric")
	}
	for _, m := range hist.GetMetric() {
		h := m.GetHistogram()
		if h.GetSampleCount() != 1 {
			t.Errorf("expected sample count 1, got %d", h.GetSampleCount())
		}
		if h.GetSampleSum() < 0.12 || h.GetSampleSum() > 0.13 {
			t.Errorf("expected sample sum ~0.123, got %v", h.GetSampleSum())
		}
	}

	tokens := findFamily(t, reg, "parley_completion_tokens_total")
	if tokens == nil {
		t.Fatal("expected parley_completion_tokens_total metric")
	}
	if got := tokens.GetMetric()[0].GetCounter().GetValue(); got != 42 {
		t.Errorf("expected 42 tokens, got %v", got)
	}
}

func TestRegistry_SetTranscriptLength(t *testing.T) {
	reg := NewRegistry()

	reg.SetTranscriptLength("s1", 3)
	reg.SetTranscriptLength("s1", 5)

	mf := findFamily(t, reg, "parley_transcript_messages")
	if mf == nil {
		t.Fatal("expected parley_transcript_messages metric")
	}
	if got := mf.GetMetric()[0].GetGauge().GetValue(); got != 5 {
		t.Errorf("expected gauge 5, got %v", got)
	}
}

func TestRegistry_WriteTextfile(t *testing.T) {
	reg := NewRegistry()
	reg.RecordQuery("m", "ok")

	path := filepath.Join(t.TempDir(), "parley.prom")
	if err := reg.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading textfile: %v", err)
	}
	if !strings.Contains(string(data), "parley_queries_total") {
		t.Error("expected parley_queries_total in textfile")
	}
}

// Ensure the registry implements prometheus.Gatherer interface
func TestRegistry_ImplementsGatherer(t *testing.T) {
	reg := NewRegistry()
	var _ prometheus.Gatherer = reg
}
