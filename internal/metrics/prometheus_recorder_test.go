package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("render", 150*time.Millisecond)
	pr.ObservePublishDuration(500 * time.Millisecond)
	pr.IncStageResult("render", ResultSuccess)
	pr.IncPublishOutcome("success")
	pr.ObserveFetchDuration("openeo-python-client", time.Second, true)
	pr.IncGitRetry("clone")
	pr.SetQueueDepth(3)

	// Basic scrape to ensure metrics encode without panic
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatalf("expected metrics, got none")
	}
}

func TestNoopRecorderIsSafe(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveStageDuration("render", time.Second)
	r.IncPublishOutcome("failed")
	r.SetQueueDepth(0)

	// Nil PrometheusRecorder methods must not panic either.
	var p *PrometheusRecorder
	p.ObserveStageDuration("render", time.Second)
	p.IncPublishOutcome("failed")
}
