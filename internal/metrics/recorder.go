package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for publish and stage metrics.
// Implementations may forward to Prometheus, OpenTelemetry, etc. All methods
// must be safe for nil receivers when using the NoopRecorder (allowing
// optional injection).
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObservePublishDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncPublishOutcome(outcome string) // outcome: success|failed|canceled
	ObserveFetchDuration(repo string, d time.Duration, success bool)
	IncGitRetry(op string)
	SetQueueDepth(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are
// not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)       {}
func (NoopRecorder) ObservePublishDuration(time.Duration)             {}
func (NoopRecorder) IncStageResult(string, ResultLabel)               {}
func (NoopRecorder) IncPublishOutcome(string)                         {}
func (NoopRecorder) ObserveFetchDuration(string, time.Duration, bool) {}
func (NoopRecorder) IncGitRetry(string)                               {}
func (NoopRecorder) SetQueueDepth(int)                                {}
