package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once            sync.Once
	stageDuration   *prom.HistogramVec
	publishDuration prom.Histogram
	stageResults    *prom.CounterVec
	publishOutcome  *prom.CounterVec
	fetchDuration   *prom.HistogramVec
	gitRetries      *prom.CounterVec
	queueDepth      prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "docpages",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual publish stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.publishDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "docpages",
			Name:      "publish_duration_seconds",
			Help:      "Total publish run duration",
			Buckets:   prom.DefBuckets,
		})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docpages",
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"})
		pr.publishOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docpages",
			Name:      "publish_outcomes_total",
			Help:      "Publish outcomes by final status",
		}, []string{"outcome"})
		pr.fetchDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "docpages",
			Name:      "source_fetch_duration_seconds",
			Help:      "Duration of source clone and update operations",
			Buckets:   prom.DefBuckets,
		}, []string{"repo", "result"})
		pr.gitRetries = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docpages",
			Name:      "git_retries_total",
			Help:      "Git operation retries after transient failures",
		}, []string{"op"})
		pr.queueDepth = prom.NewGauge(prom.GaugeOpts{
			Namespace: "docpages",
			Name:      "queue_depth",
			Help:      "Publish jobs currently waiting in the queue",
		})
		reg.MustRegister(pr.stageDuration, pr.publishDuration, pr.stageResults, pr.publishOutcome, pr.fetchDuration, pr.gitRetries, pr.queueDepth)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObservePublishDuration(d time.Duration) {
	if p == nil || p.publishDuration == nil {
		return
	}
	p.publishDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncPublishOutcome(outcome string) {
	if p == nil || p.publishOutcome == nil {
		return
	}
	p.publishOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) ObserveFetchDuration(repo string, d time.Duration, success bool) {
	if p == nil || p.fetchDuration == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.fetchDuration.WithLabelValues(repo, res).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncGitRetry(op string) {
	if p == nil || p.gitRetries == nil {
		return
	}
	p.gitRetries.WithLabelValues(op).Inc()
}

func (p *PrometheusRecorder) SetQueueDepth(n int) {
	if p == nil || p.queueDepth == nil {
		return
	}
	p.queueDepth.Set(float64(n))
}
