package daemon

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/jdries/docpages/internal/eventstore"
	"github.com/jdries/docpages/internal/logfields"
	"github.com/jdries/docpages/internal/metrics"
	"github.com/jdries/docpages/internal/version"
)

// statusResponse is the payload served by GET /status.
type statusResponse struct {
	Version    string                       `json:"version"`
	UptimeSec  int64                        `json:"uptime_seconds"`
	Repository string                       `json:"repository"`
	Branch     string                       `json:"branch"`
	PagesURL   string                       `json:"pages_remote"`
	QueueDepth int                          `json:"queue_depth"`
	Active     []*Job                       `json:"active_jobs,omitempty"`
	LastRun    *eventstore.PublishSummary   `json:"last_run,omitempty"`
	History    []*eventstore.PublishSummary `json:"history,omitempty"`
}

// buildMux wires up the daemon HTTP surface.
func (d *Daemon) buildMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", d.handleHealthz)
	mux.HandleFunc("/status", d.handleStatus)
	mux.HandleFunc("/history", d.handleHistory)
	mux.HandleFunc("/publish", d.handlePublish)
	mux.HandleFunc("/webhook", d.handleWebhook)
	if d.registry != nil {
		mux.Handle("/metrics", metrics.HTTPHandler(d.registry))
	}
	return mux
}

func (d *Daemon) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version.Version})
}

func (d *Daemon) handleStatus(w http.ResponseWriter, r *http.Request) {
	cfg := d.config()
	resp := statusResponse{
		Version:    version.Version,
		UptimeSec:  int64(time.Since(d.startedAt).Seconds()),
		Repository: cfg.Source.Name,
		Branch:     cfg.Source.Branch,
		PagesURL:   cfg.Pages.RemoteURL,
		QueueDepth: d.queue.Length(),
		Active:     d.queue.ActiveJobs(),
	}
	if d.projection != nil {
		resp.LastRun = d.projection.GetLastCompletedRun()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (d *Daemon) handleHistory(w http.ResponseWriter, r *http.Request) {
	if d.projection != nil {
		writeJSON(w, http.StatusOK, statusResponse{Version: version.Version, History: d.projection.GetHistory()})
		return
	}
	// Without an event store the queue's in-memory history is all there is.
	writeJSON(w, http.StatusOK, map[string]any{"version": version.Version, "jobs": d.queue.History()})
}

// handlePublish triggers a manual publish run.
func (d *Daemon) handlePublish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	job := NewJob(TriggerManual)
	if err := d.queue.Enqueue(job); err != nil {
		slog.Error("Failed to enqueue manual publish", logfields.Error(err))
		http.Error(w, "queue full", http.StatusServiceUnavailable)
		return
	}

	slog.Info("Manual publish enqueued", logfields.JobID(job.ID), logfields.RemoteAddr(r.RemoteAddr))
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode JSON response", logfields.Error(err))
	}
}
