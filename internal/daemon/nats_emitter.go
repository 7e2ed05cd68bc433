package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	appcfg "github.com/jdries/docpages/internal/config"
	"github.com/jdries/docpages/internal/logfields"
)

// NATSEmitter publishes finished-job notifications to a NATS subject so
// downstream systems (cache purgers, chat notifiers) can react to publishes.
type NATSEmitter struct {
	conn    *nats.Conn
	subject string
}

// jobNotification is the wire format emitted per finished job.
type jobNotification struct {
	JobID        string    `json:"job_id"`
	Trigger      string    `json:"trigger"`
	Status       string    `json:"status"`
	Repository   string    `json:"repository,omitempty"`
	Branch       string    `json:"branch,omitempty"`
	SourceCommit string    `json:"source_commit,omitempty"`
	PagesCommit  string    `json:"pages_commit,omitempty"`
	PageCount    int       `json:"page_count,omitempty"`
	Error        string    `json:"error,omitempty"`
	DurationMS   int64     `json:"duration_ms"`
	FinishedAt   time.Time `json:"finished_at"`
}

// NewNATSEmitter connects to the configured NATS server.
func NewNATSEmitter(cfg *appcfg.NATSConfig) (*NATSEmitter, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, fmt.Errorf("nats configuration is required")
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name("docpages"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	subject := cfg.Subject
	if subject == "" {
		subject = appcfg.DefaultNATSSubject
	}

	slog.Info("NATS emitter connected", logfields.URL(cfg.URL), slog.String("subject", subject))
	return &NATSEmitter{conn: conn, subject: subject}, nil
}

// EmitJob publishes a notification for a finished job. Failures are logged
// and dropped; notification delivery never affects publish outcomes.
func (e *NATSEmitter) EmitJob(_ context.Context, job *Job) {
	if e == nil || e.conn == nil || job == nil {
		return
	}

	note := jobNotification{
		JobID:      job.ID,
		Trigger:    string(job.Trigger),
		Status:     string(job.Status),
		Error:      job.Error,
		DurationMS: job.Duration.Milliseconds(),
		FinishedAt: time.Now(),
	}
	if job.Result != nil {
		note.Repository = job.Result.Repository
		note.Branch = job.Result.Branch
		note.SourceCommit = job.Result.SourceCommit
		note.PagesCommit = job.Result.PagesCommit
		note.PageCount = job.Result.PageCount
	}

	data, err := json.Marshal(note)
	if err != nil {
		slog.Warn("Failed to marshal job notification", logfields.Error(err))
		return
	}
	if err := e.conn.Publish(e.subject, data); err != nil {
		slog.Warn("Failed to publish job notification", logfields.Error(err))
	}
}

// Close drains and closes the NATS connection.
func (e *NATSEmitter) Close() {
	if e == nil || e.conn == nil {
		return
	}
	if err := e.conn.Drain(); err != nil {
		slog.Warn("NATS drain failed", logfields.Error(err))
	}
}
