// Package eventstore provides event sourcing primitives for publish tracking.
package eventstore

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

const (
	publishStatusRunning   = "running"
	publishStatusCompleted = "completed"
	publishStatusFailed    = "failed"
)

// PublishSummary is a read model summarizing one publish run.
type PublishSummary struct {
	PublishID    string        `json:"publish_id"`
	Repository   string        `json:"repository,omitempty"`
	Status       string        `json:"status"` // "running", "completed", "failed"
	StartedAt    time.Time     `json:"started_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
	SourceCommit string        `json:"source_commit,omitempty"`
	PagesCommit  string        `json:"pages_commit,omitempty"`
	PageCount    int           `json:"page_count,omitempty"`
	ErrorStage   string        `json:"error_stage,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// HistoryProjection maintains an in-memory view of publish history,
// reconstructed from events stored in the event store.
type HistoryProjection struct {
	mu       sync.RWMutex
	store    Store
	runs     map[string]*PublishSummary // publishID -> summary
	history  []*PublishSummary          // ordered by start time, newest first
	maxSize  int
	lastSync time.Time
}

// NewHistoryProjection creates a new projection backed by the given store.
func NewHistoryProjection(store Store, maxHistorySize int) *HistoryProjection {
	if maxHistorySize <= 0 {
		maxHistorySize = 100
	}
	return &HistoryProjection{
		store:   store,
		runs:    make(map[string]*PublishSummary),
		history: make([]*PublishSummary, 0, maxHistorySize),
		maxSize: maxHistorySize,
	}
}

// Rebuild reconstructs the projection from all events in the store.
// This is typically called at startup.
func (p *HistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.runs = make(map[string]*PublishSummary)
	p.history = make([]*PublishSummary, 0, p.maxSize)

	for _, event := range events {
		p.applyEventLocked(event)
	}

	p.sortHistoryLocked()
	if len(p.history) > p.maxSize {
		p.history = p.history[:p.maxSize]
	}
	p.pruneRunsLocked()

	p.lastSync = time.Now()
	return nil
}

// Apply processes a single event and updates the projection.
func (p *HistoryProjection) Apply(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyEventLocked(event)
}

func (p *HistoryProjection) applyEventLocked(event Event) {
	publishID := event.PublishID()
	if publishID == "" {
		return
	}

	summary, exists := p.runs[publishID]
	if !exists {
		summary = &PublishSummary{
			PublishID: publishID,
			Status:    publishStatusRunning,
			StartedAt: event.Timestamp(),
		}
		p.runs[publishID] = summary
	}

	switch event.Type() {
	case "PublishStarted":
		summary.StartedAt = event.Timestamp()
		summary.Status = publishStatusRunning
		var payload struct {
			Repository string `json:"repository"`
		}
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			summary.Repository = payload.Repository
		}

	case "SourceFetched":
		var payload struct {
			Commit string `json:"commit"`
		}
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			summary.SourceCommit = payload.Commit
		}

	case "DocsRendered":
		var payload struct {
			PageCount int `json:"page_count"`
		}
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			summary.PageCount = payload.PageCount
		}

	case "PublishCompleted":
		now := event.Timestamp()
		summary.CompletedAt = &now
		summary.Duration = now.Sub(summary.StartedAt)
		summary.Status = publishStatusCompleted
		var payload struct {
			PagesCommit string `json:"pages_commit"`
		}
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			summary.PagesCommit = payload.PagesCommit
		}
		p.addToHistoryLocked(summary)

	case "PublishFailed":
		now := event.Timestamp()
		summary.CompletedAt = &now
		summary.Duration = now.Sub(summary.StartedAt)
		summary.Status = publishStatusFailed
		var payload struct {
			Stage string `json:"stage"`
			Error string `json:"error"`
		}
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			summary.ErrorStage = payload.Stage
			summary.ErrorMessage = payload.Error
		}
		p.addToHistoryLocked(summary)
	}
}

func (p *HistoryProjection) addToHistoryLocked(summary *PublishSummary) {
	for _, h := range p.history {
		if h.PublishID == summary.PublishID {
			return
		}
	}

	p.history = append([]*PublishSummary{summary}, p.history...)
	if len(p.history) > p.maxSize {
		p.history = p.history[:p.maxSize]
	}
	p.pruneRunsLocked()
}

// pruneRunsLocked removes completed runs not present in the bounded history.
// Running publishes are always kept. Caller must hold p.mu (write lock).
func (p *HistoryProjection) pruneRunsLocked() {
	keep := make(map[string]struct{}, len(p.history))
	for _, h := range p.history {
		if h != nil {
			keep[h.PublishID] = struct{}{}
		}
	}

	for id, summary := range p.runs {
		if summary != nil && summary.Status == publishStatusRunning {
			continue
		}
		if _, ok := keep[id]; !ok {
			delete(p.runs, id)
		}
	}
}

// sortHistoryLocked sorts history by start time, newest first.
func (p *HistoryProjection) sortHistoryLocked() {
	for i := 1; i < len(p.history); i++ {
		for j := i; j > 0 && p.history[j].StartedAt.After(p.history[j-1].StartedAt); j-- {
			p.history[j], p.history[j-1] = p.history[j-1], p.history[j]
		}
	}
}

// GetHistory returns the publish history, newest first.
func (p *HistoryProjection) GetHistory() []*PublishSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]*PublishSummary, len(p.history))
	copy(result, p.history)
	return result
}

// GetRun returns the summary for a specific publish run.
func (p *HistoryProjection) GetRun(publishID string) (*PublishSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	summary, exists := p.runs[publishID]
	if !exists {
		return nil, false
	}
	cp := *summary
	return &cp, true
}

// GetActiveRun returns a currently running publish if any.
func (p *HistoryProjection) GetActiveRun() *PublishSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, summary := range p.runs {
		if summary.Status == publishStatusRunning {
			cp := *summary
			return &cp
		}
	}
	return nil
}

// GetLastCompletedRun returns the most recently finished publish.
func (p *HistoryProjection) GetLastCompletedRun() *PublishSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.history) == 0 {
		return nil
	}
	cp := *p.history[0]
	return &cp
}

// LastSyncTime returns when the projection was last synchronized.
func (p *HistoryProjection) LastSyncTime() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastSync
}
