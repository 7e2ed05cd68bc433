package eventstore

import (
	"encoding/json"
	"fmt"
	"time"
)

// PublishStarted is emitted when a publish run begins.
type PublishStarted struct {
	BaseEvent
	Repository string `json:"repository"`
	Branch     string `json:"branch"`
	Trigger    string `json:"trigger"` // "push", "manual", "schedule"
}

// NewPublishStarted creates a PublishStarted event.
func NewPublishStarted(publishID, repository, branch, trigger string) (*PublishStarted, error) {
	payload, err := json.Marshal(map[string]any{
		"repository": repository,
		"branch":     branch,
		"trigger":    trigger,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal PublishStarted payload for %s: %w", publishID, err)
	}

	return &PublishStarted{
		BaseEvent: BaseEvent{
			EventPublishID: publishID,
			EventType:      "PublishStarted",
			EventTimestamp: time.Now(),
			EventPayload:   payload,
		},
		Repository: repository,
		Branch:     branch,
		Trigger:    trigger,
	}, nil
}

// SourceFetched is emitted when the source checkout is cloned or updated.
type SourceFetched struct {
	BaseEvent
	Repository string        `json:"repository"`
	Commit     string        `json:"commit"`
	Path       string        `json:"path"`
	Duration   time.Duration `json:"duration_ms"`
}

// NewSourceFetched creates a SourceFetched event.
func NewSourceFetched(publishID, repository, commit, path string, duration time.Duration) (*SourceFetched, error) {
	payload, err := json.Marshal(map[string]any{
		"repository":  repository,
		"commit":      commit,
		"path":        path,
		"duration_ms": duration.Milliseconds(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal SourceFetched payload for %s: %w", publishID, err)
	}

	return &SourceFetched{
		BaseEvent: BaseEvent{
			EventPublishID: publishID,
			EventType:      "SourceFetched",
			EventTimestamp: time.Now(),
			EventPayload:   payload,
			EventMetadata:  map[string]string{"stage": "fetch"},
		},
		Repository: repository,
		Commit:     commit,
		Path:       path,
		Duration:   duration,
	}, nil
}

// DocsRendered is emitted when the generator produces the HTML tree.
type DocsRendered struct {
	BaseEvent
	OutputPath string        `json:"output_path"`
	PageCount  int           `json:"page_count"`
	Duration   time.Duration `json:"duration_ms"`
}

// NewDocsRendered creates a DocsRendered event.
func NewDocsRendered(publishID, outputPath string, pageCount int, duration time.Duration) (*DocsRendered, error) {
	payload, err := json.Marshal(map[string]any{
		"output_path": outputPath,
		"page_count":  pageCount,
		"duration_ms": duration.Milliseconds(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal DocsRendered payload for %s: %w", publishID, err)
	}

	return &DocsRendered{
		BaseEvent: BaseEvent{
			EventPublishID: publishID,
			EventType:      "DocsRendered",
			EventTimestamp: time.Now(),
			EventPayload:   payload,
			EventMetadata:  map[string]string{"stage": "render"},
		},
		OutputPath: outputPath,
		PageCount:  pageCount,
		Duration:   duration,
	}, nil
}

// PublishCompleted is emitted when the rendered tree lands on the pages branch.
type PublishCompleted struct {
	BaseEvent
	Branch       string        `json:"branch"`
	PagesCommit  string        `json:"pages_commit"`
	SourceCommit string        `json:"source_commit"`
	Duration     time.Duration `json:"duration_ms"`
}

// NewPublishCompleted creates a PublishCompleted event.
func NewPublishCompleted(publishID, branch, pagesCommit, sourceCommit string, duration time.Duration) (*PublishCompleted, error) {
	payload, err := json.Marshal(map[string]any{
		"branch":        branch,
		"pages_commit":  pagesCommit,
		"source_commit": sourceCommit,
		"duration_ms":   duration.Milliseconds(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal PublishCompleted payload for %s: %w", publishID, err)
	}

	return &PublishCompleted{
		BaseEvent: BaseEvent{
			EventPublishID: publishID,
			EventType:      "PublishCompleted",
			EventTimestamp: time.Now(),
			EventPayload:   payload,
		},
		Branch:       branch,
		PagesCommit:  pagesCommit,
		SourceCommit: sourceCommit,
		Duration:     duration,
	}, nil
}

// PublishFailed is emitted when any pipeline stage fails.
type PublishFailed struct {
	BaseEvent
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// NewPublishFailed creates a PublishFailed event.
func NewPublishFailed(publishID, stage, errorMsg string) (*PublishFailed, error) {
	payload, err := json.Marshal(map[string]any{
		"stage": stage,
		"error": errorMsg,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal PublishFailed payload for %s: %w", publishID, err)
	}

	return &PublishFailed{
		BaseEvent: BaseEvent{
			EventPublishID: publishID,
			EventType:      "PublishFailed",
			EventTimestamp: time.Now(),
			EventPayload:   payload,
			EventMetadata:  map[string]string{"stage": stage},
		},
		Stage: stage,
		Error: errorMsg,
	}, nil
}
