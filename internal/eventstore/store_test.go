package eventstore

import (
	"bytes"
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

const testPublishID = "publish-test-1"

func TestEventStoreAppendAndRetrieve(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := t.Context()
	eventType := "TestEvent"
	payload := []byte(`{"test": "data"}`)
	metadata := map[string]string{"key": "value"}

	err = store.Append(ctx, testPublishID, eventType, payload, metadata)
	if err != nil {
		t.Fatalf("failed to append event: %v", err)
	}

	events, err := store.GetByPublishID(ctx, testPublishID)
	if err != nil {
		t.Fatalf("failed to get events: %v", err)
	}

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	event := events[0]
	if event.PublishID() != testPublishID {
		t.Errorf("expected publish_id %s, got %s", testPublishID, event.PublishID())
	}
	if event.Type() != eventType {
		t.Errorf("expected event_type %s, got %s", eventType, event.Type())
	}
	if !bytes.Equal(event.Payload(), payload) {
		t.Errorf("expected payload %s, got %s", payload, event.Payload())
	}
	if event.Metadata()["key"] != "value" {
		t.Errorf("expected metadata key=value, got %v", event.Metadata())
	}
}

func TestEventStoreRecordsStageColumn(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "events.db")
	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := t.Context()
	fetched, err := NewSourceFetched(testPublishID, "project", "abc123", "/tmp/src", time.Second)
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	failed, err := NewPublishFailed(testPublishID, "render", "sphinx-build exited 2")
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	for _, event := range []Event{fetched, failed} {
		if appendErr := store.Append(ctx, event.PublishID(), event.Type(), event.Payload(), event.Metadata()); appendErr != nil {
			t.Fatalf("append %s: %v", event.Type(), appendErr)
		}
	}

	// Stage lands both in the metadata round-trip and in its own column so
	// failures can be grouped with plain SQL.
	events, err := store.GetByPublishID(ctx, testPublishID)
	if err != nil {
		t.Fatalf("get events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if got := events[0].Metadata()["stage"]; got != "fetch" {
		t.Errorf("SourceFetched stage = %q, want fetch", got)
	}
	if got := events[1].Metadata()["stage"]; got != "render" {
		t.Errorf("PublishFailed stage = %q, want render", got)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	var stage string
	row := db.QueryRowContext(ctx, "SELECT stage FROM publish_events WHERE event_type = 'PublishFailed'")
	if err := row.Scan(&stage); err != nil {
		t.Fatalf("query stage column: %v", err)
	}
	if stage != "render" {
		t.Errorf("stage column = %q, want render", stage)
	}
}

func TestEventStoreGetRange(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := t.Context()
	now := time.Now()

	for range 3 {
		if appendErr := store.Append(ctx, "publish-1", "Event", []byte("data"), nil); appendErr != nil {
			t.Fatalf("failed to append event: %v", appendErr)
		}
	}

	events, err := store.GetRange(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("failed to get range: %v", err)
	}

	if len(events) != 3 {
		t.Errorf("expected 3 events, got %d", len(events))
	}
}

func TestEventStoreMultipleRuns(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := t.Context()

	_ = store.Append(ctx, "publish-1", "Event1", []byte("data1"), nil)
	_ = store.Append(ctx, "publish-2", "Event2", []byte("data2"), nil)
	_ = store.Append(ctx, "publish-1", "Event3", []byte("data3"), nil)

	events, err := store.GetByPublishID(ctx, "publish-1")
	if err != nil {
		t.Fatalf("failed to get events: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 events for publish-1, got %d", len(events))
	}

	events, err = store.GetByPublishID(ctx, "publish-2")
	if err != nil {
		t.Fatalf("failed to get events: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected 1 event for publish-2, got %d", len(events))
	}
}
