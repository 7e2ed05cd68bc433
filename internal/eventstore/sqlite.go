package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore creates a new SQLite-based event store.
// Use ":memory:" for an in-memory database, or a file path for persistence.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS publish_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		publish_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		stage TEXT NOT NULL DEFAULT '',
		occurred_at INTEGER NOT NULL,
		payload BLOB NOT NULL,
		metadata TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_publish_events_publish_id ON publish_events(publish_id);
	CREATE INDEX IF NOT EXISTS idx_publish_events_occurred_at ON publish_events(occurred_at);
	CREATE INDEX IF NOT EXISTS idx_publish_events_stage ON publish_events(stage);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append adds a new event to the store. The pipeline stage the event belongs
// to is lifted out of the metadata into its own column so failures can be
// grouped by stage with plain SQL. occurred_at is stored in milliseconds.
func (s *SQLiteStore) Append(ctx context.Context, publishID, eventType string, payload []byte, metadata map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var metadataJSON []byte
	if metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO publish_events (publish_id, event_type, stage, occurred_at, payload, metadata) VALUES (?, ?, ?, ?, ?, ?)",
		publishID, eventType, metadata["stage"], time.Now().UnixMilli(), payload, metadataJSON,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	return nil
}

// GetByPublishID retrieves all events for a specific publish run.
func (s *SQLiteStore) GetByPublishID(ctx context.Context, publishID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, publish_id, event_type, occurred_at, payload, metadata FROM publish_events WHERE publish_id = ? ORDER BY id",
		publishID,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

// GetRange retrieves events within a time range.
func (s *SQLiteStore) GetRange(ctx context.Context, start, end time.Time) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, publish_id, event_type, occurred_at, payload, metadata FROM publish_events WHERE occurred_at >= ? AND occurred_at <= ? ORDER BY id",
		start.UnixMilli(), end.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

func (s *SQLiteStore) scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var e BaseEvent
		var occurredAtMilli int64
		var metadataJSON []byte

		err := rows.Scan(&e.EventID, &e.EventPublishID, &e.EventType, &occurredAtMilli, &e.EventPayload, &metadataJSON)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}

		e.EventTimestamp = time.UnixMilli(occurredAtMilli)

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &e.EventMetadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}

		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return events, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
