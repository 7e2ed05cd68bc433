package eventstore

import (
	"testing"
	"time"
)

func appendEvent(t *testing.T, store Store, e Event, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if err := store.Append(t.Context(), e.PublishID(), e.Type(), e.Payload(), e.Metadata()); err != nil {
		t.Fatalf("append event: %v", err)
	}
}

func TestProjectionSuccessfulRun(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	started, err1 := NewPublishStarted("run-1", "jdries/openeo-python-client", "master", "push")
	appendEvent(t, store, started, err1)
	fetched, err2 := NewSourceFetched("run-1", "jdries/openeo-python-client", "abc1234", "/tmp/src", 2*time.Second)
	appendEvent(t, store, fetched, err2)
	rendered, err3 := NewDocsRendered("run-1", "/tmp/out", 42, 30*time.Second)
	appendEvent(t, store, rendered, err3)
	completed, err4 := NewPublishCompleted("run-1", "gh-pages", "def5678", "abc1234", time.Minute)
	appendEvent(t, store, completed, err4)

	proj := NewHistoryProjection(store, 10)
	if err := proj.Rebuild(t.Context()); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	summary, ok := proj.GetRun("run-1")
	if !ok {
		t.Fatal("run-1 missing from projection")
	}
	if summary.Status != "completed" {
		t.Errorf("status = %q, want completed", summary.Status)
	}
	if summary.Repository != "jdries/openeo-python-client" {
		t.Errorf("repository = %q", summary.Repository)
	}
	if summary.SourceCommit != "abc1234" {
		t.Errorf("source commit = %q", summary.SourceCommit)
	}
	if summary.PagesCommit != "def5678" {
		t.Errorf("pages commit = %q", summary.PagesCommit)
	}
	if summary.PageCount != 42 {
		t.Errorf("page count = %d", summary.PageCount)
	}
	if summary.CompletedAt == nil {
		t.Error("completed run should carry a completion time")
	}

	history := proj.GetHistory()
	if len(history) != 1 || history[0].PublishID != "run-1" {
		t.Errorf("unexpected history %v", history)
	}
}

func TestProjectionFailedRun(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	proj := NewHistoryProjection(store, 10)

	started, errS := NewPublishStarted("run-2", "repo", "master", "manual")
	if errS != nil {
		t.Fatalf("create event: %v", errS)
	}
	proj.Apply(started)

	failed, errF := NewPublishFailed("run-2", "render", "sphinx-build exited with code 2")
	if errF != nil {
		t.Fatalf("create event: %v", errF)
	}
	proj.Apply(failed)

	summary, ok := proj.GetRun("run-2")
	if !ok {
		t.Fatal("run-2 missing")
	}
	if summary.Status != "failed" {
		t.Errorf("status = %q, want failed", summary.Status)
	}
	if summary.ErrorStage != "render" {
		t.Errorf("error stage = %q", summary.ErrorStage)
	}
	if summary.ErrorMessage == "" {
		t.Error("error message should be recorded")
	}
	if last := proj.GetLastCompletedRun(); last == nil || last.PublishID != "run-2" {
		t.Errorf("last completed run = %v", last)
	}
}

func TestProjectionActiveRunAndBoundedHistory(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	proj := NewHistoryProjection(store, 2)

	// Three finished runs against a history bound of two.
	for _, id := range []string{"a", "b", "c"} {
		started, _ := NewPublishStarted(id, "repo", "master", "push")
		proj.Apply(started)
		completed, _ := NewPublishCompleted(id, "gh-pages", "hash-"+id, "src-"+id, time.Second)
		proj.Apply(completed)
	}
	if got := len(proj.GetHistory()); got != 2 {
		t.Errorf("history size = %d, want 2", got)
	}

	// A running publish stays visible regardless of history bounds.
	started, _ := NewPublishStarted("active", "repo", "master", "push")
	proj.Apply(started)
	active := proj.GetActiveRun()
	if active == nil || active.PublishID != "active" {
		t.Errorf("active run = %v", active)
	}
}
