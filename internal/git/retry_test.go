package git

import (
	"errors"
	"testing"
	"time"

	"github.com/jdries/docpages/internal/retry"
)

// TestWithRetryBehavior ensures retries happen for transient errors and stop for permanent ones.
func TestWithRetryBehavior(t *testing.T) {
	pol := retry.NewPolicy(retry.ModeFixed, time.Millisecond, 5*time.Millisecond, 3)
	c := NewClient(t.TempDir()).WithRetry(pol)

	attempts := 0
	// Transient failure first 2 attempts, then success
	path, err := c.withRetry("clone", "repo", func() (string, error) {
		if attempts < 2 {
			attempts++
			return "", errors.New("temporary network failure")
		}
		attempts++
		return "/ok", nil
	})
	if err != nil {
		t.Fatalf("expected success transient scenario: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts got %d", attempts)
	}
	if path != "/ok" {
		t.Fatalf("unexpected path %s", path)
	}

	// Permanent error should not retry
	attempts = 0
	_, err = c.withRetry("clone", "repo", func() (string, error) {
		attempts++
		return "", errors.New("authentication failed: permission denied")
	})
	if err == nil {
		t.Fatalf("expected permanent error")
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt for permanent error, got %d", attempts)
	}
}

// TestWithRetryExhaustion verifies transient failures surface after the budget runs out.
func TestWithRetryExhaustion(t *testing.T) {
	pol := retry.NewPolicy(retry.ModeFixed, time.Millisecond, 5*time.Millisecond, 2)
	c := NewClient(t.TempDir()).WithRetry(pol)

	attempts := 0
	_, err := c.withRetry("update", "repo", func() (string, error) {
		attempts++
		return "", errors.New("i/o timeout")
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if attempts != 3 { // initial attempt + 2 retries
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestIsPermanentClassification(t *testing.T) {
	if !IsPermanent(&AuthError{Op: "clone", URL: "u", Err: errors.New("bad credentials")}) {
		t.Error("typed auth error should be permanent")
	}
	if !IsPermanent(errors.New("authentication failed")) {
		t.Error("auth message should be permanent")
	}
	if IsPermanent(errors.New("temporary network failure")) {
		t.Error("network blip should not be permanent")
	}
}
