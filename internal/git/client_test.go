package git

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// writeAndCommit adds a file to the repository worktree and commits it.
func writeAndCommit(t *testing.T, repo *gogit.Repository, repoPath, filename, content, msg string) plumbing.Hash {
	t.Helper()
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	full := filepath.Join(repoPath, filename)
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := wt.Add(filepath.ToSlash(filename)); err != nil {
		t.Fatalf("add: %v", err)
	}
	hash, err := wt.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "t@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	return hash
}

func TestCloneErrorClassification(t *testing.T) {
	cases := []struct {
		msg       string
		permanent bool
	}{
		{"authentication required: invalid username or password", true},
		{"repository does not exist", true},
		{"unsupported protocol scheme", true},
		{"rate limit exceeded", false},
		{"dial tcp: i/o timeout", false},
	}
	for _, tc := range cases {
		err := classifyCloneError("https://example.com/x.git", errors.New(tc.msg))
		if got := IsPermanent(err); got != tc.permanent {
			t.Errorf("%q: IsPermanent = %v, want %v (classified as %T)", tc.msg, got, tc.permanent, err)
		}
	}
}
