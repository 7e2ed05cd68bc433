package sphinx

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	appcfg "github.com/jdries/docpages/internal/config"
)

// fakeGenerator writes an executable script standing in for sphinx-build.
// The script writes index.html into its final argument (the output dir).
func fakeGenerator(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script based test")
	}
	path := filepath.Join(t.TempDir(), "fake-sphinx")
	if err := os.WriteFile(path, []byte(script), 0o700); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func newRepo(t *testing.T) string {
	t.Helper()
	repo := t.TempDir()
	if err := os.MkdirAll(filepath.Join(repo, "docs"), 0o750); err != nil {
		t.Fatalf("mkdir docs: %v", err)
	}
	return repo
}

func TestBuildSuccess(t *testing.T) {
	gen := fakeGenerator(t, "#!/bin/sh\nfor last; do :; done\nmkdir -p \"$last\"\necho '<html></html>' > \"$last/index.html\"\n")
	repo := newRepo(t)
	out := filepath.Join(t.TempDir(), "site")

	b := NewCommandBuilder(appcfg.DocsConfig{Command: gen, Builder: "html", Timeout: time.Minute})
	res, err := b.Build(t.Context(), BuildRequest{RepoPath: repo, SourceDir: "docs", OutputDir: out})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if res.OutputDir != out {
		t.Errorf("unexpected output dir %q", res.OutputDir)
	}
	if _, err := os.Stat(filepath.Join(out, "index.html")); err != nil {
		t.Fatalf("generator output missing: %v", err)
	}
}

func TestBuildFailureCapturesOutput(t *testing.T) {
	gen := fakeGenerator(t, "#!/bin/sh\necho 'Sphinx error: master file not found' >&2\nexit 2\n")
	repo := newRepo(t)

	b := NewCommandBuilder(appcfg.DocsConfig{Command: gen, Builder: "html", Timeout: time.Minute})
	_, err := b.Build(t.Context(), BuildRequest{RepoPath: repo, SourceDir: "docs", OutputDir: filepath.Join(t.TempDir(), "site")})
	if err == nil {
		t.Fatal("expected build failure")
	}

	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected CommandError, got %T: %v", err, err)
	}
	if !strings.Contains(cmdErr.Output, "master file not found") {
		t.Errorf("generator output not captured: %q", cmdErr.Output)
	}
}

func TestBuildMissingSourceDir(t *testing.T) {
	gen := fakeGenerator(t, "#!/bin/sh\nexit 0\n")
	repo := t.TempDir() // no docs/ subdir

	b := NewCommandBuilder(appcfg.DocsConfig{Command: gen, Builder: "html"})
	_, err := b.Build(t.Context(), BuildRequest{RepoPath: repo, SourceDir: "docs", OutputDir: filepath.Join(t.TempDir(), "site")})
	if err == nil {
		t.Fatal("expected error for missing source dir")
	}
}

func TestBuildTimeout(t *testing.T) {
	gen := fakeGenerator(t, "#!/bin/sh\nsleep 10\n")
	repo := newRepo(t)

	b := NewCommandBuilder(appcfg.DocsConfig{Command: gen, Builder: "html", Timeout: 100 * time.Millisecond})
	_, err := b.Build(t.Context(), BuildRequest{RepoPath: repo, SourceDir: "docs", OutputDir: filepath.Join(t.TempDir(), "site")})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout message, got %v", err)
	}
}

func TestInstallRequirementsSkippedWhenAbsent(t *testing.T) {
	gen := fakeGenerator(t, "#!/bin/sh\nfor last; do :; done\nmkdir -p \"$last\"\n")
	repo := newRepo(t)

	// Requirements configured but the file does not exist in the checkout.
	b := NewCommandBuilder(appcfg.DocsConfig{
		Command: gen, Builder: "html",
		Requirements: "docs/requirements.txt",
		Python:       "definitely-not-a-real-python",
	})
	if _, err := b.Build(t.Context(), BuildRequest{RepoPath: repo, SourceDir: "docs", OutputDir: filepath.Join(t.TempDir(), "site")}); err != nil {
		t.Fatalf("absent requirements file should not fail the build: %v", err)
	}
}
