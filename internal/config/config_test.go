package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "docpages.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
source:
  url: https://github.com/example/widget.git
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Source.Branch != "master" {
		t.Errorf("expected default branch master, got %q", cfg.Source.Branch)
	}
	if cfg.Source.Path != "docs" {
		t.Errorf("expected default docs path, got %q", cfg.Source.Path)
	}
	if cfg.Source.Name != "widget" {
		t.Errorf("expected name derived from URL, got %q", cfg.Source.Name)
	}
	if cfg.Docs.Command != "sphinx-build" || cfg.Docs.Builder != "html" {
		t.Errorf("unexpected docs defaults: %+v", cfg.Docs)
	}
	if cfg.Docs.Timeout != 15*time.Minute {
		t.Errorf("expected default timeout, got %v", cfg.Docs.Timeout)
	}
	if cfg.Pages.Branch != "gh-pages" {
		t.Errorf("expected default pages branch, got %q", cfg.Pages.Branch)
	}
	if cfg.Pages.RemoteURL != cfg.Source.URL {
		t.Errorf("pages remote should default to source URL, got %q", cfg.Pages.RemoteURL)
	}
	if !cfg.Pages.NoJekyllEnabled() {
		t.Error("nojekyll should default to enabled")
	}
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("DOCPAGES_TEST_TOKEN", "sekrit")
	path := writeConfig(t, `
source:
  url: https://github.com/example/widget.git
pages:
  auth:
    type: token
    token: ${DOCPAGES_TEST_TOKEN}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pages.Auth == nil || cfg.Pages.Auth.Token != "sekrit" {
		t.Fatalf("expected token expanded from env, got %+v", cfg.Pages.Auth)
	}
}

func TestLoadRunnerEnvironmentSynthesizesPagesAuth(t *testing.T) {
	t.Setenv("GITHUB_REPOSITORY", "example/widget")
	t.Setenv("GITHUB_ACTOR", "octocat")
	t.Setenv("GITHUB_TOKEN", "tok123")

	path := writeConfig(t, `
source:
  branch: master
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Source.URL != "https://github.com/example/widget.git" {
		t.Errorf("expected source URL from GITHUB_REPOSITORY, got %q", cfg.Source.URL)
	}
	if cfg.Pages.Auth == nil || cfg.Pages.Auth.Type != AuthTypeToken || cfg.Pages.Auth.Token != "tok123" {
		t.Fatalf("expected token auth from GITHUB_TOKEN, got %+v", cfg.Pages.Auth)
	}
	if cfg.Pages.Auth.Username != "octocat" {
		t.Errorf("expected actor as auth username, got %q", cfg.Pages.Auth.Username)
	}
	if cfg.Pages.AuthorName != "octocat" {
		t.Errorf("expected actor as commit author, got %q", cfg.Pages.AuthorName)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestInitRefusesOverwrite(t *testing.T) {
	path := writeConfig(t, "source:\n  url: https://example.com/x.git\n")
	if err := Init(path, false); err == nil {
		t.Fatal("expected error without --force")
	}
	if err := Init(path, true); err != nil {
		t.Fatalf("force init: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("example config should load: %v", err)
	}
	if cfg.Pages.Branch != "gh-pages" {
		t.Errorf("unexpected example pages branch %q", cfg.Pages.Branch)
	}
}
