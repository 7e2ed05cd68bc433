package site

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		full := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestValidateAcceptsRenderedTree(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"index.html":         "<html><body><a href=\"api.html\">api</a></body></html>",
		"api.html":           "<html><body>api</body></html>",
		"_static/styles.css": "body {}",
	})

	report, err := Validate(dir)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if report.Pages != 2 {
		t.Errorf("pages = %d, want 2", report.Pages)
	}
	if report.Assets != 1 {
		t.Errorf("assets = %d, want 1", report.Assets)
	}
	if report.TotalBytes == 0 {
		t.Error("total bytes should be non-zero")
	}
	if len(report.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", report.Warnings)
	}
}

func TestValidateRejectsEmptyTree(t *testing.T) {
	_, err := Validate(t.TempDir())
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestValidateRejectsMissingIndex(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"api.html": "<html><body>api</body></html>",
	})
	_, err := Validate(dir)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !strings.Contains(verr.Reason, "index.html") {
		t.Errorf("unexpected reason %q", verr.Reason)
	}
}

func TestValidateSkipsDoctrees(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"index.html":                   "<html><body>home</body></html>",
		".doctrees/environment.pickle": "binary",
	})
	report, err := Validate(dir)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if report.Assets != 0 {
		t.Errorf("doctrees content should be skipped, assets = %d", report.Assets)
	}
}

func TestAuditLinksFlagsBrokenTargets(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"index.html": `<html><body>
			<a href="api.html">ok</a>
			<a href="missing.html">broken</a>
			<a href="https://example.com/x">external</a>
			<a href="#section">fragment</a>
			<img src="_static/logo.png">
		</body></html>`,
		"api.html": "<html><body>api</body></html>",
	})

	warnings := AuditLinks(dir)
	if len(warnings) != 2 {
		t.Fatalf("warnings = %v, want 2 entries", warnings)
	}
	joined := strings.Join(warnings, "\n")
	if !strings.Contains(joined, "missing.html") || !strings.Contains(joined, "_static/logo.png") {
		t.Errorf("unexpected warnings: %v", warnings)
	}
}

func TestAuditLinksResolvesDirectoryIndex(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"index.html":       `<html><body><a href="guide/">guide</a></body></html>`,
		"guide/index.html": "<html><body>guide</body></html>",
	})
	if warnings := AuditLinks(dir); len(warnings) != 0 {
		t.Errorf("directory link with index should resolve: %v", warnings)
	}
}
