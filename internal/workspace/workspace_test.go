package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEphemeralCreateAndCleanup(t *testing.T) {
	m := NewManager(t.TempDir())
	if err := m.Create(); err != nil {
		t.Fatalf("create: %v", err)
	}
	dir := m.Path()
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("workspace dir missing: %v", err)
	}

	if err := m.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatal("ephemeral workspace should be removed on cleanup")
	}
	if m.Path() != "" {
		t.Error("path should be reset after cleanup")
	}
}

func TestPersistentSurvivesCleanup(t *testing.T) {
	base := t.TempDir()
	m := NewPersistentManager(base, "working")
	if err := m.Create(); err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.Path() != filepath.Join(base, "working") {
		t.Errorf("unexpected persistent path %q", m.Path())
	}

	if err := m.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, err := os.Stat(m.Path()); err != nil {
		t.Fatal("persistent workspace should survive cleanup")
	}
}

func TestSubdirLayout(t *testing.T) {
	m := NewPersistentManager(t.TempDir(), "working")
	if err := m.Create(); err != nil {
		t.Fatalf("create: %v", err)
	}
	src := m.SourceDir("widget")
	out := m.OutputDir("widget")
	if filepath.Dir(filepath.Dir(src)) != m.Path() || filepath.Dir(filepath.Dir(out)) != m.Path() {
		t.Errorf("source/output dirs should live under the workspace: %s %s", src, out)
	}
	if src == out {
		t.Error("source and output dirs must differ")
	}
}
