package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/geraldstanje/spl/internal/backend"
	"github.com/geraldstanje/spl/internal/backend/memir"
)

func writeUnit(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func TestCompileDirCompilesEveryUnitIndependently(t *testing.T) {
	dir := t.TempDir()
	writeUnit(t, dir, "a.spl", `def main() -> Int32 { 0 }`)
	writeUnit(t, dir, "b.spl", `def main() -> Int32 { 1 }`)
	writeUnit(t, dir, "ignore.txt", `not spl`)

	var adapters []*memir.Backend
	newAdapter := func() backend.Adapter {
		b := memir.New()
		adapters = append(adapters, b)
		return b
	}

	_, results, err := CompileDir(context.Background(), dir, newAdapter, Options{})
	if err != nil {
		t.Fatalf("unexpected CompileDir error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results (ignoring ignore.txt), got %d: %+v", len(results), results)
	}
	for _, r := range results {
		if !r.OK {
			t.Fatalf("expected unit %s to compile, diagnostics: %+v", r.Path, r.Bag.Items())
		}
	}
}

func TestCompileDirEmptyDirReturnsNoResults(t *testing.T) {
	dir := t.TempDir()

	_, results, err := CompileDir(context.Background(), dir, func() backend.Adapter { return memir.New() }, Options{})
	if err != nil {
		t.Fatalf("unexpected CompileDir error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results for an empty directory, got %+v", results)
	}
}

func TestCompileDirReportsLoadErrorsPerFile(t *testing.T) {
	dir := t.TempDir()
	writeUnit(t, dir, "ok.spl", `def main() -> Int32 { 0 }`)

	// A dangling symlink named *.spl is listed but cannot be read;
	// fileSet.Load should fail for it and CompileDir should turn that
	// into a per-path diagnostic rather than aborting the whole run.
	if err := os.Symlink(filepath.Join(dir, "missing"), filepath.Join(dir, "broken.spl")); err != nil {
		t.Fatalf("failed to create broken.spl symlink: %v", err)
	}

	_, results, err := CompileDir(context.Background(), dir, func() backend.Adapter { return memir.New() }, Options{})
	if err != nil {
		t.Fatalf("unexpected CompileDir error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d: %+v", len(results), results)
	}

	var sawOK, sawFailed bool
	for _, r := range results {
		if r.Path == filepath.Join(dir, "ok.spl") && r.OK {
			sawOK = true
		}
		if r.Path == filepath.Join(dir, "broken.spl") && !r.OK && r.Bag.HasErrors() {
			sawFailed = true
		}
	}
	if !sawOK {
		t.Fatalf("expected ok.spl to compile successfully, got %+v", results)
	}
	if !sawFailed {
		t.Fatalf("expected broken.spl to report a load-error diagnostic, got %+v", results)
	}
}
