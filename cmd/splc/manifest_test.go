package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadProjectManifest(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "unit.spl"), []byte(`def main() -> Int32 { 0 }`), 0o600); err != nil {
		t.Fatalf("write unit.spl: %v", err)
	}
	path := filepath.Join(root, "spl.toml")
	data := `[package]
name = "demo"

[build]
entry = "unit.spl"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write spl.toml: %v", err)
	}

	manifest, found, err := loadProjectManifest(root)
	if err != nil {
		t.Fatalf("loadProjectManifest: %v", err)
	}
	if !found {
		t.Fatalf("expected spl.toml to be found")
	}
	if manifest.Config.Package.Name != "demo" {
		t.Fatalf("Package.Name = %q, want demo", manifest.Config.Package.Name)
	}

	entry, err := resolveEntryPath(manifest)
	if err != nil {
		t.Fatalf("resolveEntryPath: %v", err)
	}
	if filepath.Base(entry) != "unit.spl" {
		t.Fatalf("resolveEntryPath = %q, want unit.spl", entry)
	}
}

func TestLoadProjectManifestMissing(t *testing.T) {
	root := t.TempDir()
	_, found, err := loadProjectManifest(root)
	if err != nil {
		t.Fatalf("loadProjectManifest: %v", err)
	}
	if found {
		t.Fatalf("expected no spl.toml to be found")
	}
}

func TestLoadProjectConfigRejectsMissingEntry(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "spl.toml")
	data := `[package]
name = "demo"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write spl.toml: %v", err)
	}
	if _, err := loadProjectConfig(path); err == nil {
		t.Fatalf("expected an error for a manifest with no [build].entry")
	}
}
