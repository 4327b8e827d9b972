package driver

import (
	"path/filepath"
	"testing"

	"github.com/geraldstanje/spl/internal/backend/memir"
	"github.com/geraldstanje/spl/internal/source"
)

func TestDiskCacheRoundTripsAProgram(t *testing.T) {
	cache, err := OpenDiskCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("failed to open disk cache: %v", err)
	}

	b := memir.New()
	h, err := b.EmitFunctionPrototype("main", nil, 0)
	if err != nil {
		t.Fatalf("unexpected EmitFunctionPrototype error: %v", err)
	}
	v := b.EmitConstInt(0, 0)
	if err := b.EmitFunctionBody(h, nil, v); err != nil {
		t.Fatalf("unexpected EmitFunctionBody error: %v", err)
	}

	hash := [32]byte{1, 2, 3}
	if err := cache.Put(hash, &DiskPayload{Schema: diskCacheSchemaVersion, Path: "unit.spl", ContentHash: hash, Program: b.Program()}); err != nil {
		t.Fatalf("unexpected Put error: %v", err)
	}

	payload, hit, err := cache.Get(hash)
	if err != nil {
		t.Fatalf("unexpected Get error: %v", err)
	}
	if !hit {
		t.Fatalf("expected a cache hit after Put")
	}
	if len(payload.Program.Functions) != 1 || payload.Program.Functions[0].Name != "main" {
		t.Fatalf("expected the round-tripped program to still have main, got %+v", payload.Program.Functions)
	}
	if _, ok := payload.Program.ByHandle(h); !ok {
		t.Fatalf("expected Reindex to have run so ByHandle resolves after decode")
	}
}

func TestDiskCacheMissForUnknownHash(t *testing.T) {
	cache, err := OpenDiskCache(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open disk cache: %v", err)
	}

	_, hit, err := cache.Get([32]byte{9, 9, 9})
	if err != nil {
		t.Fatalf("unexpected Get error: %v", err)
	}
	if hit {
		t.Fatalf("expected a miss for a hash never Put")
	}
}

func TestCompileUnitReusesCacheOnSecondCompile(t *testing.T) {
	cache, err := OpenDiskCache(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open disk cache: %v", err)
	}

	fs := source.NewFileSet()
	fid := fs.AddVirtual("unit.spl", []byte(`def main() -> Int32 { 0 }`))
	file := fs.Get(fid)

	first := CompileUnit(file, memir.New(), Options{Cache: cache})
	if !first.OK {
		t.Fatalf("expected first compile to succeed, diagnostics: %+v", first.Bag.Items())
	}

	second := CompileUnit(file, memir.New(), Options{Cache: cache})
	if !second.OK {
		t.Fatalf("expected cache-hit compile to report success")
	}
	if second.File != nil {
		t.Fatalf("expected a cache hit to skip re-parsing, got a non-nil File")
	}
}
