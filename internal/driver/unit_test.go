package driver

import (
	"testing"

	"github.com/geraldstanje/spl/internal/backend/memir"
	"github.com/geraldstanje/spl/internal/source"
)

func TestCompileUnitEmitsMainThroughMemir(t *testing.T) {
	fs := source.NewFileSet()
	fid := fs.AddVirtual("unit.spl", []byte(`def main() -> Int32 { 0 }`))

	b := memir.New()
	res := CompileUnit(fs.Get(fid), b, Options{})
	if !res.OK {
		t.Fatalf("expected CompileUnit to succeed, diagnostics: %+v", res.Bag.Items())
	}

	prog := b.Program()
	var sawMain bool
	for _, fn := range prog.Functions {
		if fn.Name == "main" {
			sawMain = true
		}
	}
	if !sawMain {
		t.Fatalf("expected memir to have recorded main, got %+v", prog.Functions)
	}
}

func TestCompileUnitStopsAtParseError(t *testing.T) {
	fs := source.NewFileSet()
	fid := fs.AddVirtual("unit.spl", []byte(`def main() -> Int32 { id(1 }`))

	b := memir.New()
	res := CompileUnit(fs.Get(fid), b, Options{})
	if res.OK {
		t.Fatalf("expected CompileUnit to fail on a syntax error")
	}
	if !res.Bag.HasErrors() {
		t.Fatalf("expected diagnostics to record the syntax error")
	}
}

func TestCompileUnitEnableDCEDropsUnusedHelper(t *testing.T) {
	fs := source.NewFileSet()
	fid := fs.AddVirtual("unit.spl", []byte(`
def helper() -> Int32 { 7 }
def main() -> Int32 { 0 }`))

	b := memir.New()
	res := CompileUnit(fs.Get(fid), b, Options{EnableDCE: true})
	if !res.OK {
		t.Fatalf("expected CompileUnit to succeed, diagnostics: %+v", res.Bag.Items())
	}

	prog := b.Program()
	for _, fn := range prog.Functions {
		if fn.Name == "helper" {
			t.Fatalf("expected helper to be dropped by DCE, but it was emitted")
		}
	}
}
