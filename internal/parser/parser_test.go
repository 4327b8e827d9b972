package parser

import (
	"testing"

	"github.com/geraldstanje/spl/internal/ast"
	"github.com/geraldstanje/spl/internal/binder"
	"github.com/geraldstanje/spl/internal/diag"
	"github.com/geraldstanje/spl/internal/lambdalift"
	"github.com/geraldstanje/spl/internal/mono"
	"github.com/geraldstanje/spl/internal/source"
	"github.com/geraldstanje/spl/internal/typeinfer"
)

func parseSrc(t *testing.T, src string) (*ast.File, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	fid := fs.AddVirtual("unit.spl", []byte(src))
	bag := diag.NewBag(32)
	f, res := Parse(fs.Get(fid), Options{Reporter: diag.BagReporter{Bag: bag}})
	if !res.OK {
		t.Fatalf("parse failed: %+v", bag.Items())
	}
	return f, bag
}

func TestParseMainReturningConstant(t *testing.T) {
	f, _ := parseSrc(t, `def main() -> Int32 { 0 }`)
	if len(f.TopLevel) != 1 {
		t.Fatalf("expected one top-level func, got %d", len(f.TopLevel))
	}
	fn := f.Func(f.TopLevel[0])
	if fn.Name != "main" || fn.RetTypePh.Name != "Int32" {
		t.Fatalf("unexpected func: %+v", fn)
	}
	n := f.Exprs.Number(fn.Body)
	if n == nil || n.Value != 0 {
		t.Fatalf("expected body to be the literal 0, got %+v", n)
	}
}

func TestParseGenericIdentityCalledTwice(t *testing.T) {
	f, _ := parseSrc(t, `
def id<T>(x: T) -> T { x }
def main() -> String {
	id(1);
	id("s")
}`)
	if res := binder.Bind(f, binder.Options{}); !res.OK {
		t.Fatalf("bind failed")
	}
	if res := typeinfer.Infer(f, typeinfer.Options{}); !res.OK {
		t.Fatalf("infer failed")
	}
	if res := mono.Monomorphize(f, mono.Options{}); !res.OK {
		t.Fatalf("monomorphize failed")
	}

	var idFn *ast.Func
	for _, fid := range f.TopLevel {
		if fn := f.Func(fid); fn.Name == "id" {
			idFn = fn
		}
	}
	if idFn == nil {
		t.Fatalf("expected to find id")
	}
	if len(idFn.Specializations) != 2 {
		t.Fatalf("expected two specializations of id, got %d: %+v", len(idFn.Specializations), idFn.Specializations)
	}
}

func TestParseValBindingThenAssignIsRejectedByTypeInfer(t *testing.T) {
	f, _ := parseSrc(t, `def main() -> Int32 { val x = 1; x := 2 }`)
	if res := binder.Bind(f, binder.Options{}); !res.OK {
		t.Fatalf("bind failed")
	}
	bag := diag.NewBag(32)
	res := typeinfer.Infer(f, typeinfer.Options{Reporter: diag.BagReporter{Bag: bag}})
	if res.OK {
		t.Fatalf("expected assigning to an immutable val to fail TypeInfer")
	}
	if !bag.HasErrors() {
		t.Fatalf("expected a diagnostic for the immutable assignment")
	}
	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.SemAssignToImmutable {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected SemAssignToImmutable, got %+v", bag.Items())
	}
}

func TestParseVarBindingThenAssignIsAccepted(t *testing.T) {
	f, _ := parseSrc(t, `def main() -> Int32 { var x = 1; x := 2 }`)
	if res := binder.Bind(f, binder.Options{}); !res.OK {
		t.Fatalf("bind failed")
	}
	if res := typeinfer.Infer(f, typeinfer.Options{}); !res.OK {
		t.Fatalf("expected assigning to a mutable var to be accepted")
	}
}

func TestParseNestedDefIsLiftedToTopLevel(t *testing.T) {
	f, _ := parseSrc(t, `
def f(n: Int32) -> Int32 {
	def g() -> Int32 { n + 1 };
	g()
}`)
	if res := binder.Bind(f, binder.Options{}); !res.OK {
		t.Fatalf("bind failed")
	}
	if res := typeinfer.Infer(f, typeinfer.Options{}); !res.OK {
		t.Fatalf("infer failed")
	}
	if res := lambdalift.Lift(f, lambdalift.Options{}); !res.OK {
		t.Fatalf("lift failed")
	}

	var sawG bool
	for _, fid := range f.TopLevel {
		if f.Func(fid).Name == "g" {
			sawG = true
		}
	}
	if !sawG {
		t.Fatalf("expected g to be promoted to top level after lifting")
	}
}

func TestParseWhileLoopMutatesCounter(t *testing.T) {
	f, _ := parseSrc(t, `
def main() -> Int32 {
	var i = 0;
	while (i < 10) { i := i + 1 };
	i
}`)
	if res := binder.Bind(f, binder.Options{}); !res.OK {
		t.Fatalf("bind failed")
	}
	if res := typeinfer.Infer(f, typeinfer.Options{}); !res.OK {
		t.Fatalf("infer failed")
	}
}

func TestParseUnterminatedCallReportsSyntaxError(t *testing.T) {
	_, bag := func() (*ast.File, *diag.Bag) {
		fs := source.NewFileSet()
		fid := fs.AddVirtual("unit.spl", []byte(`def main() -> Int32 { id(1 }`))
		bag := diag.NewBag(32)
		f, _ := Parse(fs.Get(fid), Options{Reporter: diag.BagReporter{Bag: bag}})
		return f, bag
	}()
	if !bag.HasErrors() {
		t.Fatalf("expected a syntax error for the missing ')'")
	}
}
