package ast

import (
	"testing"

	"github.com/geraldstanje/spl/internal/source"
	"github.com/geraldstanje/spl/internal/types"
)

func TestArenaAllocateAndGet(t *testing.T) {
	a := NewArena[int](0)
	if a.Get(1) != nil {
		t.Fatalf("Get on empty arena should be nil")
	}
	id := a.Allocate(42)
	if id != 1 {
		t.Fatalf("first Allocate should return 1, got %d", id)
	}
	if got := a.Get(id); got == nil || *got != 42 {
		t.Fatalf("Get(%d) = %v, want 42", id, got)
	}
	if a.Get(0) != nil {
		t.Fatalf("Get(0) must be nil, NoID sentinel")
	}
}

func TestExprsRoundTrip(t *testing.T) {
	e := NewExprs()
	n := e.NewNumber(source.Span{}, 7)
	if got := e.Number(n); got == nil || got.Value != 7 {
		t.Fatalf("Number(%d) = %v, want 7", n, got)
	}
	if e.String(n) != nil {
		t.Fatalf("String accessor must reject a Number id")
	}

	v := e.NewVariable(source.Span{}, "x")
	bind := e.NewBinding(source.Span{}, "x", false, n, v)
	bd := e.Binding(bind)
	if bd == nil || bd.Name != "x" || bd.Init != n || bd.Body != v {
		t.Fatalf("Binding round-trip mismatch: %+v", bd)
	}
}

func TestReplaceWithClosurePreservesID(t *testing.T) {
	e := NewExprs()
	lit := e.NewFuncLit(source.Span{}, FuncID(1))
	captured := []ExprID{e.NewVariable(source.Span{}, "y")}

	e.ReplaceWithClosure(lit, FuncID(1), captured)

	ex := e.Get(lit)
	if ex.Kind != ExprClosure {
		t.Fatalf("expected ExprClosure after replacement, got %v", ex.Kind)
	}
	cl := e.Closure(lit)
	if cl == nil || cl.Func != FuncID(1) || len(cl.Captured) != 1 {
		t.Fatalf("Closure payload mismatch: %+v", cl)
	}
	// Any reference captured before the rewrite (e.g. a Call whose Closure
	// field stores this same ExprID) must still resolve correctly — the
	// whole point of rewriting in place rather than allocating a new node.
	if e.FuncLit(lit) != NoFuncID {
		t.Fatalf("FuncLit accessor must reject a now-Closure id")
	}
}

func TestFileDeclareFunc(t *testing.T) {
	f := NewFile("unit.spl")
	id := f.DeclareFunc(Func{Name: "main", Purity: Pure})
	fn := f.Func(id)
	if fn == nil || fn.Name != "main" {
		t.Fatalf("DeclareFunc/Func round trip failed: %+v", fn)
	}
	if fn.IsGeneric() {
		t.Fatalf("non-generic Func reported IsGeneric() = true")
	}
}

func TestTypePlaceholderResolve(t *testing.T) {
	f := NewFile("unit.spl")
	i32 := &TypePlaceholder{Name: "Int32"}
	st, err := i32.Resolve(f.Interner, nil)
	if err != nil {
		t.Fatalf("resolving Int32 failed: %v", err)
	}
	id, ok := st.(types.Concrete)
	_ = id
	if !ok {
		t.Fatalf("Int32 should resolve to Concrete, got %T", st)
	}

	arr := &TypePlaceholder{Name: "Array", Params: []*TypePlaceholder{{Name: "Int32"}}}
	arrST, err := arr.Resolve(f.Interner, nil)
	if err != nil {
		t.Fatalf("resolving Array<Int32> failed: %v", err)
	}
	arrID, ok := types.IsConcrete(arrST)
	if !ok {
		t.Fatalf("Array<Int32> should resolve to Concrete")
	}
	if got := f.Interner.Dump(arrID); got != "Array<Int32>" {
		t.Fatalf("Dump(Array<Int32>) = %q", got)
	}

	generic := &TypePlaceholder{Name: "T"}
	if _, err := generic.Resolve(f.Interner, nil); err == nil {
		t.Fatalf("unbound generic name T should fail to resolve without an env entry")
	}
}
