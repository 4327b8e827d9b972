package binder

import (
	"testing"

	"github.com/geraldstanje/spl/internal/ast"
	"github.com/geraldstanje/spl/internal/diag"
	"github.com/geraldstanje/spl/internal/source"
)

// buildAddOne constructs `def addOne(x: Int32) -> Int32 = x + 1`.
func buildAddOne(f *ast.File) ast.FuncID {
	argReg := f.Exprs.NewRegisterFunArg(source.Span{}, "x", &ast.TypePlaceholder{Name: "Int32"})
	xRef := f.Exprs.NewVariable(source.Span{}, "x")
	one := f.Exprs.NewNumber(source.Span{}, 1)
	body := f.Exprs.NewBinary(source.Span{}, ast.OpAdd, xRef, one)

	id := f.DeclareFunc(ast.Func{
		Name:      "addOne",
		Params:    []string{"x"},
		ParamRegs: []ast.ExprID{argReg},
		RetTypePh: &ast.TypePlaceholder{Name: "Int32"},
		Body:      body,
		Purity:    ast.Pure,
	})
	f.TopLevel = append(f.TopLevel, id)
	return id
}

func TestBindResolvesParamReference(t *testing.T) {
	f := ast.NewFile("unit.spl")
	buildAddOne(f)

	res := Bind(f, Options{})
	if !res.OK {
		t.Fatalf("expected Bind to succeed")
	}

	fn := f.Func(f.TopLevel[0])
	bin := f.Exprs.Binary(fn.Body)
	v := f.Exprs.Variable(bin.Left)
	if v.Binding != fn.ParamRegs[0] {
		t.Fatalf("Variable x should bind to the param register, got %d want %d", v.Binding, fn.ParamRegs[0])
	}
}

func TestBindReportsUnboundName(t *testing.T) {
	f := ast.NewFile("unit.spl")
	stray := f.Exprs.NewVariable(source.Span{}, "ghost")
	id := f.DeclareFunc(ast.Func{Name: "main", Body: stray, Purity: ast.Pure})
	f.TopLevel = append(f.TopLevel, id)

	bag := diag.NewBag(16)
	res := Bind(f, Options{Reporter: diag.BagReporter{Bag: bag}})
	if res.OK {
		t.Fatalf("expected Bind to fail on an unbound name")
	}
	if bag.Len() != 1 {
		t.Fatalf("expected exactly one diagnostic, got %d", bag.Len())
	}
	if bag.Items()[0].Code != diag.SemUnboundName {
		t.Fatalf("expected SemUnboundName, got %v", bag.Items()[0].Code)
	}
}

func TestBindResolvesCallByName(t *testing.T) {
	f := ast.NewFile("unit.spl")
	addOneID := buildAddOne(f)

	call := f.Exprs.NewCall(source.Span{}, "addOne", []ast.ExprID{f.Exprs.NewNumber(source.Span{}, 41)})
	mainID := f.DeclareFunc(ast.Func{Name: "main", Body: call, Purity: ast.Pure})
	f.TopLevel = append(f.TopLevel, mainID)

	res := Bind(f, Options{})
	if !res.OK {
		t.Fatalf("expected Bind to succeed")
	}
	c := f.Exprs.Call(call)
	if c.Func != addOneID {
		t.Fatalf("Call should resolve to addOne's FuncID, got %d want %d", c.Func, addOneID)
	}
}

// TestBindResolvesNestedFuncCall exercises `def f(n) { def g() { n + 1 };
// g() }`, where g is declared inside f's body and must still be callable
// by name from a sibling statement in that same body.
func TestBindResolvesNestedFuncCall(t *testing.T) {
	f := ast.NewFile("unit.spl")

	nRef := f.Exprs.NewVariable(source.Span{}, "n")
	one := f.Exprs.NewNumber(source.Span{}, 1)
	gBody := f.Exprs.NewBinary(source.Span{}, ast.OpAdd, nRef, one)
	gID := f.DeclareFunc(ast.Func{
		Name:      "g",
		RetTypePh: &ast.TypePlaceholder{Name: "Int32"},
		Body:      gBody,
		Purity:    ast.Pure,
	})
	gLitSite := f.Exprs.NewFuncLit(source.Span{}, gID)

	gCall := f.Exprs.NewCall(source.Span{}, "g", nil)
	fBody := f.Exprs.NewBinary(source.Span{}, ast.OpSeq, gLitSite, gCall)

	nArg := f.Exprs.NewRegisterFunArg(source.Span{}, "n", &ast.TypePlaceholder{Name: "Int32"})
	fID := f.DeclareFunc(ast.Func{
		Name:      "f",
		Params:    []string{"n"},
		ParamRegs: []ast.ExprID{nArg},
		RetTypePh: &ast.TypePlaceholder{Name: "Int32"},
		Body:      fBody,
		Purity:    ast.Pure,
	})
	f.TopLevel = append(f.TopLevel, fID)

	res := Bind(f, Options{})
	if !res.OK {
		t.Fatalf("expected Bind to succeed")
	}

	seq := f.Exprs.Binary(fBody)
	c := f.Exprs.Call(seq.Right)
	if c.Func != gID {
		t.Fatalf("g() should resolve to g's FuncID, got %d want %d", c.Func, gID)
	}

	gFn := f.Func(gID)
	gBin := f.Exprs.Binary(gFn.Body)
	v := f.Exprs.Variable(gBin.Left)
	if v.Binding != nArg {
		t.Fatalf("n inside g should bind to f's param register, got %d want %d", v.Binding, nArg)
	}
}
