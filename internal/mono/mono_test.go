package mono

import (
	"testing"

	"github.com/geraldstanje/spl/internal/ast"
	"github.com/geraldstanje/spl/internal/binder"
	"github.com/geraldstanje/spl/internal/source"
	"github.com/geraldstanje/spl/internal/typeinfer"
)

// buildGenericID constructs `def id<T>(x: T) -> T { x }`, called as
// `id(1)` and `id("s")` from main — a generic-specialization boundary
// case, expecting exactly two specializations of id.
func buildGenericID(t *testing.T) (*ast.File, ast.FuncID) {
	t.Helper()
	f := ast.NewFile("unit.spl")

	xArg := f.Exprs.NewRegisterFunArg(source.Span{}, "x", &ast.TypePlaceholder{Name: "T"})
	idBody := f.Exprs.NewVariable(source.Span{}, "x")
	idID := f.DeclareFunc(ast.Func{
		Name:        "id",
		Generics:    []string{"T"},
		Params:      []string{"x"},
		ParamRegs:   []ast.ExprID{xArg},
		ParamTypePh: []*ast.TypePlaceholder{{Name: "T"}},
		RetTypePh:   &ast.TypePlaceholder{Name: "T"},
		Body:        idBody,
		Purity:      ast.Pure,
	})
	f.TopLevel = append(f.TopLevel, idID)

	callInt := f.Exprs.NewCall(source.Span{}, "id", []ast.ExprID{f.Exprs.NewNumber(source.Span{}, 1)})
	callStr := f.Exprs.NewCall(source.Span{}, "id", []ast.ExprID{f.Exprs.NewString(source.Span{}, "s")})
	mainBody := f.Exprs.NewBinary(source.Span{}, ast.OpSeq, callInt, callStr)

	mainID := f.DeclareFunc(ast.Func{
		Name:      "main",
		RetTypePh: &ast.TypePlaceholder{Name: "String"},
		Body:      mainBody,
		Purity:    ast.Pure,
	})
	f.TopLevel = append(f.TopLevel, mainID)

	if res := binder.Bind(f, binder.Options{}); !res.OK {
		t.Fatalf("Bind failed unexpectedly")
	}
	if res := typeinfer.Infer(f, typeinfer.Options{}); !res.OK {
		t.Fatalf("Infer failed unexpectedly")
	}
	return f, idID
}

func TestMonomorphizeProducesTwoSpecializations(t *testing.T) {
	f, idID := buildGenericID(t)

	res := Monomorphize(f, Options{})
	if !res.OK {
		t.Fatalf("expected Monomorphize to succeed")
	}

	idFn := f.Func(idID)
	if len(idFn.Specializations) != 2 {
		t.Fatalf("expected 2 specializations of id, got %d: %+v", len(idFn.Specializations), idFn.Specializations)
	}
	if _, ok := idFn.Specializations["Int32"]; !ok {
		t.Fatalf("expected an Int32 specialization, got %+v", idFn.Specializations)
	}
	if _, ok := idFn.Specializations["String"]; !ok {
		t.Fatalf("expected a String specialization, got %+v", idFn.Specializations)
	}
}

// buildMainAndUnusedHelper constructs two top-level, non-generic functions
// — `main` and `unused` — where main never calls unused.
func buildMainAndUnusedHelper(t *testing.T) (*ast.File, ast.FuncID, ast.FuncID) {
	t.Helper()
	f := ast.NewFile("unit.spl")

	unusedBody := f.Exprs.NewNumber(source.Span{}, 7)
	unusedID := f.DeclareFunc(ast.Func{Name: "unused", RetTypePh: &ast.TypePlaceholder{Name: "Int32"}, Body: unusedBody, Purity: ast.Pure})
	f.TopLevel = append(f.TopLevel, unusedID)

	mainBody := f.Exprs.NewNumber(source.Span{}, 0)
	mainID := f.DeclareFunc(ast.Func{Name: "main", RetTypePh: &ast.TypePlaceholder{Name: "Int32"}, Body: mainBody, Purity: ast.Pure})
	f.TopLevel = append(f.TopLevel, mainID)

	if res := binder.Bind(f, binder.Options{}); !res.OK {
		t.Fatalf("Bind failed unexpectedly")
	}
	if res := typeinfer.Infer(f, typeinfer.Options{}); !res.OK {
		t.Fatalf("Infer failed unexpectedly")
	}
	return f, mainID, unusedID
}

func TestMonomorphizeWithoutDCEKeepsEveryTopLevelFunc(t *testing.T) {
	f, _, unusedID := buildMainAndUnusedHelper(t)

	res := Monomorphize(f, Options{})
	if !res.OK {
		t.Fatalf("expected Monomorphize to succeed")
	}
	if len(f.Func(unusedID).Specializations) != 1 {
		t.Fatalf("expected unused to still be specialized with DCE off, got %+v", f.Func(unusedID).Specializations)
	}
}

func TestMonomorphizeWithDCEDropsUnreachableTopLevelFunc(t *testing.T) {
	f, mainID, unusedID := buildMainAndUnusedHelper(t)

	res := Monomorphize(f, Options{EnableDCE: true})
	if !res.OK {
		t.Fatalf("expected Monomorphize to succeed")
	}
	if len(f.Func(mainID).Specializations) != 1 {
		t.Fatalf("expected main to still be specialized, got %+v", f.Func(mainID).Specializations)
	}
	if len(f.Func(unusedID).Specializations) != 0 {
		t.Fatalf("expected unused to be dropped by DCE, got %+v", f.Func(unusedID).Specializations)
	}
}

func TestMonomorphizeSingleMainEmitsOneFunction(t *testing.T) {
	f := ast.NewFile("unit.spl")
	zero := f.Exprs.NewNumber(source.Span{}, 0)
	mainID := f.DeclareFunc(ast.Func{Name: "main", RetTypePh: &ast.TypePlaceholder{Name: "Int32"}, Body: zero, Purity: ast.Pure})
	f.TopLevel = append(f.TopLevel, mainID)

	if res := binder.Bind(f, binder.Options{}); !res.OK {
		t.Fatalf("Bind failed unexpectedly")
	}
	if res := typeinfer.Infer(f, typeinfer.Options{}); !res.OK {
		t.Fatalf("Infer failed unexpectedly")
	}

	res := Monomorphize(f, Options{})
	if !res.OK {
		t.Fatalf("expected Monomorphize to succeed")
	}
	mainFn := f.Func(mainID)
	if len(mainFn.Specializations) != 1 {
		t.Fatalf("expected exactly one specialization of main, got %d", len(mainFn.Specializations))
	}
}
