package emit

import (
	"testing"

	"github.com/geraldstanje/spl/internal/ast"
	"github.com/geraldstanje/spl/internal/backend"
	"github.com/geraldstanje/spl/internal/backend/memir"
	"github.com/geraldstanje/spl/internal/binder"
	"github.com/geraldstanje/spl/internal/lambdalift"
	"github.com/geraldstanje/spl/internal/mono"
	"github.com/geraldstanje/spl/internal/source"
	"github.com/geraldstanje/spl/internal/typeinfer"
)

func runPipeline(t *testing.T, f *ast.File) {
	t.Helper()
	if res := binder.Bind(f, binder.Options{}); !res.OK {
		t.Fatalf("Bind failed unexpectedly")
	}
	if res := typeinfer.Infer(f, typeinfer.Options{}); !res.OK {
		t.Fatalf("Infer failed unexpectedly")
	}
	if res := lambdalift.Lift(f, lambdalift.Options{}); !res.OK {
		t.Fatalf("Lift failed unexpectedly")
	}
	if res := mono.Monomorphize(f, mono.Options{}); !res.OK {
		t.Fatalf("Monomorphize failed unexpectedly")
	}
}

// TestEmitAddOneProducesOneFunction runs `def addOne(x: Int32) -> Int32 =
// x + 1` through the full pipeline and checks memir recorded exactly one
// function whose body loads x and adds one.
func TestEmitAddOneProducesOneFunction(t *testing.T) {
	f := ast.NewFile("unit.spl")
	argReg := f.Exprs.NewRegisterFunArg(source.Span{}, "x", &ast.TypePlaceholder{Name: "Int32"})
	xRef := f.Exprs.NewVariable(source.Span{}, "x")
	one := f.Exprs.NewNumber(source.Span{}, 1)
	body := f.Exprs.NewBinary(source.Span{}, ast.OpAdd, xRef, one)
	fnID := f.DeclareFunc(ast.Func{
		Name:      "addOne",
		Params:    []string{"x"},
		ParamRegs: []ast.ExprID{argReg},
		RetTypePh: &ast.TypePlaceholder{Name: "Int32"},
		Body:      body,
		Purity:    ast.Pure,
	})
	f.TopLevel = append(f.TopLevel, fnID)

	runPipeline(t, f)

	b := memir.New()
	res := Emit(f, b, Options{})
	if !res.OK {
		t.Fatalf("expected Emit to succeed")
	}

	prog := b.Program()
	if len(prog.Functions) != 1 {
		t.Fatalf("expected exactly one emitted function, got %d", len(prog.Functions))
	}
	fn := prog.Functions[0]
	if fn.Name != "addOne" {
		t.Fatalf("expected function named addOne, got %q", fn.Name)
	}
	if len(fn.ParamSlots) != 1 {
		t.Fatalf("expected one param slot, got %d", len(fn.ParamSlots))
	}

	var sawAdd bool
	for _, instr := range fn.Body {
		if instr.Op == memir.OpBinAdd {
			sawAdd = true
		}
	}
	if !sawAdd {
		t.Fatalf("expected the recorded body to contain an add instruction, got %+v", fn.Body)
	}
}

// TestEmitGenericIdProducesTwoSpecializedFunctions runs `def id<T>(x: T) ->
// T { x }` called as id(1) and id("s") through the full pipeline and
// checks memir recorded two distinct functions, one per specialization.
func TestEmitGenericIdProducesTwoSpecializedFunctions(t *testing.T) {
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

	runPipeline(t, f)

	b := memir.New()
	res := Emit(f, b, Options{})
	if !res.OK {
		t.Fatalf("expected Emit to succeed")
	}

	prog := b.Program()
	var idFuncs, callInstrs int
	var mainFn *memir.Function
	for _, fn := range prog.Functions {
		if fn.Name == "id" {
			idFuncs++
		}
		if fn.Name == "main" {
			mainFn = fn
		}
	}
	if idFuncs != 2 {
		t.Fatalf("expected two emitted specializations of id, got %d", idFuncs)
	}
	if mainFn == nil {
		t.Fatalf("expected main to be emitted")
	}
	for _, instr := range mainFn.Body {
		if instr.Op == memir.OpCall {
			callInstrs++
		}
	}
	if callInstrs != 2 {
		t.Fatalf("expected main to record two calls, got %d", callInstrs)
	}

	idFn := f.Func(idID)
	for _, spec := range idFn.Specializations {
		if spec.Handle == uint32(backend.NoFunctionHandle) {
			t.Fatalf("expected every specialization to get a non-zero handle, got %+v", spec)
		}
	}
}
