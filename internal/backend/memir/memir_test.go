package memir

import (
	"testing"

	"github.com/geraldstanje/spl/internal/backend"
	"github.com/geraldstanje/spl/internal/types"
)

// TestEmitAddOneRecordsFlatInstructionList exercises addOne(x) = x + 1: one
// prototype, a load of the parameter slot, a const, an add, and a body
// result — the full EmitFunctionPrototype/EmitFunctionBody contract.
func TestEmitAddOneRecordsFlatInstructionList(t *testing.T) {
	in := types.NewInterner()
	b := New()

	h, err := b.EmitFunctionPrototype("addOne", []types.TypeID{in.Builtins().Int32}, in.Builtins().Int32)
	if err != nil {
		t.Fatalf("EmitFunctionPrototype: %v", err)
	}
	slot := b.AllocSlot()
	loaded := b.EmitLoad(slot, in.Builtins().Int32)
	one := b.EmitConstInt(1, in.Builtins().Int32)
	sum := b.EmitBinOp(backend.BinOpAdd, loaded, one, in.Builtins().Int32)
	if err := b.EmitFunctionBody(h, []backend.Slot{slot}, sum); err != nil {
		t.Fatalf("EmitFunctionBody: %v", err)
	}

	fn, ok := b.Program().ByHandle(h)
	if !ok {
		t.Fatalf("expected addOne to be recorded under its handle")
	}
	if fn.Result != sum {
		t.Fatalf("expected fn.Result %d, got %d", sum, fn.Result)
	}
	if len(fn.ParamSlots) != 1 || fn.ParamSlots[0] != slot {
		t.Fatalf("expected one param slot %d, got %+v", slot, fn.ParamSlots)
	}

	var sawLoad, sawAdd bool
	for _, instr := range fn.Body {
		switch instr.Op {
		case OpLoad:
			sawLoad = true
		case OpBinAdd:
			sawAdd = true
		}
	}
	if !sawLoad || !sawAdd {
		t.Fatalf("expected the recorded body to contain a load and an add, got %+v", fn.Body)
	}
}

func TestEmitExternNeverAcceptsABody(t *testing.T) {
	in := types.NewInterner()
	b := New()

	sig := in.RegisterFn([]types.TypeID{in.Builtins().String}, in.Builtins().Void)
	h, err := b.EmitExtern("print", sig)
	if err != nil {
		t.Fatalf("EmitExtern: %v", err)
	}
	if err := b.EmitFunctionBody(h, nil, backend.NoValue); err == nil {
		t.Fatalf("expected EmitFunctionBody on an extern to fail")
	}
}

func TestEmitBranchRecordsBothArms(t *testing.T) {
	in := types.NewInterner()
	b := New()

	h, err := b.EmitFunctionPrototype("pick", nil, in.Builtins().Int32)
	if err != nil {
		t.Fatalf("EmitFunctionPrototype: %v", err)
	}
	cond := b.EmitConstInt(1, in.Builtins().Bool)
	thenVal := b.EmitConstInt(1, in.Builtins().Int32)
	elseVal := b.EmitConstInt(0, in.Builtins().Int32)
	result := b.EmitBranch(cond, thenVal, elseVal, in.Builtins().Int32)
	if err := b.EmitFunctionBody(h, nil, result); err != nil {
		t.Fatalf("EmitFunctionBody: %v", err)
	}

	fn, _ := b.Program().ByHandle(h)
	var branch *Instruction
	for i := range fn.Body {
		if fn.Body[i].Op == OpBranch {
			branch = &fn.Body[i]
		}
	}
	if branch == nil {
		t.Fatalf("expected a recorded branch instruction")
	}
	if len(branch.Operands) != 3 || branch.Operands[1] != thenVal || branch.Operands[2] != elseVal {
		t.Fatalf("expected branch operands [cond, then, else], got %+v", branch.Operands)
	}
}
