// Package backend declares the Adapter boundary between the monomorphized
// program representation (internal/ast + internal/types) and a concrete
// code generator. internal/emit drives an Adapter by walking each reachable
// Specialization's body once, calling one Emit method per concrete Expr
// variant and threading the Values those calls return back down into their
// parent node's own Emit call — mirroring how an SSA builder's cursor
// accumulates instructions into whichever function prototype was opened
// most recently.
//
// The only shipped Adapter is internal/backend/memir, a deterministic
// in-memory instruction recorder. A textual-IR backend (LLVM, as the
// pipeline this is grounded on emits) is a second Adapter someone could add
// later without touching internal/emit.
package backend

import "github.com/geraldstanje/spl/internal/types"

// FunctionHandle opaquely identifies one function prototype an Adapter has
// accepted, whether a concrete top-level Func, one generic Specialization,
// or an Extern declaration. Zero (NoFunctionHandle) never names a real
// function.
type FunctionHandle uint32

// NoFunctionHandle is the zero value, reserved so ast.Specialization.Handle
// defaults meaningfully to "not yet emitted".
const NoFunctionHandle FunctionHandle = 0

// Value opaquely identifies one instruction's result within the function
// currently under construction. Values are scoped to a single
// EmitFunctionPrototype/EmitFunctionBody pair; an Adapter is free to reuse
// numbering across functions.
type Value uint32

// NoValue is the zero value, returned by void-producing operations.
const NoValue Value = 0

// Slot opaquely identifies one mutable local storage location: a function
// parameter or a `var`/`val` Register. AllocSlot and the parameter slots
// passed to EmitFunctionBody are the only ways to mint one.
type Slot uint32

// NoSlot is the zero value.
const NoSlot Slot = 0

// BinOp mirrors ast.BinaryOp's arithmetic/comparison member (OpAssign and
// OpArrayAccess are modeled by their own Emit methods instead, since they
// need slot/index operands rather than two plain Values).
type BinOp uint8

const (
	BinOpInvalid BinOp = iota
	BinOpAdd
	BinOpSubtract
	BinOpMultiply
	BinOpEq
	BinOpJoinString
)

// Adapter is the code-generation boundary one backend implements. Every
// Emit* method appends to whichever function EmitFunctionPrototype most
// recently opened and returns a Value or Slot a caller threads into later
// Emit calls; EmitFunctionBody closes out the current function.
type Adapter interface {
	// EmitFunctionPrototype opens a new function for construction and
	// returns its handle. Subsequent Emit* calls append instructions to
	// this function until the next EmitFunctionPrototype or
	// EmitExtern call.
	EmitFunctionPrototype(name string, argTypes []types.TypeID, retType types.TypeID) (FunctionHandle, error)

	// EmitFunctionBody finalizes h's body: paramSlots binds each declared
	// parameter to the Slot its body reads Loads from, and body is the
	// Value the function returns.
	EmitFunctionBody(h FunctionHandle, paramSlots []Slot, body Value) error

	// EmitExtern records a no-body external declaration and returns a
	// handle callable via EmitCall; it never accepts EmitFunctionBody.
	EmitExtern(name string, sig types.TypeID) (FunctionHandle, error)

	// AllocSlot reserves one mutable local storage location within the
	// function currently under construction.
	AllocSlot() Slot

	EmitConstInt(value int64, ty types.TypeID) Value
	EmitConstString(value string) Value
	EmitNot(operand Value) Value
	EmitBinOp(op BinOp, lhs, rhs Value, ty types.TypeID) Value

	// EmitLoad reads slot's current value; EmitStore writes v into slot
	// and returns v (so Assign's result — the assigned value — falls out
	// for free at the call site).
	EmitLoad(slot Slot, ty types.TypeID) Value
	EmitStore(slot Slot, v Value) Value

	// EmitBranch ties together a condition and both arms' already-built
	// Values (both arms are always emitted structurally, as real codegen
	// does; only the runtime, not this pass, decides which one runs) into
	// one merged result Value for the `if` expression.
	EmitBranch(cond, thenVal, elseVal Value, ty types.TypeID) Value

	// EmitLoop ties together a `while` loop's already-built condition and
	// body Values into one Void-typed result.
	EmitLoop(cond, body Value) Value

	EmitCall(h FunctionHandle, args []Value) Value

	// EmitArrayAlloc builds a fixed-size array value of size (a Value
	// producing an Int32) filled with defaultVal.
	EmitArrayAlloc(elemType types.TypeID, size, defaultVal Value) Value
	EmitArrayAccess(base, index Value, elemType types.TypeID) Value

	// EmitStructGEP reads one named field (by index — already resolved by
	// TypeInfer's MemberData.FieldIndex) out of a struct Value.
	EmitStructGEP(base Value, fieldIndex int, fieldType types.TypeID) Value
	EmitConstructor(structName string, fieldVals []Value, ty types.TypeID) Value

	// EmitSeq threads the side effect of a through to b's result, mirroring
	// ast.OpSeq's "evaluate both, keep the right" semantics.
	EmitSeq(a, b Value) Value
}
