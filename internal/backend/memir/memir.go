// Package memir is the one concrete backend.Adapter this tree ships: a
// deterministic in-memory recorder that appends a flat, ordered
// Instruction list per function instead of emitting a textual IR, using a
// prototype/body/builder-cursor shape with no cgo or LLVM dependency:
// memir exists to make internal/emit's driving logic exercisable and
// inspectable in tests, not to produce runnable machine code.
package memir

import (
	"fmt"

	"github.com/geraldstanje/spl/internal/backend"
	"github.com/geraldstanje/spl/internal/types"
)

// Op tags one recorded instruction.
type Op uint8

const (
	OpInvalid Op = iota
	OpAllocSlot
	OpConstInt
	OpConstString
	OpNot
	OpBinAdd
	OpBinSubtract
	OpBinMultiply
	OpBinEq
	OpBinJoinString
	OpLoad
	OpStore
	OpBranch
	OpLoop
	OpCall
	OpArrayAlloc
	OpArrayAccess
	OpStructGEP
	OpConstructor
	OpSeq
)

func (op Op) String() string {
	switch op {
	case OpAllocSlot:
		return "alloc_slot"
	case OpConstInt:
		return "const_int"
	case OpConstString:
		return "const_string"
	case OpNot:
		return "not"
	case OpBinAdd:
		return "add"
	case OpBinSubtract:
		return "sub"
	case OpBinMultiply:
		return "mul"
	case OpBinEq:
		return "eq"
	case OpBinJoinString:
		return "join_string"
	case OpLoad:
		return "load"
	case OpStore:
		return "store"
	case OpBranch:
		return "branch"
	case OpLoop:
		return "loop"
	case OpCall:
		return "call"
	case OpArrayAlloc:
		return "array_alloc"
	case OpArrayAccess:
		return "array_access"
	case OpStructGEP:
		return "struct_gep"
	case OpConstructor:
		return "constructor"
	case OpSeq:
		return "seq"
	default:
		return "invalid"
	}
}

// Instruction is one recorded operation within a Function's Body, in
// emission order. Operands are indices into that same Function's Values
// (zero meaning "unused" for this Op), so a Function's Body is a
// self-contained, serializable record of how every Value in it was built.
type Instruction struct {
	Op       Op
	Result   backend.Value
	Operands []backend.Value
	Slot     backend.Slot
	Callee   backend.FunctionHandle
	Type     types.TypeID
	IntConst int64
	StrConst string
	Name     string // struct/field name, where relevant
	Index    int    // field index, for OpStructGEP
}

// Function is one emitted function: a prototype plus, once
// EmitFunctionBody runs, its recorded instruction list and result Value.
type Function struct {
	Handle     backend.FunctionHandle
	Name       string
	ArgTypes   []types.TypeID
	RetType    types.TypeID
	IsExtern   bool
	ParamSlots []backend.Slot
	Body       []Instruction
	Result     backend.Value
}

// Program is the complete recorded module: every function emitted across
// one backend.Adapter's lifetime, in emission order.
type Program struct {
	Functions []*Function
	byHandle  map[backend.FunctionHandle]*Function
}

// ByHandle looks up a previously emitted function by its handle.
func (p *Program) ByHandle(h backend.FunctionHandle) (*Function, bool) {
	fn, ok := p.byHandle[h]
	return fn, ok
}

// Reindex rebuilds byHandle from Functions. A Program decoded from the
// driver's build cache carries Functions but not the unexported index, so
// a cache hit calls this once before the Program is handed back to a
// caller expecting ByHandle to work.
func (p *Program) Reindex() {
	p.byHandle = make(map[backend.FunctionHandle]*Function, len(p.Functions))
	for _, fn := range p.Functions {
		p.byHandle[fn.Handle] = fn
	}
}

// Backend implements backend.Adapter over an in-memory Program. It is not
// safe for concurrent use: internal/emit drives one Backend serially,
// finishing one function's body before opening the next.
type Backend struct {
	prog       *Program
	nextHandle uint32
	nextValue  uint32
	nextSlot   uint32
	current    *Function
}

// New returns an empty Backend ready to accept EmitFunctionPrototype calls.
func New() *Backend {
	return &Backend{
		prog: &Program{byHandle: make(map[backend.FunctionHandle]*Function)},
	}
}

// Program returns the module recorded so far.
func (b *Backend) Program() *Program { return b.prog }

// LoadProgram replaces whatever this Backend has recorded with prog,
// re-deriving nextHandle/nextValue/nextSlot from it so any further
// EmitFunctionPrototype calls mint handles past prog's own — the shape a
// build-cache hit needs: hand back a previously emitted Program without
// re-running Parse through Monomorphize for this file.
func (b *Backend) LoadProgram(prog *Program) {
	if prog.byHandle == nil {
		prog.Reindex()
	}
	b.prog = prog
	for _, fn := range prog.Functions {
		if uint32(fn.Handle) > b.nextHandle {
			b.nextHandle = uint32(fn.Handle)
		}
		for _, instr := range fn.Body {
			if uint32(instr.Result) > b.nextValue {
				b.nextValue = uint32(instr.Result)
			}
			if uint32(instr.Slot) > b.nextSlot {
				b.nextSlot = uint32(instr.Slot)
			}
		}
		for _, slot := range fn.ParamSlots {
			if uint32(slot) > b.nextSlot {
				b.nextSlot = uint32(slot)
			}
		}
	}
}

func (b *Backend) freshHandle() backend.FunctionHandle {
	b.nextHandle++
	return backend.FunctionHandle(b.nextHandle)
}

func (b *Backend) freshValue() backend.Value {
	b.nextValue++
	return backend.Value(b.nextValue)
}

func (b *Backend) emit(instr Instruction) backend.Value {
	if b.current == nil {
		panic("memir: Emit called with no function prototype open")
	}
	instr.Result = b.freshValue()
	b.current.Body = append(b.current.Body, instr)
	return instr.Result
}

// EmitFunctionPrototype implements backend.Adapter.
func (b *Backend) EmitFunctionPrototype(name string, argTypes []types.TypeID, retType types.TypeID) (backend.FunctionHandle, error) {
	h := b.freshHandle()
	fn := &Function{
		Handle:   h,
		Name:     name,
		ArgTypes: append([]types.TypeID(nil), argTypes...),
		RetType:  retType,
	}
	b.prog.Functions = append(b.prog.Functions, fn)
	b.prog.byHandle[h] = fn
	b.current = fn
	return h, nil
}

// EmitFunctionBody implements backend.Adapter.
func (b *Backend) EmitFunctionBody(h backend.FunctionHandle, paramSlots []backend.Slot, body backend.Value) error {
	fn, ok := b.prog.byHandle[h]
	if !ok {
		return fmt.Errorf("memir: EmitFunctionBody on unknown handle %d", h)
	}
	if fn.IsExtern {
		return fmt.Errorf("memir: EmitFunctionBody on extern %q", fn.Name)
	}
	fn.ParamSlots = append([]backend.Slot(nil), paramSlots...)
	fn.Result = body
	return nil
}

// EmitExtern implements backend.Adapter.
func (b *Backend) EmitExtern(name string, sig types.TypeID) (backend.FunctionHandle, error) {
	h := b.freshHandle()
	fn := &Function{Handle: h, Name: name, RetType: sig, IsExtern: true}
	b.prog.Functions = append(b.prog.Functions, fn)
	b.prog.byHandle[h] = fn
	return h, nil
}

// AllocSlot implements backend.Adapter.
func (b *Backend) AllocSlot() backend.Slot {
	b.nextSlot++
	slot := backend.Slot(b.nextSlot)
	if b.current != nil {
		b.current.Body = append(b.current.Body, Instruction{Op: OpAllocSlot, Slot: slot})
	}
	return slot
}

// EmitConstInt implements backend.Adapter.
func (b *Backend) EmitConstInt(value int64, ty types.TypeID) backend.Value {
	return b.emit(Instruction{Op: OpConstInt, IntConst: value, Type: ty})
}

// EmitConstString implements backend.Adapter.
func (b *Backend) EmitConstString(value string) backend.Value {
	return b.emit(Instruction{Op: OpConstString, StrConst: value})
}

// EmitNot implements backend.Adapter.
func (b *Backend) EmitNot(operand backend.Value) backend.Value {
	return b.emit(Instruction{Op: OpNot, Operands: []backend.Value{operand}})
}

// EmitBinOp implements backend.Adapter.
func (b *Backend) EmitBinOp(op backend.BinOp, lhs, rhs backend.Value, ty types.TypeID) backend.Value {
	var memOp Op
	switch op {
	case backend.BinOpAdd:
		memOp = OpBinAdd
	case backend.BinOpSubtract:
		memOp = OpBinSubtract
	case backend.BinOpMultiply:
		memOp = OpBinMultiply
	case backend.BinOpEq:
		memOp = OpBinEq
	case backend.BinOpJoinString:
		memOp = OpBinJoinString
	default:
		panic(fmt.Sprintf("memir: unknown BinOp %d", op))
	}
	return b.emit(Instruction{Op: memOp, Operands: []backend.Value{lhs, rhs}, Type: ty})
}

// EmitLoad implements backend.Adapter.
func (b *Backend) EmitLoad(slot backend.Slot, ty types.TypeID) backend.Value {
	return b.emit(Instruction{Op: OpLoad, Slot: slot, Type: ty})
}

// EmitStore implements backend.Adapter.
func (b *Backend) EmitStore(slot backend.Slot, v backend.Value) backend.Value {
	return b.emit(Instruction{Op: OpStore, Slot: slot, Operands: []backend.Value{v}})
}

// EmitBranch implements backend.Adapter.
func (b *Backend) EmitBranch(cond, thenVal, elseVal backend.Value, ty types.TypeID) backend.Value {
	return b.emit(Instruction{Op: OpBranch, Operands: []backend.Value{cond, thenVal, elseVal}, Type: ty})
}

// EmitLoop implements backend.Adapter.
func (b *Backend) EmitLoop(cond, body backend.Value) backend.Value {
	return b.emit(Instruction{Op: OpLoop, Operands: []backend.Value{cond, body}})
}

// EmitCall implements backend.Adapter.
func (b *Backend) EmitCall(h backend.FunctionHandle, args []backend.Value) backend.Value {
	return b.emit(Instruction{Op: OpCall, Callee: h, Operands: append([]backend.Value(nil), args...)})
}

// EmitArrayAlloc implements backend.Adapter.
func (b *Backend) EmitArrayAlloc(elemType types.TypeID, size, defaultVal backend.Value) backend.Value {
	return b.emit(Instruction{Op: OpArrayAlloc, Operands: []backend.Value{size, defaultVal}, Type: elemType})
}

// EmitArrayAccess implements backend.Adapter.
func (b *Backend) EmitArrayAccess(base, index backend.Value, elemType types.TypeID) backend.Value {
	return b.emit(Instruction{Op: OpArrayAccess, Operands: []backend.Value{base, index}, Type: elemType})
}

// EmitStructGEP implements backend.Adapter.
func (b *Backend) EmitStructGEP(base backend.Value, fieldIndex int, fieldType types.TypeID) backend.Value {
	return b.emit(Instruction{Op: OpStructGEP, Operands: []backend.Value{base}, Index: fieldIndex, Type: fieldType})
}

// EmitConstructor implements backend.Adapter.
func (b *Backend) EmitConstructor(structName string, fieldVals []backend.Value, ty types.TypeID) backend.Value {
	return b.emit(Instruction{Op: OpConstructor, Operands: append([]backend.Value(nil), fieldVals...), Name: structName, Type: ty})
}

// EmitSeq implements backend.Adapter.
func (b *Backend) EmitSeq(a, b2 backend.Value) backend.Value {
	return b.emit(Instruction{Op: OpSeq, Operands: []backend.Value{a, b2}})
}

var _ backend.Adapter = (*Backend)(nil)
