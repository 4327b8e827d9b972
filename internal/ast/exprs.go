package ast

import "github.com/geraldstanje/spl/internal/source"

// Exprs owns the shared Expr envelope arena plus one payload arena per
// ExprKind. A File holds exactly one Exprs.
type Exprs struct {
	nodes *Arena[Expr]

	numbers     *Arena[NumberData]
	strings     *Arena[StringData]
	variables   *Arena[VariableData]
	nots        *Arena[NotData]
	binaries    *Arena[BinaryData]
	members     *Arena[MemberData]
	bindings    *Arena[BindingData]
	ifs         *Arena[IfData]
	whiles      *Arena[WhileData]
	calls       *Arena[CallData]
	registers   *Arena[RegisterData]
	funArgs     *Arena[RegisterFunArgData]
	funcLits    *Arena[FuncID]
	closures    *Arena[ClosureData]
	arrays      *Arena[ArrayData]
	constructor *Arena[ConstructorData]
}

// NewExprs allocates an empty per-kind arena set.
func NewExprs() *Exprs {
	return &Exprs{
		nodes:       NewArena[Expr](256),
		numbers:     NewArena[NumberData](32),
		strings:     NewArena[StringData](32),
		variables:   NewArena[VariableData](64),
		nots:        NewArena[NotData](8),
		binaries:    NewArena[BinaryData](128),
		members:     NewArena[MemberData](32),
		bindings:    NewArena[BindingData](64),
		ifs:         NewArena[IfData](16),
		whiles:      NewArena[WhileData](8),
		calls:       NewArena[CallData](64),
		registers:   NewArena[RegisterData](64),
		funArgs:     NewArena[RegisterFunArgData](32),
		funcLits:    NewArena[FuncID](8),
		closures:    NewArena[ClosureData](8),
		arrays:      NewArena[ArrayData](16),
		constructor: NewArena[ConstructorData](16),
	}
}

// Get returns the Expr envelope for id, or nil if id is NoExprID or stale.
func (e *Exprs) Get(id ExprID) *Expr { return e.nodes.Get(uint32(id)) }

// Len reports how many Expr nodes have been allocated.
func (e *Exprs) Len() uint32 { return e.nodes.Len() }

func (e *Exprs) alloc(span source.Span, kind ExprKind, payload uint32) ExprID {
	return ExprID(e.nodes.Allocate(Expr{Kind: kind, Span: span, Payload: payload}))
}

func (e *Exprs) NewNumber(span source.Span, value int64) ExprID {
	p := e.numbers.Allocate(NumberData{Value: value})
	return e.alloc(span, ExprNumber, p)
}

func (e *Exprs) Number(id ExprID) *NumberData {
	ex := e.Get(id)
	if ex == nil || ex.Kind != ExprNumber {
		return nil
	}
	return e.numbers.Get(ex.Payload)
}

func (e *Exprs) NewString(span source.Span, value string) ExprID {
	p := e.strings.Allocate(StringData{Value: value})
	return e.alloc(span, ExprString, p)
}

func (e *Exprs) String(id ExprID) *StringData {
	ex := e.Get(id)
	if ex == nil || ex.Kind != ExprString {
		return nil
	}
	return e.strings.Get(ex.Payload)
}

func (e *Exprs) NewVariable(span source.Span, name string) ExprID {
	p := e.variables.Allocate(VariableData{Name: name})
	return e.alloc(span, ExprVariable, p)
}

func (e *Exprs) Variable(id ExprID) *VariableData {
	ex := e.Get(id)
	if ex == nil || ex.Kind != ExprVariable {
		return nil
	}
	return e.variables.Get(ex.Payload)
}

func (e *Exprs) NewNot(span source.Span, operand ExprID) ExprID {
	p := e.nots.Allocate(NotData{Operand: operand})
	return e.alloc(span, ExprNot, p)
}

func (e *Exprs) Not(id ExprID) *NotData {
	ex := e.Get(id)
	if ex == nil || ex.Kind != ExprNot {
		return nil
	}
	return e.nots.Get(ex.Payload)
}

func (e *Exprs) NewBinary(span source.Span, op BinaryOp, left, right ExprID) ExprID {
	p := e.binaries.Allocate(BinaryData{Op: op, Left: left, Right: right})
	return e.alloc(span, ExprBinary, p)
}

func (e *Exprs) Binary(id ExprID) *BinaryData {
	ex := e.Get(id)
	if ex == nil || ex.Kind != ExprBinary {
		return nil
	}
	return e.binaries.Get(ex.Payload)
}

func (e *Exprs) NewMember(span source.Span, src ExprID, field string) ExprID {
	p := e.members.Allocate(MemberData{Source: src, Field: field, FieldIndex: -1})
	return e.alloc(span, ExprMember, p)
}

func (e *Exprs) Member(id ExprID) *MemberData {
	ex := e.Get(id)
	if ex == nil || ex.Kind != ExprMember {
		return nil
	}
	return e.members.Get(ex.Payload)
}

func (e *Exprs) NewBinding(span source.Span, name string, mutable bool, init, body ExprID) ExprID {
	p := e.bindings.Allocate(BindingData{Name: name, Mutable: mutable, Init: init, Body: body})
	return e.alloc(span, ExprBinding, p)
}

func (e *Exprs) Binding(id ExprID) *BindingData {
	ex := e.Get(id)
	if ex == nil || ex.Kind != ExprBinding {
		return nil
	}
	return e.bindings.Get(ex.Payload)
}

func (e *Exprs) NewIf(span source.Span, cond, then, els ExprID) ExprID {
	p := e.ifs.Allocate(IfData{Cond: cond, Then: then, Else: els})
	return e.alloc(span, ExprIf, p)
}

func (e *Exprs) If(id ExprID) *IfData {
	ex := e.Get(id)
	if ex == nil || ex.Kind != ExprIf {
		return nil
	}
	return e.ifs.Get(ex.Payload)
}

func (e *Exprs) NewWhile(span source.Span, cond, body ExprID) ExprID {
	p := e.whiles.Allocate(WhileData{Cond: cond, Body: body})
	return e.alloc(span, ExprWhile, p)
}

func (e *Exprs) While(id ExprID) *WhileData {
	ex := e.Get(id)
	if ex == nil || ex.Kind != ExprWhile {
		return nil
	}
	return e.whiles.Get(ex.Payload)
}

func (e *Exprs) NewCall(span source.Span, calleeName string, args []ExprID) ExprID {
	p := e.calls.Allocate(CallData{CalleeName: calleeName, Args: args})
	return e.alloc(span, ExprCall, p)
}

func (e *Exprs) Call(id ExprID) *CallData {
	ex := e.Get(id)
	if ex == nil || ex.Kind != ExprCall {
		return nil
	}
	return e.calls.Get(ex.Payload)
}

func (e *Exprs) NewRegister(span source.Span, name string, mutable bool, source ExprID) ExprID {
	p := e.registers.Allocate(RegisterData{Name: name, Mutable: mutable, Source: source})
	return e.alloc(span, ExprRegister, p)
}

func (e *Exprs) Register(id ExprID) *RegisterData {
	ex := e.Get(id)
	if ex == nil || ex.Kind != ExprRegister {
		return nil
	}
	return e.registers.Get(ex.Payload)
}

func (e *Exprs) NewRegisterFunArg(span source.Span, name string, typePh *TypePlaceholder) ExprID {
	p := e.funArgs.Allocate(RegisterFunArgData{Name: name, TypePh: typePh})
	return e.alloc(span, ExprRegisterFunArg, p)
}

func (e *Exprs) RegisterFunArg(id ExprID) *RegisterFunArgData {
	ex := e.Get(id)
	if ex == nil || ex.Kind != ExprRegisterFunArg {
		return nil
	}
	return e.funArgs.Get(ex.Payload)
}

func (e *Exprs) NewFuncLit(span source.Span, fn FuncID) ExprID {
	p := e.funcLits.Allocate(fn)
	return e.alloc(span, ExprFuncLit, p)
}

func (e *Exprs) FuncLit(id ExprID) FuncID {
	ex := e.Get(id)
	if ex == nil || ex.Kind != ExprFuncLit {
		return NoFuncID
	}
	if v := e.funcLits.Get(ex.Payload); v != nil {
		return *v
	}
	return NoFuncID
}

// ReplaceWithClosure turns an ExprFuncLit (or any node) in-place into an
// ExprClosure, keeping the same ExprID so every Variable/Call reference
// that already points at it stays valid — the core move of lambda
// lifting's closure-conversion step.
func (e *Exprs) ReplaceWithClosure(id ExprID, fn FuncID, captured []ExprID) {
	ex := e.Get(id)
	if ex == nil {
		return
	}
	p := e.closures.Allocate(ClosureData{Func: fn, Captured: captured})
	ex.Kind = ExprClosure
	ex.Payload = p
}

func (e *Exprs) Closure(id ExprID) *ClosureData {
	ex := e.Get(id)
	if ex == nil || ex.Kind != ExprClosure {
		return nil
	}
	return e.closures.Get(ex.Payload)
}

func (e *Exprs) NewArray(span source.Span, elemTypePh *TypePlaceholder, size, def ExprID) ExprID {
	p := e.arrays.Allocate(ArrayData{ElemTypePh: elemTypePh, Size: size, Default: def})
	return e.alloc(span, ExprArray, p)
}

func (e *Exprs) Array(id ExprID) *ArrayData {
	ex := e.Get(id)
	if ex == nil || ex.Kind != ExprArray {
		return nil
	}
	return e.arrays.Get(ex.Payload)
}

func (e *Exprs) NewConstructor(span source.Span, structName string, typeArgs []*TypePlaceholder, args []ExprID) ExprID {
	p := e.constructor.Allocate(ConstructorData{StructName: structName, TypeArgs: typeArgs, Args: args})
	return e.alloc(span, ExprConstructor, p)
}

func (e *Exprs) Constructor(id ExprID) *ConstructorData {
	ex := e.Get(id)
	if ex == nil || ex.Kind != ExprConstructor {
		return nil
	}
	return e.constructor.Get(ex.Payload)
}
