package ast

import (
	"github.com/geraldstanje/spl/internal/source"
	"github.com/geraldstanje/spl/internal/types"
)

// ExprKind tags which payload arena Expr.Payload indexes into.
type ExprKind uint8

const (
	ExprInvalid ExprKind = iota
	ExprNumber
	ExprString
	ExprVariable
	ExprNot
	ExprBinary
	ExprMember
	ExprBinding
	ExprIf
	ExprWhile
	ExprCall
	ExprRegister
	ExprRegisterFunArg
	ExprFuncLit // a nested `def` expression, pre-lambda-lift
	ExprClosure // post-lambda-lift replacement of ExprFuncLit
	ExprArray
	ExprConstructor
)

func (k ExprKind) String() string {
	switch k {
	case ExprNumber:
		return "Number"
	case ExprString:
		return "String"
	case ExprVariable:
		return "Variable"
	case ExprNot:
		return "Not"
	case ExprBinary:
		return "BinaryOp"
	case ExprMember:
		return "Member"
	case ExprBinding:
		return "Binding"
	case ExprIf:
		return "If"
	case ExprWhile:
		return "While"
	case ExprCall:
		return "Call"
	case ExprRegister:
		return "Register"
	case ExprRegisterFunArg:
		return "RegisterFunArg"
	case ExprFuncLit:
		return "FuncLit"
	case ExprClosure:
		return "Closure"
	case ExprArray:
		return "Array"
	case ExprConstructor:
		return "Constructor"
	default:
		return "Invalid"
	}
}

// BinaryOp enumerates the dyadic operators that share the ExprBinary kind.
type BinaryOp uint8

const (
	OpInvalid BinaryOp = iota
	OpAdd
	OpSubtract
	OpMultiply
	OpEq
	OpJoinString
	OpSeq
	OpAssign
	OpArrayAccess
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "*"
	case OpEq:
		return "=="
	case OpJoinString:
		return "++"
	case OpSeq:
		return ";"
	case OpAssign:
		return ":="
	case OpArrayAccess:
		return "[]"
	default:
		return "?"
	}
}

// Expr is the common envelope for every expression node: a kind tag, a
// source span for diagnostics, a 1-based index into the kind-specific
// payload arena, and the mutable type slot TypeInfer fills in. Keeping one
// arena-of-Expr plus N per-kind payload arenas (instead of a type
// hierarchy) means every cross-reference is a plain integer, so cyclic
// shapes like Closure → Func → Body → ... → Closure never need a pointer.
type Expr struct {
	Kind     ExprKind
	Span     source.Span
	Payload  uint32
	ThisType types.SType
}

type NumberData struct {
	Value int64
}

type StringData struct {
	Value string
}

// VariableData names a lexical reference; Binding is filled in by the
// binder and points at the defining Binding/Register/RegisterFunArg Expr.
type VariableData struct {
	Name    string
	Binding ExprID
}

type NotData struct {
	Operand ExprID
}

type BinaryData struct {
	Op    BinaryOp
	Left  ExprID
	Right ExprID
}

// MemberData is a `.field` access; FieldIndex is resolved once the
// source's struct type is known.
type MemberData struct {
	Source     ExprID
	Field      string
	FieldIndex int
}

// BindingData is a `val`/`var` local: Init computes the value, Body is the
// expression evaluated with Name in scope.
// BindingData is a `val`/`var` local. Expr.ThisType on the Binding node
// itself holds the type of the whole let-expression (the body's type);
// VarType holds the bound name's own type (the init expression's type) —
// the two differ whenever the body isn't simply the bound name, so a
// Variable referencing this Binding must read VarType, not ThisType.
type BindingData struct {
	Name    string
	Mutable bool
	Init    ExprID
	Body    ExprID
	VarType types.SType
}

type IfData struct {
	Cond ExprID
	Then ExprID
	Else ExprID
}

type WhileData struct {
	Cond ExprID
	Body ExprID
}

// CallData references its callee two ways because the callee changes
// identity across the pipeline: before lambda lifting it is a Func
// (possibly still generic); after closure conversion calls of a lifted
// nested function go through the activation record's Closure value instead.
// Exactly one of Func/Closure is set at any point.
type CallData struct {
	CalleeName string
	Func       FuncID
	Closure    ExprID
	Args       []ExprID
}

// RegisterData introduces one SSA-ish local slot, Source being the
// defining expression. Lambda lifting adds no Registers: captured free
// variables become extra RegisterFunArg parameters of the lifted Func.
type RegisterData struct {
	Name    string
	Mutable bool
	Source  ExprID
}

// RegisterFunArgData is a function parameter slot; TypePh resolves to a
// concrete or generic SType during Bind/TypeInfer.
type RegisterFunArgData struct {
	Name   string
	TypePh *TypePlaceholder
}

// ClosureData replaces an ExprFuncLit when lambda lifting promotes that
// nested function to top level, which it does for every nested function:
// Captured lists the ids of the variables it closes over, in
// activation-record order.
type ClosureData struct {
	Func     FuncID
	Captured []ExprID // Register/RegisterFunArg ids captured, in record order
}

// ArrayData constructs a fixed-size array value.
type ArrayData struct {
	ElemTypePh *TypePlaceholder
	Size       ExprID
	Default    ExprID
}

// ConstructorData builds a struct value, `Name { args... }`.
type ConstructorData struct {
	StructName string
	TypeArgs   []*TypePlaceholder
	Args       []ExprID
}
