package ast

import "github.com/geraldstanje/spl/internal/types"

// Purity classifies what a Func is allowed to call and be called from:
// pure code may not call Impure or FunIO code; Sealed is callable from
// anywhere.
type Purity uint8

const (
	Pure Purity = iota
	Impure
	Sealed
	FunIO
)

func (p Purity) String() string {
	switch p {
	case Pure:
		return "pure"
	case Impure:
		return "impure"
	case Sealed:
		return "sealed"
	case FunIO:
		return "io"
	default:
		return "?"
	}
}

// Specialization records one concrete instantiation of a Func reached by
// the monomorphizer, keyed by the MonoKey dump of its type-argument tuple
// (types.Dump joined per-arg); a non-generic Func's one instantiation has
// the empty key.
type Specialization struct {
	Key      string
	TypeArgs []types.TypeID
	Handle   uint32 // backend.FunctionHandle once emitted; 0 until Emit runs
}

// Func is both a top-level declaration and (pre-lambda-lift) a nested
// expression's payload via ExprFuncLit. Context is only meaningful before
// lifting: it is the ExprID of the lexical scope the function was
// declared in, used to resolve free variables; lifting clears it.
type Func struct {
	Name     string
	Generics []string // declared generic parameter names, source order

	Params      []string
	ParamTypePh []*TypePlaceholder
	ParamTypes  []types.SType // filled in by Bind/TypeInfer, one per Param
	ParamRegs   []ExprID      // RegisterFunArg ids, one per Param

	RetTypePh *TypePlaceholder
	RetType   types.SType

	Body    ExprID
	Context ExprID

	Purity   Purity
	IsExtern bool

	// Specializations holds every instantiation monomorphization reaches,
	// keyed by Specialization.Key (the MonoKey); a reached non-generic Func
	// has exactly one, under "", and an unreached Func has none.
	Specializations map[string]*Specialization
}

// IsGeneric reports whether fn declares any generic type parameters.
func (fn *Func) IsGeneric() bool { return len(fn.Generics) > 0 }

// FreshGenericEnv mints one new Generic unification variable per declared
// generic parameter name. Called once to type-check the Func's own body,
// and again, freshly, at every call site of a generic Func so distinct
// uses never share a unification variable.
func (fn *Func) FreshGenericEnv(counter *types.GenericCounter) map[string]types.SType {
	if len(fn.Generics) == 0 {
		return nil
	}
	env := make(map[string]types.SType, len(fn.Generics))
	for _, name := range fn.Generics {
		env[name] = counter.Fresh(name)
	}
	return env
}

// Specialize records (or returns the existing) Specialization for a
// concrete type-argument tuple, keyed by key (the caller computes this via
// types.Dump over the types bound to fn.Generics, joined — see internal/mono).
func (fn *Func) Specialize(key string, typeArgs []types.TypeID) *Specialization {
	if fn.Specializations == nil {
		fn.Specializations = make(map[string]*Specialization)
	}
	if s, ok := fn.Specializations[key]; ok {
		return s
	}
	s := &Specialization{Key: key, TypeArgs: append([]types.TypeID(nil), typeArgs...)}
	fn.Specializations[key] = s
	return s
}
