package ast

import (
	"fmt"

	"github.com/geraldstanje/spl/internal/types"
)

// TypePlaceholder is the unresolved, source-level shape of a type
// annotation: a name plus (for Array/Ptr/generic-struct) nested
// parameters. Resolve turns it into an SType once the enclosing Func's
// generic environment is known — builtins and already-declared structs
// resolve to Concrete, a bare name matching one of the Func's generic
// parameters resolves to that Generic's current binding.
type TypePlaceholder struct {
	Name   string
	Params []*TypePlaceholder
}

// Resolve looks up name against, in order: builtins, generics (the
// in-scope generic type-parameter bindings), then previously registered
// struct names. Array and Ptr are recognized as one-parameter type
// constructors over Name; anything else falls through to a struct lookup.
func (tp *TypePlaceholder) Resolve(in *types.Interner, generics map[string]types.SType) (types.SType, error) {
	switch tp.Name {
	case "Array":
		if len(tp.Params) != 1 {
			return nil, fmt.Errorf("ast: Array type placeholder needs exactly one parameter, got %d", len(tp.Params))
		}
		elem, err := tp.Params[0].Resolve(in, generics)
		if err != nil {
			return nil, err
		}
		elemID, ok := types.IsConcrete(elem)
		if !ok {
			return nil, fmt.Errorf("ast: Array<%s> element type is still generic", tp.Params[0].Name)
		}
		return types.Concrete(in.RegisterArray(elemID)), nil
	case "Ptr":
		if len(tp.Params) != 1 {
			return nil, fmt.Errorf("ast: Ptr type placeholder needs exactly one parameter, got %d", len(tp.Params))
		}
		elem, err := tp.Params[0].Resolve(in, generics)
		if err != nil {
			return nil, err
		}
		elemID, ok := types.IsConcrete(elem)
		if !ok {
			return nil, fmt.Errorf("ast: Ptr<%s> element type is still generic", tp.Params[0].Name)
		}
		return types.Concrete(in.RegisterPtr(elemID)), nil
	}

	if id, ok := in.BuiltinByName(tp.Name); ok {
		return types.Concrete(id), nil
	}
	if g, ok := generics[tp.Name]; ok {
		return g, nil
	}
	if id, ok := in.LookupStructByName(tp.Name); ok {
		return types.Concrete(id), nil
	}
	return nil, fmt.Errorf("ast: unknown type name %q", tp.Name)
}
