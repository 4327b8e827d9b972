package ast

import "github.com/geraldstanje/spl/internal/types"

// StructDecl is a top-level `struct Name<Generics...> { fields }` source
// declaration, kept around (post-registration) for diagnostics and for
// Constructor field-order resolution.
type StructDecl struct {
	Name     string
	Generics []string
	Fields   []StructFieldDecl
}

type StructFieldDecl struct {
	Name   string
	TypePh *TypePlaceholder
}

// File is one compilation unit: its expression/function arenas, the type
// interner the unit's types are registered into, and its top-level
// declarations. Everything downstream — Bind, TypeInfer, LambdaLift,
// Monomorphize, Emit — operates on a *File in place.
type File struct {
	Name string

	Exprs *Exprs
	Funcs *Arena[Func]

	Interner *types.Interner
	Generics *types.GenericCounter

	Structs []StructDecl
	// TopLevel lists the FuncIDs declared at file scope, in source order
	// (Binder's entry points; excludes nested ExprFuncLit functions until
	// lambda lifting promotes them here too).
	TopLevel []FuncID
	Externs  []FuncID
}

// NewFile allocates an empty compilation unit ready for the Binder.
func NewFile(name string) *File {
	return &File{
		Name:     name,
		Exprs:    NewExprs(),
		Funcs:    NewArena[Func](16),
		Interner: types.NewInterner(),
		Generics: &types.GenericCounter{},
	}
}

// DeclareFunc allocates fn in the function arena and returns its id.
func (f *File) DeclareFunc(fn Func) FuncID {
	return FuncID(f.Funcs.Allocate(fn))
}

// Func returns the Func payload for id, or nil for NoFuncID / stale ids.
func (f *File) Func(id FuncID) *Func { return f.Funcs.Get(uint32(id)) }
