package types

import "fmt"

// SType is the full type term used by the type inferer: either a Concrete
// ground type already living in an Interner, or a Generic unification
// variable that may still be unbound. Expr.ThisType and Func parameter
// types are SType; everything past monomorphization is Concrete.
type SType interface {
	isSType()
}

// Concrete wraps an interned, ground TypeID.
type Concrete TypeID

func (Concrete) isSType() {}

// Generic is a unification variable: a globally (per-compilation-unit)
// unique id plus a mutable binding slot. Binding is nil until unification
// pins it to an SType (which may itself be another, now-resolved Generic).
type Generic struct {
	ID      uint64
	Name    string
	Binding SType
}

func (*Generic) isSType() {}

// Resolve walks the Binding chain, returning the first non-Generic SType
// found, or the deepest still-unbound *Generic.
func Resolve(t SType) SType {
	g, ok := t.(*Generic)
	for ok && g.Binding != nil {
		t = g.Binding
		g, ok = t.(*Generic)
	}
	return t
}

// IsConcrete reports whether Resolve(t) reaches a Concrete type.
func IsConcrete(t SType) (TypeID, bool) {
	c, ok := Resolve(t).(Concrete)
	return TypeID(c), ok
}

// Dump renders the canonical string form of an SType, used as the
// monomorphization key. An unresolved Generic must never reach here in a
// well-typed program outside a generic Func body; callers that might
// legitimately hit one (e.g. pretty-printing mid-inference diagnostics)
// should check IsConcrete first.
func Dump(in *Interner, t SType) string {
	switch v := Resolve(t).(type) {
	case Concrete:
		return in.Dump(TypeID(v))
	case *Generic:
		return fmt.Sprintf("<unresolved:%s#%d>", v.Name, v.ID)
	default:
		return "<nil>"
	}
}

// GenericCounter mints unique Generic ids for one compilation unit. The
// id stream is threaded through the TypeInferer rather than kept as
// global mutable state, so tests stay deterministic and parallel
// compilation units never collide.
type GenericCounter struct {
	next uint64
}

// Fresh mints a new, unbound Generic named name (the source-level type
// parameter name it stands for, purely for diagnostics).
func (c *GenericCounter) Fresh(name string) *Generic {
	id := c.next
	c.next++
	return &Generic{ID: id, Name: name}
}
