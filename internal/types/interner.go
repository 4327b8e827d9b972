package types

import (
	"fmt"
	"strings"

	"fortio.org/safecast"
)

// Builtins holds the TypeIDs of the process-wide built-in registry: a
// process-wide immutable map, initialized once.
type Builtins struct {
	Void   TypeID
	Bool   TypeID
	Int8   TypeID
	Int16  TypeID
	Int32  TypeID
	Int64  TypeID
	String TypeID
}

// Interner assigns stable TypeIDs to structurally (or, for structs,
// nominally) distinct concrete types.
type Interner struct {
	types []Type
	index map[Type]TypeID

	structs      []StructInfo
	structByName map[string]TypeID

	fns      []FnInfo
	fnByName map[string]TypeID

	builtins Builtins
}

// NewInterner constructs an Interner pre-seeded with the builtin registry.
func NewInterner() *Interner {
	in := &Interner{
		index:        make(map[Type]TypeID, 64),
		structByName: make(map[string]TypeID),
		fnByName:     make(map[string]TypeID),
	}
	in.structs = append(in.structs, StructInfo{}) // reserve slot 0
	in.fns = append(in.fns, FnInfo{})              // reserve slot 0
	in.types = append(in.types, Type{Kind: KindInvalid})

	in.builtins.Void = in.internRaw(Type{Kind: KindVoid})
	in.builtins.Bool = in.internRaw(Type{Kind: KindBool})
	in.builtins.Int8 = in.internRaw(Type{Kind: KindInt8})
	in.builtins.Int16 = in.internRaw(Type{Kind: KindInt16})
	in.builtins.Int32 = in.internRaw(Type{Kind: KindInt32})
	in.builtins.Int64 = in.internRaw(Type{Kind: KindInt64})
	in.builtins.String = in.internRaw(Type{Kind: KindString})
	return in
}

// Builtins returns the seeded built-in TypeIDs.
func (in *Interner) Builtins() Builtins { return in.builtins }

// BuiltinByName resolves a builtin by its source-level name, consulted by
// TypePlaceholder.Resolve before user-defined and generic lookups.
func (in *Interner) BuiltinByName(name string) (TypeID, bool) {
	switch name {
	case "Void":
		return in.builtins.Void, true
	case "Bool":
		return in.builtins.Bool, true
	case "Int8":
		return in.builtins.Int8, true
	case "Int16":
		return in.builtins.Int16, true
	case "Int32":
		return in.builtins.Int32, true
	case "Int64":
		return in.builtins.Int64, true
	case "String":
		return in.builtins.String, true
	default:
		return NoTypeID, false
	}
}

func (in *Interner) internRaw(t Type) TypeID {
	n, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("types: too many interned types: %w", err))
	}
	id := TypeID(n)
	in.types = append(in.types, t)
	in.index[t] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// RegisterArray interns Array<elem>, a fat layout of length + inline storage.
// String is structurally Array<Int8> and callers rely on this to unify the two.
func (in *Interner) RegisterArray(elem TypeID) TypeID {
	t := Type{Kind: KindArray, Elem: elem}
	if id, ok := in.index[t]; ok {
		return id
	}
	return in.internRaw(t)
}

// RegisterPtr interns Ptr<ref>, an opaque pointer carrier.
func (in *Interner) RegisterPtr(ref TypeID) TypeID {
	t := Type{Kind: KindPtr, Elem: ref}
	if id, ok := in.index[t]; ok {
		return id
	}
	return in.internRaw(t)
}

// RegisterFn interns a first-class Function(args, ret) type. Function
// equality is structural, so duplicate signatures collapse to one TypeID.
func (in *Interner) RegisterFn(args []TypeID, ret TypeID) TypeID {
	key := fnKey(args, ret)
	if id, ok := in.fnByName[key]; ok {
		return id
	}
	slot, err := safecast.Conv[uint32](len(in.fns))
	if err != nil {
		panic(fmt.Errorf("types: too many function signatures: %w", err))
	}
	in.fns = append(in.fns, FnInfo{Args: append([]TypeID(nil), args...), Ret: ret})
	id := in.internRaw(Type{Kind: KindFunction, Payload: slot})
	in.fnByName[key] = id
	return id
}

func fnKey(args []TypeID, ret TypeID) string {
	var b strings.Builder
	for _, a := range args {
		fmt.Fprintf(&b, "%d,", a)
	}
	fmt.Fprintf(&b, "->%d", ret)
	return b.String()
}

// FnInfo retrieves function-type metadata by TypeID.
func (in *Interner) FnInfo(id TypeID) (FnInfo, bool) {
	t, ok := in.Lookup(id)
	if !ok || t.Kind != KindFunction || int(t.Payload) >= len(in.fns) {
		return FnInfo{}, false
	}
	return in.fns[t.Payload], true
}

// RegisterStruct interns (or looks up) a nominal struct type by name.
// Struct equality is nominal: two calls with the same name return the
// same TypeID regardless of field contents.
func (in *Interner) RegisterStruct(name string, fields []StructField) TypeID {
	if id, ok := in.structByName[name]; ok {
		return id
	}
	slot, err := safecast.Conv[uint32](len(in.structs))
	if err != nil {
		panic(fmt.Errorf("types: too many struct types: %w", err))
	}
	in.structs = append(in.structs, StructInfo{Name: name, Fields: append([]StructField(nil), fields...)})
	id := in.internRaw(Type{Kind: KindStruct, Payload: slot})
	in.structByName[name] = id
	return id
}

// LookupStructByName returns the TypeID already registered for name, if
// any — used by TypePlaceholder.Resolve to find previously declared
// struct types without re-registering (and thus clobbering) their fields.
func (in *Interner) LookupStructByName(name string) (TypeID, bool) {
	id, ok := in.structByName[name]
	return id, ok
}

// StructInfo retrieves struct-type metadata by TypeID.
func (in *Interner) StructInfo(id TypeID) (StructInfo, bool) {
	t, ok := in.Lookup(id)
	if !ok || t.Kind != KindStruct || int(t.Payload) >= len(in.structs) {
		return StructInfo{}, false
	}
	return in.structs[t.Payload], true
}

// FieldIndex returns the index of a named field within a struct, or
// UnknownField when absent.
func (in *Interner) FieldIndex(structID TypeID, field string) (int, bool) {
	info, ok := in.StructInfo(structID)
	if !ok {
		return 0, false
	}
	for i, f := range info.Fields {
		if f.Name == field {
			return i, true
		}
	}
	return 0, false
}

// Equal reports whether two TypeIDs name the same concrete type. Since
// TypeIDs come from one Interner and structs are nominal while everything
// else is structural, TypeID equality suffices, except that String is
// also equal to Array<Int8>.
func (in *Interner) Equal(a, b TypeID) bool {
	if a == b {
		return true
	}
	if b == in.builtins.String {
		a, b = b, a
	}
	if a != in.builtins.String {
		return false
	}
	t, ok := in.Lookup(b)
	return ok && t.Kind == KindArray && t.Elem == in.builtins.Int8
}

// Dump renders the canonical, deterministic textual form of a TypeID, used
// as the monomorphization key (MonoKey) and required to be stable across
// passes.
func (in *Interner) Dump(id TypeID) string {
	t, ok := in.Lookup(id)
	if !ok {
		return "<invalid>"
	}
	switch t.Kind {
	case KindArray:
		return "Array<" + in.Dump(t.Elem) + ">"
	case KindPtr:
		return "Ptr<" + in.Dump(t.Elem) + ">"
	case KindStruct:
		info, _ := in.StructInfo(id)
		return info.Name
	case KindFunction:
		info, _ := in.FnInfo(id)
		var b strings.Builder
		b.WriteString("Fn(")
		for i, a := range info.Args {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(in.Dump(a))
		}
		b.WriteString(")->")
		b.WriteString(in.Dump(info.Ret))
		return b.String()
	default:
		return t.Kind.String()
	}
}
