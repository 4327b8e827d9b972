package types

import "testing"

func TestInternerBuiltins(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	if b.Int32 == NoTypeID || b.Bool == NoTypeID {
		t.Fatalf("builtins not initialized")
	}
	ty, _ := in.Lookup(b.Int32)
	if ty.Kind != KindInt32 {
		t.Fatalf("expected Int32 kind, got %v", ty.Kind)
	}
}

func TestArrayDeduplicates(t *testing.T) {
	in := NewInterner()
	elem := in.Builtins().Int32
	a1 := in.RegisterArray(elem)
	a2 := in.RegisterArray(elem)
	if a1 != a2 {
		t.Fatalf("Array<Int32> should be deduplicated, got %d and %d", a1, a2)
	}
}

func TestStringIsStructurallyArrayInt8(t *testing.T) {
	// String is structurally equal to Array<Int8>, NUL-terminated.
	// The interner keeps String as its own builtin for naming purposes, and
	// Equal treats it as the same type as Array<Int8>.
	in := NewInterner()
	arr := in.RegisterArray(in.Builtins().Int8)
	arrTy, _ := in.Lookup(arr)
	strTy, _ := in.Lookup(in.Builtins().String)
	if arrTy.Kind != KindArray || arrTy.Elem != in.Builtins().Int8 {
		t.Fatalf("Array<Int8> malformed: %+v", arrTy)
	}
	if strTy.Kind != KindString || !in.Equal(in.Builtins().String, arr) {
		t.Fatalf("String must be its own builtin and equal to Array<Int8>, got %+v", strTy)
	}
}

func TestStructIsNominal(t *testing.T) {
	in := NewInterner()
	fields := []StructField{{Name: "x", Type: in.Builtins().Int32}}
	a := in.RegisterStruct("Point", fields)
	b := in.RegisterStruct("Point", []StructField{{Name: "y", Type: in.Builtins().Bool}})
	if a != b {
		t.Fatalf("structs with the same name must be nominally equal regardless of fields")
	}
	other := in.RegisterStruct("Vector", fields)
	if a == other {
		t.Fatalf("structs with different names must not be equal")
	}
}

func TestFunctionTypeDeduplicates(t *testing.T) {
	in := NewInterner()
	i32 := in.Builtins().Int32
	f1 := in.RegisterFn([]TypeID{i32, i32}, i32)
	f2 := in.RegisterFn([]TypeID{i32, i32}, i32)
	if f1 != f2 {
		t.Fatalf("identical function signatures should be deduplicated")
	}
	f3 := in.RegisterFn([]TypeID{i32}, i32)
	if f1 == f3 {
		t.Fatalf("different arities must not be equal")
	}
}

func TestDumpIsStableForMonoKey(t *testing.T) {
	in := NewInterner()
	i32 := in.Builtins().Int32
	arr := in.RegisterArray(i32)
	fn := in.RegisterFn([]TypeID{arr, i32}, i32)
	if got, want := in.Dump(arr), "Array<Int32>"; got != want {
		t.Fatalf("Dump(arr) = %q, want %q", got, want)
	}
	if got, want := in.Dump(fn), "Fn(Array<Int32>,Int32)->Int32"; got != want {
		t.Fatalf("Dump(fn) = %q, want %q", got, want)
	}
}

func TestFieldIndex(t *testing.T) {
	in := NewInterner()
	fields := []StructField{
		{Name: "x", Type: in.Builtins().Int32},
		{Name: "y", Type: in.Builtins().Int32},
	}
	st := in.RegisterStruct("Point", fields)
	idx, ok := in.FieldIndex(st, "y")
	if !ok || idx != 1 {
		t.Fatalf("FieldIndex(y) = (%d,%v), want (1,true)", idx, ok)
	}
	if _, ok := in.FieldIndex(st, "z"); ok {
		t.Fatalf("FieldIndex(z) should report UnknownField via ok=false")
	}
}

func TestGenericResolveChain(t *testing.T) {
	var counter GenericCounter
	g1 := counter.Fresh("T")
	g2 := counter.Fresh("U")
	if g1.ID == g2.ID {
		t.Fatalf("distinct generics must have distinct ids")
	}

	in := NewInterner()
	i32 := Concrete(in.Builtins().Int32)
	g2.Binding = i32
	g1.Binding = g2

	got, ok := IsConcrete(g1)
	if !ok || got != TypeID(i32) {
		t.Fatalf("IsConcrete through a binding chain failed: %v %v", got, ok)
	}
}
