// Package emit drives a backend.Adapter from a File that has already been
// through Bind, TypeInfer, LambdaLift, and Monomorphize: every top-level
// Func (lifted nested ones included) gets one backend function per
// Specialization — a non-generic Func has at most one, keyed by the empty
// MonoKey — and every Extern gets one EmitExtern declaration.
//
// Two passes keep declaration order from mattering: prototypes for every
// function are opened first so a call site can
// resolve its callee's handle regardless of declaration order (including
// mutual and self recursion), then each body is built against the already-
// complete handle table.
package emit

import (
	"fmt"
	"strings"

	"github.com/geraldstanje/spl/internal/ast"
	"github.com/geraldstanje/spl/internal/backend"
	"github.com/geraldstanje/spl/internal/types"
)

// Options configures one Emit pass.
type Options struct{}

// Result reports whether emission completed without error.
type Result struct {
	OK bool
}

type emitter struct {
	file    *ast.File
	adapter backend.Adapter
	ok      bool

	// slots maps a Register/Binding/RegisterFunArg declaration site to the
	// Slot its value lives in for the body currently under construction;
	// reset per function body, since slot numbers aren't meaningful across
	// functions.
	slots map[ast.ExprID]backend.Slot

	// handles maps "<FuncID>|<MonoKey>" to the prototype handle opened for
	// it; MonoKey is "" for Externs and non-generic Funcs.
	handles map[string]backend.FunctionHandle
}

// Emit drives adapter over every reachable function in file.
func Emit(file *ast.File, adapter backend.Adapter, _ Options) Result {
	e := &emitter{
		file:    file,
		adapter: adapter,
		ok:      true,
		slots:   make(map[ast.ExprID]backend.Slot),
		handles: make(map[string]backend.FunctionHandle),
	}

	for _, fid := range file.Externs {
		e.emitExternPrototype(fid)
	}
	for _, fid := range file.TopLevel {
		e.emitPrototypes(fid)
	}
	for _, fid := range file.TopLevel {
		e.emitBodies(fid)
	}

	return Result{OK: e.ok}
}

func handleKey(fid ast.FuncID, monoKey string) string {
	return fmt.Sprintf("%d|%s", fid, monoKey)
}

func (e *emitter) lookupHandle(fid ast.FuncID, monoKey string) (backend.FunctionHandle, bool) {
	h, ok := e.handles[handleKey(fid, monoKey)]
	return h, ok
}

func (e *emitter) emitExternPrototype(fid ast.FuncID) {
	fn := e.file.Func(fid)
	if fn == nil {
		return
	}
	argTypes := make([]types.TypeID, len(fn.ParamTypes))
	for i, pt := range fn.ParamTypes {
		id, _ := types.IsConcrete(pt)
		argTypes[i] = id
	}
	retType, _ := types.IsConcrete(fn.RetType)
	sig := e.file.Interner.RegisterFn(argTypes, retType)

	h, err := e.adapter.EmitExtern(fn.Name, sig)
	if err != nil {
		e.ok = false
		return
	}
	e.handles[handleKey(fid, "")] = h
}

func (e *emitter) emitPrototypes(fid ast.FuncID) {
	fn := e.file.Func(fid)
	if fn == nil || fn.IsExtern {
		return
	}
	if !fn.IsGeneric() {
		if _, reached := fn.Specializations[""]; reached {
			e.emitOnePrototype(fid, fn, "", nil)
		}
		return
	}
	for key, spec := range fn.Specializations {
		e.emitOnePrototype(fid, fn, key, spec.TypeArgs)
	}
}

func (e *emitter) emitOnePrototype(fid ast.FuncID, fn *ast.Func, monoKey string, typeArgs []types.TypeID) {
	argTypes := make([]types.TypeID, len(fn.ParamTypes))
	for i, pt := range fn.ParamTypes {
		argTypes[i] = e.resolveType(fn, typeArgs, pt)
	}
	retType := e.resolveType(fn, typeArgs, fn.RetType)

	h, err := e.adapter.EmitFunctionPrototype(fn.Name, argTypes, retType)
	if err != nil {
		e.ok = false
		return
	}
	e.handles[handleKey(fid, monoKey)] = h
	if spec, ok := fn.Specializations[monoKey]; ok {
		spec.Handle = uint32(h)
	}
}

func (e *emitter) emitBodies(fid ast.FuncID) {
	fn := e.file.Func(fid)
	if fn == nil || fn.IsExtern {
		return
	}
	if !fn.IsGeneric() {
		if _, reached := fn.Specializations[""]; reached {
			e.emitOneBody(fid, fn, "", nil)
		}
		return
	}
	for key, spec := range fn.Specializations {
		e.emitOneBody(fid, fn, key, spec.TypeArgs)
	}
}

func (e *emitter) emitOneBody(fid ast.FuncID, fn *ast.Func, monoKey string, typeArgs []types.TypeID) {
	h, ok := e.lookupHandle(fid, monoKey)
	if !ok {
		e.ok = false
		return
	}

	paramSlots := make([]backend.Slot, len(fn.ParamRegs))
	for i, reg := range fn.ParamRegs {
		slot := e.adapter.AllocSlot()
		e.slots[reg] = slot
		paramSlots[i] = slot
	}

	body := e.emitExpr(fn, typeArgs, fn.Body)
	if err := e.adapter.EmitFunctionBody(h, paramSlots, body); err != nil {
		e.ok = false
	}
}

// resolveType resolves an Expr's recorded SType to the concrete TypeID this
// specialization gives it: if it is already concrete (most expressions,
// and every expression of a non-generic Func), that TypeID is returned
// unchanged; if it names one of fn's own declared generic parameters (only
// possible inside a generic Func's shared body, type-checked once against
// a fresh, never-instantiated Generic per parameter), the concrete type
// this specialization's TypeArgs binds that parameter to is substituted.
func (e *emitter) resolveType(fn *ast.Func, typeArgs []types.TypeID, t types.SType) types.TypeID {
	resolved := types.Resolve(t)
	if g, ok := resolved.(*types.Generic); ok {
		for i, name := range fn.Generics {
			if name == g.Name && i < len(typeArgs) {
				return typeArgs[i]
			}
		}
		return types.NoTypeID
	}
	id, _ := types.IsConcrete(resolved)
	return id
}

func (e *emitter) emitExpr(fn *ast.Func, typeArgs []types.TypeID, id ast.ExprID) backend.Value {
	expr := e.file.Exprs.Get(id)
	if expr == nil {
		return backend.NoValue
	}
	ty := e.resolveType(fn, typeArgs, expr.ThisType)

	switch expr.Kind {
	case ast.ExprNumber:
		return e.adapter.EmitConstInt(e.file.Exprs.Number(id).Value, ty)

	case ast.ExprString:
		return e.adapter.EmitConstString(e.file.Exprs.String(id).Value)

	case ast.ExprVariable:
		v := e.file.Exprs.Variable(id)
		slot, ok := e.slots[v.Binding]
		if !ok {
			e.ok = false
			return backend.NoValue
		}
		return e.adapter.EmitLoad(slot, ty)

	case ast.ExprNot:
		operand := e.emitExpr(fn, typeArgs, e.file.Exprs.Not(id).Operand)
		return e.adapter.EmitNot(operand)

	case ast.ExprBinary:
		return e.emitBinary(fn, typeArgs, id, ty)

	case ast.ExprMember:
		m := e.file.Exprs.Member(id)
		base := e.emitExpr(fn, typeArgs, m.Source)
		return e.adapter.EmitStructGEP(base, m.FieldIndex, ty)

	case ast.ExprBinding:
		bd := e.file.Exprs.Binding(id)
		initVal := e.emitExpr(fn, typeArgs, bd.Init)
		slot := e.adapter.AllocSlot()
		e.slots[id] = slot
		e.adapter.EmitStore(slot, initVal)
		return e.emitExpr(fn, typeArgs, bd.Body)

	case ast.ExprIf:
		iff := e.file.Exprs.If(id)
		cond := e.emitExpr(fn, typeArgs, iff.Cond)
		thenVal := e.emitExpr(fn, typeArgs, iff.Then)
		elseVal := backend.NoValue
		if iff.Else != ast.NoExprID {
			elseVal = e.emitExpr(fn, typeArgs, iff.Else)
		}
		return e.adapter.EmitBranch(cond, thenVal, elseVal, ty)

	case ast.ExprWhile:
		w := e.file.Exprs.While(id)
		cond := e.emitExpr(fn, typeArgs, w.Cond)
		body := e.emitExpr(fn, typeArgs, w.Body)
		return e.adapter.EmitLoop(cond, body)

	case ast.ExprCall:
		return e.emitCall(fn, typeArgs, id)

	case ast.ExprRegister:
		r := e.file.Exprs.Register(id)
		val := e.emitExpr(fn, typeArgs, r.Source)
		slot := e.adapter.AllocSlot()
		e.slots[id] = slot
		return e.adapter.EmitStore(slot, val)

	case ast.ExprRegisterFunArg:
		slot, ok := e.slots[id]
		if !ok {
			e.ok = false
			return backend.NoValue
		}
		return e.adapter.EmitLoad(slot, ty)

	case ast.ExprArray:
		return e.emitArray(fn, typeArgs, id, ty)

	case ast.ExprConstructor:
		c := e.file.Exprs.Constructor(id)
		vals := make([]backend.Value, len(c.Args))
		for i, a := range c.Args {
			vals[i] = e.emitExpr(fn, typeArgs, a)
		}
		return e.adapter.EmitConstructor(c.StructName, vals, ty)

	case ast.ExprClosure:
		// The definition site of a lifted function is not itself a
		// value-producing statement; the closure's callable identity is
		// resolved at each of its call sites instead (CallData.Closure).
		return backend.NoValue

	default:
		e.ok = false
		return backend.NoValue
	}
}

func (e *emitter) emitBinary(fn *ast.Func, typeArgs []types.TypeID, id ast.ExprID, ty types.TypeID) backend.Value {
	bd := e.file.Exprs.Binary(id)

	switch bd.Op {
	case ast.OpAdd:
		return e.adapter.EmitBinOp(backend.BinOpAdd, e.emitExpr(fn, typeArgs, bd.Left), e.emitExpr(fn, typeArgs, bd.Right), ty)
	case ast.OpSubtract:
		return e.adapter.EmitBinOp(backend.BinOpSubtract, e.emitExpr(fn, typeArgs, bd.Left), e.emitExpr(fn, typeArgs, bd.Right), ty)
	case ast.OpMultiply:
		return e.adapter.EmitBinOp(backend.BinOpMultiply, e.emitExpr(fn, typeArgs, bd.Left), e.emitExpr(fn, typeArgs, bd.Right), ty)
	case ast.OpEq:
		return e.adapter.EmitBinOp(backend.BinOpEq, e.emitExpr(fn, typeArgs, bd.Left), e.emitExpr(fn, typeArgs, bd.Right), ty)
	case ast.OpJoinString:
		return e.adapter.EmitBinOp(backend.BinOpJoinString, e.emitExpr(fn, typeArgs, bd.Left), e.emitExpr(fn, typeArgs, bd.Right), ty)

	case ast.OpSeq:
		a := e.emitExpr(fn, typeArgs, bd.Left)
		b := e.emitExpr(fn, typeArgs, bd.Right)
		return e.adapter.EmitSeq(a, b)

	case ast.OpAssign:
		slot, ok := e.assignTargetSlot(bd.Left)
		if !ok {
			e.ok = false
			return backend.NoValue
		}
		rhs := e.emitExpr(fn, typeArgs, bd.Right)
		return e.adapter.EmitStore(slot, rhs)

	case ast.OpArrayAccess:
		base := e.emitExpr(fn, typeArgs, bd.Left)
		index := e.emitExpr(fn, typeArgs, bd.Right)
		return e.adapter.EmitArrayAccess(base, index, ty)

	default:
		e.ok = false
		return backend.NoValue
	}
}

// assignTargetSlot resolves the mutable storage location an Assign's LHS
// names — always a Variable referencing a `var` Register or Binding, per
// TypeInfer's own isMutable check.
func (e *emitter) assignTargetSlot(id ast.ExprID) (backend.Slot, bool) {
	expr := e.file.Exprs.Get(id)
	if expr == nil || expr.Kind != ast.ExprVariable {
		return backend.NoSlot, false
	}
	v := e.file.Exprs.Variable(id)
	slot, ok := e.slots[v.Binding]
	return slot, ok
}

func (e *emitter) emitArray(fn *ast.Func, typeArgs []types.TypeID, id ast.ExprID, arrayTy types.TypeID) backend.Value {
	a := e.file.Exprs.Array(id)
	size := backend.NoValue
	if a.Size != ast.NoExprID {
		size = e.emitExpr(fn, typeArgs, a.Size)
	}
	def := backend.NoValue
	if a.Default != ast.NoExprID {
		def = e.emitExpr(fn, typeArgs, a.Default)
	}
	t, ok := e.file.Interner.Lookup(arrayTy)
	elemTy := types.NoTypeID
	if ok {
		elemTy = t.Elem
	}
	return e.adapter.EmitArrayAlloc(elemTy, size, def)
}

func (e *emitter) emitCall(fn *ast.Func, typeArgs []types.TypeID, id ast.ExprID) backend.Value {
	c := e.file.Exprs.Call(id)

	args := make([]backend.Value, len(c.Args))
	argTypeIDs := make([]types.TypeID, len(c.Args))
	for i, a := range c.Args {
		args[i] = e.emitExpr(fn, typeArgs, a)
		if argExpr := e.file.Exprs.Get(a); argExpr != nil {
			argTypeIDs[i] = e.resolveType(fn, typeArgs, argExpr.ThisType)
		}
	}

	calleeID := c.Func
	if calleeID == ast.NoFuncID && c.Closure != ast.NoExprID {
		calleeID = e.file.Exprs.Closure(c.Closure).Func
	}
	calleeFn := e.file.Func(calleeID)
	if calleeFn == nil {
		e.ok = false
		return backend.NoValue
	}

	monoKey := ""
	if calleeFn.IsGeneric() {
		monoKey = e.monoKeyForCall(calleeFn, argTypeIDs)
	}
	h, ok := e.lookupHandle(calleeID, monoKey)
	if !ok {
		e.ok = false
		return backend.NoValue
	}
	return e.adapter.EmitCall(h, args)
}

// monoKeyForCall re-derives MatchGenerics' result at a call site: the
// monomorphizer records each reachable Specialization keyed only by its
// final type-argument tuple, not by the per-call-site binding map that
// produced it, so emission re-runs the same structural match against the
// call's now-fully-concrete argument types to find which Specialization to
// call.
func (e *emitter) monoKeyForCall(calleeFn *ast.Func, argTypeIDs []types.TypeID) string {
	generics := make(map[string]bool, len(calleeFn.Generics))
	for _, g := range calleeFn.Generics {
		generics[g] = true
	}
	bindings := make(map[string]types.TypeID, len(calleeFn.Generics))
	for i, id := range argTypeIDs {
		if i >= len(calleeFn.ParamTypePh) {
			break
		}
		matchPlaceholderID(calleeFn.ParamTypePh[i], id, generics, e.file.Interner, bindings)
	}
	parts := make([]string, len(calleeFn.Generics))
	for i, name := range calleeFn.Generics {
		parts[i] = e.file.Interner.Dump(bindings[name])
	}
	return strings.Join(parts, ",")
}

// matchPlaceholderID mirrors internal/mono's matchPlaceholder, but over an
// already-concrete types.TypeID rather than a possibly-still-abstract
// types.SType, since by emission time every call-site argument type is
// concrete.
func matchPlaceholderID(ph *ast.TypePlaceholder, concreteID types.TypeID, generics map[string]bool, interner *types.Interner, out map[string]types.TypeID) {
	if ph == nil || concreteID == types.NoTypeID {
		return
	}
	if generics[ph.Name] {
		if _, already := out[ph.Name]; !already {
			out[ph.Name] = concreteID
		}
		return
	}
	tt, ok := interner.Lookup(concreteID)
	if !ok {
		return
	}
	switch ph.Name {
	case "Array":
		if len(ph.Params) == 1 && tt.Kind == types.KindArray {
			matchPlaceholderID(ph.Params[0], tt.Elem, generics, interner, out)
		}
	case "Ptr":
		if len(ph.Params) == 1 && tt.Kind == types.KindPtr {
			matchPlaceholderID(ph.Params[0], tt.Elem, generics, interner, out)
		}
	}
}
