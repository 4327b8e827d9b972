// Package typeinfer implements SPL's two-phase Hindley-Milner-style type
// inference: phase 1 walks the AST bottom-up contributing equality
// constraints and provisional types per the per-expression rules, phase 2
// unifies those constraints to a fixed point, and phase 3 resolves the
// Member/ArrayAccess nodes that had to be deferred until their source
// expression's type became concrete.
package typeinfer

import (
	"fmt"

	"github.com/geraldstanje/spl/internal/ast"
	"github.com/geraldstanje/spl/internal/diag"
	"github.com/geraldstanje/spl/internal/source"
	"github.com/geraldstanje/spl/internal/types"
)

// Options configures one Infer pass.
type Options struct {
	Reporter diag.Reporter
}

// Result reports whether inference completed without error.
type Result struct {
	OK bool
}

type constraint struct {
	at   types.SType
	bt   types.SType
	span source.Span
	code diag.Code
	msg  string
}

type purityFrame struct {
	purity ast.Purity
}

type inferer struct {
	file     *ast.File
	reporter diag.Reporter
	ok       bool

	constraints []constraint
	members     []ast.ExprID
	arrayAccess []ast.ExprID

	purityStack []purityFrame
}

// Infer runs type inference over every top-level Func in file (Bind must
// have already run). It mutates Expr.ThisType and Func.ParamTypes/RetType
// in place.
func Infer(file *ast.File, opts Options) Result {
	inf := &inferer{file: file, reporter: opts.Reporter, ok: true}

	inf.registerStructs()

	for _, id := range file.Externs {
		inf.resolveFuncSignature(id)
	}
	for _, id := range file.TopLevel {
		inf.resolveFuncSignature(id)
	}
	for _, id := range file.TopLevel {
		inf.inferFunc(id)
	}

	inf.unifyAll()
	inf.resolveDeferred()

	return Result{OK: inf.ok}
}

func (inf *inferer) registerStructs() {
	for _, sd := range inf.file.Structs {
		fields := make([]types.StructField, 0, len(sd.Fields))
		for _, fd := range sd.Fields {
			st, err := fd.TypePh.Resolve(inf.file.Interner, nil)
			if err != nil {
				inf.ok = false
				continue
			}
			id, ok := types.IsConcrete(st)
			if !ok {
				inf.ok = false
				continue
			}
			fields = append(fields, types.StructField{Name: fd.Name, Type: id})
		}
		inf.file.Interner.RegisterStruct(sd.Name, fields)
	}
}

// resolveFuncSignature resolves a Func's own ParamTypePh/RetTypePh once,
// using one canonical fresh Generic per declared type parameter, and
// stamps each RegisterFunArg with its resolved type — this is the
// environment the Func's *body* type-checks against.
func (inf *inferer) resolveFuncSignature(id ast.FuncID) {
	fn := inf.file.Func(id)
	if fn == nil || fn.RetType != nil {
		return // already resolved (externs and top-level may overlap via Call pre-pass)
	}
	env := fn.FreshGenericEnv(inf.file.Generics)

	fn.ParamTypes = make([]types.SType, len(fn.ParamTypePh))
	for i, ph := range fn.ParamTypePh {
		st, err := ph.Resolve(inf.file.Interner, env)
		if err != nil {
			inf.ok = false
			continue
		}
		fn.ParamTypes[i] = st
		if i < len(fn.ParamRegs) {
			if reg := inf.file.Exprs.Get(fn.ParamRegs[i]); reg != nil {
				reg.ThisType = st
			}
		}
	}
	if fn.RetTypePh != nil {
		st, err := fn.RetTypePh.Resolve(inf.file.Interner, env)
		if err != nil {
			inf.ok = false
		} else {
			fn.RetType = st
		}
	}
	if fn.RetType == nil {
		fn.RetType = types.Concrete(inf.file.Interner.Builtins().Void)
	}
}

func (inf *inferer) inferFunc(id ast.FuncID) {
	fn := inf.file.Func(id)
	if fn == nil || fn.IsExtern {
		return
	}
	inf.purityStack = append(inf.purityStack, purityFrame{purity: fn.Purity})
	defer func() { inf.purityStack = inf.purityStack[:len(inf.purityStack)-1] }()

	bodyType := inf.contribute(fn.Body)
	inf.addConstraint(bodyType, fn.RetType, inf.spanOf(fn.Body), diag.SemTypeMismatch,
		fmt.Sprintf("function %q's body type must match its declared return type", fn.Name))
}

// boundNameType returns the type a Variable referencing bound must equal:
// for a Binding this is the declared name's own type (VarType), which
// differs from the Binding's own Expr.ThisType (the let-expression's
// overall result type); for every other definer (Register,
// RegisterFunArg) the envelope's ThisType already is the name's type.
func (inf *inferer) boundNameType(bound ast.ExprID) types.SType {
	expr := inf.file.Exprs.Get(bound)
	if expr == nil {
		return nil
	}
	if expr.Kind == ast.ExprBinding {
		return inf.file.Exprs.Binding(bound).VarType
	}
	return expr.ThisType
}

func (inf *inferer) spanOf(id ast.ExprID) source.Span {
	if ex := inf.file.Exprs.Get(id); ex != nil {
		return ex.Span
	}
	return source.Span{}
}

func (inf *inferer) builtins() types.Builtins { return inf.file.Interner.Builtins() }

func (inf *inferer) concreteBuiltin(id types.TypeID) types.SType { return types.Concrete(id) }

// contribute implements phase 1: it assigns expr.ThisType (possibly a
// placeholder Generic to be pinned down in phase 2) and returns that type
// for the caller to use in its own constraints. Runs post-order, so a
// node's children are always fully contributed before the node itself.
func (inf *inferer) contribute(id ast.ExprID) types.SType {
	expr := inf.file.Exprs.Get(id)
	if expr == nil {
		return nil
	}
	b := inf.builtins()

	var this types.SType
	switch expr.Kind {
	case ast.ExprNumber:
		this = inf.concreteBuiltin(b.Int32)

	case ast.ExprString:
		this = inf.concreteBuiltin(b.String)

	case ast.ExprVariable:
		v := inf.file.Exprs.Variable(id)
		this = inf.file.Generics.Fresh("var")
		if v.Binding != ast.NoExprID {
			boundType := inf.boundNameType(v.Binding)
			if boundType != nil {
				inf.addConstraint(this, boundType, expr.Span, diag.SemTypeMismatch,
					fmt.Sprintf("reference to %q does not match its binding's type", v.Name))
			}
		}

	case ast.ExprNot:
		n := inf.file.Exprs.Not(id)
		operand := inf.contribute(n.Operand)
		inf.addConstraint(operand, inf.concreteBuiltin(b.Bool), inf.spanOf(n.Operand), diag.SemTypeMismatch,
			"operand of `not` must be Bool")
		this = inf.concreteBuiltin(b.Bool)

	case ast.ExprBinary:
		this = inf.contributeBinary(id)

	case ast.ExprMember:
		m := inf.file.Exprs.Member(id)
		inf.contribute(m.Source)
		this = inf.file.Generics.Fresh("member")
		inf.members = append(inf.members, id)

	case ast.ExprBinding:
		bd := inf.file.Exprs.Binding(id)
		bd.VarType = inf.contribute(bd.Init)
		this = inf.contribute(bd.Body)

	case ast.ExprIf:
		iff := inf.file.Exprs.If(id)
		cond := inf.contribute(iff.Cond)
		inf.addConstraint(cond, inf.concreteBuiltin(b.Bool), inf.spanOf(iff.Cond), diag.SemTypeMismatch,
			"`if` condition must be Bool")
		thenType := inf.contribute(iff.Then)
		this = thenType
		if iff.Else != ast.NoExprID {
			elseType := inf.contribute(iff.Else)
			inf.addConstraint(thenType, elseType, expr.Span, diag.SemTypeMismatch,
				"`if` branches must have the same type")
		}

	case ast.ExprWhile:
		w := inf.file.Exprs.While(id)
		cond := inf.contribute(w.Cond)
		inf.addConstraint(cond, inf.concreteBuiltin(b.Bool), inf.spanOf(w.Cond), diag.SemTypeMismatch,
			"`while` condition must be Bool")
		inf.contribute(w.Body)
		this = inf.concreteBuiltin(b.Void)

	case ast.ExprCall:
		this = inf.contributeCall(id)

	case ast.ExprRegister:
		r := inf.file.Exprs.Register(id)
		this = inf.contribute(r.Source)

	case ast.ExprRegisterFunArg:
		// Resolved up front by resolveFuncSignature; ThisType already set.
		this = expr.ThisType

	case ast.ExprFuncLit:
		fid := inf.file.Exprs.FuncLit(id)
		inf.resolveFuncSignature(fid)
		inf.inferFunc(fid)
		fn := inf.file.Func(fid)
		args := make([]types.TypeID, 0, len(fn.ParamTypes))
		for _, pt := range fn.ParamTypes {
			if ptID, ok := types.IsConcrete(pt); ok {
				args = append(args, ptID)
			}
		}
		retID, _ := types.IsConcrete(fn.RetType)
		this = inf.concreteBuiltin(inf.file.Interner.RegisterFn(args, retID))

	case ast.ExprArray:
		this = inf.contributeArray(id)

	case ast.ExprConstructor:
		this = inf.contributeConstructor(id)

	default:
		this = inf.file.Generics.Fresh("?")
	}

	expr.ThisType = this
	return this
}

func (inf *inferer) contributeBinary(id ast.ExprID) types.SType {
	expr := inf.file.Exprs.Get(id)
	bd := inf.file.Exprs.Binary(id)
	b := inf.builtins()

	switch bd.Op {
	case ast.OpAdd, ast.OpSubtract, ast.OpMultiply:
		lhs := inf.contribute(bd.Left)
		rhs := inf.contribute(bd.Right)
		inf.addConstraint(lhs, rhs, expr.Span, diag.SemTypeMismatch, "operands must have the same type")
		return lhs

	case ast.OpEq:
		lhs := inf.contribute(bd.Left)
		rhs := inf.contribute(bd.Right)
		inf.addConstraint(lhs, rhs, expr.Span, diag.SemTypeMismatch, "`==` operands must have the same type")
		return inf.concreteBuiltin(b.Bool)

	case ast.OpJoinString:
		lhs := inf.contribute(bd.Left)
		rhs := inf.contribute(bd.Right)
		str := inf.concreteBuiltin(b.String)
		inf.addConstraint(lhs, str, inf.spanOf(bd.Left), diag.SemTypeMismatch, "`++` operand must be String")
		inf.addConstraint(rhs, str, inf.spanOf(bd.Right), diag.SemTypeMismatch, "`++` operand must be String")
		return str

	case ast.OpSeq:
		inf.contribute(bd.Left)
		return inf.contribute(bd.Right)

	case ast.OpAssign:
		target := inf.file.Exprs.Get(bd.Left)
		if !inf.isMutable(bd.Left) {
			inf.reportAt(diag.SemAssignToImmutable, target.Span, "assignment target is not mutable")
		}
		lhs := inf.contribute(bd.Left)
		rhs := inf.contribute(bd.Right)
		inf.addConstraint(lhs, rhs, expr.Span, diag.SemTypeMismatch, "assignment sides must have the same type")
		return lhs

	case ast.OpArrayAccess:
		inf.contribute(bd.Left)
		idx := inf.contribute(bd.Right)
		inf.addConstraint(idx, inf.concreteBuiltin(b.Int32), inf.spanOf(bd.Right), diag.SemTypeMismatch,
			"array index must be Int32")
		this := inf.file.Generics.Fresh("elem")
		inf.arrayAccess = append(inf.arrayAccess, id)
		return this

	default:
		return inf.file.Generics.Fresh("?")
	}
}

// isMutable reports whether the left-hand side of an Assign is a
// mutable storage slot: a Register/Binding declared `var`, or (through a
// Variable) bound to one.
func (inf *inferer) isMutable(id ast.ExprID) bool {
	expr := inf.file.Exprs.Get(id)
	if expr == nil {
		return false
	}
	switch expr.Kind {
	case ast.ExprRegister:
		return inf.file.Exprs.Register(id).Mutable
	case ast.ExprVariable:
		v := inf.file.Exprs.Variable(id)
		if v.Binding == ast.NoExprID {
			return false
		}
		return inf.isMutable(v.Binding)
	case ast.ExprBinding:
		return inf.file.Exprs.Binding(id).Mutable
	default:
		return false
	}
}

func (inf *inferer) contributeCall(id ast.ExprID) types.SType {
	expr := inf.file.Exprs.Get(id)
	c := inf.file.Exprs.Call(id)

	argTypes := make([]types.SType, len(c.Args))
	for i, a := range c.Args {
		argTypes[i] = inf.contribute(a)
	}

	fn := inf.file.Func(c.Func)
	if fn == nil {
		return inf.file.Generics.Fresh("call")
	}

	if len(c.Args) != len(fn.Params) {
		inf.reportAt(diag.SemArityMismatch, expr.Span,
			fmt.Sprintf("call to %q passes %d argument(s), want %d", fn.Name, len(c.Args), len(fn.Params)))
		return inf.file.Generics.Fresh("call")
	}

	if len(inf.purityStack) > 0 {
		caller := inf.purityStack[len(inf.purityStack)-1].purity
		if caller == ast.Pure && (fn.Purity == ast.Impure || fn.Purity == ast.FunIO) {
			inf.reportAt(diag.SemPurityViolation, expr.Span,
				fmt.Sprintf("pure function calls %q, which is %s", fn.Name, fn.Purity))
		}
	}

	paramTypes := fn.ParamTypes
	retType := fn.RetType
	if fn.IsGeneric() {
		env := fn.FreshGenericEnv(inf.file.Generics)
		paramTypes = make([]types.SType, len(fn.ParamTypePh))
		for i, ph := range fn.ParamTypePh {
			st, err := ph.Resolve(inf.file.Interner, env)
			if err == nil {
				paramTypes[i] = st
			}
		}
		if fn.RetTypePh != nil {
			st, err := fn.RetTypePh.Resolve(inf.file.Interner, env)
			if err == nil {
				retType = st
			}
		}
	}

	for i, at := range argTypes {
		if i < len(paramTypes) && paramTypes[i] != nil {
			inf.addConstraint(at, paramTypes[i], inf.spanOf(c.Args[i]), diag.SemTypeMismatch,
				fmt.Sprintf("argument %d to %q has the wrong type", i+1, fn.Name))
		}
	}
	return retType
}

func (inf *inferer) contributeArray(id ast.ExprID) types.SType {
	a := inf.file.Exprs.Array(id)
	b := inf.builtins()

	elem, err := a.ElemTypePh.Resolve(inf.file.Interner, nil)
	if err != nil {
		inf.ok = false
		elem = inf.file.Generics.Fresh("elem")
	}
	if a.Size != ast.NoExprID {
		size := inf.contribute(a.Size)
		inf.addConstraint(size, inf.concreteBuiltin(b.Int32), inf.spanOf(a.Size), diag.SemTypeMismatch,
			"array size must be Int32")
	}
	if a.Default != ast.NoExprID {
		def := inf.contribute(a.Default)
		inf.addConstraint(def, elem, inf.spanOf(a.Default), diag.SemTypeMismatch,
			"array default value must match the element type")
	}
	elemID, ok := types.IsConcrete(elem)
	if !ok {
		return inf.file.Generics.Fresh("array")
	}
	return inf.concreteBuiltin(inf.file.Interner.RegisterArray(elemID))
}

func (inf *inferer) contributeConstructor(id ast.ExprID) types.SType {
	expr := inf.file.Exprs.Get(id)
	c := inf.file.Exprs.Constructor(id)

	structID, ok := inf.file.Interner.LookupStructByName(c.StructName)
	if !ok {
		inf.reportAt(diag.SemUnknownField, expr.Span, fmt.Sprintf("unknown struct type %q", c.StructName))
		for _, a := range c.Args {
			inf.contribute(a)
		}
		return inf.file.Generics.Fresh("ctor")
	}
	info, _ := inf.file.Interner.StructInfo(structID)

	for i, a := range c.Args {
		at := inf.contribute(a)
		if i < len(info.Fields) {
			inf.addConstraint(at, inf.concreteBuiltin(info.Fields[i].Type), inf.spanOf(a), diag.SemTypeMismatch,
				fmt.Sprintf("field %q of %q has the wrong type", info.Fields[i].Name, c.StructName))
		}
	}
	return inf.concreteBuiltin(structID)
}

func (inf *inferer) addConstraint(a, b types.SType, span source.Span, code diag.Code, msg string) {
	if a == nil || b == nil {
		return
	}
	inf.constraints = append(inf.constraints, constraint{at: a, bt: b, span: span, code: code, msg: msg})
}

func (inf *inferer) reportAt(code diag.Code, span source.Span, msg string) {
	inf.ok = false
	if inf.reporter == nil {
		return
	}
	if b := diag.ReportError(inf.reporter, code, span, msg); b != nil {
		b.Emit()
	}
}

// unifyAll drains the constraint queue to a fixed point (phase 2). Since
// unification only ever narrows a Generic's binding and never widens, a
// single pass over the (static) queue suffices: every constraint's
// endpoints were already contributed before unifyAll runs.
func (inf *inferer) unifyAll() {
	for _, c := range inf.constraints {
		inf.unify(c.at, c.bt, c.span, c.code, c.msg)
	}
}

func (inf *inferer) unify(a, b types.SType, span source.Span, code diag.Code, msg string) {
	ra := types.Resolve(a)
	rb := types.Resolve(b)

	ga, aIsGeneric := ra.(*types.Generic)
	gb, bIsGeneric := rb.(*types.Generic)

	switch {
	case !aIsGeneric && !bIsGeneric:
		ca, _ := ra.(types.Concrete)
		cb, _ := rb.(types.Concrete)
		if !inf.file.Interner.Equal(types.TypeID(ca), types.TypeID(cb)) {
			inf.reportAt(code, span, fmt.Sprintf("%s: %s vs %s", msg,
				inf.file.Interner.Dump(types.TypeID(ca)), inf.file.Interner.Dump(types.TypeID(cb))))
		}
	case aIsGeneric && !bIsGeneric:
		ga.Binding = rb
	case !aIsGeneric && bIsGeneric:
		gb.Binding = ra
	default:
		// both unbound Generics: tie-break deterministically by id so
		// repeated runs produce the same binding direction.
		if ga.ID <= gb.ID {
			gb.Binding = ga
		} else {
			ga.Binding = gb
		}
	}
}

// resolveDeferred implements phase 3: it loops ResolveMembers and
// ResolveArrayAccesses to a fixed point, since resolving one node's type
// can be exactly what another deferred node's source was waiting on.
func (inf *inferer) resolveDeferred() {
	for {
		progressed := false
		progressed = inf.resolveMembers() || progressed
		progressed = inf.resolveArrayAccesses() || progressed
		if !progressed {
			break
		}
	}
	for _, id := range inf.members {
		expr := inf.file.Exprs.Get(id)
		if expr.ThisType == nil {
			inf.reportAt(diag.SemCannotInferMemberType, expr.Span, "member access source type never resolved")
		}
	}
	for _, id := range inf.arrayAccess {
		expr := inf.file.Exprs.Get(id)
		if expr.ThisType == nil {
			inf.reportAt(diag.SemCannotInferArrayAccess, expr.Span, "array access source is not Array<_>")
		}
	}
}

func (inf *inferer) resolveMembers() bool {
	progressed := false
	for _, id := range inf.members {
		expr := inf.file.Exprs.Get(id)
		if expr.ThisType != nil {
			if _, ok := expr.ThisType.(*types.Generic); !ok {
				continue
			}
		}
		m := inf.file.Exprs.Member(id)
		srcExpr := inf.file.Exprs.Get(m.Source)
		srcID, ok := types.IsConcrete(srcExpr.ThisType)
		if !ok {
			continue
		}
		structInfo, ok := inf.file.Interner.StructInfo(srcID)
		if !ok {
			inf.reportAt(diag.SemCannotInferMemberType, expr.Span, "member access source is not a struct")
			expr.ThisType = types.Concrete(inf.file.Interner.Builtins().Void)
			progressed = true
			continue
		}
		idx, ok := inf.file.Interner.FieldIndex(srcID, m.Field)
		if !ok {
			inf.reportAt(diag.SemUnknownField, expr.Span, fmt.Sprintf("struct %q has no field %q", structInfo.Name, m.Field))
			expr.ThisType = types.Concrete(inf.file.Interner.Builtins().Void)
			progressed = true
			continue
		}
		m.FieldIndex = idx
		expr.ThisType = types.Concrete(structInfo.Fields[idx].Type)
		progressed = true
	}
	return progressed
}

func (inf *inferer) resolveArrayAccesses() bool {
	progressed := false
	for _, id := range inf.arrayAccess {
		expr := inf.file.Exprs.Get(id)
		if expr.ThisType != nil {
			if _, ok := expr.ThisType.(*types.Generic); !ok {
				continue
			}
		}
		bd := inf.file.Exprs.Binary(id)
		srcExpr := inf.file.Exprs.Get(bd.Left)
		srcID, ok := types.IsConcrete(srcExpr.ThisType)
		if !ok {
			continue
		}
		ty, ok := inf.file.Interner.Lookup(srcID)
		if !ok || ty.Kind != types.KindArray {
			inf.reportAt(diag.SemCannotInferArrayAccess, expr.Span, "array access source is not Array<_>")
			expr.ThisType = types.Concrete(inf.file.Interner.Builtins().Void)
			progressed = true
			continue
		}
		expr.ThisType = types.Concrete(ty.Elem)
		progressed = true
	}
	return progressed
}
