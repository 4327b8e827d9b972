// Package binder resolves every Variable reference in a File to the
// Register/RegisterFunArg/Binding Expr that introduces it, and every Call
// to the Func it names. It is the first semantic pass, run before
// TypeInfer, and reports SemUnboundName for anything that escapes scope.
package binder

import (
	"fmt"

	"github.com/geraldstanje/spl/internal/ast"
	"github.com/geraldstanje/spl/internal/diag"
)

// Options configures one Bind pass.
type Options struct {
	Reporter diag.Reporter
}

// Result carries whatever bookkeeping callers (TypeInfer in particular)
// want back out; today this is just whether the pass reported anything,
// kept separate from File mutation so a caller can decide whether to
// continue to TypeInfer on a partially-bound file.
type Result struct {
	OK bool
}

// binder mirrors the file + reporter + scope-stack shape.
type binder struct {
	file     *ast.File
	reporter diag.Reporter
	ok       bool

	// scopes is a stack of lexical frames; each frame maps a source name
	// to the ExprID that introduced it (a Register, RegisterFunArg, or
	// Binding). Shadowing simply pushes a new frame.
	scopes []map[string]ast.ExprID
	// funcScopes mirrors scopes but for nested `def` declarations, so a
	// Call can resolve to a sibling or enclosing nested function exactly
	// like a Variable resolves to an enclosing Binding/Register.
	funcScopes []map[string]ast.FuncID
	// funcsByName resolves Call.CalleeName to a top-level Func declaration.
	funcsByName map[string]ast.FuncID
}

// Bind runs name resolution over every top-level and extern Func in file,
// mutating VariableData.Binding and CallData.Func in place.
func Bind(file *ast.File, opts Options) Result {
	b := &binder{
		file:        file,
		reporter:    opts.Reporter,
		ok:          true,
		funcsByName: make(map[string]ast.FuncID, len(file.TopLevel)+len(file.Externs)),
	}
	for _, id := range file.TopLevel {
		if fn := file.Func(id); fn != nil {
			b.funcsByName[fn.Name] = id
		}
	}
	for _, id := range file.Externs {
		if fn := file.Func(id); fn != nil {
			b.funcsByName[fn.Name] = id
		}
	}

	for _, id := range file.TopLevel {
		b.bindFunc(id)
	}
	return Result{OK: b.ok}
}

func (b *binder) pushScope() {
	b.scopes = append(b.scopes, make(map[string]ast.ExprID))
	b.funcScopes = append(b.funcScopes, make(map[string]ast.FuncID))
}

func (b *binder) popScope() {
	b.scopes = b.scopes[:len(b.scopes)-1]
	b.funcScopes = b.funcScopes[:len(b.funcScopes)-1]
}

func (b *binder) declare(name string, expr ast.ExprID) {
	if len(b.scopes) == 0 {
		b.pushScope()
	}
	b.scopes[len(b.scopes)-1][name] = expr
}

func (b *binder) lookup(name string) (ast.ExprID, bool) {
	for i := len(b.scopes) - 1; i >= 0; i-- {
		if id, ok := b.scopes[i][name]; ok {
			return id, true
		}
	}
	return ast.NoExprID, false
}

// declareFunc introduces a nested `def` into the innermost lexical
// scope, before its own body is bound, so sibling statements and the
// function itself (self-recursion) can call it by name.
func (b *binder) declareFunc(name string, id ast.FuncID) {
	if len(b.funcScopes) == 0 {
		b.pushScope()
	}
	b.funcScopes[len(b.funcScopes)-1][name] = id
}

// lookupFunc resolves a callee name against nested `def`s first
// (innermost scope outward), falling back to the file's top-level
// declarations and externs.
func (b *binder) lookupFunc(name string) (ast.FuncID, bool) {
	for i := len(b.funcScopes) - 1; i >= 0; i-- {
		if id, ok := b.funcScopes[i][name]; ok {
			return id, true
		}
	}
	id, ok := b.funcsByName[name]
	return id, ok
}

func (b *binder) bindFunc(id ast.FuncID) {
	fn := b.file.Func(id)
	if fn == nil || fn.IsExtern {
		return
	}
	b.pushScope()
	defer b.popScope()

	for i, name := range fn.Params {
		if i < len(fn.ParamRegs) {
			b.declare(name, fn.ParamRegs[i])
		}
	}
	b.bindExpr(fn.Body)
}

func (b *binder) bindExpr(id ast.ExprID) {
	expr := b.file.Exprs.Get(id)
	if expr == nil {
		return
	}
	switch expr.Kind {
	case ast.ExprVariable:
		v := b.file.Exprs.Variable(id)
		if v == nil {
			return
		}
		bound, ok := b.lookup(v.Name)
		if !ok {
			b.reportUnbound(id, v.Name)
			return
		}
		v.Binding = bound

	case ast.ExprNot:
		n := b.file.Exprs.Not(id)
		b.bindExpr(n.Operand)

	case ast.ExprBinary:
		bin := b.file.Exprs.Binary(id)
		b.bindExpr(bin.Left)
		b.bindExpr(bin.Right)

	case ast.ExprMember:
		m := b.file.Exprs.Member(id)
		b.bindExpr(m.Source)

	case ast.ExprBinding:
		bd := b.file.Exprs.Binding(id)
		b.bindExpr(bd.Init)
		b.pushScope()
		b.declare(bd.Name, id)
		b.bindExpr(bd.Body)
		b.popScope()

	case ast.ExprIf:
		iff := b.file.Exprs.If(id)
		b.bindExpr(iff.Cond)
		b.bindExpr(iff.Then)
		if iff.Else != ast.NoExprID {
			b.bindExpr(iff.Else)
		}

	case ast.ExprWhile:
		w := b.file.Exprs.While(id)
		b.bindExpr(w.Cond)
		b.bindExpr(w.Body)

	case ast.ExprCall:
		c := b.file.Exprs.Call(id)
		if fid, ok := b.lookupFunc(c.CalleeName); ok {
			c.Func = fid
		} else {
			b.reportUnbound(id, c.CalleeName)
		}
		for _, arg := range c.Args {
			b.bindExpr(arg)
		}

	case ast.ExprRegister:
		r := b.file.Exprs.Register(id)
		b.bindExpr(r.Source)
		b.declare(r.Name, id)

	case ast.ExprRegisterFunArg:
		r := b.file.Exprs.RegisterFunArg(id)
		b.declare(r.Name, id)

	case ast.ExprFuncLit:
		fid := b.file.Exprs.FuncLit(id)
		fn := b.file.Func(fid)
		if fn == nil {
			return
		}
		fn.Context = id
		b.declareFunc(fn.Name, fid)
		b.pushScope()
		for i, name := range fn.Params {
			if i < len(fn.ParamRegs) {
				b.declare(name, fn.ParamRegs[i])
			}
		}
		b.bindExpr(fn.Body)
		b.popScope()

	case ast.ExprArray:
		a := b.file.Exprs.Array(id)
		if a.Size != ast.NoExprID {
			b.bindExpr(a.Size)
		}
		if a.Default != ast.NoExprID {
			b.bindExpr(a.Default)
		}

	case ast.ExprConstructor:
		c := b.file.Exprs.Constructor(id)
		for _, arg := range c.Args {
			b.bindExpr(arg)
		}

	case ast.ExprNumber, ast.ExprString:
		// leaves, nothing to bind

	default:
		// ExprClosure only ever appears post-lambda-lift, never here.
	}
}

func (b *binder) reportUnbound(id ast.ExprID, name string) {
	b.ok = false
	if b.reporter == nil {
		return
	}
	span := b.file.Exprs.Get(id).Span
	msg := fmt.Sprintf("%q has no lexical binding in this scope", name)
	if bld := diag.ReportError(b.reporter, diag.SemUnboundName, span, msg); bld != nil {
		bld.Emit()
	}
}
