// Package lambdalift rewrites nested, free-variable-capturing `def`
// expressions into top-level functions plus an explicit closure record at
// the original definition site, so every Func reaching the monomorphizer
// is closed over nothing but its own parameters and file-level globals.
package lambdalift

import (
	"sort"

	"github.com/geraldstanje/spl/internal/ast"
	"github.com/geraldstanje/spl/internal/types"
)

// Options configures one Lift pass. Empty today; kept for symmetry with
// binder.Options/typeinfer.Options and as a home for future knobs (the
// driver wires every pass through an Options struct of its own).
type Options struct{}

// Result reports whether lifting completed; lifting itself cannot fail
// on a well-typed, already-bound program, so OK is always true today —
// kept for symmetry with the other passes' Result types.
type Result struct {
	OK bool
}

type lifter struct {
	file *ast.File
}

// Lift promotes every nested Func in file to the top level, replacing
// each definition site with a Closure and rewriting call sites that
// target it to pass the captured activation record as leading arguments.
func Lift(file *ast.File, _ Options) Result {
	l := &lifter{file: file}
	// Copy TopLevel since liftOne appends to it as it promotes nested
	// Funcs; ranging over the live slice would also walk freshly
	// promoted (and already-lifted) bodies a second time.
	seeds := append([]ast.FuncID(nil), file.TopLevel...)
	for _, id := range seeds {
		fn := file.Func(id)
		if fn == nil || fn.IsExtern {
			continue
		}
		l.walk(fn.Body, fn.Body)
	}
	return Result{OK: true}
}

// walk performs the bottom-up traversal: for every ExprFuncLit it finds,
// it first recurses into that function's own body (lifting anything
// nested inside it), then lifts the function itself. scope is the body
// of the nearest enclosing function still reachable as a single tree from
// id — the one place a sibling call to a def introduced in that scope can
// appear — and is threaded unchanged through every case except
// ExprFuncLit, which opens a fresh scope for what it recurses into.
func (l *lifter) walk(id, scope ast.ExprID) {
	expr := l.file.Exprs.Get(id)
	if expr == nil {
		return
	}
	switch expr.Kind {
	case ast.ExprNot:
		l.walk(l.file.Exprs.Not(id).Operand, scope)

	case ast.ExprBinary:
		bd := l.file.Exprs.Binary(id)
		l.walk(bd.Left, scope)
		l.walk(bd.Right, scope)

	case ast.ExprMember:
		l.walk(l.file.Exprs.Member(id).Source, scope)

	case ast.ExprBinding:
		bd := l.file.Exprs.Binding(id)
		l.walk(bd.Init, scope)
		l.walk(bd.Body, scope)

	case ast.ExprIf:
		iff := l.file.Exprs.If(id)
		l.walk(iff.Cond, scope)
		l.walk(iff.Then, scope)
		if iff.Else != ast.NoExprID {
			l.walk(iff.Else, scope)
		}

	case ast.ExprWhile:
		w := l.file.Exprs.While(id)
		l.walk(w.Cond, scope)
		l.walk(w.Body, scope)

	case ast.ExprCall:
		c := l.file.Exprs.Call(id)
		for _, a := range c.Args {
			l.walk(a, scope)
		}

	case ast.ExprRegister:
		l.walk(l.file.Exprs.Register(id).Source, scope)

	case ast.ExprArray:
		a := l.file.Exprs.Array(id)
		if a.Size != ast.NoExprID {
			l.walk(a.Size, scope)
		}
		if a.Default != ast.NoExprID {
			l.walk(a.Default, scope)
		}

	case ast.ExprConstructor:
		for _, a := range l.file.Exprs.Constructor(id).Args {
			l.walk(a, scope)
		}

	case ast.ExprFuncLit:
		fid := l.file.Exprs.FuncLit(id)
		fn := l.file.Func(fid)
		if fn == nil {
			return
		}
		l.walk(fn.Body, fn.Body)
		l.liftOne(id, fid, scope)

	default:
		// Number, String, Variable, RegisterFunArg, Closure: leaves for
		// this pass's purposes (a Closure's captures were already fixed
		// up when it was created).
	}
}

// liftOne lifts the Func at defSite to the top level. scope is the
// enclosing function body defSite lives in — the one place a sibling
// (non-recursive) call to the function being lifted can appear.
func (l *lifter) liftOne(defSite ast.ExprID, fid ast.FuncID, scope ast.ExprID) {
	fn := l.file.Func(fid)

	locals := make(map[ast.ExprID]bool)
	for _, r := range fn.ParamRegs {
		locals[r] = true
	}
	l.collectLocalDefs(fn.Body, locals)

	freeNames := make(map[string]ast.ExprID)
	var order []string
	l.collectFreeVars(fn.Body, locals, freeNames, &order)
	sort.Strings(order)

	captured := make([]ast.ExprID, len(order))
	newParams := make([]string, len(order))
	newParamRegs := make([]ast.ExprID, len(order))
	newParamTypePh := make([]*ast.TypePlaceholder, len(order))
	newParamTypes := make([]types.SType, len(order))

	for i, name := range order {
		outer := freeNames[name]
		captured[i] = outer
		outerExpr := l.file.Exprs.Get(outer)
		reg := l.file.Exprs.NewRegisterFunArg(outerExpr.Span, name, nil)
		l.file.Exprs.Get(reg).ThisType = outerExpr.ThisType

		newParams[i] = name
		newParamRegs[i] = reg
		newParamTypePh[i] = nil
		newParamTypes[i] = outerExpr.ThisType

		l.rewriteBinding(fn.Body, outer, reg)
	}

	fn.Params = append(newParams, fn.Params...)
	fn.ParamRegs = append(newParamRegs, fn.ParamRegs...)
	fn.ParamTypePh = append(newParamTypePh, fn.ParamTypePh...)
	fn.ParamTypes = append(newParamTypes, fn.ParamTypes...)
	fn.Context = ast.NoExprID

	l.file.TopLevel = append(l.file.TopLevel, fid)

	l.file.Exprs.ReplaceWithClosure(defSite, fid, captured)
	// A sibling call to fid (the ordinary case: `def g() {...}; g()`)
	// lives in the enclosing function's body, a tree defSite sits in but
	// fn.Body does not — so both need their own rewrite pass. A
	// self-recursive call lives in fn.Body instead; scope and fn.Body
	// coincide only when fid is itself a top-level seed calling itself,
	// so guard against rewriting the same tree twice in that case.
	l.rewriteCallsToClosure(scope, fid, defSite, captured)
	if fn.Body != scope {
		l.rewriteCallsToClosure(fn.Body, fid, defSite, captured)
	}
}

// collectLocalDefs records every Register/Binding ExprID introduced
// within body — fn's own scope — without descending into an already
// nested Closure's promoted Func (a separate scope entirely).
func (l *lifter) collectLocalDefs(id ast.ExprID, out map[ast.ExprID]bool) {
	expr := l.file.Exprs.Get(id)
	if expr == nil {
		return
	}
	switch expr.Kind {
	case ast.ExprBinding:
		bd := l.file.Exprs.Binding(id)
		l.collectLocalDefs(bd.Init, out)
		out[id] = true
		l.collectLocalDefs(bd.Body, out)

	case ast.ExprRegister:
		r := l.file.Exprs.Register(id)
		l.collectLocalDefs(r.Source, out)
		out[id] = true

	case ast.ExprNot:
		l.collectLocalDefs(l.file.Exprs.Not(id).Operand, out)

	case ast.ExprBinary:
		bd := l.file.Exprs.Binary(id)
		l.collectLocalDefs(bd.Left, out)
		l.collectLocalDefs(bd.Right, out)

	case ast.ExprMember:
		l.collectLocalDefs(l.file.Exprs.Member(id).Source, out)

	case ast.ExprIf:
		iff := l.file.Exprs.If(id)
		l.collectLocalDefs(iff.Cond, out)
		l.collectLocalDefs(iff.Then, out)
		if iff.Else != ast.NoExprID {
			l.collectLocalDefs(iff.Else, out)
		}

	case ast.ExprWhile:
		w := l.file.Exprs.While(id)
		l.collectLocalDefs(w.Cond, out)
		l.collectLocalDefs(w.Body, out)

	case ast.ExprCall:
		for _, a := range l.file.Exprs.Call(id).Args {
			l.collectLocalDefs(a, out)
		}

	case ast.ExprArray:
		a := l.file.Exprs.Array(id)
		if a.Size != ast.NoExprID {
			l.collectLocalDefs(a.Size, out)
		}
		if a.Default != ast.NoExprID {
			l.collectLocalDefs(a.Default, out)
		}

	case ast.ExprConstructor:
		for _, a := range l.file.Exprs.Constructor(id).Args {
			l.collectLocalDefs(a, out)
		}
	}
}

// collectFreeVars records, for every Variable bound outside locals and
// every already-lifted Closure whose captures reach outside locals, the
// first outer ExprID seen for each distinct name — in order-of-first-use
// for the order slice, which collectFreeVars's caller then sorts for a
// deterministic parameter prefix.
func (l *lifter) collectFreeVars(id ast.ExprID, locals map[ast.ExprID]bool, out map[string]ast.ExprID, order *[]string) {
	expr := l.file.Exprs.Get(id)
	if expr == nil {
		return
	}
	switch expr.Kind {
	case ast.ExprVariable:
		v := l.file.Exprs.Variable(id)
		if v.Binding != ast.NoExprID && !locals[v.Binding] {
			if _, seen := out[v.Name]; !seen {
				out[v.Name] = v.Binding
				*order = append(*order, v.Name)
			}
		}

	case ast.ExprClosure:
		cl := l.file.Exprs.Closure(id)
		for _, c := range cl.Captured {
			if locals[c] {
				continue
			}
			name := l.nameOf(c)
			if name == "" {
				continue
			}
			if _, seen := out[name]; !seen {
				out[name] = c
				*order = append(*order, name)
			}
		}

	case ast.ExprNot:
		l.collectFreeVars(l.file.Exprs.Not(id).Operand, locals, out, order)

	case ast.ExprBinary:
		bd := l.file.Exprs.Binary(id)
		l.collectFreeVars(bd.Left, locals, out, order)
		l.collectFreeVars(bd.Right, locals, out, order)

	case ast.ExprMember:
		l.collectFreeVars(l.file.Exprs.Member(id).Source, locals, out, order)

	case ast.ExprBinding:
		bd := l.file.Exprs.Binding(id)
		l.collectFreeVars(bd.Init, locals, out, order)
		l.collectFreeVars(bd.Body, locals, out, order)

	case ast.ExprIf:
		iff := l.file.Exprs.If(id)
		l.collectFreeVars(iff.Cond, locals, out, order)
		l.collectFreeVars(iff.Then, locals, out, order)
		if iff.Else != ast.NoExprID {
			l.collectFreeVars(iff.Else, locals, out, order)
		}

	case ast.ExprWhile:
		w := l.file.Exprs.While(id)
		l.collectFreeVars(w.Cond, locals, out, order)
		l.collectFreeVars(w.Body, locals, out, order)

	case ast.ExprCall:
		for _, a := range l.file.Exprs.Call(id).Args {
			l.collectFreeVars(a, locals, out, order)
		}

	case ast.ExprRegister:
		l.collectFreeVars(l.file.Exprs.Register(id).Source, locals, out, order)

	case ast.ExprArray:
		a := l.file.Exprs.Array(id)
		if a.Size != ast.NoExprID {
			l.collectFreeVars(a.Size, locals, out, order)
		}
		if a.Default != ast.NoExprID {
			l.collectFreeVars(a.Default, locals, out, order)
		}

	case ast.ExprConstructor:
		for _, a := range l.file.Exprs.Constructor(id).Args {
			l.collectFreeVars(a, locals, out, order)
		}
	}
}

func (l *lifter) nameOf(id ast.ExprID) string {
	expr := l.file.Exprs.Get(id)
	if expr == nil {
		return ""
	}
	switch expr.Kind {
	case ast.ExprRegister:
		return l.file.Exprs.Register(id).Name
	case ast.ExprRegisterFunArg:
		return l.file.Exprs.RegisterFunArg(id).Name
	case ast.ExprBinding:
		return l.file.Exprs.Binding(id).Name
	default:
		return ""
	}
}

// rewriteBinding retargets every Variable bound to old, anywhere in the
// subtree rooted at id, to instead bind to replacement — lambda
// lifting's captured-variable rename.
func (l *lifter) rewriteBinding(id, old, replacement ast.ExprID) {
	expr := l.file.Exprs.Get(id)
	if expr == nil {
		return
	}
	switch expr.Kind {
	case ast.ExprVariable:
		v := l.file.Exprs.Variable(id)
		if v.Binding == old {
			v.Binding = replacement
		}

	case ast.ExprClosure:
		// A Closure nested inside the function currently being lifted
		// may itself have captured old directly (double lifting: the
		// inner Func was lifted first, while old was still free at its
		// definition site). Its Captured slot must follow the same
		// rename as any Variable bound to old, or the inner closure
		// keeps pointing at an activation-record slot that no longer
		// exists once old is replaced here.
		cl := l.file.Exprs.Closure(id)
		for i, c := range cl.Captured {
			if c == old {
				cl.Captured[i] = replacement
			}
		}

	case ast.ExprNot:
		l.rewriteBinding(l.file.Exprs.Not(id).Operand, old, replacement)

	case ast.ExprBinary:
		bd := l.file.Exprs.Binary(id)
		l.rewriteBinding(bd.Left, old, replacement)
		l.rewriteBinding(bd.Right, old, replacement)

	case ast.ExprMember:
		l.rewriteBinding(l.file.Exprs.Member(id).Source, old, replacement)

	case ast.ExprBinding:
		bd := l.file.Exprs.Binding(id)
		l.rewriteBinding(bd.Init, old, replacement)
		l.rewriteBinding(bd.Body, old, replacement)

	case ast.ExprIf:
		iff := l.file.Exprs.If(id)
		l.rewriteBinding(iff.Cond, old, replacement)
		l.rewriteBinding(iff.Then, old, replacement)
		if iff.Else != ast.NoExprID {
			l.rewriteBinding(iff.Else, old, replacement)
		}

	case ast.ExprWhile:
		w := l.file.Exprs.While(id)
		l.rewriteBinding(w.Cond, old, replacement)
		l.rewriteBinding(w.Body, old, replacement)

	case ast.ExprCall:
		// An activation-record argument spliced in by an earlier lift
		// (see liftOne) names its captured slot directly by ExprID
		// rather than through a Variable node, so a slot equal to old
		// is rewritten in place here rather than by recursing into it.
		c := l.file.Exprs.Call(id)
		for i, a := range c.Args {
			if a == old {
				c.Args[i] = replacement
				continue
			}
			l.rewriteBinding(a, old, replacement)
		}

	case ast.ExprRegister:
		l.rewriteBinding(l.file.Exprs.Register(id).Source, old, replacement)

	case ast.ExprArray:
		a := l.file.Exprs.Array(id)
		if a.Size != ast.NoExprID {
			l.rewriteBinding(a.Size, old, replacement)
		}
		if a.Default != ast.NoExprID {
			l.rewriteBinding(a.Default, old, replacement)
		}

	case ast.ExprConstructor:
		for _, a := range l.file.Exprs.Constructor(id).Args {
			l.rewriteBinding(a, old, replacement)
		}
	}
}

// rewriteCallsToClosure finds every Call in id targeting fid and rewires
// it to call through closureSite instead, injecting the activation
// record (captured) as a prefix of the argument list.
func (l *lifter) rewriteCallsToClosure(id ast.ExprID, fid ast.FuncID, closureSite ast.ExprID, captured []ast.ExprID) {
	expr := l.file.Exprs.Get(id)
	if expr == nil {
		return
	}
	switch expr.Kind {
	case ast.ExprCall:
		c := l.file.Exprs.Call(id)
		for _, a := range c.Args {
			l.rewriteCallsToClosure(a, fid, closureSite, captured)
		}
		if c.Func == fid {
			c.Func = ast.NoFuncID
			c.Closure = closureSite
			c.Args = append(append([]ast.ExprID(nil), captured...), c.Args...)
		}

	case ast.ExprNot:
		l.rewriteCallsToClosure(l.file.Exprs.Not(id).Operand, fid, closureSite, captured)

	case ast.ExprBinary:
		bd := l.file.Exprs.Binary(id)
		l.rewriteCallsToClosure(bd.Left, fid, closureSite, captured)
		l.rewriteCallsToClosure(bd.Right, fid, closureSite, captured)

	case ast.ExprMember:
		l.rewriteCallsToClosure(l.file.Exprs.Member(id).Source, fid, closureSite, captured)

	case ast.ExprBinding:
		bd := l.file.Exprs.Binding(id)
		l.rewriteCallsToClosure(bd.Init, fid, closureSite, captured)
		l.rewriteCallsToClosure(bd.Body, fid, closureSite, captured)

	case ast.ExprIf:
		iff := l.file.Exprs.If(id)
		l.rewriteCallsToClosure(iff.Cond, fid, closureSite, captured)
		l.rewriteCallsToClosure(iff.Then, fid, closureSite, captured)
		if iff.Else != ast.NoExprID {
			l.rewriteCallsToClosure(iff.Else, fid, closureSite, captured)
		}

	case ast.ExprWhile:
		w := l.file.Exprs.While(id)
		l.rewriteCallsToClosure(w.Cond, fid, closureSite, captured)
		l.rewriteCallsToClosure(w.Body, fid, closureSite, captured)

	case ast.ExprRegister:
		l.rewriteCallsToClosure(l.file.Exprs.Register(id).Source, fid, closureSite, captured)

	case ast.ExprArray:
		a := l.file.Exprs.Array(id)
		if a.Size != ast.NoExprID {
			l.rewriteCallsToClosure(a.Size, fid, closureSite, captured)
		}
		if a.Default != ast.NoExprID {
			l.rewriteCallsToClosure(a.Default, fid, closureSite, captured)
		}

	case ast.ExprConstructor:
		for _, a := range l.file.Exprs.Constructor(id).Args {
			l.rewriteCallsToClosure(a, fid, closureSite, captured)
		}
	}
}
