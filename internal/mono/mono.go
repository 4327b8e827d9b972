// Package mono implements the monomorphizer: it walks every function
// reachable from the program's entry points, collecting the concrete
// type tuple each call site demands of a generic callee (FindCalls plus
// MatchGenerics) and records one Specialization per distinct reachable
// (Func, type-tuple) pair. Actual backend emission happens later, driven
// off the Specializations this pass populates.
package mono

import (
	"fmt"
	"strings"

	"github.com/geraldstanje/spl/internal/ast"
	"github.com/geraldstanje/spl/internal/diag"
	"github.com/geraldstanje/spl/internal/source"
	"github.com/geraldstanje/spl/internal/types"
)

// Options configures one Monomorphize pass.
type Options struct {
	Reporter diag.Reporter
	// MaxDepth bounds the instantiation stack as a hard backstop behind
	// the structural UnboundedGenericRecursion check; defaults to 64 when
	// zero.
	MaxDepth int
	// EnableDCE narrows the worklist's seed set to just the file's
	// "main" entry point (when one exists) instead of every non-generic
	// top-level Func. Since ensure() is already a reachability walk,
	// narrowing the seeds is the whole sweep: anything not transitively
	// reachable from main simply never receives a Specialization, so
	// there is nothing separate left to prune before emission.
	// OFF by default — every non-generic top-level Func is its own
	// root, matching a library with no single entry point.
	EnableDCE bool
}

// Result reports whether the pass completed without an unrecoverable
// UnboundedGenericRecursion.
type Result struct {
	OK bool
}

type monomorphizer struct {
	file     *ast.File
	reporter diag.Reporter
	maxDepth int
	ok       bool

	done map[string]bool
}

// Monomorphize seeds the worklist from every non-generic top-level Func
// (with EnableDCE, from the program's designated main alone when there is
// one), then expands reachable generic call sites to a fixed point.
// Externs are never seeded and never receive a Specialization.
func Monomorphize(file *ast.File, opts Options) Result {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 64
	}
	m := &monomorphizer{
		file:     file,
		reporter: opts.Reporter,
		maxDepth: opts.MaxDepth,
		ok:       true,
		done:     make(map[string]bool),
	}
	if opts.EnableDCE {
		if mainID, ok := findMain(file); ok {
			m.ensure(mainID, nil, nil)
			return Result{OK: m.ok}
		}
		// No designated entry point to sweep from — every non-generic
		// top-level Func is its own root, same as the DCE-off path.
	}
	for _, fid := range file.TopLevel {
		fn := file.Func(fid)
		if fn == nil || fn.IsGeneric() {
			continue
		}
		m.ensure(fid, nil, nil)
	}
	return Result{OK: m.ok}
}

// findMain locates a non-generic, non-extern top-level Func named "main".
func findMain(file *ast.File) (ast.FuncID, bool) {
	for _, fid := range file.TopLevel {
		fn := file.Func(fid)
		if fn != nil && !fn.IsGeneric() && !fn.IsExtern && fn.Name == "main" {
			return fid, true
		}
	}
	return ast.NoFuncID, false
}

// key uniquely identifies one (Func, type-tuple) pair.
func (m *monomorphizer) key(fid ast.FuncID, argsKey string) string {
	return fmt.Sprintf("%d|%s", fid, argsKey)
}

func (m *monomorphizer) argsKey(args []types.SType) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = types.Dump(m.file.Interner, a)
	}
	return strings.Join(parts, ",")
}

func (m *monomorphizer) typeIDs(args []types.SType) []types.TypeID {
	if len(args) == 0 {
		return nil
	}
	out := make([]types.TypeID, len(args))
	for i, a := range args {
		if id, ok := types.IsConcrete(a); ok {
			out[i] = id
		}
	}
	return out
}

// ensure emits the Specialization for (fid, args) if not already recorded,
// then expands its body's call sites — unless fid names an Extern, which
// is never specialized.
func (m *monomorphizer) ensure(fid ast.FuncID, args []types.SType, stack []string) {
	fn := m.file.Func(fid)
	if fn == nil || fn.IsExtern {
		return
	}

	argsKey := m.argsKey(args)
	k := m.key(fid, argsKey)
	if m.done[k] {
		return
	}
	if len(stack) >= m.maxDepth {
		m.reportUnboundedRecursion(fn, argsKey)
		return
	}
	prefix := fmt.Sprintf("%d|", fid)
	for _, prior := range stack {
		if !strings.HasPrefix(prior, prefix) {
			continue
		}
		priorArgs := strings.TrimPrefix(prior, prefix)
		if priorArgs != "" && priorArgs != argsKey && strings.Contains(argsKey, priorArgs) {
			m.reportUnboundedRecursion(fn, argsKey)
			return
		}
	}

	m.done[k] = true
	fn.Specialize(argsKey, m.typeIDs(args))
	m.findCalls(fn, args, append(append([]string(nil), stack...), k))
}

// substitute resolves t against fn's own generic environment: if t
// (after walking Generic.Binding chains) names one of fn's declared
// generic parameters, it returns the concrete type bound to that
// parameter in the current instantiation (args, ordered as fn.Generics);
// otherwise t is already concrete and is returned unchanged.
func substitute(fn *ast.Func, args []types.SType, t types.SType) types.SType {
	resolved := types.Resolve(t)
	g, ok := resolved.(*types.Generic)
	if !ok {
		return resolved
	}
	for i, name := range fn.Generics {
		if name == g.Name && i < len(args) {
			return args[i]
		}
	}
	return resolved
}

// findCalls walks fn's body (already lambda-lifted, so every callee is
// either a plain Func or a Closure over one) collecting direct Calls and
// recursively ensure()-ing their concrete instantiations.
func (m *monomorphizer) findCalls(fn *ast.Func, args []types.SType, stack []string) {
	m.walkCalls(fn, args, fn.Body, stack)
}

func (m *monomorphizer) walkCalls(fn *ast.Func, args []types.SType, id ast.ExprID, stack []string) {
	expr := m.file.Exprs.Get(id)
	if expr == nil {
		return
	}
	switch expr.Kind {
	case ast.ExprNot:
		m.walkCalls(fn, args, m.file.Exprs.Not(id).Operand, stack)

	case ast.ExprBinary:
		bd := m.file.Exprs.Binary(id)
		m.walkCalls(fn, args, bd.Left, stack)
		m.walkCalls(fn, args, bd.Right, stack)

	case ast.ExprMember:
		m.walkCalls(fn, args, m.file.Exprs.Member(id).Source, stack)

	case ast.ExprBinding:
		bd := m.file.Exprs.Binding(id)
		m.walkCalls(fn, args, bd.Init, stack)
		m.walkCalls(fn, args, bd.Body, stack)

	case ast.ExprIf:
		iff := m.file.Exprs.If(id)
		m.walkCalls(fn, args, iff.Cond, stack)
		m.walkCalls(fn, args, iff.Then, stack)
		if iff.Else != ast.NoExprID {
			m.walkCalls(fn, args, iff.Else, stack)
		}

	case ast.ExprWhile:
		w := m.file.Exprs.While(id)
		m.walkCalls(fn, args, w.Cond, stack)
		m.walkCalls(fn, args, w.Body, stack)

	case ast.ExprCall:
		c := m.file.Exprs.Call(id)
		for _, a := range c.Args {
			m.walkCalls(fn, args, a, stack)
		}
		m.resolveCall(fn, args, c, stack)

	case ast.ExprRegister:
		m.walkCalls(fn, args, m.file.Exprs.Register(id).Source, stack)

	case ast.ExprArray:
		a := m.file.Exprs.Array(id)
		if a.Size != ast.NoExprID {
			m.walkCalls(fn, args, a.Size, stack)
		}
		if a.Default != ast.NoExprID {
			m.walkCalls(fn, args, a.Default, stack)
		}

	case ast.ExprConstructor:
		for _, a := range m.file.Exprs.Constructor(id).Args {
			m.walkCalls(fn, args, a, stack)
		}
	}
}

func (m *monomorphizer) resolveCall(callerFn *ast.Func, callerArgs []types.SType, c *ast.CallData, stack []string) {
	calleeID := c.Func
	if calleeID == ast.NoFuncID && c.Closure != ast.NoExprID {
		calleeID = m.file.Exprs.Closure(c.Closure).Func
	}
	if calleeID == ast.NoFuncID {
		return
	}
	calleeFn := m.file.Func(calleeID)
	if calleeFn == nil || calleeFn.IsExtern {
		return
	}
	if !calleeFn.IsGeneric() {
		m.ensure(calleeID, nil, stack)
		return
	}

	generics := make(map[string]bool, len(calleeFn.Generics))
	for _, g := range calleeFn.Generics {
		generics[g] = true
	}
	bindings := make(map[string]types.SType, len(calleeFn.Generics))
	for i, argExpr := range c.Args {
		if i >= len(calleeFn.ParamTypePh) {
			break
		}
		expr := m.file.Exprs.Get(argExpr)
		if expr == nil {
			continue
		}
		concreteArg := substitute(callerFn, callerArgs, expr.ThisType)
		matchPlaceholder(calleeFn.ParamTypePh[i], concreteArg, generics, m.file.Interner, bindings)
	}

	tuple := make([]types.SType, len(calleeFn.Generics))
	for i, name := range calleeFn.Generics {
		tuple[i] = bindings[name]
	}
	m.ensure(calleeID, tuple, stack)
}

// matchPlaceholder implements MatchGenerics: walk the callee's declared
// (unresolved) parameter syntax and the call site's concrete type in
// lock-step, binding each generic name it encounters.
func matchPlaceholder(ph *ast.TypePlaceholder, concrete types.SType, generics map[string]bool, interner *types.Interner, out map[string]types.SType) {
	if ph == nil || concrete == nil {
		return
	}
	if generics[ph.Name] {
		if _, already := out[ph.Name]; !already {
			out[ph.Name] = concrete
		}
		return
	}
	id, ok := types.IsConcrete(concrete)
	if !ok {
		return
	}
	tt, ok := interner.Lookup(id)
	if !ok {
		return
	}
	switch ph.Name {
	case "Array":
		if len(ph.Params) == 1 && tt.Kind == types.KindArray {
			matchPlaceholder(ph.Params[0], types.Concrete(tt.Elem), generics, interner, out)
		}
	case "Ptr":
		if len(ph.Params) == 1 && tt.Kind == types.KindPtr {
			matchPlaceholder(ph.Params[0], types.Concrete(tt.Elem), generics, interner, out)
		}
	}
}

func (m *monomorphizer) reportUnboundedRecursion(fn *ast.Func, argsKey string) {
	m.ok = false
	if m.reporter == nil {
		return
	}
	msg := fmt.Sprintf("specialization chain for %q strictly grows (reached %s)", fn.Name, argsKey)
	if bld := diag.ReportError(m.reporter, diag.SemUnboundedGenericRecursion, source.Span{}, msg); bld != nil {
		bld.Emit()
	}
}
