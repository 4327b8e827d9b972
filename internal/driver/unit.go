// Package driver sequences one compilation unit's six passes — parse
// (which drives the lexer), Bind, TypeInfer, LambdaLift, Monomorphize,
// Emit — and runs
// independent units concurrently: a *source.FileSet shared across units,
// one errgroup-bounded goroutine per file, plus a disk-backed build
// cache keyed by file content hash.
package driver

import (
	"github.com/geraldstanje/spl/internal/ast"
	"github.com/geraldstanje/spl/internal/backend"
	"github.com/geraldstanje/spl/internal/backend/memir"
	"github.com/geraldstanje/spl/internal/binder"
	"github.com/geraldstanje/spl/internal/diag"
	"github.com/geraldstanje/spl/internal/emit"
	"github.com/geraldstanje/spl/internal/lambdalift"
	"github.com/geraldstanje/spl/internal/mono"
	"github.com/geraldstanje/spl/internal/parser"
	"github.com/geraldstanje/spl/internal/source"
	"github.com/geraldstanje/spl/internal/typeinfer"
)

// Options configures one compilation unit or a directory of them.
type Options struct {
	MaxDiagnostics int
	// Jobs bounds how many units CompileDir runs concurrently; <= 0
	// means runtime.GOMAXPROCS(0).
	Jobs int
	// EnableDCE threads through to mono.Options.EnableDCE, which seeds
	// monomorphization from main alone.
	EnableDCE bool
	// Cache, if set, lets CompileUnit skip straight to a previously
	// recorded memir.Program when file's content hash is already known
	// and was recorded as not Broken. Only takes effect when adapter is
	// a *memir.Backend, the only Adapter this tree ships.
	Cache *DiskCache
	// Progress, if set, receives an Event at the start of each pass and
	// once more when CompileUnit finishes (StatusDone or StatusError).
	Progress ProgressSink
}

func (o Options) notify(path string, stage Stage, status Status) {
	if o.Progress != nil {
		o.Progress.Send(Event{Path: path, Stage: stage, Status: status})
	}
}

// UnitResult is everything a caller needs from one compiled file: its
// path (for a directory run), the fully-processed *ast.File, the
// diagnostics collected across every pass, and whether it reached Emit.
type UnitResult struct {
	Path string
	File *ast.File
	Bag  *diag.Bag
	OK   bool
}

// CompileUnit lexes, parses, and runs every pass over one source.File
// against the given backend.Adapter, stopping at the first pass that
// fails (each pass's own Bag entries explain why). No pass yields
// control partway through — each runs to completion before the next.
func CompileUnit(file *source.File, adapter backend.Adapter, opts Options) UnitResult {
	bag := diag.NewBag(maxDiagOr(opts.MaxDiagnostics))
	reporter := diag.BagReporter{Bag: bag}

	if mb, ok := adapter.(*memir.Backend); ok && opts.Cache != nil {
		if payload, hit, _ := opts.Cache.Get(file.Hash); hit && !payload.Broken {
			mb.LoadProgram(payload.Program)
			opts.notify(file.Path, StageEmit, StatusDone)
			return UnitResult{Path: file.Path, OK: true, Bag: bag}
		}
	}

	opts.notify(file.Path, StageParse, StatusWorking)
	f, presult := parser.Parse(file, parser.Options{Reporter: reporter})
	res := UnitResult{Path: file.Path, File: f, Bag: bag}
	if !presult.OK {
		return opts.finish(res, bag, StageParse)
	}

	opts.notify(file.Path, StageBind, StatusWorking)
	if r := binder.Bind(f, binder.Options{Reporter: reporter}); !r.OK {
		return opts.finish(res, bag, StageBind)
	}
	opts.notify(file.Path, StageTypeInfer, StatusWorking)
	if r := typeinfer.Infer(f, typeinfer.Options{Reporter: reporter}); !r.OK {
		return opts.finish(res, bag, StageTypeInfer)
	}
	opts.notify(file.Path, StageLambdaLift, StatusWorking)
	if r := lambdalift.Lift(f, lambdalift.Options{}); !r.OK {
		return opts.finish(res, bag, StageLambdaLift)
	}
	opts.notify(file.Path, StageMono, StatusWorking)
	if r := mono.Monomorphize(f, mono.Options{Reporter: reporter, EnableDCE: opts.EnableDCE}); !r.OK {
		return opts.finish(res, bag, StageMono)
	}

	opts.notify(file.Path, StageEmit, StatusWorking)
	emitRes := emit.Emit(f, adapter, emit.Options{})
	res.OK = emitRes.OK
	bag.Sort()
	bag.Dedup()
	if res.OK {
		opts.notify(file.Path, StageEmit, StatusDone)
	} else {
		opts.notify(file.Path, StageEmit, StatusError)
	}

	if mb, ok := adapter.(*memir.Backend); ok && opts.Cache != nil {
		_ = opts.Cache.Put(file.Hash, &DiskPayload{
			Schema:      diskCacheSchemaVersion,
			Path:        file.Path,
			ContentHash: file.Hash,
			Broken:      !res.OK,
			Program:     mb.Program(),
		})
	}
	return res
}

func (o Options) finish(res UnitResult, bag *diag.Bag, failedStage Stage) UnitResult {
	bag.Sort()
	bag.Dedup()
	res.OK = false
	o.notify(res.Path, failedStage, StatusError)
	return res
}

func maxDiagOr(n int) int {
	if n <= 0 {
		return 200
	}
	return n
}
