package driver

import (
	"github.com/geraldstanje/spl/internal/binder"
	"github.com/geraldstanje/spl/internal/diag"
	"github.com/geraldstanje/spl/internal/lambdalift"
	"github.com/geraldstanje/spl/internal/mono"
	"github.com/geraldstanje/spl/internal/parser"
	"github.com/geraldstanje/spl/internal/source"
	"github.com/geraldstanje/spl/internal/typeinfer"
)

// CheckUnit runs every pass through Monomorphize but never reaches Emit —
// the semantic-analysis-only counterpart to CompileUnit, for a command
// that wants to validate a file's types and purity without needing a
// backend.Adapter at all.
func CheckUnit(file *source.File, opts Options) UnitResult {
	bag := diag.NewBag(maxDiagOr(opts.MaxDiagnostics))
	reporter := diag.BagReporter{Bag: bag}

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

	bag.Sort()
	bag.Dedup()
	res.OK = true
	opts.notify(file.Path, StageMono, StatusDone)
	return res
}
