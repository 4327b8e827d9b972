package driver

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/geraldstanje/spl/internal/backend"
	"github.com/geraldstanje/spl/internal/diag"
	"github.com/geraldstanje/spl/internal/source"
	"golang.org/x/sync/errgroup"
)

// sourceExt is the extension CompileDir walks a directory for — every file
// the language recognizes as a compilation unit.
const sourceExt = ".spl"

// listSPLFiles walks dir recursively and returns every *.spl file it finds,
// sorted for a deterministic DirResult ordering across runs.
func listSPLFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), sourceExt) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ListSPLFiles walks dir recursively and returns every *.spl file it
// finds, sorted for a deterministic ordering across runs. Exposed so a
// caller that wants CheckUnit instead of CompileUnit per file (no
// backend.Adapter to construct) can reuse the same file discovery
// without going through CompileDir's Adapter-shaped API.
func ListSPLFiles(dir string) ([]string, error) {
	return listSPLFiles(dir)
}

// CompileDir compiles every *.spl file under dir concurrently, one
// CompileUnit call per file, bounded by opts.Jobs goroutines (<= 0 means
// runtime.GOMAXPROCS(0)). Every file is pre-loaded up front so an I/O
// failure becomes a diagnostic attached to that file's own UnitResult rather than an
// errgroup-cancelling error, then fan out one goroutine per already-loaded
// file into a pre-sized results slice (no mutex needed, since each
// goroutine only ever writes its own index).
//
// newAdapter is called once per file, since a backend.Adapter accumulates
// state across EmitFunctionPrototype/EmitFunctionBody calls for a single
// unit and cannot be shared across concurrent compilations.
func CompileDir(ctx context.Context, dir string, newAdapter func() backend.Adapter, opts Options) (*source.FileSet, []UnitResult, error) {
	files, err := listSPLFiles(dir)
	if err != nil {
		return nil, nil, err
	}
	fileSet := source.NewFileSetWithBase(dir)
	if len(files) == 0 {
		return fileSet, nil, nil
	}

	fileIDs := make(map[string]source.FileID, len(files))
	loadErrors := make(map[string]error, len(files))
	for _, path := range files {
		fid, loadErr := fileSet.Load(path)
		if loadErr != nil {
			loadErrors[path] = loadErr
			continue
		}
		fileIDs[path] = fid
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	results := make([]UnitResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))

	for _, path := range files {
		opts.notify(path, StageQueued, StatusQueued)
	}

	for i, path := range files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			if loadErr, bad := loadErrors[path]; bad {
				bag := diag.NewBag(maxDiagOr(opts.MaxDiagnostics))
				bag.Add(diag.Diagnostic{
					Severity: diag.SevError,
					Code:     diag.IOLoadFileError,
					Message:  "failed to load file: " + loadErr.Error(),
				})
				results[i] = UnitResult{Path: path, Bag: bag}
				opts.notify(path, StageQueued, StatusError)
				return nil
			}

			file := fileSet.Get(fileIDs[path])
			results[i] = CompileUnit(file, newAdapter(), opts)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fileSet, results, err
	}
	return fileSet, results, nil
}
