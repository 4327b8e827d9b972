package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/geraldstanje/spl/internal/diag"
	"github.com/geraldstanje/spl/internal/diagfmt"
	"github.com/geraldstanje/spl/internal/driver"
	"github.com/geraldstanje/spl/internal/source"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] path",
	Short: "Run every pass through monomorphization without emitting",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().String("format", "pretty", "diagnostic format (pretty|json)")
	checkCmd.Flags().Bool("dce", false, "drop unreachable monomorphized specializations")
}

func runCheck(cmd *cobra.Command, args []string) error {
	path := args[0]

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	dce, err := cmd.Flags().GetBool("dce")
	if err != nil {
		return err
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return err
	}
	jobs, err := cmd.Root().PersistentFlags().GetInt("jobs")
	if err != nil {
		return err
	}

	opts := driver.Options{MaxDiagnostics: maxDiagnostics, Jobs: jobs, EnableDCE: dce}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	var fs *source.FileSet
	var results []driver.UnitResult

	if info.IsDir() {
		fs, results, err = checkDir(cmd.Context(), path, opts)
		if err != nil {
			return err
		}
	} else {
		fileSet := source.NewFileSet()
		fid, loadErr := fileSet.Load(path)
		if loadErr != nil {
			return fmt.Errorf("failed to read %s: %w", path, loadErr)
		}
		fs = fileSet
		results = []driver.UnitResult{driver.CheckUnit(fileSet.Get(fid), opts)}
	}

	anyFailed := false
	for _, res := range results {
		if !res.OK {
			anyFailed = true
		}
		renderCheckResult(cmd, res, fs, format)
	}
	if anyFailed {
		return fmt.Errorf("check failed")
	}
	return nil
}

// checkDir runs CheckUnit over every *.spl file under dir, reusing
// CompileDir's file discovery (driver.ListSPLFiles) without its
// concurrency or backend.Adapter plumbing — CheckUnit has no Emit stage
// and so no per-file adapter to construct.
func checkDir(ctx context.Context, dir string, opts driver.Options) (*source.FileSet, []driver.UnitResult, error) {
	fs := source.NewFileSetWithBase(dir)
	paths, err := driver.ListSPLFiles(dir)
	if err != nil {
		return nil, nil, err
	}
	results := make([]driver.UnitResult, 0, len(paths))
	for _, p := range paths {
		fid, loadErr := fs.Load(p)
		if loadErr != nil {
			bag := diag.NewBag(200)
			bag.Add(diag.Diagnostic{Severity: diag.SevError, Code: diag.IOLoadFileError, Message: "failed to load file: " + loadErr.Error()})
			results = append(results, driver.UnitResult{Path: p, Bag: bag})
			continue
		}
		results = append(results, driver.CheckUnit(fs.Get(fid), opts))
	}
	return fs, results, nil
}

func renderCheckResult(cmd *cobra.Command, res driver.UnitResult, fs *source.FileSet, format string) {
	if res.Bag == nil || res.Bag.Len() == 0 {
		return
	}
	switch format {
	case "json":
		_ = diagfmt.Diagnostics(os.Stdout, res.Bag, fs, diagfmt.JSONOpts{IncludeNotes: true})
	default:
		diagfmt.Pretty(os.Stderr, res.Bag, fs, diagfmt.PrettyOpts{
			Color:     wantColor(cmd, os.Stderr),
			Context:   2,
			ShowNotes: true,
		})
	}
}
