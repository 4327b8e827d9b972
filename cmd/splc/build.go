package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/geraldstanje/spl/internal/backend"
	"github.com/geraldstanje/spl/internal/backend/memir"
	"github.com/geraldstanje/spl/internal/diagfmt"
	"github.com/geraldstanje/spl/internal/driver"
	"github.com/geraldstanje/spl/internal/source"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] [path]",
	Short: "Compile an SPL file or directory through to emit",
	Long:  "build runs every pass through Emit, recording one memir.Program per file. With no path argument, it looks for spl.toml in the working directory tree.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().Bool("ui", false, "show a live progress UI (directory builds only)")
	buildCmd.Flags().Bool("cache", true, "reuse unchanged files' previously emitted programs")
	buildCmd.Flags().String("cache-dir", ".splcache", "disk cache directory")
	buildCmd.Flags().String("out", "", "directory to write the <hash>.mp program to (single-file builds only; directory builds ignore it)")
	buildCmd.Flags().Bool("dce", false, "drop unreachable monomorphized specializations")
}

func runBuild(cmd *cobra.Command, args []string) error {
	useUI, err := cmd.Flags().GetBool("ui")
	if err != nil {
		return err
	}
	useCache, err := cmd.Flags().GetBool("cache")
	if err != nil {
		return err
	}
	cacheDir, err := cmd.Flags().GetString("cache-dir")
	if err != nil {
		return err
	}
	outDir, err := cmd.Flags().GetString("out")
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

	path, err := resolveBuildPath(args)
	if err != nil {
		return err
	}

	var cache *driver.DiskCache
	if useCache {
		cache, err = driver.OpenDiskCache(cacheDir)
		if err != nil {
			return fmt.Errorf("failed to open build cache: %w", err)
		}
	}

	opts := driver.Options{MaxDiagnostics: maxDiagnostics, Jobs: jobs, EnableDCE: dce, Cache: cache}
	newAdapter := func() backend.Adapter { return memir.New() }

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	var fs *source.FileSet
	var results []driver.UnitResult

	if info.IsDir() {
		if useUI {
			fs, results, err = runCompileDirWithUI(cmd.Context(), "building", path, newAdapter, opts)
		} else {
			fs, results, err = driver.CompileDir(cmd.Context(), path, newAdapter, opts)
		}
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
		adapter := newAdapter()
		results = []driver.UnitResult{driver.CompileUnit(fileSet.Get(fid), adapter, opts)}
		if outDir != "" {
			if mb, ok := adapter.(*memir.Backend); ok {
				if err := writeProgram(outDir, fileSet.Get(fid).Hash, mb.Program()); err != nil {
					return err
				}
			}
		}
	}

	anyFailed := false
	for _, res := range results {
		if !res.OK {
			anyFailed = true
		}
		if res.Bag != nil && res.Bag.Len() > 0 {
			diagfmt.Pretty(os.Stderr, res.Bag, fs, diagfmt.PrettyOpts{
				Color:     wantColor(cmd, os.Stderr),
				Context:   2,
				ShowNotes: true,
			})
		}
	}
	if anyFailed {
		return fmt.Errorf("build failed")
	}
	if quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet"); !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "compiled %d unit(s)\n", len(results))
	}
	return nil
}

// resolveBuildPath returns the path build should compile: args[0] if
// given, otherwise spl.toml's [build].entry discovered by walking up
// from the working directory.
func resolveBuildPath(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	manifest, found, err := loadProjectManifest(".")
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("no path given and no spl.toml found\nspecify a file or directory, e.g.:\n  splc build path/to/unit.spl")
	}
	return resolveEntryPath(manifest)
}

func writeProgram(outDir string, hash [32]byte, prog *memir.Program) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	out := filepath.Join(outDir, hex.EncodeToString(hash[:])+".mp")
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()
	return msgpack.NewEncoder(f).Encode(prog)
}
