package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/geraldstanje/spl/internal/ast"
	"github.com/geraldstanje/spl/internal/diag"
	"github.com/geraldstanje/spl/internal/diagfmt"
	"github.com/geraldstanje/spl/internal/parser"
	"github.com/geraldstanje/spl/internal/source"
)

var parseCmd = &cobra.Command{
	Use:   "parse [flags] file.spl",
	Short: "Parse an SPL source file and list its top-level declarations",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func runParse(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return err
	}

	fs := source.NewFileSet()
	fid, err := fs.Load(filePath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	file := fs.Get(fid)

	bag := diag.NewBag(maxDiagnostics)
	f, result := parser.Parse(file, parser.Options{Reporter: diag.BagReporter{Bag: bag}})
	bag.Sort()
	bag.Dedup()

	if bag.Len() > 0 {
		diagfmt.Pretty(os.Stderr, bag, fs, diagfmt.PrettyOpts{
			Color:   wantColor(cmd, os.Stderr),
			Context: 2,
		})
	}
	if !result.OK {
		return fmt.Errorf("parse failed")
	}

	out := cmd.OutOrStdout()
	for _, sd := range f.Structs {
		fmt.Fprintf(out, "struct %s%s { %s }\n", sd.Name, formatGenerics(sd.Generics), formatFields(sd.Fields))
	}
	for _, fid := range f.TopLevel {
		fn := f.Func(fid)
		fmt.Fprintf(out, "def %s%s(%s) -> %s [%s]\n", fn.Name, formatGenerics(fn.Generics), formatParams(fn), formatTypePh(fn.RetTypePh), fn.Purity)
	}
	for _, fid := range f.Externs {
		fn := f.Func(fid)
		fmt.Fprintf(out, "extern %s(%s) -> %s\n", fn.Name, formatParams(fn), formatTypePh(fn.RetTypePh))
	}
	return nil
}

func formatGenerics(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return "<" + strings.Join(names, ", ") + ">"
}

func formatFields(fields []ast.StructFieldDecl) string {
	parts := make([]string, len(fields))
	for i, fld := range fields {
		parts[i] = fmt.Sprintf("%s: %s", fld.Name, formatTypePh(fld.TypePh))
	}
	return strings.Join(parts, ", ")
}

func formatParams(fn *ast.Func) string {
	parts := make([]string, len(fn.Params))
	for i, name := range fn.Params {
		var ty string
		if i < len(fn.ParamTypePh) {
			ty = formatTypePh(fn.ParamTypePh[i])
		}
		parts[i] = fmt.Sprintf("%s: %s", name, ty)
	}
	return strings.Join(parts, ", ")
}

func formatTypePh(tp *ast.TypePlaceholder) string {
	if tp == nil {
		return "?"
	}
	if len(tp.Params) == 0 {
		return tp.Name
	}
	parts := make([]string, len(tp.Params))
	for i, p := range tp.Params {
		parts[i] = formatTypePh(p)
	}
	return tp.Name + "<" + strings.Join(parts, ", ") + ">"
}
