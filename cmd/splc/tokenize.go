package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/geraldstanje/spl/internal/diag"
	"github.com/geraldstanje/spl/internal/diagfmt"
	"github.com/geraldstanje/spl/internal/lexer"
	"github.com/geraldstanje/spl/internal/source"
	"github.com/geraldstanje/spl/internal/token"
)

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize [flags] file.spl",
	Short: "Tokenize an SPL source file",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenize,
}

func init() {
	tokenizeCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

func runTokenize(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}

	fs := source.NewFileSet()
	fid, err := fs.Load(filePath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	file := fs.Get(fid)

	bag := diag.NewBag(maxDiagnostics)
	reporter := diag.BagReporter{Bag: bag}
	lx := lexer.New(file, lexer.Options{Reporter: reporter})

	var tokens []token.Token
	for {
		tok := lx.Next()
		tokens = append(tokens, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	bag.Sort()
	bag.Dedup()

	if bag.HasErrors() || bag.HasWarnings() {
		opts := diagfmt.PrettyOpts{
			Color:   wantColor(cmd, os.Stderr),
			Context: 2,
		}
		diagfmt.Pretty(os.Stderr, bag, fs, opts)
	}

	switch format {
	case "pretty":
		return diagfmt.FormatTokensPretty(os.Stdout, tokens, fs)
	case "json":
		return diagfmt.FormatTokensJSON(os.Stdout, tokens)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}
