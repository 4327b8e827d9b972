package diagfmt

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/geraldstanje/spl/internal/source"
	"github.com/geraldstanje/spl/internal/token"
)

// TokenOutput is one token.Token's JSON-serializable shape.
type TokenOutput struct {
	Kind string      `json:"kind"`
	Text string      `json:"text,omitempty"`
	Span source.Span `json:"span"`
}

// FormatTokensPretty renders tokens one per line:
//
//	   1: ident        "x" at 1:5-1:6
func FormatTokensPretty(w io.Writer, tokens []token.Token, fs *source.FileSet) error {
	for i, tok := range tokens {
		start, end := fs.Resolve(tok.Span)
		fmt.Fprintf(w, "%4d: %-12s", i+1, tok.Kind.String())
		if tok.Text != "" {
			fmt.Fprintf(w, " %q", tok.Text)
		}
		fmt.Fprintf(w, " at %d:%d-%d:%d\n", start.Line, start.Col, end.Line, end.Col)

		if tok.Kind == token.EOF {
			break
		}
	}
	return nil
}

// FormatTokensJSON renders tokens as a JSON array, stopping after EOF.
func FormatTokensJSON(w io.Writer, tokens []token.Token) error {
	var out []TokenOutput
	for _, tok := range tokens {
		out = append(out, TokenOutput{Kind: tok.Kind.String(), Text: tok.Text, Span: tok.Span})
		if tok.Kind == token.EOF {
			break
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
