package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/geraldstanje/spl/internal/lexer"
	"github.com/geraldstanje/spl/internal/source"
	"github.com/geraldstanje/spl/internal/token"
)

func tokenizeAll(t *testing.T, fs *source.FileSet, fid source.FileID) []token.Token {
	t.Helper()
	lx := lexer.New(fs.Get(fid), lexer.Options{})
	var toks []token.Token
	for {
		tok := lx.Next()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return toks
}

func TestFormatTokensPrettyListsEveryTokenOnce(t *testing.T) {
	fs := source.NewFileSet()
	fid := fs.AddVirtual("unit.spl", []byte("val x = 1"))
	toks := tokenizeAll(t, fs, fid)

	var buf bytes.Buffer
	if err := FormatTokensPretty(&buf, toks, fs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if strings.Count(out, "\n") != len(toks) {
		t.Fatalf("expected one line per token (%d), got %d lines:\n%s", len(toks), strings.Count(out, "\n"), out)
	}
}

func TestFormatTokensJSONStopsAfterEOF(t *testing.T) {
	fs := source.NewFileSet()
	fid := fs.AddVirtual("unit.spl", []byte("val x = 1"))
	toks := tokenizeAll(t, fs, fid)

	var buf bytes.Buffer
	if err := FormatTokensJSON(&buf, toks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded []TokenOutput
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output was not valid JSON: %v", err)
	}
	if len(decoded) == 0 || decoded[len(decoded)-1].Kind != token.EOF.String() {
		t.Fatalf("expected the last decoded token to be EOF, got %+v", decoded)
	}
}
