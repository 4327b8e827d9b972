package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/geraldstanje/spl/internal/diag"
	"github.com/geraldstanje/spl/internal/source"
)

func TestDiagnosticsEncodesEveryItem(t *testing.T) {
	fs := source.NewFileSet()
	fid := fs.AddVirtual("unit.spl", []byte("val x = 1\n"))

	bag := diag.NewBag(10)
	d := diag.New(diag.SevError, diag.SemTypeMismatch, source.Span{File: fid, Start: 0, End: 3}, "boom")
	d = d.WithNote(source.Span{File: fid, Start: 4, End: 5}, "declared here")
	bag.Add(d)

	var buf bytes.Buffer
	if err := Diagnostics(&buf, bag, fs, JSONOpts{IncludeNotes: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output was not valid JSON: %v", err)
	}
	if out.Count != 1 || len(out.Diagnostics) != 1 {
		t.Fatalf("expected exactly one diagnostic, got %+v", out)
	}
	if out.Diagnostics[0].Severity != "ERROR" {
		t.Fatalf("expected severity ERROR, got %q", out.Diagnostics[0].Severity)
	}
	if len(out.Diagnostics[0].Notes) != 1 {
		t.Fatalf("expected IncludeNotes to carry the note through, got %+v", out.Diagnostics[0])
	}
}

func TestDiagnosticsOmitsNotesWhenDisabled(t *testing.T) {
	fs := source.NewFileSet()
	fid := fs.AddVirtual("unit.spl", []byte("val x = 1\n"))

	bag := diag.NewBag(10)
	d := diag.New(diag.SevWarning, diag.SemArityMismatch, source.Span{File: fid, Start: 0, End: 1}, "warn")
	d = d.WithNote(source.Span{File: fid, Start: 2, End: 3}, "note")
	bag.Add(d)

	var buf bytes.Buffer
	if err := Diagnostics(&buf, bag, fs, JSONOpts{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output was not valid JSON: %v", err)
	}
	if len(out.Diagnostics[0].Notes) != 0 {
		t.Fatalf("expected notes to be omitted when IncludeNotes is false, got %+v", out.Diagnostics[0])
	}
}
