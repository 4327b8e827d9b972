package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/geraldstanje/spl/internal/diag"
	"github.com/geraldstanje/spl/internal/source"
)

func TestPrettyPathModes(t *testing.T) {
	fs := source.NewFileSet()
	content := []byte("val x = 1\n")
	fileID := fs.AddVirtual("/home/user/project/src/unit.spl", content)
	fs.SetBaseDir("/home/user/project")

	bag := diag.NewBag(10)
	bag.Add(diag.New(diag.SevError, diag.SemTypeMismatch, source.Span{File: fileID, Start: 8, End: 9}, "concrete types do not match"))

	tests := []struct {
		name     string
		mode     PathMode
		contains string
	}{
		{"absolute", PathModeAbsolute, "/home/user/project/src/unit.spl"},
		{"relative", PathModeRelative, "src/unit.spl"},
		{"basename", PathModeBasename, "unit.spl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Pretty(&buf, bag, fs, PrettyOpts{PathMode: tt.mode})
			if !strings.Contains(buf.String(), tt.contains) {
				t.Fatalf("expected output to contain %q, got %q", tt.contains, buf.String())
			}
		})
	}
}

func TestPrettyPrintsSourceLineAndCaret(t *testing.T) {
	fs := source.NewFileSet()
	content := []byte("val x = 1\nval y = x + z\n")
	fileID := fs.AddVirtual("unit.spl", content)

	// "z" at byte offset 22 on line 2.
	span := source.Span{File: fileID, Start: 22, End: 23}
	bag := diag.NewBag(10)
	bag.Add(diag.New(diag.SevError, diag.SemUnboundName, span, "identifier has no lexical binding"))

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{})
	out := buf.String()

	if !strings.Contains(out, "val y = x + z") {
		t.Fatalf("expected the offending source line in output, got %q", out)
	}
	if !strings.Contains(out, "^") {
		t.Fatalf("expected a caret underline in output, got %q", out)
	}
}

func TestPrettyColorWrapsHeaderWhenEnabled(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("unit.spl", []byte("val x = 1\n"))
	bag := diag.NewBag(10)
	bag.Add(diag.New(diag.SevError, diag.SemTypeMismatch, source.Span{File: fileID, Start: 0, End: 3}, "boom"))

	var plain, colored bytes.Buffer
	Pretty(&plain, bag, fs, PrettyOpts{Color: false})
	Pretty(&colored, bag, fs, PrettyOpts{Color: true})

	if plain.String() == colored.String() {
		t.Fatalf("expected Color:true to change the rendered header")
	}
}
