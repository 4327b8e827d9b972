package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/geraldstanje/spl/internal/diag"
	"github.com/geraldstanje/spl/internal/source"
)

var severityColor = map[diag.Severity]*color.Color{
	diag.SevError:   color.New(color.FgRed, color.Bold),
	diag.SevWarning: color.New(color.FgYellow, color.Bold),
	diag.SevInfo:    color.New(color.FgCyan),
}

func (m PathMode) rawMode() string {
	switch m {
	case PathModeAbsolute:
		return "absolute"
	case PathModeRelative:
		return "relative"
	case PathModeBasename:
		return "basename"
	default:
		return "auto"
	}
}

// Pretty renders bag's diagnostics as
//
//	<path>:<line>:<col>: <SEVERITY> <CODE>: <message>
//	    <source line>
//	    <caret underline>
//
// one block per diagnostic, in bag's own order (call bag.Sort() first for
// a deterministic, position-then-severity ordering).
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	for _, d := range bag.Items() {
		printDiagnostic(w, d, fs, opts)
	}
}

func printDiagnostic(w io.Writer, d diag.Diagnostic, fs *source.FileSet, opts PrettyOpts) {
	file := fs.Get(d.Primary.File)
	start, _ := fs.Resolve(d.Primary)
	path := "<unknown>"
	if file != nil {
		path = file.FormatPath(opts.PathMode.rawMode(), fs.BaseDir())
	}

	header := fmt.Sprintf("%s:%d:%d: %s %s: %s", path, start.Line, start.Col, d.Severity, d.Code.ID(), d.Message)
	if opts.Color {
		if c, ok := severityColor[d.Severity]; ok {
			// EnableColor forces this Color past fatih/color's own
			// isatty check, which would otherwise suppress escapes
			// whenever stdout/stderr isn't a terminal (including tests).
			c.EnableColor()
			header = c.Sprint(header)
		}
	}
	fmt.Fprintln(w, header)

	if file != nil {
		printSourceContext(w, file, d.Primary, opts)
	}

	if opts.ShowNotes {
		for _, n := range d.Notes {
			fmt.Fprintf(w, "    note: %s\n", n.Msg)
		}
	}
}

// printSourceContext prints the single source line the span's start falls
// on, followed by a caret underline spanning the rest of that line the
// span covers.
func printSourceContext(w io.Writer, file *source.File, span source.Span, opts PrettyOpts) {
	line := lineText(file, span.Start)
	if line == "" {
		return
	}
	fmt.Fprintf(w, "    %s\n", line)

	col := colOf(file, span.Start)
	width := int(span.Len())
	if width < 1 {
		width = 1
	}
	if col-1+width > len(line) {
		width = len(line) - (col - 1)
		if width < 1 {
			width = 1
		}
	}
	fmt.Fprintf(w, "    %s%s\n", strings.Repeat(" ", col-1), strings.Repeat("^", width))
}

// lineText returns the full line of file.Content that byte offset off
// falls within, without its trailing newline.
func lineText(file *source.File, off uint32) string {
	start, end := lineBounds(file, off)
	if start > uint32(len(file.Content)) || end > uint32(len(file.Content)) || start > end {
		return ""
	}
	return string(file.Content[start:end])
}

func lineBounds(file *source.File, off uint32) (start, end uint32) {
	for _, nl := range file.LineIdx {
		if nl < off {
			start = nl + 1
			continue
		}
		break
	}
	end = uint32(len(file.Content))
	for _, nl := range file.LineIdx {
		if nl >= off {
			end = nl
			break
		}
	}
	return start, end
}

func colOf(file *source.File, off uint32) int {
	start, _ := lineBounds(file, off)
	return int(off-start) + 1
}
