// Package diagfmt renders a diag.Bag or a token.Token stream for a human
// or a machine, scaled to the options this tree's CLI actually exposes —
// no SARIF output, no trivia-aware token rendering, since neither has a
// caller here.
package diagfmt

// PathMode controls how a diagnostic's file path is rendered.
type PathMode uint8

const (
	// PathModeAuto lets source.File.FormatPath decide: the path as stored
	// when it is relative or short, otherwise its base name.
	PathModeAuto PathMode = iota
	PathModeAbsolute
	PathModeRelative
	PathModeBasename
)

// PrettyOpts configures Pretty's human-readable rendering.
type PrettyOpts struct {
	Color     bool
	PathMode  PathMode
	Context   int  // not read by Pretty, which prints only the span's own line
	ShowNotes bool
}

// JSONOpts configures Diagnostics' machine-readable rendering.
type JSONOpts struct {
	PathMode     PathMode
	IncludeNotes bool
}
