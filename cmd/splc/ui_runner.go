package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/geraldstanje/spl/internal/backend"
	"github.com/geraldstanje/spl/internal/driver"
	"github.com/geraldstanje/spl/internal/source"
	"github.com/geraldstanje/spl/internal/ui"
)

// dirOutcome is what runCompileDirWithUI hands back once both the
// background CompileDir call and the foreground Bubble Tea program have
// finished.
type dirOutcome struct {
	fileSet *source.FileSet
	results []driver.UnitResult
	err     error
}

// runCompileDirWithUI runs driver.CompileDir in the background while a
// Bubble Tea progress program renders its events in the foreground. build
// uses it for directory builds only; a single-file build never shows the UI.
func runCompileDirWithUI(ctx context.Context, title string, dir string, newAdapter func() backend.Adapter, opts driver.Options) (*source.FileSet, []driver.UnitResult, error) {
	files, err := driver.ListSPLFiles(dir)
	if err != nil {
		return nil, nil, err
	}

	events := make(chan driver.Event, 256)
	outcomeCh := make(chan dirOutcome, 1)

	go func() {
		o := opts
		o.Progress = driver.ChannelSink{Ch: events}
		fs, results, err := driver.CompileDir(ctx, dir, newAdapter, o)
		outcomeCh <- dirOutcome{fileSet: fs, results: results, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.fileSet, outcome.results, uiErr
	}
	return outcome.fileSet, outcome.results, outcome.err
}
