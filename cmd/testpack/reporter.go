package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/infracollect/testpack/internal/engine"
)

// terminalReporter prints archive progress for a person watching the terminal.
type terminalReporter struct {
	w      io.Writer
	status *color.Color
	path   *color.Color
}

func newTerminalReporter(w io.Writer, colorize bool) *terminalReporter {
	r := &terminalReporter{
		w:      w,
		status: color.New(color.FgGreen, color.Bold),
		path:   color.New(color.FgCyan),
	}
	for _, c := range []*color.Color{r.status, r.path} {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r
}

func (r *terminalReporter) Report(event engine.ArchiveEvent) error {
	var err error
	switch e := event.(type) {
	case engine.ArchiveStarted:
		_, err = fmt.Fprintf(r.w, "%s %s, %s and %s to %s\n",
			r.status.Sprintf("%12s", "Archiving"),
			plural(e.TestBinaryCount, "binary", "binaries"),
			plural(e.NonTestBinaryCount, "non-test binary", "non-test binaries"),
			plural(e.LinkedPathCount, "linked path", "linked paths"),
			r.path.Sprint(e.OutputFile),
		)
	case engine.ArchiveCompleted:
		_, err = fmt.Fprintf(r.w, "%s %s to %s in %s\n",
			r.status.Sprintf("%12s", "Archived"),
			plural(e.FileCount, "file", "files"),
			r.path.Sprint(e.OutputFile),
			e.Elapsed.Round(time.Millisecond),
		)
	}
	return err
}

func plural(n int, singular, pluralForm string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, pluralForm)
}
