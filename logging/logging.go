// Package logging builds the console logger used for diagnostics.
package logging

import (
	"io"

	"github.com/charmbracelet/log"
)

// New creates a leveled text logger writing to w. Unknown level strings fall
// back to warn so a typo in config never silences errors.
func New(w io.Writer, level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.WarnLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Formatter:       log.TextFormatter,
		ReportTimestamp: false,
		Prefix:          "taskforge",
	})
}
