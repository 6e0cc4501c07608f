package shared

import (
	"os"

	"github.com/charmbracelet/log"
)

// SetupLogger configures a charmbracelet logger with timestamps at the
// given level, falling back to info on an unknown level string.
func SetupLogger(level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}

	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           lvl,
	})
}
