package logging

import (
	"io"
	"log/slog"
	"os"
)

// InitLogger builds the process-wide JSON logger at the given level,
// installs it as the slog default, and returns it. Source locations are
// included so stage errors can be traced back to the emitting processor.
func InitLogger(level slog.Level) *slog.Logger {
	logger := newJSON(os.Stdout, level)
	slog.SetDefault(logger)
	return logger
}

func newJSON(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	}))
}

// NewComponentLogger derives a child logger tagged with the component
// name so every record identifies the pipeline stage that produced it.
func NewComponentLogger(base *slog.Logger, component string) *slog.Logger {
	return base.With(slog.String("component", component))
}
