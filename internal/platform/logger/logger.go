package logger

import (
	"log/slog"
	"os"
)

// New returns the root structured logger. Services receive children of this
// via their WithLogger options.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
