package testutil

import (
	"io"
	"log/slog"
)

// NewTestLogger returns a logger that swallows output. Tests that assert on
// log content should build their own handler over a buffer instead.
func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
