package cli

import (
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// runID correlates every log record of one launcher invocation. MCP
// clients often start several servers at once and interleave their stderr
// into a single log file.
var runID = uuid.NewString()

// initLogger installs the default slog logger. Records go to w (stderr in
// production) because stdout carries the server's protocol stream.
func initLogger(w io.Writer, level string) {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	slog.SetDefault(slog.New(handler).With("run", runID))
}

// parseLevel maps a level name to a slog.Level, defaulting to warn so a
// normal launch stays silent.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
