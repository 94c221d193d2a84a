// Package logging constructs the structured logger every package in
// this module takes by constructor injection. There is no package
// global: spec.md §9 warns against hidden global state (originally
// about a template registry), and this module applies that warning to
// its own logger wiring too.
package logging

import (
	"log/slog"
	"os"
)

// New builds a slog.Logger at the given level ("debug", "info",
// "warn", "error"; unrecognized values fall back to "info"). Output
// goes to stderr so stdout stays free for command output (e.g. `get`
// printing a local path), using a text handler for interactive
// terminals and a JSON handler otherwise — the same plain-vs-machine
// split the teacher's CLI output makes between human progress lines
// and scriptable results.
func New(level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// isTerminal reports whether f looks like an interactive terminal.
// Inlined rather than adding a terminal-detection dependency: the
// teacher never imports one (mattn/go-isatty appears only in the
// bubbletea dependency closure, never as a direct import of the
// teacher's own code).
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
