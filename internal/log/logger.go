package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Verbosity levels
const (
	LevelQuiet = iota // Default: only errors and warnings
	LevelInfo         // -v: progress messages, counts, bumped issues
	LevelDebug        // -vv: API calls, per-issue decisions
	LevelTrace        // -vvv: raw GraphQL payloads
)

// Custom slog levels mapped to our verbosity
const (
	slogLevelTrace = slog.Level(-8) // Below debug
)

// Format selects how log records are rendered.
type Format int

const (
	// FormatText renders slog key=value lines.
	FormatText Format = iota
	// FormatActions renders GitHub Actions workflow commands so that
	// warnings and errors show up as run annotations.
	FormatActions
)

var (
	mu         sync.Mutex
	verbosity  int
	format     Format
	logger     *slog.Logger
	output     io.Writer
	inProgress bool // tracks if we have an in-progress line
)

// Initialize sets up the global logger with the specified verbosity level
func Initialize(level int, w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	verbosity = level
	output = w
	format = FormatText

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slogLevel(level),
	})
	logger = slog.New(handler)
}

// InitializeActions sets up the global logger to emit GitHub Actions
// workflow commands.
func InitializeActions(level int, w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	verbosity = level
	output = w
	format = FormatActions
	logger = slog.New(newActionsHandler(w, slogLevel(level)))
}

func slogLevel(level int) slog.Level {
	switch {
	case level >= LevelTrace:
		return slogLevelTrace
	case level >= LevelDebug:
		return slog.LevelDebug
	case level >= LevelInfo:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

// Info logs at info level (-v)
func Info(msg string, args ...any) {
	if verbosity >= LevelInfo {
		clearProgress()
		logger.Info(msg, args...)
	}
}

// Debug logs at debug level (-vv)
func Debug(msg string, args ...any) {
	if verbosity >= LevelDebug {
		clearProgress()
		logger.Debug(msg, args...)
	}
}

// Trace logs at trace level (-vvv)
func Trace(msg string, args ...any) {
	if verbosity >= LevelTrace {
		clearProgress()
		logger.Log(context.Background(), slogLevelTrace, msg, args...)
	}
}

// Warn logs at warn level (always visible)
func Warn(msg string, args ...any) {
	clearProgress()
	logger.Warn(msg, args...)
}

// Error logs at error level (always visible)
func Error(msg string, args ...any) {
	clearProgress()
	logger.Error(msg, args...)
}

// With returns a logger carrying the given attributes, e.g. the run id.
func With(args ...any) *slog.Logger {
	return logger.With(args...)
}

// Group opens a collapsible log group in Actions format. It is a no-op
// for text output.
func Group(title string) {
	if format != FormatActions {
		return
	}
	clearProgress()
	mu.Lock()
	defer mu.Unlock()
	_, _ = fmt.Fprintf(output, "::group::%s\n", escapeData(title))
}

// EndGroup closes the group opened by Group.
func EndGroup() {
	if format != FormatActions {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	_, _ = fmt.Fprintln(output, "::endgroup::")
}

// Progress prints a progress message with carriage return (no newline)
// Only shown at info level or higher, and never in Actions format where
// carriage returns garble the log viewer.
func Progress(format string, args ...any) {
	if verbosity >= LevelInfo && !IsActions() {
		inProgress = true
		_, _ = fmt.Fprintf(output, "\r"+format, args...)
	}
}

// ProgressDone completes a progress line with "done" and newline
func ProgressDone() {
	if verbosity >= LevelInfo && inProgress {
		_, _ = fmt.Fprintln(output, " done")
		inProgress = false
	}
}

// ProgressClear clears the current progress line
func ProgressClear() {
	if inProgress {
		_, _ = fmt.Fprint(output, "\r\033[K") // carriage return + clear to end of line
		inProgress = false
	}
}

// clearProgress ensures we don't write over a progress line
func clearProgress() {
	if inProgress {
		_, _ = fmt.Fprintln(output) // just add a newline to preserve the progress
		inProgress = false
	}
}

// IsInfo returns true if info-level logging is enabled
func IsInfo() bool {
	return verbosity >= LevelInfo
}

// IsDebug returns true if debug-level logging is enabled
func IsDebug() bool {
	return verbosity >= LevelDebug
}

// IsTrace returns true if trace-level logging is enabled
func IsTrace() bool {
	return verbosity >= LevelTrace
}

// IsActions returns true if the logger emits workflow commands
func IsActions() bool {
	return format == FormatActions
}

// Verbosity returns the current verbosity level
func Verbosity() int {
	return verbosity
}

// SetOutput changes the output writer (useful for testing)
func SetOutput(w io.Writer) {
	output = w
}

func init() {
	// Default initialization with quiet mode to stderr
	output = os.Stderr
	verbosity = LevelQuiet
	logger = slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}
