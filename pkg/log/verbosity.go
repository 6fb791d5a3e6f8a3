package log

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Verbosity is the operational log level.
type Verbosity uint8

const (
	VerbosityDebug Verbosity = iota
	VerbosityInfo
	VerbosityWarn
	VerbosityError
	VerbosityNone
)

// String returns the upper-case level name.
func (v Verbosity) String() string {
	switch v {
	case VerbosityDebug:
		return "DEBUG"
	case VerbosityInfo:
		return "INFO"
	case VerbosityWarn:
		return "WARN"
	case VerbosityError:
		return "ERROR"
	case VerbosityNone:
		return "NONE"
	default:
		return "UNKNOWN"
	}
}

// Level maps the verbosity to a slog level. NONE has no slog equivalent
// and maps above ERROR.
func (v Verbosity) Level() slog.Level {
	switch v {
	case VerbosityDebug:
		return slog.LevelDebug
	case VerbosityInfo:
		return slog.LevelInfo
	case VerbosityWarn:
		return slog.LevelWarn
	case VerbosityError:
		return slog.LevelError
	default:
		return slog.LevelError + 4
	}
}

// ParseVerbosity parses a level name case-insensitively.
// "WARNING" is accepted as WARN and "OFF" as NONE.
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return VerbosityDebug, nil
	case "INFO":
		return VerbosityInfo, nil
	case "WARN", "WARNING":
		return VerbosityWarn, nil
	case "ERROR":
		return VerbosityError, nil
	case "NONE", "OFF":
		return VerbosityNone, nil
	default:
		return VerbosityWarn, fmt.Errorf("unknown log level %q", s)
	}
}

// DefaultVerbosity is WARN, or DEBUG when development mode is active.
func DefaultVerbosity(devMode bool) Verbosity {
	if devMode {
		return VerbosityDebug
	}
	return VerbosityWarn
}

// NewLogger builds a text logger writing to w at the given verbosity.
// VerbosityNone discards everything.
func NewLogger(w io.Writer, v Verbosity) *slog.Logger {
	if v == VerbosityNone || w == nil {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: v.Level()}))
}

// OrDiscard returns l, or a discarding logger if l is nil.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}
