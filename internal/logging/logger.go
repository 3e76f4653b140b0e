// Package logging builds the charmbracelet logger used by luadump.
// Configuration comes from the environment:
//
//	LUADUMP_LOG_LEVEL    debug, info, warn, error (default: info)
//	LUADUMP_LOG_PREFIX   message prefix (default: "luadump")
//	LUADUMP_LOG_TO_FILE  "1" writes to luadump-<timestamp>-debug.log
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	envLevel  = "LUADUMP_LOG_LEVEL"
	envPrefix = "LUADUMP_LOG_PREFIX"
	envToFile = "LUADUMP_LOG_TO_FILE"
)

// LoggerCloser is a logger that owns its output.
type LoggerCloser struct {
	*log.Logger
	closer io.Closer
}

// Close closes the log file, if any.
func (lc *LoggerCloser) Close() error {
	if lc.closer != nil {
		return lc.closer.Close()
	}
	return nil
}

// ParseLevel maps a level name to a log level, defaulting to info.
func ParseLevel(s string) log.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// NewLoggerWithWriter creates a logger writing to w. It takes ownership
// of w when w is an io.Closer.
func NewLoggerWithWriter(w io.Writer) *LoggerCloser {
	lg := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Level:           ParseLevel(os.Getenv(envLevel)),
		Prefix:          prefix(),
	})

	var closer io.Closer
	if c, ok := w.(io.Closer); ok && w != os.Stderr {
		closer = c
	}
	return &LoggerCloser{Logger: lg, closer: closer}
}

func prefix() string {
	if p := os.Getenv(envPrefix); p != "" {
		return p
	}
	return "luadump"
}

// NewLogger creates a logger on stderr, or on a timestamped file when
// LUADUMP_LOG_TO_FILE=1. Failure to create the file falls back to stderr.
func NewLogger() *LoggerCloser {
	output := io.Writer(os.Stderr)
	if os.Getenv(envToFile) == "1" {
		name := fmt.Sprintf("luadump-%s-debug.log", time.Now().Format("20060102-150405"))
		if f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644); err == nil {
			output = f
		}
	}
	return NewLoggerWithWriter(output)
}

// IsDebug reports whether LUADUMP_LOG_LEVEL asks for debug output.
func IsDebug() bool {
	return ParseLevel(os.Getenv(envLevel)) == log.DebugLevel
}
