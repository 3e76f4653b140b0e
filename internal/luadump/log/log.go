// Package log installs the process-wide slog logger.
package log

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	charmlog "github.com/charmbracelet/log"

	"luadump/internal/logging"
)

var (
	initOnce    sync.Once
	initialized atomic.Bool
	current     *logging.LoggerCloser
)

// Setup routes slog through the charmbracelet logger. debug forces the
// debug level and caller reporting regardless of LUADUMP_LOG_LEVEL.
// Only the first call has an effect.
func Setup(debug bool) {
	initOnce.Do(func() {
		current = logging.NewLogger()
		if debug || logging.IsDebug() {
			current.SetLevel(charmlog.DebugLevel)
			current.SetReportCaller(true)
		}
		slog.SetDefault(slog.New(current.Logger))
		initialized.Store(true)
	})
}

func Initialized() bool {
	return initialized.Load()
}

// Close flushes and closes the log file opened by Setup.
func Close() error {
	if current == nil {
		return nil
	}
	return current.Close()
}

func RecoverPanic(name string, cleanup func()) {
	if r := recover(); r != nil {
		if Initialized() {
			slog.Error(fmt.Sprintf("Panic in %s", name),
				"panic", r,
				"stack", string(debug.Stack()))
		}
		if cleanup != nil {
			cleanup()
		}
	}
}
