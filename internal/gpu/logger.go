//go:build !nogpu

package gpu

import (
	"log/slog"
	"sync/atomic"
)

// Device, pipeline and buffer cache events go to this logger. It is shared
// by every Backend in the process because rt.SetLogger is process-wide.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(slog.DiscardHandler))
}

func slogger() *slog.Logger { return loggerPtr.Load() }

// setLogger installs l; nil discards output again.
func setLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	loggerPtr.Store(l)
}
