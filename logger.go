package rt

import (
	"log/slog"
	"sync/atomic"
)

// silent is the logger in effect until SetLogger is called.
var silent = slog.New(slog.DiscardHandler)

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(silent)
}

// SetLogger installs l as the process-wide logger for rt. The registered
// backend receives it too, so GPU device selection and buffer cache
// activity show up in the same output. A Renderer created with WithLogger
// keeps its own logger for renderer events.
//
// rt logs nothing until SetLogger is called. Passing nil silences it again.
//
// What each level carries:
//   - [slog.LevelDebug]: one record per upload and dispatch (pixels, work
//     groups, bytes copied)
//   - [slog.LevelInfo]: renderer creation, adapter choice, pipeline build
//   - [slog.LevelWarn]: the GPU backend failed to register, or the buffer
//     cache had to evict to satisfy an allocation
//   - [slog.LevelError]: a lost device or an out-of-memory dispatch
//
// To see what the tracer does for each frame:
//
//	rt.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
//
// SetLogger may be called while renderers are running.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = silent
	}
	loggerPtr.Store(l)

	if b := RegisteredBackend(); b != nil {
		propagateLogger(b, l)
	}
}

// Logger returns the logger installed by SetLogger. The software backend
// and the gpu registration package log through it.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is the optional Backend method SetLogger forwards to.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

func propagateLogger(b Backend, l *slog.Logger) {
	if ls, ok := b.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}
