package rt

import (
	"log/slog"

	"github.com/gogpu/rt/internal/kernel"
)

// Option configures a Renderer.
//
//	r, err := rt.NewRenderer(rt.WithBackend(rt.NewSoftwareBackend(0)))
type Option func(*options)

type options struct {
	backend       Backend
	workGroupSize int
	logger        *slog.Logger
}

func defaultOptions() options {
	return options{workGroupSize: kernel.DefaultWorkGroupSize}
}

// WithBackend makes the renderer own b instead of using the registered
// backend. NewRenderer calls b.Init and closes b with the renderer.
func WithBackend(b Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithWorkGroupSize sets how many pixels are scheduled together.
// Values below 1 keep the default of 64.
func WithWorkGroupSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workGroupSize = n
		}
	}
}

// WithLogger sets a logger for this renderer only. Without it the
// package logger (see SetLogger) is used.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
