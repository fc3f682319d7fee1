package engine

import (
	"github.com/Carmen-Shannon/oxy-splat/engine/profiler"
	"github.com/Carmen-Shannon/oxy-splat/engine/viewer"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfiler replaces the default profiler.
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		if p != nil {
			e.profiler = p
		}
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit = frameDuration(fps)
	}
}

// WithQueueSize sets the capacity of the command queue. Values <= 0 keep DefaultQueueSize.
func WithQueueSize(n int) EngineBuilderOption {
	return func(e *engine) {
		if n > 0 {
			e.commands = make(chan viewer.Command, n)
		}
	}
}

// WithErrorHandler sets the function receiving command and render failures.
func WithErrorHandler(handler func(cmd viewer.Command, err error)) EngineBuilderOption {
	return func(e *engine) {
		if handler != nil {
			e.errorHandler = handler
		}
	}
}

// WithKeyCallback sets the function receiving key presses from the window.
func WithKeyCallback(callback func(keyCode uint32)) EngineBuilderOption {
	return func(e *engine) {
		e.keyCallback = callback
	}
}
