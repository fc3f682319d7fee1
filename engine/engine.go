package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/Carmen-Shannon/oxy-splat/engine/profiler"
	"github.com/Carmen-Shannon/oxy-splat/engine/viewer"
	"github.com/Carmen-Shannon/oxy-splat/engine/window"
)

// WheelScale converts one window scroll step into the wheel units expected by viewer.CommandZoom.
const WheelScale = 100

// DefaultQueueSize is the capacity of the command queue fed by Submit.
const DefaultQueueSize = 64

var (
	// ErrQueueFull reports a Submit that found the command queue at capacity.
	ErrQueueFull = errors.New("command queue full")

	// ErrStopped reports a Submit issued after Quit or after the window closed.
	ErrStopped = errors.New("engine stopped")
)

// engine implements the Engine interface.
// Drives the viewer from the window's message loop on the thread that created both.
type engine struct {
	commands chan viewer.Command

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window window.Window
	viewer viewer.Viewer

	profiler         *profiler.Profiler
	profilingEnabled bool

	frameCallback func(deltaTime float32)
	keyCallback   func(keyCode uint32)
	errorHandler  func(cmd viewer.Command, err error)

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	lastFrame        time.Time

	// pointer drag state; dragButton is -1 while no button is held
	dragButton   int
	lastX, lastY float32
}

// Engine is the host loop of the viewer.
// It owns the window message loop, translates input into viewer commands and renders a frame
// per loop iteration.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Viewer returns the viewer driven by the engine.
	//
	// Returns:
	//   - viewer.Viewer: the viewer instance
	Viewer() viewer.Viewer

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// SetFrameCallback registers the function called each frame before the viewer renders.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetFrameCallback(callback func(deltaTime float32))

	// SetKeyCallback registers the function receiving key presses from the window.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code (see common.Key*)
	SetKeyCallback(callback func(keyCode uint32))

	// SetErrorHandler registers the function receiving command and render failures.
	// The default handler logs them as warnings.
	//
	// Parameters:
	//   - handler: function receiving the failed command and its error
	SetErrorHandler(handler func(cmd viewer.Command, err error))

	// Submit queues a command for the next frame. Safe to call from any goroutine.
	//
	// Parameters:
	//   - cmd: the command to queue
	//
	// Returns:
	//   - error: ErrQueueFull if the queue is at capacity, ErrStopped after Quit
	Submit(cmd viewer.Command) error

	// Run sizes the viewer to the window and runs the message loop.
	// Blocks until the window closes or Quit is called. Must be called from the thread that
	// created the window.
	Run()

	// Quit stops the message loop after the current frame.
	// Safe to call multiple times and from any goroutine; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine driving v inside w.
// Installs the window's input and resize callbacks. Options are applied directly to the
// engine struct via the option-builder pattern.
//
// Parameters:
//   - w: the window providing the message loop and input
//   - v: the viewer to drive
//   - options: functional options for engine configuration (profiling, frame limit, etc.)
//
// Returns:
//   - Engine: the newly created engine
//   - error: common.ErrInit if w or v is nil
func NewEngine(w window.Window, v viewer.Viewer, options ...EngineBuilderOption) (Engine, error) {
	if w == nil || v == nil {
		return nil, fmt.Errorf("%w: engine requires a window and a viewer", common.ErrInit)
	}
	e := &engine{
		commands:    make(chan viewer.Command, DefaultQueueSize),
		quitChannel: make(chan struct{}),
		window:      w,
		viewer:      v,
		profiler:    profiler.NewProfiler(),
		dragButton:  -1,
	}
	e.errorHandler = e.logError

	for _, opt := range options {
		opt(e)
	}

	w.SetUpdateCallback(e.frame)
	w.SetResizeCallback(func(width, height int) {
		e.dispatch(viewer.Command{Kind: viewer.CommandResize, Width: uint32(max(width, 0)), Height: uint32(max(height, 0))})
	})
	w.SetScrollCallback(func(delta float32) {
		e.dispatch(viewer.Command{Kind: viewer.CommandZoom, DY: delta * WheelScale})
	})
	w.SetMouseButtonCallback(e.mouseButton)
	w.SetMouseMoveCallback(e.mouseMove)
	w.SetKeyDownCallback(func(keyCode uint32) {
		if e.keyCallback != nil {
			e.keyCallback(keyCode)
		}
	})

	return e, nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Viewer() viewer.Viewer {
	return e.viewer
}

func (e *engine) Run() {
	e.dispatch(viewer.Command{
		Kind:   viewer.CommandResize,
		Width:  uint32(max(e.window.Width(), 0)),
		Height: uint32(max(e.window.Height(), 0)),
	})
	e.lastFrame = time.Now()
	e.window.ProcessMessages()
	e.signalQuit()
}

// Quit signals the message loop to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) stopped() bool {
	select {
	case <-e.quitChannel:
		return true
	default:
		return false
	}
}

func (e *engine) Submit(cmd viewer.Command) error {
	if e.stopped() {
		return ErrStopped
	}
	select {
	case e.commands <- cmd:
		return nil
	default:
		return ErrQueueFull
	}
}

// frame runs one loop iteration: drain queued commands, run the frame callback, render,
// tick the profiler and honor the frame limit.
func (e *engine) frame() {
	if e.stopped() {
		e.window.RequestClose()
		return
	}

	start := time.Now()
	dt := float32(start.Sub(e.lastFrame).Seconds())
	e.lastFrame = start

	// Only the commands queued before this frame started; later ones wait for the next frame.
	for n := len(e.commands); n > 0; n-- {
		e.dispatch(<-e.commands)
	}

	if e.frameCallback != nil {
		e.frameCallback(dt)
	}

	if err := e.viewer.Render(); err != nil {
		e.errorHandler(viewer.Command{Kind: viewer.CommandRender}, err)
	}

	if e.profilingEnabled && e.profiler != nil {
		e.profiler.Tick()
	}

	if e.renderFrameLimit > 0 {
		if remaining := e.renderFrameLimit - time.Since(start); remaining > 0 {
			time.Sleep(remaining)
		}
	}
}

func (e *engine) dispatch(cmd viewer.Command) {
	if err := e.viewer.Dispatch(cmd); err != nil {
		e.errorHandler(cmd, err)
	}
}

func (e *engine) logError(cmd viewer.Command, err error) {
	common.Logger().Warn("command failed", "command", cmd.Kind, "error", err)
}

func (e *engine) mouseButton(button int, pressed bool, x, y float32) {
	if !pressed {
		if button == e.dragButton {
			e.dragButton = -1
		}
		return
	}
	e.dragButton = button
	e.lastX, e.lastY = x, y
}

// mouseMove turns drags into navigation: left orbits, right and middle pan.
func (e *engine) mouseMove(x, y float32) {
	if e.dragButton < 0 {
		return
	}
	dx, dy := x-e.lastX, y-e.lastY
	e.lastX, e.lastY = x, y
	if dx == 0 && dy == 0 {
		return
	}
	kind := viewer.CommandPan
	if e.dragButton == common.MouseButtonLeft {
		kind = viewer.CommandOrbit
	}
	e.dispatch(viewer.Command{Kind: kind, DX: dx, DY: dy})
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameDuration(fps)
}

func (e *engine) SetFrameCallback(callback func(deltaTime float32)) {
	e.frameCallback = callback
}

func (e *engine) SetKeyCallback(callback func(keyCode uint32)) {
	e.keyCallback = callback
}

func (e *engine) SetErrorHandler(handler func(cmd viewer.Command, err error)) {
	if handler == nil {
		handler = e.logError
	}
	e.errorHandler = handler
}

func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
