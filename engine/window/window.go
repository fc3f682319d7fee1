package window

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// Window is the presentation surface of the viewer and the source of its input events.
// Every method must be called from the goroutine that created the window, which NewWindow
// pins to its OS thread.
type Window interface {
	// SetUpdateCallback sets the function run once per message loop iteration, after events
	// were polled. Nil disables it.
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the framebuffer resize handler. Width and height are in pixels and
	// are both zero while the window is minimized.
	SetResizeCallback(callback func(width, height int))

	// SetScrollCallback sets the vertical wheel handler. Positive deltas scroll up.
	SetScrollCallback(callback func(delta float32))

	// SetKeyDownCallback sets the handler for key presses and auto-repeats.
	//
	// Parameters:
	//   - callback: receives the key code, see the common.Key* constants
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetMouseButtonCallback sets the handler for mouse button presses and releases.
	//
	// Parameters:
	//   - callback: receives the button (common.MouseButton*), the pressed state and the cursor
	//     position in pixels
	SetMouseButtonCallback(callback func(button int, pressed bool, x, y float32))

	// SetMouseMoveCallback sets the cursor movement handler.
	SetMouseMoveCallback(callback func(x, y float32))

	// SurfaceDescriptor returns the platform surface descriptor used to create the WebGPU
	// surface, or nil once the window is closed.
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning reports whether the message loop would run another iteration.
	IsRunning() bool

	// RequestClose stops the message loop after the current iteration.
	RequestClose()

	// Close destroys the window and releases the platform library.
	//
	// Returns:
	//   - error: an error when the window was already closed
	Close() error

	// ProcessMessages polls events and runs the update callback until the window is closed.
	ProcessMessages()

	// Width returns the framebuffer width in pixels.
	Width() int

	// Height returns the framebuffer height in pixels.
	Height() int
}

// config is the state collected by the builder options before the platform window exists.
type config struct {
	title         string
	width, height int
	minW, minH    int
	maxW, maxH    int
}

func defaultConfig() config {
	return config{
		title:  "oxy-splat",
		width:  1280,
		height: 720,
		minW:   320,
		minH:   240,
		maxW:   3840,
		maxH:   2160,
	}
}

// input fans platform events out to the registered callbacks and tracks the framebuffer size.
// It holds no platform state.
type input struct {
	width, height int

	onUpdate      func()
	onResize      func(width, height int)
	onScroll      func(delta float32)
	onKeyDown     func(keyCode uint32)
	onMouseButton func(button int, pressed bool, x, y float32)
	onMouseMove   func(x, y float32)
}

func (in *input) SetUpdateCallback(callback func())                  { in.onUpdate = callback }
func (in *input) SetResizeCallback(callback func(width, height int)) { in.onResize = callback }
func (in *input) SetScrollCallback(callback func(delta float32))     { in.onScroll = callback }
func (in *input) SetKeyDownCallback(callback func(keyCode uint32))   { in.onKeyDown = callback }
func (in *input) SetMouseMoveCallback(callback func(x, y float32))   { in.onMouseMove = callback }

func (in *input) SetMouseButtonCallback(callback func(button int, pressed bool, x, y float32)) {
	in.onMouseButton = callback
}

func (in *input) Width() int  { return in.width }
func (in *input) Height() int { return in.height }

// key forwards presses and repeats. Releases are dropped.
func (in *input) key(code uint32, released bool) {
	if released || in.onKeyDown == nil {
		return
	}
	in.onKeyDown(code)
}

func (in *input) scroll(dy float64) {
	if in.onScroll != nil {
		in.onScroll(float32(dy))
	}
}

func (in *input) button(button int, pressed bool, x, y float64) {
	if in.onMouseButton != nil {
		in.onMouseButton(button, pressed, float32(x), float32(y))
	}
}

func (in *input) move(x, y float64) {
	if in.onMouseMove != nil {
		in.onMouseMove(float32(x), float32(y))
	}
}

// framebuffer records the new size before notifying, so Width and Height are current inside
// the resize callback.
func (in *input) framebuffer(width, height int) {
	in.width, in.height = width, height
	if in.onResize != nil {
		in.onResize(width, height)
	}
}

func (in *input) update() {
	if in.onUpdate != nil {
		in.onUpdate()
	}
}
