package window

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwWindow is the GLFW-backed Window.
type glfwWindow struct {
	*input

	handle *glfw.Window
	closed bool
}

var _ Window = &glfwWindow{}

// NewWindow creates and shows a window without a client API context, since the surface is
// driven by WebGPU. The calling goroutine is locked to its OS thread for the lifetime of the
// window.
//
// Parameters:
//   - options: builder options applied over the defaults
//
// Returns:
//   - Window: the created window
//   - error: a wrapped common.ErrInit when GLFW or the window cannot be initialized
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	c := defaultConfig()
	for _, opt := range options {
		opt(&c)
	}

	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("%w: glfw: %v", common.ErrInit, err)
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	handle, err := glfw.CreateWindow(c.width, c.height, c.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("%w: create window: %v", common.ErrInit, err)
	}
	handle.SetSizeLimits(c.minW, c.minH, c.maxW, c.maxH)

	w := &glfwWindow{input: &input{}, handle: handle}
	w.install()

	// The framebuffer differs from the requested size on high-DPI displays.
	w.width, w.height = handle.GetFramebufferSize()
	common.Logger().Debug("window created", "title", c.title, "width", w.width, "height", w.height)
	return w, nil
}

// install routes GLFW callbacks into the input dispatcher.
func (w *glfwWindow) install() {
	w.handle.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		w.key(uint32(key), action == glfw.Release)
	})
	w.handle.SetScrollCallback(func(_ *glfw.Window, _, dy float64) {
		w.scroll(dy)
	})
	w.handle.SetMouseButtonCallback(func(win *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		if action == glfw.Repeat {
			return
		}
		x, y := win.GetCursorPos()
		w.button(int(button), action == glfw.Press, x, y)
	})
	w.handle.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		w.move(x, y)
	})
	w.handle.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.framebuffer(width, height)
	})
}

func (w *glfwWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	if w.closed {
		return nil
	}
	return wgpuglfw.GetSurfaceDescriptor(w.handle)
}

func (w *glfwWindow) IsRunning() bool {
	return !w.closed && !w.handle.ShouldClose()
}

func (w *glfwWindow) RequestClose() {
	if !w.closed {
		w.handle.SetShouldClose(true)
	}
}

func (w *glfwWindow) Close() error {
	if w.closed {
		return errors.New("window already closed")
	}
	w.closed = true
	w.handle.Destroy()
	glfw.Terminate()
	return nil
}

func (w *glfwWindow) ProcessMessages() {
	for w.IsRunning() {
		glfw.PollEvents()
		if !w.IsRunning() {
			return
		}
		w.update()
		runtime.Gosched()
	}
}
