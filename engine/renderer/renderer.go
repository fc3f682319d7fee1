package renderer

import (
	"errors"
	"sync"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/Carmen-Shannon/oxy-splat/engine/camera"
	"github.com/Carmen-Shannon/oxy-splat/engine/splat"
	"github.com/cogentcore/webgpu/wgpu"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backend   RendererBackend
	resources ResourceManager
	frames    FrameRenderer
	densifier Densifier

	// Pre-creation config collected from builder options
	clearColor     wgpu.Color
	eagerPipelines bool

	released bool
}

// Renderer is the device session of a viewer: one acquired backend together with the resource
// manager, frame renderer and densifier that share it.
//
// This is a high-level API designed to simplify rendering tasks into a streamlined and idiomatic flow.
// The Renderer owns the backend: Release tears down every resource and then the device itself.
type Renderer interface {
	// Backend returns the device capability this renderer draws with.
	Backend() RendererBackend

	// Resources returns the resource manager owning the splat buffer, view uniform and pipelines.
	Resources() ResourceManager

	// Frames returns the frame renderer.
	Frames() FrameRenderer

	// Densifier returns the densification engine.
	Densifier() Densifier

	// Resize configures the underlying backend to handle a new surface size.
	// This should be called when re-sizing the window or when the surface size should change.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	//
	// Returns:
	//   - error: common.ErrInvalidSize for a zero dimension, a DeviceError on backend failure
	Resize(width, height uint32) error

	// Sync uploads the table to the splat buffer.
	//
	// Parameters:
	//   - t: the authoritative table
	//
	// Returns:
	//   - error: a DeviceError on failure
	Sync(t *splat.Table) error

	// Render draws one frame with the given view uniform.
	//
	// Parameters:
	//   - view: the view uniform for this frame
	//
	// Returns:
	//   - error: a DeviceError on failure
	Render(view camera.GPUViewUniform) error

	// Densify multiplies the resident records by factor on the device.
	//
	// Parameters:
	//   - t: the authoritative table
	//   - factor: the densification factor
	//   - seed: the jitter seed
	//
	// Returns:
	//   - *splat.Table: the densified table
	//   - error: common.ErrInvalidFactor or a DeviceError on failure
	Densify(t *splat.Table, factor int, seed uint32) (*splat.Table, error)

	// Release releases every device resource and then the backend. Safe to call more than once.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer on an acquired backend.
//
// Parameters:
//   - backend: the device capability, owned by the renderer from now on
//   - options: functional options to configure the renderer
//
// Returns:
//   - Renderer: the new renderer
//   - error: a DeviceError if eager pipeline compilation failed; the backend is released in that case
func NewRenderer(backend RendererBackend, options ...RendererBuilderOption) (Renderer, error) {
	if backend == nil {
		return nil, errors.New("renderer: nil backend")
	}
	r := &renderer{
		mu:         &sync.Mutex{},
		backend:    backend,
		clearColor: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
	}
	for _, opt := range options {
		opt(r)
	}

	r.resources = NewResourceManager(backend)
	r.frames = NewFrameRenderer(r.resources, r.clearColor)
	r.densifier = NewDensifier(r.resources)

	if r.eagerPipelines {
		if err := r.resources.EnsurePipelines(); err != nil {
			r.Release()
			return nil, err
		}
	}
	return r, nil
}

func (r *renderer) Backend() RendererBackend {
	return r.backend
}

func (r *renderer) Resources() ResourceManager {
	return r.resources
}

func (r *renderer) Frames() FrameRenderer {
	return r.frames
}

func (r *renderer) Densifier() Densifier {
	return r.densifier
}

func (r *renderer) Resize(width, height uint32) error {
	return r.resources.ConfigureSurface(width, height)
}

func (r *renderer) Sync(t *splat.Table) error {
	return r.resources.SyncBuffers(t)
}

func (r *renderer) Render(view camera.GPUViewUniform) error {
	return r.frames.Render(view)
}

func (r *renderer) Densify(t *splat.Table, factor int, seed uint32) (*splat.Table, error) {
	return r.densifier.Densify(t, factor, seed)
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return
	}
	r.released = true
	r.resources.Release()
	r.backend.Release()
	common.Logger().Info("graphics device released")
}
