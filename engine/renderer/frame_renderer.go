package renderer

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/Carmen-Shannon/oxy-splat/engine/camera"
	"github.com/cogentcore/webgpu/wgpu"
)

// FrameState is the stage of the frame currently being produced.
type FrameState int

const (
	FrameStateIdle FrameState = iota
	FrameStateAcquire
	FrameStateEncode
	FrameStateSubmit
	FrameStatePresent
)

func (s FrameState) String() string {
	switch s {
	case FrameStateIdle:
		return "idle"
	case FrameStateAcquire:
		return "acquire"
	case FrameStateEncode:
		return "encode"
	case FrameStateSubmit:
		return "submit"
	case FrameStatePresent:
		return "present"
	default:
		return "unknown"
	}
}

// FrameStats counts the outcome of every Render call.
type FrameStats struct {
	Presented int // frames submitted and presented
	Skipped   int // frames skipped because the surface was unconfigured or stale
	Draws     int // draw calls issued
	Culled    int // frames cleared without a draw because the scene was outside the view
}

// FrameRenderer produces one presented frame per Render call.
type FrameRenderer interface {
	// Render writes the view uniform and draws every resident record to the next surface texture.
	// Nothing happens before the surface is configured, and a stale surface skips the frame.
	//
	// Parameters:
	//   - view: the view uniform for this frame
	//
	// Returns:
	//   - error: a DeviceError if pipelines, writes or submission failed
	Render(view camera.GPUViewUniform) error

	// State returns the stage of the frame in progress, FrameStateIdle between frames.
	State() FrameState

	// Stats returns a snapshot of the frame counters.
	Stats() FrameStats

	// ClearColor returns the color each frame is cleared to.
	ClearColor() wgpu.Color
}

type frameRenderer struct {
	mu         *sync.Mutex
	resources  ResourceManager
	clearColor wgpu.Color
	state      atomic.Int32
	stats      FrameStats
}

var _ FrameRenderer = &frameRenderer{}

// NewFrameRenderer creates a frame renderer drawing the resources of rm.
//
// Parameters:
//   - rm: the resource manager holding the surface, buffers and pipelines
//   - clearColor: the color each frame is cleared to
//
// Returns:
//   - FrameRenderer: the new frame renderer
func NewFrameRenderer(rm ResourceManager, clearColor wgpu.Color) FrameRenderer {
	return &frameRenderer{
		mu:         &sync.Mutex{},
		resources:  rm,
		clearColor: clearColor,
	}
}

func (f *frameRenderer) Render(view camera.GPUViewUniform) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	defer f.setState(FrameStateIdle)

	if !f.resources.Configured() {
		f.stats.Skipped++
		return nil
	}
	if err := f.resources.EnsurePipelines(); err != nil {
		return err
	}
	if err := f.resources.WriteViewUniform(view); err != nil {
		return err
	}

	backend := f.resources.Backend()
	f.setState(FrameStateAcquire)
	if err := backend.BeginFrame(f.clearColor); err != nil {
		if errors.Is(err, common.ErrSurfaceStale) {
			f.stats.Skipped++
			common.Logger().Warn("frame skipped", "reason", err)
			return nil
		}
		return deviceError("begin frame", err)
	}

	f.setState(FrameStateEncode)
	if count := f.resources.RecordCount(); count > 0 {
		if f.visible(view) {
			backend.Draw(f.resources.RenderPipeline(), f.resources.SplatBuffer(), uint32(count), f.resources.ViewBindings())
			f.stats.Draws++
		} else {
			f.stats.Culled++
		}
	}

	f.setState(FrameStateSubmit)
	if err := backend.EndFrame(); err != nil {
		backend.Present()
		return deviceError("submit frame", err)
	}

	f.setState(FrameStatePresent)
	backend.Present()
	f.stats.Presented++
	return nil
}

// visible reports whether the resident bounds intersect the view frustum.
func (f *frameRenderer) visible(view camera.GPUViewUniform) bool {
	bounds, ok := f.resources.Bounds()
	if !ok {
		return false
	}
	frustum := common.ExtractFrustumFromMatrix(view.ViewProj[:])
	return frustum.IntersectsSphere(bounds)
}

func (f *frameRenderer) State() FrameState {
	return FrameState(f.state.Load())
}

func (f *frameRenderer) setState(s FrameState) {
	f.state.Store(int32(s))
}

func (f *frameRenderer) Stats() FrameStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

func (f *frameRenderer) ClearColor() wgpu.Color {
	return f.clearColor
}
