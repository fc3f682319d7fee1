package renderer

import (
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// Only specific power-of-two values are valid for GPU hardware. WebGPU guarantees support for
// 1 (off) and 4; higher values (8, 16) are adapter-dependent and may not be available.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4× multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4

	// MSAA8x enables 8× multisample anti-aliasing. Adapter-dependent; not all hardware supports this.
	MSAA8x MSAASampleCount = 8

	// MSAA16x enables 16× multisample anti-aliasing. Adapter-dependent; not all hardware supports this.
	MSAA16x MSAASampleCount = 16
)

// Limits are the device limits the scene engine sizes its allocations and dispatches against.
type Limits struct {
	// MaxBufferSize is the largest buffer, in bytes, that may be created and bound as storage.
	MaxBufferSize uint64

	// MaxWorkgroupsPerDimension is the largest workgroup count of a single dispatch dimension.
	MaxWorkgroupsPerDimension uint32

	// MaxTextureDimension2D bounds the surface and its depth and MSAA attachments.
	MaxTextureDimension2D uint32
}

// Fallbacks for limits the bindings report as undefined.
const (
	defaultMaxBufferSize             uint64 = 256 << 20
	defaultMaxStorageBindingSize     uint64 = 128 << 20
	defaultMaxWorkgroupsPerDimension uint32 = 65535
	defaultMaxTextureDimension2D     uint32 = 8192
)

// DefaultLimits returns the WebGPU default limits. Values the bindings leave undefined
// resolve to the minimums every WebGPU implementation guarantees.
func DefaultLimits() Limits {
	l := wgpu.DefaultLimits()
	maxBuffer := definedU64(l.MaxBufferSize, defaultMaxBufferSize)
	if binding := definedU64(l.MaxStorageBufferBindingSize, defaultMaxStorageBindingSize); binding < maxBuffer {
		maxBuffer = binding
	}
	return Limits{
		MaxBufferSize:             maxBuffer,
		MaxWorkgroupsPerDimension: definedU32(l.MaxComputeWorkgroupsPerDimension, defaultMaxWorkgroupsPerDimension),
		MaxTextureDimension2D:     definedU32(l.MaxTextureDimension2D, defaultMaxTextureDimension2D),
	}
}

func definedU32(v, fallback uint32) uint32 {
	if v == wgpu.LimitU32Undefined || v == 0 {
		return fallback
	}
	return v
}

func definedU64(v, fallback uint64) uint64 {
	if v == wgpu.LimitU64Undefined || v == 0 {
		return fallback
	}
	return v
}

// RendererBackend is the graphics device capability consumed by the scene engine: buffer
// allocation and writes, pipeline compilation, bind groups, frame encoding and presentation,
// compute dispatch and buffer readback. Handles it returns are opaque to callers and are
// released through their own Release methods.
//
// Methods that can fail return plain errors; the resource manager, frame renderer and
// densifier wrap them into DeviceError values.
type RendererBackend interface {
	// ConfigureSurface (re)configures the presentation surface and its depth and MSAA
	// attachments. On failure the previous configuration stays in force.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels (> 0)
	//   - height: the new height of the surface in pixels (> 0)
	//
	// Returns:
	//   - error: an error if the new configuration could not be applied
	ConfigureSurface(width, height uint32) error

	// SetPresentMode sets the present mode used by the next ConfigureSurface.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// Limits returns the limits of the acquired device.
	Limits() Limits

	// CreateBuffer allocates an uninitialized buffer.
	//
	// Parameters:
	//   - label: the debug label
	//   - usage: the buffer usage flags
	//   - size: the size in bytes
	//
	// Returns:
	//   - bind_group_provider.GPUBuffer: the new buffer
	//   - error: an error if the allocation failed
	CreateBuffer(label string, usage wgpu.BufferUsage, size uint64) (bind_group_provider.GPUBuffer, error)

	// CreateBufferInit allocates a buffer sized to data and populates it before returning.
	//
	// Parameters:
	//   - label: the debug label
	//   - usage: the buffer usage flags
	//   - data: the initial contents
	//
	// Returns:
	//   - bind_group_provider.GPUBuffer: the populated buffer
	//   - error: an error if the allocation or upload failed
	CreateBufferInit(label string, usage wgpu.BufferUsage, data []byte) (bind_group_provider.GPUBuffer, error)

	// WriteBuffers writes all staged buffer writes to the GPU queue. No write is issued when
	// any of them fails validation.
	//
	// Parameters:
	//   - writes: a slice of BufferWrite structs describing the data to write
	//
	// Returns:
	//   - error: an error if a write has no target or overflows it
	WriteBuffers(writes []bind_group_provider.BufferWrite) error

	// RegisterRenderPipeline compiles a render pipeline and attaches the result to p.
	//
	// Parameters:
	//   - p: the pipeline description holding vertex and fragment shaders
	//
	// Returns:
	//   - error: an error if the pipeline could not be created
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// RegisterComputePipeline compiles a compute pipeline and attaches the result to p.
	//
	// Parameters:
	//   - p: the pipeline description holding the compute shader
	//
	// Returns:
	//   - error: an error if the pipeline could not be created
	RegisterComputePipeline(p pipeline.Pipeline) error

	// InitBindGroup creates the bind group for one group index of a registered pipeline from
	// the buffers attached to provider and stores it on the provider.
	//
	// Parameters:
	//   - p: the registered pipeline whose layout the bind group follows
	//   - group: the bind group index
	//   - provider: the provider holding a buffer for every binding of the group
	//
	// Returns:
	//   - error: an error if a binding has no buffer or creation failed
	InitBindGroup(p pipeline.Pipeline, group int, provider bind_group_provider.BindGroupProvider) error

	// BeginFrame acquires the next surface texture, creates a command encoder and begins the
	// main render pass cleared to clearColor. Must be paired with EndFrame.
	//
	// Parameters:
	//   - clearColor: the color the render target is cleared to
	//
	// Returns:
	//   - error: an error wrapping common.ErrSurfaceStale if no frame could be acquired
	BeginFrame(clearColor wgpu.Color) error

	// Draw encodes a non-indexed draw within the current render pass.
	//
	// Parameters:
	//   - p: the registered render pipeline
	//   - vertices: the vertex buffer bound at slot 0
	//   - vertexCount: the number of vertices to draw
	//   - bindGroups: the providers whose bind groups are set at indices 0..n-1
	Draw(p pipeline.Pipeline, vertices bind_group_provider.GPUBuffer, vertexCount uint32, bindGroups []bind_group_provider.BindGroupProvider)

	// EndFrame ends the current render pass and submits the command buffer to the GPU.
	// Does not present the surface; call Present after EndFrame to display the frame.
	//
	// Returns:
	//   - error: an error if the command buffer could not be finished
	EndFrame() error

	// Present presents the surface to the display and releases the surface texture.
	Present()

	// DispatchCompute encodes and submits a single compute pass.
	//
	// Parameters:
	//   - p: the registered compute pipeline
	//   - provider: the provider whose bind group is set at index 0
	//   - workGroupCount: the number of workgroups to dispatch in the x, y, and z dimensions
	//
	// Returns:
	//   - error: an error if encoding or submission failed
	DispatchCompute(p pipeline.Pipeline, provider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error

	// ReadBuffer copies the first size bytes of buf into a mappable staging buffer, waits for
	// the device and returns a copy of the contents.
	//
	// Parameters:
	//   - buf: the buffer to read, created with BufferUsageCopySrc
	//   - size: the number of bytes to read
	//
	// Returns:
	//   - []byte: the buffer contents
	//   - error: an error if the copy or mapping failed
	ReadBuffer(buf bind_group_provider.GPUBuffer, size uint64) ([]byte, error)

	// Release releases the surface, device, adapter and instance. Resources created through
	// the backend must be released first.
	Release()
}
