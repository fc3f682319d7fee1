package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/Carmen-Shannon/oxy-splat/engine/camera"
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-splat/engine/splat"
	"github.com/cogentcore/webgpu/wgpu"
)

// ResourceStats counts the device resources the resource manager has created and released.
type ResourceStats struct {
	SurfaceConfigurations int
	BufferAllocations     int
	BufferReleases        int
	InPlaceWrites         int
	UniformWrites         int
	PipelineBuilds        int
}

// ResourceManager owns the device-side state of a scene: the surface configuration, the splat
// buffer, the view uniform and the compiled pipelines. Buffers are replaced without a window
// in which none is bound: a new buffer is fully populated before the old one is released.
type ResourceManager interface {
	// ConfigureSurface configures the surface for a new size. Identical dimensions are a no-op.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: common.ErrInvalidSize for a zero dimension, a DeviceError if the backend failed;
	//     the previous configuration is kept in both cases
	ConfigureSurface(width, height uint32) error

	// SurfaceSize returns the configured surface size, zero before the first configuration.
	SurfaceSize() (uint32, uint32)

	// Configured reports whether the surface has been configured at least once.
	Configured() bool

	// SyncBuffers makes the splat buffer mirror the table. A changed record count allocates a
	// new buffer populated at creation; an unchanged count is rewritten in place; an empty
	// table releases the buffer.
	//
	// Parameters:
	//   - t: the table to mirror, nil is treated as empty
	//
	// Returns:
	//   - error: a DeviceError on allocation or write failure, the previous buffer stays bound
	SyncBuffers(t *splat.Table) error

	// SwapSplatBuffer replaces the splat buffer with one already populated on the device and
	// releases the previous buffer.
	//
	// Parameters:
	//   - buf: the new buffer, nil releases the current one
	//   - count: the number of records held by buf
	SwapSplatBuffer(buf bind_group_provider.GPUBuffer, count int, bounds common.Sphere)

	// Bounds returns the bounding sphere of the resident records.
	//
	// Returns:
	//   - common.Sphere: the bounds of the last synced or swapped table
	//   - bool: false when no records are resident
	Bounds() (common.Sphere, bool)

	// SplatBuffer returns the current splat buffer, nil when no records are resident.
	SplatBuffer() bind_group_provider.GPUBuffer

	// RecordCount returns the number of records resident in the splat buffer.
	RecordCount() int

	// EnsurePipelines compiles the render and densify pipelines and creates the view uniform on
	// first use. A failure is remembered and returned by every later call.
	//
	// Returns:
	//   - error: a DeviceError if any pipeline could not be built
	EnsurePipelines() error

	// RenderPipeline returns the compiled render pipeline, nil before EnsurePipelines succeeds.
	RenderPipeline() pipeline.Pipeline

	// ComputePipeline returns the compiled densify pipeline, nil before EnsurePipelines succeeds.
	ComputePipeline() pipeline.Pipeline

	// WriteViewUniform uploads the view uniform read by the render pipeline.
	//
	// Parameters:
	//   - u: the view uniform
	//
	// Returns:
	//   - error: a DeviceError if the pipelines are not built or the write failed
	WriteViewUniform(u camera.GPUViewUniform) error

	// ViewBindings returns the bind group providers set on the render pipeline, in group order.
	ViewBindings() []bind_group_provider.BindGroupProvider

	// Backend returns the device capability the manager allocates from.
	Backend() RendererBackend

	// Stats returns a snapshot of the allocation counters.
	Stats() ResourceStats

	// Release releases every resource the manager owns. The backend itself is left alive.
	Release()
}

type resourceManager struct {
	mu      *sync.Mutex
	backend RendererBackend

	width, height uint32
	configured    bool

	// splats owns the splat buffer at binding 0.
	splats bind_group_provider.BindGroupProvider
	count  int
	bounds common.Sphere

	view           bind_group_provider.BindGroupProvider
	renderPipeline pipeline.Pipeline
	computePipe    pipeline.Pipeline
	pipelineErr    error

	stats    ResourceStats
	released bool
}

var _ ResourceManager = &resourceManager{}

// NewResourceManager creates a resource manager allocating from backend.
//
// Parameters:
//   - backend: the device capability
//
// Returns:
//   - ResourceManager: the new manager with no resident resources
func NewResourceManager(backend RendererBackend) ResourceManager {
	return &resourceManager{
		mu:      &sync.Mutex{},
		backend: backend,
		splats:  bind_group_provider.NewBindGroupProvider("Splats"),
	}
}

func (m *resourceManager) ConfigureSurface(width, height uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if width == 0 || height == 0 {
		return fmt.Errorf("%w: %dx%d", common.ErrInvalidSize, width, height)
	}
	if m.configured && width == m.width && height == m.height {
		return nil
	}
	if limit := m.backend.Limits().MaxTextureDimension2D; width > limit || height > limit {
		return fmt.Errorf("%w: %dx%d exceeds the device texture limit of %d", common.ErrInvalidSize, width, height, limit)
	}
	if err := m.backend.ConfigureSurface(width, height); err != nil {
		if errors.Is(err, common.ErrInvalidSize) {
			return err
		}
		return deviceError("configure surface", err)
	}
	m.width, m.height = width, height
	m.configured = true
	m.stats.SurfaceConfigurations++
	common.Logger().Debug("surface configured", "width", width, "height", height)
	return nil
}

func (m *resourceManager) SurfaceSize() (uint32, uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.width, m.height
}

func (m *resourceManager) Configured() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.configured
}

func (m *resourceManager) SyncBuffers(t *splat.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	if t != nil {
		n = t.Len()
	}
	if n == 0 {
		m.swapLocked(nil, 0, common.Sphere{})
		return nil
	}

	size := uint64(n) * splat.GPUSplatSize
	if limit := m.backend.Limits().MaxBufferSize; size > limit {
		return deviceError("sync buffers", fmt.Errorf("%d records need %d bytes, device limit is %d", n, size, limit))
	}
	data := splat.MarshalTable(t)

	current := m.splats.Buffer(0)
	if current != nil && n == m.count {
		err := m.backend.WriteBuffers([]bind_group_provider.BufferWrite{{
			Provider: m.splats,
			Binding:  0,
			Data:     data,
		}})
		if err != nil {
			return deviceError("write splat buffer", err)
		}
		m.stats.InPlaceWrites++
		m.bounds = t.Bounds()
		common.Logger().Debug("splat buffer rewritten", "records", n, "bytes", size)
		return nil
	}

	buf, err := m.backend.CreateBufferInit("Splat Buffer", SplatBufferUsage, data)
	if err != nil {
		return deviceError("create splat buffer", err)
	}
	m.stats.BufferAllocations++
	m.swapLocked(buf, n, t.Bounds())
	common.Logger().Debug("splat buffer allocated", "records", n, "bytes", size)
	return nil
}

func (m *resourceManager) SwapSplatBuffer(buf bind_group_provider.GPUBuffer, count int, bounds common.Sphere) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if buf != nil {
		m.stats.BufferAllocations++
	}
	m.swapLocked(buf, count, bounds)
}

// swapLocked installs buf as the splat buffer and releases the previous one afterwards.
func (m *resourceManager) swapLocked(buf bind_group_provider.GPUBuffer, count int, bounds common.Sphere) {
	old := m.splats.Detach(0)
	if buf != nil {
		m.splats.SetBuffer(0, buf)
		m.count = count
		m.bounds = bounds
	} else {
		m.count = 0
		m.bounds = common.Sphere{}
	}
	if old != nil && old != buf {
		old.Release()
		m.stats.BufferReleases++
	}
}

func (m *resourceManager) SplatBuffer() bind_group_provider.GPUBuffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.splats.Buffer(0)
}

func (m *resourceManager) Bounds() (common.Sphere, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bounds, m.count > 0
}

func (m *resourceManager) RecordCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

func (m *resourceManager) EnsurePipelines() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pipelineErr != nil {
		return m.pipelineErr
	}
	if m.renderPipeline != nil {
		return nil
	}

	render, compute, err := newSplatPipelines()
	if err != nil {
		m.pipelineErr = deviceError("parse shaders", err)
		return m.pipelineErr
	}
	if err := m.backend.RegisterRenderPipeline(render); err != nil {
		m.pipelineErr = deviceError("build "+RenderPipelineKey, err)
		return m.pipelineErr
	}
	if err := m.backend.RegisterComputePipeline(compute); err != nil {
		render.Release()
		m.pipelineErr = deviceError("build "+DensifyPipelineKey, err)
		return m.pipelineErr
	}

	var u camera.GPUViewUniform
	uniform, err := m.backend.CreateBuffer("View Uniform", wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst, uint64(u.Size()))
	if err != nil {
		render.Release()
		compute.Release()
		m.pipelineErr = deviceError("create view uniform", err)
		return m.pipelineErr
	}
	view := bind_group_provider.NewBindGroupProvider("View", bind_group_provider.WithBuffer(0, uniform))
	if err := m.backend.InitBindGroup(render, 0, view); err != nil {
		view.Release()
		render.Release()
		compute.Release()
		m.pipelineErr = deviceError("bind view uniform", err)
		return m.pipelineErr
	}

	m.renderPipeline = render
	m.computePipe = compute
	m.view = view
	m.stats.PipelineBuilds += 2
	m.stats.BufferAllocations++
	common.Logger().Debug("pipelines built", "render", RenderPipelineKey, "compute", DensifyPipelineKey)
	return nil
}

func (m *resourceManager) RenderPipeline() pipeline.Pipeline {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.renderPipeline
}

func (m *resourceManager) ComputePipeline() pipeline.Pipeline {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.computePipe
}

func (m *resourceManager) WriteViewUniform(u camera.GPUViewUniform) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.view == nil {
		return deviceError("write view uniform", errors.New("pipelines are not built"))
	}
	err := m.backend.WriteBuffers([]bind_group_provider.BufferWrite{{
		Provider: m.view,
		Binding:  0,
		Data:     u.Marshal(),
	}})
	if err != nil {
		return deviceError("write view uniform", err)
	}
	m.stats.UniformWrites++
	return nil
}

func (m *resourceManager) ViewBindings() []bind_group_provider.BindGroupProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.view == nil {
		return nil
	}
	return []bind_group_provider.BindGroupProvider{m.view}
}

func (m *resourceManager) Backend() RendererBackend {
	return m.backend
}

func (m *resourceManager) Stats() ResourceStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

func (m *resourceManager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.released {
		return
	}
	m.released = true
	m.swapLocked(nil, 0, common.Sphere{})
	m.splats.Release()
	if m.view != nil {
		m.view.Release()
		m.view = nil
		m.stats.BufferReleases++
	}
	if m.renderPipeline != nil {
		m.renderPipeline.Release()
		m.renderPipeline = nil
	}
	if m.computePipe != nil {
		m.computePipe.Release()
		m.computePipe = nil
	}
}
