package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuBuffer wraps a *wgpu.Buffer with the metadata the GPUBuffer interface exposes.
type wgpuBuffer struct {
	buf      *wgpu.Buffer
	label    string
	size     uint64
	usage    wgpu.BufferUsage
	released bool
}

var _ bind_group_provider.GPUBuffer = &wgpuBuffer{}

func (b *wgpuBuffer) Label() string           { return b.label }
func (b *wgpuBuffer) Size() uint64            { return b.size }
func (b *wgpuBuffer) Usage() wgpu.BufferUsage { return b.usage }

func (b *wgpuBuffer) Release() {
	if b.released {
		return
	}
	b.released = true
	b.buf.Release()
}

// surfaceTargets are the attachments sized to the surface. They are replaced as a unit.
type surfaceTargets struct {
	width, height    uint32
	msaaTexture      *wgpu.Texture
	msaaTextureView  *wgpu.TextureView
	depthTexture     *wgpu.Texture
	depthTextureView *wgpu.TextureView
}

func (t *surfaceTargets) release() {
	if t == nil {
		return
	}
	if t.msaaTextureView != nil {
		t.msaaTextureView.Release()
	}
	if t.msaaTexture != nil {
		t.msaaTexture.Release()
	}
	if t.depthTextureView != nil {
		t.depthTextureView.Release()
	}
	if t.depthTexture != nil {
		t.depthTexture.Release()
	}
}

// pipelineLayout keeps the layouts created for a registered pipeline so bind groups can be
// created against them later.
type pipelineLayout struct {
	layout      *wgpu.PipelineLayout
	groups      []*wgpu.BindGroupLayout
	descriptors map[int]wgpu.BindGroupLayoutDescriptor
}

func (l *pipelineLayout) release() {
	for _, g := range l.groups {
		if g != nil {
			g.Release()
		}
	}
	if l.layout != nil {
		l.layout.Release()
	}
}

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	alphaMode     wgpu.CompositeAlphaMode
	targets       *surfaceTargets
	limits        Limits

	presentMode wgpu.PresentMode
	sampleCount MSAASampleCount

	layouts map[string]*pipelineLayout

	// Frame state between BeginFrame and Present.
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

// NewWGPURendererBackend acquires a WebGPU instance, adapter and device for the given surface.
// The calling goroutine is locked to its OS thread, which must be the thread that owns the window.
//
// Parameters:
//   - surfaceDescriptor: the platform-specific surface descriptor, typically from Window.SurfaceDescriptor
//   - options: backend options such as WithMSAA, WithPresentMode and WithForceSoftwareRenderer
//
// Returns:
//   - RendererBackend: the acquired backend
//   - error: an error wrapping common.ErrInit if no compatible adapter or device is available
func NewWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, options ...BackendBuilderOption) (RendererBackend, error) {
	cfg := defaultBackendConfig()
	for _, opt := range options {
		opt(&cfg)
	}
	if surfaceDescriptor == nil {
		return nil, fmt.Errorf("%w: no surface descriptor", common.ErrInit)
	}

	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		sampleCount: cfg.sampleCount,
		layouts:     make(map[string]*pipelineLayout),
	}
	w.SetPresentMode(cfg.presentMode)

	w.surface = w.instance.CreateSurface(surfaceDescriptor)
	if w.surface == nil {
		w.Release()
		return nil, fmt.Errorf("%w: surface creation failed", common.ErrInit)
	}

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: cfg.forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		w.Release()
		return nil, fmt.Errorf("%w: request adapter: %v", common.ErrInit, err)
	}
	w.adapter = a

	limits := wgpu.DefaultLimits()
	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Splat Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		w.Release()
		return nil, fmt.Errorf("%w: request device: %v", common.ErrInit, err)
	}
	w.device = d
	w.queue = d.GetQueue()
	w.limits = DefaultLimits()

	capabilities := w.surface.GetCapabilities(w.adapter)
	if len(capabilities.Formats) == 0 || len(capabilities.AlphaModes) == 0 {
		w.Release()
		return nil, fmt.Errorf("%w: surface is not compatible with the adapter", common.ErrInit)
	}
	w.surfaceFormat = capabilities.Formats[0]
	w.alphaMode = capabilities.AlphaModes[0]

	common.Logger().Info("graphics device acquired", "msaa", uint32(w.sampleCount), "fallback", cfg.forceFallbackAdapter)
	return w, nil
}

func (b *wgpuRendererBackendImpl) Limits() Limits {
	return b.limits
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if width == 0 || height == 0 || width > b.limits.MaxTextureDimension2D || height > b.limits.MaxTextureDimension2D {
		return fmt.Errorf("%w: %dx%d", common.ErrInvalidSize, width, height)
	}
	if b.frameSurface != nil {
		return errors.New("cannot reconfigure the surface while a frame is held")
	}

	next, err := b.createSurfaceTargets(width, height)
	if err != nil {
		next.release()
		return err
	}

	// Configure reports no error. A rejection shows up later as a failed frame acquisition,
	// so the size is checked against the device limits above.
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       width,
		Height:      height,
		PresentMode: b.presentMode,
		AlphaMode:   b.alphaMode,
	})

	b.targets.release()
	b.targets = next
	return nil
}

// createSurfaceTargets allocates the MSAA color and depth attachments for a surface size.
// On error the partially created targets are returned so the caller can release them.
func (b *wgpuRendererBackendImpl) createSurfaceTargets(width, height uint32) (*surfaceTargets, error) {
	t := &surfaceTargets{width: width, height: height}
	count := uint32(b.sampleCount)
	size := wgpu.Extent3D{
		Width:              width,
		Height:             height,
		DepthOrArrayLayers: 1,
	}

	var err error
	if count > 1 {
		// The render pass draws into the MSAA texture and resolves into the surface view.
		t.msaaTexture, err = b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label:         "MSAA Texture",
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   count,
			Dimension:     wgpu.TextureDimension2D,
			Format:        b.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			return t, err
		}
		t.msaaTextureView, err = t.msaaTexture.CreateView(nil)
		if err != nil {
			return t, err
		}
	}

	// Depth texture sample count must match the color attachment.
	t.depthTexture, err = b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Depth Texture",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   count,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return t, err
	}
	t.depthTextureView, err = t.depthTexture.CreateView(nil)
	return t, err
}

func (b *wgpuRendererBackendImpl) CreateBuffer(label string, usage wgpu.BufferUsage, size uint64) (bind_group_provider.GPUBuffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if size > b.limits.MaxBufferSize {
		return nil, fmt.Errorf("buffer %q: %d bytes exceeds the device limit of %d", label, size, b.limits.MaxBufferSize)
	}
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             size,
		Usage:            usage,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBuffer{buf: buf, label: label, size: size, usage: usage}, nil
}

func (b *wgpuRendererBackendImpl) CreateBufferInit(label string, usage wgpu.BufferUsage, data []byte) (bind_group_provider.GPUBuffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	size := uint64(len(data))
	if size > b.limits.MaxBufferSize {
		return nil, fmt.Errorf("buffer %q: %d bytes exceeds the device limit of %d", label, size, b.limits.MaxBufferSize)
	}
	buf, err := b.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label,
		Contents: data,
		Usage:    usage,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBuffer{buf: buf, label: label, size: size, usage: usage}, nil
}

func (b *wgpuRendererBackendImpl) WriteBuffers(writes []bind_group_provider.BufferWrite) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	targets := make([]*wgpuBuffer, len(writes))
	for i, w := range writes {
		if err := w.Check(); err != nil {
			return err
		}
		buf, err := asWGPUBuffer(w.Target())
		if err != nil {
			return err
		}
		targets[i] = buf
	}
	for i, w := range writes {
		b.queue.WriteBuffer(targets[i].buf, w.Offset, w.Data)
	}
	return nil
}

func (b *wgpuRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	if err := p.Validate(); err != nil {
		return err
	}
	vertexShader := p.Shader(shader.ShaderTypeVertex)
	fragmentShader := p.Shader(shader.ShaderTypeFragment)

	vs, err := b.device.CreateShaderModule(vertexShader.Module())
	if err != nil {
		return err
	}
	defer vs.Release()
	fs, err := b.device.CreateShaderModule(fragmentShader.Module())
	if err != nil {
		return err
	}
	defer fs.Release()

	layout, err := b.createPipelineLayout(p.PipelineKey(), mergeBindGroupLayouts(vertexShader.BindGroupLayoutDescriptors(), fragmentShader.BindGroupLayoutDescriptors()))
	if err != nil {
		return err
	}

	state := p.RenderState()
	target := wgpu.ColorTargetState{
		Format:    b.surfaceFormat,
		Blend:     state.Blend,
		WriteMask: wgpu.ColorWriteMaskAll,
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: layout.layout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexShader.EntryPoint(),
			Buffers:    vertexShader.VertexLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  state.Topology,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  state.CullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(b.sampleCount),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: state.DepthWrite,
			DepthCompare:      state.DepthCompare(),
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	if err != nil {
		layout.release()
		return err
	}

	b.storeLayout(p.PipelineKey(), layout)
	p.SetHandle(created)
	return nil
}

func (b *wgpuRendererBackendImpl) RegisterComputePipeline(p pipeline.Pipeline) error {
	if err := p.Validate(); err != nil {
		return err
	}
	computeShader := p.Shader(shader.ShaderTypeCompute)

	s, err := b.device.CreateShaderModule(computeShader.Module())
	if err != nil {
		return err
	}
	defer s.Release()

	layout, err := b.createPipelineLayout(p.PipelineKey(), computeShader.BindGroupLayoutDescriptors())
	if err != nil {
		return err
	}

	created, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  p.PipelineKey() + " Compute Pipeline",
		Layout: layout.layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     s,
			EntryPoint: computeShader.EntryPoint(),
		},
	})
	if err != nil {
		layout.release()
		return err
	}

	b.storeLayout(p.PipelineKey(), layout)
	p.SetHandle(created)
	return nil
}

// createPipelineLayout creates one bind group layout per group index and the pipeline layout
// that references them. Group indices must be contiguous from 0.
func (b *wgpuRendererBackendImpl) createPipelineLayout(key string, descriptors map[int]wgpu.BindGroupLayoutDescriptor) (*pipelineLayout, error) {
	l := &pipelineLayout{
		groups:      make([]*wgpu.BindGroupLayout, len(descriptors)),
		descriptors: descriptors,
	}
	for g := range descriptors {
		if g < 0 || g >= len(descriptors) {
			return nil, fmt.Errorf("%s: bind groups must be numbered from 0 without gaps, found group %d", key, g)
		}
	}
	for g := 0; g < len(descriptors); g++ {
		desc := descriptors[g]
		desc.Label = fmt.Sprintf("%s group %d", key, g)
		layout, err := b.device.CreateBindGroupLayout(&desc)
		if err != nil {
			l.release()
			return nil, fmt.Errorf("failed to create bind group layout for group %d: %w", g, err)
		}
		l.groups[g] = layout
	}

	var err error
	l.layout, err = b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            key,
		BindGroupLayouts: l.groups,
	})
	if err != nil {
		l.release()
		return nil, err
	}
	return l, nil
}

func (b *wgpuRendererBackendImpl) storeLayout(key string, l *pipelineLayout) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if old, ok := b.layouts[key]; ok {
		old.release()
	}
	b.layouts[key] = l
}

func (b *wgpuRendererBackendImpl) InitBindGroup(p pipeline.Pipeline, group int, provider bind_group_provider.BindGroupProvider) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	l, ok := b.layouts[p.PipelineKey()]
	if !ok || group < 0 || group >= len(l.groups) {
		return fmt.Errorf("pipeline %q has no bind group %d", p.PipelineKey(), group)
	}

	desc := l.descriptors[group]
	entries := make([]wgpu.BindGroupEntry, len(desc.Entries))
	for i, entry := range desc.Entries {
		buf, err := asWGPUBuffer(provider.Buffer(int(entry.Binding)))
		if err != nil {
			return fmt.Errorf("%s binding %d: %w", provider.Label(), entry.Binding, err)
		}
		entries[i] = wgpu.BindGroupEntry{
			Binding: entry.Binding,
			Buffer:  buf.buf,
			Offset:  0,
			Size:    wgpu.WholeSize,
		}
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  l.groups[group],
		Entries: entries,
	})
	if err != nil {
		return err
	}
	provider.SetBindGroup(bindGroup)
	return nil
}

func (b *wgpuRendererBackendImpl) BeginFrame(clearColor wgpu.Color) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.targets == nil {
		return errors.New("surface is not configured")
	}
	// Acquiring a second texture while one is held is a validation error in wgpu-native.
	if b.frameSurface != nil {
		return errors.New("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrSurfaceStale, err)
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	color := wgpu.RenderPassColorAttachment{
		View:       view,
		LoadOp:     wgpu.LoadOpClear,
		StoreOp:    wgpu.StoreOpStore,
		ClearValue: clearColor,
	}
	if b.sampleCount > 1 {
		// Draw into the MSAA texture and resolve into the surface; the samples are not kept.
		color.View = b.targets.msaaTextureView
		color.ResolveTarget = view
		color.StoreOp = wgpu.StoreOpDiscard
	}
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{color},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.targets.depthTextureView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	})

	b.frameEncoder = encoder
	b.framePass = pass
	b.frameSurface = surfaceTexture
	b.frameView = view
	return nil
}

func (b *wgpuRendererBackendImpl) Draw(
	p pipeline.Pipeline,
	vertices bind_group_provider.GPUBuffer,
	vertexCount uint32,
	bindGroups []bind_group_provider.BindGroupProvider,
) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return
	}
	renderPipeline, ok := p.Handle().(*wgpu.RenderPipeline)
	if !ok {
		return
	}
	buf, err := asWGPUBuffer(vertices)
	if err != nil {
		return
	}

	b.framePass.SetPipeline(renderPipeline)
	for i, bg := range bindGroups {
		group, ok := bg.BindGroup().(*wgpu.BindGroup)
		if !ok {
			return
		}
		b.framePass.SetBindGroup(uint32(i), group, nil)
	}
	b.framePass.SetVertexBuffer(0, buf.buf, 0, wgpu.WholeSize)
	b.framePass.Draw(vertexCount, 1, 0, 0)
}

func (b *wgpuRendererBackendImpl) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return errors.New("no frame in progress")
	}
	b.framePass.End()
	b.framePass = nil

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err != nil {
		b.frameEncoder.Release()
		b.frameView.Release()
		b.frameSurface.Release()
		b.frameEncoder = nil
		b.frameSurface = nil
		b.frameView = nil
		return err
	}

	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	b.frameEncoder.Release()
	b.frameEncoder = nil
	return nil
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}
	b.surface.Present()

	b.frameView.Release()
	b.frameView = nil
	b.frameSurface.Release()
	b.frameSurface = nil
}

func (b *wgpuRendererBackendImpl) DispatchCompute(
	p pipeline.Pipeline,
	provider bind_group_provider.BindGroupProvider,
	workGroupCount [3]uint32,
) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	computePipeline, ok := p.Handle().(*wgpu.ComputePipeline)
	if !ok {
		return fmt.Errorf("pipeline %q is not a registered compute pipeline", p.PipelineKey())
	}
	bindGroup, ok := provider.BindGroup().(*wgpu.BindGroup)
	if !ok {
		return fmt.Errorf("%s has no bind group", provider.Label())
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()

	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(computePipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups(workGroupCount[0], workGroupCount[1], workGroupCount[2])
	pass.End()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) ReadBuffer(src bind_group_provider.GPUBuffer, size uint64) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, err := asWGPUBuffer(src)
	if err != nil {
		return nil, err
	}
	if size > buf.size {
		return nil, fmt.Errorf("read of %d bytes exceeds %q (%d bytes)", size, buf.label, buf.size)
	}
	if size == 0 {
		return []byte{}, nil
	}

	staging, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: buf.label + " Staging",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	defer staging.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	encoder.CopyBufferToBuffer(buf.buf, 0, staging, 0, size)
	commandBuffer, err := encoder.Finish(nil)
	encoder.Release()
	if err != nil {
		return nil, err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()

	mapped := false
	err = staging.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		mapped = s == wgpu.BufferMapAsyncStatusSuccess
	})
	if err != nil {
		return nil, err
	}
	b.device.Poll(true, nil)
	if !mapped {
		return nil, fmt.Errorf("failed to map %q for reading", buf.label)
	}

	out := make([]byte, size)
	copy(out, staging.GetMappedRange(0, uint(size)))
	staging.Unmap()
	return out, nil
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key, l := range b.layouts {
		l.release()
		delete(b.layouts, key)
	}
	b.targets.release()
	b.targets = nil
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

func asWGPUBuffer(buf bind_group_provider.GPUBuffer) (*wgpuBuffer, error) {
	if buf == nil {
		return nil, errors.New("no buffer")
	}
	wb, ok := buf.(*wgpuBuffer)
	if !ok {
		return nil, fmt.Errorf("buffer %q was not created by the WebGPU backend", buf.Label())
	}
	if wb.released {
		return nil, fmt.Errorf("buffer %q has been released", wb.label)
	}
	return wb, nil
}

// mergeBindGroupLayouts merges the bind group layout descriptors from a vertex and fragment shader
// into a unified set of descriptors suitable for a render pipeline layout.
//
// For each group index present in either shader:
//   - Entries with the same binding number have their Visibility flags ORed together
//   - Entries unique to one shader are included with their original visibility
//
// Parameters:
//   - vertexLayouts: bind group layout descriptors from the vertex shader
//   - fragmentLayouts: bind group layout descriptors from the fragment shader
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: the merged descriptors keyed by group index
func mergeBindGroupLayouts(
	vertexLayouts, fragmentLayouts map[int]wgpu.BindGroupLayoutDescriptor,
) map[int]wgpu.BindGroupLayoutDescriptor {
	merged := make(map[int]wgpu.BindGroupLayoutDescriptor)

	groupIndices := make(map[int]bool)
	for g := range vertexLayouts {
		groupIndices[g] = true
	}
	for g := range fragmentLayouts {
		groupIndices[g] = true
	}

	for g := range groupIndices {
		entryMap := make(map[uint32]wgpu.BindGroupLayoutEntry)
		for _, e := range vertexLayouts[g].Entries {
			entryMap[e.Binding] = e
		}
		for _, e := range fragmentLayouts[g].Entries {
			if existing, ok := entryMap[e.Binding]; ok {
				existing.Visibility |= e.Visibility
				entryMap[e.Binding] = existing
			} else {
				entryMap[e.Binding] = e
			}
		}

		entries := make([]wgpu.BindGroupLayoutEntry, 0, len(entryMap))
		for _, e := range entryMap {
			entries = append(entries, e)
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Binding < entries[j].Binding
		})
		merged[g] = wgpu.BindGroupLayoutDescriptor{Entries: entries}
	}

	return merged
}
