// Package renderertest provides an in-memory RendererBackend for tests. It records every call,
// can be told to fail or go stale, and runs the densify kernel on the CPU.
package renderertest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer"
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-splat/engine/splat"
	"github.com/cogentcore/webgpu/wgpu"
)

// Op names a backend operation for call counting and failure injection.
type Op string

const (
	OpConfigureSurface        Op = "configure_surface"
	OpCreateBuffer            Op = "create_buffer"
	OpCreateBufferInit        Op = "create_buffer_init"
	OpWriteBuffers            Op = "write_buffers"
	OpRegisterRenderPipeline  Op = "register_render_pipeline"
	OpRegisterComputePipeline Op = "register_compute_pipeline"
	OpInitBindGroup           Op = "init_bind_group"
	OpBeginFrame              Op = "begin_frame"
	OpDraw                    Op = "draw"
	OpEndFrame                Op = "end_frame"
	OpPresent                 Op = "present"
	OpDispatchCompute         Op = "dispatch_compute"
	OpReadBuffer              Op = "read_buffer"
)

// ErrInjected is returned by an operation that was told to fail with FailNext.
var ErrInjected = errors.New("injected failure")

// Buffer is an in-memory GPUBuffer.
type Buffer struct {
	label    string
	usage    wgpu.BufferUsage
	data     []byte
	released bool
}

var _ bind_group_provider.GPUBuffer = &Buffer{}

func (b *Buffer) Label() string           { return b.label }
func (b *Buffer) Size() uint64            { return uint64(len(b.data)) }
func (b *Buffer) Usage() wgpu.BufferUsage { return b.usage }
func (b *Buffer) Release()                { b.released = true }

// Released reports whether Release has been called.
func (b *Buffer) Released() bool { return b.released }

// Data returns a copy of the buffer contents.
func (b *Buffer) Data() []byte { return append([]byte(nil), b.data...) }

type bindGroup struct {
	released bool
}

func (g *bindGroup) Release() { g.released = true }

type handle struct {
	key      string
	released bool
}

func (h *handle) Release() { h.released = true }

// DrawCall is a recorded Draw.
type DrawCall struct {
	Pipeline    string
	VertexCount uint32
	Vertices    bind_group_provider.GPUBuffer
	// Uniform is the contents of binding 0 of the first bind group at the time of the draw.
	Uniform []byte
}

// Dispatch is a recorded DispatchCompute.
type Dispatch struct {
	Pipeline   string
	Workgroups [3]uint32
}

// FakeBackend implements renderer.RendererBackend in memory.
type FakeBackend struct {
	mu *sync.Mutex

	limits      renderer.Limits
	width       uint32
	height      uint32
	presentMode renderer.PresentMode

	calls     map[Op]int
	failures  map[Op]int
	stale     int
	inFrame   bool
	buffers   []*Buffer
	pipelines map[string]pipeline.Pipeline
	draws     []DrawCall
	frames    []DrawCall
	dispatch  []Dispatch
	released  bool
}

var _ renderer.RendererBackend = &FakeBackend{}

// NewFakeBackend creates a fake backend with the WebGPU default limits.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		mu:        &sync.Mutex{},
		limits:    renderer.DefaultLimits(),
		calls:     make(map[Op]int),
		failures:  make(map[Op]int),
		pipelines: make(map[string]pipeline.Pipeline),
	}
}

// SetLimits overrides the limits reported by Limits.
func (f *FakeBackend) SetLimits(l renderer.Limits) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limits = l
}

// FailNext makes the next n calls of op return ErrInjected.
func (f *FakeBackend) FailNext(op Op, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] += n
}

// StaleNext makes the next n BeginFrame calls report a stale surface.
func (f *FakeBackend) StaleNext(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stale += n
}

// Calls returns how often op was called, including failed calls.
func (f *FakeBackend) Calls(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// TotalCalls returns the number of calls across every operation.
func (f *FakeBackend) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// SurfaceSize returns the last configured surface size.
func (f *FakeBackend) SurfaceSize() (uint32, uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.width, f.height
}

// Buffers returns every buffer created so far, in creation order.
func (f *FakeBackend) Buffers() []*Buffer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Buffer(nil), f.buffers...)
}

// LiveBuffers returns the number of buffers not yet released.
func (f *FakeBackend) LiveBuffers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	live := 0
	for _, b := range f.buffers {
		if !b.released {
			live++
		}
	}
	return live
}

// Draws returns every recorded draw.
func (f *FakeBackend) Draws() []DrawCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]DrawCall(nil), f.draws...)
}

// Dispatches returns every recorded compute dispatch.
func (f *FakeBackend) Dispatches() []Dispatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Dispatch(nil), f.dispatch...)
}

// Released reports whether Release has been called.
func (f *FakeBackend) Released() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released
}

// call counts op and consumes an injected failure for it.
func (f *FakeBackend) call(op Op) error {
	f.calls[op]++
	if f.failures[op] > 0 {
		f.failures[op]--
		return fmt.Errorf("%s: %w", op, ErrInjected)
	}
	return nil
}

func (f *FakeBackend) newBuffer(label string, usage wgpu.BufferUsage, data []byte) *Buffer {
	b := &Buffer{label: label, usage: usage, data: data}
	f.buffers = append(f.buffers, b)
	return b
}

func (f *FakeBackend) ConfigureSurface(width, height uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(OpConfigureSurface); err != nil {
		return err
	}
	f.width, f.height = width, height
	return nil
}

func (f *FakeBackend) SetPresentMode(mode renderer.PresentMode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presentMode = mode
}

func (f *FakeBackend) Limits() renderer.Limits {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.limits
}

func (f *FakeBackend) CreateBuffer(label string, usage wgpu.BufferUsage, size uint64) (bind_group_provider.GPUBuffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(OpCreateBuffer); err != nil {
		return nil, err
	}
	if size > f.limits.MaxBufferSize {
		return nil, fmt.Errorf("buffer %q of %d bytes exceeds the limit", label, size)
	}
	return f.newBuffer(label, usage, make([]byte, size)), nil
}

func (f *FakeBackend) CreateBufferInit(label string, usage wgpu.BufferUsage, data []byte) (bind_group_provider.GPUBuffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(OpCreateBufferInit); err != nil {
		return nil, err
	}
	if uint64(len(data)) > f.limits.MaxBufferSize {
		return nil, fmt.Errorf("buffer %q of %d bytes exceeds the limit", label, len(data))
	}
	return f.newBuffer(label, usage, append([]byte(nil), data...)), nil
}

func (f *FakeBackend) WriteBuffers(writes []bind_group_provider.BufferWrite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(OpWriteBuffers); err != nil {
		return err
	}
	targets := make([]*Buffer, len(writes))
	for i, w := range writes {
		if err := w.Check(); err != nil {
			return err
		}
		b, err := asBuffer(w.Target())
		if err != nil {
			return err
		}
		targets[i] = b
	}
	for i, w := range writes {
		copy(targets[i].data[w.Offset:], w.Data)
	}
	return nil
}

func (f *FakeBackend) RegisterRenderPipeline(p pipeline.Pipeline) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.register(OpRegisterRenderPipeline, p)
}

func (f *FakeBackend) RegisterComputePipeline(p pipeline.Pipeline) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.register(OpRegisterComputePipeline, p)
}

func (f *FakeBackend) register(op Op, p pipeline.Pipeline) error {
	if err := f.call(op); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	p.SetHandle(&handle{key: p.PipelineKey()})
	f.pipelines[p.PipelineKey()] = p
	return nil
}

// Pipeline returns the pipeline registered under key, or nil.
func (f *FakeBackend) Pipeline(key string) pipeline.Pipeline {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pipelines[key]
}

func (f *FakeBackend) InitBindGroup(p pipeline.Pipeline, group int, provider bind_group_provider.BindGroupProvider) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(OpInitBindGroup); err != nil {
		return err
	}
	if !p.Registered() {
		return fmt.Errorf("pipeline %q is not registered", p.PipelineKey())
	}
	for _, entry := range groupEntries(p, group) {
		if _, err := asBuffer(provider.Buffer(int(entry.Binding))); err != nil {
			return fmt.Errorf("%s binding %d: %w", provider.Label(), entry.Binding, err)
		}
	}
	provider.SetBindGroup(&bindGroup{})
	return nil
}

// groupEntries returns the layout entries of a bind group across every stage of p.
func groupEntries(p pipeline.Pipeline, group int) []wgpu.BindGroupLayoutEntry {
	var entries []wgpu.BindGroupLayoutEntry
	for _, st := range []shader.ShaderType{shader.ShaderTypeVertex, shader.ShaderTypeFragment, shader.ShaderTypeCompute} {
		if s := p.Shader(st); s != nil {
			entries = append(entries, s.BindGroupLayoutDescriptor(group).Entries...)
		}
	}
	return entries
}

func (f *FakeBackend) BeginFrame(clearColor wgpu.Color) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(OpBeginFrame); err != nil {
		return err
	}
	if f.stale > 0 {
		f.stale--
		return fmt.Errorf("%w: timeout", common.ErrSurfaceStale)
	}
	if f.inFrame {
		return errors.New("previous frame not presented")
	}
	f.inFrame = true
	return nil
}

func (f *FakeBackend) Draw(p pipeline.Pipeline, vertices bind_group_provider.GPUBuffer, vertexCount uint32, bindGroups []bind_group_provider.BindGroupProvider) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[OpDraw]++
	call := DrawCall{
		Pipeline:    p.PipelineKey(),
		VertexCount: vertexCount,
		Vertices:    vertices,
	}
	if len(bindGroups) > 0 {
		if b, err := asBuffer(bindGroups[0].Buffer(0)); err == nil {
			call.Uniform = b.Data()
		}
	}
	f.draws = append(f.draws, call)
}

func (f *FakeBackend) EndFrame() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(OpEndFrame); err != nil {
		f.inFrame = false
		return err
	}
	if !f.inFrame {
		return errors.New("no frame in progress")
	}
	return nil
}

func (f *FakeBackend) Present() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[OpPresent]++
	f.inFrame = false
}

// DispatchCompute runs the densify kernel on the CPU. Other pipelines are only recorded.
func (f *FakeBackend) DispatchCompute(p pipeline.Pipeline, provider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(OpDispatchCompute); err != nil {
		return err
	}
	if provider.BindGroup() == nil {
		return fmt.Errorf("%s has no bind group", provider.Label())
	}
	for _, n := range workGroupCount {
		if n > f.limits.MaxWorkgroupsPerDimension {
			return fmt.Errorf("workgroup count %v exceeds %d per dimension", workGroupCount, f.limits.MaxWorkgroupsPerDimension)
		}
	}
	f.dispatch = append(f.dispatch, Dispatch{Pipeline: p.PipelineKey(), Workgroups: workGroupCount})
	if p.PipelineKey() != renderer.DensifyPipelineKey {
		return nil
	}
	return runDensify(p, provider, workGroupCount)
}

// kernelBuffer finds the buffer bound to a named group 0 variable of the compute shader.
func kernelBuffer(cs shader.Shader, provider bind_group_provider.BindGroupProvider, name string) (*Buffer, error) {
	binding, ok := cs.BindingIndex(0, name)
	if !ok {
		return nil, fmt.Errorf("%s declares no %s binding", cs.Key(), name)
	}
	return asBuffer(provider.Buffer(binding))
}

func runDensify(p pipeline.Pipeline, provider bind_group_provider.BindGroupProvider, groups [3]uint32) error {
	cs := p.Shader(shader.ShaderTypeCompute)
	src, err := kernelBuffer(cs, provider, "src_splats")
	if err != nil {
		return err
	}
	dst, err := kernelBuffer(cs, provider, "dst_splats")
	if err != nil {
		return err
	}
	paramsBuf, err := kernelBuffer(cs, provider, "params")
	if err != nil {
		return err
	}
	params := splat.UnmarshalDensifyParams(paramsBuf.data)
	wg := cs.WorkgroupSize()[0]

	if params.RowStride != groups[0]*wg {
		return fmt.Errorf("row stride %d does not match %d workgroups of %d", params.RowStride, groups[0], wg)
	}
	if uint64(groups[0])*uint64(groups[1])*uint64(wg) < uint64(params.Count) {
		return fmt.Errorf("dispatch %v does not cover %d invocations", groups, params.Count)
	}
	if uint64(len(dst.data)) < uint64(params.Count)*splat.GPUSplatSize {
		return fmt.Errorf("output buffer of %d bytes is too small for %d records", len(dst.data), params.Count)
	}

	var parent, child splat.GPUSplat
	for o := uint32(0); o < params.Count; o++ {
		parentOffset := int(o/params.Factor) * splat.GPUSplatSize
		parent.Unmarshal(src.data[parentOffset:])
		child = splat.FromRecord(splat.DensifyRecord(parent.Record(), o, int(params.Factor), params.Seed))
		child.MarshalTo(dst.data[int(o)*splat.GPUSplatSize:])
	}
	return nil
}

func (f *FakeBackend) ReadBuffer(src bind_group_provider.GPUBuffer, size uint64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(OpReadBuffer); err != nil {
		return nil, err
	}
	b, err := asBuffer(src)
	if err != nil {
		return nil, err
	}
	if size > uint64(len(b.data)) {
		return nil, fmt.Errorf("read of %d bytes exceeds %q", size, b.label)
	}
	return append([]byte(nil), b.data[:size]...), nil
}

func (f *FakeBackend) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = true
}

func asBuffer(buf bind_group_provider.GPUBuffer) (*Buffer, error) {
	if buf == nil {
		return nil, errors.New("no buffer")
	}
	b, ok := buf.(*Buffer)
	if !ok {
		return nil, fmt.Errorf("buffer %q was not created by the fake backend", buf.Label())
	}
	if b.released {
		return nil, fmt.Errorf("buffer %q has been released", b.label)
	}
	return b, nil
}
