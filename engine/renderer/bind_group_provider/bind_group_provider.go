package bind_group_provider

import (
	"sort"

	"github.com/cogentcore/webgpu/wgpu"
)

// GPUBuffer is a device-resident buffer created by a renderer backend.
type GPUBuffer interface {
	// Label returns the debug label the buffer was created with.
	Label() string

	// Size returns the allocated size in bytes.
	Size() uint64

	// Usage returns the usage flags the buffer was created with.
	Usage() wgpu.BufferUsage

	// Release frees the device memory. Releasing twice is a no-op.
	Release()
}

// GPUBindGroup is a device bind group created by a renderer backend.
type GPUBindGroup interface {
	Release()
}

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string

	// bindGroup is the bind group created by the backend, or nil if not initialized.
	bindGroup GPUBindGroup
	// buffers holds the buffers referenced by the bind group, keyed by binding index.
	buffers map[int]GPUBuffer
	// shared marks bindings whose buffer is owned elsewhere and must survive Release.
	shared map[int]bool
}

// BindGroupProvider holds the buffers of one bind group together with the bind group the
// backend created from them. The resource manager and densifier describe their GPU binding
// requirements through providers; the backend reads the buffers by binding index when it
// creates the bind group and stores the result back on the provider.
//
// Usage pattern:
//  1. Create a provider and attach buffers with SetBuffer or ShareBuffer
//  2. Call the backend's InitBindGroup with the pipeline and group index
//  3. Pass the provider to draw or dispatch calls
//  4. Call Release when the bind group is no longer needed
type BindGroupProvider interface {
	// Release releases the bind group and every buffer the provider owns. Shared buffers
	// are detached but left alive.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// BindGroup returns the created bind group, or nil if it has not been initialized.
	//
	// Returns:
	//   - GPUBindGroup: the bind group or nil
	BindGroup() GPUBindGroup

	// SetBindGroup stores the bind group created by the backend, releasing any previous one.
	//
	// Parameters:
	//   - bg: the new bind group
	SetBindGroup(bg GPUBindGroup)

	// Buffer returns the buffer at a binding index, or nil if none is attached.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - GPUBuffer: the buffer or nil
	Buffer(binding int) GPUBuffer

	// Buffers returns every attached buffer keyed by binding index.
	//
	// Returns:
	//   - map[int]GPUBuffer: the attached buffers
	Buffers() map[int]GPUBuffer

	// Bindings returns the attached binding indices in ascending order.
	//
	// Returns:
	//   - []int: the sorted binding indices
	Bindings() []int

	// SetBuffer attaches a buffer the provider owns. The previous owned buffer at the same
	// binding is released.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the buffer to attach
	SetBuffer(binding int, buf GPUBuffer)

	// ShareBuffer attaches a buffer that is owned elsewhere. Release leaves it alive.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the buffer to attach
	ShareBuffer(binding int, buf GPUBuffer)

	// Detach removes the buffer at a binding without releasing it and returns it.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - GPUBuffer: the detached buffer, or nil if none was attached
	Detach(binding int) GPUBuffer
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates an empty provider with the given debug label.
//
// Parameters:
//   - label: the debug label used for backend resource labels
//   - options: optional builder options
//
// Returns:
//   - BindGroupProvider: the new provider
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:   label,
		buffers: make(map[int]GPUBuffer),
		shared:  make(map[int]bool),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Release() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	for binding, buf := range p.buffers {
		if !p.shared[binding] && buf != nil {
			buf.Release()
		}
	}
	p.buffers = make(map[int]GPUBuffer)
	p.shared = make(map[int]bool)
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() GPUBindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) SetBindGroup(bg GPUBindGroup) {
	if p.bindGroup != nil && p.bindGroup != bg {
		p.bindGroup.Release()
	}
	p.bindGroup = bg
}

func (p *bindGroupProvider) Buffer(binding int) GPUBuffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) Buffers() map[int]GPUBuffer {
	return p.buffers
}

func (p *bindGroupProvider) Bindings() []int {
	bindings := make([]int, 0, len(p.buffers))
	for b := range p.buffers {
		bindings = append(bindings, b)
	}
	sort.Ints(bindings)
	return bindings
}

func (p *bindGroupProvider) SetBuffer(binding int, buf GPUBuffer) {
	p.releaseOwned(binding, buf)
	p.buffers[binding] = buf
	delete(p.shared, binding)
}

func (p *bindGroupProvider) ShareBuffer(binding int, buf GPUBuffer) {
	p.releaseOwned(binding, buf)
	p.buffers[binding] = buf
	p.shared[binding] = true
}

func (p *bindGroupProvider) Detach(binding int) GPUBuffer {
	buf := p.buffers[binding]
	delete(p.buffers, binding)
	delete(p.shared, binding)
	return buf
}

func (p *bindGroupProvider) releaseOwned(binding int, next GPUBuffer) {
	old, ok := p.buffers[binding]
	if ok && old != nil && old != next && !p.shared[binding] {
		old.Release()
	}
}
