package bind_group_provider

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBuffer struct {
	label    string
	size     uint64
	released int
}

func (b *stubBuffer) Label() string           { return b.label }
func (b *stubBuffer) Size() uint64            { return b.size }
func (b *stubBuffer) Usage() wgpu.BufferUsage { return wgpu.BufferUsageStorage }
func (b *stubBuffer) Release()                { b.released++ }

type stubBindGroup struct{ released int }

func (g *stubBindGroup) Release() { g.released++ }

func TestReleaseSkipsSharedBuffers(t *testing.T) {
	owned := &stubBuffer{label: "owned", size: 16}
	shared := &stubBuffer{label: "shared", size: 16}
	bg := &stubBindGroup{}

	p := NewBindGroupProvider("test", WithBuffer(1, owned), WithSharedBuffer(0, shared))
	p.SetBindGroup(bg)
	assert.Equal(t, []int{0, 1}, p.Bindings())

	p.Release()
	assert.Equal(t, 1, owned.released)
	assert.Equal(t, 0, shared.released)
	assert.Equal(t, 1, bg.released)
	assert.Nil(t, p.BindGroup())
	assert.Empty(t, p.Buffers())
}

func TestSetBufferReleasesPreviousOwned(t *testing.T) {
	first := &stubBuffer{label: "first", size: 8}
	second := &stubBuffer{label: "second", size: 8}

	p := NewBindGroupProvider("test")
	p.SetBuffer(0, first)
	p.SetBuffer(0, first)
	assert.Equal(t, 0, first.released)

	p.SetBuffer(0, second)
	assert.Equal(t, 1, first.released)
	assert.Same(t, second, p.Buffer(0))
}

func TestShareBufferDoesNotReleaseShared(t *testing.T) {
	first := &stubBuffer{label: "first", size: 8}
	second := &stubBuffer{label: "second", size: 8}

	p := NewBindGroupProvider("test")
	p.ShareBuffer(0, first)
	p.SetBuffer(0, second)
	assert.Equal(t, 0, first.released)
}

func TestDetach(t *testing.T) {
	buf := &stubBuffer{label: "buf", size: 8}
	p := NewBindGroupProvider("test", WithBuffer(2, buf))

	got := p.Detach(2)
	assert.Same(t, buf, got)
	assert.Nil(t, p.Buffer(2))

	p.Release()
	assert.Equal(t, 0, buf.released)
}

func TestSetBindGroupReleasesPrevious(t *testing.T) {
	a, b := &stubBindGroup{}, &stubBindGroup{}
	p := NewBindGroupProvider("test")
	p.SetBindGroup(a)
	p.SetBindGroup(b)
	assert.Equal(t, 1, a.released)
	assert.Equal(t, 0, b.released)
}

func TestBufferWriteCheck(t *testing.T) {
	buf := &stubBuffer{label: "uniform", size: 16}
	p := NewBindGroupProvider("test", WithBuffer(0, buf))

	require.NoError(t, BufferWrite{Provider: p, Binding: 0, Data: make([]byte, 16)}.Check())
	assert.Error(t, BufferWrite{Provider: p, Binding: 0, Offset: 4, Data: make([]byte, 16)}.Check())
	assert.Error(t, BufferWrite{Provider: p, Binding: 1, Data: []byte{1}}.Check())
	assert.Nil(t, BufferWrite{Binding: 0}.Target())
}
