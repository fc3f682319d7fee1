package bind_group_provider

import "fmt"

// BufferWrite describes a single queue write into the buffer attached at Binding on
// Provider, starting at byte Offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// Target returns the buffer the write lands in, or nil if nothing is attached at Binding.
func (w BufferWrite) Target() GPUBuffer {
	if w.Provider == nil {
		return nil
	}
	return w.Provider.Buffer(w.Binding)
}

// Check reports an error when the write has no target or would run past the end of it.
func (w BufferWrite) Check() error {
	buf := w.Target()
	if buf == nil {
		return fmt.Errorf("no buffer at binding %d", w.Binding)
	}
	if w.Offset+uint64(len(w.Data)) > buf.Size() {
		return fmt.Errorf("write of %d bytes at offset %d overflows %q (%d bytes)", len(w.Data), w.Offset, buf.Label(), buf.Size())
	}
	return nil
}
