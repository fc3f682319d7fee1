package camera

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUViewUniformSource is the canonical WGSL definition of the ViewUniform struct.
// Matches GPUViewUniform layout exactly (80 bytes, std430 aligned).
//
//go:embed assets/view_uniform.wgsl
var GPUViewUniformSource string

// GPUViewUniform is the GPU-aligned representation of the per-frame view uniform buffer.
// Matches the WGSL ViewUniform struct layout exactly (see GPUViewUniformSource).
// Size: 80 bytes.
type GPUViewUniform struct {
	ViewProj [16]float32 // offset  0: combined view-projection matrix (mat4x4<f32>)
	Eye      [3]float32  // offset 64: world-space camera position (vec3<f32>)
	Mode     uint32      // offset 76: display mode selector read by the fragment stage
}

// Size returns the size of the GPUViewUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (80)
func (g *GPUViewUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUViewUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUViewUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.ViewProj[i]))
	}
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(g.Eye[i]))
	}
	binary.LittleEndian.PutUint32(buf[76:], g.Mode)
	return buf
}
