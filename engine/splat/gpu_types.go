package splat

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"
)

// GPUSplatSource is the canonical WGSL definition of the Splat struct.
// Matches GPUSplat layout exactly (80 bytes, std430 aligned).
//
//go:embed assets/splat.wgsl
var GPUSplatSource string

// GPUSplatSize is the stride of one GPUSplat in a vertex or storage buffer.
const GPUSplatSize = 80

// Vertex attribute offsets of GPUSplat fields used by the render pipeline.
const (
	GPUSplatPositionOffset = 0
	GPUSplatOpacityOffset  = 12
	GPUSplatColorOffset    = 48
	GPUSplatNormalOffset   = 64
)

// GPUSplat is the GPU-aligned representation of a single splat record.
// The same layout is read as a vertex buffer by the render pipeline and as a storage
// buffer by the densify kernel (see GPUSplatSource).
// Size: 80 bytes (std430 aligned, three 4-byte pads).
type GPUSplat struct {
	Position [3]float32 // offset  0: world position (12 bytes)
	Opacity  float32    // offset 12: opacity in [0, 1] (4 bytes)
	Scale    [3]float32 // offset 16: per-axis scale, all > 0 (12 bytes)
	_        float32    // offset 28: padding so rotation starts on a 16-byte boundary
	Rotation [4]float32 // offset 32: unit quaternion x, y, z, w (16 bytes)
	Color    [3]float32 // offset 48: linear RGB (12 bytes)
	_        float32    // offset 60: padding
	Normal   [3]float32 // offset 64: unit normal (12 bytes)
	_        float32    // offset 76: padding to the 16-byte struct alignment
}

// FromRecord converts a Record into its GPU representation. SH coefficients are not uploaded.
func FromRecord(r Record) GPUSplat {
	return GPUSplat{
		Position: r.Position,
		Opacity:  r.Opacity,
		Scale:    r.Scale,
		Rotation: r.Rotation,
		Color:    r.Color,
		Normal:   r.Normal,
	}
}

// Record converts the GPU representation back into a Record.
func (g *GPUSplat) Record() Record {
	return Record{
		Position: g.Position,
		Rotation: g.Rotation,
		Scale:    g.Scale,
		Opacity:  g.Opacity,
		Color:    g.Color,
		Normal:   g.Normal,
	}
}

// Size returns the size of the GPUSplat struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUSplat) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUSplat struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 80-byte buffer ready for GPU upload.
func (g *GPUSplat) Marshal() []byte {
	buf := make([]byte, GPUSplatSize)
	g.MarshalTo(buf)
	return buf
}

// MarshalTo writes the 80-byte GPU representation into buf, which must hold at least GPUSplatSize bytes.
// Padding bytes are zeroed.
func (g *GPUSplat) MarshalTo(buf []byte) {
	_ = buf[GPUSplatSize-1]
	putVec(buf[0:12], g.Position[:])
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.Opacity))
	putVec(buf[16:28], g.Scale[:])
	binary.LittleEndian.PutUint32(buf[28:32], 0)
	putVec(buf[32:48], g.Rotation[:])
	putVec(buf[48:60], g.Color[:])
	binary.LittleEndian.PutUint32(buf[60:64], 0)
	putVec(buf[64:76], g.Normal[:])
	binary.LittleEndian.PutUint32(buf[76:80], 0)
}

// Unmarshal reads the 80-byte GPU representation from buf.
func (g *GPUSplat) Unmarshal(buf []byte) {
	_ = buf[GPUSplatSize-1]
	getVec(g.Position[:], buf[0:12])
	g.Opacity = math.Float32frombits(binary.LittleEndian.Uint32(buf[12:16]))
	getVec(g.Scale[:], buf[16:28])
	getVec(g.Rotation[:], buf[32:48])
	getVec(g.Color[:], buf[48:60])
	getVec(g.Normal[:], buf[64:76])
}

// MarshalTable packs every record of t into one contiguous buffer in table order.
//
// Parameters:
//   - t: the table to pack
//
// Returns:
//   - []byte: len(t.Records) * GPUSplatSize bytes
func MarshalTable(t *Table) []byte {
	buf := make([]byte, t.Len()*GPUSplatSize)
	for i := 0; i < t.Len(); i++ {
		g := FromRecord(t.Records[i])
		g.MarshalTo(buf[i*GPUSplatSize:])
	}
	return buf
}

// UnmarshalTable decodes a buffer of packed GPUSplat records and validates every record.
//
// Parameters:
//   - data: the packed buffer, a multiple of GPUSplatSize bytes
//   - layout: the layout recorded on the returned table
//
// Returns:
//   - *Table: the decoded table
//   - error: a *FormatError if the length is not a whole number of records or a record is out of range
func UnmarshalTable(data []byte, layout Layout) (*Table, error) {
	if len(data)%GPUSplatSize != 0 {
		return nil, headerError(len(data), "buffer", fmt.Sprintf("length is not a multiple of %d", GPUSplatSize))
	}
	records := make([]Record, len(data)/GPUSplatSize)
	var g GPUSplat
	for i := range records {
		g.Unmarshal(data[i*GPUSplatSize:])
		records[i] = g.Record()
	}
	t := NewTable(records, layout)
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func putVec(buf []byte, v []float32) {
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
}

func getVec(v []float32, buf []byte) {
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
}

// GPUDensifyParamsSource is the canonical WGSL definition of the DensifyParams uniform.
// Matches GPUDensifyParams layout exactly (16 bytes).
//
//go:embed assets/densify_params.wgsl
var GPUDensifyParamsSource string

// GPUDensifyParams is the uniform read by the densify compute kernel.
// Size: 16 bytes.
type GPUDensifyParams struct {
	Factor    uint32 // offset  0: children per parent
	Count     uint32 // offset  4: output record count (input count * factor)
	Seed      uint32 // offset  8: jitter seed
	RowStride uint32 // offset 12: invocations per dispatch row, workgroup size * workgroups in x
}

// Size returns the size of the GPUDensifyParams struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUDensifyParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUDensifyParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload.
func (g *GPUDensifyParams) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], g.Factor)
	binary.LittleEndian.PutUint32(buf[4:8], g.Count)
	binary.LittleEndian.PutUint32(buf[8:12], g.Seed)
	binary.LittleEndian.PutUint32(buf[12:16], g.RowStride)
	return buf
}

// UnmarshalDensifyParams reads a GPUDensifyParams from its 16-byte form.
func UnmarshalDensifyParams(buf []byte) GPUDensifyParams {
	return GPUDensifyParams{
		Factor:    binary.LittleEndian.Uint32(buf[0:4]),
		Count:     binary.LittleEndian.Uint32(buf[4:8]),
		Seed:      binary.LittleEndian.Uint32(buf[8:12]),
		RowStride: binary.LittleEndian.Uint32(buf[12:16]),
	}
}
