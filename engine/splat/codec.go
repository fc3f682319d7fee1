package splat

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/chewxy/math32"
)

// Codec converts between scene bytes and Tables.
// Large inputs are processed in fixed-size chunks on a worker pool owned by the codec.
type Codec interface {
	// Decode parses a binary little-endian PLY 1.0 scene into a Table.
	// Decoding is all-or-nothing: on any error no table is returned.
	//
	// Parameters:
	//   - data: the complete file contents
	//
	// Returns:
	//   - *Table: the decoded table, possibly with zero records
	//   - error: a *FormatError (matching common.ErrFormat) describing the first violation
	Decode(data []byte) (*Table, error)

	// EncodePLY serializes the table as an interchange PLY file: position, normal, color and alpha
	// per record, in table order. Rotation, scale and SH coefficients are not represented.
	//
	// Parameters:
	//   - t: the table to serialize, nil encodes as empty
	//
	// Returns:
	//   - []byte: the file contents
	//   - error: an error if a record is non-finite
	EncodePLY(t *Table) ([]byte, error)

	// EncodePCD serializes the table as an ASCII PCD v0.7 point cloud with packed rgb and normals.
	//
	// Parameters:
	//   - t: the table to serialize, nil encodes as empty
	//
	// Returns:
	//   - []byte: the file contents
	//   - error: an error if a record is non-finite
	EncodePCD(t *Table) ([]byte, error)

	// Workers returns the number of pool workers, or 0 when the codec runs inline.
	Workers() int

	// Close stops the worker pool. The codec keeps working inline afterwards.
	Close()
}

var _ Codec = &codec{}

type codec struct {
	mu *sync.Mutex

	workers   int
	chunkSize int
	ascii     bool
	pool      worker.DynamicWorkerPool
}

// DefaultChunkSize is the number of records processed by a single pool task.
const DefaultChunkSize = 16384

// NewCodec creates a Codec. By default it uses one worker per CPU and binary PLY export.
//
// Parameters:
//   - options: functional options to configure the codec
//
// Returns:
//   - Codec: the new codec
func NewCodec(options ...CodecBuilderOption) Codec {
	c := &codec{
		mu:        &sync.Mutex{},
		workers:   runtime.NumCPU(),
		chunkSize: DefaultChunkSize,
	}
	for _, option := range options {
		option(c)
	}
	if c.workers > 1 {
		c.pool = worker.NewDynamicWorkerPool(c.workers, 256, 1*time.Second)
	} else {
		c.workers = 0
	}
	return c
}

// Decode parses data with an inline codec.
func Decode(data []byte) (*Table, error) {
	return (&codec{mu: &sync.Mutex{}, chunkSize: DefaultChunkSize}).Decode(data)
}

// EncodePLY serializes t as binary interchange PLY with an inline codec.
func EncodePLY(t *Table) ([]byte, error) {
	return (&codec{mu: &sync.Mutex{}, chunkSize: DefaultChunkSize}).EncodePLY(t)
}

func (c *codec) Workers() int {
	return c.workers
}

func (c *codec) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pool != nil {
		c.pool.Stop()
		c.pool = nil
		c.workers = 0
	}
}

func (c *codec) Decode(data []byte) (*Table, error) {
	h, err := parsePLYHeader(data)
	if err != nil {
		return nil, err
	}

	stride := h.layout.Stride()
	body := data[h.bodyOffset:]
	want := h.count * stride
	switch {
	case len(body) < want:
		return nil, &FormatError{Offset: len(data), Record: len(body) / stride, Field: "body",
			Reason: fmt.Sprintf("truncated: %d records declared, %d bytes available", h.count, len(body))}
	case len(body) > want:
		return nil, &FormatError{Offset: h.bodyOffset + want, Record: -1, Field: "body",
			Reason: fmt.Sprintf("%d trailing bytes after %d records", len(body)-want, h.count)}
	}

	records := make([]Record, h.count)
	err = c.forEachChunk(h.count, func(start, end int) error {
		for i := start; i < end; i++ {
			offset := h.bodyOffset + i*stride
			r, err := decodeRecord(data[offset:offset+stride], h)
			if err != nil {
				err.Record = i
				err.Offset += offset
				return err
			}
			records[i] = r
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	t := NewTable(records, h.layout)
	if err := t.Validate(); err != nil {
		return nil, err
	}
	common.Logger().Debug("decoded scene", "records", h.count, "layout", h.layout.String(), "workers", c.Workers())
	return t, nil
}

func (c *codec) EncodePLY(t *Table) ([]byte, error) {
	if c.ascii {
		return c.encodePLYASCII(t)
	}

	var header bytes.Buffer
	writePLYHeader(&header, plyFormatBinary, t.Len())
	stride := LayoutInterchangeV1.Stride()
	out := make([]byte, header.Len()+t.Len()*stride)
	copy(out, header.Bytes())
	body := out[header.Len():]

	err := c.forEachChunk(t.Len(), func(start, end int) error {
		for i := start; i < end; i++ {
			values := interchangeValues(t.Records[i])
			if !common.Finite(values[:]...) {
				return &FormatError{Offset: -1, Record: i, Field: "record", Reason: "non-finite value"}
			}
			for j, v := range values {
				binary.LittleEndian.PutUint32(body[i*stride+j*4:], math.Float32bits(v))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *codec) encodePLYASCII(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	writePLYHeader(&buf, plyFormatASCII, t.Len())
	line := make([]byte, 0, 256)
	for i := 0; i < t.Len(); i++ {
		values := interchangeValues(t.Records[i])
		if !common.Finite(values[:]...) {
			return nil, &FormatError{Offset: -1, Record: i, Field: "record", Reason: "non-finite value"}
		}
		line = line[:0]
		for j, v := range values {
			if j > 0 {
				line = append(line, ' ')
			}
			line = strconv.AppendFloat(line, float64(v), 'g', -1, 32)
		}
		line = append(line, '\n')
		buf.Write(line)
	}
	return buf.Bytes(), nil
}

// forEachChunk runs fn over [0, n) in chunks. Chunks run on the pool when there is more than one;
// the returned error is the one from the lowest failing chunk.
func (c *codec) forEachChunk(n int, fn func(start, end int) error) error {
	c.mu.Lock()
	pool := c.pool
	c.mu.Unlock()

	chunks := (n + c.chunkSize - 1) / c.chunkSize
	if pool == nil || chunks <= 1 {
		return fn(0, n)
	}

	errs := make([]error, chunks)
	var wg sync.WaitGroup
	for i := range chunks {
		start := i * c.chunkSize
		end := min(start+c.chunkSize, n)
		idx := i
		wg.Add(1)
		pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				errs[idx] = fn(start, end)
				return nil, errs[idx]
			},
		})
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func interchangeValues(r Record) [10]float32 {
	return [10]float32{
		r.Position[0], r.Position[1], r.Position[2],
		r.Normal[0], r.Normal[1], r.Normal[2],
		r.Color[0], r.Color[1], r.Color[2],
		r.Opacity,
	}
}

// decodeRecord decodes one record. The returned error carries an offset relative to the record.
func decodeRecord(buf []byte, h *plyHeader) (Record, *FormatError) {
	properties := h.layout.Properties()
	var f [17]float32
	for i := range properties {
		f[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		if !common.Finite(f[i]) {
			return Record{}, &FormatError{Offset: i * 4, Field: properties[i], Reason: "non-finite value"}
		}
	}

	switch h.layout {
	case LayoutSplatV1:
		return decodeSplatV1(f, h.logActivation)
	default:
		return decodeInterchangeV1(f)
	}
}

func decodeSplatV1(f [17]float32, logActivation bool) (Record, *FormatError) {
	r := Record{
		Position: common.Vec3{f[0], f[1], f[2]},
		SH:       common.Vec3{f[6], f[7], f[8]},
		HasSH:    true,
		Opacity:  f[9],
		Scale:    common.Vec3{f[10], f[11], f[12]},
	}
	if logActivation {
		r.Opacity = sigmoid(r.Opacity)
		for i := range r.Scale {
			r.Scale[i] = math32.Exp(r.Scale[i])
		}
	}
	for i, s := range r.Scale {
		if !common.Finite(s) || s <= 0 {
			return Record{}, &FormatError{Offset: (10 + i) * 4, Field: splatV1Properties[10+i], Reason: "scale must be positive"}
		}
	}

	rot, ferr := unitQuat(common.Quat{f[13], f[14], f[15], f[16]})
	if ferr != nil {
		ferr.Offset = 13 * 4
		return Record{}, ferr
	}
	r.Rotation = rot
	r.Opacity = common.Clamp(r.Opacity, 0, 1)
	r.Color = SHToRGB(r.SH)
	r.Normal = DeriveNormal(r.Rotation, r.Scale)
	return r, nil
}

func decodeInterchangeV1(f [17]float32) (Record, *FormatError) {
	n := common.Vec3{f[3], f[4], f[5]}
	if n.MaxAbs() == 0 {
		return Record{}, &FormatError{Offset: 3 * 4, Field: "nx", Reason: "zero-length normal"}
	}
	if l := n.Length(); !common.Finite(l) || math32.Abs(l-1) > unitTolerance {
		n = n.Normalize()
	}
	return Record{
		Position: common.Vec3{f[0], f[1], f[2]},
		Rotation: common.IdentityQuat,
		Scale:    common.Vec3{DefaultScale, DefaultScale, DefaultScale},
		Opacity:  common.Clamp(f[9], 0, 1),
		Color: common.Vec3{
			common.Clamp(f[6], 0, 1),
			common.Clamp(f[7], 0, 1),
			common.Clamp(f[8], 0, 1),
		},
		Normal: n,
	}, nil
}

// unitQuat normalizes q unless it is already unit length within tolerance.
func unitQuat(q common.Quat) (common.Quat, *FormatError) {
	if q.MaxAbs() == 0 {
		return q, &FormatError{Field: "rot_0", Reason: "zero-length rotation"}
	}
	if l := q.Length(); !common.Finite(l) || math32.Abs(l-1) > unitTolerance {
		q = q.Normalize()
	}
	return q, nil
}
