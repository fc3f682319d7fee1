package splat

import (
	"bytes"
	"encoding/binary"
	"math"
	"strconv"
)

// plyFile assembles a PLY file from raw header lines (between the format line and end_header) and float rows.
func plyFile(format string, headerLines []string, rows [][]float32) []byte {
	var buf bytes.Buffer
	buf.WriteString("ply\n")
	buf.WriteString(format + "\n")
	for _, l := range headerLines {
		buf.WriteString(l + "\n")
	}
	buf.WriteString("end_header\n")
	for _, row := range rows {
		for _, v := range row {
			_ = binary.Write(&buf, binary.LittleEndian, math.Float32bits(v))
		}
	}
	return buf.Bytes()
}

func splatHeader(count int, extra ...string) []string {
	lines := append([]string{}, extra...)
	lines = append(lines, "element vertex "+strconv.Itoa(count))
	for _, p := range splatV1Properties {
		lines = append(lines, "property float "+p)
	}
	return lines
}

// splatRow builds a LayoutSplatV1 row: position, zero normal, sh, opacity, scale, rotation (x, y, z, w).
func splatRow(pos [3]float32, sh [3]float32, opacity float32, scale [3]float32, rot [4]float32) []float32 {
	return []float32{
		pos[0], pos[1], pos[2],
		0, 0, 0,
		sh[0], sh[1], sh[2],
		opacity,
		scale[0], scale[1], scale[2],
		rot[0], rot[1], rot[2], rot[3],
	}
}

func splatFile(rows ...[]float32) []byte {
	return plyFile("format binary_little_endian 1.0", splatHeader(len(rows)), rows)
}

// sampleRows returns n varied, valid LayoutSplatV1 rows.
func sampleRows(n int) [][]float32 {
	rows := make([][]float32, n)
	for i := range rows {
		f := float32(i)
		rows[i] = splatRow(
			[3]float32{f, -f * 0.5, f * 0.25},
			[3]float32{f * 0.1, -0.3, 1.2},
			float32(i%10)/10,
			[3]float32{0.1 + f*0.01, 0.2, 0.05},
			[4]float32{0.1 * float32(i%3), 0.2, 0.3, 1},
		)
	}
	return rows
}
