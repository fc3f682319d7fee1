package splat

import (
	"bytes"
	"strconv"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/chewxy/math32"
)

// PackRGB quantizes a [0, 1] color to 8 bits per channel and packs it as 0x00RRGGBB.
func PackRGB(c common.Vec3) uint32 {
	q := func(v float32) uint32 {
		return uint32(math32.Round(common.Clamp(v, 0, 1) * 255))
	}
	return q(c[0])<<16 | q(c[1])<<8 | q(c[2])
}

func (c *codec) EncodePCD(t *Table) ([]byte, error) {
	n := strconv.Itoa(t.Len())
	var buf bytes.Buffer
	buf.WriteString("# .PCD v0.7 - Point Cloud Data file format\n")
	buf.WriteString("VERSION 0.7\n")
	buf.WriteString("FIELDS x y z rgb normal_x normal_y normal_z\n")
	buf.WriteString("SIZE 4 4 4 4 4 4 4\n")
	buf.WriteString("TYPE F F F U F F F\n")
	buf.WriteString("COUNT 1 1 1 1 1 1 1\n")
	buf.WriteString("WIDTH " + n + "\n")
	buf.WriteString("HEIGHT 1\n")
	buf.WriteString("VIEWPOINT 0 0 0 1 0 0 0\n")
	buf.WriteString("POINTS " + n + "\n")
	buf.WriteString("DATA ascii\n")

	line := make([]byte, 0, 192)
	for i := 0; i < t.Len(); i++ {
		r := t.Records[i]
		if !common.Finite(r.Position[:]...) || !common.Finite(r.Normal[:]...) {
			return nil, &FormatError{Offset: -1, Record: i, Field: "record", Reason: "non-finite value"}
		}
		line = line[:0]
		for _, v := range r.Position {
			line = strconv.AppendFloat(line, float64(v), 'g', -1, 32)
			line = append(line, ' ')
		}
		line = strconv.AppendUint(line, uint64(PackRGB(r.Color)), 10)
		for _, v := range r.Normal {
			line = append(line, ' ')
			line = strconv.AppendFloat(line, float64(v), 'g', -1, 32)
		}
		line = append(line, '\n')
		buf.Write(line)
	}
	return buf.Bytes(), nil
}
