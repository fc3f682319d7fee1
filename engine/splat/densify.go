package splat

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/chewxy/math32"
)

// pcgHash is the PCG-RXS-M-XS 32-bit permutation. The densify WGSL kernel uses the same constants.
func pcgHash(v uint32) uint32 {
	state := v*747796405 + 2891336453
	word := ((state >> ((state >> 28) + 4)) ^ state) * 277803737
	return (word >> 22) ^ word
}

// unitOffset maps a hash to [-1, 1].
func unitOffset(h uint32) float32 {
	return float32(float64(h)/math.MaxUint32)*2 - 1
}

// JitterOffset returns the deterministic offset in [-1, 1]^3 assigned to output index o.
//
// Parameters:
//   - o: the output record index
//   - seed: the densification seed
//
// Returns:
//   - common.Vec3: the per-axis offset in units of the parent scale
func JitterOffset(o, seed uint32) common.Vec3 {
	h1 := pcgHash(o ^ pcgHash(seed))
	h2 := pcgHash(h1)
	h3 := pcgHash(h2)
	return common.Vec3{unitOffset(h1), unitOffset(h2), unitOffset(h3)}
}

// ChildScale returns the factor applied to a parent's scale for each of its children:
// factor^(-1/3), which keeps the summed volume of the children equal to the parent's.
func ChildScale(factor int) float32 {
	return math32.Pow(float32(factor), -1.0/3.0)
}

// DensifyRecord computes output record o of a densification by factor.
// Child 0 of every parent is the parent itself. The remaining children are displaced inside
// the parent's oriented scale box and shrunk by ChildScale.
//
// Parameters:
//   - parent: the source record, parent index o / factor
//   - o: the output record index
//   - factor: the densification factor (>= 1)
//   - seed: the densification seed
//
// Returns:
//   - Record: the output record
func DensifyRecord(parent Record, o uint32, factor int, seed uint32) Record {
	if int(o)%factor == 0 {
		return parent
	}
	child := parent
	offset := parent.Rotation.Rotate(parent.Scale.Mul(JitterOffset(o, seed)))
	child.Position = parent.Position.Add(offset)
	child.Scale = parent.Scale.Scale(ChildScale(factor))
	return child
}

// MaxDensifyRecords bounds the output record count of a densification.
const MaxDensifyRecords = math.MaxInt32 / GPUSplatSize

// Densify is the CPU reference densification kernel. It produces len(t) * factor records in which
// the children of each parent are contiguous and in parent order.
//
// Parameters:
//   - t: the source table
//   - factor: the densification factor (>= 1)
//   - seed: the densification seed
//
// Returns:
//   - *Table: a new table, or a clone of t when factor is 1
//   - error: common.ErrInvalidFactor for factor < 1 or an output that exceeds MaxDensifyRecords
func Densify(t *Table, factor int, seed uint32) (*Table, error) {
	if err := CheckFactor(t.Len(), factor); err != nil {
		return nil, err
	}
	if factor == 1 {
		return t.Clone(), nil
	}
	out := make([]Record, t.Len()*factor)
	for o := range out {
		out[o] = DensifyRecord(t.Records[o/factor], uint32(o), factor, seed)
	}
	result := NewTable(out, t.Layout)
	if err := result.Validate(); err != nil {
		return nil, err
	}
	return result, nil
}

// CheckFactor validates a densification factor against the record count it would apply to.
func CheckFactor(count, factor int) error {
	if factor < 1 {
		return fmt.Errorf("%w: %d", common.ErrInvalidFactor, factor)
	}
	if count > 0 && factor > MaxDensifyRecords/count {
		return fmt.Errorf("%w: %d records x %d exceeds %d", common.ErrInvalidFactor, count, factor, MaxDensifyRecords)
	}
	return nil
}
