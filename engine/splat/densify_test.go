package splat

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodedSample(t *testing.T, n int) *Table {
	t.Helper()
	table, err := Decode(splatFile(sampleRows(n)...))
	require.NoError(t, err)
	return table
}

func TestDensifyCountLaw(t *testing.T) {
	for _, n := range []int{0, 1, 4, 37} {
		for _, factor := range []int{1, 2, 3, 8} {
			out, err := Densify(decodedSample(t, n), factor, 7)
			require.NoError(t, err)
			assert.Equal(t, n*factor, out.Len(), "n=%d factor=%d", n, factor)
			assert.NoError(t, out.Validate())
		}
	}
}

func TestDensifyFactorOneIsIdentity(t *testing.T) {
	table := decodedSample(t, 5)
	out, err := Densify(table, 1, 99)
	require.NoError(t, err)
	assert.Equal(t, table, out)
	assert.NotSame(t, table, out)
}

func TestDensifyRejectsInvalidFactor(t *testing.T) {
	table := decodedSample(t, 2)
	for _, factor := range []int{0, -1} {
		_, err := Densify(table, factor, 0)
		assert.ErrorIs(t, err, common.ErrInvalidFactor)
	}
	assert.ErrorIs(t, CheckFactor(2, MaxDensifyRecords), common.ErrInvalidFactor)
	assert.NoError(t, CheckFactor(0, MaxDensifyRecords))
}

func TestDensifyChildrenAreContiguousAndDispersed(t *testing.T) {
	const factor = 4
	table := decodedSample(t, 6)
	out, err := Densify(table, factor, 1)
	require.NoError(t, err)

	shrink := ChildScale(factor)
	for p, parent := range table.Records {
		children := out.Records[p*factor : (p+1)*factor]
		assert.Equal(t, parent, children[0])

		moved := 0
		for _, child := range children[1:] {
			assert.Equal(t, parent.Rotation, child.Rotation)
			assert.Equal(t, parent.Color, child.Color)
			assert.Equal(t, parent.Opacity, child.Opacity)
			assert.Equal(t, parent.Normal, child.Normal)
			assert.Equal(t, parent.SH, child.SH)
			for i := range child.Scale {
				assert.InDelta(t, parent.Scale[i]*shrink, child.Scale[i], 1e-6)
			}
			d := child.Position.Sub(parent.Position).Length()
			assert.LessOrEqual(t, d, parent.Scale.Length()+1e-5)
			if d > 0 {
				moved++
			}
		}
		assert.Positive(t, moved)
	}
}

func TestDensifyIsDeterministic(t *testing.T) {
	table := decodedSample(t, 10)
	a, err := Densify(table, 3, 5)
	require.NoError(t, err)
	b, err := Densify(table, 3, 5)
	require.NoError(t, err)
	c, err := Densify(table, 3, 6)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestJitterOffsetRange(t *testing.T) {
	for o := uint32(0); o < 2000; o++ {
		u := JitterOffset(o, 12345)
		for _, v := range u {
			assert.GreaterOrEqual(t, v, float32(-1))
			assert.LessOrEqual(t, v, float32(1))
		}
	}
	assert.Equal(t, JitterOffset(3, 9), JitterOffset(3, 9))
	assert.NotEqual(t, JitterOffset(3, 9), JitterOffset(4, 9))
}

func TestChildScaleKeepsVolume(t *testing.T) {
	for _, f := range []int{2, 3, 8, 27} {
		s := ChildScale(f)
		assert.InDelta(t, 1, float32(f)*s*s*s, 1e-4)
	}
}
