package splat

import (
	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/chewxy/math32"
)

// shC0 is the zeroth-order real spherical-harmonics basis constant.
const shC0 float32 = 0.2820947917

// SHToRGB converts DC spherical-harmonics coefficients into a clamped RGB color.
//
// Parameters:
//   - sh: the f_dc_0..2 coefficients
//
// Returns:
//   - common.Vec3: the color with every channel in [0, 1]
func SHToRGB(sh common.Vec3) common.Vec3 {
	return common.Vec3{
		common.Clamp(0.5+shC0*sh[0], 0, 1),
		common.Clamp(0.5+shC0*sh[1], 0, 1),
		common.Clamp(0.5+shC0*sh[2], 0, 1),
	}
}

// DeriveNormal returns the splat's surface normal: the local axis with the smallest absolute scale,
// rotated into world space. The x axis wins only when strictly smallest, then y over z.
//
// Parameters:
//   - rot: the unit rotation quaternion (x, y, z, w)
//   - scale: the per-axis scale
//
// Returns:
//   - common.Vec3: the unit-length world-space normal
func DeriveNormal(rot common.Quat, scale common.Vec3) common.Vec3 {
	sx, sy, sz := math32.Abs(scale[0]), math32.Abs(scale[1]), math32.Abs(scale[2])
	var local common.Vec3
	switch {
	case sx < sy && sx < sz:
		local = common.Vec3{1, 0, 0}
	case sy < sz:
		local = common.Vec3{0, 1, 0}
	default:
		local = common.Vec3{0, 0, 1}
	}
	return rot.Rotate(local).Normalize()
}

func sigmoid(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}
