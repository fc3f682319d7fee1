package common

import (
	"github.com/chewxy/math32"
)

// Vec3 is a three component float32 vector.
type Vec3 [3]float32

// Quat is a rotation quaternion stored as x, y, z, w.
type Quat [4]float32

// IdentityQuat is the quaternion of the zero rotation.
var IdentityQuat = Quat{0, 0, 0, 1}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]} }

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]} }

func (v Vec3) Scale(s float32) Vec3 { return Vec3{v[0] * s, v[1] * s, v[2] * s} }

// Mul returns the component-wise product of v and o.
func (v Vec3) Mul(o Vec3) Vec3 { return Vec3{v[0] * o[0], v[1] * o[1], v[2] * o[2]} }

func (v Vec3) Dot(o Vec3) float32 { return v[0]*o[0] + v[1]*o[1] + v[2]*o[2] }

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v[1]*o[2] - v[2]*o[1],
		v[2]*o[0] - v[0]*o[2],
		v[0]*o[1] - v[1]*o[0],
	}
}

func (v Vec3) Length() float32 { return math32.Sqrt(v.Dot(v)) }

// MaxAbs returns the largest absolute component of v.
func (v Vec3) MaxAbs() float32 {
	return math32.Max(math32.Abs(v[0]), math32.Max(math32.Abs(v[1]), math32.Abs(v[2])))
}

// Normalize returns v scaled to unit length. Components are first divided by the largest
// magnitude so the squared sum can neither overflow nor underflow. A zero or non-finite
// vector is returned unchanged.
func (v Vec3) Normalize() Vec3 {
	m := v.MaxAbs()
	if m == 0 || !Finite(m) {
		return v
	}
	v = Vec3{v[0] / m, v[1] / m, v[2] / m}
	return v.Scale(1 / v.Length())
}

// Length returns the Euclidean norm of the quaternion.
func (q Quat) Length() float32 {
	return math32.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
}

// MaxAbs returns the largest absolute component of q.
func (q Quat) MaxAbs() float32 {
	return math32.Max(math32.Max(math32.Abs(q[0]), math32.Abs(q[1])), math32.Max(math32.Abs(q[2]), math32.Abs(q[3])))
}

// Normalize returns q scaled to unit norm, rescaled like Vec3.Normalize. A zero or non-finite
// quaternion is returned unchanged.
func (q Quat) Normalize() Quat {
	m := q.MaxAbs()
	if m == 0 || !Finite(m) {
		return q
	}
	q = Quat{q[0] / m, q[1] / m, q[2] / m, q[3] / m}
	inv := 1 / q.Length()
	return Quat{q[0] * inv, q[1] * inv, q[2] * inv, q[3] * inv}
}

// Rotate applies the rotation described by q (assumed unit norm) to v.
//
// Parameters:
//   - v: the vector to rotate
//
// Returns:
//   - Vec3: the rotated vector
func (q Quat) Rotate(v Vec3) Vec3 {
	u := Vec3{q[0], q[1], q[2]}
	t := u.Cross(v).Scale(2)
	return v.Add(t.Scale(q[3])).Add(u.Cross(t))
}
