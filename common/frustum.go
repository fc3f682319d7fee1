package common

// Plane represents a plane in 3D space using the equation: ax + by + cz + d = 0
// where (a, b, c) is the normal and d is the distance from origin.
type Plane struct {
	Normal   Vec3
	Distance float32
}

// Sphere is a bounding sphere.
type Sphere struct {
	Center Vec3
	Radius float32
}

// Frustum represents the six planes of a view frustum for culling.
// Planes are oriented so that positive half-space is inside the frustum.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// FrustumPlane indices for clarity
const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// ExtractFrustumFromMatrix extracts frustum planes from a view-projection matrix
// with WebGPU [0, 1] clip depth. Uses the Gribb/Hartmann method for plane extraction.
//
// Reference: https://www8.cs.umu.se/kurser/5DV051/HT12/lab/plane_extraction.pdf
//
// Parameters:
//   - viewProj: 16 float32 values representing the view-projection matrix (column-major)
//
// Returns:
//   - Frustum: the extracted frustum with normalized planes
func ExtractFrustumFromMatrix(viewProj []float32) Frustum {
	// row i of a column-major matrix is (m[i], m[4+i], m[8+i], m[12+i])
	row := func(i int) (Vec3, float32) {
		return Vec3{viewProj[i], viewProj[4+i], viewProj[8+i]}, viewProj[12+i]
	}
	r0, d0 := row(0)
	r1, d1 := row(1)
	r2, d2 := row(2)
	r3, d3 := row(3)

	var f Frustum
	f.Planes[FrustumLeft] = Plane{r3.Add(r0), d3 + d0}
	f.Planes[FrustumRight] = Plane{r3.Sub(r0), d3 - d0}
	f.Planes[FrustumBottom] = Plane{r3.Add(r1), d3 + d1}
	f.Planes[FrustumTop] = Plane{r3.Sub(r1), d3 - d1}
	// clip z >= 0 rather than z >= -w
	f.Planes[FrustumNear] = Plane{r2, d2}
	f.Planes[FrustumFar] = Plane{r3.Sub(r2), d3 - d2}

	for i := range f.Planes {
		f.normalizePlane(i)
	}
	return f
}

// normalizePlane normalizes a frustum plane so that the normal has unit length.
func (f *Frustum) normalizePlane(index int) {
	p := &f.Planes[index]
	if length := p.Normal.Length(); length > 0 {
		invLen := 1 / length
		p.Normal = p.Normal.Scale(invLen)
		p.Distance *= invLen
	}
}

// IntersectsSphere reports whether any part of s lies inside the frustum.
// Degenerate planes (zero normal) never reject.
func (f *Frustum) IntersectsSphere(s Sphere) bool {
	for _, p := range f.Planes {
		if p.Normal == (Vec3{}) {
			continue
		}
		if p.Normal.Dot(s.Center)+p.Distance < -s.Radius {
			return false
		}
	}
	return true
}
