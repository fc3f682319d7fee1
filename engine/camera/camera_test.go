package camera

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControllerDefaults(t *testing.T) {
	cc := NewCameraController()
	pos := cc.Position()
	assert.InDelta(t, 0, pos[0], 1e-5)
	assert.InDelta(t, 0, pos[1], 1e-5)
	assert.InDelta(t, -5, pos[2], 1e-5)
	assert.Equal(t, DefaultDistance, cc.Distance())
}

func TestControllerRotateClampsPitch(t *testing.T) {
	cc := NewCameraController()
	cc.Rotate(100, 0)
	assert.InDelta(t, DefaultYaw-0.5, cc.Yaw(), 1e-6)

	cc.Rotate(0, -10000)
	assert.Equal(t, DefaultPitchLimit, cc.Pitch())
	cc.Rotate(0, 10000)
	assert.Equal(t, -DefaultPitchLimit, cc.Pitch())
}

func TestControllerZoom(t *testing.T) {
	tests := []struct {
		name  string
		delta float32
		want  float32
	}{
		{"zoom in", 100, 4.5},
		{"zoom out", -100, 5.5},
		{"clamped near", 100000, DefaultMinDistance},
		{"clamped far", -1e9, DefaultMaxDistance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cc := NewCameraController()
			cc.Zoom(tt.delta)
			assert.InDelta(t, tt.want, cc.Distance(), 1e-5)
		})
	}
}

func TestControllerPanMovesTargetInViewPlane(t *testing.T) {
	cc := NewCameraController()
	before := cc.Position().Sub(cc.Target())

	cc.Pan(100, 0)
	target := cc.Target()
	// eye on -Z looking at +Z: screen right is world -X
	assert.InDelta(t, 0.5, target[0], 1e-5)
	assert.InDelta(t, 0, target[1], 1e-5)
	assert.InDelta(t, 0, target[2], 1e-5)

	cc.Pan(0, 100)
	assert.InDelta(t, 0.5, cc.Target()[1], 1e-5)

	after := cc.Position().Sub(cc.Target())
	for i := range before {
		assert.InDelta(t, before[i], after[i], 1e-5)
	}
}

func TestControllerFit(t *testing.T) {
	cc := NewCameraController(WithDistanceLimits(1, 10))
	cc.Fit(common.Vec3{1, 2, 3}, 50)
	assert.Equal(t, common.Vec3{1, 2, 3}, cc.Target())
	assert.Equal(t, float32(10), cc.Distance())
}

func TestCameraViewProjection(t *testing.T) {
	cam := NewCamera(WithAspect(16.0 / 9.0))
	vp := cam.ViewProjectionMatrix()

	// the target projects to the center of the screen inside the depth range
	clip := common.TransformPoint(vp[:], cam.Controller().Target())
	require.Greater(t, clip[3], float32(0))
	assert.InDelta(t, 0, clip[0]/clip[3], 1e-5)
	assert.InDelta(t, 0, clip[1]/clip[3], 1e-5)
	depth := clip[2] / clip[3]
	assert.Greater(t, depth, float32(0))
	assert.Less(t, depth, float32(1))
}

func TestCameraUpdateFollowsController(t *testing.T) {
	cam := NewCamera()
	before := cam.ViewMatrix()
	cam.Controller().Rotate(50, 20)
	assert.Equal(t, before, cam.ViewMatrix())

	cam.Update()
	assert.NotEqual(t, before, cam.ViewMatrix())
}

func TestCameraSetAspectIgnoresInvalid(t *testing.T) {
	cam := NewCamera()
	cam.SetAspect(0)
	assert.Equal(t, float32(1), cam.Lens().Aspect)
	cam.SetAspect(2)
	assert.Equal(t, float32(2), cam.Lens().Aspect)
}

func TestLensValid(t *testing.T) {
	tests := []struct {
		name string
		lens Lens
		want bool
	}{
		{"default", DefaultLens(), true},
		{"zero fov", Lens{Fov: 0, Aspect: 1, Near: 0.1, Far: 10}, false},
		{"far before near", Lens{Fov: 1, Aspect: 1, Near: 10, Far: 1}, false},
		{"zero near", Lens{Fov: 1, Aspect: 1, Near: 0, Far: 10}, false},
		{"infinite far", Lens{Fov: 1, Aspect: 1, Near: 0.1, Far: math32.Inf(1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.lens.Valid())
		})
	}
}

func TestWithLensIgnoresInvalid(t *testing.T) {
	custom := Lens{Fov: 1, Aspect: 2, Near: 1, Far: 50}
	assert.Equal(t, custom, NewCamera(WithLens(custom)).Lens())
	assert.Equal(t, DefaultLens(), NewCamera(WithLens(Lens{})).Lens())
}

func TestViewUniformMarshal(t *testing.T) {
	cam := NewCamera()
	u := cam.Uniform(1)
	assert.Equal(t, 80, u.Size())

	buf := u.Marshal()
	require.Len(t, buf, 80)
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(buf[76:]))
	assert.Equal(t, u.ViewProj[5], math.Float32frombits(binary.LittleEndian.Uint32(buf[20:])))
	assert.Equal(t, u.Eye[2], math.Float32frombits(binary.LittleEndian.Uint32(buf[72:])))
}
