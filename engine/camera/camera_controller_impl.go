package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/chewxy/math32"
)

// Orbit defaults.
const (
	DefaultDistance    float32 = 5
	DefaultYaw         float32 = -math32.Pi / 2
	DefaultRotateSpeed float32 = 0.005
	DefaultPanSpeed    float32 = 0.001
	DefaultZoomSpeed   float32 = 0.001
	DefaultMinDistance float32 = 0.1
	DefaultMaxDistance float32 = 100
	DefaultPitchLimit  float32 = 1.5
)

type cameraControllerImpl struct {
	mu *sync.Mutex

	target   common.Vec3
	distance float32
	yaw      float32
	pitch    float32

	minDistance float32
	maxDistance float32
	pitchLimit  float32

	rotateSpeed float32
	panSpeed    float32
	zoomSpeed   float32
}

var _ CameraController = &cameraControllerImpl{}

// NewCameraController creates an orbit controller whose eye starts DefaultDistance units down -Z,
// looking at the origin.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewCameraController(options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		mu:          &sync.Mutex{},
		distance:    DefaultDistance,
		yaw:         DefaultYaw,
		minDistance: DefaultMinDistance,
		maxDistance: DefaultMaxDistance,
		pitchLimit:  DefaultPitchLimit,
		rotateSpeed: DefaultRotateSpeed,
		panSpeed:    DefaultPanSpeed,
		zoomSpeed:   DefaultZoomSpeed,
	}
	for _, option := range options {
		option(cc)
	}
	cc.distance = common.Clamp(cc.distance, cc.minDistance, cc.maxDistance)
	cc.pitch = common.Clamp(cc.pitch, -cc.pitchLimit, cc.pitchLimit)
	return cc
}

// offset returns the eye position relative to the target. Caller must hold the mutex.
func (cc *cameraControllerImpl) offset() common.Vec3 {
	cp := math32.Cos(cc.pitch)
	return common.Vec3{
		cc.distance * math32.Cos(cc.yaw) * cp,
		cc.distance * math32.Sin(cc.pitch),
		cc.distance * math32.Sin(cc.yaw) * cp,
	}
}

func (cc *cameraControllerImpl) Position() common.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target.Add(cc.offset())
}

func (cc *cameraControllerImpl) Target() common.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target
}

func (cc *cameraControllerImpl) SetTarget(target common.Vec3) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.target = target
}

func (cc *cameraControllerImpl) Distance() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.distance
}

func (cc *cameraControllerImpl) SetDistance(distance float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.distance = common.Clamp(distance, cc.minDistance, cc.maxDistance)
}

func (cc *cameraControllerImpl) Yaw() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.yaw
}

func (cc *cameraControllerImpl) Pitch() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.pitch
}

func (cc *cameraControllerImpl) Rotate(dx, dy float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.yaw -= dx * cc.rotateSpeed
	cc.pitch = common.Clamp(cc.pitch-dy*cc.rotateSpeed, -cc.pitchLimit, cc.pitchLimit)
}

func (cc *cameraControllerImpl) Pan(dx, dy float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	// camera basis matching common.LookAt
	back := cc.offset().Normalize()
	right := common.Vec3{0, 1, 0}.Cross(back).Normalize()
	up := back.Cross(right)
	speed := cc.distance * cc.panSpeed
	cc.target = cc.target.Sub(right.Scale(dx * speed)).Add(up.Scale(dy * speed))
}

func (cc *cameraControllerImpl) Zoom(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.distance = common.Clamp(cc.distance-delta*cc.distance*cc.zoomSpeed, cc.minDistance, cc.maxDistance)
}

func (cc *cameraControllerImpl) Fit(center common.Vec3, distance float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.target = center
	cc.distance = common.Clamp(distance, cc.minDistance, cc.maxDistance)
}
