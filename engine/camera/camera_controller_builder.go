package camera

import "github.com/Carmen-Shannon/oxy-splat/common"

// CameraControllerOption is a functional option applied to a controller during construction via NewCameraController.
type CameraControllerOption func(*cameraControllerImpl)

// WithTarget sets the initial orbit center.
//
// Parameters:
//   - target: the world-space point the camera looks at
//
// Returns:
//   - CameraControllerOption: option function to apply
func WithTarget(target common.Vec3) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.target = target
	}
}

// WithDistance sets the initial eye-to-target distance.
//
// Parameters:
//   - distance: the distance, clamped to the distance limits after all options are applied
//
// Returns:
//   - CameraControllerOption: option function to apply
func WithDistance(distance float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.distance = distance
	}
}

// WithAngles sets the initial yaw and pitch in radians.
//
// Parameters:
//   - yaw: the horizontal angle
//   - pitch: the vertical angle, clamped to the pitch limit
//
// Returns:
//   - CameraControllerOption: option function to apply
func WithAngles(yaw, pitch float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.yaw = yaw
		cc.pitch = pitch
	}
}

// WithDistanceLimits sets the closest and farthest allowed distances.
//
// Parameters:
//   - minDistance: the minimum distance (> 0)
//   - maxDistance: the maximum distance (>= minDistance)
//
// Returns:
//   - CameraControllerOption: option function to apply
func WithDistanceLimits(minDistance, maxDistance float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		if minDistance > 0 && maxDistance >= minDistance {
			cc.minDistance = minDistance
			cc.maxDistance = maxDistance
		}
	}
}

// WithSpeeds sets the input sensitivities.
//
// Parameters:
//   - rotate: radians per pixel of drag
//   - pan: target translation per pixel, as a fraction of the distance
//   - zoom: fractional distance change per wheel unit
//
// Returns:
//   - CameraControllerOption: option function to apply
func WithSpeeds(rotate, pan, zoom float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.rotateSpeed = rotate
		cc.panSpeed = pan
		cc.zoomSpeed = zoom
	}
}
