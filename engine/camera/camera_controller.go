package camera

import "github.com/Carmen-Shannon/oxy-splat/common"

// CameraController defines an orbit controller: the eye sits on a sphere of radius Distance
// around Target, placed by Yaw (around +Y) and Pitch (above the horizontal plane).
// Pointer deltas are in pixels, wheel deltas in wheel units.
type CameraController interface {
	// Position returns the eye position derived from target, distance, yaw and pitch.
	//
	// Returns:
	//   - common.Vec3: the world-space eye position
	Position() common.Vec3

	// Target returns the point the camera orbits around and looks at.
	//
	// Returns:
	//   - common.Vec3: the world-space target
	Target() common.Vec3

	// SetTarget moves the orbit center without changing distance or angles.
	//
	// Parameters:
	//   - target: the new world-space target
	SetTarget(target common.Vec3)

	// Distance returns the eye-to-target distance.
	//
	// Returns:
	//   - float32: the current distance
	Distance() float32

	// SetDistance sets the eye-to-target distance, clamped to the controller's limits.
	//
	// Parameters:
	//   - distance: the requested distance
	SetDistance(distance float32)

	// Yaw returns the horizontal orbit angle in radians.
	Yaw() float32

	// Pitch returns the vertical orbit angle in radians.
	Pitch() float32

	// Rotate orbits the eye by a pointer drag. Pitch is clamped so the eye never reaches a pole.
	//
	// Parameters:
	//   - dx: horizontal drag in pixels
	//   - dy: vertical drag in pixels
	Rotate(dx, dy float32)

	// Pan translates the target in the view plane by a pointer drag, scaled by the distance.
	//
	// Parameters:
	//   - dx: horizontal drag in pixels
	//   - dy: vertical drag in pixels
	Pan(dx, dy float32)

	// Zoom scales the distance by a wheel delta. Positive deltas move closer.
	//
	// Parameters:
	//   - delta: the wheel delta
	Zoom(delta float32)

	// Fit centers the orbit on center at the given distance, keeping the current angles.
	//
	// Parameters:
	//   - center: the new target
	//   - distance: the new distance, clamped to the controller's limits
	Fit(center common.Vec3, distance float32)
}
