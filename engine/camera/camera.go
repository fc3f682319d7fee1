package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/chewxy/math32"
)

// DefaultFov is the vertical field of view used when none is configured.
const DefaultFov = 45 * math32.Pi / 180

// Lens is the perspective projection of a camera.
type Lens struct {
	Fov    float32 // vertical field of view in radians
	Aspect float32 // width / height
	Near   float32
	Far    float32
}

// DefaultLens returns a 45 degree lens with a square aspect and planes at 0.1 and 1000.
func DefaultLens() Lens {
	return Lens{Fov: DefaultFov, Aspect: 1, Near: 0.1, Far: 1000}
}

// Valid reports whether the lens describes a usable projection.
func (l Lens) Valid() bool {
	return common.Finite(l.Fov, l.Aspect, l.Near, l.Far) &&
		l.Fov > 0 && l.Fov < math32.Pi && l.Aspect > 0 && l.Near > 0 && l.Far > l.Near
}

// Projection writes the [0, 1] depth perspective matrix of the lens into out.
func (l Lens) Projection(out []float32) {
	common.Perspective(out, l.Fov, l.Aspect, l.Near, l.Far)
}

// Camera turns the eye and target of its controller into the per-frame view uniform.
// Matrices are only recomputed by Update, so controller input between frames is applied
// atomically at the next frame.
type Camera interface {
	// Lens returns the current projection settings.
	Lens() Lens

	// SetAspect changes the aspect ratio. Zero, negative and non-finite values are ignored.
	SetAspect(aspect float32)

	// Controller returns the attached orbit controller, never nil.
	Controller() CameraController

	// Update recomputes the view and view-projection matrices from the controller.
	Update()

	// ViewMatrix returns the column-major view matrix as of the last Update.
	ViewMatrix() [16]float32

	// ViewProjectionMatrix returns the column-major projection * view matrix as of the last Update.
	ViewProjectionMatrix() [16]float32

	// Uniform packs the view-projection matrix and eye position with a display mode.
	//
	// Parameters:
	//   - mode: the display mode value read by the fragment stage
	//
	// Returns:
	//   - GPUViewUniform: the packed uniform
	Uniform(mode uint32) GPUViewUniform
}

type cameraImpl struct {
	mu *sync.Mutex

	lens       Lens
	up         common.Vec3
	controller CameraController

	eye      common.Vec3
	view     [16]float32
	viewProj [16]float32
}

var _ Camera = &cameraImpl{}

// NewCamera creates a camera with DefaultLens and a default orbit controller, then applies
// options.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - Camera: the camera with its matrices already computed
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:   &sync.Mutex{},
		lens: DefaultLens(),
		up:   common.Vec3{0, 1, 0},
	}
	for _, option := range options {
		option(c)
	}
	if c.controller == nil {
		c.controller = NewCameraController()
	}
	c.recompute()
	return c
}

func (c *cameraImpl) Lens() Lens {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lens
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.lens
	next.Aspect = aspect
	if !next.Valid() {
		return
	}
	c.lens = next
	c.recompute()
}

func (c *cameraImpl) Controller() CameraController {
	return c.controller
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recompute()
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *cameraImpl) ViewProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProj
}

func (c *cameraImpl) Uniform(mode uint32) GPUViewUniform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return GPUViewUniform{ViewProj: c.viewProj, Eye: c.eye, Mode: mode}
}

// recompute snapshots the controller and rebuilds the matrices. Caller holds mu.
func (c *cameraImpl) recompute() {
	var proj [16]float32
	c.eye = c.controller.Position()
	common.LookAt(c.view[:], c.eye, c.controller.Target(), c.up)
	c.lens.Projection(proj[:])
	common.Mul4(c.viewProj[:], proj[:], c.view[:])
}
