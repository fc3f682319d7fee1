package camera

// CameraBuilderOption configures a camera in NewCamera.
type CameraBuilderOption func(*cameraImpl)

// WithLens replaces the default lens. An invalid lens is ignored.
//
// Parameters:
//   - lens: the projection settings
//
// Returns:
//   - CameraBuilderOption: the option
func WithLens(lens Lens) CameraBuilderOption {
	return func(c *cameraImpl) {
		if lens.Valid() {
			c.lens = lens
		}
	}
}

// WithAspect sets only the aspect ratio of the lens.
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		next := c.lens
		next.Aspect = aspect
		if next.Valid() {
			c.lens = next
		}
	}
}

// WithController attaches ctrl instead of a default orbit controller. Nil is ignored.
func WithController(ctrl CameraController) CameraBuilderOption {
	return func(c *cameraImpl) {
		if ctrl != nil {
			c.controller = ctrl
		}
	}
}
