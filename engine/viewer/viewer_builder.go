package viewer

import (
	"context"

	"github.com/Carmen-Shannon/oxy-splat/engine/camera"
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer"
	"github.com/Carmen-Shannon/oxy-splat/engine/splat"
	"github.com/Carmen-Shannon/oxy-splat/engine/window"
)

// BackendFactory acquires the graphics device of a viewer.
type BackendFactory func(ctx context.Context) (renderer.RendererBackend, error)

// ViewerBuilderOption is a functional option applied to a viewer during construction via New.
type ViewerBuilderOption func(*viewerImpl)

// WithBackendFactory sets the function that acquires the graphics device.
//
// Parameters:
//   - factory: the backend factory
//
// Returns:
//   - ViewerBuilderOption: a function that applies the option to a viewer
func WithBackendFactory(factory BackendFactory) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.factory = factory
	}
}

// WithWindow acquires a WebGPU device presenting to the window's surface.
//
// Parameters:
//   - w: the window providing the surface descriptor
//   - options: backend options such as renderer.WithMSAA and renderer.WithPresentMode
//
// Returns:
//   - ViewerBuilderOption: a function that applies the option to a viewer
func WithWindow(w window.Window, options ...renderer.BackendBuilderOption) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.factory = func(ctx context.Context) (renderer.RendererBackend, error) {
			return renderer.NewWGPURendererBackend(w.SurfaceDescriptor(), options...)
		}
	}
}

// WithRendererOptions forwards options to the renderer created for the acquired device.
func WithRendererOptions(options ...renderer.RendererBuilderOption) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.rendererOptions = append(v.rendererOptions, options...)
	}
}

// WithCodec replaces the default scene codec. The viewer closes it on Dispose.
func WithCodec(codec splat.Codec) ViewerBuilderOption {
	return func(v *viewerImpl) {
		if codec != nil {
			v.codec = codec
		}
	}
}

// WithCamera replaces the default orbit camera.
func WithCamera(cam camera.Camera) ViewerBuilderOption {
	return func(v *viewerImpl) {
		if cam != nil {
			v.camera = cam
		}
	}
}

// WithDisplayMode sets the initial display mode. Invalid modes are ignored.
func WithDisplayMode(mode DisplayMode) ViewerBuilderOption {
	return func(v *viewerImpl) {
		if mode.Valid() {
			v.mode = mode
		}
	}
}

// WithSeed sets the seed of the first densification. Each densification advances it.
func WithSeed(seed uint32) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.seed = seed
	}
}
