package renderer

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// backendConfig collects the pre-creation settings of a WebGPU backend.
type backendConfig struct {
	forceFallbackAdapter bool
	presentMode          PresentMode
	sampleCount          MSAASampleCount
}

func defaultBackendConfig() backendConfig {
	return backendConfig{
		presentMode: PresentModeVSync,
		sampleCount: MSAA4x,
	}
}

// BackendBuilderOption is a functional option applied to a backend during construction via NewWGPURendererBackend.
type BackendBuilderOption func(*backendConfig)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - BackendBuilderOption: a function that applies the present mode option to a backend
func WithPresentMode(mode PresentMode) BackendBuilderOption {
	return func(c *backendConfig) {
		c.presentMode = mode
	}
}

// WithMSAA sets the multisample anti-aliasing sample count for the backend.
// When not specified, the default is MSAA4x. Use MSAAOff to disable MSAA entirely.
// Higher values (MSAA8x, MSAA16x) are adapter-dependent and may not be supported
// by all hardware.
//
// Parameters:
//   - count: the MSAASampleCount to use (MSAAOff, MSAA4x, MSAA8x, or MSAA16x)
//
// Returns:
//   - BackendBuilderOption: a function that applies the MSAA option to a backend
func WithMSAA(count MSAASampleCount) BackendBuilderOption {
	return func(c *backendConfig) {
		c.sampleCount = count
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - BackendBuilderOption: a function that applies the option to a backend
func WithForceSoftwareRenderer(force bool) BackendBuilderOption {
	return func(c *backendConfig) {
		c.forceFallbackAdapter = force
	}
}

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithClearColor sets the color the frame renderer clears the surface to. Defaults to opaque black.
//
// Parameters:
//   - color: the clear color
//
// Returns:
//   - RendererBuilderOption: a function that applies the clear color option to a renderer
func WithClearColor(color wgpu.Color) RendererBuilderOption {
	return func(r *renderer) {
		r.clearColor = color
	}
}

// WithEagerPipelines compiles the render and densify pipelines during NewRenderer instead of on
// first use. A compile failure is then reported by NewRenderer.
//
// Returns:
//   - RendererBuilderOption: a function that applies the option to a renderer
func WithEagerPipelines() RendererBuilderOption {
	return func(r *renderer) {
		r.eagerPipelines = true
	}
}
