// Package viewer is the stateful façade of the scene engine. A Viewer owns one device session
// and the scene table, and turns host requests into codec, resource and frame operations.
package viewer

import (
	"context"
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/Carmen-Shannon/oxy-splat/engine/camera"
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer"
	"github.com/Carmen-Shannon/oxy-splat/engine/splat"
)

// Viewer coordinates scene loading, view state, rendering, densification and export.
//
// A Viewer is not safe for concurrent use. Calls from more than one goroutine must be
// serialized by the caller; the scene table and device buffers are not locked.
type Viewer interface {
	// Dispatch executes a host command by forwarding it to the matching method.
	//
	// Parameters:
	//   - cmd: the command to execute
	//
	// Returns:
	//   - error: the error of the underlying operation
	Dispatch(cmd Command) error

	// LoadData decodes a scene and makes it the rendered table. On any failure the previous
	// table stays loaded and renders unchanged.
	//
	// Parameters:
	//   - data: the complete scene file
	//
	// Returns:
	//   - error: a FormatError (common.ErrFormat) for malformed bytes, a DeviceError on upload failure
	LoadData(data []byte) error

	// Render encodes and presents one frame of the current table with the current view state.
	//
	// Returns:
	//   - error: a DeviceError on failure; a stale surface is skipped silently
	Render() error

	// Resize reconfigures the surface and the camera aspect ratio. Valid before any load.
	//
	// Parameters:
	//   - width: the surface width in pixels
	//   - height: the surface height in pixels
	//
	// Returns:
	//   - error: a DeviceError on failure; a zero dimension is ignored
	Resize(width, height uint32) error

	// SetDisplayMode selects the display mode used from the next Render on.
	//
	// Parameters:
	//   - mode: the display mode
	//
	// Returns:
	//   - error: common.ErrInvalidMode for a value outside the enumeration
	SetDisplayMode(mode DisplayMode) error

	// ComputeSuperResolution densifies the loaded table by factor on the device.
	//
	// Parameters:
	//   - factor: the number of output records per input record (>= 1)
	//
	// Returns:
	//   - error: common.ErrInvalidFactor, common.ErrNoDataLoaded or a DeviceError
	ComputeSuperResolution(factor int) error

	// ExportPLY encodes the loaded table as an interchange PLY file.
	//
	// Returns:
	//   - []byte: the file contents
	//   - error: common.ErrNoDataLoaded before a successful load
	ExportPLY() ([]byte, error)

	// ExportPCD encodes the loaded table as an ASCII PCD point cloud.
	//
	// Returns:
	//   - []byte: the file contents
	//   - error: common.ErrNoDataLoaded before a successful load
	ExportPCD() ([]byte, error)

	// RecordCount returns the number of records in the loaded table.
	RecordCount() int

	// DisplayMode returns the current display mode.
	DisplayMode() DisplayMode

	// State returns the lifecycle state.
	State() State

	// Camera returns the orbit camera.
	Camera() camera.Camera

	// Dispose releases the device session and every derived resource. Safe to call more than
	// once; every other operation afterwards returns common.ErrDisposed.
	Dispose()
}

type viewerImpl struct {
	factory         BackendFactory
	rendererOptions []renderer.RendererBuilderOption

	renderer renderer.Renderer
	codec    splat.Codec
	camera   camera.Camera

	table *splat.Table
	mode  DisplayMode
	seed  uint32
	state State
}

var _ Viewer = &viewerImpl{}

// New creates a Viewer and acquires its graphics device. Acquisition is attempted once.
//
// Parameters:
//   - ctx: bounds the device acquisition; cancellation fails construction
//   - options: functional options; WithWindow or WithBackendFactory is required
//
// Returns:
//   - Viewer: the viewer in StateDeviceReady
//   - error: an error wrapping common.ErrInit; everything acquired so far is released
func New(ctx context.Context, options ...ViewerBuilderOption) (Viewer, error) {
	v := &viewerImpl{
		state: StateCreated,
		mode:  DisplayModeColor,
	}
	for _, opt := range options {
		opt(v)
	}
	// the codec may come from WithCodec; close it on every failure path
	fail := func(err error) (Viewer, error) {
		if v.codec != nil {
			v.codec.Close()
		}
		return nil, err
	}
	if v.factory == nil {
		return fail(fmt.Errorf("%w: no window or backend factory", common.ErrInit))
	}
	if err := ctx.Err(); err != nil {
		return fail(fmt.Errorf("%w: %w", common.ErrInit, err))
	}

	v.state = StateAdapterPending
	backend, err := v.factory(ctx)
	if err != nil {
		if errors.Is(err, common.ErrInit) {
			return fail(err)
		}
		return fail(fmt.Errorf("%w: %w", common.ErrInit, err))
	}
	if err := ctx.Err(); err != nil {
		backend.Release()
		return fail(fmt.Errorf("%w: %w", common.ErrInit, err))
	}

	r, err := renderer.NewRenderer(backend, v.rendererOptions...)
	if err != nil {
		// NewRenderer releases the backend when it fails after taking ownership.
		return fail(fmt.Errorf("%w: %w", common.ErrInit, err))
	}
	v.renderer = r
	if v.codec == nil {
		v.codec = splat.NewCodec()
	}
	if v.camera == nil {
		v.camera = camera.NewCamera()
	}

	v.state = StateDeviceReady
	common.Logger().Info("viewer ready", "mode", v.mode)
	return v, nil
}

func (v *viewerImpl) LoadData(data []byte) error {
	if v.state == StateDisposed {
		return common.ErrDisposed
	}
	table, err := v.codec.Decode(data)
	if err != nil {
		return err
	}
	if err := v.renderer.Sync(table); err != nil {
		return err
	}

	v.table = table
	v.state = StateDataLoaded
	v.fitCamera()
	common.Logger().Info("scene loaded", "records", table.Len(), "layout", table.Layout)
	return nil
}

// fitCamera centers the orbit on the loaded scene.
func (v *viewerImpl) fitCamera() {
	bounds := v.table.Bounds()
	distance := camera.DefaultDistance
	if bounds.Radius > 0 {
		distance = bounds.Radius * 2.5
	}
	v.camera.Controller().Fit(bounds.Center, distance)
	v.camera.Update()
}

func (v *viewerImpl) Render() error {
	if v.state == StateDisposed {
		return common.ErrDisposed
	}
	prev := v.state
	v.state = StateRendering
	defer func() { v.state = prev }()

	v.camera.Update()
	return v.renderer.Render(v.camera.Uniform(uint32(v.mode)))
}

func (v *viewerImpl) Resize(width, height uint32) error {
	if v.state == StateDisposed {
		return common.ErrDisposed
	}
	if err := v.renderer.Resize(width, height); err != nil {
		if errors.Is(err, common.ErrInvalidSize) {
			// Minimized windows report a zero size; the next non-zero resize reconfigures.
			common.Logger().Warn("resize ignored", "width", width, "height", height)
			return nil
		}
		return err
	}
	v.camera.SetAspect(float32(width) / float32(height))
	return nil
}

func (v *viewerImpl) SetDisplayMode(mode DisplayMode) error {
	if v.state == StateDisposed {
		return common.ErrDisposed
	}
	if !mode.Valid() {
		return fmt.Errorf("%w: %d", common.ErrInvalidMode, uint32(mode))
	}
	v.mode = mode
	return nil
}

func (v *viewerImpl) ComputeSuperResolution(factor int) error {
	if v.state == StateDisposed {
		return common.ErrDisposed
	}
	if err := splat.CheckFactor(v.table.Len(), factor); err != nil {
		return err
	}
	if v.table == nil {
		return common.ErrNoDataLoaded
	}

	densified, err := v.renderer.Densify(v.table, factor, v.seed)
	if err != nil {
		return err
	}
	v.table = densified
	v.seed++
	return nil
}

func (v *viewerImpl) ExportPLY() ([]byte, error) {
	if v.state == StateDisposed {
		return nil, common.ErrDisposed
	}
	if v.table == nil {
		return nil, common.ErrNoDataLoaded
	}
	return v.codec.EncodePLY(v.table)
}

func (v *viewerImpl) ExportPCD() ([]byte, error) {
	if v.state == StateDisposed {
		return nil, common.ErrDisposed
	}
	if v.table == nil {
		return nil, common.ErrNoDataLoaded
	}
	return v.codec.EncodePCD(v.table)
}

func (v *viewerImpl) RecordCount() int {
	return v.table.Len()
}

func (v *viewerImpl) DisplayMode() DisplayMode {
	return v.mode
}

func (v *viewerImpl) State() State {
	return v.state
}

func (v *viewerImpl) Camera() camera.Camera {
	return v.camera
}

func (v *viewerImpl) Dispose() {
	if v.state == StateDisposed {
		return
	}
	v.state = StateDisposed
	v.table = nil
	v.codec.Close()
	v.renderer.Release()
	common.Logger().Info("viewer disposed")
}
