package engine

import (
	"context"
	"testing"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer"
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer/renderertest"
	"github.com/Carmen-Shannon/oxy-splat/engine/splat"
	"github.com/Carmen-Shannon/oxy-splat/engine/viewer"
	"github.com/Carmen-Shannon/oxy-splat/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWindow runs a fixed number of message loop iterations.
type fakeWindow struct {
	width, height int
	frames        int
	ran           int
	closed        bool

	onUpdate      func()
	onResize      func(width, height int)
	onScroll      func(delta float32)
	onKeyDown     func(keyCode uint32)
	onMouseButton func(button int, pressed bool, x, y float32)
	onMouseMove   func(x, y float32)
}

var _ window.Window = &fakeWindow{}

func (w *fakeWindow) SetUpdateCallback(cb func())                  { w.onUpdate = cb }
func (w *fakeWindow) SetResizeCallback(cb func(width, height int)) { w.onResize = cb }
func (w *fakeWindow) SetScrollCallback(cb func(delta float32))     { w.onScroll = cb }
func (w *fakeWindow) SetKeyDownCallback(cb func(keyCode uint32))   { w.onKeyDown = cb }
func (w *fakeWindow) SetMouseButtonCallback(cb func(button int, pressed bool, x, y float32)) {
	w.onMouseButton = cb
}
func (w *fakeWindow) SetMouseMoveCallback(cb func(x, y float32)) { w.onMouseMove = cb }
func (w *fakeWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor { return nil }
func (w *fakeWindow) IsRunning() bool                            { return !w.closed && w.ran < w.frames }
func (w *fakeWindow) RequestClose()                              { w.closed = true }
func (w *fakeWindow) Close() error                               { w.closed = true; return nil }
func (w *fakeWindow) Width() int                                 { return w.width }
func (w *fakeWindow) Height() int                                { return w.height }

func (w *fakeWindow) ProcessMessages() {
	for w.IsRunning() {
		w.ran++
		w.onUpdate()
	}
}

func sceneBytes(t *testing.T, n int) []byte {
	t.Helper()
	records := make([]splat.Record, n)
	for i := range records {
		f := float32(i)
		records[i] = splat.Record{
			Position: common.Vec3{f, -f, 2 * f},
			Rotation: common.IdentityQuat,
			Scale:    common.Vec3{0.1, 0.1, 0.1},
			Opacity:  1,
			Color:    common.Vec3{1, 0.5, 0},
			Normal:   common.Vec3{0, 0, 1},
		}
	}
	data, err := splat.EncodePLY(splat.NewTable(records, splat.LayoutSplatV1))
	require.NoError(t, err)
	return data
}

func newTestEngine(t *testing.T, frames int, options ...EngineBuilderOption) (*engine, *fakeWindow, *renderertest.FakeBackend) {
	t.Helper()
	fake := renderertest.NewFakeBackend()
	v, err := viewer.New(context.Background(), viewer.WithBackendFactory(func(ctx context.Context) (renderer.RendererBackend, error) {
		return fake, nil
	}))
	require.NoError(t, err)
	t.Cleanup(v.Dispose)

	w := &fakeWindow{width: 320, height: 240, frames: frames}
	e, err := NewEngine(w, v, options...)
	require.NoError(t, err)
	return e.(*engine), w, fake
}

func TestNewEngineRequiresWindowAndViewer(t *testing.T) {
	_, err := NewEngine(nil, nil)
	assert.ErrorIs(t, err, common.ErrInit)
}

func TestRunSizesViewerAndRendersEachFrame(t *testing.T) {
	e, w, fake := newTestEngine(t, 3)
	require.NoError(t, e.Viewer().LoadData(sceneBytes(t, 4)))

	e.Run()

	assert.Equal(t, 3, w.ran)
	width, height := fake.SurfaceSize()
	assert.Equal(t, uint32(320), width)
	assert.Equal(t, uint32(240), height)
	assert.Len(t, fake.Draws(), 3)
	assert.ErrorIs(t, e.Submit(viewer.Command{Kind: viewer.CommandRender}), ErrStopped)
}

func TestSubmittedCommandsRunOnNextFrame(t *testing.T) {
	e, _, fake := newTestEngine(t, 1)
	require.NoError(t, e.Submit(viewer.Command{Kind: viewer.CommandLoad, Data: sceneBytes(t, 4)}))
	require.NoError(t, e.Submit(viewer.Command{Kind: viewer.CommandSuperResolution, Factor: 2}))

	e.Run()

	assert.Equal(t, 8, e.Viewer().RecordCount())
	require.Len(t, fake.Draws(), 1)
	assert.Equal(t, uint32(8), fake.Draws()[0].VertexCount)
}

func TestSubmitQueueFull(t *testing.T) {
	e, _, _ := newTestEngine(t, 1, WithQueueSize(1))
	require.NoError(t, e.Submit(viewer.Command{Kind: viewer.CommandRender}))
	assert.ErrorIs(t, e.Submit(viewer.Command{Kind: viewer.CommandRender}), ErrQueueFull)
}

func TestQuitStopsLoop(t *testing.T) {
	e, w, _ := newTestEngine(t, 10)
	frames := 0
	e.SetFrameCallback(func(float32) {
		frames++
		if frames == 2 {
			e.Quit()
			e.Quit()
		}
	})

	e.Run()

	assert.Equal(t, 2, frames)
	assert.True(t, w.closed)
}

func TestCommandErrorsReachHandler(t *testing.T) {
	var failed []error
	e, _, _ := newTestEngine(t, 1, WithErrorHandler(func(cmd viewer.Command, err error) {
		assert.Equal(t, viewer.CommandSuperResolution, cmd.Kind)
		failed = append(failed, err)
	}))
	require.NoError(t, e.Submit(viewer.Command{Kind: viewer.CommandSuperResolution, Factor: 0}))

	e.Run()

	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0], common.ErrInvalidFactor)
}

func TestPointerInputNavigatesCamera(t *testing.T) {
	e, w, _ := newTestEngine(t, 0)
	ctrl := e.Viewer().Camera().Controller()

	yaw := ctrl.Yaw()
	w.onMouseButton(common.MouseButtonLeft, true, 10, 10)
	w.onMouseMove(30, 10)
	w.onMouseButton(common.MouseButtonLeft, false, 30, 10)
	assert.NotEqual(t, yaw, ctrl.Yaw())

	// no drag without a held button
	yaw = ctrl.Yaw()
	w.onMouseMove(90, 10)
	assert.Equal(t, yaw, ctrl.Yaw())

	target := ctrl.Target()
	w.onMouseButton(common.MouseButtonRight, true, 0, 0)
	w.onMouseMove(15, 5)
	assert.NotEqual(t, target, ctrl.Target())

	distance := ctrl.Distance()
	w.onScroll(1)
	assert.Less(t, ctrl.Distance(), distance)
}

func TestKeyCallbackForwarded(t *testing.T) {
	var keys []uint32
	_, w, _ := newTestEngine(t, 0, WithKeyCallback(func(keyCode uint32) { keys = append(keys, keyCode) }))
	w.onKeyDown(common.KeyS)
	assert.Equal(t, []uint32{common.KeyS}, keys)
}

func TestFrameDuration(t *testing.T) {
	assert.Zero(t, frameDuration(0))
	assert.Zero(t, frameDuration(-5))
	assert.Equal(t, int64(20_000_000), frameDuration(50).Nanoseconds())
}
