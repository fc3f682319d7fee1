package viewer_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer"
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer/renderertest"
	"github.com/Carmen-Shannon/oxy-splat/engine/splat"
	"github.com/Carmen-Shannon/oxy-splat/engine/viewer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sceneBytes(t *testing.T, n int) []byte {
	t.Helper()
	records := make([]splat.Record, n)
	for i := range records {
		f := float32(i)
		records[i] = splat.Record{
			Position: common.Vec3{f, 2 * f, -f},
			Rotation: common.IdentityQuat,
			Scale:    common.Vec3{0.1, 0.1, 0.1},
			Opacity:  0.5,
			Color:    common.Vec3{0.25, 0.5, 0.75},
			Normal:   common.Vec3{0, 1, 0},
		}
	}
	data, err := splat.EncodePLY(splat.NewTable(records, splat.LayoutSplatV1))
	require.NoError(t, err)
	return data
}

func newViewer(t *testing.T, options ...viewer.ViewerBuilderOption) (viewer.Viewer, *renderertest.FakeBackend) {
	t.Helper()
	fake := renderertest.NewFakeBackend()
	factory := viewer.WithBackendFactory(func(ctx context.Context) (renderer.RendererBackend, error) {
		return fake, nil
	})
	v, err := viewer.New(context.Background(), append([]viewer.ViewerBuilderOption{factory}, options...)...)
	require.NoError(t, err)
	t.Cleanup(v.Dispose)
	return v, fake
}

func TestLoadRenderDensifyExport(t *testing.T) {
	v, fake := newViewer(t)
	require.NoError(t, v.Resize(320, 240))
	require.NoError(t, v.LoadData(sceneBytes(t, 4)))
	assert.Equal(t, 4, v.RecordCount())

	require.NoError(t, v.Render())
	require.NoError(t, v.ComputeSuperResolution(2))
	assert.Equal(t, 8, v.RecordCount())

	out, err := v.ExportPLY()
	require.NoError(t, err)
	assert.Contains(t, string(out), "element vertex 8\n")

	reloaded, err := splat.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, 8, reloaded.Len())
	assert.Equal(t, splat.LayoutInterchangeV1, reloaded.Layout)

	require.NoError(t, v.Render())
	draws := fake.Draws()
	require.Len(t, draws, 2)
	assert.Equal(t, uint32(4), draws[0].VertexCount)
	assert.Equal(t, uint32(8), draws[1].VertexCount)
}

func TestDisplayModeBeforeLoadRendersEmptyScene(t *testing.T) {
	v, fake := newViewer(t)
	require.NoError(t, v.SetDisplayMode(viewer.DisplayModeNormal))
	require.NoError(t, v.Resize(64, 64))

	require.NoError(t, v.Render())
	assert.Equal(t, 0, fake.Calls(renderertest.OpDraw))
	assert.Equal(t, 1, fake.Calls(renderertest.OpPresent))
	assert.Equal(t, viewer.DisplayModeNormal, v.DisplayMode())
}

func TestSuperResolutionWithoutDataMakesNoDeviceCalls(t *testing.T) {
	v, fake := newViewer(t)
	calls := fake.TotalCalls()

	err := v.ComputeSuperResolution(3)
	assert.ErrorIs(t, err, common.ErrNoDataLoaded)
	assert.Equal(t, calls, fake.TotalCalls())
}

func TestFailedLoadKeepsPreviousScene(t *testing.T) {
	v, fake := newViewer(t)
	require.NoError(t, v.Resize(64, 64))
	require.NoError(t, v.LoadData(sceneBytes(t, 3)))
	require.NoError(t, v.Render())
	before, err := v.ExportPLY()
	require.NoError(t, err)

	for _, data := range [][]byte{
		[]byte("not a scene"),
		sceneBytes(t, 5)[:40],
		nil,
	} {
		err := v.LoadData(data)
		assert.ErrorIs(t, err, common.ErrFormat)
	}

	require.NoError(t, v.Render())
	draws := fake.Draws()
	require.Len(t, draws, 2)
	assert.Equal(t, draws[0].VertexCount, draws[1].VertexCount)
	assert.Same(t, draws[0].Vertices, draws[1].Vertices)
	assert.Equal(t, draws[0].Uniform, draws[1].Uniform)

	after, err := v.ExportPLY()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, viewer.StateDataLoaded, v.State())
}

func TestFailedUploadKeepsPreviousScene(t *testing.T) {
	v, fake := newViewer(t)
	require.NoError(t, v.LoadData(sceneBytes(t, 3)))

	fake.FailNext(renderertest.OpCreateBufferInit, 1)
	err := v.LoadData(sceneBytes(t, 6))
	assert.ErrorIs(t, err, common.ErrDevice)
	assert.Equal(t, 3, v.RecordCount())
}

func TestStateTransitions(t *testing.T) {
	v, _ := newViewer(t)
	assert.Equal(t, viewer.StateDeviceReady, v.State())

	require.NoError(t, v.Render())
	assert.Equal(t, viewer.StateDeviceReady, v.State())

	require.NoError(t, v.LoadData(sceneBytes(t, 2)))
	assert.Equal(t, viewer.StateDataLoaded, v.State())

	require.NoError(t, v.Render())
	assert.Equal(t, viewer.StateDataLoaded, v.State())

	v.Dispose()
	assert.Equal(t, viewer.StateDisposed, v.State())
}

func TestDisposedViewerRejectsEverything(t *testing.T) {
	v, fake := newViewer(t)
	require.NoError(t, v.LoadData(sceneBytes(t, 2)))
	v.Dispose()
	v.Dispose()
	assert.True(t, fake.Released())
	assert.Equal(t, 0, fake.LiveBuffers())

	_, plyErr := v.ExportPLY()
	_, pcdErr := v.ExportPCD()
	for _, err := range []error{
		v.LoadData(sceneBytes(t, 1)),
		v.Render(),
		v.Resize(10, 10),
		v.SetDisplayMode(viewer.DisplayModeColor),
		v.ComputeSuperResolution(2),
		plyErr,
		pcdErr,
		v.Dispatch(viewer.Command{Kind: viewer.CommandOrbit, DX: 1}),
	} {
		assert.ErrorIs(t, err, common.ErrDisposed)
	}
}

func TestSetDisplayModeRejectsUnknownMode(t *testing.T) {
	v, _ := newViewer(t)
	err := v.SetDisplayMode(viewer.DisplayMode(7))
	assert.ErrorIs(t, err, common.ErrInvalidMode)
	assert.Equal(t, viewer.DisplayModeColor, v.DisplayMode())
}

func TestDisplayModeAppliesOnNextRender(t *testing.T) {
	v, fake := newViewer(t)
	require.NoError(t, v.Resize(64, 64))
	require.NoError(t, v.LoadData(sceneBytes(t, 2)))
	require.NoError(t, v.Render())
	require.NoError(t, v.SetDisplayMode(viewer.DisplayModeNormal))
	require.NoError(t, v.Render())

	draws := fake.Draws()
	require.Len(t, draws, 2)
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(draws[0].Uniform[76:80]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(draws[1].Uniform[76:80]))
}

func TestSuperResolutionRejectsInvalidFactor(t *testing.T) {
	v, fake := newViewer(t)
	require.NoError(t, v.LoadData(sceneBytes(t, 2)))
	calls := fake.TotalCalls()

	for _, factor := range []int{0, -1} {
		err := v.ComputeSuperResolution(factor)
		assert.ErrorIs(t, err, common.ErrInvalidFactor)
	}
	assert.Equal(t, 2, v.RecordCount())
	assert.Equal(t, calls, fake.TotalCalls())
}

func TestSuperResolutionFailureKeepsTable(t *testing.T) {
	v, fake := newViewer(t)
	require.NoError(t, v.LoadData(sceneBytes(t, 2)))
	fake.FailNext(renderertest.OpReadBuffer, 1)

	err := v.ComputeSuperResolution(4)
	assert.ErrorIs(t, err, common.ErrDevice)
	assert.Equal(t, 2, v.RecordCount())

	require.NoError(t, v.ComputeSuperResolution(4))
	assert.Equal(t, 8, v.RecordCount())
}

func TestZeroResizeIsIgnored(t *testing.T) {
	v, fake := newViewer(t)
	require.NoError(t, v.Resize(0, 0))
	assert.Equal(t, 0, fake.Calls(renderertest.OpConfigureSurface))
}

func TestResizeUpdatesAspect(t *testing.T) {
	v, _ := newViewer(t)
	require.NoError(t, v.Resize(200, 100))
	assert.InDelta(t, 2.0, v.Camera().Lens().Aspect, 1e-6)
}

func TestLoadFitsCamera(t *testing.T) {
	v, _ := newViewer(t)
	require.NoError(t, v.LoadData(sceneBytes(t, 3)))
	target := v.Camera().Controller().Target()
	assert.InDelta(t, 1, target[0], 1e-5)
	assert.InDelta(t, 2, target[1], 1e-5)
	assert.InDelta(t, -1, target[2], 1e-5)
}

func TestDispatch(t *testing.T) {
	v, fake := newViewer(t)

	require.NoError(t, v.Dispatch(viewer.Command{Kind: viewer.CommandResize, Width: 64, Height: 64}))
	require.NoError(t, v.Dispatch(viewer.Command{Kind: viewer.CommandLoad, Data: sceneBytes(t, 4)}))
	require.NoError(t, v.Dispatch(viewer.Command{Kind: viewer.CommandSetDisplayMode, Mode: viewer.DisplayModeNormal}))
	require.NoError(t, v.Dispatch(viewer.Command{Kind: viewer.CommandSuperResolution, Factor: 3}))
	require.NoError(t, v.Dispatch(viewer.Command{Kind: viewer.CommandRender}))
	assert.Equal(t, 12, v.RecordCount())
	assert.Equal(t, 1, fake.Calls(renderertest.OpDraw))

	yaw := v.Camera().Controller().Yaw()
	require.NoError(t, v.Dispatch(viewer.Command{Kind: viewer.CommandOrbit, DX: 100}))
	assert.NotEqual(t, yaw, v.Camera().Controller().Yaw())

	distance := v.Camera().Controller().Distance()
	require.NoError(t, v.Dispatch(viewer.Command{Kind: viewer.CommandZoom, DY: 100}))
	assert.Less(t, v.Camera().Controller().Distance(), distance)

	target := v.Camera().Controller().Target()
	require.NoError(t, v.Dispatch(viewer.Command{Kind: viewer.CommandPan, DX: 50, DY: 50}))
	assert.NotEqual(t, target, v.Camera().Controller().Target())

	var ply, pcd bytes.Buffer
	require.NoError(t, v.Dispatch(viewer.Command{Kind: viewer.CommandExport, Format: viewer.ExportFormatPLY, Output: &ply}))
	require.NoError(t, v.Dispatch(viewer.Command{Kind: viewer.CommandExport, Format: viewer.ExportFormatPCD, Output: &pcd}))
	assert.Contains(t, ply.String(), "element vertex 12\n")
	assert.Contains(t, pcd.String(), "POINTS 12\n")

	assert.Error(t, v.Dispatch(viewer.Command{Kind: viewer.CommandExport}))
	assert.Error(t, v.Dispatch(viewer.Command{Kind: viewer.CommandKind(99)}))
}

func TestNewFailsWithoutBackend(t *testing.T) {
	_, err := viewer.New(context.Background())
	assert.ErrorIs(t, err, common.ErrInit)
}

func TestNewReportsAcquisitionFailure(t *testing.T) {
	cause := errors.New("no adapter")
	_, err := viewer.New(context.Background(), viewer.WithBackendFactory(func(ctx context.Context) (renderer.RendererBackend, error) {
		return nil, cause
	}))
	assert.ErrorIs(t, err, common.ErrInit)
	assert.ErrorIs(t, err, cause)
}

func TestNewHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	_, err := viewer.New(ctx, viewer.WithBackendFactory(func(ctx context.Context) (renderer.RendererBackend, error) {
		called = true
		return renderertest.NewFakeBackend(), nil
	}))
	assert.ErrorIs(t, err, common.ErrInit)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestNewReleasesBackendCancelledWhilePending(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fake := renderertest.NewFakeBackend()
	_, err := viewer.New(ctx, viewer.WithBackendFactory(func(ctx context.Context) (renderer.RendererBackend, error) {
		cancel()
		return fake, nil
	}))
	assert.ErrorIs(t, err, common.ErrInit)
	assert.True(t, fake.Released())
}

func TestNewReleasesBackendOnPipelineFailure(t *testing.T) {
	fake := renderertest.NewFakeBackend()
	fake.FailNext(renderertest.OpRegisterRenderPipeline, 1)
	_, err := viewer.New(context.Background(),
		viewer.WithBackendFactory(func(ctx context.Context) (renderer.RendererBackend, error) {
			return fake, nil
		}),
		viewer.WithRendererOptions(renderer.WithEagerPipelines()),
	)
	assert.ErrorIs(t, err, common.ErrInit)
	assert.ErrorIs(t, err, common.ErrDevice)
	assert.True(t, fake.Released())
}

func TestParseDisplayMode(t *testing.T) {
	for in, want := range map[string]viewer.DisplayMode{
		"color": viewer.DisplayModeColor, "0": viewer.DisplayModeColor,
		"normal": viewer.DisplayModeNormal, "1": viewer.DisplayModeNormal,
	} {
		got, err := viewer.ParseDisplayMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := viewer.ParseDisplayMode("depth")
	assert.ErrorIs(t, err, common.ErrInvalidMode)
}
