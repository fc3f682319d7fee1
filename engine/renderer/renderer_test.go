package renderer_test

import (
	"encoding/binary"
	"testing"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/Carmen-Shannon/oxy-splat/engine/camera"
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer"
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer/renderertest"
	"github.com/Carmen-Shannon/oxy-splat/engine/splat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable(n int) *splat.Table {
	records := make([]splat.Record, n)
	for i := range records {
		f := float32(i)
		records[i] = splat.Record{
			Position: common.Vec3{f, -f, 0.5 * f},
			Rotation: common.IdentityQuat,
			Scale:    common.Vec3{0.1, 0.2, 0.3},
			Opacity:  0.75,
			Color:    common.Vec3{0.2, 0.4, 0.6},
			SH:       common.Vec3{0.1, 0.2, float32(i) / 100},
			HasSH:    true,
			Normal:   common.Vec3{0, 0, 1},
		}
	}
	return splat.NewTable(records, splat.LayoutSplatV1)
}

func newRenderer(t *testing.T, options ...renderer.RendererBuilderOption) (renderer.Renderer, *renderertest.FakeBackend) {
	t.Helper()
	fake := renderertest.NewFakeBackend()
	r, err := renderer.NewRenderer(fake, options...)
	require.NoError(t, err)
	t.Cleanup(r.Release)
	return r, fake
}

func TestResizeIsIdempotent(t *testing.T) {
	r, fake := newRenderer(t)

	require.NoError(t, r.Resize(800, 600))
	require.NoError(t, r.Resize(800, 600))
	assert.Equal(t, 1, fake.Calls(renderertest.OpConfigureSurface))

	err := r.Resize(0, 600)
	assert.ErrorIs(t, err, common.ErrInvalidSize)
	w, h := r.Resources().SurfaceSize()
	assert.Equal(t, uint32(800), w)
	assert.Equal(t, uint32(600), h)
	assert.Equal(t, 1, fake.Calls(renderertest.OpConfigureSurface))
}

func TestFailedResizeKeepsPreviousSize(t *testing.T) {
	r, fake := newRenderer(t)
	require.NoError(t, r.Resize(800, 600))

	fake.FailNext(renderertest.OpConfigureSurface, 1)
	err := r.Resize(1024, 768)
	assert.ErrorIs(t, err, common.ErrDevice)

	w, h := r.Resources().SurfaceSize()
	assert.Equal(t, uint32(800), w)
	assert.Equal(t, uint32(600), h)

	require.NoError(t, r.Resize(1024, 768))
	w, h = fake.SurfaceSize()
	assert.Equal(t, uint32(1024), w)
	assert.Equal(t, uint32(768), h)
}

func TestResizeBeyondTextureLimitKeepsPreviousSize(t *testing.T) {
	r, fake := newRenderer(t)
	require.NoError(t, r.Resize(800, 600))
	calls := fake.Calls(renderertest.OpConfigureSurface)

	limit := fake.Limits().MaxTextureDimension2D
	err := r.Resize(limit+1, 600)
	assert.ErrorIs(t, err, common.ErrInvalidSize)
	assert.Equal(t, calls, fake.Calls(renderertest.OpConfigureSurface))

	w, h := r.Resources().SurfaceSize()
	assert.Equal(t, uint32(800), w)
	assert.Equal(t, uint32(600), h)
}

func TestDefaultLimitsAreConcrete(t *testing.T) {
	l := renderer.DefaultLimits()
	assert.Equal(t, uint32(8192), l.MaxTextureDimension2D)
	assert.Equal(t, uint32(65535), l.MaxWorkgroupsPerDimension)
	assert.Equal(t, uint64(128<<20), l.MaxBufferSize)
}

func TestSyncReallocatesOnlyOnCountChange(t *testing.T) {
	r, fake := newRenderer(t)
	rm := r.Resources()

	require.NoError(t, r.Sync(sampleTable(3)))
	first := rm.SplatBuffer()
	require.NotNil(t, first)
	assert.Equal(t, 3, rm.RecordCount())
	assert.Equal(t, uint64(3*splat.GPUSplatSize), first.Size())

	require.NoError(t, r.Sync(sampleTable(3)))
	assert.Same(t, first, rm.SplatBuffer())
	assert.Equal(t, 1, fake.Calls(renderertest.OpCreateBufferInit))
	assert.Equal(t, 1, fake.Calls(renderertest.OpWriteBuffers))

	require.NoError(t, r.Sync(sampleTable(5)))
	second := rm.SplatBuffer()
	assert.NotSame(t, first, second)
	assert.True(t, first.(*renderertest.Buffer).Released())
	assert.False(t, second.(*renderertest.Buffer).Released())
	assert.Equal(t, 5, rm.RecordCount())

	require.NoError(t, r.Sync(splat.NewTable(nil, splat.LayoutUnknown)))
	assert.Nil(t, rm.SplatBuffer())
	assert.Equal(t, 0, rm.RecordCount())
	assert.True(t, second.(*renderertest.Buffer).Released())

	stats := rm.Stats()
	assert.Equal(t, 2, stats.BufferAllocations)
	assert.Equal(t, 2, stats.BufferReleases)
	assert.Equal(t, 1, stats.InPlaceWrites)
}

func TestSyncFailureKeepsPreviousBuffer(t *testing.T) {
	r, fake := newRenderer(t)
	rm := r.Resources()
	require.NoError(t, r.Sync(sampleTable(3)))
	before := rm.SplatBuffer()

	fake.FailNext(renderertest.OpCreateBufferInit, 1)
	err := r.Sync(sampleTable(4))
	assert.ErrorIs(t, err, common.ErrDevice)
	assert.ErrorIs(t, err, renderertest.ErrInjected)
	assert.Same(t, before, rm.SplatBuffer())
	assert.Equal(t, 3, rm.RecordCount())
	assert.False(t, before.(*renderertest.Buffer).Released())
}

func TestSyncRejectsBufferOverLimit(t *testing.T) {
	r, fake := newRenderer(t)
	fake.SetLimits(renderer.Limits{MaxBufferSize: 2 * splat.GPUSplatSize, MaxWorkgroupsPerDimension: 65535, MaxTextureDimension2D: 8192})

	err := r.Sync(sampleTable(3))
	assert.ErrorIs(t, err, common.ErrDevice)
	assert.Equal(t, 0, fake.Calls(renderertest.OpCreateBufferInit))
}

func TestRenderSkipsUntilConfigured(t *testing.T) {
	r, fake := newRenderer(t)
	require.NoError(t, r.Sync(sampleTable(2)))

	require.NoError(t, r.Render(camera.GPUViewUniform{}))
	assert.Equal(t, 0, fake.Calls(renderertest.OpBeginFrame))
	assert.Equal(t, 1, r.Frames().Stats().Skipped)
}

func TestPipelinesAreBuiltOnce(t *testing.T) {
	r, fake := newRenderer(t)
	require.NoError(t, r.Resize(64, 64))

	for range 3 {
		require.NoError(t, r.Render(camera.GPUViewUniform{}))
	}
	assert.Equal(t, 1, fake.Calls(renderertest.OpRegisterRenderPipeline))
	assert.Equal(t, 1, fake.Calls(renderertest.OpRegisterComputePipeline))
	assert.Equal(t, 3, fake.Calls(renderertest.OpPresent))
	assert.True(t, r.Resources().RenderPipeline().Registered())
	assert.Equal(t, renderer.FrameStateIdle, r.Frames().State())
}

func TestPipelineFailureIsRemembered(t *testing.T) {
	r, fake := newRenderer(t)
	require.NoError(t, r.Resize(64, 64))
	fake.FailNext(renderertest.OpRegisterComputePipeline, 1)

	first := r.Render(camera.GPUViewUniform{})
	require.ErrorIs(t, first, common.ErrDevice)
	var devErr *renderer.DeviceError
	require.ErrorAs(t, first, &devErr)
	assert.Contains(t, devErr.Op, renderer.DensifyPipelineKey)

	second := r.Render(camera.GPUViewUniform{})
	assert.Equal(t, first, second)
	assert.Equal(t, 1, fake.Calls(renderertest.OpRegisterComputePipeline))
	assert.Equal(t, 0, fake.Calls(renderertest.OpBeginFrame))
	assert.Nil(t, r.Resources().RenderPipeline())
}

func TestRenderStaleSurfaceSkipsFrame(t *testing.T) {
	r, fake := newRenderer(t)
	require.NoError(t, r.Resize(64, 64))
	require.NoError(t, r.Sync(sampleTable(2)))

	fake.StaleNext(1)
	require.NoError(t, r.Render(camera.GPUViewUniform{}))
	assert.Equal(t, 0, fake.Calls(renderertest.OpDraw))
	assert.Equal(t, 0, fake.Calls(renderertest.OpPresent))

	require.NoError(t, r.Render(camera.GPUViewUniform{}))
	assert.Equal(t, 1, fake.Calls(renderertest.OpDraw))
	assert.Equal(t, 1, fake.Calls(renderertest.OpPresent))

	stats := r.Frames().Stats()
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Presented)
}

func TestRenderEmptySceneClearsOnly(t *testing.T) {
	r, fake := newRenderer(t)
	require.NoError(t, r.Resize(64, 64))

	require.NoError(t, r.Render(camera.GPUViewUniform{}))
	assert.Equal(t, 0, fake.Calls(renderertest.OpDraw))
	assert.Equal(t, 1, fake.Calls(renderertest.OpPresent))
}

func TestRenderWritesViewUniform(t *testing.T) {
	r, fake := newRenderer(t)
	require.NoError(t, r.Resize(64, 64))
	require.NoError(t, r.Sync(sampleTable(4)))

	cam := camera.NewCamera()
	require.NoError(t, r.Render(cam.Uniform(1)))

	draws := fake.Draws()
	require.Len(t, draws, 1)
	assert.Equal(t, renderer.RenderPipelineKey, draws[0].Pipeline)
	assert.Equal(t, uint32(4), draws[0].VertexCount)
	assert.Same(t, r.Resources().SplatBuffer(), draws[0].Vertices)
	require.Len(t, draws[0].Uniform, 80)
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(draws[0].Uniform[76:80]))
}

func TestRenderSubmitFailure(t *testing.T) {
	r, fake := newRenderer(t)
	require.NoError(t, r.Resize(64, 64))
	fake.FailNext(renderertest.OpEndFrame, 1)

	err := r.Render(camera.GPUViewUniform{})
	assert.ErrorIs(t, err, common.ErrDevice)

	require.NoError(t, r.Render(camera.GPUViewUniform{}))
	assert.Equal(t, 1, r.Frames().Stats().Presented)
}

func TestDensifyMatchesReferenceKernel(t *testing.T) {
	for _, tt := range []struct {
		name   string
		n      int
		factor int
	}{
		{"single record", 1, 2},
		{"small", 5, 3},
		{"spans workgroups", 37, 8},
	} {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newRenderer(t)
			table := sampleTable(tt.n)
			require.NoError(t, r.Sync(table))
			before := r.Resources().SplatBuffer()

			got, err := r.Densify(table, tt.factor, 42)
			require.NoError(t, err)

			want, err := splat.Densify(table, tt.factor, 42)
			require.NoError(t, err)
			assert.Equal(t, want, got)
			assert.Equal(t, tt.n*tt.factor, r.Resources().RecordCount())
			assert.True(t, before.(*renderertest.Buffer).Released())
		})
	}
}

func TestDensifySyncsStaleBuffer(t *testing.T) {
	r, fake := newRenderer(t)
	table := sampleTable(4)

	got, err := r.Densify(table, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 8, got.Len())
	// One for the synced splat buffer, one for the params uniform.
	assert.Equal(t, 2, fake.Calls(renderertest.OpCreateBufferInit))
}

func TestDensifyFactorOneMakesNoDeviceCalls(t *testing.T) {
	r, fake := newRenderer(t)
	table := sampleTable(3)
	require.NoError(t, r.Sync(table))
	calls := fake.TotalCalls()

	got, err := r.Densify(table, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, table, got)
	assert.NotSame(t, table, got)
	assert.Equal(t, calls, fake.TotalCalls())
}

func TestDensifyRejectsInvalidFactor(t *testing.T) {
	r, fake := newRenderer(t)
	table := sampleTable(3)
	require.NoError(t, r.Sync(table))

	for _, factor := range []int{0, -2} {
		_, err := r.Densify(table, factor, 0)
		assert.ErrorIs(t, err, common.ErrInvalidFactor)
	}

	fake.SetLimits(renderer.Limits{MaxBufferSize: 10 * splat.GPUSplatSize, MaxWorkgroupsPerDimension: 65535, MaxTextureDimension2D: 8192})
	_, err := r.Densify(table, 4, 0)
	assert.ErrorIs(t, err, common.ErrInvalidFactor)
	assert.Equal(t, 3, r.Resources().RecordCount())
	assert.Equal(t, 0, fake.Calls(renderertest.OpDispatchCompute))
}

func TestDensifyFailureLeavesStateUnchanged(t *testing.T) {
	for _, op := range []renderertest.Op{
		renderertest.OpCreateBuffer,
		renderertest.OpCreateBufferInit,
		renderertest.OpInitBindGroup,
		renderertest.OpDispatchCompute,
		renderertest.OpReadBuffer,
	} {
		t.Run(string(op), func(t *testing.T) {
			r, fake := newRenderer(t)
			table := sampleTable(6)
			require.NoError(t, r.Sync(table))
			require.NoError(t, r.Resources().EnsurePipelines())
			before := r.Resources().SplatBuffer()
			live := fake.LiveBuffers()

			fake.FailNext(op, 1)
			got, err := r.Densify(table, 4, 9)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, common.ErrDevice)
			assert.ErrorIs(t, err, renderertest.ErrInjected)

			assert.Same(t, before, r.Resources().SplatBuffer())
			assert.Equal(t, 6, r.Resources().RecordCount())
			assert.Equal(t, live, fake.LiveBuffers())
		})
	}
}

func TestDensifyFoldsDispatchIntoTwoDimensions(t *testing.T) {
	r, fake := newRenderer(t)
	fake.SetLimits(renderer.Limits{MaxBufferSize: 1 << 20, MaxWorkgroupsPerDimension: 4, MaxTextureDimension2D: 8192})
	table := sampleTable(100)
	require.NoError(t, r.Sync(table))

	got, err := r.Densify(table, 8, 3)
	require.NoError(t, err)

	dispatches := fake.Dispatches()
	require.Len(t, dispatches, 1)
	// 800 invocations in workgroups of 64 is 13 groups, folded at 4 per row.
	assert.Equal(t, [3]uint32{4, 4, 1}, dispatches[0].Workgroups)

	want, err := splat.Densify(table, 8, 3)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestEagerPipelines(t *testing.T) {
	_, fake := newRenderer(t, renderer.WithEagerPipelines())
	assert.Equal(t, 1, fake.Calls(renderertest.OpRegisterRenderPipeline))

	failing := renderertest.NewFakeBackend()
	failing.FailNext(renderertest.OpRegisterRenderPipeline, 1)
	r, err := renderer.NewRenderer(failing, renderer.WithEagerPipelines())
	assert.Nil(t, r)
	assert.ErrorIs(t, err, common.ErrDevice)
	assert.True(t, failing.Released())
}

func TestReleaseFreesEverything(t *testing.T) {
	fake := renderertest.NewFakeBackend()
	r, err := renderer.NewRenderer(fake)
	require.NoError(t, err)
	require.NoError(t, r.Resize(32, 32))
	require.NoError(t, r.Sync(sampleTable(3)))
	require.NoError(t, r.Render(camera.GPUViewUniform{}))

	_, ok := r.Resources().Bounds()
	require.True(t, ok)

	r.Release()
	r.Release()
	assert.True(t, fake.Released())
	assert.Equal(t, 0, fake.LiveBuffers())
	assert.Equal(t, 0, r.Resources().RecordCount())
	_, ok = r.Resources().Bounds()
	assert.False(t, ok)
}

func lookAtView(eye, center common.Vec3) camera.GPUViewUniform {
	proj := make([]float32, 16)
	view := make([]float32, 16)
	viewProj := make([]float32, 16)
	common.Perspective(proj, 0.785, 1, 0.1, 1000)
	common.LookAt(view, eye, center, common.Vec3{0, 1, 0})
	common.Mul4(viewProj, proj, view)
	var u camera.GPUViewUniform
	copy(u.ViewProj[:], viewProj)
	u.Eye = eye
	return u
}

func TestRenderCullsSceneOutsideView(t *testing.T) {
	r, fake := newRenderer(t)
	require.NoError(t, r.Resize(64, 64))
	require.NoError(t, r.Sync(sampleTable(3)))

	require.NoError(t, r.Render(lookAtView(common.Vec3{0, 0, 10}, common.Vec3{})))
	assert.Equal(t, 1, fake.Calls(renderertest.OpDraw))

	// facing away from the scene
	require.NoError(t, r.Render(lookAtView(common.Vec3{0, 0, 10}, common.Vec3{0, 0, 20})))
	assert.Equal(t, 1, fake.Calls(renderertest.OpDraw))
	assert.Equal(t, 2, fake.Calls(renderertest.OpPresent))

	stats := r.Frames().Stats()
	assert.Equal(t, 1, stats.Culled)
	assert.Equal(t, 2, stats.Presented)

	bounds, ok := r.Resources().Bounds()
	require.True(t, ok)
	assert.Equal(t, sampleTable(3).Bounds(), bounds)
}
