package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-splat/engine/splat"
	"github.com/cogentcore/webgpu/wgpu"
)

// Densifier multiplies the resident records on the device with the densify compute kernel.
type Densifier interface {
	// Densify replaces every record of t by factor records: the record itself followed by
	// factor-1 jittered, shrunk copies. The result becomes the resident splat buffer.
	// On any failure the previous buffer and t stay authoritative.
	//
	// Parameters:
	//   - t: the authoritative table whose records are resident (or will be synced first)
	//   - factor: the number of output records per input record (>= 1)
	//   - seed: the jitter seed
	//
	// Returns:
	//   - *splat.Table: the densified table, a clone of t when factor is 1 or t is empty
	//   - error: common.ErrInvalidFactor for an unusable factor, a DeviceError on device failure
	Densify(t *splat.Table, factor int, seed uint32) (*splat.Table, error)
}

type densifier struct {
	mu        *sync.Mutex
	resources ResourceManager
}

var _ Densifier = &densifier{}

// NewDensifier creates a densifier operating on the resources of rm.
//
// Parameters:
//   - rm: the resource manager holding the splat buffer and the densify pipeline
//
// Returns:
//   - Densifier: the new densifier
func NewDensifier(rm ResourceManager) Densifier {
	return &densifier{
		mu:        &sync.Mutex{},
		resources: rm,
	}
}

// dispatchSize folds a one-dimensional workgroup count into x and y so that neither exceeds
// maxPerDimension.
func dispatchSize(groups, maxPerDimension uint32) [3]uint32 {
	if groups == 0 {
		return [3]uint32{0, 1, 1}
	}
	x := min(groups, maxPerDimension)
	y := (groups + x - 1) / x
	return [3]uint32{x, y, 1}
}

func (d *densifier) Densify(t *splat.Table, factor int, seed uint32) (*splat.Table, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t == nil {
		return nil, common.ErrNoDataLoaded
	}
	n := t.Len()
	if err := splat.CheckFactor(n, factor); err != nil {
		return nil, err
	}
	if factor == 1 || n == 0 {
		return t.Clone(), nil
	}

	backend := d.resources.Backend()
	limits := backend.Limits()
	total := uint64(n) * uint64(factor)
	outSize := total * splat.GPUSplatSize
	if outSize > limits.MaxBufferSize {
		return nil, fmt.Errorf("%w: %d records x %d needs %d bytes, device limit is %d",
			common.ErrInvalidFactor, n, factor, outSize, limits.MaxBufferSize)
	}

	if err := d.resources.EnsurePipelines(); err != nil {
		return nil, err
	}
	compute := d.resources.ComputePipeline()
	cs := compute.Shader(shader.ShaderTypeCompute)
	bindings, err := densifyBindings(cs)
	if err != nil {
		return nil, deviceError("resolve densify bindings", err)
	}
	workgroup := uint64(cs.WorkgroupSize()[0])
	groups := (total + workgroup - 1) / workgroup
	dispatch := dispatchSize(uint32(groups), limits.MaxWorkgroupsPerDimension)
	if dispatch[1] > limits.MaxWorkgroupsPerDimension {
		return nil, fmt.Errorf("%w: %d records x %d needs more than %d workgroups per dimension",
			common.ErrInvalidFactor, n, factor, limits.MaxWorkgroupsPerDimension)
	}

	if d.resources.RecordCount() != n || d.resources.SplatBuffer() == nil {
		if err := d.resources.SyncBuffers(t); err != nil {
			return nil, err
		}
	}

	out, err := backend.CreateBuffer("Densified Splat Buffer", SplatBufferUsage, outSize)
	if err != nil {
		return nil, deviceError("create densify output", err)
	}

	params := splat.GPUDensifyParams{
		Factor:    uint32(factor),
		Count:     uint32(total),
		Seed:      seed,
		RowStride: dispatch[0] * uint32(workgroup),
	}
	paramsBuf, err := backend.CreateBufferInit("Densify Params", wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst, params.Marshal())
	if err != nil {
		out.Release()
		return nil, deviceError("create densify params", err)
	}

	provider := bind_group_provider.NewBindGroupProvider("Densify",
		bind_group_provider.WithSharedBuffer(bindings[0], d.resources.SplatBuffer()),
		bind_group_provider.WithSharedBuffer(bindings[1], out),
		bind_group_provider.WithBuffer(bindings[2], paramsBuf),
	)
	// The provider owns the params buffer and the bind group; out is released here only on failure.
	fail := func(op string, err error) (*splat.Table, error) {
		provider.Release()
		out.Release()
		return nil, deviceError(op, err)
	}

	if err := backend.InitBindGroup(compute, 0, provider); err != nil {
		return fail("bind densify buffers", err)
	}
	if err := backend.DispatchCompute(compute, provider, dispatch); err != nil {
		return fail("dispatch densify", err)
	}
	data, err := backend.ReadBuffer(out, outSize)
	if err != nil {
		return fail("read densified records", err)
	}
	result, err := splat.UnmarshalTable(data, t.Layout)
	if err != nil {
		return fail("decode densified records", err)
	}
	if result.Len() != int(total) {
		return fail("decode densified records", fmt.Errorf("read %d records, expected %d", result.Len(), total))
	}

	// SH coefficients are not uploaded; children inherit the parent's.
	for o := range result.Records {
		parent := t.Records[o/factor]
		result.Records[o].SH = parent.SH
		result.Records[o].HasSH = parent.HasSH
	}

	provider.Release()
	d.resources.SwapSplatBuffer(out, int(total), result.Bounds())
	common.Logger().Info("scene densified", "records", n, "factor", factor, "result", total, "workgroups", dispatch)
	return result, nil
}
