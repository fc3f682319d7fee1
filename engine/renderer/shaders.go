package renderer

import (
	_ "embed"
	"fmt"

	"github.com/Carmen-Shannon/oxy-splat/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-splat/engine/splat"
	"github.com/cogentcore/webgpu/wgpu"
)

// SplatRenderSource is the WGSL source of the splat render pipeline. The view uniform's
// mode field selects color or normal shading, so both display modes share one pipeline.
//
//go:embed assets/splat_render.wgsl
var SplatRenderSource string

// SplatDensifySource is the WGSL source of the densify compute kernel.
//
//go:embed assets/splat_densify.wgsl
var SplatDensifySource string

// Pipeline keys.
const (
	RenderPipelineKey  = "splat_render"
	DensifyPipelineKey = "splat_densify"
)

// SplatBufferUsage is the usage of the splat buffer: drawn as vertices, read and written by
// the densify kernel, copied to staging for readback and rewritten in place on sync.
const SplatBufferUsage = wgpu.BufferUsageVertex | wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst

// splatVertexLayout reads position, opacity, color and normal out of the 80-byte GPUSplat.
var splatVertexLayout = wgpu.VertexBufferLayout{
	ArrayStride: splat.GPUSplatSize,
	StepMode:    wgpu.VertexStepModeVertex,
	Attributes: []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x3, Offset: splat.GPUSplatPositionOffset, ShaderLocation: 0},
		{Format: wgpu.VertexFormatFloat32, Offset: splat.GPUSplatOpacityOffset, ShaderLocation: 1},
		{Format: wgpu.VertexFormatFloat32x3, Offset: splat.GPUSplatColorOffset, ShaderLocation: 2},
		{Format: wgpu.VertexFormatFloat32x3, Offset: splat.GPUSplatNormalOffset, ShaderLocation: 3},
	},
}

// densifyBindingNames are the kernel's group 0 variables in src, dst, params order.
var densifyBindingNames = [3]string{"src_splats", "dst_splats", "params"}

// densifyBindings resolves the binding index of each densify buffer from the kernel source.
func densifyBindings(cs shader.Shader) ([3]int, error) {
	var bindings [3]int
	for i, name := range densifyBindingNames {
		b, ok := cs.BindingIndex(0, name)
		if !ok {
			return bindings, fmt.Errorf("%s: kernel declares no %q binding in group 0", cs.Key(), name)
		}
		bindings[i] = b
	}
	return bindings, nil
}

// newSplatPipelines parses the embedded shaders and builds the render and compute pipeline
// descriptions. Nothing is compiled on the device yet.
func newSplatPipelines() (render, compute pipeline.Pipeline, err error) {
	vs, err := shader.NewShader(RenderPipelineKey, shader.ShaderTypeVertex, SplatRenderSource,
		shader.WithVertexLayouts(splatVertexLayout))
	if err != nil {
		return nil, nil, err
	}
	fs, err := shader.NewShader(RenderPipelineKey, shader.ShaderTypeFragment, SplatRenderSource)
	if err != nil {
		return nil, nil, err
	}
	cs, err := shader.NewShader(DensifyPipelineKey, shader.ShaderTypeCompute, SplatDensifySource)
	if err != nil {
		return nil, nil, err
	}
	if cs.WorkgroupSize()[1] != 1 || cs.WorkgroupSize()[2] != 1 {
		return nil, nil, fmt.Errorf("%s: workgroup size must be one-dimensional, got %v", DensifyPipelineKey, cs.WorkgroupSize())
	}
	if _, err := densifyBindings(cs); err != nil {
		return nil, nil, err
	}

	render = pipeline.NewPipeline(RenderPipelineKey, pipeline.PipelineTypeRender,
		pipeline.WithVertexShader(vs),
		pipeline.WithFragmentShader(fs),
		pipeline.WithTopology(wgpu.PrimitiveTopologyPointList),
		pipeline.WithDepth(true, false),
	)
	compute = pipeline.NewPipeline(DensifyPipelineKey, pipeline.PipelineTypeCompute,
		pipeline.WithComputeShader(cs),
	)
	return render, compute, nil
}
