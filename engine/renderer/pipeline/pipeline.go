package pipeline

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-splat/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineType identifies whether a pipeline is a compute pipeline or a render pipeline.
type PipelineType int

const (
	// PipelineTypeCompute indicates a compute pipeline with a single compute shader entry point.
	PipelineTypeCompute PipelineType = iota

	// PipelineTypeRender indicates a render pipeline with vertex and fragment shader entry points.
	PipelineTypeRender
)

func (t PipelineType) String() string {
	switch t {
	case PipelineTypeCompute:
		return "compute"
	case PipelineTypeRender:
		return "render"
	default:
		return "unknown"
	}
}

// Handle is the compiled device object a backend attaches to a pipeline after registration.
// The WebGPU backend stores *wgpu.RenderPipeline or *wgpu.ComputePipeline values.
type Handle interface {
	Release()
}

// AlphaBlend is source-over blending of straight (non-premultiplied) alpha.
var AlphaBlend = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
}

// RenderState is the fixed-function state of a render pipeline.
type RenderState struct {
	Topology   wgpu.PrimitiveTopology
	CullMode   wgpu.CullMode
	DepthTest  bool
	DepthWrite bool
	// Blend is nil for opaque output.
	Blend *wgpu.BlendState
}

// DefaultRenderState returns the state used for translucent splats: point list, depth tested
// but not written, alpha blended.
func DefaultRenderState() RenderState {
	blend := AlphaBlend
	return RenderState{
		Topology:  wgpu.PrimitiveTopologyPointList,
		CullMode:  wgpu.CullModeNone,
		DepthTest: true,
		Blend:     &blend,
	}
}

// DepthCompare returns the depth comparison implied by DepthTest.
func (s RenderState) DepthCompare() wgpu.CompareFunction {
	if s.DepthTest {
		return wgpu.CompareFunctionLess
	}
	return wgpu.CompareFunctionAlways
}

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	pipelineType PipelineType
	pipelineKey  string

	vertexShader, fragmentShader, computeShader shader.Shader

	// handle is set by the backend once the pipeline is compiled.
	handle Handle

	// Compute pipelines carry the default render state but never read it.
	renderState RenderState
}

// Pipeline describes a GPU pipeline: either a render pipeline (vertex + fragment shaders) or a
// compute pipeline (compute shader), plus the fixed-function state used when compiling it.
// A backend compiles the description and attaches the result with SetHandle.
type Pipeline interface {
	// Type returns the type of the pipeline
	//
	// Returns:
	//   - PipelineType: the type of the pipeline (render or compute)
	Type() PipelineType

	// PipelineKey returns the unique key associated with this pipeline, used for caching and lookups.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader retrieves the shader associated with the specified type if it exists, nil otherwise.
	//
	// Parameters:
	//   - shaderType: the type of shader to retrieve (vertex, fragment, or compute)
	//
	// Returns:
	//   - shader.Shader: the shader associated with the specified type, or nil if not set
	Shader(shaderType shader.ShaderType) shader.Shader

	// Validate reports whether the shaders required by the pipeline type are present.
	//
	// Returns:
	//   - error: a descriptive error when a required shader is missing
	Validate() error

	// Handle returns the compiled device object, or nil before registration.
	Handle() Handle

	// SetHandle attaches the compiled device object.
	//
	// Parameters:
	//   - h: the compiled pipeline
	SetHandle(h Handle)

	// Registered reports whether a backend has compiled the pipeline.
	Registered() bool

	// Release releases the compiled device object. The description stays usable and can be
	// registered again.
	Release()

	// RenderState returns the fixed-function state used when compiling a render pipeline.
	//
	// Returns:
	//   - RenderState: the topology, depth and blend configuration
	RenderState() RenderState
}

var _ Pipeline = &pipeline{}

// NewPipeline is the entry point to create a new Pipeline interface. A PipelineType must be specified and provided upon creation.
// Render pipelines start from DefaultRenderState.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - pipelineType: the type of pipeline to create (render or compute)
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance with the specified type and configuration
func NewPipeline(pipelineKey string, pipelineType PipelineType, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:  pipelineKey,
		pipelineType: pipelineType,
		renderState:  DefaultRenderState(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Type() PipelineType {
	return p.pipelineType
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	case shader.ShaderTypeCompute:
		return p.computeShader
	default:
		return nil
	}
}

func (p *pipeline) Validate() error {
	switch p.pipelineType {
	case PipelineTypeRender:
		if p.vertexShader == nil || p.fragmentShader == nil {
			return errors.New("both vertex and fragment shaders must be set to create a render pipeline")
		}
	case PipelineTypeCompute:
		if p.computeShader == nil {
			return errors.New("compute shader must be set to create a compute pipeline")
		}
	default:
		return errors.New("unknown pipeline type")
	}
	return nil
}

func (p *pipeline) Handle() Handle {
	return p.handle
}

func (p *pipeline) SetHandle(h Handle) {
	p.handle = h
}

func (p *pipeline) Registered() bool {
	return p.handle != nil
}

func (p *pipeline) Release() {
	if p.handle != nil {
		p.handle.Release()
		p.handle = nil
	}
}

func (p *pipeline) RenderState() RenderState {
	return p.renderState
}
