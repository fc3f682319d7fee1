package pipeline

import (
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithVertexShader sets the vertex stage of a render pipeline.
func WithVertexShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexShader = s
	}
}

// WithFragmentShader sets the fragment stage of a render pipeline.
func WithFragmentShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.fragmentShader = s
	}
}

// WithComputeShader sets the shader of a compute pipeline.
func WithComputeShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.computeShader = s
	}
}

// WithRenderState replaces the whole render state.
//
// Parameters:
//   - state: the render state; a nil Blend makes the output opaque
//
// Returns:
//   - PipelineBuilderOption: a function that applies the render state to the pipeline
func WithRenderState(state RenderState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.renderState = state
	}
}

// WithTopology sets the primitive topology. Splats draw as wgpu.PrimitiveTopologyPointList.
func WithTopology(topology wgpu.PrimitiveTopology) PipelineBuilderOption {
	return func(p *pipeline) {
		p.renderState.Topology = topology
	}
}

// WithDepth sets depth testing and depth writes.
//
// Parameters:
//   - test: compare fragments against the depth buffer
//   - write: store fragment depth; translucent splats leave this off
//
// Returns:
//   - PipelineBuilderOption: a function that applies the depth state to the pipeline
func WithDepth(test, write bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.renderState.DepthTest = test
		p.renderState.DepthWrite = write
	}
}

// WithBlend sets the color blend state. Pass nil for opaque output.
func WithBlend(blend *wgpu.BlendState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.renderState.Blend = blend
	}
}
