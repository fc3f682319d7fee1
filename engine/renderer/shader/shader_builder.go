package shader

import "github.com/cogentcore/webgpu/wgpu"

// ShaderBuilderOption configures a shader before its source is processed.
type ShaderBuilderOption func(*shader)

// WithVertexLayouts sets the vertex buffer layouts of a vertex stage, one per buffer slot.
//
// Parameters:
//   - layouts: the vertex buffer layouts in slot order
//
// Returns:
//   - ShaderBuilderOption: a function that applies the layouts to a shader
func WithVertexLayouts(layouts ...wgpu.VertexBufferLayout) ShaderBuilderOption {
	return func(s *shader) {
		s.vertexLayouts = append(s.vertexLayouts, layouts...)
	}
}

// WithStruct registers an additional struct with the shader's pre-processor so that
// @oxy:include and @oxy:group annotations can reference it.
//
// Parameters:
//   - key: the annotation argument that names the struct
//   - typeName: the WGSL struct name
//   - source: the WGSL struct definition
//
// Returns:
//   - ShaderBuilderOption: a function that registers the struct
func WithStruct(key AnnotationArg, typeName, source string) ShaderBuilderOption {
	return func(s *shader) {
		s.pp.Register(key, typeName, source)
	}
}
