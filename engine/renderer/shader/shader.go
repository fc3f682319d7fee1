package shader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType identifies whether a shader is a render shader or a compute shader.
type ShaderType int

const (
	// ShaderTypeCompute indicates a shader containing a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex

	// ShaderTypeFragment is the fragment shader type, used for fragment processing in pair with a vertex shader.
	ShaderTypeFragment
)

// shader is the implementation of the Shader interface.
// Everything is derived once in NewShader; a shader is immutable afterwards.
type shader struct {
	key        string
	source     string
	shaderType ShaderType
	entryPoint string

	bindGroups      map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames map[int]map[int]string
	vertexLayouts   []wgpu.VertexBufferLayout
	workGroupSize   [3]uint32
	module          *wgpu.ShaderModuleDescriptor

	pp PreProcessor
}

// Shader is a pre-processed WGSL stage together with the layout metadata reflected from it:
// entry point, bind group layouts, binding names, vertex buffer layouts and workgroup size.
type Shader interface {
	// Key returns the label the shader was created with.
	Key() string

	// Source returns the WGSL source after @oxy: annotations were expanded.
	Source() string

	// ShaderType returns the stage this shader was reflected for.
	ShaderType() ShaderType

	// EntryPoint returns the name of the stage's entry point function.
	EntryPoint() string

	// WorkgroupSize returns the @workgroup_size of a compute entry point with omitted dimensions
	// set to 1, or [0, 0, 0] for render stages.
	WorkgroupSize() [3]uint32

	// BindGroupLayoutDescriptor returns the layout of one bind group as seen by this stage.
	//
	// Parameters:
	//   - group: the @group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the descriptor, empty when the stage does not use the group
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors returns every bind group layout used by this stage, keyed by group.
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName returns the WGSL variable declared at group and binding, or "".
	BindGroupVarName(group, binding int) string

	// BindingIndex resolves a WGSL variable name to its binding index within group.
	//
	// Parameters:
	//   - group: the @group index
	//   - varName: the variable name as declared in the source
	//
	// Returns:
	//   - int: the @binding index, -1 when not found
	//   - bool: whether the variable was found
	BindingIndex(group int, varName string) (int, bool)

	// VertexLayouts returns the vertex buffer layouts in buffer slot order.
	VertexLayouts() []wgpu.VertexBufferLayout

	// Module returns the descriptor used to create the device shader module.
	Module() *wgpu.ShaderModuleDescriptor

	// Declarations returns the group annotations expanded by the pre-processor, in source order.
	Declarations() []Annotation
}

var _ Shader = &shader{}

// NewShader pre-processes and parses WGSL source and reflects the layout metadata for the
// requested stage. Compilation into a device module happens later in the pipeline layer,
// so a shader can be built and inspected without a GPU.
//
// Parameters:
//   - key: a unique identifier for the shader, used as the module label
//   - shaderType: the stage whose entry point and bind group visibility are reflected
//   - source: the WGSL source, which may contain @oxy: annotations
//   - options: optional builder options such as WithVertexLayouts
//
// Returns:
//   - Shader: the parsed shader
//   - error: a wrapped common.ErrDevice when the source cannot be expanded or parsed
func NewShader(key string, shaderType ShaderType, source string, options ...ShaderBuilderOption) (Shader, error) {
	if source == "" {
		return nil, fmt.Errorf("shader %s: empty source: %w", key, common.ErrDevice)
	}
	s := &shader{
		key:        key,
		shaderType: shaderType,
		pp:         NewPreProcessor(),
	}
	for _, opt := range options {
		opt(s)
	}

	expanded, err := s.pp.Process(source)
	if err != nil {
		return nil, fmt.Errorf("shader %s: pre-process: %v: %w", key, err, common.ErrDevice)
	}
	r, err := reflectSource(expanded, shaderType)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %v: %w", key, err, common.ErrDevice)
	}

	s.source = expanded
	s.entryPoint = r.entryPoint
	s.bindGroups = r.bindGroups
	s.bindingVarNames = r.bindingVarNames
	if shaderType == ShaderTypeCompute {
		s.workGroupSize = r.workgroupSize
	}
	s.module = &wgpu.ShaderModuleDescriptor{
		Label:          s.key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: s.source},
	}
	return s, nil
}

func (s *shader) Key() string                              { return s.key }
func (s *shader) Source() string                           { return s.source }
func (s *shader) ShaderType() ShaderType                   { return s.shaderType }
func (s *shader) EntryPoint() string                       { return s.entryPoint }
func (s *shader) WorkgroupSize() [3]uint32                 { return s.workGroupSize }
func (s *shader) VertexLayouts() []wgpu.VertexBufferLayout { return s.vertexLayouts }
func (s *shader) Module() *wgpu.ShaderModuleDescriptor     { return s.module }
func (s *shader) Declarations() []Annotation               { return s.pp.Declarations() }

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroups[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroups
}

func (s *shader) BindGroupVarName(group, binding int) string {
	return s.bindingVarNames[group][binding]
}

func (s *shader) BindingIndex(group int, varName string) (int, bool) {
	for binding, name := range s.bindingVarNames[group] {
		if name == varName {
			return binding, true
		}
	}
	return -1, false
}
