package shader

import (
	"fmt"
	"sort"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// reflection is the layout metadata read from a lowered WGSL module.
type reflection struct {
	entryPoint      string
	workgroupSize   [3]uint32
	bindGroups      map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames map[int]map[int]string
}

// stageOf maps a shader type to its naga IR stage and WGSL attribute name.
func stageOf(shaderType ShaderType) (ir.ShaderStage, string) {
	switch shaderType {
	case ShaderTypeVertex:
		return ir.StageVertex, "vertex"
	case ShaderTypeFragment:
		return ir.StageFragment, "fragment"
	default:
		return ir.StageCompute, "compute"
	}
}

// stageVisibility maps a shader type to the bind group visibility flag of its stage.
func stageVisibility(shaderType ShaderType) wgpu.ShaderStage {
	switch shaderType {
	case ShaderTypeVertex:
		return wgpu.ShaderStageVertex
	case ShaderTypeFragment:
		return wgpu.ShaderStageFragment
	default:
		return wgpu.ShaderStageCompute
	}
}

// reflectSource parses and lowers WGSL with naga, then reads the entry point, workgroup
// size and resource bindings for the given stage from the IR. Lowering type-checks the
// module, so errors surface here instead of inside the device driver.
func reflectSource(source string, shaderType ShaderType) (*reflection, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, err
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, err
	}

	r := &reflection{
		bindGroups:      make(map[int]wgpu.BindGroupLayoutDescriptor),
		bindingVarNames: make(map[int]map[int]string),
	}

	stage, attr := stageOf(shaderType)
	for _, ep := range module.EntryPoints {
		if ep.Stage != stage {
			continue
		}
		if r.entryPoint != "" {
			return nil, fmt.Errorf("multiple @%s entry points: %s and %s", attr, r.entryPoint, ep.Name)
		}
		r.entryPoint = ep.Name
		if stage == ir.StageCompute {
			for _, d := range ep.Workgroup {
				if d == 0 {
					return nil, fmt.Errorf("entry point %s: @workgroup_size dimensions must be positive", ep.Name)
				}
			}
			r.workgroupSize = ep.Workgroup
		}
	}
	if r.entryPoint == "" {
		return nil, fmt.Errorf("no @%s entry point", attr)
	}

	visibility := stageVisibility(shaderType)
	groups := make(map[int][]wgpu.BindGroupLayoutEntry)
	for _, v := range module.GlobalVariables {
		if v.Binding == nil {
			continue
		}
		group, binding := int(v.Binding.Group), int(v.Binding.Binding)

		entry := wgpu.BindGroupLayoutEntry{
			Binding:    uint32(binding),
			Visibility: visibility,
		}
		switch v.Space {
		case ir.SpaceUniform:
			entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		case ir.SpaceStorage:
			if v.Access == ir.StorageRead {
				entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
			} else {
				entry.Buffer.Type = wgpu.BufferBindingTypeStorage
			}
		default:
			return nil, fmt.Errorf("var %s: only uniform and storage buffers can be bound", v.Name)
		}

		if r.bindingVarNames[group] == nil {
			r.bindingVarNames[group] = make(map[int]string)
		}
		if existing, ok := r.bindingVarNames[group][binding]; ok {
			return nil, fmt.Errorf("vars %s and %s share @group(%d) @binding(%d)", existing, v.Name, group, binding)
		}
		r.bindingVarNames[group][binding] = v.Name
		groups[group] = append(groups[group], entry)
	}

	for g, entries := range groups {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Binding < entries[j].Binding
		})
		r.bindGroups[g] = wgpu.BindGroupLayoutDescriptor{Entries: entries}
	}
	return r, nil
}
