package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-splat/engine/camera"
	"github.com/Carmen-Shannon/oxy-splat/engine/splat"
)

// registryEntry pairs a WGSL struct source with the type name used in generated declarations.
type registryEntry struct {
	Source string
	Type   string
}

type preProcessor struct {
	structRegistry       map[AnnotationArg]registryEntry
	addressSpaceRegistry map[AnnotationArg]string
	declarations         []Annotation
}

// PreProcessor expands @oxy: annotations in WGSL source into plain WGSL while collecting the
// binding declarations it generated.
type PreProcessor interface {
	// Process replaces include annotations with registered struct sources and group annotations
	// with @group/@binding declarations. The declarations list is reset on every call.
	//
	// Parameters:
	//   - source: WGSL source containing annotations
	//
	// Returns:
	//   - string: the expanded WGSL source
	//   - error: an error naming the line of a malformed annotation or unknown key
	Process(source string) (string, error)

	// Declarations returns the group annotations collected by the last Process call, in source order.
	//
	// Returns:
	//   - []Annotation: the collected declarations
	Declarations() []Annotation

	// Register adds or replaces a struct in the registry.
	//
	// Parameters:
	//   - key: the annotation argument that names the struct
	//   - typeName: the WGSL struct name
	//   - source: the WGSL struct definition
	Register(key AnnotationArg, typeName, source string)
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor with the engine's GPU structs registered.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		structRegistry: map[AnnotationArg]registryEntry{
			AnnotationArgSplat:         {Source: splat.GPUSplatSource, Type: "Splat"},
			AnnotationArgView:          {Source: camera.GPUViewUniformSource, Type: "ViewUniform"},
			AnnotationArgDensifyParams: {Source: splat.GPUDensifyParamsSource, Type: "DensifyParams"},
		},
		addressSpaceRegistry: map[AnnotationArg]string{
			annotationArgStorageTypeUniform:   "var<uniform>",
			annotationArgStorageTypeRead:      "var<storage, read>",
			annotationArgStorageTypeReadWrite: "var<storage, read_write>",
		},
	}
}

func (p *preProcessor) Register(key AnnotationArg, typeName, source string) {
	p.structRegistry[key] = registryEntry{Source: source, Type: typeName}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case annotationTypeInclude:
			entry, ok := p.structRegistry[a.Args[0]]
			if !ok {
				return "", fmt.Errorf("line %d: unknown @oxy:include argument %q", i+1, a.Args[0])
			}
			out = append(out, entry.Source)
		case AnnotationTypeBindingGroup:
			addrSpace, ok := p.addressSpaceRegistry[a.Args[0]]
			if !ok {
				return "", fmt.Errorf("line %d: unknown address space %q", i+1, a.Args[0])
			}
			entry, ok := p.structRegistry[a.StructKey()]
			if !ok {
				return "", fmt.Errorf("line %d: unknown struct type %q", i+1, a.Args[2])
			}
			wgslType := entry.Type
			if strings.HasPrefix(string(a.Args[2]), "array<") {
				wgslType = fmt.Sprintf("array<%s>", entry.Type)
			}
			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;", *a.Group, *a.Binding, addrSpace, a.Args[1], wgslType))
			p.declarations = append(p.declarations, *a)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}
