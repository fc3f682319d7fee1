// annotations.go defines the @oxy: annotations understood by the WGSL pre-processor.
// Annotations are single-line WGSL comments that inject registered struct sources and
// generate @group/@binding declarations, so shader sources never restate a GPU layout
// that is already defined next to its Go marshalling code.
package shader

import (
	"fmt"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies an annotation within a WGSL comment line.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude injects the WGSL source of a registered struct.
	//
	// Syntax: //@oxy:include <struct>
	//
	// Example: //@oxy:include splat
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup generates a @group/@binding variable declaration and records
	// it in the pre-processor's declarations list.
	//
	// Syntax: //@oxy:group <group> <binding> <address_space> <var_name> <type>
	//
	// Example: //@oxy:group 0 0 storage_read source array<splat>
	AnnotationTypeBindingGroup AnnotationType = "group"
)

// Annotation is a single parsed annotation.
type Annotation struct {
	Type AnnotationType

	// Args depends on Type:
	//   - include: [0] = struct key
	//   - group:   [0] = address space, [1] = var name, [2] = struct key, optionally wrapped in array<>
	Args []AnnotationArg

	Line    int
	Group   *int
	Binding *int
}

// AnnotationArg is a registry key or keyword used as an annotation argument.
type AnnotationArg string

// Struct keys.
const (
	AnnotationArgSplat         AnnotationArg = "splat"
	AnnotationArgView          AnnotationArg = "view"
	AnnotationArgDensifyParams AnnotationArg = "densify_params"
)

// Address spaces.
const (
	annotationArgStorageTypeUniform   AnnotationArg = "storage_uniform"
	annotationArgStorageTypeRead      AnnotationArg = "storage_read"
	annotationArgStorageTypeReadWrite AnnotationArg = "storage_read_write"
)

// StructKey returns the struct key of a group annotation with any array<> wrapper removed.
func (a Annotation) StructKey() AnnotationArg {
	if len(a.Args) < 3 {
		return ""
	}
	key := string(a.Args[2])
	if inner, ok := strings.CutPrefix(key, "array<"); ok {
		key = strings.TrimSuffix(inner, ">")
	}
	return AnnotationArg(key)
}

// parseAnnotation parses a single line of WGSL source for an annotation.
//
// Parameters:
//   - line: the raw source line
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case annotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include annotation requires exactly one argument", lineNum)
		}
		return &Annotation{
			Type: annotationTypeInclude,
			Args: []AnnotationArg{AnnotationArg(args[1])},
			Line: lineNum,
		}, nil
	case AnnotationTypeBindingGroup:
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @oxy group annotation requires group, binding, address space, var name and type", lineNum)
		}
		group, err := strconv.Atoi(args[1])
		if err != nil || group < 0 {
			return nil, fmt.Errorf("line %d: invalid group number %q in @oxy group annotation", lineNum, args[1])
		}
		binding, err := strconv.Atoi(args[2])
		if err != nil || binding < 0 {
			return nil, fmt.Errorf("line %d: invalid binding number %q in @oxy group annotation", lineNum, args[2])
		}
		return &Annotation{
			Type:    AnnotationTypeBindingGroup,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4]), AnnotationArg(args[5])},
			Line:    lineNum,
			Group:   &group,
			Binding: &binding,
		}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}
}
