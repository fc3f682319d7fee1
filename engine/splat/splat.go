package splat

import (
	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/chewxy/math32"
)

// Layout identifies the versioned per-record property layout a Table was decoded from.
type Layout int

const (
	// LayoutUnknown is the zero value. Tables built in memory carry it until encoded.
	LayoutUnknown Layout = iota

	// LayoutSplatV1 is the 17-float gaussian splat record: position, normal, SH DC color,
	// opacity, scale and rotation.
	LayoutSplatV1

	// LayoutInterchangeV1 is the 10-float export record: position, normal, color and alpha.
	LayoutInterchangeV1
)

func (l Layout) String() string {
	switch l {
	case LayoutSplatV1:
		return "splat-v1"
	case LayoutInterchangeV1:
		return "interchange-v1"
	default:
		return "unknown"
	}
}

// DefaultScale is the per-axis scale assigned to records whose source layout carries no scale.
const DefaultScale float32 = 0.01

// unitTolerance bounds the accepted deviation from unit length for rotations and normals.
const unitTolerance float32 = 1e-3

// Record is a single scene primitive.
type Record struct {
	Position common.Vec3
	Rotation common.Quat // x, y, z, w; unit norm
	Scale    common.Vec3 // every component > 0
	Opacity  float32     // [0, 1]
	Color    common.Vec3 // linear RGB in [0, 1]
	SH       common.Vec3 // DC spherical-harmonics coefficients, valid when HasSH
	HasSH    bool
	Normal   common.Vec3 // unit length
}

// Validate checks the range invariants of a single record.
//
// Returns:
//   - string: the name of the first offending field, empty when valid
//   - string: a short reason describing the violation
func (r Record) Validate() (string, string) {
	if !common.Finite(r.Position[:]...) {
		return "position", "non-finite value"
	}
	if !common.Finite(r.Rotation[:]...) || math32.Abs(r.Rotation.Length()-1) > unitTolerance {
		return "rotation", "not unit length"
	}
	if !common.Finite(r.Scale[:]...) || r.Scale[0] <= 0 || r.Scale[1] <= 0 || r.Scale[2] <= 0 {
		return "scale", "must be positive"
	}
	if !common.Finite(r.Opacity) || r.Opacity < 0 || r.Opacity > 1 {
		return "opacity", "outside [0, 1]"
	}
	for _, c := range r.Color {
		if !common.Finite(c) || c < 0 || c > 1 {
			return "color", "outside [0, 1]"
		}
	}
	if !common.Finite(r.Normal[:]...) || math32.Abs(r.Normal.Length()-1) > unitTolerance {
		return "normal", "not unit length"
	}
	return "", ""
}

// Table is an ordered sequence of records. Order is preserved through export.
type Table struct {
	Records []Record
	Layout  Layout
}

// NewTable wraps records in a Table without copying them.
func NewTable(records []Record, layout Layout) *Table {
	return &Table{Records: records, Layout: layout}
}

// Len returns the number of records. A nil table has zero records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	records := make([]Record, len(t.Records))
	copy(records, t.Records)
	return &Table{Records: records, Layout: t.Layout}
}

// Validate checks the range invariants of every record.
// The first violation is reported as a *FormatError carrying the record index.
func (t *Table) Validate() error {
	if t == nil {
		return nil
	}
	for i, r := range t.Records {
		if field, reason := r.Validate(); field != "" {
			return &FormatError{Offset: -1, Record: i, Field: field, Reason: reason}
		}
	}
	return nil
}

// Centroid returns the mean position of all records, or the origin for an empty table.
func (t *Table) Centroid() common.Vec3 {
	var c common.Vec3
	if t.Len() == 0 {
		return c
	}
	for _, r := range t.Records {
		c = c.Add(r.Position)
	}
	return c.Scale(1 / float32(len(t.Records)))
}

// Radius returns the largest distance between center and any record position.
func (t *Table) Radius(center common.Vec3) float32 {
	var radius float32
	if t == nil {
		return radius
	}
	for _, r := range t.Records {
		radius = math32.Max(radius, r.Position.Sub(center).Length())
	}
	return radius
}

// Bounds returns the sphere around the centroid that contains every record position.
func (t *Table) Bounds() common.Sphere {
	c := t.Centroid()
	return common.Sphere{Center: c, Radius: t.Radius(c)}
}
