package splat

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-splat/common"
)

// FormatError describes why scene bytes or a table were rejected.
// It matches common.ErrFormat under errors.Is.
type FormatError struct {
	Offset int    // byte offset into the input, -1 when not tied to a position
	Record int    // record index, -1 for header errors
	Field  string // offending header line or property name
	Reason string
}

func (e *FormatError) Error() string {
	switch {
	case e.Record >= 0 && e.Offset >= 0:
		return fmt.Sprintf("format error: record %d (byte %d) %s: %s", e.Record, e.Offset, e.Field, e.Reason)
	case e.Record >= 0:
		return fmt.Sprintf("format error: record %d %s: %s", e.Record, e.Field, e.Reason)
	case e.Offset >= 0:
		return fmt.Sprintf("format error: byte %d %s: %s", e.Offset, e.Field, e.Reason)
	default:
		return fmt.Sprintf("format error: %s: %s", e.Field, e.Reason)
	}
}

func (e *FormatError) Is(target error) bool {
	return target == common.ErrFormat
}

func headerError(offset int, field, reason string) *FormatError {
	return &FormatError{Offset: offset, Record: -1, Field: field, Reason: reason}
}
