package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-splat/common"
)

// DeviceError reports a failed device operation: allocation, write, pipeline compilation,
// dispatch or readback. It matches common.ErrDevice under errors.Is.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device error: %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

func (e *DeviceError) Is(target error) bool {
	return target == common.ErrDevice
}

func deviceError(op string, err error) error {
	return &DeviceError{Op: op, Err: err}
}
