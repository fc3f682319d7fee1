package common

import "errors"

// Error taxonomy shared by every engine package. Concrete errors wrap one of these
// sentinels so callers can classify failures with errors.Is.
var (
	// ErrInit reports that no compatible graphics device could be acquired. Fatal for the viewer.
	ErrInit = errors.New("init error")

	// ErrFormat reports malformed, truncated or out-of-range scene bytes. Prior state is retained.
	ErrFormat = errors.New("format error")

	// ErrInvalidMode reports a display mode outside the supported enumeration.
	ErrInvalidMode = errors.New("invalid display mode")

	// ErrInvalidFactor reports a densification factor that is not a usable positive integer.
	ErrInvalidFactor = errors.New("invalid densification factor")

	// ErrInvalidSize reports a surface dimension of zero.
	ErrInvalidSize = errors.New("invalid surface size")

	// ErrNoDataLoaded reports an operation that requires a previously loaded scene.
	ErrNoDataLoaded = errors.New("no data loaded")

	// ErrDevice reports a resource allocation, submission or pipeline compilation failure.
	ErrDevice = errors.New("device error")

	// ErrSurfaceStale reports that the next presentable frame could not be acquired.
	// The frame renderer treats it as a recoverable skip.
	ErrSurfaceStale = errors.New("surface stale")

	// ErrDisposed reports an operation issued after the viewer was disposed.
	ErrDisposed = errors.New("viewer disposed")
)
