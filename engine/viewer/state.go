package viewer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-splat/common"
)

// State is the lifecycle stage of a Viewer.
type State int

const (
	StateCreated State = iota
	StateAdapterPending
	StateDeviceReady
	StateDataLoaded
	StateRendering
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateAdapterPending:
		return "adapter-pending"
	case StateDeviceReady:
		return "device-ready"
	case StateDataLoaded:
		return "data-loaded"
	case StateRendering:
		return "rendering"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// DisplayMode selects how records are shaded.
type DisplayMode uint32

const (
	// DisplayModeColor shades records with their color.
	DisplayModeColor DisplayMode = 0

	// DisplayModeNormal shades records with their normal mapped to [0, 1].
	DisplayModeNormal DisplayMode = 1
)

// ParseDisplayMode converts a mode name or number to a DisplayMode.
//
// Parameters:
//   - s: "color", "normal", "0" or "1"
//
// Returns:
//   - DisplayMode: the parsed mode
//   - error: common.ErrInvalidMode for any other value
func ParseDisplayMode(s string) (DisplayMode, error) {
	switch s {
	case "color", "0":
		return DisplayModeColor, nil
	case "normal", "1":
		return DisplayModeNormal, nil
	default:
		return 0, fmt.Errorf("%w: %q", common.ErrInvalidMode, s)
	}
}

// Valid reports whether m is one of the defined modes.
func (m DisplayMode) Valid() bool {
	return m == DisplayModeColor || m == DisplayModeNormal
}

func (m DisplayMode) String() string {
	switch m {
	case DisplayModeColor:
		return "color"
	case DisplayModeNormal:
		return "normal"
	default:
		return fmt.Sprintf("mode(%d)", uint32(m))
	}
}
