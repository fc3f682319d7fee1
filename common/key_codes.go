package common

// Virtual key codes for cross-platform input handling.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyE   = 69  // E key (ASCII)
	KeyP   = 80  // P key (ASCII)
	KeyR   = 82  // R key (ASCII)
	KeyS   = 83  // S key (ASCII)
	KeyEsc = 256 // Escape key (GLFW)

	Key1 = 49 // 1 key (ASCII)
	Key2 = 50 // 2 key (ASCII)
)

// Mouse buttons reported by the window layer.
const (
	MouseButtonLeft   = 0
	MouseButtonRight  = 1
	MouseButtonMiddle = 2
)
