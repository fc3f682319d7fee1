package window

// WindowBuilderOption configures a window before it is created.
type WindowBuilderOption func(c *config)

// WithTitle sets the title bar text.
func WithTitle(title string) WindowBuilderOption {
	return func(c *config) {
		c.title = title
	}
}

// WithSize sets the requested window size in screen coordinates. Non-positive values are
// ignored. On high-DPI displays the framebuffer ends up larger than the requested size.
//
// Parameters:
//   - width: requested width
//   - height: requested height
//
// Returns:
//   - WindowBuilderOption: the option
func WithSize(width, height int) WindowBuilderOption {
	return func(c *config) {
		if width > 0 && height > 0 {
			c.width, c.height = width, height
		}
	}
}

// WithSizeLimits bounds interactive resizing. A non-positive bound leaves that default in place.
//
// Parameters:
//   - minWidth, minHeight: the smallest allowed size
//   - maxWidth, maxHeight: the largest allowed size
//
// Returns:
//   - WindowBuilderOption: the option
func WithSizeLimits(minWidth, minHeight, maxWidth, maxHeight int) WindowBuilderOption {
	return func(c *config) {
		if minWidth > 0 && minHeight > 0 {
			c.minW, c.minH = minWidth, minHeight
		}
		if maxWidth > 0 && maxHeight > 0 {
			c.maxW, c.maxH = maxWidth, maxHeight
		}
	}
}
