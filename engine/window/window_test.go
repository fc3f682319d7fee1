package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInputDropsKeyReleases(t *testing.T) {
	in := &input{}
	var keys []uint32
	in.SetKeyDownCallback(func(code uint32) { keys = append(keys, code) })

	in.key(83, false)
	in.key(83, true)
	in.key(256, false)

	assert.Equal(t, []uint32{83, 256}, keys)
}

func TestInputFramebufferUpdatesSizeBeforeCallback(t *testing.T) {
	in := &input{}
	var seen [2]int
	in.SetResizeCallback(func(width, height int) {
		seen = [2]int{in.Width(), in.Height()}
	})

	in.framebuffer(800, 600)

	assert.Equal(t, [2]int{800, 600}, seen)
	assert.Equal(t, 800, in.Width())
	assert.Equal(t, 600, in.Height())
}

func TestInputForwardsPointerEvents(t *testing.T) {
	in := &input{}
	var (
		scrolled float32
		pressed  bool
		button   int
		moved    [2]float32
		updates  int
	)
	in.SetScrollCallback(func(delta float32) { scrolled = delta })
	in.SetMouseButtonCallback(func(b int, p bool, x, y float32) { button, pressed = b, p })
	in.SetMouseMoveCallback(func(x, y float32) { moved = [2]float32{x, y} })
	in.SetUpdateCallback(func() { updates++ })

	in.scroll(-1.5)
	in.button(1, true, 10, 20)
	in.move(3, 4)
	in.update()

	assert.Equal(t, float32(-1.5), scrolled)
	assert.Equal(t, 1, button)
	assert.True(t, pressed)
	assert.Equal(t, [2]float32{3, 4}, moved)
	assert.Equal(t, 1, updates)
}

func TestInputWithoutCallbacks(t *testing.T) {
	in := &input{}
	assert.NotPanics(t, func() {
		in.key(1, false)
		in.scroll(1)
		in.button(0, true, 0, 0)
		in.move(0, 0)
		in.framebuffer(0, 0)
		in.update()
	})
}

func TestBuilderOptions(t *testing.T) {
	c := defaultConfig()
	for _, opt := range []WindowBuilderOption{
		WithTitle("scene"),
		WithSize(640, 480),
		WithSize(0, 100),
		WithSizeLimits(100, 100, 0, 0),
	} {
		opt(&c)
	}
	assert.Equal(t, "scene", c.title)
	assert.Equal(t, 640, c.width)
	assert.Equal(t, 480, c.height)
	assert.Equal(t, [4]int{100, 100, 3840, 2160}, [4]int{c.minW, c.minH, c.maxW, c.maxH})
}
