package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTickReportsOncePerInterval(t *testing.T) {
	now := time.Unix(0, 0)
	p := NewProfiler(WithInterval(time.Second), WithClock(func() time.Time { return now }))

	for range 29 {
		now = now.Add(10 * time.Millisecond)
		_, reported := p.Tick()
		assert.False(t, reported)
	}

	now = now.Add(710 * time.Millisecond)
	stats, reported := p.Tick()
	assert.True(t, reported)
	assert.InDelta(t, 30, stats.FPS, 1e-9)
	assert.Greater(t, stats.SysMB, 0.0)

	now = now.Add(10 * time.Millisecond)
	_, reported = p.Tick()
	assert.False(t, reported)
}

func TestOptionsIgnoreInvalidValues(t *testing.T) {
	p := NewProfiler(WithInterval(-time.Second), WithClock(nil))
	assert.Equal(t, time.Second, p.updateInterval)
	assert.NotNil(t, p.now)
}
