package profiler

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/driver"
	"github.com/stretchr/testify/assert"
)

func TestTickLogsOncePerInterval(t *testing.T) {
	var buf bytes.Buffer
	p := NewProfiler()
	p.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	p.SetInterval(time.Second)
	p.SetInterval(0)

	start := time.Unix(100, 0)
	clock := start
	p.lastTime = start
	p.now = func() time.Time { return clock }

	stats := renderer.Stats{Frames: 3, FenceValue: 4, DeviceLosses: 1, FeatureLevel: driver.FeatureLevel121}
	clock = start.Add(400 * time.Millisecond)
	assert.False(t, p.Tick(stats))
	clock = start.Add(900 * time.Millisecond)
	assert.False(t, p.Tick(stats))
	assert.Empty(t, buf.String())

	clock = start.Add(time.Second)
	assert.True(t, p.Tick(stats))
	out := buf.String()
	assert.Contains(t, out, "[Profiler]")
	assert.Contains(t, out, "fps=3")
	assert.Contains(t, out, "fence=4")
	assert.Contains(t, out, "deviceLosses=1")
	assert.Contains(t, out, "featureLevel=12_1")
	assert.Equal(t, 0, p.frameCount)
	assert.Equal(t, clock, p.lastTime)
}
