package engine

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-frame/engine/camera"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/driver/drivertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runAsync starts e.Run and returns a channel closed when it returns.
func runAsync(e Engine) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.Run()
	}()
	return done
}

func TestHeadlessRunRendersAndShutsDown(t *testing.T) {
	drv := drivertest.New()
	cam := camera.NewCamera()
	r := renderer.NewRenderer(drv, renderer.WithCamera(cam))
	e := NewEngine(r, WithTickRate(240), WithProfiling(true), WithCamera(cam))

	done := runAsync(e)
	require.Eventually(t, func() bool {
		return drv.Presents() >= 3
	}, 5*time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		return cam.Controller().Elapsed() > 0
	}, 5*time.Second, time.Millisecond, "update loop advances the camera")

	e.Quit()
	e.Quit()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Quit")
	}

	assert.Empty(t, drv.Violations())
	assert.Zero(t, drv.Live(drivertest.KindDevice))
	assert.Zero(t, drv.Live(drivertest.KindResource))
	assert.False(t, r.RenderAll(), "renderer closed on shutdown")
}

type panickingRenderer struct {
	renderer.Renderer
	closed bool
}

func (p *panickingRenderer) RenderAll() bool {
	panic("boom")
}

func (p *panickingRenderer) Update(float32) {}

func (p *panickingRenderer) Close() {
	p.closed = true
}

func (p *panickingRenderer) Stats() renderer.Stats {
	return renderer.Stats{}
}

func TestRenderPanicStopsEngine(t *testing.T) {
	r := &panickingRenderer{}
	done := runAsync(NewEngine(r))
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after a render panic")
	}
	assert.True(t, r.closed)
}

func TestZoom(t *testing.T) {
	cam := camera.NewCamera(camera.WithController(camera.NewOrbitController(camera.WithRadius(5))))
	e := NewEngine(&panickingRenderer{}, WithCamera(cam)).(*engine)

	e.zoom(-zoomStep)
	assert.InDelta(t, 4.5, cam.Controller().Radius(), 1e-6)
	e.zoom(-100)
	assert.InDelta(t, 4.5, cam.Controller().Radius(), 1e-6, "non-positive radius ignored")

	(&engine{}).zoom(1)
}

func TestTickRateAndFrameLimit(t *testing.T) {
	e := NewEngine(&panickingRenderer{}, WithTickRate(0), WithRenderFrameLimit(50)).(*engine)
	assert.Equal(t, time.Second/60, e.engineTickRate)
	assert.Equal(t, 20*time.Millisecond, e.renderFrameLimit)

	e.SetTickRate(120)
	assert.Equal(t, time.Second/120, e.engineTickRate)

	e.running.Store(true)
	e.SetTickRate(30)
	e.SetTickRate(10)
	assert.Equal(t, time.Second/10, <-e.tickRateChannel, "pending rate replaced")

	assert.Nil(t, e.Window())
	assert.False(t, e.minimized())

	e.EnableProfiler()
	assert.True(t, e.profilingEnabled.Load())
	e.DisableProfiler()
	assert.False(t, e.profilingEnabled.Load())
}
