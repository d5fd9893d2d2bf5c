package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEngineWindowDefaults(t *testing.T) {
	w := newEngineWindow()
	width, height := w.Size()
	assert.Equal(t, uint32(1280), width)
	assert.Equal(t, uint32(720), height)
	assert.Equal(t, "oxy-frame", w.title)
}

func TestWithSizeIgnoresNonPositive(t *testing.T) {
	w := newEngineWindow(WithSize(800, 0), WithTitle("demo"), WithMinSize(10, 20))
	width, height := w.Size()
	assert.Equal(t, uint32(800), width)
	assert.Equal(t, uint32(720), height)
	assert.Equal(t, "demo", w.title)
	assert.Equal(t, 10, w.minWidth)
	assert.Equal(t, 20, w.minHeight)
}

func TestFramebufferResized(t *testing.T) {
	w := newEngineWindow()
	var got [][2]uint32
	w.SetResizeCallback(func(width, height uint32) {
		got = append(got, [2]uint32{width, height})
	})

	w.framebufferResized(640, 480)
	w.framebufferResized(0, 0)
	w.framebufferResized(-1, 300)

	assert.Equal(t, [][2]uint32{{640, 480}, {0, 0}, {0, 300}}, got)
	width, height := w.Size()
	assert.Equal(t, uint32(0), width)
	assert.Equal(t, uint32(300), height)
}

func TestTeardownClosesDoneOnce(t *testing.T) {
	w := newEngineWindow()
	select {
	case <-w.Done():
		t.Fatal("done before teardown")
	default:
	}
	w.teardown()
	w.teardown()
	_, open := <-w.Done()
	assert.False(t, open)
	assert.False(t, w.IsRunning(), "no platform window")
}

func TestWithoutPlatformWindow(t *testing.T) {
	w := newEngineWindow()
	w.RequestClose()
	assert.Nil(t, w.SurfaceDescriptor())
	assert.Error(t, w.Close())
	_, open := <-w.Done()
	assert.False(t, open, "close tears down even without a platform window")
}
