package renderer

import (
	"github.com/Carmen-Shannon/oxy-frame/engine/camera"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithVSync sets whether Present waits for vertical blank. Enabled by default.
//
// Parameters:
//   - enabled: true to present with sync interval 1, false for 0
//
// Returns:
//   - RendererBuilderOption: a function that applies the vsync option to a renderer
func WithVSync(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.vsync = enabled
	}
}

// WithForceSoftwareRenderer skips hardware adapters and creates the device on the
// software adapter. Useful for comparing CPU and GPU rendering.
//
// Parameters:
//   - force: true to force the software adapter, false to prefer hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceSoftware = force
	}
}

// WithOverlay enables the 2-D overlay drawn over every frame. Disabled by default, and
// without effect in builds tagged nooverlay.
//
// Parameters:
//   - enabled: true to create the overlay path
//
// Returns:
//   - RendererBuilderOption: a function that applies the overlay option to a renderer
func WithOverlay(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.overlayEnabled = enabled
	}
}

// WithClearColor sets the color the render target is cleared to. Defaults to transparent black.
//
// Parameters:
//   - red, green, blue, alpha: the clear color channels in 0..1
//
// Returns:
//   - RendererBuilderOption: a function that applies the clear color option to a renderer
func WithClearColor(red, green, blue, alpha float32) RendererBuilderOption {
	return func(r *renderer) {
		r.clearColor = [4]float32{red, green, blue, alpha}
	}
}

// WithAssets replaces the built-in cube mesh or texture.
//
// Parameters:
//   - a: the static assets; zero fields keep the built-in ones
//
// Returns:
//   - RendererBuilderOption: a function that applies the assets option to a renderer
func WithAssets(a Assets) RendererBuilderOption {
	return func(r *renderer) {
		r.assets = a
	}
}

// WithWorkerPool sets the number of workers preparing static assets. Defaults to 2.
func WithWorkerPool(workers int) RendererBuilderOption {
	return func(r *renderer) {
		if workers > 0 {
			r.poolSize = workers
		}
	}
}

// WithCamera sets the camera whose mailbox feeds the per-frame constants.
//
// Parameters:
//   - c: the camera to use
//
// Returns:
//   - RendererBuilderOption: a function that applies the camera option to a renderer
func WithCamera(c camera.Camera) RendererBuilderOption {
	return func(r *renderer) {
		r.cam = c
	}
}
