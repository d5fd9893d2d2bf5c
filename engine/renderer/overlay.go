package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/driver"
)

// overlaySteps is the number of frames the overlay line takes to grow from the origin
// to the far corner before starting over.
const overlaySteps = 1000

// overlaySurface is the CPU drawing surface behind one wrapped target.
type overlaySurface interface {
	// DrawDiagonal clears the surface and strokes a line with brush from the origin to
	// (width·v, height·v), returning the tightly packed RGBA8 pixels.
	DrawDiagonal(brush overlayBrush, v float64) ([]byte, error)

	// Close releases the surface.
	Close() error
}

// overlay is the 2-D overlay path: the interop device sharing the command queue, one
// wrapped target and drawing surface per swap chain buffer, and the brush they share.
type overlay struct {
	device   *Ref[driver.OverlayDevice]
	targets  [BufferCount]*Ref[driver.WrappedTarget]
	surfaces [BufferCount]overlaySurface
	brush    overlayBrush
	step     int
}

// createOverlay creates the overlay device, brush and per-buffer targets. It is a no-op
// when the overlay is disabled or compiled out.
func (r *renderer) createOverlay() bool {
	if !r.overlayEnabled || !overlayCompiled {
		return true
	}
	o := &r.overlay
	if !o.device.Valid() {
		dev, err := r.device.Get().CreateOverlayDevice(r.queue.Get())
		if err != nil {
			return r.fail("overlay device", err)
		}
		o.device = NewRef(dev)
	}
	if o.brush == nil {
		o.brush = newOverlayBrush()
	}

	desc := r.swapChain.Get().Desc()
	for i := range o.targets {
		if o.targets[i].Valid() {
			continue
		}
		wt, err := o.device.Get().CreateWrappedTarget(r.renderTargets[i].Get(), desc.Width, desc.Height)
		if err != nil {
			return r.fail(fmt.Sprintf("overlay target %d", i), err)
		}
		surface, err := newOverlaySurface(desc.Width, desc.Height)
		if err != nil {
			wt.Release()
			return r.fail(fmt.Sprintf("overlay surface %d", i), err)
		}
		o.targets[i] = NewRef(wt)
		o.surfaces[i] = surface
	}
	return true
}

// renderOverlay draws this frame's overlay into the current buffer and flushes it to the
// shared queue. It runs after the main command list is submitted and before the fence
// signal. Caller must hold the mutex.
func (r *renderer) renderOverlay() error {
	o := &r.overlay
	target := o.targets[r.frameIndex]
	if !o.device.Valid() || !target.Valid() {
		return nil
	}

	o.step = o.step%overlaySteps + 1
	wt := target.Get()
	if err := wt.Acquire(); err != nil {
		return err
	}
	pix, err := o.surfaces[r.frameIndex].DrawDiagonal(o.brush, float64(o.step)/overlaySteps)
	if err == nil {
		err = wt.WritePixels(pix)
	}
	if uerr := wt.Unacquire(); err == nil {
		err = uerr
	}
	if err != nil {
		return err
	}
	return o.device.Get().Flush()
}

// releaseOverlayTarget releases the wrapped target and surface of buffer i.
func (r *renderer) releaseOverlayTarget(i int) {
	release(&r.overlay.targets[i])
	if s := r.overlay.surfaces[i]; s != nil {
		if err := s.Close(); err != nil {
			Logger().Debug("overlay surface close", "error", err)
		}
		r.overlay.surfaces[i] = nil
	}
}

func (r *renderer) releaseOverlayTargets() {
	for i := range BufferCount {
		r.releaseOverlayTarget(i)
	}
}

// releaseOverlayDevice releases the brush and the overlay device.
func (r *renderer) releaseOverlayDevice() {
	r.overlay.brush = nil
	release(&r.overlay.device)
}
