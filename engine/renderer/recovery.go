package renderer

import (
	"fmt"
)

func (r *renderer) OnResize(width, height uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || (width == r.width && height == r.height) {
		return
	}
	r.width, r.height = width, height

	if !r.swapChain.Valid() || width == 0 || height == 0 {
		return
	}

	if r.queue.Valid() && r.fence.Valid() {
		r.signalFence()
		r.waitFence()
	}
	r.releaseSizeDependent()
	if r.fence.Valid() {
		r.rebaseFence()
	}

	sc := r.swapChain.Get()
	desc := sc.Desc()
	if err := sc.ResizeBuffers(BufferCount, width, height, desc.Format, desc.Flags); err != nil {
		panic(fmt.Sprintf("failed to resize swap chain to %dx%d: %v", width, height, err))
	}
	r.cam.SetAspect(float32(width) / float32(height))
	r.resizes.Add(1)
	Logger().Debug("resized swap chain", "width", width, "height", height)
}

// deviceLost releases the entire object graph, the device and factory included, and
// rebuilds it. The GPU is not drained; a lost device retires nothing. An incomplete
// rebuild is retried by the next frame. Caller must hold the mutex.
func (r *renderer) deviceLost() {
	r.deviceLosses.Add(1)
	Logger().Warn("device lost, rebuilding", "losses", r.deviceLosses.Load())
	r.releaseAll()
	r.ensureAllObjectsValid()
}
