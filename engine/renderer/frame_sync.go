package renderer

import (
	"fmt"
)

// signalFence enqueues a GPU-side signal of the fence to the current fence value.
// It does not block. Caller must hold the mutex.
func (r *renderer) signalFence() {
	if err := r.queue.Get().Signal(r.fence.Get(), r.fenceValue); err != nil {
		panic(fmt.Sprintf("failed to signal fence %d: %v", r.fenceValue, err))
	}
}

// waitFence blocks until the GPU reaches the current fence value, then advances the
// value by one whether or not a wait was needed. Caller must hold the mutex.
func (r *renderer) waitFence() {
	f := r.fence.Get()
	if f.CompletedValue() < r.fenceValue {
		if err := f.SetEventOnCompletion(r.fenceValue, r.fenceEvent); err != nil {
			panic(fmt.Sprintf("failed to wait for fence %d: %v", r.fenceValue, err))
		}
		r.fenceEvent.Wait()
	}
	r.fenceValue++
}

// rebaseFence resets the fence to 0, the never-signaled value, and restarts pacing at 1
// so the next wait covers real work. The GPU must be idle. Caller must hold the mutex.
func (r *renderer) rebaseFence() {
	if err := r.fence.Get().Signal(0); err != nil {
		panic(fmt.Sprintf("failed to reset fence: %v", err))
	}
	r.fenceValue = 1
}
