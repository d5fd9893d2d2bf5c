package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/driver"
)

func (r *renderer) RenderAll() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}

	if !r.ensureAllObjectsValid() {
		return false
	}
	if !r.loadAssets() {
		return false
	}

	r.recordFrame()
	r.queue.Get().ExecuteCommandLists(r.commandList.Get())
	if err := r.renderOverlay(); err != nil {
		Logger().Error("overlay frame dropped", "error", err)
	}

	r.signalFence()

	syncInterval := 0
	if r.vsync {
		syncInterval = 1
	}
	if err := r.swapChain.Get().Present(syncInterval); err != nil {
		if !driver.IsDeviceLost(err) {
			panic(fmt.Sprintf("failed to present: %v", err))
		}
		r.deviceLost()
		return true
	}

	r.waitFence()

	r.previousFrameIndex = r.frameIndex
	r.frameIndex = r.swapChain.Get().CurrentBackBufferIndex()
	r.frames.Add(1)
	return true
}

// recordFrame records the frame's single command list against the allocator of the
// current buffer. The previous frame was fully drained, so the allocator is idle.
// Caller must hold the mutex.
func (r *renderer) recordFrame() {
	alloc := r.allocators[r.frameIndex].Get()
	list := r.commandList.Get()
	if err := alloc.Reset(); err != nil {
		panic(fmt.Sprintf("failed to reset command allocator %d: %v", r.frameIndex, err))
	}
	if err := list.Reset(alloc, r.pipelineState.Get()); err != nil {
		panic(fmt.Sprintf("failed to reset command list: %v", err))
	}

	desc := r.swapChain.Get().Desc()
	target := r.renderTargets[r.frameIndex].Get()
	rtv := r.rtvHeap.Get().Handle(r.frameIndex)
	dsv := r.dsvHeap.Get().Handle(0)

	list.SetGraphicsRootSignature(r.rootSignature.Get())
	list.SetPipelineState(r.pipelineState.Get())
	list.SetDescriptorHeaps(r.srvHeap.Get())
	list.SetGraphicsRootDescriptorTable(rootParamTexture, r.srvHeap.Get().Handle(0))
	list.RSSetViewports(driver.Viewport{
		Width:    float32(desc.Width),
		Height:   float32(desc.Height),
		MaxDepth: 1,
	})
	list.RSSetScissorRects(driver.Rect{Right: int32(desc.Width), Bottom: int32(desc.Height)})

	list.ResourceBarrier(driver.Barrier{
		Resource: target,
		Before:   driver.ResourceStateCommon,
		After:    driver.ResourceStateRenderTarget,
	})
	list.OMSetRenderTargets(rtv, &dsv)
	list.ClearDepthStencilView(dsv, 1)
	list.ClearRenderTargetView(rtv, r.clearColor)

	snap := r.cam.Mailbox().Latest()
	constants := NewDrawConstants(snap.Projection, snap.View)
	list.SetGraphicsRoot32BitConstants(rootParamConstants, constants.Marshal(), 0)

	list.IASetPrimitiveTopology(driver.PrimitiveTopologyTriangleList)
	list.IASetVertexBuffers(r.vertexBufferView)
	list.IASetIndexBuffer(&r.indexBufferView)
	list.DrawIndexedInstanced(r.indexCount, 1, 0, 0, 0)

	list.ResourceBarrier(driver.Barrier{
		Resource: target,
		Before:   driver.ResourceStateRenderTarget,
		After:    driver.ResourceStatePresent,
	})
	if err := list.Close(); err != nil {
		panic(fmt.Sprintf("failed to close command list: %v", err))
	}
}
