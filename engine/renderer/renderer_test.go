package renderer

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-frame/engine/camera"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/driver"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/driver/drivertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(t *testing.T, drv *drivertest.Driver, options ...RendererBuilderOption) *renderer {
	t.Helper()
	r := NewRenderer(drv, options...).(*renderer)
	t.Cleanup(r.Close)
	return r
}

// releasedSince returns the labels released after the first n entries of the release log.
func releasedSince(drv *drivertest.Driver, n int) []string {
	return drv.ReleaseLog()[n:]
}

func assertGraphValid(t *testing.T, r *renderer) {
	t.Helper()
	assert.True(t, r.factory.Valid(), "factory")
	assert.True(t, r.adapter.Valid(), "adapter")
	assert.True(t, r.device.Valid(), "device")
	assert.True(t, r.queue.Valid(), "queue")
	assert.True(t, r.swapChain.Valid(), "swap chain")
	assert.True(t, r.rtvHeap.Valid(), "rtv heap")
	assert.True(t, r.dsvHeap.Valid(), "dsv heap")
	assert.True(t, r.srvHeap.Valid(), "srv heap")
	for i := range BufferCount {
		assert.True(t, r.renderTargets[i].Valid(), "render target %d", i)
		assert.True(t, r.allocators[i].Valid(), "allocator %d", i)
	}
	assert.True(t, r.commandList.Valid(), "command list")
	assert.True(t, r.fence.Valid(), "fence")
	assert.True(t, r.rootSignature.Valid(), "root signature")
	assert.True(t, r.pipelineState.Valid(), "pipeline state")
	assert.True(t, r.depthBuffer.Valid(), "depth buffer")
}

func TestValidateAndCreateObjectsIsIdempotent(t *testing.T) {
	drv := drivertest.New()
	r := newTestRenderer(t, drv)

	require.True(t, r.ValidateAndCreateObjects())
	assertGraphValid(t, r)
	assert.Equal(t, uint64(1), r.fenceValue)

	before := drv.Totals()
	for range 3 {
		require.True(t, r.ValidateAndCreateObjects())
	}
	assert.Equal(t, before, drv.Totals())
	assert.Empty(t, drv.Violations())
}

func TestStepFailureShortCircuitsAndRetries(t *testing.T) {
	drv := drivertest.New()
	r := newTestRenderer(t, drv)

	drv.FailNext(drivertest.KindFence, errors.New("out of memory"))
	require.False(t, r.ValidateAndCreateObjects())

	assert.True(t, r.commandList.Valid())
	assert.False(t, r.fence.Valid())
	assert.False(t, r.rootSignature.Valid())
	assert.Equal(t, 0, drv.Created(drivertest.KindPipelineState))

	require.True(t, r.ValidateAndCreateObjects())
	assertGraphValid(t, r)
	assert.Equal(t, 1, drv.Created(drivertest.KindDevice))
	assert.Equal(t, 1, drv.Created(drivertest.KindSwapChain))
	assert.Equal(t, 1, drv.Created(drivertest.KindCommandList))
}

func TestPipelineStateFailurePanics(t *testing.T) {
	drv := drivertest.New()
	r := newTestRenderer(t, drv)

	drv.FailNext(drivertest.KindPipelineState, errors.New("invalid pipeline"))
	assert.Panics(t, func() { r.ValidateAndCreateObjects() })
}

func TestRenderAllFailsWhenGraphInvalid(t *testing.T) {
	drv := drivertest.New(drivertest.WithAdapters(), drivertest.WithSoftwareAdapter(nil))
	r := newTestRenderer(t, drv)

	assert.False(t, r.RenderAll())
	assert.False(t, r.ValidateAndCreateObjects())
	assert.Equal(t, 0, drv.Presents())
}

func TestOnResizeUnchangedIsNoOp(t *testing.T) {
	drv := drivertest.New(drivertest.WithSurfaceSize(800, 600))
	r := newTestRenderer(t, drv, WithOverlay(true))
	require.True(t, r.ValidateAndCreateObjects())

	before := drv.Totals()
	r.OnResize(800, 600)
	r.OnResize(800, 600)

	assert.Equal(t, before, drv.Totals())
	assert.Equal(t, 0, drv.ResizeCalls())
	assert.Equal(t, uint64(1), r.fenceValue)
}

func TestOnResizeZeroAreaIsIgnored(t *testing.T) {
	drv := drivertest.New()
	r := newTestRenderer(t, drv)
	require.True(t, r.ValidateAndCreateObjects())
	before := drv.Totals()

	for _, size := range [][2]uint32{{0, 0}, {0, 600}, {800, 0}} {
		r.OnResize(size[0], size[1])
	}

	assert.Equal(t, 0, drv.ResizeCalls())
	assert.Equal(t, before, drv.Totals())
	desc := r.swapChain.Get().Desc()
	assert.Equal(t, uint32(1280), desc.Width)
	assert.Equal(t, uint32(720), desc.Height)
	assert.True(t, r.RenderAll())
}

func TestOnResizeReleasesSizeDependentObjects(t *testing.T) {
	if !overlayCompiled {
		t.Skip("overlay compiled out")
	}
	drv := drivertest.New()
	r := newTestRenderer(t, drv, WithOverlay(true))
	require.True(t, r.RenderAll())
	mark := len(drv.ReleaseLog())
	heaps := r.rtvHeap

	r.OnResize(800, 600)

	assert.Equal(t, []string{
		"wrapped0", "wrapped1", "overlay",
		"resource:backbuffer0", "resource:backbuffer1",
		"resource:depth",
	}, releasedSince(drv, mark))
	assert.Equal(t, 1, drv.ResizeCalls())
	assert.Equal(t, uint64(1), r.fenceValue)
	assert.Equal(t, uint64(0), r.fence.Get().CompletedValue())
	assert.Equal(t, heaps, r.rtvHeap)
	assert.True(t, r.pipelineState.Valid())

	desc := r.swapChain.Get().Desc()
	assert.Equal(t, uint32(800), desc.Width)
	assert.Equal(t, uint32(600), desc.Height)
	assert.Equal(t, BufferCount, desc.BufferCount)
	assert.Equal(t, backBufferFormat, desc.Format)

	require.True(t, r.RenderAll())
	assertGraphValid(t, r)
	assert.Equal(t, 2, drv.Live(drivertest.KindWrappedTarget))
	assert.Equal(t, uint64(1), r.Stats().Resizes)
	assert.Empty(t, drv.Violations())
}

func TestFirstFrameAfterResizeWaitsForGPU(t *testing.T) {
	drv := drivertest.New()
	r := newTestRenderer(t, drv)
	require.True(t, r.RenderAll())

	r.OnResize(800, 600)
	drv.HoldSignals()

	done := make(chan bool)
	go func() {
		done <- r.RenderAll()
	}()

	select {
	case <-done:
		t.Fatal("RenderAll returned before its GPU work completed")
	case <-time.After(50 * time.Millisecond):
	}

	drv.ReleaseSignals()
	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("RenderAll did not return after the fence was signaled")
	}
	assert.Equal(t, uint64(2), r.Stats().FenceValue)
	assert.Equal(t, uint64(1), r.fence.Get().CompletedValue())
	assert.Empty(t, drv.Violations())
}

func TestOnResizeBeforeSwapChainOnlyRecordsSize(t *testing.T) {
	drv := drivertest.New()
	r := newTestRenderer(t, drv)

	r.OnResize(640, 480)
	require.True(t, r.ValidateAndCreateObjects())

	desc := r.swapChain.Get().Desc()
	assert.Equal(t, uint32(640), desc.Width)
	assert.Equal(t, uint32(480), desc.Height)
	assert.Equal(t, 0, drv.ResizeCalls())
}

func TestWaitFenceAdvancesOncePerCall(t *testing.T) {
	drv := drivertest.New()
	r := newTestRenderer(t, drv)
	require.True(t, r.ValidateAndCreateObjects())

	prev := r.fenceValue
	for range 5 {
		r.signalFence()
		r.waitFence()
		assert.Equal(t, prev+1, r.fenceValue)
		assert.GreaterOrEqual(t, r.fence.Get().CompletedValue(), prev)
		prev = r.fenceValue
	}
}

func TestWaitFenceBlocksUntilGPUCompletes(t *testing.T) {
	drv := drivertest.New()
	r := newTestRenderer(t, drv)
	require.True(t, r.ValidateAndCreateObjects())

	drv.HoldSignals()
	r.signalFence()
	target := r.fenceValue

	done := make(chan struct{})
	go func() {
		r.waitFence()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("waitFence returned before the fence was signaled")
	case <-time.After(50 * time.Millisecond):
	}

	drv.ReleaseSignals()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("waitFence did not return after the fence was signaled")
	}
	assert.Equal(t, target+1, r.fenceValue)
	assert.Equal(t, 1, r.fence.Get().(interface{ Waits() int }).Waits())
}

func TestWaitFenceSkipsWaitWhenAlreadyComplete(t *testing.T) {
	drv := drivertest.New()
	r := newTestRenderer(t, drv)
	require.True(t, r.ValidateAndCreateObjects())

	r.signalFence()
	require.Eventually(t, func() bool {
		return r.fence.Get().CompletedValue() >= r.fenceValue
	}, 2*time.Second, time.Millisecond)

	before := r.fenceValue
	r.waitFence()
	assert.Equal(t, before+1, r.fenceValue)
	assert.Equal(t, 0, r.fence.Get().(interface{ Waits() int }).Waits())
}

func TestFenceValueStrictlyIncreasesAcrossFrames(t *testing.T) {
	drv := drivertest.New()
	r := newTestRenderer(t, drv)

	var last uint64
	for range 8 {
		require.True(t, r.RenderAll())
		v := r.Stats().FenceValue
		assert.Greater(t, v, last)
		last = v
	}
}

func TestFrameIndexCyclesThroughBuffers(t *testing.T) {
	drv := drivertest.New()
	r := newTestRenderer(t, drv)
	require.True(t, r.ValidateAndCreateObjects())
	require.Equal(t, 0, r.frameIndex)
	require.Equal(t, 1, r.previousFrameIndex)

	var indices []int
	for range 6 {
		before := r.frameIndex
		require.True(t, r.RenderAll())
		assert.Equal(t, before, r.previousFrameIndex)
		indices = append(indices, r.frameIndex)
	}
	assert.Equal(t, []int{1, 0, 1, 0, 1, 0}, indices)

	draws := drv.Draws()
	require.Len(t, draws, 6)
	for i, d := range draws {
		assert.Equal(t, i%BufferCount, d.BackBuffer)
		assert.Equal(t, uint32(36), d.IndexCount)
		assert.Equal(t, uint32(1), d.InstanceCount)
		assert.Len(t, d.Constants, DrawConstantsSize)
	}
	assert.Empty(t, drv.Violations())
}

func TestDeviceLostRebuildsEverything(t *testing.T) {
	drv := drivertest.New()
	r := newTestRenderer(t, drv)
	require.True(t, r.RenderAll())

	oldDevice, oldSwapChain, oldFence, oldTexture := r.device, r.swapChain, r.fence, r.texture
	oldTargets := r.renderTargets
	mark := len(drv.ReleaseLog())

	drv.FailNextPresent(driver.ErrDeviceRemoved)
	require.True(t, r.RenderAll())

	assert.Equal(t, []string{
		"allocator", "resource:backbuffer0",
		"allocator", "resource:backbuffer1",
		"fence", "resource:depth", "heap:dsv", "pso", "heap:srv", "heap:rtv",
		"resource:texture", "resource:indices", "resource:vertices",
		"rootsig", "list", "queue", "device", "swapchain",
		"adapter:Fake GPU", "factory",
	}, releasedSince(drv, mark))

	assert.False(t, oldDevice.Valid())
	assert.False(t, oldSwapChain.Valid())
	assert.False(t, oldFence.Valid())
	assert.False(t, oldTexture.Valid())
	for _, rt := range oldTargets {
		assert.False(t, rt.Valid())
	}
	assertGraphValid(t, r)
	assert.Equal(t, 1, drv.Live(drivertest.KindDevice))
	assert.Equal(t, 1, drv.Live(drivertest.KindFactory))
	assert.Equal(t, uint64(1), r.Stats().DeviceLosses)

	require.True(t, r.RenderAll())
	assert.True(t, r.texture.Valid())
	assert.Empty(t, drv.Violations())
}

func TestDeviceResetIsRecovered(t *testing.T) {
	drv := drivertest.New()
	r := newTestRenderer(t, drv)
	require.True(t, r.RenderAll())

	drv.FailNextPresent(driver.ErrDeviceReset)
	assert.True(t, r.RenderAll())
	assert.True(t, r.RenderAll())
	assert.Equal(t, uint64(1), r.Stats().DeviceLosses)
	assert.Equal(t, 2, drv.Created(drivertest.KindDevice))
}

func TestPresentIntervalFollowsVSync(t *testing.T) {
	tests := []struct {
		name  string
		vsync bool
		want  int
	}{
		{name: "vsync", vsync: true, want: 1},
		{name: "uncapped", vsync: false, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drv := drivertest.New()
			r := newTestRenderer(t, drv, WithVSync(tt.vsync))
			for range 3 {
				require.True(t, r.RenderAll())
			}
			assert.Equal(t, []int{tt.want, tt.want, tt.want}, drv.SyncIntervals())
		})
	}
}

func TestRenderAllPushesLatestCameraSnapshot(t *testing.T) {
	drv := drivertest.New()
	cam := camera.NewCamera()
	r := newTestRenderer(t, drv, WithCamera(cam))

	r.Update(0.75)
	snap := cam.Mailbox().Latest()
	require.True(t, r.RenderAll())

	want := NewDrawConstants(snap.Projection, snap.View)
	draws := drv.Draws()
	require.Len(t, draws, 1)
	assert.Equal(t, want.Marshal(), draws[0].Constants)
}

func TestUpdateDoesNotTakeTheRenderLock(t *testing.T) {
	r := newTestRenderer(t, drivertest.New())

	r.mu.Lock()
	done := make(chan struct{})
	go func() {
		r.Update(0.016)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Update blocked on the render lock")
	}
	r.mu.Unlock()
	assert.Equal(t, uint64(1), r.cam.Mailbox().Latest().Seq)
}

func TestOverlayDrawsEveryFrame(t *testing.T) {
	if !overlayCompiled {
		t.Skip("overlay compiled out")
	}
	drv := drivertest.New()
	r := newTestRenderer(t, drv, WithOverlay(true))

	for range 3 {
		require.True(t, r.RenderAll())
	}
	assert.Equal(t, 3, drv.OverlayPixelWrites())
	assert.Equal(t, 3, drv.OverlayFlushes())
	assert.Equal(t, 1, drv.Live(drivertest.KindOverlayDevice))
	assert.Equal(t, 2, drv.Live(drivertest.KindWrappedTarget))
	assert.Equal(t, 3, r.overlay.step)
	assert.Empty(t, drv.Violations())
}

func TestOverlayDisabledByDefault(t *testing.T) {
	drv := drivertest.New()
	r := newTestRenderer(t, drv)

	require.True(t, r.RenderAll())
	assert.Equal(t, 0, drv.Created(drivertest.KindOverlayDevice))
	assert.Equal(t, 0, drv.OverlayFlushes())
}

func TestOverlayTeardownOnDeviceLost(t *testing.T) {
	if !overlayCompiled {
		t.Skip("overlay compiled out")
	}
	drv := drivertest.New()
	r := newTestRenderer(t, drv, WithOverlay(true))
	require.True(t, r.RenderAll())
	mark := len(drv.ReleaseLog())

	drv.FailNextPresent(driver.ErrDeviceRemoved)
	require.True(t, r.RenderAll())

	assert.Equal(t, []string{
		"allocator", "resource:backbuffer0", "wrapped0",
		"allocator", "resource:backbuffer1", "wrapped1",
		"overlay", "fence",
	}, releasedSince(drv, mark)[:8])
	assert.Equal(t, 1, drv.Live(drivertest.KindOverlayDevice))
}

func TestCloseDrainsAndReleasesEverything(t *testing.T) {
	drv := drivertest.New()
	r := NewRenderer(drv, WithOverlay(true)).(*renderer)
	require.True(t, r.RenderAll())
	require.True(t, r.RenderAll())
	fence := r.fence.Get()
	target := r.fenceValue

	r.Close()

	assert.GreaterOrEqual(t, fence.CompletedValue(), target)
	totals := drv.Totals()
	assert.Equal(t, totals.Created, totals.Released)
	assert.False(t, r.RenderAll())
	assert.False(t, r.ValidateAndCreateObjects())
	assert.NotPanics(t, r.Close)
	assert.Empty(t, drv.Violations())
}

func TestEndToEndScenario(t *testing.T) {
	drv := drivertest.New()
	r := newTestRenderer(t, drv)

	require.True(t, r.ValidateAndCreateObjects())
	assertGraphValid(t, r)

	var indices []int
	for range 10 {
		require.True(t, r.RenderAll())
		indices = append(indices, r.Stats().FrameIndex)
	}
	assert.Equal(t, []int{1, 0, 1, 0, 1, 0, 1, 0, 1, 0}, indices)

	r.OnResize(800, 600)
	require.Equal(t, 1, drv.ResizeCalls())
	before := drv.Totals()
	r.OnResize(800, 600)
	assert.Equal(t, 1, drv.ResizeCalls())
	assert.Equal(t, before, drv.Totals())

	r.OnResize(0, 0)
	assert.Equal(t, 1, drv.ResizeCalls())
	assert.Equal(t, uint32(800), r.swapChain.Get().Desc().Width)

	drv.FailNextPresent(driver.ErrDeviceRemoved)
	assert.True(t, r.RenderAll())
	assert.True(t, r.RenderAll())
	assertGraphValid(t, r)
	assert.Empty(t, drv.Violations())
}

func TestConcurrentResizeAndRender(t *testing.T) {
	drv := drivertest.New()
	r := newTestRenderer(t, drv, WithOverlay(true), WithVSync(false))
	require.True(t, r.ValidateAndCreateObjects())

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for range 40 {
			assert.True(t, r.RenderAll())
		}
	}()
	go func() {
		defer wg.Done()
		sizes := [][2]uint32{{800, 600}, {1024, 768}, {0, 0}, {640, 480}}
		for i := range 40 {
			s := sizes[i%len(sizes)]
			r.OnResize(s[0], s[1])
		}
	}()
	go func() {
		defer wg.Done()
		for range 200 {
			r.Update(0.001)
		}
	}()
	wg.Wait()

	assert.True(t, r.RenderAll())
	assert.Empty(t, drv.Violations())
}
