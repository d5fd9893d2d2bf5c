package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/driver"
)

// lifecycleStep is one idempotent creation step of the object graph.
type lifecycleStep struct {
	name   string
	create func(*renderer) bool
}

// lifecycleSteps lists the creation steps in dependency order. Each step is a no-op
// for objects that already exist and a precondition of every later step.
var lifecycleSteps = []lifecycleStep{
	{"factory and adapter", (*renderer).createFactoryAndAdapter},
	{"device and queue", (*renderer).createDeviceAndQueue},
	{"swap chain", (*renderer).createSwapChain},
	{"descriptor heaps", (*renderer).createHeaps},
	{"render targets", (*renderer).createRenderTargets},
	{"command objects", (*renderer).createCommandObjects},
	{"fence", (*renderer).createFence},
	{"pipeline", (*renderer).createPipeline},
	{"depth buffer", (*renderer).createDepthBuffer},
	{"overlay", (*renderer).createOverlay},
}

// ensureAllObjectsValid runs every lifecycle step in order and stops at the first failure.
// Objects created by earlier steps are kept. Caller must hold the mutex.
func (r *renderer) ensureAllObjectsValid() bool {
	for _, step := range lifecycleSteps {
		if !step.create(r) {
			Logger().Warn("object graph incomplete", "step", step.name)
			return false
		}
	}
	return true
}

// fail logs a failed creation and reports it as a recoverable step failure.
func (r *renderer) fail(object string, err error) bool {
	Logger().Error("failed to create "+object, "error", err)
	return false
}

func (r *renderer) createFactoryAndAdapter() bool {
	if !r.factory.Valid() {
		f, err := r.drv.CreateFactory()
		if err != nil {
			return r.fail("factory", err)
		}
		r.factory = NewRef(f)
	}
	if !r.adapter.Valid() {
		res, err := ResolveAdapter(r.factory.Get(), r.forceSoftware)
		if err != nil {
			return r.fail("adapter", err)
		}
		r.adapter = NewRef(res.Adapter)
		r.featureLevel = res.FeatureLevel
		r.softwareFallback = res.SoftwareFallback
		Logger().Info("selected adapter",
			"backend", r.drv.Name(),
			"name", res.Adapter.Desc().Name,
			"featureLevel", res.FeatureLevel.String(),
			"softwareFallback", res.SoftwareFallback,
		)
	}
	return true
}

func (r *renderer) createDeviceAndQueue() bool {
	if !r.device.Valid() {
		dev, err := r.adapter.Get().CreateDevice(r.featureLevel)
		if err != nil {
			return r.fail("device", err)
		}
		r.device = NewRef(dev)
	}
	if !r.queue.Valid() {
		q, err := r.device.Get().CreateCommandQueue()
		if err != nil {
			return r.fail("command queue", err)
		}
		r.queue = NewRef(q)
	}
	return true
}

func (r *renderer) createSwapChain() bool {
	if r.swapChain.Valid() {
		return true
	}
	var flags driver.SwapChainFlags
	if !r.vsync {
		flags |= driver.SwapChainFlagAllowTearing
	}
	sc, err := r.factory.Get().CreateSwapChain(r.queue.Get(), driver.SwapChainDesc{
		BufferCount: BufferCount,
		Width:       r.width,
		Height:      r.height,
		Format:      backBufferFormat,
		Flags:       flags,
	})
	if err != nil {
		return r.fail("swap chain", err)
	}
	r.swapChain = NewRef(sc)
	r.frameIndex = sc.CurrentBackBufferIndex()

	desc := sc.Desc()
	r.width, r.height = desc.Width, desc.Height
	r.cam.SetAspect(float32(desc.Width) / float32(desc.Height))
	Logger().Debug("created swap chain", "width", desc.Width, "height", desc.Height, "vsync", r.vsync)
	return true
}

func (r *renderer) createHeaps() bool {
	heaps := []struct {
		slot **Ref[driver.DescriptorHeap]
		desc driver.DescriptorHeapDesc
	}{
		{&r.rtvHeap, driver.DescriptorHeapDesc{Type: driver.DescriptorHeapTypeRTV, NumDescriptors: BufferCount}},
		{&r.dsvHeap, driver.DescriptorHeapDesc{Type: driver.DescriptorHeapTypeDSV, NumDescriptors: 1}},
		{&r.srvHeap, driver.DescriptorHeapDesc{Type: driver.DescriptorHeapTypeSRV, NumDescriptors: 1, ShaderVisible: true}},
	}
	for _, h := range heaps {
		if (*h.slot).Valid() {
			continue
		}
		heap, err := r.device.Get().CreateDescriptorHeap(h.desc)
		if err != nil {
			return r.fail("descriptor heap", err)
		}
		*h.slot = NewRef(heap)
	}
	return true
}

// createRenderTargets creates one render target view per swap chain buffer. Creating any
// of them restarts frame pacing at buffer 0.
func (r *renderer) createRenderTargets() bool {
	created := false
	for i := range r.renderTargets {
		if r.renderTargets[i].Valid() {
			continue
		}
		buf, err := r.swapChain.Get().Buffer(i)
		if err != nil {
			return r.fail(fmt.Sprintf("render target %d", i), err)
		}
		if err := r.device.Get().CreateRenderTargetView(buf, r.rtvHeap.Get().Handle(i)); err != nil {
			buf.Release()
			return r.fail(fmt.Sprintf("render target view %d", i), err)
		}
		r.renderTargets[i] = NewRef(buf)
		created = true
	}
	if created {
		r.frameIndex = 0
		r.previousFrameIndex = 1
	}
	return true
}

func (r *renderer) createCommandObjects() bool {
	for i := range r.allocators {
		if r.allocators[i].Valid() {
			continue
		}
		alloc, err := r.device.Get().CreateCommandAllocator()
		if err != nil {
			return r.fail(fmt.Sprintf("command allocator %d", i), err)
		}
		r.allocators[i] = NewRef(alloc)
	}
	if r.commandList.Valid() {
		return true
	}
	list, err := r.device.Get().CreateCommandList(r.allocators[0].Get())
	if err != nil {
		return r.fail("command list", err)
	}
	if err := list.Close(); err != nil {
		list.Release()
		return r.fail("command list", err)
	}
	r.commandList = NewRef(list)
	return true
}

// createFence creates the frame fence. Value 0 means never signaled, so pacing starts at 1.
func (r *renderer) createFence() bool {
	if r.fence.Valid() {
		return true
	}
	f, err := r.device.Get().CreateFence(0)
	if err != nil {
		return r.fail("fence", err)
	}
	r.fence = NewRef(f)
	r.fenceValue = 1
	if r.fenceEvent == nil {
		r.fenceEvent = driver.NewEvent()
	}
	return true
}

// createPipeline creates the root signature and the pipeline state. The shaders are
// embedded and the layout is fixed, so any failure, a shader interface mismatch
// included, is a defect and panics.
func (r *renderer) createPipeline() bool {
	if !r.rootSignature.Valid() {
		rs, err := r.device.Get().CreateRootSignature(rootSignatureDesc)
		if err != nil {
			panic(fmt.Sprintf("failed to create root signature: %v", err))
		}
		r.rootSignature = NewRef(rs)
	}
	if r.pipelineState.Valid() {
		return true
	}

	vs := mustCompileShader(VertexShaderSource, vertexEntryPoint)
	ps := mustCompileShader(PixelShaderSource, pixelEntryPoint)
	if err := checkShaderInterface(vs, ps, rootSignatureDesc, VertexInputLayout); err != nil {
		panic(fmt.Sprintf("shader interface does not match the pipeline: %v", err))
	}
	pso, err := r.device.Get().CreatePipelineState(driver.PipelineStateDesc{
		RootSignature: r.rootSignature.Get(),
		VS:            vs,
		PS:            ps,
		InputLayout:   VertexInputLayout,
		VertexStride:  VertexSize,
		Blend:         driver.BlendDesc{Enabled: true, AlphaBlend: true},
		CullMode:      driver.CullModeNone,
		DepthStencil: driver.DepthStencilDesc{
			DepthEnable: true,
			DepthWrite:  true,
			DepthFunc:   driver.ComparisonLess,
		},
		Topology:    driver.PrimitiveTopologyTriangleList,
		RTVFormat:   backBufferFormat,
		DSVFormat:   depthFormat,
		SampleCount: 1,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to create pipeline state: %v", err))
	}
	r.pipelineState = NewRef(pso)
	return true
}

func (r *renderer) createDepthBuffer() bool {
	if r.depthBuffer.Valid() {
		return true
	}
	desc := r.swapChain.Get().Desc()
	depth, err := r.device.Get().CreateCommittedResource(driver.ResourceDesc{
		Label:     "depth",
		Dimension: driver.ResourceDimensionTexture2D,
		Heap:      driver.HeapTypeDefault,
		Width:     uint64(desc.Width),
		Height:    desc.Height,
		Format:    depthFormat,
		Flags:     driver.ResourceFlagAllowDepthStencil,
	}, driver.ResourceStateDepthWrite)
	if err != nil {
		return r.fail("depth buffer", err)
	}
	if err := r.device.Get().CreateDepthStencilView(depth, r.dsvHeap.Get().Handle(0)); err != nil {
		depth.Release()
		return r.fail("depth stencil view", err)
	}
	r.depthBuffer = NewRef(depth)
	return true
}

// releaseSizeDependent releases every object sized to the swap chain, in reverse
// dependency order. Caller must hold the mutex and have drained the GPU.
func (r *renderer) releaseSizeDependent() {
	r.releaseOverlayTargets()
	r.releaseOverlayDevice()
	for i := range r.renderTargets {
		release(&r.renderTargets[i])
	}
	release(&r.depthBuffer)
}

// releaseAll releases the whole object graph in reverse creation order. Caller must
// hold the mutex and have drained the GPU if it is still usable.
func (r *renderer) releaseAll() {
	for i := range BufferCount {
		release(&r.allocators[i])
		release(&r.renderTargets[i])
		r.releaseOverlayTarget(i)
	}
	r.releaseOverlayDevice()

	release(&r.fence)
	release(&r.depthBuffer)
	release(&r.dsvHeap)
	release(&r.pipelineState)
	release(&r.srvHeap)
	release(&r.rtvHeap)
	release(&r.texture)
	release(&r.indexBuffer)
	release(&r.vertexBuffer)
	release(&r.rootSignature)
	release(&r.commandList)
	release(&r.queue)
	release(&r.device)
	release(&r.swapChain)
	release(&r.adapter)
	release(&r.factory)

	r.vertexBufferView = driver.VertexBufferView{}
	r.indexBufferView = driver.IndexBufferView{}
	r.indexCount = 0
}
