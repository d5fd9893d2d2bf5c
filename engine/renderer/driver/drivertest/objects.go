package drivertest

import (
	"encoding/binary"
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/driver"
)

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

type factory struct {
	base
}

func (f *factory) EnumAdapters() []driver.Adapter {
	f.d.mu.Lock()
	specs := append([]AdapterSpec(nil), f.d.adapters...)
	f.d.mu.Unlock()

	out := make([]driver.Adapter, 0, len(specs))
	for _, spec := range specs {
		a := &adapter{spec: spec}
		f.d.track(&a.base, KindAdapter, "adapter:"+spec.Name)
		out = append(out, a)
	}
	return out
}

func (f *factory) SoftwareAdapter() (driver.Adapter, error) {
	f.d.mu.Lock()
	spec := f.d.software
	f.d.mu.Unlock()
	if spec == nil {
		return nil, driver.ErrNoAdapter
	}
	a := &adapter{spec: *spec}
	a.spec.Software = true
	f.d.track(&a.base, KindAdapter, "adapter:"+spec.Name)
	return a, nil
}

func (f *factory) CreateSwapChain(q driver.CommandQueue, desc driver.SwapChainDesc) (driver.SwapChain, error) {
	if !f.checkLive("CreateSwapChain") {
		return nil, driver.ErrReleased
	}
	if err := f.d.takeFailure(KindSwapChain); err != nil {
		return nil, err
	}
	if q == nil {
		return nil, fmt.Errorf("drivertest: swap chain needs a queue")
	}
	if desc.Width == 0 || desc.Height == 0 {
		f.d.mu.Lock()
		desc.Width, desc.Height = f.d.surfaceWidth, f.d.surfaceHeight
		f.d.mu.Unlock()
	}
	sc := &swapChain{desc: desc}
	f.d.track(&sc.base, KindSwapChain, "swapchain")
	return sc, nil
}

type adapter struct {
	base
	spec AdapterSpec
}

func (a *adapter) Desc() driver.AdapterDesc {
	return driver.AdapterDesc{Name: a.spec.Name, Software: a.spec.Software}
}

func (a *adapter) Probe(level driver.FeatureLevel) bool {
	return slices.Contains(a.spec.Levels, level)
}

func (a *adapter) CreateDevice(level driver.FeatureLevel) (driver.Device, error) {
	if !a.checkLive("CreateDevice") {
		return nil, driver.ErrReleased
	}
	if !a.Probe(level) {
		return nil, driver.ErrUnsupportedFeatureLevel
	}
	if err := a.d.takeFailure(KindDevice); err != nil {
		return nil, err
	}
	dev := &device{level: level}
	a.d.track(&dev.base, KindDevice, "device")
	return dev, nil
}

type device struct {
	base
	level driver.FeatureLevel
}

func (dv *device) create(kind Kind) error {
	if !dv.checkLive("create " + string(kind)) {
		return driver.ErrReleased
	}
	return dv.d.takeFailure(kind)
}

func (dv *device) CreateCommandQueue() (driver.CommandQueue, error) {
	if err := dv.create(KindQueue); err != nil {
		return nil, err
	}
	q := &queue{}
	dv.d.track(&q.base, KindQueue, "queue")
	dv.d.mu.Lock()
	dv.d.queues = append(dv.d.queues, q)
	dv.d.mu.Unlock()
	return q, nil
}

func (dv *device) CreateDescriptorHeap(desc driver.DescriptorHeapDesc) (driver.DescriptorHeap, error) {
	if err := dv.create(KindDescriptorHeap); err != nil {
		return nil, err
	}
	if desc.NumDescriptors <= 0 {
		return nil, fmt.Errorf("drivertest: heap needs at least one descriptor")
	}
	h := &heap{desc: desc, slots: make([]any, desc.NumDescriptors)}
	names := map[driver.DescriptorHeapType]string{
		driver.DescriptorHeapTypeRTV: "heap:rtv",
		driver.DescriptorHeapTypeDSV: "heap:dsv",
		driver.DescriptorHeapTypeSRV: "heap:srv",
	}
	dv.d.track(&h.base, KindDescriptorHeap, names[desc.Type])
	return h, nil
}

func (dv *device) CreateCommandAllocator() (driver.CommandAllocator, error) {
	if err := dv.create(KindCommandAllocator); err != nil {
		return nil, err
	}
	a := &allocator{}
	dv.d.track(&a.base, KindCommandAllocator, "allocator")
	return a, nil
}

func (dv *device) CreateCommandList(alloc driver.CommandAllocator) (driver.GraphicsCommandList, error) {
	if err := dv.create(KindCommandList); err != nil {
		return nil, err
	}
	a, ok := alloc.(*allocator)
	if !ok || a == nil {
		return nil, fmt.Errorf("drivertest: command list needs an allocator")
	}
	l := &commandList{alloc: a, open: true}
	dv.d.track(&l.base, KindCommandList, "list")
	return l, nil
}

func (dv *device) CreateFence(initial uint64) (driver.Fence, error) {
	if err := dv.create(KindFence); err != nil {
		return nil, err
	}
	f := &fence{completed: initial}
	dv.d.track(&f.base, KindFence, "fence")
	return f, nil
}

func (dv *device) CreateRootSignature(desc driver.RootSignatureDesc) (driver.RootSignature, error) {
	if err := dv.create(KindRootSignature); err != nil {
		return nil, err
	}
	if len(desc.Parameters) == 0 {
		return nil, fmt.Errorf("drivertest: empty root signature")
	}
	rs := &rootSignature{desc: desc}
	dv.d.track(&rs.base, KindRootSignature, "rootsig")
	return rs, nil
}

func (dv *device) CreatePipelineState(desc driver.PipelineStateDesc) (driver.PipelineState, error) {
	if err := dv.create(KindPipelineState); err != nil {
		return nil, err
	}
	if desc.RootSignature == nil {
		return nil, fmt.Errorf("drivertest: pipeline state needs a root signature")
	}
	for _, bc := range []driver.ShaderBytecode{desc.VS, desc.PS} {
		if len(bc.Code) < 20 || binary.LittleEndian.Uint32(bc.Code) != spirvMagic {
			return nil, fmt.Errorf("drivertest: %q is not SPIR-V byte-code", bc.EntryPoint)
		}
	}
	p := &pipelineState{desc: desc}
	dv.d.track(&p.base, KindPipelineState, "pso")
	return p, nil
}

func (dv *device) CreateCommittedResource(desc driver.ResourceDesc, initial driver.ResourceState) (driver.Resource, error) {
	if err := dv.create(KindResource); err != nil {
		return nil, err
	}
	r := &resource{desc: desc, state: initial}
	if desc.Heap == driver.HeapTypeUpload {
		r.data = make([]byte, desc.Width)
	}
	dv.d.track(&r.base, KindResource, "resource:"+desc.Label)
	return r, nil
}

func (dv *device) writeView(res driver.Resource, dst driver.DescriptorHandle, want driver.DescriptorHeapType) error {
	if !dv.checkLive("create view") {
		return driver.ErrReleased
	}
	h, ok := dst.Heap.(*heap)
	if !ok || h == nil {
		return fmt.Errorf("drivertest: view needs a heap")
	}
	if h.desc.Type != want {
		return fmt.Errorf("drivertest: wrong heap type %d for view", h.desc.Type)
	}
	if dst.Index < 0 || dst.Index >= len(h.slots) {
		return fmt.Errorf("drivertest: descriptor index %d out of range", dst.Index)
	}
	h.slots[dst.Index] = res
	return nil
}

func (dv *device) CreateRenderTargetView(res driver.Resource, dst driver.DescriptorHandle) error {
	return dv.writeView(res, dst, driver.DescriptorHeapTypeRTV)
}

func (dv *device) CreateDepthStencilView(res driver.Resource, dst driver.DescriptorHandle) error {
	return dv.writeView(res, dst, driver.DescriptorHeapTypeDSV)
}

func (dv *device) CreateShaderResourceView(res driver.Resource, dst driver.DescriptorHandle) error {
	return dv.writeView(res, dst, driver.DescriptorHeapTypeSRV)
}

func (dv *device) CreateOverlayDevice(q driver.CommandQueue) (driver.OverlayDevice, error) {
	if err := dv.create(KindOverlayDevice); err != nil {
		return nil, err
	}
	o := &overlayDevice{}
	dv.d.track(&o.base, KindOverlayDevice, "overlay")
	return o, nil
}

type signalOp struct {
	fence  *fence
	value  uint64
	allocs []*allocator
}

type queue struct {
	base

	mu       sync.Mutex
	drainMu  sync.Mutex
	pending  []signalOp
	executed []*allocator
}

func (q *queue) ExecuteCommandLists(lists ...driver.GraphicsCommandList) {
	if !q.checkLive("ExecuteCommandLists") {
		return
	}
	for _, gl := range lists {
		l := gl.(*commandList)
		if l.open {
			q.d.violate("execute of open command list")
			continue
		}
		l.alloc.setInFlight(true)
		q.mu.Lock()
		q.executed = append(q.executed, l.alloc)
		q.mu.Unlock()

		q.d.mu.Lock()
		q.d.draws = append(q.d.draws, l.draws...)
		q.d.mu.Unlock()
		l.draws = nil
	}
}

func (q *queue) Signal(f driver.Fence, value uint64) error {
	if !q.checkLive("Signal") {
		return driver.ErrReleased
	}
	ff, ok := f.(*fence)
	if !ok {
		return fmt.Errorf("drivertest: foreign fence")
	}
	q.mu.Lock()
	q.pending = append(q.pending, signalOp{fence: ff, value: value, allocs: q.executed})
	q.executed = nil
	q.mu.Unlock()

	if !q.d.isHeld() {
		go q.drain()
	}
	return nil
}

// drain completes pending signals in submission order.
func (q *queue) drain() {
	q.drainMu.Lock()
	defer q.drainMu.Unlock()
	if q.d.isHeld() {
		return
	}

	q.mu.Lock()
	ops := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, op := range ops {
		for _, a := range op.allocs {
			a.setInFlight(false)
		}
		op.fence.complete(op.value)
	}
}

type fenceWaiter struct {
	value uint64
	ev    *driver.Event
}

type fence struct {
	base

	mu        sync.Mutex
	completed uint64
	waiters   []fenceWaiter
	waits     int
}

func (f *fence) CompletedValue() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}

func (f *fence) SetEventOnCompletion(value uint64, ev *driver.Event) error {
	if !f.checkLive("SetEventOnCompletion") {
		return driver.ErrReleased
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completed >= value {
		ev.Set()
		return nil
	}
	f.waits++
	f.waiters = append(f.waiters, fenceWaiter{value: value, ev: ev})
	return nil
}

func (f *fence) Signal(value uint64) error {
	if !f.checkLive("fence Signal") {
		return driver.ErrReleased
	}
	f.complete(value)
	return nil
}

// Waits returns how many SetEventOnCompletion calls had to wait.
func (f *fence) Waits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.waits
}

func (f *fence) complete(value uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = value
	kept := f.waiters[:0]
	for _, w := range f.waiters {
		if w.value <= value {
			w.ev.Set()
			continue
		}
		kept = append(kept, w)
	}
	f.waiters = kept
}

type swapChain struct {
	base

	desc    driver.SwapChainDesc
	index   int
	buffers []*resource
}

func (s *swapChain) Desc() driver.SwapChainDesc {
	return s.desc
}

func (s *swapChain) Buffer(i int) (driver.Resource, error) {
	if !s.checkLive("Buffer") {
		return nil, driver.ErrReleased
	}
	if i < 0 || i >= s.desc.BufferCount {
		return nil, fmt.Errorf("drivertest: buffer index %d out of range", i)
	}
	r := &resource{
		desc: driver.ResourceDesc{
			Label:     fmt.Sprintf("backbuffer%d", i),
			Dimension: driver.ResourceDimensionTexture2D,
			Width:     uint64(s.desc.Width),
			Height:    s.desc.Height,
			Format:    s.desc.Format,
			Flags:     driver.ResourceFlagAllowRenderTarget,
		},
		state:      driver.ResourceStatePresent,
		backBuffer: i,
	}
	s.d.track(&r.base, KindResource, "resource:"+r.desc.Label)
	s.buffers = append(s.buffers, r)
	return r, nil
}

func (s *swapChain) CurrentBackBufferIndex() int {
	return s.index
}

func (s *swapChain) ResizeBuffers(count int, width, height uint32, format driver.Format, flags driver.SwapChainFlags) error {
	if !s.checkLive("ResizeBuffers") {
		return driver.ErrReleased
	}
	for _, b := range s.buffers {
		if !b.IsReleased() {
			s.d.violate("ResizeBuffers with outstanding %s", b.label)
			return fmt.Errorf("drivertest: outstanding buffer references")
		}
	}
	s.buffers = nil
	s.desc.BufferCount = count
	s.desc.Width = width
	s.desc.Height = height
	s.desc.Format = format
	s.desc.Flags = flags
	s.index = 0

	s.d.mu.Lock()
	s.d.resizeCalls++
	s.d.mu.Unlock()
	return nil
}

func (s *swapChain) Present(syncInterval int) error {
	if !s.checkLive("Present") {
		return driver.ErrReleased
	}
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if err := s.d.presentErr; err != nil {
		s.d.presentErr = nil
		return err
	}
	s.d.presents++
	s.d.syncIntervals = append(s.d.syncIntervals, syncInterval)
	s.index = (s.index + 1) % s.desc.BufferCount
	return nil
}

type heap struct {
	base

	desc  driver.DescriptorHeapDesc
	slots []any
}

func (h *heap) Desc() driver.DescriptorHeapDesc {
	return h.desc
}

func (h *heap) Handle(i int) driver.DescriptorHandle {
	return driver.DescriptorHandle{Heap: h, Index: i}
}

type allocator struct {
	base

	mu       sync.Mutex
	inFlight bool
}

func (a *allocator) setInFlight(v bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inFlight = v
}

func (a *allocator) Reset() error {
	if !a.checkLive("allocator Reset") {
		return driver.ErrReleased
	}
	a.mu.Lock()
	busy := a.inFlight
	a.mu.Unlock()
	if busy {
		a.d.violate("allocator reset while its commands are in flight")
		return fmt.Errorf("drivertest: allocator in flight")
	}
	return nil
}

type commandList struct {
	base

	alloc     *allocator
	open      bool
	target    int
	constants []byte
	vertexBuf *driver.VertexBufferView
	indexBuf  *driver.IndexBufferView
	rootSig   driver.RootSignature
	draws     []Draw
}

func (l *commandList) record(op string) bool {
	if !l.checkLive(op) {
		return false
	}
	if !l.open {
		l.d.violate("%s on closed command list", op)
		return false
	}
	return true
}

func (l *commandList) Reset(alloc driver.CommandAllocator, pso driver.PipelineState) error {
	if !l.checkLive("list Reset") {
		return driver.ErrReleased
	}
	if l.open {
		l.d.violate("reset of open command list")
		return fmt.Errorf("drivertest: list is open")
	}
	a, ok := alloc.(*allocator)
	if !ok {
		return fmt.Errorf("drivertest: foreign allocator")
	}
	l.alloc = a
	l.open = true
	l.target = -1
	l.constants = nil
	l.vertexBuf = nil
	l.indexBuf = nil
	l.rootSig = nil
	return nil
}

func (l *commandList) Close() error {
	if !l.checkLive("list Close") {
		return driver.ErrReleased
	}
	if !l.open {
		l.d.violate("close of closed command list")
		return fmt.Errorf("drivertest: list is closed")
	}
	l.open = false
	return nil
}

func (l *commandList) SetGraphicsRootSignature(rs driver.RootSignature) {
	if l.record("SetGraphicsRootSignature") {
		l.rootSig = rs
	}
}

func (l *commandList) SetPipelineState(pso driver.PipelineState) {
	l.record("SetPipelineState")
}

func (l *commandList) SetDescriptorHeaps(heaps ...driver.DescriptorHeap) {
	l.record("SetDescriptorHeaps")
}

func (l *commandList) SetGraphicsRootDescriptorTable(param int, h driver.DescriptorHandle) {
	l.record("SetGraphicsRootDescriptorTable")
}

func (l *commandList) SetGraphicsRoot32BitConstants(param int, data []byte, offset int) {
	if !l.record("SetGraphicsRoot32BitConstants") {
		return
	}
	if len(data)%4 != 0 {
		l.d.violate("root constants of %d bytes are not 32-bit aligned", len(data))
		return
	}
	if l.rootSig == nil {
		l.d.violate("root constants without a root signature")
		return
	}
	l.constants = append([]byte(nil), data...)
}

func (l *commandList) RSSetViewports(viewports ...driver.Viewport) {
	l.record("RSSetViewports")
}

func (l *commandList) RSSetScissorRects(rects ...driver.Rect) {
	l.record("RSSetScissorRects")
}

func (l *commandList) ResourceBarrier(barriers ...driver.Barrier) {
	if !l.record("ResourceBarrier") {
		return
	}
	for _, b := range barriers {
		r, ok := b.Resource.(*resource)
		if !ok || r == nil {
			l.d.violate("barrier on foreign resource")
			continue
		}
		if r.IsReleased() {
			l.d.violate("barrier on released %s", r.label)
			continue
		}
		if b.After == driver.ResourceStateRenderTarget {
			l.target = r.backBuffer
		}
		r.state = b.After
	}
}

func (l *commandList) OMSetRenderTargets(rtv driver.DescriptorHandle, dsv *driver.DescriptorHandle) {
	l.record("OMSetRenderTargets")
}

func (l *commandList) ClearRenderTargetView(rtv driver.DescriptorHandle, color [4]float32) {
	l.record("ClearRenderTargetView")
}

func (l *commandList) ClearDepthStencilView(dsv driver.DescriptorHandle, depth float32) {
	l.record("ClearDepthStencilView")
}

func (l *commandList) IASetPrimitiveTopology(t driver.PrimitiveTopology) {
	l.record("IASetPrimitiveTopology")
}

func (l *commandList) IASetVertexBuffers(views ...driver.VertexBufferView) {
	if l.record("IASetVertexBuffers") && len(views) > 0 {
		v := views[0]
		l.vertexBuf = &v
	}
}

func (l *commandList) IASetIndexBuffer(view *driver.IndexBufferView) {
	if l.record("IASetIndexBuffer") && view != nil {
		v := *view
		l.indexBuf = &v
	}
}

func (l *commandList) DrawIndexedInstanced(indexCount, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32) {
	if !l.record("DrawIndexedInstanced") {
		return
	}
	if l.vertexBuf == nil || l.indexBuf == nil {
		l.d.violate("draw without vertex and index buffers")
		return
	}
	size := uint32(2)
	if l.indexBuf.Format == driver.IndexFormatUint32 {
		size = 4
	}
	if (startIndex+indexCount)*size > l.indexBuf.Size {
		l.d.violate("draw of %d indices overruns the index buffer", indexCount)
		return
	}
	l.draws = append(l.draws, Draw{
		IndexCount:    indexCount,
		InstanceCount: instanceCount,
		Constants:     l.constants,
		BackBuffer:    l.target,
	})
}

func (l *commandList) CopyTextureRegion(dst driver.Resource, src driver.Resource, footprint driver.TextureFootprint) {
	if !l.record("CopyTextureRegion") {
		return
	}
	d, ok := dst.(*resource)
	if !ok || d.state != driver.ResourceStateCopyDest {
		l.d.violate("copy into a texture outside the copy-dest state")
		return
	}
	s, ok := src.(*resource)
	if !ok || uint64(len(s.data)) < footprint.Offset+uint64(footprint.RowPitch)*uint64(footprint.Height) {
		l.d.violate("copy source smaller than its footprint")
	}
	if footprint.RowPitch%driver.TextureRowPitchAlignment != 0 {
		l.d.violate("row pitch %d is not aligned", footprint.RowPitch)
	}
}

type rootSignature struct {
	base
	desc driver.RootSignatureDesc
}

type pipelineState struct {
	base
	desc driver.PipelineStateDesc
}

type resource struct {
	base

	desc       driver.ResourceDesc
	state      driver.ResourceState
	data       []byte
	backBuffer int
	mapped     bool
}

func (r *resource) Desc() driver.ResourceDesc {
	return r.desc
}

func (r *resource) Map() ([]byte, error) {
	if !r.checkLive("Map") {
		return nil, driver.ErrReleased
	}
	if r.desc.Heap != driver.HeapTypeUpload {
		return nil, fmt.Errorf("drivertest: %s is not CPU visible", r.label)
	}
	r.mapped = true
	return r.data, nil
}

func (r *resource) Unmap() {
	r.mapped = false
}

type overlayDevice struct {
	base
}

func (o *overlayDevice) CreateWrappedTarget(backBuffer driver.Resource, width, height uint32) (driver.WrappedTarget, error) {
	if !o.checkLive("CreateWrappedTarget") {
		return nil, driver.ErrReleased
	}
	if err := o.d.takeFailure(KindWrappedTarget); err != nil {
		return nil, err
	}
	bb, ok := backBuffer.(*resource)
	if !ok || bb.IsReleased() {
		return nil, fmt.Errorf("drivertest: wrapped target needs a live back buffer")
	}
	w := &wrappedTarget{width: width, height: height}
	o.d.track(&w.base, KindWrappedTarget, fmt.Sprintf("wrapped%d", bb.backBuffer))
	return w, nil
}

func (o *overlayDevice) Flush() error {
	if !o.checkLive("overlay Flush") {
		return driver.ErrReleased
	}
	o.d.mu.Lock()
	defer o.d.mu.Unlock()
	o.d.overlayFlush++
	return nil
}

type wrappedTarget struct {
	base

	width, height uint32
	acquired      bool
}

func (w *wrappedTarget) Acquire() error {
	if !w.checkLive("Acquire") {
		return driver.ErrReleased
	}
	if w.acquired {
		return fmt.Errorf("drivertest: %s already acquired", w.label)
	}
	w.acquired = true
	return nil
}

func (w *wrappedTarget) WritePixels(pix []byte) error {
	if !w.acquired {
		w.d.violate("overlay pixels written to unacquired %s", w.label)
		return fmt.Errorf("drivertest: %s not acquired", w.label)
	}
	if len(pix) != int(w.width*w.height*4) {
		return fmt.Errorf("drivertest: %d overlay bytes for %dx%d", len(pix), w.width, w.height)
	}
	w.d.mu.Lock()
	defer w.d.mu.Unlock()
	w.d.overlayPixels++
	return nil
}

func (w *wrappedTarget) Unacquire() error {
	if !w.acquired {
		return fmt.Errorf("drivertest: %s not acquired", w.label)
	}
	w.acquired = false
	return nil
}
