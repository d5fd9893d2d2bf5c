package wgpudriver

import (
	"fmt"
	"sync"
	"sync/atomic"

	"cogentcore.org/core/base/errors"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/driver"
	"github.com/cogentcore/webgpu/wgpu"
)

type device struct {
	adapter *adapter
	device  *wgpu.Device
	queue   *wgpu.Queue

	// surfaceFormat is the texture format of the configured surface. Pipelines targeting
	// swap chain buffers use it in place of the requested render target format.
	surfaceFormat    wgpu.TextureFormat
	hasSurfaceFormat bool

	// lost is set when a submission reports failure or the surface cannot be acquired;
	// the next Present reports the device as removed.
	lost atomic.Bool
}

var _ driver.Device = &device{}

func (d *device) CreateCommandQueue() (driver.CommandQueue, error) {
	return &commandQueue{dev: d}, nil
}

func (d *device) CreateDescriptorHeap(desc driver.DescriptorHeapDesc) (driver.DescriptorHeap, error) {
	if desc.NumDescriptors <= 0 {
		return nil, fmt.Errorf("wgpudriver: descriptor heap needs at least one slot, got %d", desc.NumDescriptors)
	}
	return &descriptorHeap{desc: desc, slots: make([]driver.Resource, desc.NumDescriptors)}, nil
}

func (d *device) CreateCommandAllocator() (driver.CommandAllocator, error) {
	return &commandAllocator{}, nil
}

func (d *device) CreateCommandList(alloc driver.CommandAllocator) (driver.GraphicsCommandList, error) {
	if _, ok := alloc.(*commandAllocator); !ok {
		return nil, errors.New("wgpudriver: command list needs a wgpu command allocator")
	}
	return &commandList{dev: d, recording: true}, nil
}

func (d *device) CreateFence(initial uint64) (driver.Fence, error) {
	return &fence{completed: initial, poll: d.poll}, nil
}

// poll processes queue callbacks. With wait it blocks until the queue is empty.
func (d *device) poll(wait bool) {
	d.device.Poll(wait, nil)
}

func (d *device) CreateRenderTargetView(res driver.Resource, dst driver.DescriptorHandle) error {
	return d.writeDescriptor(driver.DescriptorHeapTypeRTV, res, dst)
}

func (d *device) CreateDepthStencilView(res driver.Resource, dst driver.DescriptorHandle) error {
	return d.writeDescriptor(driver.DescriptorHeapTypeDSV, res, dst)
}

func (d *device) CreateShaderResourceView(res driver.Resource, dst driver.DescriptorHandle) error {
	return d.writeDescriptor(driver.DescriptorHeapTypeSRV, res, dst)
}

// writeDescriptor stores res in the heap slot addressed by dst. Views are resolved from
// the slot when a command list replays.
func (d *device) writeDescriptor(typ driver.DescriptorHeapType, res driver.Resource, dst driver.DescriptorHandle) error {
	heap, ok := dst.Heap.(*descriptorHeap)
	if !ok {
		return errors.New("wgpudriver: descriptor handle is not from a wgpu heap")
	}
	if heap.desc.Type != typ {
		return fmt.Errorf("wgpudriver: heap type %d cannot hold a view of type %d", heap.desc.Type, typ)
	}
	if dst.Index < 0 || dst.Index >= len(heap.slots) {
		return fmt.Errorf("wgpudriver: descriptor slot %d out of range", dst.Index)
	}
	switch res.(type) {
	case *resource, *backBuffer:
	default:
		return errors.New("wgpudriver: view of a foreign resource")
	}
	heap.slots[dst.Index] = res
	return nil
}

func (d *device) Release() {
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
}

// commandQueue wraps the single queue of the device. The native queue is owned by the
// device.
type commandQueue struct {
	dev *device
}

var _ driver.CommandQueue = &commandQueue{}

func (q *commandQueue) ExecuteCommandLists(lists ...driver.GraphicsCommandList) {
	for _, l := range lists {
		cl, ok := l.(*commandList)
		if !ok {
			errors.Log(errors.New("wgpudriver: foreign command list skipped"))
			continue
		}
		if err := cl.replay(); errors.Log(err) != nil {
			q.dev.lost.Store(true)
		}
	}
}

// Signal completes f at value once every submitted command buffer has finished. It only
// registers the work-done callback and polls without waiting; the fence drives the
// blocking poll when a waiter is pending.
func (q *commandQueue) Signal(f driver.Fence, value uint64) error {
	fc, ok := f.(*fence)
	if !ok {
		return errors.New("wgpudriver: foreign fence")
	}
	q.dev.queue.OnSubmittedWorkDone(func(status wgpu.QueueWorkDoneStatus) {
		if status != wgpu.QueueWorkDoneStatusSuccess {
			q.dev.lost.Store(true)
		}
		fc.complete(value)
	})
	fc.pump(false)
	return nil
}

func (q *commandQueue) Release() {}

type fenceWaiter struct {
	value uint64
	ev    *driver.Event
}

type fence struct {
	mu        sync.Mutex
	completed uint64
	waiters   []fenceWaiter

	// poll delivers work-done callbacks. Nil for fences without a device.
	poll func(wait bool)
}

var _ driver.Fence = &fence{}

func (f *fence) CompletedValue() uint64 {
	f.pump(false)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}

func (f *fence) SetEventOnCompletion(value uint64, ev *driver.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completed >= value {
		ev.Set()
		return nil
	}
	f.waiters = append(f.waiters, fenceWaiter{value: value, ev: ev})
	go f.pump(true)
	return nil
}

// pump polls the device so pending work-done callbacks run. Callbacks lock f, so the
// caller must not hold f.mu.
func (f *fence) pump(wait bool) {
	if f.poll != nil {
		f.poll(wait)
	}
}

func (f *fence) Signal(value uint64) error {
	f.complete(value)
	return nil
}

// complete sets the completed value and wakes every waiter it satisfies.
func (f *fence) complete(value uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = value
	pending := f.waiters[:0]
	for _, w := range f.waiters {
		if w.value <= value {
			w.ev.Set()
			continue
		}
		pending = append(pending, w)
	}
	f.waiters = pending
}

func (f *fence) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waiters = nil
}

// commandAllocator has nothing to reclaim: recorded commands live on the list and are
// dropped when it is reset.
type commandAllocator struct{}

var _ driver.CommandAllocator = &commandAllocator{}

func (a *commandAllocator) Reset() error {
	return nil
}

func (a *commandAllocator) Release() {}

type descriptorHeap struct {
	desc  driver.DescriptorHeapDesc
	slots []driver.Resource
}

var _ driver.DescriptorHeap = &descriptorHeap{}

func (h *descriptorHeap) Desc() driver.DescriptorHeapDesc {
	return h.desc
}

func (h *descriptorHeap) Handle(i int) driver.DescriptorHandle {
	return driver.DescriptorHandle{Heap: h, Index: i}
}

// view returns the texture view of the resource in slot i.
func (h *descriptorHeap) view(i int) (*wgpu.TextureView, error) {
	if i < 0 || i >= len(h.slots) {
		return nil, fmt.Errorf("wgpudriver: descriptor slot %d out of range", i)
	}
	switch r := h.slots[i].(type) {
	case *backBuffer:
		return r.chain.acquire()
	case *resource:
		if r.view == nil {
			return nil, fmt.Errorf("wgpudriver: resource %q has no texture view", r.desc.Label)
		}
		return r.view, nil
	default:
		return nil, fmt.Errorf("wgpudriver: descriptor slot %d is empty", i)
	}
}

func (h *descriptorHeap) Release() {
	clear(h.slots)
}

// viewOf resolves a descriptor handle to the texture view it addresses.
func viewOf(handle driver.DescriptorHandle) (*wgpu.TextureView, error) {
	heap, ok := handle.Heap.(*descriptorHeap)
	if !ok {
		return nil, errors.New("wgpudriver: descriptor handle is not from a wgpu heap")
	}
	return heap.view(handle.Index)
}
