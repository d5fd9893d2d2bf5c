// Package driver defines the native GPU object model the frame renderer is built on.
//
// The model follows an explicit-API shape: a factory enumerates adapters, an adapter
// creates a device at a feature level, and the device creates every other object.
// Objects are released explicitly and in a caller-defined order; a backend never
// releases an object on its own.
package driver

// Driver is the entry point of a backend.
type Driver interface {
	// Name returns the backend name used in logs.
	Name() string

	// CreateFactory creates the factory that owns adapter enumeration and the native surface binding.
	//
	// Returns:
	//   - Factory: the created factory
	//   - error: an error if the backend could not be initialized
	CreateFactory() (Factory, error)
}

// Object is implemented by every native GPU object.
type Object interface {
	// Release frees the native object. Calling any other method afterwards is undefined.
	Release()
}

// Factory enumerates adapters and creates swap chains bound to the native surface.
type Factory interface {
	Object

	// EnumAdapters returns every adapter in enumeration order, software adapters included.
	//
	// Returns:
	//   - []Adapter: the enumerated adapters
	EnumAdapters() []Adapter

	// SoftwareAdapter returns the always-available software/reference adapter.
	//
	// Returns:
	//   - Adapter: the software adapter
	//   - error: ErrNoAdapter if the platform has none
	SoftwareAdapter() (Adapter, error)

	// CreateSwapChain creates a swap chain presenting through queue onto the factory's surface.
	//
	// Parameters:
	//   - queue: the command queue that will render into the swap chain buffers
	//   - desc: the swap chain configuration
	//
	// Returns:
	//   - SwapChain: the created swap chain
	//   - error: an error if the surface could not be configured
	CreateSwapChain(queue CommandQueue, desc SwapChainDesc) (SwapChain, error)
}

// Adapter is a physical or emulated GPU.
type Adapter interface {
	Object

	// Desc returns the adapter description.
	Desc() AdapterDesc

	// Probe reports whether a device could be created at level, without creating one.
	//
	// Parameters:
	//   - level: the feature level to test
	//
	// Returns:
	//   - bool: true if the adapter supports level
	Probe(level FeatureLevel) bool

	// CreateDevice creates a logical device at level.
	//
	// Parameters:
	//   - level: the minimum feature level the device must support
	//
	// Returns:
	//   - Device: the created device
	//   - error: ErrUnsupportedFeatureLevel or a backend error
	CreateDevice(level FeatureLevel) (Device, error)
}

// Device creates every GPU object below the adapter.
type Device interface {
	Object

	CreateCommandQueue() (CommandQueue, error)
	CreateDescriptorHeap(desc DescriptorHeapDesc) (DescriptorHeap, error)
	CreateCommandAllocator() (CommandAllocator, error)

	// CreateCommandList creates a command list in the recording state against alloc.
	CreateCommandList(alloc CommandAllocator) (GraphicsCommandList, error)

	// CreateFence creates a fence whose completed value starts at initial.
	CreateFence(initial uint64) (Fence, error)

	CreateRootSignature(desc RootSignatureDesc) (RootSignature, error)
	CreatePipelineState(desc PipelineStateDesc) (PipelineState, error)

	// CreateCommittedResource creates a resource with its own backing memory in the initial state.
	CreateCommittedResource(desc ResourceDesc, initial ResourceState) (Resource, error)

	CreateRenderTargetView(res Resource, dst DescriptorHandle) error
	CreateDepthStencilView(res Resource, dst DescriptorHandle) error
	CreateShaderResourceView(res Resource, dst DescriptorHandle) error

	// CreateOverlayDevice creates the interop device used by the 2-D overlay path.
	// It shares queue with the 3-D path.
	CreateOverlayDevice(queue CommandQueue) (OverlayDevice, error)
}

// CommandQueue is the single ordered execution stream of the device.
type CommandQueue interface {
	Object

	// ExecuteCommandLists submits closed command lists for execution in order.
	ExecuteCommandLists(lists ...GraphicsCommandList)

	// Signal enqueues a GPU-side update of fence to value after all previously submitted work.
	Signal(fence Fence, value uint64) error
}

// Fence is a GPU/CPU synchronization counter.
type Fence interface {
	Object

	// CompletedValue returns the last value the GPU reached.
	CompletedValue() uint64

	// SetEventOnCompletion arranges for ev to be set once CompletedValue reaches value.
	// If it already has, ev is set immediately.
	SetEventOnCompletion(value uint64, ev *Event) error

	// Signal sets the fence value from the CPU. The GPU must be idle with respect to this fence.
	Signal(value uint64) error
}

// SwapChain is a ring of presentable buffers.
type SwapChain interface {
	Object

	Desc() SwapChainDesc

	// Buffer returns the resource backing buffer index i. Every returned resource must be
	// released before ResizeBuffers.
	Buffer(i int) (Resource, error)

	// CurrentBackBufferIndex returns the index of the buffer the next frame renders into.
	CurrentBackBufferIndex() int

	// ResizeBuffers resizes the buffers in place. The buffer index restarts at 0.
	ResizeBuffers(count int, width, height uint32, format Format, flags SwapChainFlags) error

	// Present shows the current buffer. syncInterval 1 waits for vertical blank, 0 does not.
	// Returns ErrDeviceRemoved or ErrDeviceReset when the device is lost.
	Present(syncInterval int) error
}

// DescriptorHeap is a fixed-size array of view descriptors.
type DescriptorHeap interface {
	Object

	Desc() DescriptorHeapDesc

	// Handle returns the handle of slot i.
	Handle(i int) DescriptorHandle
}

// CommandAllocator backs the memory of recorded commands.
type CommandAllocator interface {
	Object

	// Reset reclaims the memory of every list recorded against the allocator.
	// The lists must have finished executing.
	Reset() error
}

// GraphicsCommandList records rendering and copy commands.
type GraphicsCommandList interface {
	Object

	// Reset reopens the list for recording against alloc with pso as the initial pipeline (may be nil).
	Reset(alloc CommandAllocator, pso PipelineState) error

	// Close ends recording.
	Close() error

	SetGraphicsRootSignature(rs RootSignature)
	SetPipelineState(pso PipelineState)
	SetDescriptorHeaps(heaps ...DescriptorHeap)
	SetGraphicsRootDescriptorTable(param int, base DescriptorHandle)

	// SetGraphicsRoot32BitConstants writes data, a multiple of 4 bytes, into the inline constants
	// parameter param starting at the 32-bit value offset.
	SetGraphicsRoot32BitConstants(param int, data []byte, offset int)

	RSSetViewports(viewports ...Viewport)
	RSSetScissorRects(rects ...Rect)
	ResourceBarrier(barriers ...Barrier)
	OMSetRenderTargets(rtv DescriptorHandle, dsv *DescriptorHandle)
	ClearRenderTargetView(rtv DescriptorHandle, color [4]float32)
	ClearDepthStencilView(dsv DescriptorHandle, depth float32)
	IASetPrimitiveTopology(t PrimitiveTopology)
	IASetVertexBuffers(views ...VertexBufferView)
	IASetIndexBuffer(view *IndexBufferView)
	DrawIndexedInstanced(indexCount, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32)

	// CopyTextureRegion copies texel rows laid out per footprint in src into dst.
	CopyTextureRegion(dst Resource, src Resource, footprint TextureFootprint)
}

// RootSignature is a resource binding layout.
type RootSignature interface {
	Object
}

// PipelineState is a compiled graphics pipeline.
type PipelineState interface {
	Object
}

// Resource is a buffer or texture.
type Resource interface {
	Object

	Desc() ResourceDesc

	// Map returns CPU-visible memory of an upload-heap resource.
	Map() ([]byte, error)

	// Unmap publishes writes made through the slice returned by Map.
	Unmap()
}

// OverlayDevice is the interop device and context of the 2-D overlay path. It wraps swap
// chain buffers so CPU-drawn pixels can be composited over the 3-D frame on the same queue.
type OverlayDevice interface {
	Object

	// CreateWrappedTarget wraps a swap chain buffer as an overlay target of the given size.
	CreateWrappedTarget(backBuffer Resource, width, height uint32) (WrappedTarget, error)

	// Flush submits every composite recorded since the last flush to the shared queue.
	Flush() error
}

// WrappedTarget is an overlay target bound to one swap chain buffer.
type WrappedTarget interface {
	Object

	// Acquire hands the wrapped buffer to the overlay device.
	Acquire() error

	// WritePixels uploads tightly packed RGBA8 pixels and records their composite.
	WritePixels(pix []byte) error

	// Unacquire returns the wrapped buffer to the 3-D path in the present state.
	Unacquire() error
}
