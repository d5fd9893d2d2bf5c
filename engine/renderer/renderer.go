package renderer

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-frame/engine/camera"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/driver"
)

const (
	// BufferCount is the number of swap chain buffers.
	BufferCount = 2

	backBufferFormat = driver.FormatR8G8B8A8Unorm
	depthFormat      = driver.FormatD32Float

	rootParamConstants = 0
	rootParamTexture   = 1
)

// renderer is the implementation of the Renderer interface.
//
// Every field below mu is guarded by it. The camera mailbox and the atomic
// counters are the only state read without the lock.
type renderer struct {
	mu *sync.Mutex

	drv driver.Driver

	// Configuration collected from builder options
	vsync          bool
	forceSoftware  bool
	overlayEnabled bool
	clearColor     [4]float32
	assets         Assets
	poolSize       int
	cam            camera.Camera

	pool     worker.DynamicWorkerPool
	prepared *preparedAssets

	factory          *Ref[driver.Factory]
	adapter          *Ref[driver.Adapter]
	featureLevel     driver.FeatureLevel
	softwareFallback bool
	device           *Ref[driver.Device]
	queue            *Ref[driver.CommandQueue]
	swapChain        *Ref[driver.SwapChain]
	rtvHeap          *Ref[driver.DescriptorHeap]
	dsvHeap          *Ref[driver.DescriptorHeap]
	srvHeap          *Ref[driver.DescriptorHeap]
	renderTargets    [BufferCount]*Ref[driver.Resource]
	allocators       [BufferCount]*Ref[driver.CommandAllocator]
	commandList      *Ref[driver.GraphicsCommandList]
	fence            *Ref[driver.Fence]
	fenceEvent       *driver.Event
	rootSignature    *Ref[driver.RootSignature]
	pipelineState    *Ref[driver.PipelineState]
	depthBuffer      *Ref[driver.Resource]
	vertexBuffer     *Ref[driver.Resource]
	indexBuffer      *Ref[driver.Resource]
	texture          *Ref[driver.Resource]
	overlay          overlay

	vertexBufferView driver.VertexBufferView
	indexBufferView  driver.IndexBufferView
	indexCount       uint32

	// Frame synchronization state
	fenceValue         uint64
	frameIndex         int
	previousFrameIndex int

	// Requested surface size; zero means the swap chain follows the native surface.
	width  uint32
	height uint32

	closed bool

	frames       atomic.Uint64
	deviceLosses atomic.Uint64
	resizes      atomic.Uint64
}

// Stats is a snapshot of the renderer's frame counters.
type Stats struct {
	Frames             uint64
	FenceValue         uint64
	FrameIndex         int
	PreviousFrameIndex int
	DeviceLosses       uint64
	Resizes            uint64
	SoftwareFallback   bool
	FeatureLevel       driver.FeatureLevel
}

// Renderer owns the GPU object graph of a single fixed pipeline drawing one textured
// mesh into a double-buffered swap chain.
//
// RenderAll and OnResize serialize on one lock. Update only publishes camera state and
// never takes it, so it can run on its own goroutine at its own rate.
type Renderer interface {
	// ValidateAndCreateObjects creates every GPU object that does not exist yet, in
	// dependency order. It is idempotent; after a failure a later call retries only
	// the failed and later steps.
	//
	// Returns:
	//   - bool: true if the whole object graph is valid
	ValidateAndCreateObjects() bool

	// OnResize resizes the swap chain to width x height. Unchanged sizes are ignored and a
	// zero dimension, a minimized window, only records the size.
	//
	// Parameters:
	//   - width: the new surface width in pixels
	//   - height: the new surface height in pixels
	OnResize(width, height uint32)

	// RenderAll records, submits and presents one frame, then waits for the GPU to retire it.
	// A lost device is rebuilt transparently.
	//
	// Returns:
	//   - bool: false only if the object graph could not be made valid on entry
	RenderAll() bool

	// Update advances the camera by dt seconds and publishes the new view and projection.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	Update(dt float32)

	// Close drains the GPU and releases every object. Later RenderAll calls return false.
	Close()

	// Stats returns the current frame counters.
	//
	// Returns:
	//   - Stats: the counter snapshot
	Stats() Stats
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer on top of drv. No GPU object is created until
// ValidateAndCreateObjects or RenderAll is called.
//
// Parameters:
//   - drv: the GPU backend
//   - options: functional options to configure the renderer
//
// Returns:
//   - Renderer: the newly created renderer
func NewRenderer(drv driver.Driver, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:       &sync.Mutex{},
		drv:      drv,
		vsync:    true,
		poolSize: 2,
	}
	for _, option := range options {
		option(r)
	}
	if r.cam == nil {
		r.cam = camera.NewCamera()
	}
	r.pool = newAssetPool(r.poolSize)
	return r
}

func (r *renderer) ValidateAndCreateObjects() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	return r.ensureAllObjectsValid()
}

func (r *renderer) Update(dt float32) {
	r.cam.Update(dt)
}

func (r *renderer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Frames:             r.frames.Load(),
		FenceValue:         r.fenceValue,
		FrameIndex:         r.frameIndex,
		PreviousFrameIndex: r.previousFrameIndex,
		DeviceLosses:       r.deviceLosses.Load(),
		Resizes:            r.resizes.Load(),
		SoftwareFallback:   r.softwareFallback,
		FeatureLevel:       r.featureLevel,
	}
}

func (r *renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if r.queue.Valid() && r.fence.Valid() {
		r.signalFence()
		r.waitFence()
		Logger().Debug("drained GPU before shutdown", "fence", r.fenceValue)
	}
	r.releaseAll()
	r.closed = true
	r.pool.Stop()
}
