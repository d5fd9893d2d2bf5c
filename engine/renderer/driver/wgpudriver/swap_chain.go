package wgpudriver

import (
	"fmt"

	"cogentcore.org/core/base/errors"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/driver"
	"github.com/cogentcore/webgpu/wgpu"
)

// swapChain presents through the factory's surface. WebGPU hands out one surface texture
// per frame, so buffer indices are bookkeeping: the buffer at the current index is
// whichever texture the surface returns for this frame.
type swapChain struct {
	factory *factory
	dev     *device
	desc    driver.SwapChainDesc
	config  wgpu.SurfaceConfiguration

	index int
	live  int

	current     *wgpu.Texture
	currentView *wgpu.TextureView
	acquireErr  error
}

var _ driver.SwapChain = &swapChain{}

func newSwapChain(f *factory, dev *device, desc driver.SwapChainDesc) (*swapChain, error) {
	if desc.BufferCount <= 0 {
		return nil, fmt.Errorf("wgpudriver: swap chain needs at least one buffer, got %d", desc.BufferCount)
	}
	if desc.Width == 0 || desc.Height == 0 {
		if f.size == nil {
			return nil, errors.New("wgpudriver: swap chain size unknown")
		}
		desc.Width, desc.Height = f.size()
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("wgpudriver: surface has no area (%dx%d)", desc.Width, desc.Height)
	}

	capabilities := f.surface.GetCapabilities(dev.adapter.adapter)
	if len(capabilities.Formats) == 0 || len(capabilities.AlphaModes) == 0 {
		return nil, errors.New("wgpudriver: surface is not compatible with the adapter")
	}
	sc := &swapChain{
		factory: f,
		dev:     dev,
		desc:    desc,
		config: wgpu.SurfaceConfiguration{
			Usage:       wgpu.TextureUsageRenderAttachment,
			Format:      capabilities.Formats[0],
			Width:       desc.Width,
			Height:      desc.Height,
			PresentMode: presentMode(desc.Flags&driver.SwapChainFlagAllowTearing == 0),
			AlphaMode:   capabilities.AlphaModes[0],
		},
	}
	sc.configure()
	dev.surfaceFormat = sc.config.Format
	dev.hasSurfaceFormat = true
	return sc, nil
}

// presentMode maps vertical sync onto the surface present mode.
func presentMode(vsync bool) wgpu.PresentMode {
	if vsync {
		return wgpu.PresentModeFifo
	}
	return wgpu.PresentModeImmediate
}

func (sc *swapChain) configure() {
	sc.factory.surface.Configure(sc.dev.adapter.adapter, sc.dev.device, &sc.config)
}

func (sc *swapChain) Desc() driver.SwapChainDesc {
	return sc.desc
}

func (sc *swapChain) Buffer(i int) (driver.Resource, error) {
	if i < 0 || i >= sc.desc.BufferCount {
		return nil, fmt.Errorf("wgpudriver: swap chain buffer %d out of range", i)
	}
	sc.live++
	return &backBuffer{
		chain: sc,
		index: i,
		desc: driver.ResourceDesc{
			Label:     fmt.Sprintf("backbuffer%d", i),
			Dimension: driver.ResourceDimensionTexture2D,
			Width:     uint64(sc.desc.Width),
			Height:    sc.desc.Height,
			Format:    sc.desc.Format,
			Flags:     driver.ResourceFlagAllowRenderTarget,
		},
	}, nil
}

func (sc *swapChain) CurrentBackBufferIndex() int {
	return sc.index
}

func (sc *swapChain) ResizeBuffers(count int, width, height uint32, format driver.Format, flags driver.SwapChainFlags) error {
	if sc.live > 0 {
		return fmt.Errorf("wgpudriver: %d swap chain buffers still referenced", sc.live)
	}
	if width == 0 || height == 0 {
		return fmt.Errorf("wgpudriver: cannot resize swap chain to %dx%d", width, height)
	}
	sc.releaseCurrent()
	sc.desc.BufferCount = count
	sc.desc.Width, sc.desc.Height = width, height
	sc.desc.Format = format
	sc.desc.Flags = flags
	sc.config.Width, sc.config.Height = width, height
	sc.configure()
	sc.index = 0
	return nil
}

// Present shows the surface texture acquired for this frame. A frame whose texture
// could not be acquired even after reconfiguring, or whose submission failed, reports
// the device as removed.
func (sc *swapChain) Present(syncInterval int) error {
	if sc.dev.lost.Load() || sc.acquireErr != nil {
		cause := sc.acquireErr
		sc.acquireErr = nil
		sc.releaseCurrent()
		if cause != nil {
			return fmt.Errorf("%w: %v", driver.ErrDeviceRemoved, cause)
		}
		return driver.ErrDeviceRemoved
	}

	if sc.current != nil {
		sc.factory.surface.Present()
		sc.releaseCurrent()
	}
	sc.index = (sc.index + 1) % sc.desc.BufferCount

	if mode := presentMode(syncInterval > 0); mode != sc.config.PresentMode {
		sc.config.PresentMode = mode
		sc.configure()
	}
	return nil
}

// acquire returns the view of this frame's surface texture, acquiring it on first use.
func (sc *swapChain) acquire() (*wgpu.TextureView, error) {
	if sc.currentView != nil {
		return sc.currentView, nil
	}
	tex, err := acquireSurfaceTexture(sc.factory.surface.GetCurrentTexture, sc.configure)
	if err != nil {
		sc.acquireErr = err
		return nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		sc.acquireErr = err
		return nil, err
	}
	sc.current, sc.currentView = tex, view
	return view, nil
}

// acquireSurfaceTexture gets the frame's surface texture. An outdated or lost surface
// is reconfigured and asked once more; only a second failure is returned.
//
// Parameters:
//   - get: returns the current surface texture
//   - reconfigure: configures the surface again with the current settings
//
// Returns:
//   - *wgpu.Texture: the acquired texture
//   - error: the failure of the retry
func acquireSurfaceTexture(get func() (*wgpu.Texture, error), reconfigure func()) (*wgpu.Texture, error) {
	tex, err := get()
	if err == nil {
		return tex, nil
	}
	errors.Log(fmt.Errorf("wgpudriver: surface texture unavailable, reconfiguring: %w", err))
	reconfigure()
	return get()
}

func (sc *swapChain) releaseCurrent() {
	if sc.currentView != nil {
		sc.currentView.Release()
		sc.currentView = nil
	}
	if sc.current != nil {
		sc.current.Release()
		sc.current = nil
	}
}

func (sc *swapChain) Release() {
	sc.releaseCurrent()
	if sc.dev != nil {
		sc.dev.hasSurfaceFormat = false
	}
}

// backBuffer is the resource returned for a swap chain buffer index.
type backBuffer struct {
	chain *swapChain
	index int
	desc  driver.ResourceDesc
	done  bool
}

var _ driver.Resource = &backBuffer{}

func (b *backBuffer) Desc() driver.ResourceDesc {
	return b.desc
}

func (b *backBuffer) Map() ([]byte, error) {
	return nil, errors.New("wgpudriver: swap chain buffers cannot be mapped")
}

func (b *backBuffer) Unmap() {}

func (b *backBuffer) Release() {
	if b.done {
		return
	}
	b.done = true
	b.chain.live--
}
