// Package wgpudriver implements the driver object model on WebGPU.
//
// Concepts WebGPU has no direct equivalent for are emulated: command lists record
// commands and replay them into a command encoder at submission, descriptor heaps are
// slot tables resolved at draw time, root parameters map to one bind group each, and
// fences complete from queue work-done callbacks.
package wgpudriver

import (
	"fmt"
	"runtime"

	"cogentcore.org/core/base/errors"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/driver"
	"github.com/cogentcore/webgpu/wgpu"
)

// SizeFunc reports the current size of the native surface in pixels.
type SizeFunc func() (width, height uint32)

type wgpuDriver struct {
	surface *wgpu.SurfaceDescriptor
	size    SizeFunc
}

var _ driver.Driver = &wgpuDriver{}

// New creates the WebGPU backend for a native surface.
//
// Parameters:
//   - surface: the platform surface descriptor, usually from the window
//   - size: reports the surface size used when a swap chain is created without one
//
// Returns:
//   - driver.Driver: the backend
func New(surface *wgpu.SurfaceDescriptor, size SizeFunc) driver.Driver {
	return &wgpuDriver{surface: surface, size: size}
}

func (d *wgpuDriver) Name() string {
	return "wgpu"
}

// CreateFactory creates a WebGPU instance and binds the native surface to it. The
// calling goroutine is locked to its OS thread; surface calls must stay on it.
func (d *wgpuDriver) CreateFactory() (driver.Factory, error) {
	if d.surface == nil {
		return nil, errors.New("wgpudriver: nil surface descriptor")
	}
	runtime.LockOSThread()

	instance := wgpu.CreateInstance(nil)
	if instance == nil {
		return nil, errors.New("wgpudriver: failed to create instance")
	}
	surface := instance.CreateSurface(d.surface)
	if surface == nil {
		instance.Release()
		return nil, errors.New("wgpudriver: failed to create surface")
	}
	return &factory{instance: instance, surface: surface, size: d.size}, nil
}

type factory struct {
	instance *wgpu.Instance
	surface  *wgpu.Surface
	size     SizeFunc
}

var _ driver.Factory = &factory{}

// EnumAdapters returns the high-performance adapter compatible with the surface. WebGPU
// picks a single adapter per request, so the list has at most one entry.
func (f *factory) EnumAdapters() []driver.Adapter {
	a, err := f.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: f.surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if errors.Log(err) != nil {
		return nil
	}
	return []driver.Adapter{&adapter{factory: f, adapter: a, desc: driver.AdapterDesc{Name: "wgpu hardware adapter"}}}
}

func (f *factory) SoftwareAdapter() (driver.Adapter, error) {
	a, err := f.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface:    f.surface,
		ForceFallbackAdapter: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", driver.ErrNoAdapter, err)
	}
	return &adapter{factory: f, adapter: a, desc: driver.AdapterDesc{Name: "wgpu fallback adapter", Software: true}}, nil
}

func (f *factory) CreateSwapChain(queue driver.CommandQueue, desc driver.SwapChainDesc) (driver.SwapChain, error) {
	q, ok := queue.(*commandQueue)
	if !ok {
		return nil, errors.New("wgpudriver: swap chain needs a wgpu command queue")
	}
	return newSwapChain(f, q.dev, desc)
}

func (f *factory) Release() {
	if f.surface != nil {
		f.surface.Release()
		f.surface = nil
	}
	if f.instance != nil {
		f.instance.Release()
		f.instance = nil
	}
}

type adapter struct {
	factory *factory
	adapter *wgpu.Adapter
	desc    driver.AdapterDesc
}

var _ driver.Adapter = &adapter{}

func (a *adapter) Desc() driver.AdapterDesc {
	return a.desc
}

// Probe maps feature levels onto WebGPU: every adapter meets the baseline level 12_0,
// and only hardware adapters are trusted with the higher levels.
func (a *adapter) Probe(level driver.FeatureLevel) bool {
	if a.desc.Software {
		return level == driver.FeatureLevel120
	}
	for _, l := range driver.FeatureLevels {
		if l == level {
			return true
		}
	}
	return false
}

func (a *adapter) CreateDevice(level driver.FeatureLevel) (driver.Device, error) {
	if !a.Probe(level) {
		return nil, fmt.Errorf("%w: %s on %s", driver.ErrUnsupportedFeatureLevel, level, a.desc.Name)
	}
	d, err := a.adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
	})
	if err != nil {
		return nil, err
	}
	return &device{adapter: a, device: d, queue: d.GetQueue()}, nil
}

func (a *adapter) Release() {
	if a.adapter != nil {
		a.adapter.Release()
		a.adapter = nil
	}
}
