package wgpudriver

import (
	"fmt"

	"cogentcore.org/core/base/errors"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/driver"
	"github.com/cogentcore/webgpu/wgpu"
)

// resource is a committed buffer or texture. Upload-heap buffers keep a CPU copy that
// Map exposes and Unmap writes through the queue.
type resource struct {
	dev     *device
	desc    driver.ResourceDesc
	buffer  *wgpu.Buffer
	shadow  []byte
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

var _ driver.Resource = &resource{}

// align4 rounds n up to the 4-byte multiple WebGPU requires for buffer writes.
func align4(n uint64) uint64 {
	return (n + 3) &^ 3
}

// textureFormat maps a driver format onto its WebGPU texture format.
func textureFormat(f driver.Format) (wgpu.TextureFormat, error) {
	switch f {
	case driver.FormatR8G8B8A8Unorm:
		return wgpu.TextureFormatRGBA8Unorm, nil
	case driver.FormatD32Float:
		return wgpu.TextureFormatDepth32Float, nil
	default:
		return wgpu.TextureFormatUndefined, fmt.Errorf("wgpudriver: unsupported format %d", f)
	}
}

func (d *device) CreateCommittedResource(desc driver.ResourceDesc, _ driver.ResourceState) (driver.Resource, error) {
	switch desc.Dimension {
	case driver.ResourceDimensionBuffer:
		return d.createBuffer(desc)
	case driver.ResourceDimensionTexture2D:
		return d.createTexture(desc)
	default:
		return nil, fmt.Errorf("wgpudriver: unsupported resource dimension %d", desc.Dimension)
	}
}

func (d *device) createBuffer(desc driver.ResourceDesc) (*resource, error) {
	if desc.Width == 0 {
		return nil, fmt.Errorf("wgpudriver: buffer %q has no size", desc.Label)
	}
	size := align4(desc.Width)
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  size,
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageIndex | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
	})
	if errors.Log(err) != nil {
		return nil, err
	}
	r := &resource{dev: d, desc: desc, buffer: buf}
	if desc.Heap == driver.HeapTypeUpload {
		r.shadow = make([]byte, size)
	}
	return r, nil
}

func (d *device) createTexture(desc driver.ResourceDesc) (*resource, error) {
	format, err := textureFormat(desc.Format)
	if err != nil {
		return nil, err
	}
	usage := wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst
	switch {
	case desc.Flags&driver.ResourceFlagAllowDepthStencil != 0:
		usage = wgpu.TextureUsageRenderAttachment
	case desc.Flags&driver.ResourceFlagAllowRenderTarget != 0:
		usage |= wgpu.TextureUsageRenderAttachment
	}

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              uint32(desc.Width),
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if errors.Log(err) != nil {
		return nil, err
	}
	view, err := tex.CreateView(nil)
	if errors.Log(err) != nil {
		tex.Release()
		return nil, err
	}
	return &resource{dev: d, desc: desc, texture: tex, view: view}, nil
}

func (r *resource) Desc() driver.ResourceDesc {
	return r.desc
}

func (r *resource) Map() ([]byte, error) {
	if r.shadow == nil {
		return nil, fmt.Errorf("wgpudriver: resource %q is not on the upload heap", r.desc.Label)
	}
	return r.shadow[:r.desc.Width], nil
}

func (r *resource) Unmap() {
	if r.shadow == nil || r.buffer == nil {
		return
	}
	errors.Log(r.dev.queue.WriteBuffer(r.buffer, 0, r.shadow))
}

func (r *resource) Release() {
	if r.view != nil {
		r.view.Release()
		r.view = nil
	}
	if r.texture != nil {
		r.texture.Release()
		r.texture = nil
	}
	if r.buffer != nil {
		r.buffer.Release()
		r.buffer = nil
	}
	r.shadow = nil
}
