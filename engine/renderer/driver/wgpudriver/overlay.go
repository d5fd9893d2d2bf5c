package wgpudriver

import (
	_ "embed"
	"fmt"

	"cogentcore.org/core/base/errors"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/driver"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed shaders/composite.wgsl
var compositeShaderSource string

// premultipliedBlend composites premultiplied overlay pixels over the frame.
var premultipliedBlend = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
}

// overlayDevice composites CPU-drawn pixels over swap chain buffers. Each wrapped
// target owns a texture the pixels are written into; Flush draws every written texture
// over its buffer with a fullscreen triangle, on the same queue as the frame.
type overlayDevice struct {
	dev            *device
	module         *wgpu.ShaderModule
	layout         *wgpu.BindGroupLayout
	pipelineLayout *wgpu.PipelineLayout
	pipeline       *wgpu.RenderPipeline
	sampler        *wgpu.Sampler
	pending        []*wrappedTarget
}

var _ driver.OverlayDevice = &overlayDevice{}

func (d *device) CreateOverlayDevice(queue driver.CommandQueue) (driver.OverlayDevice, error) {
	if q, ok := queue.(*commandQueue); !ok || q.dev != d {
		return nil, errors.New("wgpudriver: overlay device must share the device queue")
	}
	if !d.hasSurfaceFormat {
		return nil, errors.New("wgpudriver: overlay device needs a configured swap chain")
	}
	od := &overlayDevice{dev: d}

	var err error
	od.module, err = d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "Overlay Composite",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: compositeShaderSource,
		},
	})
	if errors.Log(err) != nil {
		return nil, err
	}

	tex := wgpu.BindGroupLayoutEntry{Binding: 0, Visibility: wgpu.ShaderStageFragment}
	tex.Texture.SampleType = wgpu.TextureSampleTypeFloat
	tex.Texture.ViewDimension = wgpu.TextureViewDimension2D
	samp := wgpu.BindGroupLayoutEntry{Binding: 1, Visibility: wgpu.ShaderStageFragment}
	samp.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	od.layout, err = d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "Overlay Composite",
		Entries: []wgpu.BindGroupLayoutEntry{tex, samp},
	})
	if errors.Log(err) != nil {
		od.Release()
		return nil, err
	}

	od.pipelineLayout, err = d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Overlay Composite",
		BindGroupLayouts: []*wgpu.BindGroupLayout{od.layout},
	})
	if errors.Log(err) != nil {
		od.Release()
		return nil, err
	}

	blend := premultipliedBlend
	od.pipeline, err = d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Overlay Composite Pipeline",
		Layout: od.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     od.module,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     od.module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    d.surfaceFormat,
				Blend:     &blend,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if errors.Log(err) != nil {
		od.Release()
		return nil, err
	}

	od.sampler, err = d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Overlay Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeNearest,
		MinFilter:     wgpu.FilterModeNearest,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if errors.Log(err) != nil {
		od.Release()
		return nil, err
	}
	return od, nil
}

func (od *overlayDevice) CreateWrappedTarget(buffer driver.Resource, width, height uint32) (driver.WrappedTarget, error) {
	bb, ok := buffer.(*backBuffer)
	if !ok {
		return nil, errors.New("wgpudriver: overlay targets wrap swap chain buffers")
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("wgpudriver: overlay target has no area (%dx%d)", width, height)
	}

	tex, err := od.dev.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: fmt.Sprintf("Overlay Target %d", bb.index),
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if errors.Log(err) != nil {
		return nil, err
	}
	wt := &wrappedTarget{owner: od, target: bb, width: width, height: height, texture: tex}
	wt.view, err = tex.CreateView(nil)
	if errors.Log(err) != nil {
		wt.Release()
		return nil, err
	}
	wt.group, err = od.dev.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  fmt.Sprintf("Overlay Target %d Bind Group", bb.index),
		Layout: od.layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: wt.view},
			{Binding: 1, Sampler: od.sampler},
		},
	})
	if errors.Log(err) != nil {
		wt.Release()
		return nil, err
	}
	return wt, nil
}

// Flush composites every target written since the last flush over its swap chain buffer.
func (od *overlayDevice) Flush() error {
	if len(od.pending) == 0 {
		return nil
	}
	pending := od.pending
	od.pending = nil

	enc, err := od.dev.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer enc.Release()
	for _, wt := range pending {
		if wt.target.index != wt.target.chain.index {
			return fmt.Errorf("wgpudriver: overlay buffer %d is not the current buffer", wt.target.index)
		}
		view, err := wt.target.chain.acquire()
		if err != nil {
			return err
		}
		pass := enc.BeginRenderPass(&wgpu.RenderPassDescriptor{
			ColorAttachments: []wgpu.RenderPassColorAttachment{{
				View:    view,
				LoadOp:  wgpu.LoadOpLoad,
				StoreOp: wgpu.StoreOpStore,
			}},
		})
		pass.SetPipeline(od.pipeline)
		pass.SetBindGroup(0, wt.group, nil)
		pass.Draw(3, 1, 0, 0)
		pass.End()
	}
	cb, err := enc.Finish(nil)
	if err != nil {
		return err
	}
	od.dev.queue.Submit(cb)
	cb.Release()
	return nil
}

func (od *overlayDevice) Release() {
	od.pending = nil
	if od.sampler != nil {
		od.sampler.Release()
		od.sampler = nil
	}
	if od.pipeline != nil {
		od.pipeline.Release()
		od.pipeline = nil
	}
	if od.pipelineLayout != nil {
		od.pipelineLayout.Release()
		od.pipelineLayout = nil
	}
	if od.layout != nil {
		od.layout.Release()
		od.layout = nil
	}
	if od.module != nil {
		od.module.Release()
		od.module = nil
	}
}

type wrappedTarget struct {
	owner    *overlayDevice
	target   *backBuffer
	width    uint32
	height   uint32
	texture  *wgpu.Texture
	view     *wgpu.TextureView
	group    *wgpu.BindGroup
	acquired bool
}

var _ driver.WrappedTarget = &wrappedTarget{}

func (wt *wrappedTarget) Acquire() error {
	if wt.acquired {
		return fmt.Errorf("wgpudriver: overlay target %d already acquired", wt.target.index)
	}
	wt.acquired = true
	return nil
}

func (wt *wrappedTarget) WritePixels(pix []byte) error {
	if !wt.acquired {
		return fmt.Errorf("wgpudriver: overlay target %d written without Acquire", wt.target.index)
	}
	if want := int(wt.width) * int(wt.height) * 4; len(pix) != want {
		return fmt.Errorf("wgpudriver: overlay target %d got %d bytes, want %d", wt.target.index, len(pix), want)
	}
	wt.owner.dev.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  wt.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pix,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  wt.width * 4,
			RowsPerImage: wt.height,
		},
		&wgpu.Extent3D{
			Width:              wt.width,
			Height:             wt.height,
			DepthOrArrayLayers: 1,
		},
	)
	wt.owner.pending = append(wt.owner.pending, wt)
	return nil
}

func (wt *wrappedTarget) Unacquire() error {
	if !wt.acquired {
		return fmt.Errorf("wgpudriver: overlay target %d not acquired", wt.target.index)
	}
	wt.acquired = false
	return nil
}

func (wt *wrappedTarget) Release() {
	if wt.group != nil {
		wt.group.Release()
		wt.group = nil
	}
	if wt.view != nil {
		wt.view.Release()
		wt.view = nil
	}
	if wt.texture != nil {
		wt.texture.Release()
		wt.texture = nil
	}
}
