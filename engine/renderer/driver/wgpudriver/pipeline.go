package wgpudriver

import (
	"fmt"

	"cogentcore.org/core/base/errors"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/driver"
	"github.com/cogentcore/webgpu/wgpu"
)

// rootSignature maps each root parameter onto the bind group of the same index. Inline
// constants become a uniform buffer at binding 0. A descriptor table becomes a texture
// at binding 0, plus the static sampler at binding 1 when one is declared.
type rootSignature struct {
	desc    driver.RootSignatureDesc
	layouts []*wgpu.BindGroupLayout
	sampler *wgpu.Sampler

	// constants holds the uniform buffer and bind group of each inline constants parameter.
	constants map[int]*constantsBinding
}

type constantsBinding struct {
	buffer *wgpu.Buffer
	group  *wgpu.BindGroup
	size   uint64
}

var _ driver.RootSignature = &rootSignature{}

func shaderStage(v driver.ShaderVisibility) wgpu.ShaderStage {
	switch v {
	case driver.ShaderVisibilityVertex:
		return wgpu.ShaderStageVertex
	case driver.ShaderVisibilityPixel:
		return wgpu.ShaderStageFragment
	default:
		return wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
	}
}

func filterMode(f driver.Filter) wgpu.FilterMode {
	if f == driver.FilterLinear {
		return wgpu.FilterModeLinear
	}
	return wgpu.FilterModeNearest
}

// addressMode maps the sampler address mode. Border addressing needs a native-only
// feature in WebGPU and falls back to clamping.
func addressMode(m driver.AddressMode) wgpu.AddressMode {
	switch m {
	case driver.AddressModeWrap:
		return wgpu.AddressModeRepeat
	default:
		return wgpu.AddressModeClampToEdge
	}
}

func (d *device) CreateRootSignature(desc driver.RootSignatureDesc) (driver.RootSignature, error) {
	if len(desc.StaticSamplers) > 1 {
		return nil, fmt.Errorf("wgpudriver: at most one static sampler, got %d", len(desc.StaticSamplers))
	}
	rs := &rootSignature{desc: desc, constants: map[int]*constantsBinding{}}

	if len(desc.StaticSamplers) == 1 {
		s := desc.StaticSamplers[0]
		samp, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
			Label:         "Static Sampler",
			AddressModeU:  addressMode(s.AddressMode),
			AddressModeV:  addressMode(s.AddressMode),
			AddressModeW:  addressMode(s.AddressMode),
			MagFilter:     filterMode(s.Filter),
			MinFilter:     filterMode(s.Filter),
			MipmapFilter:  wgpu.MipmapFilterModeNearest,
			LodMinClamp:   0,
			LodMaxClamp:   32,
			MaxAnisotropy: 1,
		})
		if errors.Log(err) != nil {
			return nil, err
		}
		rs.sampler = samp
	}

	for i, p := range desc.Parameters {
		layout, err := d.createParameterLayout(rs, i, p)
		if err != nil {
			rs.Release()
			return nil, err
		}
		rs.layouts = append(rs.layouts, layout)
	}
	return rs, nil
}

// createParameterLayout creates the bind group layout of parameter i, and for inline
// constants the uniform buffer and bind group backing them.
func (d *device) createParameterLayout(rs *rootSignature, i int, p driver.RootParameter) (*wgpu.BindGroupLayout, error) {
	var entries []wgpu.BindGroupLayoutEntry
	switch p.Type {
	case driver.RootParameterConstants:
		entry := wgpu.BindGroupLayoutEntry{Binding: 0, Visibility: shaderStage(p.Visibility)}
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		entry.Buffer.MinBindingSize = uint64(p.Num32BitValues) * 4
		entries = append(entries, entry)
	case driver.RootParameterDescriptorTable:
		if p.NumDescriptors != 1 {
			return nil, fmt.Errorf("wgpudriver: descriptor table %d must hold one view, got %d", i, p.NumDescriptors)
		}
		tex := wgpu.BindGroupLayoutEntry{Binding: 0, Visibility: shaderStage(p.Visibility)}
		tex.Texture.SampleType = wgpu.TextureSampleTypeFloat
		tex.Texture.ViewDimension = wgpu.TextureViewDimension2D
		entries = append(entries, tex)
		if rs.sampler != nil {
			samp := wgpu.BindGroupLayoutEntry{Binding: 1, Visibility: shaderStage(p.Visibility)}
			samp.Sampler.Type = wgpu.SamplerBindingTypeFiltering
			entries = append(entries, samp)
		}
	default:
		return nil, fmt.Errorf("wgpudriver: unsupported root parameter type %d", p.Type)
	}

	layout, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   fmt.Sprintf("Root Parameter %d", i),
		Entries: entries,
	})
	if errors.Log(err) != nil {
		return nil, err
	}
	if p.Type != driver.RootParameterConstants {
		return layout, nil
	}

	size := uint64(p.Num32BitValues) * 4
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: fmt.Sprintf("Root Constants %d", i),
		Size:  size,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if errors.Log(err) != nil {
		layout.Release()
		return nil, err
	}
	group, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  fmt.Sprintf("Root Constants %d Bind Group", i),
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: buf, Offset: 0, Size: wgpu.WholeSize},
		},
	})
	if errors.Log(err) != nil {
		buf.Release()
		layout.Release()
		return nil, err
	}
	rs.constants[i] = &constantsBinding{buffer: buf, group: group, size: size}
	return layout, nil
}

// tableGroup creates the bind group of descriptor table param pointing at view. The
// caller releases it after submission.
func (rs *rootSignature) tableGroup(d *device, param int, view *wgpu.TextureView) (*wgpu.BindGroup, error) {
	if param < 0 || param >= len(rs.layouts) {
		return nil, fmt.Errorf("wgpudriver: root parameter %d out of range", param)
	}
	entries := []wgpu.BindGroupEntry{{Binding: 0, TextureView: view}}
	if rs.sampler != nil {
		entries = append(entries, wgpu.BindGroupEntry{Binding: 1, Sampler: rs.sampler})
	}
	return d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   fmt.Sprintf("Root Table %d Bind Group", param),
		Layout:  rs.layouts[param],
		Entries: entries,
	})
}

func (rs *rootSignature) Release() {
	for _, c := range rs.constants {
		c.group.Release()
		c.buffer.Release()
	}
	rs.constants = nil
	for _, l := range rs.layouts {
		l.Release()
	}
	rs.layouts = nil
	if rs.sampler != nil {
		rs.sampler.Release()
		rs.sampler = nil
	}
}

type pipelineState struct {
	rootSig  *rootSignature
	pipeline *wgpu.RenderPipeline
	layout   *wgpu.PipelineLayout
	modules  []*wgpu.ShaderModule
}

var _ driver.PipelineState = &pipelineState{}

func vertexFormat(f driver.InputElementFormat) (wgpu.VertexFormat, error) {
	switch f {
	case driver.InputFloat32x2:
		return wgpu.VertexFormatFloat32x2, nil
	case driver.InputFloat32x3:
		return wgpu.VertexFormatFloat32x3, nil
	case driver.InputUnorm8x4:
		return wgpu.VertexFormatUnorm8x4, nil
	default:
		return 0, fmt.Errorf("wgpudriver: unsupported vertex format %d", f)
	}
}

func cullMode(c driver.CullMode) wgpu.CullMode {
	switch c {
	case driver.CullModeFront:
		return wgpu.CullModeFront
	case driver.CullModeBack:
		return wgpu.CullModeBack
	default:
		return wgpu.CullModeNone
	}
}

func compareFunction(c driver.ComparisonFunc) wgpu.CompareFunction {
	switch c {
	case driver.ComparisonLessEqual:
		return wgpu.CompareFunctionLessEqual
	case driver.ComparisonAlways:
		return wgpu.CompareFunctionAlways
	default:
		return wgpu.CompareFunctionLess
	}
}

// alphaBlend is SrcAlpha / InvSrcAlpha on color and alpha.
var alphaBlend = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
}

// colorTargetFormat returns the format pipelines render into. Swap chain buffers use
// whatever format the surface was configured with.
func (d *device) colorTargetFormat(f driver.Format) (wgpu.TextureFormat, error) {
	if f == driver.FormatR8G8B8A8Unorm && d.hasSurfaceFormat {
		return d.surfaceFormat, nil
	}
	return textureFormat(f)
}

// createShaderModule builds the module from the WGSL source of bc. The byte-code was
// already produced by the compile step, which is the gate for invalid shaders.
func (d *device) createShaderModule(bc driver.ShaderBytecode) (*wgpu.ShaderModule, error) {
	if bc.Source == "" {
		return nil, fmt.Errorf("wgpudriver: shader stage %s has no WGSL source", bc.EntryPoint)
	}
	return d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: bc.EntryPoint,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: bc.Source,
		},
	})
}

func (d *device) CreatePipelineState(desc driver.PipelineStateDesc) (driver.PipelineState, error) {
	rs, ok := desc.RootSignature.(*rootSignature)
	if !ok {
		return nil, errors.New("wgpudriver: pipeline needs a wgpu root signature")
	}
	ps := &pipelineState{rootSig: rs}

	vs, err := d.createShaderModule(desc.VS)
	if errors.Log(err) != nil {
		return nil, err
	}
	ps.modules = append(ps.modules, vs)
	fs, err := d.createShaderModule(desc.PS)
	if errors.Log(err) != nil {
		ps.Release()
		return nil, err
	}
	ps.modules = append(ps.modules, fs)

	ps.layout, err = d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Root Signature",
		BindGroupLayouts: rs.layouts,
	})
	if errors.Log(err) != nil {
		ps.Release()
		return nil, err
	}

	attrs := make([]wgpu.VertexAttribute, 0, len(desc.InputLayout))
	for _, e := range desc.InputLayout {
		format, err := vertexFormat(e.Format)
		if err != nil {
			ps.Release()
			return nil, err
		}
		attrs = append(attrs, wgpu.VertexAttribute{
			Format:         format,
			Offset:         uint64(e.Offset),
			ShaderLocation: e.Location,
		})
	}

	colorFormat, err := d.colorTargetFormat(desc.RTVFormat)
	if err != nil {
		ps.Release()
		return nil, err
	}
	target := wgpu.ColorTargetState{
		Format:    colorFormat,
		WriteMask: wgpu.ColorWriteMaskAll,
	}
	if desc.Blend.Enabled && desc.Blend.AlphaBlend {
		blend := alphaBlend
		target.Blend = &blend
	}

	var depthStencil *wgpu.DepthStencilState
	if desc.DepthStencil.DepthEnable {
		depthFormat, err := textureFormat(desc.DSVFormat)
		if err != nil {
			ps.Release()
			return nil, err
		}
		depthStencil = &wgpu.DepthStencilState{
			Format:            depthFormat,
			DepthWriteEnabled: desc.DepthStencil.DepthWrite,
			DepthCompare:      compareFunction(desc.DepthStencil.DepthFunc),
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}

	sampleCount := uint32(max(desc.SampleCount, 1))
	ps.pipeline, err = d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Frame Render Pipeline",
		Layout: ps.layout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: desc.VS.EntryPoint,
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: uint64(desc.VertexStride),
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes:  attrs,
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: desc.PS.EntryPoint,
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  cullMode(desc.CullMode),
		},
		Multisample: wgpu.MultisampleState{
			Count: sampleCount,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: depthStencil,
	})
	if errors.Log(err) != nil {
		ps.Release()
		return nil, err
	}
	return ps, nil
}

func (ps *pipelineState) Release() {
	if ps.pipeline != nil {
		ps.pipeline.Release()
		ps.pipeline = nil
	}
	if ps.layout != nil {
		ps.layout.Release()
		ps.layout = nil
	}
	for _, m := range ps.modules {
		m.Release()
	}
	ps.modules = nil
}
