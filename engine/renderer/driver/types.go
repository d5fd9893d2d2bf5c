package driver

import "fmt"

// FeatureLevel identifies a capability tier a device can be created at.
// Levels are ordered: a higher value implies every capability of a lower one.
type FeatureLevel int

const (
	FeatureLevel120 FeatureLevel = 0xc000
	FeatureLevel121 FeatureLevel = 0xc100
	FeatureLevel122 FeatureLevel = 0xc200
)

// FeatureLevels lists the accepted feature levels from lowest to highest.
var FeatureLevels = []FeatureLevel{FeatureLevel120, FeatureLevel121, FeatureLevel122}

func (l FeatureLevel) String() string {
	switch l {
	case FeatureLevel120:
		return "12_0"
	case FeatureLevel121:
		return "12_1"
	case FeatureLevel122:
		return "12_2"
	default:
		return fmt.Sprintf("FeatureLevel(0x%x)", int(l))
	}
}

// Format is a pixel or depth format shared by textures, views and pipeline targets.
type Format int

const (
	FormatUnknown Format = iota
	FormatR8G8B8A8Unorm
	FormatD32Float
)

// BytesPerPixel reports the texel size of f, or 0 for FormatUnknown.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatR8G8B8A8Unorm, FormatD32Float:
		return 4
	default:
		return 0
	}
}

// AdapterDesc describes an enumerated adapter.
type AdapterDesc struct {
	Name     string
	Software bool
}

// DescriptorHeapType selects which kind of view a heap stores.
type DescriptorHeapType int

const (
	DescriptorHeapTypeRTV DescriptorHeapType = iota
	DescriptorHeapTypeDSV
	DescriptorHeapTypeSRV
)

// DescriptorHeapDesc configures a descriptor heap.
type DescriptorHeapDesc struct {
	Type           DescriptorHeapType
	NumDescriptors int
	ShaderVisible  bool
}

// DescriptorHandle addresses one slot in a descriptor heap.
type DescriptorHandle struct {
	Heap  DescriptorHeap
	Index int
}

// SwapChainFlags carries backend-specific swap chain behavior bits.
type SwapChainFlags uint32

const SwapChainFlagAllowTearing SwapChainFlags = 1 << 0

// SwapChainDesc configures a swap chain. Width and Height of zero size the
// chain to the native surface.
type SwapChainDesc struct {
	BufferCount int
	Width       uint32
	Height      uint32
	Format      Format
	Flags       SwapChainFlags
}

// HeapType selects the memory pool a committed resource lives in.
type HeapType int

const (
	HeapTypeDefault HeapType = iota
	HeapTypeUpload
)

// ResourceDimension selects the shape of a resource.
type ResourceDimension int

const (
	ResourceDimensionBuffer ResourceDimension = iota
	ResourceDimensionTexture2D
)

// ResourceFlags are usage bits for a committed resource.
type ResourceFlags uint32

const (
	ResourceFlagNone              ResourceFlags = 0
	ResourceFlagAllowDepthStencil ResourceFlags = 1 << 0
	ResourceFlagAllowRenderTarget ResourceFlags = 1 << 1
)

// ResourceDesc configures a committed resource. For buffers only Width is used.
type ResourceDesc struct {
	Label     string
	Dimension ResourceDimension
	Heap      HeapType
	Width     uint64
	Height    uint32
	Format    Format
	Flags     ResourceFlags
}

// ResourceState is the usage state a resource is transitioned between.
type ResourceState int

const (
	ResourceStateCommon ResourceState = iota
	ResourceStateRenderTarget
	ResourceStatePresent
	ResourceStateDepthWrite
	ResourceStateCopyDest
	ResourceStatePixelShaderResource
	ResourceStateGenericRead
)

// Barrier is a resource state transition recorded on a command list.
type Barrier struct {
	Resource Resource
	Before   ResourceState
	After    ResourceState
}

// ShaderVisibility selects the pipeline stages a root parameter is visible to.
type ShaderVisibility int

const (
	ShaderVisibilityAll ShaderVisibility = iota
	ShaderVisibilityVertex
	ShaderVisibilityPixel
)

// RootParameterType selects how a root parameter is bound.
type RootParameterType int

const (
	RootParameterConstants RootParameterType = iota
	RootParameterDescriptorTable
)

// RootParameter is one slot of a root signature.
type RootParameter struct {
	Type       RootParameterType
	Visibility ShaderVisibility

	// Num32BitValues is the size of an inline constants parameter.
	Num32BitValues int

	// NumDescriptors is the SRV range length of a descriptor table parameter.
	NumDescriptors int
}

// Filter selects texture sampling.
type Filter int

const (
	FilterPoint Filter = iota
	FilterLinear
)

// AddressMode selects how out-of-range texture coordinates are resolved.
type AddressMode int

const (
	AddressModeWrap AddressMode = iota
	AddressModeClamp
	AddressModeBorder
)

// StaticSampler is a sampler baked into a root signature.
type StaticSampler struct {
	Filter      Filter
	AddressMode AddressMode
	Visibility  ShaderVisibility
}

// RootSignatureDesc describes the resource binding layout of a pipeline.
type RootSignatureDesc struct {
	Parameters     []RootParameter
	StaticSamplers []StaticSampler
}

// ShaderBytecode is a compiled shader stage.
type ShaderBytecode struct {
	Code       []byte
	EntryPoint string

	// Source is the WGSL text Code was compiled from, for backends that take WGSL directly.
	Source string
}

// InputElementFormat is the format of one vertex attribute.
type InputElementFormat int

const (
	InputFloat32x2 InputElementFormat = iota
	InputFloat32x3
	InputUnorm8x4
)

// InputElement describes one vertex attribute in the input layout.
type InputElement struct {
	Semantic string
	Location uint32
	Format   InputElementFormat
	Offset   uint32
}

// BlendDesc configures color blending on the render target.
type BlendDesc struct {
	Enabled bool

	// AlphaBlend uses SrcAlpha / InvSrcAlpha for color and alpha.
	AlphaBlend bool
}

// CullMode selects which faces are discarded by the rasterizer.
type CullMode int

const (
	CullModeNone CullMode = iota
	CullModeFront
	CullModeBack
)

// ComparisonFunc is a depth comparison.
type ComparisonFunc int

const (
	ComparisonLess ComparisonFunc = iota
	ComparisonLessEqual
	ComparisonAlways
)

// DepthStencilDesc configures the depth test.
type DepthStencilDesc struct {
	DepthEnable bool
	DepthWrite  bool
	DepthFunc   ComparisonFunc
}

// PrimitiveTopology selects how vertices are assembled.
type PrimitiveTopology int

const (
	PrimitiveTopologyTriangleList PrimitiveTopology = iota
)

// PipelineStateDesc describes a graphics pipeline.
type PipelineStateDesc struct {
	RootSignature RootSignature
	VS            ShaderBytecode
	PS            ShaderBytecode
	InputLayout   []InputElement
	VertexStride  uint32
	Blend         BlendDesc
	CullMode      CullMode
	DepthStencil  DepthStencilDesc
	Topology      PrimitiveTopology
	RTVFormat     Format
	DSVFormat     Format
	SampleCount   int
}

// Viewport is the rasterizer viewport.
type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

// Rect is a scissor rectangle.
type Rect struct {
	Left, Top, Right, Bottom int32
}

// VertexBufferView binds a region of a buffer resource as vertex input.
type VertexBufferView struct {
	Buffer Resource
	Size   uint32
	Stride uint32
}

// IndexFormat is the element type of an index buffer.
type IndexFormat int

const (
	IndexFormatUint16 IndexFormat = iota
	IndexFormatUint32
)

// IndexBufferView binds a region of a buffer resource as index input.
type IndexBufferView struct {
	Buffer Resource
	Size   uint32
	Format IndexFormat
}

// TextureFootprint describes the layout of texel rows in an upload buffer.
type TextureFootprint struct {
	Offset   uint64
	Format   Format
	Width    uint32
	Height   uint32
	RowPitch uint32
}

// TextureRowPitchAlignment is the required alignment of RowPitch in a TextureFootprint.
const TextureRowPitchAlignment = 256

// AlignedRowPitch returns the row pitch for width texels of format f.
//
// Parameters:
//   - width: the texture width in texels
//   - f: the texel format
//
// Returns:
//   - uint32: the row pitch rounded up to TextureRowPitchAlignment
func AlignedRowPitch(width uint32, f Format) uint32 {
	pitch := width * uint32(f.BytesPerPixel())
	return (pitch + TextureRowPitchAlignment - 1) &^ (TextureRowPitchAlignment - 1)
}
