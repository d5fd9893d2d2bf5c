package renderer

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/driver"
)

const (
	// VertexSize is the byte stride of a GPUVertex.
	VertexSize = 36

	// DrawConstantsSize is the byte size of the inline constant block.
	DrawConstantsSize = 192

	// drawConstantsCount is the number of 32-bit values in the inline constant block.
	drawConstantsCount = DrawConstantsSize / 4
)

// GPUVertex is one vertex of the static mesh. Matches the vertex shader input and
// VertexInputLayout exactly.
// Size: 36 bytes.
type GPUVertex struct {
	Position [3]float32 // offset  0: float32x3
	Normal   [3]float32 // offset 12: float32x3
	UV       [2]float32 // offset 24: float32x2
	Color    uint32     // offset 32: unorm8x4, R in the low byte
}

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (36)
func (v *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*v))
}

// MarshalTo writes the vertex into buf, which must hold at least VertexSize bytes.
func (v *GPUVertex) MarshalTo(buf []byte) {
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v.Position[i]))
		binary.LittleEndian.PutUint32(buf[12+i*4:], math.Float32bits(v.Normal[i]))
	}
	for i := range 2 {
		binary.LittleEndian.PutUint32(buf[24+i*4:], math.Float32bits(v.UV[i]))
	}
	binary.LittleEndian.PutUint32(buf[32:], v.Color)
}

// MarshalVertices packs vertices into a contiguous vertex buffer image.
//
// Parameters:
//   - vertices: the vertices to pack
//
// Returns:
//   - []byte: len(vertices) * VertexSize bytes
func MarshalVertices(vertices []GPUVertex) []byte {
	buf := make([]byte, len(vertices)*VertexSize)
	for i := range vertices {
		vertices[i].MarshalTo(buf[i*VertexSize:])
	}
	return buf
}

// MarshalIndices packs 16-bit indices into an index buffer image.
//
// Parameters:
//   - indices: the indices to pack
//
// Returns:
//   - []byte: len(indices) * 2 bytes
func MarshalIndices(indices []uint16) []byte {
	buf := make([]byte, len(indices)*2)
	for i, v := range indices {
		binary.LittleEndian.PutUint16(buf[i*2:], v)
	}
	return buf
}

// PackColor packs 8-bit channels into the unorm8x4 vertex color.
func PackColor(r, g, b, a uint8) uint32 {
	return uint32(r) | uint32(g)<<8 | uint32(b)<<16 | uint32(a)<<24
}

// VertexInputLayout is the input layout matching GPUVertex.
var VertexInputLayout = []driver.InputElement{
	{Semantic: "POSITION", Location: 0, Format: driver.InputFloat32x3, Offset: 0},
	{Semantic: "NORMAL", Location: 1, Format: driver.InputFloat32x3, Offset: 12},
	{Semantic: "TEXCOORD", Location: 2, Format: driver.InputFloat32x2, Offset: 24},
	{Semantic: "COLOR", Location: 3, Format: driver.InputUnorm8x4, Offset: 32},
}

// GPUDrawConstants is the per-draw inline constant block. Matching the shader's
// DrawConstants struct, matrices are column-major.
// Size: 192 bytes.
type GPUDrawConstants struct {
	Projection [16]float32 // offset   0: mat4x4<f32>
	View       [16]float32 // offset  64: mat4x4<f32>
	Model      [16]float32 // offset 128: mat4x4<f32>
}

// NewDrawConstants builds the constant block for a camera snapshot and an identity model transform.
func NewDrawConstants(projection, view [16]float32) GPUDrawConstants {
	c := GPUDrawConstants{Projection: projection, View: view}
	common.Identity(c.Model[:])
	return c
}

// Size returns the size of the GPUDrawConstants struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (192)
func (c *GPUDrawConstants) Size() int {
	return int(unsafe.Sizeof(*c))
}

// Marshal serializes the constant block for upload as 48 root constants.
//
// Returns:
//   - []byte: the serialized byte buffer
func (c *GPUDrawConstants) Marshal() []byte {
	buf := make([]byte, c.Size())
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(c.Projection[i]))
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(c.View[i]))
		binary.LittleEndian.PutUint32(buf[128+i*4:], math.Float32bits(c.Model[i]))
	}
	return buf
}
