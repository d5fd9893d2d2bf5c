package renderer

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/driver"
	"github.com/stretchr/testify/assert"
)

func TestGPUVertexLayout(t *testing.T) {
	var v GPUVertex
	assert.Equal(t, VertexSize, v.Size())

	v = GPUVertex{
		Position: [3]float32{1, 2, 3},
		Normal:   [3]float32{4, 5, 6},
		UV:       [2]float32{7, 8},
		Color:    PackColor(0x11, 0x22, 0x33, 0x44),
	}
	buf := make([]byte, VertexSize)
	v.MarshalTo(buf)

	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	assert.Equal(t, float32(1), f(0))
	assert.Equal(t, float32(3), f(8))
	assert.Equal(t, float32(4), f(12))
	assert.Equal(t, float32(6), f(20))
	assert.Equal(t, float32(7), f(24))
	assert.Equal(t, float32(8), f(28))
	assert.Equal(t, []byte{0x11, 0x22, 0x33, 0x44}, buf[32:36])

	for i, el := range VertexInputLayout {
		assert.Equal(t, uint32(i), el.Location)
	}
	assert.Equal(t, uint32(32), VertexInputLayout[3].Offset)
	assert.Equal(t, driver.InputUnorm8x4, VertexInputLayout[3].Format)
}

func TestDrawConstantsLayout(t *testing.T) {
	var proj, view [16]float32
	for i := range 16 {
		proj[i] = float32(i)
		view[i] = float32(100 + i)
	}
	c := NewDrawConstants(proj, view)
	assert.Equal(t, DrawConstantsSize, c.Size())
	assert.Equal(t, 48, drawConstantsCount)

	buf := c.Marshal()
	assert.Len(t, buf, DrawConstantsSize)

	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	assert.Equal(t, float32(5), f(5*4))
	assert.Equal(t, float32(100), f(64))
	assert.Equal(t, float32(115), f(64+15*4))
	for i := range 16 {
		want := float32(0)
		if i%5 == 0 {
			want = 1
		}
		assert.Equal(t, want, f(128+i*4), "model[%d]", i)
	}
}

func TestMarshalIndices(t *testing.T) {
	assert.Equal(t, []byte{1, 0, 0x02, 0x01}, MarshalIndices([]uint16{1, 0x0102}))
	assert.Empty(t, MarshalIndices(nil))
}
