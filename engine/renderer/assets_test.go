package renderer

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func TestCubeMesh(t *testing.T) {
	vertices, indices := CubeMesh()
	require.Len(t, vertices, 24)
	require.Len(t, indices, 36)

	for _, i := range indices {
		assert.Less(t, int(i), len(vertices))
	}
	for _, v := range vertices {
		n := v.Normal[0]*v.Normal[0] + v.Normal[1]*v.Normal[1] + v.Normal[2]*v.Normal[2]
		assert.Equal(t, float32(1), n)
		for _, p := range v.Position {
			assert.Equal(t, float32(0.5), max(p, -p))
		}
		assert.Equal(t, PackColor(255, 255, 255, 255), v.Color)
	}
}

func TestDecodeTextureFlipsRows(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 3))
	draw.Draw(src, src.Bounds(), image.White, image.Point{}, draw.Src)
	src.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	src.SetNRGBA(1, 2, color.NRGBA{B: 255, A: 255})

	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, src))

	img, err := DecodeTexture(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, image.Pt(2, 3), img.Bounds().Size())
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, img.NRGBAAt(0, 2))
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, img.NRGBAAt(1, 0))
}

func TestDecodeTextureRejectsGarbage(t *testing.T) {
	_, err := DecodeTexture([]byte("not an image"))
	assert.Error(t, err)
}

func TestPrepareAssetsDefaults(t *testing.T) {
	pool := newAssetPool(2)
	defer pool.Stop()

	p, err := prepareAssets(pool, Assets{})
	require.NoError(t, err)
	assert.Len(t, p.vertexData, 24*VertexSize)
	assert.Len(t, p.indexData, 36*2)
	assert.Equal(t, uint32(36), p.indexCount)
	assert.Equal(t, image.Pt(64, 64), p.texture.Bounds().Size())
}

func TestPrepareAssetsErrors(t *testing.T) {
	pool := newAssetPool(1)
	defer pool.Stop()

	vertices, _ := CubeMesh()
	_, err := prepareAssets(pool, Assets{Vertices: vertices[:3], Indices: []uint16{0, 1, 3}})
	assert.ErrorContains(t, err, "out of range")

	_, err = prepareAssets(pool, Assets{Texture: []byte{0, 1, 2}})
	assert.ErrorContains(t, err, "decode texture")
}
