package renderer

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
)

//go:embed assets/checker.png
var defaultTexture []byte

// Assets is the static content uploaded once per device: the indexed mesh and the
// encoded texture image. A zero mesh or texture falls back to the built-in cube or texture.
type Assets struct {
	// Vertices and Indices form the indexed triangle list drawn each frame.
	Vertices []GPUVertex
	Indices  []uint16

	// Texture is an encoded PNG or BMP image sampled by the pixel stage.
	Texture []byte
}

// preparedAssets is the CPU-side form of Assets, kept for the lifetime of the renderer
// so a rebuilt device can upload it again.
type preparedAssets struct {
	vertexData []byte
	indexData  []byte
	indexCount uint32
	texture    *image.NRGBA
}

// CubeMesh returns a unit cube centered on the origin: 24 vertices with per-face
// normals, 0..1 UVs and opaque white color, and 36 indices, two triangles per face.
func CubeMesh() ([]GPUVertex, []uint16) {
	type face struct {
		normal [3]float32
		corner [4][3]float32
	}
	faces := []face{
		{[3]float32{0, 0, 1}, [4][3]float32{{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1}}},
		{[3]float32{0, 0, -1}, [4][3]float32{{1, -1, -1}, {-1, -1, -1}, {-1, 1, -1}, {1, 1, -1}}},
		{[3]float32{1, 0, 0}, [4][3]float32{{1, -1, 1}, {1, -1, -1}, {1, 1, -1}, {1, 1, 1}}},
		{[3]float32{-1, 0, 0}, [4][3]float32{{-1, -1, -1}, {-1, -1, 1}, {-1, 1, 1}, {-1, 1, -1}}},
		{[3]float32{0, 1, 0}, [4][3]float32{{-1, 1, 1}, {1, 1, 1}, {1, 1, -1}, {-1, 1, -1}}},
		{[3]float32{0, -1, 0}, [4][3]float32{{-1, -1, -1}, {1, -1, -1}, {1, -1, 1}, {-1, -1, 1}}},
	}
	uvs := [4][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}}
	white := PackColor(255, 255, 255, 255)

	vertices := make([]GPUVertex, 0, len(faces)*4)
	indices := make([]uint16, 0, len(faces)*6)
	for _, f := range faces {
		first := uint16(len(vertices))
		for i, c := range f.corner {
			vertices = append(vertices, GPUVertex{
				Position: [3]float32{c[0] * 0.5, c[1] * 0.5, c[2] * 0.5},
				Normal:   f.normal,
				UV:       uvs[i],
				Color:    white,
			})
		}
		for _, i := range [6]uint16{0, 1, 2, 0, 2, 3} {
			indices = append(indices, first+i)
		}
	}
	return vertices, indices
}

// DecodeTexture decodes an encoded image into tightly packed RGBA8 rows, flipped
// vertically so the first row is the bottom of the image.
//
// Parameters:
//   - data: the encoded image bytes
//
// Returns:
//   - *image.NRGBA: the decoded texture
//   - error: an error if data is not a supported image
func DecodeTexture(data []byte) (*image.NRGBA, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode texture: %w", err)
	}
	flipped := imaging.FlipV(img)
	if flipped.Bounds().Empty() {
		return nil, errors.New("decode texture: empty image")
	}
	return flipped, nil
}

// prepareAssets builds the mesh buffer images and decodes the texture concurrently on pool.
func prepareAssets(pool worker.DynamicWorkerPool, a Assets) (*preparedAssets, error) {
	vertices, indices := a.Vertices, a.Indices
	if len(vertices) == 0 || len(indices) == 0 {
		vertices, indices = CubeMesh()
	}
	for _, i := range indices {
		if int(i) >= len(vertices) {
			return nil, fmt.Errorf("index %d out of range of %d vertices", i, len(vertices))
		}
	}
	texture := a.Texture
	if len(texture) == 0 {
		texture = defaultTexture
	}

	var (
		wg         sync.WaitGroup
		vertexData []byte
		indexData  []byte
		decoded    *image.NRGBA
		decodeErr  error
	)
	wg.Add(2)
	pool.SubmitTask(worker.Task{
		ID: 0,
		Do: func() (any, error) {
			defer wg.Done()
			vertexData = MarshalVertices(vertices)
			indexData = MarshalIndices(indices)
			return nil, nil
		},
	})
	pool.SubmitTask(worker.Task{
		ID: 1,
		Do: func() (any, error) {
			defer wg.Done()
			decoded, decodeErr = DecodeTexture(texture)
			return nil, decodeErr
		},
	})
	wg.Wait()

	if decodeErr != nil {
		return nil, decodeErr
	}
	return &preparedAssets{
		vertexData: vertexData,
		indexData:  indexData,
		indexCount: uint32(len(indices)),
		texture:    decoded,
	}, nil
}

// newAssetPool creates the worker pool used for asset preparation.
func newAssetPool(workers int) worker.DynamicWorkerPool {
	return worker.NewDynamicWorkerPool(workers, 8, time.Second)
}
