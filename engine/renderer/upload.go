package renderer

import (
	"fmt"
	"image"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/driver"
)

// loadAssets uploads the static mesh and texture if the current device does not have
// them yet. CPU-side preparation happens once per renderer. Caller must hold the mutex.
func (r *renderer) loadAssets() bool {
	if r.vertexBuffer.Valid() && r.indexBuffer.Valid() && r.texture.Valid() {
		return true
	}
	if r.prepared == nil {
		p, err := prepareAssets(r.pool, r.assets)
		if err != nil {
			return r.fail("static assets", err)
		}
		r.prepared = p
	}

	if !r.vertexBuffer.Valid() {
		vb, err := r.createUploadBuffer("vertices", r.prepared.vertexData)
		if err != nil {
			return r.fail("vertex buffer", err)
		}
		r.vertexBuffer = NewRef(vb)
		r.vertexBufferView = driver.VertexBufferView{
			Buffer: vb,
			Size:   uint32(len(r.prepared.vertexData)),
			Stride: VertexSize,
		}
	}
	if !r.indexBuffer.Valid() {
		ib, err := r.createUploadBuffer("indices", r.prepared.indexData)
		if err != nil {
			return r.fail("index buffer", err)
		}
		r.indexBuffer = NewRef(ib)
		r.indexBufferView = driver.IndexBufferView{
			Buffer: ib,
			Size:   uint32(len(r.prepared.indexData)),
			Format: driver.IndexFormatUint16,
		}
		r.indexCount = r.prepared.indexCount
	}
	if !r.texture.Valid() {
		if err := r.uploadTexture(r.prepared.texture); err != nil {
			return r.fail("texture", err)
		}
	}
	Logger().Debug("uploaded static assets",
		"vertexBytes", len(r.prepared.vertexData),
		"indices", r.indexCount,
		"texture", r.prepared.texture.Bounds().Size(),
	)
	return true
}

// createUploadBuffer creates a CPU-visible buffer holding a copy of data.
func (r *renderer) createUploadBuffer(label string, data []byte) (driver.Resource, error) {
	buf, err := r.device.Get().CreateCommittedResource(driver.ResourceDesc{
		Label:     label,
		Dimension: driver.ResourceDimensionBuffer,
		Heap:      driver.HeapTypeUpload,
		Width:     uint64(len(data)),
	}, driver.ResourceStateGenericRead)
	if err != nil {
		return nil, err
	}
	mem, err := buf.Map()
	if err != nil {
		buf.Release()
		return nil, fmt.Errorf("map %s: %w", label, err)
	}
	copy(mem, data)
	buf.Unmap()
	return buf, nil
}

// uploadTexture creates the texture in the copy-destination state, copies img into it
// through a staging buffer on the shared command list, drains the GPU and writes the
// shader resource view into slot 0 of the SRV heap.
func (r *renderer) uploadTexture(img *image.NRGBA) error {
	size := img.Bounds().Size()
	width, height := uint32(size.X), uint32(size.Y)

	tex, err := r.device.Get().CreateCommittedResource(driver.ResourceDesc{
		Label:     "texture",
		Dimension: driver.ResourceDimensionTexture2D,
		Heap:      driver.HeapTypeDefault,
		Width:     uint64(width),
		Height:    height,
		Format:    backBufferFormat,
	}, driver.ResourceStateCopyDest)
	if err != nil {
		return err
	}

	pitch := driver.AlignedRowPitch(width, backBufferFormat)
	staging, err := r.device.Get().CreateCommittedResource(driver.ResourceDesc{
		Label:     "texture upload",
		Dimension: driver.ResourceDimensionBuffer,
		Heap:      driver.HeapTypeUpload,
		Width:     uint64(pitch) * uint64(height),
	}, driver.ResourceStateGenericRead)
	if err != nil {
		tex.Release()
		return err
	}
	defer staging.Release()

	mem, err := staging.Map()
	if err != nil {
		tex.Release()
		return fmt.Errorf("map texture upload: %w", err)
	}
	rowBytes := int(width) * 4
	for y := range int(height) {
		src := img.Pix[y*img.Stride : y*img.Stride+rowBytes]
		copy(mem[y*int(pitch):], src)
	}
	staging.Unmap()

	alloc := r.allocators[r.frameIndex].Get()
	list := r.commandList.Get()
	if err := alloc.Reset(); err != nil {
		panic(fmt.Sprintf("failed to reset command allocator %d: %v", r.frameIndex, err))
	}
	if err := list.Reset(alloc, nil); err != nil {
		panic(fmt.Sprintf("failed to reset command list: %v", err))
	}
	list.CopyTextureRegion(tex, staging, driver.TextureFootprint{
		Format:   backBufferFormat,
		Width:    width,
		Height:   height,
		RowPitch: pitch,
	})
	list.ResourceBarrier(driver.Barrier{
		Resource: tex,
		Before:   driver.ResourceStateCopyDest,
		After:    driver.ResourceStatePixelShaderResource,
	})
	if err := list.Close(); err != nil {
		panic(fmt.Sprintf("failed to close command list: %v", err))
	}
	r.queue.Get().ExecuteCommandLists(list)
	r.signalFence()
	r.waitFence()

	if err := r.device.Get().CreateShaderResourceView(tex, r.srvHeap.Get().Handle(0)); err != nil {
		tex.Release()
		return err
	}
	r.texture = NewRef(tex)
	return nil
}
