package wgpudriver

import (
	"fmt"
	"slices"

	"cogentcore.org/core/base/errors"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/driver"
	"github.com/cogentcore/webgpu/wgpu"
)

// command is one recorded command, applied to a submission during replay.
type command func(*submission) error

// commandList records commands and replays them into a single command encoder when
// the list is executed. Resource barriers are not recorded; WebGPU tracks usage itself.
type commandList struct {
	dev       *device
	commands  []command
	recording bool
}

var _ driver.GraphicsCommandList = &commandList{}

func (l *commandList) record(c command) {
	if l.recording {
		l.commands = append(l.commands, c)
	}
}

func (l *commandList) Reset(alloc driver.CommandAllocator, pso driver.PipelineState) error {
	if l.recording {
		return errors.New("wgpudriver: command list reset while recording")
	}
	if _, ok := alloc.(*commandAllocator); !ok {
		return errors.New("wgpudriver: command list reset with a foreign allocator")
	}
	l.commands = l.commands[:0]
	l.recording = true
	if pso != nil {
		l.SetPipelineState(pso)
	}
	return nil
}

func (l *commandList) Close() error {
	if !l.recording {
		return errors.New("wgpudriver: command list closed twice")
	}
	l.recording = false
	return nil
}

func (l *commandList) SetGraphicsRootSignature(rs driver.RootSignature) {
	l.record(func(s *submission) error {
		sig, ok := rs.(*rootSignature)
		if !ok {
			return errors.New("wgpudriver: foreign root signature")
		}
		s.rootSig = sig
		return nil
	})
}

func (l *commandList) SetPipelineState(pso driver.PipelineState) {
	l.record(func(s *submission) error {
		ps, ok := pso.(*pipelineState)
		if !ok {
			return errors.New("wgpudriver: foreign pipeline state")
		}
		s.pso = ps
		return nil
	})
}

// SetDescriptorHeaps is not recorded: tables address heap slots directly.
func (l *commandList) SetDescriptorHeaps(...driver.DescriptorHeap) {}

func (l *commandList) SetGraphicsRootDescriptorTable(param int, base driver.DescriptorHandle) {
	l.record(func(s *submission) error {
		s.tables[param] = base
		return nil
	})
}

func (l *commandList) SetGraphicsRoot32BitConstants(param int, data []byte, offset int) {
	data = slices.Clone(data)
	l.record(func(s *submission) error {
		if s.rootSig == nil {
			return errors.New("wgpudriver: root constants set before the root signature")
		}
		c, ok := s.rootSig.constants[param]
		if !ok {
			return fmt.Errorf("wgpudriver: root parameter %d is not inline constants", param)
		}
		if uint64(offset*4+len(data)) > c.size {
			return fmt.Errorf("wgpudriver: %d bytes of constants at value %d overflow parameter %d", len(data), offset, param)
		}
		return s.dev.queue.WriteBuffer(c.buffer, uint64(offset*4), data)
	})
}

func (l *commandList) RSSetViewports(viewports ...driver.Viewport) {
	if len(viewports) == 0 {
		return
	}
	vp := viewports[0]
	l.record(func(s *submission) error {
		s.viewport = &vp
		return nil
	})
}

func (l *commandList) RSSetScissorRects(rects ...driver.Rect) {
	if len(rects) == 0 {
		return
	}
	rect := rects[0]
	l.record(func(s *submission) error {
		s.scissor = &rect
		return nil
	})
}

func (l *commandList) ResourceBarrier(...driver.Barrier) {}

func (l *commandList) OMSetRenderTargets(rtv driver.DescriptorHandle, dsv *driver.DescriptorHandle) {
	var depth *driver.DescriptorHandle
	if dsv != nil {
		d := *dsv
		depth = &d
	}
	l.record(func(s *submission) error {
		s.endPass()
		s.rtv, s.dsv = &rtv, depth
		return nil
	})
}

func (l *commandList) ClearRenderTargetView(rtv driver.DescriptorHandle, color [4]float32) {
	l.record(func(s *submission) error {
		s.endPass()
		s.clearColor = &color
		return nil
	})
}

func (l *commandList) ClearDepthStencilView(dsv driver.DescriptorHandle, depth float32) {
	l.record(func(s *submission) error {
		s.endPass()
		s.clearDepth = &depth
		return nil
	})
}

// IASetPrimitiveTopology is not recorded: the topology is part of the pipeline.
func (l *commandList) IASetPrimitiveTopology(driver.PrimitiveTopology) {}

func (l *commandList) IASetVertexBuffers(views ...driver.VertexBufferView) {
	if len(views) == 0 {
		return
	}
	view := views[0]
	l.record(func(s *submission) error {
		s.vertices = &view
		return nil
	})
}

func (l *commandList) IASetIndexBuffer(view *driver.IndexBufferView) {
	var v *driver.IndexBufferView
	if view != nil {
		c := *view
		v = &c
	}
	l.record(func(s *submission) error {
		s.indices = v
		return nil
	})
}

func (l *commandList) DrawIndexedInstanced(indexCount, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32) {
	l.record(func(s *submission) error {
		pass, err := s.beginPass()
		if err != nil {
			return err
		}
		if err := s.bind(pass); err != nil {
			return err
		}
		pass.DrawIndexed(indexCount, instanceCount, startIndex, baseVertex, startInstance)
		return nil
	})
}

func (l *commandList) CopyTextureRegion(dst driver.Resource, src driver.Resource, footprint driver.TextureFootprint) {
	l.record(func(s *submission) error {
		d, ok := dst.(*resource)
		if !ok || d.texture == nil {
			return errors.New("wgpudriver: copy destination is not a wgpu texture")
		}
		from, ok := src.(*resource)
		if !ok || from.shadow == nil {
			return errors.New("wgpudriver: copy source is not an upload buffer")
		}
		s.endPass()
		s.dev.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  d.texture,
				MipLevel: 0,
				Origin:   wgpu.Origin3D{},
				Aspect:   wgpu.TextureAspectAll,
			},
			from.shadow[footprint.Offset:],
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  footprint.RowPitch,
				RowsPerImage: footprint.Height,
			},
			&wgpu.Extent3D{
				Width:              footprint.Width,
				Height:             footprint.Height,
				DepthOrArrayLayers: 1,
			},
		)
		return nil
	})
}

func (l *commandList) Release() {
	l.commands = nil
	l.recording = false
}

// replay encodes the recorded commands and submits them to the queue.
func (l *commandList) replay() error {
	if l.recording {
		return errors.New("wgpudriver: executing a command list that is still recording")
	}
	s := &submission{dev: l.dev, tables: map[int]driver.DescriptorHandle{}}
	defer s.release()
	for _, c := range l.commands {
		if err := c(s); err != nil {
			return err
		}
	}
	return s.submit()
}

// submission is the replay state of one executed command list.
type submission struct {
	dev     *device
	encoder *wgpu.CommandEncoder
	pass    *wgpu.RenderPassEncoder
	groups  []*wgpu.BindGroup

	rootSig  *rootSignature
	pso      *pipelineState
	tables   map[int]driver.DescriptorHandle
	viewport *driver.Viewport
	scissor  *driver.Rect
	vertices *driver.VertexBufferView
	indices  *driver.IndexBufferView

	rtv, dsv   *driver.DescriptorHandle
	clearColor *[4]float32
	clearDepth *float32
}

func (s *submission) commandEncoder() (*wgpu.CommandEncoder, error) {
	if s.encoder != nil {
		return s.encoder, nil
	}
	enc, err := s.dev.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	s.encoder = enc
	return enc, nil
}

// beginPass opens a render pass on the bound targets. Pending clears become the load
// operations of the pass.
func (s *submission) beginPass() (*wgpu.RenderPassEncoder, error) {
	if s.pass != nil {
		return s.pass, nil
	}
	if s.rtv == nil {
		return nil, errors.New("wgpudriver: no render target bound")
	}
	colorView, err := viewOf(*s.rtv)
	if err != nil {
		return nil, err
	}
	enc, err := s.commandEncoder()
	if err != nil {
		return nil, err
	}

	color := wgpu.RenderPassColorAttachment{
		View:    colorView,
		LoadOp:  wgpu.LoadOpLoad,
		StoreOp: wgpu.StoreOpStore,
	}
	if s.clearColor != nil {
		c := s.clearColor
		color.LoadOp = wgpu.LoadOpClear
		color.ClearValue = wgpu.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2]), A: float64(c[3])}
		s.clearColor = nil
	}
	desc := &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{color},
	}
	if s.dsv != nil {
		depthView, err := viewOf(*s.dsv)
		if err != nil {
			return nil, err
		}
		depth := &wgpu.RenderPassDepthStencilAttachment{
			View:         depthView,
			DepthLoadOp:  wgpu.LoadOpLoad,
			DepthStoreOp: wgpu.StoreOpStore,
		}
		if s.clearDepth != nil {
			depth.DepthLoadOp = wgpu.LoadOpClear
			depth.DepthClearValue = *s.clearDepth
			s.clearDepth = nil
		}
		desc.DepthStencilAttachment = depth
	}
	s.pass = enc.BeginRenderPass(desc)
	return s.pass, nil
}

// bind applies the pipeline, bind groups, viewport, scissor and input buffers to pass.
func (s *submission) bind(pass *wgpu.RenderPassEncoder) error {
	if s.pso == nil || s.rootSig == nil {
		return errors.New("wgpudriver: draw without a pipeline and root signature")
	}
	if s.vertices == nil || s.indices == nil {
		return errors.New("wgpudriver: indexed draw without vertex and index buffers")
	}
	pass.SetPipeline(s.pso.pipeline)

	for i := range s.rootSig.desc.Parameters {
		if c, ok := s.rootSig.constants[i]; ok {
			pass.SetBindGroup(uint32(i), c.group, nil)
			continue
		}
		handle, ok := s.tables[i]
		if !ok {
			return fmt.Errorf("wgpudriver: descriptor table %d not set", i)
		}
		view, err := viewOf(handle)
		if err != nil {
			return err
		}
		group, err := s.rootSig.tableGroup(s.dev, i, view)
		if err != nil {
			return err
		}
		s.groups = append(s.groups, group)
		pass.SetBindGroup(uint32(i), group, nil)
	}

	if vp := s.viewport; vp != nil {
		pass.SetViewport(vp.X, vp.Y, vp.Width, vp.Height, vp.MinDepth, vp.MaxDepth)
	}
	if r := s.scissor; r != nil {
		pass.SetScissorRect(uint32(r.Left), uint32(r.Top), uint32(r.Right-r.Left), uint32(r.Bottom-r.Top))
	}

	vb, ok := s.vertices.Buffer.(*resource)
	if !ok || vb.buffer == nil {
		return errors.New("wgpudriver: vertex buffer is not a wgpu buffer")
	}
	ib, ok := s.indices.Buffer.(*resource)
	if !ok || ib.buffer == nil {
		return errors.New("wgpudriver: index buffer is not a wgpu buffer")
	}
	pass.SetVertexBuffer(0, vb.buffer, 0, uint64(s.vertices.Size))
	pass.SetIndexBuffer(ib.buffer, indexFormat(s.indices.Format), 0, uint64(s.indices.Size))
	return nil
}

func indexFormat(f driver.IndexFormat) wgpu.IndexFormat {
	if f == driver.IndexFormatUint32 {
		return wgpu.IndexFormatUint32
	}
	return wgpu.IndexFormatUint16
}

func (s *submission) endPass() {
	if s.pass == nil {
		return
	}
	s.pass.End()
	s.pass = nil
}

// submit applies clears that no draw consumed, then finishes and submits the encoder.
func (s *submission) submit() error {
	if s.pass == nil && (s.clearColor != nil || s.clearDepth != nil) && s.rtv != nil {
		if _, err := s.beginPass(); err != nil {
			return err
		}
	}
	s.endPass()
	if s.encoder == nil {
		return nil
	}
	cb, err := s.encoder.Finish(nil)
	if err != nil {
		return err
	}
	s.dev.queue.Submit(cb)
	cb.Release()
	return nil
}

func (s *submission) release() {
	s.endPass()
	for _, g := range s.groups {
		g.Release()
	}
	s.groups = nil
	if s.encoder != nil {
		s.encoder.Release()
		s.encoder = nil
	}
}
