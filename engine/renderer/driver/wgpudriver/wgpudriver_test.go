package wgpudriver

import (
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/driver"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextureFormat(t *testing.T) {
	tests := []struct {
		name    string
		format  driver.Format
		want    wgpu.TextureFormat
		wantErr bool
	}{
		{"color", driver.FormatR8G8B8A8Unorm, wgpu.TextureFormatRGBA8Unorm, false},
		{"depth", driver.FormatD32Float, wgpu.TextureFormatDepth32Float, false},
		{"unknown", driver.FormatUnknown, wgpu.TextureFormatUndefined, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := textureFormat(tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestColorTargetFormatUsesSurface(t *testing.T) {
	d := &device{}
	got, err := d.colorTargetFormat(driver.FormatR8G8B8A8Unorm)
	require.NoError(t, err)
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, got)

	d.surfaceFormat = wgpu.TextureFormatBGRA8Unorm
	d.hasSurfaceFormat = true
	got, err = d.colorTargetFormat(driver.FormatR8G8B8A8Unorm)
	require.NoError(t, err)
	assert.Equal(t, wgpu.TextureFormatBGRA8Unorm, got)
}

func TestVertexFormat(t *testing.T) {
	tests := map[driver.InputElementFormat]wgpu.VertexFormat{
		driver.InputFloat32x2: wgpu.VertexFormatFloat32x2,
		driver.InputFloat32x3: wgpu.VertexFormatFloat32x3,
		driver.InputUnorm8x4:  wgpu.VertexFormatUnorm8x4,
	}
	for in, want := range tests {
		got, err := vertexFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := vertexFormat(driver.InputElementFormat(99))
	assert.Error(t, err)
}

func TestStateMappings(t *testing.T) {
	assert.Equal(t, wgpu.AddressModeRepeat, addressMode(driver.AddressModeWrap))
	assert.Equal(t, wgpu.AddressModeClampToEdge, addressMode(driver.AddressModeClamp))
	assert.Equal(t, wgpu.AddressModeClampToEdge, addressMode(driver.AddressModeBorder))

	assert.Equal(t, wgpu.FilterModeLinear, filterMode(driver.FilterLinear))
	assert.Equal(t, wgpu.FilterModeNearest, filterMode(driver.FilterPoint))

	assert.Equal(t, wgpu.CompareFunctionLess, compareFunction(driver.ComparisonLess))
	assert.Equal(t, wgpu.CompareFunctionLessEqual, compareFunction(driver.ComparisonLessEqual))
	assert.Equal(t, wgpu.CompareFunctionAlways, compareFunction(driver.ComparisonAlways))

	assert.Equal(t, wgpu.CullModeNone, cullMode(driver.CullModeNone))
	assert.Equal(t, wgpu.CullModeFront, cullMode(driver.CullModeFront))
	assert.Equal(t, wgpu.CullModeBack, cullMode(driver.CullModeBack))

	assert.Equal(t, wgpu.ShaderStageVertex, shaderStage(driver.ShaderVisibilityVertex))
	assert.Equal(t, wgpu.ShaderStageFragment, shaderStage(driver.ShaderVisibilityPixel))
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, shaderStage(driver.ShaderVisibilityAll))

	assert.Equal(t, wgpu.IndexFormatUint16, indexFormat(driver.IndexFormatUint16))
	assert.Equal(t, wgpu.IndexFormatUint32, indexFormat(driver.IndexFormatUint32))

	assert.Equal(t, wgpu.PresentModeFifo, presentMode(true))
	assert.Equal(t, wgpu.PresentModeImmediate, presentMode(false))
}

func TestAlign4(t *testing.T) {
	for in, want := range map[uint64]uint64{0: 0, 1: 4, 4: 4, 5: 8, 72: 72, 73: 76} {
		assert.Equal(t, want, align4(in), "align4(%d)", in)
	}
}

func TestFenceWakesWaiters(t *testing.T) {
	f := &fence{}
	early, late := driver.NewEvent(), driver.NewEvent()
	require.NoError(t, f.SetEventOnCompletion(1, early))
	require.NoError(t, f.SetEventOnCompletion(3, late))

	f.complete(2)
	assert.Equal(t, uint64(2), f.CompletedValue())
	assert.True(t, early.WaitTimeout(time.Second))
	assert.False(t, late.WaitTimeout(10*time.Millisecond))

	require.NoError(t, f.Signal(3))
	assert.True(t, late.WaitTimeout(time.Second))
	assert.Empty(t, f.waiters)
}

func TestFenceAlreadyComplete(t *testing.T) {
	f := &fence{completed: 5}
	ev := driver.NewEvent()
	require.NoError(t, f.SetEventOnCompletion(4, ev))
	assert.True(t, ev.WaitTimeout(time.Second))
	assert.Empty(t, f.waiters)
}

func TestFencePollsOnlyWhenWaiting(t *testing.T) {
	waits := make(chan bool, 4)
	f := &fence{}
	f.poll = func(wait bool) {
		waits <- wait
		if wait {
			f.complete(1)
		}
	}

	assert.Equal(t, uint64(0), f.CompletedValue())
	assert.False(t, <-waits)

	ev := driver.NewEvent()
	require.NoError(t, f.SetEventOnCompletion(1, ev))
	assert.True(t, ev.WaitTimeout(time.Second))
	assert.True(t, <-waits)
	assert.Equal(t, uint64(1), f.CompletedValue())
}

func TestFenceRebase(t *testing.T) {
	f := &fence{completed: 7}
	require.NoError(t, f.Signal(0))
	assert.Equal(t, uint64(0), f.CompletedValue())
}

func TestDescriptorHeapSlots(t *testing.T) {
	d := &device{}
	_, err := d.CreateDescriptorHeap(driver.DescriptorHeapDesc{Type: driver.DescriptorHeapTypeSRV})
	assert.Error(t, err)

	h, err := d.CreateDescriptorHeap(driver.DescriptorHeapDesc{Type: driver.DescriptorHeapTypeSRV, NumDescriptors: 1})
	require.NoError(t, err)

	tex := &resource{desc: driver.ResourceDesc{Label: "texture"}}
	assert.ErrorContains(t, d.CreateRenderTargetView(tex, h.Handle(0)), "heap type")
	assert.ErrorContains(t, d.CreateShaderResourceView(tex, h.Handle(1)), "out of range")

	_, err = viewOf(h.Handle(0))
	assert.ErrorContains(t, err, "empty")

	require.NoError(t, d.CreateShaderResourceView(tex, h.Handle(0)))
	_, err = viewOf(h.Handle(0))
	assert.ErrorContains(t, err, "no texture view")

	h.Release()
	_, err = viewOf(h.Handle(0))
	assert.ErrorContains(t, err, "empty")
}

func TestCommandListRecordingState(t *testing.T) {
	d := &device{}
	alloc, err := d.CreateCommandAllocator()
	require.NoError(t, err)
	raw, err := d.CreateCommandList(alloc)
	require.NoError(t, err)
	l := raw.(*commandList)

	assert.Error(t, l.Reset(alloc, nil), "a new list is recording")
	l.RSSetViewports(driver.Viewport{Width: 4, Height: 4})
	require.NoError(t, l.Close())
	assert.Error(t, l.Close())
	assert.Len(t, l.commands, 1)

	l.RSSetViewports(driver.Viewport{Width: 4, Height: 4})
	assert.Len(t, l.commands, 1, "closed lists do not record")

	require.NoError(t, l.Reset(alloc, nil))
	assert.Empty(t, l.commands)
	require.NoError(t, l.Close())
	assert.ErrorContains(t, l.Reset(struct{ driver.CommandAllocator }{}, nil), "foreign allocator")
}

func TestAdapterProbe(t *testing.T) {
	hw := &adapter{desc: driver.AdapterDesc{Name: "hardware"}}
	sw := &adapter{desc: driver.AdapterDesc{Name: "fallback", Software: true}}
	for _, level := range driver.FeatureLevels {
		assert.True(t, hw.Probe(level), level.String())
	}
	assert.True(t, sw.Probe(driver.FeatureLevel120))
	assert.False(t, sw.Probe(driver.FeatureLevel121))
	assert.False(t, hw.Probe(driver.FeatureLevel(0x9100)))

	_, err := sw.CreateDevice(driver.FeatureLevel122)
	assert.ErrorIs(t, err, driver.ErrUnsupportedFeatureLevel)
}

func TestWrappedTargetState(t *testing.T) {
	od := &overlayDevice{dev: &device{}}
	wt := &wrappedTarget{owner: od, target: &backBuffer{index: 1}, width: 2, height: 2}

	assert.Error(t, wt.Unacquire())
	assert.Error(t, wt.WritePixels(make([]byte, 16)))
	require.NoError(t, wt.Acquire())
	assert.Error(t, wt.Acquire())
	assert.ErrorContains(t, wt.WritePixels(make([]byte, 15)), "want 16")
	require.NoError(t, wt.Unacquire())
	assert.Empty(t, od.pending)
	assert.NoError(t, od.Flush(), "nothing pending")
}

func TestAcquireSurfaceTextureReconfiguresOnce(t *testing.T) {
	outdated := errors.New("surface outdated")
	tests := []struct {
		name    string
		results []error
		wantErr bool
		calls   int
	}{
		{"first try", []error{nil}, false, 0},
		{"outdated then ok", []error{outdated, nil}, false, 1},
		{"lost twice", []error{outdated, outdated}, true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i, reconfigured := 0, 0
			get := func() (*wgpu.Texture, error) {
				err := tt.results[i]
				i++
				return nil, err
			}
			_, err := acquireSurfaceTexture(get, func() { reconfigured++ })
			if tt.wantErr {
				assert.ErrorIs(t, err, outdated)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.calls, reconfigured)
			assert.Equal(t, len(tt.results), i)
		})
	}
}

func TestShaderModuleNeedsSource(t *testing.T) {
	d := &device{}
	_, err := d.createShaderModule(driver.ShaderBytecode{Code: []byte{0x03, 0x02, 0x23, 0x07}, EntryPoint: "vs_main"})
	assert.ErrorContains(t, err, "no WGSL source")
}
