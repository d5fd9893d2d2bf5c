package driver

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventAutoReset(t *testing.T) {
	ev := NewEvent()
	ev.Set()
	ev.Set()

	assert.True(t, ev.WaitTimeout(time.Second))
	assert.False(t, ev.WaitTimeout(10*time.Millisecond), "a double Set must only release one wait")
}

func TestEventWakesBlockedWaiter(t *testing.T) {
	ev := NewEvent()
	done := make(chan struct{})
	go func() {
		ev.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("wait returned before Set")
	case <-time.After(20 * time.Millisecond):
	}

	ev.Set()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait did not return after Set")
	}
}

func TestEventWaitContext(t *testing.T) {
	ev := NewEvent()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, ev.WaitContext(ctx), context.Canceled)

	ev.Set()
	require.NoError(t, ev.WaitContext(context.Background()))
}

func TestIsDeviceLost(t *testing.T) {
	assert.True(t, IsDeviceLost(ErrDeviceRemoved))
	assert.True(t, IsDeviceLost(fmt.Errorf("present: %w", ErrDeviceReset)))
	assert.False(t, IsDeviceLost(ErrReleased))
	assert.False(t, IsDeviceLost(nil))
}

func TestAlignedRowPitch(t *testing.T) {
	tests := []struct {
		width uint32
		want  uint32
	}{
		{1, 256},
		{64, 256},
		{65, 512},
		{256, 1024},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AlignedRowPitch(tt.width, FormatR8G8B8A8Unorm), "width %d", tt.width)
	}
	assert.Equal(t, "12_1", FeatureLevel121.String())
}
