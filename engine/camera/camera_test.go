package camera

import (
	"sync"
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrbitControllerPosition(t *testing.T) {
	oc := NewOrbitController()

	x, y, z := oc.Position()
	assert.InDelta(t, 0, x, 1e-6)
	assert.InDelta(t, 0, y, 1e-6)
	assert.InDelta(t, 5, z, 1e-6)

	oc.Advance(math32.Pi / 2)
	x, _, z = oc.Position()
	assert.InDelta(t, 5, x, 1e-5)
	assert.InDelta(t, 0, z, 1e-5)
	assert.InDelta(t, math32.Pi/2, oc.Elapsed(), 1e-6)
}

func TestOrbitControllerOptions(t *testing.T) {
	oc := NewOrbitController(WithRadius(2), WithTarget(1, 1, 1), WithHeight(3), WithOrbitSpeed(0))
	oc.Advance(10)

	x, y, z := oc.Position()
	assert.InDelta(t, 1, x, 1e-6)
	assert.InDelta(t, 4, y, 1e-6)
	assert.InDelta(t, 3, z, 1e-6)

	oc.SetRadius(-1)
	assert.Equal(t, float32(2), oc.Radius())
}

func TestMailboxLatest(t *testing.T) {
	var m Mailbox

	empty := m.Latest()
	assert.Equal(t, uint64(0), empty.Seq)
	assert.Equal(t, [16]float32(mgl32.Ident4()), empty.View)

	m.Publish(Snapshot{View: [16]float32{1: 7}})
	m.Publish(Snapshot{View: [16]float32{1: 9}})

	got := m.Latest()
	assert.Equal(t, uint64(2), got.Seq)
	assert.Equal(t, float32(9), got.View[1])
}

func TestMailboxConcurrentPublishNoTearing(t *testing.T) {
	var m Mailbox
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range 2000 {
			var s Snapshot
			for j := range s.View {
				s.View[j] = float32(i)
				s.Projection[j] = float32(i)
			}
			m.Publish(s)
		}
	}()

	for range 2000 {
		s := m.Latest()
		if s.Seq == 0 {
			continue
		}
		for j := range s.View {
			require.Equal(t, s.View[0], s.View[j])
			require.Equal(t, s.View[0], s.Projection[j])
		}
	}
	wg.Wait()
	assert.Equal(t, uint64(2000), m.Latest().Seq)
}

func TestCameraUpdatePublishes(t *testing.T) {
	c := NewCamera()
	s := c.Update(0.5)

	assert.Equal(t, uint64(1), s.Seq)
	assert.Equal(t, c.ViewMatrix(), s.View)
	assert.Equal(t, c.ProjectionMatrix(), s.Projection)
	assert.Equal(t, s, c.Mailbox().Latest())
}

func TestCameraProjectionDepthRange(t *testing.T) {
	c := NewCamera(WithNear(1), WithFar(100))
	proj := mgl32.Mat4(c.ProjectionMatrix())

	near := proj.Mul4x1(mgl32.Vec4{0, 0, -1, 1})
	far := proj.Mul4x1(mgl32.Vec4{0, 0, -100, 1})

	assert.InDelta(t, 0, near.Z()/near.W(), 1e-5)
	assert.InDelta(t, 1, far.Z()/far.W(), 1e-4)
}

func TestCameraLooksAtTarget(t *testing.T) {
	c := NewCamera()
	c.Update(1.2)
	view := mgl32.Mat4(c.ViewMatrix())

	origin := view.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, 0, origin.X(), 1e-5)
	assert.InDelta(t, 0, origin.Y(), 1e-5)
	assert.InDelta(t, -5, origin.Z(), 1e-5)
}

func TestCameraSetAspectIgnoresInvalid(t *testing.T) {
	c := NewCamera()
	c.SetAspect(0)
	assert.InDelta(t, 16.0/9.0, c.Aspect(), 1e-6)

	c.SetAspect(2)
	assert.Equal(t, float32(2), c.Aspect())
}
