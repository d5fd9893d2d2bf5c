package camera

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
)

// Snapshot is one complete camera state as consumed by the renderer.
// Matrices are column-major.
type Snapshot struct {
	Projection [16]float32
	View       [16]float32

	// Seq increases by one with every published snapshot.
	Seq uint64
}

// Mailbox is a single-slot, lock-free exchange for camera snapshots. A producer
// publishes complete snapshots; a consumer always reads the latest one. History is not kept.
// The zero value is ready to use.
type Mailbox struct {
	slot atomic.Pointer[Snapshot]
	seq  atomic.Uint64
}

// Publish replaces the current snapshot. The Seq field of s is overwritten.
//
// Parameters:
//   - s: the snapshot to publish
func (m *Mailbox) Publish(s Snapshot) {
	s.Seq = m.seq.Add(1)
	m.slot.Store(&s)
}

// Latest returns the most recently published snapshot, or identity matrices with Seq 0
// if nothing was published yet.
//
// Returns:
//   - Snapshot: the latest snapshot
func (m *Mailbox) Latest() Snapshot {
	if s := m.slot.Load(); s != nil {
		return *s
	}
	ident := mgl32.Ident4()
	return Snapshot{Projection: ident, View: ident}
}
