package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type countingObject struct {
	releases int
}

func (o *countingObject) Release() {
	o.releases++
}

func TestRefSharedOwnership(t *testing.T) {
	obj := &countingObject{}
	a := NewRef(obj)
	b := a.Acquire()

	assert.Equal(t, int32(2), a.Count())
	assert.Same(t, obj, b.Get())

	a.Release()
	assert.False(t, a.Valid())
	assert.Nil(t, a.Get())
	assert.True(t, b.Valid())
	assert.Equal(t, 0, obj.releases)

	b.Release()
	assert.Equal(t, 1, obj.releases)

	b.Release()
	assert.Equal(t, 1, obj.releases)
	assert.Nil(t, b.Acquire())
}

func TestRefNilIsEmpty(t *testing.T) {
	var r *Ref[*countingObject]
	assert.False(t, r.Valid())
	assert.Nil(t, r.Get())
	assert.Equal(t, int32(0), r.Count())
	assert.NotPanics(t, r.Release)
}

func TestReleaseClearsSlot(t *testing.T) {
	obj := &countingObject{}
	slot := NewRef(obj)

	release(&slot)
	assert.Nil(t, slot)
	assert.Equal(t, 1, obj.releases)
	assert.NotPanics(t, func() { release(&slot) })
}
