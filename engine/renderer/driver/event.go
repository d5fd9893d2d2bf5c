package driver

import (
	"context"
	"time"
)

// Event is an auto-reset wait primitive. Set wakes exactly one Wait; a Set with no
// waiter is kept until the next Wait consumes it.
type Event struct {
	ch chan struct{}
}

// NewEvent creates an unset Event.
func NewEvent() *Event {
	return &Event{ch: make(chan struct{}, 1)}
}

// Set signals the event. Setting an already set event is a no-op.
func (e *Event) Set() {
	select {
	case e.ch <- struct{}{}:
	default:
	}
}

// Wait blocks until the event is set, then resets it.
func (e *Event) Wait() {
	<-e.ch
}

// WaitContext blocks until the event is set or ctx is done.
//
// Parameters:
//   - ctx: the context bounding the wait
//
// Returns:
//   - error: ctx.Err() if the context ended first
func (e *Event) WaitContext(ctx context.Context) error {
	select {
	case <-e.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitTimeout blocks until the event is set or d elapses.
//
// Returns:
//   - bool: true if the event was set
func (e *Event) WaitTimeout(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-e.ch:
		return true
	case <-t.C:
		return false
	}
}
