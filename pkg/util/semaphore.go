package util

import (
	"context"
)

// Semaphore bounds the number of concurrent holders.
type Semaphore interface {
	// Acquire blocks until a slot is free and returns true, or returns false once ctx is done.
	Acquire(ctx context.Context) bool
	// Release frees a slot taken by a successful Acquire.
	Release()
}

// NewSemaphore returns a Semaphore with count slots. Zero means no limit.
func NewSemaphore(count int) Semaphore {
	if count <= 0 {
		return unlimited{}
	}
	return make(chanSemaphore, count)
}

// chanSemaphore holds one element per taken slot.
type chanSemaphore chan struct{}

func (c chanSemaphore) Acquire(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case c <- struct{}{}:
		return true
	}
}

func (c chanSemaphore) Release() {
	<-c
}

type unlimited struct{}

func (unlimited) Acquire(ctx context.Context) bool { return true }
func (unlimited) Release()                         {}
