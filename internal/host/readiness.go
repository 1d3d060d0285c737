package host

import (
	"context"
	"sync"
)

// Readiness resolves exactly once.
type Readiness struct {
	once sync.Once
	ch   chan struct{}
}

func NewReadiness() *Readiness {
	return &Readiness{ch: make(chan struct{})}
}

func (r *Readiness) Resolve() {
	r.once.Do(func() { close(r.ch) })
}

func (r *Readiness) Done() <-chan struct{} {
	return r.ch
}

func (r *Readiness) Resolved() bool {
	select {
	case <-r.ch:
		return true
	default:
		return false
	}
}

// Wait blocks until the host is ready or ctx ends.
func (r *Readiness) Wait(ctx context.Context) error {
	select {
	case <-r.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitReady waits on any Host.
func WaitReady(ctx context.Context, h Host) error {
	select {
	case <-h.Ready():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
