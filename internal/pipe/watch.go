package pipe

import (
	"context"
	"time"
)

// PushState is the lifecycle of a push held by a remote store.
type PushState string

const (
	StatePending    PushState = "pending"
	StateTaken      PushState = "taken"
	StateSuperseded PushState = "superseded"
	StateExpired    PushState = "expired"
)

// Err maps a terminal state to the error its completion resolves with.
func (s PushState) Err() error {
	switch s {
	case StateSuperseded:
		return ErrSuperseded
	case StateExpired:
		return ErrListenTimeout
	default:
		return nil
	}
}

// Terminal reports whether no further transition can happen.
func (s PushState) Terminal() bool {
	return s == StateTaken || s == StateSuperseded || s == StateExpired
}

// Watch polls state every interval on a new goroutine and resolves c once a
// terminal state is observed. Cancelling ctx resolves c with ErrClosed.
// Poll errors are retried.
func Watch(ctx context.Context, c *Completion, interval time.Duration, state func(context.Context) (PushState, error)) {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				c.Resolve(ErrClosed)
				return
			case <-c.Done():
				return
			case <-ticker.C:
			}
			s, err := state(ctx)
			if err != nil || !s.Terminal() {
				continue
			}
			c.Resolve(s.Err())
			return
		}
	}()
}
