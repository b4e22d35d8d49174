package pipe

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Completion tracks one push until a consumer drains it, it is superseded,
// or it expires. Resolution happens once; the registered callback then runs
// on a goroutine of its own, so it never shares a stack with the pusher or
// with whatever lock the resolver holds. Transports that need their own
// bookkeeping on resolution wait on Done instead of taking the callback.
type Completion struct {
	id   string
	done chan struct{}

	mu         sync.Mutex
	resolved   bool
	err        error
	suppressed bool
	callback   func(*Completion)
}

// NewCompletion returns an unresolved completion with a fresh ID.
func NewCompletion() *Completion {
	return &Completion{id: uuid.NewString(), done: make(chan struct{})}
}

// Resolved returns a completion that already finished with err.
func Resolved(err error) *Completion {
	c := NewCompletion()
	c.Resolve(err)
	return c
}

// Suppressed returns a completion that mirrors outstanding: it reports
// Suppressed and resolves with the same error once outstanding resolves. A
// nil outstanding yields an already resolved suppressed completion.
func Suppressed(outstanding *Completion) *Completion {
	c := NewCompletion()
	c.suppressed = true
	if outstanding == nil {
		c.Resolve(nil)
		return c
	}
	go func() {
		<-outstanding.Done()
		c.Resolve(outstanding.Err())
	}()
	return c
}

func (c *Completion) ID() string { return c.id }

// Done is closed once the completion resolves.
func (c *Completion) Done() <-chan struct{} { return c.done }

// Err returns the resolution error; nil before resolution or on success.
func (c *Completion) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Suppressed reports whether the push was skipped because identical data was
// already queued.
func (c *Completion) Suppressed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suppressed
}

// Wait blocks until resolution or ctx is done.
func (c *Completion) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnComplete registers the owner's single callback. Registering on a
// resolved completion runs fn at once on a new goroutine. A second
// registration replaces the first if it has not run yet.
func (c *Completion) OnComplete(fn func(*Completion)) {
	c.mu.Lock()
	if !c.resolved {
		c.callback = fn
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	if fn != nil {
		go fn(c)
	}
}

// Resolve finishes the completion. It reports false when already resolved.
func (c *Completion) Resolve(err error) bool {
	c.mu.Lock()
	if c.resolved {
		c.mu.Unlock()
		return false
	}
	c.resolved = true
	c.err = err
	cb := c.callback
	c.callback = nil
	close(c.done)
	c.mu.Unlock()

	if cb != nil {
		go cb(c)
	}
	return true
}
