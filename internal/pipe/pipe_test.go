package pipe_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"thepipe/internal/datatree"
	"thepipe/internal/geometry"
	"thepipe/internal/pipe"
)

// memTransport hands pushed trees to the next pull in the same process.
type memTransport struct {
	mu      sync.Mutex
	queued  *datatree.Node
	pending *pipe.Completion
	closes  int
}

func (m *memTransport) Name() string { return "mem" }

func (m *memTransport) PushData(_ context.Context, tree *datatree.Node) (*pipe.Completion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending != nil && datatree.Equal(m.queued, tree) {
		return pipe.Suppressed(m.pending), nil
	}
	if m.pending != nil {
		m.pending.Resolve(pipe.ErrSuperseded)
	}
	m.queued = tree.Clone()
	m.pending = pipe.NewCompletion()
	return m.pending, nil
}

func (m *memTransport) PullData(context.Context) (*datatree.Node, bool, error) {
	m.mu.Lock()
	tree, pending := m.queued, m.pending
	m.queued, m.pending = nil, nil
	m.mu.Unlock()
	if pending == nil {
		return nil, false, nil
	}
	go pending.Resolve(nil)
	return tree, true, nil
}

func (m *memTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	return nil
}

func sample() *datatree.Node {
	return datatree.Leaves(geometry.Number{Value: 1}, geometry.Text{Value: "a"})
}

func TestProducerConsumerCycle(t *testing.T) {
	transport := &memTransport{}
	producer := pipe.New(transport)
	producer.SetCollector(pipe.CollectorFunc(func(context.Context) (*datatree.Node, error) {
		return sample(), nil
	}))

	var (
		mu       sync.Mutex
		received []*datatree.Node
	)
	consumer := pipe.New(transport)
	consumer.SetEmitter(pipe.EmitterFunc(func(_ context.Context, tree *datatree.Node) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, tree)
		return nil
	}))

	callbacks := make(chan *pipe.Completion, 1)
	producer.SetCompletionCallback(func(c *pipe.Completion) { callbacks <- c })

	res, err := producer.Update(context.Background())
	if err != nil {
		t.Fatalf("producer update: %v", err)
	}
	if res.Role != pipe.RoleProducer || res.Completion == nil || res.Suppressed {
		t.Fatalf("unexpected producer result: %+v", res)
	}

	got, err := consumer.Update(context.Background())
	if err != nil {
		t.Fatalf("consumer update: %v", err)
	}
	if !got.Received || !datatree.Equal(got.Tree, sample()) {
		t.Fatalf("unexpected consumer result: %+v", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := res.Completion.Wait(ctx); err != nil {
		t.Fatalf("completion: %v", err)
	}
	select {
	case c := <-callbacks:
		if c.ID() != res.Completion.ID() {
			t.Fatalf("callback for %s, want %s", c.ID(), res.Completion.ID())
		}
	case <-ctx.Done():
		t.Fatal("completion callback not invoked")
	}

	again, err := consumer.Update(context.Background())
	if err != nil {
		t.Fatalf("second consumer update: %v", err)
	}
	if again.Received {
		t.Fatal("tree delivered twice")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("emitter invoked %d times, want 1", len(received))
	}
}

func TestIdenticalPushIsSuppressed(t *testing.T) {
	transport := &memTransport{}
	p := pipe.New(transport)
	p.SetCollector(pipe.CollectorFunc(func(context.Context) (*datatree.Node, error) { return sample(), nil }))

	first, err := p.Update(context.Background())
	if err != nil {
		t.Fatalf("first update: %v", err)
	}
	second, err := p.Update(context.Background())
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if !second.Suppressed || first.Suppressed {
		t.Fatalf("suppression: first=%v second=%v", first.Suppressed, second.Suppressed)
	}
	if _, ok, _ := transport.PullData(context.Background()); !ok {
		t.Fatal("expected queued tree")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := second.Completion.Wait(ctx); err != nil {
		t.Fatalf("suppressed completion should follow the outstanding push: %v", err)
	}
}

func TestUpdateRequiresRegistration(t *testing.T) {
	p := pipe.New(&memTransport{})
	if _, err := p.Update(context.Background()); !errors.Is(err, pipe.ErrNoEmitter) {
		t.Fatalf("expected ErrNoEmitter, got %v", err)
	}

	producer := pipe.New(&memTransport{}, pipe.WithRole(pipe.RoleProducer))
	if _, err := producer.Update(context.Background()); !errors.Is(err, pipe.ErrNoCollector) {
		t.Fatalf("expected ErrNoCollector, got %v", err)
	}
}

func TestEmitterErrorSurfaces(t *testing.T) {
	transport := &memTransport{}
	if _, err := transport.PushData(context.Background(), sample()); err != nil {
		t.Fatalf("push: %v", err)
	}
	boom := errors.New("host rejected tree")
	p := pipe.New(transport)
	p.SetEmitter(pipe.EmitterFunc(func(context.Context, *datatree.Node) error { return boom }))
	res, err := p.Update(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected emitter error, got %v", err)
	}
	if !res.Received {
		t.Fatal("tree was received before the emitter failed")
	}
}

func TestClosePipeIsIdempotent(t *testing.T) {
	transport := &memTransport{}
	p := pipe.New(transport)
	if err := p.ClosePipe(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := p.ClosePipe(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if transport.closes != 1 {
		t.Fatalf("transport closed %d times, want 1", transport.closes)
	}
	if _, err := p.Update(context.Background()); !errors.Is(err, pipe.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
