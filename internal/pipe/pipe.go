// Package pipe defines the transport contract shared by every pipe endpoint
// and the Pipe orchestrator hosts drive once per exchange cycle.
//
// A Pipe is either a producer (a Collector supplies the tree to push) or a
// consumer (an Emitter receives pulled trees). Transports are selected by
// the endpoint package and never shared between Pipe values.
package pipe

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"thepipe/internal/datatree"
	"thepipe/internal/logging"
)

// Transport moves trees between processes.
type Transport interface {
	Name() string
	// PushData makes tree available to one consumer. The tree is captured
	// before PushData returns; later mutation does not change what is
	// delivered.
	PushData(ctx context.Context, tree *datatree.Node) (*Completion, error)
	// PullData takes one tree. ok is false with a nil error when nothing is
	// available within the transport's connect timeout.
	PullData(ctx context.Context) (tree *datatree.Node, ok bool, err error)
	Close() error
}

// Peeker is implemented by transports that can read a queued tree without
// taking it.
type Peeker interface {
	Peek(ctx context.Context) (tree *datatree.Node, ok bool, err error)
}

// Emitter receives decoded trees on the consumer side. It is invoked once
// per completed receive, possibly from a goroutine other than the caller's.
type Emitter interface {
	EmitPipeData(ctx context.Context, tree *datatree.Node) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, tree *datatree.Node) error

func (f EmitterFunc) EmitPipeData(ctx context.Context, tree *datatree.Node) error {
	return f(ctx, tree)
}

// Collector supplies the tree to push on the producer side.
type Collector interface {
	CollectPipeData(ctx context.Context) (*datatree.Node, error)
}

// CollectorFunc adapts a function to Collector.
type CollectorFunc func(ctx context.Context) (*datatree.Node, error)

func (f CollectorFunc) CollectPipeData(ctx context.Context) (*datatree.Node, error) {
	return f(ctx)
}

// Role tells Update which direction to move data.
type Role int

const (
	RoleUnset Role = iota
	RoleProducer
	RoleConsumer
)

func (r Role) String() string {
	switch r {
	case RoleProducer:
		return "producer"
	case RoleConsumer:
		return "consumer"
	default:
		return "unset"
	}
}

// Result summarizes one Update.
type Result struct {
	Role Role
	// Tree is the pushed tree for a producer, the received one for a
	// consumer.
	Tree *datatree.Node
	// Producer side.
	Completion *Completion
	Suppressed bool
	// Consumer side.
	Received bool
}

// Option configures a Pipe.
type Option func(*Pipe)

// WithLogger sets the logger used for cycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipe) { p.logger = logger }
}

// WithRole fixes the role up front instead of deriving it from the
// registered collector or emitter.
func WithRole(role Role) Option {
	return func(p *Pipe) { p.role = role }
}

// Pipe orchestrates one endpoint for its owner.
type Pipe struct {
	mu         sync.Mutex
	transport  Transport
	emitter    Emitter
	collector  Collector
	onComplete func(*Completion)
	role       Role
	closed     bool
	logger     *slog.Logger
}

// New wraps transport.
func New(transport Transport, opts ...Option) *Pipe {
	p := &Pipe{transport: transport}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, "pipe").With(logging.String(logging.FieldPipe, transport.Name()))
	return p
}

func (p *Pipe) Name() string { return p.transport.Name() }

// Transport exposes the underlying transport.
func (p *Pipe) Transport() Transport { return p.transport }

// Role reports the current role.
func (p *Pipe) Role() Role {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.role
}

// SetEmitter registers the receiver of decoded trees. A pipe without a role
// becomes a consumer.
func (p *Pipe) SetEmitter(e Emitter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emitter = e
	if e != nil && p.role == RoleUnset {
		p.role = RoleConsumer
	}
}

// SetCollector marks this side as the producer.
func (p *Pipe) SetCollector(c Collector) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.collector = c
	if c != nil {
		p.role = RoleProducer
	}
}

// SetCompletionCallback registers fn on every completion this pipe's
// pushes return.
func (p *Pipe) SetCompletionCallback(fn func(*Completion)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onComplete = fn
}

// Update runs one exchange cycle: a producer collects and pushes, a consumer
// pulls and, when data arrived, forwards it to the emitter exactly once.
func (p *Pipe) Update(ctx context.Context) (Result, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return Result{}, ErrClosed
	}
	role, emitter, collector, onComplete := p.role, p.emitter, p.collector, p.onComplete
	p.mu.Unlock()

	if role == RoleProducer {
		if collector == nil {
			return Result{Role: role}, ErrNoCollector
		}
		return p.produce(ctx, collector, onComplete)
	}
	if emitter == nil {
		return Result{Role: RoleConsumer}, ErrNoEmitter
	}
	return p.consume(ctx, emitter)
}

func (p *Pipe) produce(ctx context.Context, collector Collector, onComplete func(*Completion)) (Result, error) {
	res := Result{Role: RoleProducer}
	tree, err := collector.CollectPipeData(ctx)
	if err != nil {
		return res, fmt.Errorf("collect: %w", err)
	}
	res.Tree = tree
	completion, err := p.transport.PushData(ctx, tree)
	if err != nil {
		return res, fmt.Errorf("push: %w", err)
	}
	res.Completion = completion
	res.Suppressed = completion.Suppressed()
	if onComplete != nil {
		completion.OnComplete(onComplete)
	}
	p.logger.Debug("push issued",
		logging.String(logging.FieldPushID, completion.ID()),
		logging.Bool("suppressed", res.Suppressed),
		logging.Int("nodes", tree.Count()),
	)
	return res, nil
}

func (p *Pipe) consume(ctx context.Context, emitter Emitter) (Result, error) {
	res := Result{Role: RoleConsumer}
	tree, ok, err := p.transport.PullData(ctx)
	if err != nil {
		return res, fmt.Errorf("pull: %w", err)
	}
	if !ok {
		return res, nil
	}
	res.Received = true
	res.Tree = tree
	p.logger.Debug("tree received", logging.Int("nodes", tree.Count()))
	if err := emitter.EmitPipeData(ctx, tree); err != nil {
		return res, fmt.Errorf("emit: %w", err)
	}
	return res, nil
}

// ClosePipe releases the transport. It is idempotent.
func (p *Pipe) ClosePipe() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	return p.transport.Close()
}
