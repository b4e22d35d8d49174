package localpipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"thepipe/internal/datatree"
	"thepipe/internal/logging"
	"thepipe/internal/metrics"
	"thepipe/internal/pipe"
	"thepipe/internal/wire"
)

const transportName = "local"

// ErrBusy is returned by PushData when another process holds the endpoint.
var ErrBusy = errors.New("localpipe: endpoint held by another process")

// Transport is one named local endpoint.
type Transport struct {
	name     string
	sockPath string
	lockPath string
	opts     Options
	logger   *slog.Logger

	// mu serializes pushes and guards active and closed.
	mu     sync.Mutex
	active *listener
	closed bool

	opened atomic.Int64
	msgID  atomic.Uint64
}

var _ pipe.Transport = (*Transport)(nil)

// New prepares the endpoint name under opts.RuntimeDir. Nothing is opened
// until the first push.
func New(name string, opts Options) (*Transport, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("localpipe: endpoint name is required")
	}
	if strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("localpipe: endpoint name %q must not contain path separators", name)
	}
	if strings.TrimSpace(opts.RuntimeDir) == "" {
		return nil, errors.New("localpipe: runtime directory is required")
	}
	if err := os.MkdirAll(opts.RuntimeDir, 0o700); err != nil {
		return nil, fmt.Errorf("localpipe: create runtime dir: %w", err)
	}
	opts = opts.withDefaults()
	logger := logging.NewComponentLogger(opts.Logger, "localpipe").With(logging.String(logging.FieldPipe, name))
	return &Transport{
		name:     name,
		sockPath: filepath.Join(opts.RuntimeDir, name+".sock"),
		lockPath: filepath.Join(opts.RuntimeDir, name+".lock"),
		opts:     opts,
		logger:   logger,
	}, nil
}

func (t *Transport) Name() string { return t.name }

// SocketPath is the endpoint's unix socket.
func (t *Transport) SocketPath() string { return t.sockPath }

// ListenersOpened counts listeners this transport has opened.
func (t *Transport) ListenersOpened() int64 { return t.opened.Load() }

// Active reports whether this transport currently has a listener waiting
// for a consumer.
func (t *Transport) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active != nil && !t.active.finished()
}

// PushData queues tree for the next consumer. Pushing a tree equal to the
// one already queued returns a suppressed completion and opens nothing; a
// different tree supersedes the queued one.
func (t *Transport) PushData(ctx context.Context, tree *datatree.Node) (*pipe.Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	payload, err := wire.EncodeTree(tree)
	if err != nil {
		t.opts.Metrics.Push(transportName, metrics.PushFailed)
		return nil, fmt.Errorf("encode tree: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, pipe.ErrClosed
	}

	if l := t.active; l != nil && !l.finished() {
		queued, err := l.peek()
		if err == nil && datatree.EqualWithin(queued, tree, t.opts.Tolerance) {
			t.opts.Metrics.Push(transportName, metrics.PushSuppressed)
			t.logger.Debug("identical tree already queued",
				logging.String(logging.FieldPushID, l.completion.ID()))
			return pipe.Suppressed(l.completion), nil
		}
		t.active = nil
		if l.shutdown(pipe.ErrSuperseded) {
			t.opts.Metrics.Push(transportName, metrics.PushSuperseded)
			t.logger.Debug("queued tree superseded",
				logging.String(logging.FieldPushID, l.completion.ID()))
		}
	}

	l, err := t.listen(payload)
	if err != nil {
		t.opts.Metrics.Push(transportName, metrics.PushFailed)
		return nil, err
	}
	t.active = l
	t.opened.Add(1)
	t.opts.Metrics.ListenerOpened(t.name)
	t.opts.Metrics.Push(transportName, metrics.PushSent)
	t.opts.Metrics.Payload(transportName, "out", len(payload))
	t.logger.Debug("listener opened",
		logging.String(logging.FieldPushID, l.completion.ID()),
		logging.String("socket", t.sockPath),
		logging.Int("payload_bytes", len(payload)))
	return l.completion, nil
}

// Peek reads the tree queued on this endpoint by any process without
// consuming it. ok is false when no listener answers.
func (t *Transport) Peek(ctx context.Context) (*datatree.Node, bool, error) {
	return t.request(ctx, wire.MsgPeek)
}

// PullData takes the queued tree. A missing socket, a refused connection
// or a dial timeout report ok=false without error.
func (t *Transport) PullData(ctx context.Context) (*datatree.Node, bool, error) {
	tree, ok, err := t.request(ctx, wire.MsgTake)
	switch {
	case err != nil:
		t.opts.Metrics.Pull(transportName, metrics.PullFailed)
	case !ok:
		t.opts.Metrics.Pull(transportName, metrics.PullEmpty)
	default:
		t.opts.Metrics.Pull(transportName, metrics.PullReceived)
	}
	return tree, ok, err
}

// Close shuts down any waiting listener; its completion resolves with
// pipe.ErrClosed.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if l := t.active; l != nil {
		t.active = nil
		l.shutdown(pipe.ErrClosed)
	}
	return nil
}

func (t *Transport) listen(payload []byte) (*listener, error) {
	lock := flock.New(t.lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire endpoint lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBusy, t.name)
	}
	l, err := openListener(t, lock, payload)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return l, nil
}
