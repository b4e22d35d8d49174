// Package redispipe keeps pipe endpoints in Redis so producers and consumers
// only need to share a Redis server.
//
// Keys, under the configured prefix:
//
//	pipe:{name}        wire payload of the queued tree
//	pipe:{name}:push   push ID holding the slot
//	push:{id}          lifecycle state of one push
package redispipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"

	"thepipe/internal/config"
	"thepipe/internal/datatree"
	"thepipe/internal/geometry"
	"thepipe/internal/logging"
	"thepipe/internal/metrics"
	"thepipe/internal/pipe"
	"thepipe/internal/wire"
)

const (
	transportName = "redis"
	// stateRetention bounds how long terminal push states stay readable.
	stateRetention = 10 * time.Minute
	maxTxRetries   = 5
)

// Options configures a Transport.
type Options struct {
	Prefix string
	// TTL expires queued trees nobody took. Zero keeps them until replaced.
	TTL            time.Duration
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	PollInterval   time.Duration
	Tolerance      geometry.Tolerance
	Limits         wire.Limits
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
}

// OptionsFromConfig maps the [redis], [pipe] and [geometry] sections.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Prefix:         cfg.Redis.KeyPrefix,
		TTL:            cfg.RedisTTL(),
		ConnectTimeout: cfg.ConnectTimeout(),
		ReadTimeout:    cfg.ReadTimeout(),
		Tolerance:      cfg.Tolerance(),
		Limits:         wire.Limits{MaxPayloadBytes: cfg.MaxPayloadBytes()},
	}
}

// Transport is one pipe stored in Redis.
type Transport struct {
	name       string
	pipeName   string
	client     *backend.Client
	ownsClient bool
	opts       Options
	logger     *slog.Logger
	watchCtx   context.Context
	cancel     context.CancelFunc

	mu          sync.Mutex
	outstanding map[string]*pipe.Completion
	closed      bool
}

var _ pipe.Transport = (*Transport)(nil)

// New dials the server named by endpoint: redis://[user:pass@]host:port/[db/]name.
func New(endpoint string, opts Options) (*Transport, error) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return nil, fmt.Errorf("redispipe: parse endpoint: %w", err)
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("redispipe: unsupported scheme %q", u.Scheme)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	db := 0
	switch {
	case len(segments) == 2:
		if db, err = strconv.Atoi(segments[0]); err != nil {
			return nil, fmt.Errorf("redispipe: database %q is not a number", segments[0])
		}
	case len(segments) != 1:
		return nil, fmt.Errorf("redispipe: endpoint %q must name exactly one pipe", endpoint)
	}
	name := segments[len(segments)-1]
	if name == "" {
		return nil, fmt.Errorf("redispipe: endpoint %q must name a pipe", endpoint)
	}

	server := *u
	server.Path = "/" + strconv.Itoa(db)
	server.RawQuery, server.Fragment = "", ""
	clientOpts, err := backend.ParseURL(server.String())
	if err != nil {
		return nil, fmt.Errorf("redispipe: %w", err)
	}
	opts = opts.withDefaults()
	clientOpts.DialTimeout = opts.ConnectTimeout
	clientOpts.ReadTimeout = opts.ReadTimeout
	clientOpts.WriteTimeout = opts.ReadTimeout

	t := NewFromClient(backend.NewClient(clientOpts), name, opts)
	t.name = (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/" + name}).String()
	t.ownsClient = true
	return t, nil
}

// NewFromClient uses an existing client; Close leaves it open.
func NewFromClient(client *backend.Client, name string, opts Options) *Transport {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Transport{
		name:        "redis/" + name,
		pipeName:    name,
		client:      client,
		opts:        opts,
		logger:      logging.NewComponentLogger(opts.Logger, "redispipe").With(logging.String(logging.FieldPipe, name)),
		watchCtx:    ctx,
		cancel:      cancel,
		outstanding: make(map[string]*pipe.Completion),
	}
}

func (o Options) withDefaults() Options {
	if o.Prefix == "" {
		o.Prefix = "thepipe:"
	}
	if o.TTL < 0 {
		o.TTL = 0
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 50 * time.Millisecond
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 5 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 250 * time.Millisecond
	}
	if o.Tolerance == (geometry.Tolerance{}) {
		o.Tolerance = geometry.DefaultTolerance
	}
	if o.Limits.MaxPayloadBytes == 0 {
		o.Limits = wire.DefaultLimits()
	}
	return o
}

func (t *Transport) Name() string { return t.name }

func (t *Transport) dataKey() string           { return t.opts.Prefix + "pipe:" + t.pipeName }
func (t *Transport) pushKey() string           { return t.opts.Prefix + "pipe:" + t.pipeName + ":push" }
func (t *Transport) stateKey(id string) string { return t.opts.Prefix + "push:" + id }

// PushData stores tree in the pipe's slot. An equal tree already queued is
// suppressed; a different one is superseded.
func (t *Transport) PushData(ctx context.Context, tree *datatree.Node) (*pipe.Completion, error) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return nil, pipe.ErrClosed
	}

	payload, err := wire.EncodeTree(tree)
	if err != nil {
		t.opts.Metrics.Push(transportName, metrics.PushFailed)
		return nil, fmt.Errorf("encode tree: %w", err)
	}
	if uint64(len(payload)) > t.opts.Limits.MaxPayloadBytes {
		t.opts.Metrics.Push(transportName, metrics.PushFailed)
		return nil, wire.ErrPayloadTooLarge
	}

	var (
		pushID     string
		suppressed bool
		superseded string
	)
	for attempt := 0; ; attempt++ {
		pushID, suppressed, superseded, err = t.store(ctx, payload, tree)
		if !errors.Is(err, backend.TxFailedErr) || attempt >= maxTxRetries {
			break
		}
	}
	if err != nil {
		t.opts.Metrics.Push(transportName, metrics.PushFailed)
		return nil, fmt.Errorf("store tree: %w", err)
	}

	completion := t.track(pushID)
	if suppressed {
		t.opts.Metrics.Push(transportName, metrics.PushSuppressed)
		return pipe.Suppressed(completion), nil
	}
	if superseded != "" {
		t.opts.Metrics.Push(transportName, metrics.PushSuperseded)
	}
	t.opts.Metrics.Push(transportName, metrics.PushSent)
	t.opts.Metrics.Payload(transportName, "out", len(payload))
	t.logger.Debug("tree stored", logging.String(logging.FieldPushID, pushID))
	return completion, nil
}

// store runs one optimistic transaction over the slot.
func (t *Transport) store(ctx context.Context, payload []byte, tree *datatree.Node) (string, bool, string, error) {
	var (
		pushID     string
		suppressed bool
		superseded string
	)
	err := t.client.Watch(ctx, func(tx *backend.Tx) error {
		current, err := tx.MGet(ctx, t.dataKey(), t.pushKey()).Result()
		if err != nil {
			return err
		}
		queued, _ := current[0].(string)
		previous, _ := current[1].(string)
		if queued != "" && previous != "" {
			if existing, err := wire.DecodeTree([]byte(queued)); err == nil && datatree.EqualWithin(existing, tree, t.opts.Tolerance) {
				pushID, suppressed = previous, true
				return nil
			}
		}

		pushID = uuid.NewString()
		_, err = tx.TxPipelined(ctx, func(p backend.Pipeliner) error {
			p.Set(ctx, t.dataKey(), payload, t.opts.TTL)
			p.Set(ctx, t.pushKey(), pushID, t.opts.TTL)
			p.Set(ctx, t.stateKey(pushID), string(pipe.StatePending), t.opts.TTL)
			if previous != "" {
				p.Set(ctx, t.stateKey(previous), string(pipe.StateSuperseded), stateRetention)
			}
			return nil
		})
		if err == nil && queued != "" {
			superseded = previous
		}
		return err
	}, t.dataKey(), t.pushKey())
	return pushID, suppressed, superseded, err
}

// track returns the completion watching pushID, starting a watcher once.
func (t *Transport) track(pushID string) *pipe.Completion {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.outstanding[pushID]; ok {
		return c
	}
	c := pipe.NewCompletion()
	t.outstanding[pushID] = c
	pipe.Watch(t.watchCtx, c, t.opts.PollInterval, func(ctx context.Context) (pipe.PushState, error) {
		state, err := t.client.Get(ctx, t.stateKey(pushID)).Result()
		if errors.Is(err, backend.Nil) {
			return pipe.StateExpired, nil
		}
		return pipe.PushState(state), err
	})
	go t.forget(pushID, c)
	return c
}

// PullData takes the queued tree atomically. An unreachable server or an
// empty slot reports ok=false without error.
func (t *Transport) PullData(ctx context.Context) (*datatree.Node, bool, error) {
	tree, ok, err := t.take(ctx)
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

func (t *Transport) take(ctx context.Context) (*datatree.Node, bool, error) {
	var data, id *backend.StringCmd
	_, err := t.client.TxPipelined(ctx, func(p backend.Pipeliner) error {
		data = p.GetDel(ctx, t.dataKey())
		id = p.GetDel(ctx, t.pushKey())
		return nil
	})
	if err != nil && !errors.Is(err, backend.Nil) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, ctxErr
		}
		if unreachable(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("take %s: %w", t.dataKey(), err)
	}
	payload, err := data.Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if pushID, err := id.Result(); err == nil {
		if err := t.client.Set(ctx, t.stateKey(pushID), string(pipe.StateTaken), stateRetention).Err(); err != nil {
			t.logger.Warn("failed to mark push taken", logging.String(logging.FieldPushID, pushID), logging.Error(err))
		}
	}
	tree, err := wire.DecodeTree(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode tree: %w", err)
	}
	t.opts.Metrics.Payload(transportName, "in", len(payload))
	return tree, true, nil
}

// Peek reads the queued tree without consuming it.
func (t *Transport) Peek(ctx context.Context) (*datatree.Node, bool, error) {
	payload, err := t.client.Get(ctx, t.dataKey()).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, false, nil
	}
	if err != nil {
		if unreachable(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	tree, err := wire.DecodeTree(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode tree: %w", err)
	}
	return tree, true, nil
}

// Close stops watching outstanding pushes; queued trees stay in Redis.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()
	t.cancel()
	if t.ownsClient {
		return t.client.Close()
	}
	return nil
}

func unreachable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// forget drops a push from the outstanding set once it resolves. The owner's
// completion callback stays free for the caller.
func (t *Transport) forget(pushID string, c *pipe.Completion) {
	<-c.Done()
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.outstanding[pushID] == c {
		delete(t.outstanding, pushID)
	}
}
