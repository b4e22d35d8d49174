// Package httppipe reaches pipe endpoints served by the HTTP relay.
package httppipe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"thepipe/internal/config"
	"thepipe/internal/datatree"
	"thepipe/internal/logging"
	"thepipe/internal/metrics"
	"thepipe/internal/pipe"
	"thepipe/internal/relay"
	"thepipe/internal/wire"
)

const transportName = "http"

// Options configures a Transport.
type Options struct {
	Client         *http.Client
	Token          string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	PollInterval   time.Duration
	Limits         wire.Limits
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
}

// OptionsFromConfig maps the [pipe] and [relay] sections.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Token:          cfg.Relay.Token,
		ConnectTimeout: cfg.ConnectTimeout(),
		ReadTimeout:    cfg.ReadTimeout(),
		Limits:         wire.Limits{MaxPayloadBytes: cfg.MaxPayloadBytes()},
	}
}

// Transport is one relay pipe.
type Transport struct {
	name     string
	base     string // .../pipes/{name}
	opts     Options
	client   *http.Client
	logger   *slog.Logger
	watchCtx context.Context
	cancel   context.CancelFunc

	mu          sync.Mutex
	outstanding map[string]*pipe.Completion
	closed      bool
}

var _ pipe.Transport = (*Transport)(nil)

// New parses an endpoint such as http://host:7480/pipes/studio. A URL whose
// path does not start with /pipes/ names the pipe by its whole path.
func New(endpoint string, opts Options) (*Transport, error) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return nil, fmt.Errorf("httppipe: parse endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("httppipe: unsupported scheme %q", u.Scheme)
	}
	name := strings.Trim(strings.TrimPrefix(u.Path, "/pipes/"), "/")
	if name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("httppipe: endpoint %q must name exactly one pipe", endpoint)
	}
	u.Path = "/pipes/" + name
	u.RawQuery, u.Fragment = "", ""

	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 50 * time.Millisecond
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 5 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 250 * time.Millisecond
	}
	if opts.Limits.MaxPayloadBytes == 0 {
		opts.Limits = wire.DefaultLimits()
	}
	client := opts.Client
	if client == nil {
		dialer := &net.Dialer{Timeout: opts.ConnectTimeout}
		client = &http.Client{
			Transport: &http.Transport{
				DialContext:           dialer.DialContext,
				ResponseHeaderTimeout: opts.ReadTimeout,
			},
			Timeout: opts.ConnectTimeout + opts.ReadTimeout,
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Transport{
		name:        u.String(),
		base:        u.String(),
		opts:        opts,
		client:      client,
		logger:      logging.NewComponentLogger(opts.Logger, "httppipe").With(logging.String(logging.FieldPipe, name)),
		watchCtx:    ctx,
		cancel:      cancel,
		outstanding: make(map[string]*pipe.Completion),
	}, nil
}

func (t *Transport) Name() string { return t.name }

// PushData uploads tree. The completion resolves when the relay reports the
// push taken, superseded or expired.
func (t *Transport) PushData(ctx context.Context, tree *datatree.Node) (*pipe.Completion, error) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return nil, pipe.ErrClosed
	}

	body, err := wire.Marshal(tree, 0)
	if err != nil {
		t.opts.Metrics.Push(transportName, metrics.PushFailed)
		return nil, fmt.Errorf("encode tree: %w", err)
	}
	req, err := t.newRequest(ctx, http.MethodPut, t.base, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", relay.ContentType)
	resp, err := t.client.Do(req)
	if err != nil {
		t.opts.Metrics.Push(transportName, metrics.PushFailed)
		return nil, fmt.Errorf("put %s: %w", t.base, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		t.opts.Metrics.Push(transportName, metrics.PushFailed)
		return nil, statusError(resp)
	}
	var pushed relay.PushResponse
	if err := json.NewDecoder(resp.Body).Decode(&pushed); err != nil {
		return nil, fmt.Errorf("decode push response: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	completion, known := t.outstanding[pushed.PushID]
	if !known {
		completion = pipe.NewCompletion()
		t.outstanding[pushed.PushID] = completion
		id := pushed.PushID
		pipe.Watch(t.watchCtx, completion, t.opts.PollInterval, func(ctx context.Context) (pipe.PushState, error) {
			return t.state(ctx, id)
		})
		go t.forget(id, completion)
	}
	if pushed.Suppressed {
		t.opts.Metrics.Push(transportName, metrics.PushSuppressed)
		return pipe.Suppressed(completion), nil
	}
	t.opts.Metrics.Push(transportName, metrics.PushSent)
	t.opts.Metrics.Payload(transportName, "out", len(body))
	t.logger.Debug("tree uploaded", logging.String(logging.FieldPushID, pushed.PushID))
	return completion, nil
}

// PullData takes the queued tree. An unreachable relay or an empty pipe
// reports ok=false without error.
func (t *Transport) PullData(ctx context.Context) (*datatree.Node, bool, error) {
	tree, ok, err := t.fetch(ctx, false)
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

// Peek reads the queued tree without consuming it.
func (t *Transport) Peek(ctx context.Context) (*datatree.Node, bool, error) {
	return t.fetch(ctx, true)
}

// Close stops watching outstanding pushes; their completions resolve with
// pipe.ErrClosed. Trees already on the relay stay queued.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		t.cancel()
	}
	return nil
}

func (t *Transport) fetch(ctx context.Context, peek bool) (*datatree.Node, bool, error) {
	target := t.base
	if peek {
		target += "?peek=1"
	}
	req, err := t.newRequest(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, ctxErr
		}
		if unreachable(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get %s: %w", t.base, err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusNoContent:
		return nil, false, nil
	case http.StatusOK:
	default:
		return nil, false, statusError(resp)
	}
	frame, err := wire.ReadFrame(resp.Body, t.opts.Limits)
	if err != nil {
		return nil, false, fmt.Errorf("read tree: %w", err)
	}
	tree, err := wire.TreeFromFrame(frame)
	if err != nil {
		return nil, false, fmt.Errorf("decode tree: %w", err)
	}
	if !peek {
		t.opts.Metrics.Payload(transportName, "in", len(frame.Payload))
	}
	return tree, true, nil
}

func (t *Transport) state(ctx context.Context, id string) (pipe.PushState, error) {
	req, err := t.newRequest(ctx, http.MethodGet, t.base+"/pushes/"+url.PathEscape(id), nil)
	if err != nil {
		return "", err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		// The relay forgot the push; treat it like an expired one.
		return pipe.StateExpired, nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp)
	}
	var st relay.PushStatus
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return "", err
	}
	return st.State, nil
}

func (t *Transport) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if t.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+t.opts.Token)
	}
	return req, nil
}

func statusError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload)
	if payload.Error != "" {
		return fmt.Errorf("relay: %s (%d)", payload.Error, resp.StatusCode)
	}
	return fmt.Errorf("relay: unexpected status %d", resp.StatusCode)
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
