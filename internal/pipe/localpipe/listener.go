package localpipe

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"thepipe/internal/datatree"
	"thepipe/internal/logging"
	"thepipe/internal/metrics"
	"thepipe/internal/pipe"
	"thepipe/internal/wire"
)

// listener serves one queued tree until a consumer takes it.
type listener struct {
	t          *Transport
	ln         net.Listener
	lock       *flock.Flock
	payload    []byte
	completion *pipe.Completion
	timer      *time.Timer

	taken      atomic.Bool
	wg         sync.WaitGroup
	stopOnce   sync.Once
	finishOnce sync.Once
	done       chan struct{}
}

func openListener(t *Transport, lock *flock.Flock, payload []byte) (*listener, error) {
	// The lock is held, so any socket file left here is stale.
	if err := os.RemoveAll(t.sockPath); err != nil {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", t.sockPath)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}
	l := &listener{
		t:          t,
		ln:         ln,
		lock:       lock,
		payload:    payload,
		completion: pipe.NewCompletion(),
		done:       make(chan struct{}),
	}
	if d := t.opts.ListenTimeout; d > 0 {
		l.timer = time.AfterFunc(d, func() {
			if l.shutdown(pipe.ErrListenTimeout) {
				t.opts.Metrics.Push(transportName, metrics.PushExpired)
				t.logger.Info("listener expired unconsumed",
					logging.String(logging.FieldPushID, l.completion.ID()),
					logging.Duration("listen_timeout", d))
			}
		})
	}
	l.wg.Add(1)
	go l.serve()
	return l, nil
}

func (l *listener) peek() (*datatree.Node, error) {
	return wire.DecodeTree(l.payload)
}

func (l *listener) finished() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

func (l *listener) serve() {
	defer l.wg.Done()
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				logging.WarnWithContext(l.t.logger, "accept failed", "localpipe_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check runtime directory permissions"))
			}
			return
		}
		l.wg.Add(1)
		go func(c net.Conn) {
			defer l.wg.Done()
			defer c.Close()
			l.handle(c)
		}(conn)
	}
}

func (l *listener) handle(conn net.Conn) {
	opts := l.t.opts
	_ = conn.SetDeadline(time.Now().Add(opts.ReadTimeout))
	req, err := wire.ReadFrame(conn, wire.Limits{MaxPayloadBytes: 0})
	if err != nil {
		l.t.logger.Debug("bad request", logging.Error(err))
		return
	}
	id := req.Header.MessageID

	switch req.Header.MessageType {
	case wire.MsgPeek:
		_ = wire.WriteFrame(conn, l.response(id, false), opts.Limits)
	case wire.MsgTake:
		if !l.taken.CompareAndSwap(false, true) {
			_ = wire.WriteFrame(conn, l.response(id, true), opts.Limits)
			return
		}
		if err := wire.WriteFrame(conn, l.response(id, false), opts.Limits); err != nil {
			// Nothing was delivered; let the next consumer try.
			l.taken.Store(false)
			l.t.logger.Debug("take response failed", logging.Error(err))
			return
		}
		_ = conn.SetDeadline(time.Now().Add(opts.DrainTimeout))
		ack, err := wire.ReadFrame(conn, wire.Limits{MaxPayloadBytes: 0})
		if err != nil || ack.Header.MessageType != wire.MsgAck {
			logging.WarnWithContext(l.t.logger, "consumer did not acknowledge", "localpipe_drain_incomplete",
				logging.String(logging.FieldPushID, l.completion.ID()),
				logging.Duration("drain_timeout", opts.DrainTimeout))
		}
		l.stop()
		l.finish(nil)
		l.t.logger.Debug("tree taken", logging.String(logging.FieldPushID, l.completion.ID()))
	default:
		l.t.logger.Debug("unexpected request", logging.Uint64("message_type", uint64(req.Header.MessageType)))
	}
}

func (l *listener) response(id uint64, empty bool) wire.Frame {
	if empty {
		return wire.NewFrame(wire.MsgTree, id, wire.FlagIsResponse|wire.FlagEmpty, nil)
	}
	return wire.NewFrame(wire.MsgTree, id, wire.FlagIsResponse, l.payload)
}

// stop closes the socket so no new consumer can connect.
func (l *listener) stop() {
	l.stopOnce.Do(func() {
		if l.timer != nil {
			l.timer.Stop()
		}
		_ = l.ln.Close()
	})
}

// shutdown stops accepting, waits for in-flight requests and resolves the
// completion with err unless a consumer already took the tree. It reports
// whether err was the resolution.
func (l *listener) shutdown(err error) bool {
	l.stop()
	l.wg.Wait()
	return l.finish(err)
}

func (l *listener) finish(err error) bool {
	resolved := false
	l.finishOnce.Do(func() {
		resolved = true
		// net.UnixListener.Close already unlinks the socket it created.
		if rmErr := os.Remove(l.t.sockPath); rmErr != nil && !os.IsNotExist(rmErr) {
			l.t.logger.Warn("failed to remove socket", logging.String("socket", l.t.sockPath), logging.Error(rmErr))
		}
		if unlockErr := l.lock.Unlock(); unlockErr != nil {
			l.t.logger.Warn("failed to release endpoint lock", logging.String("lock", l.t.lockPath), logging.Error(unlockErr))
		}
		close(l.done)
		l.completion.Resolve(err)
	})
	return resolved
}
