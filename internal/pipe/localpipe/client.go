package localpipe

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"syscall"
	"time"

	"thepipe/internal/datatree"
	"thepipe/internal/logging"
	"thepipe/internal/wire"
)

// request dials the endpoint and performs one peek or take exchange.
func (t *Transport) request(ctx context.Context, msgType uint32) (*datatree.Node, bool, error) {
	dialer := net.Dialer{Timeout: t.opts.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "unix", t.sockPath)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, ctxErr
		}
		if noListener(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("dial %s: %w", t.sockPath, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	_ = conn.SetDeadline(time.Now().Add(t.opts.ReadTimeout))
	id := t.msgID.Add(1)
	if err := wire.WriteFrame(conn, wire.NewFrame(msgType, id, 0, nil), t.opts.Limits); err != nil {
		if noListener(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("send request: %w", err)
	}

	resp, err := wire.ReadFrame(conn, t.opts.Limits)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, ctxErr
		}
		// The listener closed between accept and reply, e.g. superseded.
		if errors.Is(err, wire.ErrShortHeader) || errors.Is(err, syscall.ECONNRESET) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read response: %w", err)
	}
	if resp.Header.Flags&wire.FlagEmpty != 0 {
		return nil, false, nil
	}
	tree, err := wire.TreeFromFrame(resp)
	if err != nil {
		return nil, false, fmt.Errorf("decode tree: %w", err)
	}

	if msgType == wire.MsgTake {
		if err := wire.WriteFrame(conn, wire.NewFrame(wire.MsgAck, id, 0, nil), t.opts.Limits); err != nil {
			// The tree arrived intact; the producer logs the missing ack.
			t.logger.Debug("ack failed", logging.Error(err))
		}
		t.opts.Metrics.Payload(transportName, "in", len(resp.Payload))
	}
	return tree, true, nil
}

func noListener(err error) bool {
	var netErr net.Error
	switch {
	case errors.Is(err, fs.ErrNotExist),
		errors.Is(err, syscall.ENOENT),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ECONNRESET):
		return true
	case errors.As(err, &netErr) && netErr.Timeout():
		return true
	}
	return false
}
