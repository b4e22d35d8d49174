package logging

import (
	"bytes"
	"log/slog"
	"testing"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every handler is nil")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, inner); h != inner {
		t.Fatal("expected the single non-nil handler to be returned unwrapped")
	}
}

func TestTeeLoggerRespectsPerHandlerLevel(t *testing.T) {
	var consoleBuf, fileBuf bytes.Buffer
	console := slog.New(slog.NewJSONHandler(&consoleBuf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	file := slog.NewJSONHandler(&fileBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	logger := TeeLogger(console, file).With(slog.String(FieldPipe, "walls"))
	logger.Debug("peek answered")
	logger.Warn("listener superseded")

	if bytes.Contains(consoleBuf.Bytes(), []byte("peek answered")) {
		t.Fatal("debug line leaked into warn-level handler")
	}
	if !bytes.Contains(consoleBuf.Bytes(), []byte("listener superseded")) {
		t.Fatal("warn line missing from console handler")
	}
	for _, want := range []string{"peek answered", "listener superseded", `"pipe":"walls"`} {
		if !bytes.Contains(fileBuf.Bytes(), []byte(want)) {
			t.Fatalf("file handler missing %q: %s", want, fileBuf.String())
		}
	}
}
