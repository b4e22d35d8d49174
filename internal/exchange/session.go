package exchange

import (
	"context"
	"time"

	"github.com/google/uuid"

	"thepipe/internal/logging"
)

// Session scopes the state of one receive cycle.
type Session struct {
	ID      string
	Pipe    string
	Started time.Time
}

// NewSession starts a session for pipe with a fresh ID.
func NewSession(pipe string) *Session {
	return &Session{ID: uuid.NewString(), Pipe: pipe, Started: time.Now()}
}

// Context annotates ctx with the session and pipe for logging.
func (s *Session) Context(ctx context.Context) context.Context {
	ctx = logging.WithPipe(ctx, s.Pipe)
	return logging.WithSessionID(ctx, s.ID)
}
