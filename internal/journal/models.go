package journal

import (
	"time"

	"thepipe/internal/geometry"
)

// Direction says which side of a pipe an entry describes.
type Direction string

const (
	DirectionPush    Direction = "push"
	DirectionPull    Direction = "pull"
	DirectionReceive Direction = "receive"
)

// Outcome values shared by all directions.
const (
	OutcomeSent       = "sent"
	OutcomeSuppressed = "suppressed"
	OutcomeDelivered  = "delivered"
	OutcomeSuperseded = "superseded"
	OutcomeExpired    = "expired"
	OutcomeReceived   = "received"
	OutcomeEmpty      = "empty"
	OutcomeApplied    = "applied"
	OutcomeRolledBack = "rolled_back"
	OutcomeFailed     = "failed"
)

// Entry is one journal row.
type Entry struct {
	ID           int64
	Pipe         string
	Direction    Direction
	PushID       string
	SessionID    string
	Outcome      string
	Nodes        int
	Kinds        map[string]int
	PayloadBytes int
	Error        string
	CreatedAt    time.Time
}

// ObjectRef ties a host object ID to the kind of value it was built from.
type ObjectRef struct {
	Kind geometry.Kind
	ID   string
}

// Health summarizes journal diagnostics for doctor output.
type Health struct {
	Path           string
	Exists         bool
	Readable       bool
	SchemaVersion  string
	TotalEntries   int
	IntegrityCheck bool
	Error          string
}

// KindCounts converts a kind histogram to display names.
func KindCounts(kinds map[geometry.Kind]int) map[string]int {
	if len(kinds) == 0 {
		return nil
	}
	out := make(map[string]int, len(kinds))
	for k, n := range kinds {
		out[k.String()] = n
	}
	return out
}
