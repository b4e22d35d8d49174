package exchange

import (
	"context"
	"sync"

	"thepipe/internal/journal"
)

// Journal is the subset of journal.Store the exchange layer needs.
type Journal interface {
	Record(ctx context.Context, e journal.Entry) (int64, error)
	PreviousReceive(ctx context.Context, pipe string) ([]journal.ObjectRef, error)
	ReplaceReceive(ctx context.Context, pipe, sessionID string, refs []journal.ObjectRef) error
}

var _ Journal = (*journal.Store)(nil)

// MemoryJournal keeps receive state for the lifetime of one process when the
// persistent journal is disabled. Entries are kept for inspection.
type MemoryJournal struct {
	mu       sync.Mutex
	entries  []journal.Entry
	previous map[string][]journal.ObjectRef
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{previous: make(map[string][]journal.ObjectRef)}
}

func (m *MemoryJournal) Record(_ context.Context, e journal.Entry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, e)
	return e.ID, nil
}

func (m *MemoryJournal) PreviousReceive(_ context.Context, pipe string) ([]journal.ObjectRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]journal.ObjectRef(nil), m.previous[pipe]...), nil
}

func (m *MemoryJournal) ReplaceReceive(_ context.Context, pipe, _ string, refs []journal.ObjectRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.previous[pipe] = append([]journal.ObjectRef(nil), refs...)
	return nil
}

// Entries returns a copy of everything recorded so far.
func (m *MemoryJournal) Entries() []journal.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]journal.Entry(nil), m.entries...)
}
