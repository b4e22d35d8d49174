package relay

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"thepipe/internal/datatree"
	"thepipe/internal/geometry"
	"thepipe/internal/pipe"
)

// historyRetention bounds how long terminal push states stay queryable.
const historyRetention = 10 * time.Minute

type slot struct {
	pushID   string
	payload  []byte
	tree     *datatree.Node
	pushedAt time.Time
}

type pushRecord struct {
	name    string
	state   pipe.PushState
	updated time.Time
}

// store holds one slot per pipe name plus recent push states.
type store struct {
	mu        sync.Mutex
	tolerance geometry.Tolerance
	ttl       time.Duration
	now       func() time.Time
	slots     map[string]*slot
	pushes    map[string]*pushRecord
}

func newStore(tol geometry.Tolerance, ttl time.Duration) *store {
	return &store{
		tolerance: tol,
		ttl:       ttl,
		now:       time.Now,
		slots:     make(map[string]*slot),
		pushes:    make(map[string]*pushRecord),
	}
}

// put queues tree under name. It returns the push ID now holding the slot and
// whether the tree matched the one already queued.
func (s *store) put(name string, payload []byte, tree *datatree.Node) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()

	if cur, ok := s.slots[name]; ok {
		if datatree.EqualWithin(cur.tree, tree, s.tolerance) {
			return cur.pushID, true
		}
		s.setStateLocked(cur.pushID, pipe.StateSuperseded)
	}
	id := uuid.NewString()
	s.slots[name] = &slot{pushID: id, payload: payload, tree: tree, pushedAt: s.now()}
	s.pushes[id] = &pushRecord{name: name, state: pipe.StatePending, updated: s.now()}
	return id, false
}

// take removes and returns the queued payload.
func (s *store) take(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()

	cur, ok := s.slots[name]
	if !ok {
		return nil, false
	}
	delete(s.slots, name)
	s.setStateLocked(cur.pushID, pipe.StateTaken)
	return cur.payload, true
}

func (s *store) peek(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()

	cur, ok := s.slots[name]
	if !ok {
		return nil, false
	}
	return cur.payload, true
}

// drop discards the queued tree; its push resolves as expired.
func (s *store) drop(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.slots[name]
	if !ok {
		return false
	}
	delete(s.slots, name)
	s.setStateLocked(cur.pushID, pipe.StateExpired)
	return true
}

func (s *store) state(name, pushID string) (pipe.PushState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()

	rec, ok := s.pushes[pushID]
	if !ok || rec.name != name {
		return "", false
	}
	return rec.state, true
}

func (s *store) list() []SlotInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()

	out := make([]SlotInfo, 0, len(s.slots))
	for name, cur := range s.slots {
		out = append(out, SlotInfo{
			Name:     name,
			PushID:   cur.pushID,
			Bytes:    len(cur.payload),
			Nodes:    cur.tree.Count(),
			PushedAt: cur.pushedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *store) setStateLocked(id string, state pipe.PushState) {
	if rec, ok := s.pushes[id]; ok {
		rec.state = state
		rec.updated = s.now()
	}
}

// expireLocked drops slots older than the TTL and forgets old push states.
func (s *store) expireLocked() {
	now := s.now()
	if s.ttl > 0 {
		for name, cur := range s.slots {
			if now.Sub(cur.pushedAt) >= s.ttl {
				delete(s.slots, name)
				s.setStateLocked(cur.pushID, pipe.StateExpired)
			}
		}
	}
	for id, rec := range s.pushes {
		if rec.state.Terminal() && now.Sub(rec.updated) >= historyRetention {
			delete(s.pushes, id)
		}
	}
}
