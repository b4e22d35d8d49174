package httppipe

// OutstandingCount reports how many pushes are still being watched.
func (t *Transport) OutstandingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.outstanding)
}
