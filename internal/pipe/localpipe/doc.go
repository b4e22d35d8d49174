// Package localpipe implements the machine-local pipe transport.
//
// Each endpoint name maps to a unix domain socket <runtime_dir>/<name>.sock
// guarded by a flock on <name>.lock, so at most one listener per name exists
// on the machine. A producer's PushData opens the listener and returns; the
// first consumer that connects and sends a take request receives the tree,
// acknowledges it, and the listener is released. Peek requests read the
// queued tree without consuming it.
package localpipe
