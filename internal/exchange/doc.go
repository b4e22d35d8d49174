// Package exchange connects host applications to pipes.
//
// A Sender collects host objects, converts them through a convert.Registry
// and hands the tree to a producer pipe. A Receiver is the consumer-side
// emitter: it converts a received tree back to host objects and applies them
// inside one host transaction, so a failed conversion or apply leaves the
// host document untouched. A Runner drives one pipe cycle and journals the
// outcome.
//
// Each receive runs in its own Session. Nothing is shared across cycles
// except what the journal persists.
package exchange
