// Package relay serves pipe endpoints over HTTP for producers and consumers
// on different machines.
//
// Routes:
//
//	PUT    /pipes/{name}                 queue a wire-encoded tree
//	GET    /pipes/{name}                 take the queued tree (204 when empty)
//	GET    /pipes/{name}?peek=1          read without consuming
//	DELETE /pipes/{name}                 drop the queued tree
//	GET    /pipes/{name}/pushes/{id}     push lifecycle state
//	GET    /pipes                        list queued trees
//	GET    /metrics                      Prometheus exposition
//	GET    /healthz                      liveness
//
// The relay holds at most one tree per name. Queuing a tree equal to the one
// already held is suppressed; a different tree supersedes it.
package relay
