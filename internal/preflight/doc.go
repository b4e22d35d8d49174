// Package preflight provides readiness checks for the directories, journal
// and remote services a pipe depends on.
//
// These checks run in two contexts:
//   - "pipectl doctor" runs RunAll plus CheckEndpoint for every endpoint
//     named on the command line.
//   - The relay daemon runs CheckDirectoryAccess on its state directory
//     before it starts listening.
//
// Each check is gated by its config toggle; a disabled journal is skipped.
package preflight
