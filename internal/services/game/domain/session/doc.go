// Package session models the game session record.
//
// A session carries the coarse phase, the phase-3 sub-states, the current
// and last turn holders, the location confirmations and readiness sets, and
// the revision counter used for optimistic commits. Values are treated as
// immutable snapshots: mutate a Clone, never a loaded record.
package session
