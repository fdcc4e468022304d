// Package storage defines persistence interfaces for game sessions.
//
// A session is persisted as a snapshot (session record, participants, turn
// ledger) and mutated only through CommitDelta, which applies an engine
// delta iff the stored revision still equals the revision the delta was
// computed against. Implementations live in subpackages.
//
// Common error types:
//   - ErrNotFound: requested record is missing
//   - ErrRevisionConflict: the session changed since it was loaded
//   - ErrCodeTaken: another session already uses the join code
package storage
