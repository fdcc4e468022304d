// Package engine is the session state machine.
//
// Apply takes an immutable snapshot and one command and returns either a
// Delta describing the next snapshot or a typed rejection. It never
// performs I/O: the clock, id generator, and random roller are injected,
// and the caller commits the delta under the snapshot's revision.
//
// Validation order is fixed: the action's row in the phase table is checked
// (phase, actor role, sub-state) before any pool or rotation is consulted.
package engine
