// Package gateway is the boundary between transports and the game engine.
//
// Every request loads a fresh snapshot, lets the engine decide, and commits
// the resulting delta only if the stored revision has not moved. A conflict
// reloads and re-decides against the newer snapshot a bounded number of
// times. Committed changes are announced to subscribers afterwards; a failed
// announcement is logged and never undoes the commit.
package gateway
