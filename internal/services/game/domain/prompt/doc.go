// Package prompt owns the two static prompt pools and the allocator that
// draws from them.
//
// The small pool holds twelve face prompts, each drawable once per session.
// The large pool is keyed by (face value 2-9, draw order 1-4); face value 10
// is not a prompt but the terminal signal that closes a cycle.
//
// Consumption is never stored here. Callers derive it from the session's
// turn ledger and hand it to the allocator, which stays pure apart from the
// injected Roller.
package prompt
