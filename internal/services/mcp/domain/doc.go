// Package domain defines the MCP tools that drive storydeck games through
// the game gRPC service.
//
// Tools remember the player token issued when joining a session and the
// session last created or joined, so agents can omit session_id on
// follow-up calls.
package domain
