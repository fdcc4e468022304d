// Package api groups the transports of the game service.
//
// gRPC is the only request surface: every read and every action goes
// through grpc/game, wrapped by the middleware in grpc/interceptors and the
// correlation headers in grpc/metadata. The websocket hub in notify is
// push-only and carries change notices, never state.
//
// The MCP adapter in internal/services/mcp is a gRPC client like any other.
package api
