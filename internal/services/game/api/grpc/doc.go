// Package grpc contains the gRPC transport of the game service.
//
// This package is organized by concern:
//
//   - game/: GameService descriptor, server implementation and client
//   - interceptors/: identity, rate limiting and call logging
//   - metadata/: shared header keys and request ID propagation
package grpc
