// Package server composes application services for the game entrypoint.
//
// It wires storage, the gateway, the gRPC service and its interceptors, and
// the websocket notification hub with its outbox relay into one runnable
// server.
package server
