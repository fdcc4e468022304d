// Package timeouts defines shared timeout constants used across services.
package timeouts

import "time"

// GRPCDial caps the wait time when dialing the game service.
const GRPCDial = 2 * time.Second

// GRPCRequest caps the time allowed for a single tool call forwarded to
// the game service.
const GRPCRequest = 5 * time.Second

// ReadHeader limits how long the websocket HTTP server waits for request
// headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long servers wait for in-flight work during graceful
// shutdown.
const Shutdown = 5 * time.Second
