package grpc

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// DialStage says how far a dial got before failing.
type DialStage string

const (
	// DialStageConnect means the client could not be constructed. This is a
	// configuration problem and retrying will not help.
	DialStageConnect DialStage = "connect"
	// DialStageHealth means the server never reported SERVING in time.
	DialStageHealth DialStage = "health"
)

// DialError is returned by DialWithHealth.
type DialError struct {
	Stage DialStage
	Err   error
}

func (e *DialError) Error() string {
	if e == nil {
		return "gRPC dial error"
	}
	return fmt.Sprintf("gRPC %s error: %v", e.Stage, e.Err)
}

func (e *DialError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// DefaultClientDialOptions are used between storydeck processes when the
// caller supplies none: plaintext transport with client spans.
func DefaultClientDialOptions() []gogrpc.DialOption {
	return []gogrpc.DialOption{
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
		gogrpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}
}

// DialWithHealth connects to target and blocks until service reports
// SERVING. When timeout is positive it bounds the health wait. On failure
// the connection is closed and a *DialError names the stage.
func DialWithHealth(ctx context.Context, target, service string, timeout time.Duration, logf func(string, ...any), opts ...gogrpc.DialOption) (*gogrpc.ClientConn, error) {
	if len(opts) == 0 {
		opts = DefaultClientDialOptions()
	}
	conn, err := gogrpc.NewClient(target, opts...)
	if err != nil {
		return nil, &DialError{Stage: DialStageConnect, Err: err}
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := WaitForHealth(ctx, conn, service, logf); err != nil {
		_ = conn.Close()
		return nil, &DialError{Stage: DialStageHealth, Err: err}
	}
	return conn, nil
}
