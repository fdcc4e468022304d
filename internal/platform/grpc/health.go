package grpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	gogrpc "google.golang.org/grpc"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	healthInitialBackoff = 200 * time.Millisecond
	healthMaxBackoff     = time.Second
	healthCheckTimeout   = time.Second
)

// errNoConn is returned when WaitForHealth has nothing to poll.
var errNoConn = errors.New("gRPC connection is not configured")

// WaitForHealth polls the standard health service until service reports
// SERVING or ctx ends. An empty service asks for the server as a whole.
func WaitForHealth(ctx context.Context, conn gogrpc.ClientConnInterface, service string, logf func(string, ...any)) error {
	if conn == nil {
		return errNoConn
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}

	client := grpc_health_v1.NewHealthClient(conn)
	backoff := healthInitialBackoff
	for attempt := 1; ; attempt++ {
		status, err := checkHealth(ctx, client, service)
		if err == nil && status == grpc_health_v1.HealthCheckResponse_SERVING {
			logf("health %q serving after %d checks", service, attempt)
			return nil
		}
		if err != nil {
			logf("health %q not ready: %v", service, err)
		} else {
			logf("health %q not ready: %s", service, status)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for health %q: %w", service, ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, healthMaxBackoff)
	}
}

func checkHealth(ctx context.Context, client grpc_health_v1.HealthClient, service string) (grpc_health_v1.HealthCheckResponse_ServingStatus, error) {
	callCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	resp, err := client.Check(callCtx, &grpc_health_v1.HealthCheckRequest{Service: service})
	if err != nil {
		return grpc_health_v1.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}
