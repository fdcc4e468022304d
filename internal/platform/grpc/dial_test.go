package grpc

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	gogrpc "google.golang.org/grpc"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

func TestDialWithHealthReturnsServingConn(t *testing.T) {
	f := newHealthFixture(t)
	f.health.SetServingStatus(testService, grpc_health_v1.HealthCheckResponse_SERVING)

	conn, err := DialWithHealth(context.Background(), "passthrough:///table", testService, time.Second, nil, f.dialOptions()...)
	if err != nil {
		t.Fatalf("dial with health: %v", err)
	}
	defer conn.Close()

	resp, err := grpc_health_v1.NewHealthClient(conn).Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: testService})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING, got %s", resp.GetStatus())
	}
}

func TestDialWithHealthTimeoutBoundsWait(t *testing.T) {
	f := newHealthFixture(t)
	f.health.SetServingStatus(testService, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	start := time.Now()
	_, err := DialWithHealth(context.Background(), "passthrough:///table", testService, 150*time.Millisecond, nil, f.dialOptions()...)
	if err == nil {
		t.Fatal("expected a not serving service to fail the dial")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("expected dial timeout to bound the wait, took %v", elapsed)
	}
	var dialErr *DialError
	if !errors.As(err, &dialErr) || dialErr.Stage != DialStageHealth {
		t.Fatalf("expected health stage error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected wrapped deadline, got %v", err)
	}
}

func TestDialWithHealthConnectStage(t *testing.T) {
	// No transport credentials makes client construction fail.
	_, err := DialWithHealth(context.Background(), "127.0.0.1:1", testService, time.Second, nil, gogrpc.WithUserAgent("storydeck-test"))
	var dialErr *DialError
	if !errors.As(err, &dialErr) || dialErr.Stage != DialStageConnect {
		t.Fatalf("expected connect stage error, got %v", err)
	}
}

func TestDialErrorMessage(t *testing.T) {
	err := &DialError{Stage: DialStageHealth, Err: io.ErrUnexpectedEOF}
	if !strings.HasPrefix(err.Error(), "gRPC health error") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatal("expected unwrap to reach the cause")
	}

	var empty *DialError
	if empty.Error() == "" || empty.Unwrap() != nil {
		t.Fatal("expected nil DialError to be safe")
	}
}

func TestDefaultClientDialOptionsIncludeTracing(t *testing.T) {
	if got := len(DefaultClientDialOptions()); got != 2 {
		t.Fatalf("expected credentials and stats handler, got %d options", got)
	}
}
