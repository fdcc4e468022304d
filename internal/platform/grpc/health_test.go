package grpc

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

const testService = "storydeck.test.v1.TableService"

type healthFixture struct {
	health   *health.Server
	conn     *gogrpc.ClientConn
	listener *bufconn.Listener
}

// dialOptions route a client through the fixture's in-memory listener.
func (f healthFixture) dialOptions() []gogrpc.DialOption {
	return []gogrpc.DialOption{
		gogrpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return f.listener.DialContext(ctx)
		}),
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
	}
}

func newHealthFixture(t *testing.T) healthFixture {
	t.Helper()
	listener := bufconn.Listen(1 << 16)
	server := gogrpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	go func() {
		_ = server.Serve(listener)
	}()
	t.Cleanup(server.Stop)

	f := healthFixture{health: healthServer, listener: listener}
	conn, err := gogrpc.NewClient("passthrough:///health", f.dialOptions()...)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	f.conn = conn
	return f
}

type logLines struct {
	mu    sync.Mutex
	lines []string
}

func (l *logLines) logf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, format)
}

func (l *logLines) joined() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.lines, "\n")
}

func TestWaitForHealthNamedService(t *testing.T) {
	f := newHealthFixture(t)
	f.health.SetServingStatus(testService, grpc_health_v1.HealthCheckResponse_SERVING)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var logs logLines
	if err := WaitForHealth(ctx, f.conn, testService, logs.logf); err != nil {
		t.Fatalf("wait for health: %v", err)
	}
	if !strings.Contains(logs.joined(), "serving after") {
		t.Fatalf("expected serving log, got %q", logs.joined())
	}
}

func TestWaitForHealthWaitsForRegistration(t *testing.T) {
	f := newHealthFixture(t)
	go func() {
		time.Sleep(250 * time.Millisecond)
		f.health.SetServingStatus(testService, grpc_health_v1.HealthCheckResponse_SERVING)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var logs logLines
	if err := WaitForHealth(ctx, f.conn, testService, logs.logf); err != nil {
		t.Fatalf("wait for health: %v", err)
	}
	if !strings.Contains(logs.joined(), "not ready") {
		t.Fatalf("expected a not ready log before serving, got %q", logs.joined())
	}
}

func TestWaitForHealthGivesUpWithContext(t *testing.T) {
	f := newHealthFixture(t)
	f.health.SetServingStatus(testService, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	err := WaitForHealth(ctx, f.conn, testService, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestWaitForHealthRequiresConn(t *testing.T) {
	if err := WaitForHealth(context.Background(), nil, testService, nil); !errors.Is(err, errNoConn) {
		t.Fatalf("expected missing connection error, got %v", err)
	}
}
