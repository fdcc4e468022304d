package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/grpc"

	"github.com/louisbranch/storydeck/internal/services/mcp/domain"
)

type stubGameClient struct {
	getErr error
}

func (stubGameClient) CreateSession(context.Context, string, string, ...grpc.CallOption) (map[string]any, error) {
	return map[string]any{"session": map[string]any{"id": "s1", "phase": "WAITING"}}, nil
}

func (stubGameClient) JoinSession(context.Context, string, string, ...grpc.CallOption) (map[string]any, error) {
	return map[string]any{"session": map[string]any{"id": "s1"}, "participant_id": "p2", "player_token": "tok"}, nil
}

func (s stubGameClient) GetSession(context.Context, string, ...grpc.CallOption) (map[string]any, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return map[string]any{"session": map[string]any{"id": "s1"}}, nil
}

func (stubGameClient) ApplyAction(context.Context, string, string, map[string]any, ...grpc.CallOption) (map[string]any, error) {
	return map[string]any{"session": map[string]any{"id": "s1"}}, nil
}

func (stubGameClient) ListTurns(context.Context, string, string, int, ...grpc.CallOption) (map[string]any, error) {
	return map[string]any{"turns": []any{}}, nil
}

type closeCounter struct {
	closed int
}

func (c *closeCounter) Close() error {
	c.closed++
	return nil
}

func connectClient(t *testing.T, server *Server) (*mcp.ClientSession, context.CancelFunc, chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.serveWithTransport(ctx, serverTransport)
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	clientCtx, clientCancel := context.WithTimeout(context.Background(), time.Second)
	defer clientCancel()
	session, err := client.Connect(clientCtx, clientTransport, nil)
	if err != nil {
		cancel()
		t.Fatalf("connect client: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	return session, cancel, serveErr
}

func TestServerRegistersTools(t *testing.T) {
	server := newServer(stubGameClient{}, nil, domain.NewContext("ada"))
	session, cancel, _ := connectClient(t, server)
	defer cancel()

	result, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range result.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"session_create", "session_join", "session_get", "session_apply", "turns_list"} {
		if !names[want] {
			t.Fatalf("expected tool %s, got %v", want, names)
		}
	}
}

func TestServerCallsTools(t *testing.T) {
	server := newServer(stubGameClient{getErr: errors.New("game not found")}, nil, domain.NewContext("ada"))
	session, cancel, _ := connectClient(t, server)
	defer cancel()

	created, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "session_create",
		Arguments: map[string]any{"title": "Harbor", "display_name": "Ada"},
	})
	if err != nil {
		t.Fatalf("call session_create: %v", err)
	}
	if created.IsError {
		t.Fatalf("expected success, got %+v", created.Content)
	}

	failed, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "session_get",
		Arguments: map[string]any{},
	})
	if err != nil {
		t.Fatalf("call session_get: %v", err)
	}
	if !failed.IsError {
		t.Fatal("expected tool error for missing game")
	}
	text, ok := failed.Content[0].(*mcp.TextContent)
	if !ok || !strings.Contains(text.Text, "game not found") {
		t.Fatalf("expected game not found in tool error, got %+v", failed.Content)
	}
}

func TestServeWithTransportClosesConnection(t *testing.T) {
	conn := &closeCounter{}
	server := newServer(stubGameClient{}, conn, domain.NewContext(""))
	_, cancel, serveErr := connectClient(t, server)

	cancel()
	select {
	case err := <-serveErr:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
	if conn.closed != 1 {
		t.Fatalf("expected connection closed once, got %d", conn.closed)
	}
}

func TestRunUnsupportedTransport(t *testing.T) {
	err := Run(context.Background(), Config{GRPCAddr: "localhost:0", Transport: "websocket"})
	if err == nil || !strings.Contains(err.Error(), "not supported") {
		t.Fatalf("expected unsupported transport error, got %v", err)
	}
}
