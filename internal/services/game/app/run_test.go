package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/websocket"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	platformgrpc "github.com/louisbranch/storydeck/internal/platform/grpc"
	gamegrpc "github.com/louisbranch/storydeck/internal/services/game/api/grpc/game"
	grpcmeta "github.com/louisbranch/storydeck/internal/services/game/api/grpc/metadata"
)

func testConfig() Config {
	return Config{
		GRPCAddr:      "127.0.0.1:0",
		WSAddr:        "127.0.0.1:0",
		TokenSecret:   "run-test-secret-0123456789abcdef",
		RelayInterval: 20 * time.Millisecond,
	}
}

func TestNewRequiresTokenSecret(t *testing.T) {
	cfg := testConfig()
	cfg.TokenSecret = " "
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error without token secret")
	}
}

func TestNewRejectsBadAddress(t *testing.T) {
	cfg := testConfig()
	cfg.GRPCAddr = "127.0.0.1:-1"
	if _, err := New(cfg); err == nil {
		t.Fatal("expected listen error")
	}
}

func TestServeNotifiesSubscribers(t *testing.T) {
	cfg := testConfig()
	cfg.DBPath = t.TempDir() + "/game.db"
	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ctx)
	}()
	defer func() {
		cancel()
		select {
		case err := <-serveErr:
			if err != nil {
				t.Fatalf("serve: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("server did not stop")
		}
	}()

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer dialCancel()
	conn, err := platformgrpc.DialWithHealth(dialCtx, srv.Addr(), gamegrpc.ServiceName, 2*time.Second, nil)
	if err != nil {
		t.Fatalf("dial game server: %v", err)
	}
	defer conn.Close()
	client := gamegrpc.NewClient(conn)

	callCtx := metadata.AppendToOutgoingContext(context.Background(), grpcmeta.UserIDHeader, "ada")
	created, err := client.CreateSession(callCtx, "Harbor", "Ada")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	session, _ := created["session"].(map[string]any)
	sessionID, _ := session["id"].(string)
	code, _ := session["code"].(string)

	wsURL := "ws://" + srv.WSAddr() + "/ws"
	ws, err := websocket.Dial(wsURL, "", "http://"+srv.WSAddr())
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer ws.Close()
	if err := json.NewEncoder(ws).Encode(map[string]any{
		"type":    "session.subscribe",
		"payload": map[string]any{"session_id": sessionID},
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if frame := readFrame(t, ws); frame["type"] != "session.subscribed" {
		t.Fatalf("expected subscribed ack, got %v", frame)
	}

	if _, err := client.JoinSession(context.Background(), code, "Bea"); err != nil {
		t.Fatalf("join session: %v", err)
	}

	// The create notification may still be in flight; wait for the join.
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		frame := readFrame(t, ws)
		if frame["type"] != "session.changed" {
			t.Fatalf("expected session.changed, got %v", frame)
		}
		payload, _ := frame["payload"].(map[string]any)
		if payload["session_id"] != sessionID {
			t.Fatalf("expected session %s, got %v", sessionID, payload["session_id"])
		}
		if payload["revision"] == float64(2) {
			return
		}
	}
	t.Fatal("expected a session.changed frame at revision 2")
}

func readFrame(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	_ = ws.SetDeadline(time.Now().Add(3 * time.Second))
	var frame map[string]any
	if err := json.NewDecoder(ws).Decode(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

func TestOpenStoreDefaultsToMemory(t *testing.T) {
	store, err := openStore("  ")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	if _, err := store.PendingSessionChanges(context.Background(), 10); err != nil {
		t.Fatalf("pending changes: %v", err)
	}
}

func TestServeErrorsIgnoreOrderlyStops(t *testing.T) {
	if err := handleHTTPErr(http.ErrServerClosed); err != nil {
		t.Fatalf("expected closed http server to be ignored, got %v", err)
	}
	if err := handleGRPCErr(grpc.ErrServerStopped); err != nil {
		t.Fatalf("expected stopped grpc server to be ignored, got %v", err)
	}
	if err := handleGRPCErr(errors.New("boom")); err == nil || !strings.Contains(err.Error(), "serve gRPC") {
		t.Fatalf("expected wrapped grpc error, got %v", err)
	}
}
