package game_test

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/louisbranch/storydeck/internal/platform/id"
	"github.com/louisbranch/storydeck/internal/platform/random"
	"github.com/louisbranch/storydeck/internal/services/game/api/grpc/game"
	"github.com/louisbranch/storydeck/internal/services/game/api/grpc/interceptors"
	grpcmeta "github.com/louisbranch/storydeck/internal/services/game/api/grpc/metadata"
	"github.com/louisbranch/storydeck/internal/services/game/domain/engine"
	"github.com/louisbranch/storydeck/internal/services/game/gateway"
	"github.com/louisbranch/storydeck/internal/services/game/identity"
	"github.com/louisbranch/storydeck/internal/services/game/storage/memory"
)

func newTestClient(t *testing.T) *game.Client {
	t.Helper()
	now := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	clock := func() time.Time { return now }
	provider, err := identity.NewTokenProvider(identity.Config{
		Secret: []byte("grpc-test-secret-0123456789abcdef"),
		Now:    clock,
		NewID:  id.Sequence("player"),
	})
	if err != nil {
		t.Fatalf("token provider: %v", err)
	}
	gw, err := gateway.New(gateway.Options{
		Store:      memory.New(),
		Engine:     engine.New(random.NewSource(11), clock, id.Sequence("id")),
		Identity:   provider,
		CodeRoller: random.NewSource(5),
	})
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}

	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors.CredentialsInterceptor()))
	game.RegisterGameServiceServer(server, game.NewService(gw))
	go func() {
		_ = server.Serve(listener)
	}()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return game.NewClient(conn)
}

func withUser(userID string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), grpcmeta.UserIDHeader, userID)
}

func withToken(token string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), grpcmeta.PlayerTokenHeader, token)
}

func sessionOf(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	session, ok := resp["session"].(map[string]any)
	if !ok {
		t.Fatalf("expected session in response, got %v", resp)
	}
	return session
}

func TestGameServiceLifecycle(t *testing.T) {
	client := newTestClient(t)

	created, err := client.CreateSession(withUser("ada"), "Harbor", "Ada")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	session := sessionOf(t, created)
	if session["phase"] != "WAITING" {
		t.Fatalf("expected WAITING, got %v", session["phase"])
	}
	if session["viewer_id"] != session["creator_id"] || session["viewer_id"] == "" {
		t.Fatalf("expected creator to view own session, got %v", session["viewer_id"])
	}
	sessionID, _ := session["id"].(string)
	code, _ := session["code"].(string)

	var header metadata.MD
	joined, err := client.JoinSession(context.Background(), code, "Bea", grpc.Header(&header))
	if err != nil {
		t.Fatalf("join session: %v", err)
	}
	token, _ := joined["player_token"].(string)
	if token == "" {
		t.Fatal("expected player token in response body")
	}
	if got := header.Get(grpcmeta.PlayerTokenHeader); len(got) != 1 || got[0] != token {
		t.Fatalf("expected player token header, got %v", got)
	}
	if participants, _ := sessionOf(t, joined)["participants"].([]any); len(participants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(participants))
	}

	applied, err := client.ApplyAction(withUser("ada"), sessionID, "set_location", map[string]any{"location": "Old harbor"})
	if err != nil {
		t.Fatalf("set location: %v", err)
	}
	if got := sessionOf(t, applied)["location"]; got != "Old harbor" {
		t.Fatalf("expected location, got %v", got)
	}
	if got := sessionOf(t, applied)["revision"]; got != float64(3) {
		t.Fatalf("expected revision 3, got %v", got)
	}

	_, err = client.ApplyAction(withToken(token), sessionID, "start", nil)
	if status.Code(err) != codes.PermissionDenied {
		t.Fatalf("expected permission denied for non-creator start, got %v", err)
	}

	viewed, err := client.GetSession(withToken(token), sessionID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got := sessionOf(t, viewed)["viewer_id"]; got != joined["participant_id"] {
		t.Fatalf("expected viewer %v, got %v", joined["participant_id"], got)
	}

	turns, err := client.ListTurns(withToken(token), sessionID, "", 0)
	if err != nil {
		t.Fatalf("list turns: %v", err)
	}
	if list, _ := turns["turns"].([]any); len(list) != 0 {
		t.Fatalf("expected no turns, got %d", len(list))
	}
}

func TestGameServiceValidation(t *testing.T) {
	client := newTestClient(t)

	if _, err := client.GetSession(context.Background(), ""); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument without session id, got %v", err)
	}
	if _, err := client.GetSession(context.Background(), "missing"); status.Code(err) != codes.NotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := client.CreateSession(context.Background(), "Harbor", "Ada"); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected unauthenticated create, got %v", err)
	}
	if _, err := client.JoinSession(context.Background(), "", "Bea"); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument without code, got %v", err)
	}

	created, err := client.CreateSession(withUser("ada"), "Harbor", "Ada")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	sessionID, _ := sessionOf(t, created)["id"].(string)
	if _, err := client.ListTurns(withUser("ada"), sessionID, "kind = ", 0); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid filter, got %v", err)
	}
	if _, err := client.ApplyAction(withUser("ada"), sessionID, "", nil); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument without action, got %v", err)
	}
}
