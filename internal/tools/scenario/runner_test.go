package scenario

import (
	"bytes"
	"context"
	"log"
	"net"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/louisbranch/storydeck/internal/platform/id"
	"github.com/louisbranch/storydeck/internal/platform/random"
	gamegrpc "github.com/louisbranch/storydeck/internal/services/game/api/grpc/game"
	"github.com/louisbranch/storydeck/internal/services/game/api/grpc/interceptors"
	"github.com/louisbranch/storydeck/internal/services/game/domain/engine"
	"github.com/louisbranch/storydeck/internal/services/game/gateway"
	"github.com/louisbranch/storydeck/internal/services/game/identity"
	"github.com/louisbranch/storydeck/internal/services/game/storage/memory"
)

const playthrough = `
local scn = Scenario.new("harbor playthrough")
scn:create({as = "ada", title = "Harbor", name = "Ada"})
scn:join({as = "bea", name = "Bea"})
scn:expect({as = "bea", phase = "WAITING", participants = 2, viewer = "bea"})
scn:action("set_location", {as = "ada", location = "Lighthouse"})
scn:action("confirm_location", {as = "bea"})
scn:expect_error("start", {as = "bea", code = "PERMISSION_VIOLATION"})
scn:action("start", {as = "ada"})
scn:action("roll_cycle_length", {as = "ada"})
scn:action("confirm_cycle_length", {as = "ada"})
scn:expect({phase = "ESTABLISHING", turn_holder = "ada"})
scn:action("draw_face", {as = "ada"})
scn:expect_error("draw_face", {as = "ada", code = "TURN_VIOLATION"})
scn:action("draw_face", {as = "bea"})
scn:action("draw_face", {as = "ada"})
scn:expect({face_draws = 3, turn_holder = "bea"})
scn:action("toggle_ready", {as = "ada"})
scn:action("toggle_ready", {as = "bea"})
scn:expect({ready_count = 2})
scn:action("advance_to_drawing", {as = "ada"})
scn:action("draw_numbered", {as = "bea"})
scn:expect({phase = "DRAWING", turn_drawn = true, turn_holder = "bea", cycle = 0, ten_flag = false})
scn:turns({filter = 'kind = "face"', count = 3})
return scn
`

func newTestGameClient(t *testing.T) *gamegrpc.Client {
	t.Helper()
	now := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	clock := func() time.Time { return now }
	provider, err := identity.NewTokenProvider(identity.Config{
		Secret: []byte("scenario-test-secret-0123456789ab"),
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
	gamegrpc.RegisterGameServiceServer(server, gamegrpc.NewService(gw))
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
	return gamegrpc.NewClient(conn)
}

func loadScript(t *testing.T, body string) *Scenario {
	t.Helper()
	scenario, err := LoadScenarioFromFile(writeScript(t, "scenario.lua", body))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return scenario
}

func TestRunScenarioPlaysIntoDrawing(t *testing.T) {
	var logs bytes.Buffer
	runner := NewRunnerWithClient(Config{Verbose: true, Logger: log.New(&logs, "", 0)}, newTestGameClient(t))

	if err := runner.RunScenario(context.Background(), loadScript(t, playthrough)); err != nil {
		t.Fatalf("run scenario: %v\n%s", err, logs.String())
	}
	if !strings.Contains(logs.String(), "scenario done: harbor playthrough") {
		t.Fatalf("expected completion log, got %s", logs.String())
	}
	if !strings.Contains(logs.String(), "rejected as expected: action=start code=PERMISSION_VIOLATION") {
		t.Fatalf("expected rejection log, got %s", logs.String())
	}
}

const unmetExpectation = `
local scn = Scenario.new("unmet")
scn:create({as = "ada", title = "Harbor"})
scn:expect({phase = "ENDED"})
scn:expect_error("set_location", {as = "ada", location = "Pier"})
return scn
`

func TestRunScenarioStrictFailsOnUnmetExpectation(t *testing.T) {
	runner := NewRunnerWithClient(Config{Logger: log.New(&bytes.Buffer{}, "", 0)}, newTestGameClient(t))

	err := runner.RunScenario(context.Background(), loadScript(t, unmetExpectation))
	if err == nil {
		t.Fatal("expected strict mode to fail")
	}
	if !strings.Contains(err.Error(), "step 2 (expect)") || !strings.Contains(err.Error(), "expected phase = ENDED, got WAITING") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestRunScenarioLogOnlyKeepsGoing(t *testing.T) {
	var logs bytes.Buffer
	runner := NewRunnerWithClient(Config{
		Assertions: AssertionLogOnly,
		Logger:     log.New(&logs, "", 0),
	}, newTestGameClient(t))

	if err := runner.RunScenario(context.Background(), loadScript(t, unmetExpectation)); err != nil {
		t.Fatalf("expected log-only run to pass, got %v", err)
	}
	out := logs.String()
	if !strings.Contains(out, "expectation failed: expected phase = ENDED") {
		t.Fatalf("expected phase mismatch log, got %s", out)
	}
	if !strings.Contains(out, "expectation failed: expected set_location to fail") {
		t.Fatalf("expected missing rejection log, got %s", out)
	}
	if !strings.Contains(out, "scenario done: unmet (2 unmet expectations)") {
		t.Fatalf("expected unmet summary, got %s", out)
	}
}

func TestRunScenarioRequiresCreateFirst(t *testing.T) {
	runner := NewRunnerWithClient(Config{}, newTestGameClient(t))
	scenario := &Scenario{Name: "no session", Steps: []Step{{Kind: stepAction, Args: map[string]any{"action": "start", "as": "ada"}}}}

	err := runner.RunScenario(context.Background(), scenario)
	if err == nil || !strings.Contains(err.Error(), "call create first") {
		t.Fatalf("expected session error, got %v", err)
	}
}

func TestRunScenarioUnknownAlias(t *testing.T) {
	runner := NewRunnerWithClient(Config{}, newTestGameClient(t))
	scenario := loadScript(t, `
local scn = Scenario.new()
scn:create({as = "ada"})
scn:action("toggle_ready", {as = "zed"})
return scn
`)
	err := runner.RunScenario(context.Background(), scenario)
	if err == nil || !strings.Contains(err.Error(), `unknown player alias "zed"`) {
		t.Fatalf("expected alias error, got %v", err)
	}
}

func TestRunScenarioUnknownStep(t *testing.T) {
	runner := NewRunnerWithClient(Config{}, &gamegrpc.Client{})
	err := runner.RunScenario(context.Background(), &Scenario{Steps: []Step{{Kind: "dance"}}})
	if err == nil || !strings.Contains(err.Error(), `unknown step kind "dance"`) {
		t.Fatalf("expected unknown step error, got %v", err)
	}
}

func TestRunScenarioRequiresScenario(t *testing.T) {
	runner := NewRunnerWithClient(Config{}, &gamegrpc.Client{})
	if err := runner.RunScenario(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil scenario")
	}
}

func TestNewRunnerRequiresAddress(t *testing.T) {
	if _, err := NewRunner(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for missing address")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.GRPCAddr == "" || cfg.Timeout != 10*time.Second || cfg.Assertions != AssertionStrict {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}
