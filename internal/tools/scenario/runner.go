package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"google.golang.org/grpc"

	platformgrpc "github.com/louisbranch/storydeck/internal/platform/grpc"
	"github.com/louisbranch/storydeck/internal/platform/timeouts"
	gamegrpc "github.com/louisbranch/storydeck/internal/services/game/api/grpc/game"
)

const defaultStepTimeout = 10 * time.Second

// Config controls scenario execution.
type Config struct {
	GRPCAddr string
	// Timeout bounds each step, not the whole scenario.
	Timeout    time.Duration
	Assertions AssertionMode
	Verbose    bool
	Logger     *log.Logger
}

// DefaultConfig targets a local game server with strict assertions.
func DefaultConfig() Config {
	return Config{
		GRPCAddr:   "localhost:8080",
		Timeout:    defaultStepTimeout,
		Assertions: AssertionStrict,
	}
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = log.New(os.Stderr, "", 0)
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultStepTimeout
	}
	return c
}

// GameClient is the part of the game API a scenario drives.
type GameClient interface {
	CreateSession(ctx context.Context, title, displayName string, opts ...grpc.CallOption) (map[string]any, error)
	JoinSession(ctx context.Context, code, displayName string, opts ...grpc.CallOption) (map[string]any, error)
	GetSession(ctx context.Context, sessionID string, opts ...grpc.CallOption) (map[string]any, error)
	ApplyAction(ctx context.Context, sessionID, action string, payload map[string]any, opts ...grpc.CallOption) (map[string]any, error)
	ListTurns(ctx context.Context, sessionID, filter string, pageSize int, opts ...grpc.CallOption) (map[string]any, error)
}

// Runner plays scenarios against the game gRPC API. A Runner keeps its
// assertion tally across runs, so use one per scenario.
type Runner struct {
	cfg        Config
	client     GameClient
	conn       io.Closer
	assertions *Assertions
}

// NewRunner dials the game server, waiting for it to report healthy.
func NewRunner(ctx context.Context, cfg Config) (*Runner, error) {
	if cfg.GRPCAddr == "" {
		return nil, errors.New("grpc address is required")
	}
	conn, err := platformgrpc.DialWithHealth(ctx, cfg.GRPCAddr, gamegrpc.ServiceName, timeouts.GRPCDial, nil)
	if err != nil {
		return nil, fmt.Errorf("dial game server: %w", err)
	}
	r := NewRunnerWithClient(cfg, gamegrpc.NewClient(conn))
	r.conn = conn
	return r, nil
}

// NewRunnerWithClient builds a Runner around an existing client.
func NewRunnerWithClient(cfg Config, client GameClient) *Runner {
	cfg = cfg.withDefaults()
	return &Runner{
		cfg:        cfg,
		client:     client,
		assertions: &Assertions{Mode: cfg.Assertions, Logger: cfg.Logger},
	}
}

// Close releases the connection opened by NewRunner.
func (r *Runner) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}

// RunFile loads the script at path before dialing, then plays it.
func RunFile(ctx context.Context, cfg Config, path string) error {
	scenario, err := LoadScenarioFromFile(path)
	if err != nil {
		return err
	}
	runner, err := NewRunner(ctx, cfg)
	if err != nil {
		return err
	}
	defer runner.Close()
	return runner.RunScenario(ctx, scenario)
}

// RunScenario plays the steps in order, each under its own timeout. The
// first error stops the run and names the step that raised it.
func (r *Runner) RunScenario(ctx context.Context, scenario *Scenario) error {
	if scenario == nil {
		return errors.New("scenario is required")
	}
	total := len(scenario.Steps)
	r.logf("scenario start: %s (%d steps)", scenario.Name, total)

	state := newScenarioState()
	for i, step := range scenario.Steps {
		started := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
		err := r.runStep(stepCtx, state, step)
		cancel()
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Kind, err)
		}
		r.logf("step %d/%d %s (%s)", i+1, total, step.Kind, time.Since(started).Round(time.Millisecond))
	}

	if unmet := r.assertions.Unmet(); unmet > 0 {
		r.cfg.Logger.Printf("scenario done: %s (%d unmet expectations)", scenario.Name, unmet)
		return nil
	}
	r.logf("scenario done: %s", scenario.Name)
	return nil
}

func (r *Runner) logf(format string, args ...any) {
	if r.cfg.Verbose {
		r.cfg.Logger.Printf(format, args...)
	}
}

func (r *Runner) failf(format string, args ...any) error {
	return r.assertions.Failf(format, args...)
}

func (r *Runner) assertf(format string, args ...any) error {
	return r.assertions.Assertf(format, args...)
}
