package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/louisbranch/storydeck/internal/platform/errors"
	"github.com/louisbranch/storydeck/internal/services/game/domain/actor"
	"github.com/louisbranch/storydeck/internal/services/game/domain/command"
	"github.com/louisbranch/storydeck/internal/services/game/domain/engine"
	"github.com/louisbranch/storydeck/internal/services/game/domain/prompt"
	"github.com/louisbranch/storydeck/internal/services/game/domain/session"
	"github.com/louisbranch/storydeck/internal/services/game/identity"
	"github.com/louisbranch/storydeck/internal/services/game/notify"
	"github.com/louisbranch/storydeck/internal/services/game/storage"
)

// DefaultMaxAttempts bounds reload-and-reapply on revision conflicts.
const DefaultMaxAttempts = 3

const tracerName = "storydeck/gateway"

// Options wires a Gateway.
type Options struct {
	Store     storage.Store
	Engine    *engine.Engine
	Identity  identity.Provider
	Publisher notify.Publisher
	// CodeRoller generates join codes.
	CodeRoller  session.Roller
	MaxAttempts int
}

// Gateway applies commands to persisted sessions.
type Gateway struct {
	store       storage.Store
	engine      *engine.Engine
	identity    identity.Provider
	publisher   notify.Publisher
	codeRoller  session.Roller
	maxAttempts int
	tracer      trace.Tracer
}

// New validates opts and builds a gateway.
func New(opts Options) (*Gateway, error) {
	if opts.Store == nil {
		return nil, errors.New("gateway store is required")
	}
	if opts.Engine == nil {
		return nil, errors.New("gateway engine is required")
	}
	if opts.Identity == nil {
		return nil, errors.New("gateway identity provider is required")
	}
	if opts.CodeRoller == nil {
		return nil, errors.New("gateway code roller is required")
	}
	if opts.Publisher == nil {
		opts.Publisher = notify.Nop
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	return &Gateway{
		store:       opts.Store,
		engine:      opts.Engine,
		identity:    opts.Identity,
		publisher:   opts.Publisher,
		codeRoller:  opts.CodeRoller,
		maxAttempts: opts.MaxAttempts,
		tracer:      otel.Tracer(tracerName),
	}, nil
}

// Result is the outcome of an accepted command.
type Result struct {
	// Snapshot is the session after the command.
	Snapshot engine.Snapshot
	// Drawn is the prompt a draw produced.
	Drawn *prompt.Ref
	// Noop reports that the command was accepted without a state change.
	Noop bool
	// Attempts is how many snapshot loads the command needed.
	Attempts int
	// Actor is the caller the command was applied as.
	Actor actor.Ref
}

// Apply resolves the caller and applies one action to sessionID.
func (g *Gateway) Apply(ctx context.Context, sessionID string, typ command.Type, payload any) (Result, error) {
	who, err := g.identity.CurrentActor(ctx, sessionID)
	if err != nil {
		return Result{}, err
	}
	return g.applyAs(ctx, sessionID, who, typ, payload)
}

func (g *Gateway) applyAs(ctx context.Context, sessionID string, who actor.Ref, typ command.Type, payload any) (result Result, err error) {
	ctx, span := g.tracer.Start(ctx, "gateway.apply", trace.WithAttributes(
		attribute.String("storydeck.session_id", sessionID),
		attribute.String("storydeck.action", string(typ)),
	))
	result.Actor = who
	defer func() {
		span.SetAttributes(attribute.Int("storydeck.attempts", result.Attempts))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(apperrors.CodeOf(err)))
		}
		span.End()
	}()

	cmd, err := command.New(typ, sessionID, who, payload)
	if err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeValidation, "invalid action payload", err)
	}

	for attempt := 1; ; attempt++ {
		result.Attempts = attempt
		snap, err := g.load(ctx, sessionID)
		if err != nil {
			return result, err
		}

		decision := g.engine.Apply(snap, cmd)
		if decision.Rejected() {
			return result, decision.Err()
		}
		delta := decision.Delta
		if delta.Noop {
			result.Snapshot = snap
			result.Noop = true
			return result, nil
		}

		if err := ctx.Err(); err != nil {
			return result, err
		}
		revision, err := g.store.CommitDelta(ctx, delta)
		if errors.Is(err, storage.ErrRevisionConflict) {
			if attempt < g.maxAttempts {
				log.Printf("gateway: revision conflict session=%s action=%s attempt=%d, retrying", sessionID, typ, attempt)
				continue
			}
			log.Printf("gateway: revision conflict session=%s action=%s attempts exhausted", sessionID, typ)
			return result, apperrors.Wrap(apperrors.CodeConcurrencyConflict, "the game changed while your action was being applied, please retry", err)
		}
		if err != nil {
			return result, fmt.Errorf("commit session %s: %w", sessionID, err)
		}

		next := snap.Apply(delta)
		next.Session.Revision = revision
		result.Snapshot = next
		result.Drawn = delta.Drawn
		g.publish(ctx, sessionID, revision)
		return result, nil
	}
}

func (g *Gateway) load(ctx context.Context, sessionID string) (engine.Snapshot, error) {
	snap, err := g.store.LoadSnapshot(ctx, sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return engine.Snapshot{}, apperrors.Wrap(apperrors.CodeNotFound, "game not found", err)
	}
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return snap, nil
}

func (g *Gateway) publish(ctx context.Context, sessionID string, revision int64) {
	// Publishing outlives the caller's context.
	ctx = context.WithoutCancel(ctx)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := g.publisher.Publish(ctx, sessionID, revision); err != nil {
		log.Printf("gateway: publish session=%s revision=%d: %v", sessionID, revision, err)
	}
}
