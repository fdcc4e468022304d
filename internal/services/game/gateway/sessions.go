package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"

	apperrors "github.com/louisbranch/storydeck/internal/platform/errors"
	"github.com/louisbranch/storydeck/internal/platform/grpc/pagination"
	"github.com/louisbranch/storydeck/internal/services/game/core/filter"
	"github.com/louisbranch/storydeck/internal/services/game/domain/command"
	"github.com/louisbranch/storydeck/internal/services/game/domain/engine"
	"github.com/louisbranch/storydeck/internal/services/game/domain/participant"
	"github.com/louisbranch/storydeck/internal/services/game/domain/session"
	"github.com/louisbranch/storydeck/internal/services/game/domain/turn"
	"github.com/louisbranch/storydeck/internal/services/game/storage"
)

// MaxCodeAttempts bounds random join code generation before falling back
// to a clock-derived code.
const MaxCodeAttempts = 10

var turnPage = pagination.Limits{Default: 50, Max: 100}

// CreateInput describes a new session.
type CreateInput struct {
	Title       string
	DisplayName string
}

// CreateSession creates a session owned by the calling account.
func (g *Gateway) CreateSession(ctx context.Context, in CreateInput) (engine.Snapshot, error) {
	who, err := g.identity.CurrentActor(ctx, "")
	if err != nil {
		return engine.Snapshot{}, err
	}

	for attempt := 0; attempt <= MaxCodeAttempts; attempt++ {
		code := session.NewCode(g.codeRoller)
		if attempt == MaxCodeAttempts {
			code = session.FallbackCode(g.engine.Now())
		}
		snap, err := g.engine.Create(engine.CreateInput{
			Code:               code,
			Title:              in.Title,
			Creator:            who,
			CreatorDisplayName: in.DisplayName,
		})
		if err != nil {
			return engine.Snapshot{}, err
		}
		err = g.store.CreateSession(ctx, snap)
		if errors.Is(err, storage.ErrCodeTaken) {
			log.Printf("gateway: join code collision code=%s attempt=%d", code, attempt+1)
			continue
		}
		if err != nil {
			return engine.Snapshot{}, fmt.Errorf("create session: %w", err)
		}
		snap.Session.Revision = 1
		g.publish(ctx, snap.Session.ID, snap.Session.Revision)
		return snap, nil
	}
	return engine.Snapshot{}, apperrors.New(apperrors.CodeCodeTaken, "could not allocate a game code, please retry")
}

// ResolveCode returns the session ID for a join code.
func (g *Gateway) ResolveCode(ctx context.Context, code string) (string, error) {
	normalized, err := session.NormalizeCode(code)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeValidation, err.Error(), err)
	}
	sessionID, err := g.store.SessionIDByCode(ctx, normalized)
	if errors.Is(err, storage.ErrNotFound) {
		return "", apperrors.Wrap(apperrors.CodeNotFound, "game not found", err)
	}
	if err != nil {
		return "", fmt.Errorf("resolve code: %w", err)
	}
	return sessionID, nil
}

// JoinResult is the outcome of joining a session.
type JoinResult struct {
	Result
	ParticipantID string
	// PlayerToken is set when an ephemeral identity was established for
	// the caller and must be presented on later requests.
	PlayerToken string
}

// Join seats the caller in the session with the given join code. A caller
// without an identity for the session receives an ephemeral one.
func (g *Gateway) Join(ctx context.Context, code string, displayName string) (JoinResult, error) {
	sessionID, err := g.ResolveCode(ctx, code)
	if err != nil {
		return JoinResult{}, err
	}
	who, err := g.identity.CurrentActor(ctx, sessionID)
	if err != nil {
		return JoinResult{}, err
	}
	var token string
	if who.IsZero() {
		who, token, err = g.identity.Establish(ctx, sessionID)
		if err != nil {
			return JoinResult{}, fmt.Errorf("establish identity: %w", err)
		}
	}

	result, err := g.applyAs(ctx, sessionID, who, command.TypeJoin, command.JoinPayload{DisplayName: displayName})
	if err != nil {
		return JoinResult{}, err
	}
	seat, ok := participant.FindByIdentity(result.Snapshot.Participants, who)
	if !ok {
		return JoinResult{}, fmt.Errorf("joined participant missing from session %s", sessionID)
	}
	return JoinResult{Result: result, ParticipantID: seat.ID, PlayerToken: token}, nil
}

// SessionView is the read model served to clients.
type SessionView struct {
	Snapshot   engine.Snapshot
	ReadyCount int
	FaceDraws  int
	// ViewerID is the caller's participant ID, empty for spectators.
	ViewerID string
}

// GetSession returns the current read model of sessionID.
func (g *Gateway) GetSession(ctx context.Context, sessionID string) (SessionView, error) {
	snap, err := g.load(ctx, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	view := SessionView{
		Snapshot:   snap,
		ReadyCount: snap.ReadyCount(),
		FaceDraws:  snap.FaceDraws(),
	}
	who, err := g.identity.CurrentActor(ctx, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	if seat, ok := participant.FindByIdentity(snap.Participants, who); ok {
		view.ViewerID = seat.ID
	}
	return view, nil
}

// ListTurns returns the turn ledger of sessionID narrowed by an AIP-160
// filter.
func (g *Gateway) ListTurns(ctx context.Context, sessionID string, filterStr string, pageSize int) ([]turn.Record, error) {
	pageSize = turnPage.Size(pageSize)
	cond, err := filter.ParseTurnFilter(filterStr)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeValidation, "invalid filter", err)
	}
	records, err := g.store.ListTurns(ctx, sessionID, cond, pageSize)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperrors.Wrap(apperrors.CodeNotFound, "game not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	return records, nil
}
