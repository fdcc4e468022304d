package engine

import (
	"errors"
	"fmt"
	"time"

	apperrors "github.com/louisbranch/storydeck/internal/platform/errors"
	"github.com/louisbranch/storydeck/internal/services/game/domain/actor"
	"github.com/louisbranch/storydeck/internal/services/game/domain/command"
	"github.com/louisbranch/storydeck/internal/services/game/domain/participant"
	"github.com/louisbranch/storydeck/internal/services/game/domain/phase"
	"github.com/louisbranch/storydeck/internal/services/game/domain/prompt"
	"github.com/louisbranch/storydeck/internal/services/game/domain/rotation"
	"github.com/louisbranch/storydeck/internal/services/game/domain/session"
)

// Engine applies commands to session snapshots.
type Engine struct {
	Allocator prompt.Allocator
	// Roller picks the cycle length label.
	Roller prompt.Roller
	Now    func() time.Time
	NewID  func() (string, error)
}

// New builds an engine drawing randomness from roller.
func New(roller prompt.Roller, now func() time.Time, newID func() (string, error)) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{
		Allocator: prompt.Allocator{Roller: roller},
		Roller:    roller,
		Now:       now,
		NewID:     newID,
	}
}

type handlerFunc func(e *Engine, snap Snapshot, self participant.Participant, cmd command.Command) Decision

var handlers = map[command.Type]handlerFunc{
	command.TypeJoin:               (*Engine).join,
	command.TypeLeave:              (*Engine).leave,
	command.TypeSetLocation:        (*Engine).setLocation,
	command.TypeConfirmLocation:    (*Engine).confirmLocation,
	command.TypeUnconfirmLocation:  (*Engine).unconfirmLocation,
	command.TypeStart:              (*Engine).start,
	command.TypeRollCycleLength:    (*Engine).rollCycleLength,
	command.TypeConfirmCycleLength: (*Engine).confirmCycleLength,
	command.TypeDrawFace:           (*Engine).drawFace,
	command.TypeToggleReady:        (*Engine).toggleReady,
	command.TypeAdvanceToDrawing:   (*Engine).advanceToDrawing,
	command.TypeDrawNumbered:       (*Engine).drawNumbered,
	command.TypeContinueTurn:       (*Engine).continueTurn,
	command.TypeEnterFocus:         (*Engine).enterFocus,
	command.TypeExitFocus:          (*Engine).exitFocus,
	command.TypeSelectTopic:        (*Engine).selectTopic,
	command.TypeContinueCycle:      (*Engine).continueCycle,
	command.TypeSetConnected:       (*Engine).setConnected,
}

// Apply validates cmd against snap and returns the resulting decision.
func (e *Engine) Apply(snap Snapshot, cmd command.Command) Decision {
	state := snap.Clone()
	s := state.Session
	if s.ID == "" {
		return reject(apperrors.CodeNotFound, "game not found")
	}
	if cmd.SessionID != "" && cmd.SessionID != s.ID {
		return reject(apperrors.CodeValidation, "command targets a different game")
	}
	if cmd.Actor.IsZero() {
		return reject(apperrors.CodeUnauthenticated, "actor is required")
	}
	rule, ok := phase.Lookup(cmd.Type)
	if !ok {
		return reject(apperrors.CodeValidation, fmt.Sprintf("unknown action %q", cmd.Type))
	}
	handle, ok := handlers[cmd.Type]
	if !ok {
		return reject(apperrors.CodeValidation, fmt.Sprintf("action %q has no handler", cmd.Type))
	}

	self, seated := participant.FindByIdentity(state.Participants, cmd.Actor)
	if cmd.Type == command.TypeJoin && seated && !s.Ended() {
		return accept(Delta{Session: s, Noop: true})
	}

	if !rule.AllowsPhase(s.Phase) {
		if s.Ended() {
			return reject(apperrors.CodePhaseViolation, "game has already ended")
		}
		return reject(apperrors.CodePhaseViolation, fmt.Sprintf("%s is not allowed during %s", cmd.Type, s.Phase))
	}
	if ok, reason := rule.AllowsSubState(s); !ok {
		return reject(apperrors.CodePhaseViolation, reason)
	}
	if decision, ok := checkRole(rule.Role, s, self, seated); !ok {
		return decision
	}

	decision := handle(e, state, self, cmd)
	if !decision.Rejected() && !decision.Delta.Noop {
		decision.Delta.Session.UpdatedAt = e.Now().UTC()
	}
	return decision
}

func checkRole(role phase.Role, s session.Session, self participant.Participant, seated bool) (Decision, bool) {
	if role == phase.RoleVisitor {
		return Decision{}, true
	}
	if !seated {
		return reject(apperrors.CodePermissionViolation, "you are not a participant in this game"), false
	}
	switch role {
	case phase.RoleCreator:
		if self.ID != s.CreatorID {
			return reject(apperrors.CodePermissionViolation, "only the game creator can do that"), false
		}
	case phase.RoleTurnHolder:
		if self.ID != s.TurnHolderID {
			return reject(apperrors.CodeTurnViolation, "it is not your turn"), false
		}
	case phase.RoleFocusHolder:
		if self.ID != s.FocusHolderID {
			return reject(apperrors.CodeTurnViolation, "only the participant who entered focus can exit it"), false
		}
	}
	return Decision{}, true
}

// CreateInput describes a new session.
type CreateInput struct {
	Code               string
	Title              string
	Creator            actor.Ref
	CreatorDisplayName string
}

// Create returns the initial snapshot for a new session: phase 0 with the
// creator seated at rank 0.
func (e *Engine) Create(in CreateInput) (Snapshot, error) {
	if !in.Creator.IsDurable() {
		return Snapshot{}, apperrors.New(apperrors.CodeUnauthenticated, "creating a game requires a signed-in account")
	}
	code, err := session.NormalizeCode(in.Code)
	if err != nil {
		return Snapshot{}, apperrors.Wrap(apperrors.CodeValidation, err.Error(), err)
	}
	title, err := session.NormalizeTitle(in.Title)
	if err != nil {
		return Snapshot{}, apperrors.Wrap(apperrors.CodeValidation, err.Error(), err)
	}
	name, err := participant.NormalizeDisplayName(in.CreatorDisplayName)
	if err != nil {
		return Snapshot{}, apperrors.Wrap(apperrors.CodeValidation, err.Error(), err)
	}
	sessionID, err := e.newID()
	if err != nil {
		return Snapshot{}, err
	}
	creatorID, err := e.newID()
	if err != nil {
		return Snapshot{}, err
	}
	now := e.Now().UTC()
	return Snapshot{
		Session: session.Session{
			ID:        sessionID,
			Code:      code,
			Title:     title,
			CreatorID: creatorID,
			Creator:   in.Creator,
			Phase:     session.PhaseWaiting,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Participants: []participant.Participant{{
			ID:          creatorID,
			SessionID:   sessionID,
			DisplayName: name,
			Identity:    in.Creator,
			Rank:        0,
			Connected:   true,
			CreatedAt:   now,
		}},
	}, nil
}

func (e *Engine) newID() (string, error) {
	if e.NewID == nil {
		return "", errors.New("engine id generator is not configured")
	}
	id, err := e.NewID()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return id, nil
}

// rotate passes the turn to the next connected participant.
func rotate(snap Snapshot, s *session.Session) {
	next, ok := rotation.Next(snap.Participants, s.TurnHolderID)
	if !ok {
		return
	}
	s.LastTurnHolderID = s.TurnHolderID
	s.TurnHolderID = next
	s.TurnDrawn = false
}
