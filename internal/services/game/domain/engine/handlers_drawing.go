package engine

import (
	"errors"

	apperrors "github.com/louisbranch/storydeck/internal/platform/errors"
	"github.com/louisbranch/storydeck/internal/services/game/domain/command"
	"github.com/louisbranch/storydeck/internal/services/game/domain/participant"
	"github.com/louisbranch/storydeck/internal/services/game/domain/prompt"
	"github.com/louisbranch/storydeck/internal/services/game/domain/rotation"
	"github.com/louisbranch/storydeck/internal/services/game/domain/session"
	"github.com/louisbranch/storydeck/internal/services/game/domain/turn"
)

// MinFaceDrawsToAdvance is the number of establishing prompts that must be
// drawn before the table can move on to drawing.
const MinFaceDrawsToAdvance = 3

func firstHolder(snap Snapshot) (string, bool) {
	return rotation.First(snap.Participants)
}

func (e *Engine) drawFace(snap Snapshot, self participant.Participant, _ command.Command) Decision {
	ref, err := e.Allocator.DrawFace(turn.Consumption(snap.Turns))
	if err != nil {
		return poolRejection(err)
	}
	record, err := e.newTurn(snap, self, ref)
	if err != nil {
		return reject(apperrors.CodeUnknown, err.Error())
	}
	s := snap.Session
	rotate(snap, &s)
	return accept(Delta{Session: s, AppendTurn: &record, Drawn: &ref})
}

func (e *Engine) toggleReady(snap Snapshot, self participant.Participant, _ command.Command) Decision {
	s := snap.Session
	if s.IsReady(self.ID) {
		s.Ready = session.RemoveID(s.Ready, self.ID)
	} else {
		s.Ready = session.AddID(s.Ready, self.ID)
	}
	return accept(Delta{Session: s})
}

// advanceToDrawing moves the table from establishing to drawing once enough
// prompts exist and every connected participant is ready. Reaching the
// threshold never advances on its own.
func (e *Engine) advanceToDrawing(snap Snapshot, _ participant.Participant, _ command.Command) Decision {
	if draws := snap.FaceDraws(); draws < MinFaceDrawsToAdvance {
		return reject(apperrors.CodePhaseViolation, "draw at least three establishing prompts first")
	}
	connected := 0
	for _, p := range snap.Participants {
		if !p.Connected {
			continue
		}
		connected++
		if !snap.Session.IsReady(p.ID) {
			return reject(apperrors.CodePhaseViolation, "every connected player must be ready")
		}
	}
	if connected == 0 {
		return reject(apperrors.CodePhaseViolation, "no connected players are ready")
	}
	s := snap.Session
	s.Phase = session.PhaseDrawing
	s.Ready = nil
	s.Cycle = 0
	s.TenFlag = false
	s.Focused = false
	s.FocusHolderID = ""
	s.TurnDrawn = false
	s.Topics = nil
	if _, ok := participant.FindByID(snap.Participants, s.TurnHolderID); !ok {
		s.TurnHolderID, _ = firstHolder(snap)
	}
	return accept(Delta{Session: s})
}

// drawNumbered draws from the large pool. The terminal value opens the
// cycle-end sub-state instead of recording a turn or rotating.
func (e *Engine) drawNumbered(snap Snapshot, self participant.Participant, _ command.Command) Decision {
	ref, err := e.Allocator.DrawNumbered(turn.Consumption(snap.Turns))
	if err != nil {
		return poolRejection(err)
	}
	s := snap.Session
	if ref.IsTerminal() {
		s.TenFlag = true
		s.Cycle++
		return accept(Delta{Session: s, Drawn: &ref})
	}
	record, err := e.newTurn(snap, self, ref)
	if err != nil {
		return reject(apperrors.CodeUnknown, err.Error())
	}
	s.TurnDrawn = true
	return accept(Delta{Session: s, AppendTurn: &record, Drawn: &ref})
}

func (e *Engine) continueTurn(snap Snapshot, _ participant.Participant, _ command.Command) Decision {
	s := snap.Session
	rotate(snap, &s)
	return accept(Delta{Session: s})
}

func (e *Engine) enterFocus(snap Snapshot, self participant.Participant, _ command.Command) Decision {
	s := snap.Session
	s.Focused = true
	s.FocusHolderID = self.ID
	return accept(Delta{Session: s})
}

func (e *Engine) exitFocus(snap Snapshot, _ participant.Participant, _ command.Command) Decision {
	s := snap.Session
	s.Focused = false
	s.FocusHolderID = ""
	rotate(snap, &s)
	return accept(Delta{Session: s})
}

func (e *Engine) selectTopic(snap Snapshot, _ participant.Participant, cmd command.Command) Decision {
	var payload command.SelectTopicPayload
	if err := cmd.DecodePayload(&payload); err != nil {
		return reject(apperrors.CodeValidation, err.Error())
	}
	topic, ok := session.NormalizeTopic(payload.Topic)
	if !ok {
		return reject(apperrors.CodeValidation, "unknown topic")
	}
	s := snap.Session
	if len(s.Topics) > 0 {
		return reject(apperrors.CodePhaseViolation, "a topic was already selected for this cycle")
	}
	s.Topics = []string{topic}
	return accept(Delta{Session: s})
}

// continueCycle resolves a cycle end: the table starts the next cycle fresh
// or, after the last one, the game ends.
func (e *Engine) continueCycle(snap Snapshot, _ participant.Participant, _ command.Command) Decision {
	s := snap.Session
	if len(s.Topics) != 1 {
		return reject(apperrors.CodePhaseViolation, "select a topic before continuing")
	}
	s.TenFlag = false
	s.Topics = nil
	s.Focused = false
	s.FocusHolderID = ""
	if s.Cycle >= session.MaxCycles {
		s.Phase = session.PhaseEnded
		s.LastTurnHolderID = s.TurnHolderID
		s.TurnDrawn = false
		return accept(Delta{Session: s})
	}
	rotate(snap, &s)
	return accept(Delta{Session: s})
}

func (e *Engine) newTurn(snap Snapshot, self participant.Participant, ref prompt.Ref) (turn.Record, error) {
	id, err := e.newID()
	if err != nil {
		return turn.Record{}, err
	}
	return turn.Record{
		ID:            id,
		SessionID:     snap.Session.ID,
		ParticipantID: self.ID,
		Phase:         snap.Session.Phase,
		Cycle:         snap.Session.Cycle,
		Prompt:        ref,
		CreatedAt:     e.Now().UTC(),
	}, nil
}

func poolRejection(err error) Decision {
	if errors.Is(err, prompt.ErrExhausted) {
		return reject(apperrors.CodePoolExhausted, "no prompts left to draw")
	}
	return reject(apperrors.CodeUnknown, err.Error())
}
