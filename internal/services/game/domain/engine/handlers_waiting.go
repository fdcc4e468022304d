package engine

import (
	apperrors "github.com/louisbranch/storydeck/internal/platform/errors"
	"github.com/louisbranch/storydeck/internal/services/game/domain/command"
	"github.com/louisbranch/storydeck/internal/services/game/domain/participant"
	"github.com/louisbranch/storydeck/internal/services/game/domain/session"
)

// minPlayersToStart is the smallest table that can start a game.
const minPlayersToStart = 2

func (e *Engine) join(snap Snapshot, _ participant.Participant, cmd command.Command) Decision {
	var payload command.JoinPayload
	if err := cmd.DecodePayload(&payload); err != nil {
		return reject(apperrors.CodeValidation, err.Error())
	}
	name, err := participant.NormalizeDisplayName(payload.DisplayName)
	if err != nil {
		return reject(apperrors.CodeValidation, err.Error())
	}
	if participant.NameTaken(snap.Participants, name) {
		return reject(apperrors.CodeValidation, "this display name is already taken")
	}
	id, err := e.newID()
	if err != nil {
		return reject(apperrors.CodeUnknown, err.Error())
	}
	joined := participant.Participant{
		ID:          id,
		SessionID:   snap.Session.ID,
		DisplayName: name,
		Identity:    cmd.Actor,
		Rank:        participant.NextRank(snap.Participants),
		Connected:   true,
		CreatedAt:   e.Now().UTC(),
	}
	return accept(Delta{Session: snap.Session, AddParticipant: &joined})
}

func (e *Engine) leave(snap Snapshot, _ participant.Participant, cmd command.Command) Decision {
	var payload command.LeavePayload
	if err := cmd.DecodePayload(&payload); err != nil {
		return reject(apperrors.CodeValidation, err.Error())
	}
	target, ok := participant.FindByID(snap.Participants, payload.ParticipantID)
	if !ok {
		return reject(apperrors.CodeNotFound, "participant not found")
	}
	if target.ID == snap.Session.CreatorID {
		return reject(apperrors.CodePermissionViolation, "the game creator cannot be removed")
	}
	s := snap.Session
	s.LocationConfirmed = session.RemoveID(s.LocationConfirmed, target.ID)
	s.Ready = session.RemoveID(s.Ready, target.ID)
	return accept(Delta{Session: s, RemoveParticipantID: target.ID})
}

func (e *Engine) setLocation(snap Snapshot, _ participant.Participant, cmd command.Command) Decision {
	var payload command.SetLocationPayload
	if err := cmd.DecodePayload(&payload); err != nil {
		return reject(apperrors.CodeValidation, err.Error())
	}
	location, err := session.NormalizeLocation(payload.Location)
	if err != nil {
		return reject(apperrors.CodeValidation, err.Error())
	}
	s := snap.Session
	if location != s.Location {
		s.LocationConfirmed = nil
	}
	s.Location = location
	return accept(Delta{Session: s})
}

func (e *Engine) confirmLocation(snap Snapshot, self participant.Participant, _ command.Command) Decision {
	s := snap.Session
	if s.Location == "" {
		return reject(apperrors.CodeValidation, "there is no location to confirm yet")
	}
	s.LocationConfirmed = session.AddID(s.LocationConfirmed, self.ID)
	return accept(Delta{Session: s})
}

func (e *Engine) unconfirmLocation(snap Snapshot, self participant.Participant, _ command.Command) Decision {
	s := snap.Session
	s.LocationConfirmed = session.RemoveID(s.LocationConfirmed, self.ID)
	return accept(Delta{Session: s})
}

func (e *Engine) start(snap Snapshot, _ participant.Participant, _ command.Command) Decision {
	s := snap.Session
	if s.Location == "" {
		return reject(apperrors.CodePhaseViolation, "set a location before starting")
	}
	if len(snap.Participants) < minPlayersToStart {
		return reject(apperrors.CodePhaseViolation, "at least two players are needed to start")
	}
	s.Phase = session.PhaseCycleLengthSelection
	return accept(Delta{Session: s})
}

func (e *Engine) rollCycleLength(snap Snapshot, _ participant.Participant, _ command.Command) Decision {
	s := snap.Session
	s.CycleLength = session.CycleLengths[e.Roller.Intn(len(session.CycleLengths))]
	return accept(Delta{Session: s})
}

func (e *Engine) confirmCycleLength(snap Snapshot, _ participant.Participant, _ command.Command) Decision {
	s := snap.Session
	if s.CycleLength == "" {
		return reject(apperrors.CodePhaseViolation, "roll a cycle length before confirming")
	}
	holder, ok := firstHolder(snap)
	if !ok {
		return reject(apperrors.CodePhaseViolation, "no participants to take the first turn")
	}
	s.Phase = session.PhaseEstablishing
	s.TurnHolderID = holder
	s.LastTurnHolderID = ""
	return accept(Delta{Session: s})
}

func (e *Engine) setConnected(snap Snapshot, self participant.Participant, cmd command.Command) Decision {
	var payload command.SetConnectedPayload
	if err := cmd.DecodePayload(&payload); err != nil {
		return reject(apperrors.CodeValidation, err.Error())
	}
	if self.Connected == payload.Connected {
		return accept(Delta{Session: snap.Session, Noop: true})
	}
	self.Connected = payload.Connected
	return accept(Delta{Session: snap.Session, UpdateParticipants: []participant.Participant{self}})
}
