package engine

import (
	"slices"

	"github.com/louisbranch/storydeck/internal/services/game/domain/participant"
	"github.com/louisbranch/storydeck/internal/services/game/domain/prompt"
	"github.com/louisbranch/storydeck/internal/services/game/domain/session"
	"github.com/louisbranch/storydeck/internal/services/game/domain/turn"
)

// Snapshot is the full state of one session at a revision.
type Snapshot struct {
	Session      session.Session
	Participants []participant.Participant
	Turns        []turn.Record
}

// Clone returns a deep copy of s with participants sorted by rank.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Session:      s.Session.Clone(),
		Participants: slices.Clone(s.Participants),
		Turns:        slices.Clone(s.Turns),
	}
	participant.SortByRank(out.Participants)
	return out
}

// Delta describes the changes an accepted command makes.
type Delta struct {
	// Session is the next session record. Its Revision is the revision the
	// delta was computed against.
	Session session.Session
	// AddParticipant is set when a participant joined.
	AddParticipant *participant.Participant
	// RemoveParticipantID is set when a participant left.
	RemoveParticipantID string
	// UpdateParticipants lists participants whose mutable fields changed.
	UpdateParticipants []participant.Participant
	// AppendTurn is set when a prompt was drawn.
	AppendTurn *turn.Record
	// Drawn is the prompt produced by a draw, including the terminal value
	// which appends no turn record.
	Drawn *prompt.Ref
	// Noop marks an accepted command that changes nothing, such as a rejoin.
	Noop bool
}

// Apply returns the snapshot after d.
func (s Snapshot) Apply(d Delta) Snapshot {
	if d.Noop {
		return s.Clone()
	}
	out := s.Clone()
	out.Session = d.Session.Clone()
	if d.RemoveParticipantID != "" {
		out.Participants = slices.DeleteFunc(out.Participants, func(p participant.Participant) bool {
			return p.ID == d.RemoveParticipantID
		})
	}
	for _, updated := range d.UpdateParticipants {
		for i := range out.Participants {
			if out.Participants[i].ID == updated.ID {
				out.Participants[i] = updated
			}
		}
	}
	if d.AddParticipant != nil {
		out.Participants = append(out.Participants, *d.AddParticipant)
		participant.SortByRank(out.Participants)
	}
	if d.AppendTurn != nil {
		out.Turns = append(out.Turns, *d.AppendTurn)
	}
	return out
}

// ReadyCount returns how many participants signaled readiness.
func (s Snapshot) ReadyCount() int {
	n := 0
	for _, p := range s.Participants {
		if s.Session.IsReady(p.ID) {
			n++
		}
	}
	return n
}

// FaceDraws returns how many small-pool prompts were drawn.
func (s Snapshot) FaceDraws() int {
	return turn.FaceDraws(s.Turns)
}
