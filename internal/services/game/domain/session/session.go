package session

import (
	"slices"
	"time"

	"github.com/louisbranch/storydeck/internal/services/game/domain/actor"
)

// Phase is the coarse lifecycle stage of a session.
type Phase int

const (
	PhaseWaiting Phase = iota
	PhaseCycleLengthSelection
	PhaseEstablishing
	PhaseDrawing
	PhaseEnded
)

// MaxCycles is the number of cycles played before the session ends.
const MaxCycles = 4

// Session is one persisted game session.
type Session struct {
	ID        string
	Code      string
	Title     string
	CreatorID string
	Creator   actor.Ref

	Phase       Phase
	CycleLength string
	Cycle       int

	TenFlag       bool
	Focused       bool
	FocusHolderID string
	TurnDrawn     bool
	Topics        []string

	TurnHolderID     string
	LastTurnHolderID string

	Location          string
	LocationConfirmed []string
	Ready             []string

	Revision  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy of s.
func (s Session) Clone() Session {
	out := s
	out.Topics = slices.Clone(s.Topics)
	out.LocationConfirmed = slices.Clone(s.LocationConfirmed)
	out.Ready = slices.Clone(s.Ready)
	return out
}

// Ended reports whether the session is read-only.
func (s Session) Ended() bool {
	return s.Phase >= PhaseEnded
}

// IsConfirmed reports whether participantID confirmed the location.
func (s Session) IsConfirmed(participantID string) bool {
	return slices.Contains(s.LocationConfirmed, participantID)
}

// IsReady reports whether participantID signaled readiness.
func (s Session) IsReady(participantID string) bool {
	return slices.Contains(s.Ready, participantID)
}

// AddID returns set with id inserted, keeping the set sorted and unique.
func AddID(set []string, id string) []string {
	i, found := slices.BinarySearch(set, id)
	if found {
		return set
	}
	return slices.Insert(slices.Clone(set), i, id)
}

// RemoveID returns set without id.
func RemoveID(set []string, id string) []string {
	i, found := slices.BinarySearch(set, id)
	if !found {
		return set
	}
	return slices.Delete(slices.Clone(set), i, i+1)
}

// NormalizeIDSet sorts and deduplicates ids loaded from storage.
func NormalizeIDSet(ids []string) []string {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
