// Package participant models players seated in a session.
package participant

import (
	"errors"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/louisbranch/storydeck/internal/services/game/domain/actor"
)

// MaxDisplayNameLength bounds display names in characters.
const MaxDisplayNameLength = 50

var (
	ErrDisplayNameRequired = errors.New("display name is required")
	ErrDisplayNameTooLong  = errors.New("display name must be 50 characters or less")
)

// Participant is one player in a session.
type Participant struct {
	ID          string
	SessionID   string
	DisplayName string
	Identity    actor.Ref
	Rank        int
	Connected   bool
	CreatedAt   time.Time
}

var folder = cases.Fold()

// FoldName returns the case-folded form used for uniqueness checks.
func FoldName(name string) string {
	return folder.String(strings.TrimSpace(name))
}

// NormalizeDisplayName trims and validates a display name.
func NormalizeDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrDisplayNameRequired
	}
	if utf8.RuneCountInString(name) > MaxDisplayNameLength {
		return "", ErrDisplayNameTooLong
	}
	return name, nil
}

// SortByRank orders participants by rank in place.
func SortByRank(participants []Participant) {
	slices.SortStableFunc(participants, func(a, b Participant) int {
		return a.Rank - b.Rank
	})
}

// NextRank returns the rank for a newly joined participant.
func NextRank(participants []Participant) int {
	next := 0
	for _, p := range participants {
		if p.Rank >= next {
			next = p.Rank + 1
		}
	}
	return next
}

// FindByID returns the participant with id.
func FindByID(participants []Participant, id string) (Participant, bool) {
	for _, p := range participants {
		if p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}

// FindByIdentity returns the participant bound to ref.
func FindByIdentity(participants []Participant, ref actor.Ref) (Participant, bool) {
	if ref.IsZero() {
		return Participant{}, false
	}
	for _, p := range participants {
		if p.Identity == ref {
			return p, true
		}
	}
	return Participant{}, false
}

// NameTaken reports whether name collides with a seated participant under
// Unicode case folding.
func NameTaken(participants []Participant, name string) bool {
	folded := FoldName(name)
	for _, p := range participants {
		if FoldName(p.DisplayName) == folded {
			return true
		}
	}
	return false
}
