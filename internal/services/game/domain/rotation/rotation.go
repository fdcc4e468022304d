// Package rotation picks the next turn holder.
package rotation

import (
	"slices"

	"github.com/louisbranch/storydeck/internal/services/game/domain/participant"
)

// Next returns the first connected participant after currentID in circular
// rank order. The current holder is never chosen while another participant
// exists; when no one else is connected, Next degrades to the raw circular
// successor. An unknown currentID scans from the lowest rank. ok is false
// only when participants is empty.
func Next(participants []participant.Participant, currentID string) (string, bool) {
	ordered := slices.Clone(participants)
	participant.SortByRank(ordered)
	n := len(ordered)
	if n == 0 {
		return "", false
	}

	start := slices.IndexFunc(ordered, func(p participant.Participant) bool { return p.ID == currentID })
	if start == -1 {
		for _, p := range ordered {
			if p.Connected {
				return p.ID, true
			}
		}
		return ordered[0].ID, true
	}

	for step := 1; step < n; step++ {
		candidate := ordered[(start+step)%n]
		if candidate.Connected {
			return candidate.ID, true
		}
	}
	return ordered[(start+1)%n].ID, true
}

// First returns the first connected participant by rank, or the lowest
// ranked participant when nobody is connected.
func First(participants []participant.Participant) (string, bool) {
	return Next(participants, "")
}
