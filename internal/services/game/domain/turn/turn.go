// Package turn models the append-only ledger of drawn prompts.
package turn

import (
	"time"

	"github.com/louisbranch/storydeck/internal/services/game/domain/prompt"
	"github.com/louisbranch/storydeck/internal/services/game/domain/session"
)

// Record is one drawn prompt. Records are never updated or deleted.
type Record struct {
	ID            string
	SessionID     string
	ParticipantID string
	Phase         session.Phase
	Cycle         int
	Prompt        prompt.Ref
	CreatedAt     time.Time
}

// Consumption derives pool consumption from a session's ledger.
func Consumption(records []Record) prompt.Consumption {
	refs := make([]prompt.Ref, 0, len(records))
	for _, r := range records {
		refs = append(refs, r.Prompt)
	}
	return prompt.Consume(refs...)
}

// FaceDraws counts small-pool records.
func FaceDraws(records []Record) int {
	n := 0
	for _, r := range records {
		if r.Prompt.Kind == prompt.KindFace {
			n++
		}
	}
	return n
}
