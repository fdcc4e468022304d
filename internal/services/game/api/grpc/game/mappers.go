package game

import (
	"time"

	"github.com/louisbranch/storydeck/internal/services/game/domain/actor"
	"github.com/louisbranch/storydeck/internal/services/game/domain/engine"
	"github.com/louisbranch/storydeck/internal/services/game/domain/participant"
	"github.com/louisbranch/storydeck/internal/services/game/domain/prompt"
	"github.com/louisbranch/storydeck/internal/services/game/domain/turn"
	"github.com/louisbranch/storydeck/internal/services/game/gateway"
)

func sessionViewToMap(view gateway.SessionView) map[string]any {
	s := view.Snapshot.Session
	participants := make([]any, 0, len(view.Snapshot.Participants))
	for _, p := range view.Snapshot.Participants {
		participants = append(participants, participantToMap(p, s.CreatorID))
	}
	return map[string]any{
		"id":                  s.ID,
		"code":                s.Code,
		"title":               s.Title,
		"creator_id":          s.CreatorID,
		"phase":               s.Phase.String(),
		"cycle_length":        s.CycleLength,
		"cycle":               s.Cycle,
		"ten_flag":            s.TenFlag,
		"focused":             s.Focused,
		"focus_holder_id":     s.FocusHolderID,
		"turn_drawn":          s.TurnDrawn,
		"topics":              stringsToList(s.Topics),
		"turn_holder_id":      s.TurnHolderID,
		"last_turn_holder_id": s.LastTurnHolderID,
		"location":            s.Location,
		"location_confirmed":  stringsToList(s.LocationConfirmed),
		"ready":               stringsToList(s.Ready),
		"ready_count":         view.ReadyCount,
		"face_draws":          view.FaceDraws,
		"viewer_id":           view.ViewerID,
		"revision":            s.Revision,
		"created_at":          timeToString(s.CreatedAt),
		"updated_at":          timeToString(s.UpdatedAt),
		"participants":        participants,
	}
}

// viewOf builds the read model returned after a command.
func viewOf(snap engine.Snapshot, who actor.Ref) gateway.SessionView {
	view := gateway.SessionView{
		Snapshot:   snap,
		ReadyCount: snap.ReadyCount(),
		FaceDraws:  snap.FaceDraws(),
	}
	if seat, ok := participant.FindByIdentity(snap.Participants, who); ok {
		view.ViewerID = seat.ID
	}
	return view
}

func participantToMap(p participant.Participant, creatorID string) map[string]any {
	return map[string]any{
		"id":           p.ID,
		"display_name": p.DisplayName,
		"rank":         p.Rank,
		"connected":    p.Connected,
		"creator":      p.ID == creatorID,
		"created_at":   timeToString(p.CreatedAt),
	}
}

func promptToMap(ref prompt.Ref) map[string]any {
	out := map[string]any{
		"kind":  string(ref.Kind),
		"label": ref.String(),
		"text":  prompt.Text(ref),
	}
	if ref.Kind == prompt.KindFace {
		out["face_id"] = ref.FaceID
	} else {
		out["value"] = ref.Value
		out["order"] = ref.Order
	}
	return out
}

func turnToMap(record turn.Record) map[string]any {
	return map[string]any{
		"id":             record.ID,
		"session_id":     record.SessionID,
		"participant_id": record.ParticipantID,
		"phase":          record.Phase.String(),
		"cycle":          record.Cycle,
		"prompt":         promptToMap(record.Prompt),
		"created_at":     timeToString(record.CreatedAt),
	}
}

// stringsToList converts to the []any form structpb accepts.
func stringsToList(values []string) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

func timeToString(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}
