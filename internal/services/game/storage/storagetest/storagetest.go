// Package storagetest holds behavior checks shared by every game store.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/louisbranch/storydeck/internal/services/game/core/filter"
	"github.com/louisbranch/storydeck/internal/services/game/domain/actor"
	"github.com/louisbranch/storydeck/internal/services/game/domain/engine"
	"github.com/louisbranch/storydeck/internal/services/game/domain/participant"
	"github.com/louisbranch/storydeck/internal/services/game/domain/prompt"
	"github.com/louisbranch/storydeck/internal/services/game/domain/session"
	"github.com/louisbranch/storydeck/internal/services/game/domain/turn"
	"github.com/louisbranch/storydeck/internal/services/game/storage"
)

// Store is the surface exercised by Run.
type Store interface {
	storage.Store
	storage.OutboxStore
}

var baseTime = time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

// Snapshot returns a fresh waiting-phase snapshot for tests.
func Snapshot(id, code string) engine.Snapshot {
	creatorID := id + "-creator"
	return engine.Snapshot{
		Session: session.Session{
			ID:        id,
			Code:      code,
			Title:     "Harbor Town",
			CreatorID: creatorID,
			Creator:   actor.Account("user-" + id),
			Phase:     session.PhaseWaiting,
			CreatedAt: baseTime,
			UpdatedAt: baseTime,
		},
		Participants: []participant.Participant{{
			ID:          creatorID,
			SessionID:   id,
			DisplayName: "Ada",
			Identity:    actor.Account("user-" + id),
			Rank:        0,
			Connected:   true,
			CreatedAt:   baseTime,
		}},
	}
}

// Run exercises open against the shared store contract.
func Run(t *testing.T, open func(t *testing.T) Store) {
	t.Run("create and load", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		if err := store.CreateSession(ctx, Snapshot("s1", "ABC123")); err != nil {
			t.Fatalf("create session: %v", err)
		}
		snap, err := store.LoadSnapshot(ctx, "s1")
		if err != nil {
			t.Fatalf("load snapshot: %v", err)
		}
		if snap.Session.Revision != 1 {
			t.Fatalf("expected revision 1, got %d", snap.Session.Revision)
		}
		if snap.Session.Creator != actor.Account("user-s1") {
			t.Fatalf("expected creator account, got %v", snap.Session.Creator)
		}
		if !snap.Session.CreatedAt.Equal(baseTime) {
			t.Fatalf("expected created at %v, got %v", baseTime, snap.Session.CreatedAt)
		}
		if len(snap.Participants) != 1 || snap.Participants[0].DisplayName != "Ada" || !snap.Participants[0].Connected {
			t.Fatalf("expected seated creator, got %+v", snap.Participants)
		}
		id, err := store.SessionIDByCode(ctx, "ABC123")
		if err != nil || id != "s1" {
			t.Fatalf("expected s1 by code, got %q, %v", id, err)
		}
	})

	t.Run("code collision", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		if err := store.CreateSession(ctx, Snapshot("s1", "ABC123")); err != nil {
			t.Fatalf("create session: %v", err)
		}
		err := store.CreateSession(ctx, Snapshot("s2", "ABC123"))
		if !errors.Is(err, storage.ErrCodeTaken) {
			t.Fatalf("expected code taken, got %v", err)
		}
	})

	t.Run("missing records", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		if _, err := store.SessionIDByCode(ctx, "ZZZZZZ"); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("expected not found by code, got %v", err)
		}
		if _, err := store.LoadSnapshot(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("expected not found snapshot, got %v", err)
		}
		snap := Snapshot("missing", "MISS01")
		if _, err := store.CommitDelta(ctx, engine.Delta{Session: snap.Session}); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("expected not found commit, got %v", err)
		}
	})

	t.Run("commit join and stale revision", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		if err := store.CreateSession(ctx, Snapshot("s1", "ABC123")); err != nil {
			t.Fatalf("create session: %v", err)
		}
		loaded, err := store.LoadSnapshot(ctx, "s1")
		if err != nil {
			t.Fatalf("load snapshot: %v", err)
		}
		next := loaded.Session.Clone()
		next.UpdatedAt = baseTime.Add(time.Minute)
		joined := participant.Participant{
			ID:          "p2",
			SessionID:   "s1",
			DisplayName: "Bea",
			Identity:    actor.Player("player-bea"),
			Rank:        1,
			Connected:   true,
			CreatedAt:   next.UpdatedAt,
		}
		revision, err := store.CommitDelta(ctx, engine.Delta{Session: next, AddParticipant: &joined})
		if err != nil {
			t.Fatalf("commit join: %v", err)
		}
		if revision != 2 {
			t.Fatalf("expected revision 2, got %d", revision)
		}

		stale := loaded.Session.Clone()
		stale.Location = "Lighthouse"
		if _, err := store.CommitDelta(ctx, engine.Delta{Session: stale}); !errors.Is(err, storage.ErrRevisionConflict) {
			t.Fatalf("expected revision conflict, got %v", err)
		}

		after, err := store.LoadSnapshot(ctx, "s1")
		if err != nil {
			t.Fatalf("load snapshot: %v", err)
		}
		if after.Session.Revision != 2 || after.Session.Location != "" {
			t.Fatalf("expected stale commit to leave revision 2 without location, got %+v", after.Session)
		}
		if len(after.Participants) != 2 || after.Participants[1].ID != "p2" {
			t.Fatalf("expected joined participant at rank 1, got %+v", after.Participants)
		}
	})

	t.Run("session fields round trip", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		if err := store.CreateSession(ctx, Snapshot("s1", "ABC123")); err != nil {
			t.Fatalf("create session: %v", err)
		}
		next := Snapshot("s1", "ABC123").Session
		next.Revision = 1
		next.Phase = session.PhaseDrawing
		next.CycleLength = "weeks"
		next.Cycle = 2
		next.TenFlag = true
		next.Focused = true
		next.FocusHolderID = "s1-creator"
		next.TurnDrawn = true
		next.Topics = []string{"what", "who"}
		next.TurnHolderID = "s1-creator"
		next.LastTurnHolderID = "p2"
		next.Location = "Lighthouse"
		next.LocationConfirmed = []string{"s1-creator"}
		next.Ready = []string{"s1-creator"}
		if _, err := store.CommitDelta(ctx, engine.Delta{Session: next}); err != nil {
			t.Fatalf("commit: %v", err)
		}
		got, err := store.LoadSnapshot(ctx, "s1")
		if err != nil {
			t.Fatalf("load snapshot: %v", err)
		}
		s := got.Session
		if s.Phase != session.PhaseDrawing || s.CycleLength != "weeks" || s.Cycle != 2 {
			t.Fatalf("expected drawing weeks cycle 2, got %+v", s)
		}
		if !s.TenFlag || !s.Focused || !s.TurnDrawn || s.FocusHolderID != "s1-creator" {
			t.Fatalf("expected sub-state flags, got %+v", s)
		}
		if len(s.Topics) != 2 || s.Topics[1] != "who" {
			t.Fatalf("expected topics, got %v", s.Topics)
		}
		if !s.IsConfirmed("s1-creator") || !s.IsReady("s1-creator") {
			t.Fatalf("expected confirmed and ready creator, got %+v", s)
		}
		if s.LastTurnHolderID != "p2" || s.Location != "Lighthouse" {
			t.Fatalf("expected holder and location, got %+v", s)
		}
	})

	t.Run("participant update and removal", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		snap := Snapshot("s1", "ABC123")
		bea := participant.Participant{ID: "p2", SessionID: "s1", DisplayName: "Bea", Identity: actor.Player("bea"), Rank: 1, Connected: true, CreatedAt: baseTime}
		cy := participant.Participant{ID: "p3", SessionID: "s1", DisplayName: "Cy", Identity: actor.Player("cy"), Rank: 2, Connected: true, CreatedAt: baseTime}
		snap.Participants = append(snap.Participants, bea, cy)
		if err := store.CreateSession(ctx, snap); err != nil {
			t.Fatalf("create session: %v", err)
		}
		next := snap.Session.Clone()
		next.Revision = 1
		bea.Connected = false
		if _, err := store.CommitDelta(ctx, engine.Delta{Session: next, UpdateParticipants: []participant.Participant{bea}, RemoveParticipantID: "p3"}); err != nil {
			t.Fatalf("commit: %v", err)
		}
		got, err := store.LoadSnapshot(ctx, "s1")
		if err != nil {
			t.Fatalf("load snapshot: %v", err)
		}
		if len(got.Participants) != 2 {
			t.Fatalf("expected 2 participants, got %+v", got.Participants)
		}
		if got.Participants[1].ID != "p2" || got.Participants[1].Connected {
			t.Fatalf("expected disconnected bea, got %+v", got.Participants[1])
		}
	})

	t.Run("turn ledger", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		if err := store.CreateSession(ctx, Snapshot("s1", "ABC123")); err != nil {
			t.Fatalf("create session: %v", err)
		}
		refs := []prompt.Ref{prompt.Face(3), prompt.Face(7), prompt.Numbered(5, 1)}
		phases := []session.Phase{session.PhaseEstablishing, session.PhaseEstablishing, session.PhaseDrawing}
		revision := int64(1)
		for i, ref := range refs {
			next := Snapshot("s1", "ABC123").Session
			next.Revision = revision
			next.Phase = phases[i]
			record := turn.Record{
				ID:            "t" + string(rune('1'+i)),
				SessionID:     "s1",
				ParticipantID: "s1-creator",
				Phase:         phases[i],
				Cycle:         0,
				Prompt:        ref,
				CreatedAt:     baseTime.Add(time.Duration(i) * time.Second),
			}
			var err error
			revision, err = store.CommitDelta(ctx, engine.Delta{Session: next, AppendTurn: &record})
			if err != nil {
				t.Fatalf("commit turn %d: %v", i, err)
			}
		}

		all, err := store.ListTurns(ctx, "s1", nil, 0)
		if err != nil {
			t.Fatalf("list turns: %v", err)
		}
		if len(all) != 3 || all[0].Prompt != prompt.Face(3) || all[2].Prompt != prompt.Numbered(5, 1) {
			t.Fatalf("expected ledger in draw order, got %+v", all)
		}

		cond, err := filter.ParseTurnFilter(`kind = "face" AND face_id > 3`)
		if err != nil {
			t.Fatalf("parse filter: %v", err)
		}
		faces, err := store.ListTurns(ctx, "s1", cond, 0)
		if err != nil {
			t.Fatalf("list filtered turns: %v", err)
		}
		if len(faces) != 1 || faces[0].Prompt.FaceID != 7 {
			t.Fatalf("expected face 7 only, got %+v", faces)
		}

		limited, err := store.ListTurns(ctx, "s1", nil, 2)
		if err != nil {
			t.Fatalf("list limited turns: %v", err)
		}
		if len(limited) != 2 {
			t.Fatalf("expected 2 turns, got %d", len(limited))
		}

		snap, err := store.LoadSnapshot(ctx, "s1")
		if err != nil {
			t.Fatalf("load snapshot: %v", err)
		}
		if got := turn.Consumption(snap.Turns); !got.FaceConsumed(3) || !got.NumberedConsumed(5, 1) {
			t.Fatalf("expected consumption from ledger, got %+v", got)
		}
		if _, err := store.ListTurns(ctx, "missing", nil, 0); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("outbox", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		for rev := int64(2); rev <= 4; rev++ {
			if err := store.EnqueueSessionChange(ctx, "s1", rev, baseTime); err != nil {
				t.Fatalf("enqueue: %v", err)
			}
		}
		pending, err := store.PendingSessionChanges(ctx, 2)
		if err != nil {
			t.Fatalf("pending: %v", err)
		}
		if len(pending) != 2 || pending[0].Revision != 2 || pending[1].Revision != 3 {
			t.Fatalf("expected oldest two changes, got %+v", pending)
		}
		if err := store.MarkSessionChangesDelivered(ctx, []int64{pending[0].ID, pending[1].ID}, baseTime); err != nil {
			t.Fatalf("mark delivered: %v", err)
		}
		rest, err := store.PendingSessionChanges(ctx, 10)
		if err != nil {
			t.Fatalf("pending: %v", err)
		}
		if len(rest) != 1 || rest[0].Revision != 4 {
			t.Fatalf("expected revision 4 pending, got %+v", rest)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		store := open(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := store.CreateSession(ctx, Snapshot("s1", "ABC123")); err == nil {
			t.Fatal("expected canceled context error")
		}
	})
}
