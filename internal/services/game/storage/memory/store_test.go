package memory

import (
	"testing"
	"time"

	"github.com/louisbranch/storydeck/internal/services/game/storage/storagetest"
)

func TestStoreContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storagetest.Store {
		return New()
	})
}

func TestLoadSnapshotReturnsCopy(t *testing.T) {
	store := New()
	ctx := t.Context()
	if err := store.CreateSession(ctx, storagetest.Snapshot("s1", "ABC123")); err != nil {
		t.Fatalf("create session: %v", err)
	}
	snap, err := store.LoadSnapshot(ctx, "s1")
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	snap.Participants[0].DisplayName = "Mallory"
	again, err := store.LoadSnapshot(ctx, "s1")
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if again.Participants[0].DisplayName != "Ada" {
		t.Fatalf("expected stored copy untouched, got %q", again.Participants[0].DisplayName)
	}
}

func TestDeliveredChangesAreReleased(t *testing.T) {
	store := New()
	ctx := t.Context()
	at := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	for revision := int64(2); revision <= 4; revision++ {
		if err := store.EnqueueSessionChange(ctx, "s1", revision, at); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	pending, err := store.PendingSessionChanges(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	ids := make([]int64, 0, len(pending))
	for _, change := range pending {
		ids = append(ids, change.ID)
	}
	if err := store.MarkSessionChangesDelivered(ctx, ids, at); err != nil {
		t.Fatalf("mark delivered: %v", err)
	}
	if err := store.MarkSessionChangesDelivered(ctx, ids, at); err != nil {
		t.Fatalf("mark delivered twice: %v", err)
	}

	store.mu.Lock()
	held := len(store.outbox)
	store.mu.Unlock()
	if held != 0 {
		t.Fatalf("expected delivered changes to be dropped, %d still held", held)
	}
	if err := store.EnqueueSessionChange(ctx, "s1", 5, at); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	rest, err := store.PendingSessionChanges(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(rest) != 1 || rest[0].Revision != 5 || rest[0].ID <= ids[len(ids)-1] {
		t.Fatalf("expected only the new change with a fresh id, got %+v", rest)
	}
}
