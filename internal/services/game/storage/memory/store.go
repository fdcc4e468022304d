// Package memory provides an in-process Store used by tests, scenario
// runs, and single-process deployments without a database file.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/louisbranch/storydeck/internal/services/game/core/filter"
	"github.com/louisbranch/storydeck/internal/services/game/domain/engine"
	"github.com/louisbranch/storydeck/internal/services/game/domain/turn"
	"github.com/louisbranch/storydeck/internal/services/game/storage"
)

// Store keeps snapshots in a map guarded by a mutex. The lock is held only
// for the copy in or out, never across caller I/O.
type Store struct {
	mu       sync.Mutex
	sessions map[string]engine.Snapshot
	codes    map[string]string

	// outbox holds undelivered changes only.
	outbox     []storage.SessionChange
	nextChange int64
}

var (
	_ storage.Store       = (*Store)(nil)
	_ storage.OutboxStore = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{
		sessions: map[string]engine.Snapshot{},
		codes:    map[string]string{},
	}
}

// CreateSession implements storage.SessionStore.
func (s *Store) CreateSession(ctx context.Context, snap engine.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes[snap.Session.Code]; ok {
		return storage.ErrCodeTaken
	}
	if _, ok := s.sessions[snap.Session.ID]; ok {
		return fmt.Errorf("session %s already exists", snap.Session.ID)
	}
	stored := snap.Clone()
	stored.Session.Revision = 1
	s.sessions[snap.Session.ID] = stored
	s.codes[snap.Session.Code] = snap.Session.ID
	return nil
}

// SessionIDByCode implements storage.SessionStore.
func (s *Store) SessionIDByCode(ctx context.Context, code string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.codes[code]
	if !ok {
		return "", storage.ErrNotFound
	}
	return id, nil
}

// LoadSnapshot implements storage.SessionStore.
func (s *Store) LoadSnapshot(ctx context.Context, sessionID string) (engine.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return engine.Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.sessions[sessionID]
	if !ok {
		return engine.Snapshot{}, storage.ErrNotFound
	}
	return snap.Clone(), nil
}

// CommitDelta implements storage.SessionStore.
func (s *Store) CommitDelta(ctx context.Context, delta engine.Delta) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.sessions[delta.Session.ID]
	if !ok {
		return 0, storage.ErrNotFound
	}
	if current.Session.Revision != delta.Session.Revision {
		return 0, storage.ErrRevisionConflict
	}
	next := current.Apply(delta)
	next.Session.Revision = current.Session.Revision + 1
	s.sessions[delta.Session.ID] = next
	return next.Session.Revision, nil
}

// ListTurns implements storage.TurnStore.
func (s *Store) ListTurns(ctx context.Context, sessionID string, cond *filter.Condition, limit int) ([]turn.Record, error) {
	snap, err := s.LoadSnapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]turn.Record, 0, len(snap.Turns))
	for _, r := range snap.Turns {
		if !cond.Match(storage.TurnFilterValues(r)) {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// EnqueueSessionChange implements storage.OutboxStore.
func (s *Store) EnqueueSessionChange(ctx context.Context, sessionID string, revision int64, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextChange++
	s.outbox = append(s.outbox, storage.SessionChange{
		ID:        s.nextChange,
		SessionID: sessionID,
		Revision:  revision,
		CreatedAt: at.UTC(),
	})
	return nil
}

// PendingSessionChanges implements storage.OutboxStore.
func (s *Store) PendingSessionChanges(ctx context.Context, limit int) ([]storage.SessionChange, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := min(limit, len(s.outbox))
	if n == 0 {
		return nil, nil
	}
	out := make([]storage.SessionChange, n)
	copy(out, s.outbox[:n])
	return out, nil
}

// MarkSessionChangesDelivered implements storage.OutboxStore.
func (s *Store) MarkSessionChangesDelivered(ctx context.Context, ids []int64, _ time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	done := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		done[id] = struct{}{}
	}
	s.outbox = slices.DeleteFunc(s.outbox, func(change storage.SessionChange) bool {
		_, ok := done[change.ID]
		return ok
	})
	return nil
}

// Close implements storage.Store.
func (s *Store) Close() error {
	return nil
}
