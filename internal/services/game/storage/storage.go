package storage

import (
	"context"
	"time"

	apperrors "github.com/louisbranch/storydeck/internal/platform/errors"
	"github.com/louisbranch/storydeck/internal/services/game/core/filter"
	"github.com/louisbranch/storydeck/internal/services/game/domain/engine"
	"github.com/louisbranch/storydeck/internal/services/game/domain/turn"
)

// ErrNotFound indicates a requested persistence record is missing.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// ErrRevisionConflict indicates the stored session moved past the revision
// a delta was computed against.
var ErrRevisionConflict = apperrors.New(apperrors.CodeConcurrencyConflict, "session revision changed")

// ErrCodeTaken indicates a join code collision on create.
var ErrCodeTaken = apperrors.New(apperrors.CodeCodeTaken, "session code already in use")

// SessionStore persists session snapshots.
type SessionStore interface {
	// CreateSession inserts a new snapshot at revision 1.
	CreateSession(ctx context.Context, snap engine.Snapshot) error
	// SessionIDByCode resolves a join code (already normalized).
	SessionIDByCode(ctx context.Context, code string) (string, error)
	// LoadSnapshot reads the session, its participants by rank, and its
	// turn ledger in one consistent read.
	LoadSnapshot(ctx context.Context, sessionID string) (engine.Snapshot, error)
	// CommitDelta atomically applies delta iff the stored revision equals
	// delta.Session.Revision, returning the new revision.
	CommitDelta(ctx context.Context, delta engine.Delta) (int64, error)
}

// TurnStore lists the append-only turn ledger.
type TurnStore interface {
	ListTurns(ctx context.Context, sessionID string, cond *filter.Condition, limit int) ([]turn.Record, error)
}

// SessionChange is one pending change notification in the outbox.
type SessionChange struct {
	ID        int64
	SessionID string
	Revision  int64
	CreatedAt time.Time
}

// OutboxStore holds session change notifications until they are relayed.
type OutboxStore interface {
	EnqueueSessionChange(ctx context.Context, sessionID string, revision int64, at time.Time) error
	PendingSessionChanges(ctx context.Context, limit int) ([]SessionChange, error)
	MarkSessionChangesDelivered(ctx context.Context, ids []int64, at time.Time) error
}

// Store is the full persistence surface used by the game service.
type Store interface {
	SessionStore
	TurnStore
	Close() error
}

// TurnFilterValues returns the filter field values for a turn record.
func TurnFilterValues(r turn.Record) map[string]any {
	return map[string]any{
		filter.FieldParticipantID: r.ParticipantID,
		filter.FieldKind:          string(r.Prompt.Kind),
		filter.FieldPhase:         int64(r.Phase),
		filter.FieldCycle:         int64(r.Cycle),
		filter.FieldFaceID:        int64(r.Prompt.FaceID),
		filter.FieldValue:         int64(r.Prompt.Value),
		filter.FieldCreatedAt:     r.CreatedAt.UTC().UnixMilli(),
	}
}
