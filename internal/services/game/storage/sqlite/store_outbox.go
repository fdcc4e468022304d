package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/storydeck/internal/services/game/storage"
)

// EnqueueSessionChange records a pending change notification.
func (s *Store) EnqueueSessionChange(ctx context.Context, sessionID string, revision int64, at time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	if _, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO session_change_outbox (session_id, revision, created_at) VALUES (?, ?, ?)`,
		sessionID, revision, toMillis(at),
	); err != nil {
		return fmt.Errorf("enqueue session change: %w", err)
	}
	return nil
}

// PendingSessionChanges returns undelivered changes oldest first.
func (s *Store) PendingSessionChanges(ctx context.Context, limit int) ([]storage.SessionChange, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, session_id, revision, created_at
FROM session_change_outbox
WHERE delivered_at IS NULL
ORDER BY id
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list session changes: %w", err)
	}
	defer rows.Close()

	var out []storage.SessionChange
	for rows.Next() {
		var (
			change    storage.SessionChange
			createdAt int64
		)
		if err := rows.Scan(&change.ID, &change.SessionID, &change.Revision, &createdAt); err != nil {
			return nil, fmt.Errorf("scan session change: %w", err)
		}
		change.CreatedAt = fromMillis(createdAt)
		out = append(out, change)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session changes: %w", err)
	}
	return out, nil
}

// MarkSessionChangesDelivered stamps ids as delivered.
func (s *Store) MarkSessionChangesDelivered(ctx context.Context, ids []int64, at time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	params := make([]any, 0, len(ids)+1)
	params = append(params, toMillis(at))
	for _, id := range ids {
		params = append(params, id)
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		`UPDATE session_change_outbox SET delivered_at = ? WHERE delivered_at IS NULL AND id IN (`+placeholders+`)`,
		params...,
	); err != nil {
		return fmt.Errorf("mark session changes delivered: %w", err)
	}
	return nil
}
