package sqlite

import (
	"context"
	"fmt"

	"github.com/louisbranch/storydeck/internal/services/game/core/filter"
	"github.com/louisbranch/storydeck/internal/services/game/domain/prompt"
	"github.com/louisbranch/storydeck/internal/services/game/domain/session"
	"github.com/louisbranch/storydeck/internal/services/game/domain/turn"
	"github.com/louisbranch/storydeck/internal/services/game/storage"
)

// ListTurns returns the ledger for a session in draw order.
func (s *Store) ListTurns(ctx context.Context, sessionID string, cond *filter.Condition, limit int) ([]turn.Record, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var exists int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(1) FROM sessions WHERE id = ?`, sessionID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check session: %w", err)
	}
	if exists == 0 {
		return nil, storage.ErrNotFound
	}
	return queryTurns(ctx, s.sqlDB, sessionID, cond, limit)
}

func queryTurns(ctx context.Context, db queryer, sessionID string, cond *filter.Condition, limit int) ([]turn.Record, error) {
	query := `
SELECT id, session_id, participant_id, phase, cycle, prompt_kind, face_id, card_value, draw_order, created_at
FROM turns WHERE session_id = ?`
	params := []any{sessionID}
	if where := cond.SQL(); where.Clause != "" {
		query += " AND (" + where.Clause + ")"
		params = append(params, where.Params...)
	}
	query += " ORDER BY seq"
	if limit > 0 {
		query += " LIMIT ?"
		params = append(params, limit)
	}

	rows, err := db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	var out []turn.Record
	for rows.Next() {
		var (
			r                    turn.Record
			phase                int
			kind                 string
			faceID, value, order int
			createdAt            int64
		)
		if err := rows.Scan(&r.ID, &r.SessionID, &r.ParticipantID, &phase, &r.Cycle, &kind, &faceID, &value, &order, &createdAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		r.Phase = session.Phase(phase)
		r.Prompt = prompt.Ref{Kind: prompt.Kind(kind), FaceID: faceID, Value: value, Order: order}
		r.CreatedAt = fromMillis(createdAt)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return out, nil
}

func insertTurn(ctx context.Context, db execer, r turn.Record) error {
	_, err := db.ExecContext(ctx, `
INSERT INTO turns (id, session_id, participant_id, phase, cycle, prompt_kind, face_id, card_value, draw_order, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SessionID, r.ParticipantID, int(r.Phase), r.Cycle, string(r.Prompt.Kind),
		r.Prompt.FaceID, r.Prompt.Value, r.Prompt.Order, toMillis(r.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrRevisionConflict
		}
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}
