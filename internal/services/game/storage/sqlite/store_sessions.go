package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/louisbranch/storydeck/internal/services/game/domain/actor"
	"github.com/louisbranch/storydeck/internal/services/game/domain/engine"
	"github.com/louisbranch/storydeck/internal/services/game/domain/participant"
	"github.com/louisbranch/storydeck/internal/services/game/domain/session"
	"github.com/louisbranch/storydeck/internal/services/game/storage"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CreateSession inserts the session and its seated creator at revision 1.
func (s *Store) CreateSession(ctx context.Context, snap engine.Snapshot) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	row := snap.Session.Clone()
	row.Revision = 1
	sets, err := encodeSessionSets(row)
	if err != nil {
		return err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create session: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
INSERT INTO sessions (
    id, code, title, creator_id, creator_actor, phase, cycle_length, cycle,
    ten_flag, focused, focus_holder_id, turn_drawn, topics_json,
    turn_holder_id, last_turn_holder_id, location, location_confirmed_json,
    ready_json, revision, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.Code, row.Title, row.CreatorID, row.Creator.String(), int(row.Phase), row.CycleLength, row.Cycle,
		boolToInt(row.TenFlag), boolToInt(row.Focused), row.FocusHolderID, boolToInt(row.TurnDrawn), sets.topics,
		row.TurnHolderID, row.LastTurnHolderID, row.Location, sets.confirmed,
		sets.ready, row.Revision, toMillis(row.CreatedAt), toMillis(row.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrCodeTaken
		}
		return fmt.Errorf("insert session: %w", err)
	}
	for _, p := range snap.Participants {
		if err := insertParticipant(ctx, tx, p); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create session: %w", err)
	}
	return nil
}

// SessionIDByCode resolves a normalized join code.
func (s *Store) SessionIDByCode(ctx context.Context, code string) (string, error) {
	if err := s.ready(ctx); err != nil {
		return "", err
	}
	var id string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT id FROM sessions WHERE code = ?`, code).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup session code: %w", err)
	}
	return id, nil
}

// LoadSnapshot reads a session with its participants and turn ledger inside
// one transaction. Lock contention surfaces as storage.ErrRevisionConflict.
func (s *Store) LoadSnapshot(ctx context.Context, sessionID string) (engine.Snapshot, error) {
	snap, err := s.loadSnapshot(ctx, sessionID)
	return snap, contention(err)
}

func (s *Store) loadSnapshot(ctx context.Context, sessionID string) (engine.Snapshot, error) {
	if err := s.ready(ctx); err != nil {
		return engine.Snapshot{}, err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("begin load snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	sess, err := loadSession(ctx, tx, sessionID)
	if err != nil {
		return engine.Snapshot{}, err
	}
	participants, err := loadParticipants(ctx, tx, sessionID)
	if err != nil {
		return engine.Snapshot{}, err
	}
	turns, err := queryTurns(ctx, tx, sessionID, nil, 0)
	if err != nil {
		return engine.Snapshot{}, err
	}
	return engine.Snapshot{Session: sess, Participants: participants, Turns: turns}, nil
}

// CommitDelta applies delta in one transaction guarded by the session
// revision. Lock contention is reported as storage.ErrRevisionConflict, the
// same as a stale revision.
func (s *Store) CommitDelta(ctx context.Context, delta engine.Delta) (int64, error) {
	revision, err := s.commitDelta(ctx, delta)
	if err != nil {
		return 0, contention(err)
	}
	return revision, nil
}

func (s *Store) commitDelta(ctx context.Context, delta engine.Delta) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	row := delta.Session
	sets, err := encodeSessionSets(row)
	if err != nil {
		return 0, err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin commit delta: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
UPDATE sessions SET
    title = ?, phase = ?, cycle_length = ?, cycle = ?, ten_flag = ?, focused = ?,
    focus_holder_id = ?, turn_drawn = ?, topics_json = ?, turn_holder_id = ?,
    last_turn_holder_id = ?, location = ?, location_confirmed_json = ?,
    ready_json = ?, revision = revision + 1, updated_at = ?
WHERE id = ? AND revision = ?`,
		row.Title, int(row.Phase), row.CycleLength, row.Cycle, boolToInt(row.TenFlag), boolToInt(row.Focused),
		row.FocusHolderID, boolToInt(row.TurnDrawn), sets.topics, row.TurnHolderID,
		row.LastTurnHolderID, row.Location, sets.confirmed,
		sets.ready, toMillis(row.UpdatedAt),
		row.ID, row.Revision,
	)
	if err != nil {
		return 0, fmt.Errorf("update session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update session rows: %w", err)
	}
	if affected == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, row.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, storage.ErrNotFound
		}
		if err != nil {
			return 0, fmt.Errorf("check session: %w", err)
		}
		return 0, storage.ErrRevisionConflict
	}

	if delta.RemoveParticipantID != "" {
		if _, err := tx.ExecContext(ctx, `DELETE FROM participants WHERE id = ? AND session_id = ?`, delta.RemoveParticipantID, row.ID); err != nil {
			return 0, fmt.Errorf("remove participant: %w", err)
		}
	}
	for _, p := range delta.UpdateParticipants {
		if _, err := tx.ExecContext(ctx, `
UPDATE participants SET display_name = ?, display_name_folded = ?, connected = ?
WHERE id = ? AND session_id = ?`,
			p.DisplayName, participant.FoldName(p.DisplayName), boolToInt(p.Connected), p.ID, row.ID,
		); err != nil {
			return 0, fmt.Errorf("update participant: %w", err)
		}
	}
	if delta.AddParticipant != nil {
		if err := insertParticipant(ctx, tx, *delta.AddParticipant); err != nil {
			return 0, err
		}
	}
	if delta.AppendTurn != nil {
		if err := insertTurn(ctx, tx, *delta.AppendTurn); err != nil {
			return 0, err
		}
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delta: %w", err)
	}
	return row.Revision + 1, nil
}

type sessionSets struct {
	topics    string
	confirmed string
	ready     string
}

func encodeSessionSets(row session.Session) (sessionSets, error) {
	var out sessionSets
	var err error
	if out.topics, err = encodeStrings(row.Topics); err != nil {
		return out, fmt.Errorf("encode topics: %w", err)
	}
	if out.confirmed, err = encodeStrings(row.LocationConfirmed); err != nil {
		return out, fmt.Errorf("encode location confirmations: %w", err)
	}
	if out.ready, err = encodeStrings(row.Ready); err != nil {
		return out, fmt.Errorf("encode ready set: %w", err)
	}
	return out, nil
}

func insertParticipant(ctx context.Context, db execer, p participant.Participant) error {
	_, err := db.ExecContext(ctx, `
INSERT INTO participants (id, session_id, display_name, display_name_folded, actor, rank, connected, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.SessionID, p.DisplayName, participant.FoldName(p.DisplayName), p.Identity.String(),
		p.Rank, boolToInt(p.Connected), toMillis(p.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrRevisionConflict
		}
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

func loadSession(ctx context.Context, db queryer, sessionID string) (session.Session, error) {
	var (
		row                         session.Session
		creatorActor                string
		phase                       int
		tenFlag, focused, turnDrawn int
		topics, confirmed, ready    string
		createdAt, updatedAt        int64
	)
	err := db.QueryRowContext(ctx, `
SELECT id, code, title, creator_id, creator_actor, phase, cycle_length, cycle,
    ten_flag, focused, focus_holder_id, turn_drawn, topics_json,
    turn_holder_id, last_turn_holder_id, location, location_confirmed_json,
    ready_json, revision, created_at, updated_at
FROM sessions WHERE id = ?`, sessionID).Scan(
		&row.ID, &row.Code, &row.Title, &row.CreatorID, &creatorActor, &phase, &row.CycleLength, &row.Cycle,
		&tenFlag, &focused, &row.FocusHolderID, &turnDrawn, &topics,
		&row.TurnHolderID, &row.LastTurnHolderID, &row.Location, &confirmed,
		&ready, &row.Revision, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Session{}, storage.ErrNotFound
	}
	if err != nil {
		return session.Session{}, fmt.Errorf("load session: %w", err)
	}
	creator, err := actor.Parse(creatorActor)
	if err != nil {
		return session.Session{}, fmt.Errorf("decode creator: %w", err)
	}
	row.Creator = creator
	row.Phase = session.Phase(phase)
	row.TenFlag = tenFlag == 1
	row.Focused = focused == 1
	row.TurnDrawn = turnDrawn == 1
	if row.Topics, err = decodeStrings(topics); err != nil {
		return session.Session{}, fmt.Errorf("decode topics: %w", err)
	}
	if row.LocationConfirmed, err = decodeStrings(confirmed); err != nil {
		return session.Session{}, fmt.Errorf("decode location confirmations: %w", err)
	}
	if row.Ready, err = decodeStrings(ready); err != nil {
		return session.Session{}, fmt.Errorf("decode ready set: %w", err)
	}
	row.CreatedAt = fromMillis(createdAt)
	row.UpdatedAt = fromMillis(updatedAt)
	return row, nil
}

func loadParticipants(ctx context.Context, db queryer, sessionID string) ([]participant.Participant, error) {
	rows, err := db.QueryContext(ctx, `
SELECT id, session_id, display_name, actor, rank, connected, created_at
FROM participants WHERE session_id = ? ORDER BY rank`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var out []participant.Participant
	for rows.Next() {
		var (
			p         participant.Participant
			identity  string
			connected int
			createdAt int64
		)
		if err := rows.Scan(&p.ID, &p.SessionID, &p.DisplayName, &identity, &p.Rank, &connected, &createdAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		if p.Identity, err = actor.Parse(identity); err != nil {
			return nil, fmt.Errorf("decode participant identity: %w", err)
		}
		p.Connected = connected == 1
		p.CreatedAt = fromMillis(createdAt)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	return out, nil
}
