package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shxuryaaz/agilow-goal-forge/internal/storage"
)

// PutSession persists a session record, inserting or replacing by ID.
func (s *Store) PutSession(ctx context.Context, record storage.SessionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("session id is required")
	}
	if strings.TrimSpace(record.Owner) == "" {
		return fmt.Errorf("session owner is required")
	}
	if strings.TrimSpace(record.State) == "" {
		return fmt.Errorf("session state is required")
	}

	answers, err := encodeJSON(record.SlotAnswers)
	if err != nil {
		return fmt.Errorf("encode slot answers: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO sessions (
	id, owner, state, slot_answers, goal_id, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	owner = excluded.owner,
	state = excluded.state,
	slot_answers = excluded.slot_answers,
	goal_id = excluded.goal_id,
	updated_at = excluded.updated_at
`,
		record.ID,
		record.Owner,
		record.State,
		answers,
		record.GoalID,
		toMillis(record.CreatedAt),
		toMillis(record.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// GetSession fetches a session record by ID.
func (s *Store) GetSession(ctx context.Context, sessionID string) (storage.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.SessionRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.SessionRecord{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, owner, state, slot_answers, goal_id, created_at, updated_at
FROM sessions WHERE id = ?
`, sessionID)
	return scanSessionRow(row)
}

// GetLatestSessionByOwner fetches the newest session for an owner.
func (s *Store) GetLatestSessionByOwner(ctx context.Context, owner string) (storage.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.SessionRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.SessionRecord{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, owner, state, slot_answers, goal_id, created_at, updated_at
FROM sessions WHERE owner = ?
ORDER BY created_at DESC, id DESC
LIMIT 1
`, owner)
	return scanSessionRow(row)
}

// CompareAndSwapSessionState atomically moves a session between states.
// The WHERE clause makes the swap a single atomic statement, which is what
// guards against two concurrent materialization runs.
func (s *Store) CompareAndSwapSessionState(ctx context.Context, sessionID, fromState, toState string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE sessions SET state = ?, updated_at = ?
WHERE id = ? AND state = ?
`, toState, toMillis(nowUTC()), sessionID, fromState)
	if err != nil {
		return false, fmt.Errorf("swap session state: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("swap session state rows: %w", err)
	}
	return affected == 1, nil
}

func scanSessionRow(row *sql.Row) (storage.SessionRecord, error) {
	var (
		rec        storage.SessionRecord
		answersRaw string
		createdAt  int64
		updatedAt  int64
	)
	err := row.Scan(
		&rec.ID,
		&rec.Owner,
		&rec.State,
		&answersRaw,
		&rec.GoalID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.SessionRecord{}, storage.ErrNotFound
		}
		return storage.SessionRecord{}, fmt.Errorf("scan session: %w", err)
	}
	if strings.TrimSpace(answersRaw) != "" {
		if err := json.Unmarshal([]byte(answersRaw), &rec.SlotAnswers); err != nil {
			return storage.SessionRecord{}, fmt.Errorf("unmarshal slot answers: %w", err)
		}
	}
	rec.CreatedAt = fromMillis(createdAt)
	rec.UpdatedAt = fromMillis(updatedAt)
	return rec, nil
}
