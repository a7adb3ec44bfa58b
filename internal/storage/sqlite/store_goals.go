package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shxuryaaz/agilow-goal-forge/internal/goal"
	"github.com/shxuryaaz/agilow-goal-forge/internal/storage"
)

// PutGoal persists a goal record, inserting or replacing by ID.
func (s *Store) PutGoal(ctx context.Context, record storage.GoalRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("goal id is required")
	}
	if strings.TrimSpace(record.Owner) == "" {
		return fmt.Errorf("goal owner is required")
	}
	if strings.TrimSpace(record.Title) == "" {
		return fmt.Errorf("goal title is required")
	}
	if strings.TrimSpace(record.Status) == "" {
		return fmt.Errorf("goal status is required")
	}

	weeks, err := encodeJSON(record.Weeks)
	if err != nil {
		return fmt.Errorf("encode weeks: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO goals (
	id, owner, title, description, weeks, status, reward_total,
	board_id, credential_id, certificate_id, created_at, updated_at, completed_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	owner = excluded.owner,
	title = excluded.title,
	description = excluded.description,
	weeks = excluded.weeks,
	status = excluded.status,
	reward_total = excluded.reward_total,
	board_id = excluded.board_id,
	credential_id = excluded.credential_id,
	certificate_id = excluded.certificate_id,
	updated_at = excluded.updated_at,
	completed_at = excluded.completed_at
`,
		record.ID,
		record.Owner,
		record.Title,
		record.Description,
		weeks,
		record.Status,
		record.RewardTotal,
		record.BoardID,
		record.CredentialID,
		record.CertificateID,
		toMillis(record.CreatedAt),
		toMillis(record.UpdatedAt),
		toNullMillis(record.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("put goal: %w", err)
	}
	return nil
}

// GetGoal fetches a goal record by ID.
func (s *Store) GetGoal(ctx context.Context, goalID string) (storage.GoalRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.GoalRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.GoalRecord{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, goalSelect+" WHERE id = ?", goalID)
	return scanGoalRow(row)
}

// GetActiveGoalByOwner fetches the active goal for an owner.
func (s *Store) GetActiveGoalByOwner(ctx context.Context, owner string) (storage.GoalRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.GoalRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.GoalRecord{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, goalSelect+`
 WHERE owner = ? AND status = ?
 ORDER BY created_at DESC LIMIT 1`, owner, goal.StatusLabel(goal.StatusActive))
	return scanGoalRow(row)
}

const goalSelect = `
SELECT id, owner, title, description, weeks, status, reward_total,
	board_id, credential_id, certificate_id, created_at, updated_at, completed_at
FROM goals`

func scanGoalRow(row *sql.Row) (storage.GoalRecord, error) {
	var (
		rec         storage.GoalRecord
		weeksRaw    string
		createdAt   int64
		updatedAt   int64
		completedAt sql.NullInt64
	)
	err := row.Scan(
		&rec.ID,
		&rec.Owner,
		&rec.Title,
		&rec.Description,
		&weeksRaw,
		&rec.Status,
		&rec.RewardTotal,
		&rec.BoardID,
		&rec.CredentialID,
		&rec.CertificateID,
		&createdAt,
		&updatedAt,
		&completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.GoalRecord{}, storage.ErrNotFound
		}
		return storage.GoalRecord{}, fmt.Errorf("scan goal: %w", err)
	}
	if strings.TrimSpace(weeksRaw) != "" {
		if err := json.Unmarshal([]byte(weeksRaw), &rec.Weeks); err != nil {
			return storage.GoalRecord{}, fmt.Errorf("unmarshal weeks: %w", err)
		}
	}
	rec.CreatedAt = fromMillis(createdAt)
	rec.UpdatedAt = fromMillis(updatedAt)
	rec.CompletedAt = fromNullMillis(completedAt)
	return rec, nil
}
