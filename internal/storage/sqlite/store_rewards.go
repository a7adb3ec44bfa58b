package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shxuryaaz/agilow-goal-forge/internal/storage"
)

// AppendRewardEntry appends one entry to the reward ledger. Entries are
// never updated or deleted.
func (s *Store) AppendRewardEntry(ctx context.Context, record storage.RewardEntryRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("reward entry id is required")
	}
	if strings.TrimSpace(record.Owner) == "" {
		return fmt.Errorf("reward entry owner is required")
	}
	if record.Amount == 0 {
		return fmt.Errorf("reward entry amount must be non-zero")
	}
	if strings.TrimSpace(record.Reason) == "" {
		return fmt.Errorf("reward entry reason is required")
	}
	if strings.TrimSpace(record.Source) == "" {
		return fmt.Errorf("reward entry source is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO reward_entries (
	id, owner, amount, reason, source, goal_id, achievement_id, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`,
		record.ID,
		record.Owner,
		record.Amount,
		record.Reason,
		record.Source,
		record.GoalID,
		record.AchievementID,
		toMillis(record.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("append reward entry: %w", err)
	}
	return nil
}

// ListRewardEntries returns all ledger entries for an owner in append order.
func (s *Store) ListRewardEntries(ctx context.Context, owner string) ([]storage.RewardEntryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, owner, amount, reason, source, goal_id, achievement_id, created_at
FROM reward_entries WHERE owner = ?
ORDER BY created_at, id
`, owner)
	if err != nil {
		return nil, fmt.Errorf("list reward entries: %w", err)
	}
	defer rows.Close()

	var records []storage.RewardEntryRecord
	for rows.Next() {
		var (
			rec       storage.RewardEntryRecord
			createdAt int64
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.Owner,
			&rec.Amount,
			&rec.Reason,
			&rec.Source,
			&rec.GoalID,
			&rec.AchievementID,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan reward entry: %w", err)
		}
		rec.CreatedAt = fromMillis(createdAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reward entries: %w", err)
	}
	return records, nil
}

// SumRewardEntries returns the owner balance as the sum of signed amounts.
func (s *Store) SumRewardEntries(ctx context.Context, owner string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}

	var total sql.NullInt64
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT SUM(amount) FROM reward_entries WHERE owner = ?
`, owner)
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("sum reward entries: %w", err)
	}
	if !total.Valid {
		return 0, nil
	}
	return total.Int64, nil
}
