package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shxuryaaz/agilow-goal-forge/internal/storage"
)

// InsertAchievementIfAbsent inserts the record unless one with the same
// (owner, type) already exists. The UNIQUE constraint plus INSERT OR IGNORE
// makes the unlock idempotent under concurrent grants.
func (s *Store) InsertAchievementIfAbsent(ctx context.Context, record storage.AchievementRecord) (storage.AchievementRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return storage.AchievementRecord{}, false, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.AchievementRecord{}, false, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(record.ID) == "" {
		return storage.AchievementRecord{}, false, fmt.Errorf("achievement id is required")
	}
	if strings.TrimSpace(record.Owner) == "" {
		return storage.AchievementRecord{}, false, fmt.Errorf("achievement owner is required")
	}
	if strings.TrimSpace(record.Type) == "" {
		return storage.AchievementRecord{}, false, fmt.Errorf("achievement type is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
INSERT OR IGNORE INTO achievements (
	id, owner, type, rarity, reward_amount, credential_minted, unlocked_at
) VALUES (?, ?, ?, ?, ?, ?, ?)
`,
		record.ID,
		record.Owner,
		record.Type,
		record.Rarity,
		record.RewardAmount,
		boolToInt(record.CredentialMinted),
		toMillis(record.UnlockedAt),
	)
	if err != nil {
		return storage.AchievementRecord{}, false, fmt.Errorf("insert achievement: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storage.AchievementRecord{}, false, fmt.Errorf("insert achievement rows: %w", err)
	}

	stored, err := s.GetAchievement(ctx, record.Owner, record.Type)
	if err != nil {
		return storage.AchievementRecord{}, false, err
	}
	return stored, affected == 1, nil
}

// GetAchievement fetches an achievement by (owner, type).
func (s *Store) GetAchievement(ctx context.Context, owner, achievementType string) (storage.AchievementRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.AchievementRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.AchievementRecord{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, owner, type, rarity, reward_amount, credential_minted, unlocked_at
FROM achievements WHERE owner = ? AND type = ?
`, owner, achievementType)
	return scanAchievementRow(row)
}

// ListAchievements returns all achievements for an owner in unlock order.
func (s *Store) ListAchievements(ctx context.Context, owner string) ([]storage.AchievementRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, owner, type, rarity, reward_amount, credential_minted, unlocked_at
FROM achievements WHERE owner = ?
ORDER BY unlocked_at, id
`, owner)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	defer rows.Close()

	var records []storage.AchievementRecord
	for rows.Next() {
		var (
			rec        storage.AchievementRecord
			minted     int
			unlockedAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.Owner, &rec.Type, &rec.Rarity, &rec.RewardAmount, &minted, &unlockedAt); err != nil {
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		rec.CredentialMinted = minted != 0
		rec.UnlockedAt = fromMillis(unlockedAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate achievements: %w", err)
	}
	return records, nil
}

func scanAchievementRow(row *sql.Row) (storage.AchievementRecord, error) {
	var (
		rec        storage.AchievementRecord
		minted     int
		unlockedAt int64
	)
	err := row.Scan(&rec.ID, &rec.Owner, &rec.Type, &rec.Rarity, &rec.RewardAmount, &minted, &unlockedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.AchievementRecord{}, storage.ErrNotFound
		}
		return storage.AchievementRecord{}, fmt.Errorf("scan achievement: %w", err)
	}
	rec.CredentialMinted = minted != 0
	rec.UnlockedAt = fromMillis(unlockedAt)
	return rec, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
