package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shxuryaaz/agilow-goal-forge/internal/storage"
)

// InsertCredentialIfAbsent inserts the credential unless one already exists
// for the same (goal, owner address). The UNIQUE constraint enforces the
// one-per-goal invariant; a repeat mint returns the original record.
func (s *Store) InsertCredentialIfAbsent(ctx context.Context, record storage.CredentialRecord) (storage.CredentialRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return storage.CredentialRecord{}, false, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.CredentialRecord{}, false, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(record.ID) == "" {
		return storage.CredentialRecord{}, false, fmt.Errorf("credential id is required")
	}
	if strings.TrimSpace(record.OwnerAddress) == "" {
		return storage.CredentialRecord{}, false, fmt.Errorf("credential owner address is required")
	}
	if strings.TrimSpace(record.GoalID) == "" {
		return storage.CredentialRecord{}, false, fmt.Errorf("credential goal id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
INSERT OR IGNORE INTO credentials (
	id, owner_address, goal_id, metadata_uri, mint_tx, minted_at
) VALUES (?, ?, ?, ?, ?, ?)
`,
		record.ID,
		record.OwnerAddress,
		record.GoalID,
		record.MetadataURI,
		record.MintTx,
		toMillis(record.MintedAt),
	)
	if err != nil {
		return storage.CredentialRecord{}, false, fmt.Errorf("insert credential: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storage.CredentialRecord{}, false, fmt.Errorf("insert credential rows: %w", err)
	}

	stored, err := s.GetCredentialByGoal(ctx, record.GoalID, record.OwnerAddress)
	if err != nil {
		return storage.CredentialRecord{}, false, err
	}
	return stored, affected == 1, nil
}

// GetCredentialByGoal fetches the credential minted for a goal and address.
func (s *Store) GetCredentialByGoal(ctx context.Context, goalID, ownerAddress string) (storage.CredentialRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.CredentialRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.CredentialRecord{}, fmt.Errorf("storage is not configured")
	}

	var (
		rec      storage.CredentialRecord
		mintedAt int64
	)
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, owner_address, goal_id, metadata_uri, mint_tx, minted_at
FROM credentials WHERE goal_id = ? AND owner_address = ?
`, goalID, ownerAddress)
	if err := row.Scan(&rec.ID, &rec.OwnerAddress, &rec.GoalID, &rec.MetadataURI, &rec.MintTx, &mintedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.CredentialRecord{}, storage.ErrNotFound
		}
		return storage.CredentialRecord{}, fmt.Errorf("scan credential: %w", err)
	}
	rec.MintedAt = fromMillis(mintedAt)
	return rec, nil
}
