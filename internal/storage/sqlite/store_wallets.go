package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shxuryaaz/agilow-goal-forge/internal/storage"
)

// PutWallet persists the public wallet record for an owner. Only the
// address and creation time are stored; recovery phrases never reach
// storage.
func (s *Store) PutWallet(ctx context.Context, record storage.WalletRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(record.Owner) == "" {
		return fmt.Errorf("wallet owner is required")
	}
	if strings.TrimSpace(record.Address) == "" {
		return fmt.Errorf("wallet address is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO wallets (owner, address, created_at)
VALUES (?, ?, ?)
ON CONFLICT(owner) DO UPDATE SET
	address = excluded.address
`,
		record.Owner,
		record.Address,
		toMillis(record.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("put wallet: %w", err)
	}
	return nil
}

// GetWallet fetches the wallet record for an owner.
func (s *Store) GetWallet(ctx context.Context, owner string) (storage.WalletRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.WalletRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.WalletRecord{}, fmt.Errorf("storage is not configured")
	}

	var (
		rec       storage.WalletRecord
		createdAt int64
	)
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT owner, address, created_at FROM wallets WHERE owner = ?
`, owner)
	if err := row.Scan(&rec.Owner, &rec.Address, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.WalletRecord{}, storage.ErrNotFound
		}
		return storage.WalletRecord{}, fmt.Errorf("scan wallet: %w", err)
	}
	rec.CreatedAt = fromMillis(createdAt)
	return rec, nil
}
