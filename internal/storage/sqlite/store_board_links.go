package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shxuryaaz/agilow-goal-forge/internal/storage"
)

// PutBoardLink stores the board collaborator link token for an owner. A new
// link replaces the previous one and clears any invalidation marker.
func (s *Store) PutBoardLink(ctx context.Context, record storage.BoardLinkRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(record.Owner) == "" {
		return fmt.Errorf("board link owner is required")
	}
	if strings.TrimSpace(record.Token) == "" {
		return fmt.Errorf("board link token is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO board_links (owner, token, linked_at, invalidated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(owner) DO UPDATE SET
	token = excluded.token,
	linked_at = excluded.linked_at,
	invalidated_at = excluded.invalidated_at
`,
		record.Owner,
		record.Token,
		toMillis(record.LinkedAt),
		toNullMillis(record.InvalidatedAt),
	)
	if err != nil {
		return fmt.Errorf("put board link: %w", err)
	}
	return nil
}

// GetBoardLink fetches the board link record for an owner.
func (s *Store) GetBoardLink(ctx context.Context, owner string) (storage.BoardLinkRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.BoardLinkRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.BoardLinkRecord{}, fmt.Errorf("storage is not configured")
	}

	var (
		rec           storage.BoardLinkRecord
		linkedAt      int64
		invalidatedAt sql.NullInt64
	)
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT owner, token, linked_at, invalidated_at FROM board_links WHERE owner = ?
`, owner)
	if err := row.Scan(&rec.Owner, &rec.Token, &linkedAt, &invalidatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.BoardLinkRecord{}, storage.ErrNotFound
		}
		return storage.BoardLinkRecord{}, fmt.Errorf("scan board link: %w", err)
	}
	rec.LinkedAt = fromMillis(linkedAt)
	rec.InvalidatedAt = fromNullMillis(invalidatedAt)
	return rec, nil
}

// InvalidateBoardLink marks the owner link as expired.
func (s *Store) InvalidateBoardLink(ctx context.Context, owner string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
UPDATE board_links SET invalidated_at = ? WHERE owner = ?
`, toMillis(at), owner)
	if err != nil {
		return fmt.Errorf("invalidate board link: %w", err)
	}
	return nil
}
