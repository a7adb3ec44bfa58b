package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/shxuryaaz/agilow-goal-forge/internal/storage"
)

// AppendMessage appends one message to a session log.
func (s *Store) AppendMessage(ctx context.Context, record storage.MessageRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("message id is required")
	}
	if strings.TrimSpace(record.SessionID) == "" {
		return fmt.Errorf("message session id is required")
	}
	if strings.TrimSpace(record.Author) == "" {
		return fmt.Errorf("message author is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO session_messages (id, session_id, author, text, created_at)
VALUES (?, ?, ?, ?, ?)
`,
		record.ID,
		record.SessionID,
		record.Author,
		record.Text,
		toMillis(record.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// ListMessages returns messages for a session in chronological order.
// A limit of zero or less returns all messages.
func (s *Store) ListMessages(ctx context.Context, sessionID string, limit int) ([]storage.MessageRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	query := `
SELECT id, session_id, author, text, created_at
FROM session_messages WHERE session_id = ?
ORDER BY created_at, id
`
	args := []any{sessionID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var records []storage.MessageRecord
	for rows.Next() {
		var (
			rec       storage.MessageRecord
			createdAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Author, &rec.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		rec.CreatedAt = fromMillis(createdAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return records, nil
}
