package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/shxuryaaz/agilow-goal-forge/internal/storage"
)

// AppendTelemetryEvent appends one operational telemetry event.
func (s *Store) AppendTelemetryEvent(ctx context.Context, evt storage.TelemetryEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(evt.EventName) == "" {
		return fmt.Errorf("telemetry event name is required")
	}
	if strings.TrimSpace(evt.Severity) == "" {
		evt.Severity = "INFO"
	}

	attributes, err := encodeJSON(evt.Attributes)
	if err != nil {
		return fmt.Errorf("encode telemetry attributes: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO telemetry_events (event_name, severity, attributes, timestamp)
VALUES (?, ?, ?, ?)
`,
		evt.EventName,
		evt.Severity,
		attributes,
		toMillis(evt.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("append telemetry event: %w", err)
	}
	return nil
}
