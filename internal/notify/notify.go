// Package notify defines the notification surface for user-facing messages.
// Transport is deliberately unspecified; the default sink is the process log.
package notify

import (
	"context"
	"log"
)

// Severity classifies a notification for the delivery surface.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notifier delivers a message to an owner.
type Notifier interface {
	Notify(ctx context.Context, owner, message string, severity Severity)
}

// LogNotifier writes notifications to the process log.
type LogNotifier struct{}

// Notify implements Notifier.
func (LogNotifier) Notify(_ context.Context, owner, message string, severity Severity) {
	log.Printf("notify %s [%s]: %s", owner, severity, message)
}
