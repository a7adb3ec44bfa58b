// Package timeouts defines shared timeout constants used across the service.
// Centralizing these values prevents drift between collaborator boundaries
// and makes the durations discoverable.
package timeouts

import "time"

// SagaStep caps the time allowed for a single materialization step against
// an external collaborator.
const SagaStep = 30 * time.Second

// CollaboratorRequest caps a single HTTP request to the board or planner.
const CollaboratorRequest = 15 * time.Second

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long servers wait for in-flight requests during
// graceful shutdown.
const Shutdown = 5 * time.Second
