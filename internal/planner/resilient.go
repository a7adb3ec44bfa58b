package planner

import (
	"context"

	"github.com/shxuryaaz/agilow-goal-forge/internal/board"
	"github.com/shxuryaaz/agilow-goal-forge/internal/progress"
	"github.com/shxuryaaz/agilow-goal-forge/internal/telemetry"
)

// Resilient wraps a primary planner with the deterministic fallback so
// that a failing or unconfigured collaborator never blocks goal
// creation.
type Resilient struct {
	primary   Planner
	fallback  *Fallback
	telemetry *telemetry.Emitter
}

// NewResilient creates a resilient planner. primary may be nil.
func NewResilient(primary Planner, emitter *telemetry.Emitter) *Resilient {
	// A typed nil would dodge the primary == nil checks below.
	if p, ok := primary.(*OpenAIPlanner); ok && p == nil {
		primary = nil
	}
	return &Resilient{
		primary:   primary,
		fallback:  NewFallback(),
		telemetry: emitter,
	}
}

func (r *Resilient) degraded(ctx context.Context, operation string, err error) {
	r.telemetry.EmitEvent(ctx, "planner.fallback", telemetry.SeverityWarn, map[string]string{
		"operation": operation,
		"error":     err.Error(),
	})
}

// GenerateQuestions prefers the primary planner, then the fallback.
func (r *Resilient) GenerateQuestions(ctx context.Context, initialGoal string) ([]string, error) {
	if r.primary != nil {
		questions, err := r.primary.GenerateQuestions(ctx, initialGoal)
		if err == nil {
			return questions, nil
		}
		r.degraded(ctx, "generate_questions", err)
	}
	return r.fallback.GenerateQuestions(ctx, initialGoal)
}

// StructurePlan prefers the primary planner, then the fallback.
func (r *Resilient) StructurePlan(ctx context.Context, answers SlotAnswers) (Plan, error) {
	if r.primary != nil {
		plan, err := r.primary.StructurePlan(ctx, answers)
		if err == nil {
			return plan, nil
		}
		r.degraded(ctx, "structure_plan", err)
	}
	return r.fallback.StructurePlan(ctx, answers)
}

// GenerateVisionArtifact only works with a primary planner; the
// deterministic fallback has no artifact source.
func (r *Resilient) GenerateVisionArtifact(ctx context.Context, answers SlotAnswers) (string, error) {
	if r.primary == nil {
		return "", ErrUnavailable
	}
	return r.primary.GenerateVisionArtifact(ctx, answers)
}

// InterpretProgress prefers the primary planner, then the rule table.
func (r *Resilient) InterpretProgress(ctx context.Context, message string, snapshot board.Snapshot) (progress.Outcome, error) {
	if r.primary != nil {
		outcome, err := r.primary.InterpretProgress(ctx, message, snapshot)
		if err == nil {
			return outcome, nil
		}
		r.degraded(ctx, "interpret_progress", err)
	}
	return r.fallback.InterpretProgress(ctx, message, snapshot)
}

var _ Planner = (*Resilient)(nil)
