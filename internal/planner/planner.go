// Package planner defines the planning collaborator contract: turning
// slot answers into a structured weekly plan, a vision artifact, and
// interpreted progress.
package planner

import (
	"context"

	"github.com/shxuryaaz/agilow-goal-forge/internal/board"
	"github.com/shxuryaaz/agilow-goal-forge/internal/goal"
	apperrors "github.com/shxuryaaz/agilow-goal-forge/internal/platform/errors"
	"github.com/shxuryaaz/agilow-goal-forge/internal/progress"
)

var (
	// ErrUnavailable indicates the collaborator could not be reached.
	ErrUnavailable = apperrors.New(apperrors.CodePlannerUnavailable, "planning collaborator is unavailable")
	// ErrBadPlan indicates the collaborator reply could not be parsed
	// into a usable plan.
	ErrBadPlan = apperrors.New(apperrors.CodePlannerBadPlan, "planning collaborator returned a malformed plan")
)

// SlotAnswers carries the six answered dialogue slots.
type SlotAnswers struct {
	What  string
	Why   string
	When  string
	Where string
	Who   string
	How   string
}

// Plan is a structured multi-week plan for one goal.
type Plan struct {
	Title       string
	Description string
	Weeks       []goal.WeekGroup
}

// Planner is the planning collaborator contract.
type Planner interface {
	// GenerateQuestions returns the five follow-up prompts for an
	// initial goal statement.
	GenerateQuestions(ctx context.Context, initialGoal string) ([]string, error)
	// StructurePlan turns slot answers into a weekly plan.
	StructurePlan(ctx context.Context, answers SlotAnswers) (Plan, error)
	// GenerateVisionArtifact returns a motivational artifact URL.
	GenerateVisionArtifact(ctx context.Context, answers SlotAnswers) (string, error)
	// InterpretProgress maps a free-text progress message onto an
	// outcome, given the current board snapshot.
	InterpretProgress(ctx context.Context, message string, snapshot board.Snapshot) (progress.Outcome, error)
}
