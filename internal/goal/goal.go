// Package goal provides the tracked goal domain model.
package goal

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/shxuryaaz/agilow-goal-forge/internal/platform/errors"
	"github.com/shxuryaaz/agilow-goal-forge/internal/platform/id"
)

var (
	// ErrEmptyOwner indicates a missing goal owner.
	ErrEmptyOwner = apperrors.New(apperrors.CodeGoalEmptyOwner, "goal owner is required")
	// ErrEmptyTitle indicates a missing goal title.
	ErrEmptyTitle = apperrors.New(apperrors.CodeGoalEmptyTitle, "goal title is required")
	// ErrEmptyPlan indicates a plan with no weekly task groups.
	ErrEmptyPlan = apperrors.New(apperrors.CodeGoalEmptyPlan, "goal plan needs at least one week")
)

// Status represents the lifecycle status of a goal.
type Status int

const (
	// StatusUnspecified represents an invalid goal status.
	StatusUnspecified Status = iota
	// StatusActive indicates a goal being tracked.
	StatusActive
	// StatusCompleted indicates every weekly group is done.
	StatusCompleted
	// StatusPaused indicates tracking is suspended.
	StatusPaused
)

// WeekGroup is one week of a goal plan: a theme and its tasks, plus the
// board card tracking it once provisioned.
type WeekGroup struct {
	Week   int
	Theme  string
	Tasks  []string
	CardID string
	Done   bool
}

// Goal represents a materialized multi-week goal.
type Goal struct {
	ID            string
	Owner         string
	Title         string
	Description   string
	Weeks         []WeekGroup
	Status        Status
	RewardTotal   int64
	BoardID       string
	CredentialID  string
	CertificateID string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

// CreateGoalInput describes the metadata needed to create a goal.
type CreateGoalInput struct {
	Owner       string
	Title       string
	Description string
	Weeks       []WeekGroup
}

// CreateGoal creates an active goal with a generated ID and timestamps.
func CreateGoal(input CreateGoalInput, now func() time.Time, idGenerator func() (string, error)) (Goal, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateGoalInput(input)
	if err != nil {
		return Goal{}, err
	}

	goalID, err := idGenerator()
	if err != nil {
		return Goal{}, fmt.Errorf("generate goal id: %w", err)
	}

	createdAt := now().UTC()
	return Goal{
		ID:          goalID,
		Owner:       normalized.Owner,
		Title:       normalized.Title,
		Description: normalized.Description,
		Weeks:       normalized.Weeks,
		Status:      StatusActive,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}, nil
}

// NormalizeCreateGoalInput trims and validates goal input metadata.
func NormalizeCreateGoalInput(input CreateGoalInput) (CreateGoalInput, error) {
	input.Owner = strings.TrimSpace(input.Owner)
	if input.Owner == "" {
		return CreateGoalInput{}, ErrEmptyOwner
	}
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return CreateGoalInput{}, ErrEmptyTitle
	}
	input.Description = strings.TrimSpace(input.Description)
	if len(input.Weeks) == 0 {
		return CreateGoalInput{}, ErrEmptyPlan
	}
	return input, nil
}

// AllWeeksDone reports whether every weekly group is marked done.
func (g Goal) AllWeeksDone() bool {
	if len(g.Weeks) == 0 {
		return false
	}
	for _, week := range g.Weeks {
		if !week.Done {
			return false
		}
	}
	return true
}

// FindWeek returns the index of the week group with the given number, or -1.
func (g Goal) FindWeek(week int) int {
	for i := range g.Weeks {
		if g.Weeks[i].Week == week {
			return i
		}
	}
	return -1
}

// StatusLabel returns the string label for a goal status.
func StatusLabel(status Status) string {
	switch status {
	case StatusActive:
		return "ACTIVE"
	case StatusCompleted:
		return "COMPLETED"
	case StatusPaused:
		return "PAUSED"
	default:
		return "UNSPECIFIED"
	}
}

// StatusFromLabel converts a status label to a Status value.
func StatusFromLabel(label string) Status {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "ACTIVE":
		return StatusActive
	case "COMPLETED":
		return StatusCompleted
	case "PAUSED":
		return StatusPaused
	default:
		return StatusUnspecified
	}
}
