package planner

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shxuryaaz/agilow-goal-forge/internal/board"
	"github.com/shxuryaaz/agilow-goal-forge/internal/goal"
	"github.com/shxuryaaz/agilow-goal-forge/internal/progress"
)

// Fallback is a deterministic planner used when no collaborator is
// configured or the collaborator fails. It never blocks goal creation.
type Fallback struct{}

// NewFallback creates the deterministic planner.
func NewFallback() *Fallback {
	return &Fallback{}
}

// GenerateQuestions returns the five canonical follow-up prompts.
func (f *Fallback) GenerateQuestions(_ context.Context, initialGoal string) ([]string, error) {
	initialGoal = strings.TrimSpace(initialGoal)
	if initialGoal == "" {
		initialGoal = "your goal"
	}
	return []string{
		fmt.Sprintf("Why does %q matter to you?", initialGoal),
		"When do you want to reach it?",
		"Where will you work on it?",
		"Who is involved or supporting you?",
		"How do you plan to get there?",
	}, nil
}

var durationPattern = regexp.MustCompile(`(?i)(\d+)\s*(week|month)`)

const (
	defaultPlanWeeks = 4
	maxPlanWeeks     = 12
)

// planWeeksFromAnswer derives the plan length from the "when" answer.
func planWeeksFromAnswer(when string) int {
	match := durationPattern.FindStringSubmatch(when)
	if match == nil {
		return defaultPlanWeeks
	}
	n, err := strconv.Atoi(match[1])
	if err != nil || n <= 0 {
		return defaultPlanWeeks
	}
	if strings.EqualFold(match[2], "month") {
		n *= 4
	}
	if n > maxPlanWeeks {
		return maxPlanWeeks
	}
	return n
}

// StructurePlan builds a generic phased plan from the slot answers.
func (f *Fallback) StructurePlan(_ context.Context, answers SlotAnswers) (Plan, error) {
	title := strings.TrimSpace(answers.What)
	if title == "" {
		title = "Untitled goal"
	}

	weekCount := planWeeksFromAnswer(answers.When)
	weeks := make([]goal.WeekGroup, 0, weekCount)
	for week := 1; week <= weekCount; week++ {
		theme := "Build momentum"
		switch {
		case week == 1:
			theme = "Get started"
		case week == weekCount:
			theme = "Finish strong"
		case week > weekCount/2:
			theme = "Push through"
		}
		weeks = append(weeks, goal.WeekGroup{
			Week:  week,
			Theme: theme,
			Tasks: []string{
				fmt.Sprintf("Plan the week around: %s", title),
				fmt.Sprintf("Work on it using your approach: %s", strings.TrimSpace(answers.How)),
				"Note one win and one blocker",
			},
		})
	}

	description := strings.TrimSpace(fmt.Sprintf(
		"Goal: %s. Why: %s. Target: %s.", title,
		strings.TrimSpace(answers.Why), strings.TrimSpace(answers.When)))

	return Plan{Title: title, Description: description, Weeks: weeks}, nil
}

// GenerateVisionArtifact has no artifact source; the saga treats the
// empty URL as a skipped step.
func (f *Fallback) GenerateVisionArtifact(_ context.Context, _ SlotAnswers) (string, error) {
	return "", ErrUnavailable
}

// InterpretProgress delegates to the deterministic rule table.
func (f *Fallback) InterpretProgress(_ context.Context, message string, _ board.Snapshot) (progress.Outcome, error) {
	return progress.Interpret(message), nil
}

var _ Planner = (*Fallback)(nil)
