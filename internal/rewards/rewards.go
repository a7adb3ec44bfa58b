// Package rewards maintains the append-only reward ledger, the balance
// cache, and idempotent achievement unlocking.
package rewards

import (
	"strings"
	"time"

	apperrors "github.com/shxuryaaz/agilow-goal-forge/internal/platform/errors"
)

var (
	// ErrZeroAmount indicates a ledger entry with no amount.
	ErrZeroAmount = apperrors.New(apperrors.CodeRewardZeroAmount, "reward amount must be non-zero")
	// ErrEmptyReason indicates a ledger entry without a reason.
	ErrEmptyReason = apperrors.New(apperrors.CodeRewardEmptyReason, "reward reason is required")
)

// Source categorizes where a ledger entry came from.
const (
	SourceGoalCreation   = "goal_creation"
	SourceWeekCompletion = "week_completion"
	SourceGoalCompletion = "goal_completion"
	SourceAchievement    = "achievement"
	SourceReconciliation = "reconciliation"
)

// Fixed grant amounts.
const (
	CreationReward       int64 = 50
	WeekCompletionReward int64 = 10
	GoalCompletionReward int64 = 100
)

// DefaultLevelSize is the balance span of one level.
const DefaultLevelSize int64 = 100

// Entry is one append-only reward ledger entry.
type Entry struct {
	ID            string
	Owner         string
	Amount        int64
	Reason        string
	Source        string
	GoalID        string
	AchievementID string
	CreatedAt     time.Time
}

// GrantInput describes a reward grant before validation.
type GrantInput struct {
	Owner         string
	Amount        int64
	Reason        string
	Source        string
	GoalID        string
	AchievementID string
}

// NormalizeGrantInput trims and validates a grant.
func NormalizeGrantInput(input GrantInput) (GrantInput, error) {
	input.Owner = strings.TrimSpace(input.Owner)
	if input.Owner == "" {
		return GrantInput{}, apperrors.New(apperrors.CodeSessionEmptyOwner, "reward owner is required")
	}
	if input.Amount == 0 {
		return GrantInput{}, ErrZeroAmount
	}
	input.Reason = strings.TrimSpace(input.Reason)
	if input.Reason == "" {
		return GrantInput{}, ErrEmptyReason
	}
	return input, nil
}

// Level converts a cumulative balance into a level. Negative balances
// stay at level one.
func Level(balance, levelSize int64) int64 {
	if levelSize <= 0 {
		levelSize = DefaultLevelSize
	}
	if balance < 0 {
		balance = 0
	}
	return balance/levelSize + 1
}
