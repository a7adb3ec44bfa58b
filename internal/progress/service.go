package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shxuryaaz/agilow-goal-forge/internal/board"
	"github.com/shxuryaaz/agilow-goal-forge/internal/certificate"
	"github.com/shxuryaaz/agilow-goal-forge/internal/goal"
	"github.com/shxuryaaz/agilow-goal-forge/internal/platform/id"
	"github.com/shxuryaaz/agilow-goal-forge/internal/rewards"
	"github.com/shxuryaaz/agilow-goal-forge/internal/storage"
	"github.com/shxuryaaz/agilow-goal-forge/internal/telemetry"
)

// InterpretFunc maps a message plus board snapshot onto an Outcome.
// The default wraps the rule table; a planner-backed function may be
// injected instead.
type InterpretFunc func(ctx context.Context, message string, snapshot board.Snapshot) (Outcome, error)

// AdapterResolver resolves a per-owner board adapter.
type AdapterResolver interface {
	AdapterFor(ctx context.Context, owner string) (board.Adapter, error)
	HandleAdapterError(ctx context.Context, owner string, err error) error
}

// earlyBirdMargin is how far ahead of the card due date a completion
// must land to count as early.
const earlyBirdMargin = 48 * time.Hour

// Service applies interpreted progress to the board, the goal record and
// the reward ledger.
type Service struct {
	goals       storage.GoalStore
	boards      AdapterResolver
	rewards     *rewards.Service
	interpret   InterpretFunc
	telemetry   *telemetry.Emitter
	clock       func() time.Time
	idGenerator func() (string, error)
}

// NewService creates a progress service.
func NewService(goals storage.GoalStore, boards AdapterResolver, rewardService *rewards.Service, emitter *telemetry.Emitter) *Service {
	return &Service{
		goals:   goals,
		boards:  boards,
		rewards: rewardService,
		interpret: func(_ context.Context, message string, _ board.Snapshot) (Outcome, error) {
			return Interpret(message), nil
		},
		telemetry:   emitter,
		clock:       time.Now,
		idGenerator: id.NewID,
	}
}

// WithInterpreter overrides the interpretation function.
func (s *Service) WithInterpreter(interpret InterpretFunc) *Service {
	if interpret != nil {
		s.interpret = interpret
	}
	return s
}

// WithClock overrides the service clock.
func (s *Service) WithClock(clock func() time.Time) *Service {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// WithIDGenerator overrides the service id generator.
func (s *Service) WithIDGenerator(idGenerator func() (string, error)) *Service {
	if idGenerator != nil {
		s.idGenerator = idGenerator
	}
	return s
}

// HandleMessage interprets one free-text progress message for the owner
// and applies its outcome. The returned string is the reply to show.
func (s *Service) HandleMessage(ctx context.Context, owner, message string) (string, error) {
	goalRecord, err := s.goals.GetActiveGoalByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "You have no active goal yet. Tell me what you want to achieve and we can forge one.", nil
		}
		return "", fmt.Errorf("load active goal: %w", err)
	}

	adapter, err := s.boards.AdapterFor(ctx, owner)
	if err != nil {
		if errors.Is(err, board.ErrNotLinked) {
			return "Your board link has expired. Re-link your board account and try again.", nil
		}
		return "", fmt.Errorf("resolve board adapter: %w", err)
	}

	snapshot, err := adapter.ListBoard(ctx, goalRecord.BoardID)
	if err != nil {
		if handleErr := s.boards.HandleAdapterError(ctx, owner, err); errors.Is(handleErr, board.ErrAuthExpired) {
			return "Your board link has expired. Re-link your board account and try again.", nil
		}
		return "", fmt.Errorf("load board snapshot: %w", err)
	}

	outcome, err := s.interpret(ctx, message, snapshot)
	if err != nil {
		return "", fmt.Errorf("interpret progress: %w", err)
	}

	switch outcome.Kind {
	case KindStartWeek:
		return s.applyStart(ctx, owner, adapter, snapshot, outcome)
	case KindCompleteWeek:
		return s.applyComplete(ctx, owner, adapter, snapshot, goalRecord, outcome)
	default:
		return outcome.Reply, nil
	}
}

// applyStart moves the week card from To Do to Doing.
func (s *Service) applyStart(ctx context.Context, owner string, adapter board.Adapter, snapshot board.Snapshot, outcome Outcome) (string, error) {
	todo, ok := snapshot.FindList(board.ListToDo)
	if !ok {
		return neutralReply(outcome.Week), nil
	}
	doing, ok := snapshot.FindList(board.ListDoing)
	if !ok {
		return neutralReply(outcome.Week), nil
	}

	card, ok := FindWeekCard(todo, outcome.Week)
	if !ok {
		return neutralReply(outcome.Week), nil
	}

	if err := adapter.MoveCard(ctx, card.ID, doing.ID); err != nil {
		if handleErr := s.boards.HandleAdapterError(ctx, owner, err); errors.Is(handleErr, board.ErrAuthExpired) {
			return "Your board link has expired. Re-link your board account and try again.", nil
		}
		return "", fmt.Errorf("move card to doing: %w", err)
	}
	return outcome.Reply, nil
}

// applyComplete moves the week card from Doing to Done, grants the
// completion reward, and handles goal completion.
func (s *Service) applyComplete(ctx context.Context, owner string, adapter board.Adapter, snapshot board.Snapshot, goalRecord storage.GoalRecord, outcome Outcome) (string, error) {
	doing, ok := snapshot.FindList(board.ListDoing)
	if !ok {
		return neutralReply(outcome.Week), nil
	}
	done, ok := snapshot.FindList(board.ListDone)
	if !ok {
		return neutralReply(outcome.Week), nil
	}

	card, ok := FindWeekCard(doing, outcome.Week)
	if !ok {
		return neutralReply(outcome.Week), nil
	}

	if err := adapter.MoveCard(ctx, card.ID, done.ID); err != nil {
		if handleErr := s.boards.HandleAdapterError(ctx, owner, err); errors.Is(handleErr, board.ErrAuthExpired) {
			return "Your board link has expired. Re-link your board account and try again.", nil
		}
		return "", fmt.Errorf("move card to done: %w", err)
	}

	reply := outcome.Reply
	now := s.clock().UTC()

	if _, err := s.rewards.GrantOptimistic(ctx, rewards.GrantInput{
		Owner:  owner,
		Amount: rewards.WeekCompletionReward,
		Reason: fmt.Sprintf("completed week %d", outcome.Week),
		Source: rewards.SourceWeekCompletion,
		GoalID: goalRecord.ID,
	}); err != nil {
		s.telemetry.EmitEvent(ctx, "progress.reward_failed", telemetry.SeverityWarn, map[string]string{
			"owner": owner,
			"goal":  goalRecord.ID,
		})
	} else {
		goalRecord.RewardTotal += rewards.WeekCompletionReward
		reply += fmt.Sprintf(" You earned %d XP.", rewards.WeekCompletionReward)
	}

	doneCount := 0
	for i := range goalRecord.Weeks {
		if goalRecord.Weeks[i].Week == outcome.Week {
			goalRecord.Weeks[i].Done = true
		}
		if goalRecord.Weeks[i].Done {
			doneCount++
		}
	}
	goalRecord.UpdatedAt = now

	if doneCount == 1 {
		if _, created, err := s.rewards.Unlock(ctx, owner, rewards.AchievementFirstWeekDone, goalRecord.ID); err == nil && created {
			reply += " Achievement unlocked: first week down!"
		}
	}
	if card.Due != nil && now.Add(earlyBirdMargin).Before(card.Due.UTC()) {
		if _, created, err := s.rewards.Unlock(ctx, owner, rewards.AchievementEarlyBird, goalRecord.ID); err == nil && created {
			reply += " Achievement unlocked: ahead of schedule!"
		}
	}

	if doneCount == len(goalRecord.Weeks) && len(goalRecord.Weeks) > 0 {
		completionReply, err := s.completeGoal(ctx, owner, &goalRecord, now)
		if err != nil {
			return "", err
		}
		reply += completionReply
	}

	if err := s.goals.PutGoal(ctx, goalRecord); err != nil {
		return "", fmt.Errorf("update goal: %w", err)
	}
	return reply, nil
}

// completeGoal marks the goal completed, grants the completion bonus,
// unlocks the achievement and issues the completion certificate.
func (s *Service) completeGoal(ctx context.Context, owner string, goalRecord *storage.GoalRecord, now time.Time) (string, error) {
	goalRecord.Status = goal.StatusLabel(goal.StatusCompleted)
	goalRecord.CompletedAt = &now

	reply := " That was the last week. Your goal is complete!"

	if _, err := s.rewards.GrantOptimistic(ctx, rewards.GrantInput{
		Owner:  owner,
		Amount: rewards.GoalCompletionReward,
		Reason: "goal completed",
		Source: rewards.SourceGoalCompletion,
		GoalID: goalRecord.ID,
	}); err == nil {
		goalRecord.RewardTotal += rewards.GoalCompletionReward
		reply += fmt.Sprintf(" Completion bonus: %d XP.", rewards.GoalCompletionReward)
	}

	if _, created, err := s.rewards.Unlock(ctx, owner, rewards.AchievementGoalCompleted, goalRecord.ID); err == nil && created {
		reply += " Achievement unlocked: goal completed!"
	}

	cert, err := certificate.Issue(owner, goalRecord.ID, goalRecord.Title, certificate.KindCompletion, s.clock, s.idGenerator)
	if err != nil {
		s.telemetry.EmitEvent(ctx, "progress.certificate_failed", telemetry.SeverityWarn, map[string]string{
			"owner": owner,
			"goal":  goalRecord.ID,
		})
	} else {
		goalRecord.CertificateID = cert.ID
		reply += fmt.Sprintf(" Your completion certificate code is %s.", cert.VerificationCode)
	}

	s.telemetry.EmitEvent(ctx, "goal.completed", telemetry.SeverityInfo, map[string]string{
		"owner": owner,
		"goal":  goalRecord.ID,
	})
	return reply, nil
}

// neutralReply acknowledges a message whose week card was not found.
func neutralReply(week int) string {
	if week > 0 {
		return fmt.Sprintf("I could not find a matching card for week %d, so I left the board as is. Keep going!", week)
	}
	return "Got it. Keep me posted and tell me when you start or finish a week."
}
