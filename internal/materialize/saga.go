// Package materialize runs the goal materialization saga: the ordered,
// partially failure-tolerant workflow that turns six slot answers into an
// active tracked goal.
package materialize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shxuryaaz/agilow-goal-forge/internal/board"
	"github.com/shxuryaaz/agilow-goal-forge/internal/certificate"
	"github.com/shxuryaaz/agilow-goal-forge/internal/credential"
	"github.com/shxuryaaz/agilow-goal-forge/internal/goal"
	"github.com/shxuryaaz/agilow-goal-forge/internal/identity"
	"github.com/shxuryaaz/agilow-goal-forge/internal/notify"
	"github.com/shxuryaaz/agilow-goal-forge/internal/planner"
	"github.com/shxuryaaz/agilow-goal-forge/internal/platform/id"
	"github.com/shxuryaaz/agilow-goal-forge/internal/platform/timeouts"
	"github.com/shxuryaaz/agilow-goal-forge/internal/rewards"
	"github.com/shxuryaaz/agilow-goal-forge/internal/storage"
	"github.com/shxuryaaz/agilow-goal-forge/internal/telemetry"
)

// boardResolver resolves a per-owner board adapter and reacts to adapter
// failures, invalidating the stored link on auth expiry.
type boardResolver interface {
	AdapterFor(ctx context.Context, owner string) (board.Adapter, error)
	HandleAdapterError(ctx context.Context, owner string, err error) error
}

// Result is the saga outcome: the created goal (when board provisioning
// succeeded) and the consolidated message enumerating step outcomes.
type Result struct {
	GoalID  string
	Message string
}

// ErrAborted indicates a critical step failed; Result.Message still
// carries the remediation text.
var ErrAborted = errors.New("materialization aborted")

// Saga orchestrates the materialization steps.
type Saga struct {
	planner     planner.Planner
	boards      boardResolver
	goals       storage.GoalStore
	wallets     *identity.Service
	credentials *credential.Service
	rewards     *rewards.Service
	telemetry   *telemetry.Emitter
	notifier    notify.Notifier
	tracer      trace.Tracer
	clock       func() time.Time
	idGenerator func() (string, error)
	stepTimeout time.Duration
}

// NewSaga creates a materialization saga.
func NewSaga(p planner.Planner, boards boardResolver, goals storage.GoalStore, wallets *identity.Service, credentials *credential.Service, rewardService *rewards.Service, emitter *telemetry.Emitter) *Saga {
	return &Saga{
		planner:     p,
		boards:      boards,
		goals:       goals,
		wallets:     wallets,
		credentials: credentials,
		rewards:     rewardService,
		telemetry:   emitter,
		notifier:    notify.LogNotifier{},
		tracer:      otel.Tracer("goalforge/materialize"),
		clock:       time.Now,
		idGenerator: id.NewID,
		stepTimeout: timeouts.SagaStep,
	}
}

// WithClock overrides the saga clock.
func (s *Saga) WithClock(clock func() time.Time) *Saga {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// WithIDGenerator overrides the saga id generator.
func (s *Saga) WithIDGenerator(idGenerator func() (string, error)) *Saga {
	if idGenerator != nil {
		s.idGenerator = idGenerator
	}
	return s
}

// WithNotifier overrides the notification sink.
func (s *Saga) WithNotifier(notifier notify.Notifier) *Saga {
	if notifier != nil {
		s.notifier = notifier
	}
	return s
}

// step runs one bounded saga step inside a span.
func (s *Saga) step(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "materialize."+name)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.stepTimeout)
	defer cancel()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// outcome collects per-step results for the consolidated message.
type outcome struct {
	lines []string
}

func (o *outcome) ok(line string) {
	o.lines = append(o.lines, "[done] "+line)
}

func (o *outcome) skipped(line string) {
	o.lines = append(o.lines, "[skipped] "+line)
}

func (o *outcome) message(header string) string {
	return header + "\n" + strings.Join(o.lines, "\n")
}

// Run executes the saga for the owner. A critical step failure returns
// ErrAborted with remediation text in Result.Message; completed steps are
// not rolled back.
func (s *Saga) Run(ctx context.Context, owner string, answers planner.SlotAnswers) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "materialize.run",
		trace.WithAttributes(attribute.String("owner", owner)))
	defer span.End()

	var report outcome

	// Step 1: plan generation (critical).
	var plan planner.Plan
	if err := s.step(ctx, "plan", func(ctx context.Context) error {
		var err error
		plan, err = s.planner.StructurePlan(ctx, answers)
		return err
	}); err != nil {
		s.telemetry.EmitEvent(ctx, "materialize.plan_failed", telemetry.SeverityError, map[string]string{"owner": owner})
		return Result{
			Message: "I could not put a plan together right now. Give it another try in a moment.",
		}, fmt.Errorf("%w: generate plan: %v", ErrAborted, err)
	}
	report.ok(fmt.Sprintf("Planned %q across %d weeks", plan.Title, len(plan.Weeks)))

	created, err := goal.CreateGoal(goal.CreateGoalInput{
		Owner:       owner,
		Title:       plan.Title,
		Description: plan.Description,
		Weeks:       plan.Weeks,
	}, s.clock, s.idGenerator)
	if err != nil {
		return Result{
			Message: "The plan came back unusable. Try rephrasing your goal.",
		}, fmt.Errorf("%w: create goal: %v", ErrAborted, err)
	}

	// Step 2: board provisioning (critical).
	var adapter board.Adapter
	var listIDs []string
	if err := s.step(ctx, "board", func(ctx context.Context) error {
		var err error
		adapter, err = s.boards.AdapterFor(ctx, owner)
		if err != nil {
			return err
		}
		boardID, err := adapter.CreateBoard(ctx, created.Title, created.Description)
		if err != nil {
			return err
		}
		created.BoardID = boardID
		listIDs, err = adapter.CreateLists(ctx, boardID, board.DefaultLists)
		if err != nil {
			return err
		}
		start := s.clock().UTC()
		for i := range created.Weeks {
			week := &created.Weeks[i]
			due := start.AddDate(0, 0, 7*week.Week)
			cardID, err := adapter.CreateCard(ctx, listIDs[0],
				fmt.Sprintf("Week %d: %s", week.Week, week.Theme), "", &due)
			if err != nil {
				return err
			}
			week.CardID = cardID
			if len(week.Tasks) > 0 {
				if _, err := adapter.CreateChecklist(ctx, cardID, week.Tasks); err != nil {
					return err
				}
			}
		}
		return nil
	}); err != nil {
		err = s.boards.HandleAdapterError(ctx, owner, err)
		s.telemetry.EmitEvent(ctx, "materialize.board_failed", telemetry.SeverityError, map[string]string{"owner": owner})
		remediation := "I could not set up your board."
		if errors.Is(err, board.ErrNotLinked) || errors.Is(err, board.ErrAuthExpired) {
			remediation = "Your board account is not linked. Link it and send your last answer again."
		}
		return Result{
			Message: remediation + "\n\nHere is your plan in the meantime:\n" + renderPlanText(plan),
		}, fmt.Errorf("%w: provision board: %v", ErrAborted, err)
	}
	report.ok(fmt.Sprintf("Board ready with %d weekly cards", len(created.Weeks)))

	// Step 3: vision artifact generation (non-critical).
	var artifactURL string
	if err := s.step(ctx, "vision", func(ctx context.Context) error {
		var err error
		artifactURL, err = s.planner.GenerateVisionArtifact(ctx, answers)
		return err
	}); err != nil {
		s.telemetry.EmitEvent(ctx, "materialize.vision_skipped", telemetry.SeverityWarn, map[string]string{"owner": owner})
		report.skipped("Vision artifact skipped")
		artifactURL = ""
	}

	// Step 4: vision attachment (non-critical).
	if artifactURL != "" {
		if err := s.step(ctx, "vision_attach", func(ctx context.Context) error {
			_, err := adapter.CreateCard(ctx, listIDs[3], "Your vision", artifactURL, nil)
			return err
		}); err != nil {
			report.skipped("Vision card skipped")
		} else {
			report.ok("Vision card added")
		}
	}

	// Step 5: creation reward grant (non-critical, user-visible).
	if err := s.step(ctx, "reward", func(ctx context.Context) error {
		if _, err := s.rewards.GrantOptimistic(ctx, rewards.GrantInput{
			Owner:  owner,
			Amount: rewards.CreationReward,
			Reason: "goal created",
			Source: rewards.SourceGoalCreation,
			GoalID: created.ID,
		}); err != nil {
			return err
		}
		_, _, err := s.rewards.Unlock(ctx, owner, rewards.AchievementGoalCreated, created.ID)
		return err
	}); err != nil {
		report.skipped("Creation reward pending, it will be reconciled later")
	} else {
		created.RewardTotal += rewards.CreationReward
		report.ok(fmt.Sprintf("Earned %d XP for forging this goal", rewards.CreationReward))
	}

	// Step 6: certificate issuance (non-critical).
	if err := s.step(ctx, "certificate", func(_ context.Context) error {
		cert, err := certificate.Issue(owner, created.ID, created.Title, certificate.KindCreation, s.clock, s.idGenerator)
		if err != nil {
			return err
		}
		created.CertificateID = cert.ID
		report.ok(fmt.Sprintf("Certificate issued, code %s", cert.VerificationCode))
		return nil
	}); err != nil {
		s.telemetry.EmitEvent(ctx, "materialize.certificate_skipped", telemetry.SeverityWarn, map[string]string{"owner": owner})
		s.notifier.Notify(ctx, owner, "Your certificate could not be issued right now.", notify.SeverityWarning)
		report.skipped("Certificate could not be issued right now")
	}

	// Step 7: credential mint (non-critical, never blindly retried).
	if err := s.step(ctx, "credential", func(ctx context.Context) error {
		wallet, _, err := s.wallets.EnsureWallet(ctx, owner)
		if err != nil {
			return err
		}
		metadataURI := fmt.Sprintf("goalforge://goal/%s", created.ID)
		record, _, err := s.credentials.Mint(ctx, wallet.Address, created.ID, metadataURI)
		if err != nil {
			return err
		}
		created.CredentialID = record.ID
		return nil
	}); err != nil {
		s.notifier.Notify(ctx, owner, "Credential not minted. Your goal is unaffected.", notify.SeverityInfo)
		report.skipped("Credential not minted")
	} else {
		report.ok("Soulbound credential minted")
	}

	// Step 8: finalize.
	if err := s.goals.PutGoal(ctx, toGoalRecord(created)); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Result{
			Message: "Something went wrong while saving your goal. Send your last answer again to retry.",
		}, fmt.Errorf("%w: persist goal: %v", ErrAborted, err)
	}

	s.telemetry.EmitEvent(ctx, "materialize.completed", telemetry.SeverityInfo, map[string]string{
		"owner": owner,
		"goal":  created.ID,
	})

	header := fmt.Sprintf("Your goal %q is live. Here is what happened:", created.Title)
	return Result{
		GoalID:  created.ID,
		Message: report.message(header),
	}, nil
}

// renderPlanText flattens the plan for the abort path, where the board
// never materialized but the plan is still useful.
func renderPlanText(plan planner.Plan) string {
	var b strings.Builder
	b.WriteString(plan.Title)
	b.WriteString("\n")
	for _, week := range plan.Weeks {
		b.WriteString(fmt.Sprintf("Week %d: %s\n", week.Week, week.Theme))
		for _, task := range week.Tasks {
			b.WriteString("  - " + task + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func toGoalRecord(g goal.Goal) storage.GoalRecord {
	weeks := make([]storage.WeekGroupRecord, 0, len(g.Weeks))
	for _, week := range g.Weeks {
		weeks = append(weeks, storage.WeekGroupRecord{
			Week:   week.Week,
			Theme:  week.Theme,
			Tasks:  week.Tasks,
			CardID: week.CardID,
			Done:   week.Done,
		})
	}
	return storage.GoalRecord{
		ID:            g.ID,
		Owner:         g.Owner,
		Title:         g.Title,
		Description:   g.Description,
		Weeks:         weeks,
		Status:        goal.StatusLabel(g.Status),
		RewardTotal:   g.RewardTotal,
		BoardID:       g.BoardID,
		CredentialID:  g.CredentialID,
		CertificateID: g.CertificateID,
		CreatedAt:     g.CreatedAt,
		UpdatedAt:     g.UpdatedAt,
		CompletedAt:   g.CompletedAt,
	}
}
