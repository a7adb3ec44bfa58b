package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shxuryaaz/agilow-goal-forge/internal/board"
	"github.com/shxuryaaz/agilow-goal-forge/internal/materialize"
	"github.com/shxuryaaz/agilow-goal-forge/internal/planner"
	"github.com/shxuryaaz/agilow-goal-forge/internal/platform/id"
	"github.com/shxuryaaz/agilow-goal-forge/internal/rewards"
	"github.com/shxuryaaz/agilow-goal-forge/internal/storage"
	"github.com/shxuryaaz/agilow-goal-forge/internal/telemetry"
)

// Materializer runs the goal materialization saga.
type Materializer interface {
	Run(ctx context.Context, owner string, answers planner.SlotAnswers) (materialize.Result, error)
}

// ProgressHandler interprets free-text progress for active sessions.
type ProgressHandler interface {
	HandleMessage(ctx context.Context, owner, message string) (string, error)
}

// BoardLinker resolves and stores board links for owners.
type BoardLinker interface {
	AdapterFor(ctx context.Context, owner string) (board.Adapter, error)
	Link(ctx context.Context, owner, token string) error
	BeginLink(owner string) (string, error)
}

// Service is the conversation state machine.
type Service struct {
	sessions    storage.SessionStore
	messages    storage.MessageStore
	links       BoardLinker
	saga        Materializer
	progress    ProgressHandler
	rewards     *rewards.Service
	planner     planner.Planner
	telemetry   *telemetry.Emitter
	clock       func() time.Time
	idGenerator func() (string, error)
}

// NewService creates a conversation service.
func NewService(sessions storage.SessionStore, messages storage.MessageStore, links BoardLinker, saga Materializer, progressHandler ProgressHandler, rewardService *rewards.Service, p planner.Planner, emitter *telemetry.Emitter) *Service {
	return &Service{
		sessions:    sessions,
		messages:    messages,
		links:       links,
		saga:        saga,
		progress:    progressHandler,
		rewards:     rewardService,
		planner:     p,
		telemetry:   emitter,
		clock:       time.Now,
		idGenerator: id.NewID,
	}
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

// HandleMessage is the single conversation entry point. It advances the
// owner session state machine and returns the reply to show.
func (s *Service) HandleMessage(ctx context.Context, owner, text string) (string, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return "", ErrEmptyOwner
	}
	text = strings.TrimSpace(text)

	session, err := s.sessions.GetLatestSessionByOwner(ctx, owner)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("load session: %w", err)
		}
		return s.startSession(ctx, owner, text)
	}

	s.logMessage(ctx, session.ID, owner, text)

	var reply string
	switch StateFromLabel(session.State) {
	case StateConnect:
		reply, err = s.handleConnect(ctx, session, text)
	case StateSlotFilling:
		reply, err = s.handleSlotFilling(ctx, session, text)
	case StateMaterializing:
		reply = "Still forging your goal, give me a moment."
	case StateActive:
		reply, err = s.progress.HandleMessage(ctx, owner, text)
	default:
		reply, err = s.handleWelcome(ctx, session)
	}
	if err != nil {
		return "", err
	}

	s.logMessage(ctx, session.ID, "forge", reply)
	return reply, nil
}

// startSession creates the owner session. Reward state is reconciled on
// session start so the first balance shown is trustworthy.
func (s *Service) startSession(ctx context.Context, owner, text string) (string, error) {
	if _, err := s.rewards.Reconcile(ctx, owner); err != nil {
		s.telemetry.EmitEvent(ctx, "conversation.reconcile_failed", telemetry.SeverityWarn, map[string]string{"owner": owner})
	}

	initial := StateSlotFilling
	if _, err := s.links.AdapterFor(ctx, owner); errors.Is(err, board.ErrNotLinked) {
		initial = StateConnect
	}

	session, err := NewSessionRecord(owner, initial, s.clock, s.idGenerator)
	if err != nil {
		return "", err
	}
	if err := s.sessions.PutSession(ctx, session); err != nil {
		return "", fmt.Errorf("persist session: %w", err)
	}
	s.logMessage(ctx, session.ID, owner, text)

	reply := "Welcome to Goal Forge! Let's turn an ambition into a tracked goal. "
	if initial == StateConnect {
		reply += s.connectPrompt(owner)
	} else {
		reply += PromptFor(SlotOrder[0])
	}
	s.logMessage(ctx, session.ID, "forge", reply)
	return reply, nil
}

// handleWelcome moves a lingering welcome session forward.
func (s *Service) handleWelcome(ctx context.Context, session storage.SessionRecord) (string, error) {
	next := StateSlotFilling
	if _, err := s.links.AdapterFor(ctx, session.Owner); errors.Is(err, board.ErrNotLinked) {
		next = StateConnect
	}
	if _, err := s.sessions.CompareAndSwapSessionState(ctx, session.ID, session.State, StateLabel(next)); err != nil {
		return "", fmt.Errorf("advance welcome session: %w", err)
	}
	if next == StateConnect {
		return s.connectPrompt(session.Owner), nil
	}
	return PromptFor(SlotOrder[0]), nil
}

// connectPrompt asks the owner to connect their board. When the grant
// flow is configured the prompt carries a link code for the authorize
// page; otherwise it falls back to a pasted token.
func (s *Service) connectPrompt(owner string) string {
	grant, err := s.links.BeginLink(owner)
	if err != nil || grant == "" {
		return "Paste your board access token so I can set up your board."
	}
	return "Authorize your board with this link code, then send any message here: " + grant
}

// handleConnect advances once the board is linked. With the grant flow
// configured the link happens on the authorize callback, so the message
// only signals a retry; otherwise the message is the pasted token.
func (s *Service) handleConnect(ctx context.Context, session storage.SessionRecord, text string) (string, error) {
	if _, err := s.links.AdapterFor(ctx, session.Owner); err == nil {
		return s.advanceLinked(ctx, session)
	} else if !errors.Is(err, board.ErrNotLinked) {
		return "", fmt.Errorf("check board link: %w", err)
	}

	grant, err := s.links.BeginLink(session.Owner)
	if err == nil && grant != "" {
		return "Your board is not connected yet. Authorize it with this link code, then send any message here: " + grant, nil
	}
	if err != nil && !errors.Is(err, board.ErrLinkFlowDisabled) {
		return "", fmt.Errorf("issue link grant: %w", err)
	}

	if text == "" {
		return "I need your board access token to continue.", nil
	}
	if err := s.links.Link(ctx, session.Owner, text); err != nil {
		return "", fmt.Errorf("link board account: %w", err)
	}
	return s.advanceLinked(ctx, session)
}

// advanceLinked moves a connect session into slot filling.
func (s *Service) advanceLinked(ctx context.Context, session storage.SessionRecord) (string, error) {
	if _, err := s.sessions.CompareAndSwapSessionState(ctx, session.ID, StateLabel(StateConnect), StateLabel(StateSlotFilling)); err != nil {
		return "", fmt.Errorf("advance session: %w", err)
	}
	return "Board linked. " + PromptFor(SlotOrder[0]), nil
}

// handleSlotFilling records the answer for the next slot and either asks
// the following prompt or triggers materialization.
func (s *Service) handleSlotFilling(ctx context.Context, session storage.SessionRecord, text string) (string, error) {
	if text == "" {
		return PromptFor(NextSlot(session.SlotAnswers)), nil
	}

	slot := NextSlot(session.SlotAnswers)
	if slot == "" {
		// All answers already recorded; the pending trigger fell through.
		return s.materialize(ctx, session)
	}

	session.SlotAnswers = append(session.SlotAnswers, storage.SlotAnswerRecord{
		Slot:       slot,
		Answer:     text,
		AnsweredAt: s.clock().UTC(),
	})
	session.UpdatedAt = s.clock().UTC()
	if err := s.sessions.PutSession(ctx, session); err != nil {
		return "", fmt.Errorf("persist slot answer: %w", err)
	}

	next := NextSlot(session.SlotAnswers)
	if next == "" {
		return s.materialize(ctx, session)
	}
	return s.promptFor(ctx, session, next), nil
}

// promptFor phrases the next prompt, preferring planner-generated
// follow-up questions once the initial goal is known.
func (s *Service) promptFor(ctx context.Context, session storage.SessionRecord, slot string) string {
	slotIndex := -1
	for i, name := range SlotOrder {
		if name == slot {
			slotIndex = i
			break
		}
	}
	if slotIndex >= 1 && s.planner != nil {
		questions, err := s.planner.GenerateQuestions(ctx, ToSlotAnswers(session.SlotAnswers).What)
		if err == nil && len(questions) >= len(SlotOrder)-1 {
			return questions[slotIndex-1]
		}
	}
	return PromptFor(slot)
}

// materialize runs the saga behind the atomic state guard. Only one
// transition into materializing succeeds; concurrent triggers no-op.
func (s *Service) materialize(ctx context.Context, session storage.SessionRecord) (string, error) {
	swapped, err := s.sessions.CompareAndSwapSessionState(ctx, session.ID,
		StateLabel(StateSlotFilling), StateLabel(StateMaterializing))
	if err != nil {
		return "", fmt.Errorf("guard materialization: %w", err)
	}
	if !swapped {
		return "Still forging your goal, give me a moment.", nil
	}

	result, sagaErr := s.saga.Run(ctx, session.Owner, ToSlotAnswers(session.SlotAnswers))
	if sagaErr != nil {
		// Roll the state back and drop the last answer so re-sending it
		// retries the saga.
		if _, err := s.sessions.CompareAndSwapSessionState(ctx, session.ID,
			StateLabel(StateMaterializing), StateLabel(StateSlotFilling)); err != nil {
			return "", fmt.Errorf("recover from aborted materialization: %w", err)
		}
		current, err := s.sessions.GetSession(ctx, session.ID)
		if err == nil && len(current.SlotAnswers) > 0 {
			current.SlotAnswers = current.SlotAnswers[:len(current.SlotAnswers)-1]
			current.UpdatedAt = s.clock().UTC()
			if err := s.sessions.PutSession(ctx, current); err != nil {
				return "", fmt.Errorf("persist rollback: %w", err)
			}
		}
		if errors.Is(sagaErr, materialize.ErrAborted) {
			return result.Message, nil
		}
		return "", fmt.Errorf("materialize goal: %w", sagaErr)
	}

	if _, err := s.sessions.CompareAndSwapSessionState(ctx, session.ID,
		StateLabel(StateMaterializing), StateLabel(StateActive)); err != nil {
		return "", fmt.Errorf("activate session: %w", err)
	}
	current, err := s.sessions.GetSession(ctx, session.ID)
	if err != nil {
		return "", fmt.Errorf("reload session: %w", err)
	}
	current.GoalID = result.GoalID
	current.UpdatedAt = s.clock().UTC()
	if err := s.sessions.PutSession(ctx, current); err != nil {
		return "", fmt.Errorf("persist goal reference: %w", err)
	}

	s.telemetry.EmitEvent(ctx, "conversation.goal_active", telemetry.SeverityInfo, map[string]string{
		"owner": session.Owner,
		"goal":  result.GoalID,
	})
	return result.Message, nil
}

// logMessage appends one message to the session log. Log failures never
// break the conversation.
func (s *Service) logMessage(ctx context.Context, sessionID, author, text string) {
	if s.messages == nil || text == "" {
		return
	}
	messageID, err := s.idGenerator()
	if err != nil {
		return
	}
	_ = s.messages.AppendMessage(ctx, storage.MessageRecord{
		ID:        messageID,
		SessionID: sessionID,
		Author:    author,
		Text:      text,
		CreatedAt: s.clock().UTC(),
	})
}
