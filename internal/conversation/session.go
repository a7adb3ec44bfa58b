// Package conversation runs the goal-forging dialogue: a per-owner state
// machine that collects the six slot answers, triggers materialization
// exactly once, and routes progress reports afterwards.
package conversation

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/shxuryaaz/agilow-goal-forge/internal/platform/errors"
	"github.com/shxuryaaz/agilow-goal-forge/internal/platform/id"
	"github.com/shxuryaaz/agilow-goal-forge/internal/planner"
	"github.com/shxuryaaz/agilow-goal-forge/internal/storage"
)

// ErrEmptyOwner indicates a missing session owner.
var ErrEmptyOwner = apperrors.New(apperrors.CodeSessionEmptyOwner, "session owner is required")

// State represents the conversation state machine.
type State int

const (
	// StateUnspecified represents an invalid state.
	StateUnspecified State = iota
	// StateWelcome is the initial greeting state.
	StateWelcome
	// StateConnect waits for the board account link.
	StateConnect
	// StateSlotFilling collects the six slot answers in order.
	StateSlotFilling
	// StateMaterializing runs the goal materialization saga. The state
	// tag doubles as the concurrency guard: only one transition into it
	// succeeds.
	StateMaterializing
	// StateActive routes every message to the progress interpreter.
	StateActive
)

// StateLabel returns the string label for a state.
func StateLabel(state State) string {
	switch state {
	case StateWelcome:
		return "WELCOME"
	case StateConnect:
		return "CONNECT"
	case StateSlotFilling:
		return "SLOT_FILLING"
	case StateMaterializing:
		return "MATERIALIZING"
	case StateActive:
		return "ACTIVE"
	default:
		return "UNSPECIFIED"
	}
}

// StateFromLabel converts a state label to a State value.
func StateFromLabel(label string) State {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "WELCOME":
		return StateWelcome
	case "CONNECT":
		return StateConnect
	case "SLOT_FILLING":
		return StateSlotFilling
	case "MATERIALIZING":
		return StateMaterializing
	case "ACTIVE":
		return StateActive
	default:
		return StateUnspecified
	}
}

// SlotOrder is the fixed slot-filling order.
var SlotOrder = []string{"what", "why", "when", "where", "who", "how"}

// slotPrompts are the canonical prompts, used when the planner offers no
// better phrasing.
var slotPrompts = map[string]string{
	"what":  "What do you want to achieve?",
	"why":   "Why does this goal matter to you?",
	"when":  "When do you want to reach it?",
	"where": "Where will you work on it?",
	"who":   "Who is involved or supporting you?",
	"how":   "How do you plan to get there?",
}

// PromptFor returns the prompt for a slot name.
func PromptFor(slot string) string {
	if prompt, ok := slotPrompts[slot]; ok {
		return prompt
	}
	return fmt.Sprintf("Tell me about %q.", slot)
}

// NewSessionRecord creates a session in the given initial state.
func NewSessionRecord(owner string, initial State, now func() time.Time, idGenerator func() (string, error)) (storage.SessionRecord, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	owner = strings.TrimSpace(owner)
	if owner == "" {
		return storage.SessionRecord{}, ErrEmptyOwner
	}

	sessionID, err := idGenerator()
	if err != nil {
		return storage.SessionRecord{}, fmt.Errorf("generate session id: %w", err)
	}

	createdAt := now().UTC()
	return storage.SessionRecord{
		ID:        sessionID,
		Owner:     owner,
		State:     StateLabel(initial),
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}, nil
}

// NextSlot returns the name of the first unanswered slot, or "" when all
// six are answered.
func NextSlot(answers []storage.SlotAnswerRecord) string {
	if len(answers) >= len(SlotOrder) {
		return ""
	}
	return SlotOrder[len(answers)]
}

// ToSlotAnswers converts recorded answers into the planner input. It
// relies on the fixed recording order.
func ToSlotAnswers(answers []storage.SlotAnswerRecord) planner.SlotAnswers {
	var out planner.SlotAnswers
	for _, answer := range answers {
		switch answer.Slot {
		case "what":
			out.What = answer.Answer
		case "why":
			out.Why = answer.Answer
		case "when":
			out.When = answer.Answer
		case "where":
			out.Where = answer.Answer
		case "who":
			out.Who = answer.Answer
		case "how":
			out.How = answer.Answer
		}
	}
	return out
}
