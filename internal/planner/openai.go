package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tidwall/gjson"

	"github.com/shxuryaaz/agilow-goal-forge/internal/board"
	"github.com/shxuryaaz/agilow-goal-forge/internal/goal"
	"github.com/shxuryaaz/agilow-goal-forge/internal/platform/timeouts"
	"github.com/shxuryaaz/agilow-goal-forge/internal/progress"
)

// OpenAIPlanner is the LLM-backed planning collaborator.
type OpenAIPlanner struct {
	client openai.Client
	model  openai.ChatModel
}

// NewOpenAIPlanner creates a planner for the given API key. It returns
// nil when the key is blank; callers fall back to the deterministic
// planner.
func NewOpenAIPlanner(apiKey string, opts ...option.RequestOption) *OpenAIPlanner {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAIPlanner{
		client: openai.NewClient(opts...),
		model:  openai.ChatModelGPT4oMini,
	}
}

// complete sends one chat completion and returns the assistant text,
// retrying once on transient failures.
func (p *OpenAIPlanner) complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.CollaboratorRequest)
	defer cancel()

	operation := func() (string, error) {
		completion, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: p.model,
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(system),
				openai.UserMessage(user),
			},
		})
		if err != nil {
			return "", err
		}
		if len(completion.Choices) == 0 {
			return "", backoff.Permanent(ErrBadPlan)
		}
		return completion.Choices[0].Message.Content, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond

	text, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(2),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return text, nil
}

// stripCodeFence removes a markdown code fence wrapper, if present.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// GenerateQuestions asks for the five follow-up prompts.
func (p *OpenAIPlanner) GenerateQuestions(ctx context.Context, initialGoal string) ([]string, error) {
	text, err := p.complete(ctx,
		`You are a goal coach. Reply with JSON: {"questions": [five short follow-up questions covering why, when, where, who, how]}.`,
		fmt.Sprintf("The goal is: %s", initialGoal),
	)
	if err != nil {
		return nil, err
	}

	parsed := gjson.Get(stripCodeFence(text), "questions")
	if !parsed.IsArray() {
		return nil, ErrBadPlan
	}
	var questions []string
	for _, item := range parsed.Array() {
		if q := strings.TrimSpace(item.String()); q != "" {
			questions = append(questions, q)
		}
	}
	if len(questions) == 0 {
		return nil, ErrBadPlan
	}
	return questions, nil
}

// StructurePlan asks for a weekly plan and parses it tolerantly.
func (p *OpenAIPlanner) StructurePlan(ctx context.Context, answers SlotAnswers) (Plan, error) {
	text, err := p.complete(ctx,
		`You are a goal coach. Reply with JSON: {"title": string, "description": string, "weeks": [{"week": number, "theme": string, "tasks": [string]}]}. Use between 4 and 12 weeks.`,
		fmt.Sprintf("what: %s\nwhy: %s\nwhen: %s\nwhere: %s\nwho: %s\nhow: %s",
			answers.What, answers.Why, answers.When, answers.Where, answers.Who, answers.How),
	)
	if err != nil {
		return Plan{}, err
	}
	return parsePlanJSON(text)
}

// parsePlanJSON converts a collaborator reply into a Plan.
func parsePlanJSON(text string) (Plan, error) {
	body := stripCodeFence(text)
	if !gjson.Valid(body) {
		return Plan{}, ErrBadPlan
	}

	plan := Plan{
		Title:       strings.TrimSpace(gjson.Get(body, "title").String()),
		Description: strings.TrimSpace(gjson.Get(body, "description").String()),
	}

	weeks := gjson.Get(body, "weeks")
	if !weeks.IsArray() {
		return Plan{}, ErrBadPlan
	}
	for i, item := range weeks.Array() {
		week := int(item.Get("week").Int())
		if week <= 0 {
			week = i + 1
		}
		group := goal.WeekGroup{
			Week:  week,
			Theme: strings.TrimSpace(item.Get("theme").String()),
		}
		for _, task := range item.Get("tasks").Array() {
			if t := strings.TrimSpace(task.String()); t != "" {
				group.Tasks = append(group.Tasks, t)
			}
		}
		plan.Weeks = append(plan.Weeks, group)
	}

	if plan.Title == "" || len(plan.Weeks) == 0 {
		return Plan{}, ErrBadPlan
	}
	return plan, nil
}

// GenerateVisionArtifact asks for a motivational artifact URL.
func (p *OpenAIPlanner) GenerateVisionArtifact(ctx context.Context, answers SlotAnswers) (string, error) {
	text, err := p.complete(ctx,
		`You are a goal coach. Reply with JSON: {"url": string} pointing at an inspiring public image for the goal.`,
		fmt.Sprintf("what: %s\nwhy: %s", answers.What, answers.Why),
	)
	if err != nil {
		return "", err
	}

	url := strings.TrimSpace(gjson.Get(stripCodeFence(text), "url").String())
	if url == "" {
		return "", ErrBadPlan
	}
	return url, nil
}

// InterpretProgress asks the collaborator to classify the message,
// falling back to the rule table when the reply is unusable.
func (p *OpenAIPlanner) InterpretProgress(ctx context.Context, message string, snapshot board.Snapshot) (progress.Outcome, error) {
	text, err := p.complete(ctx,
		`You are a goal coach reading a progress update. Reply with JSON: {"kind": "start"|"complete"|"clarify"|"none", "week": number, "reply": string}.`,
		fmt.Sprintf("message: %s\nboard: %s", message, describeSnapshot(snapshot)),
	)
	if err != nil {
		return progress.Outcome{}, err
	}

	body := stripCodeFence(text)
	outcome := progress.Outcome{
		Week:  int(gjson.Get(body, "week").Int()),
		Reply: strings.TrimSpace(gjson.Get(body, "reply").String()),
	}
	switch gjson.Get(body, "kind").String() {
	case "start":
		outcome.Kind = progress.KindStartWeek
	case "complete":
		outcome.Kind = progress.KindCompleteWeek
	case "clarify":
		outcome.Kind = progress.KindClarify
	case "none":
		outcome.Kind = progress.KindNone
	default:
		return progress.Interpret(message), nil
	}
	if outcome.Reply == "" {
		return progress.Interpret(message), nil
	}
	return outcome, nil
}

// describeSnapshot flattens a board snapshot for the prompt.
func describeSnapshot(snapshot board.Snapshot) string {
	var b strings.Builder
	for _, list := range snapshot.Lists {
		b.WriteString(list.Name)
		b.WriteString(": ")
		for i, card := range list.Cards {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(card.Title)
		}
		b.WriteString("; ")
	}
	return b.String()
}

var _ Planner = (*OpenAIPlanner)(nil)
