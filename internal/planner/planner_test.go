package planner

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"

	"github.com/shxuryaaz/agilow-goal-forge/internal/board"
	"github.com/shxuryaaz/agilow-goal-forge/internal/progress"
)

var marathonAnswers = SlotAnswers{
	What:  "Run a marathon",
	Why:   "health",
	When:  "6 months",
	Where: "home",
	Who:   "solo",
	How:   "training plan",
}

func TestFallbackGenerateQuestions(t *testing.T) {
	questions, err := NewFallback().GenerateQuestions(context.Background(), "Run a marathon")
	if err != nil {
		t.Fatalf("GenerateQuestions: %v", err)
	}
	if len(questions) != 5 {
		t.Fatalf("question count = %d, want 5", len(questions))
	}
}

func TestFallbackStructurePlanWeekCount(t *testing.T) {
	cases := []struct {
		when string
		want int
	}{
		{"6 months", 12},
		{"2 months", 8},
		{"3 weeks", 3},
		{"someday", 4},
	}

	ctx := context.Background()
	fallback := NewFallback()
	for _, tc := range cases {
		answers := marathonAnswers
		answers.When = tc.when
		plan, err := fallback.StructurePlan(ctx, answers)
		if err != nil {
			t.Fatalf("StructurePlan(%q): %v", tc.when, err)
		}
		if len(plan.Weeks) != tc.want {
			t.Fatalf("weeks for %q = %d, want %d", tc.when, len(plan.Weeks), tc.want)
		}
	}
}

func TestFallbackStructurePlanIsDeterministic(t *testing.T) {
	ctx := context.Background()
	fallback := NewFallback()

	first, err := fallback.StructurePlan(ctx, marathonAnswers)
	if err != nil {
		t.Fatalf("StructurePlan: %v", err)
	}
	second, err := fallback.StructurePlan(ctx, marathonAnswers)
	if err != nil {
		t.Fatalf("StructurePlan again: %v", err)
	}

	if first.Title != "Run a marathon" {
		t.Fatalf("title = %q, want %q", first.Title, "Run a marathon")
	}
	if len(first.Weeks) != len(second.Weeks) {
		t.Fatalf("week counts differ: %d vs %d", len(first.Weeks), len(second.Weeks))
	}
	for i := range first.Weeks {
		if first.Weeks[i].Theme != second.Weeks[i].Theme {
			t.Fatalf("week %d theme differs", i+1)
		}
	}
}

func TestParsePlanJSON(t *testing.T) {
	body := "```json\n" + `{"title":"Run a marathon","description":"train","weeks":[{"week":1,"theme":"Base","tasks":["Run 5k"]},{"theme":"Tempo","tasks":["Run 10k"]}]}` + "\n```"
	plan, err := parsePlanJSON(body)
	if err != nil {
		t.Fatalf("parsePlanJSON: %v", err)
	}
	if plan.Title != "Run a marathon" {
		t.Fatalf("title = %q", plan.Title)
	}
	if len(plan.Weeks) != 2 {
		t.Fatalf("week count = %d, want 2", len(plan.Weeks))
	}
	if plan.Weeks[1].Week != 2 {
		t.Fatalf("missing week number defaulted to %d, want 2", plan.Weeks[1].Week)
	}
}

func TestParsePlanJSONRejectsMalformed(t *testing.T) {
	for _, body := range []string{"", "not json", `{"title":"x"}`, `{"weeks":[]}`} {
		if _, err := parsePlanJSON(body); !errors.Is(err, ErrBadPlan) {
			t.Fatalf("parsePlanJSON(%q) error = %v, want ErrBadPlan", body, err)
		}
	}
}

type failingPlanner struct{}

func (failingPlanner) GenerateQuestions(context.Context, string) ([]string, error) {
	return nil, ErrUnavailable
}

func (failingPlanner) StructurePlan(context.Context, SlotAnswers) (Plan, error) {
	return Plan{}, ErrUnavailable
}

func (failingPlanner) GenerateVisionArtifact(context.Context, SlotAnswers) (string, error) {
	return "", ErrUnavailable
}

func (failingPlanner) InterpretProgress(context.Context, string, board.Snapshot) (progress.Outcome, error) {
	return progress.Outcome{}, ErrUnavailable
}

func TestResilientFallsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	resilient := NewResilient(failingPlanner{}, nil)

	plan, err := resilient.StructurePlan(ctx, marathonAnswers)
	if err != nil {
		t.Fatalf("StructurePlan: %v", err)
	}
	if len(plan.Weeks) == 0 {
		t.Fatal("fallback plan has no weeks")
	}

	outcome, err := resilient.InterpretProgress(ctx, "I completed week 3", board.Snapshot{})
	if err != nil {
		t.Fatalf("InterpretProgress: %v", err)
	}
	if outcome.Kind != progress.KindCompleteWeek || outcome.Week != 3 {
		t.Fatalf("outcome = %+v, want complete week 3", outcome)
	}
}

func TestResilientWithoutPrimary(t *testing.T) {
	ctx := context.Background()
	resilient := NewResilient(NewOpenAIPlanner(""), nil)

	plan, err := resilient.StructurePlan(ctx, marathonAnswers)
	if err != nil {
		t.Fatalf("StructurePlan: %v", err)
	}
	if len(plan.Weeks) != 12 {
		t.Fatalf("week count = %d, want 12", len(plan.Weeks))
	}

	if _, err := resilient.GenerateVisionArtifact(ctx, marathonAnswers); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("vision artifact error = %v, want ErrUnavailable", err)
	}
}

func newStubCompletionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reply := map[string]any{
			"id":     "cmpl-1",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]any{
						"role":    "assistant",
						"content": content,
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(reply)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestOpenAIPlannerStructurePlan(t *testing.T) {
	server := newStubCompletionServer(t,
		`{"title":"Run a marathon","description":"train","weeks":[{"week":1,"theme":"Base","tasks":["Run 5k"]}]}`)

	p := NewOpenAIPlanner("test-key", option.WithBaseURL(server.URL))
	plan, err := p.StructurePlan(context.Background(), marathonAnswers)
	if err != nil {
		t.Fatalf("StructurePlan: %v", err)
	}
	if plan.Title != "Run a marathon" || len(plan.Weeks) != 1 {
		t.Fatalf("plan = %+v", plan)
	}
}

func TestOpenAIPlannerInterpretProgress(t *testing.T) {
	server := newStubCompletionServer(t,
		`{"kind":"complete","week":2,"reply":"Week 2 done, well played!"}`)

	p := NewOpenAIPlanner("test-key", option.WithBaseURL(server.URL))
	outcome, err := p.InterpretProgress(context.Background(), "finished the second week", board.Snapshot{})
	if err != nil {
		t.Fatalf("InterpretProgress: %v", err)
	}
	if outcome.Kind != progress.KindCompleteWeek || outcome.Week != 2 {
		t.Fatalf("outcome = %+v, want complete week 2", outcome)
	}
}
