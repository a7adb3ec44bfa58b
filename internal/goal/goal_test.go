package goal

import (
	"errors"
	"testing"
	"time"
)

func testClock() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func testIDGenerator() (string, error) {
	return "goal-1", nil
}

func TestCreateGoal(t *testing.T) {
	created, err := CreateGoal(CreateGoalInput{
		Owner:       "owner-1",
		Title:       "  Run a marathon  ",
		Description: "train for 6 months",
		Weeks: []WeekGroup{
			{Week: 1, Theme: "Base building", Tasks: []string{"Run 5k"}},
		},
	}, testClock, testIDGenerator)
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}

	if created.ID != "goal-1" {
		t.Fatalf("ID = %q, want %q", created.ID, "goal-1")
	}
	if created.Title != "Run a marathon" {
		t.Fatalf("Title = %q, want trimmed title", created.Title)
	}
	if created.Status != StatusActive {
		t.Fatalf("Status = %v, want StatusActive", created.Status)
	}
	if !created.CreatedAt.Equal(testClock()) || !created.UpdatedAt.Equal(testClock()) {
		t.Fatalf("timestamps = (%v, %v), want fixed clock", created.CreatedAt, created.UpdatedAt)
	}
}

func TestCreateGoalValidation(t *testing.T) {
	cases := []struct {
		name  string
		input CreateGoalInput
		want  error
	}{
		{
			name:  "missing owner",
			input: CreateGoalInput{Title: "Run", Weeks: []WeekGroup{{Week: 1}}},
			want:  ErrEmptyOwner,
		},
		{
			name:  "missing title",
			input: CreateGoalInput{Owner: "owner-1", Weeks: []WeekGroup{{Week: 1}}},
			want:  ErrEmptyTitle,
		},
		{
			name:  "empty plan",
			input: CreateGoalInput{Owner: "owner-1", Title: "Run"},
			want:  ErrEmptyPlan,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CreateGoal(tc.input, testClock, testIDGenerator)
			if !errors.Is(err, tc.want) {
				t.Fatalf("error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestAllWeeksDone(t *testing.T) {
	g := Goal{Weeks: []WeekGroup{{Week: 1, Done: true}, {Week: 2}}}
	if g.AllWeeksDone() {
		t.Fatal("AllWeeksDone with an unfinished week")
	}

	g.Weeks[1].Done = true
	if !g.AllWeeksDone() {
		t.Fatal("AllWeeksDone false with every week done")
	}

	if (Goal{}).AllWeeksDone() {
		t.Fatal("AllWeeksDone true for an empty plan")
	}
}

func TestFindWeek(t *testing.T) {
	g := Goal{Weeks: []WeekGroup{{Week: 1}, {Week: 3}}}
	if i := g.FindWeek(3); i != 1 {
		t.Fatalf("FindWeek(3) = %d, want 1", i)
	}
	if i := g.FindWeek(2); i != -1 {
		t.Fatalf("FindWeek(2) = %d, want -1", i)
	}
}

func TestStatusLabelRoundTrip(t *testing.T) {
	for _, status := range []Status{StatusActive, StatusCompleted, StatusPaused} {
		if got := StatusFromLabel(StatusLabel(status)); got != status {
			t.Fatalf("round trip %v = %v", status, got)
		}
	}
	if got := StatusFromLabel("bogus"); got != StatusUnspecified {
		t.Fatalf("StatusFromLabel(bogus) = %v, want StatusUnspecified", got)
	}
}
