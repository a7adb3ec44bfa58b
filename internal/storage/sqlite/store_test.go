package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shxuryaaz/agilow-goal-forge/internal/goal"
	"github.com/shxuryaaz/agilow-goal-forge/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "goalforge.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSessionRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	record := storage.SessionRecord{
		ID:    "sess-1",
		Owner: "alice",
		State: "slot_filling",
		SlotAnswers: []storage.SlotAnswerRecord{
			{Slot: "what", Answer: "Run a marathon", AnsweredAt: created},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
	if err := store.PutSession(ctx, record); err != nil {
		t.Fatalf("put session: %v", err)
	}

	got, err := store.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Owner != "alice" || got.State != "slot_filling" {
		t.Fatalf("unexpected session %+v", got)
	}
	if len(got.SlotAnswers) != 1 || got.SlotAnswers[0].Slot != "what" {
		t.Fatalf("unexpected slot answers %+v", got.SlotAnswers)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("expected created at %v, got %v", created, got.CreatedAt)
	}
}

func TestGetLatestSessionByOwner(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "new"} {
		record := storage.SessionRecord{
			ID:        id,
			Owner:     "alice",
			State:     "welcome",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
			UpdatedAt: base,
		}
		if err := store.PutSession(ctx, record); err != nil {
			t.Fatalf("put session %s: %v", id, err)
		}
	}

	got, err := store.GetLatestSessionByOwner(ctx, "alice")
	if err != nil {
		t.Fatalf("get latest session: %v", err)
	}
	if got.ID != "new" {
		t.Fatalf("expected newest session, got %q", got.ID)
	}

	if _, err := store.GetLatestSessionByOwner(ctx, "nobody"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCompareAndSwapSessionState(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	record := storage.SessionRecord{
		ID: "sess-1", Owner: "alice", State: "slot_filling",
		CreatedAt: now, UpdatedAt: now,
	}
	if err := store.PutSession(ctx, record); err != nil {
		t.Fatalf("put session: %v", err)
	}

	swapped, err := store.CompareAndSwapSessionState(ctx, "sess-1", "slot_filling", "materializing")
	if err != nil {
		t.Fatalf("cas: %v", err)
	}
	if !swapped {
		t.Fatal("expected first swap to succeed")
	}

	// A second swap from the same origin state must report false: the
	// session has already moved on.
	swapped, err = store.CompareAndSwapSessionState(ctx, "sess-1", "slot_filling", "materializing")
	if err != nil {
		t.Fatalf("cas repeat: %v", err)
	}
	if swapped {
		t.Fatal("expected repeat swap to be a no-op")
	}

	got, err := store.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.State != "materializing" {
		t.Fatalf("expected materializing, got %q", got.State)
	}
}

func TestGoalRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	record := storage.GoalRecord{
		ID:    "goal-1",
		Owner: "alice",
		Title: "Run a marathon",
		Weeks: []storage.WeekGroupRecord{
			{Week: 1, Theme: "Base building", Tasks: []string{"Run 5k"}},
			{Week: 2, Theme: "Endurance", Tasks: []string{"Run 10k"}},
		},
		Status:    goal.StatusLabel(goal.StatusActive),
		BoardID:   "board-9",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.PutGoal(ctx, record); err != nil {
		t.Fatalf("put goal: %v", err)
	}

	got, err := store.GetActiveGoalByOwner(ctx, "alice")
	if err != nil {
		t.Fatalf("get active goal: %v", err)
	}
	if got.ID != "goal-1" || len(got.Weeks) != 2 {
		t.Fatalf("unexpected goal %+v", got)
	}
	if got.CompletedAt != nil {
		t.Fatal("expected nil completed at")
	}

	completed := now.Add(24 * time.Hour)
	got.Status = goal.StatusLabel(goal.StatusCompleted)
	got.CompletedAt = &completed
	if err := store.PutGoal(ctx, got); err != nil {
		t.Fatalf("update goal: %v", err)
	}
	updated, err := store.GetGoal(ctx, "goal-1")
	if err != nil {
		t.Fatalf("get goal: %v", err)
	}
	if updated.CompletedAt == nil || !updated.CompletedAt.Equal(completed) {
		t.Fatalf("expected completed at %v, got %v", completed, updated.CompletedAt)
	}
}

func TestGetActiveGoalUsesCanonicalStatusLabel(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	created, err := goal.CreateGoal(goal.CreateGoalInput{
		Owner: "alice",
		Title: "Run a marathon",
		Weeks: []goal.WeekGroup{{Week: 1, Theme: "Base building", Tasks: []string{"Run 5k"}}},
	}, func() time.Time { return now }, func() (string, error) { return "goal-7", nil })
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	record := storage.GoalRecord{
		ID:        created.ID,
		Owner:     created.Owner,
		Title:     created.Title,
		Status:    goal.StatusLabel(created.Status),
		CreatedAt: created.CreatedAt,
		UpdatedAt: created.UpdatedAt,
	}
	if err := store.PutGoal(ctx, record); err != nil {
		t.Fatalf("put goal: %v", err)
	}

	got, err := store.GetActiveGoalByOwner(ctx, "alice")
	if err != nil {
		t.Fatalf("get active goal: %v", err)
	}
	if got.ID != "goal-7" {
		t.Fatalf("expected goal-7, got %q", got.ID)
	}

	record.Status = goal.StatusLabel(goal.StatusCompleted)
	if err := store.PutGoal(ctx, record); err != nil {
		t.Fatalf("update goal: %v", err)
	}
	if _, err := store.GetActiveGoalByOwner(ctx, "alice"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for completed goal, got %v", err)
	}
}

func TestRewardEntriesSumRegardlessOfOrder(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	amounts := []int64{50, -20, 100}
	for i, amount := range amounts {
		record := storage.RewardEntryRecord{
			ID:        []string{"e1", "e2", "e3"}[i],
			Owner:     "alice",
			Amount:    amount,
			Reason:    "test",
			Source:    "goal",
			CreatedAt: now.Add(time.Duration(len(amounts)-i) * time.Minute),
		}
		if err := store.AppendRewardEntry(ctx, record); err != nil {
			t.Fatalf("append entry: %v", err)
		}
	}

	total, err := store.SumRewardEntries(ctx, "alice")
	if err != nil {
		t.Fatalf("sum entries: %v", err)
	}
	if total != 130 {
		t.Fatalf("expected balance 130, got %d", total)
	}

	empty, err := store.SumRewardEntries(ctx, "nobody")
	if err != nil {
		t.Fatalf("sum empty: %v", err)
	}
	if empty != 0 {
		t.Fatalf("expected 0 balance, got %d", empty)
	}
}

func TestAchievementUnlockIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	record := storage.AchievementRecord{
		ID: "ach-1", Owner: "alice", Type: "goal_created",
		Rarity: "common", RewardAmount: 50, UnlockedAt: now,
	}
	stored, created, err := store.InsertAchievementIfAbsent(ctx, record)
	if err != nil {
		t.Fatalf("insert achievement: %v", err)
	}
	if !created || stored.ID != "ach-1" {
		t.Fatalf("expected fresh insert, got created=%v id=%s", created, stored.ID)
	}

	repeat := record
	repeat.ID = "ach-2"
	stored, created, err = store.InsertAchievementIfAbsent(ctx, repeat)
	if err != nil {
		t.Fatalf("repeat insert: %v", err)
	}
	if created {
		t.Fatal("expected repeat unlock to be a no-op")
	}
	if stored.ID != "ach-1" {
		t.Fatalf("expected original record, got %s", stored.ID)
	}

	all, err := store.ListAchievements(ctx, "alice")
	if err != nil {
		t.Fatalf("list achievements: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected exactly one achievement, got %d", len(all))
	}
}

func TestCredentialMintIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	record := storage.CredentialRecord{
		ID: "cred-1", OwnerAddress: "0xabc", GoalID: "goal-1",
		MetadataURI: "ipfs://meta", MintTx: "0xdeadbeef", MintedAt: now,
	}
	_, created, err := store.InsertCredentialIfAbsent(ctx, record)
	if err != nil {
		t.Fatalf("insert credential: %v", err)
	}
	if !created {
		t.Fatal("expected fresh mint")
	}

	repeat := record
	repeat.ID = "cred-2"
	repeat.MetadataURI = "ipfs://other"
	stored, created, err := store.InsertCredentialIfAbsent(ctx, repeat)
	if err != nil {
		t.Fatalf("repeat insert: %v", err)
	}
	if created {
		t.Fatal("expected repeat mint to be a no-op")
	}
	if stored.MetadataURI != "ipfs://meta" {
		t.Fatalf("expected original immutable metadata, got %q", stored.MetadataURI)
	}
}

func TestBoardLinkInvalidation(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	record := storage.BoardLinkRecord{Owner: "alice", Token: "tok-1", LinkedAt: now}
	if err := store.PutBoardLink(ctx, record); err != nil {
		t.Fatalf("put board link: %v", err)
	}

	if err := store.InvalidateBoardLink(ctx, "alice", now.Add(time.Hour)); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	got, err := store.GetBoardLink(ctx, "alice")
	if err != nil {
		t.Fatalf("get board link: %v", err)
	}
	if got.InvalidatedAt == nil {
		t.Fatal("expected invalidated link")
	}

	// Re-linking clears the invalidation marker.
	relinked := storage.BoardLinkRecord{Owner: "alice", Token: "tok-2", LinkedAt: now.Add(2 * time.Hour)}
	if err := store.PutBoardLink(ctx, relinked); err != nil {
		t.Fatalf("relink: %v", err)
	}
	got, err = store.GetBoardLink(ctx, "alice")
	if err != nil {
		t.Fatalf("get relinked: %v", err)
	}
	if got.Token != "tok-2" || got.InvalidatedAt != nil {
		t.Fatalf("unexpected relinked record %+v", got)
	}
}

func TestMessageLogOrder(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, text := range []string{"hello", "what is your goal?", "run a marathon"} {
		record := storage.MessageRecord{
			ID:        []string{"m1", "m2", "m3"}[i],
			SessionID: "sess-1",
			Author:    "user",
			Text:      text,
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}
		if err := store.AppendMessage(ctx, record); err != nil {
			t.Fatalf("append message: %v", err)
		}
	}

	messages, err := store.ListMessages(ctx, "sess-1", 0)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	if messages[0].Text != "hello" || messages[2].Text != "run a marathon" {
		t.Fatalf("unexpected order %+v", messages)
	}
}

func TestTelemetryAppend(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	evt := storage.TelemetryEvent{
		EventName:  "saga.step.skipped",
		Severity:   "WARN",
		Attributes: map[string]string{"step": "vision_artifact"},
		Timestamp:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := store.AppendTelemetryEvent(ctx, evt); err != nil {
		t.Fatalf("append telemetry: %v", err)
	}

	var count int
	if err := store.DB().QueryRow("SELECT COUNT(*) FROM telemetry_events").Scan(&count); err != nil {
		t.Fatalf("count telemetry: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 event, got %d", count)
	}
}
