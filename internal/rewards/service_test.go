package rewards

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shxuryaaz/agilow-goal-forge/internal/storage"
)

type fakeRewardStore struct {
	entries   []storage.RewardEntryRecord
	appendErr error
}

func (f *fakeRewardStore) AppendRewardEntry(_ context.Context, record storage.RewardEntryRecord) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.entries = append(f.entries, record)
	return nil
}

func (f *fakeRewardStore) ListRewardEntries(_ context.Context, owner string) ([]storage.RewardEntryRecord, error) {
	var out []storage.RewardEntryRecord
	for _, entry := range f.entries {
		if entry.Owner == owner {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (f *fakeRewardStore) SumRewardEntries(_ context.Context, owner string) (int64, error) {
	var sum int64
	for _, entry := range f.entries {
		if entry.Owner == owner {
			sum += entry.Amount
		}
	}
	return sum, nil
}

type fakeAchievementStore struct {
	records map[string]storage.AchievementRecord
}

func newFakeAchievementStore() *fakeAchievementStore {
	return &fakeAchievementStore{records: make(map[string]storage.AchievementRecord)}
}

func (f *fakeAchievementStore) key(owner, achievementType string) string {
	return owner + "/" + achievementType
}

func (f *fakeAchievementStore) InsertAchievementIfAbsent(_ context.Context, record storage.AchievementRecord) (storage.AchievementRecord, bool, error) {
	key := f.key(record.Owner, record.Type)
	if existing, ok := f.records[key]; ok {
		return existing, false, nil
	}
	f.records[key] = record
	return record, true, nil
}

func (f *fakeAchievementStore) GetAchievement(_ context.Context, owner, achievementType string) (storage.AchievementRecord, error) {
	record, ok := f.records[f.key(owner, achievementType)]
	if !ok {
		return storage.AchievementRecord{}, storage.ErrNotFound
	}
	return record, nil
}

func (f *fakeAchievementStore) ListAchievements(_ context.Context, owner string) ([]storage.AchievementRecord, error) {
	var out []storage.AchievementRecord
	for _, record := range f.records {
		if record.Owner == owner {
			out = append(out, record)
		}
	}
	return out, nil
}

func newTestService(entries *fakeRewardStore) *Service {
	var nextID int
	return NewService(entries, newFakeAchievementStore(), NewBalanceCache(), nil).
		WithClock(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }).
		WithIDGenerator(func() (string, error) {
			nextID++
			return fmt.Sprintf("id-%d", nextID), nil
		})
}

func TestGrantOptimisticConfirms(t *testing.T) {
	ctx := context.Background()
	store := &fakeRewardStore{}
	service := newTestService(store)

	entry, err := service.GrantOptimistic(ctx, GrantInput{
		Owner:  "owner-1",
		Amount: CreationReward,
		Reason: "goal created",
		Source: SourceGoalCreation,
		GoalID: "goal-1",
	})
	if err != nil {
		t.Fatalf("GrantOptimistic: %v", err)
	}
	if entry.Amount != CreationReward {
		t.Fatalf("amount = %d, want %d", entry.Amount, CreationReward)
	}

	if got := service.Balance("owner-1"); got != CreationReward {
		t.Fatalf("cached balance = %d, want %d", got, CreationReward)
	}
	stored, err := service.LedgerBalance(ctx, "owner-1")
	if err != nil {
		t.Fatalf("LedgerBalance: %v", err)
	}
	if stored != CreationReward {
		t.Fatalf("stored balance = %d, want %d", stored, CreationReward)
	}
}

func TestGrantOptimisticRollsBackOnPersistFailure(t *testing.T) {
	ctx := context.Background()
	store := &fakeRewardStore{appendErr: errors.New("disk full")}
	service := newTestService(store)

	_, err := service.GrantOptimistic(ctx, GrantInput{
		Owner:  "owner-1",
		Amount: CreationReward,
		Reason: "goal created",
		Source: SourceGoalCreation,
	})
	if err == nil {
		t.Fatal("expected persist failure")
	}

	if got := service.Balance("owner-1"); got != 0 {
		t.Fatalf("cached balance after rollback = %d, want 0", got)
	}
}

func TestGrantValidation(t *testing.T) {
	ctx := context.Background()
	service := newTestService(&fakeRewardStore{})

	if _, err := service.GrantOptimistic(ctx, GrantInput{Owner: "owner-1", Reason: "r"}); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("error = %v, want ErrZeroAmount", err)
	}
	if _, err := service.GrantOptimistic(ctx, GrantInput{Owner: "owner-1", Amount: 5}); !errors.Is(err, ErrEmptyReason) {
		t.Fatalf("error = %v, want ErrEmptyReason", err)
	}
}

func TestReconcileRefreshesFromStore(t *testing.T) {
	ctx := context.Background()
	store := &fakeRewardStore{entries: []storage.RewardEntryRecord{
		{ID: "e1", Owner: "owner-1", Amount: 40},
		{ID: "e2", Owner: "owner-1", Amount: 10},
	}}
	service := newTestService(store)

	balance, err := service.Reconcile(ctx, "owner-1")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if balance != 50 {
		t.Fatalf("balance = %d, want 50", balance)
	}
	if got := service.Balance("owner-1"); got != 50 {
		t.Fatalf("cached balance = %d, want 50", got)
	}
}

func TestReconcileRepublishesLargerCache(t *testing.T) {
	ctx := context.Background()
	store := &fakeRewardStore{entries: []storage.RewardEntryRecord{
		{ID: "e1", Owner: "owner-1", Amount: 40},
	}}
	service := newTestService(store)
	service.cache.SetConfirmed("owner-1", 65)

	balance, err := service.Reconcile(ctx, "owner-1")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if balance != 65 {
		t.Fatalf("balance = %d, want 65", balance)
	}

	stored, err := service.LedgerBalance(ctx, "owner-1")
	if err != nil {
		t.Fatalf("LedgerBalance: %v", err)
	}
	if stored != 65 {
		t.Fatalf("stored balance after republish = %d, want 65", stored)
	}

	last := store.entries[len(store.entries)-1]
	if last.Source != SourceReconciliation || last.Amount != 25 {
		t.Fatalf("republished entry = %+v, want reconciliation of 25", last)
	}
}

func TestUnlockIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := &fakeRewardStore{}
	service := newTestService(store)

	first, created, err := service.Unlock(ctx, "owner-1", AchievementGoalCreated, "goal-1")
	if err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if !created {
		t.Fatal("first unlock not created")
	}

	second, created, err := service.Unlock(ctx, "owner-1", AchievementGoalCreated, "goal-1")
	if err != nil {
		t.Fatalf("repeat Unlock: %v", err)
	}
	if created {
		t.Fatal("repeat unlock created a second record")
	}
	if second.ID != first.ID {
		t.Fatalf("repeat unlock ID = %q, want %q", second.ID, first.ID)
	}

	// The bonus grant must have happened exactly once.
	balance, err := service.LedgerBalance(ctx, "owner-1")
	if err != nil {
		t.Fatalf("LedgerBalance: %v", err)
	}
	entry, _ := CatalogEntryFor(AchievementGoalCreated)
	if balance != entry.RewardAmount {
		t.Fatalf("balance = %d, want %d", balance, entry.RewardAmount)
	}
}

func TestUnlockUnknownType(t *testing.T) {
	service := newTestService(&fakeRewardStore{})
	if _, _, err := service.Unlock(context.Background(), "owner-1", "bogus", ""); err == nil {
		t.Fatal("expected error for unknown achievement type")
	}
}

func TestLevel(t *testing.T) {
	cases := []struct {
		balance int64
		want    int64
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{250, 3},
		{-20, 1},
	}
	for _, tc := range cases {
		if got := Level(tc.balance, DefaultLevelSize); got != tc.want {
			t.Fatalf("Level(%d) = %d, want %d", tc.balance, got, tc.want)
		}
	}
}
