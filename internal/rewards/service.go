package rewards

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/shxuryaaz/agilow-goal-forge/internal/platform/errors"
	"github.com/shxuryaaz/agilow-goal-forge/internal/platform/id"
	"github.com/shxuryaaz/agilow-goal-forge/internal/storage"
	"github.com/shxuryaaz/agilow-goal-forge/internal/telemetry"
)

// Service grants rewards and unlocks achievements. The durable ledger is
// authoritative; the cache exists for immediate feedback and is
// reconciled on session start.
type Service struct {
	entries      storage.RewardStore
	achievements storage.AchievementStore
	cache        *BalanceCache
	levelSize    int64
	clock        func() time.Time
	idGenerator  func() (string, error)
	telemetry    *telemetry.Emitter
}

// NewService creates a reward service.
func NewService(entries storage.RewardStore, achievements storage.AchievementStore, cache *BalanceCache, emitter *telemetry.Emitter) *Service {
	if cache == nil {
		cache = NewBalanceCache()
	}
	return &Service{
		entries:      entries,
		achievements: achievements,
		cache:        cache,
		levelSize:    DefaultLevelSize,
		clock:        time.Now,
		idGenerator:  id.NewID,
		telemetry:    emitter,
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

// GrantOptimistic applies the grant to the cache first, persists it, and
// rolls the cache back when the persist fails.
func (s *Service) GrantOptimistic(ctx context.Context, input GrantInput) (Entry, error) {
	normalized, err := NormalizeGrantInput(input)
	if err != nil {
		return Entry{}, err
	}

	entryID, err := s.idGenerator()
	if err != nil {
		return Entry{}, fmt.Errorf("generate reward entry id: %w", err)
	}

	entry := Entry{
		ID:            entryID,
		Owner:         normalized.Owner,
		Amount:        normalized.Amount,
		Reason:        normalized.Reason,
		Source:        normalized.Source,
		GoalID:        normalized.GoalID,
		AchievementID: normalized.AchievementID,
		CreatedAt:     s.clock().UTC(),
	}

	s.cache.AddPending(entry.Owner, entry.Amount)
	if err := s.entries.AppendRewardEntry(ctx, toRewardRecord(entry)); err != nil {
		s.cache.Rollback(entry.Owner, entry.Amount)
		s.telemetry.EmitEvent(ctx, "reward.grant.rolled_back", telemetry.SeverityWarn, map[string]string{
			"owner":  entry.Owner,
			"reason": entry.Reason,
		})
		return Entry{}, fmt.Errorf("persist reward entry: %w", err)
	}
	s.cache.Confirm(entry.Owner, entry.Amount)
	return entry, nil
}

// Balance returns the cached owner balance, confirmed plus pending.
func (s *Service) Balance(owner string) int64 {
	return s.cache.Balance(owner)
}

// LedgerBalance returns the authoritative owner balance from the store.
func (s *Service) LedgerBalance(ctx context.Context, owner string) (int64, error) {
	return s.entries.SumRewardEntries(ctx, owner)
}

// Level returns the owner level for the cached balance.
func (s *Service) Level(owner string) int64 {
	return Level(s.cache.Balance(owner), s.levelSize)
}

// Reconcile aligns the cache with the durable ledger. A cache balance
// above the store covers an in-flight optimistic write and is
// republished as a reconciliation entry; otherwise the store wins and
// the cache is refreshed.
func (s *Service) Reconcile(ctx context.Context, owner string) (int64, error) {
	stored, err := s.entries.SumRewardEntries(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("sum reward entries: %w", err)
	}

	cached := s.cache.Balance(owner)
	if cached <= stored {
		s.cache.SetConfirmed(owner, stored)
		return stored, nil
	}

	diff := cached - stored
	entryID, err := s.idGenerator()
	if err != nil {
		return 0, fmt.Errorf("generate reward entry id: %w", err)
	}
	record := storage.RewardEntryRecord{
		ID:        entryID,
		Owner:     owner,
		Amount:    diff,
		Reason:    "reconciled optimistic balance",
		Source:    SourceReconciliation,
		CreatedAt: s.clock().UTC(),
	}
	if err := s.entries.AppendRewardEntry(ctx, record); err != nil {
		return 0, fmt.Errorf("republish cached balance: %w", err)
	}
	s.cache.SetConfirmed(owner, cached)
	s.telemetry.EmitEvent(ctx, "reward.reconciled", telemetry.SeverityInfo, map[string]string{
		"owner": owner,
	})
	return cached, nil
}

// Unlock unlocks an achievement for the owner. Unlocking the same type
// twice returns the existing record and grants nothing.
func (s *Service) Unlock(ctx context.Context, owner, achievementType, goalID string) (storage.AchievementRecord, bool, error) {
	catalogEntry, ok := CatalogEntryFor(achievementType)
	if !ok {
		return storage.AchievementRecord{}, false, apperrors.WithMetadata(
			apperrors.CodeNotFound,
			"unknown achievement type",
			map[string]string{"Type": achievementType},
		)
	}

	achievementID, err := s.idGenerator()
	if err != nil {
		return storage.AchievementRecord{}, false, fmt.Errorf("generate achievement id: %w", err)
	}

	record, created, err := s.achievements.InsertAchievementIfAbsent(ctx, storage.AchievementRecord{
		ID:           achievementID,
		Owner:        owner,
		Type:         catalogEntry.Type,
		Rarity:       catalogEntry.Rarity,
		RewardAmount: catalogEntry.RewardAmount,
		UnlockedAt:   s.clock().UTC(),
	})
	if err != nil {
		return storage.AchievementRecord{}, false, fmt.Errorf("unlock achievement: %w", err)
	}
	if !created {
		return record, false, nil
	}

	_, err = s.GrantOptimistic(ctx, GrantInput{
		Owner:         owner,
		Amount:        catalogEntry.RewardAmount,
		Reason:        catalogEntry.Title,
		Source:        SourceAchievement,
		GoalID:        goalID,
		AchievementID: record.ID,
	})
	if err != nil && !errors.Is(err, ErrZeroAmount) {
		// The unlock stands; only the bonus grant failed.
		s.telemetry.EmitEvent(ctx, "reward.achievement_grant_failed", telemetry.SeverityWarn, map[string]string{
			"owner": owner,
			"type":  achievementType,
		})
	}
	return record, true, nil
}

func toRewardRecord(entry Entry) storage.RewardEntryRecord {
	return storage.RewardEntryRecord{
		ID:            entry.ID,
		Owner:         entry.Owner,
		Amount:        entry.Amount,
		Reason:        entry.Reason,
		Source:        entry.Source,
		GoalID:        entry.GoalID,
		AchievementID: entry.AchievementID,
		CreatedAt:     entry.CreatedAt,
	}
}
