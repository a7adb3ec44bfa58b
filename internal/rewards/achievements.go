package rewards

// Achievement types unlockable by goal tracking.
const (
	AchievementGoalCreated   = "goal_created"
	AchievementFirstWeekDone = "first_week_done"
	AchievementGoalCompleted = "goal_completed"
	AchievementEarlyBird     = "early_bird"
)

// Rarity labels for the achievement catalog.
const (
	RarityCommon   = "common"
	RarityUncommon = "uncommon"
	RarityRare     = "rare"
)

// CatalogEntry describes one achievement type.
type CatalogEntry struct {
	Type         string
	Title        string
	Rarity       string
	RewardAmount int64
}

// Catalog is the fixed achievement catalog, in unlock-likelihood order.
var Catalog = []CatalogEntry{
	{Type: AchievementGoalCreated, Title: "Forged a goal", Rarity: RarityCommon, RewardAmount: 25},
	{Type: AchievementFirstWeekDone, Title: "First week down", Rarity: RarityCommon, RewardAmount: 25},
	{Type: AchievementEarlyBird, Title: "Ahead of schedule", Rarity: RarityUncommon, RewardAmount: 30},
	{Type: AchievementGoalCompleted, Title: "Goal completed", Rarity: RarityRare, RewardAmount: 150},
}

// CatalogEntryFor returns the catalog entry for a type.
func CatalogEntryFor(achievementType string) (CatalogEntry, bool) {
	for _, entry := range Catalog {
		if entry.Type == achievementType {
			return entry, true
		}
	}
	return CatalogEntry{}, false
}
