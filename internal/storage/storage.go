// Package storage defines persistence records and interfaces for goal-forge.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// ErrConflict indicates a requested state transition is invalid.
var ErrConflict = errors.New("record conflict")

// SessionRecord stores a persisted conversation session.
type SessionRecord struct {
	ID          string
	Owner       string
	State       string
	SlotAnswers []SlotAnswerRecord
	GoalID      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SlotAnswerRecord stores one answered slot prompt.
type SlotAnswerRecord struct {
	Slot       string    `json:"slot"`
	Answer     string    `json:"answer"`
	AnsweredAt time.Time `json:"answered_at"`
}

// MessageRecord stores one message of a session log.
type MessageRecord struct {
	ID        string
	SessionID string
	Author    string
	Text      string
	CreatedAt time.Time
}

// GoalRecord stores a persisted goal with its plan and references.
type GoalRecord struct {
	ID            string
	Owner         string
	Title         string
	Description   string
	Weeks         []WeekGroupRecord
	Status        string
	RewardTotal   int64
	BoardID       string
	CredentialID  string
	CertificateID string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

// WeekGroupRecord stores one weekly task group of a goal plan.
type WeekGroupRecord struct {
	Week   int      `json:"week"`
	Theme  string   `json:"theme"`
	Tasks  []string `json:"tasks"`
	CardID string   `json:"card_id,omitempty"`
	Done   bool     `json:"done"`
}

// RewardEntryRecord stores one append-only reward ledger entry.
type RewardEntryRecord struct {
	ID            string
	Owner         string
	Amount        int64
	Reason        string
	Source        string
	GoalID        string
	AchievementID string
	CreatedAt     time.Time
}

// AchievementRecord stores one unlocked achievement.
// At most one record exists per (owner, type).
type AchievementRecord struct {
	ID               string
	Owner            string
	Type             string
	Rarity           string
	RewardAmount     int64
	CredentialMinted bool
	UnlockedAt       time.Time
}

// WalletRecord stores the public side of an owner wallet. Recovery phrases
// are returned once at creation and never persisted.
type WalletRecord struct {
	Owner     string
	Address   string
	CreatedAt time.Time
}

// CredentialRecord stores a minted soulbound credential.
// Exactly one record exists per (goal, owner address); metadata is
// immutable once minted.
type CredentialRecord struct {
	ID           string
	OwnerAddress string
	GoalID       string
	MetadataURI  string
	MintTx       string
	MintedAt     time.Time
}

// BoardLinkRecord stores the board collaborator link token for an owner.
type BoardLinkRecord struct {
	Owner         string
	Token         string
	LinkedAt      time.Time
	InvalidatedAt *time.Time
}

// TelemetryEvent captures one operational event.
type TelemetryEvent struct {
	EventName  string
	Severity   string
	Attributes map[string]string
	Timestamp  time.Time
}

// SessionStore persists conversation sessions.
type SessionStore interface {
	PutSession(ctx context.Context, record SessionRecord) error
	GetSession(ctx context.Context, sessionID string) (SessionRecord, error)
	// GetLatestSessionByOwner returns the most recently created session for
	// the owner, or ErrNotFound.
	GetLatestSessionByOwner(ctx context.Context, owner string) (SessionRecord, error)
	// CompareAndSwapSessionState atomically moves a session from one state
	// to another. It reports false when the session was not in the expected
	// state, without error.
	CompareAndSwapSessionState(ctx context.Context, sessionID, fromState, toState string) (bool, error)
}

// MessageStore persists session message logs.
type MessageStore interface {
	AppendMessage(ctx context.Context, record MessageRecord) error
	ListMessages(ctx context.Context, sessionID string, limit int) ([]MessageRecord, error)
}

// GoalStore persists goals.
type GoalStore interface {
	PutGoal(ctx context.Context, record GoalRecord) error
	GetGoal(ctx context.Context, goalID string) (GoalRecord, error)
	GetActiveGoalByOwner(ctx context.Context, owner string) (GoalRecord, error)
}

// RewardStore persists the append-only reward ledger.
type RewardStore interface {
	AppendRewardEntry(ctx context.Context, record RewardEntryRecord) error
	ListRewardEntries(ctx context.Context, owner string) ([]RewardEntryRecord, error)
	// SumRewardEntries returns the owner balance, the sum of all signed
	// entry amounts.
	SumRewardEntries(ctx context.Context, owner string) (int64, error)
}

// AchievementStore persists achievements with one-per-(owner,type) semantics.
type AchievementStore interface {
	// InsertAchievementIfAbsent inserts the record unless one with the same
	// (owner, type) already exists. It returns the stored record and whether
	// the insert created it.
	InsertAchievementIfAbsent(ctx context.Context, record AchievementRecord) (AchievementRecord, bool, error)
	GetAchievement(ctx context.Context, owner, achievementType string) (AchievementRecord, error)
	ListAchievements(ctx context.Context, owner string) ([]AchievementRecord, error)
}

// WalletStore persists wallet addresses.
type WalletStore interface {
	PutWallet(ctx context.Context, record WalletRecord) error
	GetWallet(ctx context.Context, owner string) (WalletRecord, error)
}

// CredentialStore persists soulbound credentials.
type CredentialStore interface {
	// InsertCredentialIfAbsent inserts the record unless one with the same
	// (goal, owner address) already exists. It returns the stored record and
	// whether the insert created it.
	InsertCredentialIfAbsent(ctx context.Context, record CredentialRecord) (CredentialRecord, bool, error)
	GetCredentialByGoal(ctx context.Context, goalID, ownerAddress string) (CredentialRecord, error)
}

// BoardLinkStore persists board collaborator link tokens.
type BoardLinkStore interface {
	PutBoardLink(ctx context.Context, record BoardLinkRecord) error
	GetBoardLink(ctx context.Context, owner string) (BoardLinkRecord, error)
	// InvalidateBoardLink marks the owner link as expired so the next
	// conversation prompts a re-link.
	InvalidateBoardLink(ctx context.Context, owner string, at time.Time) error
}

// TelemetryStore persists operational telemetry events.
type TelemetryStore interface {
	AppendTelemetryEvent(ctx context.Context, evt TelemetryEvent) error
}
