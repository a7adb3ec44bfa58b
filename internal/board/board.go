// Package board defines the task-board collaborator contract and adapters.
//
// The board service owns all list/card/checklist state; goal-forge only
// references board identifiers. List order on a provisioned board is fixed:
// To Do, Doing, Done, Vision.
package board

import (
	"context"
	"time"

	apperrors "github.com/shxuryaaz/agilow-goal-forge/internal/platform/errors"
)

// Canonical list names for a provisioned goal board.
const (
	ListToDo   = "To Do"
	ListDoing  = "Doing"
	ListDone   = "Done"
	ListVision = "Vision"
)

// DefaultLists is the provisioning order of board lists.
var DefaultLists = []string{ListToDo, ListDoing, ListDone, ListVision}

// ErrAuthExpired reports that the stored link token was rejected. Callers
// must invalidate the link and prompt a re-authorization.
var ErrAuthExpired = apperrors.New(apperrors.CodeBoardAuthExpired, "board authorization expired")

// ChecklistItem is one checklist entry on a card.
type ChecklistItem struct {
	ID   string
	Name string
	Done bool
}

// Card is a snapshot of one board card.
type Card struct {
	ID          string
	Title       string
	Description string
	Due         *time.Time
	Done        bool
	Checklist   []ChecklistItem
}

// List is a snapshot of one board list with its cards in board order.
type List struct {
	ID    string
	Name  string
	Cards []Card
}

// Snapshot is a read-only view of a board.
type Snapshot struct {
	BoardID string
	Lists   []List
}

// FindList returns the list with the given name, if present.
func (s Snapshot) FindList(name string) (List, bool) {
	for _, list := range s.Lists {
		if list.Name == name {
			return list, true
		}
	}
	return List{}, false
}

// Adapter is the external task-board service contract.
type Adapter interface {
	CreateBoard(ctx context.Context, title, description string) (string, error)
	CreateLists(ctx context.Context, boardID string, names []string) ([]string, error)
	CreateCard(ctx context.Context, listID, title, description string, due *time.Time) (string, error)
	CreateChecklist(ctx context.Context, cardID string, items []string) (string, error)
	MoveCard(ctx context.Context, cardID, targetListID string) error
	SetChecklistItemState(ctx context.Context, cardID, itemID string, done bool) error
	ListBoard(ctx context.Context, boardID string) (Snapshot, error)
}
