package board

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// FakeAdapter is an in-memory Adapter. It backs tests and offline runs
// where no board collaborator is linked.
type FakeAdapter struct {
	mu     sync.Mutex
	nextID int

	boards     map[string]*fakeBoard
	listBoard  map[string]string
	cardList   map[string]string
	cardChecks map[string][]ChecklistItem
}

type fakeBoard struct {
	title       string
	description string
	lists       []*fakeList
}

type fakeList struct {
	id    string
	name  string
	cards []*Card
}

// NewFakeAdapter creates an empty in-memory board service.
func NewFakeAdapter() *FakeAdapter {
	return &FakeAdapter{
		boards:     make(map[string]*fakeBoard),
		listBoard:  make(map[string]string),
		cardList:   make(map[string]string),
		cardChecks: make(map[string][]ChecklistItem),
	}
}

func (f *FakeAdapter) newID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *FakeAdapter) CreateBoard(_ context.Context, title, description string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.newID("board")
	f.boards[id] = &fakeBoard{title: title, description: description}
	return id, nil
}

func (f *FakeAdapter) CreateLists(_ context.Context, boardID string, names []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.boards[boardID]
	if !ok {
		return nil, fmt.Errorf("board %s not found", boardID)
	}

	ids := make([]string, 0, len(names))
	for _, name := range names {
		id := f.newID("list")
		b.lists = append(b.lists, &fakeList{id: id, name: name})
		f.listBoard[id] = boardID
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *FakeAdapter) findList(listID string) (*fakeList, error) {
	boardID, ok := f.listBoard[listID]
	if !ok {
		return nil, fmt.Errorf("list %s not found", listID)
	}
	for _, list := range f.boards[boardID].lists {
		if list.id == listID {
			return list, nil
		}
	}
	return nil, fmt.Errorf("list %s not found", listID)
}

func (f *FakeAdapter) CreateCard(_ context.Context, listID, title, description string, due *time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	list, err := f.findList(listID)
	if err != nil {
		return "", err
	}

	id := f.newID("card")
	list.cards = append(list.cards, &Card{
		ID:          id,
		Title:       title,
		Description: description,
		Due:         due,
	})
	f.cardList[id] = listID
	return id, nil
}

func (f *FakeAdapter) CreateChecklist(_ context.Context, cardID string, items []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.cardList[cardID]; !ok {
		return "", fmt.Errorf("card %s not found", cardID)
	}

	id := f.newID("checklist")
	for _, item := range items {
		f.cardChecks[cardID] = append(f.cardChecks[cardID], ChecklistItem{
			ID:   f.newID("item"),
			Name: item,
		})
	}
	return id, nil
}

func (f *FakeAdapter) MoveCard(_ context.Context, cardID, targetListID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	sourceID, ok := f.cardList[cardID]
	if !ok {
		return fmt.Errorf("card %s not found", cardID)
	}
	source, err := f.findList(sourceID)
	if err != nil {
		return err
	}
	target, err := f.findList(targetListID)
	if err != nil {
		return err
	}

	for i, card := range source.cards {
		if card.ID == cardID {
			source.cards = append(source.cards[:i], source.cards[i+1:]...)
			target.cards = append(target.cards, card)
			f.cardList[cardID] = targetListID
			return nil
		}
	}
	return fmt.Errorf("card %s not found", cardID)
}

func (f *FakeAdapter) SetChecklistItemState(_ context.Context, cardID, itemID string, done bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	items := f.cardChecks[cardID]
	for i := range items {
		if items[i].ID == itemID {
			items[i].Done = done
			return nil
		}
	}
	return fmt.Errorf("checklist item %s not found on card %s", itemID, cardID)
}

func (f *FakeAdapter) ListBoard(_ context.Context, boardID string) (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.boards[boardID]
	if !ok {
		return Snapshot{}, fmt.Errorf("board %s not found", boardID)
	}

	snapshot := Snapshot{BoardID: boardID}
	for _, list := range b.lists {
		converted := List{ID: list.id, Name: list.name}
		for _, card := range list.cards {
			copied := *card
			copied.Checklist = append([]ChecklistItem(nil), f.cardChecks[card.ID]...)
			converted.Cards = append(converted.Cards, copied)
		}
		snapshot.Lists = append(snapshot.Lists, converted)
	}
	return snapshot, nil
}

var _ Adapter = (*FakeAdapter)(nil)
