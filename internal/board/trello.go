package board

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shxuryaaz/agilow-goal-forge/internal/platform/timeouts"
)

const trelloBaseURL = "https://api.trello.com/1"

// TrelloAdapter implements Adapter against the Trello REST API using an
// owner link token.
type TrelloAdapter struct {
	baseURL string
	apiKey  string
	token   string
	client  *http.Client
}

// NewTrelloAdapter creates a Trello adapter for one owner token.
func NewTrelloAdapter(apiKey, token string) *TrelloAdapter {
	return &TrelloAdapter{
		baseURL: trelloBaseURL,
		apiKey:  apiKey,
		token:   token,
		client:  &http.Client{Timeout: timeouts.CollaboratorRequest},
	}
}

func (a *TrelloAdapter) call(ctx context.Context, method, path string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("key", a.apiKey)
	params.Set("token", a.token)

	endpoint := a.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build board request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("board request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrAuthExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("board request %s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode board response: %w", err)
	}
	return nil
}

type idResponse struct {
	ID string `json:"id"`
}

// CreateBoard creates an empty board without default lists.
func (a *TrelloAdapter) CreateBoard(ctx context.Context, title, description string) (string, error) {
	return retryOnce(ctx, func() (string, error) {
		params := url.Values{}
		params.Set("name", title)
		params.Set("desc", description)
		params.Set("defaultLists", "false")

		var created idResponse
		if err := a.call(ctx, http.MethodPost, "/boards/", params, &created); err != nil {
			return "", err
		}
		return created.ID, nil
	})
}

// CreateLists creates the named lists in order and returns their IDs.
func (a *TrelloAdapter) CreateLists(ctx context.Context, boardID string, names []string) ([]string, error) {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		listID, err := retryOnce(ctx, func() (string, error) {
			params := url.Values{}
			params.Set("name", name)
			params.Set("idBoard", boardID)
			params.Set("pos", "bottom")

			var created idResponse
			if err := a.call(ctx, http.MethodPost, "/lists", params, &created); err != nil {
				return "", err
			}
			return created.ID, nil
		})
		if err != nil {
			return nil, fmt.Errorf("create list %q: %w", name, err)
		}
		ids = append(ids, listID)
	}
	return ids, nil
}

// CreateCard creates a card at the bottom of a list.
func (a *TrelloAdapter) CreateCard(ctx context.Context, listID, title, description string, due *time.Time) (string, error) {
	return retryOnce(ctx, func() (string, error) {
		params := url.Values{}
		params.Set("idList", listID)
		params.Set("name", title)
		params.Set("desc", description)
		params.Set("pos", "bottom")
		if due != nil {
			params.Set("due", due.UTC().Format(time.RFC3339))
		}

		var created idResponse
		if err := a.call(ctx, http.MethodPost, "/cards", params, &created); err != nil {
			return "", err
		}
		return created.ID, nil
	})
}

// CreateChecklist creates a checklist on a card with the given items.
func (a *TrelloAdapter) CreateChecklist(ctx context.Context, cardID string, items []string) (string, error) {
	checklistID, err := retryOnce(ctx, func() (string, error) {
		params := url.Values{}
		params.Set("idCard", cardID)
		params.Set("name", "Tasks")

		var created idResponse
		if err := a.call(ctx, http.MethodPost, "/checklists", params, &created); err != nil {
			return "", err
		}
		return created.ID, nil
	})
	if err != nil {
		return "", err
	}

	for _, item := range items {
		_, err := retryOnce(ctx, func() (struct{}, error) {
			params := url.Values{}
			params.Set("name", item)
			return struct{}{}, a.call(ctx, http.MethodPost, "/checklists/"+checklistID+"/checkItems", params, nil)
		})
		if err != nil {
			return "", fmt.Errorf("add checklist item %q: %w", item, err)
		}
	}
	return checklistID, nil
}

// MoveCard moves a card to the target list.
func (a *TrelloAdapter) MoveCard(ctx context.Context, cardID, targetListID string) error {
	_, err := retryOnce(ctx, func() (struct{}, error) {
		params := url.Values{}
		params.Set("idList", targetListID)
		return struct{}{}, a.call(ctx, http.MethodPut, "/cards/"+cardID, params, nil)
	})
	return err
}

// SetChecklistItemState marks a checklist item complete or incomplete.
func (a *TrelloAdapter) SetChecklistItemState(ctx context.Context, cardID, itemID string, done bool) error {
	state := "incomplete"
	if done {
		state = "complete"
	}
	_, err := retryOnce(ctx, func() (struct{}, error) {
		params := url.Values{}
		params.Set("state", state)
		return struct{}{}, a.call(ctx, http.MethodPut, "/cards/"+cardID+"/checkItem/"+itemID, params, nil)
	})
	return err
}

type trelloCard struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Desc        string `json:"desc"`
	Due         string `json:"due"`
	DueComplete bool   `json:"dueComplete"`
}

type trelloList struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	Cards []trelloCard `json:"cards"`
}

// ListBoard fetches a snapshot of the board lists and open cards.
func (a *TrelloAdapter) ListBoard(ctx context.Context, boardID string) (Snapshot, error) {
	return retryOnce(ctx, func() (Snapshot, error) {
		params := url.Values{}
		params.Set("cards", "open")
		params.Set("card_fields", "name,desc,due,dueComplete")
		params.Set("fields", "name")

		var lists []trelloList
		if err := a.call(ctx, http.MethodGet, "/boards/"+boardID+"/lists", params, &lists); err != nil {
			return Snapshot{}, err
		}

		snapshot := Snapshot{BoardID: boardID}
		for _, list := range lists {
			converted := List{ID: list.ID, Name: list.Name}
			for _, card := range list.Cards {
				item := Card{
					ID:          card.ID,
					Title:       card.Name,
					Description: card.Desc,
					Done:        card.DueComplete,
				}
				if card.Due != "" {
					if due, err := time.Parse(time.RFC3339, card.Due); err == nil {
						item.Due = &due
					}
				}
				converted.Cards = append(converted.Cards, item)
			}
			snapshot.Lists = append(snapshot.Lists, converted)
		}
		return snapshot, nil
	})
}

var _ Adapter = (*TrelloAdapter)(nil)
