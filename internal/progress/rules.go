// Package progress interprets free-text progress reports into board
// mutations and reward grants.
//
// Interpretation is a priority-ordered rule table evaluated top-down; the
// first matching rule wins. Card matching is deliberately tolerant and on
// multiple candidates the first card in list order wins.
package progress

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shxuryaaz/agilow-goal-forge/internal/board"
)

// Kind classifies the interpreted intent of a progress message.
type Kind int

const (
	// KindNone indicates no rule matched; acknowledge without mutation.
	KindNone Kind = iota
	// KindStartWeek moves the week card from To Do to Doing.
	KindStartWeek
	// KindCompleteWeek moves the week card from Doing to Done and grants
	// the completion reward.
	KindCompleteWeek
	// KindClarify asks which week the owner means.
	KindClarify
)

// Outcome is the interpreted intent of one progress message.
type Outcome struct {
	Kind  Kind
	Week  int
	Reply string
}

// rule pairs a predicate pattern with the outcome it produces.
type rule struct {
	pattern *regexp.Regexp
	kind    Kind
}

// Rules are evaluated top-down.
var rules = []rule{
	{regexp.MustCompile(`(?i)\b(start(?:ed)?|begin|beginning|began)\b.*?\bweek\s*(\d+)`), KindStartWeek},
	{regexp.MustCompile(`(?i)\bweek\s*(\d+)\b.*?\b(start(?:ed)?|begin|beginning|began)\b`), KindStartWeek},
	{regexp.MustCompile(`(?i)\b(done|completed?|finish(?:ed)?)\b.*?\bweek\s*(\d+)`), KindCompleteWeek},
	{regexp.MustCompile(`(?i)\bweek\s*(\d+)\b.*?\b(done|completed?|finish(?:ed)?)\b`), KindCompleteWeek},
	{regexp.MustCompile(`(?i)\b(done|completed?|finish(?:ed)?)\b`), KindClarify},
}

// Interpret maps a free-text message onto an Outcome. It never errors: an
// unmatched message yields a neutral acknowledgment.
func Interpret(message string) Outcome {
	for _, r := range rules {
		match := r.pattern.FindStringSubmatch(message)
		if match == nil {
			continue
		}
		switch r.kind {
		case KindStartWeek, KindCompleteWeek:
			week := parseWeekNumber(match)
			if week <= 0 {
				continue
			}
			reply := fmt.Sprintf("Week %d moved to Doing. Good luck!", week)
			if r.kind == KindCompleteWeek {
				reply = fmt.Sprintf("Week %d done, congratulations! Keep the streak going.", week)
			}
			return Outcome{Kind: r.kind, Week: week, Reply: reply}
		case KindClarify:
			return Outcome{
				Kind:  KindClarify,
				Reply: "Nice work! Which week did you finish? Tell me the week number so I can update your board.",
			}
		}
	}
	return Outcome{
		Kind:  KindNone,
		Reply: "Got it. Keep me posted and tell me when you start or finish a week.",
	}
}

// parseWeekNumber extracts the numeric capture group from a rule match.
func parseWeekNumber(match []string) int {
	for _, group := range match[1:] {
		if group == "" {
			continue
		}
		if week, err := strconv.Atoi(group); err == nil {
			return week
		}
	}
	return 0
}

// FindWeekCard returns the first card in list order whose title mentions
// the given week.
func FindWeekCard(list board.List, week int) (board.Card, bool) {
	needle := fmt.Sprintf("week %d", week)
	for _, card := range list.Cards {
		title := strings.ToLower(card.Title)
		if containsWeek(title, needle) {
			return card, true
		}
	}
	return board.Card{}, false
}

// containsWeek reports a tolerant match that avoids "week 1" matching
// "week 10".
func containsWeek(title, needle string) bool {
	idx := strings.Index(title, needle)
	if idx < 0 {
		return false
	}
	rest := title[idx+len(needle):]
	return rest == "" || !isDigit(rest[0])
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
