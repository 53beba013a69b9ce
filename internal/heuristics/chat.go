package heuristics

import (
	"fmt"
	"strings"
	"time"

	"github.com/argus-assistant/argus/internal/model"
)

// maxChatMatches bounds how many events the templated reply lists.
const maxChatMatches = 3

// ChatResponse is the T2 fallback's answer to a free-form chat query,
// mirroring the shape the T1 LLM chat completion would otherwise fill in.
type ChatResponse struct {
	Reply   string  `json:"reply"`
	Matches []int64 `json:"matchedEventIds,omitempty"`
}

// Chat answers a free-form query against a set of known events using
// token overlap, applying a today/this-week date filter when the
// message asks for it, and falls back to a generic templated reply
// when nothing scores above zero.
func Chat(message string, now time.Time, events []model.Event) ChatResponse {
	lower := strings.ToLower(strings.TrimSpace(message))
	queryTokens := tokenSet(lower)

	filtered := applyDateFilter(lower, now, events)

	type scored struct {
		event model.Event
		score int
	}
	var candidates []scored
	for _, e := range filtered {
		evTokens := tokenSet(strings.ToLower(e.Title + " " + e.Keywords))
		score := overlapCount(queryTokens, evTokens)
		if score > 0 {
			candidates = append(candidates, scored{e, score})
		}
	}

	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			if candidates[j].score > candidates[i].score {
				candidates[i], candidates[j] = candidates[j], candidates[i]
			}
		}
	}

	if len(candidates) == 0 {
		return ChatResponse{Reply: "I couldn't find anything matching that. Could you rephrase?"}
	}

	if len(candidates) > maxChatMatches {
		candidates = candidates[:maxChatMatches]
	}

	var titles []string
	var ids []int64
	for _, c := range candidates {
		titles = append(titles, c.event.Title)
		ids = append(ids, c.event.ID)
	}

	reply := fmt.Sprintf("Here's what I found: %s", strings.Join(titles, "; "))
	return ChatResponse{Reply: reply, Matches: ids}
}

// applyDateFilter narrows events to today or this-week when the query
// mentions either, per §4.4's chat heuristic.
func applyDateFilter(lower string, now time.Time, events []model.Event) []model.Event {
	var start, end time.Time
	switch {
	case strings.Contains(lower, "today"):
		y, m, d := now.Date()
		start = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 0, 1)
	case strings.Contains(lower, "this week"):
		y, m, d := now.Date()
		dayStart := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
		weekday := int(now.Weekday())
		start = dayStart.AddDate(0, 0, -weekday)
		end = start.AddDate(0, 0, 7)
	default:
		return events
	}

	var out []model.Event
	for _, e := range events {
		if e.EventTime == nil {
			continue
		}
		t := time.Unix(*e.EventTime, 0).In(now.Location())
		if !t.Before(start) && t.Before(end) {
			out = append(out, e)
		}
	}
	return out
}
