package heuristics

import (
	"strings"

	"github.com/argus-assistant/argus/internal/model"
)

const actionConfidence = 0.9

var completeTokens = []string{"done", "completed", "ho gaya", "finished", "did it"}
var cancelTokens = []string{"cancel", "cancelled", "canceled", "not happening", "scrap"}
var ignoreTokens = []string{"ignore", "not relevant", "doesn't matter", "whatever"}
var postponeTokens = []string{"postpone", "later", "not now", "push it"}

// snoozeDuration mirrors §4.4's rule table for postpone snooze length.
func snoozeDuration(lower string) int {
	switch {
	case strings.Contains(lower, "next week"):
		return 10080
	case strings.Contains(lower, "tomorrow") || strings.Contains(lower, "kal"):
		return 1440
	default:
		return 30
	}
}

// DetectAction matches an inbound message against a set of candidate
// events already known to the caller, using token overlap to pick the
// most likely target when more than one candidate shares keywords.
func DetectAction(message string, candidates []model.CandidateEvent) model.DetectedAction {
	lower := strings.ToLower(strings.TrimSpace(message))

	kind := classifyActionKind(lower)
	if kind == model.ActionNone {
		return model.DetectedAction{Action: model.ActionNone}
	}

	target := bestCandidate(lower, candidates)
	if target == nil {
		return model.DetectedAction{Action: model.ActionNone}
	}

	result := model.DetectedAction{
		Action:        kind,
		TargetEventID: &target.ID,
		Confidence:    actionConfidence,
	}
	if kind == model.ActionPostpone {
		result.SnoozeMinutes = snoozeDuration(lower)
	}
	return result
}

func classifyActionKind(lower string) model.ActionKind {
	switch {
	case containsAny(lower, completeTokens):
		return model.ActionComplete
	case containsAny(lower, cancelTokens):
		return model.ActionCancel
	case containsAny(lower, ignoreTokens):
		return model.ActionIgnoreEv
	case containsAny(lower, postponeTokens):
		return model.ActionPostpone
	default:
		return model.ActionNone
	}
}

func containsAny(lower string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// bestCandidate picks the candidate event with the highest token
// overlap against the message, requiring at least one shared token.
func bestCandidate(lower string, candidates []model.CandidateEvent) *model.CandidateEvent {
	msgTokens := tokenSet(lower)
	if len(msgTokens) == 0 || len(candidates) == 0 {
		return nil
	}

	var best *model.CandidateEvent
	bestScore := 0

	for i := range candidates {
		c := &candidates[i]
		candTokens := tokenSet(strings.ToLower(c.Title + " " + c.Keywords))
		score := overlapCount(msgTokens, candTokens)
		if score > bestScore {
			bestScore = score
			best = c
		}
	}

	if bestScore == 0 {
		return nil
	}
	return best
}

// tokenSet splits on whitespace and commas (keywords are stored
// comma-separated, §3) and discards anything shorter than 3 runes.
func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t' || r == '\n'
	}) {
		w = strings.Trim(w, ".!?;:'\"")
		if len(w) >= 3 {
			set[w] = true
		}
	}
	return set
}

func overlapCount(a, b map[string]bool) int {
	n := 0
	for k := range a {
		if b[k] {
			n++
		}
	}
	return n
}
