// Package heuristics implements the T2 deterministic fallbacks (§4.4):
// pure functions with no I/O, used when the LLM tier is degraded.
package heuristics

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/argus-assistant/argus/internal/model"
)

// greetingTokens are pure-greeting messages that short-circuit Analyze.
var greetingTokens = map[string]bool{
	"hi": true, "hello": true, "hey": true, "yo": true,
	"namaste": true, "hii": true, "hiii": true, "ok": true, "okay": true,
	"thanks": true, "thank you": true, "k": true, "kk": true,
}

// actionVerbPattern recognizes messages whose intent is to act on an
// existing event, not to create one (§4.4: "short-circuits on ... any
// recognized action verb").
var actionVerbPattern = regexp.MustCompile(`(?i)\b(cancel|cancelled|done|ho gaya|complete|completed|remind me|ignore|postpone|snooze)\b`)

var subscriptionServices = []string{
	"netflix", "spotify", "prime", "amazon prime", "hulu", "disney+", "disney plus",
	"youtube premium", "hbo", "apple music", "apple tv", "hotstar",
}

var meetingKeywords = regexp.MustCompile(`(?i)\b(meet|meeting|call|dinner|lunch|interview|sync|standup)\b`)
var taskKeywords = regexp.MustCompile(`(?i)\b(need to|remember to|don't forget|dont forget|todo|to-do)\b`)

var locationPattern = regexp.MustCompile(`(?i)\b(?:in|at)\s+([a-zA-Z][a-zA-Z0-9 '\-]{1,27}[a-zA-Z0-9])\b`)

var weekdayNames = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

var explicitTimePattern = regexp.MustCompile(`(?i)\b([01]?\d)(?::([0-5]\d))?\s*(am|pm)?\b`)

// MaxHeuristicConfidence is the confidence ceiling for Analyze (§4.4).
const MaxHeuristicConfidence = 0.95

// Analyze returns zero or one extracted event using pure pattern
// matching. now is the message's originating timestamp, used to
// resolve relative dates.
func Analyze(message string, now time.Time) (*model.ProposedEvent, bool) {
	trimmed := strings.TrimSpace(message)
	lower := strings.ToLower(trimmed)

	if len(trimmed) < 5 {
		return nil, false
	}
	if greetingTokens[lower] {
		return nil, false
	}
	if actionVerbPattern.MatchString(lower) {
		return nil, false
	}

	eventType := classify(lower)

	var eventTime *time.Time
	if t, ok := resolveDate(lower, now); ok {
		eventTime = &t
	}

	location := extractLocation(trimmed)

	proposed := &model.ProposedEvent{
		EventType:   eventType,
		Title:       deriveTitle(trimmed),
		Location:    location,
		Confidence:  MaxHeuristicConfidence,
		Action:      model.EventActionCreate,
		Keywords:    deriveKeywords(lower),
	}
	if eventTime != nil {
		proposed.EventTimeISO = eventTime.Format(time.RFC3339)
	}

	return proposed, true
}

func classify(lower string) model.EventType {
	for _, svc := range subscriptionServices {
		if strings.Contains(lower, svc) {
			return model.EventSubscription
		}
	}
	if meetingKeywords.MatchString(lower) {
		return model.EventMeeting
	}
	if taskKeywords.MatchString(lower) {
		return model.EventTask
	}
	return model.EventOther
}

// resolveDate applies §4.4's date-resolution rules: tomorrow/kal -> +1
// day 10:00, today/aaj -> today 10:00, next week -> +7 days, weekday
// names -> next occurrence, explicit HH(:MM)?(am|pm)? overrides the
// default hour (rolling to tomorrow if already past).
func resolveDate(lower string, now time.Time) (time.Time, bool) {
	base, ok := resolveBaseDay(lower, now)
	if !ok {
		return time.Time{}, false
	}

	hour, minute, hasExplicit := resolveExplicitTime(lower)
	if !hasExplicit {
		hour, minute = 10, 0
	}

	result := time.Date(base.Year(), base.Month(), base.Day(), hour, minute, 0, 0, base.Location())

	if hasExplicit && result.Before(now) && sameDay(base, now) {
		result = result.AddDate(0, 0, 1)
	}

	return result, true
}

func resolveBaseDay(lower string, now time.Time) (time.Time, bool) {
	switch {
	case strings.Contains(lower, "tomorrow") || strings.Contains(lower, "kal"):
		return now.AddDate(0, 0, 1), true
	case strings.Contains(lower, "today") || strings.Contains(lower, "aaj"):
		return now, true
	case strings.Contains(lower, "next week"):
		return now.AddDate(0, 0, 7), true
	}

	for i, name := range weekdayNames {
		if strings.Contains(lower, name) {
			target := time.Weekday(i)
			days := (int(target) - int(now.Weekday()) + 7) % 7
			if days == 0 {
				days = 7
			}
			return now.AddDate(0, 0, days), true
		}
	}

	if explicitTimePattern.MatchString(lower) {
		return now, true
	}

	return time.Time{}, false
}

func resolveExplicitTime(lower string) (hour, minute int, ok bool) {
	m := explicitTimePattern.FindStringSubmatch(lower)
	if m == nil {
		return 0, 0, false
	}
	hour, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	switch strings.ToLower(m[3]) {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 {
		return 0, 0, false
	}
	return hour, minute, true
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func extractLocation(message string) string {
	m := locationPattern.FindStringSubmatch(message)
	if m == nil {
		return ""
	}
	loc := strings.TrimSpace(m[1])
	if len(loc) < 3 || len(loc) > 29 {
		return ""
	}
	return loc
}

func deriveTitle(message string) string {
	title := strings.TrimSpace(message)
	if len(title) > 120 {
		title = title[:120]
	}
	return title
}

func deriveKeywords(lower string) string {
	words := strings.Fields(lower)
	seen := make(map[string]bool)
	var kws []string
	for _, w := range words {
		w = strings.Trim(w, ".,!?;:'\"")
		if len(w) < 3 || seen[w] {
			continue
		}
		seen[w] = true
		kws = append(kws, w)
		if len(kws) >= 8 {
			break
		}
	}
	return strings.Join(kws, ",")
}
