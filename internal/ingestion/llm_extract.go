package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/argus-assistant/argus/internal/llmclient"
	"github.com/argus-assistant/argus/internal/model"
)

// extractSystemPrompt instructs the LLM to return a JSON array of
// proposed events, possibly empty (§4.6 step 6).
const extractSystemPrompt = `You extract calendar-worthy events implied by a chat message.
Reply with ONLY a JSON array (possibly empty) of objects:
{"eventType":"meeting|deadline|reminder|travel|task|subscription|recommendation|other","title":"...","description":"...","eventTime":"ISO-8601 or empty","location":"...","participants":"...","keywords":"comma,separated","confidence":0..1,"eventAction":"create|modify","targetEventId":<id or null>}
Use "now" as the reference instant for resolving relative dates. Pick targetEventId only from the candidate list when eventAction is "modify".`

type wireProposedEvent struct {
	EventType     model.EventType   `json:"eventType"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	EventTimeISO  string            `json:"eventTime"`
	Location      string            `json:"location"`
	Participants  string            `json:"participants"`
	Keywords      string            `json:"keywords"`
	Confidence    float64           `json:"confidence"`
	EventAction   model.EventAction `json:"eventAction"`
	TargetEventID *int64            `json:"targetEventId"`
}

// analyzeLLM is the T1 path for §4.6 step 6: the message, last-5-message
// context, active-event candidates, and the message timestamp as "now".
func analyzeLLM(ctx context.Context, client *llmclient.Client, message string, recent []string, candidates []model.CandidateEvent, now time.Time) ([]model.ProposedEvent, error) {
	var ctxBuilder strings.Builder
	for _, m := range recent {
		ctxBuilder.WriteString("- ")
		ctxBuilder.WriteString(m)
		ctxBuilder.WriteByte('\n')
	}

	turns := []llmclient.ChatTurn{
		{Role: "system", Content: extractSystemPrompt},
		{Role: "user", Content: fmt.Sprintf(
			"now: %s\nRecent context:\n%sCandidates:\n%sMessage: %q",
			now.Format(time.RFC3339), ctxBuilder.String(), renderCandidates(candidates), message,
		)},
	}

	reply, _, err := client.ChatCompletion(ctx, turns)
	if err != nil {
		return nil, err
	}

	var wire []wireProposedEvent
	if err := json.Unmarshal([]byte(extractJSONArray(reply)), &wire); err != nil {
		return nil, fmt.Errorf("parse extraction response: %w", err)
	}

	out := make([]model.ProposedEvent, 0, len(wire))
	for _, w := range wire {
		out = append(out, model.ProposedEvent{
			EventType:     w.EventType,
			Title:         w.Title,
			Description:   w.Description,
			EventTimeISO:  w.EventTimeISO,
			Location:      w.Location,
			Participants:  w.Participants,
			Keywords:      w.Keywords,
			Confidence:    w.Confidence,
			Action:        w.EventAction,
			TargetEventID: w.TargetEventID,
		})
	}
	return out, nil
}

func extractJSONArray(s string) string {
	start := strings.IndexByte(s, '[')
	end := strings.LastIndexByte(s, ']')
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
