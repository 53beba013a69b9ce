package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/argus-assistant/argus/internal/llmclient"
	"github.com/argus-assistant/argus/internal/model"
)

// actionSystemPrompt instructs the LLM to return a single JSON object
// matching model.DetectedAction, never prose (§4.6 step 5).
const actionSystemPrompt = `You detect whether a message acts on an existing tracked event (complete, cancel, ignore, postpone, modify) or does nothing.
Reply with ONLY a JSON object: {"action":"complete|cancel|ignore|postpone|modify|none","targetEventId":<id or null>,"confidence":0..1,"snoozeMinutes":<int, only for postpone>,"proposedChanges":{...} }
Pick targetEventId only from the candidate list given to you.`

type wireDetectedAction struct {
	Action          model.ActionKind `json:"action"`
	TargetEventID   *int64           `json:"targetEventId"`
	Confidence      float64          `json:"confidence"`
	SnoozeMinutes   int              `json:"snoozeMinutes"`
	ProposedChanges map[string]any   `json:"proposedChanges"`
}

func renderCandidates(candidates []model.CandidateEvent) string {
	var b strings.Builder
	for _, c := range candidates {
		fmt.Fprintf(&b, "- id=%d title=%q type=%s keywords=%q\n", c.ID, c.Title, c.EventType, c.Keywords)
	}
	return b.String()
}

// detectActionLLM is the T1 path for §4.6 step 5.
func detectActionLLM(ctx context.Context, client *llmclient.Client, message string, candidates []model.CandidateEvent) (model.DetectedAction, error) {
	turns := []llmclient.ChatTurn{
		{Role: "system", Content: actionSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Candidates:\n%sMessage: %q", renderCandidates(candidates), message)},
	}

	reply, _, err := client.ChatCompletion(ctx, turns)
	if err != nil {
		return model.DetectedAction{}, err
	}

	var wire wireDetectedAction
	if err := json.Unmarshal([]byte(extractJSONObject(reply)), &wire); err != nil {
		return model.DetectedAction{}, fmt.Errorf("parse action response: %w", err)
	}

	return model.DetectedAction{
		Action:          wire.Action,
		TargetEventID:   wire.TargetEventID,
		Confidence:      wire.Confidence,
		SnoozeMinutes:   wire.SnoozeMinutes,
		ProposedChanges: wire.ProposedChanges,
	}, nil
}

// extractJSONObject trims leading/trailing prose a chat model sometimes
// wraps its JSON answer in (e.g. markdown code fences).
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
