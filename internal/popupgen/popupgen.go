// Package popupgen implements Popup Blueprint Generation (§4.7):
// an LLM-generated blueprint when the tier orchestrator is in Tier1,
// with a per-call budget, falling back to one of internal/heuristics's
// eight static templates on any failure, timeout, or malformed reply.
// Grounded on the ingestion package's detectActionLLM/analyzeLLM split
// (internal/ingestion/llm_action.go, internal/ingestion/llm_extract.go):
// a thin LLM-calling function plus a tier-gated wrapper that reports
// the outcome back to the orchestrator.
package popupgen

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/argus-assistant/argus/internal/errs"
	"github.com/argus-assistant/argus/internal/heuristics"
	"github.com/argus-assistant/argus/internal/llmclient"
	"github.com/argus-assistant/argus/internal/model"
	"github.com/argus-assistant/argus/internal/tier"
)

// Budget is the per-call deadline for LLM blueprint generation (§4.7:
// "a per-call 5-s budget").
const Budget = 5 * time.Second

// Generate produces a popup blueprint for popupType/event, attempting
// the LLM path first when llm is non-nil and the orchestrator is
// currently in Tier1, and falling back to the static template
// otherwise or on any LLM failure. logger may be nil.
func Generate(ctx context.Context, orchestrator *tier.Orchestrator, llm *llmclient.Client, popupType model.PopupType, event model.Event, detail string, logger *zap.Logger) model.PopupBlueprint {
	if logger == nil {
		logger = zap.NewNop()
	}

	if llm != nil && orchestrator != nil && orchestrator.CurrentTier(time.Now()) == tier.Tier1 {
		bp, err := errs.DeadlineCall(ctx, Budget, func(cctx context.Context) (model.PopupBlueprint, error) {
			return generateLLM(cctx, llm, popupType, event, detail)
		})
		if err == nil {
			orchestrator.ReportSuccess()
			return bp
		}
		logger.Debug("llm blueprint generation failed, falling back to static template",
			zap.String("popupType", string(popupType)), zap.Error(err))
		orchestrator.ReportFailure(ctx)
	}

	return heuristics.GeneratePopupBlueprint(popupType, event, detail)
}

// generateLLM is the T1 path: ask the chat model for blueprint JSON and
// validate it has the fields a usable blueprint needs.
func generateLLM(ctx context.Context, client *llmclient.Client, popupType model.PopupType, event model.Event, detail string) (model.PopupBlueprint, error) {
	prompt := fmt.Sprintf(`Generate a UI popup blueprint as a single JSON object with exactly
these fields: "icon" (a short lucide icon name), "headerClass" (one of
discovery, reminder, context, conflict, insight), "title", "subtitle",
"body", "question" (nullable), and "buttons" (an array of {"text",
"action", "style"} where style is one of primary, secondary, danger).
Respond with JSON only, no surrounding prose.

popupType: %s
event title: %s
event type: %s
detail: %s`, popupType, event.Title, event.EventType, detail)

	turns := []llmclient.ChatTurn{{Role: "user", Content: prompt}}
	reply, _, err := client.ChatCompletion(ctx, turns)
	if err != nil {
		return model.PopupBlueprint{}, err
	}

	var bp model.PopupBlueprint
	if err := json.Unmarshal([]byte(reply), &bp); err != nil {
		return model.PopupBlueprint{}, fmt.Errorf("parse blueprint reply: %w", err)
	}
	if bp.Title == "" || bp.Body == "" || len(bp.Buttons) == 0 {
		return model.PopupBlueprint{}, errs.NewUpstreamError(502, "llm blueprint reply missing required fields")
	}
	bp.PopupType = popupType
	return bp, nil
}
