package ingestion

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/argus-assistant/argus/internal/heuristics"
	"github.com/argus-assistant/argus/internal/model"
	"github.com/argus-assistant/argus/internal/popupgen"
	"github.com/argus-assistant/argus/internal/tier"
	"github.com/argus-assistant/argus/internal/transport"
)

// detectAction runs §4.6 step 5's withFallback(detectActionLLM,
// detectActionHeuristic, cachedOrNone).
func (p *Pipeline) detectAction(ctx context.Context, message string, candidates []model.CandidateEvent) model.DetectedAction {
	_, span := tracer.Start(ctx, "ingestion.detect_action")
	defer span.End()

	cacheKey := message
	return tier.WithFallback(ctx, p.orchestrator,
		func(ctx context.Context) (model.DetectedAction, error) {
			a, err := detectActionLLM(ctx, p.llm, message, candidates)
			if err == nil && p.actionCache != nil {
				p.actionCache.Set("detect_action", cacheKey, a)
			}
			return a, err
		},
		func(ctx context.Context) (model.DetectedAction, error) {
			return heuristics.DetectAction(message, candidates), nil
		},
		func(ctx context.Context) model.DetectedAction {
			if p.actionCache != nil {
				if v, ok := p.actionCache.Get("detect_action", cacheKey); ok {
					if a, ok := v.(model.DetectedAction); ok {
						return a
					}
				}
			}
			return model.DetectedAction{Action: model.ActionNone}
		},
	)
}

// applyAction executes §4.6 step 5's per-action-kind transition table.
// The bool return reports whether the action was actually applied
// (true) versus the caller should fall through to event extraction
// (false, only for ActionNone which never reaches here).
func (p *Pipeline) applyAction(ctx context.Context, action model.DetectedAction) (Summary, bool) {
	_, span := tracer.Start(ctx, "ingestion.apply_action")
	defer span.End()

	targetID := *action.TargetEventID
	var kind transport.MessageKind

	switch action.Action {
	case model.ActionComplete:
		p.updateStatus(ctx, targetID, model.StatusCompleted)
		kind = transport.KindEventCompleted
	case model.ActionCancel:
		p.updateStatus(ctx, targetID, model.StatusExpired)
		kind = transport.KindEventDeleted
	case model.ActionIgnoreEv:
		p.updateStatus(ctx, targetID, model.StatusIgnored)
		kind = transport.KindEventIgnored
	case model.ActionPostpone:
		p.snoozeEvent(ctx, targetID, action.SnoozeMinutes)
		kind = transport.KindEventSnoozed
	case model.ActionModifyEv:
		return Summary{PendingConfirm: &model.PendingConfirmation{
			TargetEventID:   targetID,
			ProposedChanges: action.ProposedChanges,
		}}, true
	default:
		return Summary{}, false
	}

	ev, err := p.events.Get(ctx, targetID)
	if err == nil {
		_ = p.broadcaster.Send(ctx, transport.Envelope{Type: kind, Event: ev})
	}

	return Summary{ActionPerformed: &action}, true
}

func (p *Pipeline) updateStatus(ctx context.Context, id int64, status model.EventStatus) {
	if err := p.events.UpdateStatus(ctx, id, status); err != nil {
		p.logger.Warn("action status update failed", zap.Int64("eventId", id), zap.Error(err))
	}
}

func (p *Pipeline) snoozeEvent(ctx context.Context, id int64, minutes int) {
	if minutes <= 0 {
		minutes = 30
	}
	newTime := time.Now().Add(time.Duration(minutes) * time.Minute).Unix()
	if err := p.events.UpdateReminderTime(ctx, id, &newTime); err != nil {
		p.logger.Warn("snooze reminder update failed", zap.Int64("eventId", id), zap.Error(err))
		return
	}
	if err := p.events.UpdateStatus(ctx, id, model.StatusSnoozed); err != nil {
		p.logger.Warn("snooze status update failed", zap.Int64("eventId", id), zap.Error(err))
	}
}

// extractEvents runs §4.6 step 6's withFallback(analyzeLLM,
// analyzeHeuristic, cachedOrEmpty).
func (p *Pipeline) extractEvents(ctx context.Context, message string, recent []string, candidates []model.CandidateEvent, now time.Time) []model.ProposedEvent {
	_, span := tracer.Start(ctx, "ingestion.extract_events")
	defer span.End()

	cacheKey := message
	return tier.WithFallback(ctx, p.orchestrator,
		func(ctx context.Context) ([]model.ProposedEvent, error) {
			events, err := analyzeLLM(ctx, p.llm, message, recent, candidates, now)
			if err == nil && p.extractCache != nil {
				p.extractCache.Set("extract_events", cacheKey, events)
			}
			return events, err
		},
		func(ctx context.Context) ([]model.ProposedEvent, error) {
			proposed, ok := heuristics.Analyze(message, now)
			if !ok {
				return nil, nil
			}
			return []model.ProposedEvent{*proposed}, nil
		},
		func(ctx context.Context) []model.ProposedEvent {
			if p.extractCache != nil {
				if v, ok := p.extractCache.Get("extract_events", cacheKey); ok {
					if events, ok := v.([]model.ProposedEvent); ok {
						return events
					}
				}
			}
			return nil
		},
	)
}

// handleProposedEvent runs §4.6 step 7 for one create-action proposal.
func (p *Pipeline) handleProposedEvent(ctx context.Context, pe model.ProposedEvent, msg *NormalizedMessage, now time.Time) (InsertedEvent, bool) {
	ctx, span := tracer.Start(ctx, "ingestion.handle_proposed_event")
	defer span.End()

	dup, err := p.events.FindDuplicate(ctx, pe.Title, now.Unix())
	if err != nil {
		p.logger.Warn("duplicate check failed", zap.Error(err))
	}
	if dup != nil {
		return InsertedEvent{}, false
	}

	contextURL := deriveContextURL(pe.Keywords, pe.Location)

	embedding := p.embed(ctx, pe)

	var eventTime *int64
	if pe.EventTimeISO != "" {
		if t, err := time.Parse(time.RFC3339, pe.EventTimeISO); err == nil {
			unix := t.Unix()
			eventTime = &unix
		}
	}

	ev := model.Event{
		MessageID:    &msg.ExternalID,
		EventType:    pe.EventType,
		Title:        pe.Title,
		Description:  pe.Description,
		Location:     pe.Location,
		Keywords:     pe.Keywords,
		Participants: pe.Participants,
		EventTime:    eventTime,
		Embedding:    embedding,
		ContextURL:   contextURL,
		Status:       model.StatusDiscovered,
		SenderName:   msg.SenderName,
		Confidence:   pe.Confidence,
		CreatedAt:    now.Unix(),
	}

	if err := p.events.Insert(ctx, &ev); err != nil {
		p.deadLetter.Append("event_insert", pe, err, "")
		return InsertedEvent{}, false
	}

	var conflicts []model.Conflict
	if ev.EventTime != nil {
		conflicts, err = p.events.CheckConflicts(ctx, ev.ID, *ev.EventTime)
		if err != nil {
			p.logger.Warn("conflict check failed", zap.Error(err))
		}
	}

	p.broadcastDiscovery(ctx, ev, conflicts)

	return InsertedEvent{Event: ev, Conflicts: conflicts}, true
}

// embed calls generateEmbedding per §4.6 step 7: "on failure, proceed
// with null." Embedding failures are not reported to the tier
// orchestrator (§4.10 applies the same rule to backfill embeddings;
// ingestion embeddings follow it too since both share the same
// provider call and neither is on the action/extraction decision path
// the orchestrator exists to protect).
func (p *Pipeline) embed(ctx context.Context, pe model.ProposedEvent) []float32 {
	if p.llm == nil {
		return nil
	}
	text := pe.Title + " " + pe.Description + " " + pe.Keywords + " " + pe.Location
	vec, err := p.llm.Embed(ctx, text)
	if err != nil {
		p.logger.Debug("embedding failed, proceeding without one", zap.Error(err))
		return nil
	}
	return vec
}

func (p *Pipeline) broadcastDiscovery(ctx context.Context, ev model.Event, conflicts []model.Conflict) {
	detail := ev.Title
	if len(conflicts) > 0 {
		blueprint := popupgen.Generate(ctx, p.orchestrator, p.llm, model.PopupConflictWarning, ev, detail, p.logger)
		popupType := model.PopupConflictWarning
		_ = p.broadcaster.Send(ctx, transport.Envelope{
			Type: transport.KindConflictWarning, Event: &ev, PopupType: &popupType, Popup: &blueprint,
			Conflicts: conflicts,
		})
		return
	}

	blueprint := popupgen.Generate(ctx, p.orchestrator, p.llm, model.PopupEventDiscovery, ev, detail, p.logger)
	popupType := model.PopupEventDiscovery
	_ = p.broadcaster.Send(ctx, transport.Envelope{
		Type: transport.KindNotification, Event: &ev, PopupType: &popupType, Popup: &blueprint,
	})
}
