// Package ingestion implements the Ingestion Pipeline (§4.6):
// processWebhook and its seven steps, wiring internal/tier,
// internal/heuristics, internal/llmclient, internal/store, and
// internal/transport together. Grounded on the teacher's
// handler-calls-provider structure (api/handlers/chat.go: validate ->
// convert -> call provider -> convert response -> log), generalized
// into a multi-step pipeline.
package ingestion

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/argus-assistant/argus/internal/cache"
	"github.com/argus-assistant/argus/internal/errs"
	"github.com/argus-assistant/argus/internal/llmclient"
	"github.com/argus-assistant/argus/internal/model"
	"github.com/argus-assistant/argus/internal/store"
	"github.com/argus-assistant/argus/internal/tier"
	"github.com/argus-assistant/argus/internal/transport"
)

var tracer = otel.Tracer("argus/ingestion")

// ActionConfidenceThreshold is the minimum confidence required to act
// on a detected action without human confirmation (open question:
// spec §4.6 step 5 names a threshold but not its value; 0.5 was chosen
// to match the heuristic tier's fixed actionConfidence of 0.9 clearing
// it comfortably while still rejecting a near-zero cache guess).
const ActionConfidenceThreshold = 0.5

// MaxActionCandidates is the cap on active-event candidates handed to
// action detection and event extraction (§4.6 step 5: "up to 20").
const MaxActionCandidates = 20

// RecentContextSize is how many prior messages in the chat are handed
// to event extraction as context (§4.6 step 6: "last 5 messages").
const RecentContextSize = 5

// Config carries the PROCESS_OWN_MESSAGES / SKIP_GROUP_MESSAGES flags
// (§6) that gate the pipeline's skip rules.
type Config struct {
	ProcessOwnMessages bool
	SkipGroupMessages  bool
}

// Pipeline is the ingestion entry point, ProcessWebhook.
type Pipeline struct {
	cfg Config

	messages *store.MessageStore
	events   *store.EventStore

	orchestrator *tier.Orchestrator
	llm          *llmclient.Client
	actionCache  *cache.ResponseCache
	extractCache *cache.ResponseCache

	broadcaster *transport.Broadcaster
	deadLetter  *errs.DeadLetterLog
	logger      *zap.Logger
}

// New builds a Pipeline from its collaborators. Any of actionCache /
// extractCache may be nil (treated as an always-miss T3 cache).
func New(
	cfg Config,
	messages *store.MessageStore,
	events *store.EventStore,
	orchestrator *tier.Orchestrator,
	llm *llmclient.Client,
	actionCache, extractCache *cache.ResponseCache,
	broadcaster *transport.Broadcaster,
	deadLetter *errs.DeadLetterLog,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		cfg:          cfg,
		messages:     messages,
		events:       events,
		orchestrator: orchestrator,
		llm:          llm,
		actionCache:  actionCache,
		extractCache: extractCache,
		broadcaster:  broadcaster,
		deadLetter:   deadLetter,
		logger:       logger.With(zap.String("component", "ingestion_pipeline")),
	}
}

// Summary is processWebhook's return value (§4.6 step 8).
type Summary struct {
	Skipped         bool                       `json:"skipped,omitempty"`
	InsertedEvents  []InsertedEvent            `json:"insertedEvents,omitempty"`
	ActionPerformed *model.DetectedAction      `json:"actionPerformed,omitempty"`
	PendingConfirm  *model.PendingConfirmation `json:"pendingConfirmation,omitempty"`
}

// InsertedEvent pairs a newly-discovered event with any scheduling
// conflicts found for it (§4.6 step 7).
type InsertedEvent struct {
	Event     model.Event      `json:"event"`
	Conflicts []model.Conflict `json:"conflicts,omitempty"`
}

// ProcessWebhook is the pipeline's single entry point (§4.6).
func (p *Pipeline) ProcessWebhook(ctx context.Context, raw []byte) (Summary, error) {
	ctx, span := tracer.Start(ctx, "ingestion.process_webhook")
	defer span.End()

	// Step 1: shape validation.
	msg, skipped, err := ParseWebhook(raw)
	if err != nil {
		return Summary{}, err
	}
	if skipped {
		return Summary{Skipped: true}, nil
	}

	// Step 2: skip rules.
	if msg.FromMe && !p.cfg.ProcessOwnMessages {
		return Summary{Skipped: true}, nil
	}
	if msg.IsGroup && p.cfg.SkipGroupMessages {
		return Summary{Skipped: true}, nil
	}
	if strings.TrimSpace(msg.Content) == "" {
		return Summary{Skipped: true}, nil
	}

	// Step 3: message + contact persistence.
	p.persistMessage(ctx, msg)

	// Step 4: quick filter (T2 alone, no LLM call justified for noise).
	if isQuickFilterNoise(msg.Content) {
		return Summary{Skipped: true}, nil
	}

	now := time.Unix(msg.Timestamp, 0).UTC()
	candidates := p.activeCandidates(ctx, msg.Content)

	// Step 5: action detection.
	action := p.detectAction(ctx, msg.Content, candidates)
	if action.Action != model.ActionNone && action.Confidence >= ActionConfidenceThreshold && action.TargetEventID != nil {
		summary, handled := p.applyAction(ctx, action)
		if handled {
			return summary, nil
		}
	}

	// Step 6: event extraction.
	recent := p.recentContext(ctx, msg.ChatID, msg.ExternalID)
	proposed := p.extractEvents(ctx, msg.Content, recent, candidates, now)

	// Step 7: per-proposed-event handling.
	summary := Summary{}
	for _, pe := range proposed {
		if pe.Action == model.EventActionModify && pe.TargetEventID != nil {
			summary.PendingConfirm = &model.PendingConfirmation{
				TargetEventID:   *pe.TargetEventID,
				ProposedChanges: proposedEventChanges(pe),
			}
			continue
		}

		inserted, ok := p.handleProposedEvent(ctx, pe, msg, now)
		if ok {
			summary.InsertedEvents = append(summary.InsertedEvents, inserted)
		}
	}

	return summary, nil
}

func (p *Pipeline) persistMessage(ctx context.Context, msg *NormalizedMessage) {
	_, span := tracer.Start(ctx, "ingestion.persist_message")
	defer span.End()

	_, err := errs.SafeCall(p.logger, p.deadLetter, "persist_message", errs.SafeCallOptions{
		DeadLetter: true, Operation: "message_insert", Payload: msg,
	}, false, func() (bool, error) {
		return p.messages.Insert(ctx, &model.Message{
			ExternalID:      msg.ExternalID,
			ChatID:          msg.ChatID,
			SenderID:        msg.SenderID,
			SenderName:      msg.SenderName,
			Content:         msg.Content,
			FromMe:          msg.FromMe,
			IsGroup:         msg.IsGroup,
			OriginatingUnix: msg.Timestamp,
			IngestedUnix:    time.Now().Unix(),
		})
	})
	if err != nil {
		p.logger.Warn("message persist failed", zap.Error(err))
	}

	if msg.SenderName != "" {
		_, _ = errs.SafeCall(p.logger, p.deadLetter, "upsert_contact", errs.SafeCallOptions{
			DeadLetter: true, Operation: "contact_upsert", Payload: msg.SenderID,
		}, false, func() (bool, error) {
			return true, p.messages.UpsertContact(ctx, msg.SenderID, msg.SenderName, msg.Timestamp)
		})
	}
}

// isQuickFilterNoise mirrors §4.6 step 4: pure greetings or <5 chars,
// checked before any tier call is made at all (the T2-alone filter).
func isQuickFilterNoise(content string) bool {
	trimmed := strings.TrimSpace(content)
	return len(trimmed) < 5 || isGreetingOnly(trimmed)
}

func isGreetingOnly(content string) bool {
	lower := strings.ToLower(strings.TrimSpace(content))
	switch lower {
	case "hi", "hello", "hey", "yo", "namaste", "hii", "hiii", "ok", "okay", "thanks", "thank you", "k", "kk":
		return true
	default:
		return false
	}
}

func (p *Pipeline) activeCandidates(ctx context.Context, messageText string) []model.CandidateEvent {
	candidates, err := p.events.ActiveCandidates(ctx, messageText, MaxActionCandidates)
	if err != nil {
		p.logger.Warn("active candidates fetch failed", zap.Error(err))
		return nil
	}
	return candidates
}

// recentContext is a best-effort last-N message lookup; store-layer
// failures degrade to an empty context rather than failing the pipeline.
func (p *Pipeline) recentContext(ctx context.Context, chatID, beforeExternalID string) []string {
	msgs, err := p.messages.RecentByChat(ctx, chatID, beforeExternalID, RecentContextSize)
	if err != nil {
		p.logger.Warn("recent context fetch failed", zap.Error(err))
		return nil
	}
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Content)
	}
	return out
}

func proposedEventChanges(pe model.ProposedEvent) map[string]any {
	changes := map[string]any{}
	if pe.Title != "" {
		changes["title"] = pe.Title
	}
	if pe.Description != "" {
		changes["description"] = pe.Description
	}
	if pe.Location != "" {
		changes["location"] = pe.Location
	}
	if pe.EventTimeISO != "" {
		if t, err := time.Parse(time.RFC3339, pe.EventTimeISO); err == nil {
			changes["eventTime"] = t.Unix()
		}
	}
	return changes
}
