// Package contextmatch implements the Context Matcher (§4.10):
// matchContext(url, title) canonicalizes a URL, consults a short-lived
// result cache, derives keywords, queries the event store, and
// validates the match through the tier orchestrator before caching and
// returning it. Grounded on the teacher's providers/rewriter_chain.go
// cache-then-call-then-validate shape, adapted from a provider-response
// rewrite pipeline to a store-lookup-plus-relevance pipeline.
package contextmatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/argus-assistant/argus/internal/heuristics"
	"github.com/argus-assistant/argus/internal/llmclient"
	"github.com/argus-assistant/argus/internal/model"
	"github.com/argus-assistant/argus/internal/store"
	"github.com/argus-assistant/argus/internal/tier"
)

// Result is matchContext's return shape (§6: POST /api/context-check
// response body).
type Result struct {
	Matched              bool               `json:"matched"`
	Events               []model.CandidateEvent `json:"events"`
	Confidence           float64            `json:"confidence"`
	ContextTriggers      []model.CandidateEvent `json:"contextTriggers"`
	ContextTriggersCount int                `json:"contextTriggersCount"`
}

// Matcher is the context-matcher's runtime state: the result cache
// plus its store/tier collaborators.
type Matcher struct {
	events           *store.EventStore
	orchestrator     *tier.Orchestrator
	llm              *llmclient.Client
	cache            *resultCache
	hotWindowSeconds int64
	logger           *zap.Logger
}

// New builds a Matcher. llm may be nil, in which case the T1 path
// always falls through to the heuristic validator. hotWindowDays bounds
// the hybrid-search candidate set to events created within that many
// days of now (§4.5), matching config.Config.HotWindowDays.
func New(events *store.EventStore, orchestrator *tier.Orchestrator, llm *llmclient.Client, cacheCapacity int, hotWindowDays int, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{
		events:           events,
		orchestrator:     orchestrator,
		llm:              llm,
		cache:            newResultCache(cacheCapacity),
		hotWindowSeconds: int64(hotWindowDays) * 24 * 3600,
		logger:           logger.With(zap.String("component", "context_matcher")),
	}
}

// CacheSize reports the current result-cache occupancy, for
// /api/health's matchCache field.
func (m *Matcher) CacheSize() int {
	return m.cache.Len()
}

// MatchContext is matchContext(url, title) (§4.10).
func (m *Matcher) MatchContext(ctx context.Context, rawURL, title, suppliedKeywords string) (Result, error) {
	canonical := Canonicalize(rawURL)
	now := time.Now()

	if cached, ok := m.cache.GetFresh(canonical, now); ok {
		return cached, nil
	}

	keywords := suppliedKeywords
	if keywords == "" {
		keywords = ExtractKeywords(canonical, title)
	}

	candidates, storeErr := m.queryCandidates(ctx, canonical, keywords)
	if storeErr != nil {
		if stale, ok := m.cache.Get(canonical); ok {
			return stale, nil
		}
		return Result{}, nil
	}

	if len(candidates) == 0 {
		result := Result{Matched: false}
		m.cache.Set(canonical, result, now)
		return result, nil
	}

	best, confidence := m.validate(ctx, keywords, candidates)
	result := Result{
		Events:     candidates,
		Confidence: confidence,
	}
	if best != nil {
		result.Matched = true
		result.ContextTriggers = []model.CandidateEvent{*best}
		result.ContextTriggersCount = 1
	}

	m.cache.Set(canonical, result, now)
	return result, nil
}

// queryCandidates implements §4.10 step 4: exact context_url match
// first, falling back to the store's hybrid keyword/vector search.
func (m *Matcher) queryCandidates(ctx context.Context, canonicalURL, keywords string) ([]model.CandidateEvent, error) {
	events, err := m.events.ByContextURL(ctx, canonicalURL)
	if err != nil {
		return nil, err
	}
	if len(events) > 0 {
		return toCandidates(events), nil
	}

	if strings.TrimSpace(keywords) == "" {
		return nil, nil
	}

	hits, err := m.events.HybridSearch(ctx, keywords, nil, 10, m.hotWindowSeconds)
	if err != nil {
		return nil, err
	}
	return toCandidates(hits), nil
}

func toCandidates(events []model.Event) []model.CandidateEvent {
	out := make([]model.CandidateEvent, 0, len(events))
	for _, e := range events {
		out = append(out, model.CandidateEvent{
			ID: e.ID, Title: e.Title, EventType: e.EventType,
			Keywords: e.Keywords, Location: e.Location, Description: e.Description,
		})
	}
	return out
}

// validate runs withFallback(LLM validate, keyword overlap, empty)
// (§4.10 step 5).
func (m *Matcher) validate(ctx context.Context, keywords string, candidates []model.CandidateEvent) (*model.CandidateEvent, float64) {
	t1 := func(ctx context.Context) (matchOutcome, error) {
		if m.llm == nil {
			return matchOutcome{}, fmt.Errorf("no llm client configured")
		}
		return m.llmValidate(ctx, keywords, candidates)
	}
	t2 := func(ctx context.Context) (matchOutcome, error) {
		best, confidence := heuristics.ValidateRelevance(keywords, candidates)
		if best == nil {
			return matchOutcome{}, fmt.Errorf("no heuristic match")
		}
		return matchOutcome{best: best, confidence: confidence}, nil
	}
	t3 := func(ctx context.Context) matchOutcome {
		return matchOutcome{}
	}

	outcome := tier.WithFallback(ctx, m.orchestrator, t1, t2, t3)
	return outcome.best, outcome.confidence
}

// matchOutcome is the generic instantiation tier.WithFallback threads
// through the three tiers.
type matchOutcome struct {
	best       *model.CandidateEvent
	confidence float64
}

// llmValidate asks the LLM which (if any) candidate the page keywords
// describe, falling back to "no match" on any unparseable reply — the
// caller treats that as a T1 failure and proceeds to T2.
func (m *Matcher) llmValidate(ctx context.Context, keywords string, candidates []model.CandidateEvent) (matchOutcome, error) {
	var sb strings.Builder
	sb.WriteString("Page keywords: ")
	sb.WriteString(keywords)
	sb.WriteString("\nCandidate events:\n")
	for _, c := range candidates {
		fmt.Fprintf(&sb, "- id=%d title=%q keywords=%q\n", c.ID, c.Title, c.Keywords)
	}
	sb.WriteString("\nReply with the single most relevant candidate id and a confidence 0-1, or \"none\".")

	reply, _, err := m.llm.ChatCompletion(ctx, []llmclient.ChatTurn{
		{Role: "system", Content: "You match browser page context to a user's tracked events. Reply concisely."},
		{Role: "user", Content: sb.String()},
	})
	if err != nil {
		return matchOutcome{}, err
	}

	id, confidence, ok := parseValidateReply(reply)
	if !ok {
		return matchOutcome{}, fmt.Errorf("unparseable llm validate reply")
	}
	for i := range candidates {
		if candidates[i].ID == id {
			return matchOutcome{best: &candidates[i], confidence: confidence}, nil
		}
	}
	return matchOutcome{}, fmt.Errorf("llm referenced unknown candidate id %d", id)
}
