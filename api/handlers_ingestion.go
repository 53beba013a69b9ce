package api

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/argus-assistant/argus/internal/heuristics"
	"github.com/argus-assistant/argus/internal/ingestion"
	"github.com/argus-assistant/argus/internal/llmclient"
	"github.com/argus-assistant/argus/internal/model"
	"github.com/argus-assistant/argus/internal/tier"
)

// fieldMatchesKeywords reports whether a form field's type token
// appears among a candidate event's comma-separated keywords.
func fieldMatchesKeywords(fieldType, keywords string) bool {
	fieldType = strings.ToLower(strings.TrimSpace(fieldType))
	if fieldType == "" {
		return false
	}
	for _, kw := range strings.Split(keywords, ",") {
		if strings.ToLower(strings.TrimSpace(kw)) == fieldType {
			return true
		}
	}
	return false
}

// webhookDeadline bounds how long processWebhook may run before the
// HTTP layer gives up and reports success anyway (§7: "pipeline
// deadline exceeded - the HTTP layer returns 202 and the pipeline
// continues in the background").
const webhookDeadline = 45 * time.Second

// skippedBody is returned for non-upsert webhook events (§6).
type skippedBody struct {
	Skipped bool `json:"skipped"`
}

func (h *handlers) webhook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, 5<<20))
	if err != nil {
		writeError(w, h.d.Logger, BadRequest("failed to read request body"))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), webhookDeadline)
	defer cancel()

	type result struct {
		summary ingestion.Summary
		err     error
	}
	done := make(chan result, 1)
	go func() {
		summary, err := h.d.Pipeline.ProcessWebhook(ctx, raw)
		done <- result{summary, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			if _, ok := res.err.(*ingestion.ErrShapeInvalid); ok {
				writeError(w, h.d.Logger, BadRequest(res.err.Error()))
				return
			}
			writeError(w, h.d.Logger, NewError(ErrInternal, http.StatusInternalServerError, "ingestion failed"))
			return
		}
		if res.summary.Skipped {
			writeJSON(w, http.StatusOK, skippedBody{Skipped: true})
			return
		}
		writeJSON(w, http.StatusOK, res.summary)
	case <-time.After(webhookDeadline):
		writeJSON(w, http.StatusAccepted, skippedBody{Skipped: false})
	}
}

// contextCheckDeadline bounds POST /api/context-check (§6).
const contextCheckDeadline = 15 * time.Second

type contextCheckBody struct {
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	Keywords string `json:"keywords,omitempty"`
}

func (h *handlers) contextCheck(w http.ResponseWriter, r *http.Request) {
	var body contextCheckBody
	if err := decodeJSON(w, r, &body, 1<<20); err != nil {
		writeError(w, h.d.Logger, err)
		return
	}
	if body.URL == "" {
		writeError(w, h.d.Logger, BadRequest("url is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), contextCheckDeadline)
	defer cancel()

	result, err := h.d.Matcher.MatchContext(ctx, body.URL, body.Title, body.Keywords)
	if err != nil {
		writeError(w, h.d.Logger, NewError(ErrInternal, http.StatusInternalServerError, "context match failed"))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// chatDeadline bounds POST /api/chat (§6).
const chatDeadline = 30 * time.Second

type chatBody struct {
	Query   string   `json:"query"`
	History []string `json:"history,omitempty"`
}

type chatReplyBody struct {
	Response string                  `json:"response"`
	Events   []model.CandidateEvent `json:"events"`
}

func (h *handlers) chat(w http.ResponseWriter, r *http.Request) {
	var body chatBody
	if err := decodeJSON(w, r, &body, 1<<20); err != nil {
		writeError(w, h.d.Logger, err)
		return
	}
	if body.Query == "" {
		writeError(w, h.d.Logger, BadRequest("query is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), chatDeadline)
	defer cancel()

	type result struct {
		reply  string
		events []model.CandidateEvent
	}
	done := make(chan result, 1)
	go func() {
		if h.d.LLM != nil && h.d.Orchestrator.CurrentTier(time.Now()) == tier.Tier1 {
			turns := []llmclient.ChatTurn{{Role: "user", Content: body.Query}}
			reply, _, err := h.d.LLM.ChatCompletion(ctx, turns)
			if err == nil {
				h.d.Orchestrator.ReportSuccess()
				candidates, _ := h.d.Events.ActiveCandidates(ctx, body.Query, 0)
				done <- result{reply: reply, events: candidates}
				return
			}
			h.d.Orchestrator.ReportFailure(ctx)
		}

		events, err := h.d.Events.List(ctx, "", 200, 0)
		if err != nil {
			events = nil
		}
		resp := heuristics.Chat(body.Query, time.Now(), events)
		matched := make([]model.CandidateEvent, 0, len(resp.Matches))
		for _, id := range resp.Matches {
			for _, ev := range events {
				if ev.ID == id {
					matched = append(matched, model.CandidateEvent{
						ID: ev.ID, Title: ev.Title, EventType: ev.EventType,
						Keywords: ev.Keywords, Location: ev.Location, Description: ev.Description,
					})
				}
			}
		}
		done <- result{reply: resp.Reply, events: matched}
	}()

	select {
	case res := <-done:
		writeJSON(w, http.StatusOK, chatReplyBody{Response: res.reply, Events: res.events})
	case <-ctx.Done():
		writeJSON(w, http.StatusOK, chatReplyBody{
			Response: "I'm having trouble reaching my memory right now. Please try again shortly.",
			Events:   nil,
		})
	}
}

type formCheckBody struct {
	FieldValue string `json:"fieldValue"`
	FieldType  string `json:"fieldType"`
	Parsed     string `json:"parsed,omitempty"`
}

func (h *handlers) formCheck(w http.ResponseWriter, r *http.Request) {
	var body formCheckBody
	if err := decodeJSON(w, r, &body, 1<<20); err != nil {
		writeError(w, h.d.Logger, err)
		return
	}

	ctx := r.Context()
	remembered := ""
	if body.FieldType != "" {
		candidates, err := h.d.Events.ActiveCandidates(ctx, body.FieldType, 0)
		if err == nil {
			for _, c := range candidates {
				if fieldMatchesKeywords(body.FieldType, c.Keywords) {
					remembered = c.Description
					if remembered == "" {
						remembered = c.Title
					}
					break
				}
			}
		}
	}

	result := heuristics.CheckForm(body.FieldType, body.FieldValue, body.Parsed, remembered)
	writeJSON(w, http.StatusOK, result)
}
