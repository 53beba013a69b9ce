package contextmatch

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// BackfillPeriod is the embedding-backfill tick (§4.10: "every 5 min").
const BackfillPeriod = 5 * time.Minute

// BackfillBatchSize is the per-tick row limit (§4.10: "up to 50 events").
const BackfillBatchSize = 50

// RunBackfill blocks, computing and writing embeddings for events
// missing one, until ctx is cancelled. A single event's embedding
// failure is logged and skipped — never reported to the tier
// orchestrator (§4.10: "an embedding failure is never reported to the
// tier orchestrator"), since an absent embedding merely narrows
// HybridSearch to its keyword term rather than failing a request.
func (m *Matcher) RunBackfill(ctx context.Context) error {
	if m.llm == nil {
		return nil
	}

	ticker := time.NewTicker(BackfillPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.backfillOnce(ctx)
		}
	}
}

func (m *Matcher) backfillOnce(ctx context.Context) {
	events, err := m.events.ByEmbeddingMissing(ctx, BackfillBatchSize)
	if err != nil {
		m.logger.Warn("embedding backfill query failed", zap.Error(err))
		return
	}

	for _, ev := range events {
		text := ev.Title
		if ev.Description != "" {
			text = text + " " + ev.Description
		}
		vec, err := m.llm.Embed(ctx, text)
		if err != nil {
			m.logger.Debug("embedding backfill skipped", zap.Int64("eventId", ev.ID), zap.Error(err))
			continue
		}
		if err := m.events.SetEmbedding(ctx, ev.ID, vec); err != nil {
			m.logger.Debug("embedding backfill write failed", zap.Int64("eventId", ev.ID), zap.Error(err))
		}
	}
}
