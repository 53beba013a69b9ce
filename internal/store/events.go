package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/argus-assistant/argus/internal/errs"
	"github.com/argus-assistant/argus/internal/model"
)

// EventStore is the events collection: relational rows in GORM plus
// their embedding vectors in Redis, searched with a local
// BM25-weighted-keyword + cosine-similarity hybrid scorer.
//
// The query shape (alpha-weighted fusion of a keyword score and a
// vector score, topK-bounded) mirrors the teacher's
// WeaviateStore.HybridSearch/buildHybridSearchQuery, computed in
// process instead of over a GraphQL wire call since no vector
// database is wired into this module (see DESIGN.md).
type EventStore struct {
	db      *gorm.DB
	redis   *redis.Client
	counter *idCounter
	alpha   float64 // 0=keyword only, 1=vector only, default 0.5
}

const embeddingKeyPrefix = "argus:embedding:"

// NewEventStore builds an EventStore and seeds its ID counter from the
// current max(id) in the events table.
func NewEventStore(ctx context.Context, db *gorm.DB, rdb *redis.Client, alpha float64) (*EventStore, error) {
	if alpha == 0 {
		alpha = 0.5
	}
	s := &EventStore{db: db, redis: rdb, counter: newIDCounter(), alpha: alpha}
	if err := s.ReseedCounter(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// ReseedCounter resets the monotone ID counter to max(id)+1, used at
// startup and after a backup restore (§4.5, §8 invariant: "id counters
// reseeded on restore").
func (s *EventStore) ReseedCounter(ctx context.Context) error {
	var maxID int64
	if err := s.db.WithContext(ctx).Model(&model.Event{}).
		Select("COALESCE(MAX(id), 0)").Scan(&maxID).Error; err != nil {
		return &errs.StoreError{Operation: "reseed_counter", Collection: "events", Cause: err}
	}
	s.counter.Seed(maxID)
	return nil
}

// Insert assigns the next monotone ID, persists the row, and (if the
// event carries an embedding) stores the vector in Redis keyed by ID.
func (s *EventStore) Insert(ctx context.Context, e *model.Event) error {
	e.ID = s.counter.Next()
	if len(e.Embedding) > 0 {
		e.HasEmbedding = true
	}

	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return &errs.StoreError{Operation: "insert", Collection: "events", Cause: err}
	}

	if len(e.Embedding) > 0 {
		if err := s.storeEmbedding(ctx, e.ID, e.Embedding); err != nil {
			return err
		}
	}
	return nil
}

// Get fetches a single event by ID, attaching its embedding if present.
func (s *EventStore) Get(ctx context.Context, id int64) (*model.Event, error) {
	var e model.Event
	if err := s.db.WithContext(ctx).First(&e, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, &errs.StoreError{Operation: "get", Collection: "events", Cause: err}
	}
	if e.HasEmbedding {
		vec, err := s.loadEmbedding(ctx, id)
		if err == nil {
			e.Embedding = vec
		}
	}
	return &e, nil
}

// UpdateStatus transitions an event's lifecycle status (§3 state machine).
func (s *EventStore) UpdateStatus(ctx context.Context, id int64, status model.EventStatus) error {
	res := s.db.WithContext(ctx).Model(&model.Event{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return &errs.StoreError{Operation: "update_status", Collection: "events", Cause: res.Error}
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateReminderTime sets reminder_time, e.g. on snooze or schedule.
func (s *EventStore) UpdateReminderTime(ctx context.Context, id int64, reminderTime *int64) error {
	if err := s.db.WithContext(ctx).Model(&model.Event{}).Where("id = ?", id).
		Update("reminder_time", reminderTime).Error; err != nil {
		return &errs.StoreError{Operation: "update_reminder_time", Collection: "events", Cause: err}
	}
	return nil
}

// ApplyChanges applies a confirmed modify-action's field changes
// (open question 3: only the confirm-update endpoint writes these).
func (s *EventStore) ApplyChanges(ctx context.Context, id int64, changes map[string]any) error {
	if len(changes) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(&model.Event{}).Where("id = ?", id).Updates(changes).Error; err != nil {
		return &errs.StoreError{Operation: "apply_changes", Collection: "events", Cause: err}
	}
	return nil
}

// Delete removes a single event row by ID (§6: DELETE /api/events/:id),
// distinct from the cancel action's transition to expired.
func (s *EventStore) Delete(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&model.Event{}, id)
	if res.Error != nil {
		return &errs.StoreError{Operation: "delete", Collection: "events", Cause: res.Error}
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IncrementDismissCount bumps dismiss_count, used by the dismiss and
// context-url dismiss-permanent actions (§4.7 popup templates).
func (s *EventStore) IncrementDismissCount(ctx context.Context, id int64) error {
	if err := s.db.WithContext(ctx).Model(&model.Event{}).Where("id = ?", id).
		Update("dismiss_count", gorm.Expr("dismiss_count + 1")).Error; err != nil {
		return &errs.StoreError{Operation: "increment_dismiss_count", Collection: "events", Cause: err}
	}
	return nil
}

// List returns events filtered by an optional status, newest first,
// bounded by limit/offset (§6: GET /api/events?status=&limit=&offset=).
func (s *EventStore) List(ctx context.Context, status model.EventStatus, limit, offset int) ([]model.Event, error) {
	q := s.db.WithContext(ctx).Model(&model.Event{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit <= 0 {
		limit = 50
	}
	var events []model.Event
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&events).Error; err != nil {
		return nil, &errs.StoreError{Operation: "list", Collection: "events", Cause: err}
	}
	return events, nil
}

// ListByStatus returns active events for a given lifecycle status,
// newest first.
func (s *EventStore) ListByStatus(ctx context.Context, status model.EventStatus) ([]model.Event, error) {
	var events []model.Event
	if err := s.db.WithContext(ctx).Where("status = ?", status).
		Order("created_at DESC").Find(&events).Error; err != nil {
		return nil, &errs.StoreError{Operation: "list_by_status", Collection: "events", Cause: err}
	}
	return events, nil
}

// ListByDay returns events whose event_time falls within [dayStart, dayEnd).
func (s *EventStore) ListByDay(ctx context.Context, dayStart, dayEnd int64) ([]model.Event, error) {
	var events []model.Event
	if err := s.db.WithContext(ctx).
		Where("event_time >= ? AND event_time < ?", dayStart, dayEnd).
		Order("event_time ASC").Find(&events).Error; err != nil {
		return nil, &errs.StoreError{Operation: "list_by_day", Collection: "events", Cause: err}
	}
	return events, nil
}

// ActiveCandidates returns active events ranked by keyword match
// against messageText (§4.6 step 5: "retrieved by keyword-match
// against the message"), reusing the same title/keywords/description
// field-boosted scoring HybridSearch applies. An empty messageText
// leaves rows in their original DB-return order. limit caps the
// returned set after ranking, not before; a non-positive limit returns
// every matching row.
func (s *EventStore) ActiveCandidates(ctx context.Context, messageText string, limit int) ([]model.CandidateEvent, error) {
	var rows []model.Event
	statuses := make([]model.EventStatus, 0, len(model.ActiveStatuses))
	for st := range model.ActiveStatuses {
		statuses = append(statuses, st)
	}
	if err := s.db.WithContext(ctx).Where("status IN ?", statuses).Find(&rows).Error; err != nil {
		return nil, &errs.StoreError{Operation: "active_candidates", Collection: "events", Cause: err}
	}

	if terms := tokenize(messageText); len(terms) > 0 {
		type scoredRow struct {
			event model.Event
			score float64
		}
		scored := make([]scoredRow, 0, len(rows))
		for _, e := range rows {
			scored = append(scored, scoredRow{event: e, score: keywordScore(terms, e)})
		}
		sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

		ranked := make([]model.Event, 0, len(scored))
		for _, sr := range scored {
			ranked = append(ranked, sr.event)
		}
		rows = ranked
	}

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	out := make([]model.CandidateEvent, 0, len(rows))
	for _, e := range rows {
		out = append(out, model.CandidateEvent{
			ID: e.ID, Title: e.Title, EventType: e.EventType,
			Keywords: e.Keywords, Location: e.Location, Description: e.Description,
		})
	}
	return out, nil
}

// FindDuplicate implements §3's 48h duplicate-suppression rule:
// normalized-title containment within DuplicateWindow among active
// events. Short titles (<=2 words) require exact match.
func (s *EventStore) FindDuplicate(ctx context.Context, title string, now int64) (*model.Event, error) {
	normalized := model.NormalizedTitle(title)
	if normalized == "" {
		return nil, nil
	}

	statuses := make([]model.EventStatus, 0, len(model.ActiveStatuses))
	for st := range model.ActiveStatuses {
		statuses = append(statuses, st)
	}

	var candidates []model.Event
	if err := s.db.WithContext(ctx).
		Where("status IN ? AND created_at >= ?", statuses, now-int64(model.DuplicateWindow.Seconds())).
		Find(&candidates).Error; err != nil {
		return nil, &errs.StoreError{Operation: "find_duplicate", Collection: "events", Cause: err}
	}

	shortTitle := model.IsShortTitle(normalized)
	for i := range candidates {
		other := model.NormalizedTitle(candidates[i].Title)
		if shortTitle || model.IsShortTitle(other) {
			if other == normalized {
				return &candidates[i], nil
			}
			continue
		}
		if strings.Contains(other, normalized) || strings.Contains(normalized, other) {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

// CheckConflicts returns other active, scheduled events within
// ±ConflictWindow of eventTime (§4.5).
func (s *EventStore) CheckConflicts(ctx context.Context, excludeID, eventTime int64) ([]model.Conflict, error) {
	window := int64(model.ConflictWindow.Seconds())
	statuses := []model.EventStatus{model.StatusScheduled, model.StatusDiscovered, model.StatusSnoozed}

	var rows []model.Event
	if err := s.db.WithContext(ctx).
		Where("id != ? AND status IN ? AND event_time IS NOT NULL AND event_time BETWEEN ? AND ?",
			excludeID, statuses, eventTime-window, eventTime+window).
		Find(&rows).Error; err != nil {
		return nil, &errs.StoreError{Operation: "check_conflicts", Collection: "events", Cause: err}
	}

	out := make([]model.Conflict, 0, len(rows))
	for _, e := range rows {
		if e.EventTime == nil {
			continue
		}
		out = append(out, model.Conflict{ID: e.ID, Title: e.Title, EventTime: *e.EventTime})
	}
	return out, nil
}

// DueReminders returns scheduled events whose reminder_time has passed
// (§4.8 due-reminders task).
func (s *EventStore) DueReminders(ctx context.Context, now int64) ([]model.Event, error) {
	var rows []model.Event
	if err := s.db.WithContext(ctx).
		Where("status = ? AND reminder_time IS NOT NULL AND reminder_time <= ?", model.StatusScheduled, now).
		Find(&rows).Error; err != nil {
		return nil, &errs.StoreError{Operation: "due_reminders", Collection: "events", Cause: err}
	}
	return rows, nil
}

// SnoozeExpired returns snoozed events whose reminder_time (the
// snooze-until time) has passed (§4.8 snooze-expiry task).
func (s *EventStore) SnoozeExpired(ctx context.Context, now int64) ([]model.Event, error) {
	var rows []model.Event
	if err := s.db.WithContext(ctx).
		Where("status = ? AND reminder_time IS NOT NULL AND reminder_time <= ?", model.StatusSnoozed, now).
		Find(&rows).Error; err != nil {
		return nil, &errs.StoreError{Operation: "snooze_expired", Collection: "events", Cause: err}
	}
	return rows, nil
}

// StatusCounts returns the number of events in each lifecycle status,
// for /api/stats and /api/health.
func (s *EventStore) StatusCounts(ctx context.Context) (map[model.EventStatus]int64, error) {
	var rows []struct {
		Status model.EventStatus
		Count  int64
	}
	if err := s.db.WithContext(ctx).Model(&model.Event{}).
		Select("status, count(*) as count").Group("status").Scan(&rows).Error; err != nil {
		return nil, &errs.StoreError{Operation: "status_counts", Collection: "events", Cause: err}
	}
	out := make(map[model.EventStatus]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}

// ListAll scroll-exports every event page by page (§9: "a
// generator-style iterator yielding pages of N records"), invoking
// yield for each page until it returns false or rows are exhausted.
// The embedding field is never populated here — exports omit it
// (§6: backup format).
func (s *EventStore) ListAll(ctx context.Context, pageSize int, yield func([]model.Event) bool) error {
	if pageSize <= 0 {
		pageSize = 500
	}
	offset := 0
	for {
		var page []model.Event
		if err := s.db.WithContext(ctx).Order("id ASC").Offset(offset).Limit(pageSize).Find(&page).Error; err != nil {
			return &errs.StoreError{Operation: "list_all", Collection: "events", Cause: err}
		}
		if len(page) == 0 {
			return nil
		}
		if !yield(page) {
			return nil
		}
		offset += len(page)
		if len(page) < pageSize {
			return nil
		}
	}
}

// Count returns the total number of event rows.
func (s *EventStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Event{}).Count(&n).Error; err != nil {
		return 0, &errs.StoreError{Operation: "count", Collection: "events", Cause: err}
	}
	return n, nil
}

// ByEmbeddingMissing returns up to limit events with no stored
// embedding, for the backfill job (§4.10).
func (s *EventStore) ByEmbeddingMissing(ctx context.Context, limit int) ([]model.Event, error) {
	var rows []model.Event
	if err := s.db.WithContext(ctx).Where("has_embedding = ?", false).Limit(limit).Find(&rows).Error; err != nil {
		return nil, &errs.StoreError{Operation: "by_embedding_missing", Collection: "events", Cause: err}
	}
	return rows, nil
}

// SetEmbedding writes a backfilled embedding for an existing event.
func (s *EventStore) SetEmbedding(ctx context.Context, id int64, vec []float32) error {
	if err := s.storeEmbedding(ctx, id, vec); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(&model.Event{}).Where("id = ?", id).
		Update("has_embedding", true).Error; err != nil {
		return &errs.StoreError{Operation: "set_embedding_flag", Collection: "events", Cause: err}
	}
	return nil
}

// BulkInsert inserts events as-is (IDs already assigned), used by
// backup restore with mode=replace/merge (§6).
func (s *EventStore) BulkInsert(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&events).Error; err != nil {
		return &errs.StoreError{Operation: "bulk_insert", Collection: "events", Cause: err}
	}
	return nil
}

// DeleteAll truncates the events table (used by backup restore
// mode=replace).
func (s *EventStore) DeleteAll(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Where("1 = 1").Delete(&model.Event{}).Error; err != nil {
		return &errs.StoreError{Operation: "delete_all", Collection: "events", Cause: err}
	}
	return nil
}

// ByContextURL returns active events whose context_url exactly matches
// (already-canonicalized by internal/contextmatch).
func (s *EventStore) ByContextURL(ctx context.Context, url string) ([]model.Event, error) {
	statuses := make([]model.EventStatus, 0, len(model.ActiveStatuses))
	for st := range model.ActiveStatuses {
		statuses = append(statuses, st)
	}
	var rows []model.Event
	if err := s.db.WithContext(ctx).Where("context_url = ? AND status IN ?", url, statuses).
		Find(&rows).Error; err != nil {
		return nil, &errs.StoreError{Operation: "by_context_url", Collection: "events", Cause: err}
	}
	return rows, nil
}

// scoredEvent pairs an event with its fused hybrid score.
type scoredEvent struct {
	event model.Event
	score float64
}

// HybridSearch fuses a BM25-boosted keyword score (title^3, keywords^2,
// description^1) with cosine similarity against queryEmbedding, weighted
// by s.alpha (0=keyword only, 1=vector only), returning the top K
// active events. hotWindowSeconds bounds the candidate set to rows
// created within that window of now (§4.5, §8 invariant 1); a
// non-positive value disables the filter.
func (s *EventStore) HybridSearch(ctx context.Context, queryText string, queryEmbedding []float32, topK int, hotWindowSeconds int64) ([]model.Event, error) {
	if topK <= 0 {
		return nil, nil
	}

	statuses := make([]model.EventStatus, 0, len(model.SearchableStatuses))
	for st := range model.SearchableStatuses {
		statuses = append(statuses, st)
	}

	q := s.db.WithContext(ctx).Where("status IN ?", statuses)
	if hotWindowSeconds > 0 {
		cutoff := time.Now().Unix() - hotWindowSeconds
		q = q.Where("created_at >= ?", cutoff)
	}

	var rows []model.Event
	if err := q.Find(&rows).Error; err != nil {
		return nil, &errs.StoreError{Operation: "hybrid_search", Collection: "events", Cause: err}
	}

	terms := tokenize(queryText)
	scored := make([]scoredEvent, 0, len(rows))

	for _, e := range rows {
		kwScore := keywordScore(terms, e)
		vecScore := 0.0
		if len(queryEmbedding) > 0 {
			vec, err := s.loadEmbedding(ctx, e.ID)
			if err == nil && len(vec) > 0 {
				vecScore = cosineSimilarity(queryEmbedding, vec)
			}
		}
		fused := (1-s.alpha)*kwScore + s.alpha*vecScore
		if fused > 0 {
			scored = append(scored, scoredEvent{e, fused})
		}
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > topK {
		scored = scored[:topK]
	}

	out := make([]model.Event, 0, len(scored))
	for _, s := range scored {
		out = append(out, s.event)
	}
	return out, nil
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) >= 2 {
			out = append(out, f)
		}
	}
	return out
}

// keywordScore weights term-frequency matches by field, approximating
// BM25's field-boost idiom without a full IDF corpus model (§4.5:
// "title^3, keywords^2, description^1").
func keywordScore(terms []string, e model.Event) float64 {
	if len(terms) == 0 {
		return 0
	}
	title := strings.ToLower(e.Title)
	keywords := strings.ToLower(e.Keywords)
	description := strings.ToLower(e.Description)

	score := 0.0
	for _, t := range terms {
		if strings.Contains(title, t) {
			score += 3
		}
		if strings.Contains(keywords, t) {
			score += 2
		}
		if strings.Contains(description, t) {
			score += 1
		}
	}
	return score / float64(len(terms))
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func (s *EventStore) storeEmbedding(ctx context.Context, id int64, vec []float32) error {
	buf := make([]byte, len(vec)*4)
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	if err := s.redis.Set(ctx, embeddingKey(id), buf, 0).Err(); err != nil {
		return &errs.StoreError{Operation: "store_embedding", Collection: "events", Cause: err}
	}
	return nil
}

func (s *EventStore) loadEmbedding(ctx context.Context, id int64) ([]float32, error) {
	buf, err := s.redis.Get(ctx, embeddingKey(id)).Bytes()
	if err != nil {
		return nil, err
	}
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("corrupt embedding for event %d", id)
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec, nil
}

func embeddingKey(id int64) string {
	return fmt.Sprintf("%s%d", embeddingKeyPrefix, id)
}
