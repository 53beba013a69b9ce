package store

import (
	"context"
	"strconv"

	"gorm.io/gorm"

	"github.com/argus-assistant/argus/internal/errs"
	"github.com/argus-assistant/argus/internal/model"
)

// TriggerStore is the triggers and context-dismissals collections.
type TriggerStore struct {
	db      *gorm.DB
	counter *idCounter
}

func NewTriggerStore(db *gorm.DB) *TriggerStore {
	return &TriggerStore{db: db, counter: newIDCounter()}
}

// ReseedCounter resets the monotone ID counter from max(id).
func (s *TriggerStore) ReseedCounter(ctx context.Context) error {
	var maxID int64
	if err := s.db.WithContext(ctx).Model(&model.Trigger{}).
		Select("COALESCE(MAX(id), 0)").Scan(&maxID).Error; err != nil {
		return &errs.StoreError{Operation: "reseed_counter", Collection: "triggers", Cause: err}
	}
	s.counter.Seed(maxID)
	return nil
}

// Insert creates a trigger row. kind must be one of
// model.CanonicalTimeKinds or model.TriggerURL (open question 2: only
// canonical kinds are ever written).
func (s *TriggerStore) Insert(ctx context.Context, t *model.Trigger) error {
	t.ID = s.counter.Next()
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return &errs.StoreError{Operation: "insert", Collection: "triggers", Cause: err}
	}
	return nil
}

// ScheduleTriggers creates the canonical 24h/1h/15m time-trigger rows
// for a newly-scheduled event (§4.8, §8 invariant 3), skipping any
// offset that has already passed. It writes only the three time-offset
// kinds; BulkInsert also writes trigger rows when a backup is restored.
func (s *TriggerStore) ScheduleTriggers(ctx context.Context, eventID, eventTime, now int64) error {
	offsets := []struct {
		kind   model.TriggerKind
		offset int64
	}{
		{model.TriggerTime24h, 86400},
		{model.TriggerTime1h, 3600},
		{model.TriggerTime15m, 900},
	}

	for _, o := range offsets {
		fireAt := eventTime - o.offset
		if fireAt <= now {
			continue
		}
		t := &model.Trigger{
			EventID: eventID,
			Kind:    o.kind,
			Value:   strconv.FormatInt(fireAt, 10),
		}
		if err := s.Insert(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// PendingTimeTriggers returns unfired time-kind triggers whose value
// (a unix timestamp, stored as trigger_value) is due by now, accepting
// every readable kind spelling (open question 2).
func (s *TriggerStore) PendingTimeTriggers(ctx context.Context, now int64) ([]model.Trigger, error) {
	var rows []model.Trigger
	if err := s.db.WithContext(ctx).
		Where("is_fired = ? AND trigger_type IN ? AND CAST(trigger_value AS INTEGER) <= ?",
			false, model.ReadableTriggerKinds, now).
		Find(&rows).Error; err != nil {
		return nil, &errs.StoreError{Operation: "pending_time_triggers", Collection: "triggers", Cause: err}
	}
	return rows, nil
}

// MarkFired flips is_fired and bumps fire_count.
func (s *TriggerStore) MarkFired(ctx context.Context, id int64) error {
	if err := s.db.WithContext(ctx).Model(&model.Trigger{}).Where("id = ?", id).
		Updates(map[string]any{"is_fired": true, "fire_count": gorm.Expr("fire_count + 1")}).Error; err != nil {
		return &errs.StoreError{Operation: "mark_fired", Collection: "triggers", Cause: err}
	}
	return nil
}

// UpsertDismissal records a context-reminder dismissal, suppressing
// future reminders for (eventID, urlPattern) until dismissedUntil
// (§3: DismissalDuration).
func (s *TriggerStore) UpsertDismissal(ctx context.Context, d model.ContextDismissal) error {
	if err := s.db.WithContext(ctx).Save(&d).Error; err != nil {
		return &errs.StoreError{Operation: "upsert_dismissal", Collection: "context_dismissals", Cause: err}
	}
	return nil
}

// IsDismissed reports whether (eventID, urlPattern) is currently
// suppressed.
func (s *TriggerStore) IsDismissed(ctx context.Context, eventID int64, urlPattern string, now int64) (bool, error) {
	var d model.ContextDismissal
	err := s.db.WithContext(ctx).Where("event_id = ? AND url_pattern = ?", eventID, urlPattern).First(&d).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, &errs.StoreError{Operation: "is_dismissed", Collection: "context_dismissals", Cause: err}
	}
	return d.DismissedUntil > now, nil
}

// ListAll scroll-exports every trigger page by page (§9).
func (s *TriggerStore) ListAll(ctx context.Context, pageSize int, yield func([]model.Trigger) bool) error {
	if pageSize <= 0 {
		pageSize = 500
	}
	offset := 0
	for {
		var page []model.Trigger
		if err := s.db.WithContext(ctx).Order("id ASC").Offset(offset).Limit(pageSize).Find(&page).Error; err != nil {
			return &errs.StoreError{Operation: "list_all", Collection: "triggers", Cause: err}
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

// ListAllDismissals returns every context-dismissal row (the
// collection is small enough not to warrant paging).
func (s *TriggerStore) ListAllDismissals(ctx context.Context) ([]model.ContextDismissal, error) {
	var rows []model.ContextDismissal
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, &errs.StoreError{Operation: "list_all_dismissals", Collection: "context_dismissals", Cause: err}
	}
	return rows, nil
}

// Count returns the total number of trigger rows.
func (s *TriggerStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Trigger{}).Count(&n).Error; err != nil {
		return 0, &errs.StoreError{Operation: "count", Collection: "triggers", Cause: err}
	}
	return n, nil
}

// BulkInsert inserts triggers as-is (IDs already assigned), used by
// backup restore.
func (s *TriggerStore) BulkInsert(ctx context.Context, triggers []model.Trigger) error {
	if len(triggers) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&triggers).Error; err != nil {
		return &errs.StoreError{Operation: "bulk_insert", Collection: "triggers", Cause: err}
	}
	return nil
}

// BulkInsertDismissals inserts context-dismissal rows as-is, used by
// backup restore.
func (s *TriggerStore) BulkInsertDismissals(ctx context.Context, dismissals []model.ContextDismissal) error {
	if len(dismissals) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&dismissals).Error; err != nil {
		return &errs.StoreError{Operation: "bulk_insert_dismissals", Collection: "context_dismissals", Cause: err}
	}
	return nil
}

// DeleteAll truncates both the triggers and context_dismissals tables
// (used by backup restore mode=replace).
func (s *TriggerStore) DeleteAll(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Where("1 = 1").Delete(&model.Trigger{}).Error; err != nil {
		return &errs.StoreError{Operation: "delete_all", Collection: "triggers", Cause: err}
	}
	if err := s.db.WithContext(ctx).Where("1 = 1").Delete(&model.ContextDismissal{}).Error; err != nil {
		return &errs.StoreError{Operation: "delete_all", Collection: "context_dismissals", Cause: err}
	}
	return nil
}
