package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/argus-assistant/argus/internal/errs"
	"github.com/argus-assistant/argus/internal/model"
)

// MessageStore is the messages and contacts collections.
type MessageStore struct {
	db *gorm.DB
}

func NewMessageStore(db *gorm.DB) *MessageStore {
	return &MessageStore{db: db}
}

// Insert persists a message, ignoring the row if ExternalID already
// exists (messages are deduplicated by ExternalID, §3).
func (s *MessageStore) Insert(ctx context.Context, m *model.Message) (inserted bool, err error) {
	res := s.db.WithContext(ctx).Where("external_id = ?", m.ExternalID).FirstOrCreate(m)
	if res.Error != nil {
		return false, &errs.StoreError{Operation: "insert", Collection: "messages", Cause: res.Error}
	}
	return res.RowsAffected > 0, nil
}

// Exists reports whether a message with the given external ID is
// already stored.
func (s *MessageStore) Exists(ctx context.Context, externalID string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("external_id = ?", externalID).Count(&count).Error; err != nil {
		return false, &errs.StoreError{Operation: "exists", Collection: "messages", Cause: err}
	}
	return count > 0, nil
}

// RecentByChat returns up to limit messages preceding beforeExternalID
// in chatID, most-recent-first, for event extraction's "recent context"
// input (§4.6 step 6: "last 5 messages in the chat").
func (s *MessageStore) RecentByChat(ctx context.Context, chatID, beforeExternalID string, limit int) ([]model.Message, error) {
	var before model.Message
	if err := s.db.WithContext(ctx).Where("external_id = ?", beforeExternalID).First(&before).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, &errs.StoreError{Operation: "recent_by_chat_anchor", Collection: "messages", Cause: err}
	}

	var msgs []model.Message
	err := s.db.WithContext(ctx).
		Where("chat_id = ? AND ingested_unix < ?", chatID, before.IngestedUnix).
		Order("ingested_unix DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, &errs.StoreError{Operation: "recent_by_chat", Collection: "messages", Cause: err}
	}
	return msgs, nil
}

// UpsertContact creates or updates a contact's last-seen timestamp and
// message count.
func (s *MessageStore) UpsertContact(ctx context.Context, jid, displayName string, seenUnix int64) error {
	var c model.Contact
	err := s.db.WithContext(ctx).Where("jid = ?", jid).First(&c).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c = model.Contact{
			JID: jid, DisplayName: displayName,
			FirstSeenUnix: seenUnix, LastSeenUnix: seenUnix, MessageCount: 1,
		}
		if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
			return &errs.StoreError{Operation: "upsert_contact_create", Collection: "contacts", Cause: err}
		}
		return nil
	case err != nil:
		return &errs.StoreError{Operation: "upsert_contact_lookup", Collection: "contacts", Cause: err}
	}

	updates := map[string]any{
		"last_seen_unix": seenUnix,
		"message_count":  c.MessageCount + 1,
	}
	if displayName != "" {
		updates["display_name"] = displayName
	}
	if err := s.db.WithContext(ctx).Model(&model.Contact{}).
		Where("jid = ?", jid).Updates(updates).Error; err != nil {
		return &errs.StoreError{Operation: "upsert_contact_update", Collection: "contacts", Cause: err}
	}
	return nil
}

// ListAll scroll-exports every message page by page (§9).
func (s *MessageStore) ListAll(ctx context.Context, pageSize int, yield func([]model.Message) bool) error {
	if pageSize <= 0 {
		pageSize = 500
	}
	offset := 0
	for {
		var page []model.Message
		if err := s.db.WithContext(ctx).Order("ingested_unix ASC").Offset(offset).Limit(pageSize).Find(&page).Error; err != nil {
			return &errs.StoreError{Operation: "list_all", Collection: "messages", Cause: err}
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

// ListAllContacts returns every contact row.
func (s *MessageStore) ListAllContacts(ctx context.Context) ([]model.Contact, error) {
	var rows []model.Contact
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, &errs.StoreError{Operation: "list_all_contacts", Collection: "contacts", Cause: err}
	}
	return rows, nil
}

// Count returns the total number of message rows.
func (s *MessageStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Message{}).Count(&n).Error; err != nil {
		return 0, &errs.StoreError{Operation: "count", Collection: "messages", Cause: err}
	}
	return n, nil
}

// CountContacts returns the total number of contact rows.
func (s *MessageStore) CountContacts(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Contact{}).Count(&n).Error; err != nil {
		return 0, &errs.StoreError{Operation: "count_contacts", Collection: "contacts", Cause: err}
	}
	return n, nil
}

// BulkInsert inserts messages as-is, used by backup restore.
func (s *MessageStore) BulkInsert(ctx context.Context, messages []model.Message) error {
	if len(messages) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&messages).Error; err != nil {
		return &errs.StoreError{Operation: "bulk_insert", Collection: "messages", Cause: err}
	}
	return nil
}

// BulkInsertContacts inserts contact rows as-is, used by backup restore.
func (s *MessageStore) BulkInsertContacts(ctx context.Context, contacts []model.Contact) error {
	if len(contacts) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&contacts).Error; err != nil {
		return &errs.StoreError{Operation: "bulk_insert_contacts", Collection: "contacts", Cause: err}
	}
	return nil
}

// DeleteAll truncates both the messages and contacts tables (used by
// backup restore mode=replace).
func (s *MessageStore) DeleteAll(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Where("1 = 1").Delete(&model.Message{}).Error; err != nil {
		return &errs.StoreError{Operation: "delete_all", Collection: "messages", Cause: err}
	}
	if err := s.db.WithContext(ctx).Where("1 = 1").Delete(&model.Contact{}).Error; err != nil {
		return &errs.StoreError{Operation: "delete_all", Collection: "contacts", Cause: err}
	}
	return nil
}
