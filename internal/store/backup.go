package store

import (
	"context"

	"github.com/argus-assistant/argus/internal/model"
)

// Backup is the Adapter facade over all six collections, used by the
// scheduler's daily-snapshot task and the backup/export/import HTTP
// handlers (§6). It exists because a backup or restore necessarily
// touches every collection, and none of the six per-collection stores
// owns a cross-collection concern on its own.
type Backup struct {
	Events    *EventStore
	Messages  *MessageStore
	Triggers  *TriggerStore
	PushSubs  *PushSubscriptionStore
}

// NewBackup assembles the cross-collection backup facade.
func NewBackup(events *EventStore, messages *MessageStore, triggers *TriggerStore, pushSubs *PushSubscriptionStore) *Backup {
	return &Backup{Events: events, Messages: messages, Triggers: triggers, PushSubs: pushSubs}
}

// Counts is the per-collection row count (§6: "counts is intentionally
// placed before indices so the first 400 bytes suffice").
type Counts struct {
	Events             int64 `json:"events"`
	Messages           int64 `json:"messages"`
	Triggers           int64 `json:"triggers"`
	Contacts           int64 `json:"contacts"`
	ContextDismissals  int64 `json:"contextDismissals"`
	PushSubscriptions  int64 `json:"pushSubscriptions"`
}

// Indices is the full snapshot payload, one slice per collection.
// Events are exported without their embedding field (model.Event's
// Embedding field carries json:"-"; it is never serialized here).
type Indices struct {
	Events            []model.Event            `json:"events"`
	Messages          []model.Message          `json:"messages"`
	Triggers          []model.Trigger          `json:"triggers"`
	Contacts          []model.Contact          `json:"contacts"`
	ContextDismissals []model.ContextDismissal `json:"contextDismissals"`
	PushSubscriptions []model.PushSubscription `json:"pushSubscriptions"`
}

// Document is the on-disk backup file shape (§6).
type Document struct {
	Version    string  `json:"version"`
	ExportedAt string  `json:"exportedAt"`
	Source     string  `json:"source"`
	Counts     Counts  `json:"counts"`
	Indices    Indices `json:"indices"`
}

// BackupVersion is the backup document format version written by
// ExportAll.
const BackupVersion = "1.0"

// GetStats computes row counts across every collection, for
// /api/stats, /api/health, and the export's leading counts block.
func (b *Backup) GetStats(ctx context.Context) (Counts, error) {
	var c Counts
	var err error
	if c.Events, err = b.Events.Count(ctx); err != nil {
		return c, err
	}
	if c.Messages, err = b.Messages.Count(ctx); err != nil {
		return c, err
	}
	if c.Contacts, err = b.Messages.CountContacts(ctx); err != nil {
		return c, err
	}
	if c.Triggers, err = b.Triggers.Count(ctx); err != nil {
		return c, err
	}
	dismissals, err := b.Triggers.ListAllDismissals(ctx)
	if err != nil {
		return c, err
	}
	c.ContextDismissals = int64(len(dismissals))
	if c.PushSubscriptions, err = b.PushSubs.Count(ctx); err != nil {
		return c, err
	}
	return c, nil
}

// ExportAll assembles a full Document in memory, reading every
// collection page by page through each store's ListAll. exportedAt and
// source are supplied by the caller. It does no file I/O; the HTTP and
// scheduler callers write the file.
func (b *Backup) ExportAll(ctx context.Context, exportedAt, source string) (*Document, error) {
	counts, err := b.GetStats(ctx)
	if err != nil {
		return nil, err
	}

	doc := &Document{Version: BackupVersion, ExportedAt: exportedAt, Source: source, Counts: counts}

	if err := b.Events.ListAll(ctx, 500, func(page []model.Event) bool {
		doc.Indices.Events = append(doc.Indices.Events, page...)
		return true
	}); err != nil {
		return nil, err
	}

	if err := b.Messages.ListAll(ctx, 500, func(page []model.Message) bool {
		doc.Indices.Messages = append(doc.Indices.Messages, page...)
		return true
	}); err != nil {
		return nil, err
	}

	if doc.Indices.Contacts, err = b.Messages.ListAllContacts(ctx); err != nil {
		return nil, err
	}

	if err := b.Triggers.ListAll(ctx, 500, func(page []model.Trigger) bool {
		doc.Indices.Triggers = append(doc.Indices.Triggers, page...)
		return true
	}); err != nil {
		return nil, err
	}

	if doc.Indices.ContextDismissals, err = b.Triggers.ListAllDismissals(ctx); err != nil {
		return nil, err
	}

	if doc.Indices.PushSubscriptions, err = b.PushSubs.List(ctx); err != nil {
		return nil, err
	}

	return doc, nil
}

// ImportMode selects replace-vs-merge restore semantics (§6:
// "{backup, mode:"merge"|"replace", indices?:[...]}").
type ImportMode string

const (
	ImportReplace ImportMode = "replace"
	ImportMerge   ImportMode = "merge"
)

// ImportFromBackup restores selected collections (or all six when
// indices is empty) from doc. mode=replace truncates each selected
// collection before inserting; mode=merge inserts on top of existing
// rows. ID counters are reseeded afterward so future inserts never
// collide with restored IDs (§3, §8 invariant 4).
func (b *Backup) ImportFromBackup(ctx context.Context, doc *Document, mode ImportMode, indices []string) error {
	want := func(name string) bool {
		if len(indices) == 0 {
			return true
		}
		for _, idx := range indices {
			if idx == name {
				return true
			}
		}
		return false
	}

	if want("events") {
		if mode == ImportReplace {
			if err := b.Events.DeleteAll(ctx); err != nil {
				return err
			}
		}
		if err := b.Events.BulkInsert(ctx, doc.Indices.Events); err != nil {
			return err
		}
		if err := b.Events.ReseedCounter(ctx); err != nil {
			return err
		}
	}

	if want("messages") || want("contacts") {
		if mode == ImportReplace {
			if err := b.Messages.DeleteAll(ctx); err != nil {
				return err
			}
		}
		if want("messages") {
			if err := b.Messages.BulkInsert(ctx, doc.Indices.Messages); err != nil {
				return err
			}
		}
		if want("contacts") {
			if err := b.Messages.BulkInsertContacts(ctx, doc.Indices.Contacts); err != nil {
				return err
			}
		}
	}

	if want("triggers") || want("contextDismissals") {
		if mode == ImportReplace {
			if err := b.Triggers.DeleteAll(ctx); err != nil {
				return err
			}
		}
		if want("triggers") {
			if err := b.Triggers.BulkInsert(ctx, doc.Indices.Triggers); err != nil {
				return err
			}
			if err := b.Triggers.ReseedCounter(ctx); err != nil {
				return err
			}
		}
		if want("contextDismissals") {
			if err := b.Triggers.BulkInsertDismissals(ctx, doc.Indices.ContextDismissals); err != nil {
				return err
			}
		}
	}

	if want("pushSubscriptions") {
		if mode == ImportReplace {
			if err := b.PushSubs.DeleteAll(ctx); err != nil {
				return err
			}
		}
		if err := b.PushSubs.BulkAdd(ctx, doc.Indices.PushSubscriptions); err != nil {
			return err
		}
	}

	return nil
}
