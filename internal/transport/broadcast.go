// Package transport is the Broadcast Transport (§4.9): a single-
// consumer duplex websocket channel where the newest connection always
// wins, adapted from the teacher's WebSocketStreamConnection
// (agent/streaming/ws_adapter.go) generalized from a bidirectional
// stream-reconnect adapter to a server-push broadcaster.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/argus-assistant/argus/internal/model"
)

// MessageKind enumerates the fourteen server-to-client envelope kinds (§6).
type MessageKind string

const (
	KindNotification      MessageKind = "notification"
	KindTrigger           MessageKind = "trigger"
	KindContextReminder   MessageKind = "context_reminder"
	KindConflictWarning   MessageKind = "conflict_warning"
	KindUpdateConfirm     MessageKind = "update_confirm"
	KindActionPerformed   MessageKind = "action_performed"
	KindEventCompleted    MessageKind = "event_completed"
	KindEventScheduled    MessageKind = "event_scheduled"
	KindEventSnoozed      MessageKind = "event_snoozed"
	KindEventIgnored      MessageKind = "event_ignored"
	KindEventDismissed    MessageKind = "event_dismissed"
	KindEventDeleted      MessageKind = "event_deleted"
	KindEventUpdated      MessageKind = "event_updated"
	KindEventAcknowledged MessageKind = "event_acknowledged"
)

// Envelope is the minimum shape every broadcast message carries (§6:
// "{type, event?, popupType?, popup?}").
type Envelope struct {
	Type      MessageKind           `json:"type"`
	Event     *model.Event          `json:"event,omitempty"`
	PopupType *model.PopupType      `json:"popupType,omitempty"`
	Popup     *model.PopupBlueprint `json:"popup,omitempty"`
	Conflicts []model.Conflict      `json:"conflicts,omitempty"`
}

// Broadcaster holds at most one live connection. Accepting a new
// connection closes and replaces any prior one (last-connection-wins,
// a deliberate non-goal of multi-client fanout, see DESIGN.md).
type Broadcaster struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	logger *zap.Logger
}

// New builds an empty Broadcaster.
func New(logger *zap.Logger) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{logger: logger.With(zap.String("component", "broadcast_transport"))}
}

// Accept registers conn as the sole active connection, closing and
// discarding whatever connection preceded it.
func (b *Broadcaster) Accept(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn != nil {
		b.logger.Info("replacing existing duplex connection (last-connection-wins)")
		_ = b.conn.Close(websocket.StatusNormalClosure, "superseded by new connection")
	}
	b.conn = conn
}

// Send serializes envelope as JSON and writes it to the current
// connection. A nil or absent connection is a silent no-op — there is
// no guaranteed-delivery queue (§4.9 is fire-and-forget).
func (b *Broadcaster) Send(ctx context.Context, env Envelope) error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()

	if conn == nil {
		return nil
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		b.logger.Warn("duplex write failed, dropping connection", zap.Error(err))
		b.mu.Lock()
		if b.conn == conn {
			b.conn = nil
		}
		b.mu.Unlock()
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

// Read blocks for the next client-sent frame on the current
// connection (the duplex channel also carries client pings/acks).
func (b *Broadcaster) Read(ctx context.Context) ([]byte, error) {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()

	if conn == nil {
		return nil, fmt.Errorf("no active connection")
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("websocket read: %w", err)
	}
	return data, nil
}

// HasConnection reports whether a consumer is currently attached.
func (b *Broadcaster) HasConnection() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

// Close releases the current connection, if any.
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close(websocket.StatusNormalClosure, "server shutting down")
	b.conn = nil
	return err
}
