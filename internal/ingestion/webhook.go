package ingestion

import (
	"encoding/json"
	"fmt"
)

// WebhookPayload is the chat-bridge webhook envelope (§6: "Shape:
// {event, instance, data:{key:{remoteJid, fromMe, id}, pushName?,
// message:{conversation?, extendedTextMessage?:{text}}, messageTimestamp}}").
type WebhookPayload struct {
	Event    string      `json:"event"`
	Instance string      `json:"instance"`
	Data     webhookData `json:"data"`
}

type webhookData struct {
	Key              webhookKey     `json:"key"`
	PushName         string         `json:"pushName"`
	Message          webhookMessage `json:"message"`
	MessageTimestamp int64          `json:"messageTimestamp"`
}

type webhookKey struct {
	RemoteJID string `json:"remoteJid"`
	FromMe    bool   `json:"fromMe"`
	ID        string `json:"id"`
}

type webhookMessage struct {
	Conversation        string               `json:"conversation"`
	ExtendedTextMessage *extendedTextMessage `json:"extendedTextMessage"`
}

type extendedTextMessage struct {
	Text string `json:"text"`
}

// MessagesUpsertEvent is the only webhook event the pipeline processes.
const MessagesUpsertEvent = "messages.upsert"

// NormalizedMessage is the webhook payload reduced to what the pipeline
// needs, after shape validation (§4.6 step 1).
type NormalizedMessage struct {
	ExternalID string
	ChatID     string
	SenderID   string
	SenderName string
	Content    string
	FromMe     bool
	IsGroup    bool
	Timestamp  int64
}

// ErrShapeInvalid is returned by ParseWebhook when the envelope fails
// schema parsing (§4.6 step 1: "reject with 400").
type ErrShapeInvalid struct {
	Reason string
}

func (e *ErrShapeInvalid) Error() string {
	return fmt.Sprintf("invalid webhook shape: %s", e.Reason)
}

// isGroupJID recognizes WhatsApp-style group remote JIDs.
func isGroupJID(jid string) bool {
	return len(jid) > 0 && hasSuffix(jid, "@g.us")
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

// ParseWebhook validates raw against the webhook shape and, for
// messages.upsert events, normalizes it. A non-upsert event reports
// skipped=true with no error (§6: "Non-messages.upsert events return
// {skipped:true}").
func ParseWebhook(raw []byte) (msg *NormalizedMessage, skipped bool, err error) {
	var payload WebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, false, &ErrShapeInvalid{Reason: err.Error()}
	}

	if payload.Event == "" || payload.Data.Key.ID == "" {
		return nil, false, &ErrShapeInvalid{Reason: "missing event or data.key.id"}
	}

	if payload.Event != MessagesUpsertEvent {
		return nil, true, nil
	}

	content := payload.Data.Message.Conversation
	if content == "" && payload.Data.Message.ExtendedTextMessage != nil {
		content = payload.Data.Message.ExtendedTextMessage.Text
	}

	return &NormalizedMessage{
		ExternalID: payload.Data.Key.ID,
		ChatID:     payload.Data.Key.RemoteJID,
		SenderID:   payload.Data.Key.RemoteJID,
		SenderName: payload.Data.PushName,
		Content:    content,
		FromMe:     payload.Data.Key.FromMe,
		IsGroup:    isGroupJID(payload.Data.Key.RemoteJID),
		Timestamp:  payload.Data.MessageTimestamp,
	}, false, nil
}
