package model

// Message is an immutable chat message ingested via the webhook.
// Deduplicated by ExternalID.
type Message struct {
	ExternalID       string `json:"externalId" gorm:"primaryKey"`
	ChatID           string `json:"chatId" gorm:"index"`
	SenderID         string `json:"senderId"`
	SenderName       string `json:"senderName,omitempty"`
	Content          string `json:"content"`
	FromMe           bool   `json:"fromMe"`
	IsGroup          bool   `json:"isGroup"`
	OriginatingUnix  int64  `json:"originatingUnix"`
	IngestedUnix     int64  `json:"ingestedUnix" gorm:"index"`
}

// TableName pins the GORM table name.
func (Message) TableName() string { return "messages" }

// Contact tracks a chat participant across messages.
type Contact struct {
	JID            string `json:"jid" gorm:"primaryKey"`
	DisplayName    string `json:"displayName"`
	FirstSeenUnix  int64  `json:"firstSeenUnix"`
	LastSeenUnix   int64  `json:"lastSeenUnix"`
	MessageCount   int64  `json:"messageCount"`
}

// TableName pins the GORM table name.
func (Contact) TableName() string { return "contacts" }
