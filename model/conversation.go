package model

import "time"

// Message sender roles.
const (
	SenderUser  = "user"
	SenderAgent = "agent"
)

// Message statuses.
const (
	MessageStatusReceived      = "received"
	MessageStatusAwaitingReply = "awaiting_reply"
	MessageStatusSent          = "sent"
	MessageStatusFailed        = "failed"
)

// Channel is a single messaging endpoint (one phone number, one Instagram
// account, or one webchat widget). It is the unit of FIFO ordering and
// locking, and binds inbound traffic to the tenant that pays for it.
type Channel struct {
	ChannelID string    `json:"channel_id"`
	TenantID  string    `json:"tenant_id"`
	Platform  string    `json:"platform"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation is a thread between a channel and one counterpart. Identified
// by (channel_id, counterpart) uniqueness; created on first contact.
type Conversation struct {
	ConversationID string    `json:"conversation_id"`
	ChannelID      string    `json:"channel_id"`
	Counterpart    string    `json:"counterpart"`
	CreatedAt      time.Time `json:"created_at"`
	LastMessageAt  time.Time `json:"last_message_at"`
}

// Message is a single utterance in a conversation. SequenceNo is strictly
// increasing per conversation, assigned exactly once, never reused.
type Message struct {
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	SequenceNo     int64     `json:"sequence_no"`
	Sender         string    `json:"sender"`
	Text           string    `json:"text"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// CreditLedger tracks a tenant's prepaid processing balance. RemainingCredits
// never goes below zero; decrements are conditional at the store level.
type CreditLedger struct {
	TenantID         string    `json:"tenant_id"`
	RemainingCredits int64     `json:"remaining_credits"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ExtractionRecord holds structured lead fields pulled out of a conversation
// by the periodic extraction workers. Multiple records accumulate per
// conversation over time; readers take the latest.
type ExtractionRecord struct {
	ExtractionID   string                 `json:"extraction_id"`
	ConversationID string                 `json:"conversation_id"`
	Fields         map[string]interface{} `json:"fields"`
	ExtractedAt    time.Time              `json:"extracted_at"`
}
