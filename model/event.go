package model

import "time"

// Platform identifies the messaging surface a channel belongs to.
const (
	PlatformWhatsApp  = "whatsapp"
	PlatformInstagram = "instagram"
	PlatformWebchat   = "webchat"
)

// Accept outcomes returned by the admission pipeline. Rejections are normal
// admission-control statuses, not errors.
const (
	OutcomeQueued             = "QUEUED"
	OutcomeDuplicate          = "DUPLICATE"
	OutcomeInsufficientCredit = "INSUFFICIENT_CREDIT"
	OutcomeQueueFull          = "QUEUE_FULL"
)

// ChatEvent is the normalized inbound message handed to the core by the
// webhook boundary. Counterpart is the sender's identity on the channel's
// platform (phone number, Instagram handle, or webchat visitor ID).
type ChatEvent struct {
	EventID     string    `json:"event_id"`
	ChannelID   string    `json:"channel_id"`
	Counterpart string    `json:"counterpart"`
	Text        string    `json:"text"`
	Timestamp   time.Time `json:"timestamp"`
	EnqueuedAt  time.Time `json:"enqueued_at,omitempty"`
}

// AcceptResult reports how the admission pipeline disposed of an inbound event.
type AcceptResult struct {
	Outcome   string `json:"outcome"`
	EventID   string `json:"event_id,omitempty"`
	ChannelID string `json:"channel_id"`
	Reason    string `json:"reason,omitempty"`
}
