package model

import (
	"time"

	"github.com/sniperthink/chatcore/model"
)

type InboundEvent struct {
	EventID     string `json:"event_id"`
	ChannelID   string `json:"channel_id"`
	Counterpart string `json:"counterpart"`
	Text        string `json:"text"`
	Timestamp   string `json:"timestamp"`
}

type CreateChannel struct {
	ChannelID string `json:"channel_id"`
	TenantID  string `json:"tenant_id"`
	Platform  string `json:"platform"`
	Name      string `json:"name"`
}

type TopUpCredit struct {
	Amount int64 `json:"amount"`
}

func (e *InboundEvent) ToChatEvent() *model.ChatEvent {
	ts := time.Now()
	if e.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, e.Timestamp); err == nil {
			ts = parsed
		}
	}
	return &model.ChatEvent{
		EventID:     e.EventID,
		ChannelID:   e.ChannelID,
		Counterpart: e.Counterpart,
		Text:        e.Text,
		Timestamp:   ts,
	}
}

func (c *CreateChannel) ToChannel() model.Channel {
	// The provider's own channel ID is kept when supplied so inbound events
	// can be matched against it; the store generates one otherwise.
	return model.Channel{ChannelID: c.ChannelID, TenantID: c.TenantID, Platform: c.Platform, Name: c.Name}
}
