package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateInboundEvent(t *testing.T) {
	tests := []struct {
		name    string
		event   InboundEvent
		wantErr bool
	}{
		{
			name:    "Valid event",
			event:   InboundEvent{ChannelID: "ch_123", Counterpart: "+2348012345678", Text: "hello"},
			wantErr: false,
		},
		{
			name:    "Valid with timestamp",
			event:   InboundEvent{ChannelID: "ch_123", Counterpart: "visitor-9", Text: "hi", Timestamp: "2026-04-22T15:28:03+00:00"},
			wantErr: false,
		},
		{
			name:    "Missing channel",
			event:   InboundEvent{Counterpart: "+2348012345678", Text: "hello"},
			wantErr: true,
		},
		{
			name:    "Missing counterpart",
			event:   InboundEvent{ChannelID: "ch_123", Text: "hello"},
			wantErr: true,
		},
		{
			name:    "Missing text",
			event:   InboundEvent{ChannelID: "ch_123", Counterpart: "+2348012345678"},
			wantErr: true,
		},
		{
			name:    "Malformed timestamp",
			event:   InboundEvent{ChannelID: "ch_123", Counterpart: "+2348012345678", Text: "hello", Timestamp: "22/04/2026"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.ValidateInboundEvent()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateCreateChannel(t *testing.T) {
	tests := []struct {
		name    string
		channel CreateChannel
		wantErr bool
	}{
		{
			name:    "Valid channel",
			channel: CreateChannel{TenantID: "tn_1", Platform: "whatsapp", Name: "Support Line"},
			wantErr: false,
		},
		{
			name:    "Unknown platform",
			channel: CreateChannel{TenantID: "tn_1", Platform: "telegram", Name: "Support Line"},
			wantErr: true,
		},
		{
			name:    "Missing tenant",
			channel: CreateChannel{Platform: "webchat", Name: "Site Widget"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.channel.ValidateCreateChannel()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestToChannelKeepsProviderChannelID(t *testing.T) {
	c := CreateChannel{ChannelID: "wa_15550001111", TenantID: "tn_1", Platform: "whatsapp", Name: "Support Line"}
	channel := c.ToChannel()
	assert.Equal(t, "wa_15550001111", channel.ChannelID)
	assert.Equal(t, "tn_1", channel.TenantID)

	// Without a provider ID the store assigns one at creation time.
	c.ChannelID = ""
	assert.Empty(t, c.ToChannel().ChannelID)
}

func TestValidateTopUpCredit(t *testing.T) {
	assert.NoError(t, (&TopUpCredit{Amount: 100}).ValidateTopUpCredit())
	assert.Error(t, (&TopUpCredit{}).ValidateTopUpCredit())
	assert.Error(t, (&TopUpCredit{Amount: -5}).ValidateTopUpCredit())
}

func TestToChatEventTimestamp(t *testing.T) {
	e := InboundEvent{ChannelID: "ch_1", Counterpart: "c", Text: "hi", Timestamp: "2026-04-22T15:28:03+00:00"}
	event := e.ToChatEvent()
	expected, _ := time.Parse(time.RFC3339, "2026-04-22T15:28:03+00:00")
	assert.True(t, event.Timestamp.Equal(expected))

	// An absent timestamp falls back to receipt time.
	e.Timestamp = ""
	event = e.ToChatEvent()
	assert.WithinDuration(t, time.Now(), event.Timestamp, time.Second)
}
