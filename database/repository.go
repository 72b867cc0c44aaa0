/*
Copyright 2025 Sniperthink Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"context"
	"time"

	"github.com/sniperthink/chatcore/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	channel
	conversation
	message
	credit
	extraction
}

// channel defines methods for the channel registry.
type channel interface {
	CreateChannel(ctx context.Context, ch model.Channel) (model.Channel, error)
	GetChannel(ctx context.Context, channelID string) (*model.Channel, error)
	GetAllChannels(ctx context.Context, limit, offset int) ([]model.Channel, error)
}

// conversation defines methods for conversation threads.
type conversation interface {
	ResolveConversation(ctx context.Context, channelID, counterpart string) (*model.Conversation, error) // Resolves or creates the thread for (channel, counterpart)
	GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error)
	GetConversationsByChannel(ctx context.Context, channelID string, limit, offset int) ([]model.Conversation, error)
	GetConversationsWithActivitySince(ctx context.Context, since time.Time, limit int) ([]model.Conversation, error)
}

// message defines methods for ordered message persistence.
type message interface {
	RecordMessage(ctx context.Context, conversationID string, msg *model.Message) (*model.Message, error) // Assigns the next sequence number and inserts in one transaction
	GetMessages(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, error)
	GetConversationHistory(ctx context.Context, conversationID string, limit int) ([]model.Message, error)
	UpdateMessageStatus(ctx context.Context, messageID, status string) error
}

// credit defines methods for the prepaid credit gate.
type credit interface {
	TryConsumeCredit(ctx context.Context, tenantID string, amount int64) (bool, error) // Single conditional decrement; false means insufficient balance
	TopUpCredit(ctx context.Context, tenantID string, amount int64) (*model.CreditLedger, error)
	GetCreditLedger(ctx context.Context, tenantID string) (*model.CreditLedger, error)
}

// extraction defines methods for lead extraction records.
type extraction interface {
	RecordExtraction(ctx context.Context, record *model.ExtractionRecord) (*model.ExtractionRecord, error)
	GetLatestExtraction(ctx context.Context, conversationID string) (*model.ExtractionRecord, error)
}
