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
package mocks

import (
	"context"
	"time"

	"github.com/sniperthink/chatcore/model"
	"github.com/stretchr/testify/mock"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Channel methods

func (m *MockDataSource) CreateChannel(ctx context.Context, ch model.Channel) (model.Channel, error) {
	args := m.Called(ctx, ch)
	return args.Get(0).(model.Channel), args.Error(1)
}

func (m *MockDataSource) GetChannel(ctx context.Context, channelID string) (*model.Channel, error) {
	args := m.Called(ctx, channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Channel), args.Error(1)
}

func (m *MockDataSource) GetAllChannels(ctx context.Context, limit, offset int) ([]model.Channel, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]model.Channel), args.Error(1)
}

// Conversation methods

func (m *MockDataSource) ResolveConversation(ctx context.Context, channelID, counterpart string) (*model.Conversation, error) {
	args := m.Called(ctx, channelID, counterpart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversation), args.Error(1)
}

func (m *MockDataSource) GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversation), args.Error(1)
}

func (m *MockDataSource) GetConversationsByChannel(ctx context.Context, channelID string, limit, offset int) ([]model.Conversation, error) {
	args := m.Called(ctx, channelID, limit, offset)
	return args.Get(0).([]model.Conversation), args.Error(1)
}

func (m *MockDataSource) GetConversationsWithActivitySince(ctx context.Context, since time.Time, limit int) ([]model.Conversation, error) {
	args := m.Called(ctx, since, limit)
	return args.Get(0).([]model.Conversation), args.Error(1)
}

// Message methods

func (m *MockDataSource) RecordMessage(ctx context.Context, conversationID string, msg *model.Message) (*model.Message, error) {
	args := m.Called(ctx, conversationID, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *MockDataSource) GetMessages(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, error) {
	args := m.Called(ctx, conversationID, limit, offset)
	return args.Get(0).([]model.Message), args.Error(1)
}

func (m *MockDataSource) GetConversationHistory(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	args := m.Called(ctx, conversationID, limit)
	return args.Get(0).([]model.Message), args.Error(1)
}

func (m *MockDataSource) UpdateMessageStatus(ctx context.Context, messageID, status string) error {
	args := m.Called(ctx, messageID, status)
	return args.Error(0)
}

// Credit methods

func (m *MockDataSource) TryConsumeCredit(ctx context.Context, tenantID string, amount int64) (bool, error) {
	args := m.Called(ctx, tenantID, amount)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) TopUpCredit(ctx context.Context, tenantID string, amount int64) (*model.CreditLedger, error) {
	args := m.Called(ctx, tenantID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CreditLedger), args.Error(1)
}

func (m *MockDataSource) GetCreditLedger(ctx context.Context, tenantID string) (*model.CreditLedger, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CreditLedger), args.Error(1)
}

// Extraction methods

func (m *MockDataSource) RecordExtraction(ctx context.Context, record *model.ExtractionRecord) (*model.ExtractionRecord, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ExtractionRecord), args.Error(1)
}

func (m *MockDataSource) GetLatestExtraction(ctx context.Context, conversationID string) (*model.ExtractionRecord, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ExtractionRecord), args.Error(1)
}
