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
	"database/sql"
	"fmt"
	"time"

	"github.com/sniperthink/chatcore/internal/apierror"
	"github.com/sniperthink/chatcore/model"
)

// ResolveConversation returns the conversation for (channelID, counterpart),
// creating it on first contact. The insert relies on the unique
// (channel_id, counterpart) constraint: under a racing create the loser's
// insert is a no-op and the existing row is returned.
func (d Datasource) ResolveConversation(ctx context.Context, channelID, counterpart string) (*model.Conversation, error) {
	conversationID := model.GenerateUUIDWithSuffix("conv")
	now := time.Now()

	row := d.Conn.QueryRowContext(ctx, `
		INSERT INTO chatcore.conversations (conversation_id, channel_id, counterpart, created_at, last_message_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (channel_id, counterpart) DO UPDATE SET last_message_at = EXCLUDED.last_message_at
		RETURNING conversation_id, channel_id, counterpart, created_at, last_message_at
	`, conversationID, channelID, counterpart, now)

	conversation := &model.Conversation{}
	err := row.Scan(&conversation.ConversationID, &conversation.ChannelID, &conversation.Counterpart, &conversation.CreatedAt, &conversation.LastMessageAt)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to resolve conversation", err)
	}

	return conversation, nil
}

func (d Datasource) GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT conversation_id, channel_id, counterpart, created_at, last_message_at
		FROM chatcore.conversations
		WHERE conversation_id = $1
	`, conversationID)

	conversation := &model.Conversation{}
	err := row.Scan(&conversation.ConversationID, &conversation.ChannelID, &conversation.Counterpart, &conversation.CreatedAt, &conversation.LastMessageAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Conversation with ID '%s' not found", conversationID), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve conversation", err)
	}

	return conversation, nil
}

func (d Datasource) GetConversationsByChannel(ctx context.Context, channelID string, limit, offset int) ([]model.Conversation, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT conversation_id, channel_id, counterpart, created_at, last_message_at
		FROM chatcore.conversations
		WHERE channel_id = $1
		ORDER BY last_message_at DESC
		LIMIT $2 OFFSET $3
	`, channelID, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve conversations", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanConversations(rows)
}

// GetConversationsWithActivitySince lists conversations whose last message
// arrived after the given time. This feeds the periodic extraction workers.
func (d Datasource) GetConversationsWithActivitySince(ctx context.Context, since time.Time, limit int) ([]model.Conversation, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT conversation_id, channel_id, counterpart, created_at, last_message_at
		FROM chatcore.conversations
		WHERE last_message_at > $1
		ORDER BY last_message_at ASC
		LIMIT $2
	`, since, limit)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve active conversations", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanConversations(rows)
}

func scanConversations(rows *sql.Rows) ([]model.Conversation, error) {
	conversations := []model.Conversation{}
	for rows.Next() {
		conversation := model.Conversation{}
		if err := rows.Scan(&conversation.ConversationID, &conversation.ChannelID, &conversation.Counterpart, &conversation.CreatedAt, &conversation.LastMessageAt); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan conversation", err)
		}
		conversations = append(conversations, conversation)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to iterate conversations", err)
	}
	return conversations, nil
}
