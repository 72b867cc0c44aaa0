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

	"go.opentelemetry.io/otel"

	"github.com/sniperthink/chatcore/internal/apierror"
	"github.com/sniperthink/chatcore/model"
)

// RecordMessage assigns the next sequence number for the conversation and
// inserts the message in the same database transaction. Channel-level leasing
// serializes writers per channel, so MAX+1 cannot race for a conversation;
// the unique (conversation_id, sequence_no) index catches any writer that
// slips through anyway.
func (d Datasource) RecordMessage(ctx context.Context, conversationID string, msg *model.Message) (*model.Message, error) {
	ctx, span := otel.Tracer("chatcore.database").Start(ctx, "Record Message")
	defer span.End()

	if msg.MessageID == "" {
		msg.MessageID = model.GenerateUUIDWithSuffix("msg")
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	msg.ConversationID = conversationID

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}

	row := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(sequence_no), 0) + 1
		FROM chatcore.messages
		WHERE conversation_id = $1
	`, conversationID)
	if err := row.Scan(&msg.SequenceNo); err != nil {
		_ = tx.Rollback()
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to assign sequence number", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chatcore.messages (message_id, conversation_id, sequence_no, sender, text, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, msg.MessageID, msg.ConversationID, msg.SequenceNo, msg.Sender, msg.Text, msg.Status, msg.CreatedAt)
	if err != nil {
		_ = tx.Rollback()
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to insert message", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE chatcore.conversations
		SET last_message_at = $2
		WHERE conversation_id = $1
	`, conversationID, msg.CreatedAt)
	if err != nil {
		_ = tx.Rollback()
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update conversation activity", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit message", err)
	}

	if d.Cache != nil {
		_ = d.Cache.Delete(ctx, fmt.Sprintf("history:%s", conversationID))
	}

	return msg, nil
}

func (d Datasource) GetMessages(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT message_id, conversation_id, sequence_no, sender, text, status, created_at
		FROM chatcore.messages
		WHERE conversation_id = $1
		ORDER BY sequence_no ASC
		LIMIT $2 OFFSET $3
	`, conversationID, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve messages", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanMessages(rows)
}

// GetConversationHistory returns the most recent messages in sequence order,
// the shape the reply-generation capability expects. Results are cached
// briefly; RecordMessage invalidates on write.
func (d Datasource) GetConversationHistory(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	cacheKey := fmt.Sprintf("history:%s", conversationID)
	if d.Cache != nil {
		var cached []model.Message
		if err := d.Cache.Get(ctx, cacheKey, &cached); err == nil && len(cached) > 0 {
			return cached, nil
		}
	}

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT message_id, conversation_id, sequence_no, sender, text, status, created_at
		FROM (
			SELECT message_id, conversation_id, sequence_no, sender, text, status, created_at
			FROM chatcore.messages
			WHERE conversation_id = $1
			ORDER BY sequence_no DESC
			LIMIT $2
		) AS recent
		ORDER BY sequence_no ASC
	`, conversationID, limit)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve conversation history", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	history, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}

	if d.Cache != nil && len(history) > 0 {
		_ = d.Cache.Set(ctx, cacheKey, history, 30*time.Second)
	}

	return history, nil
}

func (d Datasource) UpdateMessageStatus(ctx context.Context, messageID, status string) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE chatcore.messages
		SET status = $2
		WHERE message_id = $1
	`, messageID, status)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update message status", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to check message status update", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Message with ID '%s' not found", messageID), sql.ErrNoRows)
	}

	return nil
}

func scanMessages(rows *sql.Rows) ([]model.Message, error) {
	messages := []model.Message{}
	for rows.Next() {
		msg := model.Message{}
		if err := rows.Scan(&msg.MessageID, &msg.ConversationID, &msg.SequenceNo, &msg.Sender, &msg.Text, &msg.Status, &msg.CreatedAt); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan message", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to iterate messages", err)
	}
	return messages, nil
}
