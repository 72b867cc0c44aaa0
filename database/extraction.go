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
	"encoding/json"
	"fmt"
	"time"

	"github.com/sniperthink/chatcore/internal/apierror"
	"github.com/sniperthink/chatcore/model"
)

// RecordExtraction appends a new extraction record for a conversation.
// Records accumulate; re-running extraction over an already-covered window
// produces another record, never a conflict.
func (d Datasource) RecordExtraction(ctx context.Context, record *model.ExtractionRecord) (*model.ExtractionRecord, error) {
	if record.ExtractionID == "" {
		record.ExtractionID = model.GenerateUUIDWithSuffix("ext")
	}
	if record.ExtractedAt.IsZero() {
		record.ExtractedAt = time.Now()
	}

	fieldsJSON, err := json.Marshal(record.Fields)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal extraction fields", err)
	}

	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO chatcore.extraction_records (extraction_id, conversation_id, fields, extracted_at)
		VALUES ($1, $2, $3, $4)
	`, record.ExtractionID, record.ConversationID, fieldsJSON, record.ExtractedAt)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record extraction", err)
	}

	return record, nil
}

// GetLatestExtraction returns the newest extraction record for a
// conversation. History is retained; display reads take the latest.
func (d Datasource) GetLatestExtraction(ctx context.Context, conversationID string) (*model.ExtractionRecord, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT extraction_id, conversation_id, fields, extracted_at
		FROM chatcore.extraction_records
		WHERE conversation_id = $1
		ORDER BY extracted_at DESC
		LIMIT 1
	`, conversationID)

	record := &model.ExtractionRecord{}
	var fieldsJSON []byte
	err := row.Scan(&record.ExtractionID, &record.ConversationID, &fieldsJSON, &record.ExtractedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("No extraction records for conversation '%s'", conversationID), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve extraction record", err)
	}

	err = json.Unmarshal(fieldsJSON, &record.Fields)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal extraction fields", err)
	}

	return record, nil
}
