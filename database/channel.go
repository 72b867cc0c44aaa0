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
	"log"
	"time"

	"github.com/sniperthink/chatcore/internal/apierror"
	"github.com/sniperthink/chatcore/model"
)

func (d Datasource) CreateChannel(ctx context.Context, ch model.Channel) (model.Channel, error) {
	ch.CreatedAt = time.Now()
	if ch.ChannelID == "" {
		ch.ChannelID = model.GenerateUUIDWithSuffix("ch")
	}

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO chatcore.channels (channel_id, tenant_id, platform, name, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, ch.ChannelID, ch.TenantID, ch.Platform, ch.Name, ch.CreatedAt)

	if err != nil {
		return model.Channel{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create channel", err)
	}

	return ch, nil
}

func (d Datasource) GetChannel(ctx context.Context, channelID string) (*model.Channel, error) {
	cacheKey := fmt.Sprintf("channel:%s", channelID)
	if d.Cache != nil {
		cached := &model.Channel{}
		if err := d.Cache.Get(ctx, cacheKey, cached); err == nil && cached.ChannelID != "" {
			return cached, nil
		}
	}

	row := d.Conn.QueryRowContext(ctx, `
		SELECT channel_id, tenant_id, platform, name, created_at
		FROM chatcore.channels
		WHERE channel_id = $1
	`, channelID)

	ch := &model.Channel{}
	err := row.Scan(&ch.ChannelID, &ch.TenantID, &ch.Platform, &ch.Name, &ch.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Channel with ID '%s' not found", channelID), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve channel", err)
	}

	if d.Cache != nil {
		if err := d.Cache.Set(ctx, cacheKey, ch, 5*time.Minute); err != nil {
			log.Printf("Failed to cache channel %s: %v", channelID, err)
		}
	}

	return ch, nil
}

func (d Datasource) GetAllChannels(ctx context.Context, limit, offset int) ([]model.Channel, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT channel_id, tenant_id, platform, name, created_at
		FROM chatcore.channels
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve channels", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	channels := []model.Channel{}
	for rows.Next() {
		ch := model.Channel{}
		if err := rows.Scan(&ch.ChannelID, &ch.TenantID, &ch.Platform, &ch.Name, &ch.CreatedAt); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan channel", err)
		}
		channels = append(channels, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to iterate channels", err)
	}

	return channels, nil
}
