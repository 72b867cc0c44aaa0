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
package model

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func validateDateFormat(format, value string) error {
	_, err := time.Parse(format, value)
	if err != nil {
		return errors.New("please format the timestamp as 'YYYY-MM-DDTHH:MM:SS+00:00' (e.g., 2026-04-22T15:28:03+00:00)")
	}
	return nil
}

func (e *InboundEvent) ValidateInboundEvent() error {
	return validation.ValidateStruct(e,
		validation.Field(&e.ChannelID, validation.Required),
		validation.Field(&e.Counterpart, validation.Required),
		validation.Field(&e.Text, validation.Required),
		validation.Field(&e.Timestamp, validation.When(e.Timestamp != "", validation.By(func(value interface{}) error {
			dateStr, ok := value.(string)
			if !ok {
				return errors.New("invalid type for timestamp")
			}
			return validateDateFormat("2006-01-02T15:04:05Z07:00", dateStr)
		})),
		),
	)
}

func (c *CreateChannel) ValidateCreateChannel() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TenantID, validation.Required),
		validation.Field(&c.Platform, validation.Required, validation.In("whatsapp", "instagram", "webchat")),
		validation.Field(&c.Name, validation.Required),
	)
}

func (t *TopUpCredit) ValidateTopUpCredit() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.Amount, validation.Required, validation.Min(1)),
	)
}
