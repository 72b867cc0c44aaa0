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

package chatcore

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sniperthink/chatcore/model"
)

// creditCostPerMessage is the admission price of one inbound message. Reply
// generation is the paid step; it is charged up front so processing never
// starts for a tenant with an empty balance.
const creditCostPerMessage = 1

// Accept runs the admission pipeline for a normalized inbound event:
// duplicate suppression, backpressure, the credit gate, and finally the
// channel queue. Rejections are reported in the result, not as errors; an
// error return means a store failure, in which case nothing was marked or
// charged and the provider's own retry redelivers the event.
func (c *Chatcore) Accept(ctx context.Context, event *model.ChatEvent) (*model.AcceptResult, error) {
	ctx, span := tracer.Start(ctx, "Accept Inbound Event")
	defer span.End()

	channel, err := c.datasource.GetChannel(ctx, event.ChannelID)
	if err != nil {
		return nil, err
	}

	duplicate, err := c.deduper.IsDuplicate(ctx, event.ChannelID, event.Text)
	if err != nil {
		return nil, err
	}
	if duplicate {
		result := &model.AcceptResult{
			Outcome:   model.OutcomeDuplicate,
			ChannelID: event.ChannelID,
			Reason:    "identical message already accepted within the dedup window",
		}
		notifyRejected(result)
		return result, nil
	}

	full, err := c.queue.IsFull()
	if err != nil {
		return nil, err
	}
	if full {
		result := &model.AcceptResult{
			Outcome:   model.OutcomeQueueFull,
			ChannelID: event.ChannelID,
			Reason:    "channel queues are at capacity",
		}
		notifyRejected(result)
		return result, nil
	}

	// The conditional decrement is the admission decision: it happens before
	// the dedup mark so a credit rejection leaves no trace in the store.
	consumed, err := c.datasource.TryConsumeCredit(ctx, channel.TenantID, creditCostPerMessage)
	if err != nil {
		return nil, err
	}
	if !consumed {
		result := &model.AcceptResult{
			Outcome:   model.OutcomeInsufficientCredit,
			ChannelID: event.ChannelID,
			Reason:    "tenant credit balance exhausted",
		}
		notifyRejected(result)
		return result, nil
	}

	if event.EventID == "" {
		event.EventID = model.GenerateUUIDWithSuffix("evt")
	}
	event.EnqueuedAt = time.Now()

	if err := c.deduper.MarkProcessed(ctx, event.ChannelID, event.Text); err != nil {
		// The credit is already gone; give it back before failing the call.
		c.refundCredit(ctx, channel.TenantID)
		return nil, err
	}

	if err := c.queue.Enqueue(ctx, event); err != nil {
		// Compensate both side effects so the provider's retry is admitted.
		if _, removeErr := c.deduper.Remove(ctx, event.ChannelID, event.Text); removeErr != nil {
			logrus.Errorf("failed to compensate dedup mark for event %s: %v", event.EventID, removeErr)
		}
		c.refundCredit(ctx, channel.TenantID)
		return nil, err
	}

	go func() {
		err := SendWebhook(NewWebhook{
			Event:   "message.queued",
			Payload: event,
		})
		if err != nil {
			logrus.Error(err)
		}
	}()

	return &model.AcceptResult{
		Outcome:   model.OutcomeQueued,
		EventID:   event.EventID,
		ChannelID: event.ChannelID,
	}, nil
}

// notifyRejected reports an admission rejection to the configured webhook
// endpoint without holding up the caller's response.
func notifyRejected(result *model.AcceptResult) {
	go func() {
		err := SendWebhook(NewWebhook{
			Event:   "message.rejected",
			Payload: result,
		})
		if err != nil {
			logrus.Error(err)
		}
	}()
}

func (c *Chatcore) refundCredit(ctx context.Context, tenantID string) {
	if _, err := c.datasource.TopUpCredit(ctx, tenantID, creditCostPerMessage); err != nil {
		logrus.Errorf("failed to refund credit for tenant %s: %v", tenantID, err)
	}
}
