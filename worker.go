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
	"log"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/sniperthink/chatcore/config"
	redlock "github.com/sniperthink/chatcore/internal/lock"
	"github.com/sniperthink/chatcore/model"
)

// historyWindow caps how many prior messages are sent to the reply generator.
const historyWindow = 50

// ProcessChatEvent handles one dequeued event end to end: take the channel
// lease, generate the reply, persist both sides of the exchange through the
// sequencer, release. Returning an error pushes the task back to asynq for a
// later retry, which covers both lease contention and transient failures.
//
// Nothing is persisted until the reply exists and the lease has been
// re-validated, so a retry re-runs the whole unit instead of completing a
// partial write.
func (c *Chatcore) ProcessChatEvent(ctx context.Context, event *model.ChatEvent) error {
	ctx, span := tracer.Start(ctx, "Process Chat Event From Channel Queue")
	defer span.End()

	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	leaseTTL := time.Duration(cfg.Lock.LeaseTTLSeconds) * time.Second
	lease, err := c.locker.Acquire(ctx, redlock.ChannelKey(event.ChannelID), leaseTTL, cfg.Lock.MaxRetries)
	if err != nil {
		if errors.Is(err, redlock.ErrNotAcquired) {
			// Another worker holds the channel. Not an error worth alerting
			// on; the task goes back to the queue for the next cycle.
			logrus.Infof("channel %s is locked, requeueing event %s", event.ChannelID, event.EventID)
		}
		return err
	}
	defer func() {
		released, releaseErr := c.locker.Release(context.WithoutCancel(ctx), lease)
		if releaseErr != nil {
			logrus.Errorf("failed to release lease for channel %s: %v", event.ChannelID, releaseErr)
		} else if !released {
			// The lease expired mid-processing and may have been taken over.
			logrus.Warnf("lease for channel %s expired before release", event.ChannelID)
		}
	}()

	conversation, err := c.datasource.ResolveConversation(ctx, event.ChannelID, event.Counterpart)
	if err != nil {
		return err
	}

	history, err := c.datasource.GetConversationHistory(ctx, conversation.ConversationID, historyWindow)
	if err != nil {
		return err
	}

	reply, err := c.generator.Generate(ctx, history, event.Text)
	if err != nil {
		// Paid work failed before anything was persisted. Drop the dedup
		// mark so the provider's redelivery is admitted again.
		if _, removeErr := c.deduper.Remove(ctx, event.ChannelID, event.Text); removeErr != nil {
			logrus.Errorf("failed to compensate dedup mark for event %s: %v", event.EventID, removeErr)
		}
		return err
	}

	// The generation call may have eaten most of the lease TTL. Re-validate
	// ownership before the durable write; losing it means another worker may
	// already be processing this channel, and persisting now would race it.
	extension := time.Duration(cfg.Lock.ExtensionSeconds) * time.Second
	lease, err = c.locker.Extend(ctx, lease, extension)
	if err != nil {
		if errors.Is(err, redlock.ErrOwnershipLost) {
			logrus.Warnf("lease ownership lost for channel %s, aborting write for event %s", event.ChannelID, event.EventID)
		}
		return err
	}

	userMsg := &model.Message{
		Sender:    model.SenderUser,
		Text:      event.Text,
		Status:    model.MessageStatusReceived,
		CreatedAt: event.Timestamp,
	}
	if _, err := c.datasource.RecordMessage(ctx, conversation.ConversationID, userMsg); err != nil {
		if _, removeErr := c.deduper.Remove(ctx, event.ChannelID, event.Text); removeErr != nil {
			logrus.Errorf("failed to compensate dedup mark for event %s: %v", event.EventID, removeErr)
		}
		return err
	}

	agentMsg := &model.Message{
		Sender: model.SenderAgent,
		Text:   reply,
		Status: model.MessageStatusSent,
	}
	if _, err := c.datasource.RecordMessage(ctx, conversation.ConversationID, agentMsg); err != nil {
		// The user message landed but the reply did not; flag it so the
		// conversation reads as awaiting a reply rather than silently stalled.
		if statusErr := c.datasource.UpdateMessageStatus(ctx, userMsg.MessageID, model.MessageStatusAwaitingReply); statusErr != nil {
			logrus.Error(statusErr)
		}
		return err
	}

	go func() {
		err := SendWebhook(NewWebhook{
			Event:   "message.replied",
			Payload: agentMsg,
		})
		if err != nil {
			logrus.Error(err)
		}
	}()

	log.Println(" [*] Chat Event Processed", event.EventID)
	return nil
}
