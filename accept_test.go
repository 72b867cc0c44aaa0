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
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sniperthink/chatcore/config"
	"github.com/sniperthink/chatcore/database/mocks"
	"github.com/sniperthink/chatcore/internal/dedup"
	redlock "github.com/sniperthink/chatcore/internal/lock"
	"github.com/sniperthink/chatcore/model"
)

func newTestCore(t *testing.T) (*Chatcore, *mocks.MockDataSource, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	config.MockConfig(&config.Configuration{
		Redis: config.RedisConfig{Dns: mr.Addr()},
		Lock: config.LockConfig{
			LeaseTTLSeconds:  5,
			MaxRetries:       1,
			RetryBackoffMs:   10,
			ExtensionSeconds: 5,
		},
	})

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	queueOptions := asynq.RedisClientOpt{Addr: mr.Addr()}
	mockDS := new(mocks.MockDataSource)

	core := &Chatcore{
		queue: &Queue{
			Client:    asynq.NewClient(queueOptions),
			Inspector: asynq.NewInspector(queueOptions),
		},
		redis:      client,
		datasource: mockDS,
		locker:     redlock.NewManager(client, 10*time.Millisecond),
		deduper:    dedup.NewDeduper(client, 5*time.Second),
	}
	return core, mockDS, mr
}

func TestAccept_QueuesEvent(t *testing.T) {
	core, mockDS, mr := newTestCore(t)

	mockDS.On("GetChannel", mock.Anything, "ch1").Return(&model.Channel{ChannelID: "ch1", TenantID: "tn1", Platform: model.PlatformWhatsApp}, nil)
	mockDS.On("TryConsumeCredit", mock.Anything, "tn1", int64(1)).Return(true, nil)

	event := &model.ChatEvent{ChannelID: "ch1", Counterpart: "+15550001111", Text: "hello", Timestamp: time.Now()}
	result, err := core.Accept(context.Background(), event)
	assert.NoError(t, err)
	assert.Equal(t, model.OutcomeQueued, result.Outcome)
	assert.Contains(t, result.EventID, "evt_")

	// The dedup mark is in place for the channel and content.
	assert.True(t, mr.Exists("dedup:ch1:"+model.HashContent("hello")))
	mockDS.AssertExpectations(t)
}

func TestAccept_RejectsDuplicateWithinWindow(t *testing.T) {
	core, mockDS, mr := newTestCore(t)

	mockDS.On("GetChannel", mock.Anything, "ch1").Return(&model.Channel{ChannelID: "ch1", TenantID: "tn1"}, nil)

	// An identical message was accepted moments ago.
	err := core.deduper.MarkProcessed(context.Background(), "ch1", "hello")
	assert.NoError(t, err)

	event := &model.ChatEvent{ChannelID: "ch1", Counterpart: "+15550001111", Text: "hello"}
	result, err := core.Accept(context.Background(), event)
	assert.NoError(t, err)
	assert.Equal(t, model.OutcomeDuplicate, result.Outcome)

	// No credit was touched and nothing was enqueued.
	mockDS.AssertNotCalled(t, "TryConsumeCredit", mock.Anything, mock.Anything, mock.Anything)
	assert.True(t, mr.Exists("dedup:ch1:"+model.HashContent("hello")))
}

func TestAccept_DuplicateScopedToChannel(t *testing.T) {
	core, mockDS, _ := newTestCore(t)

	mockDS.On("GetChannel", mock.Anything, "ch2").Return(&model.Channel{ChannelID: "ch2", TenantID: "tn1"}, nil)
	mockDS.On("TryConsumeCredit", mock.Anything, "tn1", int64(1)).Return(true, nil)

	// The same content on a different channel is not a duplicate.
	err := core.deduper.MarkProcessed(context.Background(), "ch1", "hello")
	assert.NoError(t, err)

	event := &model.ChatEvent{ChannelID: "ch2", Counterpart: "+15550001111", Text: "hello"}
	result, err := core.Accept(context.Background(), event)
	assert.NoError(t, err)
	assert.Equal(t, model.OutcomeQueued, result.Outcome)
}

func TestAccept_RejectsWhenCreditExhausted(t *testing.T) {
	core, mockDS, mr := newTestCore(t)

	mockDS.On("GetChannel", mock.Anything, "ch1").Return(&model.Channel{ChannelID: "ch1", TenantID: "tn1"}, nil)
	mockDS.On("TryConsumeCredit", mock.Anything, "tn1", int64(1)).Return(false, nil)

	event := &model.ChatEvent{ChannelID: "ch1", Counterpart: "+15550001111", Text: "hello"}
	result, err := core.Accept(context.Background(), event)
	assert.NoError(t, err)
	assert.Equal(t, model.OutcomeInsufficientCredit, result.Outcome)

	// A credit rejection leaves no dedup mark, so the sender's retry after a
	// top-up is admitted.
	assert.False(t, mr.Exists("dedup:ch1:"+model.HashContent("hello")))
	mockDS.AssertExpectations(t)
}

func TestAccept_RejectsWhenQueueCeilingReached(t *testing.T) {
	core, mockDS, mr := newTestCore(t)

	config.MockConfig(&config.Configuration{
		Redis: config.RedisConfig{Dns: mr.Addr()},
		Queue: config.QueueConfig{MaxQueueSize: 1},
	})

	mockDS.On("GetChannel", mock.Anything, "ch1").Return(&model.Channel{ChannelID: "ch1", TenantID: "tn1"}, nil)
	mockDS.On("GetChannel", mock.Anything, "ch2").Return(&model.Channel{ChannelID: "ch2", TenantID: "tn1"}, nil)
	mockDS.On("TryConsumeCredit", mock.Anything, "tn1", int64(1)).Return(true, nil)

	first := &model.ChatEvent{ChannelID: "ch1", Counterpart: "+15550001111", Text: "hello"}
	result, err := core.Accept(context.Background(), first)
	assert.NoError(t, err)
	assert.Equal(t, model.OutcomeQueued, result.Outcome)

	// The single queued task fills the ceiling; the next event bounces.
	second := &model.ChatEvent{ChannelID: "ch2", Counterpart: "+15550002222", Text: "are you open today"}
	result, err = core.Accept(context.Background(), second)
	assert.NoError(t, err)
	assert.Equal(t, model.OutcomeQueueFull, result.Outcome)

	// The rejected event was neither charged nor marked.
	mockDS.AssertNumberOfCalls(t, "TryConsumeCredit", 1)
	assert.False(t, mr.Exists("dedup:ch2:"+model.HashContent("are you open today")))
}

func TestAccept_UnknownChannel(t *testing.T) {
	core, mockDS, _ := newTestCore(t)

	mockDS.On("GetChannel", mock.Anything, "ch_missing").Return(nil, assert.AnError)

	event := &model.ChatEvent{ChannelID: "ch_missing", Counterpart: "+15550001111", Text: "hello"}
	result, err := core.Accept(context.Background(), event)
	assert.Error(t, err)
	assert.Nil(t, result)
}
