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
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/sniperthink/chatcore/config"
	redis_db "github.com/sniperthink/chatcore/internal/redis-db"
	"github.com/sniperthink/chatcore/model"
)

// Queue routes inbound chat events onto per-channel FIFO queues backed by
// asynq. A channel ID always hashes to the same queue and each chat queue is
// drained with concurrency 1, so messages for one channel are handed to
// workers in arrival order while different channels proceed in parallel.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

// NewQueue initializes a new Queue instance with the provided configuration.
func NewQueue(conf *config.Configuration) *Queue {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}

	queueOptions := asynq.RedisClientOpt{Addr: redisOption.Addr, Password: redisOption.Password, DB: redisOption.DB, TLSConfig: redisOption.TLSConfig}
	client := asynq.NewClient(queueOptions)
	inspector := asynq.NewInspector(queueOptions)
	return &Queue{
		Client:    client,
		Inspector: inspector,
	}
}

// Enqueue places a chat event on its channel's queue.
func (q *Queue) Enqueue(ctx context.Context, event *model.ChatEvent) error {
	ctx, span := tracer.Start(ctx, "Adding Chat Event To Channel Queue")
	defer span.End()

	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	queueName := q.queueNameFor(cfg, event.ChannelID)
	taskOptions := []asynq.Option{
		asynq.TaskID(event.EventID),
		asynq.Queue(queueName),
		asynq.MaxRetry(cfg.Queue.MaxRetryAttempts),
	}
	task := asynq.NewTask(queueName, payload, taskOptions...)

	info, err := q.Client.EnqueueContext(ctx, task)
	if err != nil {
		log.Println(err, info)
		return err
	}
	log.Printf(" [*] Successfully enqueued chat event: %s on %s", event.EventID, queueName)

	return nil
}

// queueNameFor hashes a channel ID onto one of the configured chat queues.
// All events for one channel land on the same queue, which asynq drains with
// per-queue concurrency 1 to preserve FIFO order for that channel.
func (q *Queue) queueNameFor(cfg *config.Configuration, channelID string) string {
	queueIndex := hashChannelID(channelID) % cfg.Queue.NumberOfQueues
	return fmt.Sprintf("%s_%d", cfg.Queue.ChatQueue, queueIndex+1)
}

// hashChannelID returns a consistent hash value for a channel ID.
func hashChannelID(channelID string) int {
	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(channelID))
	return int(hasher.Sum32())
}

// Depth sums the work currently sitting in every chat queue: pending,
// active, scheduled and retry tasks all count against the global ceiling.
// Only queues asynq already knows about are inspected; a chat queue that has
// never seen a task does not exist yet and contributes nothing.
func (q *Queue) Depth() (int, error) {
	cfg, err := config.Fetch()
	if err != nil {
		return 0, err
	}

	queues, err := q.Inspector.Queues()
	if err != nil {
		return 0, err
	}

	prefix := cfg.Queue.ChatQueue + "_"
	total := 0
	for _, queueName := range queues {
		if !strings.HasPrefix(queueName, prefix) {
			continue
		}
		info, err := q.Inspector.GetQueueInfo(queueName)
		if err != nil {
			return 0, err
		}
		total += info.Pending + info.Active + info.Scheduled + info.Retry
	}
	return total, nil
}

// IsFull reports whether the global queue ceiling has been reached. The
// check-then-enqueue pair is not atomic across producers; the ceiling is a
// backpressure bound, not an exact limit.
func (q *Queue) IsFull() (bool, error) {
	cfg, err := config.Fetch()
	if err != nil {
		return false, err
	}

	depth, err := q.Depth()
	if err != nil {
		return false, err
	}
	return depth >= cfg.Queue.MaxQueueSize, nil
}

// GetEventFromQueue retrieves a queued chat event by its event ID, checking
// every chat queue.
func (q *Queue) GetEventFromQueue(eventID string) (*model.ChatEvent, error) {
	cfg, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	for i := 1; i <= cfg.Queue.NumberOfQueues; i++ {
		queueName := fmt.Sprintf("%s_%d", cfg.Queue.ChatQueue, i)
		task, err := q.Inspector.GetTaskInfo(queueName, eventID)
		if err == nil && task != nil {
			var event model.ChatEvent
			if err := json.Unmarshal(task.Payload, &event); err != nil {
				return nil, err
			}
			return &event, nil
		}
	}
	return nil, nil
}
