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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sniperthink/chatcore"
	"github.com/sniperthink/chatcore/config"
	redis_db "github.com/sniperthink/chatcore/internal/redis-db"
	"github.com/sniperthink/chatcore/model"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
)

// processChatEvent handles an inbound event pulled off a channel queue.
// Lease contention pushes the event back for retry so channel ordering is
// preserved; every other failure is also retried under asynq's backoff.
func (b *chatcoreInstance) processChatEvent(ctx context.Context, t *asynq.Task) error {
	var event model.ChatEvent
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		logrus.Error(err)
		return err
	}

	err := b.core.ProcessChatEvent(ctx, &event)
	if err != nil {
		logrus.Infof("Event %s pushed back for retry due to error: %v", event.EventID, err)
		return err
	}

	return nil
}

// initializeQueues builds the queue priority map. Each channel queue runs
// with weight 1; webhook deliveries get their own queue.
func initializeQueues() map[string]int {
	cfg, err := config.Fetch()
	if err != nil {
		log.Printf("Error fetching config, using defaults: %v", err)
		return nil
	}

	queues := make(map[string]int)
	queues[cfg.Queue.WebhookQueue] = 3

	for i := 1; i <= cfg.Queue.NumberOfQueues; i++ {
		queueName := fmt.Sprintf("%s_%d", cfg.Queue.ChatQueue, i)
		queues[queueName] = 1
	}
	return queues
}

func initializeWorkerServer(conf *config.Configuration, queues map[string]int) (*asynq.Server, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %v", err)
	}

	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:      redisOption.Addr,
			Password:  redisOption.Password,
			DB:        redisOption.DB,
			TLSConfig: redisOption.TLSConfig,
		},
		asynq.Config{
			// A single worker per process keeps each channel queue strictly
			// ordered. Throughput scales by running more worker processes;
			// the channel leases serialize processing across them.
			Concurrency: 1,
			Queues:      queues,
		},
	), nil
}

func initializeTaskHandlers(b *chatcoreInstance, mux *asynq.ServeMux) {
	cfg, err := config.Fetch()
	if err != nil {
		log.Printf("Error fetching config, using defaults: %v", err)
		return
	}

	for i := 1; i <= cfg.Queue.NumberOfQueues; i++ {
		queueName := fmt.Sprintf("%s_%d", cfg.Queue.ChatQueue, i)
		mux.HandleFunc(queueName, b.processChatEvent)
	}

	mux.HandleFunc(cfg.Queue.WebhookQueue, chatcore.ProcessWebhook)
}

// reapOrphanedLocks clears channel locks with no expiry left behind by
// crashed workers so their channels are not blocked forever.
func reapOrphanedLocks(ctx context.Context, b *chatcoreInstance) {
	reaped, err := b.core.Locker().CleanupOrphans(ctx)
	if err != nil {
		logrus.Errorf("orphaned lock cleanup failed: %v", err)
		return
	}
	if reaped > 0 {
		logrus.Warnf("reaped %d orphaned channel locks on startup", reaped)
	}
}

// workerCommands defines the "workers" command to start worker processes.
// The workers drain the channel queues, deliver outbound webhooks and run
// the periodic lead extraction pass.
func workerCommands(b *chatcoreInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start chatcore workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			conf, err := config.Fetch()
			if err != nil {
				log.Fatal("Error fetching config:", err)
			}

			shutdown, err := initializeObservability(ctx, conf)
			if err != nil {
				log.Fatal(err)
			}
			if shutdown != nil {
				defer func() {
					if err := shutdown(ctx); err != nil {
						log.Printf("Error during shutdown: %v", err)
					}
				}()
			}

			reapOrphanedLocks(ctx, b)

			queues := initializeQueues()

			srv, err := initializeWorkerServer(conf, queues)
			if err != nil {
				log.Fatal(err)
			}

			mux := asynq.NewServeMux()
			initializeTaskHandlers(b, mux)

			poller := chatcore.NewExtractionPoller(b.core,
				time.Duration(conf.Extraction.IntervalSeconds)*time.Second,
				conf.Extraction.BatchSize)
			poller.Start()
			defer poller.Stop()

			// Start asynqmon server for health checks and monitoring
			redisOption, _ := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
			h := asynqmon.New(asynqmon.Options{
				RootPath: "/monitoring",
				RedisConnOpt: asynq.RedisClientOpt{
					Addr:      redisOption.Addr,
					Password:  redisOption.Password,
					DB:        redisOption.DB,
					TLSConfig: redisOption.TLSConfig,
				},
			})

			go func() {
				monitoringAddr := fmt.Sprintf(":%s", conf.Queue.MonitoringPort)
				log.Printf("Asynqmon server listening on %s/monitoring", monitoringAddr)
				if err := http.ListenAndServe(monitoringAddr, h); err != nil {
					log.Fatalf("could not start asynqmon server: %v", err)
				}
			}()

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}
