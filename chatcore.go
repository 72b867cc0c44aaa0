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
	"embed"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/sniperthink/chatcore/ai"
	"github.com/sniperthink/chatcore/config"
	"github.com/sniperthink/chatcore/database"
	"github.com/sniperthink/chatcore/internal/dedup"
	redlock "github.com/sniperthink/chatcore/internal/lock"
	redis_db "github.com/sniperthink/chatcore/internal/redis-db"
)

var tracer = otel.Tracer("chatcore")

//go:embed sql/*.sql
var SQLFiles embed.FS

// Chatcore wires the admission pipeline, channel queues, lease manager and
// persistence together. One instance is constructed per process and handed to
// the API server and workers; coordination between processes happens entirely
// through the shared Redis store.
type Chatcore struct {
	queue      *Queue
	redis      redis.UniversalClient
	datasource database.IDataSource
	locker     *redlock.Manager
	deduper    *dedup.Deduper
	generator  ai.Generator
	extractor  ai.Extractor
}

// NewChatcore initializes a Chatcore instance from the process configuration
// and the provided datasource.
func NewChatcore(db database.IDataSource) (*Chatcore, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient([]string{fmt.Sprintf("redis://%s", configuration.Redis.Dns)}, configuration.Redis.SkipTLSVerify)
	if err != nil {
		return nil, err
	}

	locker := redlock.NewManager(redisClient.Client(), time.Duration(configuration.Lock.RetryBackoffMs)*time.Millisecond)
	deduper := dedup.NewDeduper(redisClient.Client(), time.Duration(configuration.Dedup.WindowSeconds)*time.Second)
	newQueue := NewQueue(configuration)

	newChatcore := &Chatcore{
		queue:      newQueue,
		redis:      redisClient.Client(),
		datasource: db,
		locker:     locker,
		deduper:    deduper,
		generator:  ai.NewReplyClient(&configuration.AI.Reply),
		extractor:  ai.NewExtractionClient(&configuration.AI.Extraction),
	}
	return newChatcore, nil
}

// Locker exposes the lease manager, used by the workers command for orphan
// cleanup on startup.
func (c *Chatcore) Locker() *redlock.Manager {
	return c.locker
}

// Queue exposes the channel queue for depth introspection.
func (c *Chatcore) Queue() *Queue {
	return c.queue
}

// Datasource exposes the persistence layer to the API handlers.
func (c *Chatcore) Datasource() database.IDataSource {
	return c.datasource
}
