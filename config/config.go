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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5001"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"CHATCORE_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"CHATCORE_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"CHATCORE_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"CHATCORE_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"CHATCORE_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"CHATCORE_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"CHATCORE_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"CHATCORE_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"CHATCORE_REDIS_SKIP_TLS_VERIFY"`
}

// QueueConfig controls the channel work queues. Inbound events are spread
// across NumberOfQueues asynq queues by hashing the channel ID, so all
// messages for one channel land on the same queue. MaxQueueSize is a global
// ceiling across all chat queues; enqueues beyond it are rejected.
type QueueConfig struct {
	ChatQueue        string `json:"chat_queue" envconfig:"CHATCORE_CHAT_QUEUE"`
	WebhookQueue     string `json:"webhook_queue" envconfig:"CHATCORE_WEBHOOK_QUEUE"`
	NumberOfQueues   int    `json:"number_of_queues" envconfig:"CHATCORE_NUMBER_OF_QUEUES"`
	MaxQueueSize     int    `json:"max_queue_size" envconfig:"CHATCORE_MAX_QUEUE_SIZE"`
	MaxRetryAttempts int    `json:"max_retry_attempts" envconfig:"CHATCORE_QUEUE_MAX_RETRY_ATTEMPTS"`
	MonitoringPort   string `json:"monitoring_port" envconfig:"CHATCORE_QUEUE_MONITORING_PORT"`
}

// LockConfig holds channel lease tunables.
type LockConfig struct {
	LeaseTTLSeconds   int `json:"lease_ttl_seconds" envconfig:"CHATCORE_LOCK_LEASE_TTL_SECONDS"`
	MaxRetries        int `json:"max_retries" envconfig:"CHATCORE_LOCK_MAX_RETRIES"`
	RetryBackoffMs    int `json:"retry_backoff_ms" envconfig:"CHATCORE_LOCK_RETRY_BACKOFF_MS"`
	ExtensionSeconds  int `json:"extension_seconds" envconfig:"CHATCORE_LOCK_EXTENSION_SECONDS"`
}

type DedupConfig struct {
	WindowSeconds int `json:"window_seconds" envconfig:"CHATCORE_DEDUP_WINDOW_SECONDS"`
}

// ExtractionConfig controls the periodic lead-extraction workers.
type ExtractionConfig struct {
	IntervalSeconds int `json:"interval_seconds" envconfig:"CHATCORE_EXTRACTION_INTERVAL_SECONDS"`
	BatchSize       int `json:"batch_size" envconfig:"CHATCORE_EXTRACTION_BATCH_SIZE"`
}

// AIServiceConfig points at the external text-generation capability.
type AIServiceConfig struct {
	Url            string `json:"url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	Headers        struct {
		Authorization string `json:"Authorization"`
	} `json:"headers"`
}

type AIConfig struct {
	Reply      AIServiceConfig `json:"reply"`
	Extraction AIServiceConfig `json:"extraction"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"CHATCORE_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"CHATCORE_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"CHATCORE_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack   SlackWebhook `json:"slack"`
	Webhook struct {
		Url     string            `json:"url"`
		Headers map[string]string `json:"headers"`
	} `json:"webhook"`
}

type Configuration struct {
	ProjectName     string           `json:"project_name" envconfig:"CHATCORE_PROJECT_NAME"`
	EnableTelemetry bool             `json:"enable_telemetry" envconfig:"CHATCORE_ENABLE_TELEMETRY"`
	Server          ServerConfig     `json:"server"`
	DataSource      DataSourceConfig `json:"data_source"`
	Redis           RedisConfig      `json:"redis"`
	Queue           QueueConfig      `json:"queue"`
	Lock            LockConfig       `json:"lock"`
	Dedup           DedupConfig      `json:"dedup"`
	Extraction      ExtractionConfig `json:"extraction"`
	AI              AIConfig         `json:"ai"`
	Notification    Notification     `json:"notification"`
	RateLimit       RateLimitConfig  `json:"rate_limit"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("chatcore", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called chatcore.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Chatcore Server"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	// Set default value for Port if it's empty
	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Queue.ChatQueue == "" {
		cnf.Queue.ChatQueue = "chat_messages"
	}
	if cnf.Queue.WebhookQueue == "" {
		cnf.Queue.WebhookQueue = "chatcore_webhooks"
	}
	if cnf.Queue.NumberOfQueues <= 0 {
		cnf.Queue.NumberOfQueues = 8
	}
	if cnf.Queue.MaxQueueSize <= 0 {
		cnf.Queue.MaxQueueSize = 10000
	}
	if cnf.Queue.MaxRetryAttempts <= 0 {
		cnf.Queue.MaxRetryAttempts = 5
	}
	if cnf.Queue.MonitoringPort == "" {
		cnf.Queue.MonitoringPort = "5004"
	}

	if cnf.Lock.LeaseTTLSeconds <= 0 {
		cnf.Lock.LeaseTTLSeconds = 30
	}
	if cnf.Lock.MaxRetries <= 0 {
		cnf.Lock.MaxRetries = 5
	}
	if cnf.Lock.RetryBackoffMs <= 0 {
		cnf.Lock.RetryBackoffMs = 100
	}
	if cnf.Lock.ExtensionSeconds <= 0 {
		cnf.Lock.ExtensionSeconds = 30
	}

	// Dedup window stays short on purpose: wide enough to absorb provider
	// retry bursts, narrow enough not to swallow a user repeating themselves.
	if cnf.Dedup.WindowSeconds <= 0 {
		cnf.Dedup.WindowSeconds = 5
	}

	if cnf.Extraction.IntervalSeconds <= 0 {
		cnf.Extraction.IntervalSeconds = 300
	}
	if cnf.Extraction.BatchSize <= 0 {
		cnf.Extraction.BatchSize = 50
	}

	if cnf.AI.Reply.TimeoutSeconds <= 0 {
		cnf.AI.Reply.TimeoutSeconds = 30
	}
	if cnf.AI.Extraction.TimeoutSeconds <= 0 {
		cnf.AI.Extraction.TimeoutSeconds = 60
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	mockConfig.validateDefaultsForMock()
	ConfigStore.Store(mockConfig)
}

// validateDefaultsForMock fills queue/lock/dedup defaults without enforcing
// required DNS fields, so unit tests can run with a bare Configuration.
func (cnf *Configuration) validateDefaultsForMock() {
	if cnf.Queue.ChatQueue == "" {
		cnf.Queue.ChatQueue = "chat_messages"
	}
	if cnf.Queue.WebhookQueue == "" {
		cnf.Queue.WebhookQueue = "chatcore_webhooks"
	}
	if cnf.Queue.NumberOfQueues <= 0 {
		cnf.Queue.NumberOfQueues = 8
	}
	if cnf.Queue.MaxQueueSize <= 0 {
		cnf.Queue.MaxQueueSize = 10000
	}
	if cnf.Lock.LeaseTTLSeconds <= 0 {
		cnf.Lock.LeaseTTLSeconds = 30
	}
	if cnf.Lock.MaxRetries <= 0 {
		cnf.Lock.MaxRetries = 5
	}
	if cnf.Lock.RetryBackoffMs <= 0 {
		cnf.Lock.RetryBackoffMs = 100
	}
	if cnf.Lock.ExtensionSeconds <= 0 {
		cnf.Lock.ExtensionSeconds = 30
	}
	if cnf.Dedup.WindowSeconds <= 0 {
		cnf.Dedup.WindowSeconds = 5
	}
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
