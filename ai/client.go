package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/sniperthink/chatcore/config"
	"github.com/sniperthink/chatcore/internal/request"
	"github.com/sniperthink/chatcore/model"
)

// historyEntry is the wire shape of one turn sent to the AI service.
type historyEntry struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type generateRequest struct {
	History []historyEntry `json:"history"`
	Text    string         `json:"text"`
}

type generateResponse struct {
	Reply string `json:"reply"`
	Error string `json:"error,omitempty"`
}

type extractRequest struct {
	History []historyEntry `json:"history"`
}

type extractResponse struct {
	Fields map[string]interface{} `json:"fields"`
	Error  string                 `json:"error,omitempty"`
}

// ReplyClient calls the external reply-generation service over HTTP.
type ReplyClient struct {
	conf *config.AIServiceConfig
}

// NewReplyClient creates a Generator backed by the configured HTTP service.
func NewReplyClient(conf *config.AIServiceConfig) *ReplyClient {
	return &ReplyClient{conf: conf}
}

func (c *ReplyClient) Generate(ctx context.Context, history []model.Message, userText string) (string, error) {
	body := generateRequest{
		History: toHistoryEntries(history),
		Text:    userText,
	}

	var resp generateResponse
	err := callService(ctx, c.conf, body, &resp)
	if err != nil {
		return "", errors.Wrap(err, "reply generation failed")
	}
	if resp.Error != "" {
		return "", fmt.Errorf("reply generation failed: %s", resp.Error)
	}
	if resp.Reply == "" {
		return "", fmt.Errorf("reply generation returned empty reply")
	}
	return resp.Reply, nil
}

// ExtractionClient calls the external lead-extraction service over HTTP.
type ExtractionClient struct {
	conf *config.AIServiceConfig
}

// NewExtractionClient creates an Extractor backed by the configured HTTP service.
func NewExtractionClient(conf *config.AIServiceConfig) *ExtractionClient {
	return &ExtractionClient{conf: conf}
}

func (c *ExtractionClient) Extract(ctx context.Context, history []model.Message) (map[string]interface{}, error) {
	body := extractRequest{
		History: toHistoryEntries(history),
	}

	var resp extractResponse
	err := callService(ctx, c.conf, body, &resp)
	if err != nil {
		return nil, errors.Wrap(err, "lead extraction failed")
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("lead extraction failed: %s", resp.Error)
	}
	return resp.Fields, nil
}

// callService posts a JSON body to the service with a bounded timeout and one
// retry round for transient failures. 4xx responses are permanent.
func callService(ctx context.Context, conf *config.AIServiceConfig, body interface{}, response interface{}) error {
	if conf.Url == "" {
		return fmt.Errorf("ai service url not configured")
	}

	timeout := time.Duration(conf.TimeoutSeconds) * time.Second
	attempt := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		payload, err := request.ToJsonReq(body)
		if err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(attemptCtx, "POST", conf.Url, payload)
		if err != nil {
			return backoff.Permanent(err)
		}
		if conf.Headers.Authorization != "" {
			req.Header.Set("Authorization", conf.Headers.Authorization)
		}

		resp, err := request.Call(req, response)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(fmt.Errorf("ai service rejected request with status %d", resp.StatusCode))
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("ai service returned status %d", resp.StatusCode)
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	return backoff.Retry(attempt, policy)
}

func toHistoryEntries(history []model.Message) []historyEntry {
	entries := make([]historyEntry, 0, len(history))
	for _, msg := range history {
		entries = append(entries, historyEntry{Role: msg.Sender, Text: msg.Text})
	}
	return entries
}
