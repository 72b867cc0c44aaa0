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
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sniperthink/chatcore/model"
)

// ExtractionPoller periodically scans conversations with recent activity and
// runs lead extraction over them. It is an analytical side-channel: it takes
// no leases, respects no ordering, and a re-run over an already-covered
// window simply appends another record.
type ExtractionPoller struct {
	core      *Chatcore
	interval  time.Duration
	batchSize int
	stopCh    chan struct{}
	wg        sync.WaitGroup

	mu      sync.Mutex
	lastRun time.Time
}

// NewExtractionPoller creates a poller over the given core.
func NewExtractionPoller(core *Chatcore, interval time.Duration, batchSize int) *ExtractionPoller {
	return &ExtractionPoller{
		core:      core,
		interval:  interval,
		batchSize: batchSize,
		stopCh:    make(chan struct{}),
		lastRun:   time.Now().Add(-interval),
	}
}

// Start launches the polling loop in its own goroutine.
func (p *ExtractionPoller) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		logrus.Infof("Extraction poller started with interval: %v", p.interval)

		for {
			select {
			case <-ticker.C:
				p.runOnce()
			case <-p.stopCh:
				logrus.Info("Extraction poller stopping...")
				return
			}
		}
	}()
}

// Stop halts the loop and waits for an in-flight run to finish.
func (p *ExtractionPoller) Stop() {
	close(p.stopCh)
	p.wg.Wait()
	logrus.Info("Extraction poller stopped")
}

func (p *ExtractionPoller) runOnce() {
	ctx := context.Background()

	p.mu.Lock()
	since := p.lastRun
	runStart := time.Now()
	p.mu.Unlock()

	conversations, err := p.core.datasource.GetConversationsWithActivitySince(ctx, since, p.batchSize)
	if err != nil {
		logrus.Errorf("extraction poller: failed to fetch active conversations: %v", err)
		return
	}

	if len(conversations) == 0 {
		logrus.Debug("extraction poller: no active conversations")
		p.advance(runStart)
		return
	}

	logrus.Infof("extraction poller: extracting %d conversations", len(conversations))

	rewindTo := runStart
	for _, conversation := range conversations {
		if ok := p.extractConversation(ctx, &conversation); !ok {
			if conversation.LastMessageAt.Before(rewindTo) {
				rewindTo = conversation.LastMessageAt
			}
		}
	}

	// A failed conversation must land inside the next window even without new
	// activity, so the window only advances past the conversations that
	// succeeded. The activity query is exclusive, hence the millisecond step.
	if rewindTo.Before(runStart) {
		rewindTo = rewindTo.Add(-time.Millisecond)
	}
	p.advance(rewindTo)
}

func (p *ExtractionPoller) advance(runStart time.Time) {
	p.mu.Lock()
	p.lastRun = runStart
	p.mu.Unlock()
}

// extractConversation runs one extraction and reports whether the
// conversation is settled for this window. Failures return false so the
// poller retries them on the next interval.
func (p *ExtractionPoller) extractConversation(ctx context.Context, conversation *model.Conversation) bool {
	history, err := p.core.datasource.GetConversationHistory(ctx, conversation.ConversationID, historyWindow)
	if err != nil {
		logrus.Errorf("extraction poller: failed to load history for %s: %v", conversation.ConversationID, err)
		return false
	}
	if len(history) == 0 {
		return true
	}

	fields, err := p.core.extractor.Extract(ctx, history)
	if err != nil {
		logrus.Errorf("extraction poller: extraction failed for %s: %v", conversation.ConversationID, err)
		return false
	}

	record := &model.ExtractionRecord{
		ConversationID: conversation.ConversationID,
		Fields:         fields,
	}
	if _, err := p.core.datasource.RecordExtraction(ctx, record); err != nil {
		logrus.Errorf("extraction poller: failed to persist extraction for %s: %v", conversation.ConversationID, err)
		return false
	}
	return true
}
