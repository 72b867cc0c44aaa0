package ai

import (
	"context"

	"github.com/sniperthink/chatcore/model"
)

// Generator produces an agent reply from conversation history plus the
// just-arrived user message. It is an opaque long-latency capability; the
// core treats any failure as "processing failed, do not persist".
type Generator interface {
	Generate(ctx context.Context, history []model.Message, userText string) (string, error)
}

// Extractor pulls structured lead fields out of a conversation. It runs off
// the ordering-critical path on a fixed interval.
type Extractor interface {
	Extract(ctx context.Context, history []model.Message) (map[string]interface{}, error)
}
