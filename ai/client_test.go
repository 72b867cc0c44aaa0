package ai

import (
	"context"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"

	"github.com/sniperthink/chatcore/config"
	"github.com/sniperthink/chatcore/model"
)

func TestReplyClient_Generate(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", "http://ai.local/generate",
		httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{
			"reply": "We offer three plans starting at $29/month.",
		}))

	client := NewReplyClient(&config.AIServiceConfig{
		Url:            "http://ai.local/generate",
		TimeoutSeconds: 5,
	})

	history := []model.Message{
		{Sender: model.SenderUser, Text: "Hi", SequenceNo: 1},
		{Sender: model.SenderAgent, Text: "Hello! How can I help?", SequenceNo: 2},
	}
	reply, err := client.Generate(context.Background(), history, "What are your prices?")
	assert.NoError(t, err)
	assert.Equal(t, "We offer three plans starting at $29/month.", reply)
}

func TestReplyClient_GenerateServiceError(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", "http://ai.local/generate",
		httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{
			"error": "model overloaded",
		}))

	client := NewReplyClient(&config.AIServiceConfig{
		Url:            "http://ai.local/generate",
		TimeoutSeconds: 5,
	})

	_, err := client.Generate(context.Background(), nil, "Hello")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestReplyClient_RejectsWithoutURL(t *testing.T) {
	client := NewReplyClient(&config.AIServiceConfig{TimeoutSeconds: 5})

	_, err := client.Generate(context.Background(), nil, "Hello")
	assert.Error(t, err)
}

func TestExtractionClient_Extract(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", "http://ai.local/extract",
		httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{
			"fields": map[string]interface{}{
				"intent":  "pricing",
				"company": "Acme Inc",
			},
		}))

	client := NewExtractionClient(&config.AIServiceConfig{
		Url:            "http://ai.local/extract",
		TimeoutSeconds: 5,
	})

	fields, err := client.Extract(context.Background(), []model.Message{
		{Sender: model.SenderUser, Text: "I'm from Acme Inc, what are your prices?"},
	})
	assert.NoError(t, err)
	assert.Equal(t, "pricing", fields["intent"])
	assert.Equal(t, "Acme Inc", fields["company"])
}
