package connectors

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// MockProvider: офлайн-провайдер для локального запуска (provider.mode=mock).
// Отвечает детерминированно, имитируя задержку сети.
type MockProvider struct {
	MaxLatency time.Duration
}

var _ ChatCompletionClient = (*MockProvider)(nil)

func NewMockProvider(maxLatency time.Duration) *MockProvider {
	return &MockProvider{MaxLatency: maxLatency}
}

func (m *MockProvider) Configured() bool { return true }

func (m *MockProvider) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, &TransportError{Cause: err}
	}
	if m.MaxLatency > 0 {
		latency := time.Duration(rand.Int63n(int64(m.MaxLatency)))
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return nil, &TransportError{Cause: ctx.Err()}
		}
	}

	var prompt string
	for _, msg := range req.Messages {
		if msg.Role == "user" {
			prompt = msg.Content
		}
	}

	content := fmt.Sprintf("[mock] %s", prompt)
	return &ChatCompletionResponse{
		ID:     fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Object: "chat.completion",
		Model:  req.Model,
		Choices: []Choice{{
			Message:      &ReplyMessage{Role: "assistant", Content: &content},
			FinishReason: "stop",
		}},
	}, nil
}
