package connectors

import (
	"time"

	"go.uber.org/zap"
)

const ModeMock = "mock"

// NewChatCompletionClient выбирает реализацию по режиму: mock или живой провайдер.
func NewChatCompletionClient(mode, baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) ChatCompletionClient {
	if mode == ModeMock {
		logger.Info("provider.mode=mock, using mock LLM provider")
		return NewMockProvider(300 * time.Millisecond)
	}
	return NewOpenAIClient(baseURL, apiKey, timeout, logger)
}
