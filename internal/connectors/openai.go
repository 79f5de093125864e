package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultBaseURL: OpenAI-совместимый endpoint Groq.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

// MaxResponseBytes ограничивает чтение тела ответа провайдера.
const MaxResponseBytes = 4 << 20

// Message: одна реплика диалога в формате OpenAI.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type ChatCompletionResponse struct {
	ID      string   `json:"id,omitempty"`
	Object  string   `json:"object,omitempty"`
	Model   string   `json:"model,omitempty"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

type Choice struct {
	Index        int           `json:"index"`
	Message      *ReplyMessage `json:"message"`
	FinishReason string        `json:"finish_reason,omitempty"`
}

// ReplyMessage: реплика ассистента в ответе. Content == nil, если поле
// отсутствует или пришло как null.
type ReplyMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionClient: контракт внешнего LLM-провайдера.
type ChatCompletionClient interface {
	// Configured сообщает, есть ли учетные данные для вызова.
	Configured() bool
	CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)
}

// OpenAIClient ходит в /chat/completions по JSON поверх HTTPS с bearer-токеном.
type OpenAIClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ ChatCompletionClient = (*OpenAIClient)(nil)

func NewOpenAIClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *OpenAIClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &OpenAIClient{
		endpoint: strings.TrimSuffix(baseURL, "/") + "/chat/completions",
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.Named("openai-client"),
	}
}

func (c *OpenAIClient) Configured() bool {
	return c.apiKey != ""
}

// CreateChatCompletion выполняет один вызов без повторов.
// Ошибки типизированы: *TransportError, *StatusError, *DecodeError.
func (c *OpenAIClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Debug("sending chat completion", zap.String("model", req.Model), zap.ByteString("body", body))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Cause: err}
	}
	defer resp.Body.Close()

	// Лишнее отрезается: обрезанный JSON дальше станет DecodeError
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
	if err != nil {
		return nil, &TransportError{Cause: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.Warn("provider error response",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	c.logger.Debug("chat completion received", zap.ByteString("body", respBody))

	var result ChatCompletionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &DecodeError{Body: string(respBody), Cause: err}
	}
	return &result, nil
}
