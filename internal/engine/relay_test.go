package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/agentdock/internal/activity"
	"github.com/xela07ax/agentdock/internal/connectors"
	"github.com/xela07ax/agentdock/internal/domain"
	"go.uber.org/zap"
)

var testSettings = RelaySettings{
	ProviderName: "Groq",
	Model:        "llama3-70b-8192",
	Temperature:  0.7,
	MaxTokens:    1024,
}

// fakeProvider считает вызовы и возвращает заданный ответ.
type fakeProvider struct {
	configured bool
	resp       *connectors.ChatCompletionResponse
	err        error
	panicMsg   string
	hook       func() // вызывается перед ответом

	calls   atomic.Int32
	mu      sync.Mutex
	lastReq *connectors.ChatCompletionRequest
}

func (f *fakeProvider) Configured() bool { return f.configured }

func (f *fakeProvider) CreateChatCompletion(_ context.Context, req *connectors.ChatCompletionRequest) (*connectors.ChatCompletionResponse, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.lastReq = req
	f.mu.Unlock()
	if f.hook != nil {
		f.hook()
	}
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.resp, f.err
}

func reply(content string) *connectors.ChatCompletionResponse {
	return &connectors.ChatCompletionResponse{
		Choices: []connectors.Choice{{Message: &connectors.ReplyMessage{Role: "assistant", Content: &content}}},
	}
}

type chatSink struct {
	mu      sync.Mutex
	records []domain.ChatRecord
}

func (s *chatSink) RecordChat(rec domain.ChatRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
}

func newTestRelay(p connectors.ChatCompletionClient) (*Relay, *activity.Log, *Metrics) {
	log := activity.NewLog()
	metrics := NewMetrics(nil)
	return NewRelay(p, log, testSettings, metrics, zap.NewNop()), log, metrics
}

func TestRelay_Success(t *testing.T) {
	p := &fakeProvider{configured: true, resp: reply("hello")}
	sink := &chatSink{}
	log := activity.NewLog()
	relay := NewRelay(p, log, testSettings, nil, zap.NewNop(), WithChatArchive(sink))

	resp, err := relay.Chat(context.Background(), domain.ChatRequest{AgentID: "a1", Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Response)

	// Запрос к провайдеру собран из фиксированных параметров
	require.NotNil(t, p.lastReq)
	assert.Equal(t, "llama3-70b-8192", p.lastReq.Model)
	assert.Equal(t, 0.7, p.lastReq.Temperature)
	assert.Equal(t, 1024, p.lastReq.MaxTokens)
	require.Len(t, p.lastReq.Messages, 2)
	assert.Equal(t, connectors.Message{Role: "system", Content: SystemPrompt}, p.lastReq.Messages[0])
	assert.Equal(t, connectors.Message{Role: "user", Content: "hi"}, p.lastReq.Messages[1])

	entries := log.ListRecent()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActionChat, entries[0].Action)
	require.NotNil(t, entries[0].AgentID)
	assert.Equal(t, "a1", *entries[0].AgentID)
	require.NotNil(t, entries[0].Output)
	assert.Equal(t, resp.Response, *entries[0].Output)
	assert.Nil(t, entries[0].ToolID)

	require.Len(t, sink.records, 1)
	assert.Equal(t, "hi", sink.records[0].Message)
	assert.Equal(t, "hello", sink.records[0].Response)
}

func TestRelay_Unconfigured(t *testing.T) {
	p := &fakeProvider{configured: false, resp: reply("never")}
	relay, log, metrics := newTestRelay(p)

	_, err := relay.Chat(context.Background(), domain.ChatRequest{AgentID: "a1", Message: "hi"})
	require.ErrorIs(t, err, domain.ErrUnconfigured)
	assert.Equal(t, "Groq API key not configured", err.Error())
	assert.Equal(t, http.StatusInternalServerError, domain.AsError(err).StatusCode())

	assert.Zero(t, p.calls.Load())
	assert.Zero(t, log.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ChatRequests.WithLabelValues(string(domain.KindUnconfigured))))
}

func TestRelay_FailuresLeaveLogUntouched(t *testing.T) {
	tests := []struct {
		name   string
		p      *fakeProvider
		kind   *domain.Error
		status int
		detail string
	}{
		{
			name:   "transport",
			p:      &fakeProvider{configured: true, err: &connectors.TransportError{Cause: errors.New("dial tcp: connection refused")}},
			kind:   domain.ErrUpstreamUnavailable,
			status: http.StatusInternalServerError,
			detail: "Error calling Groq API: dial tcp: connection refused",
		},
		{
			name:   "status",
			p:      &fakeProvider{configured: true, err: &connectors.StatusError{StatusCode: 429, Body: `{"error":"slow down"}`}},
			kind:   domain.ErrUpstreamError,
			status: http.StatusTooManyRequests,
			detail: `Groq API error: {"error":"slow down"}`,
		},
		{
			name:   "decode",
			p:      &fakeProvider{configured: true, err: &connectors.DecodeError{Body: "<html>", Cause: errors.New("invalid character")}},
			kind:   domain.ErrUpstreamProtocolError,
			status: http.StatusInternalServerError,
			detail: "Invalid response format from Groq API",
		},
		{
			name:   "empty choices",
			p:      &fakeProvider{configured: true, resp: &connectors.ChatCompletionResponse{Choices: []connectors.Choice{}}},
			kind:   domain.ErrUpstreamProtocolError,
			status: http.StatusInternalServerError,
			detail: "Invalid response format from Groq API",
		},
		{
			name:   "choice without message",
			p:      &fakeProvider{configured: true, resp: &connectors.ChatCompletionResponse{Choices: []connectors.Choice{{Index: 0}}}},
			kind:   domain.ErrUpstreamProtocolError,
			status: http.StatusInternalServerError,
			detail: "Invalid response format from Groq API",
		},
		{
			name:   "message without content",
			p:      &fakeProvider{configured: true, resp: &connectors.ChatCompletionResponse{Choices: []connectors.Choice{{Message: &connectors.ReplyMessage{Role: "assistant"}}}}},
			kind:   domain.ErrUpstreamProtocolError,
			status: http.StatusInternalServerError,
			detail: "Invalid response format from Groq API",
		},
		{
			name:   "unexpected",
			p:      &fakeProvider{configured: true, err: errors.New("boom")},
			kind:   domain.ErrInternal,
			status: http.StatusInternalServerError,
			detail: "Unexpected error: boom",
		},
		{
			name:   "panic",
			p:      &fakeProvider{configured: true, panicMsg: "nil map"},
			kind:   domain.ErrInternal,
			status: http.StatusInternalServerError,
			detail: "Unexpected error: panic: nil map",
		},
		{
			name:   "cancelled",
			p:      &fakeProvider{configured: true, err: fmt.Errorf("wrapped: %w", context.Canceled)},
			kind:   domain.ErrUpstreamUnavailable,
			status: http.StatusInternalServerError,
			detail: "Error calling Groq API: wrapped: context canceled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			relay, log, _ := newTestRelay(tt.p)

			resp, err := relay.Chat(context.Background(), domain.ChatRequest{AgentID: "a1", Message: "hi"})
			require.ErrorIs(t, err, tt.kind)
			assert.Empty(t, resp.Response)

			de := domain.AsError(err)
			assert.Equal(t, tt.status, de.StatusCode())
			assert.Equal(t, tt.detail, de.Detail)

			assert.Zero(t, log.Len())
			assert.Equal(t, int32(1), tt.p.calls.Load())
		})
	}
}

// Сценарии поверх настоящего HTTP-клиента и httptest-провайдера.
func TestRelay_ProviderScenarios(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantResp string
		wantCode int
		wantText string
	}{
		{name: "ok", status: 200, body: `{"choices":[{"message":{"content":"hello"}}]}`, wantResp: "hello"},
		{name: "rate limited", status: 429, body: `rate limit exceeded`, wantCode: 429, wantText: "rate limit exceeded"},
		{name: "empty choices", status: 200, body: `{"choices":[]}`, wantCode: 500, wantText: "Invalid response format"},
		{name: "missing choices", status: 200, body: `{"id":"x"}`, wantCode: 500, wantText: "Invalid response format"},
		{name: "null content", status: 200, body: `{"choices":[{"message":{"content":null}}]}`, wantCode: 500, wantText: "Invalid response format"},
		{name: "missing content", status: 200, body: `{"choices":[{"message":{}}]}`, wantCode: 500, wantText: "Invalid response format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			client := connectors.NewOpenAIClient(server.URL, "key", time.Second, zap.NewNop())
			relay, log, _ := newTestRelay(client)

			resp, err := relay.Chat(context.Background(), domain.ChatRequest{AgentID: "a1", Message: "hi"})
			assert.Equal(t, int32(1), hits.Load())

			if tt.wantResp != "" {
				require.NoError(t, err)
				assert.Equal(t, tt.wantResp, resp.Response)
				entries := log.ListRecent()
				require.Len(t, entries, 1)
				assert.Equal(t, "a1", *entries[0].AgentID)
				assert.Equal(t, "chat", entries[0].Action)
				assert.Equal(t, "hello", *entries[0].Output)
				return
			}

			require.Error(t, err)
			de := domain.AsError(err)
			assert.Equal(t, tt.wantCode, de.StatusCode())
			assert.Contains(t, de.Detail, tt.wantText)
			assert.Zero(t, log.Len())
		})
	}
}

func TestRelay_NoProviderCallWithoutKey(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	client := connectors.NewOpenAIClient(server.URL, "", time.Second, zap.NewNop())
	relay, log, _ := newTestRelay(client)

	_, err := relay.Chat(context.Background(), domain.ChatRequest{AgentID: "a1", Message: "hi"})
	require.ErrorIs(t, err, domain.ErrUnconfigured)
	assert.Zero(t, hits.Load())
	assert.Zero(t, log.Len())
}

func TestRelay_ConcurrentCalls(t *testing.T) {
	p := &fakeProvider{configured: true, resp: reply("pong")}
	relay, log, metrics := newTestRelay(p)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := relay.Chat(context.Background(), domain.ChatRequest{AgentID: fmt.Sprintf("a%d", i), Message: "ping"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, log.Len())
	assert.Equal(t, 20.0, testutil.ToFloat64(metrics.ChatRequests.WithLabelValues("success")))
}
