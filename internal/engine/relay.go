package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xela07ax/agentdock/internal/connectors"
	"github.com/xela07ax/agentdock/internal/domain"
	"go.uber.org/zap"
)

// SystemPrompt: фиксированная системная инструкция для каждого вызова.
const SystemPrompt = "You are a helpful AI assistant."

// ActivityAppender: журнал, в который релей пишет после успешного обмена.
type ActivityAppender interface {
	Append(entry domain.LogEntry)
}

// ChatArchiver получает копию успешного обмена для таблицы chat_messages.
type ChatArchiver interface {
	RecordChat(rec domain.ChatRecord)
}

// RelaySettings: параметры генерации. Вызывающий на них не влияет.
type RelaySettings struct {
	ProviderName string // для текстов ошибок: "Groq API error: ..."
	Model        string
	Temperature  float64
	MaxTokens    int
}

// Relay пересылает ход диалога провайдеру и возвращает ответ ассистента.
// Блокировки журнала на время сетевого вызова не берутся: запись идет только после ответа.
type Relay struct {
	provider connectors.ChatCompletionClient
	activity ActivityAppender
	archive  ChatArchiver
	settings RelaySettings
	metrics  *Metrics
	logger   *zap.Logger
}

type RelayOption func(*Relay)

// WithChatArchive подключает архив обменов.
func WithChatArchive(a ChatArchiver) RelayOption {
	return func(r *Relay) { r.archive = a }
}

func NewRelay(provider connectors.ChatCompletionClient, activity ActivityAppender, settings RelaySettings, metrics *Metrics, logger *zap.Logger, opts ...RelayOption) *Relay {
	if settings.ProviderName == "" {
		settings.ProviderName = "Groq"
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	r := &Relay{
		provider: provider,
		activity: activity,
		settings: settings,
		metrics:  metrics,
		logger:   logger.Named("relay"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Chat выполняет один линейный проход без повторов:
// проверка конфигурации -> вызов провайдера -> разбор -> запись в журнал -> ответ.
// Любой отказ возвращается как *domain.Error и не оставляет записей в журнале.
func (r *Relay) Chat(ctx context.Context, req domain.ChatRequest) (resp domain.ChatResponse, err error) {
	start := time.Now()
	traceID := extractTraceID(ctx)

	defer func() {
		if p := recover(); p != nil {
			err = domain.Internal(fmt.Errorf("panic: %v", p))
		}
		outcome := "success"
		if err != nil {
			kind := string(domain.AsError(err).Kind)
			outcome = kind
			r.metrics.ErrorTotal.WithLabelValues(kind).Inc()
			r.logger.Error("chat relay failed",
				zap.String("trace_id", traceID),
				zap.String("agent_id", req.AgentID),
				zap.String("kind", kind),
				zap.Error(err))
		}
		r.metrics.ChatRequests.WithLabelValues(outcome).Inc()
		r.metrics.ChatDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}()

	// 1. Precondition: без ключа в сеть не ходим
	if !r.provider.Configured() {
		return domain.ChatResponse{}, domain.Unconfigured(fmt.Sprintf("%s API key not configured", r.settings.ProviderName))
	}

	// 2. Dispatch
	out, err := r.provider.CreateChatCompletion(ctx, &connectors.ChatCompletionRequest{
		Model: r.settings.Model,
		Messages: []connectors.Message{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: req.Message},
		},
		Temperature: r.settings.Temperature,
		MaxTokens:   r.settings.MaxTokens,
	})
	if err != nil {
		return domain.ChatResponse{}, r.classify(err)
	}

	// 3. Extraction: частичный ответ не вытаскиваем
	// content обязателен: отсутствие и null одинаково считаются битым ответом
	if out == nil || len(out.Choices) == 0 || out.Choices[0].Message == nil || out.Choices[0].Message.Content == nil {
		return domain.ChatResponse{}, domain.UpstreamProtocol(r.invalidFormat(), nil)
	}
	reply := *out.Choices[0].Message.Content

	// 4. Side effect: только после успешного разбора
	r.activity.Append(domain.NewLogEntry(req.AgentID, domain.ActionChat, reply))
	if r.archive != nil {
		r.archive.RecordChat(domain.ChatRecord{
			AgentID:   req.AgentID,
			Message:   req.Message,
			Response:  reply,
			Timestamp: time.Now().UTC(),
		})
	}

	r.logger.Info("chat relayed",
		zap.String("trace_id", traceID),
		zap.String("agent_id", req.AgentID),
		zap.Duration("duration", time.Since(start)))

	return domain.ChatResponse{Response: reply}, nil
}

// classify переводит ошибки коннектора в таксономию домена.
func (r *Relay) classify(err error) error {
	var (
		statusErr    *connectors.StatusError
		decodeErr    *connectors.DecodeError
		transportErr *connectors.TransportError
	)
	switch {
	case errors.As(err, &statusErr):
		return domain.UpstreamStatus(statusErr.StatusCode,
			fmt.Sprintf("%s API error: %s", r.settings.ProviderName, statusErr.Body))
	case errors.As(err, &decodeErr):
		return domain.UpstreamProtocol(r.invalidFormat(), err)
	case errors.As(err, &transportErr):
		return domain.UpstreamUnavailable(
			fmt.Sprintf("Error calling %s API: %v", r.settings.ProviderName, transportErr.Cause), err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domain.UpstreamUnavailable(
			fmt.Sprintf("Error calling %s API: %v", r.settings.ProviderName, err), err)
	default:
		return domain.Internal(err)
	}
}

func (r *Relay) invalidFormat() string {
	return fmt.Sprintf("Invalid response format from %s API", r.settings.ProviderName)
}
