package engine

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"github.com/xela07ax/agentdock/internal/connectors"
	"golang.org/x/time/rate"
)

// ReliabilitySettings: параметры защиты исходящих вызовов к провайдеру.
type ReliabilitySettings struct {
	Name        string
	RPS         float64 // <= 0: без ограничения
	Burst       int
	MaxFailures uint32 // подряд идущих транспортных отказов до размыкания
	Interval    time.Duration
	Timeout     time.Duration // через сколько CB попробует "закрыться"
}

// ReliabilityWrapper оборачивает провайдера лимитером и предохранителем.
// Повторов нет: каждый вызов уходит к провайдеру не более одного раза.
type ReliabilityWrapper struct {
	next    connectors.ChatCompletionClient
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

var _ connectors.ChatCompletionClient = (*ReliabilityWrapper)(nil)

func NewReliabilityWrapper(next connectors.ChatCompletionClient, s ReliabilitySettings, metrics *Metrics) *ReliabilityWrapper {
	if s.MaxFailures == 0 {
		s.MaxFailures = 5
	}
	if s.Timeout == 0 {
		s.Timeout = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.MaxFailures
		},
		// Статус-ошибки, битые ответы и уход вызывающего: не повод размыкать цепь
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var gone *callerGoneError
			if errors.As(err, &gone) {
				return true
			}
			var tErr *connectors.TransportError
			return !errors.As(err, &tErr)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if metrics != nil {
				metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})

	limit := rate.Inf
	if s.RPS > 0 {
		limit = rate.Limit(s.RPS)
	}
	burst := s.Burst
	if burst <= 0 {
		burst = 1
	}

	return &ReliabilityWrapper{
		next:    next,
		cb:      cb,
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (w *ReliabilityWrapper) Configured() bool {
	return w.next.Configured()
}

func (w *ReliabilityWrapper) CreateChatCompletion(ctx context.Context, req *connectors.ChatCompletionRequest) (*connectors.ChatCompletionResponse, error) {
	// 1. Rate Limiter
	if err := w.limiter.Wait(ctx); err != nil {
		return nil, &connectors.TransportError{Cause: err}
	}

	// 2. Circuit Breaker
	result, err := w.cb.Execute(func() (interface{}, error) {
		resp, err := w.next.CreateChatCompletion(ctx, req)
		if err != nil && ctx.Err() != nil {
			// Отменен или истек контекст вызывающего, провайдер тут ни при чем
			return nil, &callerGoneError{err: err}
		}
		return resp, err
	})
	if err != nil {
		var gone *callerGoneError
		if errors.As(err, &gone) {
			return nil, gone.err
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &connectors.TransportError{Cause: err}
		}
		return nil, err
	}
	return result.(*connectors.ChatCompletionResponse), nil
}

// callerGoneError помечает отказ, вызванный отменой контекста вызывающего.
// gobreaker v1 не умеет исключать вызов из счета, поэтому такой исход засчитывается как успех.
type callerGoneError struct {
	err error
}

func (e *callerGoneError) Error() string { return e.err.Error() }

func (e *callerGoneError) Unwrap() error { return e.err }

// State: текущее состояние предохранителя.
func (w *ReliabilityWrapper) State() gobreaker.State {
	return w.cb.State()
}
