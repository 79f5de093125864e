package activity

/*
Archiver: асинхронное зеркало журнала и чатов в SQL-хранилище (таблицы logs и chat_messages).

- Неблокирующая запись: Record/RecordChat только кладут элемент в буферизованный канал,
  горячий путь релея не ждет базу.
- Пакетная запись: накопление до batchSize элементов или сброс по тикеру.
- Drain при остановке: Stop закрывает канал, воркер вычитывает остаток и делает финальный flush.
- Источник правды для чтения: кольцо в памяти; архив только пишется.
*/

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/xela07ax/agentdock/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultBufferSize    = 10000
	defaultFlushInterval = 500 * time.Millisecond
	batchSize            = 100
)

// Storage определяет, куда физически уходят записи.
type Storage interface {
	WriteLogs(ctx context.Context, entries []domain.LogEntry) error
	WriteChats(ctx context.Context, records []domain.ChatRecord) error
}

type item struct {
	log  *domain.LogEntry
	chat *domain.ChatRecord
}

type Archiver struct {
	ch            chan item
	repo          Storage
	logger        *zap.Logger
	flushInterval time.Duration
	fill          prometheus.Gauge

	wg     sync.WaitGroup
	mu     sync.RWMutex // защищает closed и закрытие ch от гонки с отправкой
	closed bool
}

type ArchiverOption func(*Archiver)

func WithBufferSize(n int) ArchiverOption {
	return func(a *Archiver) {
		if n > 0 {
			a.ch = make(chan item, n)
		}
	}
}

func WithFlushInterval(d time.Duration) ArchiverOption {
	return func(a *Archiver) {
		if d > 0 {
			a.flushInterval = d
		}
	}
}

// WithBufferGauge подключает gauge заполненности буфера (backpressure).
func WithBufferGauge(g prometheus.Gauge) ArchiverOption {
	return func(a *Archiver) { a.fill = g }
}

func NewArchiver(repo Storage, logger *zap.Logger, opts ...ArchiverOption) *Archiver {
	a := &Archiver{
		ch:            make(chan item, defaultBufferSize),
		repo:          repo,
		logger:        logger.Named("archiver"),
		flushInterval: defaultFlushInterval,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Archiver) Start() {
	a.wg.Add(1)
	go a.worker()
}

// Stop запирает вход и ждет, пока воркер допишет остаток.
func (a *Archiver) Stop() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.ch)
	a.mu.Unlock()

	a.logger.Info("stopping archiver: draining buffer...")
	a.wg.Wait()
	a.logger.Info("archiver stopped gracefully")
}

// Record реализует Sink.
func (a *Archiver) Record(entry domain.LogEntry) {
	a.enqueue(item{log: &entry})
}

func (a *Archiver) RecordChat(rec domain.ChatRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	a.enqueue(item{chat: &rec})
}

func (a *Archiver) enqueue(it item) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		a.logger.Warn("archive item dropped: archiver is stopping")
		return
	}

	// Load shedding: при переполнении не блокируем вызывающего
	select {
	case a.ch <- it:
		if a.fill != nil {
			a.fill.Set(float64(len(a.ch)))
		}
	default:
		a.logger.Error("archive_buffer_overflow")
	}
}

func (a *Archiver) worker() {
	defer a.wg.Done()

	logs := make([]domain.LogEntry, 0, batchSize)
	chats := make([]domain.ChatRecord, 0, batchSize)
	ticker := time.NewTicker(a.flushInterval)
	defer ticker.Stop()

	flush := func() {
		// Background: контекст запроса к этому моменту уже может быть отменен
		ctx := context.Background()
		if len(logs) > 0 {
			if err := a.repo.WriteLogs(ctx, logs); err != nil {
				a.logger.Error("log archive flush failed", zap.Int("count", len(logs)), zap.Error(err))
			}
			logs = logs[:0]
		}
		if len(chats) > 0 {
			if err := a.repo.WriteChats(ctx, chats); err != nil {
				a.logger.Error("chat archive flush failed", zap.Int("count", len(chats)), zap.Error(err))
			}
			chats = chats[:0]
		}
		if a.fill != nil {
			a.fill.Set(float64(len(a.ch)))
		}
	}

	for {
		select {
		case it, ok := <-a.ch:
			if !ok {
				flush()
				a.logger.Info("archive worker finished")
				return
			}
			if it.log != nil {
				logs = append(logs, *it.log)
			}
			if it.chat != nil {
				chats = append(chats, *it.chat)
			}
			if len(logs)+len(chats) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
