// Package activity реализует журнал активности: ограниченное кольцо записей
// в памяти с чтением от новых к старым и опциональный асинхронный архиватор.
package activity

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/xela07ax/agentdock/internal/domain"
)

const (
	// RecentLimit: сколько записей максимум отдает ListRecent.
	RecentLimit = 100
	// DefaultRetention: размер кольца по умолчанию.
	DefaultRetention = 1000
)

var now = time.Now

// Sink получает копию каждой добавленной записи (например, Archiver).
type Sink interface {
	Record(entry domain.LogEntry)
}

// Log: append-only журнал. Записи не изменяются и не удаляются по одной;
// при переполнении кольца самые старые выпадают в порядке добавления.
type Log struct {
	mu    sync.RWMutex
	buf   []domain.LogEntry
	start int
	size  int

	sink     Sink
	appended prometheus.Counter
}

type Option func(*Log)

// WithRetention задает размер кольца. Значения меньше RecentLimit поднимаются до RecentLimit.
func WithRetention(n int) Option {
	return func(l *Log) {
		if n < RecentLimit {
			n = RecentLimit
		}
		l.buf = make([]domain.LogEntry, n)
	}
}

func WithSink(s Sink) Option {
	return func(l *Log) { l.sink = s }
}

// WithCounter подключает счетчик добавленных записей.
func WithCounter(c prometheus.Counter) Option {
	return func(l *Log) { l.appended = c }
}

func NewLog(opts ...Option) *Log {
	l := &Log{buf: make([]domain.LogEntry, DefaultRetention)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append добавляет запись в конец журнала. Пустой Timestamp проставляется текущим временем.
func (l *Log) Append(entry domain.LogEntry) {
	if entry.Timestamp == "" {
		entry.Timestamp = domain.FormatTimestamp(now())
	}

	l.mu.Lock()
	capacity := len(l.buf)
	if l.size < capacity {
		l.buf[(l.start+l.size)%capacity] = entry
		l.size++
	} else {
		l.buf[l.start] = entry
		l.start = (l.start + 1) % capacity
	}
	l.mu.Unlock()

	// Sink и метрики вызываются уже без блокировки
	if l.appended != nil {
		l.appended.Inc()
	}
	if l.sink != nil {
		l.sink.Record(entry)
	}
}

// ListRecent возвращает не более RecentLimit последних записей, самые свежие первыми.
func (l *Log) ListRecent() []domain.LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := l.size
	if n > RecentLimit {
		n = RecentLimit
	}
	capacity := len(l.buf)
	out := make([]domain.LogEntry, n)
	for i := 0; i < n; i++ {
		out[i] = l.buf[(l.start+l.size-1-i)%capacity]
	}
	return out
}

// Len: сколько записей сейчас держит кольцо.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}
