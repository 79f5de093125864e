// Package registry хранит определения агентов и инструментов в памяти процесса.
package registry

import (
	"sync"

	"github.com/google/uuid"
	"github.com/xela07ax/agentdock/internal/domain"
)

// Entity: то, что можно положить в реестр. Clone должен копировать вглубь
// все ссылочные поля: реестр хранит и отдает только клоны.
type Entity[T any] interface {
	Key() string
	WithKey(id string) T
	Clone() T
	Validate() error
}

// Registry: потокобезопасная мапа id -> сущность с сохранением порядка вставки.
// Ни мапа, ни сами записи наружу не отдаются: List, Get и Register
// возвращают глубокие копии, изменение которых реестр не видит.
type Registry[T Entity[T]] struct {
	mu    sync.RWMutex
	items map[string]T
	order []string

	kind  string // "Agent", "Tool": для текстов ошибок
	newID func() string
}

// Option настраивает Registry.
type Option[T Entity[T]] func(*Registry[T])

// WithIDGenerator подменяет генератор идентификаторов (по умолчанию UUIDv4).
func WithIDGenerator[T Entity[T]](gen func() string) Option[T] {
	return func(r *Registry[T]) { r.newID = gen }
}

func New[T Entity[T]](kind string, opts ...Option[T]) *Registry[T] {
	r := &Registry[T]{
		items: make(map[string]T),
		kind:  kind,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// List возвращает все записи в порядке регистрации. Никогда не nil.
func (r *Registry[T]) List() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.items[id].Clone())
	}
	return out
}

// Get возвращает запись по id.
func (r *Registry[T]) Get(id string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return item, false
	}
	return item.Clone(), true
}

func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Register сохраняет item. Пустой id заменяется свежим UUID.
// Существующая запись с тем же id не перезаписывается: возвращается Conflict.
func (r *Registry[T]) Register(item T) (T, error) {
	var zero T
	if err := item.Validate(); err != nil {
		return zero, err
	}
	if item.Key() == "" {
		item = item.WithKey(r.newID())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := item.Key()
	if _, exists := r.items[id]; exists {
		return zero, domain.Conflictf("%s already exists", r.kind)
	}
	r.items[id] = item.Clone()
	r.order = append(r.order, id)
	return item.Clone(), nil
}

// Deregister удаляет запись; неизвестный id: NotFound, состояние не меняется.
func (r *Registry[T]) Deregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[id]; !exists {
		return domain.NotFoundf("%s not found", r.kind)
	}
	delete(r.items, id)
	for i, key := range r.order {
		if key == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Agents: реестр агентов.
type Agents = Registry[domain.Agent]

// Tools: реестр инструментов. Снятия с регистрации для инструментов нет,
// сервисный слой его не вызывает.
type Tools = Registry[domain.Tool]

func NewAgents() *Agents { return New[domain.Agent]("Agent") }

func NewTools() *Tools { return New[domain.Tool]("Tool") }
