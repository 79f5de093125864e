package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/agentdock/internal/domain"
	"github.com/xela07ax/agentdock/internal/infra"
)

// Типы событий реестра
const (
	EventAgentRegistered   = "agent.registered"
	EventAgentDeregistered = "agent.deregistered"
	EventToolRegistered    = "tool.registered"
)

// RegistryEvent: полезная нагрузка сообщения в канале реестра.
type RegistryEvent struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
}

func newEvent(typ, id string) RegistryEvent {
	return RegistryEvent{Type: typ, ID: id, Timestamp: domain.FormatTimestamp(time.Now())}
}

// EventPublisher транслирует изменения реестров подписчикам.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, event RegistryEvent) error
}

// RedisPublisher публикует события через Redis Pub/Sub.
type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Publish(ctx context.Context, channel string, event RegistryEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, channel, payload).Err()
}

// NopPublisher используется, когда redis.addr не задан.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, RegistryEvent) error { return nil }

var (
	_ EventPublisher = (*RedisPublisher)(nil)
	_ EventPublisher = NopPublisher{}
)

// channelFor сопоставляет тип события с каналом.
func channelFor(eventType string) string {
	if eventType == EventToolRegistered {
		return infra.RedisChanTools
	}
	return infra.RedisChanAgents
}
