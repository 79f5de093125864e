package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/agentdock/internal/activity"
	"github.com/xela07ax/agentdock/internal/domain"
	"github.com/xela07ax/agentdock/internal/infra"
	"github.com/xela07ax/agentdock/internal/registry"
	"go.uber.org/zap"
)

type published struct {
	channel string
	event   RegistryEvent
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, channel string, event RegistryEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, published{channel: channel, event: event})
	return f.err
}

func newGauge() prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_registry_size"})
}

func TestAgentService_RegisterPublishesEvent(t *testing.T) {
	pub := &fakePublisher{}
	size := newGauge()
	svc := NewAgentService(registry.NewAgents(), pub, size, zap.NewNop())

	agent, err := svc.Register(context.Background(), domain.Agent{Code: "print(1)"})
	require.NoError(t, err)
	assert.NotEmpty(t, agent.ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(size))

	require.Len(t, pub.events, 1)
	assert.Equal(t, infra.RedisChanAgents, pub.events[0].channel)
	assert.Equal(t, EventAgentRegistered, pub.events[0].event.Type)
	assert.Equal(t, agent.ID, pub.events[0].event.ID)
	_, err = time.Parse(domain.TimestampLayout, pub.events[0].event.Timestamp)
	assert.NoError(t, err)

	assert.Equal(t, []domain.Agent{agent}, svc.List(context.Background()))
}

func TestAgentService_ConflictPublishesNothing(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewAgentService(registry.NewAgents(), pub, nil, zap.NewNop())

	_, err := svc.Register(context.Background(), domain.Agent{ID: "a1", Code: "x"})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), domain.Agent{ID: "a1", Code: "y"})
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, "Agent already exists", err.Error())
	assert.Len(t, pub.events, 1)
}

func TestAgentService_Deregister(t *testing.T) {
	pub := &fakePublisher{}
	size := newGauge()
	svc := NewAgentService(registry.NewAgents(), pub, size, zap.NewNop())

	_, err := svc.Register(context.Background(), domain.Agent{ID: "a1", Code: "x"})
	require.NoError(t, err)
	require.NoError(t, svc.Deregister(context.Background(), "a1"))

	assert.Empty(t, svc.List(context.Background()))
	assert.Equal(t, 0.0, testutil.ToFloat64(size))
	require.Len(t, pub.events, 2)
	assert.Equal(t, EventAgentDeregistered, pub.events[1].event.Type)

	err = svc.Deregister(context.Background(), "a1")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "Agent not found", err.Error())
	assert.Len(t, pub.events, 2)
}

func TestAgentService_PublishFailureDoesNotFail(t *testing.T) {
	pub := &fakePublisher{err: errors.New("redis down")}
	svc := NewAgentService(registry.NewAgents(), pub, nil, zap.NewNop())

	_, err := svc.Register(context.Background(), domain.Agent{Code: "x"})
	require.NoError(t, err)
	assert.Len(t, svc.List(context.Background()), 1)
}

func TestAgentService_NilPublisher(t *testing.T) {
	svc := NewAgentService(registry.NewAgents(), nil, nil, zap.NewNop())
	_, err := svc.Register(context.Background(), domain.Agent{Code: "x"})
	require.NoError(t, err)
}

func TestToolService_Register(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewToolService(registry.NewTools(), pub, nil, zap.NewNop())

	tool, err := svc.Register(context.Background(), domain.Tool{Name: "search", Endpoint: "http://search.local"})
	require.NoError(t, err)
	assert.NotEmpty(t, tool.ID)

	require.Len(t, pub.events, 1)
	assert.Equal(t, infra.RedisChanTools, pub.events[0].channel)
	assert.Equal(t, EventToolRegistered, pub.events[0].event.Type)

	_, err = svc.Register(context.Background(), domain.Tool{Name: "no-endpoint"})
	require.ErrorIs(t, err, domain.ErrInvalid)
	assert.Len(t, svc.List(context.Background()), 1)
}

func TestActivityService(t *testing.T) {
	log := activity.NewLog()
	svc := NewActivityService(log)

	assert.Empty(t, svc.Recent(context.Background()))

	log.Append(domain.NewLogEntry("a1", domain.ActionChat, "ok"))
	entries := svc.Recent(context.Background())
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActionChat, entries[0].Action)
}

func TestRegistryEvent_JSON(t *testing.T) {
	raw, err := json.Marshal(RegistryEvent{Type: EventToolRegistered, ID: "t1", Timestamp: "2024-01-01T00:00:00.000000Z"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"tool.registered","id":"t1","timestamp":"2024-01-01T00:00:00.000000Z"}`, string(raw))
}

func TestRedisPublisher_Unreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	err := NewRedisPublisher(rdb).Publish(context.Background(), infra.RedisChanAgents, newEvent(EventAgentRegistered, "a1"))
	assert.Error(t, err)

	// Через сервис отказ Redis не виден вызывающему
	svc := NewAgentService(registry.NewAgents(), NewRedisPublisher(rdb), nil, zap.NewNop())
	_, err = svc.Register(context.Background(), domain.Agent{Code: "x"})
	assert.NoError(t, err)
}
