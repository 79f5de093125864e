package service

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/xela07ax/agentdock/internal/domain"
	"github.com/xela07ax/agentdock/internal/registry"
	"go.uber.org/zap"
)

// notifier: общая часть сервисов реестров: публикация события и учет размера.
type notifier struct {
	events EventPublisher
	size   prometheus.Gauge
	logger *zap.Logger
}

// publish сигналит об изменении. Ошибка доставки операцию не отменяет.
func (n *notifier) publish(ctx context.Context, eventType, id string) {
	channel := channelFor(eventType)
	if err := n.events.Publish(ctx, channel, newEvent(eventType, id)); err != nil {
		n.logger.Warn("registry event delivery failed",
			zap.String("channel", channel),
			zap.String("event", eventType),
			zap.String("id", id),
			zap.Error(err))
	}
}

func (n *notifier) track(size int) {
	if n.size != nil {
		n.size.Set(float64(size))
	}
}

func newNotifier(events EventPublisher, size prometheus.Gauge, logger *zap.Logger) notifier {
	if events == nil {
		events = NopPublisher{}
	}
	return notifier{events: events, size: size, logger: logger}
}

type AgentService struct {
	notifier
	agents *registry.Agents
}

// NewAgentService. events и size могут быть nil.
func NewAgentService(agents *registry.Agents, events EventPublisher, size prometheus.Gauge, logger *zap.Logger) *AgentService {
	return &AgentService{
		notifier: newNotifier(events, size, logger.Named("agent-service")),
		agents:   agents,
	}
}

func (s *AgentService) List(_ context.Context) []domain.Agent {
	return s.agents.List()
}

func (s *AgentService) Register(ctx context.Context, agent domain.Agent) (domain.Agent, error) {
	stored, err := s.agents.Register(agent)
	if err != nil {
		s.logger.Info("agent registration rejected", zap.String("agent_id", agent.ID), zap.Error(err))
		return domain.Agent{}, err
	}
	s.track(s.agents.Len())
	s.logger.Info("agent registered", zap.String("agent_id", stored.ID), zap.String("code", stored.Code))
	s.publish(ctx, EventAgentRegistered, stored.ID)
	return stored, nil
}

// Deregister удаляет агента. Записи журнала с его id остаются как есть.
func (s *AgentService) Deregister(ctx context.Context, id string) error {
	if err := s.agents.Deregister(id); err != nil {
		return err
	}
	s.track(s.agents.Len())
	s.logger.Info("agent deregistered", zap.String("agent_id", id))
	s.publish(ctx, EventAgentDeregistered, id)
	return nil
}
