package service

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/xela07ax/agentdock/internal/domain"
	"github.com/xela07ax/agentdock/internal/registry"
	"go.uber.org/zap"
)

// ToolService: только регистрация и список, удаления инструментов нет.
type ToolService struct {
	notifier
	tools *registry.Tools
}

func NewToolService(tools *registry.Tools, events EventPublisher, size prometheus.Gauge, logger *zap.Logger) *ToolService {
	return &ToolService{
		notifier: newNotifier(events, size, logger.Named("tool-service")),
		tools:    tools,
	}
}

func (s *ToolService) List(_ context.Context) []domain.Tool {
	return s.tools.List()
}

func (s *ToolService) Register(ctx context.Context, tool domain.Tool) (domain.Tool, error) {
	stored, err := s.tools.Register(tool)
	if err != nil {
		s.logger.Info("tool registration rejected", zap.String("tool_id", tool.ID), zap.Error(err))
		return domain.Tool{}, err
	}
	s.track(s.tools.Len())
	s.logger.Info("tool registered",
		zap.String("tool_id", stored.ID),
		zap.String("name", stored.Name),
		zap.String("endpoint", stored.Endpoint))
	s.publish(ctx, EventToolRegistered, stored.ID)
	return stored, nil
}
