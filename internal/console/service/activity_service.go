package service

import (
	"context"

	"github.com/xela07ax/agentdock/internal/activity"
	"github.com/xela07ax/agentdock/internal/domain"
)

// ActivityService: чтение журнала. Пишет в журнал только релей.
type ActivityService struct {
	log *activity.Log
}

func NewActivityService(log *activity.Log) *ActivityService {
	return &ActivityService{log: log}
}

// Recent возвращает до 100 последних записей, новые первыми.
func (s *ActivityService) Recent(_ context.Context) []domain.LogEntry {
	return s.log.ListRecent()
}
