package handler

import (
	"net/http"

	"github.com/xela07ax/agentdock/internal/console/service"
)

type LogHandler struct {
	service *service.ActivityService
}

func NewLogHandler(s *service.ActivityService) *LogHandler {
	return &LogHandler{service: s}
}

// List GET /logs: до 100 последних записей, новые первыми.
func (h *LogHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Recent(r.Context()))
}
