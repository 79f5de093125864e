package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/agentdock/internal/console/service"
	"github.com/xela07ax/agentdock/internal/domain"
)

type AgentHandler struct {
	service *service.AgentService
}

func NewAgentHandler(s *service.AgentService) *AgentHandler {
	return &AgentHandler{service: s}
}

// List GET /agents
func (h *AgentHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.List(r.Context()))
}

// Register POST /agents: 400 на занятый id, 422 на невалидное тело или отсутствующий code.
func (h *AgentHandler) Register(w http.ResponseWriter, r *http.Request) {
	var agent domain.Agent
	if err := decodeJSON(w, r, &agent, "code"); err != nil {
		writeError(w, err)
		return
	}

	stored, err := h.service.Register(r.Context(), agent)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

// Deregister DELETE /agents/{agentID}
func (h *AgentHandler) Deregister(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	if err := h.service.Deregister(r.Context(), agentID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Agent deregistered"})
}
