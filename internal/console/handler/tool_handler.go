package handler

import (
	"net/http"

	"github.com/xela07ax/agentdock/internal/console/service"
	"github.com/xela07ax/agentdock/internal/domain"
)

type ToolHandler struct {
	service *service.ToolService
}

func NewToolHandler(s *service.ToolService) *ToolHandler {
	return &ToolHandler{service: s}
}

// List GET /tools
func (h *ToolHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.List(r.Context()))
}

// Register POST /tools
func (h *ToolHandler) Register(w http.ResponseWriter, r *http.Request) {
	var tool domain.Tool
	if err := decodeJSON(w, r, &tool, "name", "endpoint"); err != nil {
		writeError(w, err)
		return
	}

	stored, err := h.service.Register(r.Context(), tool)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}
