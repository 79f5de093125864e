package handler

import (
	"context"
	"net/http"

	"github.com/xela07ax/agentdock/internal/domain"
)

// ChatRelay: то, что нужно хендлеру от engine.Relay.
type ChatRelay interface {
	Chat(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error)
}

type ChatHandler struct {
	relay ChatRelay
}

func NewChatHandler(relay ChatRelay) *ChatHandler {
	return &ChatHandler{relay: relay}
}

// Chat POST /chat
// Статус ошибки провайдера (например 429) возвращается вызывающему как есть.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req domain.ChatRequest
	if err := decodeJSON(w, r, &req, "agent_id", "message"); err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.relay.Chat(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
