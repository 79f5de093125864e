package domain

// ChatRequest: входящий ход диалога. Пустые строки допустимы,
// обязательность полей проверяется при разборе тела запроса.
type ChatRequest struct {
	AgentID string `json:"agent_id"`
	Message string `json:"message"`
}

// ChatResponse: ответ ассистента, возвращаемый вызывающему.
type ChatResponse struct {
	Response string `json:"response"`
}
