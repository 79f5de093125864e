package domain

import "time"

// ActionChat пишется релеем после каждого успешного обмена с провайдером.
const ActionChat = "chat"

// TimestampLayout: ISO-8601 формат для LogEntry.Timestamp.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// LogEntry: неизменяемая запись журнала активности.
// AgentID и ToolID: мягкие ссылки: с реестрами они не сверяются.
type LogEntry struct {
	Timestamp string  `json:"timestamp"`
	AgentID   *string `json:"agent_id"`
	ToolID    *string `json:"tool_id"`
	Action    string  `json:"action"`
	Output    *string `json:"output"`
}

// NewLogEntry создает запись с текущим временем (UTC).
func NewLogEntry(agentID, action, output string) LogEntry {
	return LogEntry{
		Timestamp: FormatTimestamp(time.Now()),
		AgentID:   &agentID,
		Action:    action,
		Output:    &output,
	}
}

// FormatTimestamp приводит t к UTC и форматирует по TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ChatRecord соответствует строке архивной таблицы chat_messages.
type ChatRecord struct {
	AgentID   string
	Message   string
	Response  string
	Timestamp time.Time
}
