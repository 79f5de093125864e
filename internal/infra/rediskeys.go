package infra

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "agentdock"
)

// Каналы Pub/Sub (события реестров)
const (
	RedisChanAgents = RedisNamespace + ":registry:agents"
	RedisChanTools  = RedisNamespace + ":registry:tools"
)
