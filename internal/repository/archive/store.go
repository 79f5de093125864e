// Package archive: SQL-зеркало журнала активности и истории чатов.
// Поддерживает PostgreSQL (pgx) и SQLite (modernc) через database/sql.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres
	_ "modernc.org/sqlite"             // Драйвер SQLite (pure Go)

	"github.com/xela07ax/agentdock/internal/domain"
)

// Dialect различает синтаксис плейсхолдеров и DDL.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// ParseDialect принимает имя драйвера из конфига.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "pgx":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("archive: unsupported driver %q", driver)
	}
}

func (d Dialect) driverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

func (d Dialect) placeholder(n int) string {
	if d == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open открывает пул соединений. Доступность проверяется отдельно через Ping.
// minConns: сколько простаивающих соединений держать открытыми.
func Open(driver, dsn string, maxConns, minConns int) (*Store, error) {
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", dialect, err)
	}
	if maxConns <= 0 {
		maxConns = 15
	}
	if dialect == DialectSQLite {
		// SQLite не любит параллельных писателей
		maxConns = 1
	}
	if minConns <= 0 || minConns > maxConns {
		minConns = maxConns
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(minConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &Store{db: db, dialect: dialect}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate создает таблицы logs и chat_messages, если их еще нет.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("archive: migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) schema() []string {
	pk := "INTEGER PRIMARY KEY AUTOINCREMENT"
	ts := "TIMESTAMP"
	if s.dialect == DialectPostgres {
		pk = "BIGSERIAL PRIMARY KEY"
		ts = "TIMESTAMPTZ"
	}
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chat_messages (
			id %s,
			agent_id TEXT,
			message TEXT,
			response TEXT,
			timestamp %s NOT NULL
		)`, pk, ts),
		`CREATE INDEX IF NOT EXISTS ix_chat_messages_agent_id ON chat_messages (agent_id)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS logs (
			id %s,
			timestamp %s NOT NULL,
			agent_id TEXT,
			tool_id TEXT,
			action TEXT NOT NULL,
			output TEXT
		)`, pk, ts),
		`CREATE INDEX IF NOT EXISTS ix_logs_agent_id ON logs (agent_id)`,
		`CREATE INDEX IF NOT EXISTS ix_logs_tool_id ON logs (tool_id)`,
	}
}

// WriteLogs пакетно вставляет записи журнала одним INSERT.
func (s *Store) WriteLogs(ctx context.Context, entries []domain.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	const numFields = 5
	vals := make([]interface{}, 0, len(entries)*numFields)
	for _, e := range entries {
		vals = append(vals, parseTimestamp(e.Timestamp), nullable(e.AgentID), nullable(e.ToolID), e.Action, nullable(e.Output))
	}

	query := fmt.Sprintf("INSERT INTO logs (timestamp, agent_id, tool_id, action, output) VALUES %s",
		s.valuesClause(len(entries), numFields))
	if _, err := s.db.ExecContext(ctx, query, vals...); err != nil {
		return fmt.Errorf("archive: insert logs: %w", err)
	}
	return nil
}

// WriteChats пакетно вставляет обмены с провайдером.
func (s *Store) WriteChats(ctx context.Context, records []domain.ChatRecord) error {
	if len(records) == 0 {
		return nil
	}

	const numFields = 4
	vals := make([]interface{}, 0, len(records)*numFields)
	for _, r := range records {
		vals = append(vals, r.AgentID, r.Message, r.Response, r.Timestamp.UTC())
	}

	query := fmt.Sprintf("INSERT INTO chat_messages (agent_id, message, response, timestamp) VALUES %s",
		s.valuesClause(len(records), numFields))
	if _, err := s.db.ExecContext(ctx, query, vals...); err != nil {
		return fmt.Errorf("archive: insert chat messages: %w", err)
	}
	return nil
}

// valuesClause строит "(…),(…)" для rows строк по fields колонок.
func (s *Store) valuesClause(rows, fields int) string {
	var b strings.Builder
	n := 1
	for i := 0; i < rows; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('(')
		for j := 0; j < fields; j++ {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(s.dialect.placeholder(n))
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}

func parseTimestamp(ts string) time.Time {
	if t, err := time.Parse(domain.TimestampLayout, ts); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		return t.UTC()
	}
	return time.Now().UTC()
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
