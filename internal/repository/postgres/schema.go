package postgres

import (
	"context"
	"fmt"

	"flowbot/internal/domain/repositories"
)

// EnsureSchema creates the chat tables and their indexes if missing.
func EnsureSchema(ctx context.Context, db repositories.DBTX, tables *TableNames) error {
	// Index names carry the table prefix so environments can share a database.
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
				case_id TEXT NOT NULL,
				title VARCHAR(255) NOT NULL DEFAULT '',
				hypothesis_mode BOOLEAN NOT NULL DEFAULT FALSE,
				hypothesis_text TEXT NOT NULL DEFAULT '',
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				message_count INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				last_message_at TIMESTAMPTZ
			)
		`, tables.ChatSessions),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
				session_id UUID NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
				client_id TEXT NOT NULL,
				message_type VARCHAR(20) NOT NULL CHECK (message_type IN ('user', 'bot')),
				content TEXT NOT NULL,
				evidence_ids JSONB NOT NULL DEFAULT '[]',
				confidence_score DOUBLE PRECISION,
				processing_time DOUBLE PRECISION,
				metadata JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				UNIQUE (session_id, client_id)
			)
		`, tables.ChatMessages, tables.ChatSessions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_case_activity ON %s(case_id, last_message_at DESC)`,
			tables.ChatSessions, tables.ChatSessions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_session_created ON %s(session_id, created_at)`,
			tables.ChatMessages, tables.ChatMessages),
	}

	for _, stmt := range statements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// DropSchema drops the chat tables, messages first.
func DropSchema(ctx context.Context, db repositories.DBTX, tables *TableNames) error {
	for _, table := range []string{tables.ChatMessages, tables.ChatSessions} {
		if _, err := db.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	return nil
}

// ClearData removes every session and message but keeps the tables.
func ClearData(ctx context.Context, db repositories.DBTX, tables *TableNames) error {
	query := fmt.Sprintf("TRUNCATE %s, %s", tables.ChatMessages, tables.ChatSessions)
	if _, err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("clear data: %w", err)
	}
	return nil
}
