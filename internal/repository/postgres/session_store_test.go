package postgres

import (
	"context"
	"errors"
	"testing"

	"flowbot/internal/domain"
)

func TestNewTableNames(t *testing.T) {
	tables := NewTableNames("test_")
	if tables.ChatSessions != "test_chat_sessions" || tables.ChatMessages != "test_chat_messages" {
		t.Errorf("tables = %+v", tables)
	}
}

func TestForeignSessionIDsAreNotFound(t *testing.T) {
	// Ids are rejected before any query runs, so no pool is needed.
	store := NewSessionStore(&RepositoryConfig{Tables: NewTableNames("test_")}, nil)
	ctx := context.Background()

	for _, id := range []string{"local-4d2a", "42", ""} {
		if _, err := store.GetSession(ctx, id); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("GetSession(%q) = %v, want ErrNotFound", id, err)
		}
		if err := store.AppendMessage(ctx, id, nil); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("AppendMessage(%q) = %v, want ErrNotFound", id, err)
		}
	}
}

func TestRoleColumns(t *testing.T) {
	if roleToColumn("user") != "user" || roleToColumn("assistant") != "bot" {
		t.Error("unexpected role columns")
	}
	if roleFromColumn("bot") != "assistant" || roleFromColumn("user") != "user" {
		t.Error("unexpected roles")
	}
}
