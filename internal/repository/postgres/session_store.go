package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"flowbot/internal/domain"
	models "flowbot/internal/domain/models/assistant"
	"flowbot/internal/domain/repositories"
	svc "flowbot/internal/domain/services/assistant"
)

// SessionStore implements svc.SessionStore on PostgreSQL
type SessionStore struct {
	tables    *TableNames
	txManager repositories.TransactionManager
	logger    *slog.Logger
	executor  func(ctx context.Context) repositories.DBTX
}

var _ svc.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a session store
func NewSessionStore(config *RepositoryConfig, txManager repositories.TransactionManager) *SessionStore {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{
		tables:    config.Tables,
		txManager: txManager,
		logger:    logger,
		executor: func(ctx context.Context) repositories.DBTX {
			return GetExecutor(ctx, config.Pool)
		},
	}
}

// normalizeSessionID maps ids this store could never have issued (ephemeral ids,
// backend integer ids) to not-found instead of a cast error.
func normalizeSessionID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	return parsed.String(), nil
}

// ListSessions returns a case's active sessions, most recent first
func (s *SessionStore) ListSessions(ctx context.Context, caseID string) ([]models.Session, error) {
	query := fmt.Sprintf(`
		SELECT id, case_id, title, hypothesis_mode, hypothesis_text,
		       message_count, created_at, last_message_at
		FROM %s
		WHERE case_id = $1 AND is_active
		ORDER BY COALESCE(last_message_at, created_at) DESC, created_at DESC
	`, s.tables.ChatSessions)

	rows, err := s.executor(ctx).Query(ctx, query, caseID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []models.Session{}
	for rows.Next() {
		var sess models.Session
		if err := rows.Scan(
			&sess.ID,
			&sess.CaseID,
			&sess.Title,
			&sess.HypothesisMode,
			&sess.HypothesisText,
			&sess.MessageCount,
			&sess.CreatedAt,
			&sess.LastMessageAt,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// CreateSession inserts an empty session
func (s *SessionStore) CreateSession(ctx context.Context, req *svc.CreateSessionRequest) (*models.Session, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (case_id, title, hypothesis_mode, hypothesis_text)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, s.tables.ChatSessions)

	sess := &models.Session{
		CaseID:         req.CaseID,
		Title:          req.Title,
		HypothesisMode: req.HypothesisMode,
		HypothesisText: req.HypothesisText,
	}
	err := s.executor(ctx).QueryRow(ctx, query,
		req.CaseID,
		req.Title,
		req.HypothesisMode,
		req.HypothesisText,
	).Scan(&sess.ID, &sess.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Debug("session created", "session_id", sess.ID, "case_id", sess.CaseID)
	return sess, nil
}

// GetSession returns a session with its messages in insertion order
func (s *SessionStore) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	id, err := normalizeSessionID(sessionID)
	if err != nil {
		return nil, err
	}
	db := s.executor(ctx)

	query := fmt.Sprintf(`
		SELECT case_id, title, hypothesis_mode, hypothesis_text,
		       message_count, created_at, last_message_at
		FROM %s
		WHERE id = $1
	`, s.tables.ChatSessions)

	sess := &models.Session{ID: id}
	err = db.QueryRow(ctx, query, id).Scan(
		&sess.CaseID,
		&sess.Title,
		&sess.HypothesisMode,
		&sess.HypothesisText,
		&sess.MessageCount,
		&sess.CreatedAt,
		&sess.LastMessageAt,
	)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	messages, err := s.listMessages(ctx, db, id)
	if err != nil {
		return nil, err
	}
	sess.Messages = messages
	return sess, nil
}

func (s *SessionStore) listMessages(ctx context.Context, db repositories.DBTX, sessionID string) ([]models.Message, error) {
	query := fmt.Sprintf(`
		SELECT client_id, message_type, content, evidence_ids,
		       confidence_score, processing_time, metadata, created_at
		FROM %s
		WHERE session_id = $1
		ORDER BY created_at, id
	`, s.tables.ChatMessages)

	rows, err := db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var (
			msg          models.Message
			messageType  string
			evidenceJSON []byte
			metaJSON     []byte
		)
		if err := rows.Scan(
			&msg.ID,
			&messageType,
			&msg.Content,
			&evidenceJSON,
			&msg.Confidence,
			&msg.ProcessingTime,
			&metaJSON,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = roleFromColumn(messageType)

		if err := json.Unmarshal(evidenceJSON, &msg.EvidenceIDs); err != nil {
			return nil, fmt.Errorf("decode evidence ids: %w", err)
		}
		if len(msg.EvidenceIDs) == 0 {
			msg.EvidenceIDs = nil
		}

		// Metadata written by older builds may not decode; the text still renders.
		var extras models.MessageExtras
		if err := json.Unmarshal(metaJSON, &extras); err != nil {
			s.logger.Warn("undecodable message metadata", "message_id", msg.ID, "error", err)
		} else {
			msg.ApplyExtras(extras)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

// AppendMessage inserts msg and updates the session counters atomically.
// Re-sending a message with the same id is a no-op. When the session gets
// its second message and has no title, the first question becomes the title.
func (s *SessionStore) AppendMessage(ctx context.Context, sessionID string, msg *models.Message) error {
	id, err := normalizeSessionID(sessionID)
	if err != nil {
		return err
	}

	clientID := msg.ID
	if clientID == "" {
		clientID = uuid.NewString()
	}
	evidenceIDs := msg.EvidenceIDs
	if evidenceIDs == nil {
		evidenceIDs = []string{}
	}
	evidenceJSON, err := json.Marshal(evidenceIDs)
	if err != nil {
		return fmt.Errorf("encode evidence ids: %w", err)
	}
	metaJSON, err := json.Marshal(msg.Extras())
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		db := s.executor(ctx)

		insert := fmt.Sprintf(`
			INSERT INTO %s (session_id, client_id, message_type, content, evidence_ids,
			                confidence_score, processing_time, metadata, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (session_id, client_id) DO NOTHING
		`, s.tables.ChatMessages)

		tag, err := db.Exec(ctx, insert,
			id,
			clientID,
			roleToColumn(msg.Role),
			msg.Content,
			evidenceJSON,
			msg.Confidence,
			msg.ProcessingTime,
			metaJSON,
			createdAt,
		)
		if err != nil {
			if IsPgForeignKeyError(err) {
				return fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
			}
			if IsPgDuplicateError(err) {
				return nil
			}
			return fmt.Errorf("insert message: %w", err)
		}
		if tag.RowsAffected() == 0 {
			s.logger.Debug("duplicate message ignored", "session_id", sessionID, "client_id", clientID)
			return nil
		}

		update := fmt.Sprintf(`
			UPDATE %s
			SET message_count = message_count + 1,
			    last_message_at = GREATEST(COALESCE(last_message_at, $2), $2),
			    updated_at = NOW()
			WHERE id = $1
			RETURNING message_count, title
		`, s.tables.ChatSessions)

		var count int
		var title string
		if err := db.QueryRow(ctx, update, id, createdAt).Scan(&count, &title); err != nil {
			if IsPgNoRowsError(err) {
				return fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
			}
			return fmt.Errorf("update session counters: %w", err)
		}

		if count != 2 || title != "" {
			return nil
		}
		return s.assignTitle(ctx, db, id)
	})
}

func (s *SessionStore) assignTitle(ctx context.Context, db repositories.DBTX, sessionID string) error {
	query := fmt.Sprintf(`
		SELECT content FROM %s
		WHERE session_id = $1 AND message_type = 'user'
		ORDER BY created_at, id
		LIMIT 1
	`, s.tables.ChatMessages)

	var first string
	if err := db.QueryRow(ctx, query, sessionID).Scan(&first); err != nil {
		if IsPgNoRowsError(err) {
			return nil
		}
		return fmt.Errorf("read first question: %w", err)
	}

	update := fmt.Sprintf(`UPDATE %s SET title = $2 WHERE id = $1`, s.tables.ChatSessions)
	if _, err := db.Exec(ctx, update, sessionID, models.DeriveSessionTitle(first)); err != nil {
		return fmt.Errorf("set session title: %w", err)
	}
	return nil
}

// Message roles are stored the way the case backend stores them.
func roleToColumn(r models.Role) string {
	if r == models.RoleUser {
		return "user"
	}
	return "bot"
}

func roleFromColumn(t string) models.Role {
	if t == "user" {
		return models.RoleUser
	}
	return models.RoleAssistant
}
