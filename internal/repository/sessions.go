package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caldew/workdesk/internal/chat"
	"github.com/caldew/workdesk/internal/domain"
)

// SessionRepository stores chat sessions with their messages as JSONB
// and enforces the per-user size budget on every save.
type SessionRepository struct {
	db     *pgxpool.Pool
	policy chat.EvictionPolicy
}

func NewSessionRepository(db *pgxpool.Pool, policy chat.EvictionPolicy) *SessionRepository {
	return &SessionRepository{db: db, policy: policy}
}

func (r *SessionRepository) Save(ctx context.Context, session *domain.ChatSession) error {
	if session.Title == "" {
		session.Title = domain.SessionTitle(session.Messages)
	}
	messages, err := json.Marshal(session.Messages)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}

	err = r.db.QueryRow(ctx, `
		INSERT INTO chat_sessions (id, user_id, title, messages, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title, messages = EXCLUDED.messages, updated_at = NOW()
		WHERE chat_sessions.user_id = EXCLUDED.user_id
		RETURNING created_at, updated_at`,
		session.ID, session.UserID, session.Title, messages,
	).Scan(&session.CreatedAt, &session.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotOwner
	}
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	return r.enforceQuota(ctx, session.UserID, session.ID)
}

func (r *SessionRepository) Get(ctx context.Context, userID, sessionID string) (*domain.ChatSession, error) {
	var s domain.ChatSession
	var messages []byte
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, title, messages, created_at, updated_at
		FROM chat_sessions WHERE user_id = $1 AND id = $2`, userID, sessionID,
	).Scan(&s.ID, &s.UserID, &s.Title, &messages, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if err := json.Unmarshal(messages, &s.Messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return &s, nil
}

func (r *SessionRepository) List(ctx context.Context, userID string) ([]domain.SessionSummary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, title, COALESCE(messages->-1->>'Content', ''),
		       jsonb_array_length(messages), created_at, updated_at
		FROM chat_sessions WHERE user_id = $1
		ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var summaries []domain.SessionSummary
	for rows.Next() {
		var s domain.SessionSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.LastMessage, &s.MessageCount, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *SessionRepository) Delete(ctx context.Context, userID, sessionID string) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM chat_sessions WHERE user_id = $1 AND id = $2`, userID, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// enforceQuota drops the user's oldest sessions while their combined
// encoded size exceeds the budget, never dropping the session just
// saved or the most recently updated KeepSessions others.
func (r *SessionRepository) enforceQuota(ctx context.Context, userID, currentID string) error {
	rows, err := r.db.Query(ctx, `
		SELECT id, octet_length(messages::text)
		FROM chat_sessions WHERE user_id = $1
		ORDER BY updated_at DESC`, userID)
	if err != nil {
		return fmt.Errorf("measure sessions: %w", err)
	}
	defer rows.Close()

	type entry struct {
		id   string
		size int
	}
	var entries []entry
	total := 0
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.id, &e.size); err != nil {
			return fmt.Errorf("scan session size: %w", err)
		}
		entries = append(entries, e)
		total += e.size
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if total <= r.policy.MaxBytes {
		return nil
	}

	// entries is newest-first; walk from the oldest end.
	for i := len(entries) - 1; i >= 0 && total > r.policy.MaxBytes; i-- {
		if entries[i].id == currentID || i < r.policy.KeepSessions {
			continue
		}
		if _, err := r.db.Exec(ctx, `
			DELETE FROM chat_sessions WHERE user_id = $1 AND id = $2`,
			userID, entries[i].id); err != nil {
			return fmt.Errorf("evict session: %w", err)
		}
		slog.Info("evicted chat session over size budget", "user_id", userID, "session_id", entries[i].id)
		total -= entries[i].size
	}
	return nil
}
