package chat

import (
	"context"

	"github.com/caldew/workdesk/internal/domain"
)

// SessionRepository persists chat sessions per user.
type SessionRepository interface {
	// Save inserts or replaces the session and refreshes its UpdatedAt.
	Save(ctx context.Context, session *domain.ChatSession) error
	Get(ctx context.Context, userID, sessionID string) (*domain.ChatSession, error)
	// List returns summaries of the user's sessions, most recent first.
	List(ctx context.Context, userID string) ([]domain.SessionSummary, error)
	Delete(ctx context.Context, userID, sessionID string) error
}

// EvictionPolicy bounds how much session data a user may accumulate.
// When the encoded size of all sessions exceeds MaxBytes, whole
// sessions are dropped oldest-first, always keeping the session being
// saved plus the KeepSessions most recently updated others. If that is
// still not enough, the oldest messages of the surviving sessions are
// trimmed.
type EvictionPolicy struct {
	MaxBytes     int
	KeepSessions int
}
