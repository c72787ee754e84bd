package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/caldew/workdesk/internal/config"
	"github.com/caldew/workdesk/internal/domain"
)

// MemoryRepository keeps sessions in process memory with an explicit
// per-user size bound. It is the default store when no database is
// configured and the fixture store for tests.
type MemoryRepository struct {
	mu     sync.Mutex
	users  map[string]map[string]*domain.ChatSession
	policy EvictionPolicy
	now    func() time.Time
}

func NewMemoryRepository(policy EvictionPolicy) *MemoryRepository {
	if policy.MaxBytes <= 0 {
		policy.MaxBytes = config.MaxSessionStoreBytes
	}
	if policy.KeepSessions <= 0 {
		policy.KeepSessions = config.EvictionKeepSessions
	}
	return &MemoryRepository{
		users:  make(map[string]map[string]*domain.ChatSession),
		policy: policy,
		now:    time.Now,
	}
}

func (r *MemoryRepository) Save(_ context.Context, session *domain.ChatSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := cloneSession(session)
	stored.UpdatedAt = r.now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = stored.UpdatedAt
	}
	if stored.Title == "" {
		stored.Title = domain.SessionTitle(stored.Messages)
	}
	if len(stored.Messages) > config.MaxStoredMessagesPerChat {
		stored.Messages = stored.Messages[len(stored.Messages)-config.MaxStoredMessagesPerChat:]
	}

	sessions := r.users[session.UserID]
	if sessions == nil {
		sessions = make(map[string]*domain.ChatSession)
		r.users[session.UserID] = sessions
	}
	sessions[stored.ID] = stored

	r.enforceQuota(session.UserID, stored.ID)
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, userID, sessionID string) (*domain.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.users[userID][sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return cloneSession(session), nil
}

func (r *MemoryRepository) List(_ context.Context, userID string) ([]domain.SessionSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	summaries := make([]domain.SessionSummary, 0, len(r.users[userID]))
	for _, session := range r.users[userID] {
		summaries = append(summaries, domain.SessionSummary{
			ID:           session.ID,
			Title:        session.Title,
			LastMessage:  lastMessage(session.Messages),
			MessageCount: len(session.Messages),
			CreatedAt:    session.CreatedAt,
			UpdatedAt:    session.UpdatedAt,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

func (r *MemoryRepository) Delete(_ context.Context, userID, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[userID][sessionID]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(r.users[userID], sessionID)
	return nil
}

// enforceQuota drops whole sessions oldest-first, then trims messages,
// until the user's encoded sessions fit the byte budget. The session
// named by currentID is never dropped.
func (r *MemoryRepository) enforceQuota(userID, currentID string) {
	sessions := r.users[userID]

	byAge := make([]*domain.ChatSession, 0, len(sessions))
	for _, s := range sessions {
		byAge = append(byAge, s)
	}
	sort.Slice(byAge, func(i, j int) bool {
		return byAge[i].UpdatedAt.Before(byAge[j].UpdatedAt)
	})

	// Hard cap on session count, independent of size.
	for i := 0; len(sessions) > config.MaxStoredSessions && i < len(byAge); i++ {
		if byAge[i].ID == currentID {
			continue
		}
		delete(sessions, byAge[i].ID)
	}

	if r.encodedSize(sessions) <= r.policy.MaxBytes {
		return
	}

	// Drop oldest sessions, keeping the current one and the most
	// recently updated KeepSessions others.
	dropLimit := len(byAge) - r.policy.KeepSessions
	for i := 0; i < dropLimit && r.encodedSize(sessions) > r.policy.MaxBytes; i++ {
		if byAge[i].ID == currentID {
			continue
		}
		if _, ok := sessions[byAge[i].ID]; !ok {
			continue
		}
		slog.Info("evicting chat session over size budget", "user_id", userID, "session_id", byAge[i].ID)
		delete(sessions, byAge[i].ID)
	}

	// Still over budget: shed the oldest messages of the surviving
	// sessions, oldest session first.
	for _, s := range byAge {
		if _, ok := sessions[s.ID]; !ok {
			continue
		}
		for len(s.Messages) > 1 && r.encodedSize(sessions) > r.policy.MaxBytes {
			s.Messages = s.Messages[1:]
		}
		if r.encodedSize(sessions) <= r.policy.MaxBytes {
			return
		}
	}
}

func (r *MemoryRepository) encodedSize(sessions map[string]*domain.ChatSession) int {
	total := 0
	for _, s := range sessions {
		data, err := json.Marshal(s)
		if err != nil {
			continue
		}
		total += len(data)
	}
	return total
}

func lastMessage(messages []domain.ChatMessage) string {
	if len(messages) == 0 {
		return ""
	}
	return messages[len(messages)-1].Content
}

func cloneSession(s *domain.ChatSession) *domain.ChatSession {
	clone := *s
	clone.Messages = make([]domain.ChatMessage, len(s.Messages))
	copy(clone.Messages, s.Messages)
	return &clone
}
