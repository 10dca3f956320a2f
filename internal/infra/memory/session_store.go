package memory

import (
	"sync"
	"time"

	"quizmaster-service/internal/app"
	"quizmaster-service/internal/domain"
)

// SessionStore is the in-memory implementation of app.SessionRepository:
// one entry per channel, live entries exclusive, finished entries kept
// until replaced or pruned.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
	}
}

// Register claims the channel for session. A finished entry left behind
// for status visibility is replaced; a live one wins the race.
func (s *SessionStore) Register(channelID string, session *app.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[channelID]; ok && existing.State().Live() {
		return domain.ErrAlreadyRunning
	}
	s.sessions[channelID] = session
	return nil
}

func (s *SessionStore) Get(channelID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[channelID]
	return session, ok
}

// Remove drops the channel's entry while it still belongs to session,
// so a stop command cannot evict the replacement that won a restart
// race.
func (s *SessionStore) Remove(channelID string, session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[channelID]; ok && existing == session {
		delete(s.sessions, channelID)
	}
}

// PruneFinished clears terminal sessions idle since before cutoff.
func (s *SessionStore) PruneFinished(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for channelID, session := range s.sessions {
		if !session.State().Live() && session.LastActivity().Before(cutoff) {
			delete(s.sessions, channelID)
			removed++
		}
	}
	return removed
}

// Len reports how many channels currently hold an entry.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
