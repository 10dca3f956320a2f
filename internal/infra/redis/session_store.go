package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quizmaster-service/internal/app"
	"quizmaster-service/internal/domain"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Sessions themselves stay in a local map: a session owns a live
//     goroutine-backed countdown and cannot migrate between instances.
//   - Redis marks channel liveness under quiz:channel:{channelID} so
//     operators (and future cross-instance routing) can see which
//     channels are busy fleet-wide.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

// Register claims the channel for session and marks it live in Redis.
func (s *SessionStore) Register(channelID string, session *app.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[channelID]; ok && existing.State().Live() {
		return domain.ErrAlreadyRunning
	}
	s.sessions[channelID] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(channelID), "1", s.ttl).Err()
	return nil
}

func (s *SessionStore) Get(channelID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[channelID]
	return session, ok
}

// Remove drops the entry while it still belongs to session and clears
// the liveness marker.
func (s *SessionStore) Remove(channelID string, session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[channelID]; ok && existing == session {
		delete(s.sessions, channelID)
		_ = s.client.Del(context.Background(), s.key(channelID)).Err()
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
			_ = s.client.Del(context.Background(), s.key(channelID)).Err()
			removed++
		}
	}
	return removed
}

func (s *SessionStore) key(channelID string) string {
	return "quiz:channel:" + channelID
}
