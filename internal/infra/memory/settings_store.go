package memory

import (
	"context"
	"sync"

	"quizmaster-service/internal/domain"
)

// SettingsStore keeps per-channel default settings in memory. Channels
// that never changed anything fall back to the configured global
// defaults.
type SettingsStore struct {
	fallback domain.QuizSettings

	mu       sync.RWMutex
	channels map[string]domain.QuizSettings
}

func NewSettingsStore(fallback domain.QuizSettings) *SettingsStore {
	if fallback.TimerSeconds == 0 {
		fallback.TimerSeconds = domain.DefaultTimerSeconds
	}
	return &SettingsStore{
		fallback: fallback,
		channels: make(map[string]domain.QuizSettings),
	}
}

func (s *SettingsStore) Defaults(_ context.Context, channelID string) (domain.QuizSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if settings, ok := s.channels[channelID]; ok {
		return settings, nil
	}
	return s.fallback, nil
}

func (s *SettingsStore) SetDefaults(_ context.Context, channelID string, settings domain.QuizSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[channelID] = settings
	return nil
}
