package redis

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"

	"quizmaster-service/internal/domain"
)

// SettingsStore persists per-channel default settings in a Redis hash
// under quiz:settings:{channelID}, so channel preferences survive
// restarts. Channels with no stored hash fall back to the configured
// global defaults.
type SettingsStore struct {
	client   *redis.Client
	fallback domain.QuizSettings
}

func NewSettingsStore(client *redis.Client, fallback domain.QuizSettings) *SettingsStore {
	if fallback.TimerSeconds == 0 {
		fallback.TimerSeconds = domain.DefaultTimerSeconds
	}
	return &SettingsStore{client: client, fallback: fallback}
}

func (s *SettingsStore) Defaults(ctx context.Context, channelID string) (domain.QuizSettings, error) {
	fields, err := s.client.HGetAll(ctx, s.key(channelID)).Result()
	if err != nil {
		return domain.QuizSettings{}, err
	}
	if len(fields) == 0 {
		return s.fallback, nil
	}

	settings := s.fallback
	if raw, ok := fields["question_count"]; ok {
		if v, err := strconv.Atoi(raw); err == nil {
			settings.QuestionCount = v
		}
	}
	if raw, ok := fields["timer_seconds"]; ok {
		if v, err := strconv.Atoi(raw); err == nil {
			settings.TimerSeconds = v
		}
	}
	if raw, ok := fields["random_order"]; ok {
		settings.RandomOrder = raw == "1"
	}
	return settings, nil
}

func (s *SettingsStore) SetDefaults(ctx context.Context, channelID string, settings domain.QuizSettings) error {
	randomOrder := "0"
	if settings.RandomOrder {
		randomOrder = "1"
	}
	return s.client.HSet(ctx, s.key(channelID),
		"question_count", strconv.Itoa(settings.QuestionCount),
		"timer_seconds", strconv.Itoa(settings.TimerSeconds),
		"random_order", randomOrder,
	).Err()
}

func (s *SettingsStore) key(channelID string) string {
	return "quiz:settings:" + channelID
}
