package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quizmaster-service/internal/domain"
)

// SessionRepository abstracts how live sessions are tracked per channel
// (in-memory, Redis-marked, etc).
type SessionRepository interface {
	// Register claims the channel for session. It fails with
	// domain.ErrAlreadyRunning while a live session holds the channel;
	// finished entries kept around for status visibility are replaced.
	Register(channelID string, session *Session) error
	Get(channelID string) (*Session, bool)
	// Remove drops the entry only while it still belongs to session.
	Remove(channelID string, session *Session)
	// PruneFinished clears terminal sessions idle since before cutoff
	// and reports how many were removed.
	PruneFinished(cutoff time.Time) int
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	ListQuizzes(ctx context.Context) ([]string, error)
}

// SettingsStore persists per-channel default quiz settings.
type SettingsStore interface {
	Defaults(ctx context.Context, channelID string) (domain.QuizSettings, error)
	SetDefaults(ctx context.Context, channelID string, settings domain.QuizSettings) error
}

// Notifier delivers quiz events to a channel's participants. Calls are
// fire-and-forget and must not block; delivery failures belong to the
// transport, never to the state machine.
type Notifier interface {
	PresentQuestion(channelID string, prompt domain.QuestionPrompt)
	RevealAnswer(channelID string, reveal domain.AnswerReveal)
	QuizCompleted(channelID string, summary domain.QuizSummary)
	ReportStatus(channelID string, status domain.SessionStatus)
}

// Config tunes engine timings.
type Config struct {
	// TickInterval is the countdown display cadence.
	TickInterval time.Duration
	// QuestionDelay is the gap between a reveal and the next question;
	// zero disables it.
	QuestionDelay time.Duration
	// FinishedMaxAge bounds how long completed sessions stay visible to
	// status queries before the janitor prunes them.
	FinishedMaxAge time.Duration
}

const (
	defaultTickInterval   = time.Second
	defaultFinishedMaxAge = time.Hour
)

// QuizService owns the session lifecycle for every channel.
type QuizService struct {
	sessions SessionRepository
	quizzes  QuizRepository
	settings SettingsStore
	notifier Notifier
	log      *zap.Logger
	cfg      Config

	now  func() time.Time
	seed func() int64
}

func NewQuizService(sessions SessionRepository, quizzes QuizRepository, settings SettingsStore, notifier Notifier, log *zap.Logger, cfg Config) *QuizService {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}
	if cfg.QuestionDelay < 0 {
		cfg.QuestionDelay = 0
	}
	if cfg.FinishedMaxAge <= 0 {
		cfg.FinishedMaxAge = defaultFinishedMaxAge
	}
	return &QuizService{
		sessions: sessions,
		quizzes:  quizzes,
		settings: settings,
		notifier: notifier,
		log:      log,
		cfg:      cfg,
		now:      time.Now,
		seed:     func() int64 { return time.Now().UnixNano() },
	}
}

// Start launches a quiz run for a channel. When override is nil the
// channel's stored defaults apply. The settings are snapshotted into
// the session; later default changes never reach it.
func (s *QuizService) Start(ctx context.Context, channelID, quizID string, override *domain.QuizSettings) (domain.SessionStatus, error) {
	if existing, ok := s.sessions.Get(channelID); ok && existing.State().Live() {
		return domain.SessionStatus{}, domain.ErrAlreadyRunning
	}

	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		if errors.Is(err, domain.ErrQuizNotFound) {
			return domain.SessionStatus{}, err
		}
		return domain.SessionStatus{}, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}

	settings, err := s.resolveSettings(ctx, channelID, override)
	if err != nil {
		return domain.SessionStatus{}, err
	}

	sequence, err := BuildSequence(quiz.Questions, settings, rand.New(rand.NewSource(s.seed())))
	if err != nil {
		return domain.SessionStatus{}, err
	}

	session := newSession(sessionParams{
		id:            uuid.NewString(),
		channelID:     channelID,
		quizID:        quiz.ID,
		sequence:      sequence,
		settings:      settings,
		notifier:      s.notifier,
		log:           s.log,
		now:           s.now,
		tickInterval:  s.cfg.TickInterval,
		questionDelay: s.cfg.QuestionDelay,
	})
	// Register is the arbiter for concurrent starts; the loser's
	// session never began, so it holds no timer to clean up.
	if err := s.sessions.Register(channelID, session); err != nil {
		return domain.SessionStatus{}, err
	}

	s.log.Info("quiz started",
		zap.String("channel", channelID),
		zap.String("quiz", quiz.ID),
		zap.String("session", session.id),
		zap.Int("questions", len(sequence)),
		zap.Bool("random_order", settings.RandomOrder),
		zap.Int("timer_seconds", settings.TimerSeconds))

	session.begin()
	return session.Snapshot(), nil
}

// Stop aborts a channel's run and clears its registry entry.
func (s *QuizService) Stop(ctx context.Context, channelID string) (domain.SessionStatus, error) {
	session, err := s.liveSession(channelID)
	if err != nil {
		return domain.SessionStatus{}, err
	}
	if err := session.Stop(); err != nil {
		return domain.SessionStatus{}, err
	}
	s.sessions.Remove(channelID, session)
	return session.Snapshot(), nil
}

// Pause suspends a channel's countdown in place.
func (s *QuizService) Pause(ctx context.Context, channelID string) (domain.SessionStatus, error) {
	session, err := s.liveSession(channelID)
	if err != nil {
		return domain.SessionStatus{}, err
	}
	if err := session.Pause(); err != nil {
		return domain.SessionStatus{}, err
	}
	return session.Snapshot(), nil
}

// Resume continues a paused countdown from its frozen remainder.
func (s *QuizService) Resume(ctx context.Context, channelID string) (domain.SessionStatus, error) {
	session, err := s.liveSession(channelID)
	if err != nil {
		return domain.SessionStatus{}, err
	}
	if err := session.Resume(); err != nil {
		return domain.SessionStatus{}, err
	}
	return session.Snapshot(), nil
}

// Status reports a channel's snapshot without mutating anything. An
// idle channel yields a synthetic idle snapshot rather than an error.
// The snapshot is also pushed through the notifier so every participant
// sees the answer to a status query.
func (s *QuizService) Status(ctx context.Context, channelID string) domain.SessionStatus {
	status := domain.SessionStatus{ChannelID: channelID, State: domain.StateIdle}
	if session, ok := s.sessions.Get(channelID); ok {
		status = session.Snapshot()
	}
	if s.notifier != nil {
		s.notifier.ReportStatus(channelID, status)
	}
	return status
}

// ListQuizzes names the quizzes available to start, sorted.
func (s *QuizService) ListQuizzes(ctx context.Context) ([]string, error) {
	names, err := s.quizzes.ListQuizzes(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	sort.Strings(names)
	return names, nil
}

// Defaults reports the settings the next start on this channel will use.
func (s *QuizService) Defaults(ctx context.Context, channelID string) (domain.QuizSettings, error) {
	return s.settings.Defaults(ctx, channelID)
}

// SetQuestionCount updates the channel default; 0 restores "all".
func (s *QuizService) SetQuestionCount(ctx context.Context, channelID string, count int) (domain.QuizSettings, error) {
	return s.updateSettings(ctx, channelID, func(settings *domain.QuizSettings) {
		settings.QuestionCount = count
	})
}

// SetTimerDuration updates the channel's per-question countdown length.
func (s *QuizService) SetTimerDuration(ctx context.Context, channelID string, seconds int) (domain.QuizSettings, error) {
	return s.updateSettings(ctx, channelID, func(settings *domain.QuizSettings) {
		settings.TimerSeconds = seconds
	})
}

// SetRandomOrder toggles shuffled question order for future sessions.
func (s *QuizService) SetRandomOrder(ctx context.Context, channelID string, random bool) (domain.QuizSettings, error) {
	return s.updateSettings(ctx, channelID, func(settings *domain.QuizSettings) {
		settings.RandomOrder = random
	})
}

// RunJanitor prunes finished sessions kept for status visibility until
// ctx is cancelled. Blocks; run it on its own goroutine.
func (s *QuizService) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sessions.PruneFinished(s.now().Add(-s.cfg.FinishedMaxAge)); n > 0 {
				s.log.Info("pruned finished sessions", zap.Int("count", n))
			}
		}
	}
}

func (s *QuizService) liveSession(channelID string) (*Session, error) {
	session, ok := s.sessions.Get(channelID)
	if !ok || !session.State().Live() {
		return nil, domain.ErrNoActiveSession
	}
	return session, nil
}

func (s *QuizService) resolveSettings(ctx context.Context, channelID string, override *domain.QuizSettings) (domain.QuizSettings, error) {
	if override != nil {
		return *override, nil
	}
	return s.settings.Defaults(ctx, channelID)
}

func (s *QuizService) updateSettings(ctx context.Context, channelID string, apply func(*domain.QuizSettings)) (domain.QuizSettings, error) {
	current, err := s.settings.Defaults(ctx, channelID)
	if err != nil {
		return domain.QuizSettings{}, err
	}
	apply(&current)
	if err := current.Validate(); err != nil {
		return domain.QuizSettings{}, err
	}
	if err := s.settings.SetDefaults(ctx, channelID, current); err != nil {
		return domain.QuizSettings{}, err
	}
	return current, nil
}
