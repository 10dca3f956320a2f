package app

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"quizmaster-service/internal/domain"
)

// Session drives one channel's quiz run. Every state mutation happens
// under mu, whether it arrives as a lifecycle command or as a timer
// callback. Callbacks carry the timer that fired and re-check it is
// still the session's current one, so a command racing an in-flight
// expiry can never apply twice.
type Session struct {
	id        string
	channelID string
	quizID    string

	notifier Notifier
	log      *zap.Logger
	now      func() time.Time

	tickInterval  time.Duration
	questionDelay time.Duration

	mu           sync.Mutex
	state        domain.SessionState
	sequence     []domain.Question
	index        int
	timer        *countdownTimer
	settings     domain.QuizSettings
	createdAt    time.Time
	lastActivity time.Time
}

type sessionParams struct {
	id            string
	channelID     string
	quizID        string
	sequence      []domain.Question
	settings      domain.QuizSettings
	notifier      Notifier
	log           *zap.Logger
	now           func() time.Time
	tickInterval  time.Duration
	questionDelay time.Duration
}

func newSession(p sessionParams) *Session {
	if p.log == nil {
		p.log = zap.NewNop()
	}
	if p.now == nil {
		p.now = time.Now
	}
	started := p.now()
	return &Session{
		id:            p.id,
		channelID:     p.channelID,
		quizID:        p.quizID,
		notifier:      p.notifier,
		log:           p.log,
		now:           p.now,
		tickInterval:  p.tickInterval,
		questionDelay: p.questionDelay,
		state:         domain.StateRunning,
		sequence:      p.sequence,
		settings:      p.settings,
		createdAt:     started,
		lastActivity:  started,
	}
}

// begin presents the first question and starts its countdown. Called
// exactly once, after the session has been registered for its channel.
func (s *Session) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presentCurrentLocked()
}

// Pause freezes the countdown in place.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateRunning {
		return &domain.InvalidStateError{State: s.state, Event: "pause"}
	}
	s.state = domain.StatePaused
	if s.timer != nil {
		s.timer.Pause()
	}
	s.lastActivity = s.now()
	s.log.Info("session paused",
		zap.String("channel", s.channelID),
		zap.String("quiz", s.quizID),
		zap.Int("remaining_seconds", s.remainingLocked()))
	return nil
}

// Resume restarts a paused countdown from its frozen value.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StatePaused {
		return &domain.InvalidStateError{State: s.state, Event: "resume"}
	}
	s.state = domain.StateRunning
	if s.timer != nil {
		s.timer.Resume()
	}
	s.lastActivity = s.now()
	s.log.Info("session resumed",
		zap.String("channel", s.channelID),
		zap.String("quiz", s.quizID),
		zap.Int("remaining_seconds", s.remainingLocked()))
	return nil
}

// Stop aborts the run. The countdown is cancelled before the call
// returns; a late callback from it fails the current-timer check and
// touches nothing.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Live() {
		return &domain.InvalidStateError{State: s.state, Event: "stop"}
	}
	s.state = domain.StateStopped
	if s.timer != nil {
		s.timer.Cancel()
		s.timer = nil
	}
	s.lastActivity = s.now()
	s.log.Info("session stopped",
		zap.String("channel", s.channelID),
		zap.String("quiz", s.quizID),
		zap.Int("questions_asked", s.index))
	return nil
}

// Snapshot returns a read-only view of the session.
func (s *Session) Snapshot() domain.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.SessionStatus{
		ChannelID:      s.channelID,
		QuizID:         s.quizID,
		State:          s.state,
		CurrentIndex:   s.index,
		TotalQuestions: len(s.sequence),
		Remaining:      s.remainingLocked(),
		Settings:       s.settings,
		StartedAt:      s.createdAt,
		ElapsedSeconds: int(s.now().Sub(s.createdAt) / time.Second),
	}
}

// State reports the current lifecycle state.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastActivity reports when the session last changed.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

func (s *Session) remainingLocked() int {
	if s.timer == nil {
		return 0
	}
	return s.timer.Remaining()
}

// presentCurrentLocked announces the question at the current index and
// starts its countdown.
func (s *Session) presentCurrentLocked() {
	q := s.sequence[s.index]
	s.notify(func(n Notifier) {
		n.PresentQuestion(s.channelID, s.promptLocked(q, s.settings.TimerSeconds))
	})

	t := newCountdown(s.settings.TimerSeconds, s.tickInterval, s.log)
	t.onTick = func(remaining int) { s.handleTick(t, remaining) }
	t.onExpire = func() { s.handleExpiry(t) }
	s.timer = t
	t.start()
}

func (s *Session) promptLocked(q domain.Question, remaining int) domain.QuestionPrompt {
	return domain.QuestionPrompt{
		QuizID:    s.quizID,
		Number:    s.index + 1,
		Total:     len(s.sequence),
		Text:      q.Text,
		Options:   q.Options,
		Remaining: remaining,
	}
}

// handleTick refreshes the countdown display. Ticks from a replaced or
// cancelled timer are dropped.
func (s *Session) handleTick(t *countdownTimer, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != t || s.state != domain.StateRunning {
		return
	}
	q := s.sequence[s.index]
	s.notify(func(n Notifier) {
		n.PresentQuestion(s.channelID, s.promptLocked(q, remaining))
	})
}

// handleExpiry reveals the answer, then either finishes the run or
// lines up the next question behind the inter-question delay.
func (s *Session) handleExpiry(t *countdownTimer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != t || s.state != domain.StateRunning {
		return
	}
	s.timer = nil

	q := s.sequence[s.index]
	s.index++
	s.lastActivity = s.now()
	final := s.index == len(s.sequence)
	s.notify(func(n Notifier) {
		n.RevealAnswer(s.channelID, domain.AnswerReveal{
			QuizID: s.quizID,
			Number: s.index,
			Total:  len(s.sequence),
			Text:   q.Text,
			Answer: q.Answer,
			Final:  final,
		})
	})

	if final {
		s.state = domain.StateCompleted
		s.notify(func(n Notifier) {
			n.QuizCompleted(s.channelID, domain.QuizSummary{
				QuizID:          s.quizID,
				QuestionsAsked:  len(s.sequence),
				DurationSeconds: int(s.now().Sub(s.createdAt) / time.Second),
				Settings:        s.settings,
			})
		})
		s.log.Info("quiz completed",
			zap.String("channel", s.channelID),
			zap.String("quiz", s.quizID),
			zap.Int("questions", len(s.sequence)))
		return
	}

	if s.questionDelay > 0 {
		s.startDelayLocked()
		return
	}
	s.presentCurrentLocked()
}

// startDelayLocked runs the gap between reveal and next question
// through the same single-timer path, so pause/resume/stop during the
// gap behave exactly like they do mid-question.
func (s *Session) startDelayLocked() {
	seconds := int(s.questionDelay / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	t := newCountdown(seconds, s.questionDelay, s.log)
	t.onExpire = func() { s.handleAdvance(t) }
	s.timer = t
	t.start()
}

// handleAdvance fires when the inter-question delay elapses.
func (s *Session) handleAdvance(t *countdownTimer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != t || s.state != domain.StateRunning {
		return
	}
	s.timer = nil
	s.presentCurrentLocked()
}

// notify runs one notifier call shielded from panics; a presentation
// failure must never derail the lifecycle.
func (s *Session) notify(fn func(Notifier)) {
	if s.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("notifier panicked",
				zap.String("channel", s.channelID),
				zap.Any("panic", r))
		}
	}()
	fn(s.notifier)
}
