package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quizmaster-service/internal/domain"
)

type recordingNotifier struct {
	prompts   chan domain.QuestionPrompt
	reveals   chan domain.AnswerReveal
	summaries chan domain.QuizSummary
	statuses  chan domain.SessionStatus
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{
		prompts:   make(chan domain.QuestionPrompt, 128),
		reveals:   make(chan domain.AnswerReveal, 16),
		summaries: make(chan domain.QuizSummary, 4),
		statuses:  make(chan domain.SessionStatus, 16),
	}
}

func (n *recordingNotifier) PresentQuestion(_ string, prompt domain.QuestionPrompt) {
	n.prompts <- prompt
}

func (n *recordingNotifier) RevealAnswer(_ string, reveal domain.AnswerReveal) {
	n.reveals <- reveal
}

func (n *recordingNotifier) QuizCompleted(_ string, summary domain.QuizSummary) {
	n.summaries <- summary
}

func (n *recordingNotifier) ReportStatus(_ string, status domain.SessionStatus) {
	n.statuses <- status
}

func awaitPrompt(t *testing.T, n *recordingNotifier) domain.QuestionPrompt {
	t.Helper()
	select {
	case p := <-n.prompts:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("no question prompt arrived")
		return domain.QuestionPrompt{}
	}
}

func awaitReveal(t *testing.T, n *recordingNotifier) domain.AnswerReveal {
	t.Helper()
	select {
	case r := <-n.reveals:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("no answer reveal arrived")
		return domain.AnswerReveal{}
	}
}

func awaitSummary(t *testing.T, n *recordingNotifier) domain.QuizSummary {
	t.Helper()
	select {
	case s := <-n.summaries:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no completion summary arrived")
		return domain.QuizSummary{}
	}
}

func awaitStatus(t *testing.T, n *recordingNotifier) domain.SessionStatus {
	t.Helper()
	select {
	case s := <-n.statuses:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no status report arrived")
		return domain.SessionStatus{}
	}
}

func newTestSession(n Notifier, questions, timerSeconds int, tick, delay time.Duration) *Session {
	return newSession(sessionParams{
		id:            "session-under-test",
		channelID:     "chan-1",
		quizID:        "general",
		sequence:      questionSet(questions),
		settings:      domain.QuizSettings{TimerSeconds: timerSeconds},
		notifier:      n,
		tickInterval:  tick,
		questionDelay: delay,
	})
}

func TestSession_RunsToCompletion(t *testing.T) {
	n := newRecordingNotifier()
	s := newTestSession(n, 2, 5, 10*time.Millisecond, 0)
	s.begin()

	first := awaitPrompt(t, n)
	require.Equal(t, 1, first.Number)
	require.Equal(t, 2, first.Total)
	require.Equal(t, 5, first.Remaining)
	require.Equal(t, "question 0", first.Text)

	r1 := awaitReveal(t, n)
	require.Equal(t, 1, r1.Number)
	require.Equal(t, "answer 0", r1.Answer)
	require.False(t, r1.Final)

	r2 := awaitReveal(t, n)
	require.Equal(t, 2, r2.Number)
	require.True(t, r2.Final)

	summary := awaitSummary(t, n)
	require.Equal(t, "general", summary.QuizID)
	require.Equal(t, 2, summary.QuestionsAsked)

	require.Equal(t, domain.StateCompleted, s.State())
	snap := s.Snapshot()
	require.Equal(t, 2, snap.CurrentIndex)
	require.Equal(t, 2, snap.TotalQuestions)
	require.Zero(t, snap.Remaining)

	// every countdown refresh shows a positive remainder; the reveal is
	// the only zero announcement
	close(n.prompts)
	for p := range n.prompts {
		require.Positive(t, p.Remaining)
	}
}

func TestSession_PauseFreezesCountdown(t *testing.T) {
	n := newRecordingNotifier()
	s := newTestSession(n, 1, 30, 10*time.Millisecond, 0)
	s.begin()

	awaitPrompt(t, n) // initial presentation
	awaitPrompt(t, n) // first countdown refresh
	require.NoError(t, s.Pause())

	snap := s.Snapshot()
	require.Equal(t, domain.StatePaused, snap.State)
	frozen := snap.Remaining
	require.Positive(t, frozen)

	time.Sleep(60 * time.Millisecond)
	require.Equal(t, frozen, s.Snapshot().Remaining)

	err := s.Pause()
	var invalid *domain.InvalidStateError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, domain.StatePaused, invalid.State)
	require.Equal(t, "pause", invalid.Event)

	require.NoError(t, s.Resume())
	require.Eventually(t, func() bool {
		return s.Snapshot().Remaining < frozen
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop())
}

func TestSession_ImmediatePauseKeepsFullRemaining(t *testing.T) {
	n := newRecordingNotifier()
	s := newTestSession(n, 1, 5, 250*time.Millisecond, 0)
	s.begin()

	p := awaitPrompt(t, n)
	require.Equal(t, 5, p.Remaining)

	require.NoError(t, s.Pause())
	require.Equal(t, 5, s.Snapshot().Remaining)

	// resuming runs the first question to expiry instead of skipping it
	require.NoError(t, s.Resume())
	r := awaitReveal(t, n)
	require.Equal(t, 1, r.Number)
	require.Equal(t, "answer 0", r.Answer)
	require.True(t, r.Final)
	awaitSummary(t, n)
	require.Equal(t, domain.StateCompleted, s.State())
}

func TestSession_StopPreventsFurtherEvents(t *testing.T) {
	n := newRecordingNotifier()
	s := newTestSession(n, 1, 30, 10*time.Millisecond, 0)
	s.begin()

	awaitPrompt(t, n)
	require.NoError(t, s.Stop())
	require.Equal(t, domain.StateStopped, s.State())

	err := s.Stop()
	var invalid *domain.InvalidStateError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, domain.StateStopped, invalid.State)
	require.Equal(t, "stop", invalid.Event)

	// drain frames that were in flight when the stop landed, then
	// confirm silence
	time.Sleep(30 * time.Millisecond)
	for len(n.prompts) > 0 {
		<-n.prompts
	}
	time.Sleep(100 * time.Millisecond)
	require.Empty(t, n.prompts)
	require.Empty(t, n.reveals)
	require.Empty(t, n.summaries)
}

func TestSession_ResumeWhileRunningRejected(t *testing.T) {
	n := newRecordingNotifier()
	s := newTestSession(n, 1, 30, 10*time.Millisecond, 0)
	s.begin()

	err := s.Resume()
	var invalid *domain.InvalidStateError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, domain.StateRunning, invalid.State)
	require.Equal(t, "resume", invalid.Event)
	require.NoError(t, s.Stop())
}

func TestSession_GapBetweenQuestionsIsPausable(t *testing.T) {
	n := newRecordingNotifier()
	s := newTestSession(n, 2, 5, 10*time.Millisecond, 300*time.Millisecond)
	s.begin()

	awaitPrompt(t, n)
	r := awaitReveal(t, n)
	require.False(t, r.Final)

	// the run is now inside the inter-question gap
	require.NoError(t, s.Pause())
	for len(n.prompts) > 0 {
		<-n.prompts
	}
	time.Sleep(500 * time.Millisecond)
	require.Empty(t, n.prompts, "next question escaped a paused gap")

	require.NoError(t, s.Resume())
	next := awaitPrompt(t, n)
	require.Equal(t, 2, next.Number)
	require.Equal(t, 5, next.Remaining)
	require.NoError(t, s.Stop())
}

func TestSession_StaleTimerCallbacksIgnored(t *testing.T) {
	n := newRecordingNotifier()
	s := newTestSession(n, 2, 30, time.Hour, 0)
	s.begin()
	awaitPrompt(t, n)

	s.mu.Lock()
	stale := s.timer
	s.mu.Unlock()
	require.NotNil(t, stale)

	require.NoError(t, s.Stop())

	// callbacks from a detached timer must touch nothing
	s.handleTick(stale, 7)
	s.handleExpiry(stale)

	require.Equal(t, domain.StateStopped, s.State())
	require.Empty(t, n.prompts)
	require.Empty(t, n.reveals)
}

type panickyNotifier struct {
	*recordingNotifier
}

func (n *panickyNotifier) PresentQuestion(string, domain.QuestionPrompt) {
	panic("presentation failed")
}

func TestSession_NotifierPanicDoesNotStopRun(t *testing.T) {
	inner := newRecordingNotifier()
	s := newTestSession(&panickyNotifier{recordingNotifier: inner}, 1, 5, 10*time.Millisecond, 0)
	s.begin()

	r := awaitReveal(t, inner)
	require.True(t, r.Final)
	awaitSummary(t, inner)
	require.Equal(t, domain.StateCompleted, s.State())
}
