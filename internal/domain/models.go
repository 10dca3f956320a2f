package domain

import "time"

// Question is a single prompt/answer pair presented during a quiz.
type Question struct {
	Text    string   `json:"question"`
	Answer  string   `json:"answer"`
	Options []string `json:"options,omitempty"` // reserved for multiple-choice rendering
}

// Quiz is a named collection of questions.
type Quiz struct {
	ID        string     `json:"id"`
	Questions []Question `json:"questions"`
}

// Limits applied to quiz settings, shared by the sequencer and the
// settings commands.
const (
	MinTimerSeconds  = 5
	MaxTimerSeconds  = 300
	MaxQuestionCount = 100

	DefaultTimerSeconds = 30
)

// QuizSettings is the configuration snapshot a session runs with. It is
// copied at start time; later changes to stored defaults never reach a
// running session.
type QuizSettings struct {
	QuestionCount int  `json:"questionCount"` // 0 selects every available question
	RandomOrder   bool `json:"randomOrder"`
	TimerSeconds  int  `json:"timerSeconds"`
}

// Validate checks the settings against the supported ranges.
func (s QuizSettings) Validate() error {
	if s.QuestionCount < 0 {
		return fmtInvalid("question count %d must be positive", s.QuestionCount)
	}
	if s.QuestionCount > MaxQuestionCount {
		return fmtInvalid("question count %d exceeds limit %d", s.QuestionCount, MaxQuestionCount)
	}
	if s.TimerSeconds < MinTimerSeconds || s.TimerSeconds > MaxTimerSeconds {
		return fmtInvalid("timer %ds outside [%d,%d]", s.TimerSeconds, MinTimerSeconds, MaxTimerSeconds)
	}
	return nil
}

// SessionState identifies where a session is in its lifecycle. Idle is
// synthetic: it is reported when no session exists, never stored.
type SessionState string

const (
	StateIdle      SessionState = "idle"
	StateRunning   SessionState = "running"
	StatePaused    SessionState = "paused"
	StateCompleted SessionState = "completed"
	StateStopped   SessionState = "stopped"
)

// Live reports whether the state still accepts lifecycle commands.
func (s SessionState) Live() bool {
	return s == StateRunning || s == StatePaused
}

// SessionStatus is a read-only snapshot of a channel's session.
type SessionStatus struct {
	ChannelID      string       `json:"channelId"`
	QuizID         string       `json:"quizId,omitempty"`
	State          SessionState `json:"state"`
	CurrentIndex   int          `json:"currentIndex"`
	TotalQuestions int          `json:"totalQuestions"`
	Remaining      int          `json:"remainingSeconds"`
	Settings       QuizSettings `json:"settings"`
	StartedAt      time.Time    `json:"startedAt"`
	ElapsedSeconds int          `json:"elapsedSeconds"`
}

// QuestionPrompt carries what participants see for a question in
// progress. The answer is deliberately absent.
type QuestionPrompt struct {
	QuizID    string   `json:"quizId"`
	Number    int      `json:"number"` // 1-based position in the sequence
	Total     int      `json:"total"`
	Text      string   `json:"text"`
	Options   []string `json:"options,omitempty"`
	Remaining int      `json:"remainingSeconds"`
}

// AnswerReveal is published once per question when its countdown expires.
type AnswerReveal struct {
	QuizID string `json:"quizId"`
	Number int    `json:"number"`
	Total  int    `json:"total"`
	Text   string `json:"text"`
	Answer string `json:"answer"`
	Final  bool   `json:"final"`
}

// QuizSummary describes a finished run for the completion notice.
type QuizSummary struct {
	QuizID          string       `json:"quizId"`
	QuestionsAsked  int          `json:"questionsAsked"`
	DurationSeconds int          `json:"durationSeconds"`
	Settings        QuizSettings `json:"settings"`
}
