package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySource is returned when a quiz holds no usable questions.
	ErrEmptySource = errors.New("question source is empty")
	// ErrInvalidSettings indicates settings outside the supported ranges.
	ErrInvalidSettings = errors.New("invalid quiz settings")
	// ErrAlreadyRunning is returned when a channel already hosts a live session.
	ErrAlreadyRunning = errors.New("quiz already running in this channel")
	// ErrNoActiveSession is returned for lifecycle commands on an idle channel.
	ErrNoActiveSession = errors.New("no active quiz session in this channel")
	// ErrSourceUnavailable indicates the quiz content could not be loaded.
	ErrSourceUnavailable = errors.New("quiz source unavailable")
	// ErrQuizNotFound indicates the requested quiz name is unknown.
	ErrQuizNotFound = errors.New("quiz not found")
)

// InvalidStateError reports a lifecycle command rejected by the session's
// current state.
type InvalidStateError struct {
	State SessionState
	Event string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s quiz in state %q", e.Event, e.State)
}

func fmtInvalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidSettings, fmt.Sprintf(format, args...))
}
