package app

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// countdownTimer drives a single question's countdown on its own
// goroutine. Each elapsed tick interval deducts its worth of seconds;
// onTick fires while the remainder is positive and onExpire replaces
// the zero tick. The loop parks while paused and exits on cancel or
// expiry.
type countdownTimer struct {
	interval time.Duration
	step     int // whole seconds deducted per fire

	onTick   func(remaining int)
	onExpire func()
	log      *zap.Logger

	mu        sync.Mutex
	remaining int
	paused    bool
	done      bool

	kick chan struct{} // wakes a parked loop after resume
	stop chan struct{} // closed by Cancel
}

func newCountdown(seconds int, interval time.Duration, log *zap.Logger) *countdownTimer {
	if interval <= 0 {
		interval = time.Second
	}
	step := int(interval / time.Second)
	if step < 1 {
		step = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &countdownTimer{
		interval:  interval,
		step:      step,
		log:       log,
		remaining: seconds,
		kick:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
	}
}

// start launches the countdown loop. Callbacks must be assigned before
// the call; they are invoked from the timer goroutine with no locks
// held.
func (t *countdownTimer) start() {
	go t.loop()
}

func (t *countdownTimer) loop() {
	timer := time.NewTimer(t.nextWait())
	defer timer.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-t.kick:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(t.nextWait())
		case <-timer.C:
			fire, remaining, expired := t.deduct()
			if !fire {
				// Paused or cancelled mid-wait; the timer is not
				// reset, so the loop parks until kick or stop.
				continue
			}
			if expired {
				t.fireExpire()
				return
			}
			t.fireTick(remaining)
			timer.Reset(t.nextWait())
		}
	}
}

// deduct consumes one elapsed interval. fire is false when the loop
// should park instead of emitting a callback.
func (t *countdownTimer) deduct() (fire bool, remaining int, expired bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done || t.paused {
		return false, t.remaining, false
	}
	t.remaining -= t.step
	if t.remaining <= 0 {
		t.remaining = 0
		t.done = true
		return true, 0, true
	}
	return true, t.remaining, false
}

// nextWait shortens the final interval so the countdown finishes on
// schedule even when the tick interval does not divide the duration.
func (t *countdownTimer) nextWait() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rem := time.Duration(t.remaining) * time.Second; rem < t.interval {
		return rem
	}
	return t.interval
}

// Pause freezes the remainder in place. No-op when already paused or
// finished.
func (t *countdownTimer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done || t.paused {
		return
	}
	t.paused = true
}

// Resume restarts the countdown from the frozen remainder. The next
// deduction lands a full interval after the call. No-op when running or
// finished.
func (t *countdownTimer) Resume() {
	t.mu.Lock()
	if t.done || !t.paused {
		t.mu.Unlock()
		return
	}
	t.paused = false
	t.mu.Unlock()

	select {
	case t.kick <- struct{}{}:
	default:
	}
}

// Cancel terminates the countdown. Idempotent; no callbacks fire once
// the owning session has detached the timer.
func (t *countdownTimer) Cancel() {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return
	}
	t.done = true
	t.mu.Unlock()
	close(t.stop)
}

// Remaining reports the seconds left on the countdown.
func (t *countdownTimer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

func (t *countdownTimer) fireTick(remaining int) {
	if t.onTick == nil {
		return
	}
	defer t.recoverCallback("tick")
	t.onTick(remaining)
}

func (t *countdownTimer) fireExpire() {
	if t.onExpire == nil {
		return
	}
	defer t.recoverCallback("expire")
	t.onExpire()
}

// recoverCallback keeps a panicking callback from killing the loop; a
// presentation failure must not stop the countdown.
func (t *countdownTimer) recoverCallback(stage string) {
	if r := recover(); r != nil {
		t.log.Error("countdown callback panicked",
			zap.String("stage", stage),
			zap.Any("panic", r))
	}
}
