package timer

import (
	"sync"
	"time"
)

// State is the countdown phase.
type State int

const (
	Idle State = iota
	Running
	Expired
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Expired:
		return "expired"
	default:
		return "idle"
	}
}

// Ticker is the subset of *time.Ticker the countdown needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a ticker firing every d.
type TickerFunc func(d time.Duration) Ticker

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// RealTicker backs the timer with time.NewTicker.
func RealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// Option configures a Timer.
type Option func(*Timer)

// WithTicker replaces the ticker source, used by tests.
func WithTicker(fn TickerFunc) Option {
	return func(t *Timer) { t.newTicker = fn }
}

// WithTick registers an observer for every decrement.
func WithTick(fn func(remaining int)) Option {
	return func(t *Timer) { t.onTick = fn }
}

// Timer counts down whole seconds and calls onExpire when it reaches zero.
// At most one countdown is active; Start supersedes the previous one.
// Start and Stop wait for an in-flight onExpire, so onExpire must not call them.
type Timer struct {
	fireMu    sync.Mutex
	mu        sync.Mutex
	state     State
	remaining int
	gen       uint64
	ticker    Ticker
	stop      chan struct{}

	onExpire  func()
	onTick    func(remaining int)
	newTicker TickerFunc
}

// New creates an idle timer.
func New(onExpire func(), opts ...Option) *Timer {
	t := &Timer{
		onExpire:  onExpire,
		newTicker: RealTicker,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start restarts the countdown from limit seconds, discarding any elapsed time.
func (t *Timer) Start(limit int) {
	if limit < 0 {
		limit = 0
	}

	t.fireMu.Lock()
	defer t.fireMu.Unlock()
	t.mu.Lock()
	t.cancelLocked()
	t.gen++
	gen := t.gen
	t.state = Running
	t.remaining = limit
	ticker := t.newTicker(time.Second)
	stop := make(chan struct{})
	t.ticker = ticker
	t.stop = stop
	t.mu.Unlock()

	go t.run(gen, ticker, stop)
}

// Stop cancels the countdown and returns the timer to Idle.
func (t *Timer) Stop() {
	t.fireMu.Lock()
	defer t.fireMu.Unlock()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
	t.gen++
	t.state = Idle
	t.remaining = 0
}

// State reports the current phase.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Remaining reports the seconds left in the running countdown.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

func (t *Timer) cancelLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
	if t.ticker != nil {
		t.ticker.Stop()
		t.ticker = nil
	}
}

func (t *Timer) run(gen uint64, ticker Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			remaining, expired, ok := t.tick(gen)
			if !ok {
				return
			}
			if t.onTick != nil && t.current(gen) {
				t.onTick(remaining)
			}
			if expired {
				t.expire(gen)
				return
			}
		}
	}
}

// current reports whether gen is still the latest countdown.
func (t *Timer) current(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return gen == t.gen
}

// expire calls onExpire unless a Start or Stop superseded gen after its last tick.
func (t *Timer) expire(gen uint64) {
	t.fireMu.Lock()
	defer t.fireMu.Unlock()
	if !t.current(gen) || t.onExpire == nil {
		return
	}
	t.onExpire()
}

// tick applies one decrement if gen is still the active countdown.
func (t *Timer) tick(gen uint64) (remaining int, expired bool, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.gen || t.state != Running {
		return 0, false, false
	}

	if t.remaining > 0 {
		t.remaining--
	}
	if t.remaining == 0 {
		t.state = Expired
		t.cancelLocked()
		return 0, true, true
	}
	return t.remaining, false, true
}
