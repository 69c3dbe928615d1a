package timectrl

import (
	"context"
	"sync"
	"time"
)

// Clock is the time source a controller reads tick timestamps from. Tests
// swap it to get deterministic tick times.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// Listener is invoked once per tick with the tick time. A returned error is
// handed to the controller's error hook and does not stop the loop.
type Listener func(ctx context.Context, at time.Time) error

// TimeController fires its listeners on a fixed interval until the context is
// cancelled or MaxTicks ticks have fired.
type TimeController struct {
	mu       sync.RWMutex
	Interval time.Duration
	// MaxTicks bounds the number of ticks; 0 runs until cancelled.
	MaxTicks int
	// Immediate fires the first tick at Start instead of one interval later.
	Immediate bool

	clock     Clock
	listeners []Listener
	onError   func(at time.Time, err error)

	ticks    int
	lastTick time.Time
}

// Option customises a TimeController.
type Option func(*TimeController)

// WithClock overrides the wall clock.
func WithClock(c Clock) Option {
	return func(tc *TimeController) {
		tc.clock = c
	}
}

// WithErrorHandler receives listener errors.
func WithErrorHandler(fn func(at time.Time, err error)) Option {
	return func(tc *TimeController) {
		tc.onError = fn
	}
}

// NewTimeController constructs a controller. A non-positive interval is
// raised to one second.
func NewTimeController(interval time.Duration, opts ...Option) *TimeController {
	if interval <= 0 {
		interval = time.Second
	}
	tc := &TimeController{
		Interval: interval,
		clock:    wallClock{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(tc)
		}
	}
	return tc
}

// AddListener registers a callback invoked on every tick, in registration
// order.
func (tc *TimeController) AddListener(fn Listener) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.listeners = append(tc.listeners, fn)
}

// Ticks reports how many ticks have fired.
func (tc *TimeController) Ticks() int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.ticks
}

// LastTick returns the time of the most recent tick, or the zero time.
func (tc *TimeController) LastTick() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.lastTick
}

// Run blocks, firing listeners on every tick. It returns nil once MaxTicks
// ticks have fired, or the context error when cancelled first.
func (tc *TimeController) Run(ctx context.Context) error {
	if tc.Immediate {
		if tc.fire(ctx) {
			return nil
		}
	}

	ticker := time.NewTicker(tc.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if tc.fire(ctx) {
				return nil
			}
		}
	}
}

// Start runs the controller in a separate goroutine. The returned channel
// receives Run's result and is then closed.
func (tc *TimeController) Start(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- tc.Run(ctx)
	}()
	return done
}

// fire runs one tick and reports whether MaxTicks has been reached.
func (tc *TimeController) fire(ctx context.Context) bool {
	at := tc.clock.Now()

	tc.mu.Lock()
	tc.ticks++
	tc.lastTick = at
	n := tc.ticks
	listeners := append([]Listener(nil), tc.listeners...)
	tc.mu.Unlock()

	for _, fn := range listeners {
		if err := fn(ctx, at); err != nil && tc.onError != nil {
			tc.onError(at, err)
		}
	}
	return tc.MaxTicks > 0 && n >= tc.MaxTicks
}
