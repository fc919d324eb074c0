package livereload

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultDebounce is the window during which repeated filesystem events are
// merged into a single reload decision. Editors commonly emit several events
// per save.
const DefaultDebounce = 250 * time.Millisecond

// Window is one closed debounce window: the merged signal plus what kinds of
// events contributed to it.
type Window struct {
	Signal       Signal
	Events       int
	SawTemplates bool
	Opened       time.Time
}

// Debouncer coalesces bursts of raw events into one decision per window.
// Events never skip classification; the merged signal is computed as events
// arrive and emitted exactly once when the window closes.
type Debouncer struct {
	window time.Duration
	emit   func(Window)
	logger *zap.Logger
}

// NewDebouncer creates a debouncer that calls emit once per closed window.
func NewDebouncer(window time.Duration, emit func(Window), logger *zap.Logger) *Debouncer {
	if window <= 0 {
		window = DefaultDebounce
	}
	return &Debouncer{window: window, emit: emit, logger: logger}
}

// Run consumes raw events until ctx is cancelled or events is closed.
// The first event of a burst arms the window timer; every later event resets
// it and folds into the pending signal. On expiry exactly one Window is
// emitted, regardless of how many events or categories it contained.
func (d *Debouncer) Run(ctx context.Context, events <-chan RawEvent) {
	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending Window
	)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-events:
			if !ok {
				if timer != nil {
					timer.Stop()
				}
				return
			}
			if pending.Events == 0 {
				pending = Window{Signal: Classify(ev), Opened: time.Now()}
			} else {
				pending.Signal = Merge(pending.Signal, Classify(ev))
			}
			pending.Events++
			if ev.Category == CategoryTemplate {
				pending.SawTemplates = true
			}

			if timer == nil {
				timer = time.NewTimer(d.window)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(d.window)
			}

		case <-timerC:
			if pending.Events > 0 {
				d.logger.Debug("debounce window closed",
					zap.String("signal", pending.Signal.String()),
					zap.Int("events", pending.Events),
					zap.Bool("templates", pending.SawTemplates),
				)
				d.emit(pending)
				pending = Window{}
			}
			timer = nil
			timerC = nil
		}
	}
}
