// Package app runs the host update loop: it drains new frames from every
// camera into the sinks, ticks the feature pollers and paces the trigger.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cjeanneret/GoVimba/internal/acquisition"
	"github.com/cjeanneret/GoVimba/internal/debug"
	"github.com/cjeanneret/GoVimba/internal/feature"
	"github.com/cjeanneret/GoVimba/internal/hw/trigger"
)

// Source is a camera whose latest frame can be polled.
type Source interface {
	ID() string
	CheckNewFrame() bool
	GetCurrentFrame() *acquisition.Image
}

// Sink receives every new frame.
type Sink interface {
	Publish(cameraID string, img *acquisition.Image) error
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithSink adds a frame sink.
func WithSink(s Sink) LoopOption {
	return func(l *Loop) { l.sinks = append(l.sinks, s) }
}

// WithPoller ticks p on every loop iteration.
func WithPoller(p *feature.Poller) LoopOption {
	return func(l *Loop) { l.pollers = append(l.pollers, p) }
}

// WithTrigger fires t every period.
func WithTrigger(t trigger.Trigger, period time.Duration) LoopOption {
	return func(l *Loop) {
		l.trigger = t
		l.triggerPeriod = period
	}
}

// WithLoopClock sets the clock read by Run.
func WithLoopClock(now func() time.Time) LoopOption {
	return func(l *Loop) {
		if now != nil {
			l.now = now
		}
	}
}

// Loop is the single goroutine that owns feature containers. Anything else
// that needs them goes through Do.
type Loop struct {
	interval time.Duration
	now      func() time.Time
	sources  []Source
	sinks    []Sink
	pollers  []*feature.Poller

	trigger       trigger.Trigger
	triggerPeriod time.Duration
	nextTrigger   time.Time

	ops chan func()

	ticks     uint64
	published uint64
}

// NewLoop builds a loop ticking every interval over sources.
func NewLoop(interval time.Duration, sources []Source, opts ...LoopOption) *Loop {
	l := &Loop{
		interval: interval,
		now:      time.Now,
		sources:  sources,
		ops:      make(chan func()),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Tick runs one update: new frames first, then feature polling, then the
// trigger. Failures are joined and do not stop the rest of the tick.
func (l *Loop) Tick(now time.Time) error {
	l.ticks++
	var errs []error

	for _, src := range l.sources {
		if !src.CheckNewFrame() {
			continue
		}
		img := src.GetCurrentFrame()
		if img == nil {
			continue
		}
		l.published++
		debug.Live("camera %s: frame %d to %d sink(s)", src.ID(), img.FrameID, len(l.sinks))
		for _, s := range l.sinks {
			if err := s.Publish(src.ID(), img); err != nil {
				errs = append(errs, fmt.Errorf("publish %s frame %d: %w", src.ID(), img.FrameID, err))
			}
		}
	}

	for _, p := range l.pollers {
		if err := p.Tick(now); err != nil {
			errs = append(errs, err)
		}
	}

	if l.trigger != nil && l.triggerPeriod > 0 && !now.Before(l.nextTrigger) {
		l.nextTrigger = now.Add(l.triggerPeriod)
		if err := l.trigger.Fire(); err != nil {
			errs = append(errs, fmt.Errorf("trigger: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Ticks returns how many ticks ran and how many frames were fanned out.
// It must be called from the loop goroutine or after Run returns.
func (l *Loop) Ticks() (ticks, frames uint64) { return l.ticks, l.published }

// Do runs fn on the loop goroutine and returns its error. It blocks until
// fn has run or ctx is done.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	op := func() { done <- fn() }
	select {
	case l.ops <- op:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run ticks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	debug.Info("host loop running every %v", l.interval)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			debug.Verbose("host loop stopped after %d ticks", l.ticks)
			return nil
		case op := <-l.ops:
			op()
		case <-ticker.C:
			if err := l.Tick(l.now()); err != nil {
				debug.Warn("tick: %v", err)
			}
		}
	}
}
