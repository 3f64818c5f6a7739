// Package player hosts a sequencer engine: it owns the clock, drives Tick
// from a ticker and serializes every access to the engine.
package player

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ohmyondas/ondas/pkg/sequencer"
)

// DefaultResolution is the control loop period.
const DefaultResolution = time.Millisecond

// Player runs one engine. All methods are safe for concurrent use.
type Player struct {
	mu     sync.Mutex
	engine *sequencer.Engine

	clock      func() time.Time
	origin     time.Time
	resolution time.Duration
	log        *slog.Logger

	// Notified (coalesced) after every processed step and edit.
	updates chan struct{}
}

// Option configures a Player.
type Option func(*Player)

// WithResolution sets the ticker period of Run.
func WithResolution(d time.Duration) Option {
	return func(p *Player) {
		if d > 0 {
			p.resolution = d
		}
	}
}

// WithClock replaces the wall clock, for tests.
func WithClock(clock func() time.Time) Option {
	return func(p *Player) { p.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Player) { p.log = l }
}

// New wraps e. The player's clock starts now.
func New(e *sequencer.Engine, opts ...Option) *Player {
	p := &Player{
		engine:     e,
		clock:      time.Now,
		resolution: DefaultResolution,
		log:        slog.Default(),
		updates:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.origin = p.clock()
	return p
}

// Elapsed returns the monotonic offset fed to the engine.
func (p *Player) Elapsed() time.Duration {
	return p.clock().Sub(p.origin)
}

// Run drives the engine until ctx is cancelled.
func (p *Player) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.resolution)
	defer ticker.Stop()

	p.log.Info("player running", "resolution", p.resolution)
	for {
		select {
		case <-ctx.Done():
			p.log.Info("player stopped")
			return ctx.Err()
		case <-ticker.C:
			p.Tick()
		}
	}
}

// Tick runs one engine cycle at the current clock reading.
func (p *Player) Tick() bool {
	p.mu.Lock()
	stepped := p.engine.Tick(p.Elapsed())
	p.mu.Unlock()
	if stepped {
		p.notify()
	}
	return stepped
}

// Do runs fn with exclusive access to the engine. fn must not retain e.
func (p *Player) Do(fn func(e *sequencer.Engine)) {
	p.mu.Lock()
	fn(p.engine)
	p.mu.Unlock()
	p.notify()
}

// Start starts playback anchored at the current clock reading.
func (p *Player) Start() {
	p.Do(func(e *sequencer.Engine) { e.Start(p.Elapsed()) })
}

// Stop halts playback and rewinds.
func (p *Player) Stop() {
	p.Do(func(e *sequencer.Engine) { e.Stop() })
}

// Pause halts playback in place.
func (p *Player) Pause() {
	p.Do(func(e *sequencer.Engine) { e.Pause() })
}

// TogglePlay pauses a running engine and starts a stopped one.
func (p *Player) TogglePlay() {
	p.Do(func(e *sequencer.Engine) {
		if e.IsRunning() {
			e.Pause()
		} else {
			e.Start(p.Elapsed())
		}
	})
}

// Snapshot copies the engine state.
func (p *Player) Snapshot() sequencer.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.engine.Snapshot()
}

// Updates signals state changes. Notifications are coalesced: a reader sees
// at most one pending signal however many changes happened.
func (p *Player) Updates() <-chan struct{} {
	return p.updates
}

func (p *Player) notify() {
	select {
	case p.updates <- struct{}{}:
	default:
	}
}
