package player

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ohmyondas/ondas/pkg/sequencer"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// syncRecorder guards a Recorder for use across goroutines.
type syncRecorder struct {
	mu  sync.Mutex
	rec sequencer.Recorder
}

func (s *syncRecorder) Trigger(tr sequencer.Trigger) {
	s.mu.Lock()
	s.rec.Trigger(tr)
	s.mu.Unlock()
}

func (s *syncRecorder) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rec.Triggers)
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestPlayer(sink sequencer.TriggerSink, clock *fakeClock) *Player {
	e := sequencer.New(sink, sequencer.WithLogger(quiet()), sequencer.WithSeed(1))
	return New(e, WithClock(clock.Now), WithLogger(quiet()))
}

func drain(ch <-chan struct{}) {
	select {
	case <-ch:
	default:
	}
}

func TestTickUsesPlayerClock(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	rec := &syncRecorder{}
	p := newTestPlayer(rec, clock)
	p.Do(func(e *sequencer.Engine) { e.SetStep(0, 0, true) })
	p.Start()

	clock.Advance(100 * time.Millisecond)
	if p.Tick() {
		t.Fatal("stepped before the interval elapsed")
	}
	clock.Advance(25 * time.Millisecond)
	if !p.Tick() {
		t.Fatal("expected a step at 125ms")
	}
	if rec.Len() != 1 {
		t.Errorf("triggers = %d, want 1", rec.Len())
	}
	if s := p.Snapshot(); s.CurrentStep != 1 || !s.Running {
		t.Errorf("snapshot step=%d running=%v", s.CurrentStep, s.Running)
	}
}

func TestUpdatesAreCoalesced(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	p := newTestPlayer(nil, clock)
	drain(p.Updates())

	for i := 0; i < 5; i++ {
		p.Do(func(e *sequencer.Engine) { e.ToggleStep(i) })
	}
	select {
	case <-p.Updates():
	default:
		t.Fatal("expected a pending update")
	}
	select {
	case <-p.Updates():
		t.Fatal("updates should coalesce into one signal")
	default:
	}
}

func TestTogglePlay(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	p := newTestPlayer(nil, clock)

	p.TogglePlay()
	clock.Advance(time.Second)
	p.Tick()
	p.TogglePlay()
	s := p.Snapshot()
	if s.Running || s.CurrentStep != 1 {
		t.Errorf("after pause running=%v step=%d, want false/1", s.Running, s.CurrentStep)
	}

	p.Stop()
	if s := p.Snapshot(); s.CurrentStep != 0 {
		t.Errorf("after stop step=%d, want 0", s.CurrentStep)
	}
}

func TestRunDrivesEngine(t *testing.T) {
	rec := &syncRecorder{}
	e := sequencer.New(rec, sequencer.WithLogger(quiet()), sequencer.WithTempo(sequencer.MaxTempo))
	p := New(e, WithLogger(quiet()))
	p.Do(func(e *sequencer.Engine) {
		for s := 0; s < e.Length(); s++ {
			e.SetStep(0, s, true)
		}
	})
	p.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := p.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() = %v, want deadline exceeded", err)
	}

	// 50ms steps over 300ms; allow for scheduler jitter.
	if n := rec.Len(); n < 2 || n > 6 {
		t.Errorf("triggers = %d, want 2..6", n)
	}
}

func TestConcurrentAccess(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	p := newTestPlayer(nil, clock)
	p.Start()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(track int) {
			defer wg.Done()
			for s := 0; s < 16; s++ {
				p.Do(func(e *sequencer.Engine) { e.ToggleStepAt(track, s) })
				clock.Advance(10 * time.Millisecond)
				p.Tick()
				_ = p.Snapshot()
			}
		}(i)
	}
	wg.Wait()

	s := p.Snapshot()
	for track := 0; track < 8; track++ {
		for step := 0; step < 16; step++ {
			if !s.Pattern.Tracks[track].Steps[step].Active {
				t.Fatalf("track %d step %d lost an edit", track, step)
			}
		}
	}
}
