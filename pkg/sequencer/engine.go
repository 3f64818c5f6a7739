package sequencer

import (
	"log/slog"
	"math/rand/v2"
	"time"
)

// Engine owns all sequencing state. It performs no locking: exactly one
// logical thread of control may call into it (see player.Player for a host
// that serializes access).
type Engine struct {
	pattern       Pattern
	patternNumber int

	selectedTrack int
	currentStep   int
	running       bool
	fillMode      bool
	globalBPM     float64

	lastStep      time.Duration
	stepInterval  time.Duration
	swingRatio    float64
	swingLong     bool
	triggerCounts [MaxTracks]int

	sink  TriggerSink
	store PatternStore
	rng   RandSource
	log   *slog.Logger

	clipboard    Track
	hasClipboard bool
	undo         []Pattern
	redo         []Pattern
}

// Option configures an Engine.
type Option func(*Engine)

// WithStore sets the persistence collaborator used by LoadPattern/SavePattern/CopyPattern.
func WithStore(s PatternStore) Option {
	return func(e *Engine) { e.store = s }
}

// WithRand sets the uniform source used by probability conditions.
func WithRand(r RandSource) Option {
	return func(e *Engine) { e.rng = r }
}

// WithSeed makes probability conditions reproducible.
func WithSeed(seed uint64) Option {
	return func(e *Engine) { e.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithLogger sets the logger. Transport and pattern events log at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithTempo sets the initial global tempo (clamped).
func WithTempo(bpm float64) Option {
	return func(e *Engine) { e.globalBPM = clampTempo(bpm) }
}

// New creates an engine with a cleared pattern. A nil sink discards triggers.
func New(sink TriggerSink, opts ...Option) *Engine {
	if sink == nil {
		sink = Discard
	}
	e := &Engine{
		sink:      sink,
		globalBPM: DefaultTempo,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.rng == nil {
		seed := uint64(time.Now().UnixNano())
		e.rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	e.pattern.Clear()
	e.calculateStepInterval()
	return e
}

// Transport

// Start sets running and anchors the next step boundary to now. The
// position is left untouched.
func (e *Engine) Start(now time.Duration) {
	e.running = true
	e.lastStep = now
	e.log.Debug("sequencer started", "step", e.currentStep)
}

// Stop halts playback, rewinds to step 0 and clears trigger counters.
func (e *Engine) Stop() {
	e.running = false
	e.currentStep = 0
	e.swingLong = false
	e.clearCounts()
	e.log.Debug("sequencer stopped")
}

// Pause halts playback without touching the position.
func (e *Engine) Pause() {
	e.running = false
	e.log.Debug("sequencer paused", "step", e.currentStep)
}

// Reset rewinds to step 0 and clears trigger counters without changing running.
func (e *Engine) Reset() {
	e.currentStep = 0
	e.swingLong = false
	e.clearCounts()
	e.log.Debug("sequencer reset")
}

// IsRunning reports whether time advances on Tick.
func (e *Engine) IsRunning() bool { return e.running }

// Tick is the per-cycle driver. At most one step is processed per call even
// when several intervals have elapsed; the boundary is re-anchored to now, so
// busy cycles drift rather than burst. It reports whether a step was processed.
func (e *Engine) Tick(now time.Duration) bool {
	if !e.running {
		return false
	}
	if now-e.lastStep < e.nextInterval() {
		return false
	}
	e.lastStep = now
	e.swingLong = !e.swingLong

	anySoloed := e.pattern.AnySoloed()
	for t := 0; t < MaxTracks; t++ {
		track := &e.pattern.Tracks[t]
		if track.Muted {
			continue
		}
		if anySoloed && !track.Soloed {
			continue
		}
		if e.evaluate(t, e.currentStep) {
			e.triggerStep(t, e.currentStep)
		}
	}

	e.currentStep = (e.currentStep + 1) % int(e.pattern.Length)
	if e.currentStep == 0 {
		e.clearCounts()
	}
	return true
}

func (e *Engine) clearCounts() {
	e.triggerCounts = [MaxTracks]int{}
}

// Tempo

// SetTempo clamps bpm to MinTempo..MaxTempo and recomputes the step interval.
func (e *Engine) SetTempo(bpm float64) {
	e.globalBPM = clampTempo(bpm)
	e.calculateStepInterval()
	e.log.Debug("tempo changed", "bpm", e.globalBPM)
}

// GlobalTempo returns the global tempo regardless of any pattern override.
func (e *Engine) GlobalTempo() float64 { return e.globalBPM }

// Tempo returns the effective tempo: the pattern override when set, else global.
func (e *Engine) Tempo() float64 {
	if e.pattern.BPM > 0 {
		return float64(e.pattern.BPM)
	}
	return e.globalBPM
}

// SetBPMOverride sets the pattern tempo; 0 clears the override. Non-zero
// values are clamped to the tempo range.
func (e *Engine) SetBPMOverride(bpm float64) {
	if bpm <= 0 {
		e.pattern.BPM = 0
	} else {
		e.pattern.BPM = float32(clampTempo(bpm))
	}
	e.calculateStepInterval()
}

// BPMOverride returns the pattern tempo, 0 when following the global tempo.
func (e *Engine) BPMOverride() float64 { return float64(e.pattern.BPM) }

// AdjustSwing moves swing by delta, clamped to 0..100.
func (e *Engine) AdjustSwing(delta int) {
	e.SetSwing(int(e.pattern.Swing) + delta)
}

// SetSwing sets swing, clamped to 0..100.
func (e *Engine) SetSwing(swing int) {
	e.pattern.Swing = uint8(clampInt(swing, MinSwing, MaxSwing))
	e.calculateStepInterval()
	e.log.Debug("swing changed", "swing", e.pattern.Swing)
}

// Swing returns the pattern swing percentage.
func (e *Engine) Swing() int { return int(e.pattern.Swing) }

// StepInterval returns the unswung duration between steps.
func (e *Engine) StepInterval() time.Duration { return e.stepInterval }

// Position

// CurrentStep returns the index of the next step to be evaluated.
func (e *Engine) CurrentStep() int { return e.currentStep }

// CurrentBar returns the beat index (four steps) of the current step.
func (e *Engine) CurrentBar() int { return e.currentStep / StepsPerBeat }

// SetPosition moves the playhead, wrapping into the pattern length.
func (e *Engine) SetPosition(step int) bool {
	if step < 0 {
		return false
	}
	e.currentStep = step % int(e.pattern.Length)
	e.swingLong = e.currentStep%2 == 1
	return true
}

// TriggerCount returns the ordinal counter of a track, 0 for an invalid index.
func (e *Engine) TriggerCount(track int) int {
	if !validTrack(track) {
		return 0
	}
	return e.triggerCounts[track]
}

// Fill mode

// SetFillMode switches fill mode on or off.
func (e *Engine) SetFillMode(on bool) {
	e.fillMode = on
	e.log.Debug("fill mode", "on", on)
}

// FillMode reports whether fill mode is on.
func (e *Engine) FillMode() bool { return e.fillMode }

func clampTempo(bpm float64) float64 {
	if bpm != bpm || bpm < MinTempo { // NaN clamps low
		return MinTempo
	}
	if bpm > MaxTempo {
		return MaxTempo
	}
	return bpm
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
