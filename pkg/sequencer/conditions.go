package sequencer

import (
	"context"
	"log/slog"
)

// levelTrace sits below debug; per-trigger logging only shows up there.
const levelTrace = slog.LevelDebug - 4

// evaluate decides fire/no-fire for (track, step) on this pass. Ordinal
// conditions bump the track's counter on every evaluation of an active step,
// whatever the outcome; the counter is shared by all steps of the track.
func (e *Engine) evaluate(track, step int) bool {
	steps := &e.pattern.Tracks[track].Steps
	s := &steps[step]
	if !s.Active {
		return false
	}

	switch s.Condition {
	case TrigAlways:
		return true
	case TrigFill:
		return e.fillMode
	case TrigNotFill:
		return !e.fillMode
	case TrigPre, TrigNei:
		// No wraparound: step 0 has no predecessor.
		return step > 0 && steps[step-1].Active
	case TrigProb25:
		return e.rng.IntN(100) < 25
	case TrigProb50:
		return e.rng.IntN(100) < 50
	case TrigProb75:
		return e.rng.IntN(100) < 75
	case Trig1st, Trig2nd, Trig3rd, Trig4th:
		e.triggerCounts[track]++
		return e.triggerCounts[track] == int(s.Condition-Trig1st)+1
	default:
		return true
	}
}

// triggerStep resolves the step's locks and hands the event to the sink.
func (e *Engine) triggerStep(track, step int) {
	t := &e.pattern.Tracks[track]
	s := &t.Steps[step]
	tr := Trigger{
		Track:       track,
		Step:        step,
		SourceSlot:  t.SourceSlot,
		Velocity:    s.Velocity,
		PitchOffset: s.PitchOffset,
		SampleSlice: s.SampleSlice,
		Volume:      t.Volume,
		Pan:         t.Pan,
		Overrides:   resolveLocks(s),
	}
	if ctx := context.Background(); e.log.Enabled(ctx, levelTrace) {
		e.log.Log(ctx, levelTrace, "trigger", "track", track, "step", step, "velocity", s.Velocity, "locks", tr.Overrides.Len())
	}
	e.sink.Trigger(tr)
}
