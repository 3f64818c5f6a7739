package sequencer

import (
	"math"
	"time"
)

// maxSwingRatio is the share of a step that full swing moves from the odd
// step to the even one.
const maxSwingRatio = 1.0 / 3.0

// calculateStepInterval refreshes the cached interval and swing ratio. It
// runs whenever tempo, swing or the pattern changes.
func (e *Engine) calculateStepInterval() {
	e.stepInterval = StepDuration(e.Tempo())
	e.swingRatio = SwingRatio(int(e.pattern.Swing))
}

// StepDuration is the unswung sixteenth-note duration at bpm.
func StepDuration(bpm float64) time.Duration {
	return time.Duration(float64(time.Minute) / bpm / StepsPerBeat)
}

// SwingRatio maps 0..100 swing to a 0..1/3 timing ratio. It is 0 at 0,
// monotonic, and stays below 1 so no step is ever pushed past its successor.
func SwingRatio(swing int) float64 {
	s := float64(clampInt(swing, MinSwing, MaxSwing)) / MaxSwing
	if s == 0 {
		return 0
	}
	return maxSwingRatio * math.Pow(s, 1.6)
}

// nextInterval returns the gap before the next step. Swing alternates on
// processed steps rather than on the step index, so odd-length patterns keep
// alternating across the wrap and the average interval stays unswung. The
// first step after Stop, Reset or a jump to an even step gets the short gap.
func (e *Engine) nextInterval() time.Duration {
	if e.swingRatio <= 0 {
		return e.stepInterval
	}
	if e.swingLong {
		return SwungInterval(e.stepInterval, e.swingRatio, 0)
	}
	return SwungInterval(e.stepInterval, e.swingRatio, 1)
}

// SwungInterval applies a swing ratio to base for the gap following step.
func SwungInterval(base time.Duration, ratio float64, step int) time.Duration {
	if ratio <= 0 {
		return base
	}
	if step%2 == 0 {
		return time.Duration(float64(base) * (1 + ratio))
	}
	return time.Duration(float64(base) * (1 - ratio))
}
