package sequencer

import "errors"

// TriggerSink receives trigger events synchronously from Tick, in track order.
type TriggerSink interface {
	Trigger(tr Trigger)
}

// TriggerFunc adapts a function to TriggerSink.
type TriggerFunc func(tr Trigger)

func (f TriggerFunc) Trigger(tr Trigger) { f(tr) }

// Discard drops every trigger.
var Discard TriggerSink = TriggerFunc(func(Trigger) {})

// Recorder keeps every trigger it receives. Useful as a test double and for
// offline rendering.
type Recorder struct {
	Triggers []Trigger
}

func (r *Recorder) Trigger(tr Trigger) { r.Triggers = append(r.Triggers, tr) }

// Reset drops all recorded triggers.
func (r *Recorder) Reset() { r.Triggers = r.Triggers[:0] }

// ForTrack returns the recorded triggers of one track.
func (r *Recorder) ForTrack(track int) []Trigger {
	var out []Trigger
	for _, tr := range r.Triggers {
		if tr.Track == track {
			out = append(out, tr)
		}
	}
	return out
}

// PatternStore persists whole patterns keyed by slot number.
type PatternStore interface {
	Load(slot int) (Pattern, error)
	Save(slot int, p Pattern) error
}

// RandSource is the uniform source used by probability conditions.
// *math/rand/v2.Rand satisfies it.
type RandSource interface {
	IntN(n int) int
}

// Persistence errors.
var (
	ErrNoStore   = errors.New("no pattern store configured")
	ErrSlotRange = errors.New("pattern slot out of range")
	ErrNotFound  = errors.New("pattern slot is empty")
)

// ValidSlot reports whether slot is a usable pattern slot.
func ValidSlot(slot int) bool { return slot >= 0 && slot < MaxPatterns }
