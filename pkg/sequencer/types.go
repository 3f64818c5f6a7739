// Package sequencer implements the step sequencer engine: transport and timing,
// trig condition evaluation, parameter locks and the pattern editing surface.
package sequencer

import (
	"errors"
	"fmt"
	"strings"
)

// Fixed limits. Storage is allocated for the maximum; nothing resizes at runtime.
const (
	MaxTracks     = 8
	MaxSteps      = 64
	DefaultLength = 16
	MaxPatterns   = 64

	MinTempo     = 40.0
	MaxTempo     = 300.0
	DefaultTempo = 120.0

	MinSwing = 0
	MaxSwing = 100

	MaxVelocity = 127
	MaxUndo     = 50

	// StepsPerBeat is the step resolution: sixteenth notes.
	StepsPerBeat = 4
)

// TrigCondition decides whether an armed step fires on a given pass.
type TrigCondition uint8

const (
	TrigAlways TrigCondition = iota
	TrigFill
	TrigNotFill
	TrigPre
	TrigNei
	TrigProb25
	TrigProb50
	TrigProb75
	Trig1st
	Trig2nd
	Trig3rd
	Trig4th
	NumConditions
)

var conditionNames = [NumConditions]string{
	"always", "fill", "not_fill", "pre", "nei",
	"prob25", "prob50", "prob75",
	"1st", "2nd", "3rd", "4th",
}

func (c TrigCondition) String() string {
	if c < NumConditions {
		return conditionNames[c]
	}
	return fmt.Sprintf("condition(%d)", c)
}

// Valid reports whether c is one of the defined conditions.
func (c TrigCondition) Valid() bool { return c < NumConditions }

// ParseCondition maps a condition name back to its value.
func ParseCondition(s string) (TrigCondition, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range conditionNames {
		if name == s {
			return TrigCondition(i), nil
		}
	}
	return TrigAlways, fmt.Errorf("unknown trig condition %q", s)
}

func (c TrigCondition) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid trig condition %d", c)
	}
	return []byte(c.String()), nil
}

func (c *TrigCondition) UnmarshalText(b []byte) error {
	v, err := ParseCondition(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ParamType identifies a lockable playback parameter.
type ParamType uint8

const (
	ParamPitch ParamType = iota
	ParamVolume
	ParamPan
	ParamFilterFreq
	ParamFilterRes
	ParamFXSend1
	ParamFXSend2
	ParamSampleStart
	ParamSampleEnd
	NumParams
)

var paramNames = [NumParams]string{
	"pitch", "volume", "pan", "filter_freq", "filter_res",
	"fx_send_1", "fx_send_2", "sample_start", "sample_end",
}

func (p ParamType) String() string {
	if p < NumParams {
		return paramNames[p]
	}
	return fmt.Sprintf("param(%d)", p)
}

// Valid reports whether p is one of the defined parameter kinds.
func (p ParamType) Valid() bool { return p < NumParams }

// ParseParam maps a parameter name back to its value.
func ParseParam(s string) (ParamType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range paramNames {
		if name == s {
			return ParamType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown parameter %q", s)
}

// Step is the smallest addressable unit of a track.
type Step struct {
	Active      bool               `json:"active"`
	Condition   TrigCondition      `json:"condition"`
	Velocity    uint8              `json:"velocity"`
	PitchOffset int8               `json:"pitchOffset"`
	SampleSlice uint8              `json:"sampleSlice"`
	Locks       [NumParams]float32 `json:"locks"`
	HasLock     [NumParams]bool    `json:"hasLock"`
}

// Track is one voice lane of a pattern.
type Track struct {
	Muted      bool           `json:"muted"`
	Soloed     bool           `json:"soloed"`
	SourceSlot uint8          `json:"sourceSlot"`
	Volume     float32        `json:"volume"`
	Pan        float32        `json:"pan"`
	Steps      [MaxSteps]Step `json:"steps"`
}

// Pattern is the unit of sequencing data.
type Pattern struct {
	Length uint8            `json:"length"`
	Swing  uint8            `json:"swing"`
	BPM    float32          `json:"bpm"` // 0 = follow global tempo
	Tracks [MaxTracks]Track `json:"tracks"`
}

// ErrInvalidPattern is returned by Validate for out-of-range pattern data.
var ErrInvalidPattern = errors.New("invalid pattern")

func defaultStep() Step {
	return Step{Condition: TrigAlways, Velocity: MaxVelocity}
}

func defaultTrack(slot int) Track {
	t := Track{SourceSlot: uint8(slot), Volume: 1.0}
	for s := range t.Steps {
		t.Steps[s] = defaultStep()
	}
	return t
}

// NewPattern returns a pattern with every field at its default.
func NewPattern() Pattern {
	var p Pattern
	p.Clear()
	return p
}

// Clear resets every field to its default.
func (p *Pattern) Clear() {
	p.Length = DefaultLength
	p.Swing = 0
	p.BPM = 0
	for t := range p.Tracks {
		p.Tracks[t] = defaultTrack(t)
	}
}

// AnySoloed reports whether at least one track is soloed.
func (p *Pattern) AnySoloed() bool {
	for t := range p.Tracks {
		if p.Tracks[t].Soloed {
			return true
		}
	}
	return false
}

// Validate checks ranges on data that did not come through the engine's
// editing operations (files, imports).
func (p *Pattern) Validate() error {
	if p.Length < 1 || int(p.Length) > MaxSteps {
		return fmt.Errorf("%w: length %d out of range 1..%d", ErrInvalidPattern, p.Length, MaxSteps)
	}
	if p.Swing > MaxSwing {
		return fmt.Errorf("%w: swing %d out of range 0..%d", ErrInvalidPattern, p.Swing, MaxSwing)
	}
	if p.BPM != 0 && (p.BPM < MinTempo || p.BPM > MaxTempo) {
		return fmt.Errorf("%w: bpm %.1f out of range", ErrInvalidPattern, p.BPM)
	}
	for t := range p.Tracks {
		for s := range p.Tracks[t].Steps {
			st := &p.Tracks[t].Steps[s]
			if !st.Condition.Valid() {
				return fmt.Errorf("%w: track %d step %d condition %d", ErrInvalidPattern, t, s, st.Condition)
			}
			if st.Velocity > MaxVelocity {
				return fmt.Errorf("%w: track %d step %d velocity %d", ErrInvalidPattern, t, s, st.Velocity)
			}
		}
	}
	return nil
}

// Overrides is the resolved set of parameter locks for one trigger.
type Overrides struct {
	Values [NumParams]float32
	Set    [NumParams]bool
}

// Get returns the override for p and whether it is present.
func (o Overrides) Get(p ParamType) (float32, bool) {
	if !p.Valid() || !o.Set[p] {
		return 0, false
	}
	return o.Values[p], true
}

// Len returns the number of present overrides.
func (o Overrides) Len() int {
	n := 0
	for _, ok := range o.Set {
		if ok {
			n++
		}
	}
	return n
}

// Trigger is emitted to the playback collaborator for every firing step.
type Trigger struct {
	Track       int
	Step        int
	SourceSlot  uint8
	Velocity    uint8
	PitchOffset int8
	SampleSlice uint8
	Volume      float32
	Pan         float32
	Overrides   Overrides
}
