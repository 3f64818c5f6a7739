package sequencer

// Editing surface. Out-of-range indices are ignored: mutators return false
// and change nothing, queries return the zero default. The control surface
// cannot produce such values when wired correctly, and the control loop must
// never unwind on them, so nothing here panics or returns an error.

func validTrack(track int) bool { return track >= 0 && track < MaxTracks }

// stepAt returns the step when track is valid and step lies inside the
// active pattern length.
func (e *Engine) stepAt(track, step int) *Step {
	if !validTrack(track) || step < 0 || step >= int(e.pattern.Length) {
		return nil
	}
	return &e.pattern.Tracks[track].Steps[step]
}

func (e *Engine) trackAt(track int) *Track {
	if !validTrack(track) {
		return nil
	}
	return &e.pattern.Tracks[track]
}

// Tracks

// SelectTrack sets the track used by ToggleStep.
func (e *Engine) SelectTrack(track int) bool {
	if !validTrack(track) {
		return false
	}
	e.selectedTrack = track
	e.log.Debug("track selected", "track", track)
	return true
}

// SelectedTrack returns the track used by ToggleStep.
func (e *Engine) SelectedTrack() int { return e.selectedTrack }

func (e *Engine) setMuted(track int, muted bool) bool {
	t := e.trackAt(track)
	if t == nil {
		return false
	}
	t.Muted = muted
	return true
}

func (e *Engine) setSoloed(track int, soloed bool) bool {
	t := e.trackAt(track)
	if t == nil {
		return false
	}
	t.Soloed = soloed
	return true
}

func (e *Engine) MuteTrack(track int) bool   { return e.setMuted(track, true) }
func (e *Engine) UnmuteTrack(track int) bool { return e.setMuted(track, false) }
func (e *Engine) SoloTrack(track int) bool   { return e.setSoloed(track, true) }
func (e *Engine) UnsoloTrack(track int) bool { return e.setSoloed(track, false) }

// ToggleMute flips the mute flag of track.
func (e *Engine) ToggleMute(track int) bool {
	return e.setMuted(track, !e.IsTrackMuted(track))
}

// ToggleSolo flips the solo flag of track.
func (e *Engine) ToggleSolo(track int) bool {
	return e.setSoloed(track, !e.IsTrackSoloed(track))
}

func (e *Engine) IsTrackMuted(track int) bool {
	if t := e.trackAt(track); t != nil {
		return t.Muted
	}
	return false
}

func (e *Engine) IsTrackSoloed(track int) bool {
	if t := e.trackAt(track); t != nil {
		return t.Soloed
	}
	return false
}

// SetSourceSlot sets which external sample or input the track plays.
func (e *Engine) SetSourceSlot(track int, slot uint8) bool {
	t := e.trackAt(track)
	if t == nil {
		return false
	}
	t.SourceSlot = slot
	return true
}

// SetTrackVolume sets the track volume, clamped to 0..1.
func (e *Engine) SetTrackVolume(track int, volume float32) bool {
	t := e.trackAt(track)
	if t == nil {
		return false
	}
	t.Volume = clampFloat(volume, 0, 1)
	return true
}

// SetTrackPan sets the track pan, clamped to -1..1.
func (e *Engine) SetTrackPan(track int, pan float32) bool {
	t := e.trackAt(track)
	if t == nil {
		return false
	}
	t.Pan = clampFloat(pan, -1, 1)
	return true
}

// Track returns a copy of one track; the zero Track for an invalid index.
func (e *Engine) Track(track int) Track {
	if t := e.trackAt(track); t != nil {
		return *t
	}
	return Track{}
}

// Steps

// ToggleStep flips step on the selected track.
func (e *Engine) ToggleStep(step int) bool {
	return e.ToggleStepAt(e.selectedTrack, step)
}

// ToggleStepAt flips step on an explicit track.
func (e *Engine) ToggleStepAt(track, step int) bool {
	s := e.stepAt(track, step)
	if s == nil {
		return false
	}
	s.Active = !s.Active
	e.log.Debug("step toggled", "track", track, "step", step, "active", s.Active)
	return true
}

// SetStep arms or disarms (track, step).
func (e *Engine) SetStep(track, step int, active bool) bool {
	s := e.stepAt(track, step)
	if s == nil {
		return false
	}
	s.Active = active
	return true
}

// GetStep reports whether (track, step) is armed.
func (e *Engine) GetStep(track, step int) bool {
	if s := e.stepAt(track, step); s != nil {
		return s.Active
	}
	return false
}

// HasStep reports whether any track has step armed.
func (e *Engine) HasStep(step int) bool {
	for t := 0; t < MaxTracks; t++ {
		if e.GetStep(t, step) {
			return true
		}
	}
	return false
}

// Step returns a copy of (track, step); the zero Step for invalid input.
func (e *Engine) Step(track, step int) Step {
	if s := e.stepAt(track, step); s != nil {
		return *s
	}
	return Step{}
}

// SetTrigCondition sets the condition of (track, step).
func (e *Engine) SetTrigCondition(track, step int, c TrigCondition) bool {
	s := e.stepAt(track, step)
	if s == nil || !c.Valid() {
		return false
	}
	s.Condition = c
	return true
}

// TrigCondition returns the condition of (track, step); TrigAlways for
// invalid input.
func (e *Engine) TrigCondition(track, step int) TrigCondition {
	if s := e.stepAt(track, step); s != nil {
		return s.Condition
	}
	return TrigAlways
}

// SetVelocity sets the step velocity, clamped to 0..127.
func (e *Engine) SetVelocity(track, step, velocity int) bool {
	s := e.stepAt(track, step)
	if s == nil {
		return false
	}
	s.Velocity = uint8(clampInt(velocity, 0, MaxVelocity))
	return true
}

// SetPitchOffset sets the step pitch offset in semitones, clamped to int8.
func (e *Engine) SetPitchOffset(track, step, semitones int) bool {
	s := e.stepAt(track, step)
	if s == nil {
		return false
	}
	s.PitchOffset = int8(clampInt(semitones, -128, 127))
	return true
}

// SetSampleSlice sets the slice index played by the step.
func (e *Engine) SetSampleSlice(track, step int, slice uint8) bool {
	s := e.stepAt(track, step)
	if s == nil {
		return false
	}
	s.SampleSlice = slice
	return true
}

// Pattern settings

// SetLength sets the active step count, clamped to 1..MaxSteps. The
// playhead wraps into the new length.
func (e *Engine) SetLength(length int) {
	e.pattern.Length = uint8(clampInt(length, 1, MaxSteps))
	if e.currentStep >= int(e.pattern.Length) {
		e.currentStep %= int(e.pattern.Length)
	}
}

// Length returns the active step count.
func (e *Engine) Length() int { return int(e.pattern.Length) }

// Pattern returns a copy of the current pattern.
func (e *Engine) Pattern() Pattern { return e.pattern }

// ClearPattern resets the pattern to defaults.
func (e *Engine) ClearPattern() {
	e.pushUndo()
	e.pattern.Clear()
	e.calculateStepInterval()
	if e.currentStep >= int(e.pattern.Length) {
		e.currentStep = 0
	}
	e.log.Debug("pattern cleared")
}

// ClearTrack resets every step of track and its ordinal counter. Mix
// settings (mute, solo, source, volume, pan) are kept.
func (e *Engine) ClearTrack(track int) bool {
	t := e.trackAt(track)
	if t == nil {
		return false
	}
	e.pushUndo()
	for s := range t.Steps {
		t.Steps[s] = defaultStep()
	}
	e.triggerCounts[track] = 0
	return true
}

// RandomizeTrack arms each step inside the pattern length with probability
// density (0..1), drawing from the engine's random source.
func (e *Engine) RandomizeTrack(track int, density float64) bool {
	t := e.trackAt(track)
	if t == nil {
		return false
	}
	e.pushUndo()
	threshold := int(clampFloat(float32(density), 0, 1) * 1000)
	for s := 0; s < int(e.pattern.Length); s++ {
		t.Steps[s].Active = e.rng.IntN(1000) < threshold
	}
	return true
}

// ApplyEuclidean arms track with a Euclidean rhythm of hits over steps,
// rotated left by rotation. Steps past the rhythm or the pattern length are
// disarmed.
func (e *Engine) ApplyEuclidean(track, hits, steps, rotation int) bool {
	t := e.trackAt(track)
	if t == nil || steps < 1 || steps > MaxSteps {
		return false
	}
	e.pushUndo()
	rhythm := Euclidean(hits, steps, rotation)
	for s := 0; s < int(e.pattern.Length); s++ {
		t.Steps[s].Active = s < len(rhythm) && rhythm[s]
	}
	e.log.Debug("euclidean applied", "track", track, "hits", hits, "steps", steps, "rotation", rotation)
	return true
}

func clampFloat(v, lo, hi float32) float32 {
	if v != v || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
