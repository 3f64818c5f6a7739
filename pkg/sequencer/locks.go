package sequencer

// Parameter locks override a playback parameter for the single trigger of the
// step that carries them. Values are stored unclamped; the playback
// collaborator owns per-parameter ranges.

func resolveLocks(s *Step) Overrides {
	var o Overrides
	for p := ParamType(0); p < NumParams; p++ {
		if s.HasLock[p] {
			o.Values[p] = s.Locks[p]
			o.Set[p] = true
		}
	}
	return o
}

// SetParamLock stores value for param on (track, step) and marks it present.
func (e *Engine) SetParamLock(track, step int, param ParamType, value float32) bool {
	s := e.stepAt(track, step)
	if s == nil || !param.Valid() {
		return false
	}
	s.Locks[param] = value
	s.HasLock[param] = true
	return true
}

// ClearParamLock removes the presence flag of one lock. The stored value is
// left behind and must not be read until set again.
func (e *Engine) ClearParamLock(track, step int, param ParamType) bool {
	s := e.stepAt(track, step)
	if s == nil || !param.Valid() {
		return false
	}
	s.HasLock[param] = false
	return true
}

// ClearAllParamLocks removes every lock on (track, step).
func (e *Engine) ClearAllParamLocks(track, step int) bool {
	s := e.stepAt(track, step)
	if s == nil {
		return false
	}
	s.HasLock = [NumParams]bool{}
	return true
}

// HasParamLock reports whether param is locked on (track, step); false for
// invalid input.
func (e *Engine) HasParamLock(track, step int, param ParamType) bool {
	s := e.stepAt(track, step)
	if s == nil || !param.Valid() {
		return false
	}
	return s.HasLock[param]
}

// ParamLock returns the stored lock value; 0 for invalid input.
func (e *Engine) ParamLock(track, step int, param ParamType) float32 {
	s := e.stepAt(track, step)
	if s == nil || !param.Valid() {
		return 0
	}
	return s.Locks[param]
}

// StepLocks returns the resolved locks of (track, step).
func (e *Engine) StepLocks(track, step int) Overrides {
	s := e.stepAt(track, step)
	if s == nil {
		return Overrides{}
	}
	return resolveLocks(s)
}
