package sequencer

// Undo history holds whole pattern copies, bounded at MaxUndo; the oldest
// entry is dropped first.

func (e *Engine) pushUndo() {
	if len(e.undo) >= MaxUndo {
		e.undo = e.undo[1:]
	}
	e.undo = append(e.undo, e.pattern)
	e.redo = e.redo[:0]
}

// Undo restores the pattern before the last destructive edit.
func (e *Engine) Undo() bool {
	if len(e.undo) == 0 {
		return false
	}
	if len(e.redo) >= MaxUndo {
		e.redo = e.redo[1:]
	}
	e.redo = append(e.redo, e.pattern)
	e.restore(e.undo[len(e.undo)-1])
	e.undo = e.undo[:len(e.undo)-1]
	e.log.Debug("undo", "remaining", len(e.undo))
	return true
}

// Redo re-applies the last undone edit.
func (e *Engine) Redo() bool {
	if len(e.redo) == 0 {
		return false
	}
	if len(e.undo) >= MaxUndo {
		e.undo = e.undo[1:]
	}
	e.undo = append(e.undo, e.pattern)
	e.restore(e.redo[len(e.redo)-1])
	e.redo = e.redo[:len(e.redo)-1]
	e.log.Debug("redo", "remaining", len(e.redo))
	return true
}

func (e *Engine) CanUndo() bool { return len(e.undo) > 0 }
func (e *Engine) CanRedo() bool { return len(e.redo) > 0 }

// restore swaps in p wholesale and refreshes derived timing.
func (e *Engine) restore(p Pattern) {
	e.pattern = p
	e.calculateStepInterval()
	if e.currentStep >= int(e.pattern.Length) {
		e.currentStep %= int(e.pattern.Length)
	}
}

// CopyTrack puts a copy of track on the engine clipboard.
func (e *Engine) CopyTrack(track int) bool {
	t := e.trackAt(track)
	if t == nil {
		return false
	}
	e.clipboard = *t
	e.hasClipboard = true
	return true
}

// PasteTrack replaces track with the clipboard contents. It fails when the
// clipboard is empty.
func (e *Engine) PasteTrack(track int) bool {
	t := e.trackAt(track)
	if t == nil || !e.hasClipboard {
		return false
	}
	e.pushUndo()
	*t = e.clipboard
	return true
}
