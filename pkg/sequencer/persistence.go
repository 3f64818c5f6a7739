package sequencer

import "fmt"

// LoadPattern replaces the current pattern with the one stored in slot. On
// any failure the in-memory pattern is left untouched and the error is
// returned for the caller to report.
func (e *Engine) LoadPattern(slot int) error {
	p, err := e.fetch(slot)
	if err != nil {
		e.log.Warn("pattern load failed", "slot", slot, "err", err)
		return err
	}
	e.pushUndo()
	e.restore(p)
	e.patternNumber = slot
	e.log.Debug("pattern loaded", "slot", slot)
	return nil
}

// SavePattern persists the current pattern into slot.
func (e *Engine) SavePattern(slot int) error {
	if e.store == nil {
		return ErrNoStore
	}
	if !ValidSlot(slot) {
		return fmt.Errorf("save slot %d: %w", slot, ErrSlotRange)
	}
	if err := e.store.Save(slot, e.pattern); err != nil {
		e.log.Warn("pattern save failed", "slot", slot, "err", err)
		return fmt.Errorf("save slot %d: %w", slot, err)
	}
	e.patternNumber = slot
	e.log.Debug("pattern saved", "slot", slot)
	return nil
}

// CopyPattern duplicates the pattern stored in from into to. The current
// pattern is not modified.
func (e *Engine) CopyPattern(from, to int) error {
	p, err := e.fetch(from)
	if err != nil {
		return err
	}
	if !ValidSlot(to) {
		return fmt.Errorf("copy to slot %d: %w", to, ErrSlotRange)
	}
	if err := e.store.Save(to, p); err != nil {
		return fmt.Errorf("copy to slot %d: %w", to, err)
	}
	e.log.Debug("pattern copied", "from", from, "to", to)
	return nil
}

// ImportPattern validates p and makes it the current pattern. Like a load it
// can be undone; the slot number is unchanged.
func (e *Engine) ImportPattern(p Pattern) error {
	if err := p.Validate(); err != nil {
		return err
	}
	e.pushUndo()
	e.restore(p)
	e.log.Debug("pattern imported", "length", p.Length)
	return nil
}

// CurrentPattern returns the slot number of the last loaded or saved pattern.
func (e *Engine) CurrentPattern() int { return e.patternNumber }

func (e *Engine) fetch(slot int) (Pattern, error) {
	if e.store == nil {
		return Pattern{}, ErrNoStore
	}
	if !ValidSlot(slot) {
		return Pattern{}, fmt.Errorf("load slot %d: %w", slot, ErrSlotRange)
	}
	p, err := e.store.Load(slot)
	if err != nil {
		return Pattern{}, fmt.Errorf("load slot %d: %w", slot, err)
	}
	if err := p.Validate(); err != nil {
		return Pattern{}, fmt.Errorf("load slot %d: %w", slot, err)
	}
	return p, nil
}
