package store

import (
	"sync"

	"github.com/ohmyondas/ondas/pkg/sequencer"
)

// MemoryStore is a map-backed PatternStore, safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[int]sequencer.Pattern
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[int]sequencer.Pattern)}
}

func (m *MemoryStore) Load(slot int) (sequencer.Pattern, error) {
	if !sequencer.ValidSlot(slot) {
		return sequencer.Pattern{}, sequencer.ErrSlotRange
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.slots[slot]
	if !ok {
		return sequencer.Pattern{}, sequencer.ErrNotFound
	}
	return p, nil
}

func (m *MemoryStore) Save(slot int, p sequencer.Pattern) error {
	if !sequencer.ValidSlot(slot) {
		return sequencer.ErrSlotRange
	}
	m.mu.Lock()
	m.slots[slot] = p
	m.mu.Unlock()
	return nil
}

// Len returns the number of occupied slots.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.slots)
}
