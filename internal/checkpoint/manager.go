package checkpoint

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"hbar_recovery/internal/pattern"
)

// Manager hands candidates to workers and periodically snapshots the
// generator's cursors.
//
// For every draw it remembers the cursor state as it was before the
// candidate came out. A snapshot persists the state belonging to the oldest
// still-in-flight candidate (or the current state when nothing is in
// flight), so resuming from any snapshot regenerates every candidate whose
// outcome might not have been persisted. Replays are idempotent because the
// dedupe ledger rejects fingerprints with recorded test results.
type Manager struct {
	mu        sync.Mutex
	gen       *pattern.Generator
	store     *Store
	every     uint64
	seq       uint64
	completed uint64
	inflight  map[uint64]pattern.State
	log       *logrus.Logger
}

// NewManager wires gen to store, snapshotting every `every` completed
// candidates and on Flush.
func NewManager(gen *pattern.Generator, store *Store, every uint64, log *logrus.Logger) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if every == 0 {
		every = 1000
	}
	return &Manager{
		gen:      gen,
		store:    store,
		every:    every,
		inflight: make(map[uint64]pattern.State),
		log:      log,
	}
}

// Load restores the generator from the last snapshot. Reports whether a
// snapshot existed.
func (m *Manager) Load() (bool, error) {
	blob, err := m.store.GetCursors()
	if err != nil {
		return false, err
	}
	if blob == nil {
		return false, nil
	}
	var state pattern.State
	if err := json.Unmarshal(blob, &state); err != nil {
		return false, fmt.Errorf("decoding cursor snapshot: %w", err)
	}
	if err := m.gen.Restore(state); err != nil {
		return false, err
	}
	m.log.WithField("strategies", len(state.Ordinals)).Info("resumed from checkpoint")
	return true, nil
}

// Draw advances the generator one step and registers the candidate as
// in flight. The returned token must be handed back through Complete.
func (m *Manager) Draw() (pattern.Candidate, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cand, before, err := m.gen.DrawWithState()
	if err != nil {
		return pattern.Candidate{}, 0, err
	}
	m.seq++
	m.inflight[m.seq] = before
	return cand, m.seq, nil
}

// Complete retires an in-flight candidate and snapshots on cadence. A
// snapshot write failure is returned to the caller, which must treat it as
// fatal.
func (m *Manager) Complete(token uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.inflight, token)
	m.completed++
	if m.completed%m.every == 0 {
		return m.snapshotLocked()
	}
	return nil
}

// Flush snapshots immediately. Called on shutdown.
func (m *Manager) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() error {
	state := m.safeStateLocked()
	blob, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding cursor snapshot: %w", err)
	}
	if err := m.store.PutCursors(blob); err != nil {
		return err
	}
	m.log.WithField("completed", m.completed).Debug("cursor snapshot written")
	return nil
}

// safeStateLocked picks the state that covers all unfinished work: the
// pre-draw state of the oldest in-flight candidate, or the live cursors
// when nothing is in flight.
func (m *Manager) safeStateLocked() pattern.State {
	if len(m.inflight) == 0 {
		return m.gen.Cursors()
	}
	var oldest uint64
	for token := range m.inflight {
		if oldest == 0 || token < oldest {
			oldest = token
		}
	}
	return m.inflight[oldest]
}
