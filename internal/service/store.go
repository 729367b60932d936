package service

import (
	"sync"
	"time"

	"asthma_shield/internal/models"
)

// StateStore holds the latest environment snapshot. Readers always get a
// deep copy.
type StateStore struct {
	mu         sync.RWMutex
	snap       models.EnvironmentSnapshot
	lastUpdate time.Time
}

func NewStateStore() *StateStore {
	return &StateStore{snap: models.EnvironmentSnapshot{HVACMode: models.HVACOff}}
}

// Snapshot returns an immutable copy of the stored snapshot.
func (s *StateStore) Snapshot() models.EnvironmentSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone()
}

// Replace overwrites the whole snapshot, as the sampling tick does.
func (s *StateStore) Replace(snap models.EnvironmentSnapshot, at time.Time) {
	snap = snap.Clone()
	snap.UpdatedAt = at.UTC()
	s.mu.Lock()
	s.snap = snap
	s.lastUpdate = snap.UpdatedAt
	s.mu.Unlock()
}

// Merge applies the supplied fields of u and returns the merged copy.
func (s *StateStore) Merge(u models.StateUpdate, at time.Time) models.EnvironmentSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = u.MergeInto(s.snap)
	s.snap.UpdatedAt = at.UTC()
	s.lastUpdate = s.snap.UpdatedAt
	return s.snap.Clone()
}

func (s *StateStore) LastUpdate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdate
}
