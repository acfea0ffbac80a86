// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

package bus

import (
	"sort"
	"sync"
)

// StateStore caches the most recent event per (type, producer). Entries
// are overwritten whole, never merged, and reads return copies, so a
// caller can never observe a torn update or alias internal state.
//
// StateStore is safe for concurrent use: readers proceed during writes
// and writers are serialized.
type StateStore struct {
	mu      sync.RWMutex
	entries map[EventKey]Event
}

// NewStateStore creates an empty store.
func NewStateStore() *StateStore {
	return &StateStore{entries: make(map[EventKey]Event)}
}

// Record stores e as the latest event for its key. Stale sequence
// numbers are rejected so concurrent writers cannot regress a key: the
// most recent event for a live producer is never lost.
func (s *StateStore) Record(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.entries[e.Key()]; ok && cur.Seq >= e.Seq {
		return
	}
	s.entries[e.Key()] = e
}

// Latest returns the most recent event for (eventType, producer).
func (s *StateStore) Latest(eventType string, producer int) (Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[EventKey{Type: eventType, Producer: producer}]
	return e, ok
}

// All returns the latest event of eventType from every producer,
// ordered by producer id.
func (s *StateStore) All(eventType string) []Event {
	s.mu.RLock()
	out := make([]Event, 0, 4)
	for key, e := range s.entries {
		if key.Type == eventType {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Producer < out[j].Producer })
	return out
}

// Len returns the number of distinct (type, producer) keys stored.
func (s *StateStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear drops all entries.
func (s *StateStore) Clear() {
	s.mu.Lock()
	s.entries = make(map[EventKey]Event)
	s.mu.Unlock()
}
