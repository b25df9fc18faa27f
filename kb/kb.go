package kb

import (
	"fmt"
	"sync"

	"github.com/signalsfoundry/ionosphere-simulator/core"
	"github.com/signalsfoundry/ionosphere-simulator/model"
)

// EventType indicates what kind of change happened in the store.
type EventType int

const (
	EventObservationAdded EventType = iota
	EventObservationRemoved
)

// Event is emitted to subscribers when the stored observations change.
type Event struct {
	Type        EventType
	Observation model.Observation
}

// MetricsRecorder receives the store size after every mutation.
type MetricsRecorder interface {
	SetStoredObservations(count int)
}

// Store is an in-memory, thread-safe collection of validated
// observations, keyed by ID.
type Store struct {
	mu sync.RWMutex

	observations map[string]*model.Observation
	subs         []func(Event)
	metrics      MetricsRecorder
}

// NewStore constructs an empty observation store.
func NewStore() *Store {
	return &Store{
		observations: make(map[string]*model.Observation),
	}
}

// SetMetricsRecorder wires a recorder that tracks the number of stored
// observations. Pass nil to detach.
func (s *Store) SetMetricsRecorder(rec MetricsRecorder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = rec
	if rec != nil {
		rec.SetStoredObservations(len(s.observations))
	}
}

// Add validates and stores a new observation. It returns an error if the
// observation is incomplete or its ID is empty or already present.
func (s *Store) Add(obs *model.Observation) error {
	if obs == nil {
		return fmt.Errorf("observation must not be nil")
	}
	if obs.ID == "" {
		return fmt.Errorf("observation ID must not be empty")
	}
	if err := core.ValidateObservation(*obs); err != nil {
		return fmt.Errorf("observation %q: %w", obs.ID, err)
	}

	s.mu.Lock()
	if _, exists := s.observations[obs.ID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("observation with ID %q already exists", obs.ID)
	}
	s.observations[obs.ID] = obs
	if s.metrics != nil {
		s.metrics.SetStoredObservations(len(s.observations))
	}
	event := Event{
		Type:        EventObservationAdded,
		Observation: *obs, // copy for safety
	}
	subs := append([]func(Event){}, s.subs...)
	s.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	for _, sub := range subs {
		sub(event)
	}
	return nil
}

// Get returns the observation with the given ID, or nil if not found.
func (s *Store) Get(id string) *model.Observation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.observations[id]
}

// List returns a snapshot slice of all stored observations.
func (s *Store) List() []*model.Observation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]*model.Observation, 0, len(s.observations))
	for _, obs := range s.observations {
		res = append(res, obs)
	}
	return res
}

// Count returns the number of stored observations.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observations)
}

// Remove deletes the observation with the given ID and notifies
// subscribers. It returns an error if the ID is unknown.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	obs, ok := s.observations[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("observation with ID %q not found", id)
	}
	delete(s.observations, id)
	if s.metrics != nil {
		s.metrics.SetStoredObservations(len(s.observations))
	}
	event := Event{
		Type:        EventObservationRemoved,
		Observation: *obs,
	}
	subs := append([]func(Event){}, s.subs...)
	s.mu.Unlock()

	for _, sub := range subs {
		sub(event)
	}
	return nil
}

// Subscribe registers a callback for store events. It returns an
// unsubscribe function.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
	idx := len(s.subs) - 1

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if idx < 0 || idx >= len(s.subs) {
			return
		}
		s.subs = append(s.subs[:idx], s.subs[idx+1:]...)
		idx = -1
	}
}
