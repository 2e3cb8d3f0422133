package playback

import (
	"fmt"
	"log/slog"
	"sync"

	"plantarcli/internal/dataprocessing"
	"plantarcli/pkg/contracts/domain"
)

// entry pairs the load-time original with the working copy. The two never
// share memory.
type entry struct {
	original *domain.ProcessedRecording
	working  *domain.ProcessedRecording
	// lastRevision is the highest revision handed out for this entry
	lastRevision int
}

// Store holds the loaded recordings and the active index. Recordings handed
// out are never mutated afterwards; every change publishes a new copy.
type Store struct {
	mu      sync.RWMutex
	entries []*entry
	active  int
	logger  *slog.Logger
}

// NewStore creates an empty store in the "no data" condition
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{active: -1, logger: logger.With(slog.String("component", "dataset_store"))}
}

// Add takes ownership of rec, captures its original copy and makes it active.
// It returns the new index.
func (s *Store) Add(rec *domain.ProcessedRecording) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, &entry{
		original:     rec.Clone(),
		working:      rec,
		lastRevision: rec.Revision,
	})
	s.active = len(s.entries) - 1
	s.logger.Info("dataset added",
		slog.String("recording_id", rec.ID),
		slog.Int("index", s.active),
		slog.Int("count", len(s.entries)))
	return s.active
}

// Len returns the number of loaded recordings
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// ActiveIndex returns the active index, -1 when empty
func (s *Store) ActiveIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// List returns the working recordings in load order
func (s *Store) List() []*domain.ProcessedRecording {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.ProcessedRecording, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.working
	}
	return out
}

// Get returns the working recording at index i
func (s *Store) Get(i int) (*domain.ProcessedRecording, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkIndex(i); err != nil {
		return nil, err
	}
	return s.entries[i].working, nil
}

// Active returns the active working recording and its index
func (s *Store) Active() (*domain.ProcessedRecording, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active < 0 {
		return nil, -1, ErrNoActiveDataset
	}
	return s.entries[s.active].working, s.active, nil
}

// SetActive switches the active recording
func (s *Store) SetActive(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex(i); err != nil {
		return err
	}
	s.active = i
	return nil
}

// IndexOf returns the index of the recording with the given id, or -1
func (s *Store) IndexOf(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, e := range s.entries {
		if e.working.ID == id {
			return i
		}
	}
	return -1
}

// FindByChecksum returns the index of a recording loaded from identical bytes
func (s *Store) FindByChecksum(sum string) (int, bool) {
	if sum == "" {
		return -1, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, e := range s.entries {
		if e.original.Checksum == sum {
			return i, true
		}
	}
	return -1, false
}

// Lookup returns the active sample at time t; nil when the active recording is empty
func (s *Store) Lookup(t float64) (*domain.PressureSample, error) {
	rec, _, err := s.Active()
	if err != nil {
		return nil, err
	}
	return Lookup(rec.Samples, t), nil
}

// ApplyFilter replaces the active working recording with a filtered deep copy
func (s *Store) ApplyFilter(fn dataprocessing.Filter) (*domain.ProcessedRecording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active < 0 {
		return nil, ErrNoActiveDataset
	}
	return s.applyLocked(s.active, fn)
}

// ApplyFilterAt replaces the working recording at index i with a filtered deep copy
func (s *Store) ApplyFilterAt(i int, fn dataprocessing.Filter) (*domain.ProcessedRecording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex(i); err != nil {
		return nil, err
	}
	return s.applyLocked(i, fn)
}

func (s *Store) applyLocked(i int, fn dataprocessing.Filter) (*domain.ProcessedRecording, error) {
	e := s.entries[i]
	next, err := e.derive(e.working, fn)
	if err != nil {
		return nil, err
	}
	e.working = next
	s.logger.Info("filter applied",
		slog.String("recording_id", next.ID),
		slog.Int("revision", next.Revision),
		slog.Int("samples", len(next.Samples)))
	return next, nil
}

// Augment applies fn to both the original and the working copy at index i,
// so a later Reset keeps the change. Used for merging secondary inputs.
func (s *Store) Augment(i int, fn dataprocessing.Filter) (*domain.ProcessedRecording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex(i); err != nil {
		return nil, err
	}
	e := s.entries[i]
	original, err := e.derive(e.original, fn)
	if err != nil {
		return nil, err
	}
	working, err := e.derive(e.working, fn)
	if err != nil {
		return nil, err
	}
	e.original, e.working = original, working
	return working, nil
}

// derive deep-copies src, transforms the copy and stamps a fresh revision
func (e *entry) derive(src *domain.ProcessedRecording, fn dataprocessing.Filter) (*domain.ProcessedRecording, error) {
	next := src.Clone()
	if err := fn(next); err != nil {
		return nil, fmt.Errorf("apply filter to %s: %w", src.ID, err)
	}
	e.lastRevision++
	next.Revision = e.lastRevision
	next.ScaleBounds = dataprocessing.ComputeScaleBounds(next.Samples)
	return next, nil
}

// Reset restores the active working recording from its original
func (s *Store) Reset() (*domain.ProcessedRecording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active < 0 {
		return nil, ErrNoActiveDataset
	}
	e := s.entries[s.active]
	e.working = e.original.Clone()
	s.logger.Info("dataset reset",
		slog.String("recording_id", e.working.ID),
		slog.Int("revision", e.working.Revision))
	return e.working, nil
}

// Remove drops the recording at index i. Removing the active recording moves
// the active index to the previous entry (or 0); removing an earlier entry
// shifts the index so the same recording stays active. An empty store returns
// to the "no data" condition.
func (s *Store) Remove(i int) (*domain.ProcessedRecording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex(i); err != nil {
		return nil, err
	}
	removed := s.entries[i].working
	s.entries = append(s.entries[:i], s.entries[i+1:]...)

	switch {
	case len(s.entries) == 0:
		s.active = -1
	case i == s.active:
		s.active = max(i-1, 0)
	case i < s.active:
		s.active--
	}

	s.logger.Info("dataset removed",
		slog.String("recording_id", removed.ID),
		slog.Int("index", i),
		slog.Int("active", s.active),
		slog.Int("count", len(s.entries)))
	return removed, nil
}

func (s *Store) checkIndex(i int) error {
	if i < 0 || i >= len(s.entries) {
		return fmt.Errorf("index %d of %d: %w", i, len(s.entries), ErrDatasetNotFound)
	}
	return nil
}
