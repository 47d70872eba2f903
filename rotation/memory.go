package rotation

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryStore is an in-process [Store]. A single mutex serializes every operation,
// which is what makes SetActive a compare-and-swap.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	now     func() time.Time
}

// NewMemoryStore returns an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
		now:     time.Now,
	}
}

// GetActive implements [Store].
func (s *MemoryStore) GetActive(_ context.Context, subjectID string) (Record, error) {
	if subjectID == "" {
		return Record{}, ErrInvalidSubject
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[subjectID]
	if !ok {
		return Record{SubjectID: subjectID}, nil
	}
	return rec, nil
}

// SetActive implements [Store].
func (s *MemoryStore) SetActive(_ context.Context, subjectID, next, expectedPrevious string) (bool, error) {
	if subjectID == "" {
		return false, ErrInvalidSubject
	}
	if next == "" {
		return false, errors.New("rotation: empty fingerprint")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.records[subjectID]
	if expectedPrevious != "" {
		if rec.State != StateActive || rec.Current != expectedPrevious {
			return false, nil
		}
	}

	s.records[subjectID] = Record{
		SubjectID: subjectID,
		State:     StateActive,
		Current:   next,
		Previous:  rec.Current,
		UpdatedAt: s.now(),
	}
	return true, nil
}

// InvalidateAll implements [Store].
func (s *MemoryStore) InvalidateAll(_ context.Context, subjectID string) error {
	if subjectID == "" {
		return ErrInvalidSubject
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.records[subjectID]
	rec.SubjectID = subjectID
	rec.State = StateInvalidated
	rec.UpdatedAt = s.now()
	s.records[subjectID] = rec
	return nil
}
