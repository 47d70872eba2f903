package credstore

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/MrEthical07/authgate"
)

var (
	// ErrDuplicateEmail is returned when adding an account whose email is taken.
	ErrDuplicateEmail = errors.New("credstore: email already registered")
	// ErrDuplicateSubject is returned when adding an account whose subject id is taken.
	ErrDuplicateSubject = errors.New("credstore: subject id already registered")
	// ErrNotFound is returned by mutators for an unknown subject.
	ErrNotFound = errors.New("credstore: subject not found")
	// ErrInvalidCredential is returned for a credential without subject or email.
	ErrInvalidCredential = errors.New("credstore: subject id and email required")
)

// MemoryStore keeps credentials in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*authgate.Credential
	byEmail map[string]string
}

// NewMemoryStore returns a store holding creds.
func NewMemoryStore(creds ...authgate.Credential) (*MemoryStore, error) {
	s := &MemoryStore{
		byID:    make(map[string]*authgate.Credential),
		byEmail: make(map[string]string),
	}
	for _, c := range creds {
		if err := s.Add(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add inserts c.
func (s *MemoryStore) Add(c authgate.Credential) error {
	if c.SubjectID == "" || strings.TrimSpace(c.Email) == "" {
		return ErrInvalidCredential
	}
	key := normalizeEmail(c.Email)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[key]; taken {
		return ErrDuplicateEmail
	}
	if _, taken := s.byID[c.SubjectID]; taken {
		return ErrDuplicateSubject
	}
	stored := cloneCredential(&c)
	s.byID[c.SubjectID] = stored
	s.byEmail[key] = c.SubjectID
	return nil
}

// FindByEmail implements authgate.CredentialStore.
func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*authgate.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	return cloneCredential(s.byID[id]), nil
}

// FindByID implements authgate.CredentialStore.
func (s *MemoryStore) FindByID(_ context.Context, subjectID string) (*authgate.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[subjectID]
	if !ok {
		return nil, nil
	}
	return cloneCredential(c), nil
}

// UpdatePasswordHash implements authgate.PasswordHashUpdater.
func (s *MemoryStore) UpdatePasswordHash(_ context.Context, subjectID, newHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[subjectID]
	if !ok {
		return ErrNotFound
	}
	c.PasswordHash = newHash
	return nil
}

// SetActive enables or disables an account.
func (s *MemoryStore) SetActive(_ context.Context, subjectID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[subjectID]
	if !ok {
		return ErrNotFound
	}
	c.Active = active
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func cloneCredential(c *authgate.Credential) *authgate.Credential {
	if c == nil {
		return nil
	}
	out := *c
	out.Roles = slices.Clone(c.Roles)
	out.Permissions = slices.Clone(c.Permissions)
	return &out
}

var (
	_ authgate.CredentialStore     = (*MemoryStore)(nil)
	_ authgate.PasswordHashUpdater = (*MemoryStore)(nil)
)
