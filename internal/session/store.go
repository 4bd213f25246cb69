// Package session implements the resumable-session store: a process-wide
// key-value store holding suspended batch runs keyed by their opaque run
// identifier. The lifecycle is write-at-suspend, read-and-delete-at-resume;
// a TTL eviction policy keeps abandoned runs from leaking forever.
package session

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// Common session store errors.
var (
	// ErrNotFound is returned when no state exists for a run identifier.
	ErrNotFound = errors.New("session entry not found")

	// ErrInvalidID is returned for an empty run identifier.
	ErrInvalidID = errors.New("session id cannot be empty")
)

// Store persists suspended run state keyed by run identifier.
type Store interface {
	// Save writes the state for the identifier, overwriting any previous
	// entry.
	Save(id string, state json.RawMessage) error

	// Load returns the state for the identifier, or ErrNotFound.
	Load(id string) (json.RawMessage, error)

	// Delete removes the entry. Deleting a missing entry is not an error.
	Delete(id string) error

	// List returns the identifiers of all live entries.
	List() ([]string, error)
}

// memEntry is one in-memory store entry with its expiry.
type memEntry struct {
	state     json.RawMessage
	expiresAt time.Time
}

// MemStore is an in-memory Store used in tests and single-process setups.
// Thread-safe.
type MemStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memEntry
}

// NewMemStore creates an in-memory store. A zero ttl disables expiry.
func NewMemStore(ttl time.Duration) *MemStore {
	return &MemStore{
		ttl:     ttl,
		entries: make(map[string]memEntry),
	}
}

// Save implements Store.
func (s *MemStore) Save(id string, state json.RawMessage) error {
	if id == "" {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	expires := time.Time{}
	if s.ttl > 0 {
		expires = time.Now().Add(s.ttl)
	}
	s.entries[id] = memEntry{state: state, expiresAt: expires}
	return nil
}

// Load implements Store.
func (s *MemStore) Load(id string) (json.RawMessage, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(s.entries, id)
		return nil, ErrNotFound
	}
	return entry.state, nil
}

// Delete implements Store.
func (s *MemStore) Delete(id string) error {
	if id == "" {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, id)
	return nil
}

// List implements Store.
func (s *MemStore) List() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	ids := make([]string, 0, len(s.entries))
	for id, entry := range s.entries {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(s.entries, id)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
