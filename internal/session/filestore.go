package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// entryExtension is the file extension used for session entries.
const entryExtension = ".json"

// entry wraps the stored run state with TTL metadata.
type entry struct {
	ID        string          `json:"id"`
	State     json.RawMessage `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

func (e *entry) expired() bool {
	return time.Now().After(e.ExpiresAt)
}

// FileStore is a file-backed Store: one JSON file per suspended run.
// Writes go through a temporary file and a rename so a crash never leaves a
// half-written entry behind. Thread-safety is not required: the engine
// guarantees a single logical thread of control per run.
type FileStore struct {
	directory string
	ttl       time.Duration
}

// NewFileStore creates a file-backed session store rooted at directory.
// The directory is created if it does not exist.
func NewFileStore(directory string, ttl time.Duration) (*FileStore, error) {
	if directory == "" {
		return nil, errors.New("session directory cannot be empty")
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}

	if err := os.MkdirAll(directory, 0750); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}

	return &FileStore{directory: directory, ttl: ttl}, nil
}

// Save implements Store.
func (s *FileStore) Save(id string, state json.RawMessage) error {
	if id == "" {
		return ErrInvalidID
	}

	now := time.Now()
	data, err := json.Marshal(&entry{
		ID:        id,
		State:     state,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	})
	if err != nil {
		return fmt.Errorf("marshaling session entry: %w", err)
	}

	filePath := s.idToFilePath(id)
	tempPath := filePath + ".tmp"
	if writeErr := os.WriteFile(tempPath, data, 0600); writeErr != nil {
		return fmt.Errorf("writing session file: %w", writeErr)
	}
	if renameErr := os.Rename(tempPath, filePath); renameErr != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming session file: %w", renameErr)
	}
	return nil
}

// Load implements Store. Expired entries are removed and reported missing.
func (s *FileStore) Load(id string) (json.RawMessage, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	filePath := s.idToFilePath(id)
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading session file: %w", err)
	}

	var e entry
	if unmarshalErr := json.Unmarshal(data, &e); unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshaling session entry: %w", unmarshalErr)
	}

	if e.expired() {
		_ = os.Remove(filePath)
		return nil, ErrNotFound
	}
	return e.State, nil
}

// Delete implements Store.
func (s *FileStore) Delete(id string) error {
	if id == "" {
		return ErrInvalidID
	}

	err := os.Remove(s.idToFilePath(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting session file: %w", err)
	}
	return nil
}

// List implements Store.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.directory)
	if err != nil {
		return nil, fmt.Errorf("reading session directory: %w", err)
	}

	var ids []string
	for _, dirEntry := range entries {
		if dirEntry.IsDir() || filepath.Ext(dirEntry.Name()) != entryExtension {
			continue
		}
		ids = append(ids, strings.TrimSuffix(dirEntry.Name(), entryExtension))
	}
	sort.Strings(ids)
	return ids, nil
}

// CleanupExpired removes all expired entries. Intended for periodic
// maintenance so abandoned runs do not accumulate.
func (s *FileStore) CleanupExpired() (int, error) {
	entries, err := os.ReadDir(s.directory)
	if err != nil {
		return 0, fmt.Errorf("reading session directory: %w", err)
	}

	removed := 0
	for _, dirEntry := range entries {
		if dirEntry.IsDir() || filepath.Ext(dirEntry.Name()) != entryExtension {
			continue
		}

		filePath := filepath.Join(s.directory, dirEntry.Name())
		data, readErr := os.ReadFile(filePath)
		if readErr != nil {
			continue
		}

		var e entry
		if unmarshalErr := json.Unmarshal(data, &e); unmarshalErr != nil {
			continue
		}
		if e.expired() {
			if os.Remove(filePath) == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// idToFilePath converts a run identifier to its entry path, sanitized for
// filesystem safety.
func (s *FileStore) idToFilePath(id string) string {
	safe := strings.ReplaceAll(id, "/", "_")
	safe = strings.ReplaceAll(safe, "\\", "_")
	safe = strings.ReplaceAll(safe, ":", "_")
	return filepath.Join(s.directory, safe+entryExtension)
}
