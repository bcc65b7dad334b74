package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrStoreNotFound is returned when the chunk file does not exist.
var ErrStoreNotFound = errors.New("chunk store not found")

// IndexConsistencyError reports a mismatch between persisted chunks and
// indexed vectors. It is fatal for retrieval start-up.
type IndexConsistencyError struct {
	Chunks  int
	Vectors int
}

func (e *IndexConsistencyError) Error() string {
	return fmt.Sprintf("index consistency violated: %d chunks, %d vectors", e.Chunks, e.Vectors)
}

// CheckConsistency returns *IndexConsistencyError when counts differ.
func CheckConsistency(chunks, vectors int) error {
	if chunks != vectors {
		return &IndexConsistencyError{Chunks: chunks, Vectors: vectors}
	}
	return nil
}

// Store persists chunks as a JSON array of {id, text, meta}.
type Store struct {
	path string
}

// NewStore returns a store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Save writes chunks, creating parent directories as needed.
func (s *Store) Save(chunks []Chunk) error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating store directory: %w", err)
		}
	}
	if chunks == nil {
		chunks = []Chunk{}
	}
	data, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding chunks: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing chunks: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing chunk store: %w", err)
	}
	return nil
}

// Load reads all chunks.
func (s *Store) Load() ([]Chunk, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrStoreNotFound, s.path)
		}
		return nil, fmt.Errorf("reading chunks: %w", err)
	}
	var chunks []Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", s.path, err)
	}
	return chunks, nil
}
