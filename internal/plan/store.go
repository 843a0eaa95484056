package plan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

// ErrNoState is returned by a Store that has nothing saved for a user.
var ErrNoState = errors.New("no saved plan state")

// Store keeps plan state between sessions.
type Store interface {
	Load(ctx context.Context, user string) (State, error)
	Save(ctx context.Context, user string, state State) error
}

// FileStore keeps one JSON document per user in a directory.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore creates the directory when missing.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create plan directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(user string) (string, error) {
	if user == "" {
		return "", errors.New("user id is required")
	}
	return filepath.Join(s.dir, url.PathEscape(user)+".json"), nil
}

func (s *FileStore) Load(_ context.Context, user string) (State, error) {
	path, err := s.path(user)
	if err != nil {
		return State{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, ErrNoState
		}
		return State{}, fmt.Errorf("read plan state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("parse plan state %s: %w", path, err)
	}
	if err := state.Validate(); err != nil {
		return State{}, fmt.Errorf("invalid plan state %s: %w", path, err)
	}
	return state, nil
}

// Save replaces the user's document through a temporary file and rename.
func (s *FileStore) Save(_ context.Context, user string, state State) error {
	path, err := s.path(user)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode plan state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, ".plan-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write plan state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close plan state: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace plan state: %w", err)
	}
	return nil
}

// MemoryStore keeps state for the lifetime of the process.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]State)}
}

func (s *MemoryStore) Load(_ context.Context, user string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[user]
	if !ok {
		return State{}, ErrNoState
	}
	return state, nil
}

func (s *MemoryStore) Save(_ context.Context, user string, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[user] = state
	return nil
}
