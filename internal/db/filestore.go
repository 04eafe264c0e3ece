package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/oatsaysai/voice-upi/internal/models"
)

// FileStore is a MemoryStore whose state lives in a JSON file shared with other
// processes. Each call takes an OS lock on <path>.lock and re-reads the file;
// mutations hold the lock exclusively until the new snapshot has been written to a
// temporary file and renamed over the old one.
type FileStore struct {
	*MemoryStore
	file *fileBacking
}

// OpenFileStore loads path, creating it from seed when it does not exist yet
func OpenFileStore(path string, seed Seed, opts ...Option) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err)
	}

	file := &fileBacking{path: path, flock: flock.New(path + ".lock")}
	state, err := file.loadOrSeed(seed)
	if err != nil {
		file.flock.Close()
		return nil, fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err)
	}

	return &FileStore{
		MemoryStore: newMemoryStore(state, file, opts...),
		file:        file,
	}, nil
}

// Path returns the backing file
func (s *FileStore) Path() string {
	return s.file.path
}

// Close releases the lock file handle
func (s *FileStore) Close() error {
	return s.file.flock.Close()
}

type fileBacking struct {
	path  string
	flock *flock.Flock
}

func (b *fileBacking) lock(exclusive bool) (func(), error) {
	lock := b.flock.RLock
	if exclusive {
		lock = b.flock.Lock
	}
	if err := lock(); err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", b.flock.Path(), err)
	}
	return func() { b.flock.Unlock() }, nil
}

func (b *fileBacking) load() (ledgerState, error) {
	return readSnapshot(b.path)
}

func (b *fileBacking) save(state ledgerState) error {
	return writeSnapshot(b.path, state)
}

// loadOrSeed reads the file, writing seed first when no other process has created it
func (b *fileBacking) loadOrSeed(seed Seed) (ledgerState, error) {
	unlock, err := b.lock(true)
	if err != nil {
		return ledgerState{}, err
	}
	defer unlock()

	state, err := b.load()
	if errors.Is(err, fs.ErrNotExist) {
		state = seededState(seed)
		err = b.save(state)
	}
	return state, err
}

func readSnapshot(path string) (ledgerState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ledgerState{}, err
	}

	var state ledgerState
	if err := json.Unmarshal(data, &state); err != nil {
		return ledgerState{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if state.Balance < 0 {
		return ledgerState{}, fmt.Errorf("corrupt ledger %s: negative balance %d", path, state.Balance)
	}
	if state.Contacts == nil {
		state.Contacts = []models.Contact{}
	}
	if state.Transactions == nil {
		state.Transactions = []models.Transaction{}
	}
	if state.Users == nil {
		state.Users = []models.User{}
	}
	return state, nil
}

func writeSnapshot(path string, state ledgerState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close ledger: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
