package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 10 * time.Millisecond

// fileRecord is the on-disk representation of a stored token.
type fileRecord struct {
	Token    string    `json:"token"`
	StoredAt time.Time `json:"stored_at"`
}

// FileStore persists the token in a JSON file so separate invocations of a
// command-line tool share one session. An adjacent ".lock" file guards access
// across processes.
type FileStore struct {
	path string
	lock *flock.Flock
	mu   sync.Mutex
	now  func() time.Time
}

// NewFileStore creates a store backed by path. The file is created on first Set.
func NewFileStore(path string, opts ...Option) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("tokenstore: file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("tokenstore: create directory: %w", err)
	}

	o := buildOptions(opts)
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
		now:  o.now,
	}, nil
}

// Path returns the token file location.
func (s *FileStore) Path() string {
	return s.path
}

// Get returns the stored token.
func (s *FileStore) Get(ctx context.Context) (string, error) {
	var token string
	err := s.withLock(ctx, false, func() error {
		rec, err := s.read()
		if err != nil {
			return err
		}
		token = rec.Token
		return nil
	})
	return token, err
}

// Set writes token to disk with the current time as its stored-at stamp.
func (s *FileStore) Set(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	return s.withLock(ctx, true, func() error {
		return s.write(fileRecord{Token: token, StoredAt: s.now().UTC()})
	})
}

// Remove deletes the token file.
func (s *FileStore) Remove(ctx context.Context) error {
	return s.withLock(ctx, true, func() error {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("tokenstore: remove %s: %w", s.path, err)
		}
		return nil
	})
}

// Age reports how old the stored token is.
func (s *FileStore) Age(ctx context.Context) (time.Duration, error) {
	var age time.Duration
	err := s.withLock(ctx, false, func() error {
		rec, err := s.read()
		if err != nil {
			return err
		}
		age = AgeOf(rec.Token, rec.StoredAt, s.now())
		return nil
	})
	return age, err
}

func (s *FileStore) withLock(ctx context.Context, exclusive bool, fn func() error) error {
	// flock does not serialize goroutines sharing one handle
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		locked bool
		err    error
	)
	if exclusive {
		locked, err = s.lock.TryLockContext(ctx, lockRetryDelay)
	} else {
		locked, err = s.lock.TryRLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return fmt.Errorf("tokenstore: lock %s: %w", s.path, err)
	}
	if !locked {
		return fmt.Errorf("tokenstore: lock %s: not acquired", s.path)
	}
	defer func() { _ = s.lock.Unlock() }()

	return fn()
}

func (s *FileStore) read() (fileRecord, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return fileRecord{}, ErrNotFound
	}
	if err != nil {
		return fileRecord{}, fmt.Errorf("tokenstore: read %s: %w", s.path, err)
	}

	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return fileRecord{}, fmt.Errorf("tokenstore: decode %s: %w", s.path, err)
	}
	if rec.Token == "" {
		return fileRecord{}, ErrNotFound
	}
	return rec, nil
}

func (s *FileStore) write(rec fileRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("tokenstore: encode token: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".token-*")
	if err != nil {
		return fmt.Errorf("tokenstore: write %s: %w", s.path, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("tokenstore: write %s: %w", s.path, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("tokenstore: chmod %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tokenstore: write %s: %w", s.path, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("tokenstore: replace %s: %w", s.path, err)
	}
	return nil
}
