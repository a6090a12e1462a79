package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	errs "github.com/matzehuels/gridcollage/pkg/errors"
)

// FileStore is a file-based session store for single-instance servers.
// Sessions are stored as JSON files in a directory.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates a new file-based session store.
// If baseDir is empty, defaults to the user config dir under
// gridcollage/sessions.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("get config dir: %w", err)
		}
		baseDir = filepath.Join(dir, "gridcollage", "sessions")
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) sessionPath(sessionID string) (string, error) {
	if err := errs.ValidateSessionID(sessionID); err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, sessionID+".json"), nil
}

func (s *FileStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.read(sessionID)
	if err != nil || sess == nil || sess.IsExpired() {
		return nil, err
	}
	return sess, nil
}

func (s *FileStore) read(sessionID string) (*Session, error) {
	path, err := s.sessionPath(sessionID)
	if err != nil {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	sess, err := unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	return sess, nil
}

func (s *FileStore) Set(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.sessionPath(sess.ID)
	if err != nil {
		return err
	}
	data, err := marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.sessionPath(sessionID)
	if err != nil {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

func (s *FileStore) Expired(ctx context.Context, now time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read session dir: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		sess, err := s.read(entry.Name()[:len(entry.Name())-len(".json")])
		if err != nil || sess == nil {
			continue
		}
		if !sess.ExpiresAt.IsZero() && !now.Before(sess.ExpiresAt) {
			ids = append(ids, sess.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *FileStore) Close() error { return nil }

// Path returns the base directory for session files.
func (s *FileStore) Path() string {
	return s.baseDir
}

var _ Store = (*FileStore)(nil)
