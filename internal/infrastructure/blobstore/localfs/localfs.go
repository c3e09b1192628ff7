// Package localfs persists the complaint collection as one JSON file.
// Writes go through a temp file + rename; external changes are detected by
// polling a content fingerprint.
package localfs

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/railsewa/grievance-service/internal/core/domain"
	"github.com/railsewa/grievance-service/internal/infrastructure/blobstore"
)

const defaultPollInterval = 2 * time.Second

type Store struct {
	path         string
	pollInterval time.Duration

	mu        sync.Mutex
	selfPrint [sha256.Size]byte
	lastSeen  [sha256.Size]byte
}

func New(path string, pollInterval time.Duration) (*Store, error) {
	if path == "" {
		path = "./data/complaints.json"
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Store{path: path, pollInterval: pollInterval}, nil
}

func (s *Store) LoadAll(_ context.Context) ([]domain.Complaint, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []domain.Complaint{}, nil
		}
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}
	return blobstore.Decode(raw)
}

func (s *Store) SaveAll(_ context.Context, all []domain.Complaint) error {
	raw, err := blobstore.Encode(all)
	if err != nil {
		return err
	}
	return s.writeBlob(raw)
}

func (s *Store) MergeWrite(ctx context.Context, changed []domain.Complaint, deletedIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, err := s.LoadAll(ctx)
	if err != nil {
		return err
	}
	raw, err := blobstore.Encode(blobstore.Merge(current, changed, deletedIDs))
	if err != nil {
		return err
	}
	return s.writeBlobLocked(raw)
}

// Subscribe polls the file fingerprint until ctx is done, invoking the
// callback for writes this handle did not perform.
func (s *Store) Subscribe(ctx context.Context, onExternalChange func()) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if s.externallyChanged() {
				onExternalChange()
			}
		}
	}
}

func (s *Store) externallyChanged() bool {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return false
	}
	print := sha256.Sum256(raw)

	s.mu.Lock()
	defer s.mu.Unlock()
	if print == s.lastSeen {
		return false
	}
	s.lastSeen = print
	return print != s.selfPrint
}

func (s *Store) writeBlob(raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeBlobLocked(raw)
}

func (s *Store) writeBlobLocked(raw []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".complaints-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot file: %w", err)
	}

	print := sha256.Sum256(raw)
	s.selfPrint = print
	s.lastSeen = print
	return nil
}
