// Package memory is the in-memory snapshot store. It backs tests and dev
// mode; a Bucket shared by several handles behaves like sibling browser
// tabs over one persisted blob, each handle seeing the others' writes.
package memory

import (
	"context"
	"sync"

	"github.com/railsewa/grievance-service/internal/core/domain"
	"github.com/railsewa/grievance-service/internal/infrastructure/blobstore"
)

// Bucket is the shared blob. Create one Bucket and any number of Store
// handles over it.
type Bucket struct {
	mu      sync.Mutex
	records []domain.Complaint
	nextID  int
	subs    map[int]chan struct{}
}

func NewBucket() *Bucket {
	return &Bucket{subs: make(map[int]chan struct{})}
}

// Store is one writer's handle on the bucket.
type Store struct {
	bucket   *Bucket
	handleID int
}

// NewStore opens a handle on the bucket. Writes through this handle do not
// trigger its own Subscribe callback, only the other handles'.
func NewStore(bucket *Bucket) *Store {
	bucket.mu.Lock()
	defer bucket.mu.Unlock()
	bucket.nextID++
	return &Store{bucket: bucket, handleID: bucket.nextID}
}

func (s *Store) LoadAll(_ context.Context) ([]domain.Complaint, error) {
	s.bucket.mu.Lock()
	defer s.bucket.mu.Unlock()
	return cloneAll(s.bucket.records), nil
}

func (s *Store) SaveAll(_ context.Context, all []domain.Complaint) error {
	s.bucket.mu.Lock()
	s.bucket.records = cloneAll(all)
	s.bucket.notifyOthersLocked(s.handleID)
	s.bucket.mu.Unlock()
	return nil
}

func (s *Store) MergeWrite(_ context.Context, changed []domain.Complaint, deletedIDs []string) error {
	s.bucket.mu.Lock()
	s.bucket.records = blobstore.Merge(s.bucket.records, cloneAll(changed), deletedIDs)
	s.bucket.notifyOthersLocked(s.handleID)
	s.bucket.mu.Unlock()
	return nil
}

func (s *Store) Subscribe(ctx context.Context, onExternalChange func()) error {
	ch := make(chan struct{}, 1)
	s.bucket.mu.Lock()
	s.bucket.subs[s.handleID] = ch
	s.bucket.mu.Unlock()
	defer func() {
		s.bucket.mu.Lock()
		delete(s.bucket.subs, s.handleID)
		s.bucket.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ch:
			onExternalChange()
		}
	}
}

func (b *Bucket) notifyOthersLocked(writerID int) {
	for id, ch := range b.subs {
		if id == writerID {
			continue
		}
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func cloneAll(records []domain.Complaint) []domain.Complaint {
	out := make([]domain.Complaint, len(records))
	for i, c := range records {
		out[i] = c.Clone()
	}
	return out
}
