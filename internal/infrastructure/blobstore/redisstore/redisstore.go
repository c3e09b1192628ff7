// Package redisstore keeps the complaint collection under a single redis
// key and uses native pub/sub as the change signal: every write publishes
// the writer's origin ID, and subscribers ignore their own.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/railsewa/grievance-service/internal/core/domain"
	"github.com/railsewa/grievance-service/internal/infrastructure/blobstore"
)

const (
	DefaultKey     = "grievance:complaints"
	DefaultChannel = "grievance:complaints:changed"
)

type Store struct {
	client  *redis.Client
	key     string
	channel string
	origin  string

	mu sync.Mutex
}

func NewStore(client *redis.Client, key, channel string) *Store {
	if key == "" {
		key = DefaultKey
	}
	if channel == "" {
		channel = DefaultChannel
	}
	return &Store{
		client:  client,
		key:     key,
		channel: channel,
		origin:  uuid.NewString(),
	}
}

func (s *Store) LoadAll(ctx context.Context) ([]domain.Complaint, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []domain.Complaint{}, nil
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return blobstore.Decode(raw)
}

func (s *Store) SaveAll(ctx context.Context, all []domain.Complaint) error {
	raw, err := blobstore.Encode(all)
	if err != nil {
		return err
	}
	return s.writeBlob(ctx, raw)
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
	return s.writeBlob(ctx, raw)
}

func (s *Store) Subscribe(ctx context.Context, onExternalChange func()) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if msg.Payload == s.origin {
				continue
			}
			onExternalChange()
		}
	}
}

func (s *Store) writeBlob(ctx context.Context, raw []byte) error {
	if err := s.client.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("set snapshot: %w", err)
	}
	// Best-effort signal; a missed publish only delays sibling refreshes.
	_ = s.client.Publish(ctx, s.channel, s.origin).Err()
	return nil
}
