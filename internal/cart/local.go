package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"pureplatter/internal/models"
)

// LocalStore is the per-session tier of the cart. It exists before sign-in
// and survives page reloads.
type LocalStore interface {
	Load(ctx context.Context, sessionID string) (models.CartSnapshot, error)
	Save(ctx context.Context, sessionID string, snap models.CartSnapshot) error
	Delete(ctx context.Context, sessionID string) error
}

// RedisLocalStore keeps one JSON snapshot per cart session with a sliding TTL.
type RedisLocalStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisLocalStore(client *redis.Client, ttl time.Duration) *RedisLocalStore {
	return &RedisLocalStore{client: client, ttl: ttl, prefix: "cart:session:"}
}

func (s *RedisLocalStore) Load(ctx context.Context, sessionID string) (models.CartSnapshot, error) {
	raw, err := s.client.Get(ctx, s.prefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.CartSnapshot{Items: []models.CartItem{}}, nil
	}
	if err != nil {
		return models.CartSnapshot{}, err
	}

	var snap models.CartSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return models.CartSnapshot{}, err
	}
	if snap.Items == nil {
		snap.Items = []models.CartItem{}
	}
	return snap, nil
}

func (s *RedisLocalStore) Save(ctx context.Context, sessionID string, snap models.CartSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+sessionID, raw, s.ttl).Err()
}

func (s *RedisLocalStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.prefix+sessionID).Err()
}

// MemoryLocalStore is used when no Redis is configured.
type MemoryLocalStore struct {
	mu    sync.Mutex
	carts map[string]models.CartSnapshot
}

func NewMemoryLocalStore() *MemoryLocalStore {
	return &MemoryLocalStore{carts: map[string]models.CartSnapshot{}}
}

func (s *MemoryLocalStore) Load(_ context.Context, sessionID string) (models.CartSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.carts[sessionID]
	if !ok {
		return models.CartSnapshot{Items: []models.CartItem{}}, nil
	}
	snap.Items = append([]models.CartItem{}, snap.Items...)
	return snap, nil
}

func (s *MemoryLocalStore) Save(_ context.Context, sessionID string, snap models.CartSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap.Items = append([]models.CartItem{}, snap.Items...)
	s.carts[sessionID] = snap
	return nil
}

func (s *MemoryLocalStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, sessionID)
	return nil
}
