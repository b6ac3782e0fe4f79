package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound indicates the editing session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// Store keeps one in-flight order aggregate per editing session in Redis,
// JSON-serialised and TTL-bounded so abandoned sessions expire on their own.
type Store struct {
	R      *redis.Client
	Prefix string
	TTL    time.Duration
}

func (s *Store) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 4 * time.Hour
	}
	return s.TTL
}

func (s *Store) key(id string) string {
	prefix := "billing:sess"
	if s != nil && s.Prefix != "" {
		prefix = s.Prefix
	}
	return prefix + ":" + id
}

// Save serialises the session payload and refreshes its TTL.
func (s *Store) Save(ctx context.Context, id string, v any) error {
	if s == nil || s.R == nil {
		return errors.New("session store not configured")
	}
	if id == "" {
		return errors.New("session id required")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.R.Set(ctx, s.key(id), data, s.ttl()).Err()
}

// Load reads a session into dst and touches its TTL, mirroring the
// touch-on-access behaviour of the cart this store grew out of.
func (s *Store) Load(ctx context.Context, id string, dst any) error {
	if s == nil || s.R == nil {
		return errors.New("session store not configured")
	}
	data, err := s.R.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode session: %w", err)
	}
	_ = s.R.Expire(ctx, s.key(id), s.ttl()).Err()
	return nil
}

// Delete removes a session eagerly (e.g. after a successful submit).
func (s *Store) Delete(ctx context.Context, id string) error {
	if s == nil || s.R == nil {
		return errors.New("session store not configured")
	}
	return s.R.Del(ctx, s.key(id)).Err()
}
