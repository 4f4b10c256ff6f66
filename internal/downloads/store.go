// internal/downloads/store.go

// Package downloads stashes rendered document bytes behind time-limited,
// single-use tokens.
package downloads

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrGone marks a token that expired or was already consumed.
var ErrGone = errors.New("DOWNLOAD_GONE")

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Put stores document bytes under the token for the configured TTL.
func (s *Store) Put(ctx context.Context, token string, doc []byte) error {
	if err := s.client.Set(ctx, key(token), doc, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}
	return nil
}

// Take retrieves and atomically consumes the document; a second Take for
// the same token reports ErrGone.
func (s *Store) Take(ctx context.Context, token string) ([]byte, error) {
	val, err := s.client.GetDel(ctx, key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrGone
		}
		return nil, fmt.Errorf("failed to fetch document: %w", err)
	}
	return val, nil
}

func key(token string) string {
	return "doc:" + token
}
