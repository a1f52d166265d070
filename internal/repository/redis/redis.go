// Package redis implements repository.SessionRepository on Redis. Each
// session is one hash; multi-field HSET and HDEL are atomic, which gives the
// credentials bundle its all-or-nothing write.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sakif/vidshare/internal/model"
	"github.com/sakif/vidshare/internal/repository"
)

var _ repository.SessionRepository = (*Store)(nil)

const keyPrefix = "vidshare:session:"

// Options configures the connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Store is a Redis-backed session store.
type Store struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, opts Options) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: connecting to %s: %w", opts.Addr, err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Get(ctx context.Context, sessionKey, name string) (string, bool, error) {
	v, err := s.client.HGet(ctx, keyPrefix+sessionKey, name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis: reading %s: %w", name, err)
	}
	return v, true, nil
}

// Credentials reads the three fields with one HMGET.
func (s *Store) Credentials(ctx context.Context, sessionKey string) (model.Credentials, error) {
	res, err := s.client.HMGet(ctx, keyPrefix+sessionKey, model.CredentialKeys...).Result()
	if err != nil {
		return model.Credentials{}, fmt.Errorf("redis: reading credentials: %w", err)
	}
	values := make(map[string]string, len(model.CredentialKeys))
	for i, name := range model.CredentialKeys {
		// Missing fields come back as nil.
		if v, ok := res[i].(string); ok {
			values[name] = v
		}
	}
	return model.CredentialsFrom(values), nil
}

func (s *Store) Set(ctx context.Context, sessionKey, name, value string) error {
	if err := s.client.HSet(ctx, keyPrefix+sessionKey, name, value).Err(); err != nil {
		return fmt.Errorf("redis: writing %s: %w", name, err)
	}
	return nil
}

// SetCredentials writes the three fields with one HSET.
func (s *Store) SetCredentials(ctx context.Context, sessionKey string, creds model.Credentials) error {
	values := make(map[string]any, len(model.CredentialKeys))
	for name, v := range creds.Values() {
		values[name] = v
	}
	if err := s.client.HSet(ctx, keyPrefix+sessionKey, values).Err(); err != nil {
		return fmt.Errorf("redis: writing credentials: %w", err)
	}
	return nil
}

func (s *Store) DeleteCredentials(ctx context.Context, sessionKey string) error {
	if err := s.client.HDel(ctx, keyPrefix+sessionKey, model.CredentialKeys...).Err(); err != nil {
		return fmt.Errorf("redis: deleting credentials: %w", err)
	}
	return nil
}
