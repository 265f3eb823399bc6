package redis

import (
	"context"
	"errors"

	goredis "github.com/redis/go-redis/v9"

	"invoicely/backend/internal/store"
)

// Store keeps each collection document in a plain string key under prefix.
type Store struct {
	client *goredis.Client
	prefix string
}

func New(addr string, password string, db int, prefix string) *Store {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Store{client: client, prefix: prefix}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(name string) string {
	return s.prefix + name
}

func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Save writes all entries inside MULTI/EXEC.
func (s *Store) Save(ctx context.Context, entries ...store.Entry) error {
	if err := store.ValidateEntries(entries); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, e := range entries {
			pipe.Set(ctx, s.key(e.Key), e.Value, 0)
		}
		return nil
	})
	return err
}
