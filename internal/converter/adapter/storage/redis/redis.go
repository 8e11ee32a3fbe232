package redis

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/SilverStorm2/currency-exchange-app/internal/entities"
)

type Storage struct {
	rdb *redis.Client
}

func NewStorage(client redis.UniversalClient) *Storage {
	return &Storage{
		rdb: client.(*redis.Client),
	}
}

func InitStorage(ctx context.Context, options *redis.Options) (*Storage, error) {
	const op = "storage.redis.InitStorage"

	redisClient := redis.NewClient(options)

	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		return nil, errors.Wrap(err, op)
	}

	return NewStorage(redisClient), nil
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	const op = "storage.redis.Get"

	value, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, entities.ErrNotFound
		}
		return nil, errors.Wrap(err, op)
	}

	return value, nil
}

func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	const op = "storage.redis.Set"

	if err := s.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return errors.Wrap(err, op)
	}

	return nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	const op = "storage.redis.Delete"

	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return errors.Wrap(err, op)
	}

	return nil
}
