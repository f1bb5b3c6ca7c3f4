// Package rediscache is a redis-backed implementation of cache storage.
package rediscache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("package", "rediscache")

type storage struct {
	client *redis.Client
}

// NewStorage creates new instance of storage.
func NewStorage(client *redis.Client) *storage { // nolint:golint
	return &storage{
		client: client,
	}
}

func (s *storage) Get(ctx context.Context, key string) []byte {
	content, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.WithError(err).Error("failed to get cached content")
		}
		return nil
	}

	return content
}

func (s *storage) Set(ctx context.Context, key string, content []byte, ttl time.Duration) {
	if err := s.client.Set(ctx, key, content, ttl).Err(); err != nil {
		log.WithError(err).Error("failed to set cached content")
	}
}
