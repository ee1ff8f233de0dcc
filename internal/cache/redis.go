package cache

import (
	"context"
	"errors"

	"github.com/emrgen/servicecatalog/internal/domain"
	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func publishedVersionHash(family domain.Family) string {
	return "catalog:published:version:" + family.String()
}

var _ PublishedVersionCache = (*RedisPublishedCache)(nil)

type RedisPublishedCache struct {
	client *redis.Client
}

func NewRedisPublishedCache(addr, password string, db int) *RedisPublishedCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		Protocol: 2, // Connection protocol
	})

	return &RedisPublishedCache{client: client}
}

func (r *RedisPublishedCache) GetPublishedVersion(ctx context.Context, family domain.Family, rootID string) (string, error) {
	res := r.client.HGet(ctx, publishedVersionHash(family), rootID)
	if res.Err() != nil {
		if errors.Is(res.Err(), redis.Nil) {
			return "", nil
		}
		return "", res.Err()
	}

	return res.Val(), nil
}

func (r *RedisPublishedCache) SetPublishedVersion(ctx context.Context, family domain.Family, rootID, versionID string) error {
	if err := r.client.HSet(ctx, publishedVersionHash(family), rootID, versionID).Err(); err != nil {
		logrus.Errorf("failed to cache published version of %s %s: %v", family, rootID, err)
		return err
	}

	return nil
}

func (r *RedisPublishedCache) DeletePublishedVersion(ctx context.Context, family domain.Family, rootID string) error {
	return r.client.HDel(ctx, publishedVersionHash(family), rootID).Err()
}

func (r *RedisPublishedCache) Close() error {
	return r.client.Close()
}
