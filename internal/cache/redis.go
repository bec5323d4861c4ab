package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fjod/go_cart/shopcore/internal/domain"
)

// RedisCache stores catalog data under a per-session namespace so that two
// processes sharing one Redis do not read each other's entries.
type RedisCache struct {
	client    *redis.Client
	session   string
	baseTTL   time.Duration
	maxJitter time.Duration
}

// NewRedisCache namespaces keys with a fresh session ID. Entries live for
// baseTTL plus up to a third of it again, so keys written together do not
// expire together.
func NewRedisCache(client *redis.Client, baseTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:    client,
		session:   uuid.NewString(),
		baseTTL:   baseTTL,
		maxJitter: baseTTL / 3,
	}
}

func (r *RedisCache) Session() string { return r.session }

func (r *RedisCache) GetProducts(ctx context.Context, category string) ([]domain.Product, error) {
	var products []domain.Product
	if err := r.get(ctx, r.productsKey(category), &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *RedisCache) SetProducts(ctx context.Context, category string, products []domain.Product) error {
	return r.set(ctx, r.productsKey(category), products)
}

func (r *RedisCache) DeleteProducts(ctx context.Context, category string) error {
	if err := r.client.Del(ctx, r.productsKey(category)).Err(); err != nil {
		return errors.Wrap(err, "redis delete failed")
	}
	return nil
}

func (r *RedisCache) GetCategories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := r.get(ctx, r.categoriesKey(), &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *RedisCache) SetCategories(ctx context.Context, categories []string) error {
	return r.set(ctx, r.categoriesKey(), categories)
}

func (r *RedisCache) get(ctx context.Context, key string, dst any) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return errors.Wrap(err, "redis get failed")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return errors.Wrapf(err, "unmarshal %s failed", key)
	}
	return nil
}

func (r *RedisCache) set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "marshal %s failed", key)
	}
	if err := r.client.Set(ctx, key, data, r.ttl()).Err(); err != nil {
		return errors.Wrap(err, "redis set failed")
	}
	return nil
}

func (r *RedisCache) ttl() time.Duration {
	if r.maxJitter <= 0 {
		return r.baseTTL
	}
	return r.baseTTL + rand.N(r.maxJitter)
}

func (r *RedisCache) productsKey(category string) string {
	if category == "" {
		category = "*all"
	}
	return fmt.Sprintf("catalog:%s:products:%s", r.session, category)
}

func (r *RedisCache) categoriesKey() string {
	return fmt.Sprintf("catalog:%s:categories", r.session)
}
