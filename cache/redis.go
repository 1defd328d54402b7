package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	orderLockTTL      = 10 * time.Second
	idempotencyKeyTTL = 24 * time.Hour
	productCacheTTL   = 5 * time.Minute
)

func InitRedis(logger *zap.Logger) (*redis.Client, error) {
	host := getEnv("REDIS_HOST", "localhost")
	port := getEnv("REDIS_PORT", "6379")
	password := getEnv("REDIS_PASSWORD", "")

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established")
	return rdb, nil
}

// OrderLocks serializes fulfillment operations per order id.
type OrderLocks struct {
	rdb *redis.Client
}

func NewOrderLocks(rdb *redis.Client) *OrderLocks {
	return &OrderLocks{rdb: rdb}
}

// Acquire returns false when another operation on the same order is already
// in flight.
func (l *OrderLocks) Acquire(ctx context.Context, orderID int) (bool, error) {
	key := fmt.Sprintf("order:lock:%d", orderID)
	return l.rdb.SetNX(ctx, key, 1, orderLockTTL).Result()
}

func (l *OrderLocks) Release(ctx context.Context, orderID int) error {
	key := fmt.Sprintf("order:lock:%d", orderID)
	return l.rdb.Del(ctx, key).Err()
}

// Idempotency claims client-supplied Idempotency-Key values for order
// placement.
type Idempotency struct {
	rdb *redis.Client
}

func NewIdempotency(rdb *redis.Client) *Idempotency {
	return &Idempotency{rdb: rdb}
}

// Reserve returns false when the key was already used within the TTL.
func (i *Idempotency) Reserve(ctx context.Context, key string) (bool, error) {
	return i.rdb.SetNX(ctx, "order:idem:"+key, 1, idempotencyKeyTTL).Result()
}

// Release frees a reserved key so the client can retry after a failed
// placement with the same key.
func (i *Idempotency) Release(ctx context.Context, key string) error {
	return i.rdb.Del(ctx, "order:idem:"+key).Err()
}

// GetProduct returns the cached product JSON, redis.Nil on a miss.
func GetProduct(ctx context.Context, rdb *redis.Client, productID int) ([]byte, error) {
	key := fmt.Sprintf("product:%d", productID)
	return rdb.Get(ctx, key).Bytes()
}

func SetProduct(ctx context.Context, rdb *redis.Client, productID int, product interface{}) error {
	key := fmt.Sprintf("product:%d", productID)
	data, err := json.Marshal(product)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, key, data, productCacheTTL).Err()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
