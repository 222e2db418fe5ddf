package quotecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// KeyPrefix namespaces quote keys in a shared Redis.
const KeyPrefix = "folio:quote:"

// Redis is a QuoteCache shared between processes.
type Redis struct {
	rdb *goredis.Client
}

var _ interfaces.QuoteCache = (*Redis)(nil)

// NewRedis connects to the Redis at url (redis://host:port/db) and pings it.
func NewRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{rdb: rdb}, nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(rdb *goredis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func (r *Redis) Get(ctx context.Context, symbol string) (*models.Quote, error) {
	data, err := r.rdb.Get(ctx, KeyPrefix+symbol).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", symbol, err)
	}

	var q models.Quote
	if err := json.Unmarshal(data, &q); err != nil {
		// A corrupt entry is treated as a miss and overwritten on the next Set.
		return nil, nil
	}
	return &q, nil
}

func (r *Redis) Set(ctx context.Context, symbol string, q *models.Quote, ttl time.Duration) error {
	if q == nil || ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encode quote %s: %w", symbol, err)
	}
	if err := r.rdb.Set(ctx, KeyPrefix+symbol, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", symbol, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
