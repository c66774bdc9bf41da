package redisx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lookali/marketplace-api/pkg/logkey"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

func Exists(ctx context.Context, rdb *redis.Client, key string) (bool, error) {
	n, err := rdb.Exists(ctx, key).Result()
	return n > 0, err
}

// StatusCache keeps the latest known order status for fast reads.
type StatusCache struct{ RDB *redis.Client }

type statusEntry struct {
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c StatusCache) SetStatus(ctx context.Context, orderID, status string) {
	b, _ := json.Marshal(statusEntry{Status: status, UpdatedAt: time.Now().UTC()})
	if err := c.RDB.Set(ctx, fmt.Sprintf(KeyOrderStatus, orderID), b, TTLStatusCache).Err(); err != nil {
		slog.Warn("status cache set", slog.String(logkey.OrderID, orderID), slog.String(logkey.ERROR, err.Error()))
	}
}

func (c StatusCache) GetStatus(ctx context.Context, orderID string) (string, bool) {
	b, err := c.RDB.Get(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Bytes()
	if err != nil {
		return "", false
	}
	var e statusEntry
	if json.Unmarshal(b, &e) != nil || e.Status == "" {
		return "", false
	}
	return e.Status, true
}

// Deduper remembers processed event ids per consuming service.
type Deduper struct {
	RDB     *redis.Client
	Service string
}

func (d Deduper) Seen(ctx context.Context, eventID string) (bool, error) {
	return Exists(ctx, d.RDB, fmt.Sprintf(KeyDedup, d.Service, eventID))
}

func (d Deduper) Mark(ctx context.Context, eventID string) error {
	return d.RDB.Set(ctx, fmt.Sprintf(KeyDedup, d.Service, eventID), "1", TTLDedup).Err()
}

// LookupCache stores raw lookup responses.
type LookupCache struct{ RDB *redis.Client }

func (c LookupCache) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := c.RDB.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (c LookupCache) Set(ctx context.Context, key string, value []byte) {
	if err := c.RDB.Set(ctx, key, value, TTLLookup).Err(); err != nil {
		slog.Warn("lookup cache set", slog.String("key", key), slog.String(logkey.ERROR, err.Error()))
	}
}
