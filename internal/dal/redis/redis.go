package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

const (
	// keyOrderStatus caches the last known order status for the polling
	// fallback path: order_status:{order_id}.
	keyOrderStatus = "order_status:%s"
)

// TTLStatusCache bounds staleness of the advisory status cache; the
// database stays the source of truth.
var TTLStatusCache = 5 * time.Minute

// Client wraps the redis connection with the key schema used by the
// service.
type Client struct {
	rdb *redis.Client
}

// MustNewClient connects to redis using the configured address.
func MustNewClient() *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr: viper.GetString("redis.addr"),
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		panic(fmt.Sprintf("failed to connect to redis: %v", err))
	}
	return &Client{rdb: rdb}
}

// Close closes the connection for graceful shutdown.
func (c *Client) Close() error {
	return c.rdb.Close()
}

type cachedStatus struct {
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SetOrderStatus writes through the latest status. Failures are returned so
// callers can log them; the cache is best effort.
func (c *Client) SetOrderStatus(ctx context.Context, orderID, status string, at time.Time) error {
	b, err := json.Marshal(cachedStatus{Status: status, UpdatedAt: at})
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, fmt.Sprintf(keyOrderStatus, orderID), b, TTLStatusCache).Err()
}

// GetOrderStatus returns the cached status, with ok=false on a miss.
func (c *Client) GetOrderStatus(ctx context.Context, orderID string) (status string, updatedAt time.Time, ok bool, err error) {
	s, err := c.rdb.Get(ctx, fmt.Sprintf(keyOrderStatus, orderID)).Result()
	if err == redis.Nil {
		return "", time.Time{}, false, nil
	}
	if err != nil {
		return "", time.Time{}, false, err
	}
	var cs cachedStatus
	if err := json.Unmarshal([]byte(s), &cs); err != nil {
		return "", time.Time{}, false, err
	}
	return cs.Status, cs.UpdatedAt, true, nil
}
