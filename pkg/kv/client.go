package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pixelbridge/pixelbridge-backend/pkg/config"
)

// Client wraps the redis connection behind the narrow key-value surface
// the services consume: get/set/delete with optional TTL, capped list
// push, list range, existence checks and the shop index set.
type Client struct {
	raw *redis.Client
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(context.Context) error
}

var errNotInitialized = errors.New("kv client not initialized")

// New bootstraps a redis-backed client with pooling/timeouts and
// verifies connectivity.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{raw: raw}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" && cfg.Address == "" {
		return nil, errors.New("redis url or address is required")
	}
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if opts.DB == 0 {
		opts.DB = cfg.DB
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// SetJSON marshals value and stores it at key with an optional TTL
// (ttl <= 0 means no expiry).
func (c *Client) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c == nil || c.raw == nil {
		return errNotInitialized
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return c.raw.Set(ctx, key, payload, ttl).Err()
}

// GetJSON unmarshals the value at key into dest. The boolean reports
// whether the key existed; an absent key is not an error.
func (c *Client) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if c == nil || c.raw == nil {
		return false, errNotInitialized
	}
	payload, err := c.raw.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

// SetNX sets a value only if the key does not exist yet.
func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c == nil || c.raw == nil {
		return false, errNotInitialized
	}
	return c.raw.SetNX(ctx, key, value, ttl).Result()
}

// Get returns the string value stored at key.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c == nil || c.raw == nil {
		return "", errNotInitialized
	}
	return c.raw.Get(ctx, key).Result()
}

// Del removes the provided keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c == nil || c.raw == nil {
		return errNotInitialized
	}
	return c.raw.Del(ctx, keys...).Err()
}

// Exists reports whether key is present.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	if c == nil || c.raw == nil {
		return false, errNotInitialized
	}
	n, err := c.raw.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// PushEventAndCount appends payload to the front of eventsKey, trims the
// list to cap entries and bumps the stats hash counters, all inside one
// MULTI/EXEC so the list and the aggregates never diverge under
// concurrent writers.
func (c *Client) PushEventAndCount(ctx context.Context, eventsKey, statsKey string, payload []byte, cap int64, typeField string, at time.Time) error {
	if c == nil || c.raw == nil {
		return errNotInitialized
	}
	if cap <= 0 {
		return errors.New("list cap must be positive")
	}
	_, err := c.raw.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, eventsKey, payload)
		pipe.LTrim(ctx, eventsKey, 0, cap-1)
		pipe.HIncrBy(ctx, statsKey, StatsFieldTotal, 1)
		pipe.HIncrBy(ctx, statsKey, typeField, 1)
		pipe.HSet(ctx, statsKey, StatsFieldLastEventAt, at.UTC().Format(time.RFC3339Nano))
		return nil
	})
	return err
}

// LRange returns raw list entries between start and stop inclusive.
func (c *Client) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	if c == nil || c.raw == nil {
		return nil, errNotInitialized
	}
	return c.raw.LRange(ctx, key, start, stop).Result()
}

// LTrim keeps list entries between start and stop inclusive.
func (c *Client) LTrim(ctx context.Context, key string, start, stop int64) error {
	if c == nil || c.raw == nil {
		return errNotInitialized
	}
	return c.raw.LTrim(ctx, key, start, stop).Err()
}

// HGetAll returns the hash stored at key; an absent key yields an empty map.
func (c *Client) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if c == nil || c.raw == nil {
		return nil, errNotInitialized
	}
	return c.raw.HGetAll(ctx, key).Result()
}

// SAdd adds members to the set at key.
func (c *Client) SAdd(ctx context.Context, key string, members ...string) error {
	if c == nil || c.raw == nil {
		return errNotInitialized
	}
	args := make([]any, len(members))
	for i, m := range members {
		args[i] = m
	}
	return c.raw.SAdd(ctx, key, args...).Err()
}

// SRem removes members from the set at key.
func (c *Client) SRem(ctx context.Context, key string, members ...string) error {
	if c == nil || c.raw == nil {
		return errNotInitialized
	}
	args := make([]any, len(members))
	for i, m := range members {
		args[i] = m
	}
	return c.raw.SRem(ctx, key, args...).Err()
}

// SMembers returns every member of the set at key.
func (c *Client) SMembers(ctx context.Context, key string) ([]string, error) {
	if c == nil || c.raw == nil {
		return nil, errNotInitialized
	}
	return c.raw.SMembers(ctx, key).Result()
}

// Ping verifies the connection.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.raw == nil {
		return errNotInitialized
	}
	return c.raw.Ping(ctx).Err()
}

// Close shuts down the underlying client if available.
func (c *Client) Close() error {
	if c == nil || c.raw == nil {
		return nil
	}
	return c.raw.Close()
}
