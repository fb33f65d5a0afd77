package kv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pixelbridge/pixelbridge-backend/pkg/config"
)

func TestShopKeysStayInShopNamespace(t *testing.T) {
	shop := "demo-shop.myshopify.com"

	require.Equal(t, "shop:demo-shop.myshopify.com:config", ShopConfigKey(shop))
	require.Equal(t, "shop:demo-shop.myshopify.com:events", ShopEventsKey(shop))
	require.Equal(t, "shop:demo-shop.myshopify.com:stats", ShopStatsKey(shop))
	require.Equal(t, "shop:demo-shop.myshopify.com:session", ShopSessionKey(shop))
	require.Equal(t, "shop:demo-shop.myshopify.com:installation", ShopInstallationKey(shop))
	require.Equal(t, "shop:demo-shop.myshopify.com:uninstalled", ShopTombstoneKey(shop))
	require.Equal(t, "cron:lock:retention", CronLockKey("retention"))
}

func TestOptionsFromURL(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{
		URL:          "redis://:pw@example.com:6380/2",
		PoolSize:     7,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	require.NoError(t, err)
	require.Equal(t, "example.com:6380", opts.Addr)
	require.Equal(t, 2, opts.DB)
	require.Equal(t, 7, opts.PoolSize)
	require.Equal(t, 2*time.Second, opts.DialTimeout)
}

func TestOptionsFromAddress(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{Address: "localhost:6379", DB: 1})
	require.NoError(t, err)
	require.Equal(t, "localhost:6379", opts.Addr)
	require.Equal(t, 1, opts.DB)
}

func TestOptionsRequireEndpoint(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	require.Error(t, err)
}

func TestUninitializedClientFailsClosed(t *testing.T) {
	var c *Client
	require.ErrorIs(t, c.Ping(context.Background()), errNotInitialized)
	_, err := c.GetJSON(context.Background(), "k", &struct{}{})
	require.ErrorIs(t, err, errNotInitialized)
	require.NoError(t, c.Close())
}
