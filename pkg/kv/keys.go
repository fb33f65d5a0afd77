package kv

import "strings"

// Per-shop key namespaces. Every component touches storage only through
// its own namespace; nothing ever scans or enumerates keys.
const (
	shopPrefix    = "shop"
	shopsIndexKey = "shops:index"
	cronPrefix    = "cron"
)

// Stats hash field names.
const (
	StatsFieldTotal         = "total_events"
	StatsFieldPurchase      = "purchase_events"
	StatsFieldAddToCart     = "add_to_cart_events"
	StatsFieldBeginCheckout = "begin_checkout_events"
	StatsFieldLastEventAt   = "last_event_at"
)

func ShopConfigKey(shop string) string {
	return buildKey(shopPrefix, shop, "config")
}

func ShopEventsKey(shop string) string {
	return buildKey(shopPrefix, shop, "events")
}

func ShopStatsKey(shop string) string {
	return buildKey(shopPrefix, shop, "stats")
}

func ShopSessionKey(shop string) string {
	return buildKey(shopPrefix, shop, "session")
}

func ShopInstallationKey(shop string) string {
	return buildKey(shopPrefix, shop, "installation")
}

// ShopTombstoneKey marks an uninstalled shop for the audit retention window.
func ShopTombstoneKey(shop string) string {
	return buildKey(shopPrefix, shop, "uninstalled")
}

// ShopsIndexKey is the explicit membership set the retention sweep walks
// instead of scanning the keyspace.
func ShopsIndexKey() string {
	return shopsIndexKey
}

// CronLockKey namespaces the worker's exclusive-run lock.
func CronLockKey(name string) string {
	return buildKey(cronPrefix, "lock", name)
}

func buildKey(parts ...string) string {
	clean := parts[:0:0]
	for _, part := range parts {
		if part == "" {
			continue
		}
		clean = append(clean, strings.TrimSpace(part))
	}
	return strings.Join(clean, ":")
}
