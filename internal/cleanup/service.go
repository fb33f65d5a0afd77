// Package cleanup removes every trace of a shop after the app is
// uninstalled.
package cleanup

import (
	"context"
	"time"

	"go.uber.org/multierr"

	"github.com/pixelbridge/pixelbridge-backend/pkg/errors"
	"github.com/pixelbridge/pixelbridge-backend/pkg/kv"
	"github.com/pixelbridge/pixelbridge-backend/pkg/logger"
)

// Store is the slice of the key-value client purges need.
type Store interface {
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	SRem(ctx context.Context, key string, members ...string) error
}

// ServiceParams carries the dependencies for NewService.
type ServiceParams struct {
	Store        Store
	Logg         *logger.Logger
	TombstoneTTL time.Duration
}

// Service purges uninstalled shops.
type Service struct {
	store        Store
	logg         *logger.Logger
	tombstoneTTL time.Duration
	now          func() time.Time
}

func NewService(params ServiceParams) *Service {
	return &Service{
		store:        params.Store,
		logg:         params.Logg,
		tombstoneTTL: params.TombstoneTTL,
		now:          time.Now,
	}
}

// tombstone marks a purged shop so that late-arriving writes (webhook
// retries, in-flight pixel reports) are refused instead of recreating
// the deleted keys; the event recorder checks it before every write.
// It expires on its own.
type tombstone struct {
	Shop          string    `json:"shop"`
	UninstalledAt time.Time `json:"uninstalledAt"`
}

// Purge deletes a shop's configuration, session, installation record,
// events and counters, and removes it from the shop index. The
// tombstone is written first so the shop reads as uninstalled even if
// a later step fails; failures are combined and surfaced for retry.
func (s *Service) Purge(ctx context.Context, shop string) error {
	ctx = s.logg.WithShop(ctx, shop)

	mark := tombstone{Shop: shop, UninstalledAt: s.now().UTC()}
	if err := s.store.SetJSON(ctx, kv.ShopTombstoneKey(shop), mark, s.tombstoneTTL); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "write uninstall tombstone")
	}

	err := multierr.Combine(
		s.store.Del(ctx,
			kv.ShopConfigKey(shop),
			kv.ShopSessionKey(shop),
			kv.ShopInstallationKey(shop),
			kv.ShopEventsKey(shop),
			kv.ShopStatsKey(shop),
		),
		s.store.SRem(ctx, kv.ShopsIndexKey(), shop),
	)
	if err != nil {
		return errors.Wrap(errors.CodeDependency, err, "purge shop data")
	}

	s.logg.Info(ctx, "shop data purged")
	return nil
}
