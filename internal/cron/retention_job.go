package cron

import (
	"context"
	"errors"

	"go.uber.org/multierr"

	"github.com/pixelbridge/pixelbridge-backend/pkg/kv"
	"github.com/pixelbridge/pixelbridge-backend/pkg/logger"
)

// RetentionStore defines the operations the retention job needs.
type RetentionStore interface {
	SMembers(ctx context.Context, key string) ([]string, error)
	LTrim(ctx context.Context, key string, start, stop int64) error
	Exists(ctx context.Context, key string) (bool, error)
	SRem(ctx context.Context, key string, members ...string) error
	Del(ctx context.Context, keys ...string) error
}

// RetentionJobParams configure the retention job.
type RetentionJobParams struct {
	Store   RetentionStore
	Logger  *logger.Logger
	ListCap int64
}

// RetentionJob walks the shop index, re-trims event lists to the
// retention cap, and deindexes shops that no longer have any live
// state. It finishes the work of purges that failed partway through.
type RetentionJob struct {
	store   RetentionStore
	logg    *logger.Logger
	listCap int64
}

// NewRetentionJob builds the retention job.
func NewRetentionJob(params RetentionJobParams) (*RetentionJob, error) {
	if params.Store == nil {
		return nil, errors.New("retention job requires a store")
	}
	if params.Logger == nil {
		return nil, errors.New("retention job requires a logger")
	}
	listCap := params.ListCap
	if listCap <= 0 {
		listCap = 1000
	}
	return &RetentionJob{
		store:   params.Store,
		logg:    params.Logger,
		listCap: listCap,
	}, nil
}

// Name implements Job.
func (j *RetentionJob) Name() string { return "event-retention" }

// Run implements Job. Per-shop failures are combined and reported at
// the end so one sick shop does not stop the sweep.
func (j *RetentionJob) Run(ctx context.Context) error {
	shops, err := j.store.SMembers(ctx, kv.ShopsIndexKey())
	if err != nil {
		return err
	}

	var (
		trimmed   int
		deindexed int
		failures  error
	)
	for _, shop := range shops {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := j.sweepShop(ctx, shop, &deindexed); err != nil {
			failures = multierr.Append(failures, err)
			continue
		}
		trimmed++
	}

	fields := map[string]any{
		"shops":     len(shops),
		"trimmed":   trimmed,
		"deindexed": deindexed,
	}
	j.logg.Info(j.logg.WithFields(ctx, fields), "retention sweep complete")
	return failures
}

func (j *RetentionJob) sweepShop(ctx context.Context, shop string, deindexed *int) error {
	if err := j.store.LTrim(ctx, kv.ShopEventsKey(shop), 0, j.listCap-1); err != nil {
		return err
	}

	alive, err := j.shopAlive(ctx, shop)
	if err != nil {
		return err
	}
	if alive {
		return nil
	}

	// nothing live remains: finish the purge and drop the shop from
	// the index
	if err := j.store.Del(ctx, kv.ShopEventsKey(shop), kv.ShopStatsKey(shop), kv.ShopInstallationKey(shop)); err != nil {
		return err
	}
	if err := j.store.SRem(ctx, kv.ShopsIndexKey(), shop); err != nil {
		return err
	}
	*deindexed++
	j.logg.Info(j.logg.WithShop(ctx, shop), "stale shop deindexed")
	return nil
}

// shopAlive reports whether a shop still has configuration or an
// active session. Tombstoned shops are never alive.
func (j *RetentionJob) shopAlive(ctx context.Context, shop string) (bool, error) {
	dead, err := j.store.Exists(ctx, kv.ShopTombstoneKey(shop))
	if err != nil {
		return false, err
	}
	if dead {
		return false, nil
	}
	hasConfig, err := j.store.Exists(ctx, kv.ShopConfigKey(shop))
	if err != nil {
		return false, err
	}
	if hasConfig {
		return true, nil
	}
	return j.store.Exists(ctx, kv.ShopSessionKey(shop))
}

var _ Job = (*RetentionJob)(nil)
