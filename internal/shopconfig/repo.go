package shopconfig

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/pixelbridge/pixelbridge-backend/pkg/errors"
	"github.com/pixelbridge/pixelbridge-backend/pkg/kv"
)

// conversionIDPattern is the advertiser account id format Google Ads issues.
var conversionIDPattern = regexp.MustCompile(`^AW-\d+$`)

// Store is the key-value surface the repository needs.
type Store interface {
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
}

// Repository owns the per-shop configuration records.
type Repository struct {
	store Store
	now   func() time.Time
}

func NewRepository(store Store) (*Repository, error) {
	if store == nil {
		return nil, errors.New(errors.CodeDependency, "config store required")
	}
	return &Repository{store: store, now: time.Now}, nil
}

// Save validates and overwrites the shop's configuration wholesale.
// Validation failures carry the offending field and nothing is written.
func (r *Repository) Save(ctx context.Context, shop string, ads GoogleAdsConfig) (*ShopConfig, error) {
	if shop == "" {
		return nil, errors.New(errors.CodeValidation, "shop is required").
			WithDetails(map[string]string{"field": "shop"})
	}
	ads.ConversionID = strings.TrimSpace(ads.ConversionID)
	ads.PurchaseLabel = strings.TrimSpace(ads.PurchaseLabel)
	ads.AddToCartLabel = strings.TrimSpace(ads.AddToCartLabel)
	ads.BeginCheckoutLabel = strings.TrimSpace(ads.BeginCheckoutLabel)

	if err := validate(ads); err != nil {
		return nil, err
	}

	record := &ShopConfig{
		Shop:          shop,
		GoogleAds:     ads,
		EnabledEvents: ads.EnabledEvents(),
		UpdatedAt:     r.now().UTC(),
	}
	if err := r.store.SetJSON(ctx, kv.ShopConfigKey(shop), record, 0); err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "save shop config")
	}
	if err := r.store.SAdd(ctx, kv.ShopsIndexKey(), shop); err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "index shop")
	}
	return record, nil
}

// Get returns the shop's configuration, or nil when the shop was never
// configured. Absence is a normal state, not an error.
func (r *Repository) Get(ctx context.Context, shop string) (*ShopConfig, error) {
	if shop == "" {
		return nil, errors.New(errors.CodeValidation, "shop is required")
	}
	var record ShopConfig
	found, err := r.store.GetJSON(ctx, kv.ShopConfigKey(shop), &record)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "load shop config")
	}
	if !found {
		return nil, nil
	}
	return &record, nil
}

// Exists reports whether the shop has a persisted configuration.
func (r *Repository) Exists(ctx context.Context, shop string) (bool, error) {
	ok, err := r.store.Exists(ctx, kv.ShopConfigKey(shop))
	if err != nil {
		return false, errors.Wrap(errors.CodeDependency, err, "check shop config")
	}
	return ok, nil
}

// Delete removes the configuration and drops the shop from the sweep index.
func (r *Repository) Delete(ctx context.Context, shop string) error {
	if err := r.store.Del(ctx, kv.ShopConfigKey(shop)); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "delete shop config")
	}
	if err := r.store.SRem(ctx, kv.ShopsIndexKey(), shop); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "deindex shop")
	}
	return nil
}

func validate(ads GoogleAdsConfig) error {
	if ads.ConversionID == "" {
		return errors.New(errors.CodeValidation, "conversion id is required").
			WithDetails(map[string]string{"field": "conversionId"})
	}
	if !conversionIDPattern.MatchString(ads.ConversionID) {
		return errors.New(errors.CodeValidation, "conversion id must match AW-<digits>").
			WithDetails(map[string]string{"field": "conversionId"})
	}
	if ads.PurchaseLabel == "" {
		return errors.New(errors.CodeValidation, "purchase label is required").
			WithDetails(map[string]string{"field": "purchaseLabel"})
	}
	return nil
}
