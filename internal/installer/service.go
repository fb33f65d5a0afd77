// Package installer registers the tracking pixel on a shop's
// storefront via Shopify script tags and records the result.
package installer

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/pixelbridge/pixelbridge-backend/internal/oauth"
	"github.com/pixelbridge/pixelbridge-backend/internal/shopconfig"
	"github.com/pixelbridge/pixelbridge-backend/internal/shopify"
	"github.com/pixelbridge/pixelbridge-backend/pkg/errors"
	"github.com/pixelbridge/pixelbridge-backend/pkg/kv"
	"github.com/pixelbridge/pixelbridge-backend/pkg/logger"
)

// Record is what a completed installation leaves behind.
type Record struct {
	Shop        string    `json:"shop"`
	ScriptTagID int64     `json:"scriptTagId"`
	ScriptSrc   string    `json:"scriptSrc"`
	Status      string    `json:"status"`
	InstalledAt time.Time `json:"installedAt"`
}

const StatusInstalled = "installed"

// ScriptTagAPI is the slice of the Shopify client installs need.
type ScriptTagAPI interface {
	ListScriptTags(ctx context.Context, shop, accessToken string) ([]shopify.ScriptTag, error)
	CreateScriptTag(ctx context.Context, shop, accessToken, src string) (*shopify.ScriptTag, error)
	UpdateScriptTag(ctx context.Context, shop, accessToken string, id int64, src string) (*shopify.ScriptTag, error)
}

// SessionSource resolves a shop's live OAuth session.
type SessionSource interface {
	Get(ctx context.Context, shop string) (*oauth.Session, error)
}

// ConfigSource answers whether a shop has tracking configuration.
type ConfigSource interface {
	Get(ctx context.Context, shop string) (*shopconfig.ShopConfig, error)
}

// RecordStore is the slice of the key-value client installation
// records need.
type RecordStore interface {
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, out any) (bool, error)
}

// ServiceParams carries the dependencies for NewService.
type ServiceParams struct {
	Tags     ScriptTagAPI
	Sessions SessionSource
	Configs  ConfigSource
	Store    RecordStore
	Logg     *logger.Logger
	AppURL   string
}

// Service installs the pixel script tag on shops.
type Service struct {
	tags     ScriptTagAPI
	sessions SessionSource
	configs  ConfigSource
	store    RecordStore
	logg     *logger.Logger
	appURL   string
	now      func() time.Time
}

func NewService(params ServiceParams) *Service {
	return &Service{
		tags:     params.Tags,
		sessions: params.Sessions,
		configs:  params.Configs,
		store:    params.Store,
		logg:     params.Logg,
		appURL:   strings.TrimRight(params.AppURL, "/"),
		now:      time.Now,
	}
}

// Install registers (or repoints) the pixel script tag for a shop.
// The operation is idempotent: an existing tag served by this app is
// updated in place rather than duplicated.
func (s *Service) Install(ctx context.Context, shop string) (*Record, error) {
	ctx = s.logg.WithShop(ctx, shop)

	session, err := s.sessions.Get(ctx, shop)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, errors.New(errors.CodeUnauthorized, "shop has no active session, reinstall the app")
	}

	cfg, err := s.configs.Get(ctx, shop)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, errors.New(errors.CodeValidation, "configure Google Ads tracking before installing the pixel")
	}

	src := s.pixelSrc(shop)
	existing, err := s.tags.ListScriptTags(ctx, shop, session.AccessToken)
	if err != nil {
		return nil, err
	}

	var tag *shopify.ScriptTag
	for i := range existing {
		if strings.HasPrefix(existing[i].Src, s.appURL+"/") {
			tag = &existing[i]
			break
		}
	}

	if tag != nil {
		updated, err := s.tags.UpdateScriptTag(ctx, shop, session.AccessToken, tag.ID, src)
		if err != nil {
			return nil, err
		}
		tag = updated
		s.logg.Info(ctx, "pixel script tag updated")
	} else {
		created, err := s.tags.CreateScriptTag(ctx, shop, session.AccessToken, src)
		if err != nil {
			return nil, err
		}
		tag = created
		s.logg.Info(ctx, "pixel script tag created")
	}

	record := &Record{
		Shop:        shop,
		ScriptTagID: tag.ID,
		ScriptSrc:   tag.Src,
		Status:      StatusInstalled,
		InstalledAt: s.now().UTC(),
	}
	if err := s.store.SetJSON(ctx, kv.ShopInstallationKey(shop), record, 0); err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "persist installation record")
	}
	return record, nil
}

// Status returns the stored installation record, or nil when the pixel
// was never installed.
func (s *Service) Status(ctx context.Context, shop string) (*Record, error) {
	var record Record
	found, err := s.store.GetJSON(ctx, kv.ShopInstallationKey(shop), &record)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "load installation record")
	}
	if !found {
		return nil, nil
	}
	return &record, nil
}

func (s *Service) pixelSrc(shop string) string {
	return s.appURL + "/api/v1/pixel?shop=" + url.QueryEscape(shop)
}
