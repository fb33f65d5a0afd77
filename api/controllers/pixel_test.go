package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pixelbridge/pixelbridge-backend/internal/pixel"
	"github.com/pixelbridge/pixelbridge-backend/internal/shopconfig"
	pkgerrors "github.com/pixelbridge/pixelbridge-backend/pkg/errors"
)

func pixelHandler(getFn func(ctx context.Context, shop string) (*shopconfig.ShopConfig, error)) http.HandlerFunc {
	svc := stubConfigService{getFn: getFn}
	return Pixel(svc, pixel.NewGenerator("https://app.example.com"), nil, 5*time.Minute, nil)
}

func TestPixelServesScript(t *testing.T) {
	handler := pixelHandler(func(_ context.Context, shop string) (*shopconfig.ShopConfig, error) {
		return &shopconfig.ShopConfig{
			Shop:      shop,
			GoogleAds: shopconfig.GoogleAdsConfig{ConversionID: "AW-123", PurchaseLabel: "abc"},
		}, nil
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, shopRequest(http.MethodGet, "/api/v1/pixel?shop=demo-shop.myshopify.com", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/javascript") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "public, max-age=300" {
		t.Fatalf("unexpected cache control %q", cc)
	}
	if !strings.Contains(rec.Body.String(), "AW-123") {
		t.Fatal("expected script to embed the conversion id")
	}
}

func TestPixelUnconfiguredShopGetsFallback(t *testing.T) {
	handler := pixelHandler(func(context.Context, string) (*shopconfig.ShopConfig, error) {
		return nil, nil
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, shopRequest(http.MethodGet, "/api/v1/pixel?shop=demo-shop.myshopify.com", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("pixel must always answer 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "tracking disabled") {
		t.Fatal("expected diagnostic fallback script")
	}
	if strings.Contains(body, "gtag") {
		t.Fatal("fallback script must not load gtag")
	}
}

func TestPixelMissingShopGetsFallback(t *testing.T) {
	handler := pixelHandler(func(context.Context, string) (*shopconfig.ShopConfig, error) {
		t.Fatal("config must not be fetched without a valid shop")
		return nil, nil
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/pixel", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("pixel must always answer 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "tracking disabled") {
		t.Fatal("expected diagnostic fallback script")
	}
}

func TestPixelStoreFailureStillAnswers(t *testing.T) {
	handler := pixelHandler(func(context.Context, string) (*shopconfig.ShopConfig, error) {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "redis unavailable")
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, shopRequest(http.MethodGet, "/api/v1/pixel?shop=demo-shop.myshopify.com", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("pixel must always answer 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "tracking disabled") {
		t.Fatal("expected diagnostic fallback script")
	}
}
