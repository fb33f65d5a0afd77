package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pixelbridge/pixelbridge-backend/internal/shopify"
	pkgerrors "github.com/pixelbridge/pixelbridge-backend/pkg/errors"
)

const webhookSecret = "shpss_webhook_secret"

type stubPurgeService struct {
	purgeFn func(ctx context.Context, shop string) error
}

func (s stubPurgeService) Purge(ctx context.Context, shop string) error {
	return s.purgeFn(ctx, shop)
}

func signBody(t *testing.T, body []byte) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func webhookRequest(t *testing.T, body []byte, shopHeader string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/app/uninstalled", bytes.NewReader(body))
	req.Header.Set(shopify.HeaderHMAC, signBody(t, body))
	if shopHeader != "" {
		req.Header.Set(shopify.HeaderShopDomain, shopHeader)
	}
	return req
}

func TestAppUninstalledPurgesShop(t *testing.T) {
	var purged string
	svc := stubPurgeService{
		purgeFn: func(_ context.Context, shop string) error {
			purged = shop
			return nil
		},
	}

	req := webhookRequest(t, []byte(`{"id":1}`), "Demo-Shop.myshopify.com")
	rec := httptest.NewRecorder()
	AppUninstalled(svc, webhookSecret, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if purged != "demo-shop.myshopify.com" {
		t.Fatalf("expected lowercased shop purged, got %q", purged)
	}
}

func TestAppUninstalledShopFromBodyFallback(t *testing.T) {
	var purged string
	svc := stubPurgeService{
		purgeFn: func(_ context.Context, shop string) error {
			purged = shop
			return nil
		},
	}

	body := []byte(`{"shop_domain":"demo-shop.myshopify.com"}`)
	req := webhookRequest(t, body, "")
	rec := httptest.NewRecorder()
	AppUninstalled(svc, webhookSecret, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if purged != "demo-shop.myshopify.com" {
		t.Fatalf("expected shop from body, got %q", purged)
	}
}

func TestAppUninstalledRejectsBadSignature(t *testing.T) {
	called := false
	svc := stubPurgeService{
		purgeFn: func(context.Context, string) error {
			called = true
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/app/uninstalled", bytes.NewReader([]byte(`{}`)))
	req.Header.Set(shopify.HeaderHMAC, "bm90LWEtcmVhbC1zaWduYXR1cmU=")
	req.Header.Set(shopify.HeaderShopDomain, "demo-shop.myshopify.com")
	rec := httptest.NewRecorder()
	AppUninstalled(svc, webhookSecret, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
	if called {
		t.Fatal("purge must not run on a forged delivery")
	}
}

func TestAppUninstalledMissingShop(t *testing.T) {
	svc := stubPurgeService{
		purgeFn: func(context.Context, string) error { return nil },
	}

	req := webhookRequest(t, []byte(`{"id":1}`), "")
	rec := httptest.NewRecorder()
	AppUninstalled(svc, webhookSecret, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAppUninstalledPurgeFailureSurfaces(t *testing.T) {
	svc := stubPurgeService{
		purgeFn: func(context.Context, string) error {
			return pkgerrors.New(pkgerrors.CodeDependency, "key value store unavailable")
		},
	}

	req := webhookRequest(t, []byte(`{"id":1}`), "demo-shop.myshopify.com")
	rec := httptest.NewRecorder()
	AppUninstalled(svc, webhookSecret, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 so the delivery is retried, got %d", rec.Code)
	}
}
