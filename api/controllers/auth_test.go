package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/pixelbridge/pixelbridge-backend/pkg/errors"
)

type stubAuthService struct {
	beginFn    func(ctx context.Context, shop string) (string, error)
	callbackFn func(ctx context.Context, shop, code, state string) (string, error)
}

func (s stubAuthService) Begin(ctx context.Context, shop string) (string, error) {
	return s.beginFn(ctx, shop)
}

func (s stubAuthService) Callback(ctx context.Context, shop, code, state string) (string, error) {
	return s.callbackFn(ctx, shop, code, state)
}

func TestAuthBeginRedirects(t *testing.T) {
	svc := stubAuthService{
		beginFn: func(_ context.Context, shop string) (string, error) {
			return "https://" + shop + "/admin/oauth/authorize?client_id=key", nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/begin?shop=Demo-Shop.myshopify.com", nil)
	rec := httptest.NewRecorder()
	AuthBegin(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302 got %d", rec.Code)
	}
	loc := rec.Header().Get("Location")
	if !strings.HasPrefix(loc, "https://demo-shop.myshopify.com/admin/oauth/authorize") {
		t.Fatalf("unexpected redirect %q", loc)
	}
}

func TestAuthBeginInvalidShop(t *testing.T) {
	svc := stubAuthService{
		beginFn: func(_ context.Context, shop string) (string, error) {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid shop domain")
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/begin?shop=evil.com", nil)
	rec := httptest.NewRecorder()
	AuthBegin(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAuthCallbackRedirectsHome(t *testing.T) {
	svc := stubAuthService{
		callbackFn: func(_ context.Context, shop, code, state string) (string, error) {
			if code != "authcode" || state != "state-token" {
				t.Fatalf("unexpected args code=%q state=%q", code, state)
			}
			return "https://" + shop + "/admin/apps/key", nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/callback?shop=demo-shop.myshopify.com&code=authcode&state=state-token", nil)
	rec := httptest.NewRecorder()
	AuthCallback(svc, "https://app.example.com", nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302 got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://demo-shop.myshopify.com/admin/apps/key" {
		t.Fatalf("unexpected redirect %q", loc)
	}
}

func TestAuthCallbackFailureRedirectsToErrorPage(t *testing.T) {
	svc := stubAuthService{
		callbackFn: func(context.Context, string, string, string) (string, error) {
			return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid state token")
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/callback?shop=demo-shop.myshopify.com&code=x&state=forged", nil)
	rec := httptest.NewRecorder()
	AuthCallback(svc, "https://app.example.com/", nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302 got %d", rec.Code)
	}
	loc := rec.Header().Get("Location")
	if !strings.HasPrefix(loc, "https://app.example.com/auth/error?message=") {
		t.Fatalf("unexpected redirect %q", loc)
	}
	if !strings.Contains(loc, "invalid+state+token") {
		t.Fatalf("expected public message in redirect, got %q", loc)
	}
}

func TestAuthCallbackInternalFailureHidesMessage(t *testing.T) {
	svc := stubAuthService{
		callbackFn: func(context.Context, string, string, string) (string, error) {
			return "", pkgerrors.New(pkgerrors.CodeInternal, "redis password leaked")
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/callback?shop=demo-shop.myshopify.com&code=x&state=s", nil)
	rec := httptest.NewRecorder()
	AuthCallback(svc, "https://app.example.com", nil).ServeHTTP(rec, req)

	loc := rec.Header().Get("Location")
	if strings.Contains(loc, "redis") {
		t.Fatalf("internal message leaked: %q", loc)
	}
	if !strings.Contains(loc, "installation+failed") {
		t.Fatalf("expected generic message, got %q", loc)
	}
}
