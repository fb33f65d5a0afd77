package controllers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/pixelbridge/pixelbridge-backend/api/responses"
	pkgerrors "github.com/pixelbridge/pixelbridge-backend/pkg/errors"
	"github.com/pixelbridge/pixelbridge-backend/pkg/logger"
)

// AuthService is the OAuth surface the controllers need.
type AuthService interface {
	Begin(ctx context.Context, shop string) (string, error)
	Callback(ctx context.Context, shop, code, state string) (string, error)
}

// AuthBegin starts the install flow: validates the shop and redirects
// the merchant to Shopify's consent screen.
func AuthBegin(svc AuthService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		shop := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("shop")))
		consentURL, err := svc.Begin(r.Context(), shop)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		http.Redirect(w, r, consentURL, http.StatusFound)
	}
}

// AuthCallback completes the install flow. Failures redirect to the
// app's error page rather than rendering a bare JSON error, since the
// merchant's browser is driving this request.
func AuthCallback(svc AuthService, appURL string, logg *logger.Logger) http.HandlerFunc {
	appURL = strings.TrimRight(appURL, "/")
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		q := r.URL.Query()
		shop := strings.ToLower(strings.TrimSpace(q.Get("shop")))
		home, err := svc.Callback(r.Context(), shop, q.Get("code"), q.Get("state"))
		if err != nil {
			if logg != nil {
				logg.Error(r.Context(), "oauth callback failed", err)
			}
			message := "installation failed"
			if typed := pkgerrors.As(err); typed != nil && typed.Code() != pkgerrors.CodeInternal {
				message = typed.Message()
			}
			http.Redirect(w, r, appURL+"/auth/error?message="+url.QueryEscape(message), http.StatusFound)
			return
		}
		http.Redirect(w, r, home, http.StatusFound)
	}
}
