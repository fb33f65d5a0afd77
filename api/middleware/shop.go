package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/pixelbridge/pixelbridge-backend/api/responses"
	"github.com/pixelbridge/pixelbridge-backend/internal/shopify"
	pkgerrors "github.com/pixelbridge/pixelbridge-backend/pkg/errors"
	"github.com/pixelbridge/pixelbridge-backend/pkg/logger"
)

type shopCtxKey struct{}

// RequireShop validates the ?shop= query parameter and stashes the
// normalized domain in the request context. Handlers behind it can
// assume a well-formed shop domain.
func RequireShop(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			shop := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("shop")))
			if !shopify.ValidShopDomain(shop) {
				err := pkgerrors.New(pkgerrors.CodeValidation, "missing or invalid shop parameter").
					WithDetails(map[string]any{"field": "shop"})
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := context.WithValue(r.Context(), shopCtxKey{}, shop)
			if logg != nil {
				ctx = logg.WithShop(ctx, shop)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithShop returns a context carrying the shop domain, as RequireShop
// would set it.
func WithShop(ctx context.Context, shop string) context.Context {
	return context.WithValue(ctx, shopCtxKey{}, shop)
}

// ShopFromContext returns the shop domain set by RequireShop.
func ShopFromContext(ctx context.Context) string {
	shop, _ := ctx.Value(shopCtxKey{}).(string)
	return shop
}
