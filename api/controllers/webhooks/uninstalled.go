package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pixelbridge/pixelbridge-backend/api/responses"
	"github.com/pixelbridge/pixelbridge-backend/internal/shopify"
	pkgerrors "github.com/pixelbridge/pixelbridge-backend/pkg/errors"
	"github.com/pixelbridge/pixelbridge-backend/pkg/logger"
)

const maxWebhookBody = 1 << 20

// PurgeService removes all stored state for an uninstalled shop.
type PurgeService interface {
	Purge(ctx context.Context, shop string) error
}

// AppUninstalled handles Shopify's app/uninstalled webhook: verifies
// the HMAC signature over the raw body, resolves the shop, and purges
// its data. Shopify retries non-2xx deliveries, so failures surface as
// errors rather than being swallowed.
func AppUninstalled(svc PurgeService, apiSecret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cleanup service unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if !shopify.VerifyWebhookHMAC(payload, r.Header.Get(shopify.HeaderHMAC), apiSecret) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		shop := strings.ToLower(strings.TrimSpace(r.Header.Get(shopify.HeaderShopDomain)))
		if shop == "" {
			var body struct {
				ShopDomain string `json:"shop_domain"`
				Domain     string `json:"domain"`
			}
			if err := json.Unmarshal(payload, &body); err == nil {
				shop = strings.ToLower(strings.TrimSpace(body.ShopDomain))
				if shop == "" {
					shop = strings.ToLower(strings.TrimSpace(body.Domain))
				}
			}
		}
		if !shopify.ValidShopDomain(shop) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "webhook missing shop domain"))
			return
		}

		if err := svc.Purge(ctx, shop); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}
