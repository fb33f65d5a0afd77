package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pixelbridge/pixelbridge-backend/internal/pixel"
	"github.com/pixelbridge/pixelbridge-backend/internal/shopify"
	"github.com/pixelbridge/pixelbridge-backend/pkg/logger"
	"github.com/pixelbridge/pixelbridge-backend/pkg/metrics"
)

// Pixel serves the storefront tracking script. This endpoint never
// errors: a missing shop or unreadable configuration degrades to the
// diagnostic no-op script so the storefront keeps rendering.
func Pixel(svc ConfigService, gen *pixel.Generator, apiMetrics *metrics.APIMetrics, cacheTTL time.Duration, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeScript := func(script, outcome string) {
			apiMetrics.IncPixelRender(outcome)
			w.Header().Set("Content-Type", pixel.ContentType)
			if cacheTTL > 0 {
				w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(cacheTTL.Seconds())))
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(script))
		}

		shop := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("shop")))
		if !shopify.ValidShopDomain(shop) {
			writeScript(pixel.Fallback("shop parameter missing or invalid", time.Now()), "fallback")
			return
		}

		cfg, err := svc.Get(r.Context(), shop)
		if err != nil {
			if logg != nil {
				logg.Warn(logg.WithShop(r.Context(), shop), "pixel config unavailable, serving fallback")
			}
			writeScript(pixel.Fallback("configuration temporarily unavailable", time.Now()), "fallback")
			return
		}

		script := gen.Render(cfg)
		outcome := "ok"
		if cfg == nil || !pixel.Probe(script).Active {
			outcome = "fallback"
		}
		writeScript(script, outcome)
	}
}
