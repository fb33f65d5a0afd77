package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pixelbridge/pixelbridge-backend/api/controllers"
	webhookcontrollers "github.com/pixelbridge/pixelbridge-backend/api/controllers/webhooks"
	"github.com/pixelbridge/pixelbridge-backend/api/middleware"
	"github.com/pixelbridge/pixelbridge-backend/internal/pixel"
	"github.com/pixelbridge/pixelbridge-backend/pkg/config"
	"github.com/pixelbridge/pixelbridge-backend/pkg/logger"
	"github.com/pixelbridge/pixelbridge-backend/pkg/metrics"
)

// RouterParams bundles everything the HTTP surface depends on.
type RouterParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	Ping       func(ctx context.Context) error
	Configs    controllers.ConfigService
	Events     controllers.EventsService
	Pixels     *pixel.Generator
	Installer  controllers.InstallerService
	Diagnosis  controllers.DiagnosisService
	Auth       controllers.AuthService
	Cleanup    webhookcontrollers.PurgeService
	APIMetrics *metrics.APIMetrics
	Registry   *prometheus.Registry
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.Ping, logg))
	})

	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Get("/", controllers.AuthBegin(p.Auth, logg))
			r.Get("/callback", controllers.AuthCallback(p.Auth, cfg.Shopify.AppURL, logg))
		})

		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/app/uninstalled", webhookcontrollers.AppUninstalled(p.Cleanup, cfg.Shopify.APISecret, logg))
		})

		// storefront surface: open CORS; the pixel endpoint resolves the
		// shop itself so it can answer 200 JS even without one
		r.Group(func(r chi.Router) {
			r.Use(middleware.PixelCORS())
			r.Get("/pixel", controllers.Pixel(p.Configs, p.Pixels, p.APIMetrics, cfg.Pixel.CacheTTL, logg))
			r.With(middleware.RequireShop(logg)).
				Post("/events", controllers.RecordEvent(p.Events, p.APIMetrics, logg))
		})

		// admin surface for the embedded app UI
		r.Group(func(r chi.Router) {
			r.Use(middleware.APICORS(cfg.Shopify.AppURL), middleware.RequireShop(logg))
			r.Get("/config", controllers.GetConfig(p.Configs, logg))
			r.Post("/config", controllers.SaveConfig(p.Configs, logg))
			r.Get("/events", controllers.ListEvents(p.Events, cfg.Events.DefaultPageSize, cfg.Events.MaxPageSize, logg))
			r.Get("/events/stats", controllers.EventStats(p.Events, logg))
			r.Post("/install-script", controllers.InstallPixel(p.Installer, logg))
			r.Get("/install-script", controllers.InstallStatus(p.Installer, p.Configs, logg))
			r.Get("/diagnosis", controllers.Diagnose(p.Diagnosis, logg))
		})
	})

	return r
}
