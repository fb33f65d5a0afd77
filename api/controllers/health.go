package controllers

import (
	"context"
	"net/http"

	"github.com/pixelbridge/pixelbridge-backend/api/responses"
	"github.com/pixelbridge/pixelbridge-backend/pkg/config"
	pkgerrors "github.com/pixelbridge/pixelbridge-backend/pkg/errors"
	"github.com/pixelbridge/pixelbridge-backend/pkg/logger"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PixelBridge-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady answers ready only when the key-value store responds.
func HealthReady(cfg *config.Config, ping func(ctx context.Context) error, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PixelBridge-Env", cfg.App.Env)
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store unreachable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
