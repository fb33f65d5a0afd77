package controllers

import (
	"context"
	"net/http"

	"github.com/pixelbridge/pixelbridge-backend/api/middleware"
	"github.com/pixelbridge/pixelbridge-backend/api/responses"
	"github.com/pixelbridge/pixelbridge-backend/internal/installer"
	pkgerrors "github.com/pixelbridge/pixelbridge-backend/pkg/errors"
	"github.com/pixelbridge/pixelbridge-backend/pkg/logger"
)

// InstallerService is the installation surface the controllers need.
type InstallerService interface {
	Install(ctx context.Context, shop string) (*installer.Record, error)
	Status(ctx context.Context, shop string) (*installer.Record, error)
}

// InstallPixel registers the pixel script tag on the shop's storefront.
func InstallPixel(svc InstallerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "installer service unavailable"))
			return
		}

		shop := middleware.ShopFromContext(r.Context())
		record, err := svc.Install(r.Context(), shop)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

type installStatusResponse struct {
	Installed bool              `json:"installed"`
	HasConfig bool              `json:"hasConfig"`
	Record    *installer.Record `json:"record,omitempty"`
}

// InstallStatus reports whether the script tag is installed and whether
// tracking is configured, alongside the stored installation record.
func InstallStatus(svc InstallerService, cfgs ConfigService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || cfgs == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "installer service unavailable"))
			return
		}

		shop := middleware.ShopFromContext(r.Context())
		record, err := svc.Status(r.Context(), shop)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cfg, err := cfgs.Get(r.Context(), shop)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, installStatusResponse{
			Installed: record != nil,
			HasConfig: cfg != nil,
			Record:    record,
		})
	}
}
