package controllers

import (
	"context"
	"net/http"

	"github.com/pixelbridge/pixelbridge-backend/api/middleware"
	"github.com/pixelbridge/pixelbridge-backend/api/responses"
	"github.com/pixelbridge/pixelbridge-backend/internal/diagnosis"
	pkgerrors "github.com/pixelbridge/pixelbridge-backend/pkg/errors"
	"github.com/pixelbridge/pixelbridge-backend/pkg/logger"
)

// DiagnosisService is the health-report surface the controller needs.
type DiagnosisService interface {
	Diagnose(ctx context.Context, shop string) (*diagnosis.Report, error)
}

// Diagnose grades the shop's full setup in one report.
func Diagnose(svc DiagnosisService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "diagnosis service unavailable"))
			return
		}

		shop := middleware.ShopFromContext(r.Context())
		report, err := svc.Diagnose(r.Context(), shop)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}
