package controllers

import (
	"context"
	"net/http"

	"github.com/pixelbridge/pixelbridge-backend/api/middleware"
	"github.com/pixelbridge/pixelbridge-backend/api/responses"
	"github.com/pixelbridge/pixelbridge-backend/api/validators"
	"github.com/pixelbridge/pixelbridge-backend/internal/shopconfig"
	pkgerrors "github.com/pixelbridge/pixelbridge-backend/pkg/errors"
	"github.com/pixelbridge/pixelbridge-backend/pkg/logger"
)

// ConfigService is the configuration surface the controllers need.
type ConfigService interface {
	Save(ctx context.Context, shop string, ads shopconfig.GoogleAdsConfig) (*shopconfig.ShopConfig, error)
	Get(ctx context.Context, shop string) (*shopconfig.ShopConfig, error)
}

type googleAdsPayload struct {
	ConversionID        string `json:"conversionId" validate:"required"`
	PurchaseLabel       string `json:"purchaseLabel" validate:"required"`
	AddToCartLabel      string `json:"addToCartLabel"`
	BeginCheckoutLabel  string `json:"beginCheckoutLabel"`
	EnhancedConversions bool   `json:"enhancedConversions"`
}

type saveConfigRequest struct {
	GoogleAds *googleAdsPayload `json:"googleAds" validate:"required"`
}

// GetConfig returns the shop's stored configuration. An unconfigured
// shop is a normal answer: success with null data.
func GetConfig(svc ConfigService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "config service unavailable"))
			return
		}

		shop := middleware.ShopFromContext(r.Context())
		record, err := svc.Get(r.Context(), shop)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// SaveConfig validates and overwrites the shop's configuration.
func SaveConfig(svc ConfigService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "config service unavailable"))
			return
		}

		var req saveConfigRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shop := middleware.ShopFromContext(r.Context())
		record, err := svc.Save(r.Context(), shop, shopconfig.GoogleAdsConfig{
			ConversionID:        req.GoogleAds.ConversionID,
			PurchaseLabel:       req.GoogleAds.PurchaseLabel,
			AddToCartLabel:      req.GoogleAds.AddToCartLabel,
			BeginCheckoutLabel:  req.GoogleAds.BeginCheckoutLabel,
			EnhancedConversions: req.GoogleAds.EnhancedConversions,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}
