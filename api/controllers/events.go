package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pixelbridge/pixelbridge-backend/api/middleware"
	"github.com/pixelbridge/pixelbridge-backend/api/responses"
	"github.com/pixelbridge/pixelbridge-backend/api/validators"
	"github.com/pixelbridge/pixelbridge-backend/internal/events"
	pkgerrors "github.com/pixelbridge/pixelbridge-backend/pkg/errors"
	"github.com/pixelbridge/pixelbridge-backend/pkg/logger"
	"github.com/pixelbridge/pixelbridge-backend/pkg/metrics"
)

// EventsService is the recording surface the controllers need.
type EventsService interface {
	Record(ctx context.Context, shop string, input events.RecordInput) (*events.ConversionEvent, error)
	List(ctx context.Context, shop string, limit int) ([]events.ConversionEvent, error)
	Stats(ctx context.Context, shop string) (*events.EventStats, error)
}

type recordEventRequest struct {
	EventType     string           `json:"eventType" validate:"required"`
	Timestamp     *time.Time       `json:"timestamp"`
	Value         *decimal.Decimal `json:"value"`
	Currency      string           `json:"currency"`
	TransactionID string           `json:"transactionId"`
	ProductID     string           `json:"productId"`
	Data          map[string]any   `json:"data"`
}

// RecordEvent ingests a conversion event reported by the storefront
// pixel.
func RecordEvent(svc EventsService, apiMetrics *metrics.APIMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "events service unavailable"))
			return
		}

		var req recordEventRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := events.RecordInput{
			EventType:     events.EventType(req.EventType),
			Value:         req.Value,
			Currency:      req.Currency,
			TransactionID: req.TransactionID,
			ProductID:     req.ProductID,
			Data:          req.Data,
		}
		if req.Timestamp != nil {
			input.Timestamp = *req.Timestamp
		}

		shop := middleware.ShopFromContext(r.Context())
		event, err := svc.Record(r.Context(), shop, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		apiMetrics.IncEventRecorded(string(event.EventType))
		responses.WriteSuccessStatus(w, http.StatusCreated, event)
	}
}

// ListEvents returns the shop's most recent events, newest first.
func ListEvents(svc EventsService, defaultLimit, maxLimit int, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "events service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", defaultLimit, 1, maxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shop := middleware.ShopFromContext(r.Context())
		list, err := svc.List(r.Context(), shop, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"events": list,
			"count":  len(list),
		})
	}
}

// EventStats returns the shop's aggregate counters.
func EventStats(svc EventsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "events service unavailable"))
			return
		}

		shop := middleware.ShopFromContext(r.Context())
		stats, err := svc.Stats(r.Context(), shop)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}
