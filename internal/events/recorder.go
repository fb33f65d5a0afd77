package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pixelbridge/pixelbridge-backend/pkg/errors"
	"github.com/pixelbridge/pixelbridge-backend/pkg/kv"
)

// Store is the key-value surface the recorder needs. PushEventAndCount
// must apply the list push, the trim and the counter bumps atomically;
// the redis client implements it with one MULTI/EXEC.
type Store interface {
	PushEventAndCount(ctx context.Context, eventsKey, statsKey string, payload []byte, cap int64, typeField string, at time.Time) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// RecorderParams configure the recorder.
type RecorderParams struct {
	Store        Store
	ListCap      int64
	DefaultLimit int
	MaxLimit     int
}

// Recorder owns the per-shop conversion event lists and their aggregates.
type Recorder struct {
	store        Store
	cap          int64
	defaultLimit int
	maxLimit     int
	now          func() time.Time
}

func NewRecorder(params RecorderParams) (*Recorder, error) {
	if params.Store == nil {
		return nil, errors.New(errors.CodeDependency, "event store required")
	}
	if params.ListCap <= 0 {
		params.ListCap = 1000
	}
	if params.DefaultLimit <= 0 {
		params.DefaultLimit = 50
	}
	if params.MaxLimit <= 0 {
		params.MaxLimit = 100
	}
	return &Recorder{
		store:        params.Store,
		cap:          params.ListCap,
		defaultLimit: params.DefaultLimit,
		maxLimit:     params.MaxLimit,
		now:          time.Now,
	}, nil
}

// RecordInput is the caller-supplied portion of a conversion event.
type RecordInput struct {
	EventType     EventType
	Timestamp     time.Time
	Value         *decimal.Decimal
	Currency      string
	TransactionID string
	ProductID     string
	Data          map[string]any
}

// Record validates the event, assigns id/timestamp/status, pushes it
// onto the shop's capped list and bumps the stats counters in the same
// storage transaction.
func (r *Recorder) Record(ctx context.Context, shop string, input RecordInput) (*ConversionEvent, error) {
	if shop == "" {
		return nil, errors.New(errors.CodeValidation, "shop is required")
	}
	if !input.EventType.Valid() {
		return nil, errors.New(errors.CodeValidation, "unknown event type").
			WithDetails(map[string]string{"field": "eventType", "value": string(input.EventType)})
	}

	// An uninstalled shop keeps a tombstone for the retention window;
	// late-arriving storefront events must not recreate its purged keys.
	tombstoned, err := r.store.Exists(ctx, kv.ShopTombstoneKey(shop))
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "record event")
	}
	if tombstoned {
		return nil, errors.New(errors.CodeForbidden, "shop is uninstalled")
	}

	at := input.Timestamp
	if at.IsZero() {
		at = r.now()
	}
	at = at.UTC()

	event := &ConversionEvent{
		ID:            newEventID(at),
		Shop:          shop,
		EventType:     input.EventType,
		Timestamp:     at,
		Value:         input.Value,
		Currency:      input.Currency,
		TransactionID: input.TransactionID,
		ProductID:     input.ProductID,
		Status:        StatusSuccess,
		Data:          input.Data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "encode event")
	}

	err = r.store.PushEventAndCount(
		ctx,
		kv.ShopEventsKey(shop),
		kv.ShopStatsKey(shop),
		payload,
		r.cap,
		statsField(input.EventType),
		at,
	)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "record event")
	}
	return event, nil
}

// List returns the most recent events, newest first. Ordering is
// insertion order, not timestamp order. An unknown shop yields an
// empty slice.
func (r *Recorder) List(ctx context.Context, shop string, limit int) ([]ConversionEvent, error) {
	if shop == "" {
		return nil, errors.New(errors.CodeValidation, "shop is required")
	}
	if limit <= 0 {
		limit = r.defaultLimit
	}
	if limit > r.maxLimit {
		limit = r.maxLimit
	}

	raw, err := r.store.LRange(ctx, kv.ShopEventsKey(shop), 0, int64(limit)-1)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "list events")
	}

	events := make([]ConversionEvent, 0, len(raw))
	for _, entry := range raw {
		var event ConversionEvent
		if err := json.Unmarshal([]byte(entry), &event); err != nil {
			// tolerate format drift in old entries rather than failing the page
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// Stats returns the aggregate snapshot, zero-valued when the shop has
// never recorded an event.
func (r *Recorder) Stats(ctx context.Context, shop string) (*EventStats, error) {
	if shop == "" {
		return nil, errors.New(errors.CodeValidation, "shop is required")
	}
	fields, err := r.store.HGetAll(ctx, kv.ShopStatsKey(shop))
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "load stats")
	}

	stats := &EventStats{
		TotalEvents:         parseCounter(fields[kv.StatsFieldTotal]),
		PurchaseEvents:      parseCounter(fields[kv.StatsFieldPurchase]),
		AddToCartEvents:     parseCounter(fields[kv.StatsFieldAddToCart]),
		BeginCheckoutEvents: parseCounter(fields[kv.StatsFieldBeginCheckout]),
	}
	if raw := fields[kv.StatsFieldLastEventAt]; raw != "" {
		if at, parseErr := time.Parse(time.RFC3339Nano, raw); parseErr == nil {
			stats.LastEventAt = &at
		}
	}
	return stats, nil
}

// Purge drops the shop's event list and stats (uninstall cleanup).
func (r *Recorder) Purge(ctx context.Context, shop string) error {
	if err := r.store.Del(ctx, kv.ShopEventsKey(shop), kv.ShopStatsKey(shop)); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "purge events")
	}
	return nil
}

func statsField(t EventType) string {
	switch t {
	case TypeAddToCart:
		return kv.StatsFieldAddToCart
	case TypeBeginCheckout:
		return kv.StatsFieldBeginCheckout
	default:
		return kv.StatsFieldPurchase
	}
}

func parseCounter(raw string) int64 {
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// newEventID derives a collision-resistant id from the event time plus
// random entropy; a monotonically increasing request stream never reuses one.
func newEventID(at time.Time) string {
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("evt_%d_%s", at.UnixNano(), suffix)
}
