package events

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	TypePurchase      EventType = "purchase"
	TypeAddToCart     EventType = "add_to_cart"
	TypeBeginCheckout EventType = "begin_checkout"
)

// Valid reports whether the type is one of the three known kinds.
func (t EventType) Valid() bool {
	switch t {
	case TypePurchase, TypeAddToCart, TypeBeginCheckout:
		return true
	}
	return false
}

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// ConversionEvent is one reported conversion, stored most-recent-first
// in the shop's bounded list.
type ConversionEvent struct {
	ID            string           `json:"id"`
	Shop          string           `json:"shop"`
	EventType     EventType        `json:"eventType"`
	Timestamp     time.Time        `json:"timestamp"`
	Value         *decimal.Decimal `json:"value,omitempty"`
	Currency      string           `json:"currency,omitempty"`
	TransactionID string           `json:"transactionId,omitempty"`
	ProductID     string           `json:"productId,omitempty"`
	Status        string           `json:"status"`
	Data          map[string]any   `json:"data,omitempty"`
}

// EventStats is the read-aggregated counter snapshot. Counters cover
// every recorded event, not just the capped list contents.
type EventStats struct {
	TotalEvents         int64      `json:"totalEvents"`
	PurchaseEvents      int64      `json:"purchaseEvents"`
	AddToCartEvents     int64      `json:"addToCartEvents"`
	BeginCheckoutEvents int64      `json:"beginCheckoutEvents"`
	LastEventAt         *time.Time `json:"lastEventAt,omitempty"`
}
