package shopconfig

import "time"

// Event names a shop can enable conversion tracking for.
const (
	EventPurchase      = "purchase"
	EventAddToCart     = "add_to_cart"
	EventBeginCheckout = "begin_checkout"
)

// GoogleAdsConfig is the merchant-entered tracking configuration.
// Purchase tracking is always active once configured; the optional
// labels toggle their event handlers in the generated pixel.
type GoogleAdsConfig struct {
	ConversionID        string `json:"conversionId" validate:"required"`
	PurchaseLabel       string `json:"purchaseLabel" validate:"required"`
	AddToCartLabel      string `json:"addToCartLabel,omitempty"`
	BeginCheckoutLabel  string `json:"beginCheckoutLabel,omitempty"`
	EnhancedConversions bool   `json:"enhancedConversions,omitempty"`
}

// ShopConfig is the persisted per-shop record. EnabledEvents is derived
// from the labels on every save, never stored independently.
type ShopConfig struct {
	Shop          string          `json:"shop"`
	GoogleAds     GoogleAdsConfig `json:"googleAds"`
	EnabledEvents []string        `json:"enabledEvents"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// EnabledEvents derives the event set: purchase always, the other two
// iff their label is non-empty.
func (g GoogleAdsConfig) EnabledEvents() []string {
	events := []string{EventPurchase}
	if g.AddToCartLabel != "" {
		events = append(events, EventAddToCart)
	}
	if g.BeginCheckoutLabel != "" {
		events = append(events, EventBeginCheckout)
	}
	return events
}

// LabelFor returns the conversion label configured for the event type,
// empty when the event is not enabled.
func (g GoogleAdsConfig) LabelFor(eventType string) string {
	switch eventType {
	case EventPurchase:
		return g.PurchaseLabel
	case EventAddToCart:
		return g.AddToCartLabel
	case EventBeginCheckout:
		return g.BeginCheckoutLabel
	}
	return ""
}
