// Package pixel renders the storefront tracking script served to
// merchant shops. Rendering is pure string assembly: the whole per-shop
// configuration crosses into JavaScript exactly once, as a JSON
// payload, and the surrounding code is built from fixed fragments.
package pixel

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pixelbridge/pixelbridge-backend/internal/shopconfig"
)

// ContentType is the media type for every rendered script, fallback
// included.
const ContentType = "application/javascript; charset=utf-8"

// Generator builds tracking scripts for configured shops.
type Generator struct {
	appURL string
	now    func() time.Time
}

func NewGenerator(appURL string) *Generator {
	return &Generator{
		appURL: strings.TrimRight(appURL, "/"),
		now:    time.Now,
	}
}

// scriptConfig is the payload embedded in the generated script. Field
// names are part of the script contract; the fragments read them.
type scriptConfig struct {
	Shop                string `json:"shop"`
	ConversionID        string `json:"conversionId"`
	PurchaseLabel       string `json:"purchaseLabel"`
	AddToCartLabel      string `json:"addToCartLabel,omitempty"`
	BeginCheckoutLabel  string `json:"beginCheckoutLabel,omitempty"`
	EnhancedConversions bool   `json:"enhancedConversions"`
	Endpoint            string `json:"endpoint"`
}

// Render produces the tracking script for cfg. A nil or unusable config
// yields a diagnostic no-op script instead of an error; the pixel route
// always serves valid JavaScript.
func (g *Generator) Render(cfg *shopconfig.ShopConfig) string {
	return g.RenderAt(cfg, g.now())
}

// RenderAt is Render with an explicit timestamp.
func (g *Generator) RenderAt(cfg *shopconfig.ShopConfig, at time.Time) string {
	if reason := usable(cfg); reason != "" {
		return Fallback(reason, at)
	}

	payload, err := json.Marshal(scriptConfig{
		Shop:                cfg.Shop,
		ConversionID:        cfg.GoogleAds.ConversionID,
		PurchaseLabel:       cfg.GoogleAds.PurchaseLabel,
		AddToCartLabel:      cfg.GoogleAds.AddToCartLabel,
		BeginCheckoutLabel:  cfg.GoogleAds.BeginCheckoutLabel,
		EnhancedConversions: cfg.GoogleAds.EnhancedConversions,
		Endpoint:            g.eventEndpoint(cfg.Shop),
	})
	if err != nil {
		return Fallback("configuration not serializable", at)
	}

	var b strings.Builder
	b.WriteString(header(at))
	b.WriteString(fragmentPrologue)
	b.WriteString("\n  var cfg = ")
	b.Write(payload)
	b.WriteString(";\n")
	b.WriteString(fragmentHelpers)
	if cfg.GoogleAds.EnhancedConversions {
		b.WriteString(fragmentEnhancedAugment)
	} else {
		b.WriteString(fragmentPlainAugment)
	}
	b.WriteString(fragmentGtagLoader)
	b.WriteString(fragmentSubscriber)
	b.WriteString("\n  function registerHandlers(subscribe, gtag) {\n")
	b.WriteString(fragmentPurchaseHandler)
	if cfg.GoogleAds.AddToCartLabel != "" {
		b.WriteString(fragmentAddToCartHandler)
	}
	if cfg.GoogleAds.BeginCheckoutLabel != "" {
		b.WriteString(fragmentBeginCheckoutHandler)
	}
	b.WriteString("  }\n")
	b.WriteString(fragmentBootstrap)
	return b.String()
}

// Fallback is the script served when a shop has no usable
// configuration. It logs the reason to the console and does nothing
// else, so a broken merchant setup never breaks the storefront.
func Fallback(reason string, at time.Time) string {
	comment, err := json.Marshal(reason)
	if err != nil {
		comment = []byte(`"configuration unavailable"`)
	}
	return header(at) + fmt.Sprintf(`(function() {
  'use strict';
  if (window.console && console.warn) {
    console.warn('[PixelBridge] tracking disabled: ' + %s);
  }
})();
`, comment)
}

func (g *Generator) eventEndpoint(shop string) string {
	return g.appURL + "/api/v1/events?shop=" + url.QueryEscape(shop)
}

func header(at time.Time) string {
	return fmt.Sprintf("/*! PixelBridge conversion tracking, generated %s */\n", at.UTC().Format(time.RFC3339))
}

func usable(cfg *shopconfig.ShopConfig) string {
	switch {
	case cfg == nil:
		return "shop not configured"
	case cfg.GoogleAds.ConversionID == "":
		return "conversion ID missing"
	case cfg.GoogleAds.PurchaseLabel == "":
		return "purchase label missing"
	default:
		return ""
	}
}

// ProbeResult summarizes a static inspection of a rendered script,
// used by the diagnosis surface to confirm the served pixel matches
// the stored configuration.
type ProbeResult struct {
	Active       bool   `json:"active"`
	ConversionID string `json:"conversionId,omitempty"`
	Handlers     int    `json:"handlers"`
}

// Probe inspects a rendered script without executing it.
func Probe(script string) ProbeResult {
	res := ProbeResult{
		Active: strings.Contains(script, LoadedFlag),
	}
	if !res.Active {
		return res
	}
	if i := strings.Index(script, `"conversionId":"`); i >= 0 {
		rest := script[i+len(`"conversionId":"`):]
		if j := strings.IndexByte(rest, '"'); j >= 0 {
			res.ConversionID = rest[:j]
		}
	}
	res.Handlers = strings.Count(script, "subscribe('")
	return res
}
