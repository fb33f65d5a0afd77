package pixel

// The generated script is assembled from these fixed fragments around a
// single JSON-serialized config payload. The fragment text never
// interpolates merchant-supplied values; handlers read them from cfg at
// runtime, so a hostile label cannot break out of the script.

// LoadedFlag is the global idempotency guard; repeated injections of the
// script no-op once it is set.
const LoadedFlag = "__pixelBridgeLoaded"

const fragmentPrologue = `(function() {
  'use strict';

  if (window.` + LoadedFlag + `) {
    return;
  }
  window.` + LoadedFlag + ` = true;
`

const fragmentHelpers = `
  function debugLog(message, data) {
    if (window.console && console.log) {
      console.log('[PixelBridge] ' + message, data || '');
    }
  }

  function safeAmount(value) {
    if (typeof value === 'number' && isFinite(value)) {
      return value;
    }
    if (typeof value === 'string') {
      var parsed = parseFloat(value);
      return isNaN(parsed) ? 0 : parsed;
    }
    return 0;
  }

  function reportEvent(eventType, payload) {
    if (typeof fetch === 'undefined') {
      return;
    }
    fetch(cfg.endpoint, {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify({
        eventType: eventType,
        value: payload.value,
        currency: payload.currency,
        transactionId: payload.transaction_id || null
      })
    }).catch(function(err) {
      debugLog('failed to report event', err);
    });
  }

  function sendConversion(gtag, eventType, conversionData) {
    gtag('event', 'conversion', conversionData);
    debugLog(eventType + ' conversion sent', conversionData);
    reportEvent(eventType, conversionData);
  }
`

const fragmentGtagLoader = `
  function loadGtag(onReady) {
    if (window.gtag) {
      debugLog('gtag already present');
      onReady();
      return;
    }
    var script = document.createElement('script');
    script.async = true;
    script.src = 'https://www.googletagmanager.com/gtag/js?id=' + encodeURIComponent(cfg.conversionId);
    script.onload = onReady;
    script.onerror = function() {
      debugLog('failed to load gtag script');
    };
    var first = document.getElementsByTagName('script')[0];
    first.parentNode.insertBefore(script, first);
  }

  function initTracking() {
    window.dataLayer = window.dataLayer || [];
    function gtag() {
      dataLayer.push(arguments);
    }
    window.gtag = window.gtag || gtag;

    gtag('js', new Date());
    gtag('config', cfg.conversionId);
    debugLog('tracking initialized', cfg.conversionId);

    resolveSubscriber(0, function(subscribe) {
      registerHandlers(subscribe, window.gtag);
    });
  }
`

// The subscriber capability is injectable: a test harness can set
// window.__pixelBridgeAnalytics = { subscribe: fn } and the runtime
// uses it instead of the storefront's analytics singleton.
const fragmentSubscriber = `
  function resolveSubscriber(attempt, onReady) {
    var injected = window.__pixelBridgeAnalytics;
    if (injected && typeof injected.subscribe === 'function') {
      onReady(function(name, handler) { injected.subscribe(name, handler); });
      return;
    }
    if (window.Shopify && window.Shopify.analytics && typeof window.Shopify.analytics.subscribe === 'function') {
      onReady(function(name, handler) { window.Shopify.analytics.subscribe(name, handler); });
      return;
    }
    if (attempt >= 30) {
      debugLog('analytics publisher unavailable, giving up');
      return;
    }
    setTimeout(function() {
      resolveSubscriber(attempt + 1, onReady);
    }, 1000);
  }
`

const fragmentPurchaseHandler = `
    subscribe('checkout_completed', function(event) {
      try {
        var checkout = event.data.checkout;
        var conversionData = {
          'send_to': cfg.conversionId + '/' + cfg.purchaseLabel,
          'value': safeAmount(checkout.totalPrice && checkout.totalPrice.amount),
          'currency': checkout.currencyCode,
          'transaction_id': checkout.order ? checkout.order.id : checkout.token
        };
        augmentConversion(conversionData, checkout);
        sendConversion(gtag, 'purchase', conversionData);
      } catch (err) {
        debugLog('error processing purchase event', err);
      }
    });
`

const fragmentAddToCartHandler = `
    subscribe('product_added_to_cart', function(event) {
      try {
        var variant = event.data.productVariant;
        var conversionData = {
          'send_to': cfg.conversionId + '/' + cfg.addToCartLabel,
          'value': safeAmount(variant.price && variant.price.amount),
          'currency': variant.price && variant.price.currencyCode
        };
        sendConversion(gtag, 'add_to_cart', conversionData);
      } catch (err) {
        debugLog('error processing add to cart event', err);
      }
    });
`

const fragmentBeginCheckoutHandler = `
    subscribe('checkout_started', function(event) {
      try {
        var checkout = event.data.checkout;
        var conversionData = {
          'send_to': cfg.conversionId + '/' + cfg.beginCheckoutLabel,
          'value': safeAmount(checkout.totalPrice && checkout.totalPrice.amount),
          'currency': checkout.currencyCode
        };
        sendConversion(gtag, 'begin_checkout', conversionData);
      } catch (err) {
        debugLog('error processing begin checkout event', err);
      }
    });
`

// Included only when enhanced conversions are ON; with the flag off the
// served script carries no customer identity field names at all.
const fragmentEnhancedAugment = `
  function augmentConversion(conversionData, checkout) {
    if (!checkout) {
      return;
    }
    if (checkout.email) {
      conversionData.email = checkout.email;
    }
    if (checkout.phone) {
      conversionData.phone_number = checkout.phone;
    }
    if (checkout.shippingAddress) {
      conversionData.address = {
        first_name: checkout.shippingAddress.firstName,
        last_name: checkout.shippingAddress.lastName,
        postal_code: checkout.shippingAddress.zip,
        country: checkout.shippingAddress.countryCode
      };
    }
  }
`

const fragmentPlainAugment = `
  function augmentConversion() {}
`

const fragmentBootstrap = `
  if (document.readyState === 'loading') {
    document.addEventListener('DOMContentLoaded', function() {
      loadGtag(initTracking);
    });
  } else {
    loadGtag(initTracking);
  }

  debugLog('pixel initialized for ' + cfg.shop);
})();
`
