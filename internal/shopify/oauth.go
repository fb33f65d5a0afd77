package shopify

import (
	"net/url"
	"regexp"
)

var shopDomainPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9\-]*\.myshopify\.com$`)

// ValidShopDomain reports whether s is a plausible *.myshopify.com
// domain. Every shop identifier entering the system passes through
// this check.
func ValidShopDomain(s string) bool {
	return shopDomainPattern.MatchString(s)
}

// AuthorizeURL builds the Shopify OAuth consent URL for a shop.
func AuthorizeURL(shop, apiKey, scopes, redirectURI, state string) string {
	q := url.Values{}
	q.Set("client_id", apiKey)
	q.Set("scope", scopes)
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	return "https://" + shop + "/admin/oauth/authorize?" + q.Encode()
}

// AppHomeURL is where the merchant lands after a successful install:
// the app's surface inside the shop admin.
func AppHomeURL(shop, apiKey string) string {
	return "https://" + shop + "/admin/apps/" + url.PathEscape(apiKey)
}
