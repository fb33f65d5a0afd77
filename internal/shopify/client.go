// Package shopify talks to the Shopify Admin REST API: OAuth token
// exchange and script tag management. Calls use a plain http.Client
// with the configured timeout; failures are classified as upstream
// (Shopify answered with an error) or transport (it never answered).
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pixelbridge/pixelbridge-backend/pkg/config"
	"github.com/pixelbridge/pixelbridge-backend/pkg/errors"
)

const accessTokenHeader = "X-Shopify-Access-Token"

// Client issues requests against a shop's Admin API.
type Client struct {
	apiKey     string
	apiSecret  string
	apiVersion string
	http       *http.Client

	// baseURL maps a shop domain to its API origin; tests point it at
	// a local server.
	baseURL func(shop string) string
}

func NewClient(cfg config.ShopifyConfig) *Client {
	return &Client{
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		apiVersion: cfg.APIVersion,
		http:       &http.Client{Timeout: cfg.APITimeout},
		baseURL:    func(shop string) string { return "https://" + shop },
	}
}

// AccessToken is the result of an OAuth code exchange.
type AccessToken struct {
	Token string `json:"access_token"`
	Scope string `json:"scope"`
}

// ScriptTag is a storefront script registered on a shop.
type ScriptTag struct {
	ID           int64  `json:"id,omitempty"`
	Event        string `json:"event"`
	Src          string `json:"src"`
	DisplayScope string `json:"display_scope,omitempty"`
}

// ExchangeToken swaps an OAuth authorization code for a permanent
// access token.
func (c *Client) ExchangeToken(ctx context.Context, shop, code string) (*AccessToken, error) {
	body := map[string]string{
		"client_id":     c.apiKey,
		"client_secret": c.apiSecret,
		"code":          code,
	}
	var token AccessToken
	if err := c.do(ctx, http.MethodPost, shop, "", "/admin/oauth/access_token", body, &token); err != nil {
		return nil, err
	}
	if token.Token == "" {
		return nil, errors.New(errors.CodeUpstream, "token exchange returned empty access token")
	}
	return &token, nil
}

// ListScriptTags returns every script tag registered on the shop.
func (c *Client) ListScriptTags(ctx context.Context, shop, accessToken string) ([]ScriptTag, error) {
	var out struct {
		ScriptTags []ScriptTag `json:"script_tags"`
	}
	path := fmt.Sprintf("/admin/api/%s/script_tags.json", c.apiVersion)
	if err := c.do(ctx, http.MethodGet, shop, accessToken, path, nil, &out); err != nil {
		return nil, err
	}
	return out.ScriptTags, nil
}

// CreateScriptTag registers a new onload script tag on the shop.
func (c *Client) CreateScriptTag(ctx context.Context, shop, accessToken, src string) (*ScriptTag, error) {
	body := map[string]ScriptTag{
		"script_tag": {Event: "onload", Src: src, DisplayScope: "online_store"},
	}
	var out struct {
		ScriptTag ScriptTag `json:"script_tag"`
	}
	path := fmt.Sprintf("/admin/api/%s/script_tags.json", c.apiVersion)
	if err := c.do(ctx, http.MethodPost, shop, accessToken, path, body, &out); err != nil {
		return nil, err
	}
	return &out.ScriptTag, nil
}

// UpdateScriptTag points an existing script tag at a new src.
func (c *Client) UpdateScriptTag(ctx context.Context, shop, accessToken string, id int64, src string) (*ScriptTag, error) {
	body := map[string]ScriptTag{
		"script_tag": {ID: id, Event: "onload", Src: src},
	}
	var out struct {
		ScriptTag ScriptTag `json:"script_tag"`
	}
	path := fmt.Sprintf("/admin/api/%s/script_tags/%d.json", c.apiVersion, id)
	if err := c.do(ctx, http.MethodPut, shop, accessToken, path, body, &out); err != nil {
		return nil, err
	}
	return &out.ScriptTag, nil
}

func (c *Client) do(ctx context.Context, method, shop, accessToken, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(errors.CodeInternal, err, "marshal request body")
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL(shop)+path, payload)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set(accessTokenHeader, accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(errors.CodeTransport, err, fmt.Sprintf("%s %s", method, path))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		code := errors.CodeUpstream
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			code = errors.CodeUnauthorized
		}
		return errors.New(code, fmt.Sprintf("shopify responded %d: %s", resp.StatusCode, string(snippet)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(errors.CodeUpstream, err, "decode response body")
	}
	return nil
}
