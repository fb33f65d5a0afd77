package shopify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelbridge/pixelbridge-backend/pkg/config"
	"github.com/pixelbridge/pixelbridge-backend/pkg/errors"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(config.ShopifyConfig{
		APIKey:     "key",
		APISecret:  "secret",
		APIVersion: "2024-01",
		APITimeout: 2 * time.Second,
	})
	c.baseURL = func(string) string { return srv.URL }
	return c
}

func TestExchangeToken(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/admin/oauth/access_token", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "key", body["client_id"])
		assert.Equal(t, "secret", body["client_secret"])
		assert.Equal(t, "authcode", body["code"])

		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": "shpat_abc",
			"scope":        "write_pixels,read_orders",
		})
	}))

	token, err := c.ExchangeToken(context.Background(), "demo-shop.myshopify.com", "authcode")
	require.NoError(t, err)
	assert.Equal(t, "shpat_abc", token.Token)
	assert.Equal(t, "write_pixels,read_orders", token.Scope)
}

func TestExchangeTokenEmptyToken(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"scope": "write_pixels"})
	}))

	_, err := c.ExchangeToken(context.Background(), "demo-shop.myshopify.com", "authcode")
	require.Error(t, err)
	assert.Equal(t, errors.CodeUpstream, errors.CodeOf(err))
}

func TestListScriptTags(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/admin/api/2024-01/script_tags.json", r.URL.Path)
		require.Equal(t, "shpat_abc", r.Header.Get(accessTokenHeader))

		_, _ = w.Write([]byte(`{"script_tags":[{"id":7,"event":"onload","src":"https://app.example.com/api/v1/pixel?shop=x"}]}`))
	}))

	tags, err := c.ListScriptTags(context.Background(), "demo-shop.myshopify.com", "shpat_abc")
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, int64(7), tags[0].ID)
	assert.Equal(t, "onload", tags[0].Event)
}

func TestCreateScriptTag(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)

		var body map[string]ScriptTag
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "onload", body["script_tag"].Event)
		assert.Equal(t, "online_store", body["script_tag"].DisplayScope)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]ScriptTag{
			"script_tag": {ID: 42, Event: "onload", Src: body["script_tag"].Src},
		})
	}))

	tag, err := c.CreateScriptTag(context.Background(), "demo-shop.myshopify.com", "shpat_abc", "https://app.example.com/pixel")
	require.NoError(t, err)
	assert.Equal(t, int64(42), tag.ID)
}

func TestUpdateScriptTag(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/admin/api/2024-01/script_tags/42.json", r.URL.Path)

		_ = json.NewEncoder(w).Encode(map[string]ScriptTag{
			"script_tag": {ID: 42, Event: "onload", Src: "https://app.example.com/new"},
		})
	}))

	tag, err := c.UpdateScriptTag(context.Background(), "demo-shop.myshopify.com", "shpat_abc", 42, "https://app.example.com/new")
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com/new", tag.Src)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   errors.Code
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, want: errors.CodeUnauthorized},
		{name: "forbidden", status: http.StatusForbidden, want: errors.CodeUnauthorized},
		{name: "rate limited", status: http.StatusTooManyRequests, want: errors.CodeUpstream},
		{name: "server error", status: http.StatusInternalServerError, want: errors.CodeUpstream},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			_, err := c.ListScriptTags(context.Background(), "demo-shop.myshopify.com", "shpat_abc")
			require.Error(t, err)
			assert.Equal(t, tc.want, errors.CodeOf(err))
		})
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := NewClient(config.ShopifyConfig{APIVersion: "2024-01", APITimeout: time.Second})
	c.baseURL = func(string) string { return srv.URL }

	_, err := c.ListScriptTags(context.Background(), "demo-shop.myshopify.com", "shpat_abc")
	require.Error(t, err)
	assert.Equal(t, errors.CodeTransport, errors.CodeOf(err))
}
