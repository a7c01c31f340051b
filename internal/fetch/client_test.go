package fetch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"longtail_monitor/internal/antidetect"
	"longtail_monitor/internal/shared/types"
)

func testClient(baseURL string, maxRetries int) *Client {
	return NewClient(
		types.SearchConf{BaseURL: baseURL, ClientParam: "chrome", Language: "en", Region: "us"},
		types.RequestConf{TimeoutSeconds: 5, MaxRetries: maxRetries},
	)
}

func TestSuggestions_SendsExpectedRequest(t *testing.T) {
	var gotQuery, gotClient, gotLang, gotRegion, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotClient = r.URL.Query().Get("client")
		gotLang = r.URL.Query().Get("hl")
		gotRegion = r.URL.Query().Get("gl")
		gotUA = r.Header.Get("User-Agent")
		json.NewEncoder(w).Encode([]any{gotQuery, []string{"coffee beans", "coffee shop"}})
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	suggestions, status, err := c.Suggestions(context.Background(), "coffee", antidetect.Identity{UserAgent: "test-agent/1.0"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"coffee beans", "coffee shop"}, suggestions)
	assert.Equal(t, "coffee", gotQuery)
	assert.Equal(t, "chrome", gotClient)
	assert.Equal(t, "en", gotLang)
	assert.Equal(t, "us", gotRegion)
	assert.Equal(t, "test-agent/1.0", gotUA)
}

func TestSuggestions_RetriesRateLimitThenSucceeds(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode([]any{"q", []string{"ok"}})
	}))
	defer srv.Close()

	c := testClient(srv.URL, 2)
	suggestions, status, err := c.Suggestions(context.Background(), "q", antidetect.Identity{UserAgent: "ua"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"ok"}, suggestions)
	assert.Equal(t, int64(2), hits.Load())
}

func TestSuggestions_NoRetryOnClientError(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 3)
	_, status, err := c.Suggestions(context.Background(), "q", antidetect.Identity{UserAgent: "ua"})
	require.Error(t, err)

	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, int64(1), hits.Load())
}

func TestSuggestions_ExhaustsRetries(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 2)
	_, status, err := c.Suggestions(context.Background(), "q", antidetect.Identity{UserAgent: "ua"})
	require.Error(t, err)

	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, int64(3), hits.Load())
}

func TestClientFor_UnsupportedProtocol(t *testing.T) {
	c := testClient("http://127.0.0.1:0", 0)
	_, err := c.clientFor(&antidetect.ProxyRecord{Protocol: "quic", Host: "h", Port: "1"})
	require.Error(t, err)
}
