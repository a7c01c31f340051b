package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	xproxy "golang.org/x/net/proxy"

	"longtail_monitor/internal/antidetect"
	"longtail_monitor/internal/shared/logger"
	"longtail_monitor/internal/shared/types"
)

const retryBackoff = 500 * time.Millisecond

// Client issues single suggestion lookups against the autocomplete
// endpoint. It is safe for concurrent use; per-proxy transports are built
// once and cached.
type Client struct {
	baseURL     string
	clientParam string
	language    string
	region      string
	timeout     time.Duration
	maxRetries  int

	direct *http.Client

	tmu        sync.Mutex
	transports map[string]*http.Client
}

// NewClient builds a suggestion client from the [search] and [request]
// configuration sections.
func NewClient(searchCfg types.SearchConf, reqCfg types.RequestConf) *Client {
	timeout := time.Duration(reqCfg.TimeoutSeconds) * time.Second
	return &Client{
		baseURL:     searchCfg.BaseURL,
		clientParam: searchCfg.ClientParam,
		language:    searchCfg.Language,
		region:      searchCfg.Region,
		timeout:     timeout,
		maxRetries:  reqCfg.MaxRetries,
		direct:      &http.Client{Timeout: timeout},
		transports:  make(map[string]*http.Client),
	}
}

// Suggestions fetches the suggestion list for one query under the given
// identity. The returned status is the last HTTP status observed, 0 for
// transport-level failures. Retries apply only to 429/5xx responses, a
// small fixed number of attempts with linear backoff.
func (c *Client) Suggestions(ctx context.Context, query string, id antidetect.Identity) ([]string, int, error) {
	httpClient, err := c.clientFor(id.Proxy)
	if err != nil {
		return nil, 0, err
	}

	var lastStatus int
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * retryBackoff
			select {
			case <-ctx.Done():
				return nil, lastStatus, ctx.Err()
			case <-time.After(backoff):
			}
		}

		suggestions, status, err := c.fetchOnce(ctx, httpClient, query, id.UserAgent)
		lastStatus, lastErr = status, err
		if err == nil {
			return suggestions, status, nil
		}
		if !retryableStatus(status) {
			break
		}
		logger.WithComponent("Fetch/Client").Debug().
			Str("query", query).
			Int("status", status).
			Int("attempt", attempt+1).
			Msg("Retryable response, backing off.")
	}
	return nil, lastStatus, lastErr
}

func (c *Client) fetchOnce(ctx context.Context, httpClient *http.Client, query, userAgent string) ([]string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build suggestion request: %w", err)
	}

	params := url.Values{}
	params.Set("client", c.clientParam)
	params.Set("q", query)
	params.Set("hl", c.language)
	if c.region != "" {
		params.Set("gl", c.region)
	}
	req.URL.RawQuery = params.Encode()

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Language", c.language+";q=0.9,en;q=0.8")
	req.Header.Set("Referer", "https://www.google.com/")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("suggestion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, fmt.Errorf("suggestion endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read suggestion response: %w", err)
	}

	suggestions, err := ParseSuggestions(body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return suggestions, resp.StatusCode, nil
}

// clientFor returns an HTTP client routed through the identity's proxy, or
// the shared direct client when no proxy was assigned.
func (c *Client) clientFor(rec *antidetect.ProxyRecord) (*http.Client, error) {
	if rec == nil {
		return c.direct, nil
	}

	key := rec.String()
	c.tmu.Lock()
	defer c.tmu.Unlock()
	if cached, ok := c.transports[key]; ok {
		return cached, nil
	}

	transport := &http.Transport{}
	switch rec.Protocol {
	case "http", "https":
		transport.Proxy = http.ProxyURL(rec.URL)
	case "socks5", "socks4":
		dialer, err := xproxy.SOCKS5("tcp", rec.Host+":"+rec.Port, nil, xproxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to build socks dialer for %s: %w", key, err)
		}
		contextDialer, ok := dialer.(xproxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("socks dialer for %s does not support context dialing", key)
		}
		transport.DialContext = contextDialer.DialContext
	default:
		return nil, fmt.Errorf("unsupported proxy protocol %q", rec.Protocol)
	}

	httpClient := &http.Client{Timeout: c.timeout, Transport: transport}
	c.transports[key] = httpClient
	return httpClient, nil
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || (status >= 500 && status <= 599)
}
