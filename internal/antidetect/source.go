package antidetect

import (
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"longtail_monitor/internal/shared/logger"
)

var hostPortRe = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}:\d{2,5}$`)

// FetchProxySource pulls proxy endpoints from a remote source URL. Two
// formats are supported: plain text with one ip:port per line, and an HTML
// page whose first table lists ip and port in the first two columns.
func FetchProxySource(sourceURL string) ([]string, error) {
	l := logger.WithComponent("AntiDetect/Source")
	l.Info().Str("url", sourceURL).Msg("Fetching remote proxy source...")

	client := &http.Client{Timeout: 20 * time.Second}
	req, err := http.NewRequest(http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create proxy source request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgents[0])

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch proxy source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("proxy source returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read proxy source body: %w", err)
	}

	var proxies []string
	if strings.HasPrefix(strings.TrimSpace(string(body)), "<") {
		proxies, err = parseHTMLSource(body)
		if err != nil {
			return nil, err
		}
	} else {
		proxies = parseTextSource(body)
	}

	l.Info().Int("count", len(proxies)).Msg("Proxy source fetch finished.")
	return proxies, nil
}

func parseTextSource(body []byte) []string {
	var proxies []string
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if hostPortRe.MatchString(line) {
			proxies = append(proxies, line)
		}
	}
	return proxies
}

func parseHTMLSource(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse proxy source HTML: %w", err)
	}

	var proxies []string
	doc.Find("table").First().Find("tbody tr").Each(func(_ int, sel *goquery.Selection) {
		ip := strings.TrimSpace(sel.Find("td").Eq(0).Text())
		port := strings.TrimSpace(sel.Find("td").Eq(1).Text())
		if ip == "" || port == "" {
			return
		}
		candidate := ip + ":" + port
		if hostPortRe.MatchString(candidate) {
			proxies = append(proxies, candidate)
		}
	})
	return proxies, nil
}
