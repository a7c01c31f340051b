package antidetect

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"longtail_monitor/internal/shared/logger"
)

// ProxyRecord tracks one outbound proxy's identity and health. It is owned
// and mutated exclusively by the Manager under its lock; fetch workers only
// report outcomes back through the Manager.
type ProxyRecord struct {
	URL      *url.URL
	Protocol string
	Host     string
	Port     string

	Working      bool
	FailureCount int
	LastUsed     time.Time
	Latency      time.Duration
}

// String identifies the proxy in logs.
func (r *ProxyRecord) String() string {
	return fmt.Sprintf("%s://%s:%s", r.Protocol, r.Host, r.Port)
}

// ParseProxyList parses proxy URLs into records. Entries without a scheme
// default to http. Unparsable entries are logged and skipped rather than
// failing the whole list.
func ParseProxyList(list []string) []*ProxyRecord {
	l := logger.WithComponent("AntiDetect/Pool")

	records := make([]*ProxyRecord, 0, len(list))
	for _, raw := range list {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}

		u, err := url.Parse(raw)
		if err != nil || u.Hostname() == "" {
			l.Warn().Str("proxy", raw).Msg("Skipping unparsable proxy entry.")
			continue
		}

		port := u.Port()
		if port == "" {
			if u.Scheme == "https" {
				port = "443"
			} else {
				port = "80"
			}
		}

		records = append(records, &ProxyRecord{
			URL:      u,
			Protocol: u.Scheme,
			Host:     u.Hostname(),
			Port:     port,
			Working:  true,
		})
	}
	return records
}
