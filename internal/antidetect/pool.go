package antidetect

import (
	"time"

	"longtail_monitor/internal/shared/logger"
)

// pool is the rotating proxy pool. It holds no lock of its own: every
// mutation goes through the Manager's single mutex, which also covers the
// delay state.
type pool struct {
	records     []*ProxyRecord
	next        int
	maxFailures int
	cooldown    time.Duration
}

func newPool(records []*ProxyRecord, maxFailures int, cooldown time.Duration) *pool {
	return &pool{
		records:     records,
		maxFailures: maxFailures,
		cooldown:    cooldown,
	}
}

// pick scans the pool round-robin and returns the first eligible proxy, or
// nil when every proxy is failed-out. A proxy whose cooldown has elapsed is
// granted one reprieve: its failure counter resets and it becomes
// selectable again, with no guarantee beyond that single trial.
func (p *pool) pick(now time.Time) *ProxyRecord {
	if len(p.records) == 0 {
		return nil
	}

	for range p.records {
		rec := p.records[p.next]
		p.next = (p.next + 1) % len(p.records)

		if p.eligible(rec, now) {
			rec.LastUsed = now
			return rec
		}
	}
	return nil
}

func (p *pool) eligible(rec *ProxyRecord, now time.Time) bool {
	if rec.FailureCount >= p.maxFailures {
		if now.Sub(rec.LastUsed) < p.cooldown {
			return false
		}
		// Cooldown elapsed: single reprieve.
		rec.FailureCount = 0
		rec.Working = true
		logger.WithComponent("AntiDetect/Pool").Debug().
			Str("proxy", rec.String()).
			Msg("Cooldown elapsed, granting proxy a retry.")
	}
	return rec.Working
}

func (p *pool) markSuccess(rec *ProxyRecord, latency time.Duration, now time.Time) {
	rec.FailureCount = 0
	rec.Working = true
	rec.Latency = latency
	rec.LastUsed = now
}

func (p *pool) markFailure(rec *ProxyRecord) {
	rec.FailureCount++
	rec.Working = rec.FailureCount < p.maxFailures
	if !rec.Working {
		logger.WithComponent("AntiDetect/Pool").Warn().
			Str("proxy", rec.String()).
			Int("failures", rec.FailureCount).
			Msg("Proxy marked unavailable.")
	}
}

// PoolStats summarizes pool health for run statistics.
type PoolStats struct {
	Total      int           `json:"total"`
	Working    int           `json:"working"`
	Failed     int           `json:"failed"`
	AvgLatency time.Duration `json:"avg_latency"`
}

func (p *pool) stats() PoolStats {
	s := PoolStats{Total: len(p.records)}
	var latencySum time.Duration
	var measured int
	for _, rec := range p.records {
		if rec.Working {
			s.Working++
		}
		if rec.Latency > 0 {
			latencySum += rec.Latency
			measured++
		}
	}
	s.Failed = s.Total - s.Working
	if measured > 0 {
		s.AvgLatency = latencySum / time.Duration(measured)
	}
	return s
}
