package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"longtail_monitor/internal/antidetect"
	"longtail_monitor/internal/shared/logger"
	"longtail_monitor/internal/shared/types"
)

// ErrNoResults marks a batch where not a single query succeeded, which is a
// run failure as opposed to a partial result.
var ErrNoResults = errors.New("no successful queries in batch")

// Progress is called after every completed query, success or failure. It
// must be side-effect free from the executor's point of view: the executor
// never reacts to it.
type Progress func(completed, total int, currentQuery string)

// Results maps each successfully fetched query to its deduplicated
// suggestion set. Failed queries carry no entry.
type Results map[string][]string

// Executor runs a query batch under one concurrency discipline. Stop
// prevents dispatch of further queries; its effect on in-flight requests
// differs per discipline (see the implementations).
type Executor interface {
	Run(ctx context.Context, queries []string, onProgress Progress) (Results, error)
	Stop()
	Stats() RunStats
}

// RunStats aggregates fetch outcomes across one batch.
type RunStats struct {
	TotalRequests    int           `json:"total_requests"`
	Successful       int           `json:"successful_requests"`
	Failed           int           `json:"failed_requests"`
	TotalSuggestions int           `json:"total_suggestions"`
	Duration         time.Duration `json:"duration"`
}

// SuccessRate returns the percentage of requests that succeeded.
func (s RunStats) SuccessRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.Successful) / float64(s.TotalRequests) * 100
}

// QueriesPerMinute reports observed batch throughput.
func (s RunStats) QueriesPerMinute() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.TotalRequests) / s.Duration.Minutes()
}

// New builds the executor for the configured mode.
func New(mode string, client *Client, manager *antidetect.Manager, cfg types.MonitorConf) (Executor, error) {
	switch mode {
	case "sequential":
		return NewSequential(client, manager), nil
	case "pool":
		return NewWorkerPool(client, manager, cfg.Workers), nil
	case "async":
		return NewAsync(client, manager, cfg.Concurrency), nil
	default:
		return nil, fmt.Errorf("unknown execution mode %q", mode)
	}
}

// session holds the state shared by all three disciplines: the client, the
// anti-detection manager, the stop flag and the outcome counters.
type session struct {
	client  *Client
	manager *antidetect.Manager
	stopped atomic.Bool

	mu    sync.Mutex
	stats RunStats
}

func newSession(client *Client, manager *antidetect.Manager) session {
	return session{client: client, manager: manager}
}

// Stats returns a copy of the counters collected so far.
func (s *session) Stats() RunStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// fetchOne performs the full per-query cycle: pacing wait, identity
// rotation, the request itself, and outcome reporting. A failed query is
// recorded and absorbed, never fatal to the batch.
func (s *session) fetchOne(ctx context.Context, query string) ([]string, bool) {
	l := logger.WithComponent("Fetch/Executor")

	if err := s.manager.Wait(ctx); err != nil {
		s.recordFailure()
		return nil, false
	}

	id := s.manager.PrepareRequest()
	start := time.Now()
	suggestions, status, err := s.client.Suggestions(ctx, query, id)
	latency := time.Since(start)

	if err != nil {
		s.manager.ReportOutcome(id.Proxy, false, 0)
		s.manager.OnFailure(status)
		s.recordFailure()
		l.Warn().Str("query", query).Int("status", status).Err(err).Msg("Query failed.")
		return nil, false
	}

	s.manager.ReportOutcome(id.Proxy, true, latency)
	s.manager.OnSuccess()
	s.recordSuccess(len(suggestions))
	l.Debug().Str("query", query).Int("suggestions", len(suggestions)).Msg("Query completed.")
	return suggestions, true
}

func (s *session) recordSuccess(suggestionCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.TotalRequests++
	s.stats.Successful++
	s.stats.TotalSuggestions += suggestionCount
}

func (s *session) recordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.TotalRequests++
	s.stats.Failed++
}

func (s *session) setDuration(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Duration = d
}
