package antidetect

import (
	"context"
	"sync"
	"time"

	"longtail_monitor/internal/shared/logger"
	"longtail_monitor/internal/shared/types"
)

// Identity is the outbound persona for one request: a user agent plus an
// optional proxy. A nil Proxy means the caller goes direct.
type Identity struct {
	UserAgent string
	Proxy     *ProxyRecord
}

// Manager composes identity rotation, proxy health tracking and adaptive
// pacing behind one PrepareRequest/ReportOutcome contract. All mutable
// state (pool and delay window) sits behind a single mutex because
// worker-pool and async executors call in concurrently.
type Manager struct {
	mu     sync.Mutex
	pool   *pool // nil when proxies are disabled
	agents *agentRotator
	delay  *delayState

	now func() time.Time // stubbed in tests
}

// NewManager wires the manager from configuration. proxies and userAgents
// come from the respective list files; either may be empty.
func NewManager(reqCfg types.RequestConf, proxyCfg types.ProxyConf, proxies, userAgents []string) *Manager {
	m := &Manager{
		agents: newAgentRotator(userAgents),
		delay: newDelayState(
			time.Duration(reqCfg.MinDelayMs)*time.Millisecond,
			time.Duration(reqCfg.MaxDelayMs)*time.Millisecond,
			time.Duration(reqCfg.MaxDelayCapMs)*time.Millisecond,
			reqCfg.DynamicDelay,
		),
		now: time.Now,
	}

	if proxyCfg.Enabled && len(proxies) > 0 {
		records := ParseProxyList(proxies)
		m.pool = newPool(records,
			proxyCfg.MaxFailures,
			time.Duration(proxyCfg.CooldownMinutes)*time.Minute,
		)
		logger.WithComponent("AntiDetect/Manager").Info().
			Int("proxies", len(records)).
			Msg("Proxy pool initialized.")
	}

	return m
}

// PrepareRequest selects the identity for the next request. Proxy
// exhaustion is not an error: the returned identity simply has no proxy and
// the caller decides whether to go direct.
func (m *Manager) PrepareRequest() Identity {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := Identity{UserAgent: m.agents.random()}
	if m.pool != nil {
		id.Proxy = m.pool.pick(m.now())
		if id.Proxy == nil {
			logger.WithComponent("AntiDetect/Manager").Warn().Msg("No eligible proxy available, proceeding direct.")
		}
	}
	return id
}

// ReportOutcome feeds a request result back into proxy health tracking.
// A nil record (direct request) is a no-op.
func (m *Manager) ReportOutcome(rec *ProxyRecord, success bool, latency time.Duration) {
	if rec == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.pool.markSuccess(rec, latency, m.now())
	} else {
		m.pool.markFailure(rec)
	}
}

// Wait blocks until the pacing window allows the next request, or until ctx
// is cancelled. The delay decision is made under the manager lock; the
// sleep itself happens outside it so concurrent workers are not serialized
// by each other's sleeps.
func (m *Manager) Wait(ctx context.Context) error {
	m.mu.Lock()
	sleep := m.delay.nextSleep(m.now())
	m.mu.Unlock()

	if sleep <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(sleep)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// OnSuccess narrows the pacing window toward its floor.
func (m *Manager) OnSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay.onSuccess()
}

// OnFailure widens the pacing window; statusCode 0 means a transport-level
// failure with no HTTP response.
func (m *Manager) OnFailure(statusCode int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay.onFailure(statusCode)
}

// Stats reports current pacing and pool state.
type Stats struct {
	DelayMin            time.Duration `json:"delay_min"`
	DelayMax            time.Duration `json:"delay_max"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	Pool                *PoolStats    `json:"pool,omitempty"`
}

func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{
		DelayMin:            m.delay.min,
		DelayMax:            m.delay.max,
		ConsecutiveFailures: m.delay.consecutiveFailures,
	}
	if m.pool != nil {
		ps := m.pool.stats()
		s.Pool = &ps
	}
	return s
}

// delayWindow exposes the current window bounds for tests.
func (m *Manager) delayWindow() (time.Duration, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.delay.min, m.delay.max
}
