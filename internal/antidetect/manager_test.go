package antidetect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"longtail_monitor/internal/shared/types"
)

func testManager(proxies []string) *Manager {
	return NewManager(
		types.RequestConf{MinDelayMs: 1000, MaxDelayMs: 3000, MaxDelayCapMs: 30000, DynamicDelay: true},
		types.ProxyConf{Enabled: true, MaxFailures: 3, CooldownMinutes: 10},
		proxies,
		nil,
	)
}

func TestPrepareRequest_RotatesIdentity(t *testing.T) {
	m := testManager([]string{"10.0.0.1:8080", "10.0.0.2:8080"})

	first := m.PrepareRequest()
	second := m.PrepareRequest()

	require.NotNil(t, first.Proxy)
	require.NotNil(t, second.Proxy)
	assert.NotEqual(t, first.Proxy.Host, second.Proxy.Host, "round-robin should alternate")
	assert.NotEmpty(t, first.UserAgent)
}

func TestPrepareRequest_NoProxiesConfigured(t *testing.T) {
	m := NewManager(types.RequestConf{MinDelayMs: 1, MaxDelayMs: 2, MaxDelayCapMs: 100}, types.ProxyConf{}, nil, nil)
	id := m.PrepareRequest()
	assert.Nil(t, id.Proxy)
	assert.NotEmpty(t, id.UserAgent)
}

func TestProxyCooldownAndReprieve(t *testing.T) {
	m := testManager([]string{"10.0.0.1:8080"})
	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	now := base
	m.now = func() time.Time { return now }

	id := m.PrepareRequest()
	require.NotNil(t, id.Proxy)
	rec := id.Proxy

	for i := 0; i < 3; i++ {
		m.ReportOutcome(rec, false, 0)
	}
	assert.False(t, rec.Working)

	// Inside the cooldown window the pool is exhausted.
	now = base.Add(5 * time.Minute)
	assert.Nil(t, m.PrepareRequest().Proxy)

	// After the cooldown the proxy gets one reprieve and its counter
	// resets regardless of history.
	now = base.Add(11 * time.Minute)
	id = m.PrepareRequest()
	require.NotNil(t, id.Proxy)
	assert.Equal(t, 0, id.Proxy.FailureCount)

	// The reprieve is a single trial: failing again re-enters cooldown
	// after the threshold is hit, with no shortcut.
	for i := 0; i < 3; i++ {
		m.ReportOutcome(rec, false, 0)
	}
	now = now.Add(time.Minute)
	assert.Nil(t, m.PrepareRequest().Proxy)
}

func TestReportOutcome_SuccessResetsFailures(t *testing.T) {
	m := testManager([]string{"10.0.0.1:8080"})
	rec := m.PrepareRequest().Proxy
	require.NotNil(t, rec)

	m.ReportOutcome(rec, false, 0)
	m.ReportOutcome(rec, false, 0)
	m.ReportOutcome(rec, true, 120*time.Millisecond)

	assert.Equal(t, 0, rec.FailureCount)
	assert.True(t, rec.Working)
	assert.Equal(t, 120*time.Millisecond, rec.Latency)
}

func TestDelayWindow_RateLimitDoubling(t *testing.T) {
	m := testManager(nil)

	minBefore, maxBefore := m.delayWindow()
	m.OnFailure(429)
	minAfter, maxAfter := m.delayWindow()

	assert.Equal(t, 2*minBefore, minAfter)
	assert.Equal(t, 2*maxBefore, maxAfter)
}

func TestDelayWindow_CeilingClamp(t *testing.T) {
	m := testManager(nil)

	for i := 0; i < 10; i++ {
		m.OnFailure(503)
	}
	minAfter, maxAfter := m.delayWindow()
	assert.Equal(t, 30*time.Second, minAfter)
	assert.Equal(t, 30*time.Second, maxAfter)
}

func TestDelayWindow_ShrinksTowardFloorNotBelow(t *testing.T) {
	m := testManager(nil)

	m.OnFailure(500) // 1.5x: 1.5s..4.5s
	for i := 0; i < 20; i++ {
		m.OnSuccess()
	}
	minAfter, maxAfter := m.delayWindow()
	assert.Equal(t, time.Second, minAfter)
	assert.Equal(t, 3*time.Second, maxAfter)
}

func TestDelayWindow_GenericFailureMultiplier(t *testing.T) {
	m := testManager(nil)

	m.OnFailure(500)
	minAfter, maxAfter := m.delayWindow()
	assert.Equal(t, 1500*time.Millisecond, minAfter)
	assert.Equal(t, 4500*time.Millisecond, maxAfter)
}

func TestWait_ElapsedAware(t *testing.T) {
	m := NewManager(
		types.RequestConf{MinDelayMs: 30, MaxDelayMs: 31, MaxDelayCapMs: 1000},
		types.ProxyConf{}, nil, nil,
	)

	// The first request of a run is unspaced.
	start := time.Now()
	require.NoError(t, m.Wait(context.Background()))
	assert.Less(t, time.Since(start), 20*time.Millisecond)

	// A second immediate call spaces from the first wake-up.
	start = time.Now()
	require.NoError(t, m.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
}

func TestWait_Cancellation(t *testing.T) {
	m := NewManager(
		types.RequestConf{MinDelayMs: 5000, MaxDelayMs: 5001, MaxDelayCapMs: 10000},
		types.ProxyConf{}, nil, nil,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := m.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestParseProxyList(t *testing.T) {
	records := ParseProxyList([]string{
		"10.0.0.1:8080",
		"socks5://10.0.0.2:1080",
		"https://proxy.example.com",
		"not a proxy ::::",
		"",
	})

	require.Len(t, records, 3)
	assert.Equal(t, "http", records[0].Protocol)
	assert.Equal(t, "socks5", records[1].Protocol)
	assert.Equal(t, "443", records[2].Port)
}
