package monitor

import (
	"context"
	"fmt"
	"time"

	"longtail_monitor/internal/antidetect"
	"longtail_monitor/internal/drift"
	"longtail_monitor/internal/fetch"
	"longtail_monitor/internal/query"
	"longtail_monitor/internal/shared/config"
	"longtail_monitor/internal/shared/logger"
	"longtail_monitor/internal/shared/types"
	"longtail_monitor/internal/snapshot"
)

// Monitor is the orchestrator: it owns the generator, the anti-detection
// manager, the suggestion client and the snapshot store, and drives the
// full capture-compare cycle for seeds.
type Monitor struct {
	cfg       *types.Config
	generator *query.Generator
	manager   *antidetect.Manager
	client    *fetch.Client
	store     *snapshot.Store
}

// New wires a monitor from configuration. Proxy and user-agent list files
// are read here; a configured remote proxy source is fetched and appended
// to the file-based list.
func New(cfg *types.Config) (*Monitor, error) {
	l := logger.WithComponent("Monitor")

	store, err := snapshot.NewStore(cfg.StorageConf.DataDir)
	if err != nil {
		return nil, err
	}

	var proxies []string
	if cfg.ProxyConf.Enabled {
		if cfg.ProxyConf.ListFile != "" {
			proxies, err = config.LoadLines(cfg.ProxyConf.ListFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load proxy list: %w", err)
			}
		}
		if cfg.ProxyConf.SourceURL != "" {
			remote, err := antidetect.FetchProxySource(cfg.ProxyConf.SourceURL)
			if err != nil {
				// A dead remote source degrades to the file list, it does
				// not block the run.
				l.Warn().Err(err).Msg("Remote proxy source unavailable.")
			} else {
				proxies = append(proxies, remote...)
			}
		}
	}

	var userAgents []string
	if cfg.SearchConf.UserAgentFile != "" {
		userAgents, err = config.LoadLines(cfg.SearchConf.UserAgentFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load user agent list: %w", err)
		}
	}

	return &Monitor{
		cfg:       cfg,
		generator: query.NewGenerator(cfg.SearchConf),
		manager:   antidetect.NewManager(cfg.RequestConf, cfg.ProxyConf, proxies, userAgents),
		client:    fetch.NewClient(cfg.SearchConf, cfg.RequestConf),
		store:     store,
	}, nil
}

// Store exposes the snapshot store for read-side commands.
func (m *Monitor) Store() *snapshot.Store { return m.store }

// RunForSeed executes the full cycle for one seed: validate, expand into
// the query batch, fetch, snapshot, persist, and diff against the previous
// day. The comparison is nil on a first-ever capture; that is not an
// error. A batch with zero successful queries aborts before anything is
// written.
func (m *Monitor) RunForSeed(ctx context.Context, seed, mode string, onProgress fetch.Progress) (*snapshot.Snapshot, *drift.ComparisonResult, error) {
	return m.run(ctx, seed, mode, m.client, onProgress)
}

func (m *Monitor) run(ctx context.Context, seed, mode string, client *fetch.Client, onProgress fetch.Progress) (*snapshot.Snapshot, *drift.ComparisonResult, error) {
	l := logger.WithComponent("Monitor")

	if err := query.Validate(seed); err != nil {
		return nil, nil, err
	}
	if mode == "" {
		mode = m.cfg.MonitorConf.Mode
	}

	queries := m.generator.Generate(seed)
	query.SortByPriority(queries, seed)
	l.Info().Str("seed", seed).Str("mode", mode).Int("queries", len(queries)).Msg("Starting seed run.")

	exec, err := fetch.New(mode, client, m.manager, m.cfg.MonitorConf)
	if err != nil {
		return nil, nil, err
	}

	results, err := exec.Run(ctx, queries, onProgress)
	if err != nil {
		return nil, nil, err
	}
	if len(results) == 0 {
		return nil, nil, fmt.Errorf("seed %q: %w", seed, fetch.ErrNoResults)
	}

	snap := snapshot.New(seed, mode, results, exec.Stats())
	if err := m.store.Save(snap); err != nil {
		return nil, nil, err
	}

	comparison, err := drift.CompareWithPrevious(m.store, snap)
	if err != nil {
		return nil, nil, err
	}
	if comparison == nil {
		l.Info().Str("seed", seed).Msg("First capture for seed, nothing to compare against.")
	}
	return snap, comparison, nil
}

// RunAll runs every enabled seed profile in order. Per-seed failures are
// logged and counted but do not stop the remaining seeds; the returned
// error is non-nil only when every seed failed.
func (m *Monitor) RunAll(ctx context.Context, profiles []*types.SeedProfile, mode string) error {
	l := logger.WithComponent("Monitor")

	ran, failed := 0, 0
	for _, p := range profiles {
		if !p.Enabled {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		ran++
		if _, _, err := m.run(ctx, p.Seed, mode, m.clientFor(p), nil); err != nil {
			failed++
			l.Error().Str("seed", p.Seed).Err(err).Msg("Seed run failed.")
		}
	}

	l.Info().Int("ran", ran).Int("failed", failed).Msg("Batch over all enabled seeds finished.")
	if ran > 0 && failed == ran {
		return fmt.Errorf("all %d seed runs failed", ran)
	}
	return nil
}

// clientFor honours a profile's locale overrides. Profiles without
// overrides share the monitor's client and its proxy transport cache.
func (m *Monitor) clientFor(p *types.SeedProfile) *fetch.Client {
	if p.Language == "" && p.Region == "" {
		return m.client
	}
	searchCfg := m.cfg.SearchConf
	if p.Language != "" {
		searchCfg.Language = p.Language
	}
	if p.Region != "" {
		searchCfg.Region = p.Region
	}
	return fetch.NewClient(searchCfg, m.cfg.RequestConf)
}

// Trends builds the trailing trend report for a seed using the configured
// window.
func (m *Monitor) Trends(seed string) (*drift.TrendReport, error) {
	if err := query.Validate(seed); err != nil {
		return nil, err
	}
	until := time.Now().UTC().Format("2006-01-02")
	history, err := m.store.History(seed, until, m.cfg.MonitorConf.TrendDays)
	if err != nil {
		return nil, err
	}
	return drift.AnalyzeTrends(seed, history), nil
}

// Cleanup removes snapshot files older than the retention window.
func (m *Monitor) Cleanup() (int, error) {
	return m.store.CleanupOlderThan(m.cfg.MonitorConf.RetentionDays, time.Now())
}

// Stats reports the anti-detection manager's current state.
func (m *Monitor) Stats() antidetect.Stats {
	return m.manager.Stats()
}
