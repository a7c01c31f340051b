package monitor

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"longtail_monitor/internal/shared/logger"
	"longtail_monitor/internal/shared/types"
)

// Scheduler runs seed captures on their per-seed cron schedules. Seeds
// without a schedule expression are skipped; disabled seeds are skipped
// even if scheduled.
type Scheduler struct {
	monitor *Monitor
	cron    *cron.Cron
}

// NewScheduler registers every schedulable profile with the cron runner.
// An unparsable cron expression is a configuration error and fails the
// whole scheduler rather than silently dropping the seed.
func NewScheduler(m *Monitor, profiles []*types.SeedProfile) (*Scheduler, error) {
	l := logger.WithComponent("Monitor/Scheduler")
	c := cron.New()

	registered := 0
	for _, p := range profiles {
		if !p.Enabled || p.Schedule == "" {
			continue
		}
		profile := p
		schedule := p.Schedule
		_, err := c.AddFunc(schedule, func() {
			if _, _, err := m.run(context.Background(), profile.Seed, "", m.clientFor(profile), nil); err != nil {
				l.Error().Str("seed", profile.Seed).Err(err).Msg("Scheduled run failed.")
			}
		})
		if err != nil {
			return nil, fmt.Errorf("invalid schedule %q for seed %q: %w", schedule, profile.Seed, err)
		}
		registered++
		l.Info().Str("seed", profile.Seed).Str("schedule", schedule).Msg("Seed scheduled.")
	}

	if registered == 0 {
		return nil, fmt.Errorf("no enabled seed carries a schedule")
	}
	return &Scheduler{monitor: m, cron: c}, nil
}

// Run starts the cron loop and blocks until ctx is cancelled. In-flight
// captures finish before Run returns.
func (s *Scheduler) Run(ctx context.Context) {
	s.cron.Start()
	<-ctx.Done()

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	logger.WithComponent("Monitor/Scheduler").Info().Msg("Scheduler stopped.")
}
