package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"longtail_monitor/internal/monitor"
	"longtail_monitor/internal/shared/config"
	"longtail_monitor/internal/shared/logger"
	"longtail_monitor/internal/shared/types"
)

const usage = `Usage: longtail <command> [flags]

Commands:
  run       Capture one seed now and diff it against the previous day
  run-all   Capture every enabled seed from seeds.json
  schedule  Run seeds on their per-seed cron schedules until interrupted
  trends    Print the multi-day trend report for a seed
  cleanup   Delete snapshot files older than the retention window
  stats     Print proxy pool and pacing state
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	command := os.Args[1]
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	configDir := fs.String("configdir", "configs", "Path to config directory")
	seed := fs.String("seed", "", "Seed keyword (run, trends)")
	mode := fs.String("mode", "", "Execution mode override: sequential, pool, async")
	fs.Parse(os.Args[2:])

	iniPath := filepath.Join(*configDir, "longtail.ini")
	seedsPath := filepath.Join(*configDir, "seeds.json")

	cfg := new(types.Config)
	if err := config.LoadIni(cfg, iniPath); err != nil {
		// Use standard fmt before logger is initialized.
		fmt.Fprintf(os.Stderr, "Fatal: Failed to load config file '%s': %v\n", iniPath, err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogConf); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	m, err := monitor.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msgf("Failed to initialize monitor")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case "run":
		cmdRun(ctx, m, *seed, *mode)
	case "run-all":
		cmdRunAll(ctx, m, seedsPath, *mode)
	case "schedule":
		cmdSchedule(ctx, m, seedsPath)
	case "trends":
		cmdTrends(m, *seed)
	case "cleanup":
		cmdCleanup(m)
	case "stats":
		printJSON(m.Stats())
	default:
		fmt.Fprintf(os.Stderr, "Unknown command '%s'\n\n%s", command, usage)
		os.Exit(2)
	}
}

func cmdRun(ctx context.Context, m *monitor.Monitor, seed, mode string) {
	if seed == "" {
		logger.Fatal().Msgf("The run command requires -seed")
	}

	snap, comparison, err := m.RunForSeed(ctx, seed, mode, func(completed, total int, _ string) {
		if completed%100 == 0 || completed == total {
			logger.Info().Int("completed", completed).Int("total", total).Msgf("Progress")
		}
	})
	if err != nil {
		logger.Fatal().Err(err).Msgf("Run failed for seed '%s'", seed)
	}

	logger.Info().
		Str("seed", seed).
		Str("date", snap.Metadata.Date).
		Int("unique_keywords", snap.Statistics.UniqueSuggestions).
		Float64("success_rate", snap.Statistics.SuccessRate).
		Msgf("Capture complete")

	if comparison == nil {
		logger.Info().Msgf("First capture for this seed; run again tomorrow for a diff")
		return
	}
	printJSON(comparison)
}

func cmdRunAll(ctx context.Context, m *monitor.Monitor, seedsPath, mode string) {
	profiles, err := config.LoadSeeds(seedsPath)
	if err != nil {
		logger.Fatal().Err(err).Msgf("Failed to load seeds file '%s'", seedsPath)
	}
	if err := m.RunAll(ctx, profiles, mode); err != nil {
		logger.Fatal().Err(err).Msgf("Batch run failed")
	}
}

func cmdSchedule(ctx context.Context, m *monitor.Monitor, seedsPath string) {
	profiles, err := config.LoadSeeds(seedsPath)
	if err != nil {
		logger.Fatal().Err(err).Msgf("Failed to load seeds file '%s'", seedsPath)
	}
	s, err := monitor.NewScheduler(m, profiles)
	if err != nil {
		logger.Fatal().Err(err).Msgf("Failed to build scheduler")
	}
	s.Run(ctx)
}

func cmdTrends(m *monitor.Monitor, seed string) {
	if seed == "" {
		logger.Fatal().Msgf("The trends command requires -seed")
	}
	report, err := m.Trends(seed)
	if err != nil {
		logger.Fatal().Err(err).Msgf("Trend analysis failed for seed '%s'", seed)
	}
	printJSON(report)
}

func cmdCleanup(m *monitor.Monitor) {
	removed, err := m.Cleanup()
	if err != nil {
		logger.Fatal().Err(err).Msgf("Cleanup failed")
	}
	logger.Info().Int("removed", removed).Msgf("Cleanup complete")
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logger.Fatal().Err(err).Msgf("Failed to encode output")
	}
	fmt.Println(string(data))
}
