package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/squeezescout/internal/cache"
	"github.com/sawpanic/squeezescout/internal/config"
	"github.com/sawpanic/squeezescout/internal/engine"
	"github.com/sawpanic/squeezescout/internal/gates"
	"github.com/sawpanic/squeezescout/internal/metrics"
	"github.com/sawpanic/squeezescout/internal/net/circuit"
	"github.com/sawpanic/squeezescout/internal/net/ratelimit"
	"github.com/sawpanic/squeezescout/internal/persistence"
	"github.com/sawpanic/squeezescout/internal/persistence/postgres"
	"github.com/sawpanic/squeezescout/internal/providers"
	"github.com/sawpanic/squeezescout/internal/universe"
)

const (
	appName = "SqueezeScout"
	version = "v1.0.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	metrics.Register()
	log.Info().Str("app", appName).Msg("metrics registered")

	rootCmd := &cobra.Command{
		Use:     "squeezescan",
		Short:   "Short-squeeze candidate discovery engine",
		Version: version,
	}

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Run the discovery pipeline once or on a cadence",
		RunE:  runScan,
	}
	scanCmd.Flags().String("preset", "", "path to scan preset YAML (defaults built in)")
	scanCmd.Flags().String("providers", "", "path to providers config YAML (defaults built in)")
	scanCmd.Flags().Duration("interval", 60*time.Second, "refresh cadence; 0 runs once and exits")
	scanCmd.Flags().String("cache-dir", "./data/providers", "on-disk cold-store root")
	scanCmd.Flags().String("broker-url", "", "broker API base URL for the universe source")
	scanCmd.Flags().String("database-url", "", "Postgres DSN for discovery persistence (omit to discard rows)")
	scanCmd.Flags().String("redis-addr", "", "optional shared Redis cold-store mirror address")

	rootCmd.AddCommand(scanCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("squeezescan exited with error")
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	presetPath, _ := cmd.Flags().GetString("preset")
	providersPath, _ := cmd.Flags().GetString("providers")
	interval, _ := cmd.Flags().GetDuration("interval")
	cacheDir, _ := cmd.Flags().GetString("cache-dir")
	brokerURL, _ := cmd.Flags().GetString("broker-url")
	databaseURL, _ := cmd.Flags().GetString("database-url")
	redisAddr, _ := cmd.Flags().GetString("redis-addr")
	if redisAddr == "" {
		redisAddr = os.Getenv("REDIS_ADDR")
	}

	preset := config.DefaultPreset()
	if presetPath != "" {
		loaded, err := config.LoadPreset(presetPath)
		if err != nil {
			return fmt.Errorf("load preset: %w", err)
		}
		preset = loaded
	}
	if err := preset.Validate(); err != nil {
		return fmt.Errorf("invalid preset: %w", err)
	}

	providersCfg := config.DefaultProvidersConfig()
	if providersPath != "" {
		loaded, err := config.LoadProvidersConfig(providersPath)
		if err != nil {
			return fmt.Errorf("load providers config: %w", err)
		}
		providersCfg = *loaded
	}
	if err := providersCfg.Validate(); err != nil {
		return fmt.Errorf("invalid providers config: %w", err)
	}

	skipCacheWrites := providersCfg.Global.SkipCacheWrites
	if v, err := strconv.ParseBool(os.Getenv("SKIP_CACHE_WRITES")); err == nil && v {
		skipCacheWrites = true
	}
	registry := cache.NewRegistry(cacheDir, skipCacheWrites)
	if redisAddr != "" {
		registry = registry.WithRemoteMirror(cache.NewRedisMirror(redisAddr, ""))
		log.Info().Str("addr", redisAddr).Msg("using shared Redis cold-store mirror")
	}

	limiter := ratelimit.NewManager()
	breaker := circuit.NewManager()

	suite, err := providers.NewSuite(providersCfg, registry, limiter, breaker)
	if err != nil {
		return fmt.Errorf("wire provider suite: %w", err)
	}
	for _, port := range []interface{ Validate() error }{
		suite.Fundamentals, suite.Liquidity, suite.Borrow, suite.ShortInterest,
		suite.Catalyst, suite.Quote, suite.Bars, suite.DailyBars,
	} {
		if err := port.Validate(); err != nil {
			return fmt.Errorf("provider credential check: %w", err)
		}
	}

	repo, err := buildRepo(databaseURL)
	if err != nil {
		return err
	}

	var universeSrc universe.Source = universe.EnvOverrideSource{
		Delegate: universe.BrokerSource{BaseURL: brokerURL, HTTPClient: http.DefaultClient},
	}

	eng := &engine.Engine{
		Suite:       suite,
		ColdTape:    gates.NewColdTapeDetector(),
		Repo:        repo,
		UniverseSrc: universeSrc,
		Snapshot:    map[string]providers.SnapshotRow{},
		Concurrency: providersCfg.Global.MaxConcurrentPerHost,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runOnce := func() error {
		runCtx, cancel := context.WithTimeout(ctx, providersCfg.Global.GlobalBudget)
		defer cancel()

		runID := fmt.Sprintf("run-%d", time.Now().UnixMilli())
		result, err := eng.Run(runCtx, time.Now().UTC(), preset, providersCfg, map[string]bool{}, runID)
		if err != nil {
			return fmt.Errorf("run %s: %w", runID, err)
		}
		log.Info().
			Str("run_id", result.RunID).
			Int("universe", result.UniverseCount).
			Int("prefiltered", result.PrefilteredCount).
			Int("enriched", result.EnrichedCount).
			Int("passed", result.PassedCount).
			Bool("cold_tape", result.RelaxationActive).
			Msg("discovery run complete")

		if err := registry.Flush(); err != nil {
			log.Warn().Err(err).Msg("cache flush failed")
		}
		return nil
	}

	if interval <= 0 {
		return runOnce()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	if err := runOnce(); err != nil {
		log.Error().Err(err).Msg("run failed, continuing on schedule")
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := runOnce(); err != nil {
				log.Error().Err(err).Msg("run failed, continuing on schedule")
			}
		}
	}
}

func buildRepo(databaseURL string) (persistence.DiscoveryRepo, error) {
	if databaseURL == "" {
		log.Warn().Msg("no --database-url set, discovery rows will be discarded")
		return persistence.NoopRepo{}, nil
	}
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return postgres.NewDiscoveryRepo(sqlx.NewDb(db, "pgx"), 10*time.Second), nil
}
