// Command phishsentryd runs the near-real-time CT phishing-candidate
// surveillance pipeline: ingest (C1) -> bounded queue (C2) -> worker pool
// (C3, expanding each domain via the permutation client C4 and scoring
// candidates with WHOIS lookups C5) -> append-only CSV alert log (C6),
// plus a small ops HTTP surface for health/stats. Wiring and the
// getEnvOrDefault startup convention follow the teacher's cmd/engine/main.go.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rawblock/phishsentry/internal/alertlog"
	"github.com/rawblock/phishsentry/internal/brand"
	"github.com/rawblock/phishsentry/internal/config"
	"github.com/rawblock/phishsentry/internal/dedup"
	"github.com/rawblock/phishsentry/internal/feature"
	"github.com/rawblock/phishsentry/internal/ingest"
	"github.com/rawblock/phishsentry/internal/logging"
	"github.com/rawblock/phishsentry/internal/permutation"
	"github.com/rawblock/phishsentry/internal/queue"
	"github.com/rawblock/phishsentry/internal/sentryerr"
	"github.com/rawblock/phishsentry/internal/statusapi"
	"github.com/rawblock/phishsentry/internal/whoisclient"
	"github.com/rawblock/phishsentry/internal/worker"
	"github.com/rawblock/phishsentry/pkg/types"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Exit(exitConfigError)
	}

	log := logging.Initialize(logging.Config{Level: cfg.LogLevel, File: cfg.LogFile, Console: true})
	defer log.Close()

	mainLog := log.For("main")
	mainLog.Info().Msg("starting phishing candidate sentry")

	brands, err := brand.Load(cfg.BrandListPath)
	if err != nil {
		wrapped := sentryerr.New(sentryerr.Fatal, "main.load_brands", err)
		mainLog.Fatal().Err(wrapped).Str("path", cfg.BrandListPath).Msg("failed to load brand list")
	}
	mainLog.Info().Int("brand_count", len(brands.Brands())).Msg("brand list loaded")

	permClient := permutation.New(permutation.Config{
		BaseURL:     cfg.PermutationBaseURL,
		Concurrency: int64(cfg.Tuning.PermutationConcurrency),
		Retries:     cfg.Tuning.PermutationRetries,
		Timeout:     cfg.Tuning.PermutationTimeout,
	})

	whoisClient := whoisclient.New(whoisclient.Config{
		Concurrency: int64(cfg.Tuning.WHOISConcurrency),
		Timeout:     cfg.Tuning.WHOISTimeout,
		CacheTTL:    cfg.Tuning.WHOISCacheTTL,
		CacheCap:    cfg.Tuning.WHOISCacheCapacity,
		MemoCap:     cfg.Tuning.WHOISMemoCapacity,
	})

	seenAlerts := dedup.New(cfg.Tuning.DedupWindowSize)
	workQueue := queue.New[types.WorkItem](cfg.Tuning.WorkQueueCapacity)
	tlds := feature.DefaultSuspiciousTLDs()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stats := statusapi.NewStats(workQueue.Len, workQueue.Cap(), seenAlerts.Size)
	router := statusapi.SetupRouter(stats)

	writer, err := alertlog.New(cfg.OutputCSVPath, log.For("alertlog"), alertlog.Config{
		QueueCapacity: cfg.Tuning.AlertQueueCapacity,
		OnDrop:        stats.IncDroppedAlerts,
	})
	if err != nil {
		mainLog.Fatal().Err(err).Str("path", cfg.OutputCSVPath).Msg("failed to initialize alert log")
	}

	ctClient := ingest.New(ingest.Config{
		URL:                     cfg.CTWebSocketURL,
		ReconnectInitialBackoff: cfg.Tuning.ReconnectInitialBackoff,
		ReconnectMaxBackoff:     cfg.Tuning.ReconnectMaxBackoff,
	}, queueSink{q: workQueue, stats: stats}, log.For("ingest"))

	pool := worker.New(worker.Config{
		WorkerCount:         cfg.Tuning.WorkerCount,
		CandidateCap:        cfg.Tuning.CandidateCap,
		ProcessedPerItemCap: cfg.Tuning.ProcessedPerItemCap,
		SimilarityThreshold: cfg.Tuning.SimilarityThreshold,
	}, workQueue, brands, permClient, whoisClient, seenAlerts, writer, tlds, log.For("worker"))

	go writer.Run(ctx)
	go ctClient.Run(ctx)
	go pool.Run(ctx)

	apiPort := getEnvOrDefault("STATUS_API_PORT", "8090")
	go func() {
		if err := router.Run(":" + apiPort); err != nil {
			mainLog.Error().Err(err).Msg("status api server exited")
		}
	}()

	mainLog.Info().Str("port", apiPort).Msg("sentry running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	mainLog.Info().Msg("shutdown signal received, draining pipeline")
	cancel()
	workQueue.Close()
}

const exitConfigError = 2

// queueSink adapts *queue.Queue[types.WorkItem] to ingest.Sink, counting
// drops into the ops stats surface.
type queueSink struct {
	q     *queue.Queue[types.WorkItem]
	stats *statusapi.Stats
}

func (s queueSink) TryPush(item types.WorkItem) bool {
	ok := s.q.TryPush(item)
	if !ok {
		s.stats.IncDroppedWorkItems()
	}
	return ok
}

// getEnvOrDefault returns the env var value or a safe default.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
