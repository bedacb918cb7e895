package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcppubsub "cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sitescope/sitescope/internal/analysis"
	"github.com/sitescope/sitescope/internal/api"
	"github.com/sitescope/sitescope/internal/archive"
	archivegcs "github.com/sitescope/sitescope/internal/archive/gcs"
	archivelocal "github.com/sitescope/sitescope/internal/archive/local"
	archivememory "github.com/sitescope/sitescope/internal/archive/memory"
	cachememory "github.com/sitescope/sitescope/internal/cache/memory"
	cacheredis "github.com/sitescope/sitescope/internal/cache/redis"
	"github.com/sitescope/sitescope/internal/clock/system"
	"github.com/sitescope/sitescope/internal/config"
	"github.com/sitescope/sitescope/internal/fetcher"
	collyfetcher "github.com/sitescope/sitescope/internal/fetcher/colly"
	"github.com/sitescope/sitescope/internal/fetcher/headless"
	"github.com/sitescope/sitescope/internal/id/uuid"
	"github.com/sitescope/sitescope/internal/intel"
	jobsmemory "github.com/sitescope/sitescope/internal/jobs/memory"
	jobspostgres "github.com/sitescope/sitescope/internal/jobs/postgres"
	"github.com/sitescope/sitescope/internal/logging"
	"github.com/sitescope/sitescope/internal/metrics"
	"github.com/sitescope/sitescope/internal/pipeline"
	"github.com/sitescope/sitescope/internal/plan"
	"github.com/sitescope/sitescope/internal/progress"
	"github.com/sitescope/sitescope/internal/progress/sinks"
	"github.com/sitescope/sitescope/internal/provider/competitor"
	"github.com/sitescope/sitescope/internal/provider/keyword"
	"github.com/sitescope/sitescope/internal/provider/pagespeed"
	"github.com/sitescope/sitescope/internal/provider/serp"
	memorypublisher "github.com/sitescope/sitescope/internal/publisher/memory"
	pubsubpublisher "github.com/sitescope/sitescope/internal/publisher/pubsub"
	"github.com/sitescope/sitescope/internal/synth"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// .env files are a local convenience; deployed environments set
	// variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Log.Development, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := system.New()
	idGen := uuid.New()

	var resultCache analysis.ResultCache
	switch cfg.Cache.Backend {
	case "redis":
		redisCache := cacheredis.New(cacheredis.Config{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			TTL:      cfg.CacheTTL(),
		})
		if err := redisCache.Ping(ctx); err != nil {
			logger.Fatal("redis unreachable",
				zap.String("addr", cfg.Cache.Redis.Addr),
				zap.Error(err))
		}
		defer func() {
			if closeErr := redisCache.Close(); closeErr != nil {
				logger.Warn("redis close failed", zap.Error(closeErr))
			}
		}()
		resultCache = redisCache
	default:
		resultCache = cachememory.New(cachememory.Config{
			TTL:              cfg.CacheTTL(),
			CleanupThreshold: cfg.Cache.CleanupThreshold,
		}, clock)
	}

	sweepInterval := time.Duration(cfg.Jobs.SweepIntervalMinute) * time.Minute
	var jobStore analysis.JobStore
	switch cfg.Jobs.Backend {
	case "postgres":
		pgStore, err := jobspostgres.NewStore(ctx, jobspostgres.Config{DSN: cfg.Jobs.DSN}, clock)
		if err != nil {
			logger.Fatal("postgres job store init failed", zap.Error(err))
		}
		defer pgStore.Close()
		pgStore.StartSweeper(ctx, cfg.JobTTL(), sweepInterval, logger.Named("jobs"))
		jobStore = pgStore
	default:
		memStore := jobsmemory.NewStore(clock)
		memStore.StartSweeper(ctx, cfg.JobTTL(), sweepInterval, logger.Named("jobs"))
		jobStore = memStore
	}

	var snapshots *archive.Store
	switch cfg.Archive.Backend {
	case "memory":
		snapshots = archive.New(archivememory.NewBlobStore(), cfg.Archive.Prefix, clock)
	case "local":
		blobs, err := archivelocal.New(archivelocal.Config{BaseDir: cfg.Archive.LocalDir})
		if err != nil {
			logger.Fatal("local archive init failed", zap.Error(err))
		}
		snapshots = archive.New(blobs, cfg.Archive.Prefix, clock)
	case "gcs":
		gcsClient, err := storage.NewClient(ctx)
		if err != nil {
			logger.Fatal("gcs client init failed", zap.Error(err))
		}
		defer func() {
			if closeErr := gcsClient.Close(); closeErr != nil {
				logger.Warn("gcs client close failed", zap.Error(closeErr))
			}
		}()
		blobs, err := archivegcs.New(gcsClient, archivegcs.Config{Bucket: cfg.Archive.GCSBucket})
		if err != nil {
			logger.Fatal("gcs archive init failed", zap.Error(err))
		}
		snapshots = archive.New(blobs, cfg.Archive.Prefix, clock)
	}

	var pub analysis.Publisher
	if cfg.PubSub.ProjectID != "" {
		psClient, err := gcppubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			logger.Fatal("pubsub client init failed", zap.Error(err))
		}
		psPub, err := pubsubpublisher.New(psClient)
		if err != nil {
			logger.Fatal("pubsub publisher init failed", zap.Error(err))
		}
		defer func() {
			if closeErr := psPub.Close(); closeErr != nil {
				logger.Warn("pubsub close failed", zap.Error(closeErr))
			}
		}()
		pub = psPub
	} else {
		pub = memorypublisher.New()
	}

	promSink, err := sinks.NewPrometheusSink(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("prometheus sink init failed", zap.Error(err))
	}
	hub := progress.NewHub(
		progress.Config{Logger: logger.Named("progress")},
		sinks.NewLogSink(logger.Named("progress")),
		promSink,
	)

	plainFetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.Fetch.UserAgent,
		RespectRobots: cfg.Fetch.RespectRobots,
		Timeout:       cfg.FetchTimeout(),
		MaxBodyBytes:  cfg.Fetch.MaxBodyBytes,
	})
	var rendered analysis.Fetcher = headless.NewNoop()
	if cfg.Headless.Enabled {
		chrome, err := headless.NewChromedp(headless.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.Fetch.UserAgent,
			NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
		})
		if err != nil {
			logger.Warn("headless fetcher init failed", zap.Error(err))
		} else {
			defer chrome.Close()
			rendered = chrome
		}
	}
	pageFetcher := fetcher.NewPromoting(plainFetcher, rendered, cfg.Headless.PromotionThreshold, logger.Named("fetch"))

	extractor := intel.New(pageFetcher, intel.Config{
		MaxLinkedPages: cfg.Fetch.MaxLinkedPages,
		PageTextLimit:  cfg.Fetch.PageTextLimit,
		FetchTimeout:   cfg.FetchTimeout(),
	}, logger.Named("intel"))

	serpClient := serp.NewClient(serp.Config{
		APIKey:          cfg.Providers.SERP.APIKey,
		BaseURL:         cfg.Providers.SERP.BaseURL,
		FallbackAPIKey:  cfg.Providers.SERPFallback.APIKey,
		FallbackBaseURL: cfg.Providers.SERPFallback.BaseURL,
		Timeout:         cfg.ProviderTimeout(),
	}, logger.Named("serp"))
	performance := pagespeed.New(pagespeed.Config{
		APIKey:  cfg.Providers.PageSpeed.APIKey,
		BaseURL: cfg.Providers.PageSpeed.BaseURL,
		Timeout: cfg.ProviderTimeout(),
	}, logger.Named("pagespeed"))
	competitors := competitor.New(serpClient, logger.Named("competitor"))
	keywords := keyword.New(keyword.Config{
		VolumeAPIKey:  cfg.Providers.Keyword.APIKey,
		VolumeBaseURL: cfg.Providers.Keyword.BaseURL,
		Timeout:       cfg.ProviderTimeout(),
	}, serpClient, logger.Named("keyword"))
	presence := serp.NewPresenceProvider(serpClient, logger.Named("serp"))

	pipe := pipeline.New(
		resultCache,
		extractor,
		performance,
		competitors,
		keywords,
		presence,
		snapshots,
		hub,
		clock,
		pipeline.Config{ProviderTimeout: cfg.ProviderTimeout()},
		logger.Named("pipeline"),
	)

	synthesizer := synth.New(synth.Config{
		BaseURL: cfg.Synthesis.BaseURL,
		APIKey:  cfg.Synthesis.APIKey,
		Timeout: cfg.SynthesisTimeout(),
	}, logger.Named("synth"))
	generator := plan.NewGenerator(synthesizer, logger.Named("plan"))
	coordinator := plan.NewCoordinator(
		pipe,
		jobStore,
		generator,
		idGen,
		clock,
		snapshots,
		pub,
		hub,
		plan.CoordinatorConfig{Topic: cfg.PubSub.TopicName},
		logger.Named("coordinator"),
	)

	apiServer := api.NewServer(pipe, coordinator, jobStore, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	if err := hub.Close(shutdownCtx); err != nil {
		logger.Error("progress hub close error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
