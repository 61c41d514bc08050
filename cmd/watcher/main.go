package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/regime-watch/internal/adapters/cache"
	"github.com/selivandex/regime-watch/internal/adapters/config"
	"github.com/selivandex/regime-watch/internal/adapters/feed"
	"github.com/selivandex/regime-watch/internal/adapters/telegram"
	"github.com/selivandex/regime-watch/internal/executor"
	"github.com/selivandex/regime-watch/internal/health"
	"github.com/selivandex/regime-watch/internal/ratelimit"
	"github.com/selivandex/regime-watch/internal/recommend"
	"github.com/selivandex/regime-watch/internal/regime"
	"github.com/selivandex/regime-watch/internal/sentiment"
	"github.com/selivandex/regime-watch/internal/transport"
	"github.com/selivandex/regime-watch/internal/watcher"
	"github.com/selivandex/regime-watch/pkg/logger"
	"github.com/selivandex/regime-watch/pkg/worker"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("regime watcher starting",
		zap.String("symbol", cfg.Symbol),
		zap.Bool("synthetic", cfg.Feed.Synthetic),
	)

	// Request pipeline
	limiter := ratelimit.New(cfg.RateLimit.PerMinute, cfg.RateLimit.PerHour)
	creds := executor.NewStaticCredentials(os.Getenv("FEED_API_TOKEN"))
	exec := executor.New(limiter, creds, executor.Options{
		Timeout:    cfg.Request.Timeout,
		MaxRetries: cfg.Request.MaxRetries,
		BaseDelay:  cfg.Request.BaseDelay,
	})

	// Data source: live against the backend, or synthetic
	var source feed.DataSource
	if cfg.Feed.Synthetic {
		source = feed.NewSyntheticSource(42, 450.0)
	} else {
		source = feed.NewLiveSource(exec, cfg.Feed.BaseURL)
	}

	// Optional local cache
	var quoteCache *cache.Cache
	if cfg.Redis.Enabled {
		quoteCache, err = cache.New(ctx, &cfg.Redis)
		if err != nil {
			logger.Warn("redis cache unavailable, continuing without it", zap.Error(err))
		} else {
			defer quoteCache.Close()
		}
	}

	// Publication sink
	var sink recommend.Sink
	var notifier *telegram.Notifier
	if cfg.Telegram.BotToken != "" {
		notifier, err = telegram.NewNotifier(&cfg.Telegram)
		if err != nil {
			logger.Error("failed to create telegram notifier", zap.Error(err))
		} else {
			sink = notifier
		}
	}

	// Classification pipeline
	publisher := recommend.NewPublisher(sink)
	classifier := regime.NewClassifier(regime.Thresholds{
		FearExtreme:       cfg.Classifier.FearExtreme,
		FearSpike:         cfg.Classifier.FearSpike,
		FearComplacency:   cfg.Classifier.FearComplacency,
		PutCallBearish:    cfg.Classifier.PutCallBearish,
		PutCallBullish:    cfg.Classifier.PutCallBullish,
		BreadthNegative:   cfg.Classifier.BreadthNegative,
		BreadthStrong:     cfg.Classifier.BreadthStrong,
		SentimentStrong:   cfg.Classifier.SentimentStrong,
		ReboundFromLowPct: cfg.Classifier.ReboundFromLowPct,
	}, publisher.OnTransition)

	w := watcher.New(watcher.Options{
		Symbol:       cfg.Symbol,
		Source:       source,
		Classifier:   classifier,
		Analyzer:     sentiment.NewAnalyzer(),
		Cache:        quoteCache,
		HistoryDepth: cfg.Classifier.HistoryDepth,
		MinHistory:   cfg.Classifier.MinHistoryForScore,
	})

	// Transport: push channel with polling fallback over the same handlers
	poller := feed.NewPoller(source, cfg.Symbol, cfg.Feed.NewsLimit)
	tm := transport.NewManager(transport.Config{
		StreamURL:            cfg.Transport.StreamURL,
		HeartbeatInterval:    cfg.Transport.HeartbeatInterval,
		ReconnectBaseDelay:   cfg.Transport.ReconnectBaseDelay,
		ReconnectMaxDelay:    cfg.Transport.ReconnectMaxDelay,
		MaxReconnectAttempts: cfg.Transport.MaxReconnectAttempts,
		PollInterval:         cfg.Transport.PollInterval,
	}, poller)

	w.Register(tm)
	if err := tm.Subscribe(cfg.Symbol); err != nil {
		logger.Warn("initial subscribe failed", zap.Error(err))
	}
	tm.Start(ctx)
	defer tm.Close()

	// Health endpoint
	healthServer := health.NewServer(cfg.Health.Port, tm, classifier, limiter)
	healthServer.Start()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = healthServer.Stop(shutdownCtx)
	}()

	// Periodic work: the classification tick, plus a degraded-state monitor
	group := worker.NewGroup(ctx)
	group.Add(w, cfg.Classifier.TickInterval)
	group.Add(newDegradedMonitor(tm, notifier), time.Minute)
	group.Start()
	defer group.Stop(10 * time.Second)

	logger.Info("regime watcher ready",
		zap.Duration("tick_interval", cfg.Classifier.TickInterval),
		zap.String("transport_mode", tm.Mode().String()),
	)

	<-ctx.Done()
	logger.Info("shutting down gracefully...")
	return nil
}
