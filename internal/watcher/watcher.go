package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/regime-watch/internal/adapters/cache"
	"github.com/selivandex/regime-watch/internal/adapters/feed"
	"github.com/selivandex/regime-watch/internal/indicators"
	"github.com/selivandex/regime-watch/internal/regime"
	"github.com/selivandex/regime-watch/internal/sentiment"
	"github.com/selivandex/regime-watch/internal/transport"
	"github.com/selivandex/regime-watch/pkg/logger"
	"github.com/selivandex/regime-watch/pkg/models"
)

// Watcher runs the classification tick: assemble the price series and
// market inputs, compute a snapshot, classify, and let the classifier's
// transition callback publish. It implements worker.Worker.
type Watcher struct {
	symbol     string
	source     feed.DataSource
	classifier *regime.Classifier
	analyzer   *sentiment.Analyzer
	buffer     *Buffer
	cache      *cache.Cache
	minHistory int
	historyCap int

	mu        sync.Mutex
	stats     models.MarketStats
	statsAt   time.Time
	sentScore float64
	lastSnap  *models.IndicatorSnapshot
}

// Options configures a Watcher
type Options struct {
	Symbol       string
	Source       feed.DataSource
	Classifier   *regime.Classifier
	Analyzer     *sentiment.Analyzer
	Cache        *cache.Cache
	HistoryDepth int
	MinHistory   int
}

// New creates a watcher
func New(opts Options) *Watcher {
	if opts.HistoryDepth <= 0 {
		opts.HistoryDepth = 250
	}
	if opts.MinHistory <= 0 {
		opts.MinHistory = 30
	}

	return &Watcher{
		symbol:     opts.Symbol,
		source:     opts.Source,
		classifier: opts.Classifier,
		analyzer:   opts.Analyzer,
		buffer:     NewBuffer(opts.HistoryDepth),
		cache:      opts.Cache,
		minHistory: opts.MinHistory,
		historyCap: opts.HistoryDepth,
	}
}

// Name implements worker.Worker
func (w *Watcher) Name() string {
	return "regime-watcher"
}

// Register wires the watcher's inbound handlers into the transport and
// subscribes to the channels it needs
func (w *Watcher) Register(tm *transport.Manager) {
	tm.On(transport.TypePrice, w.handlePrice)
	tm.On(transport.TypeMarket, w.handleMarket)
	tm.On(transport.TypeNews, w.handleNews)
}

// Run executes one classification tick
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.ensureHistory(ctx); err != nil {
		return err
	}

	prices := w.buffer.Prices()
	if len(prices) < w.minHistory {
		logger.Debug("insufficient history for classification",
			zap.Int("have", len(prices)),
			zap.Int("need", w.minHistory),
		)
		return nil
	}

	stats, sentScore := w.inputs(ctx)

	snap, err := indicators.Snapshot(prices, indicators.Inputs{
		Symbol:         w.symbol,
		ImpliedFear:    stats.ImpliedFear,
		PutCallRatio:   stats.PutCallRatio,
		BreadthRatio:   stats.BreadthRatio,
		SentimentScore: sentScore,
	})
	if err != nil {
		return fmt.Errorf("failed to build snapshot: %w", err)
	}

	state := w.classifier.Classify(snap)

	w.mu.Lock()
	w.lastSnap = &snap
	w.mu.Unlock()

	w.cache.StoreSnapshot(ctx, snap)

	logger.Debug("classification tick",
		zap.String("regime", string(state)),
		zap.Float64("price", snap.Price),
		zap.Float64("change_from_high", snap.PriceChangeFromHigh),
	)

	return nil
}

// LastSnapshot returns the most recent snapshot, if any
func (w *Watcher) LastSnapshot() (models.IndicatorSnapshot, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.lastSnap == nil {
		return models.IndicatorSnapshot{}, false
	}
	return *w.lastSnap, true
}

// ensureHistory backfills the buffer from the data source when the push
// path has not filled it yet
func (w *Watcher) ensureHistory(ctx context.Context) error {
	if w.buffer.Len() >= w.minHistory {
		return nil
	}
	if w.source == nil {
		return nil
	}

	points, err := w.source.PriceHistory(ctx, w.symbol, w.historyCap)
	if err != nil {
		return fmt.Errorf("failed to backfill price history: %w", err)
	}
	w.buffer.Load(points)

	logger.Info("price history backfilled",
		zap.String("symbol", w.symbol),
		zap.Int("points", len(points)),
	)
	return nil
}

// inputs returns the freshest market stats and sentiment, fetching from the
// source when the pushed values are stale
func (w *Watcher) inputs(ctx context.Context) (models.MarketStats, float64) {
	w.mu.Lock()
	stats := w.stats
	statsAt := w.statsAt
	sentScore := w.sentScore
	w.mu.Unlock()

	if time.Since(statsAt) < time.Hour {
		return stats, sentScore
	}

	if w.source != nil {
		if fresh, err := w.source.MarketStats(ctx); err == nil {
			stats = fresh
		} else {
			logger.Warn("failed to fetch market stats", zap.Error(err))
		}

		if w.analyzer != nil {
			if news, err := w.source.LatestNews(ctx, 25); err == nil {
				sentScore = w.analyzer.ScoreItems(news, time.Now())
			}
		}

		w.mu.Lock()
		w.stats = stats
		w.statsAt = time.Now()
		w.sentScore = sentScore
		w.mu.Unlock()
	}

	return stats, sentScore
}

func (w *Watcher) handlePrice(msg transport.Message) {
	var point models.PricePoint
	if err := json.Unmarshal(msg.Data, &point); err != nil {
		logger.Warn("failed to parse price update", zap.Error(err))
		return
	}
	if point.Symbol != "" && point.Symbol != w.symbol {
		return
	}

	w.buffer.Append(point)
}

func (w *Watcher) handleMarket(msg transport.Message) {
	var stats models.MarketStats
	if err := json.Unmarshal(msg.Data, &stats); err != nil {
		logger.Warn("failed to parse market stats update", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.stats = stats
	w.statsAt = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) handleNews(msg transport.Message) {
	var items []models.NewsItem
	if err := json.Unmarshal(msg.Data, &items); err != nil {
		logger.Warn("failed to parse news update", zap.Error(err))
		return
	}
	if w.analyzer == nil || len(items) == 0 {
		return
	}

	score := w.analyzer.ScoreItems(items, time.Now())

	w.mu.Lock()
	w.sentScore = score
	w.mu.Unlock()
}
