package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/selivandex/regime-watch/internal/regime"
	"github.com/selivandex/regime-watch/internal/sentiment"
	"github.com/selivandex/regime-watch/internal/transport"
	"github.com/selivandex/regime-watch/pkg/logger"
	"github.com/selivandex/regime-watch/pkg/models"
)

func TestMain(m *testing.M) {
	logger.InitForTesting()
	m.Run()
}

type fakeSource struct {
	history      []models.PricePoint
	historyErr   error
	historyCalls int
	stats        models.MarketStats
	news         []models.NewsItem
}

func (f *fakeSource) PriceHistory(ctx context.Context, symbol string, limit int) ([]models.PricePoint, error) {
	f.historyCalls++
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history, nil
}

func (f *fakeSource) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	return models.Quote{Symbol: symbol}, nil
}

func (f *fakeSource) MarketStats(ctx context.Context) (models.MarketStats, error) {
	return f.stats, nil
}

func (f *fakeSource) LatestNews(ctx context.Context, limit int) ([]models.NewsItem, error) {
	return f.news, nil
}

func flatHistory(n int) []models.PricePoint {
	base := time.Now().Add(-time.Duration(n) * time.Minute)
	points := make([]models.PricePoint, n)
	for i := range points {
		points[i] = models.PricePoint{
			Symbol:    "SPY",
			Price:     100,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
	}
	return points
}

func neutralStats() models.MarketStats {
	return models.MarketStats{ImpliedFear: 20, PutCallRatio: 1.0, BreadthRatio: 1.0}
}

func newTestWatcher(src *fakeSource) (*Watcher, *regime.Classifier) {
	classifier := regime.NewClassifier(regime.DefaultThresholds(), nil)
	w := New(Options{
		Symbol:     "SPY",
		Source:     src,
		Classifier: classifier,
		Analyzer:   sentiment.NewAnalyzer(),
		MinHistory: 30,
	})
	return w, classifier
}

func TestWatcher_RunBackfillsAndClassifies(t *testing.T) {
	src := &fakeSource{history: flatHistory(60), stats: neutralStats()}
	w, classifier := newTestWatcher(src)

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if src.historyCalls != 1 {
		t.Errorf("expected one backfill, got %d", src.historyCalls)
	}
	if got := classifier.Current(); got != models.RegimeNeutral {
		t.Errorf("flat series with neutral stats should be neutral, got %s", got)
	}

	snap, ok := w.LastSnapshot()
	if !ok {
		t.Fatal("expected a snapshot after a tick")
	}
	if snap.Symbol != "SPY" || snap.Price != 100 {
		t.Errorf("unexpected snapshot: symbol=%s price=%f", snap.Symbol, snap.Price)
	}

	// Buffer already holds enough history; no second backfill
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error on second tick: %v", err)
	}
	if src.historyCalls != 1 {
		t.Errorf("expected backfill to be skipped, got %d calls", src.historyCalls)
	}
}

func TestWatcher_RunSkipsWithInsufficientHistory(t *testing.T) {
	src := &fakeSource{history: flatHistory(5), stats: neutralStats()}
	w, _ := newTestWatcher(src)

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := w.LastSnapshot(); ok {
		t.Error("short history must not produce a snapshot")
	}
}

func TestWatcher_RunPropagatesBackfillError(t *testing.T) {
	src := &fakeSource{historyErr: errors.New("backend down")}
	w, _ := newTestWatcher(src)

	if err := w.Run(context.Background()); err == nil {
		t.Fatal("expected backfill error")
	}
}

func TestWatcher_HandlePrice(t *testing.T) {
	w, _ := newTestWatcher(&fakeSource{})

	push := func(p models.PricePoint) {
		data, _ := json.Marshal(p)
		w.handlePrice(transport.Message{Type: transport.TypePrice, Data: data})
	}

	push(models.PricePoint{Symbol: "SPY", Price: 101, Timestamp: time.Now()})
	push(models.PricePoint{Symbol: "QQQ", Price: 300, Timestamp: time.Now()})
	w.handlePrice(transport.Message{Type: transport.TypePrice, Data: json.RawMessage(`{broken`)})

	if w.buffer.Len() != 1 {
		t.Errorf("expected only the matching symbol buffered, got %d points", w.buffer.Len())
	}
}

func TestWatcher_PushedStatsDriveClassification(t *testing.T) {
	// Source reports neutral stats; the pushed update is bearish. Fresh
	// pushed stats take precedence, so the tick must classify from them.
	src := &fakeSource{history: flatHistory(60), stats: neutralStats()}
	w, classifier := newTestWatcher(src)

	bearish := models.MarketStats{ImpliedFear: 40, PutCallRatio: 1.3, BreadthRatio: 0.5}
	data, _ := json.Marshal(bearish)
	w.handleMarket(transport.Message{Type: transport.TypeMarket, Data: data})

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := classifier.Current(); !got.IsCorrectionFamily() {
		t.Errorf("expected a correction-family regime from pushed stats, got %s", got)
	}
}

func TestWatcher_HandleNewsUpdatesSentiment(t *testing.T) {
	src := &fakeSource{history: flatHistory(60), stats: neutralStats()}
	w, _ := newTestWatcher(src)

	items := []models.NewsItem{
		{Title: "Massive rally as dovish pivot sparks record gains", PublishedAt: time.Now()},
	}
	data, _ := json.Marshal(items)
	w.handleNews(transport.Message{Type: transport.TypeNews, Data: data})

	// Stats must be fresh too, or the tick refetches news from the source
	statsData, _ := json.Marshal(neutralStats())
	w.handleMarket(transport.Message{Type: transport.TypeMarket, Data: statsData})

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap, ok := w.LastSnapshot()
	if !ok {
		t.Fatal("expected a snapshot")
	}
	if snap.SentimentScore <= 0 {
		t.Errorf("expected positive sentiment from pushed news, got %f", snap.SentimentScore)
	}
}
