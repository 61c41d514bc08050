package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/selivandex/regime-watch/internal/executor"
	"github.com/selivandex/regime-watch/pkg/models"
)

// LiveSource retrieves market data from the configured backend through the
// request executor, inheriting its rate limiting and retry policy.
type LiveSource struct {
	exec    *executor.Executor
	baseURL string
}

// NewLiveSource creates a live data source against baseURL
func NewLiveSource(exec *executor.Executor, baseURL string) *LiveSource {
	return &LiveSource{
		exec:    exec,
		baseURL: baseURL,
	}
}

type pricePointPayload struct {
	Ts     int64   `json:"ts"`
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
}

type quotePayload struct {
	Symbol  string  `json:"symbol"`
	Last    float64 `json:"last"`
	High52w float64 `json:"high_52w"`
	Ts      int64   `json:"ts"`
}

type statsPayload struct {
	ImpliedFear  float64 `json:"implied_fear"`
	PutCallRatio float64 `json:"put_call_ratio"`
	BreadthRatio float64 `json:"breadth_ratio"`
}

type newsPayload struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	PublishedAt int64  `json:"published_at"`
}

// PriceHistory returns up to limit daily closes, oldest first
func (s *LiveSource) PriceHistory(ctx context.Context, symbol string, limit int) ([]models.PricePoint, error) {
	var payload []pricePointPayload

	url := fmt.Sprintf("%s/v1/prices/%s?limit=%d", s.baseURL, symbol, limit)
	if err := s.exec.GetJSON(ctx, url, &payload); err != nil {
		return nil, fmt.Errorf("failed to fetch price history for %s: %w", symbol, err)
	}

	points := make([]models.PricePoint, 0, len(payload))
	for _, p := range payload {
		points = append(points, models.PricePoint{
			Symbol:    symbol,
			Timestamp: time.UnixMilli(p.Ts),
			Price:     p.Price,
			Volume:    p.Volume,
		})
	}
	return points, nil
}

// Quote returns the latest quote for symbol
func (s *LiveSource) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	var payload quotePayload

	url := fmt.Sprintf("%s/v1/quote/%s", s.baseURL, symbol)
	if err := s.exec.GetJSON(ctx, url, &payload); err != nil {
		return models.Quote{}, fmt.Errorf("failed to fetch quote for %s: %w", symbol, err)
	}

	return models.Quote{
		Symbol:    symbol,
		Last:      payload.Last,
		High52w:   payload.High52w,
		Timestamp: time.UnixMilli(payload.Ts),
	}, nil
}

// MarketStats returns fear, put/call and breadth inputs
func (s *LiveSource) MarketStats(ctx context.Context) (models.MarketStats, error) {
	var payload statsPayload

	url := s.baseURL + "/v1/market/stats"
	if err := s.exec.GetJSON(ctx, url, &payload); err != nil {
		return models.MarketStats{}, fmt.Errorf("failed to fetch market stats: %w", err)
	}

	return models.MarketStats{
		ImpliedFear:  payload.ImpliedFear,
		PutCallRatio: payload.PutCallRatio,
		BreadthRatio: payload.BreadthRatio,
	}, nil
}

// LatestNews returns recent news items
func (s *LiveSource) LatestNews(ctx context.Context, limit int) ([]models.NewsItem, error) {
	var payload []newsPayload

	url := fmt.Sprintf("%s/v1/news?limit=%d", s.baseURL, limit)
	if err := s.exec.GetJSON(ctx, url, &payload); err != nil {
		return nil, fmt.Errorf("failed to fetch news: %w", err)
	}

	items := make([]models.NewsItem, 0, len(payload))
	for _, n := range payload {
		items = append(items, models.NewsItem{
			ID:          n.ID,
			Source:      n.Source,
			Title:       n.Title,
			Content:     n.Content,
			URL:         n.URL,
			PublishedAt: time.UnixMilli(n.PublishedAt),
		})
	}
	return items, nil
}
