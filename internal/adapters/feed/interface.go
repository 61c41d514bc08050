package feed

import (
	"context"

	"github.com/selivandex/regime-watch/pkg/models"
)

// DataSource supplies the rolling price series, market stats and news that
// drive each classification tick. Selected at construction: live against a
// backend, or synthetic for tests and demos.
type DataSource interface {
	// PriceHistory returns up to limit points, oldest first
	PriceHistory(ctx context.Context, symbol string, limit int) ([]models.PricePoint, error)
	// Quote returns the latest quote including the rolling high
	Quote(ctx context.Context, symbol string) (models.Quote, error)
	// MarketStats returns fear, positioning and breadth inputs
	MarketStats(ctx context.Context) (models.MarketStats, error)
	// LatestNews returns recent news items, newest first
	LatestNews(ctx context.Context, limit int) ([]models.NewsItem, error)
}
