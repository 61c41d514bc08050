package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/selivandex/regime-watch/internal/transport"
	"github.com/selivandex/regime-watch/pkg/models"
)

// Poller adapts a DataSource to the transport's polling fallback, so the
// same handlers receive updates whether they were pushed or polled.
type Poller struct {
	source    DataSource
	symbol    string
	newsLimit int
}

// NewPoller creates a poller over source for one watched symbol
func NewPoller(source DataSource, symbol string, newsLimit int) *Poller {
	return &Poller{
		source:    source,
		symbol:    symbol,
		newsLimit: newsLimit,
	}
}

// Poll retrieves one batch of updates as transport messages: the latest
// quote as a price update, market stats, then news.
func (p *Poller) Poll(ctx context.Context) ([]transport.Message, error) {
	quote, err := p.source.Quote(ctx, p.symbol)
	if err != nil {
		return nil, fmt.Errorf("poll quote: %w", err)
	}

	msgs := make([]transport.Message, 0, 3)

	priceData, err := json.Marshal(models.PricePoint{
		Symbol:    quote.Symbol,
		Timestamp: quote.Timestamp,
		Price:     quote.Last,
	})
	if err != nil {
		return nil, err
	}
	msgs = append(msgs, transport.Message{
		Type:    transport.TypePrice,
		Channel: p.symbol,
		Data:    priceData,
		Ts:      quote.Timestamp.UnixMilli(),
	})

	// Stats and news are best-effort; a quote alone still advances the tick
	if stats, err := p.source.MarketStats(ctx); err == nil {
		if data, err := json.Marshal(stats); err == nil {
			msgs = append(msgs, transport.Message{
				Type: transport.TypeMarket,
				Data: data,
				Ts:   time.Now().UnixMilli(),
			})
		}
	}

	if news, err := p.source.LatestNews(ctx, p.newsLimit); err == nil && len(news) > 0 {
		if data, err := json.Marshal(news); err == nil {
			msgs = append(msgs, transport.Message{
				Type: transport.TypeNews,
				Data: data,
				Ts:   time.Now().UnixMilli(),
			})
		}
	}

	return msgs, nil
}
