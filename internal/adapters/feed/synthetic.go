package feed

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/selivandex/regime-watch/pkg/models"
)

// SyntheticSource generates a deterministic walk so the pipeline can run
// without a backend. Same seed, same series.
type SyntheticSource struct {
	mu        sync.Mutex
	rng       *rand.Rand
	basePrice float64
	drift     float64
	vol       float64
	series    []float64
	start     time.Time
}

// NewSyntheticSource creates a generator seeded for reproducibility
func NewSyntheticSource(seed int64, basePrice float64) *SyntheticSource {
	return &SyntheticSource{
		rng:       rand.New(rand.NewSource(seed)),
		basePrice: basePrice,
		drift:     0.0002,
		vol:       0.012,
		start:     time.Now().AddDate(0, 0, -260),
	}
}

// PriceHistory extends the walk to limit points and returns it oldest first
func (s *SyntheticSource) PriceHistory(ctx context.Context, symbol string, limit int) ([]models.PricePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.extend(limit)

	n := len(s.series)
	if limit > n {
		limit = n
	}

	points := make([]models.PricePoint, 0, limit)
	for i := n - limit; i < n; i++ {
		points = append(points, models.PricePoint{
			Symbol:    symbol,
			Timestamp: s.start.AddDate(0, 0, i),
			Price:     s.series[i],
		})
	}
	return points, nil
}

// Quote derives the latest quote from the walk
func (s *SyntheticSource) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.extend(1)

	high := s.series[0]
	for _, p := range s.series {
		if p > high {
			high = p
		}
	}

	return models.Quote{
		Symbol:    symbol,
		Last:      s.series[len(s.series)-1],
		High52w:   high,
		Timestamp: time.Now(),
	}, nil
}

// MarketStats derives fear and breadth from recent realized volatility
func (s *SyntheticSource) MarketStats(ctx context.Context) (models.MarketStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.extend(21)

	fear := 12 + 400*s.realizedVol(20)
	if fear > 80 {
		fear = 80
	}

	return models.MarketStats{
		ImpliedFear:  fear,
		PutCallRatio: 0.9 + s.rng.Float64()*0.3,
		BreadthRatio: 0.8 + s.rng.Float64()*0.6,
	}, nil
}

// LatestNews returns a fixed rotation of neutral headlines
func (s *SyntheticSource) LatestNews(ctx context.Context, limit int) ([]models.NewsItem, error) {
	headlines := []string{
		"Stocks drift as traders await economic data",
		"Treasury yields little changed ahead of auction",
		"Earnings season continues with mixed results",
	}

	if limit > len(headlines) {
		limit = len(headlines)
	}

	items := make([]models.NewsItem, 0, limit)
	for i := 0; i < limit; i++ {
		items = append(items, models.NewsItem{
			ID:          fmt.Sprintf("synthetic-%d", i),
			Source:      "synthetic",
			Title:       headlines[i],
			PublishedAt: time.Now().Add(-time.Duration(i) * time.Hour),
		})
	}
	return items, nil
}

// extend grows the walk until it holds at least n points
func (s *SyntheticSource) extend(n int) {
	if len(s.series) == 0 {
		s.series = append(s.series, s.basePrice)
	}
	for len(s.series) < n {
		last := s.series[len(s.series)-1]
		step := s.drift + s.vol*s.rng.NormFloat64()
		s.series = append(s.series, last*(1+step))
	}
}

// realizedVol returns the stdev of the last n daily returns
func (s *SyntheticSource) realizedVol(n int) float64 {
	if len(s.series) < n+1 {
		return 0
	}

	returns := make([]float64, 0, n)
	for i := len(s.series) - n; i < len(s.series); i++ {
		returns = append(returns, s.series[i]/s.series[i-1]-1)
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var sum float64
	for _, r := range returns {
		d := r - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(returns)))
}
