package indicators

import (
	"fmt"
	"math"
	"time"

	"github.com/cinar/indicator"

	"github.com/selivandex/regime-watch/pkg/models"
)

// Default periods for the snapshot assembly
const (
	rsiPeriod       = 14
	bollingerPeriod = 20
	bollingerK      = 2.0
)

// ChangeFromHigh returns the relative distance of the last price from the
// given high: (last - high) / high. The high must be positive.
func ChangeFromHigh(prices []float64, high float64) (float64, error) {
	if high <= 0 {
		return 0, fmt.Errorf("high must be positive, got %f", high)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("empty price series")
	}
	return (prices[len(prices)-1] - high) / high, nil
}

// RSI computes the Wilder-style relative strength index over the given
// period. With fewer than period+1 samples, or a degenerate (flat) series,
// it returns the neutral value 50.
func RSI(prices []float64, period int) float64 {
	if period <= 0 {
		period = rsiPeriod
	}
	if len(prices) < period+1 {
		return 50
	}

	_, rsi := indicator.RsiPeriod(period, prices)
	last := rsi[len(rsi)-1]
	if math.IsNaN(last) || math.IsInf(last, 0) {
		return 50
	}
	return last
}

// MovingAverage returns the arithmetic mean of the last period samples, or
// of all samples when fewer exist. The shrink is graceful, not an error.
func MovingAverage(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if period > len(prices) {
		period = len(prices)
	}

	sma := indicator.Sma(period, prices)
	return sma[len(sma)-1]
}

// MACD computes the 12/26 EMA difference with its 9-period signal line
func MACD(prices []float64) models.MACDIndicator {
	if len(prices) == 0 {
		return models.MACDIndicator{}
	}

	line, signal := indicator.Macd(prices)
	l := line[len(line)-1]
	s := signal[len(signal)-1]

	return models.MACDIndicator{
		Line:      l,
		Signal:    s,
		Histogram: l - s,
	}
}

// Bollinger computes the simple moving average with bands at k standard
// deviations over the trailing window, shrinking like MovingAverage when
// data is insufficient.
func Bollinger(prices []float64, period int, k float64) models.BollingerIndicator {
	if len(prices) == 0 {
		return models.BollingerIndicator{}
	}
	if period <= 0 {
		period = bollingerPeriod
	}
	if k <= 0 {
		k = bollingerK
	}
	if period > len(prices) {
		period = len(prices)
	}

	mid := MovingAverage(prices, period)
	std := stdDev(prices[len(prices)-period:], mid)

	return models.BollingerIndicator{
		Upper: mid + k*std,
		Mid:   mid,
		Lower: mid - k*std,
	}
}

func stdDev(window []float64, mean float64) float64 {
	if len(window) == 0 {
		return 0
	}

	var sum float64
	for _, v := range window {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(window)))
}

// Inputs carries the auxiliary market inputs alongside the price series
type Inputs struct {
	Symbol         string
	RollingHigh    float64
	ImpliedFear    float64
	PutCallRatio   float64
	BreadthRatio   float64
	SentimentScore float64
}

// Snapshot assembles one immutable IndicatorSnapshot from a price series
// (oldest first) plus the auxiliary inputs. The engine holds no state.
func Snapshot(prices []float64, in Inputs) (models.IndicatorSnapshot, error) {
	if len(prices) == 0 {
		return models.IndicatorSnapshot{}, fmt.Errorf("empty price series")
	}

	high := in.RollingHigh
	if high <= 0 {
		high = rollingHigh(prices)
	}

	change, err := ChangeFromHigh(prices, high)
	if err != nil {
		return models.IndicatorSnapshot{}, err
	}

	return models.IndicatorSnapshot{
		Symbol:              in.Symbol,
		Price:               prices[len(prices)-1],
		PriceChangeFromHigh: change,
		RSI:                 RSI(prices, rsiPeriod),
		MACD:                MACD(prices),
		Bollinger:           Bollinger(prices, bollingerPeriod, bollingerK),
		MovingAverages: models.MovingAverages{
			SMA20:  MovingAverage(prices, 20),
			SMA50:  MovingAverage(prices, 50),
			SMA200: MovingAverage(prices, 200),
		},
		ImpliedFear:    in.ImpliedFear,
		PutCallRatio:   in.PutCallRatio,
		BreadthRatio:   in.BreadthRatio,
		SentimentScore: in.SentimentScore,
		GeneratedAt:    time.Now(),
	}, nil
}

func rollingHigh(prices []float64) float64 {
	high := prices[0]
	for _, p := range prices[1:] {
		if p > high {
			high = p
		}
	}
	return high
}
