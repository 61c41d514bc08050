package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegimeState represents the discrete market regime classification
type RegimeState string

const (
	RegimeSevereCorrection RegimeState = "severe_correction"
	RegimeCorrection       RegimeState = "correction"
	RegimeBearish          RegimeState = "bearish"
	RegimeNeutral          RegimeState = "neutral"
	RegimeBullish          RegimeState = "bullish"
	RegimeRecovery         RegimeState = "recovery"
)

// IsCorrectionFamily returns true for states that keep a correction episode open
func (s RegimeState) IsCorrectionFamily() bool {
	return s == RegimeSevereCorrection || s == RegimeCorrection
}

// Direction represents the recommended position direction
type Direction string

const (
	DirectionLong     Direction = "long"
	DirectionShort    Direction = "short"
	DirectionLongPut  Direction = "long_put"
	DirectionLongCall Direction = "long_call"
)

// PricePoint represents a single observation in the rolling price series
type PricePoint struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume,omitempty"`
}

// Quote represents the latest market quote for a symbol
type Quote struct {
	Symbol    string    `json:"symbol"`
	Last      float64   `json:"last"`
	High52w   float64   `json:"high_52w"`
	Timestamp time.Time `json:"timestamp"`
}

// MarketStats carries breadth and positioning inputs for classification
type MarketStats struct {
	ImpliedFear  float64 `json:"implied_fear"`
	PutCallRatio float64 `json:"put_call_ratio"`
	BreadthRatio float64 `json:"breadth_ratio"`
}

// NewsItem represents a news event feeding the sentiment input
type NewsItem struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	Sentiment   float64   `json:"sentiment"`
}

// MACDIndicator holds MACD line, signal line and histogram
type MACDIndicator struct {
	Line      float64 `json:"line"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// Bullish returns true when the MACD line is above its signal line
func (m MACDIndicator) Bullish() bool {
	return m.Line > m.Signal
}

// BollingerIndicator holds the three Bollinger band levels
type BollingerIndicator struct {
	Upper float64 `json:"upper"`
	Mid   float64 `json:"mid"`
	Lower float64 `json:"lower"`
}

// MovingAverages holds the standard trend-structure averages
type MovingAverages struct {
	SMA20  float64 `json:"sma_20"`
	SMA50  float64 `json:"sma_50"`
	SMA200 float64 `json:"sma_200"`
}

// IndicatorSnapshot is an immutable view of the market at one classification tick.
// A fresh snapshot supersedes the previous one; snapshots are never mutated.
type IndicatorSnapshot struct {
	Symbol              string             `json:"symbol"`
	Price               float64            `json:"price"`
	PriceChangeFromHigh float64            `json:"price_change_from_high"`
	RSI                 float64            `json:"rsi"`
	MACD                MACDIndicator      `json:"macd"`
	Bollinger           BollingerIndicator `json:"bollinger"`
	MovingAverages      MovingAverages     `json:"moving_averages"`
	ImpliedFear         float64            `json:"implied_fear"`
	PutCallRatio        float64            `json:"put_call_ratio"`
	BreadthRatio        float64            `json:"breadth_ratio"`
	SentimentScore      float64            `json:"sentiment_score"`
	GeneratedAt         time.Time          `json:"generated_at"`
}

// CorrectionEpisode tracks an open correction from first entry until recovery
type CorrectionEpisode struct {
	StartedAt    time.Time `json:"started_at"`
	DepthAtStart float64   `json:"depth_at_start"`
	LowPrice     float64   `json:"low_price"`
}

// DaysOpen returns whole days since the episode began
func (e CorrectionEpisode) DaysOpen(now time.Time) int {
	return int(now.Sub(e.StartedAt).Hours() / 24)
}

// RegimeTransition records a single regime edge
type RegimeTransition struct {
	From RegimeState `json:"from"`
	To   RegimeState `json:"to"`
	At   time.Time   `json:"at"`
}

// RecommendationRecord is produced only at a regime-transition edge
type RecommendationRecord struct {
	ID                     string           `json:"id"`
	Instrument             string           `json:"instrument"`
	Direction              Direction        `json:"direction"`
	Entry                  decimal.Decimal  `json:"entry"`
	Target                 decimal.Decimal  `json:"target"`
	StopLoss               decimal.Decimal  `json:"stop_loss"`
	Confidence             float64          `json:"confidence"`
	Rationale              []string         `json:"rationale"`
	GeneratedAt            time.Time        `json:"generated_at"`
	SourceRegimeTransition RegimeTransition `json:"source_regime_transition"`
}
