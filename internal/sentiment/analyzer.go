package sentiment

import (
	"strings"
	"time"

	"github.com/selivandex/regime-watch/pkg/models"
)

// Analyzer performs simple keyword-based sentiment analysis
type Analyzer struct {
	positiveWords map[string]float64
	negativeWords map[string]float64
}

// NewAnalyzer creates new sentiment analyzer
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		positiveWords: buildPositiveWords(),
		negativeWords: buildNegativeWords(),
	}
}

// Score analyzes text and returns sentiment score (-1.0 to 1.0)
func (a *Analyzer) Score(text string) float64 {
	if text == "" {
		return 0.0
	}

	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return 0.0
	}

	var score float64
	matchCount := 0

	for _, word := range words {
		word = strings.Trim(word, ".,!?;:\"'()")

		if weight, ok := a.positiveWords[word]; ok {
			score += weight
			matchCount++
		}

		if weight, ok := a.negativeWords[word]; ok {
			score -= weight
			matchCount++
		}
	}

	if matchCount == 0 {
		return 0.0
	}

	normalized := score / float64(len(words))

	if normalized > 1.0 {
		normalized = 1.0
	} else if normalized < -1.0 {
		normalized = -1.0
	}

	return normalized
}

// ScoreItems scores each news item in place and returns the recency-weighted
// aggregate in [-1, 1]. Items older than a day count half; unscorable text
// counts as neutral.
func (a *Analyzer) ScoreItems(items []models.NewsItem, now time.Time) float64 {
	if len(items) == 0 {
		return 0.0
	}

	var sum, weightSum float64
	for i := range items {
		items[i].Sentiment = a.Score(items[i].Title + " " + items[i].Content)

		weight := 1.0
		if now.Sub(items[i].PublishedAt) > 24*time.Hour {
			weight = 0.5
		}
		// Per-item scores are word-count normalized and land near zero for
		// headline-length text; rescale before clamping
		sum += items[i].Sentiment * weight * 10
		weightSum += weight
	}

	agg := sum / weightSum
	if agg > 1.0 {
		agg = 1.0
	} else if agg < -1.0 {
		agg = -1.0
	}
	return agg
}

// buildPositiveWords returns positive keywords for broad-market headlines
func buildPositiveWords() map[string]float64 {
	return map[string]float64{
		// General positive
		"rally":      0.9,
		"rebound":    0.8,
		"surge":      0.8,
		"soar":       0.8,
		"recovery":   0.7,
		"bullish":    1.0,
		"bull":       0.9,
		"gain":       0.6,
		"gains":      0.6,
		"record":     0.6,
		"upbeat":     0.6,
		"optimism":   0.6,
		"optimistic": 0.5,
		"beat":       0.6,
		"beats":      0.6,
		"strong":     0.5,
		"growth":     0.5,
		"expansion":  0.5,
		"green":      0.5,
		"rise":       0.5,
		"rises":      0.5,
		"up":         0.4,

		// Macro specific
		"easing":        0.6,
		"cut":           0.5, // rate cut context
		"cuts":          0.5,
		"dovish":        0.7,
		"stimulus":      0.7,
		"soft-landing":  0.8,
		"disinflation":  0.6,
		"resilient":     0.5,
		"capitulation":  0.4, // contrarian bottom signal
		"oversold":      0.4,
		"accumulation":  0.5,
		"breakout":      0.7,
		"upgrade":       0.5,
		"upgraded":      0.5,
		"institutional": 0.4,
	}
}

// buildNegativeWords returns negative keywords for broad-market headlines
func buildNegativeWords() map[string]float64 {
	return map[string]float64{
		// General negative
		"bearish":    1.0,
		"bear":       0.9,
		"crash":      1.0,
		"selloff":    0.9,
		"sell-off":   0.9,
		"plunge":     0.8,
		"plunges":    0.8,
		"tumble":     0.8,
		"tumbles":    0.8,
		"slump":      0.7,
		"fall":       0.6,
		"falls":      0.6,
		"drop":       0.6,
		"drops":      0.6,
		"decline":    0.6,
		"loss":       0.6,
		"losses":     0.6,
		"red":        0.5,
		"down":       0.4,
		"fear":       0.6,
		"panic":      0.9,
		"correction": 0.7,
		"weak":       0.5,
		"miss":       0.6,
		"misses":     0.6,

		// Macro specific
		"recession":   0.9,
		"stagflation": 0.9,
		"inflation":   0.5,
		"hawkish":     0.7,
		"hike":        0.5,
		"hikes":       0.5,
		"tightening":  0.6,
		"default":     0.8,
		"contagion":   0.9,
		"crisis":      0.9,
		"tariff":      0.6,
		"tariffs":     0.6,
		"layoffs":     0.7,
		"downgrade":   0.6,
		"downgraded":  0.6,
		"bubble":      0.6,
		"overvalued":  0.6,
		"margin-call": 0.8,
		"liquidation": 0.8,
		"war":         0.7,
		"sanctions":   0.6,
		"shutdown":    0.6,
	}
}
