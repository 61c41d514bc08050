package regime

import "github.com/selivandex/regime-watch/pkg/models"

// score computes the weighted integer score for one snapshot. Caller holds
// the classifier mutex (the rebound term reads the open episode).
func (c *Classifier) score(snap models.IndicatorSnapshot) int {
	t := c.thresholds
	score := 0

	// Drawdown from the rolling high dominates
	change := snap.PriceChangeFromHigh
	switch {
	case change <= -0.20:
		score -= 5
	case change <= -0.15:
		score -= 4
	case change <= -0.10:
		score -= 3
	}

	// Rebound off the correction low
	if c.episode != nil && c.episode.LowPrice > 0 &&
		snap.Price >= c.episode.LowPrice*(1+t.ReboundFromLowPct) {
		score += 2
	}

	// Oversold is contrarian-bullish, overbought bearish
	if snap.RSI < 30 {
		score += 2
	} else if snap.RSI > 70 {
		score -= 2
	}

	if snap.MACD.Bullish() {
		score++
	} else {
		score--
	}

	// Fear proxy
	switch {
	case snap.ImpliedFear > t.FearExtreme:
		score -= 3
	case snap.ImpliedFear > t.FearSpike:
		score -= 2
	case snap.ImpliedFear > 0 && snap.ImpliedFear < t.FearComplacency:
		score++
	}

	// Put/call positioning
	if snap.PutCallRatio > t.PutCallBearish {
		score -= 2
	} else if snap.PutCallRatio > 0 && snap.PutCallRatio < t.PutCallBullish {
		score++
	}

	// Breadth
	if snap.BreadthRatio > 0 && snap.BreadthRatio < t.BreadthNegative {
		score -= 2
	} else if snap.BreadthRatio > t.BreadthStrong {
		score += 2
	}

	// Moving-average structure
	ma := snap.MovingAverages
	if ma.SMA200 > 0 {
		if snap.Price < ma.SMA200 {
			score -= 2
		}
		if ma.SMA50 > 0 {
			if ma.SMA50 < ma.SMA200 {
				score--
			} else if ma.SMA50 > ma.SMA200 {
				score++
			}
		}
	}

	// Sentiment at strong magnitudes
	if snap.SentimentScore >= t.SentimentStrong {
		score += 2
	} else if snap.SentimentScore <= -t.SentimentStrong {
		score -= 2
	}

	return score
}
