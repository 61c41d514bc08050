package regime

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/regime-watch/pkg/logger"
	"github.com/selivandex/regime-watch/pkg/models"
)

// TransitionFunc is invoked exactly once per regime edge, never on a
// no-change tick. The episode pointer reflects the state after the edge was
// applied and is nil when no correction is open.
type TransitionFunc func(t models.RegimeTransition, snap models.IndicatorSnapshot, episode *models.CorrectionEpisode)

// Thresholds parameterizes the weighted scoring. Zero values fall back to
// the defaults below.
type Thresholds struct {
	FearExtreme       float64
	FearSpike         float64
	FearComplacency   float64
	PutCallBearish    float64
	PutCallBullish    float64
	BreadthNegative   float64
	BreadthStrong     float64
	SentimentStrong   float64
	ReboundFromLowPct float64
}

// DefaultThresholds returns the standard scoring thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		FearExtreme:       35,
		FearSpike:         28,
		FearComplacency:   14,
		PutCallBearish:    1.2,
		PutCallBullish:    0.8,
		BreadthNegative:   0.7,
		BreadthStrong:     1.5,
		SentimentStrong:   0.5,
		ReboundFromLowPct: 0.05,
	}
}

func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if t.FearExtreme == 0 {
		t.FearExtreme = d.FearExtreme
	}
	if t.FearSpike == 0 {
		t.FearSpike = d.FearSpike
	}
	if t.FearComplacency == 0 {
		t.FearComplacency = d.FearComplacency
	}
	if t.PutCallBearish == 0 {
		t.PutCallBearish = d.PutCallBearish
	}
	if t.PutCallBullish == 0 {
		t.PutCallBullish = d.PutCallBullish
	}
	if t.BreadthNegative == 0 {
		t.BreadthNegative = d.BreadthNegative
	}
	if t.BreadthStrong == 0 {
		t.BreadthStrong = d.BreadthStrong
	}
	if t.SentimentStrong == 0 {
		t.SentimentStrong = d.SentimentStrong
	}
	if t.ReboundFromLowPct == 0 {
		t.ReboundFromLowPct = d.ReboundFromLowPct
	}
	return t
}

// Classifier maps indicator snapshots to a discrete regime via weighted
// scoring. It holds exactly one previous-state value plus the open
// correction episode; no further history is needed.
type Classifier struct {
	mu           sync.Mutex
	thresholds   Thresholds
	current      models.RegimeState
	episode      *models.CorrectionEpisode
	onTransition TransitionFunc
	now          func() time.Time
}

// NewClassifier creates a classifier starting in Neutral
func NewClassifier(thresholds Thresholds, onTransition TransitionFunc) *Classifier {
	return &Classifier{
		thresholds:   thresholds.withDefaults(),
		current:      models.RegimeNeutral,
		onTransition: onTransition,
		now:          time.Now,
	}
}

// Current returns the current regime state
func (c *Classifier) Current() models.RegimeState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Episode returns a copy of the open correction episode, or nil
func (c *Classifier) Episode() *models.CorrectionEpisode {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.episode == nil {
		return nil
	}
	ep := *c.episode
	return &ep
}

// Classify scores the snapshot, applies the state machine, and fires the
// transition callback when (and only when) the state changed.
func (c *Classifier) Classify(snap models.IndicatorSnapshot) models.RegimeState {
	c.mu.Lock()

	score := c.score(snap)
	next := stateForScore(score)
	prev := c.current

	var (
		transition *models.RegimeTransition
		episode    *models.CorrectionEpisode
	)

	if next != prev {
		now := c.now()

		if next.IsCorrectionFamily() && !prev.IsCorrectionFamily() && c.episode == nil {
			c.episode = &models.CorrectionEpisode{
				StartedAt:    now,
				DepthAtStart: snap.PriceChangeFromHigh,
				LowPrice:     snap.Price,
			}
		}
		if (next == models.RegimeRecovery || next == models.RegimeNeutral) && c.episode != nil {
			c.episode = nil
		}

		c.current = next
		transition = &models.RegimeTransition{From: prev, To: next, At: now}
		if c.episode != nil {
			ep := *c.episode
			episode = &ep
		}
	}

	// Track the episode low while a correction is open
	if c.episode != nil && snap.Price > 0 && snap.Price < c.episode.LowPrice {
		c.episode.LowPrice = snap.Price
	}

	cb := c.onTransition
	c.mu.Unlock()

	if transition != nil {
		logger.Info("regime transition",
			zap.String("from", string(transition.From)),
			zap.String("to", string(transition.To)),
			zap.Int("score", score),
		)
		if cb != nil {
			cb(*transition, snap, episode)
		}
	}

	return next
}

// stateForScore maps the weighted score to a regime, evaluated in severity
// order: corrections first, then recovery strength, else neutral
func stateForScore(score int) models.RegimeState {
	switch {
	case score <= -8:
		return models.RegimeSevereCorrection
	case score <= -5:
		return models.RegimeCorrection
	case score <= -2:
		return models.RegimeBearish
	case score >= 5:
		return models.RegimeRecovery
	case score >= 3:
		return models.RegimeBullish
	default:
		return models.RegimeNeutral
	}
}
